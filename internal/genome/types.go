package genome

// Frame is a contiguous half-open address range [Start, End) of words.
type Frame struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (f Frame) Len() int {
	return f.End - f.Start
}

// Compiled is a raw word sequence together with the frames a compiler found
// in it. Frames are sorted by Start, do not overlap, and lie inside Raw.
type Compiled struct {
	Raw    []Word  `json:"raw"`
	Frames []Frame `json:"frames"`
}

func (c *Compiled) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Raw)
}

func (c *Compiled) Clone() *Compiled {
	if c == nil {
		return nil
	}
	frames := make([]Frame, len(c.Frames))
	copy(frames, c.Frames)
	return &Compiled{Raw: Clone(c.Raw), Frames: frames}
}
