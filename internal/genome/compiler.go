package genome

import (
	"errors"
	"fmt"
)

const (
	// FrameHeaderSize counts the size word and the default channel word that
	// open every frame.
	FrameHeaderSize = 2

	DefaultMinFrameSize = 4
	DefaultMaxFrameSize = 32
)

var ErrParse = errors.New("genome parse failed")

// FrameCompiler splits a raw word sequence into frames. The channel 0 value of
// the first word of each frame encodes its payload length, folded into
// [MinFrameSize, MaxFrameSize]. The last frame is truncated at the end of the
// genome.
type FrameCompiler struct {
	MinFrameSize int
	MaxFrameSize int
	// MaxWords rejects genomes longer than this when > 0.
	MaxWords int
}

func NewFrameCompiler() FrameCompiler {
	return FrameCompiler{
		MinFrameSize: DefaultMinFrameSize,
		MaxFrameSize: DefaultMaxFrameSize,
	}
}

func (c FrameCompiler) Compile(raw []Word) (*Compiled, error) {
	minSize, maxSize := c.MinFrameSize, c.MaxFrameSize
	if minSize < 0 || maxSize < minSize {
		return nil, fmt.Errorf("%w: invalid frame size bounds [%d, %d]", ErrParse, minSize, maxSize)
	}
	if c.MaxWords > 0 && len(raw) > c.MaxWords {
		return nil, fmt.Errorf("%w: %d words exceeds limit %d", ErrParse, len(raw), c.MaxWords)
	}

	span := maxSize - minSize + 1
	frames := make([]Frame, 0, len(raw)/(FrameHeaderSize+minSize+1)+1)
	for start := 0; start < len(raw); {
		payload := minSize + int(ReadChannel(raw[start], 0))%span
		end := start + FrameHeaderSize + payload
		if end > len(raw) {
			end = len(raw)
		}
		frames = append(frames, Frame{Start: start, End: end})
		start = end
	}
	return &Compiled{Raw: Clone(raw), Frames: frames}, nil
}
