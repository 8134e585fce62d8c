package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"genepool/internal/genome"
)

const (
	OpInsertion              = "insertion"
	OpDeletion               = "deletion"
	OpPointMutation          = "point_mutation"
	OpPointMutationInChannel = "point_mutation_in_channel"
	OpRandomRegionInsert     = "random_region_insert"
	OpCrossover              = "crossover"
	OpSwapFrames             = "swap_frames"

	maxRegionFill       = 9
	maxCrossoverSegment = 50
)

var (
	ErrNoAlterationChoice = errors.New("no alteration choice available")
	ErrSourceCount        = errors.New("alteration source genome count mismatch")
	ErrParamRange         = errors.New("alteration parameter out of range")
	ErrFrameIndex         = errors.New("frame index out of range")
)

// DefaultAlterationKeys lists every built-in operator in registration order.
var DefaultAlterationKeys = []string{
	OpInsertion,
	OpDeletion,
	OpPointMutation,
	OpPointMutationInChannel,
	OpRandomRegionInsert,
	OpCrossover,
	OpSwapFrames,
}

func defaultOperators() []Operator {
	return []Operator{
		Insertion{},
		Deletion{},
		PointMutation{},
		PointMutationInChannel{},
		RandomRegionInsert{},
		Crossover{},
		SwapFrames{},
	}
}

// Insertion inserts one random word. Params: Indices=[pos], Words=[value].
type Insertion struct{}

func (Insertion) Name() string         { return OpInsertion }
func (Insertion) GenomesRequired() int { return 1 }

func (o Insertion) Propose(rng *rand.Rand, sources []*genome.Compiled) (Params, error) {
	if err := checkSources(o, sources); err != nil {
		return Params{}, err
	}
	n := sources[0].Len()
	return Params{
		Indices: []int{rng.Intn(n + 1)},
		Words:   []genome.Word{genome.RandomWord(rng)},
	}, nil
}

func (o Insertion) Apply(sources []*genome.Compiled, params Params) ([]genome.Word, error) {
	if err := checkSources(o, sources); err != nil {
		return nil, err
	}
	if err := checkParams(o, params, 1, 1); err != nil {
		return nil, err
	}
	return genome.Insert(sources[0].Raw, params.Indices[0], params.Words[0])
}

// Deletion removes one word. Params: Indices=[pos].
type Deletion struct{}

func (Deletion) Name() string         { return OpDeletion }
func (Deletion) GenomesRequired() int { return 1 }

func (o Deletion) Propose(rng *rand.Rand, sources []*genome.Compiled) (Params, error) {
	if err := checkSources(o, sources); err != nil {
		return Params{}, err
	}
	n := sources[0].Len()
	if n == 0 {
		return Params{}, fmt.Errorf("%w: %s on empty genome", ErrNoAlterationChoice, o.Name())
	}
	return Params{Indices: []int{rng.Intn(n)}}, nil
}

func (o Deletion) Apply(sources []*genome.Compiled, params Params) ([]genome.Word, error) {
	if err := checkSources(o, sources); err != nil {
		return nil, err
	}
	if err := checkParams(o, params, 1, 0); err != nil {
		return nil, err
	}
	return genome.Remove(sources[0].Raw, params.Indices[0])
}

// PointMutation overwrites one word. Params: Indices=[pos], Words=[value].
type PointMutation struct{}

func (PointMutation) Name() string         { return OpPointMutation }
func (PointMutation) GenomesRequired() int { return 1 }

func (o PointMutation) Propose(rng *rand.Rand, sources []*genome.Compiled) (Params, error) {
	if err := checkSources(o, sources); err != nil {
		return Params{}, err
	}
	n := sources[0].Len()
	if n == 0 {
		return Params{}, fmt.Errorf("%w: %s on empty genome", ErrNoAlterationChoice, o.Name())
	}
	return Params{
		Indices: []int{rng.Intn(n)},
		Words:   []genome.Word{genome.RandomWord(rng)},
	}, nil
}

func (o PointMutation) Apply(sources []*genome.Compiled, params Params) ([]genome.Word, error) {
	if err := checkSources(o, sources); err != nil {
		return nil, err
	}
	if err := checkParams(o, params, 1, 1); err != nil {
		return nil, err
	}
	raw := sources[0].Raw
	pos := params.Indices[0]
	if pos < 0 || pos >= len(raw) {
		return nil, fmt.Errorf("%w: %s position %d of len %d", ErrParamRange, o.Name(), pos, len(raw))
	}
	out := genome.Clone(raw)
	out[pos] = params.Words[0]
	return out, nil
}

// PointMutationInChannel merges a new value into one channel of one word.
// Params: Indices=[pos, channel], Words=[value].
type PointMutationInChannel struct{}

func (PointMutationInChannel) Name() string         { return OpPointMutationInChannel }
func (PointMutationInChannel) GenomesRequired() int { return 1 }

func (o PointMutationInChannel) Propose(rng *rand.Rand, sources []*genome.Compiled) (Params, error) {
	if err := checkSources(o, sources); err != nil {
		return Params{}, err
	}
	n := sources[0].Len()
	if n == 0 {
		return Params{}, fmt.Errorf("%w: %s on empty genome", ErrNoAlterationChoice, o.Name())
	}
	return Params{
		Indices: []int{rng.Intn(n), rng.Intn(genome.NumChannels)},
		Words:   []genome.Word{genome.Word(genome.RandomValue(rng))},
	}, nil
}

func (o PointMutationInChannel) Apply(sources []*genome.Compiled, params Params) ([]genome.Word, error) {
	if err := checkSources(o, sources); err != nil {
		return nil, err
	}
	if err := checkParams(o, params, 2, 1); err != nil {
		return nil, err
	}
	raw := sources[0].Raw
	pos, channel, value := params.Indices[0], params.Indices[1], params.Words[0]
	if pos < 0 || pos >= len(raw) {
		return nil, fmt.Errorf("%w: %s position %d of len %d", ErrParamRange, o.Name(), pos, len(raw))
	}
	if channel < 0 || channel >= genome.NumChannels {
		return nil, fmt.Errorf("%w: %s channel %d", ErrParamRange, o.Name(), channel)
	}
	if value > genome.Word(^genome.Value(0)) {
		return nil, fmt.Errorf("%w: %s value %#x exceeds channel width", ErrParamRange, o.Name(), value)
	}
	out := genome.Clone(raw)
	out[pos] = genome.WriteChannel(out[pos], channel, genome.Value(value))
	return out, nil
}

// RandomRegionInsert replaces a region with up to maxRegionFill random words.
// Params: Indices=[destStart, destEnd], Words=filler.
type RandomRegionInsert struct{}

func (RandomRegionInsert) Name() string         { return OpRandomRegionInsert }
func (RandomRegionInsert) GenomesRequired() int { return 1 }

func (o RandomRegionInsert) Propose(rng *rand.Rand, sources []*genome.Compiled) (Params, error) {
	if err := checkSources(o, sources); err != nil {
		return Params{}, err
	}
	start, end := randomRange(rng, sources[0].Len())
	return Params{
		Indices: []int{start, end},
		Words:   genome.RandomWords(rng, rng.Intn(maxRegionFill+1)),
	}, nil
}

func (o RandomRegionInsert) Apply(sources []*genome.Compiled, params Params) ([]genome.Word, error) {
	if err := checkSources(o, sources); err != nil {
		return nil, err
	}
	if len(params.Indices) != 2 {
		return nil, fmt.Errorf("%w: %s expects 2 indices, got %d", ErrParamRange, o.Name(), len(params.Indices))
	}
	return genome.Splice(sources[0].Raw, params.Indices[0], params.Indices[1], params.Words)
}

// Crossover splices a slice of the first source into a region of the second.
// Params: Indices=[srcStart, srcEnd, destStart, destEnd].
type Crossover struct{}

func (Crossover) Name() string         { return OpCrossover }
func (Crossover) GenomesRequired() int { return 2 }

func (o Crossover) Propose(rng *rand.Rand, sources []*genome.Compiled) (Params, error) {
	if err := checkSources(o, sources); err != nil {
		return Params{}, err
	}
	srcLen := sources[0].Len()
	srcStart := rng.Intn(srcLen + 1)
	span := min(srcLen-srcStart, maxCrossoverSegment)
	srcEnd := srcStart + rng.Intn(span+1)
	destStart, destEnd := randomRange(rng, sources[1].Len())
	return Params{Indices: []int{srcStart, srcEnd, destStart, destEnd}}, nil
}

func (o Crossover) Apply(sources []*genome.Compiled, params Params) ([]genome.Word, error) {
	if err := checkSources(o, sources); err != nil {
		return nil, err
	}
	if err := checkParams(o, params, 4, 0); err != nil {
		return nil, err
	}
	src, dest := sources[0].Raw, sources[1].Raw
	srcStart, srcEnd := params.Indices[0], params.Indices[1]
	if srcStart < 0 || srcEnd > len(src) || srcStart > srcEnd {
		return nil, fmt.Errorf("%w: %s source [%d, %d) of len %d", ErrParamRange, o.Name(), srcStart, srcEnd, len(src))
	}
	return genome.Splice(dest, params.Indices[2], params.Indices[3], src[srcStart:srcEnd])
}

// SwapFrames exchanges the contents of two frames. Params: Indices=[a, b].
type SwapFrames struct{}

func (SwapFrames) Name() string         { return OpSwapFrames }
func (SwapFrames) GenomesRequired() int { return 1 }

func (o SwapFrames) Propose(rng *rand.Rand, sources []*genome.Compiled) (Params, error) {
	if err := checkSources(o, sources); err != nil {
		return Params{}, err
	}
	n := len(sources[0].Frames)
	if n == 0 {
		return Params{}, fmt.Errorf("%w: %s on genome without frames", ErrNoAlterationChoice, o.Name())
	}
	return Params{Indices: []int{rng.Intn(n), rng.Intn(n)}}, nil
}

func (o SwapFrames) Apply(sources []*genome.Compiled, params Params) ([]genome.Word, error) {
	if err := checkSources(o, sources); err != nil {
		return nil, err
	}
	if err := checkParams(o, params, 2, 0); err != nil {
		return nil, err
	}
	src := sources[0]
	for _, idx := range params.Indices {
		if idx < 0 || idx >= len(src.Frames) {
			return nil, fmt.Errorf("%w: %d of %d frames", ErrFrameIndex, idx, len(src.Frames))
		}
	}
	lo, hi := src.Frames[params.Indices[0]], src.Frames[params.Indices[1]]
	if lo.Start > hi.Start {
		lo, hi = hi, lo
	}
	if lo == hi {
		return genome.Clone(src.Raw), nil
	}
	if lo.Start < 0 || lo.End > hi.Start || hi.End > len(src.Raw) {
		return nil, fmt.Errorf("%w: frames %+v and %+v overlap or exceed len %d", ErrFrameIndex, lo, hi, len(src.Raw))
	}

	raw := src.Raw
	out := make([]genome.Word, 0, len(raw))
	out = append(out, raw[:lo.Start]...)
	out = append(out, raw[hi.Start:hi.End]...)
	out = append(out, raw[lo.End:hi.Start]...)
	out = append(out, raw[lo.Start:lo.End]...)
	out = append(out, raw[hi.End:]...)
	return out, nil
}

// randomRange draws start <= end <= n.
func randomRange(rng *rand.Rand, n int) (int, int) {
	a, b := rng.Intn(n+1), rng.Intn(n+1)
	if a > b {
		a, b = b, a
	}
	return a, b
}

func checkSources(op Operator, sources []*genome.Compiled) error {
	if len(sources) < op.GenomesRequired() {
		return fmt.Errorf("%w: %s requires %d, got %d", ErrSourceCount, op.Name(), op.GenomesRequired(), len(sources))
	}
	for i := 0; i < op.GenomesRequired(); i++ {
		if sources[i] == nil {
			return fmt.Errorf("%w: %s source %d is nil", ErrSourceCount, op.Name(), i)
		}
	}
	return nil
}

func checkParams(op Operator, params Params, indices, words int) error {
	if len(params.Indices) != indices || len(params.Words) != words {
		return fmt.Errorf("%w: %s expects %d indices and %d words, got %d and %d",
			ErrParamRange, op.Name(), indices, words, len(params.Indices), len(params.Words))
	}
	return nil
}
