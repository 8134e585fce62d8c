package scape

import (
	"context"

	"genepool/internal/evo"
	"genepool/internal/genome"
)

const (
	DefaultPatternChannel   = 1
	DefaultPatternPositions = 256
)

// Pattern scores each genome by how many payload words carry the target
// nibble sequence in one channel. Payload words are the frame words after
// the frame header, read in frame order. Only the first MaxPositions payload
// words count.
type Pattern struct {
	Target       []genome.Value
	Channel      int
	MaxPositions int
}

func NewPattern() Pattern {
	return Pattern{
		Target:       []genome.Value{1, 3, 3, 7, 0, 15, 10, 5},
		Channel:      DefaultPatternChannel,
		MaxPositions: DefaultPatternPositions,
	}
}

func (Pattern) Name() string {
	return "pattern"
}

func (Pattern) Mode() Mode {
	return ModeIndependent
}

func (p Pattern) Evaluate(ctx context.Context, group []evo.Candidate) ([]evo.TrialResult, error) {
	results := make([]evo.TrialResult, 0, len(group))
	for _, c := range group {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, evo.TrialResult{ExecutionID: c.ExecutionID, Fitness: p.Score(c.Genome)})
	}
	return results, nil
}

// Score counts matching payload positions of one genome.
func (p Pattern) Score(g *genome.Compiled) evo.Fitness {
	if g == nil || len(p.Target) == 0 {
		return 0
	}
	var score evo.Fitness
	pos := 0
	for _, frame := range g.Frames {
		for i := frame.Start + genome.FrameHeaderSize; i < frame.End; i++ {
			if p.MaxPositions > 0 && pos >= p.MaxPositions {
				return score
			}
			if genome.ReadChannel(g.Raw[i], p.Channel)&0xF == p.Target[pos%len(p.Target)] {
				score++
			}
			pos++
		}
	}
	return score
}
