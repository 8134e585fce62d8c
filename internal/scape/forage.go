package scape

import (
	"context"
	"math/bits"
	"sort"

	"genepool/internal/evo"
	"genepool/internal/genome"
)

const (
	DefaultForageUnits         = 100
	DefaultForageUnitsPerFrame = 4
)

// Forage is a competitive scape. A group shares a fixed pool of resource
// units; members claim them in order of strength, the total set bit count of
// channel 2 over their frame headers. Each member wants UnitsPerFrame units
// per frame and scores the units it obtained.
type Forage struct {
	Units         int
	UnitsPerFrame int
}

func NewForage() Forage {
	return Forage{Units: DefaultForageUnits, UnitsPerFrame: DefaultForageUnitsPerFrame}
}

func (Forage) Name() string {
	return "forage"
}

func (Forage) Mode() Mode {
	return ModeCompetitive
}

type forager struct {
	executionID int
	strength    int
	demand      int
}

func (f Forage) Evaluate(ctx context.Context, group []evo.Candidate) ([]evo.TrialResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	foragers := make([]forager, 0, len(group))
	for _, c := range group {
		foragers = append(foragers, forager{
			executionID: c.ExecutionID,
			strength:    Strength(c.Genome),
			demand:      frameCount(c.Genome) * f.UnitsPerFrame,
		})
	}
	sort.SliceStable(foragers, func(i, j int) bool {
		return foragers[i].strength > foragers[j].strength
	})

	remaining := f.Units
	claimed := make(map[int]int, len(foragers))
	for _, fr := range foragers {
		take := min(fr.demand, remaining)
		claimed[fr.executionID] = take
		remaining -= take
	}

	results := make([]evo.TrialResult, 0, len(group))
	for _, c := range group {
		results = append(results, evo.TrialResult{ExecutionID: c.ExecutionID, Fitness: evo.Fitness(claimed[c.ExecutionID])})
	}
	return results, nil
}

// Strength is the set bit count of channel 2 over all frame header words.
func Strength(g *genome.Compiled) int {
	if g == nil {
		return 0
	}
	total := 0
	for _, frame := range g.Frames {
		total += bits.OnesCount16(uint16(genome.ReadChannel(g.Raw[frame.Start], 2)))
	}
	return total
}

func frameCount(g *genome.Compiled) int {
	if g == nil {
		return 0
	}
	return len(g.Frames)
}
