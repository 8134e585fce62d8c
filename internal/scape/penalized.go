package scape

import (
	"context"

	"genepool/internal/evo"
)

// Penalized applies a fitness postprocessor to every result of the wrapped
// scape. Pools apply their postprocessor themselves; this is for trials run
// outside a pool, such as the cross-pool reference trial.
type Penalized struct {
	Scape
	Postprocessor evo.FitnessPostprocessor
}

func WithPostprocessor(s Scape, pp evo.FitnessPostprocessor) Scape {
	if pp == nil {
		return s
	}
	return Penalized{Scape: s, Postprocessor: pp}
}

func (p Penalized) Evaluate(ctx context.Context, group []evo.Candidate) ([]evo.TrialResult, error) {
	results, err := p.Scape.Evaluate(ctx, group)
	if err != nil {
		return nil, err
	}
	return p.Postprocessor.Process(group, results), nil
}
