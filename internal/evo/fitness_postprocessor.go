package evo

import (
	"fmt"
	"math"
)

const (
	sizeProportionalEfficiency = 0.05

	DefaultSizePenaltyThreshold = 5000
	DefaultSizePenaltyPct       = 0.10
)

// FitnessPostprocessor adjusts trial scores after evaluation and before
// ranking. results[i] belongs to the candidate with results[i].ExecutionID.
type FitnessPostprocessor interface {
	Name() string
	Process(group []Candidate, results []TrialResult) []TrialResult
}

type NoopFitnessPostprocessor struct{}

func (NoopFitnessPostprocessor) Name() string {
	return "none"
}

func (NoopFitnessPostprocessor) Process(_ []Candidate, results []TrialResult) []TrialResult {
	return cloneResults(results)
}

// SizePenaltyPostprocessor cuts the score of genomes longer than Threshold
// words by Penalty.
type SizePenaltyPostprocessor struct {
	Threshold int
	Penalty   float64
}

func (SizePenaltyPostprocessor) Name() string {
	return "size_penalty"
}

func (p SizePenaltyPostprocessor) Process(group []Candidate, results []TrialResult) []TrialResult {
	out := cloneResults(results)
	lengths := candidateLengths(group)
	for i := range out {
		if lengths[out[i].ExecutionID] > p.Threshold {
			out[i].Fitness = Fitness(float64(out[i].Fitness) * (1 - p.Penalty))
		}
	}
	return out
}

// SizeProportionalPostprocessor divides every score by len^0.05.
type SizeProportionalPostprocessor struct{}

func (SizeProportionalPostprocessor) Name() string {
	return "size_proportional"
}

func (SizeProportionalPostprocessor) Process(group []Candidate, results []TrialResult) []TrialResult {
	out := cloneResults(results)
	lengths := candidateLengths(group)
	for i := range out {
		size := float64(lengths[out[i].ExecutionID])
		if size < 1 {
			size = 1
		}
		out[i].Fitness = Fitness(float64(out[i].Fitness) / math.Pow(size, sizeProportionalEfficiency))
	}
	return out
}

// PostprocessorByName resolves the postprocessor names accepted in
// configuration.
func PostprocessorByName(name string) (FitnessPostprocessor, error) {
	switch name {
	case "", "none":
		return NoopFitnessPostprocessor{}, nil
	case "size_penalty":
		return SizePenaltyPostprocessor{Threshold: DefaultSizePenaltyThreshold, Penalty: DefaultSizePenaltyPct}, nil
	case "size_proportional":
		return SizeProportionalPostprocessor{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown fitness postprocessor %q", ErrInvalidSettings, name)
	}
}

func candidateLengths(group []Candidate) map[int]int {
	lengths := make(map[int]int, len(group))
	for _, c := range group {
		if c.Genome != nil {
			lengths[c.ExecutionID] = c.Genome.Len()
		}
	}
	return lengths
}

func cloneResults(results []TrialResult) []TrialResult {
	out := make([]TrialResult, len(results))
	copy(out, results)
	return out
}
