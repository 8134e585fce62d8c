package evo

import (
	"context"
	"sync/atomic"
	"testing"

	"genepool/internal/genome"
)

func compiledOf(words ...genome.Word) *genome.Compiled {
	return &genome.Compiled{Raw: words}
}

func mustCompile(t *testing.T, raw []genome.Word) *genome.Compiled {
	t.Helper()
	c, err := genome.NewFrameCompiler().Compile(raw)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return c
}

// lengthEvaluator scores every genome by its word count and returns results
// in reverse submission order.
type lengthEvaluator struct {
	calls atomic.Int64
}

func (e *lengthEvaluator) Evaluate(_ context.Context, group []Candidate) ([]TrialResult, error) {
	e.calls.Add(1)
	out := make([]TrialResult, 0, len(group))
	for i := len(group) - 1; i >= 0; i-- {
		out = append(out, TrialResult{ExecutionID: group[i].ExecutionID, Fitness: Fitness(group[i].Genome.Len())})
	}
	return out, nil
}

func testSettings() Settings {
	s := DefaultSettings()
	s.TargetSize = 10
	s.GroupSize = 5
	s.Cycle = Exhaustive(0)
	s.Cull = WorstFirst(0.8)
	return s
}

func newTestPool(t *testing.T, settings Settings, eval Evaluator) *GenePool {
	t.Helper()
	if eval == nil {
		eval = &lengthEvaluator{}
	}
	p, err := NewGenePool(Config{
		Settings:  settings,
		Compiler:  genome.NewFrameCompiler(),
		Evaluator: eval,
		Seed:      7,
	})
	if err != nil {
		t.Fatalf("new gene pool: %v", err)
	}
	return p
}

func sameWords(a, b []genome.Word) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
