package evo

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"genepool/internal/genome"
)

var (
	ErrResultCountMismatch = errors.New("trial result count mismatch")
	ErrUnknownExecution    = errors.New("trial result for unknown execution")
)

// Candidate is one group member submitted for evaluation. ExecutionID is its
// position in the group.
type Candidate struct {
	ExecutionID int
	UID         UID
	Genome      *genome.Compiled
}

type TrialResult struct {
	ExecutionID int
	Fitness     Fitness
}

// Evaluator scores a group of genomes that were run together. It must return
// exactly one result per candidate. Genomes are shared and must not be
// modified.
type Evaluator interface {
	Evaluate(ctx context.Context, group []Candidate) ([]TrialResult, error)
}

type EvaluatorFunc func(ctx context.Context, group []Candidate) ([]TrialResult, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, group []Candidate) ([]TrialResult, error) {
	return f(ctx, group)
}

// Compiler turns raw words into a framed genome.
type Compiler interface {
	Compile(raw []genome.Word) (*genome.Compiled, error)
}

func (p *GenePool) candidates(group []UID) []Candidate {
	out := make([]Candidate, len(group))
	for i, uid := range group {
		out[i] = Candidate{ExecutionID: i, UID: uid, Genome: p.entries[p.index[uid]].Genome}
	}
	return out
}

// evaluateGroups scores every group and maps results back to members. No
// pool state is modified, so an error leaves the pool untouched.
func (p *GenePool) evaluateGroups(ctx context.Context, groups [][]UID) ([][]Outcome, error) {
	batches := make([][]Candidate, len(groups))
	for i, group := range groups {
		batches[i] = p.candidates(group)
	}

	outcomes := make([][]Outcome, len(groups))
	evaluate := func(ctx context.Context, i int) error {
		results, err := p.evaluator.Evaluate(ctx, batches[i])
		if err != nil {
			return fmt.Errorf("evaluate group %d: %w", i, err)
		}
		out, err := matchResults(batches[i], p.postprocessor.Process(batches[i], results))
		if err != nil {
			return fmt.Errorf("group %d: %w", i, err)
		}
		outcomes[i] = out
		return nil
	}

	if p.settings.Workers <= 1 || len(groups) <= 1 {
		for i := range batches {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := evaluate(ctx, i); err != nil {
				return nil, err
			}
		}
		return outcomes, nil
	}

	workers := pool.New().
		WithMaxGoroutines(p.settings.Workers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for i := range batches {
		workers.Go(func(ctx context.Context) error {
			return evaluate(ctx, i)
		})
	}
	if err := workers.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func matchResults(group []Candidate, results []TrialResult) ([]Outcome, error) {
	if len(results) != len(group) {
		return nil, fmt.Errorf("%w: submitted %d, got %d", ErrResultCountMismatch, len(group), len(results))
	}
	seen := make([]bool, len(group))
	out := make([]Outcome, 0, len(results))
	for _, r := range results {
		if r.ExecutionID < 0 || r.ExecutionID >= len(group) || seen[r.ExecutionID] {
			return nil, fmt.Errorf("%w: execution id %d", ErrUnknownExecution, r.ExecutionID)
		}
		seen[r.ExecutionID] = true
		out = append(out, Outcome{UID: group[r.ExecutionID].UID, Fitness: r.Fitness})
	}
	return out, nil
}
