package evo

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"genepool/internal/genome"
)

// flakyOperator copies its source. Every third proposal has no choice and
// every other apply produces nothing.
type flakyOperator struct {
	proposals int
	applies   int
}

func (*flakyOperator) Name() string         { return "flaky_copy" }
func (*flakyOperator) GenomesRequired() int { return 1 }

func (o *flakyOperator) Propose(_ *rand.Rand, _ []*genome.Compiled) (Params, error) {
	o.proposals++
	if o.proposals%3 == 0 {
		return Params{}, ErrNoAlterationChoice
	}
	return Params{}, nil
}

func (o *flakyOperator) Apply(sources []*genome.Compiled, _ Params) ([]genome.Word, error) {
	o.applies++
	if o.applies%2 == 0 {
		return nil, nil
	}
	return genome.Clone(sources[0].Raw), nil
}

type barrenOperator struct{}

func (barrenOperator) Name() string         { return "barren" }
func (barrenOperator) GenomesRequired() int { return 1 }

func (barrenOperator) Propose(_ *rand.Rand, _ []*genome.Compiled) (Params, error) {
	return Params{}, nil
}

func (barrenOperator) Apply(_ []*genome.Compiled, _ Params) ([]genome.Word, error) {
	return []genome.Word{}, nil
}

func TestRefillParentsIncludeEarlierOffspring(t *testing.T) {
	settings := testSettings()
	settings.Cull = WorstFirst(0.1)
	settings.Alterations = []string{OpInsertion}
	p := newTestPool(t, settings, nil)

	report, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(report.Culled) != 9 || len(report.Offspring) != 9 {
		t.Fatalf("culled %d, offspring %d; want 9 and 9", len(report.Culled), len(report.Offspring))
	}

	born := make(map[UID]bool, len(report.Offspring))
	fromOffspring := 0
	for _, rec := range report.Offspring {
		for _, parent := range rec.Parents {
			if born[parent] {
				fromOffspring++
			}
		}
		born[rec.UID] = true
	}
	if fromOffspring == 0 {
		t.Fatal("no offspring was drawn as a parent within the same refill")
	}
}

func TestRefillRedrawsWhenNoViableOffspring(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	op := &flakyOperator{}
	if err := RegisterOperator(op); err != nil {
		t.Fatalf("register: %v", err)
	}
	settings := testSettings()
	settings.Cull = WorstFirst(0.1)
	settings.Alterations = []string{op.Name()}
	p := newTestPool(t, settings, nil)

	report, err := p.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if p.Len() != settings.TargetSize {
		t.Fatalf("population %d, want %d", p.Len(), settings.TargetSize)
	}
	if len(report.Offspring) != 9 {
		t.Fatalf("offspring %d, want 9", len(report.Offspring))
	}
	if op.proposals <= len(report.Offspring) || op.applies <= len(report.Offspring) {
		t.Fatalf("expected discarded draws, got %d proposals and %d applies", op.proposals, op.applies)
	}
	for _, entry := range p.Entries() {
		if entry.Genome.Len() == 0 {
			t.Fatalf("entry %d has an empty genome", entry.UID)
		}
	}
}

func TestRefillExhaustsAttempts(t *testing.T) {
	resetOperatorRegistryForTests()
	t.Cleanup(resetOperatorRegistryForTests)

	if err := RegisterOperator(barrenOperator{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	settings := testSettings()
	settings.Cull = WorstFirst(0.1)
	settings.Alterations = []string{"barren"}
	settings.MaxRefillAttempts = 5
	p := newTestPool(t, settings, nil)

	report, err := p.Tick(context.Background())
	if !errors.Is(err, ErrRefillExhausted) {
		t.Fatalf("expected ErrRefillExhausted, got %v", err)
	}
	if len(report.Offspring) != 0 {
		t.Fatalf("registered %d offspring", len(report.Offspring))
	}
	if p.Len() != 1 {
		t.Fatalf("population %d, want only the survivor", p.Len())
	}
	for _, entry := range p.Entries() {
		if entry.Operation == "barren" {
			t.Fatalf("partial entry %d registered", entry.UID)
		}
	}
}
