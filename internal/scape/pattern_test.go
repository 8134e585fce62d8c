package scape

import (
	"context"
	"testing"

	"genepool/internal/evo"
	"genepool/internal/genome"
)

func wordWithChannel(c int, v genome.Value) genome.Word {
	return genome.WriteChannel(0, c, v)
}

func TestPatternScoresMatchingPayload(t *testing.T) {
	p := Pattern{Target: []genome.Value{1, 2}, Channel: 1}
	g := &genome.Compiled{
		Raw: []genome.Word{
			0, 0, // header
			wordWithChannel(1, 1),
			wordWithChannel(1, 0x12), // low nibble 2
			wordWithChannel(1, 3),
			0, 0, // header of the second frame
			wordWithChannel(1, 2),
		},
		Frames: []genome.Frame{{Start: 0, End: 5}, {Start: 5, End: 8}},
	}
	// Positions continue across frames: targets 1, 2, 1, 2.
	if got := p.Score(g); got != 3 {
		t.Fatalf("Score = %d, want 3", got)
	}

	p.MaxPositions = 2
	if got := p.Score(g); got != 2 {
		t.Fatalf("Score with MaxPositions=2 = %d, want 2", got)
	}
}

func TestPatternIsIndependentOfGroup(t *testing.T) {
	p := NewPattern()
	compiler := genome.NewFrameCompiler()
	var group []evo.Candidate
	for i := 0; i < 4; i++ {
		raw := make([]genome.Word, 20+i*7)
		for j := range raw {
			raw[j] = genome.Word(j*2654435761 + i)
		}
		compiled, err := compiler.Compile(raw)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		group = append(group, evo.Candidate{ExecutionID: i, Genome: compiled})
	}

	all, err := p.Evaluate(context.Background(), group)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	for i, c := range group {
		alone, err := p.Evaluate(context.Background(), []evo.Candidate{c})
		if err != nil {
			t.Fatalf("evaluate alone: %v", err)
		}
		if alone[0].Fitness != all[i].Fitness || all[i].ExecutionID != i {
			t.Fatalf("candidate %d: group score %d, alone %d", i, all[i].Fitness, alone[0].Fitness)
		}
	}
}

func TestPatternHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPattern().Evaluate(ctx, []evo.Candidate{{ExecutionID: 0}})
	if err == nil {
		t.Fatal("expected context error")
	}
}
