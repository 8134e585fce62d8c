package evo

import (
	"reflect"
	"testing"
)

func TestAdjustWinnersRank(t *testing.T) {
	tests := []struct {
		name          string
		method        RankAdjustment
		winner, loser int
		want          int
	}{
		{"absolute upset", AbsoluteRanking{}, 2, 5, 6},
		{"absolute tie", AbsoluteRanking{}, 5, 5, 6},
		{"absolute no upset", AbsoluteRanking{}, 6, 2, 6},
		{"incremental pct dominates", IncrementalRanking{PctJump: 0.5, MinJump: 1}, 2, 5, 4},
		{"incremental tie", IncrementalRanking{PctJump: 0.5, MinJump: 1}, 3, 3, 4},
		{"incremental min dominates", IncrementalRanking{PctJump: 0.1, MinJump: 3}, 0, 10, 3},
		{"incremental no upset", IncrementalRanking{PctJump: 0.5, MinJump: 1}, 9, 4, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.method.AdjustWinnersRank(tt.winner, tt.loser); got != tt.want {
				t.Fatalf("AdjustWinnersRank(%d, %d) = %d, want %d", tt.winner, tt.loser, got, tt.want)
			}
		})
	}
}

func TestAdjustWinnersRankNeverDowngrades(t *testing.T) {
	methods := []RankAdjustment{AbsoluteRanking{}, IncrementalRanking{PctJump: 0.25, MinJump: 2}}
	for _, method := range methods {
		for winner := 0; winner < 30; winner++ {
			for loser := 0; loser < 30; loser++ {
				got := method.AdjustWinnersRank(winner, loser)
				if got < winner {
					t.Fatalf("%s lowered rank %d to %d (loser %d)", method.Name(), winner, got, loser)
				}
				if winner > loser && got != winner {
					t.Fatalf("%s changed rank %d without upset (loser %d)", method.Name(), winner, loser)
				}
			}
		}
	}
}

func TestAdjustRanksAppliesUpsetsInFitnessOrder(t *testing.T) {
	batch := []Outcome{
		{UID: 1, Fitness: 10, Rank: 0},
		{UID: 2, Fitness: 5, Rank: 3},
		{UID: 3, Fitness: 7, Rank: 1},
	}
	got := AdjustRanks(batch, AbsoluteRanking{})
	want := []Outcome{
		{UID: 2, Fitness: 5, Rank: 3},
		{UID: 3, Fitness: 7, Rank: 4},
		{UID: 1, Fitness: 10, Rank: 5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AdjustRanks = %+v, want %+v", got, want)
	}
	if batch[0].Rank != 0 {
		t.Fatal("AdjustRanks modified its input")
	}
}

func TestAdjustRanksIgnoresEqualFitness(t *testing.T) {
	batch := []Outcome{
		{UID: 1, Fitness: 5, Rank: 0},
		{UID: 2, Fitness: 5, Rank: 3},
	}
	got := AdjustRanks(batch, AbsoluteRanking{})
	if !reflect.DeepEqual(got, batch) {
		t.Fatalf("equal fitness changed ranks: %+v", got)
	}
}

func TestAdjustRanksKeepsExpectedOrder(t *testing.T) {
	batch := []Outcome{
		{UID: 1, Fitness: 1, Rank: 0},
		{UID: 2, Fitness: 2, Rank: 1},
		{UID: 3, Fitness: 3, Rank: 2},
	}
	got := AdjustRanks(batch, IncrementalRanking{PctJump: 0.5, MinJump: 1})
	if !reflect.DeepEqual(got, batch) {
		t.Fatalf("already ordered ranks changed: %+v", got)
	}
}

func TestNormalizeRanks(t *testing.T) {
	got := NormalizeRanks([]int{5, 2, 2, 9, 0})
	if want := []int{2, 1, 1, 3, 0}; !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeRanks = %v, want %v", got, want)
	}
	if again := NormalizeRanks(got); !reflect.DeepEqual(again, got) {
		t.Fatalf("NormalizeRanks not idempotent: %v -> %v", got, again)
	}
	if got := NormalizeRanks(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
