package stats

import (
	"math"
	"testing"

	"genepool/internal/model"
)

func fitness(v uint64) *uint64 {
	return &v
}

func TestSummarize(t *testing.T) {
	members := []model.MemberRecord{
		{UID: 1, Rank: 0, MaxFitness: fitness(2), Raw: []uint64{1, 2}, Fingerprint: "a"},
		{UID: 2, Rank: 2, MaxFitness: fitness(4), Raw: []uint64{1, 2, 3, 4}, Fingerprint: "b"},
		{UID: 3, Rank: 1, MaxFitness: fitness(6), Raw: []uint64{1, 2, 3}, Fingerprint: "b"},
		{UID: 4, Rank: 0, Raw: []uint64{9, 9, 9}, Fingerprint: "c"},
	}
	diag := Summarize(7, 1, "pool-1", members)

	if diag.Tick != 7 || diag.PoolID != 1 || diag.PoolName != "pool-1" {
		t.Fatalf("unexpected identity: %+v", diag)
	}
	if diag.Population != 4 || diag.Evaluated != 3 {
		t.Fatalf("population=%d evaluated=%d", diag.Population, diag.Evaluated)
	}
	if diag.BestFitness != 6 || diag.MaxRank != 2 || diag.FingerprintDiversity != 3 {
		t.Fatalf("unexpected summary: %+v", diag)
	}
	if math.Abs(diag.MeanFitness-4) > 1e-9 || math.Abs(diag.StdDevFitness-2) > 1e-9 {
		t.Fatalf("mean=%f stddev=%f, want 4 and 2", diag.MeanFitness, diag.StdDevFitness)
	}
	if diag.P0 != 2 || diag.P25 != 2 || diag.P75 != 4 || diag.P100 != 6 {
		t.Fatalf("unexpected percentiles: %+v", diag)
	}
	if math.Abs(diag.MeanGenomeLength-3) > 1e-9 {
		t.Fatalf("mean genome length = %f", diag.MeanGenomeLength)
	}
}

func TestSummarizeWithoutEvaluations(t *testing.T) {
	diag := Summarize(0, 0, "pool-0", []model.MemberRecord{{UID: 1, Fingerprint: "x"}})
	if diag.Evaluated != 0 || diag.BestFitness != 0 || diag.MeanFitness != 0 || diag.StdDevFitness != 0 {
		t.Fatalf("unexpected summary: %+v", diag)
	}
}

func TestSummarizeSingleEvaluation(t *testing.T) {
	diag := Summarize(0, 0, "pool-0", []model.MemberRecord{{UID: 1, MaxFitness: fitness(5)}})
	if diag.MeanFitness != 5 || diag.StdDevFitness != 0 {
		t.Fatalf("unexpected summary: %+v", diag)
	}
}
