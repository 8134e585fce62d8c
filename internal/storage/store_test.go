package storage

import (
	"context"
	"testing"
	"time"

	"genepool/internal/model"
)

// exerciseStore runs the same round trips against any backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := model.RunRecord{VersionedRecord: CurrentVersion(), RunID: "run-a", CreatedAt: base, Scape: "pattern", Pools: []string{"pool-0"}}
	newer := model.RunRecord{VersionedRecord: CurrentVersion(), RunID: "run-b", CreatedAt: base.Add(time.Minute), Scape: "forage", Ticks: 12, BestFitness: 40}
	for _, run := range []model.RunRecord{older, newer} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.RunID, err)
		}
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-b" || runs[1].RunID != "run-a" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
	got, ok, err := store.GetRun(ctx, "run-b")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%t err=%v", ok, err)
	}
	if got.Ticks != 12 || got.BestFitness != 40 || !got.CreatedAt.Equal(newer.CreatedAt) {
		t.Fatalf("unexpected run: %+v", got)
	}
	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%t err=%v", ok, err)
	}

	diagnostics := []model.TickDiagnostics{
		{Tick: 0, PoolName: "pool-0", BestFitness: 3, P25: 1.5},
		{Tick: 1, PoolName: "pool-0", BestFitness: 5, P25: 2},
	}
	if err := store.SaveTickDiagnostics(ctx, "run-a", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	loadedDiagnostics, ok, err := store.GetTickDiagnostics(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get diagnostics: ok=%t err=%v", ok, err)
	}
	if len(loadedDiagnostics) != 2 || loadedDiagnostics[1].BestFitness != 5 || loadedDiagnostics[0].P25 != 1.5 {
		t.Fatalf("unexpected diagnostics: %+v", loadedDiagnostics)
	}

	fitness := uint64(9)
	snapshot := model.PoolSnapshot{
		VersionedRecord: CurrentVersion(),
		RunID:           "run-a",
		PoolID:          1,
		PoolName:        "pool-1",
		Tick:            4,
		Members: []model.MemberRecord{
			{UID: 3, Rank: 2, NumEvaluations: 4, MaxFitness: &fitness, Raw: []uint64{1, 2, 3}},
			{UID: 8, Raw: []uint64{4}},
		},
	}
	if err := store.SavePoolSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	snapshot.Tick = 5
	if err := store.SavePoolSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("overwrite snapshot: %v", err)
	}
	loadedSnapshot, ok, err := store.GetPoolSnapshot(ctx, "run-a", 1)
	if err != nil || !ok {
		t.Fatalf("get snapshot: ok=%t err=%v", ok, err)
	}
	if loadedSnapshot.Tick != 5 || len(loadedSnapshot.Members) != 2 {
		t.Fatalf("unexpected snapshot: %+v", loadedSnapshot)
	}
	if m := loadedSnapshot.Members[0]; m.MaxFitness == nil || *m.MaxFitness != 9 || len(m.Raw) != 3 {
		t.Fatalf("unexpected member: %+v", m)
	}
	if loadedSnapshot.Members[1].MaxFitness != nil {
		t.Fatal("unevaluated member gained a fitness")
	}
	if _, ok, _ := store.GetPoolSnapshot(ctx, "run-a", 2); ok {
		t.Fatal("expected no snapshot for pool 2")
	}

	lineage := []model.LineageRecord{{
		VersionedRecord: CurrentVersion(),
		UID:             11,
		Parents:         []uint64{3, 8},
		Operation:       "crossover",
		Tick:            4,
	}}
	if err := store.SaveLineage(ctx, "run-a", lineage); err != nil {
		t.Fatalf("save lineage: %v", err)
	}
	loadedLineage, ok, err := store.GetLineage(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get lineage: ok=%t err=%v", ok, err)
	}
	if len(loadedLineage) != 1 || loadedLineage[0].Operation != "crossover" || len(loadedLineage[0].Parents) != 2 {
		t.Fatalf("unexpected lineage: %+v", loadedLineage)
	}

	reference := []model.ReferenceResult{{Tick: 20, PoolID: 0, UID: 7, Fitness: 12}}
	if err := store.SaveReferenceResults(ctx, "run-a", reference); err != nil {
		t.Fatalf("save reference: %v", err)
	}
	loadedReference, ok, err := store.GetReferenceResults(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get reference: ok=%t err=%v", ok, err)
	}
	if len(loadedReference) != 1 || loadedReference[0].Fitness != 12 {
		t.Fatalf("unexpected reference results: %+v", loadedReference)
	}
}
