package storage

import (
	"context"
	"testing"

	"genepool/internal/model"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	exerciseStore(t, store)
}

func TestMemoryStoreSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	snapshot := model.PoolSnapshot{
		VersionedRecord: CurrentVersion(),
		RunID:           "run-1",
		Members:         []model.MemberRecord{{UID: 1, Raw: []uint64{5, 6}}},
	}
	if err := store.SavePoolSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("save: %v", err)
	}
	snapshot.Members[0].Raw[0] = 99

	loaded, _, err := store.GetPoolSnapshot(ctx, "run-1", 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Members[0].Raw[0] != 5 {
		t.Fatal("store shares member storage with caller")
	}
}
