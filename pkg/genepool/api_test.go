package genepool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"genepool/internal/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	base := t.TempDir()
	client, err := New(Options{
		StoreKind:    "memory",
		ArtifactsDir: filepath.Join(base, "runs"),
		ExportsDir:   filepath.Join(base, "exports"),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func smallConfig() *config.ExperimentConfig {
	cfg := config.Default()
	a := config.DefaultPool("a")
	a.TargetSize = 10
	b := config.DefaultPool("b")
	b.TargetSize = 10
	b.ReceiveExternal = true
	cfg.Pools = []config.PoolConfig{a, b}
	cfg.ShuffleInterval = 2
	return cfg
}

func TestClientRunAndQueries(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	seed := int64(5)
	summary, err := client.Run(ctx, RunRequest{Config: smallConfig(), RunID: "run-a", Ticks: 3, Seed: &seed})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID != "run-a" || summary.Ticks != 3 || len(summary.Pools) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(summary.ArtifactsDir, "config.json")); err != nil {
		t.Fatalf("expected artifacts: %v", err)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-a" || !runs[0].Completed || runs[0].Seed != 5 {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	diags, err := client.Diagnostics(ctx, QueryRequest{Latest: true})
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diags) != 6 {
		t.Fatalf("expected 6 diagnostics, got %d", len(diags))
	}
	poolB := 1
	diags, err = client.Diagnostics(ctx, QueryRequest{RunID: "run-a", PoolID: &poolB, Limit: 2})
	if err != nil {
		t.Fatalf("filtered diagnostics: %v", err)
	}
	if len(diags) != 2 || diags[0].PoolID != 1 || diags[1].PoolID != 1 {
		t.Fatalf("unexpected filtered diagnostics: %+v", diags)
	}

	lineage, err := client.Lineage(ctx, QueryRequest{RunID: "run-a"})
	if err != nil {
		t.Fatalf("lineage: %v", err)
	}
	if len(lineage) == 0 {
		t.Fatal("expected lineage records")
	}

	reference, err := client.ReferenceResults(ctx, QueryRequest{RunID: "run-a"})
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	if len(reference) != 6 {
		t.Fatalf("expected 6 reference results, got %d", len(reference))
	}

	top, err := client.TopGenomes(ctx, QueryRequest{RunID: "run-a"})
	if err != nil {
		t.Fatalf("top genomes: %v", err)
	}
	if len(top) != 2 || top[0].Member.MaxFitness == nil {
		t.Fatalf("unexpected top genomes: %+v", top)
	}

	snapshot, err := client.Snapshot(ctx, "run-a", 0)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.PoolName != "a" || len(snapshot.Members) != 10 {
		t.Fatalf("unexpected snapshot: %s with %d members", snapshot.PoolName, len(snapshot.Members))
	}

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exported.Directory, "diagnostics.json")); err != nil {
		t.Fatalf("expected exported diagnostics: %v", err)
	}
}

func TestClientTopGenomesFromSnapshots(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	if _, err := client.Run(ctx, RunRequest{Config: smallConfig(), RunID: "run-b", Ticks: 2}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(client.artifactsDir, "run-b")); err != nil {
		t.Fatalf("remove artifacts: %v", err)
	}

	top, err := client.TopGenomes(ctx, QueryRequest{RunID: "run-b"})
	if err != nil {
		t.Fatalf("top genomes: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected champions from both snapshots, got %+v", top)
	}
}

func TestClientQueryValidation(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.Diagnostics(ctx, QueryRequest{Latest: true}); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}
	if _, err := client.Lineage(ctx, QueryRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected error for run id and latest together")
	}
	if _, err := client.Lineage(ctx, QueryRequest{}); err == nil {
		t.Fatal("expected error without run id")
	}
	if _, err := client.Diagnostics(ctx, QueryRequest{RunID: "missing"}); err == nil {
		t.Fatal("expected error for unknown run")
	}
	if _, err := client.Runs(ctx, RunsRequest{Limit: -1}); err == nil {
		t.Fatal("expected error for negative limit")
	}
	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected error for export without run")
	}
}

func TestClientRunRejectsInvalidConfig(t *testing.T) {
	client := newTestClient(t)
	cfg := smallConfig()
	cfg.Pools[0].Selector = "roulette"
	if _, err := client.Run(context.Background(), RunRequest{Config: cfg}); err == nil {
		t.Fatal("expected invalid selector error")
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	if _, err := New(Options{StoreKind: "postgres"}); err == nil {
		t.Fatal("expected unsupported store error")
	}
}

func TestClientListsOperatorsAndScapes(t *testing.T) {
	client := newTestClient(t)
	if len(client.Operators()) < 7 {
		t.Fatalf("expected builtin operators, got %v", client.Operators())
	}
	if len(client.Scapes()) < 2 {
		t.Fatalf("expected builtin scapes, got %v", client.Scapes())
	}
}
