package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("genepoolctl %s: %v", strings.Join(args, " "), err)
	}
	return out.String()
}

func TestRunAndInspectWithSQLite(t *testing.T) {
	dir := t.TempDir()
	common := []string{
		"--store", "sqlite",
		"--db-path", filepath.Join(dir, "genepool.db"),
		"--artifacts-dir", filepath.Join(dir, "runs"),
	}
	withCommon := func(args ...string) []string {
		return append(args, common...)
	}

	out := execute(t, withCommon("run",
		"--run-id", "cli-run",
		"--ticks", "3",
		"--pools", "2",
		"--target-size", "10",
		"--seed", "3",
		"--shuffle-interval", "2",
		"--log-dir", filepath.Join(dir, "logs"),
	)...)
	if !strings.Contains(out, "run_id=cli-run") || !strings.Contains(out, "pool=pool-1") {
		t.Fatalf("unexpected run output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs", "gene_pools", "gene_pool_0", "fitness.csv")); err != nil {
		t.Fatalf("expected fitness log: %v", err)
	}

	out = execute(t, withCommon("runs")...)
	if !strings.Contains(out, "run_id=cli-run") || !strings.Contains(out, "completed=true") {
		t.Fatalf("unexpected runs output:\n%s", out)
	}

	out = execute(t, withCommon("diagnostics", "--latest", "--pool", "1", "--limit", "0")...)
	if got := strings.Count(out, "pool=pool-1"); got != 3 {
		t.Fatalf("expected 3 diagnostics rows for pool-1, got %d:\n%s", got, out)
	}

	out = execute(t, withCommon("lineage", "--run-id", "cli-run", "--json")...)
	var lineage []map[string]any
	if err := json.Unmarshal([]byte(out), &lineage); err != nil {
		t.Fatalf("decode lineage json: %v\n%s", err, out)
	}
	if len(lineage) == 0 {
		t.Fatal("expected lineage rows")
	}

	out = execute(t, withCommon("top", "--run-id", "cli-run")...)
	if strings.Count(out, "pool=") != 2 {
		t.Fatalf("expected two champions:\n%s", out)
	}

	out = execute(t, withCommon("reference", "--run-id", "cli-run", "--limit", "0")...)
	if strings.Count(out, "tick=") != 6 {
		t.Fatalf("expected 6 reference rows:\n%s", out)
	}

	exportDir := filepath.Join(dir, "exports")
	out = execute(t, withCommon("export", "--latest", "--out", exportDir)...)
	if !strings.Contains(out, "exported run_id=cli-run") {
		t.Fatalf("unexpected export output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(exportDir, "cli-run", "top_genomes.json")); err != nil {
		t.Fatalf("expected exported top genomes: %v", err)
	}
}

func TestRunFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.toml")
	content := `
run_id = "from-file"
seed = 4
ticks = 2

[[pools]]
name = "solo"
target_size = 8
group_size = 4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out := execute(t, "run", "--config", path, "--ticks", "1", "--store", "memory", "--artifacts-dir", filepath.Join(dir, "runs"), "--json")
	var summary struct {
		RunID string
		Ticks uint64
		Pools []struct{ Name string }
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.RunID != "from-file" || summary.Ticks != 1 || len(summary.Pools) != 1 || summary.Pools[0].Name != "solo" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunRejectsInvalidFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--store", "memory", "--group-size", "0", "--artifacts-dir", t.TempDir()})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected invalid group size error")
	}
}

func TestOperatorsAndScapes(t *testing.T) {
	out := execute(t, "operators")
	for _, name := range []string{"insertion", "crossover", "swap_frames"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected operator %s in:\n%s", name, out)
		}
	}
	if !strings.Contains(out, "crossover genomes_required=2") {
		t.Fatalf("expected crossover to need two genomes:\n%s", out)
	}

	out = execute(t, "scapes")
	if !strings.Contains(out, "forage mode=competitive") || !strings.Contains(out, "pattern mode=independent") {
		t.Fatalf("unexpected scapes output:\n%s", out)
	}
}
