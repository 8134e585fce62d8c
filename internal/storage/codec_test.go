package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func TestDecodeRunFixture(t *testing.T) {
	run, err := DecodeRun(readFixture(t, "run_record_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if run.RunID != "run-fixture-1" || run.Scape != "pattern" || len(run.Pools) != 2 {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestDecodePoolSnapshotFixture(t *testing.T) {
	snapshot, err := DecodePoolSnapshot(readFixture(t, "pool_snapshot_v1.json"))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if snapshot.PoolName != "pool-0" || len(snapshot.Members) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if snapshot.Members[0].MaxFitness == nil || *snapshot.Members[0].MaxFitness != 17 {
		t.Fatalf("unexpected evaluated member: %+v", snapshot.Members[0])
	}
	if snapshot.Members[1].MaxFitness != nil {
		t.Fatalf("unexpected unevaluated member: %+v", snapshot.Members[1])
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	data := []byte(`{"schema_version":2,"codec_version":1,"run_id":"future"}`)
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
	lineage := []byte(`[{"schema_version":1,"codec_version":1,"uid":1},{"uid":2}]`)
	if _, err := DecodeLineage(lineage); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch for lineage, got %v", err)
	}
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	if _, err := DecodePoolSnapshot([]byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := DecodeTickDiagnostics([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}
