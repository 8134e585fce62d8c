package storage

import (
	"context"

	"genepool/internal/model"
)

// Store persists experiment runs and their per-pool artifacts. Save calls
// replace earlier values stored under the same key.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, runID string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveTickDiagnostics(ctx context.Context, runID string, diagnostics []model.TickDiagnostics) error
	GetTickDiagnostics(ctx context.Context, runID string) ([]model.TickDiagnostics, bool, error)
	SavePoolSnapshot(ctx context.Context, snapshot model.PoolSnapshot) error
	GetPoolSnapshot(ctx context.Context, runID string, poolID int) (model.PoolSnapshot, bool, error)
	SaveLineage(ctx context.Context, runID string, lineage []model.LineageRecord) error
	GetLineage(ctx context.Context, runID string) ([]model.LineageRecord, bool, error)
	SaveReferenceResults(ctx context.Context, runID string, results []model.ReferenceResult) error
	GetReferenceResults(ctx context.Context, runID string) ([]model.ReferenceResult, bool, error)
}
