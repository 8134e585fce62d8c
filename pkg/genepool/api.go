// Package genepool is the embeddable API for running gene pool experiments
// and reading back their results.
package genepool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"genepool/internal/config"
	"genepool/internal/evo"
	"genepool/internal/experiment"
	"genepool/internal/logging"
	"genepool/internal/metrics"
	"genepool/internal/model"
	"genepool/internal/scape"
	"genepool/internal/stats"
	"genepool/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "genepool.db"
)

var ErrNoRuns = errors.New("no runs available")

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
	Metrics      *metrics.Recorder
}

type Client struct {
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Recorder

	artifactsDir string
	exportsDir   string

	initOnce sync.Once
	initErr  error
}

// RunRequest starts an experiment. A nil Config runs the defaults; RunID,
// Ticks and Seed override the config when set.
type RunRequest struct {
	Config *config.ExperimentConfig
	RunID  string
	Ticks  uint64
	Seed   *int64
}

type PoolSummary struct {
	PoolID      int
	Name        string
	BestFitness uint64
	GenomeLen   int
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Ticks        uint64
	BestFitness  uint64
	Pools        []PoolSummary
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Scape        string
	Seed         int64
	Ticks        uint64
	Pools        []string
	BestFitness  uint64
	Completed    bool
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

// QueryRequest selects a run and optionally one pool of it. A nil PoolID
// keeps every pool; Limit 0 keeps every record.
type QueryRequest struct {
	RunID  string
	Latest bool
	PoolID *int
	Limit  int
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:        store,
		logger:       logger,
		metrics:      opts.Metrics,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the store. Every other call initializes lazily.
func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	cfg := config.Default()
	if req.Config != nil {
		copied := *req.Config
		copied.Pools = append([]config.PoolConfig(nil), req.Config.Pools...)
		cfg = &copied
	}
	if req.RunID != "" {
		cfg.RunID = req.RunID
	}
	if req.Ticks > 0 {
		cfg.Ticks = req.Ticks
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = c.artifactsDir
	}

	exp, err := experiment.New(experiment.Options{
		Config:  cfg,
		Store:   c.store,
		Metrics: c.metrics,
		Logger:  c.logger,
	})
	if err != nil {
		return RunSummary{}, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		RunID:        result.RunID,
		ArtifactsDir: result.ArtifactsDir,
		Ticks:        result.Ticks,
		BestFitness:  result.BestFitness,
	}
	for _, top := range result.TopGenomes {
		pool := PoolSummary{PoolID: top.PoolID, Name: top.PoolName, GenomeLen: len(top.Member.Raw)}
		if top.Member.MaxFitness != nil {
			pool.BestFitness = *top.Member.MaxFitness
		}
		summary.Pools = append(summary.Pools, pool)
	}
	return summary, nil
}

// Runs lists stored runs newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	out := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunItem{
			RunID:        run.RunID,
			CreatedAtUTC: run.CreatedAt.UTC().Format(time.RFC3339),
			Scape:        run.Scape,
			Seed:         run.Seed,
			Ticks:        run.Ticks,
			Pools:        append([]string(nil), run.Pools...),
			BestFitness:  run.BestFitness,
			Completed:    run.Completed,
		})
	}
	return out, nil
}

// Export copies the artifact files of a run out of the artifacts directory.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.artifactsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, ErrNoRuns
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) Diagnostics(ctx context.Context, req QueryRequest) ([]model.TickDiagnostics, error) {
	runID, err := c.resolveRunID(ctx, req, "diagnostics")
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetTickDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	out := make([]model.TickDiagnostics, 0, len(diagnostics))
	for _, d := range diagnostics {
		if req.PoolID == nil || d.PoolID == *req.PoolID {
			out = append(out, d)
		}
	}
	return limit(out, req.Limit), nil
}

func (c *Client) Lineage(ctx context.Context, req QueryRequest) ([]model.LineageRecord, error) {
	runID, err := c.resolveRunID(ctx, req, "lineage")
	if err != nil {
		return nil, err
	}
	lineage, ok, err := c.store.GetLineage(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("lineage not found for run id: %s", runID)
	}
	out := make([]model.LineageRecord, 0, len(lineage))
	for _, rec := range lineage {
		if req.PoolID == nil || rec.PoolID == *req.PoolID {
			out = append(out, rec)
		}
	}
	return limit(out, req.Limit), nil
}

func (c *Client) ReferenceResults(ctx context.Context, req QueryRequest) ([]model.ReferenceResult, error) {
	runID, err := c.resolveRunID(ctx, req, "reference results")
	if err != nil {
		return nil, err
	}
	results, ok, err := c.store.GetReferenceResults(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("reference results not found for run id: %s", runID)
	}
	out := make([]model.ReferenceResult, 0, len(results))
	for _, r := range results {
		if req.PoolID == nil || r.PoolID == *req.PoolID {
			out = append(out, r)
		}
	}
	return limit(out, req.Limit), nil
}

// TopGenomes returns the champion of each pool of a run, read from the run
// artifacts when present and from the final pool snapshots otherwise.
func (c *Client) TopGenomes(ctx context.Context, req QueryRequest) ([]stats.TopGenome, error) {
	runID, err := c.resolveRunID(ctx, req, "top genomes")
	if err != nil {
		return nil, err
	}
	top, ok, err := stats.ReadTopGenomes(c.artifactsDir, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		top, err = c.topFromSnapshots(ctx, runID)
		if err != nil {
			return nil, err
		}
	}
	out := make([]stats.TopGenome, 0, len(top))
	for _, g := range top {
		if req.PoolID == nil || g.PoolID == *req.PoolID {
			out = append(out, g)
		}
	}
	return limit(out, req.Limit), nil
}

func (c *Client) topFromSnapshots(ctx context.Context, runID string) ([]stats.TopGenome, error) {
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	var out []stats.TopGenome
	for poolID := range run.Pools {
		snapshot, ok, err := c.store.GetPoolSnapshot(ctx, runID, poolID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		best := -1
		for i, m := range snapshot.Members {
			if m.MaxFitness == nil {
				continue
			}
			if best < 0 || *m.MaxFitness > *snapshot.Members[best].MaxFitness {
				best = i
			}
		}
		if best >= 0 {
			out = append(out, stats.TopGenome{PoolID: poolID, PoolName: snapshot.PoolName, Member: snapshot.Members[best]})
		}
	}
	return out, nil
}

func (c *Client) Snapshot(ctx context.Context, runID string, poolID int) (model.PoolSnapshot, error) {
	if err := c.Init(ctx); err != nil {
		return model.PoolSnapshot{}, err
	}
	snapshot, ok, err := c.store.GetPoolSnapshot(ctx, runID, poolID)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	if !ok {
		return model.PoolSnapshot{}, fmt.Errorf("snapshot not found for run %s pool %d", runID, poolID)
	}
	return snapshot, nil
}

// Operators lists the registered alteration keys.
func (c *Client) Operators() []string {
	return evo.ListOperators()
}

func (c *Client) Scapes() []string {
	return scape.List()
}

func (c *Client) resolveRunID(ctx context.Context, req QueryRequest, what string) (string, error) {
	if req.RunID != "" && req.Latest {
		return "", errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return "", err
	}
	if req.Latest {
		runs, err := c.store.ListRuns(ctx)
		if err != nil {
			return "", err
		}
		if len(runs) == 0 {
			return "", ErrNoRuns
		}
		return runs[0].RunID, nil
	}
	if req.RunID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return req.RunID, nil
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
