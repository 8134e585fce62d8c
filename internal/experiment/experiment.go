// Package experiment runs several gene pools side by side: it ticks them
// concurrently, migrates champions between pools, scores the pool champions
// in a shared reference trial and records what happened.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"genepool/internal/config"
	"genepool/internal/evo"
	"genepool/internal/logging"
	"genepool/internal/metrics"
	"genepool/internal/model"
	"genepool/internal/scape"
	"genepool/internal/stats"
	"genepool/internal/storage"
)

var ErrNoChampion = errors.New("pool has no champion")

type Options struct {
	Config  *config.ExperimentConfig
	Store   storage.Store
	Metrics *metrics.Recorder
	Logger  *slog.Logger
	// Now stamps run records; defaults to time.Now.
	Now func() time.Time
}

// Result is what a finished run produced.
type Result struct {
	RunID        string
	Ticks        uint64
	BestFitness  uint64
	Diagnostics  []model.TickDiagnostics
	TopGenomes   []stats.TopGenome
	Lineage      []model.LineageRecord
	Reference    []model.ReferenceResult
	ArtifactsDir string
}

type Experiment struct {
	cfg     *config.ExperimentConfig
	runID   string
	store   storage.Store
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
	poolLog *stats.PoolLogger

	reference scape.Scape
	pools     []*evo.GenePool

	tick        uint64
	diagnostics []model.TickDiagnostics
	lineage     []model.LineageRecord
	references  []model.ReferenceResult
}

// New validates the configuration and seeds every pool. A missing run id is
// derived from the scape and seed.
func New(opts Options) (*Experiment, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("experiment config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	runID := cfg.RunID
	if runID == "" {
		runID = fmt.Sprintf("genepool:%s:%d", scape.Normalize(cfg.Scape), cfg.Seed)
	}

	reference, err := scape.Resolve(cfg.ReferenceScapeName())
	if err != nil {
		return nil, err
	}
	refPost, err := evo.PostprocessorByName(cfg.ReferencePostprocessor)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:       cfg,
		runID:     runID,
		store:     opts.Store,
		metrics:   opts.Metrics,
		logger:    logger.With("run_id", runID),
		now:       now,
		reference: scape.WithPostprocessor(reference, refPost),
	}

	compiler := cfg.FrameCompiler()
	for i, pc := range cfg.Pools {
		settings, err := pc.ToSettings(i, cfg.Workers)
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", pc.Name, err)
		}
		evaluator, err := scape.Resolve(cfg.Scape)
		if err != nil {
			return nil, err
		}
		selector, err := evo.SelectorByName(pc.Selector)
		if err != nil {
			return nil, err
		}
		post, err := evo.PostprocessorByName(pc.Postprocessor)
		if err != nil {
			return nil, err
		}
		gp, err := evo.NewGenePool(evo.Config{
			Settings:      settings,
			Compiler:      compiler,
			Evaluator:     evaluator,
			Selector:      selector,
			Postprocessor: post,
			Seed:          cfg.Seed + int64(i),
			Logger:        e.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", pc.Name, err)
		}
		e.pools = append(e.pools, gp)
	}

	if cfg.Logging.Dir != "" {
		e.poolLog, err = stats.NewPoolLogger(cfg.Logging.Dir, cfg.Logging.Overwrite)
		if err != nil {
			return nil, err
		}
		infos := make([]stats.PoolInfo, 0, len(e.pools))
		for i, gp := range e.pools {
			infos = append(infos, stats.PoolInfo{ID: i, Name: gp.Name()})
		}
		if err := e.poolLog.Init(infos); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Experiment) RunID() string {
	return e.runID
}

func (e *Experiment) Pools() []*evo.GenePool {
	return append([]*evo.GenePool(nil), e.pools...)
}

// CurrentTick is the number of completed experiment ticks.
func (e *Experiment) CurrentTick() uint64 {
	return e.tick
}

// Run executes the configured number of ticks and persists the results. The
// run record is saved up front and marked completed at the end.
func (e *Experiment) Run(ctx context.Context) (Result, error) {
	createdAt := e.now().UTC()
	run := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           e.runID,
		CreatedAt:       createdAt,
		Scape:           scape.Normalize(e.cfg.Scape),
		Seed:            e.cfg.Seed,
		Pools:           e.poolNames(),
	}
	if err := e.store.SaveRun(ctx, run); err != nil {
		return Result{}, fmt.Errorf("save run: %w", err)
	}
	e.logger.Info("run started", "pools", len(e.pools), "ticks", e.cfg.Ticks, "scape", run.Scape)

	for e.tick < e.cfg.Ticks {
		if err := e.Tick(ctx); err != nil {
			return Result{}, err
		}
	}

	result := Result{
		RunID:       e.runID,
		Ticks:       e.tick,
		Diagnostics: append([]model.TickDiagnostics(nil), e.diagnostics...),
		TopGenomes:  e.TopGenomes(),
		Lineage:     append([]model.LineageRecord(nil), e.lineage...),
		Reference:   append([]model.ReferenceResult(nil), e.references...),
	}
	for _, top := range result.TopGenomes {
		if top.Member.MaxFitness != nil {
			result.BestFitness = max(result.BestFitness, *top.Member.MaxFitness)
		}
	}

	if err := e.persist(ctx); err != nil {
		return Result{}, err
	}
	run.Ticks = e.tick
	run.BestFitness = result.BestFitness
	run.Completed = true
	if err := e.store.SaveRun(ctx, run); err != nil {
		return Result{}, fmt.Errorf("save run: %w", err)
	}

	if e.cfg.ArtifactsDir != "" {
		dir, err := stats.WriteRunArtifacts(e.cfg.ArtifactsDir, stats.RunArtifacts{
			RunID:       e.runID,
			Config:      e.cfg,
			Diagnostics: result.Diagnostics,
			TopGenomes:  result.TopGenomes,
			Lineage:     result.Lineage,
			Reference:   result.Reference,
		})
		if err != nil {
			return Result{}, fmt.Errorf("write artifacts: %w", err)
		}
		if err := stats.AppendRunIndex(e.cfg.ArtifactsDir, stats.RunIndexEntry{
			RunID:        e.runID,
			Scape:        run.Scape,
			Pools:        len(e.pools),
			Ticks:        e.tick,
			Seed:         e.cfg.Seed,
			BestFitness:  result.BestFitness,
			CreatedAtUTC: createdAt.Format(time.RFC3339Nano),
		}); err != nil {
			return Result{}, fmt.Errorf("append run index: %w", err)
		}
		result.ArtifactsDir = dir
	}

	e.logger.Info("run finished", "ticks", e.tick, "best_fitness", result.BestFitness)
	return result, nil
}

func (e *Experiment) persist(ctx context.Context) error {
	if err := e.store.SaveTickDiagnostics(ctx, e.runID, e.diagnostics); err != nil {
		return fmt.Errorf("save diagnostics: %w", err)
	}
	if err := e.store.SaveLineage(ctx, e.runID, e.lineage); err != nil {
		return fmt.Errorf("save lineage: %w", err)
	}
	if err := e.store.SaveReferenceResults(ctx, e.runID, e.references); err != nil {
		return fmt.Errorf("save reference results: %w", err)
	}
	for i := range e.pools {
		if err := e.saveSnapshot(ctx, i, e.members(i)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Experiment) poolNames() []string {
	names := make([]string, 0, len(e.pools))
	for _, gp := range e.pools {
		names = append(names, gp.Name())
	}
	return names
}

// Tick advances every pool, runs the reference trial and migration when they
// are due, and records diagnostics.
func (e *Experiment) Tick(ctx context.Context) error {
	reports, err := e.advancePools(ctx)
	if err != nil {
		return fmt.Errorf("experiment tick %d: %w", e.tick, err)
	}

	if every(e.tick, e.cfg.ReferenceInterval) {
		results, err := e.ReferenceEvaluation(ctx)
		if err != nil {
			return fmt.Errorf("experiment tick %d reference: %w", e.tick, err)
		}
		e.references = append(e.references, results...)
		if e.poolLog != nil {
			if err := e.poolLog.LogReference(e.tick, results); err != nil {
				return err
			}
		}
	}
	if every(e.tick, e.cfg.ShuffleInterval) {
		migrants := e.ShuffleChampions()
		e.logger.Debug("champions shuffled", "tick", e.tick, "migrants", migrants)
	}

	checkpoint := e.checkpointDue()
	for i, gp := range e.pools {
		members := e.members(i)
		diag := stats.Summarize(e.tick, i, gp.Name(), members)
		offspringByOp := make(map[string]int)
		for _, report := range reports[i] {
			diag.Culled += len(report.Culled)
			diag.Offspring += len(report.Offspring)
			for _, rec := range report.Offspring {
				offspringByOp[rec.Operation]++
				e.lineage = append(e.lineage, lineageRecord(i, rec))
			}
		}
		e.diagnostics = append(e.diagnostics, diag)
		e.metrics.ObserveTick(metrics.TickSample{
			Pool:        gp.Name(),
			Evaluated:   evaluatedCount(reports[i]),
			Culled:      diag.Culled,
			Offspring:   offspringByOp,
			BestFitness: diag.BestFitness,
			Population:  diag.Population,
		})

		if e.poolLog != nil {
			if err := e.poolLog.LogFitnessPercentiles(i, e.tick, members); err != nil {
				return err
			}
			if checkpoint {
				if err := e.poolLog.LogStatus(i, e.tick, members); err != nil {
					return err
				}
			}
		}
		if checkpoint {
			if err := e.saveSnapshot(ctx, i, members); err != nil {
				return err
			}
		}
	}

	e.logger.Info("experiment tick", "tick", e.tick, "best_fitness", e.bestOfTick())
	e.tick++
	return nil
}

// advancePools ticks all pools concurrently. With an evaluation budget each
// pool spends its points; otherwise each pool ticks once.
func (e *Experiment) advancePools(ctx context.Context) ([][]evo.TickReport, error) {
	reports := make([][]evo.TickReport, len(e.pools))
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, gp := range e.pools {
		p.Go(func(ctx context.Context) error {
			if e.cfg.EvalPointsPerTick > 0 {
				out, err := gp.ExecuteWithPoints(ctx, e.cfg.EvalPointsPerTick)
				reports[i] = out
				if err != nil {
					return fmt.Errorf("pool %q: %w", gp.Name(), err)
				}
				return nil
			}
			report, err := gp.Tick(ctx)
			if err != nil {
				return fmt.Errorf("pool %q: %w", gp.Name(), err)
			}
			reports[i] = []evo.TickReport{report}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// ShuffleChampions queues the highest-fitness genome of every pool into
// each pool that accepts external genomes. Pools without an evaluated member
// contribute nothing. It returns the number of queued genomes.
func (e *Experiment) ShuffleChampions() int {
	var champions [][]uint64
	for _, gp := range e.pools {
		best, ok := gp.HighestFitness()
		if !ok {
			continue
		}
		champions = append(champions, best.Genome.Raw)
	}
	queued := 0
	for _, gp := range e.pools {
		if !gp.Settings().ReceiveExternal {
			continue
		}
		gp.QueueExternal(champions...)
		queued += len(champions)
	}
	return queued
}

// ReferenceEvaluation scores the top-ranked member of every pool together in
// one group of the reference scape.
func (e *Experiment) ReferenceEvaluation(ctx context.Context) ([]model.ReferenceResult, error) {
	group := make([]evo.Candidate, 0, len(e.pools))
	for i, gp := range e.pools {
		top, ok := gp.TopRanked()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoChampion, gp.Name())
		}
		group = append(group, evo.Candidate{ExecutionID: i, UID: top.UID, Genome: top.Genome})
	}
	results, err := e.reference.Evaluate(ctx, group)
	if err != nil {
		return nil, err
	}
	if len(results) != len(group) {
		return nil, fmt.Errorf("%w: got %d results for %d champions", evo.ErrResultCountMismatch, len(results), len(group))
	}

	out := make([]model.ReferenceResult, 0, len(results))
	for _, r := range results {
		if r.ExecutionID < 0 || r.ExecutionID >= len(group) {
			return nil, fmt.Errorf("%w: %d", evo.ErrUnknownExecution, r.ExecutionID)
		}
		c := group[r.ExecutionID]
		out = append(out, model.ReferenceResult{
			Tick:    e.tick,
			PoolID:  r.ExecutionID,
			UID:     uint64(c.UID),
			Fitness: uint64(r.Fitness),
		})
		e.metrics.ObserveReference(e.pools[r.ExecutionID].Name(), uint64(r.Fitness))
	}
	return out, nil
}

// TopGenomes returns the highest-fitness member of every pool, falling back
// to the top-ranked member while nothing has been evaluated.
func (e *Experiment) TopGenomes() []stats.TopGenome {
	out := make([]stats.TopGenome, 0, len(e.pools))
	for i, gp := range e.pools {
		best, ok := gp.HighestFitness()
		if !ok {
			if best, ok = gp.TopRanked(); !ok {
				continue
			}
		}
		out = append(out, stats.TopGenome{PoolID: i, PoolName: gp.Name(), Member: MemberRecord(best)})
	}
	return out
}

func (e *Experiment) members(poolID int) []model.MemberRecord {
	entries := e.pools[poolID].Entries()
	out := make([]model.MemberRecord, 0, len(entries))
	for _, entry := range entries {
		out = append(out, MemberRecord(entry))
	}
	return out
}

func (e *Experiment) saveSnapshot(ctx context.Context, poolID int, members []model.MemberRecord) error {
	err := e.store.SavePoolSnapshot(ctx, model.PoolSnapshot{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           e.runID,
		PoolID:          poolID,
		PoolName:        e.pools[poolID].Name(),
		Tick:            e.tick,
		Members:         members,
	})
	if err != nil {
		return fmt.Errorf("save snapshot of pool %d: %w", poolID, err)
	}
	return nil
}

func (e *Experiment) checkpointDue() bool {
	if e.cfg.CheckpointInterval == 0 {
		return stats.LogarithmicTick(e.tick)
	}
	return e.tick%e.cfg.CheckpointInterval == 0
}

func (e *Experiment) bestOfTick() uint64 {
	var best uint64
	for i := len(e.diagnostics) - len(e.pools); i < len(e.diagnostics); i++ {
		if i >= 0 {
			best = max(best, e.diagnostics[i].BestFitness)
		}
	}
	return best
}

func every(tick, interval uint64) bool {
	return interval > 0 && tick%interval == 0
}

func evaluatedCount(reports []evo.TickReport) int {
	n := 0
	for _, r := range reports {
		n += r.Evaluated
	}
	return n
}
