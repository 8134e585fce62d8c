package evo

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"genepool/internal/genome"
	"genepool/internal/logging"
)

const (
	OpSeed     = "seed"
	OpExternal = "external"
)

type Config struct {
	Settings      Settings
	Compiler      Compiler
	Evaluator     Evaluator
	Selector      Selector
	Postprocessor FitnessPostprocessor
	// InitialGenomes are registered before random seed genomes.
	InitialGenomes [][]genome.Word
	Seed           int64
	Logger         *slog.Logger
}

// TickReport summarizes one completed tick.
type TickReport struct {
	Tick      uint64
	Groups    int
	Evaluated int
	Culled    []UID
	Offspring []LineageRecord
}

// GenePool is a population evolved by repeated tournament ticks. All methods
// are safe for concurrent use; ticks on one pool run one at a time.
type GenePool struct {
	mu sync.Mutex

	settings      Settings
	library       *Library
	compiler      Compiler
	evaluator     Evaluator
	selector      Selector
	postprocessor FitnessPostprocessor
	rng           *rand.Rand
	logger        *slog.Logger

	entries []Entry
	index   map[UID]int
	nextUID UID

	tick       uint64
	evalPoints uint64
	external   [][]genome.Word
}

func NewGenePool(cfg Config) (*GenePool, error) {
	if cfg.Compiler == nil {
		return nil, fmt.Errorf("compiler is required")
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	settings := cfg.Settings.withDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	library, err := NewLibrary(settings.Alterations)
	if err != nil {
		return nil, err
	}
	if cfg.Selector == nil {
		cfg.Selector = UniformSelector{}
	}
	if cfg.Postprocessor == nil {
		cfg.Postprocessor = NoopFitnessPostprocessor{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	p := &GenePool{
		settings:      settings,
		library:       library,
		compiler:      cfg.Compiler,
		evaluator:     cfg.Evaluator,
		selector:      cfg.Selector,
		postprocessor: cfg.Postprocessor,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		logger:        cfg.Logger.With("pool", settings.Name),
		index:         make(map[UID]int, settings.TargetSize),
	}
	for i, raw := range cfg.InitialGenomes {
		compiled, err := p.compiler.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile initial genome %d: %w", i, err)
		}
		p.register(compiled, nil, OpSeed)
	}
	for len(p.entries) < settings.TargetSize {
		length := settings.Seed.MinLength + p.rng.Intn(settings.Seed.MaxLength-settings.Seed.MinLength)
		compiled, err := p.compiler.Compile(genome.RandomWords(p.rng, length))
		if err != nil {
			return nil, fmt.Errorf("compile seed genome: %w", err)
		}
		p.register(compiled, nil, OpSeed)
	}
	return p, nil
}

// register appends a new member with rank 0 and no fitness.
func (p *GenePool) register(compiled *genome.Compiled, parents []UID, operation string) UID {
	uid := p.nextUID
	p.nextUID++
	p.entries = append(p.entries, Entry{
		UID:        uid,
		Genome:     compiled,
		Parents:    parents,
		Operation:  operation,
		BornAtTick: p.tick,
	})
	p.index[uid] = len(p.entries) - 1
	return uid
}

func (p *GenePool) reindex() {
	clear(p.index)
	for i := range p.entries {
		p.index[p.entries[i].UID] = i
	}
}

// Tick runs one full partition, evaluate, rank, cull and refill cycle.
func (p *GenePool) Tick(ctx context.Context) (TickReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runTick(ctx, false)
}

// ExecuteWithPoints adds points to the evaluation budget and ticks until it
// is spent. Every evaluated group costs one point per member; groups that
// find the budget empty are skipped for that tick.
func (p *GenePool) ExecuteWithPoints(ctx context.Context, points uint64) ([]TickReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.evalPoints += points
	var reports []TickReport
	for p.evalPoints > 0 {
		report, err := p.runTick(ctx, true)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
		if report.Groups == 0 {
			break
		}
	}
	return reports, nil
}

func (p *GenePool) runTick(ctx context.Context, metered bool) (TickReport, error) {
	if err := p.settings.Validate(); err != nil {
		return TickReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return TickReport{}, err
	}

	groups := p.partition()
	if metered {
		groups = p.spendPoints(groups)
	}
	outcomes, err := p.evaluateGroups(ctx, groups)
	if err != nil {
		return TickReport{}, fmt.Errorf("tick %d: %w", p.tick, err)
	}

	report := TickReport{Tick: p.tick, Groups: len(groups)}
	for _, group := range outcomes {
		p.applyGroup(group)
		report.Evaluated += len(group)
	}

	report.Culled, err = p.cull()
	if err != nil {
		return report, fmt.Errorf("tick %d cull: %w", p.tick, err)
	}
	p.logger.Log(ctx, logging.LevelTrace, "culled", "tick", p.tick, "count", len(report.Culled))

	report.Offspring, err = p.refill(ctx)
	if err != nil {
		return report, fmt.Errorf("tick %d refill: %w", p.tick, err)
	}
	p.logger.Log(ctx, logging.LevelTrace, "refilled", "tick", p.tick, "count", len(report.Offspring))

	p.logger.Debug("tick complete",
		"tick", p.tick,
		"groups", report.Groups,
		"evaluated", report.Evaluated,
		"population", len(p.entries),
	)
	p.tick++
	return report, nil
}

func (p *GenePool) spendPoints(groups [][]UID) [][]UID {
	kept := groups[:0]
	for _, group := range groups {
		if p.evalPoints == 0 {
			break
		}
		p.evalPoints -= min(uint64(len(group)), p.evalPoints)
		kept = append(kept, group)
	}
	return kept
}

// QueueExternal queues migrant genomes. They are registered at the start of
// the next refill, ahead of new offspring.
func (p *GenePool) QueueExternal(raws ...[]genome.Word) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, raw := range raws {
		p.external = append(p.external, genome.Clone(raw))
	}
}

func (p *GenePool) PendingExternal() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.external)
}

func (p *GenePool) Settings() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.settings
	s.Alterations = append([]string(nil), p.settings.Alterations...)
	return s
}

func (p *GenePool) Name() string {
	return p.settings.Name
}

// CurrentTick is the number of completed ticks.
func (p *GenePool) CurrentTick() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tick
}

func (p *GenePool) EvalPoints() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evalPoints
}

func (p *GenePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Entries returns deep copies of all members in pool order.
func (p *GenePool) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	for i := range p.entries {
		out[i] = p.entries[i].clone()
	}
	return out
}

func (p *GenePool) Entry(uid UID) (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.index[uid]
	if !ok {
		return Entry{}, false
	}
	return p.entries[idx].clone(), true
}

// HighestFitness returns the evaluated member with the greatest max fitness.
// Ties go to the earliest member.
func (p *GenePool) HighestFitness() (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	best := -1
	for i := range p.entries {
		if !p.entries[i].Evaluated() {
			continue
		}
		if best < 0 || *p.entries[i].MaxFitness > *p.entries[best].MaxFitness {
			best = i
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return p.entries[best].clone(), true
}

// TopRanked returns the member with the highest rank. Ties go to the last
// member in pool order.
func (p *GenePool) TopRanked() (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == 0 {
		return Entry{}, false
	}
	order := rankOrder(p.entries)
	return p.entries[order[len(order)-1]].clone(), true
}

// Ranked returns members ordered by descending rank.
func (p *GenePool) Ranked() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	order := rankOrder(p.entries)
	out := make([]Entry, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, p.entries[order[i]].clone())
	}
	return out
}
