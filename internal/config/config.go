// Package config loads experiment configuration for genepool runs.
// It supports YAML and TOML files plus environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"genepool/internal/evo"
	"genepool/internal/genome"
)

var ErrUnsupportedFormat = errors.New("unsupported config format")

const (
	EnvLogLevel  = "GENEPOOL_LOG_LEVEL"
	EnvStoreKind = "GENEPOOL_STORE"
	EnvStorePath = "GENEPOOL_STORE_PATH"
)

// ExperimentConfig describes one multi-pool run.
type ExperimentConfig struct {
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty" toml:"run_id"`
	Seed  int64  `json:"seed" yaml:"seed" toml:"seed"`

	// Ticks is the number of experiment ticks to run.
	Ticks uint64 `json:"ticks" yaml:"ticks" toml:"ticks"`

	// EvalPointsPerTick is the evaluation budget handed to each pool per
	// experiment tick. Zero runs exactly one pool tick instead.
	EvalPointsPerTick uint64 `json:"eval_points_per_tick" yaml:"eval_points_per_tick" toml:"eval_points_per_tick"`

	// ShuffleInterval migrates pool champions every n ticks; 0 disables it.
	ShuffleInterval uint64 `json:"shuffle_interval" yaml:"shuffle_interval" toml:"shuffle_interval"`

	// CheckpointInterval writes status files and pool snapshots every n
	// ticks. Zero uses a logarithmic schedule.
	CheckpointInterval uint64 `json:"checkpoint_interval" yaml:"checkpoint_interval" toml:"checkpoint_interval"`

	// ReferenceInterval runs the cross-pool reference trial every n ticks;
	// 0 disables it.
	ReferenceInterval uint64 `json:"reference_interval" yaml:"reference_interval" toml:"reference_interval"`

	// Workers bounds concurrent group evaluation inside each pool.
	Workers int `json:"workers" yaml:"workers" toml:"workers"`

	Scape string `json:"scape" yaml:"scape" toml:"scape"`

	// ReferenceScape scores the reference trial; empty reuses Scape.
	ReferenceScape         string `json:"reference_scape,omitempty" yaml:"reference_scape,omitempty" toml:"reference_scape"`
	ReferencePostprocessor string `json:"reference_postprocessor,omitempty" yaml:"reference_postprocessor,omitempty" toml:"reference_postprocessor"`

	Compiler CompilerConfig `json:"compiler" yaml:"compiler" toml:"compiler"`
	Store    StoreConfig    `json:"store" yaml:"store" toml:"store"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" toml:"logging"`

	// ArtifactsDir receives config.json, diagnostics and champions per run.
	// Empty disables artifact export.
	ArtifactsDir string `json:"artifacts_dir,omitempty" yaml:"artifacts_dir,omitempty" toml:"artifacts_dir"`

	Pools []PoolConfig `json:"pools" yaml:"pools" toml:"pools"`
}

type CompilerConfig struct {
	MinFrameSize int `json:"min_frame_size" yaml:"min_frame_size" toml:"min_frame_size"`
	MaxFrameSize int `json:"max_frame_size" yaml:"max_frame_size" toml:"max_frame_size"`
	MaxWords     int `json:"max_words,omitempty" yaml:"max_words,omitempty" toml:"max_words"`
}

type StoreConfig struct {
	// Kind is "memory" or "sqlite".
	Kind string `json:"kind" yaml:"kind" toml:"kind"`
	Path string `json:"path,omitempty" yaml:"path,omitempty" toml:"path"`
}

type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	Level string `json:"level" yaml:"level" toml:"level"`

	// Dir receives fitness.csv, status files and reference_fitness.csv.
	// Empty disables the pool logs.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty" toml:"dir"`

	// Overwrite replaces an existing Dir instead of failing.
	Overwrite bool `json:"overwrite" yaml:"overwrite" toml:"overwrite"`
}

// PoolConfig holds the settings of one gene pool.
type PoolConfig struct {
	Name        string        `json:"name" yaml:"name" toml:"name"`
	TargetSize  int           `json:"target_size" yaml:"target_size" toml:"target_size"`
	GroupSize   int           `json:"group_size" yaml:"group_size" toml:"group_size"`
	Cycle       CycleConfig   `json:"cycle" yaml:"cycle" toml:"cycle"`
	Cull        CullConfig    `json:"cull" yaml:"cull" toml:"cull"`
	Ranking     RankingConfig `json:"ranking" yaml:"ranking" toml:"ranking"`
	Alterations []string      `json:"alterations" yaml:"alterations" toml:"alterations"`

	SeedMinLength int `json:"seed_min_length" yaml:"seed_min_length" toml:"seed_min_length"`
	SeedMaxLength int `json:"seed_max_length" yaml:"seed_max_length" toml:"seed_max_length"`

	ReceiveExternal bool   `json:"receive_external" yaml:"receive_external" toml:"receive_external"`
	Selector        string `json:"selector,omitempty" yaml:"selector,omitempty" toml:"selector"`
	Postprocessor   string `json:"postprocessor,omitempty" yaml:"postprocessor,omitempty" toml:"postprocessor"`
}

type CycleConfig struct {
	// Kind is "exhaustive" or "random_subset".
	Kind        string  `json:"kind" yaml:"kind" toml:"kind"`
	SubsetPct   float64 `json:"subset_pct,omitempty" yaml:"subset_pct,omitempty" toml:"subset_pct"`
	ScramblePct float64 `json:"scramble_pct" yaml:"scramble_pct" toml:"scramble_pct"`
}

type CullConfig struct {
	// Kind is "worst_first" or "random_tiers".
	Kind              string    `json:"kind" yaml:"kind" toml:"kind"`
	Percent           float64   `json:"percent,omitempty" yaml:"percent,omitempty" toml:"percent"`
	PercentPerTercile []float64 `json:"percent_per_tercile,omitempty" yaml:"percent_per_tercile,omitempty" toml:"percent_per_tercile"`
}

type RankingConfig struct {
	// Kind is "absolute" or "incremental".
	Kind    string  `json:"kind" yaml:"kind" toml:"kind"`
	PctJump float64 `json:"pct_jump,omitempty" yaml:"pct_jump,omitempty" toml:"pct_jump"`
	MinJump int     `json:"min_jump,omitempty" yaml:"min_jump,omitempty" toml:"min_jump"`
}

// DefaultPool returns the single-pool defaults of the command line tool.
func DefaultPool(name string) PoolConfig {
	return PoolConfig{
		Name:          name,
		TargetSize:    100,
		GroupSize:     5,
		Cycle:         CycleConfig{Kind: string(evo.CycleExhaustive), ScramblePct: 0.2},
		Cull:          CullConfig{Kind: string(evo.CullWorstFirst), Percent: 0.8},
		Ranking:       RankingConfig{Kind: "absolute"},
		Alterations:   append([]string(nil), evo.DefaultAlterationKeys...),
		SeedMinLength: evo.DefaultSeedMinLength,
		SeedMaxLength: evo.DefaultSeedMaxLength,
		Selector:      "uniform",
		Postprocessor: "none",
	}
}

// Default returns an ExperimentConfig with one pool and an in-memory store.
func Default() *ExperimentConfig {
	return &ExperimentConfig{
		Seed:              1,
		Ticks:             100,
		ReferenceInterval: 1,
		Workers:           1,
		Scape:             "pattern",
		Compiler: CompilerConfig{
			MinFrameSize: genome.DefaultMinFrameSize,
			MaxFrameSize: genome.DefaultMaxFrameSize,
		},
		Store:   StoreConfig{Kind: "memory"},
		Logging: LoggingConfig{Level: "info"},
		Pools:   []PoolConfig{DefaultPool("pool-0")},
	}
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file over the defaults and
// applies environment overrides.
func Load(path string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	// Pools from the file replace the default pool rather than merge into it.
	cfg.Pools = nil
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if len(cfg.Pools) == 0 {
		cfg.Pools = []PoolConfig{DefaultPool("pool-0")}
	}
	cfg.fillPoolDefaults()
	ApplyEnvOverrides(cfg)
	return cfg, nil
}

// fillPoolDefaults completes pool entries that leave fields unset.
func (c *ExperimentConfig) fillPoolDefaults() {
	for i := range c.Pools {
		def := DefaultPool(fmt.Sprintf("pool-%d", i))
		p := &c.Pools[i]
		if p.Name == "" {
			p.Name = def.Name
		}
		if p.TargetSize == 0 {
			p.TargetSize = def.TargetSize
		}
		if p.GroupSize == 0 {
			p.GroupSize = def.GroupSize
		}
		if p.Cycle.Kind == "" {
			p.Cycle = def.Cycle
		}
		if p.Cull.Kind == "" {
			p.Cull = def.Cull
		}
		if p.Ranking.Kind == "" {
			p.Ranking = def.Ranking
		}
		if len(p.Alterations) == 0 {
			p.Alterations = def.Alterations
		}
		if p.SeedMinLength == 0 && p.SeedMaxLength == 0 {
			p.SeedMinLength, p.SeedMaxLength = def.SeedMinLength, def.SeedMaxLength
		}
	}
}

// ApplyEnvOverrides applies GENEPOOL_* environment variables to cfg.
func ApplyEnvOverrides(cfg *ExperimentConfig) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvStoreKind); v != "" {
		cfg.Store.Kind = v
	}
	if v := os.Getenv(EnvStorePath); v != "" {
		cfg.Store.Path = v
	}
}

// Validate checks the experiment-level fields and every pool.
func (c *ExperimentConfig) Validate() error {
	if c.Ticks == 0 {
		return fmt.Errorf("ticks must be > 0")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if strings.TrimSpace(c.Scape) == "" {
		return fmt.Errorf("scape is required")
	}
	if _, err := evo.PostprocessorByName(c.ReferencePostprocessor); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if c.Compiler.MinFrameSize < 0 || c.Compiler.MaxFrameSize < c.Compiler.MinFrameSize {
		return fmt.Errorf("invalid frame size bounds [%d, %d]", c.Compiler.MinFrameSize, c.Compiler.MaxFrameSize)
	}
	if c.Compiler.MaxWords < 0 {
		return fmt.Errorf("max_words must be non-negative, got %d", c.Compiler.MaxWords)
	}

	switch c.Store.Kind {
	case "", "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("sqlite store requires a path")
		}
	default:
		return fmt.Errorf("invalid store kind: %s (valid: memory, sqlite)", c.Store.Kind)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if len(c.Pools) == 0 {
		return fmt.Errorf("at least one pool is required")
	}
	seen := make(map[string]bool, len(c.Pools))
	for i, pool := range c.Pools {
		if seen[pool.Name] {
			return fmt.Errorf("duplicate pool name %q", pool.Name)
		}
		seen[pool.Name] = true
		if _, err := pool.ToSettings(i, c.Workers); err != nil {
			return fmt.Errorf("pool %q: %w", pool.Name, err)
		}
		if _, err := evo.SelectorByName(pool.Selector); err != nil {
			return fmt.Errorf("pool %q: %w", pool.Name, err)
		}
		if _, err := evo.PostprocessorByName(pool.Postprocessor); err != nil {
			return fmt.Errorf("pool %q: %w", pool.Name, err)
		}
	}
	return nil
}

// ReferenceScapeName is the scape of the reference trial.
func (c *ExperimentConfig) ReferenceScapeName() string {
	if strings.TrimSpace(c.ReferenceScape) != "" {
		return c.ReferenceScape
	}
	return c.Scape
}

// FrameCompiler builds the genome compiler shared by every pool of a run.
func (c *ExperimentConfig) FrameCompiler() genome.FrameCompiler {
	return genome.FrameCompiler{
		MinFrameSize: c.Compiler.MinFrameSize,
		MaxFrameSize: c.Compiler.MaxFrameSize,
		MaxWords:     c.Compiler.MaxWords,
	}
}

// ToSettings converts a pool entry into validated evo settings.
func (p PoolConfig) ToSettings(id, workers int) (evo.Settings, error) {
	ranking, err := p.Ranking.adjustment()
	if err != nil {
		return evo.Settings{}, err
	}
	cull := evo.CullStrategy{Kind: evo.CullKind(p.Cull.Kind), Percent: p.Cull.Percent}
	if cull.Kind == evo.CullRandomTiers {
		if len(p.Cull.PercentPerTercile) != 3 {
			return evo.Settings{}, fmt.Errorf("%w: random_tiers needs 3 tercile percents, got %d",
				evo.ErrInvalidSettings, len(p.Cull.PercentPerTercile))
		}
		copy(cull.PercentPerTercile[:], p.Cull.PercentPerTercile)
	}
	if workers <= 0 {
		workers = 1
	}

	settings := evo.Settings{
		ID:         id,
		Name:       p.Name,
		TargetSize: p.TargetSize,
		GroupSize:  p.GroupSize,
		Cycle: evo.CycleStrategy{
			Kind:        evo.CycleKind(p.Cycle.Kind),
			SubsetPct:   p.Cycle.SubsetPct,
			ScramblePct: p.Cycle.ScramblePct,
		},
		Cull:              cull,
		Ranking:           ranking,
		Alterations:       append([]string(nil), p.Alterations...),
		Seed:              evo.SeedSettings{MinLength: p.SeedMinLength, MaxLength: p.SeedMaxLength},
		ReceiveExternal:   p.ReceiveExternal,
		Workers:           workers,
		MaxRefillAttempts: evo.DefaultMaxRefillAttempts,
	}
	if err := settings.Validate(); err != nil {
		return evo.Settings{}, err
	}
	for _, key := range settings.Alterations {
		if _, err := evo.ResolveOperator(key); err != nil {
			return evo.Settings{}, err
		}
	}
	return settings, nil
}

func (r RankingConfig) adjustment() (evo.RankAdjustment, error) {
	switch r.Kind {
	case "", "absolute":
		return evo.AbsoluteRanking{}, nil
	case "incremental":
		return evo.IncrementalRanking{PctJump: r.PctJump, MinJump: r.MinJump}, nil
	default:
		return nil, fmt.Errorf("%w: unknown rank adjustment %q", evo.ErrInvalidSettings, r.Kind)
	}
}
