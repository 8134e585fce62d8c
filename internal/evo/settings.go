package evo

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidSettings = errors.New("invalid gene pool settings")

type CycleKind string

const (
	CycleExhaustive   CycleKind = "exhaustive"
	CycleRandomSubset CycleKind = "random_subset"
)

// CycleStrategy controls how a tick partitions the pool into groups.
type CycleStrategy struct {
	Kind        CycleKind
	SubsetPct   float64
	ScramblePct float64
}

func Exhaustive(scramblePct float64) CycleStrategy {
	return CycleStrategy{Kind: CycleExhaustive, ScramblePct: scramblePct}
}

func RandomSubset(subsetPct, scramblePct float64) CycleStrategy {
	return CycleStrategy{Kind: CycleRandomSubset, SubsetPct: subsetPct, ScramblePct: scramblePct}
}

type CullKind string

const (
	CullWorstFirst  CullKind = "worst_first"
	CullRandomTiers CullKind = "random_tiers"
)

// CullStrategy controls which members are removed at the end of a tick.
// For worst-first culling Percent is the fraction of the target size kept.
type CullStrategy struct {
	Kind              CullKind
	Percent           float64
	PercentPerTercile [3]float64
}

func WorstFirst(percent float64) CullStrategy {
	return CullStrategy{Kind: CullWorstFirst, Percent: percent}
}

func RandomTiers(percentPerTercile [3]float64) CullStrategy {
	return CullStrategy{Kind: CullRandomTiers, PercentPerTercile: percentPerTercile}
}

// SeedSettings bounds the length of randomly generated seed genomes, [Min, Max).
type SeedSettings struct {
	MinLength int
	MaxLength int
}

const (
	DefaultSeedMinLength     = 30
	DefaultSeedMaxLength     = 50
	DefaultMaxRefillAttempts = 1000
)

type Settings struct {
	ID                int
	Name              string
	TargetSize        int
	GroupSize         int
	Cycle             CycleStrategy
	Cull              CullStrategy
	Ranking           RankAdjustment
	Alterations       []string
	Seed              SeedSettings
	ReceiveExternal   bool
	Workers           int
	MaxRefillAttempts int
}

// DefaultSettings mirrors the single-pool defaults of the command line tool.
func DefaultSettings() Settings {
	return Settings{
		Name:              "pool-0",
		TargetSize:        100,
		GroupSize:         5,
		Cycle:             Exhaustive(0.2),
		Cull:              WorstFirst(0.8),
		Ranking:           AbsoluteRanking{},
		Alterations:       append([]string(nil), DefaultAlterationKeys...),
		Seed:              SeedSettings{MinLength: DefaultSeedMinLength, MaxLength: DefaultSeedMaxLength},
		Workers:           1,
		MaxRefillAttempts: DefaultMaxRefillAttempts,
	}
}

func (s Settings) withDefaults() Settings {
	if s.Ranking == nil {
		s.Ranking = AbsoluteRanking{}
	}
	if s.Seed.MinLength == 0 && s.Seed.MaxLength == 0 {
		s.Seed = SeedSettings{MinLength: DefaultSeedMinLength, MaxLength: DefaultSeedMaxLength}
	}
	if s.Workers <= 0 {
		s.Workers = 1
	}
	if s.MaxRefillAttempts <= 0 {
		s.MaxRefillAttempts = DefaultMaxRefillAttempts
	}
	if s.Name == "" {
		s.Name = fmt.Sprintf("pool-%d", s.ID)
	}
	return s
}

func (s Settings) Validate() error {
	if s.TargetSize <= 0 {
		return invalid("target size must be > 0, got %d", s.TargetSize)
	}
	if s.GroupSize <= 0 {
		return invalid("group size must be > 0, got %d", s.GroupSize)
	}
	if err := validFraction("scramble pct", s.Cycle.ScramblePct); err != nil {
		return err
	}
	switch s.Cycle.Kind {
	case CycleExhaustive:
	case CycleRandomSubset:
		if err := validFraction("subset pct", s.Cycle.SubsetPct); err != nil {
			return err
		}
		if roundCount(s.TargetSize, s.Cycle.SubsetPct) < 1 {
			return invalid("subset pct %v selects no members of %d", s.Cycle.SubsetPct, s.TargetSize)
		}
	default:
		return invalid("unknown cycle strategy %q", s.Cycle.Kind)
	}
	switch s.Cull.Kind {
	case CullWorstFirst:
		if err := validFraction("cull percent", s.Cull.Percent); err != nil {
			return err
		}
		if roundCount(s.TargetSize, s.Cull.Percent) < 1 {
			return invalid("cull percent %v keeps no members of %d", s.Cull.Percent, s.TargetSize)
		}
	case CullRandomTiers:
		for i, pct := range s.Cull.PercentPerTercile {
			if err := validFraction(fmt.Sprintf("tercile %d percent", i), pct); err != nil {
				return err
			}
		}
	default:
		return invalid("unknown cull strategy %q", s.Cull.Kind)
	}
	if s.Ranking == nil {
		return invalid("rank adjustment is required")
	}
	if inc, ok := s.Ranking.(IncrementalRanking); ok {
		if inc.PctJump < 0 || math.IsNaN(inc.PctJump) || inc.MinJump < 0 {
			return invalid("incremental ranking needs non-negative jumps, got pct=%v min=%d", inc.PctJump, inc.MinJump)
		}
		if inc.PctJump == 0 && inc.MinJump == 0 {
			return invalid("incremental ranking with zero jumps never changes rank")
		}
	}
	if len(s.Alterations) == 0 {
		return invalid("at least one alteration key is required")
	}
	if s.Seed.MinLength < 1 || s.Seed.MaxLength <= s.Seed.MinLength {
		return invalid("seed length range [%d, %d) is empty", s.Seed.MinLength, s.Seed.MaxLength)
	}
	if s.Workers <= 0 {
		return invalid("workers must be > 0, got %d", s.Workers)
	}
	if s.MaxRefillAttempts <= 0 {
		return invalid("max refill attempts must be > 0, got %d", s.MaxRefillAttempts)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSettings, fmt.Sprintf(format, args...))
}

func validFraction(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return invalid("%s must be in [0, 1], got %v", name, v)
	}
	return nil
}

// roundCount is round(n * pct) with halves rounded away from zero.
func roundCount(n int, pct float64) int {
	return int(math.Round(float64(n) * pct))
}
