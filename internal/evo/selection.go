package evo

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrEmptyPool = errors.New("gene pool is empty")

// Selector chooses refill source genomes. ranked is ordered by ascending
// rank, so later positions hold stronger members.
type Selector interface {
	Name() string
	Pick(rng *rand.Rand, ranked []UID) (UID, error)
}

// UniformSelector picks any member with equal probability, regardless of rank.
type UniformSelector struct{}

func (UniformSelector) Name() string {
	return "uniform"
}

func (UniformSelector) Pick(rng *rand.Rand, ranked []UID) (UID, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return 0, ErrEmptyPool
	}
	return ranked[rng.Intn(len(ranked))], nil
}

// TopHalfSelector picks uniformly from the better ranked half of the pool.
type TopHalfSelector struct{}

func (TopHalfSelector) Name() string {
	return "top_half"
}

func (TopHalfSelector) Pick(rng *rand.Rand, ranked []UID) (UID, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return 0, ErrEmptyPool
	}
	top := ranked[len(ranked)/2:]
	return top[rng.Intn(len(top))], nil
}

// TournamentSelector samples TournamentSize members and keeps the best ranked.
type TournamentSelector struct {
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Pick(rng *rand.Rand, ranked []UID) (UID, error) {
	if rng == nil {
		return 0, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return 0, ErrEmptyPool
	}
	size := s.TournamentSize
	if size <= 0 {
		size = 3
	}
	best := rng.Intn(len(ranked))
	for i := 1; i < size; i++ {
		if idx := rng.Intn(len(ranked)); idx > best {
			best = idx
		}
	}
	return ranked[best], nil
}

// SelectorByName resolves the selector names accepted in configuration.
func SelectorByName(name string) (Selector, error) {
	switch name {
	case "", "uniform":
		return UniformSelector{}, nil
	case "top_half":
		return TopHalfSelector{}, nil
	case "tournament":
		return TournamentSelector{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown selector %q", ErrInvalidSettings, name)
	}
}
