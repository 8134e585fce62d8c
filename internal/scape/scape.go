// Package scape holds the environments that score genomes. A scape is an
// evo.Evaluator with a name; it scores one group of candidates per call.
package scape

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"genepool/internal/evo"
)

var (
	ErrScapeNotFound = errors.New("scape not found")
	ErrScapeExists   = errors.New("scape already registered")
)

type Mode string

const (
	// ModeIndependent scapes score each candidate on its own, so group
	// composition never changes a score.
	ModeIndependent Mode = "independent"
	// ModeCompetitive scapes score candidates against each other.
	ModeCompetitive Mode = "competitive"
)

type Scape interface {
	evo.Evaluator
	Name() string
	Mode() Mode
}

type Factory func() Scape

var registry = struct {
	sync.RWMutex
	factories map[string]Factory
}{factories: builtinScapes()}

func builtinScapes() map[string]Factory {
	return map[string]Factory{
		"pattern": func() Scape { return NewPattern() },
		"forage":  func() Scape { return NewForage() },
	}
}

// Register adds a scape factory under its normalized name.
func Register(name string, factory Factory) error {
	key := Normalize(name)
	if key == "" {
		return fmt.Errorf("scape name is required")
	}
	if factory == nil {
		return fmt.Errorf("scape factory is required: %s", key)
	}

	registry.Lock()
	defer registry.Unlock()
	if _, exists := registry.factories[key]; exists {
		return fmt.Errorf("%w: %s", ErrScapeExists, key)
	}
	registry.factories[key] = factory
	return nil
}

// Resolve builds a fresh scape by name. Names are matched after
// normalization, so "Pattern", "scape_pattern" and "pattern_sim" all resolve
// to "pattern".
func Resolve(name string) (Scape, error) {
	registry.RLock()
	defer registry.RUnlock()
	for _, candidate := range aliasCandidates(Normalize(name)) {
		if factory, ok := registry.factories[candidate]; ok {
			return factory(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrScapeNotFound, name)
}

func List() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRegistryForTests() {
	registry.Lock()
	defer registry.Unlock()
	registry.factories = builtinScapes()
}

// Normalize canonicalizes a scape name: lower case, dashes for underscores
// and spaces, no leading or trailing dashes.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	return strings.Trim(normalized, "-")
}

// aliasCandidates lists the lookup keys for a normalized name, most specific
// first.
func aliasCandidates(normalized string) []string {
	if normalized == "" {
		return nil
	}
	candidates := []string{normalized}
	add := func(v string) {
		v = strings.Trim(v, "-")
		if v == "" {
			return
		}
		for _, c := range candidates {
			if c == v {
				return
			}
		}
		candidates = append(candidates, v)
	}

	trimmed := strings.TrimPrefix(normalized, "scape-")
	add(trimmed)
	add(strings.TrimSuffix(trimmed, "-sim"))
	add(strings.TrimSuffix(normalized, "-sim"))
	return candidates
}
