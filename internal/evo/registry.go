package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

var (
	ErrOperatorExists   = errors.New("alteration already registered")
	ErrOperatorNotFound = errors.New("alteration not found")
)

var operatorRegistry = struct {
	mu sync.RWMutex
	m  map[string]Operator
}{
	m: builtinOperators(),
}

func builtinOperators() map[string]Operator {
	m := make(map[string]Operator)
	for _, op := range defaultOperators() {
		m[op.Name()] = op
	}
	return m
}

// RegisterOperator adds an alteration under its own name so pools can
// reference it from their alteration keys.
func RegisterOperator(op Operator) error {
	if op == nil {
		return errors.New("alteration is required")
	}
	name := op.Name()
	if name == "" {
		return errors.New("alteration name is required")
	}
	if op.GenomesRequired() < 1 {
		return fmt.Errorf("alteration %s must require at least one genome", name)
	}

	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()

	if _, exists := operatorRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrOperatorExists, name)
	}
	operatorRegistry.m[name] = op
	return nil
}

func ResolveOperator(name string) (Operator, error) {
	operatorRegistry.mu.RLock()
	op, ok := operatorRegistry.m[name]
	operatorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperatorNotFound, name)
	}
	return op, nil
}

func ListOperators() []string {
	operatorRegistry.mu.RLock()
	defer operatorRegistry.mu.RUnlock()

	names := make([]string, 0, len(operatorRegistry.m))
	for name := range operatorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetOperatorRegistryForTests() {
	operatorRegistry.mu.Lock()
	defer operatorRegistry.mu.Unlock()
	operatorRegistry.m = builtinOperators()
}

// Library is the set of alterations a pool draws from. Draws are uniform
// over entries, so a key listed twice is drawn twice as often.
type Library struct {
	operators []Operator
}

// NewLibrary resolves every key against the registry.
func NewLibrary(keys []string) (*Library, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: at least one alteration key is required", ErrInvalidSettings)
	}
	ops := make([]Operator, 0, len(keys))
	for _, key := range keys {
		op, err := ResolveOperator(key)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return &Library{operators: ops}, nil
}

func (l *Library) Len() int {
	return len(l.operators)
}

func (l *Library) Keys() []string {
	keys := make([]string, 0, len(l.operators))
	for _, op := range l.operators {
		keys = append(keys, op.Name())
	}
	return keys
}

// Choose draws one alteration uniformly.
func (l *Library) Choose(rng *rand.Rand) Operator {
	return l.operators[rng.Intn(len(l.operators))]
}
