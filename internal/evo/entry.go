package evo

import "genepool/internal/genome"

// UID identifies a pool member. UIDs are issued in increasing order and are
// never reused within a pool.
type UID uint64

// Fitness is a non-negative trial score; higher is better.
type Fitness uint64

const lastFitnessWindow = 10

// Entry is one member of a gene pool.
type Entry struct {
	UID            UID
	Genome         *genome.Compiled
	NumEvaluations int
	// MaxFitness is nil until the entry has been evaluated once.
	MaxFitness *Fitness
	// LastFitness holds the most recent scores, oldest first.
	LastFitness []Fitness
	Rank        int
	Parents     []UID
	Operation   string
	BornAtTick  uint64
}

func (e *Entry) Evaluated() bool {
	return e.MaxFitness != nil
}

// Fitness returns the max fitness, or zero when the entry was never evaluated.
func (e *Entry) Fitness() Fitness {
	if e.MaxFitness == nil {
		return 0
	}
	return *e.MaxFitness
}

func (e *Entry) recordFitness(score Fitness) {
	e.NumEvaluations++
	if e.MaxFitness == nil || score > *e.MaxFitness {
		v := score
		e.MaxFitness = &v
	}
	e.LastFitness = append(e.LastFitness, score)
	if over := len(e.LastFitness) - lastFitnessWindow; over > 0 {
		e.LastFitness = append([]Fitness(nil), e.LastFitness[over:]...)
	}
}

// clone returns a deep copy that callers may keep after the pool mutates.
func (e Entry) clone() Entry {
	out := e
	if e.MaxFitness != nil {
		v := *e.MaxFitness
		out.MaxFitness = &v
	}
	out.LastFitness = append([]Fitness(nil), e.LastFitness...)
	out.Parents = append([]UID(nil), e.Parents...)
	if e.Genome != nil {
		out.Genome = e.Genome.Clone()
	}
	return out
}
