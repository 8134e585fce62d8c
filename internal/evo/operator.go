package evo

import (
	"math/rand"

	"genepool/internal/genome"
)

// Params carries the parameters an Operator proposed for one application.
// The layout of Indices and Words is operator specific.
type Params struct {
	Indices []int
	Words   []genome.Word
}

// Operator is a named genome alteration. Propose reads only the shape and
// content of the sources to draw parameters that Apply can execute; Apply is
// deterministic given the same sources and params.
type Operator interface {
	Name() string
	GenomesRequired() int
	Propose(rng *rand.Rand, sources []*genome.Compiled) (Params, error)
	Apply(sources []*genome.Compiled, params Params) ([]genome.Word, error)
}
