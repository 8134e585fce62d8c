package evo

import (
	"context"
	"errors"
	"fmt"

	"genepool/internal/genome"
	"genepool/internal/logging"
)

var ErrRefillExhausted = errors.New("refill attempts exhausted")

// LineageRecord describes how an offspring was produced.
type LineageRecord struct {
	UID         UID
	Parents     []UID
	Operation   string
	Tick        uint64
	Fingerprint string
}

// drainExternal registers queued migrants while the pool is below target.
// Migrants that do not fit stay queued for the next refill.
func (p *GenePool) drainExternal() ([]LineageRecord, error) {
	var records []LineageRecord
	for len(p.external) > 0 && len(p.entries) < p.settings.TargetSize {
		raw := p.external[0]
		p.external = p.external[1:]
		compiled, err := p.compiler.Compile(raw)
		if err != nil {
			return records, fmt.Errorf("compile external genome: %w", err)
		}
		uid := p.register(compiled, nil, OpExternal)
		records = append(records, p.lineage(uid))
	}
	return records, nil
}

// refill adds offspring until the pool is back at its target size. Sources
// are chosen from the current pool, so earlier offspring of the same refill
// can be parents.
func (p *GenePool) refill(ctx context.Context) ([]LineageRecord, error) {
	records, err := p.drainExternal()
	if err != nil {
		return records, err
	}
	if len(p.entries) >= p.settings.TargetSize {
		return records, nil
	}
	ranked := p.rankedUIDs()
	if len(ranked) == 0 {
		return records, ErrEmptyPool
	}

	attempts := 0
	for len(p.entries) < p.settings.TargetSize {
		if attempts >= p.settings.MaxRefillAttempts {
			return records, fmt.Errorf("%w: %d attempts, pool at %d of %d",
				ErrRefillExhausted, attempts, len(p.entries), p.settings.TargetSize)
		}
		attempts++

		op := p.library.Choose(p.rng)
		parents := make([]UID, op.GenomesRequired())
		sources := make([]*genome.Compiled, op.GenomesRequired())
		for i := range sources {
			uid, err := p.selector.Pick(p.rng, ranked)
			if err != nil {
				return records, fmt.Errorf("select source for %s: %w", op.Name(), err)
			}
			parents[i] = uid
			sources[i] = p.entries[p.index[uid]].Genome
		}

		params, err := op.Propose(p.rng, sources)
		if errors.Is(err, ErrNoAlterationChoice) {
			p.logger.Log(ctx, logging.LevelTrace, "alteration had no choice", "pool", p.settings.Name, "operation", op.Name())
			continue
		}
		if err != nil {
			return records, fmt.Errorf("propose %s: %w", op.Name(), err)
		}
		raw, err := op.Apply(sources, params)
		if err != nil {
			return records, fmt.Errorf("apply %s: %w", op.Name(), err)
		}
		if len(raw) == 0 {
			continue
		}
		compiled, err := p.compiler.Compile(raw)
		if err != nil {
			return records, fmt.Errorf("compile %s offspring: %w", op.Name(), err)
		}
		uid := p.register(compiled, parents, op.Name())
		records = append(records, p.lineage(uid))
		ranked = p.rankedUIDs()
	}
	return records, nil
}

func (p *GenePool) lineage(uid UID) LineageRecord {
	entry := p.entries[p.index[uid]]
	return LineageRecord{
		UID:         uid,
		Parents:     append([]UID(nil), entry.Parents...),
		Operation:   entry.Operation,
		Tick:        entry.BornAtTick,
		Fingerprint: genome.Fingerprint(entry.Genome.Raw),
	}
}
