package evo

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

var ErrCullExceedsPopulation = errors.New("cull count exceeds population")

// cullWorstFirst picks the lowest ranked evaluated entries until the pool
// would shrink to round(target*percent). Unevaluated entries are never picked.
// A retain fraction below zero asks for more removals than there are entries.
func cullWorstFirst(entries []Entry, target int, percent float64) ([]UID, error) {
	toRemove := len(entries) - roundCount(target, percent)
	if toRemove <= 0 {
		return nil, nil
	}
	if toRemove > len(entries) {
		return nil, fmt.Errorf("%w: remove %d of %d", ErrCullExceedsPopulation, toRemove, len(entries))
	}
	removed := make([]UID, 0, toRemove)
	for _, idx := range rankOrder(entries) {
		if len(removed) == toRemove {
			break
		}
		if !entries[idx].Evaluated() {
			continue
		}
		removed = append(removed, entries[idx].UID)
	}
	return removed, nil
}

// cullRandomTiers splits the evaluated entries into rank terciles, lowest
// first, and removes round(len(tier)*pct) random members of each tier.
func cullRandomTiers(rng *rand.Rand, entries []Entry, percents [3]float64) ([]UID, error) {
	evaluated := make([]UID, 0, len(entries))
	for _, idx := range rankOrder(entries) {
		if entries[idx].Evaluated() {
			evaluated = append(evaluated, entries[idx].UID)
		}
	}
	var removed []UID
	for i, tier := range SplitTerciles(evaluated) {
		n := roundCount(len(tier), percents[i])
		if n > len(tier) {
			return nil, fmt.Errorf("%w: remove %d of %d in tercile %d", ErrCullExceedsPopulation, n, len(tier), i)
		}
		removed = append(removed, SampleWithoutReplacement(rng, tier, n)...)
	}
	return removed, nil
}

func rankOrder(entries []Entry) []int {
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return entries[order[a]].Rank < entries[order[b]].Rank
	})
	return order
}

func (p *GenePool) cull() ([]UID, error) {
	var (
		removed []UID
		err     error
	)
	switch p.settings.Cull.Kind {
	case CullWorstFirst:
		removed, err = cullWorstFirst(p.entries, p.settings.TargetSize, p.settings.Cull.Percent)
	case CullRandomTiers:
		removed, err = cullRandomTiers(p.rng, p.entries, p.settings.Cull.PercentPerTercile)
	default:
		err = invalid("unknown cull strategy %q", p.settings.Cull.Kind)
	}
	if err != nil {
		return nil, err
	}
	p.removeEntries(removed)
	return removed, nil
}

func (p *GenePool) removeEntries(uids []UID) {
	if len(uids) == 0 {
		return
	}
	drop := make(map[UID]struct{}, len(uids))
	for _, uid := range uids {
		drop[uid] = struct{}{}
	}
	kept := p.entries[:0]
	for _, entry := range p.entries {
		if _, ok := drop[entry.UID]; ok {
			continue
		}
		kept = append(kept, entry)
	}
	clear(p.entries[len(kept):])
	p.entries = kept
	p.reindex()
}
