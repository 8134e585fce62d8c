package evo

import (
	"math/rand"
	"sort"
)

// PartitionGroups slices items into consecutive groups of groupSize. When the
// count does not divide evenly the last group is back-filled with members
// counted from the end of items, so it overlaps the previous group. Fewer
// items than groupSize yield a single group holding all of them.
func PartitionGroups[T any](items []T, groupSize int) [][]T {
	if len(items) == 0 || groupSize <= 0 {
		return nil
	}
	if len(items) <= groupSize {
		return [][]T{append([]T(nil), items...)}
	}

	groups := make([][]T, 0, (len(items)+groupSize-1)/groupSize)
	full := len(items) / groupSize
	for i := 0; i < full; i++ {
		groups = append(groups, append([]T(nil), items[i*groupSize:(i+1)*groupSize]...))
	}
	if len(items)%groupSize != 0 {
		groups = append(groups, append([]T(nil), items[len(items)-groupSize:]...))
	}
	return groups
}

// ScrambleGroups trades members between groups to break up rank-sorted
// neighbourhoods. For every group i it performs round(len(group)*pct) trades:
// a random member of group i moves to a random destination group, then a
// random member of the destination moves back into i. Group sizes are
// preserved; a trade with itself is a no-op.
func ScrambleGroups[T any](rng *rand.Rand, groups [][]T, pct float64) [][]T {
	out := make([][]T, len(groups))
	for i, g := range groups {
		out[i] = append([]T(nil), g...)
	}
	if pct <= 0 || len(out) == 0 {
		return out
	}
	for i := range out {
		trades := roundCount(len(out[i]), pct)
		for t := 0; t < trades; t++ {
			if len(out[i]) == 0 {
				break
			}
			dest := rng.Intn(len(out))
			var moved T
			out[i], moved = takeAt(out[i], rng.Intn(len(out[i])))
			out[dest] = append(out[dest], moved)
			out[dest], moved = takeAt(out[dest], rng.Intn(len(out[dest])))
			out[i] = append(out[i], moved)
		}
	}
	return out
}

func takeAt[T any](s []T, idx int) ([]T, T) {
	v := s[idx]
	return append(s[:idx], s[idx+1:]...), v
}

// SampleWithoutReplacement draws n distinct items uniformly, keeping their
// relative order.
func SampleWithoutReplacement[T any](rng *rand.Rand, items []T, n int) []T {
	if n >= len(items) {
		return append([]T(nil), items...)
	}
	if n <= 0 {
		return nil
	}
	picked := rng.Perm(len(items))[:n]
	sort.Ints(picked)
	out := make([]T, 0, n)
	for _, idx := range picked {
		out = append(out, items[idx])
	}
	return out
}

// SplitTerciles splits items into three consecutive tiers. A remainder of one
// or two goes to the earliest tiers.
func SplitTerciles[T any](items []T) [3][]T {
	var tiers [3][]T
	base, rem := len(items)/3, len(items)%3
	start := 0
	for i := range tiers {
		size := base
		if i < rem {
			size++
		}
		tiers[i] = items[start : start+size]
		start += size
	}
	return tiers
}

// partition produces the evaluation groups for one tick as UID lists.
func (p *GenePool) partition() [][]UID {
	ranked := p.rankedUIDs()
	if p.settings.Cycle.Kind == CycleRandomSubset {
		subset := SampleWithoutReplacement(p.rng, ranked, roundCount(len(ranked), p.settings.Cycle.SubsetPct))
		ranked = subset
	}
	groups := PartitionGroups(ranked, p.settings.GroupSize)
	return ScrambleGroups(p.rng, groups, p.settings.Cycle.ScramblePct)
}

// rankedUIDs lists members by ascending rank, ties kept in pool order.
func (p *GenePool) rankedUIDs() []UID {
	order := make([]int, len(p.entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return p.entries[order[a]].Rank < p.entries[order[b]].Rank
	})
	uids := make([]UID, len(order))
	for i, idx := range order {
		uids[i] = p.entries[idx].UID
	}
	return uids
}
