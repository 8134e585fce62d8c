package evo

import (
	"math"
	"sort"
)

// RankAdjustment computes a winner's new rank after an upset.
type RankAdjustment interface {
	Name() string
	// AdjustWinnersRank never returns less than winner.
	AdjustWinnersRank(winner, loser int) int
}

// AbsoluteRanking moves the winner just above the loser.
type AbsoluteRanking struct{}

func (AbsoluteRanking) Name() string { return "absolute" }

func (AbsoluteRanking) AdjustWinnersRank(winner, loser int) int {
	if winner > loser {
		return winner
	}
	return loser + 1
}

// IncrementalRanking moves the winner up by a fraction of the gap, at least
// MinJump.
type IncrementalRanking struct {
	PctJump float64
	MinJump int
}

func (IncrementalRanking) Name() string { return "incremental" }

func (r IncrementalRanking) AdjustWinnersRank(winner, loser int) int {
	if winner > loser {
		return winner
	}
	jump := int(math.Ceil(r.PctJump * float64(loser-winner+1)))
	return winner + max(r.MinJump, jump)
}

// Outcome is one member's score in an evaluated group.
type Outcome struct {
	UID     UID
	Fitness Fitness
	Rank    int
}

// AdjustRanks applies the upset rule to one evaluated group. The result is
// sorted ascending by fitness (stable) and carries the adjusted ranks. A
// bumped rank is visible to the later comparisons of the same pass.
func AdjustRanks(batch []Outcome, method RankAdjustment) []Outcome {
	out := append([]Outcome(nil), batch...)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Fitness < out[b].Fitness
	})
	for i := range out {
		for j := 0; j < i; j++ {
			if out[i].Fitness > out[j].Fitness && out[i].Rank <= out[j].Rank {
				out[i].Rank = method.AdjustWinnersRank(out[i].Rank, out[j].Rank)
			}
		}
	}
	return out
}

// NormalizeRanks maps ranks to dense values starting at 0 while keeping
// their order and ties.
func NormalizeRanks(ranks []int) []int {
	order := make([]int, len(ranks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ranks[order[a]] < ranks[order[b]]
	})
	out := make([]int, len(ranks))
	dense := 0
	for i, idx := range order {
		if i > 0 && ranks[idx] != ranks[order[i-1]] {
			dense++
		}
		out[idx] = dense
	}
	return out
}

func (p *GenePool) normalizeRanks() {
	ranks := make([]int, len(p.entries))
	for i := range p.entries {
		ranks[i] = p.entries[i].Rank
	}
	for i, r := range NormalizeRanks(ranks) {
		p.entries[i].Rank = r
	}
}

// applyGroup records the scores of one group and renormalizes the pool.
func (p *GenePool) applyGroup(scores []Outcome) {
	for i := range scores {
		entry := &p.entries[p.index[scores[i].UID]]
		entry.recordFitness(scores[i].Fitness)
		scores[i].Rank = entry.Rank
	}
	for _, adjusted := range AdjustRanks(scores, p.settings.Ranking) {
		p.entries[p.index[adjusted.UID]].Rank = adjusted.Rank
	}
	p.normalizeRanks()
}
