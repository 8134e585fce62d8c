package stats

import (
	"gonum.org/v1/gonum/stat"

	"genepool/internal/model"
)

// Summarize builds the fitness part of a pool's tick diagnostics from a
// member snapshot. Fitness statistics only cover evaluated members.
func Summarize(tick uint64, poolID int, poolName string, members []model.MemberRecord) model.TickDiagnostics {
	diag := model.TickDiagnostics{
		Tick:       tick,
		PoolID:     poolID,
		PoolName:   poolName,
		Population: len(members),
	}

	var (
		scores      []uint64
		weights     []float64
		lengths     float64
		fingerprint = make(map[string]struct{}, len(members))
	)
	for _, m := range members {
		fingerprint[m.Fingerprint] = struct{}{}
		lengths += float64(len(m.Raw))
		diag.MaxRank = max(diag.MaxRank, m.Rank)
		if m.MaxFitness == nil {
			continue
		}
		scores = append(scores, *m.MaxFitness)
		weights = append(weights, float64(*m.MaxFitness))
		diag.BestFitness = max(diag.BestFitness, *m.MaxFitness)
	}
	diag.Evaluated = len(scores)
	diag.FingerprintDiversity = len(fingerprint)
	if len(members) > 0 {
		diag.MeanGenomeLength = lengths / float64(len(members))
	}
	if len(weights) > 0 {
		diag.MeanFitness, diag.StdDevFitness = stat.MeanStdDev(weights, nil)
		if len(weights) == 1 {
			diag.StdDevFitness = 0
		}
	}
	if pcts, err := Percentiles(scores, FitnessPercentiles); err == nil && len(pcts) == len(FitnessPercentiles) {
		diag.P0, diag.P25, diag.P75, diag.P100 = float64(pcts[0]), float64(pcts[1]), float64(pcts[2]), float64(pcts[3])
	}
	return diag
}
