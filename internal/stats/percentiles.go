package stats

import (
	"errors"
	"fmt"
	"slices"
)

var ErrPercentileRange = errors.New("percentile out of range")

// FitnessPercentiles are the columns of fitness.csv.
var FitnessPercentiles = []int{0, 25, 75, 100}

// Percentiles picks values at index (n-1)*p/100 of the sorted input, using
// integer division. An empty input yields an empty result.
func Percentiles(values []uint64, ps []int) ([]uint64, error) {
	for _, p := range ps {
		if p < 0 || p > 100 {
			return nil, fmt.Errorf("%w: %d", ErrPercentileRange, p)
		}
	}
	if len(values) == 0 {
		return []uint64{}, nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	out := make([]uint64, len(ps))
	for i, p := range ps {
		out[i] = sorted[(len(sorted)-1)*p/100]
	}
	return out, nil
}

// LogarithmicTick thins out periodic logging as a run gets longer: every
// tick below 100, every 10th below 1000, every 100th below 10000 and so on.
func LogarithmicTick(tick uint64) bool {
	factor := uint64(1)
	for t := tick; t >= 100; t /= 10 {
		factor *= 10
	}
	return tick%factor == 0
}
