package xgen

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// AvgTolerance is the maximum relative disagreement allowed between the
// instrument-reported average and the recomputed trimmed mean. Anything
// beyond this indicates corrupted or foreign data.
const AvgTolerance = 1e-12

// AverageMismatchError reports a trimmed mean that disagrees with the
// instrument's own reported average beyond AvgTolerance.
type AverageMismatchError struct {
	Reported float64
	Computed float64
}

func (e *AverageMismatchError) Error() string {
	return fmt.Sprintf(
		"average reading in file (%g) does not match calculated average (%g)",
		e.Reported, e.Computed)
}

// Reduce computes the calibrated MIG current and its noise from the raw
// samples of one measurement. The XGEN averages after discarding the two
// highest and two lowest samples; Reduce reproduces that reduction and
// cross-checks the result against the reported average.
//
// The returned noise is the population standard deviation of the 20
// retained samples.
func Reduce(vals []float64, reportedAvg float64) (avg, noise float64, err error) {
	if len(vals) != NumSamples {
		return 0, 0, fmt.Errorf("expected %d samples, got %d", NumSamples, len(vals))
	}

	reduced := trim(vals)
	avg = stat.Mean(reduced, nil)
	noise = stat.PopStdDev(reduced, nil)

	if rel := math.Abs((avg - reportedAvg) / reportedAvg); rel >= AvgTolerance {
		return 0, 0, &AverageMismatchError{Reported: reportedAvg, Computed: avg}
	}
	return avg, noise, nil
}

// trim returns a copy of vals with the maximum and the minimum each
// removed twice (one occurrence per removal). With tied extremes any one
// of the duplicates may be dropped; they are numerically equal, so the
// result is the same.
func trim(vals []float64) []float64 {
	reduced := make([]float64, len(vals))
	copy(reduced, vals)
	for i := 0; i < 2; i++ {
		reduced = removeOne(reduced, indexOfMax(reduced))
		reduced = removeOne(reduced, indexOfMin(reduced))
	}
	return reduced
}

func indexOfMax(vals []float64) int {
	idx := 0
	for i, v := range vals {
		if v > vals[idx] {
			idx = i
		}
	}
	return idx
}

func indexOfMin(vals []float64) int {
	idx := 0
	for i, v := range vals {
		if v < vals[idx] {
			idx = i
		}
	}
	return idx
}

func removeOne(vals []float64, i int) []float64 {
	return append(vals[:i], vals[i+1:]...)
}
