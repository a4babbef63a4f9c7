package xgen

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestReduce_SpecimenLine(t *testing.T) {
	t.Parallel()

	// The middle 20 samples are all 12.5; the extremes (-10, 12, 30 and
	// one of the 12.5 duplicates) are trimmed away.
	avg, noise, err := Reduce(specimenVals(), 12.5)
	require.NoError(t, err)
	assert.Equal(t, 12.5, avg)
	assert.Equal(t, 0.0, noise)
}

func TestReduce_AverageMismatch(t *testing.T) {
	t.Parallel()

	_, _, err := Reduce(specimenVals(), 12.6)
	var mismatch *AverageMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 12.6, mismatch.Reported)
	assert.Equal(t, 12.5, mismatch.Computed)
}

func TestReduce_WithinTolerance(t *testing.T) {
	t.Parallel()

	// A reported average off by less than one part in 1e12 still passes.
	_, _, err := Reduce(specimenVals(), 12.5*(1+1e-13))
	assert.NoError(t, err)
}

func TestReduce_WrongSampleCount(t *testing.T) {
	t.Parallel()

	_, _, err := Reduce([]float64{1, 2, 3}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 24 samples")
}

func TestReduce_TrimsTopTwoAndBottomTwo(t *testing.T) {
	t.Parallel()

	// Distinct values 1..24: trimming drops 24, 23, 1, 2.
	vals := make([]float64, NumSamples)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	want := 0.0
	for v := 3.0; v <= 22.0; v++ {
		want += v
	}
	want /= 20

	avg, noise, err := Reduce(vals, want)
	require.NoError(t, err)
	assert.InDelta(t, want, avg, 1e-12)
	assert.Greater(t, noise, 0.0)
}

func TestReduce_PermutationInvariant(t *testing.T) {
	t.Parallel()

	vals := make([]float64, NumSamples)
	for i := range vals {
		vals[i] = float64(i+1) * 1.375
	}
	refAvg, refNoise, err := Reduce(vals, trimmedMean(vals))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		shuffled := make([]float64, len(vals))
		copy(shuffled, vals)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		avg, noise, err := Reduce(shuffled, refAvg)
		require.NoError(t, err)
		assert.InDelta(t, refAvg, avg, math.Abs(refAvg)*1e-13)
		assert.InDelta(t, refNoise, noise, 1e-12)
	}
}

func TestReduce_TiedExtremes(t *testing.T) {
	t.Parallel()

	// Four copies of the max and min: exactly two of each are removed.
	vals := make([]float64, NumSamples)
	for i := range vals {
		vals[i] = 10
	}
	vals[0], vals[1], vals[2], vals[3] = 50, 50, 50, 50
	vals[4], vals[5], vals[6], vals[7] = -50, -50, -50, -50

	// Remaining after trim: two 50s, two -50s, sixteen 10s.
	want := (2*50.0 - 2*50.0 + 16*10.0) / 20.0
	avg, _, err := Reduce(vals, want)
	require.NoError(t, err)
	assert.InDelta(t, want, avg, 1e-12)
}

// trimmedMean is an independent oracle: sort a copy, drop the first two
// and last two, and average the rest.
func trimmedMean(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	return stat.Mean(sorted[2:len(sorted)-2], nil)
}
