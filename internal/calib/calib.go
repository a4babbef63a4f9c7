// Package calib produces group-III flux-calibration reports from
// background-corrected MIG readings. A calibration compares the settled
// flux (the average of the last two readings) against the target MIG
// current for a growth and derives the A-coefficient correction factor.
package calib

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/fluxlog/internal/cells"
	"github.com/banshee-data/fluxlog/internal/reading"
)

// groupIIIElements are the cell name fragments that identify group-III
// sources eligible for automated calibration.
var groupIIIElements = []string{"Ga", "In", "Al"}

// IsGroupIII reports whether a cell is a group-III source.
func IsGroupIII(c *cells.Cell) bool {
	for _, el := range groupIIIElements {
		if strings.Contains(c.Name, el) {
			return true
		}
	}
	return false
}

// Input is one cell's calibration request.
type Input struct {
	Growth    string
	TargetMIG float64
	Cell      *cells.Cell
	Readings  []*reading.CorrectedReading
}

// Report renders the full calibration message and a one-paragraph summary
// for one cell. It requires at least two readings (the last two determine
// the settled flux) and uniform cell parameters across the readings.
func Report(in Input) (message, summary string, err error) {
	if len(in.Readings) < 2 {
		return "", "", fmt.Errorf("calibration for %s needs at least 2 readings, got %d",
			in.Cell.Name, len(in.Readings))
	}
	if in.TargetMIG == 0 {
		return "", "", fmt.Errorf("calibration for %s: target MIG must be nonzero", in.Cell.Name)
	}
	if err := checkUniformParams(in.Cell, in.Readings); err != nil {
		return "", "", err
	}

	first := in.Readings[0]

	var b strings.Builder
	fmt.Fprintf(&b, "---- Flux calibration from XGEN ----\n\n")
	fmt.Fprintf(&b, "Cell: %s\n", in.Cell.Name)
	fmt.Fprintf(&b, "Growth: %s\n", in.Growth)
	fmt.Fprintf(&b, "Timestamp: %s\n\n", first.Timestamp.Format(time.DateTime))

	for _, p := range in.Cell.Params {
		if v := first.Params[p]; v != nil {
			fmt.Fprintf(&b, "%s %s: %g\n", in.Cell.Name, p, *v)
		}
	}

	fmt.Fprintf(&b, "\nFound %d MIG readings:\n", len(in.Readings))

	minSNR := math.Inf(1)
	haveSNR := false
	minS2B := math.Inf(1)
	currents := make([]float64, len(in.Readings))
	for i, r := range in.Readings {
		currents[i] = r.Current
		minS2B = math.Min(minS2B, r.SignalToBackground)
		snrField := "n/a"
		if r.SNR != nil {
			haveSNR = true
			minSNR = math.Min(minSNR, *r.SNR)
			snrField = fmt.Sprintf("%.4g", *r.SNR)
		}
		fmt.Fprintf(&b, "%.6g nA (sig/noise=%s, sig/bg=%.4g)\n",
			r.Current, snrField, r.SignalToBackground)
	}

	lastA := in.Readings[len(in.Readings)-2].Current
	lastB := in.Readings[len(in.Readings)-1].Current
	avgLast2 := 0.5 * (lastA + lastB)
	diffLast2 := math.Abs(lastA-lastB) / avgLast2
	variation := stat.PopStdDev(currents, nil) / stat.Mean(currents, nil)

	fmt.Fprintf(&b, "\nAverage of last two (nA): %.6g\n", avgLast2)
	fmt.Fprintf(&b, "Diff. between last two: %.4g%%\n", diffLast2*100)
	fmt.Fprintf(&b, "\nTarget MIG (nA): %g\n", in.TargetMIG)

	ratio := avgLast2 / in.TargetMIG
	fmt.Fprintf(&b, "\nDeviation from target: %.4g%%\n", (ratio-1)*100)
	fmt.Fprintf(&b, "A coef correction: %.12g\n", ratio)

	minSNRField := "n/a"
	if haveSNR {
		minSNRField = fmt.Sprintf("%.4g", minSNR)
	}
	summary = fmt.Sprintf(
		"%s correction: %.12g (%.4g%%)\n(Min sig-to-noise: %s, Min sig-to-bg: %.4g, Variation: %.4g%%)",
		in.Cell.Name, ratio, (ratio-1)*100, minSNRField, minS2B, variation*100)

	return b.String(), summary, nil
}

// checkUniformParams fails when the cell parameter values differ between
// readings: automated calibration assumes one operating point per batch.
func checkUniformParams(cell *cells.Cell, rs []*reading.CorrectedReading) error {
	first := rs[0]
	for _, r := range rs[1:] {
		for _, p := range cell.Params {
			if !optEqual(first.Params[p], r.Params[p]) {
				return fmt.Errorf(
					"cannot calibrate %s: parameter %q is not the same for each reading",
					cell.Name, p)
			}
		}
	}
	return nil
}

func optEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
