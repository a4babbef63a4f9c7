// Package reading turns parsed XGEN log lines into typed flux and
// background readings and derives background-corrected MIG readings from
// them.
package reading

import (
	"fmt"
	"time"

	"github.com/banshee-data/fluxlog/internal/cells"
	"github.com/banshee-data/fluxlog/internal/xgen"
)

// Reading is one reduced measurement, tagged flux or background.
// Cell and Params are only set on flux readings; background measurements
// carry no cell association beyond the shared port.
type Reading struct {
	Kind      xgen.Kind
	Timestamp time.Time
	Cell      *cells.Cell
	Params    map[string]*float64
	Current   float64
	SNR       *float64
	Index     int
}

// Build parses and reduces one log line into a Reading. The sequence
// index comes from the caller: the line's embedded counter is unreliable
// and must not be used. The timestamp comes from the source filename.
func Build(line string, timestamp time.Time, index int, registry *cells.List) (*Reading, error) {
	raw, err := xgen.ParseLine(line)
	if err != nil {
		return nil, err
	}

	if raw.Port == cells.ManualPort {
		return nil, &cells.ManualChannelError{}
	}

	avg, noise, err := xgen.Reduce(raw.Vals, raw.ReportedAvg)
	if err != nil {
		return nil, err
	}

	r := &Reading{
		Kind:      raw.Kind,
		Timestamp: timestamp,
		Current:   avg,
		Index:     index,
	}
	if noise != 0 {
		snr := avg / noise
		r.SNR = &snr
	}

	if raw.Kind == xgen.KindBackground {
		return r, nil
	}

	cell, err := registry.FindByPort(raw.Port)
	if err != nil {
		return nil, err
	}
	r.Cell = cell
	r.Params = make(map[string]*float64, len(cell.Params))
	for _, p := range cell.Params {
		r.Params[p] = nil
	}
	temp := raw.Temp
	r.Params[cells.TempParam] = &temp
	return r, nil
}

// CorrectedReading is a flux reading with its paired background
// subtracted. Created once by Correct and immutable afterwards, except
// that unset parameter values may be filled in by an external
// metadata-resolution step before persisting.
type CorrectedReading struct {
	Timestamp          time.Time
	Cell               *cells.Cell
	Params             map[string]*float64
	Current            float64
	SNR                *float64
	SignalToBackground float64
	MeasBetween        *int
}

// TimestampMismatchError reports a flux/background pair whose timestamps
// disagree. Pairing is scoped to a single file, so this is a defensive
// invariant check.
type TimestampMismatchError struct {
	Flux       time.Time
	Background time.Time
}

func (e *TimestampMismatchError) Error() string {
	return fmt.Sprintf("flux reading timestamp %s does not match background timestamp %s",
		e.Flux.Format(time.DateTime), e.Background.Format(time.DateTime))
}

// MissingBackgroundWarning reports a flux reading that had no later
// background measurement in its file. The reading is dropped; processing
// continues.
type MissingBackgroundWarning struct {
	CellName  string
	Timestamp time.Time
	Index     int
}

func (w MissingBackgroundWarning) String() string {
	return fmt.Sprintf("no background measurement follows flux reading %d for %s at %s; reading dropped",
		w.Index, w.CellName, w.Timestamp.Format(time.DateTime))
}
