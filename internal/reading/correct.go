package reading

import (
	"math"

	"github.com/banshee-data/fluxlog/internal/xgen"
)

// Correct pairs each flux reading with the first background reading that
// follows it in file order and subtracts the background. Backgrounds are
// not consumed: consecutive flux readings may share one background. A
// flux reading with no later background is dropped with a warning rather
// than failing the batch.
//
// The input must be the readings of a single source file in file order.
func Correct(readings []*Reading) ([]*CorrectedReading, []MissingBackgroundWarning, error) {
	var fluxes, backgrounds []*Reading
	for _, r := range readings {
		switch r.Kind {
		case xgen.KindFlux:
			fluxes = append(fluxes, r)
		case xgen.KindBackground:
			backgrounds = append(backgrounds, r)
		}
	}

	var corrected []*CorrectedReading
	var warnings []MissingBackgroundWarning

	for _, flux := range fluxes {
		bg := firstFollowing(backgrounds, flux.Index)
		if bg == nil {
			warnings = append(warnings, MissingBackgroundWarning{
				CellName:  flux.Cell.Name,
				Timestamp: flux.Timestamp,
				Index:     flux.Index,
			})
			continue
		}

		cr, err := pair(flux, bg)
		if err != nil {
			return nil, warnings, err
		}
		corrected = append(corrected, cr)
	}
	return corrected, warnings, nil
}

// firstFollowing returns the first background whose sequence index is
// strictly greater than index, or nil.
func firstFollowing(backgrounds []*Reading, index int) *Reading {
	for _, bg := range backgrounds {
		if bg.Index > index {
			return bg
		}
	}
	return nil
}

// pair subtracts background from flux and propagates the noise figures.
func pair(flux, bg *Reading) (*CorrectedReading, error) {
	if !flux.Timestamp.Equal(bg.Timestamp) {
		return nil, &TimestampMismatchError{Flux: flux.Timestamp, Background: bg.Timestamp}
	}

	current := flux.Current - bg.Current

	cr := &CorrectedReading{
		Timestamp: flux.Timestamp,
		Cell:      flux.Cell,
		Params:    flux.Params,
		Current:   current,
		// IEEE-754 division: a zero background current yields ±Inf.
		SignalToBackground: flux.Current / bg.Current,
	}

	if flux.SNR != nil && bg.SNR != nil {
		noiseFlux := flux.Current / *flux.SNR
		noiseBG := bg.Current / *bg.SNR
		snr := current / math.Sqrt(noiseFlux*noiseFlux+noiseBG*noiseBG)
		cr.SNR = &snr
	}

	between := bg.Index - flux.Index
	cr.MeasBetween = &between
	return cr, nil
}
