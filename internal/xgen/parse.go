// Package xgen parses the flux-measurement log format produced by the
// XGEN MBE control software and reduces each recorded measurement to a
// calibrated MIG current.
package xgen

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NumSamples is the number of raw MIG samples the instrument records per
// measurement line.
const NumSamples = 24

// Kind distinguishes the two measurement types the instrument logs.
type Kind int

const (
	// KindFlux is a measurement of a cell's emission signal ("Fluxcal").
	KindFlux Kind = iota
	// KindBackground is a measurement of the ambient background signal.
	KindBackground
)

func (k Kind) String() string {
	switch k {
	case KindFlux:
		return "Fluxcal"
	case KindBackground:
		return "Background"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FormatError reports input that does not match the expected XGEN log
// grammar. Input carries the offending line or filename verbatim.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unrecognized XGEN flux log format: %q", e.Input)
}

// RawReading is one parsed measurement line before reduction.
// The line's own reading counter is not stored: it stops counting at 10
// and callers must maintain their own per-file sequence index.
type RawReading struct {
	Kind        Kind
	Port        int
	Temp        float64
	ReportedAvg float64
	Vals        []float64
}

// The instrument pads the measurement type token to the width of
// "Background". Some firmware revisions emit a trailing comma after the
// last sample.
var lineRe = regexp.MustCompile(
	`^(Fluxcal\s*|Background), Cell, (\d+), Reading, (\d+), ` +
		`Temp, (-?\d+\.\d+), Average, (-?\d+\.\d+), ` +
		`Readings((?:, -?\d+\.\d+ ){24}),?[ \t]*$`)

var filenameRe = regexp.MustCompile(
	`^FluxReadingCell(\d{1,2})_01_(\d{8})_(\d{6})\.txt$`)

// ParseFilename extracts the MIG port and measurement timestamp from a
// flux data file name of the form
// FluxReadingCell<port>_01_<YYYYMMDD>_<HHMMSS>.txt.
func ParseFilename(path string) (port int, timestamp time.Time, err error) {
	name := filepath.Base(path)
	m := filenameRe.FindStringSubmatch(name)
	if m == nil {
		return 0, time.Time{}, &FormatError{Input: name}
	}

	port, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, time.Time{}, &FormatError{Input: name}
	}

	timestamp, err = time.Parse("20060102_150405", m[2]+"_"+m[3])
	if err != nil {
		return 0, time.Time{}, &FormatError{Input: name}
	}
	return port, timestamp, nil
}

// ParseLine parses one non-blank XGEN log line into a RawReading.
func ParseLine(line string) (*RawReading, error) {
	trimmed := strings.TrimRight(line, "\r\n")
	m := lineRe.FindStringSubmatch(trimmed)
	if m == nil {
		return nil, &FormatError{Input: line}
	}

	r := &RawReading{}
	switch strings.TrimSpace(m[1]) {
	case "Fluxcal":
		r.Kind = KindFlux
	case "Background":
		r.Kind = KindBackground
	}

	var err error
	if r.Port, err = strconv.Atoi(m[2]); err != nil {
		return nil, &FormatError{Input: line}
	}
	if r.Temp, err = strconv.ParseFloat(m[4], 64); err != nil {
		return nil, &FormatError{Input: line}
	}
	if r.ReportedAvg, err = strconv.ParseFloat(m[5], 64); err != nil {
		return nil, &FormatError{Input: line}
	}

	r.Vals = make([]float64, 0, NumSamples)
	for _, field := range strings.Split(m[6], ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, &FormatError{Input: line}
		}
		r.Vals = append(r.Vals, v)
	}
	if len(r.Vals) != NumSamples {
		return nil, &FormatError{Input: line}
	}
	return r, nil
}
