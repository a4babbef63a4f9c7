// Package fluxstore persists background-corrected MIG readings into
// per-cell plain-text files and merges new data with what is already on
// disk, detecting conflicts per (cell, timestamp).
package fluxstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/fluxlog/internal/cells"
	"github.com/banshee-data/fluxlog/internal/reading"
)

// TimeLayout is the timestamp format used in store files.
const TimeLayout = "2006-01-02 15:04:05"

// FileName returns the store file name for a cell.
func FileName(c *cells.Cell) string {
	return c.Name + ".txt"
}

// Header returns the store header line for a cell. The parameter columns
// are exactly the cell's registered parameters in order, so the header
// doubles as a schema fingerprint: a file written under a different
// parameter set fails to load rather than being silently merged over.
func Header(c *cells.Cell) string {
	fields := make([]string, 0, len(c.Params)+5)
	fields = append(fields, "Timestamp")
	fields = append(fields, c.Params...)
	fields = append(fields,
		"MIG (nA)", "Signal-to-noise", "Signal-to-background",
		"Num meas between sig and BG")
	return strings.Join(fields, ", ")
}

// HeaderMismatchError reports a store file whose header does not match
// the header the current cell registry would generate.
type HeaderMismatchError struct {
	Cell string
	Got  string
	Want string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("store header for %s does not match the registered cell parameters:\ngot:  %s\nwant: %s",
		e.Cell, e.Got, e.Want)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatRow(r *reading.CorrectedReading) string {
	fields := make([]string, 0, len(r.Cell.Params)+5)
	fields = append(fields, r.Timestamp.Format(TimeLayout))
	for _, p := range r.Cell.Params {
		fields = append(fields, formatOptFloat(r.Params[p]))
	}
	fields = append(fields,
		formatFloat(r.Current),
		formatOptFloat(r.SNR),
		formatFloat(r.SignalToBackground),
		formatOptInt(r.MeasBetween))
	return strings.Join(fields, ", ")
}

// Encode renders a cell's readings as a store file: header plus one row
// per reading, in the order given.
func Encode(c *cells.Cell, rs []*reading.CorrectedReading) []byte {
	var b strings.Builder
	b.WriteString(Header(c))
	b.WriteByte('\n')
	for _, r := range rs {
		b.WriteString(formatRow(r))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Decode parses a store file back into corrected readings for c,
// verifying the header against the cell's current parameter set.
func Decode(c *cells.Cell, data []byte) ([]*reading.CorrectedReading, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return nil, &HeaderMismatchError{Cell: c.Name, Got: "", Want: Header(c)}
	}
	if got := strings.TrimSpace(lines[i]); got != Header(c) {
		return nil, &HeaderMismatchError{Cell: c.Name, Got: got, Want: Header(c)}
	}
	i++

	var out []*reading.CorrectedReading
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		r, err := parseRow(c, line)
		if err != nil {
			return nil, fmt.Errorf("store row %q for %s: %w", line, c.Name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func parseRow(c *cells.Cell, line string) (*reading.CorrectedReading, error) {
	fields := strings.Split(line, ",")
	want := len(c.Params) + 5
	if len(fields) != want {
		return nil, fmt.Errorf("expected %d fields, got %d", want, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	ts, err := time.Parse(TimeLayout, fields[0])
	if err != nil {
		return nil, fmt.Errorf("bad timestamp: %w", err)
	}

	r := &reading.CorrectedReading{
		Timestamp: ts,
		Cell:      c,
		Params:    make(map[string]*float64, len(c.Params)),
	}
	for i, p := range c.Params {
		v, err := parseOptFloat(fields[1+i])
		if err != nil {
			return nil, fmt.Errorf("bad value for %s: %w", p, err)
		}
		r.Params[p] = v
	}

	rest := fields[1+len(c.Params):]
	if r.Current, err = strconv.ParseFloat(rest[0], 64); err != nil {
		return nil, fmt.Errorf("bad MIG current: %w", err)
	}
	if r.SNR, err = parseOptFloat(rest[1]); err != nil {
		return nil, fmt.Errorf("bad signal-to-noise: %w", err)
	}
	if r.SignalToBackground, err = strconv.ParseFloat(rest[2], 64); err != nil {
		return nil, fmt.Errorf("bad signal-to-background: %w", err)
	}
	if rest[3] != "" {
		n, err := strconv.Atoi(rest[3])
		if err != nil {
			return nil, fmt.Errorf("bad measurement gap: %w", err)
		}
		r.MeasBetween = &n
	}
	return r, nil
}

func parseOptFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
