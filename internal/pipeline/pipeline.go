// Package pipeline orchestrates batch ingestion of XGEN flux data files:
// filename parsing, per-line reading construction, background correction,
// and resolution of manually supplied cell parameters.
package pipeline

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/fluxlog/internal/cells"
	"github.com/banshee-data/fluxlog/internal/fluxstore"
	"github.com/banshee-data/fluxlog/internal/fsutil"
	"github.com/banshee-data/fluxlog/internal/reading"
	"github.com/banshee-data/fluxlog/internal/timeutil"
	"github.com/banshee-data/fluxlog/internal/xgen"
)

// ParamResolver supplies values for cell parameters that the instrument
// does not record. It receives the parameter names still unset for a
// (cell, timestamp) batch and the number of readings in the batch, and
// returns per-parameter value lists: one value per reading, or a single
// value to broadcast to all readings. Partial or empty responses are
// fine; unanswered parameters stay unset.
type ParamResolver func(cell *cells.Cell, timestamp time.Time, params []string, numReadings int) (map[string][]*float64, error)

// Pipeline processes flux data files sequentially. Fields may be replaced
// before first use; afterwards the pipeline is read-only.
type Pipeline struct {
	Registry *cells.List
	FS       fsutil.FileSystem
	Clock    timeutil.Clock
	Resolver ParamResolver
}

// New returns a Pipeline on the real filesystem and clock.
func New(registry *cells.List) *Pipeline {
	return &Pipeline{
		Registry: registry,
		FS:       fsutil.OSFileSystem{},
		Clock:    timeutil.RealClock{},
	}
}

// Result is the outcome of one ingest run.
type Result struct {
	RunID    string
	Readings []*reading.CorrectedReading
	Warnings []reading.MissingBackgroundWarning
}

// Ingest processes the given files in order and accumulates their
// corrected readings. An empty path list is nothing to do, not an error.
// Parse-level failures abort the run; missing-background warnings
// accumulate and are logged.
func (p *Pipeline) Ingest(paths []string) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	if len(paths) == 0 {
		log.Printf("run %s: no files selected, nothing to do", result.RunID)
		return result, nil
	}

	start := p.Clock.Now()
	for _, path := range paths {
		rs, warns, err := p.IngestFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		result.Readings = append(result.Readings, rs...)
		result.Warnings = append(result.Warnings, warns...)
	}

	for _, w := range result.Warnings {
		log.Printf("run %s: warning: %s", result.RunID, w)
	}
	log.Printf("run %s: ingested %d corrected readings from %d file(s) in %s",
		result.RunID, len(result.Readings), len(paths), p.Clock.Since(start))
	return result, nil
}

// IngestFile processes one flux data file into corrected readings.
// The per-file sequence counter starts at 0 and counts non-blank lines;
// the line-embedded counter is never used.
func (p *Pipeline) IngestFile(path string) ([]*reading.CorrectedReading, []reading.MissingBackgroundWarning, error) {
	port, timestamp, err := xgen.ParseFilename(path)
	if err != nil {
		return nil, nil, err
	}
	if port == cells.ManualPort {
		return nil, nil, &cells.ManualChannelError{}
	}

	data, err := p.FS.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read flux data file: %w", err)
	}

	var rs []*reading.Reading
	num := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := reading.Build(line, timestamp, num, p.Registry)
		if err != nil {
			return nil, nil, err
		}
		rs = append(rs, r)
		num++
	}
	return reading.Correct(rs)
}

// ResolveParams fills unset cell parameters via the configured resolver,
// one call per (cell, timestamp) batch. Without a resolver it is a no-op.
func (p *Pipeline) ResolveParams(rs []*reading.CorrectedReading) error {
	if p.Resolver == nil {
		return nil
	}

	g := fluxstore.Group(rs)
	for _, key := range g.Keys() {
		batch, _ := g.Lookup(key.Cell, key.Timestamp)
		cell := batch[0].Cell

		unset := unsetParams(cell, batch)
		if len(unset) == 0 {
			continue
		}

		vals, err := p.Resolver(cell, key.Timestamp, unset, len(batch))
		if err != nil {
			return fmt.Errorf("failed to resolve parameters for %s: %w", key, err)
		}

		for _, name := range unset {
			list, ok := vals[name]
			if !ok || len(list) == 0 {
				continue
			}
			if len(list) == 1 && len(batch) > 1 {
				list = broadcast(list[0], len(batch))
			}
			if len(list) != len(batch) {
				return fmt.Errorf("resolver returned %d value(s) for %s %s, want 1 or %d",
					len(list), cell.Name, name, len(batch))
			}
			for i, v := range list {
				if v != nil {
					batch[i].Params[name] = v
				}
			}
		}
	}
	return nil
}

// Save merges rs into the store folder through the pipeline's filesystem.
func (p *Pipeline) Save(rs []*reading.CorrectedReading, folder string, confirm fluxstore.ConfirmFunc) error {
	return fluxstore.Save(rs, folder, p.FS, confirm)
}

// unsetParams returns the cell parameters, in registration order, that
// are unset on at least one reading of the batch.
func unsetParams(cell *cells.Cell, batch []*reading.CorrectedReading) []string {
	var out []string
	for _, name := range cell.Params {
		for _, r := range batch {
			if r.Params[name] == nil {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func broadcast(v *float64, n int) []*float64 {
	out := make([]*float64, n)
	for i := range out {
		if v != nil {
			val := *v
			out[i] = &val
		}
	}
	return out
}
