package fluxstore

import (
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/fluxlog/internal/cells"
	"github.com/banshee-data/fluxlog/internal/reading"
)

// Key identifies one batch of corrected readings: a cell and the
// measurement event timestamp shared by the batch.
type Key struct {
	Cell      string
	Timestamp time.Time
}

func (k Key) String() string {
	return fmt.Sprintf("%s at %s", k.Cell, k.Timestamp.Format(TimeLayout))
}

// Grouped is a two-level partition of corrected readings: cell name →
// timestamp → readings in insertion order. Cell and timestamp insertion
// order is preserved.
type Grouped struct {
	byCell    map[string]*cellGroup
	cellOrder []string
}

type cellGroup struct {
	cell      *cells.Cell
	byTime    map[time.Time][]*reading.CorrectedReading
	timeOrder []time.Time
}

// Group partitions readings by (cell, timestamp).
func Group(rs []*reading.CorrectedReading) *Grouped {
	g := &Grouped{byCell: make(map[string]*cellGroup)}
	for _, r := range rs {
		g.Add(r)
	}
	return g
}

// Add appends r to its (cell, timestamp) batch.
func (g *Grouped) Add(r *reading.CorrectedReading) {
	cg, ok := g.byCell[r.Cell.Name]
	if !ok {
		cg = &cellGroup{
			cell:   r.Cell,
			byTime: make(map[time.Time][]*reading.CorrectedReading),
		}
		g.byCell[r.Cell.Name] = cg
		g.cellOrder = append(g.cellOrder, r.Cell.Name)
	}
	if _, ok := cg.byTime[r.Timestamp]; !ok {
		cg.timeOrder = append(cg.timeOrder, r.Timestamp)
	}
	cg.byTime[r.Timestamp] = append(cg.byTime[r.Timestamp], r)
}

// CellNames returns the partition's cell names in insertion order.
func (g *Grouped) CellNames() []string {
	return g.cellOrder
}

// Cell returns the registry entry for a partitioned cell name.
func (g *Grouped) Cell(name string) (*cells.Cell, bool) {
	cg, ok := g.byCell[name]
	if !ok {
		return nil, false
	}
	return cg.cell, true
}

// Lookup returns the readings stored under (cellName, ts).
func (g *Grouped) Lookup(cellName string, ts time.Time) ([]*reading.CorrectedReading, bool) {
	cg, ok := g.byCell[cellName]
	if !ok {
		return nil, false
	}
	rs, ok := cg.byTime[ts]
	return rs, ok
}

// Keys returns every (cell, timestamp) key in insertion order.
func (g *Grouped) Keys() []Key {
	var keys []Key
	for _, name := range g.cellOrder {
		cg := g.byCell[name]
		for _, ts := range cg.timeOrder {
			keys = append(keys, Key{Cell: name, Timestamp: ts})
		}
	}
	return keys
}

// CellReadings returns one cell's readings flattened, optionally with
// timestamp batches sorted ascending.
func (g *Grouped) CellReadings(name string, sortTimestamps bool) []*reading.CorrectedReading {
	cg, ok := g.byCell[name]
	if !ok {
		return nil
	}
	order := cg.timeOrder
	if sortTimestamps {
		order = make([]time.Time, len(cg.timeOrder))
		copy(order, cg.timeOrder)
		sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })
	}
	var out []*reading.CorrectedReading
	for _, ts := range order {
		out = append(out, cg.byTime[ts]...)
	}
	return out
}

// Flatten is the inverse of Group: cells in insertion order, each cell's
// batches optionally timestamp-sorted, readings in insertion order within
// a batch.
func (g *Grouped) Flatten(sortTimestamps bool) []*reading.CorrectedReading {
	var out []*reading.CorrectedReading
	for _, name := range g.cellOrder {
		out = append(out, g.CellReadings(name, sortTimestamps)...)
	}
	return out
}

// set replaces the batch under (cell, ts) wholesale.
func (g *Grouped) set(cell *cells.Cell, ts time.Time, rs []*reading.CorrectedReading) {
	cg, ok := g.byCell[cell.Name]
	if !ok {
		cg = &cellGroup{
			cell:   cell,
			byTime: make(map[time.Time][]*reading.CorrectedReading),
		}
		g.byCell[cell.Name] = cg
		g.cellOrder = append(g.cellOrder, cell.Name)
	}
	if _, ok := cg.byTime[ts]; !ok {
		cg.timeOrder = append(cg.timeOrder, ts)
	}
	cg.byTime[ts] = rs
}

// Merge combines new readings with old ones. Batches already present in
// the old data win unless overwrite is set, in which case the new batch
// replaces the old one wholesale (never an item-level merge). Cells
// absent from the old data are adopted entirely.
func Merge(newRs, oldRs []*reading.CorrectedReading, overwrite bool) []*reading.CorrectedReading {
	merged := Group(oldRs)
	newG := Group(newRs)

	for _, name := range newG.cellOrder {
		ncg := newG.byCell[name]
		old, hasCell := merged.byCell[name]
		for _, ts := range ncg.timeOrder {
			if hasCell {
				if _, exists := old.byTime[ts]; exists && !overwrite {
					continue
				}
			}
			merged.set(ncg.cell, ts, ncg.byTime[ts])
		}
	}
	return merged.Flatten(false)
}

// Conflicts returns the (cell, timestamp) keys present in both reading
// sets, in a's insertion order.
func Conflicts(a, b []*reading.CorrectedReading) []Key {
	bg := Group(b)
	var out []Key
	for _, k := range Group(a).Keys() {
		if _, ok := bg.Lookup(k.Cell, k.Timestamp); ok {
			out = append(out, k)
		}
	}
	return out
}

// DetectConflict reports whether any (cell, timestamp) key is present in
// both reading sets.
func DetectConflict(a, b []*reading.CorrectedReading) bool {
	return len(Conflicts(a, b)) > 0
}
