// Package cells holds the static catalog of MBE flux source channels.
//
// Each cell describes one physical source (effusion cell or cracker) on the
// growth chamber: its MIG multiplexer port and the ordered list of process
// parameters that get recorded with every flux measurement. The catalog is
// populated at startup and never mutated afterwards, so it is safe for
// concurrent reads.
package cells

import (
	"fmt"
)

// TempParam is the temperature parameter present on every cell. It is
// always the first entry of Cell.Params.
const TempParam = "Temp (°C)"

// ManualPort is reserved for manual (non-automated) MIG measurements.
// Readings on this port carry no machine-parseable cell association and
// must be rejected before registry lookup.
const ManualPort = 0

// Cell is one flux source channel. Immutable once constructed.
type Cell struct {
	Name     string
	Port     int
	Params   []string
	Defaults map[string]*float64
}

// New constructs a Cell. extraParams lists the cell parameters beyond the
// temperature parameter, in recording order. defaults maps parameter names
// to default values; every key must name a cell parameter.
func New(name string, port int, extraParams []string, defaults map[string]float64) (*Cell, error) {
	if name == "" {
		return nil, fmt.Errorf("cell name must not be empty")
	}
	if port < 1 {
		return nil, fmt.Errorf("cell %q: port must be >= 1, got %d", name, port)
	}

	params := append([]string{TempParam}, extraParams...)

	c := &Cell{
		Name:     name,
		Port:     port,
		Params:   params,
		Defaults: make(map[string]*float64, len(params)),
	}
	for _, p := range params {
		c.Defaults[p] = nil
	}
	for p, v := range defaults {
		if _, ok := c.Defaults[p]; !ok {
			return nil, fmt.Errorf("cell %q: cannot set default for %q: not a cell parameter", name, p)
		}
		val := v
		c.Defaults[p] = &val
	}
	return c, nil
}

// NewSingleFilamentCell is a preset for a plain single-filament effusion
// cell with no parameters beyond temperature.
func NewSingleFilamentCell(name string, port int) (*Cell, error) {
	return New(name, port, nil, nil)
}

// NewDualFilamentCell is a preset for a dual-filament cell with a tip
// ratio parameter.
func NewDualFilamentCell(name string, port int, tipRatioDefault float64) (*Cell, error) {
	return New(name, port,
		[]string{"Tip Ratio (%)"},
		map[string]float64{"Tip Ratio (%)": tipRatioDefault})
}

// NewArsenicCell is a preset for a valved arsenic cracker.
func NewArsenicCell(name string, port int, crackTempDefault float64) (*Cell, error) {
	return New(name, port,
		[]string{"Valve (%)", "Crack Temp (°C)", "Time after opening (min)"},
		map[string]float64{"Crack Temp (°C)": crackTempDefault})
}

// NewAntimonyCell is a preset for a valved antimony cracker with a
// condensation zone.
func NewAntimonyCell(name string, port int, crackTempDefault, condTempDefault float64) (*Cell, error) {
	return New(name, port,
		[]string{"Valve (%)", "Crack Temp (°C)", "Cond Temp (°C)"},
		map[string]float64{
			"Crack Temp (°C)": crackTempDefault,
			"Cond Temp (°C)":  condTempDefault,
		})
}

// UnknownChannelError reports a port with no registered cell.
type UnknownChannelError struct {
	Port int
	Name string
}

func (e *UnknownChannelError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no cell with name %q", e.Name)
	}
	return fmt.Sprintf("no cell with port %d", e.Port)
}

// ManualChannelError reports a reading on the reserved manual port.
type ManualChannelError struct{}

func (e *ManualChannelError) Error() string {
	return fmt.Sprintf("port %d is reserved for manual measurements and cannot be processed", ManualPort)
}

// List is a read-only cell catalog with unique names and ports.
type List struct {
	cells []*Cell
}

// NewList builds a List, validating name and port uniqueness.
func NewList(cs ...*Cell) (*List, error) {
	byName := make(map[string]bool, len(cs))
	byPort := make(map[int]bool, len(cs))
	for _, c := range cs {
		if byName[c.Name] {
			return nil, fmt.Errorf("duplicate cell name %q", c.Name)
		}
		if byPort[c.Port] {
			return nil, fmt.Errorf("duplicate cell port %d (%q)", c.Port, c.Name)
		}
		byName[c.Name] = true
		byPort[c.Port] = true
	}
	return &List{cells: cs}, nil
}

// FindByPort returns the cell on the given port.
func (l *List) FindByPort(port int) (*Cell, error) {
	for _, c := range l.cells {
		if c.Port == port {
			return c, nil
		}
	}
	return nil, &UnknownChannelError{Port: port}
}

// FindByName returns the cell with the given name.
func (l *List) FindByName(name string) (*Cell, error) {
	for _, c := range l.cells {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, &UnknownChannelError{Name: name}
}

// Cells returns the catalog in registration order.
func (l *List) Cells() []*Cell {
	return l.cells
}

// DefaultList is the 2020-2021 campaign port table. Port assignments
// change between campaigns; use Load to override from a config file.
func DefaultList() *List {
	must := func(c *Cell, err error) *Cell {
		if err != nil {
			panic(err)
		}
		return c
	}
	l, err := NewList(
		must(NewArsenicCell("As", 1, 950)),
		must(NewDualFilamentCell("In1", 2, 200)),
		must(NewSingleFilamentCell("Al2", 6)),
		must(NewDualFilamentCell("Ga2", 7, 250)),
		must(NewDualFilamentCell("Ga1", 8, 350)),
		must(NewDualFilamentCell("In2", 9, 200)),
		must(NewSingleFilamentCell("Al1", 10)),
		must(NewAntimonyCell("Sb", 11, 950, 800)),
	)
	if err != nil {
		panic(err)
	}
	return l
}
