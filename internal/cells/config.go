package cells

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CellConfig is one cell entry in a cell-table config file.
type CellConfig struct {
	Name        string             `json:"name"`
	Port        int                `json:"port"`
	ExtraParams []string           `json:"extra_params,omitempty"`
	Defaults    map[string]float64 `json:"defaults,omitempty"`
}

// TableConfig is the root of a cell-table config file.
type TableConfig struct {
	Cells []CellConfig `json:"cells"`
}

// Load reads a cell table from a JSON config file. Campaigns reassign MIG
// ports, so deployments override the built-in table with a file rather
// than a rebuild.
func Load(path string) (*List, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("cell table file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cell table: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a JSON cell table.
func Parse(data []byte) (*List, error) {
	var cfg TableConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse cell table JSON: %w", err)
	}
	if len(cfg.Cells) == 0 {
		return nil, fmt.Errorf("cell table defines no cells")
	}

	cs := make([]*Cell, 0, len(cfg.Cells))
	for _, cc := range cfg.Cells {
		c, err := New(cc.Name, cc.Port, cc.ExtraParams, cc.Defaults)
		if err != nil {
			return nil, fmt.Errorf("invalid cell table entry: %w", err)
		}
		cs = append(cs, c)
	}
	return NewList(cs...)
}
