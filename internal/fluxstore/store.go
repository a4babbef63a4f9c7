package fluxstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/fluxlog/internal/cells"
	"github.com/banshee-data/fluxlog/internal/fsutil"
	"github.com/banshee-data/fluxlog/internal/reading"
)

// ConfirmFunc decides whether conflicting store batches may be
// overwritten. It receives a human-readable description of the conflict.
type ConfirmFunc func(description string) bool

// Load reads the store files for the given cells from folder. A cell with
// no store file yet simply contributes nothing; other read failures and
// header mismatches are fatal.
func Load(cs []*cells.Cell, folder string, fs fsutil.FileSystem) ([]*reading.CorrectedReading, error) {
	var out []*reading.CorrectedReading
	for _, c := range cs {
		path := filepath.Join(folder, FileName(c))
		data, err := fs.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read store file for %s: %w", c.Name, err)
		}
		rs, err := Decode(c, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, rs...)
	}
	return out, nil
}

// Save merges rs into the on-disk store under folder and rewrites each
// involved cell's file with its full merged, timestamp-sorted contents.
// When new data collides with existing batches, confirm decides whether
// the new batches replace the old ones; a nil confirm never overwrites.
//
// The merge is computed before any file is touched, so conflict detection
// and the final writes see the same data. Writes are per-cell and not
// transactional across cells: a failure partway leaves earlier cells
// committed.
func Save(rs []*reading.CorrectedReading, folder string, fs fsutil.FileSystem, confirm ConfirmFunc) error {
	if len(rs) == 0 {
		return nil
	}

	newG := Group(rs)
	involved := make([]*cells.Cell, 0, len(newG.CellNames()))
	for _, name := range newG.CellNames() {
		c, _ := newG.Cell(name)
		involved = append(involved, c)
	}

	old, err := Load(involved, folder, fs)
	if err != nil {
		return err
	}

	overwrite := false
	if conflicts := Conflicts(rs, old); len(conflicts) > 0 {
		if confirm != nil {
			overwrite = confirm(describeConflicts(conflicts))
		}
	}

	merged := Group(Merge(rs, old, overwrite))

	if err := fs.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("failed to create store folder: %w", err)
	}
	for _, name := range merged.CellNames() {
		c, _ := merged.Cell(name)
		data := Encode(c, merged.CellReadings(name, true))
		path := filepath.Join(folder, FileName(c))
		if err := fs.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write store file for %s: %w", name, err)
		}
	}
	return nil
}

func describeConflicts(conflicts []Key) string {
	descs := make([]string, len(conflicts))
	for i, k := range conflicts {
		descs[i] = k.String()
	}
	return fmt.Sprintf("the flux store already contains data for: %s",
		strings.Join(descs, "; "))
}
