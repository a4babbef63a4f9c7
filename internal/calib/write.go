package calib

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/fluxlog/internal/cells"
	"github.com/banshee-data/fluxlog/internal/fsutil"
)

// SummariesDir is the subfolder collecting per-growth summary files.
const SummariesDir = "Summaries"

// WriteReport saves a calibration message under <folder>/<cell>/<growth>.txt,
// uniquifying the name rather than clobbering an earlier report for the
// same growth. Returns the path written.
func WriteReport(folder string, cell *cells.Cell, growth, message string, fs fsutil.FileSystem) (string, error) {
	return writeUnique(filepath.Join(folder, cell.Name), growth, message, fs)
}

// WriteSummary saves the combined summary of a calibration run under
// <folder>/Summaries/<growth>.txt.
func WriteSummary(folder, growth, summary string, fs fsutil.FileSystem) (string, error) {
	return writeUnique(filepath.Join(folder, SummariesDir), growth, summary, fs)
}

func writeUnique(dir, growth, content string, fs fsutil.FileSystem) (string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create calibration folder: %w", err)
	}
	path := uniquify(filepath.Join(dir, growth+".txt"), fs)
	if err := fs.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write calibration file: %w", err)
	}
	return path, nil
}

// uniquify appends -(1), -(2), ... to the base name until the path does
// not collide with an existing file.
func uniquify(path string, fs fsutil.FileSystem) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; fs.Exists(path); i++ {
		path = fmt.Sprintf("%s-(%d)%s", base, i, ext)
	}
	return path
}
