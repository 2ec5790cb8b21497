// Package output writes scraped metadata to timestamped files under a base
// directory, one subdirectory per data type.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Format selects the serialization for saved data.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("output: unknown format %q", s)
	}
}

// Writer saves data files under baseDir.
type Writer struct {
	baseDir string
	format  Format
	now     func() time.Time // swappable for tests
}

// NewWriter creates a Writer rooted at baseDir.
func NewWriter(baseDir string, format Format) (*Writer, error) {
	f, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	if baseDir == "" {
		baseDir = "scraped_data"
	}
	return &Writer{baseDir: baseDir, format: f, now: time.Now}, nil
}

// Format returns the configured serialization format.
func (w *Writer) Format() Format {
	return w.format
}

// path builds <base>/<dataType>/<name>_<timestamp>.<ext>, creating the
// directory.
func (w *Writer) path(dataType, name, ext string) (string, error) {
	dir := filepath.Join(w.baseDir, dataType)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("output: create %s: %w", dir, err)
	}
	filename := fmt.Sprintf("%s_%s.%s", name, w.now().Format("20060102_150405"), ext)
	return filepath.Join(dir, filename), nil
}

// SaveJSON writes v as indented JSON and returns the file path.
func (w *Writer) SaveJSON(dataType, name string, v any) (string, error) {
	path, err := w.path(dataType, name, "json")
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("output: marshal %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("output: write %s: %w", path, err)
	}
	return path, nil
}

// SaveCSV writes a header and rows as CSV and returns the file path.
func (w *Writer) SaveCSV(dataType, name string, header []string, rows [][]string) (string, error) {
	path, err := w.path(dataType, name, "csv")
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("output: write %s: %w", path, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return "", fmt.Errorf("output: write %s: %w", path, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("output: flush %s: %w", path, err)
	}
	return path, nil
}
