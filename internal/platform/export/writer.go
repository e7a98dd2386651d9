// Package export writes generated collections to disk: one file per
// category under the output directory, plus an optional financial ledger
// workbook.
package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ehr/demodata/internal/platform/sandbox"
)

// Format selects the on-disk encoding of a category file.
type Format string

const (
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown output format")

// PlainFileStem is the base name of unencrypted category files.
const PlainFileStem = "data-plain"

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatNDJSON:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Result describes one written category file.
type Result struct {
	Category sandbox.Category `json:"category"`
	Path     string           `json:"path"`
	Records  int              `json:"records"`
}

// Writer writes each category to <dir>/<category>/data-plain.<format>.
type Writer struct {
	dir    string
	format Format
	logger zerolog.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, format Format, logger zerolog.Logger) *Writer {
	return &Writer{dir: dir, format: format, logger: logger}
}

// Path returns the destination file for category.
func (w *Writer) Path(cat sandbox.Category) string {
	return filepath.Join(w.dir, string(cat), PlainFileStem+"."+string(w.format))
}

// WriteAll writes every category in cats, or all categories when cats is
// empty. A failing category does not stop the others; all failures are
// returned joined. Files already written are left in place.
func (w *Writer) WriteAll(c *sandbox.Collections, cats ...sandbox.Category) ([]Result, error) {
	if len(cats) == 0 {
		cats = sandbox.Categories
	}

	var (
		results []Result
		errs    []error
	)
	for _, cat := range cats {
		res, err := w.Write(c, cat)
		if err != nil {
			w.logger.Error().Err(err).Str("category", string(cat)).Msg("write category failed")
			errs = append(errs, err)
			continue
		}
		w.logger.Info().Str("category", string(cat)).Str("path", res.Path).Int("records", res.Records).Msg("category written")
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// Write writes a single category, replacing any previous file. A plaintext
// file left in the other format is removed so readers never see stale data.
func (w *Writer) Write(c *sandbox.Collections, cat sandbox.Category) (Result, error) {
	records, err := c.Records(cat)
	if err != nil {
		return Result{}, err
	}
	path := w.Path(cat)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, fmt.Errorf("create %s directory: %w", cat, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)

	switch w.format {
	case FormatNDJSON:
		err = sandbox.ExportNDJSON(bw, c, cat)
	default:
		enc := json.NewEncoder(bw)
		enc.SetIndent("", "  ")
		err = enc.Encode(records)
	}
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Result{}, fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.removeStale(cat); err != nil {
		return Result{}, err
	}
	return Result{Category: cat, Path: path, Records: c.Len(cat)}, nil
}

func (w *Writer) removeStale(cat sandbox.Category) error {
	for _, f := range []Format{FormatJSON, FormatNDJSON} {
		if f == w.format {
			continue
		}
		stale := filepath.Join(w.dir, string(cat), PlainFileStem+"."+string(f))
		if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale %s: %w", stale, err)
		}
	}
	return nil
}
