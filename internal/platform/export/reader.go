package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ehr/demodata/internal/platform/sandbox"
)

// ReadDir loads the plaintext category files under dir back into
// collections. The writer keeps one plaintext format per category; should
// both exist, JSON wins. Categories with no file are left empty and logged.
func ReadDir(dir string, logger zerolog.Logger) (*sandbox.Collections, error) {
	c := &sandbox.Collections{}
	for _, cat := range sandbox.Categories {
		path, data, err := readCategory(dir, cat)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Str("category", string(cat)).Str("dir", dir).Msg("no plaintext data file, category left empty")
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := c.Decode(cat, data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug().Str("category", string(cat)).Str("path", path).Int("records", c.Len(cat)).Msg("category read")
	}
	return c, nil
}

func readCategory(dir string, cat sandbox.Category) (string, []byte, error) {
	var lastErr error
	for _, f := range []Format{FormatJSON, FormatNDJSON} {
		path := filepath.Join(dir, string(cat), PlainFileStem+"."+string(f))
		data, err := os.ReadFile(path)
		if err == nil {
			return path, data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return path, nil, fmt.Errorf("read %s: %w", path, err)
		}
		lastErr = err
	}
	return "", nil, lastErr
}
