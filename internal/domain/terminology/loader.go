package terminology

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Minimum pipe-delimited field counts per file kind.
const (
	CodeDisplayFields   = 2 // code|display
	CodeDisplaySeverity = 3 // code|display|severity
)

// parenthetical matches SNOMED semantic tags such as "(disorder)".
var parenthetical = regexp.MustCompile(`\([^)]*\)`)

// Parse reads pipe-delimited entries from r. Lines with fewer than
// minFields fields are skipped. The severity column is only kept when
// minFields requires it.
func Parse(r io.Reader, minFields int) (Table, error) {
	var table Table
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		parts := strings.Split(strings.TrimSpace(sc.Text()), "|")
		if len(parts) < minFields || len(parts) < CodeDisplayFields {
			continue
		}
		e := Entry{
			Code:    strings.TrimSpace(parts[0]),
			Display: strings.TrimSpace(parenthetical.ReplaceAllString(parts[1], "")),
		}
		if minFields >= CodeDisplaySeverity {
			e.Severity = strings.TrimSpace(parts[2])
		}
		table = append(table, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan terminology: %w", err)
	}
	return table, nil
}

// LoadFile parses a terminology file. A missing file is reported as an
// error wrapping fs.ErrNotExist.
func LoadFile(path string, minFields int) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open terminology file %s: %w", path, err)
	}
	defer f.Close()

	table, err := Parse(f, minFields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// LoadOptional is LoadFile for sources the run can do without: a missing or
// unreadable file degrades to an empty table and a warning.
func LoadOptional(path string, minFields int, logger zerolog.Logger) Table {
	table, err := LoadFile(path, minFields)
	if err != nil {
		evt := logger.Warn().Err(err).Str("path", path)
		if errors.Is(err, fs.ErrNotExist) {
			evt.Msg("terminology file not found, using empty table")
		} else {
			evt.Msg("terminology file unreadable, using empty table")
		}
		return Table{}
	}
	logger.Debug().Str("path", path).Int("entries", table.Len()).Msg("terminology loaded")
	return table
}

// Paths locates the file-backed terminology tables.
type Paths struct {
	Disorders         string
	AllergyNames      string
	AllergyReactions  string
	AllergySubstances string
}

// Set is the file-backed terminology used by one generation run.
type Set struct {
	Disorders         Table
	AllergyNames      Table
	AllergyReactions  Table
	AllergySubstances Table
}

// LoadSet loads every file in paths, degrading missing files to empty
// tables.
func LoadSet(paths Paths, logger zerolog.Logger) Set {
	return Set{
		Disorders:         LoadOptional(paths.Disorders, CodeDisplayFields, logger),
		AllergyNames:      LoadOptional(paths.AllergyNames, CodeDisplayFields, logger),
		AllergyReactions:  LoadOptional(paths.AllergyReactions, CodeDisplaySeverity, logger),
		AllergySubstances: LoadOptional(paths.AllergySubstances, CodeDisplayFields, logger),
	}
}
