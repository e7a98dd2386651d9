package terminology

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownTable = errors.New("unknown terminology table")
	ErrCodeNotFound = errors.New("code not found")
)

// Table names exposed by the Service.
const (
	TableDisorders         = "disorders"
	TableAllergyNames      = "allergy-names"
	TableAllergyReactions  = "allergy-reactions"
	TableAllergySubstances = "allergy-substances"
)

// TableInfo describes one loaded table.
type TableInfo struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// Service provides search and lookup over the loaded terminology files.
type Service struct {
	tables map[string]Table
}

// NewService creates a new terminology service over set.
func NewService(set Set) *Service {
	return &Service{tables: map[string]Table{
		TableDisorders:         set.Disorders,
		TableAllergyNames:      set.AllergyNames,
		TableAllergyReactions:  set.AllergyReactions,
		TableAllergySubstances: set.AllergySubstances,
	}}
}

// Tables lists every table with its entry count, sorted by name.
func (s *Service) Tables() []TableInfo {
	out := make([]TableInfo, 0, len(s.tables))
	for name, t := range s.tables {
		out = append(out, TableInfo{Name: name, Entries: t.Len()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) table(name string) (Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// Search returns entries whose code starts with query or whose display
// contains it, case-insensitively.
func (s *Service) Search(ctx context.Context, table, query string, limit int) ([]Entry, error) {
	if query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	if limit <= 0 {
		limit = 20
	}
	t, err := s.table(table)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	results := []Entry{}
	for _, e := range t {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.HasPrefix(e.Code, query) || strings.Contains(strings.ToLower(e.Display), q) {
			results = append(results, e)
			if len(results) == limit {
				break
			}
		}
	}
	return results, nil
}

// Lookup looks up a single code.
func (s *Service) Lookup(ctx context.Context, table, code string) (Entry, error) {
	if code == "" {
		return Entry{}, fmt.Errorf("code is required")
	}
	t, err := s.table(table)
	if err != nil {
		return Entry{}, err
	}
	e, ok := t.Lookup(code)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s in %s", ErrCodeNotFound, code, table)
	}
	return e, nil
}
