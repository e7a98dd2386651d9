// Package resident loads the assisted-living resident roster that demo data
// is generated against.
package resident

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ErrRosterNotFound is returned when the roster file does not exist.
var ErrRosterNotFound = errors.New("resident roster not found")

// Resident is the subset of a roster entry the generators need. Other
// roster fields are ignored.
type Resident struct {
	ID string `json:"id"`
}

// Roster is an ordered list of residents.
type Roster []Resident

// IDs returns the resident ids in roster order.
func (r Roster) IDs() []string {
	ids := make([]string, len(r))
	for i, res := range r {
		ids[i] = res.ID
	}
	return ids
}

// Contains reports whether id belongs to a resident in the roster.
func (r Roster) Contains(id string) bool {
	for _, res := range r {
		if res.ID == id {
			return true
		}
	}
	return false
}

// Decode parses a JSON array of residents. Entries without an id are
// rejected.
func Decode(r io.Reader) (Roster, error) {
	var roster Roster
	if err := json.NewDecoder(r).Decode(&roster); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	for i, res := range roster {
		if res.ID == "" {
			return nil, fmt.Errorf("decode roster: resident %d has no id", i)
		}
	}
	return roster, nil
}

// Load reads the roster at path.
func Load(path string) (Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRosterNotFound, path)
		}
		return nil, fmt.Errorf("open roster %s: %w", path, err)
	}
	defer f.Close()

	roster, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return roster, nil
}
