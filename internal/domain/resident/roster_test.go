package resident

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "extra fields ignored",
			content: `[{"id":"r1","data":{"resident_name":"Ada","room_no":"12"}},{"id":"r2"}]`,
			want:    []string{"r1", "r2"},
		},
		{name: "empty roster", content: `[]`, want: []string{}},
		{name: "not json", content: `id,name`, wantErr: true},
		{name: "missing id", content: `[{"name":"Ada"}]`, wantErr: true},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "roster"+string(rune('a'+i))+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			roster, err := Load(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if errors.Is(err, ErrRosterNotFound) {
					t.Fatalf("parse error reported as not found: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ids := roster.IDs()
			if len(ids) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, ids)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, ids)
				}
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "residents", "data-plain.json"))
	if !errors.Is(err, ErrRosterNotFound) {
		t.Fatalf("expected ErrRosterNotFound, got %v", err)
	}
}

func TestRoster_Contains(t *testing.T) {
	r := Roster{{ID: "a"}, {ID: "b"}}
	if !r.Contains("b") || r.Contains("c") {
		t.Fatal("unexpected Contains result")
	}
}
