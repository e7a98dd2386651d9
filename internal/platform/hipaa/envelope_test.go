package hipaa

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const plainAdministrations = `[
  {
    "id": "a1",
    "data": {
      "resident_id": "r1",
      "prescription_id": "p1",
      "recorder_id": "s1",
      "status": "completed",
      "effective_datetime": "2023-01-01T09:12:00Z",
      "dosage": {
        "route": {"snomed": {"code": "26643006", "display": "oral"}},
        "administered_dose": {"value": 10, "unit": "mg"}
      },
      "note": null
    }
  }
]`

func newTestEnvelope(t *testing.T) *Envelope {
	t.Helper()
	env, err := NewEnvelope(generateTestKey(t))
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	return env
}

func decodeItems(t *testing.T, raw string) []Item {
	t.Helper()
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	return items
}

func TestEnvelope_SealLayout(t *testing.T) {
	env := newTestEnvelope(t)
	item := decodeItems(t, plainAdministrations)[0]

	sealed, err := env.Seal(item)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if sealed.ID != "a1" {
		t.Errorf("expected id preserved, got %q", sealed.ID)
	}
	for _, f := range PlaintextFields {
		if string(sealed.Data[f]) != string(item.Data[f]) {
			t.Errorf("%s: expected plaintext %s, got %s", f, item.Data[f], sealed.Data[f])
		}
	}
	if _, ok := sealed.Data["status"]; ok {
		t.Error("status should not appear unencrypted")
	}
	if strings.Contains(string(sealed.Data["encrypted_status"]), "completed") {
		t.Error("encrypted_status leaks plaintext")
	}
	if string(sealed.Data["encrypted_note"]) != "null" {
		t.Errorf("expected null field to stay null, got %s", sealed.Data["encrypted_note"])
	}
	if len(sealed.Data[EncryptedDEKField]) < 3 {
		t.Error("expected a wrapped data key")
	}
}

func TestEnvelope_RoundTrip(t *testing.T) {
	env := newTestEnvelope(t)
	item := decodeItems(t, plainAdministrations)[0]

	sealed, err := env.Seal(item)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	opened, err := env.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if len(opened.Data) != len(item.Data) {
		t.Fatalf("expected %d fields, got %d", len(item.Data), len(opened.Data))
	}
	for field, raw := range item.Data {
		var want, got any
		if err := json.Unmarshal(raw, &want); err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(opened.Data[field], &got); err != nil {
			t.Fatalf("%s: %v", field, err)
		}
		wantJSON, _ := json.Marshal(want)
		gotJSON, _ := json.Marshal(got)
		if string(wantJSON) != string(gotJSON) {
			t.Errorf("%s: got %s, want %s", field, gotJSON, wantJSON)
		}
	}
}

func TestEnvelope_DistinctKeysPerItem(t *testing.T) {
	env := newTestEnvelope(t)
	item := decodeItems(t, plainAdministrations)[0]

	a, _ := env.Seal(item)
	b, _ := env.Seal(item)
	if string(a.Data[EncryptedDEKField]) == string(b.Data[EncryptedDEKField]) {
		t.Fatal("each sealed item should carry its own data key")
	}
}

func TestEnvelope_OpenWithWrongKey(t *testing.T) {
	sealed, err := newTestEnvelope(t).Seal(decodeItems(t, plainAdministrations)[0])
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := newTestEnvelope(t).Open(sealed); err == nil {
		t.Fatal("expected error opening with a different KEK")
	}
}

func TestEnvelope_OpenMissingKey(t *testing.T) {
	env := newTestEnvelope(t)
	item := Item{ID: "x", Data: map[string]json.RawMessage{"resident_id": json.RawMessage(`"r1"`)}}
	if _, err := env.Open(item); err == nil {
		t.Fatal("expected error for item without encrypted_dek")
	}
}

func TestEnvelope_EncryptDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "prescription_administration"), 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(dir, "prescription_administration", PlainFile)
	if err := os.WriteFile(src, []byte(plainAdministrations), 0o644); err != nil {
		t.Fatal(err)
	}

	env := newTestEnvelope(t)
	results, err := env.EncryptDir(dir, []string{"prescription_administration", "financials"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("EncryptDir: %v", err)
	}
	if len(results) != 1 || results[0].Records != 1 {
		t.Fatalf("expected one sealed category with one record, got %+v", results)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "prescription_administration", SealedFile))
	if err != nil {
		t.Fatalf("read sealed file: %v", err)
	}
	items := decodeItems(t, string(raw))
	opened, err := env.Open(items[0])
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(opened.Data["status"]) != `"completed"` {
		t.Errorf("expected status restored, got %s", opened.Data["status"])
	}

	if _, err := os.Stat(filepath.Join(dir, "financials", SealedFile)); !os.IsNotExist(err) {
		t.Error("missing plaintext category should be skipped")
	}
}

func TestEnvelope_EncryptDirInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "allergies"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "allergies", PlainFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := newTestEnvelope(t).EncryptDir(dir, []string{"allergies"}, zerolog.Nop())
	if err == nil {
		t.Fatal("expected decode error")
	}
}
