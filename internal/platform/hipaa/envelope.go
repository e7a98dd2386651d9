package hipaa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Category file names inside each collection directory.
const (
	PlainFile  = "data-plain.json"
	SealedFile = "data.json"
)

var jsonNull = json.RawMessage("null")

// Item is one record of a collection file, either plaintext or sealed. Data
// keeps each field as raw JSON so any payload shape can be sealed.
type Item struct {
	ID   string                     `json:"id"`
	Data map[string]json.RawMessage `json:"data"`
}

// Envelope seals items under per-item DEKs wrapped with a KEK.
type Envelope struct {
	kek *Cipher
}

// NewEnvelope creates an Envelope for a 32-byte KEK.
func NewEnvelope(kek []byte) (*Envelope, error) {
	c, err := NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("key encryption key: %w", err)
	}
	return &Envelope{kek: c}, nil
}

// Seal encrypts every non-plaintext field of item with a fresh DEK. Sealed
// fields are renamed encrypted_<field>; null fields stay null. The wrapped
// DEK is stored as encrypted_dek.
func (e *Envelope) Seal(item Item) (Item, error) {
	dek, err := NewKey()
	if err != nil {
		return Item{}, err
	}
	fields, err := NewCipher(dek)
	if err != nil {
		return Item{}, err
	}
	wrapped, err := e.kek.SealString(dek)
	if err != nil {
		return Item{}, fmt.Errorf("wrap data key: %w", err)
	}

	out := Item{ID: item.ID, Data: make(map[string]json.RawMessage, len(item.Data)+1)}
	out.Data[EncryptedDEKField] = quote(wrapped)
	for field, raw := range item.Data {
		if IsPlaintext(field) {
			out.Data[field] = raw
			continue
		}
		if isNull(raw) {
			out.Data[EncryptedName(field)] = jsonNull
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return Item{}, fmt.Errorf("item %s field %s: %w", item.ID, field, err)
		}
		sealed, err := fields.SealString(compact.Bytes())
		if err != nil {
			return Item{}, fmt.Errorf("item %s field %s: %w", item.ID, field, err)
		}
		out.Data[EncryptedName(field)] = quote(sealed)
	}
	return out, nil
}

// Open reverses Seal: it unwraps the item's DEK and decrypts every
// encrypted_<field> back to <field>.
func (e *Envelope) Open(item Item) (Item, error) {
	var wrapped string
	if err := json.Unmarshal(item.Data[EncryptedDEKField], &wrapped); err != nil || wrapped == "" {
		return Item{}, fmt.Errorf("item %s: missing %s", item.ID, EncryptedDEKField)
	}
	dek, err := e.kek.OpenString(wrapped)
	if err != nil {
		return Item{}, fmt.Errorf("item %s: unwrap data key: %w", item.ID, err)
	}
	fields, err := NewCipher(dek)
	if err != nil {
		return Item{}, fmt.Errorf("item %s: %w", item.ID, err)
	}

	out := Item{ID: item.ID, Data: make(map[string]json.RawMessage, len(item.Data))}
	for name, raw := range item.Data {
		if name == EncryptedDEKField {
			continue
		}
		field, ok := PlainName(name)
		if !ok {
			out.Data[name] = raw
			continue
		}
		if isNull(raw) {
			out.Data[field] = jsonNull
			continue
		}
		var sealed string
		if err := json.Unmarshal(raw, &sealed); err != nil {
			return Item{}, fmt.Errorf("item %s field %s: %w", item.ID, field, err)
		}
		plain, err := fields.OpenString(sealed)
		if err != nil {
			return Item{}, fmt.Errorf("item %s field %s: %w", item.ID, field, err)
		}
		out.Data[field] = plain
	}
	return out, nil
}

// Result describes one sealed collection file.
type Result struct {
	Category string `json:"category"`
	Path     string `json:"path"`
	Records  int    `json:"records"`
}

// EncryptDir seals <dir>/<category>/data-plain.json into data.json for each
// category. Categories without a plaintext file are skipped with a warning.
// A failing category does not stop the others.
func (e *Envelope) EncryptDir(dir string, categories []string, logger zerolog.Logger) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	for _, cat := range categories {
		src := filepath.Join(dir, cat, PlainFile)
		res, err := e.encryptFile(src, filepath.Join(dir, cat, SealedFile))
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Str("category", cat).Str("path", src).Msg("plaintext data file not found, skipping")
			continue
		}
		if err != nil {
			logger.Error().Err(err).Str("category", cat).Msg("encrypt category failed")
			errs = append(errs, fmt.Errorf("%s: %w", cat, err))
			continue
		}
		res.Category = cat
		logger.Info().Str("category", cat).Int("records", res.Records).Msg("category encrypted")
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (e *Envelope) encryptFile(src, dst string) (Result, error) {
	raw, err := os.ReadFile(src)
	if err != nil {
		return Result{}, err
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", src, err)
	}

	sealed := make([]Item, 0, len(items))
	for _, it := range items {
		s, err := e.Seal(it)
		if err != nil {
			return Result{}, err
		}
		sealed = append(sealed, s)
	}

	out, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encode %s: %w", dst, err)
	}
	if err := os.WriteFile(dst, append(out, '\n'), 0o644); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", dst, err)
	}
	return Result{Path: dst, Records: len(sealed)}, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

func quote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
