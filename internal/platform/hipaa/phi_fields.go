package hipaa

import "strings"

// Field-name conventions of sealed records.
const (
	EncryptedPrefix   = "encrypted_"
	EncryptedDEKField = "encrypted_dek"
)

// PlaintextFields are record fields left unencrypted so sealed collections
// can still be joined to their resident, recorder and prescription.
// Everything else in a record's data is PHI and is sealed.
var PlaintextFields = []string{
	"resident_id",
	"recorder_id",
	"prescription_id",
}

// IsPlaintext reports whether field stays unencrypted.
func IsPlaintext(field string) bool {
	for _, f := range PlaintextFields {
		if f == field {
			return true
		}
	}
	return false
}

// EncryptedName returns the sealed name of field, e.g. "encrypted_status".
func EncryptedName(field string) string {
	return EncryptedPrefix + field
}

// PlainName reverses EncryptedName. ok is false for names without the
// prefix and for the wrapped DEK itself.
func PlainName(name string) (field string, ok bool) {
	if name == EncryptedDEKField {
		return "", false
	}
	return strings.CutPrefix(name, EncryptedPrefix)
}
