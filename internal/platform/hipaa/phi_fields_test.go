package hipaa

import "testing"

func TestIsPlaintext(t *testing.T) {
	for _, f := range []string{"resident_id", "recorder_id", "prescription_id"} {
		if !IsPlaintext(f) {
			t.Errorf("%s should stay plaintext", f)
		}
	}
	for _, f := range []string{"status", "medication", "amount", "id"} {
		if IsPlaintext(f) {
			t.Errorf("%s should be sealed", f)
		}
	}
}

func TestPlainName(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"encrypted_status", "status", true},
		{EncryptedName("effective_datetime"), "effective_datetime", true},
		{"encrypted_dek", "", false},
		{"resident_id", "", false},
	}
	for _, tt := range tests {
		got, ok := PlainName(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("PlainName(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
