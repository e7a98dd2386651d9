// Package hipaa encrypts generated resident collections at rest. Each record
// is sealed under its own data encryption key (DEK), and the DEK is wrapped
// with a key encryption key (KEK) supplied by the operator.
package hipaa

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes, for both DEKs and the KEK.
const KeySize = 32

// ErrInvalidKey is returned for keys of the wrong length or encoding.
var ErrInvalidKey = errors.New("invalid encryption key")

// ParseKey decodes a hex-encoded 32-byte key, as configured in
// ENCRYPTION_KEY.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return key, nil
}

// NewKey returns a fresh random 32-byte key.
func NewKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

// Cipher is AES-256-GCM with the nonce prepended to each ciphertext.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher for a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal encrypts data and returns nonce || ciphertext.
func (c *Cipher) Seal(data []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, data, nil), nil
}

// Open reverses Seal.
func (c *Cipher) Open(data []byte) ([]byte, error) {
	n := c.aead.NonceSize()
	if len(data) < n {
		return nil, errors.New("decrypt: ciphertext too short")
	}
	plain, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}

// SealString is Seal with base64 (standard encoding) output.
func (c *Cipher) SealString(data []byte) (string, error) {
	sealed, err := c.Seal(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenString decodes base64 and reverses Seal.
func (c *Cipher) OpenString(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decrypt: base64 decode: %w", err)
	}
	return c.Open(data)
}
