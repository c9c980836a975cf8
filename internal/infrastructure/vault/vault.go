// Package vault encrypts credentials and OAuth tokens at the data boundary.
// Integration rows only ever hold ciphertext produced here; decrypted values
// are transient and live for the duration of a single external call.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	keyLength = 32 // AES-256
	nonceSize = 12 // GCM standard nonce (96 bits)
	sep       = "|"
)

var (
	// ErrInvalidKey indicates the master key is missing or the wrong size
	ErrInvalidKey = errors.New("vault: master key must decode to 32 bytes")
	// ErrMalformedCiphertext indicates input not produced by Encrypt
	ErrMalformedCiphertext = errors.New("vault: malformed ciphertext")
	// ErrDecryptFailed indicates authentication or decryption failure
	ErrDecryptFailed = errors.New("vault: decryption failed")
)

// Vault performs AES-256-GCM encryption with a single master key
type Vault struct {
	aead cipher.AEAD
}

// New creates a vault from a base64-encoded 32-byte master key
func New(masterKeyB64 string) (*Vault, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(masterKeyB64))
	if err != nil || len(key) != keyLength {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce)|base64(ciphertext).
// Errors are returned, never swallowed; callers must not fall back to
// storing plaintext.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: nonce: %w", err)
	}

	ct := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens a value produced by Encrypt
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	parts := strings.Split(ciphertext, sep)
	if len(parts) != 2 {
		return "", ErrMalformedCiphertext
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", ErrMalformedCiphertext
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformedCiphertext
	}

	pt, err := v.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(pt), nil
}
