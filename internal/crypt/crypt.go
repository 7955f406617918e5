// Package crypt provides at-rest encryption for riddle content and stored
// API keys.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrDecryptionFailed indicates the ciphertext is malformed or was produced
// under a different key. Callers must treat the affected field as lost, not
// retry.
var ErrDecryptionFailed = errors.New("decryption failed")

// Gate encrypts and decrypts text with a single process-wide symmetric key
// derived from the configured secret.
type Gate struct {
	aead cipher.AEAD
}

// New derives an AES-256-GCM key from secret. The secret may be any
// non-empty string; it is hashed to key length.
func New(secret string) (*Gate, error) {
	if secret == "" {
		return nil, errors.New("encryption secret cannot be empty")
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &Gate{aead: aead}, nil
}

// Encrypt returns a base64 ciphertext with the nonce prepended.
func (g *Gate) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := g.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Any malformed input or key mismatch yields
// ErrDecryptionFailed.
func (g *Gate) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: bad encoding", ErrDecryptionFailed)
	}
	if len(raw) < g.aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, sealed := raw[:g.aead.NonceSize()], raw[g.aead.NonceSize():]
	plain, err := g.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plain), nil
}
