// Package sealbox seals stored session key values with AES-256-GCM.
// A Box without a key passes values through unchanged.
package sealbox

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

// KeySize is the required key length in bytes.
const KeySize = 32

// sealedPrefix marks values written by a keyed Box so plaintext rows written
// before a key was configured can still be read.
const sealedPrefix = "gcm1:"

// ErrInvalidSecretKey is returned when the key is not exactly KeySize bytes.
var ErrInvalidSecretKey = errors.New("secret key must be 32 bytes")

// Box seals and opens values. The zero value and a nil *Box are passthrough.
type Box struct {
	aead cipher.AEAD
}

// New creates a Box for key. An empty key yields a passthrough Box.
func New(key []byte) (*Box, error) {
	if len(key) == 0 {
		return &Box{}, nil
	}
	if len(key) != KeySize {
		return nil, ErrInvalidSecretKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: gcm}, nil
}

// Enabled reports whether values are encrypted.
func (b *Box) Enabled() bool {
	return b != nil && b.aead != nil
}

// Seal encrypts plaintext and returns the prefixed base64 of
// nonce || ciphertext || tag.
func (b *Box) Seal(plaintext string) (string, error) {
	if !b.Enabled() {
		return plaintext, nil
	}

	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values without the sealed prefix are returned as-is.
// A sealed value read without a key is an error.
func (b *Box) Open(stored string) (string, error) {
	encoded, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}
	if !b.Enabled() {
		return "", errors.New("value is sealed but no secret key is configured")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	nonceSize := b.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}
	return string(plaintext), nil
}
