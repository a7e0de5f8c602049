// ABOUTME: Sealing of backend tokens at rest using nacl/secretbox
// ABOUTME: Key comes from config; a random nonce is prepended to each box

package store

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// SealKeySize is the required key length in bytes.
const SealKeySize = 32

// ErrSealedTokenCorrupt is returned when a stored token fails to open,
// which means the database and the seal key disagree.
var ErrSealedTokenCorrupt = errors.New("sealed token corrupt or wrong seal key")

const nonceSize = 24

// ParseSealKey decodes a hex-encoded 32-byte seal key from config.
func ParseSealKey(hexKey string) (*[SealKeySize]byte, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("seal key is not valid hex: %w", err)
	}
	if len(raw) != SealKeySize {
		return nil, fmt.Errorf("seal key must be %d bytes, got %d", SealKeySize, len(raw))
	}
	var key [SealKeySize]byte
	copy(key[:], raw)
	return &key, nil
}

// GenerateSealKey returns a fresh hex-encoded seal key, for `init`.
func GenerateSealKey() (string, error) {
	var key [SealKeySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return "", fmt.Errorf("generating seal key: %w", err)
	}
	return hex.EncodeToString(key[:]), nil
}

// seal encrypts a token. The nonce is prepended to the ciphertext.
func seal(token string, key *[SealKeySize]byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(token), &nonce, key), nil
}

// open decrypts a sealed token.
func open(sealed []byte, key *[SealKeySize]byte) (string, error) {
	if len(sealed) < nonceSize {
		return "", ErrSealedTokenCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return "", ErrSealedTokenCorrupt
	}
	return string(plain), nil
}
