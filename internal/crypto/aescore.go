// Package crypto implements CryptoCore (spec §4.K): envelope-style
// AES-256-GCM encryption for anything at rest that must never be
// readable without the owning user's key — transcripts, daily
// summaries, anything else the TranscriptStore persists.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"voicecore/internal/apperr"
)

const (
	keySize   = 32 // AES-256
	nonceSize = 16 // fixed 16-byte IV per the wire format this package commits to
)

// Encrypt seals plaintext under key, returning IV(16) || ciphertext || tag(16).
// key must be exactly 32 bytes; callers get this from KeyVault.GetKey.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	if len(key) != keySize {
		return nil, apperr.New(apperr.IntegrityFailure, "encryption key must be 32 bytes", nil)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperr.New(apperr.IntegrityFailure, "failed to init cipher", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, apperr.New(apperr.IntegrityFailure, "failed to init gcm", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, apperr.New(apperr.Unavailable, "failed to generate nonce", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// Decrypt opens a blob produced by Encrypt. Any corruption — truncation,
// bit flip, wrong key — surfaces as apperr.IntegrityFailure; this
// package never returns partially-decrypted bytes.
//
// A previous revision of this contract allowed the caller's nonce
// length to vary with the cipher mode in use; fixing it at 16 bytes
// here closes the class of bug where a mode change silently shifted
// where ciphertext began.
func Decrypt(key, blob []byte) ([]byte, error) {
	if len(key) != keySize {
		return nil, apperr.New(apperr.IntegrityFailure, "decryption key must be 32 bytes", nil)
	}
	if len(blob) < nonceSize+16 {
		return nil, apperr.New(apperr.IntegrityFailure, "ciphertext too short", nil)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperr.New(apperr.IntegrityFailure, "failed to init cipher", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, apperr.New(apperr.IntegrityFailure, "failed to init gcm", err)
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, apperr.New(apperr.IntegrityFailure, "authentication tag mismatch", err)
	}
	return plaintext, nil
}

// GenerateKey returns a fresh random 32-byte AES-256 key, the shape
// KeyVault persists for every new user.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, apperr.New(apperr.Unavailable, "failed to generate key", err)
	}
	return key, nil
}
