// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// encryptionSalt binds derived keys to this application's credential
	// encryption use case.
	encryptionSalt = "nexroll-server-credentials"

	// encryptionInfo is the HKDF info parameter for key derivation.
	encryptionInfo = "credential-encryption-v1"

	aesKeySize   = 32
	gcmNonceSize = 12
)

var (
	// ErrEmptySecret is returned when the master secret is empty.
	ErrEmptySecret = errors.New("master secret cannot be empty")

	// ErrEmptyPlaintext is returned when attempting to encrypt empty data.
	ErrEmptyPlaintext = errors.New("plaintext cannot be empty")

	// ErrDecryptionFailed is returned when the ciphertext fails to decrypt
	// (tampered data or wrong key).
	ErrDecryptionFailed = errors.New("decryption failed: invalid ciphertext or authentication tag")

	// ErrCiphertextTooShort is returned when the ciphertext is shorter than
	// the nonce plus authentication tag.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// encryptor provides AES-256-GCM authenticated encryption keyed via
// HKDF-SHA256 from the master secret. Each Encrypt call uses a fresh random
// nonce prepended to the ciphertext.
type encryptor struct {
	aead cipher.AEAD
}

// newEncryptor derives the AES key from the master secret and prepares the
// AEAD cipher.
func newEncryptor(masterSecret string) (*encryptor, error) {
	if masterSecret == "" {
		return nil, ErrEmptySecret
	}

	key := make([]byte, aesKeySize)
	kdf := hkdf.New(sha256.New, []byte(masterSecret), []byte(encryptionSalt), []byte(encryptionInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &encryptor{aead: aead}, nil
}

// encrypt seals plaintext and returns base64(nonce || ciphertext || tag).
func (e *encryptor) encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPlaintext
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// decrypt reverses encrypt.
func (e *encryptor) decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(raw) < gcmNonceSize+e.aead.Overhead() {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertext := raw[:gcmNonceSize], raw[gcmNonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
