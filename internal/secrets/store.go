// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package secrets provides the encrypted credential store. Media server
// tokens never persist in the relational database; they live here, sealed
// with AES-256-GCM in a Badger keyspace.
//
// The encryption key derives from a master secret (NEXROLL_MASTER_KEY) via
// HKDF-SHA256. When no master secret is configured, a random key is
// generated once and stored in a 0600 key file beside the store.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Well-known credential keys.
const (
	KeyPlexToken      = "plex_token"
	KeyJellyfinAPIKey = "jellyfin_api_key"
)

const credentialKeyPrefix = "credential:"

// ErrNotFound is returned when no credential is stored under a key.
var ErrNotFound = errors.New("credential not found")

// Store is the encrypted credential store.
type Store struct {
	db  *badger.DB
	enc *encryptor
}

// Open opens (or creates) the store at dir. masterSecret may be empty, in
// which case a generated key file inside dir is used.
func Open(dir, masterSecret string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("secrets path must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create secrets directory: %w", err)
	}

	if masterSecret == "" {
		var err error
		masterSecret, err = loadOrCreateKeyFile(filepath.Join(dir, ".master_key"))
		if err != nil {
			return nil, err
		}
	}

	enc, err := newEncryptor(masterSecret)
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithIndexCacheSize(10 << 20)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open secrets store: %w", err)
	}

	return &Store{db: db, enc: enc}, nil
}

// Close closes the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Set seals and stores a credential under key.
func (s *Store) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("credential key must not be empty")
	}
	sealed, err := s.enc.encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypt credential %s: %w", key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(credentialKeyPrefix+key), []byte(sealed))
	})
	if err != nil {
		return fmt.Errorf("store credential %s: %w", key, err)
	}
	return nil
}

// Get retrieves and unseals a credential. Returns ErrNotFound when absent.
func (s *Store) Get(key string) (string, error) {
	var sealed string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(credentialKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			sealed = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return s.enc.decrypt(sealed)
}

// Delete removes a credential. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(credentialKeyPrefix + key))
	})
}

// loadOrCreateKeyFile reads the generated master key, creating it with a
// fresh random value on first run. The file is 0600.
func loadOrCreateKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is under the configured secrets dir
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key == "" {
			return "", fmt.Errorf("master key file %s is empty", path)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read master key file: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate master key: %w", err)
	}
	key := base64.StdEncoding.EncodeToString(raw)

	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write master key file: %w", err)
	}
	return key, nil
}
