// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package secrets

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir(), "test-master-secret-0123456789abcdef")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set(KeyPlexToken, "xyz-plex-token"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, err := store.Get(KeyPlexToken)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != "xyz-plex-token" {
		t.Errorf("Get() = %q, want %q", got, "xyz-plex-token")
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Get(KeyJellyfinAPIKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Set(KeyJellyfinAPIKey, "jf-key"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Delete(KeyJellyfinAPIKey); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(KeyJellyfinAPIKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}

	// Double delete is not an error.
	if err := store.Delete(KeyJellyfinAPIKey); err != nil {
		t.Errorf("Delete(absent) error = %v", err)
	}
}

func TestStoreValuesEncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, "test-master-secret-0123456789abcdef")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := store.Set(KeyPlexToken, "super-secret-token"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// The raw Badger files must not contain the plaintext token.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if bytes.Contains(data, []byte("super-secret-token")) {
			t.Errorf("plaintext credential found in %s", entry.Name())
		}
	}
}

func TestGeneratedKeyFilePersists(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir, "")
	if err != nil {
		t.Fatalf("Open() with generated key error: %v", err)
	}
	if err := store.Set(KeyPlexToken, "persist-me"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// Reopening with the same generated key file must decrypt the value.
	store2, err := Open(dir, "")
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer store2.Close()

	got, err := store2.Get(KeyPlexToken)
	if err != nil {
		t.Fatalf("Get() after reopen error: %v", err)
	}
	if got != "persist-me" {
		t.Errorf("Get() = %q, want %q", got, "persist-me")
	}

	info, err := os.Stat(filepath.Join(dir, ".master_key"))
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key file mode = %o, want 600", perm)
	}
}

func TestEncryptorRejectsTamperedCiphertext(t *testing.T) {
	enc, err := newEncryptor("secret")
	if err != nil {
		t.Fatalf("newEncryptor() error: %v", err)
	}

	sealed, err := enc.encrypt("value")
	if err != nil {
		t.Fatalf("encrypt() error: %v", err)
	}

	tampered := []byte(sealed)
	tampered[len(tampered)-2] ^= 'x'
	if _, err := enc.decrypt(string(tampered)); err == nil {
		t.Error("decrypt(tampered) succeeded, want error")
	}
}
