// Package settings holds the single global settings record: the cookie
// signing key, the optional onion address, and the optional telemetry
// endpoint. The record is cached in memory for the process lifetime and
// re-synced to disk on every mutation.
package settings

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gitden/gitden/internal/models"
	"github.com/gitden/gitden/internal/storage"
)

// Store guards the in-memory settings copy with a read/write lock.
// Mutations follow compare-commit-rollback: the copy is changed first,
// the disk write attempted, and on failure the previous value restored
// before the lock is released, so the two views never diverge.
type Store struct {
	layout storage.Layout

	mu      sync.RWMutex
	current models.Settings
}

// Open loads the settings record, creating one with a freshly generated
// signing key on first run.
func Open(layout storage.Layout) (*Store, error) {
	s := &Store{layout: layout}

	current, err := storage.ReadRecord[models.Settings](layout.SettingsFile())
	if errors.Is(err, storage.ErrNotFound) {
		current = models.Settings{Key: GenerateKey()}
		s.current = current
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("save initial settings: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	s.current = current
	return s, nil
}

// GenerateKey returns a fresh random signing key.
func GenerateKey() models.SigningKey {
	var key models.SigningKey
	rand.Read(key[:]) // never fails per crypto/rand contract
	return key
}

// Key returns a snapshot of the signing key handed to the cookie layer.
func (s *Store) Key() models.SigningKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Key
}

// Onion returns the configured onion address, or "" when unset.
func (s *Store) Onion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.Tor == nil {
		return ""
	}
	return s.current.Tor.Onion
}

// Telemetry returns a copy of the telemetry descriptor, or nil when
// unset.
func (s *Store) Telemetry() *models.Telemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.Telemetry == nil {
		return nil
	}
	t := *s.current.Telemetry
	return &t
}

// ResetKey replaces the signing key with a freshly generated one. On a
// failed disk write the previous key is restored.
func (s *Store) ResetKey() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Key
	s.current.Key = GenerateKey()

	if err := s.save(); err != nil {
		s.current.Key = old
		return err
	}
	return nil
}

// SetOnion stores the onion address; an empty value clears it. Rolls back
// on write failure.
func (s *Store) SetOnion(onion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Tor
	if onion == "" {
		s.current.Tor = nil
	} else {
		s.current.Tor = &models.Tor{Onion: onion}
	}

	if err := s.save(); err != nil {
		s.current.Tor = old
		return err
	}
	return nil
}

// SetTelemetry stores the telemetry endpoint descriptor; nil clears it.
// Rolls back on write failure.
func (s *Store) SetTelemetry(t *models.Telemetry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.current.Telemetry
	if t == nil {
		s.current.Telemetry = nil
	} else {
		copied := *t
		s.current.Telemetry = &copied
	}

	if err := s.save(); err != nil {
		s.current.Telemetry = old
		return err
	}
	return nil
}

// save commits the current in-memory record. Callers hold the write lock.
func (s *Store) save() error {
	if err := os.MkdirAll(s.layout.Root(), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return storage.WriteRecord(s.layout.SettingsFile(), s.current)
}
