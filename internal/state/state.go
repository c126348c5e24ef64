// Package state provides the client-durable key/value store.
// Values survive restarts and are scoped to this device; other processes on
// the same device may mutate them concurrently, so readers must treat any
// cached copy as possibly stale.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Durable keys used by the delivery subsystem.
const (
	// KeyAsked records whether the user has ever been asked about notifications.
	KeyAsked = "notification_asked"
	// KeyEnabled records the user's in-app notification preference.
	KeyEnabled = "notifications_enabled"
	// KeyToken holds the last-known push token string.
	KeyToken = "push_token"
)

// Store is a sqlite-backed key/value store.
type Store struct {
	db *sql.DB
}

// Open creates or opens a store at the provided path.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("state store: db path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("state store: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("state store: open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying sqlite connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init() error {
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("state store: set busy timeout: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("state store: create schema: %w", err)
	}

	return nil
}

// Get returns the value for key. The second return value reports presence.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("state store: get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, value, utcNow(),
	)
	if err != nil {
		return fmt.Errorf("state store: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("state store: delete %s: %w", key, err)
	}
	return nil
}

// GetBool returns the value for key as a boolean, or defaultValue when absent
// or unparsable.
func (s *Store) GetBool(key string, defaultValue bool) (bool, error) {
	value, ok, err := s.Get(key)
	if err != nil {
		return defaultValue, err
	}
	if !ok {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, nil
	}
	return b, nil
}

// SetBool stores a boolean value under key.
func (s *Store) SetBool(key string, value bool) error {
	return s.Set(key, strconv.FormatBool(value))
}

// Has reports whether key is present.
func (s *Store) Has(key string) (bool, error) {
	_, ok, err := s.Get(key)
	return ok, err
}

func utcNow() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
