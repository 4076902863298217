// Package prefs persists per-deployment display preferences: currency,
// currency symbol, upstream base URL and token, and section heading
// overrides. Preferences are plain key/value pairs stored in SQLite.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Well-known preference keys. Unknown keys are rejected on write so a
// typo does not silently create a dead setting.
const (
	KeyCurrency        = "currency"
	KeyCurrencySymbol  = "currency_symbol"
	KeyBaseURL         = "base_url"
	KeyToken           = "token"
	KeyHardDiskHeading = "hard_disk_heading"
)

var knownKeys = map[string]bool{
	KeyCurrency:        true,
	KeyCurrencySymbol:  true,
	KeyBaseURL:         true,
	KeyToken:           true,
	KeyHardDiskHeading: true,
}

// ErrUnknownKey is returned for writes to a key outside the known set.
var ErrUnknownKey = errors.New("unknown preference key")

// ErrNotFound is returned when a preference has never been set.
var ErrNotFound = errors.New("preference not set")

// Store is the interface for reading and writing preferences.
type Store interface {
	// Get returns one preference value, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// All returns every stored preference.
	All(ctx context.Context) (map[string]string, error)

	// Set upserts one preference. The key must be known.
	Set(ctx context.Context, key, value string) error
}

// SQLiteStore implements Store on a plain key/value table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the preferences table. Run during startup; the
// statement is idempotent.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS preferences (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// Get returns one preference value.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("reading preference %s: %w", key, err)
	}
	return value, nil
}

// All returns every stored preference.
func (s *SQLiteStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning preference: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Set upserts one preference.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	if !knownKeys[key] {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("writing preference %s: %w", key, err)
	}
	return nil
}
