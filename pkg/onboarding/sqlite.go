package onboarding

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// progressKey is the single well-known key the record lives under.
const progressKey = "onboarding"

// SQLiteStore persists progress as a single row in a SQLite database,
// for installs that already carry one. Same compatibility policy as the
// JSON backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("onboarding: open sqlite store: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS progress (
			key        TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("onboarding: init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads the persisted record, applying the schema-version policy.
func (s *SQLiteStore) Load() (*ProgressRecord, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT payload FROM progress WHERE key = ?`, progressKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultRecord(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("onboarding: read progress: %w", err)
	}
	return decodeEnvelope(raw), nil
}

// Save upserts the record. Last write wins.
func (s *SQLiteStore) Save(record *ProgressRecord) error {
	raw, err := encodeEnvelope(record)
	if err != nil {
		return fmt.Errorf("onboarding: encode progress: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO progress (key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		progressKey, raw)
	if err != nil {
		return fmt.Errorf("onboarding: write progress: %w", err)
	}
	return nil
}

// Reset deletes the durable row.
func (s *SQLiteStore) Reset() error {
	if _, err := s.db.Exec(`DELETE FROM progress WHERE key = ?`, progressKey); err != nil {
		return fmt.Errorf("onboarding: reset progress: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ProgressStore = (*SQLiteStore)(nil)
