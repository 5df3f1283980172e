// Package store persists data-model snapshots per session in SQLite. Trees
// are deliberately not persisted: a tree is rebuilt from scratch on every
// streaming invocation, but the data model lives for the whole session and
// must survive a process restart.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports an unknown session id.
var ErrNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	model      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// Sessions is a SQLite-backed session snapshot store. Safe for concurrent
// use; database/sql serializes access.
type Sessions struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database at dbPath.
func Open(dbPath string) (*Sessions, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close() // safe to ignore
		return nil, fmt.Errorf("init session schema: %w", err)
	}
	return &Sessions{db: db}, nil
}

// Close releases the database handle.
func (s *Sessions) Close() error {
	return s.db.Close()
}

// Save upserts a session's data-model snapshot.
func (s *Sessions) Save(id string, model map[string]any) error {
	raw, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("encode model for session %s: %w", id, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, model, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET model = excluded.model, updated_at = excluded.updated_at`,
		id, string(raw), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

// Load returns a session's last saved data model.
func (s *Sessions) Load(id string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRow(`SELECT model FROM sessions WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var model map[string]any
	if err := json.Unmarshal([]byte(raw), &model); err != nil {
		return nil, fmt.Errorf("parse model for session %s: %w", id, err)
	}
	return model, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (s *Sessions) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// List returns all known session ids, most recently updated first.
func (s *Sessions) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
