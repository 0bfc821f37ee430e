package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/igorofyeshuasete/authgate/domain/model"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

const lockoutSchema = `
CREATE TABLE IF NOT EXISTS login_lockouts (
	username     TEXT PRIMARY KEY,
	attempts     INTEGER NOT NULL,
	last_attempt TEXT NOT NULL
)`

// SQLiteLockoutStore is the database-backed lockout tracker. SQLite's
// own transaction handling gives the write-then-commit discipline the
// file stores implement by hand.
type SQLiteLockoutStore struct {
	db          *sql.DB
	logger      outbound.Logger
	maxAttempts int
	window      time.Duration
}

func NewSQLiteLockoutStore(
	path string,
	maxAttempts int,
	window time.Duration,
	logger outbound.Logger,
) (*SQLiteLockoutStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lockout store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, model.NewStorageError("open", path, err)
	}
	// a single writer keeps the tracker linearizable
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(lockoutSchema); err != nil {
		db.Close()
		return nil, model.NewStorageError("open", path, err)
	}

	return &SQLiteLockoutStore{
		db:          db,
		logger:      logger,
		maxAttempts: maxAttempts,
		window:      window,
	}, nil
}

func (s *SQLiteLockoutStore) IsLocked(username string, now time.Time) bool {
	entry, err := s.lookup(username)
	if err != nil {
		s.logger.Warn("lockout lookup failed", "username", username, "error", err)
		return false
	}
	if entry == nil || entry.Attempts < s.maxAttempts {
		return false
	}

	if now.Sub(entry.LastAttempt) < s.window {
		return true
	}

	if _, err := s.db.Exec(`UPDATE login_lockouts SET attempts = 0 WHERE username = ?`, username); err != nil {
		s.logger.Warn("failed to persist lockout reset", "username", username, "error", err)
	}
	return false
}

func (s *SQLiteLockoutStore) RecordFailure(username string, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO login_lockouts (username, attempts, last_attempt) VALUES (?, 1, ?)
		ON CONFLICT(username) DO UPDATE SET attempts = attempts + 1, last_attempt = excluded.last_attempt`,
		username, now.Truncate(time.Second).Format(model.LockoutTimeLayout))
	if err != nil {
		return model.NewStorageError("save", "login_lockouts", err)
	}
	return nil
}

func (s *SQLiteLockoutStore) RecordSuccess(username string) error {
	if _, err := s.db.Exec(`DELETE FROM login_lockouts WHERE username = ?`, username); err != nil {
		return model.NewStorageError("save", "login_lockouts", err)
	}
	return nil
}

func (s *SQLiteLockoutStore) RemainingAttempts(username string) int {
	entry, err := s.lookup(username)
	if err != nil {
		s.logger.Warn("lockout lookup failed", "username", username, "error", err)
		return s.maxAttempts
	}

	attempts := 0
	if entry != nil {
		attempts = entry.Attempts
	}
	if remaining := s.maxAttempts - attempts; remaining > 0 {
		return remaining
	}
	return 0
}

func (s *SQLiteLockoutStore) TimeUntilUnlock(username string, now time.Time) time.Duration {
	entry, err := s.lookup(username)
	if err != nil {
		s.logger.Warn("lockout lookup failed", "username", username, "error", err)
		return 0
	}
	if entry == nil || entry.Attempts < s.maxAttempts {
		return 0
	}
	if remaining := s.window - now.Sub(entry.LastAttempt); remaining > 0 {
		return remaining
	}
	return 0
}

func (s *SQLiteLockoutStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteLockoutStore) lookup(username string) (*model.LockoutEntry, error) {
	var entry model.LockoutEntry
	var lastAttempt string

	row := s.db.QueryRow(`SELECT username, attempts, last_attempt FROM login_lockouts WHERE username = ?`, username)
	if err := row.Scan(&entry.Username, &entry.Attempts, &lastAttempt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsed, err := time.ParseInLocation(model.LockoutTimeLayout, lastAttempt, time.Local)
	if err != nil {
		return nil, err
	}
	entry.LastAttempt = parsed
	return &entry, nil
}
