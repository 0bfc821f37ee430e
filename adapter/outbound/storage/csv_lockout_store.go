package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/igorofyeshuasete/authgate/domain/model"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

var lockoutHeader = []string{"username", "attempts", "last_attempt"}

// csvLockoutStore is the durable lockout tracker: one CSV row per
// username with active attempts, surviving process restarts. Rows are
// removed on success, upserted on failure.
type csvLockoutStore struct {
	path        string
	logger      outbound.Logger
	maxAttempts int
	window      time.Duration

	mu      sync.Mutex
	entries map[string]*model.LockoutEntry
}

func NewCSVLockoutStore(
	path string,
	maxAttempts int,
	window time.Duration,
	logger outbound.Logger,
) (outbound.LockoutTracker, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lockout store directory: %w", err)
	}

	s := &csvLockoutStore{
		path:        path,
		logger:      logger,
		maxAttempts: maxAttempts,
		window:      window,
		entries:     make(map[string]*model.LockoutEntry),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *csvLockoutStore) IsLocked(username string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[username]
	if entry == nil || entry.Attempts < s.maxAttempts {
		return false
	}

	if now.Sub(entry.LastAttempt) < s.window {
		return true
	}

	// stale lockout, reset before evaluating the new attempt
	entry.Attempts = 0
	if err := s.flushLocked(); err != nil {
		s.logger.Warn("failed to persist lockout reset", "username", username, "error", err)
	}
	return false
}

func (s *csvLockoutStore) RecordFailure(username string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[username]
	if entry == nil {
		entry = &model.LockoutEntry{Username: username}
		s.entries[username] = entry
	}
	entry.Attempts++
	entry.LastAttempt = now.Truncate(time.Second)
	return s.flushLocked()
}

func (s *csvLockoutStore) RecordSuccess(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[username]; !ok {
		return nil
	}
	delete(s.entries, username)
	return s.flushLocked()
}

func (s *csvLockoutStore) RemainingAttempts(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempts := 0
	if entry := s.entries[username]; entry != nil {
		attempts = entry.Attempts
	}
	if remaining := s.maxAttempts - attempts; remaining > 0 {
		return remaining
	}
	return 0
}

func (s *csvLockoutStore) TimeUntilUnlock(username string, now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entries[username]
	if entry == nil || entry.Attempts < s.maxAttempts {
		return 0
	}
	if remaining := s.window - now.Sub(entry.LastAttempt); remaining > 0 {
		return remaining
	}
	return 0
}

func (s *csvLockoutStore) load() error {
	file, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return model.NewStorageError("load", s.path, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		// a truncated lockout file must not prevent startup
		s.logger.Error("lockout store unreadable, starting empty", "path", s.path, "error", err)
		return nil
	}

	for i, rec := range records {
		if i == 0 || len(rec) != 3 {
			continue
		}
		attempts, err := strconv.Atoi(rec[1])
		if err != nil {
			continue
		}
		lastAttempt, err := time.ParseInLocation(model.LockoutTimeLayout, rec[2], time.Local)
		if err != nil {
			continue
		}
		s.entries[rec[0]] = &model.LockoutEntry{
			Username:    rec[0],
			Attempts:    attempts,
			LastAttempt: lastAttempt,
		}
	}
	return nil
}

// flushLocked rewrites the whole file through a temp file and rename so a
// crash mid-write never leaves a half-written store. Callers hold s.mu.
func (s *csvLockoutStore) flushLocked() error {
	tmpPath := s.path + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return model.NewStorageError("save", s.path, err)
	}

	w := csv.NewWriter(file)
	w.Write(lockoutHeader)
	for _, entry := range s.entries {
		w.Write([]string{
			entry.Username,
			strconv.Itoa(entry.Attempts),
			entry.LastAttempt.Format(model.LockoutTimeLayout),
		})
	}
	w.Flush()

	if err := w.Error(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return model.NewStorageError("save", s.path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return model.NewStorageError("save", s.path, err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return model.NewStorageError("save", s.path, err)
	}
	return nil
}
