package memory

import (
	"sync"
	"time"

	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

// lockoutTracker is the process-local lockout backend. State does not
// survive restarts; the CSV and SQLite stores are the durable variants
// of the same contract.
type lockoutTracker struct {
	maxAttempts int
	window      time.Duration

	mu       sync.Mutex
	failures map[string][]time.Time
}

func NewLockoutTracker(maxAttempts int, window time.Duration) outbound.LockoutTracker {
	return &lockoutTracker{
		maxAttempts: maxAttempts,
		window:      window,
		failures:    make(map[string][]time.Time),
	}
}

func (t *lockoutTracker) IsLocked(username string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	attempts := t.failures[username]
	if len(attempts) < t.maxAttempts {
		return false
	}

	// the window is measured from the last recorded failure; a blocked
	// attempt does not extend it
	if now.Sub(attempts[len(attempts)-1]) < t.window {
		return true
	}

	delete(t.failures, username)
	return false
}

func (t *lockoutTracker) RecordFailure(username string, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[username] = append(t.failures[username], now)
	return nil
}

func (t *lockoutTracker) RecordSuccess(username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, username)
	return nil
}

func (t *lockoutTracker) RemainingAttempts(username string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if remaining := t.maxAttempts - len(t.failures[username]); remaining > 0 {
		return remaining
	}
	return 0
}

func (t *lockoutTracker) TimeUntilUnlock(username string, now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	attempts := t.failures[username]
	if len(attempts) < t.maxAttempts {
		return 0
	}
	if remaining := t.window - now.Sub(attempts[len(attempts)-1]); remaining > 0 {
		return remaining
	}
	return 0
}
