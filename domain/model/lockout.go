package model

import "time"

const (
	// DefaultMaxFailedAttempts is the number of consecutive failures
	// that triggers a temporary lockout.
	DefaultMaxFailedAttempts = 3

	// DefaultLockoutWindow is measured from the last recorded failure.
	// A new attempt during the window does not extend it.
	DefaultLockoutWindow = 5 * time.Minute
)

// LockoutEntry is the durable per-username attempt record.
type LockoutEntry struct {
	Username    string
	Attempts    int
	LastAttempt time.Time
}

// LockoutTimeLayout is the on-disk timestamp format of the lockout store.
const LockoutTimeLayout = "2006-01-02 15:04:05"
