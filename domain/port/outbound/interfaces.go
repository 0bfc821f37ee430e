package outbound

import (
	"time"

	"github.com/igorofyeshuasete/authgate/domain/model"
)

// UserRepository defines durable storage for the user database.
type UserRepository interface {
	// Load reads the last fully-committed database.
	Load() (*model.UserDatabase, error)

	// Save replaces the database atomically. The previous content is
	// preserved in a backup until the new content is fully written.
	Save(db *model.UserDatabase) error

	// Exists reports whether the backing file is present.
	Exists() bool

	// Path returns the backing file path, for change monitoring.
	Path() string
}

// LockoutTracker rate-limits authentication attempts per username.
// Usernames passed in are already normalized by the caller.
// Implementations must be interchangeable: in-memory, CSV and SQLite
// backends all honor the same contract.
type LockoutTracker interface {
	// IsLocked reports whether the username is currently locked out.
	// A stale lockout (window elapsed since the last failure) is reset
	// to zero attempts before evaluation, so it never blocks forever.
	IsLocked(username string, now time.Time) bool

	// RecordFailure appends a failed attempt at the given instant.
	RecordFailure(username string, now time.Time) error

	// RecordSuccess clears all recorded failures for the username.
	RecordSuccess(username string) error

	// RemainingAttempts returns how many failures are left before lockout.
	RemainingAttempts(username string) int

	// TimeUntilUnlock returns how long until the lockout window expires,
	// zero if the username is not locked.
	TimeUntilUnlock(username string, now time.Time) time.Duration
}

// AuditLog is the append-only trail of authentication and business events.
type AuditLog interface {
	// Record appends one entry. Failures are surfaced to the caller but
	// must never abort the caller's primary operation.
	Record(entry model.AuditEntry) error

	// Query returns matching entries, most recent first.
	Query(filter model.AuditFilter) ([]model.AuditEntry, error)
}

// CryptoService covers password hashing and at-rest encryption of the
// user store.
type CryptoService interface {
	// HashPassword derives a salted hash. The returned string encodes
	// the cost parameters so old hashes stay verifiable after a
	// configuration change.
	HashPassword(password string, salt [16]byte) string

	// VerifyPassword compares in constant time.
	VerifyPassword(password, hash string, salt [16]byte) bool

	GenerateSalt() [16]byte

	Encrypt(data []byte, key [32]byte) (encrypted []byte, nonce []byte, err error)
	Decrypt(encrypted []byte, nonce []byte, key [32]byte) ([]byte, error)
	DeriveKey(machineID string) [32]byte
}

// MachineIDService provides a stable host identifier for key derivation.
type MachineIDService interface {
	GetMachineID() (string, error)
}

// Clock abstracts wall-clock time so lockout windows are testable.
type Clock interface {
	Now() time.Time
}
