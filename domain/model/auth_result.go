package model

import "time"

type AuthStatus string

const (
	AuthSuccess AuthStatus = "success"
	AuthFailed  AuthStatus = "failed"
	AuthLocked  AuthStatus = "locked"
)

// AuthResult is the outcome of one authentication attempt.
// A locked account is an expected outcome, not an error.
type AuthResult struct {
	Status AuthStatus

	// User and Token are set only on success.
	User  *User
	Token string

	// RemainingAttempts is set on failure.
	RemainingAttempts int

	// UnlockIn is set when the account is locked.
	UnlockIn time.Duration
}
