package inbound

import (
	"github.com/igorofyeshuasete/authgate/domain/model"
)

// AuthService is the caller-facing surface of the authentication core.
// The UI layer (calculator/admin pages) talks only to this interface.
type AuthService interface {
	// Authenticate runs the lockout check, then the credential check,
	// then the bookkeeping, serialized per username. The credential is
	// never examined while the account is locked.
	Authenticate(username, password string) (*model.AuthResult, error)

	// ValidateToken checks a session token and returns its user.
	// Tokens issued before the user's last valid login are rejected.
	ValidateToken(token string) (*model.User, error)

	CreateUser(username, password, name string, role model.UserRole) (*model.User, error)

	// UpdateUser is a partial update; empty fields are left unchanged.
	// A non-empty password is re-hashed.
	UpdateUser(id int64, password, name string) (*model.User, error)

	// DeleteUser removes a user by id. The seeded admin account is
	// protected and can never be deleted.
	DeleteUser(id int64) error

	// ListUsers returns all records sorted by id, hashes excluded.
	ListUsers() ([]*model.UserResponse, error)

	// RecordEvent appends a business event to the audit trail.
	// Audit failures are logged and swallowed.
	RecordEvent(username, action, details string)

	QueryAuditLog(filter model.AuditFilter) ([]model.AuditEntry, error)

	// ResetAdminPassword restores the seeded admin password to the
	// configured default.
	ResetAdminPassword() error

	// InvalidateCache drops the in-memory copy of the user database so
	// the next operation reloads it from disk. Called when the backing
	// file changes externally.
	InvalidateCache()
}
