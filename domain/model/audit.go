package model

import "time"

// Well-known audit action tags. The log accepts arbitrary tags for
// business events recorded by the UI layer.
const (
	ActionLogin        = "login"
	ActionLoginFailed  = "login_failed"
	ActionLoginBlocked = "login_blocked"
	ActionUserCreated  = "user_created"
	ActionUserUpdated  = "user_updated"
	ActionUserDeleted  = "user_deleted"
	ActionAdminReset   = "admin_reset"
)

// AuditTimeLayout is the on-disk timestamp format of the audit log.
const AuditTimeLayout = "2006-01-02 15:04:05"

// AuditEntry is one append-only row. Entries are never mutated after write.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// AuditFilter selects entries for administrative review.
// Zero-valued fields are ignored.
type AuditFilter struct {
	Username string
	Actions  []string
	From     time.Time
	To       time.Time
}

// Matches reports whether the entry passes the filter.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.Username != "" && NormalizeUsername(e.Username) != NormalizeUsername(f.Username) {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == e.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	return true
}
