package model

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// AdminUsername is the seeded account that can be password-reset but never deleted.
const AdminUsername = "admin"

// MaxUsernameLen is applied after trimming surrounding whitespace.
const MaxUsernameLen = 50

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password"`
	Salt         [16]byte  `json:"salt"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	// LastLogin is nil until the first successful authentication.
	LastLogin *time.Time `json:"last_login"`
	// LastValidLogin invalidates session tokens issued before it.
	LastValidLogin time.Time `json:"last_valid_login,omitempty"`
}

// UserDatabase holds all user records, keyed by lower-cased username.
// The Username field inside each record keeps its original casing.
type UserDatabase struct {
	Users map[string]*User `json:"users"`
}

// NextID returns max existing id + 1, starting at 1 for an empty store.
func (db *UserDatabase) NextID() int64 {
	var max int64
	for _, u := range db.Users {
		if u.ID > max {
			max = u.ID
		}
	}
	return max + 1
}

// FindByID returns the record with the given id, or nil.
func (db *UserDatabase) FindByID(id int64) *User {
	for _, u := range db.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// NormalizeUsername trims, lower-cases and caps a username for use as a
// lookup key. Comparisons between usernames always go through this.
func NormalizeUsername(username string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	if len(username) > MaxUsernameLen {
		username = username[:MaxUsernameLen]
	}
	return username
}

// UserResponse is the caller-facing view of a user, hash and salt excluded.
type UserResponse struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Name      string     `json:"name"`
	Role      UserRole   `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}
