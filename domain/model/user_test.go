package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "admin", NormalizeUsername("  Admin  "))
	assert.Equal(t, "bob", NormalizeUsername("BOB"))
	assert.Len(t, NormalizeUsername(strings.Repeat("A", 80)), MaxUsernameLen)
	assert.Equal(t, "", NormalizeUsername("   "))
}

func TestUserDatabase_NextID(t *testing.T) {
	db := &UserDatabase{Users: map[string]*User{}}
	assert.Equal(t, int64(1), db.NextID())

	db.Users["admin"] = &User{ID: 1}
	db.Users["zoe"] = &User{ID: 7}
	assert.Equal(t, int64(8), db.NextID())
}

func TestUserDatabase_FindByID(t *testing.T) {
	db := &UserDatabase{Users: map[string]*User{
		"admin": {ID: 1, Username: "admin"},
	}}

	assert.Equal(t, "admin", db.FindByID(1).Username)
	assert.Nil(t, db.FindByID(99))
}

func TestUser_ToResponseExcludesSecrets(t *testing.T) {
	now := time.Now()
	u := &User{
		ID:           1,
		Username:     "admin",
		PasswordHash: "argon2id$t=1,m=64,p=1$deadbeef",
		Salt:         [16]byte{1},
		Name:         "Administrator",
		Role:         RoleAdmin,
		CreatedAt:    now,
	}

	resp := u.ToResponse()
	assert.Equal(t, u.ID, resp.ID)
	assert.Equal(t, u.Username, resp.Username)
	assert.Equal(t, u.Role, resp.Role)
}

func TestAuditFilter_Matches(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	entry := AuditEntry{Timestamp: t0, Username: "Alice", Action: "login"}

	assert.True(t, AuditFilter{}.Matches(entry))
	assert.True(t, AuditFilter{Username: "alice"}.Matches(entry))
	assert.False(t, AuditFilter{Username: "bob"}.Matches(entry))
	assert.True(t, AuditFilter{Actions: []string{"login", "logout"}}.Matches(entry))
	assert.False(t, AuditFilter{Actions: []string{"logout"}}.Matches(entry))
	assert.True(t, AuditFilter{From: t0, To: t0}.Matches(entry))
	assert.False(t, AuditFilter{From: t0.Add(time.Second)}.Matches(entry))
	assert.False(t, AuditFilter{To: t0.Add(-time.Second)}.Matches(entry))
}
