package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igorofyeshuasete/authgate/domain/model"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

func newTestAuditLog(t *testing.T) (outbound.AuditLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit_log.csv")
	log, err := NewCSVAuditLog(path, nopLogger{})
	require.NoError(t, err)
	return log, path
}

func entryAt(ts time.Time, username, action, details string) model.AuditEntry {
	return model.AuditEntry{Timestamp: ts, Username: username, Action: action, Details: details}
}

func TestCSVAuditLog_RecordAndQuery(t *testing.T) {
	log, _ := newTestAuditLog(t)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

	require.NoError(t, log.Record(entryAt(t0, "alice", "login", "")))
	require.NoError(t, log.Record(entryAt(t0.Add(time.Minute), "bob", "login_failed", "")))
	require.NoError(t, log.Record(entryAt(t0.Add(2*time.Minute), "alice", "calculation", "contract #42")))

	entries, err := log.Query(model.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// most recent first
	assert.Equal(t, "calculation", entries[0].Action)
	assert.Equal(t, "login_failed", entries[1].Action)
	assert.Equal(t, "login", entries[2].Action)
	assert.Equal(t, "contract #42", entries[0].Details)
}

func TestCSVAuditLog_QueryFilters(t *testing.T) {
	log, _ := newTestAuditLog(t)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

	require.NoError(t, log.Record(entryAt(t0, "alice", "login", "")))
	require.NoError(t, log.Record(entryAt(t0.Add(time.Hour), "bob", "login", "")))
	require.NoError(t, log.Record(entryAt(t0.Add(2*time.Hour), "alice", "login_failed", "")))

	byUser, err := log.Query(model.AuditFilter{Username: "Alice"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byAction, err := log.Query(model.AuditFilter{Actions: []string{"login"}})
	require.NoError(t, err)
	assert.Len(t, byAction, 2)

	byRange, err := log.Query(model.AuditFilter{From: t0.Add(30 * time.Minute), To: t0.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, byRange, 1)
	assert.Equal(t, "bob", byRange[0].Username)
}

func TestCSVAuditLog_QueryEmpty(t *testing.T) {
	log, _ := newTestAuditLog(t)

	entries, err := log.Query(model.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCSVAuditLog_AppendOnly(t *testing.T) {
	log, path := newTestAuditLog(t)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

	require.NoError(t, log.Record(entryAt(t0, "alice", "login", "")))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, log.Record(entryAt(t0.Add(time.Second), "bob", "login", "")))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	// earlier rows are never rewritten
	assert.True(t, strings.HasPrefix(string(second), string(first)))
	assert.Equal(t, 1, strings.Count(string(second), "timestamp,username,action,details"))
}

func TestCSVAuditLog_DetailsWithCommasSurvive(t *testing.T) {
	log, _ := newTestAuditLog(t)
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

	details := `updated fields: name="A, B", role=admin`
	require.NoError(t, log.Record(entryAt(t0, "admin", "user_updated", details)))

	entries, err := log.Query(model.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, details, entries[0].Details)
}
