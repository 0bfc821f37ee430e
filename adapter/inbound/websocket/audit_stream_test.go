package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igorofyeshuasete/authgate/domain/model"
)

type nopLogger struct{}

func (nopLogger) Error(msg string, args ...any) {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Debug(msg string, args ...any) {}

func TestAuditStreamHub_BroadcastReachesClient(t *testing.T) {
	hub := NewAuditStreamHub(nopLogger{})
	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the server a moment to register the client
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	sent := model.AuditEntry{
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Username:  "alice",
		Action:    "login",
	}
	hub.Broadcast(sent)

	var got model.AuditEntry
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "login", got.Action)
}

func TestBroadcastAuditLog_TeesToHub(t *testing.T) {
	hub := NewAuditStreamHub(nopLogger{})
	inner := &recordingAuditLog{}
	log := NewBroadcastAuditLog(inner, hub)

	entry := model.AuditEntry{Username: "bob", Action: "login_failed"}
	require.NoError(t, log.Record(entry))

	require.Len(t, inner.entries, 1)
	assert.Equal(t, "bob", inner.entries[0].Username)
}

type recordingAuditLog struct {
	entries []model.AuditEntry
}

func (l *recordingAuditLog) Record(entry model.AuditEntry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func (l *recordingAuditLog) Query(filter model.AuditFilter) ([]model.AuditEntry, error) {
	return l.entries, nil
}
