package websocket

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/igorofyeshuasete/authgate/domain/model"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

// AuditStreamHub pushes audit entries to connected admin review clients
// as they are recorded. Slow clients are dropped rather than allowed to
// back-pressure the authentication path.
type AuditStreamHub struct {
	logger   outbound.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]chan model.AuditEntry
}

func NewAuditStreamHub(logger outbound.Logger) *AuditStreamHub {
	return &AuditStreamHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]chan model.AuditEntry),
	}
}

func (h *AuditStreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	clientID := uuid.New().String()
	ch := make(chan model.AuditEntry, 64)

	h.mu.Lock()
	h.clients[clientID] = ch
	h.mu.Unlock()

	h.logger.Info("audit stream client connected", "client_id", clientID)

	go h.writeLoop(clientID, conn, ch)
	h.readLoop(clientID, conn)
}

// Broadcast fans one entry out to every connected client. Never blocks.
func (h *AuditStreamHub) Broadcast(entry model.AuditEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for clientID, ch := range h.clients {
		select {
		case ch <- entry:
		default:
			h.logger.Warn("audit stream client too slow, dropping", "client_id", clientID)
			delete(h.clients, clientID)
			close(ch)
		}
	}
}

func (h *AuditStreamHub) writeLoop(clientID string, conn *websocket.Conn, ch <-chan model.AuditEntry) {
	defer conn.Close()

	for entry := range ch {
		if err := conn.WriteJSON(entry); err != nil {
			h.logger.Debug("audit stream write failed", "client_id", clientID, "error", err)
			h.remove(clientID)
			return
		}
	}
}

// readLoop exists to observe the close handshake; inbound messages are
// ignored.
func (h *AuditStreamHub) readLoop(clientID string, conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(clientID)
			return
		}
	}
}

func (h *AuditStreamHub) remove(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		delete(h.clients, clientID)
		close(ch)
	}
}

// broadcastAuditLog decorates an AuditLog so recorded entries also reach
// live stream subscribers. Query passes through untouched.
type broadcastAuditLog struct {
	inner outbound.AuditLog
	hub   *AuditStreamHub
}

func NewBroadcastAuditLog(inner outbound.AuditLog, hub *AuditStreamHub) outbound.AuditLog {
	return &broadcastAuditLog{inner: inner, hub: hub}
}

func (l *broadcastAuditLog) Record(entry model.AuditEntry) error {
	err := l.inner.Record(entry)
	l.hub.Broadcast(entry)
	return err
}

func (l *broadcastAuditLog) Query(filter model.AuditFilter) ([]model.AuditEntry, error) {
	return l.inner.Query(filter)
}
