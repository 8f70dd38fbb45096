// Package web implements the WebSocket surface that pushes live table
// projections of the handshake store to connected UIs.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rook-sec/fourway22000/internal/core/domain"
	"github.com/rook-sec/fourway22000/internal/core/table"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The projector surface serves a trusted local operator UI; allow
		// requests with no Origin header and loopback origins on port 8080
		// only. Pages served from any other host or port are rejected.
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		switch origin {
		case "http://localhost:8080", "http://127.0.0.1:8080", "http://[::1]:8080":
			return true
		default:
			return false
		}
	},
}

// WSMessage is the envelope broadcast to every connected client.
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// tablePayload mirrors table.Project's return shape for JSON encoding.
type tablePayload struct {
	Headers [11]string  `json:"headers"`
	Rows    []table.Row `json:"rows"`
}

// WSManager pushes table.Project snapshots of a HandshakeStore to every
// connected WebSocket client on a fixed interval.
type WSManager struct {
	store   *domain.HandshakeStore
	log     *slog.Logger
	clients map[*websocket.Conn]struct{}
	mu      sync.Mutex
}

// NewWSManager returns a manager broadcasting projections of store.
func NewWSManager(store *domain.HandshakeStore, log *slog.Logger) *WSManager {
	if log == nil {
		log = slog.Default()
	}
	return &WSManager{
		store:   store,
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Start runs the broadcast loop until ctx is cancelled.
func (m *WSManager) Start(ctx context.Context) {
	go m.broadcastLoop(ctx)
}

// HandleWebSocket upgrades the connection and registers it for broadcasts.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	m.mu.Lock()
	m.clients[conn] = struct{}{}
	m.mu.Unlock()

	go func() {
		defer conn.Close()
		defer func() {
			m.mu.Lock()
			delete(m.clients, conn)
			m.mu.Unlock()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (m *WSManager) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.broadcastTable()
		}
	}
}

func (m *WSManager) broadcastTable() {
	headers, rows := table.Project(m.store, -1, table.SortByTimestamp, true)
	m.broadcastMessage(WSMessage{
		Type:    "table",
		Payload: tablePayload{Headers: headers, Rows: rows},
	})
}

// BroadcastLog pushes an ambient log line to every connected client.
func (m *WSManager) BroadcastLog(message, level string) {
	m.broadcastMessage(WSMessage{
		Type:    "log",
		Payload: map[string]string{"message": message, "level": level},
	})
}

func (m *WSManager) broadcastMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.log.Error("marshal websocket message", "error", err.Error())
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}
