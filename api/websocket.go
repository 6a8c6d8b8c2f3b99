package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seenimoa/sentinews/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; restrict in production
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// WebSocket message types.
const (
	MsgStartAnalysis    = "start_analysis"
	MsgStage            = "stage"
	MsgAnalysisComplete = "analysis_complete"
	MsgError            = "error"
	MsgPing             = "ping"
	MsgPong             = "pong"
)

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type wsIncoming struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// handleWebSocket upgrades the connection. A client starts a run with a
// start_analysis message and receives one stage message per transition
// followed by analysis_complete carrying the run result.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	client := &WSClient{
		hub:    s.wsHub,
		send:   make(chan WSMessage, 256),
		cancel: cancel,
	}
	s.wsHub.Register(client)

	go wsWritePump(conn, client)
	go s.wsReadPump(ctx, conn, client)
}

// wsReadPump reads client messages until the connection closes. Closing the
// connection cancels any run the client started.
func (s *Server) wsReadPump(ctx context.Context, conn *websocket.Conn, client *WSClient) {
	defer func() {
		client.cancel()
		client.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read error", "error", err)
			}
			return
		}

		var msg wsIncoming
		if err := json.Unmarshal(message, &msg); err != nil {
			client.trySend(WSMessage{Type: MsgError, Data: map[string]string{"error": "invalid message"}})
			continue
		}

		switch msg.Type {
		case MsgStartAnalysis:
			var req AnalyzeRequest
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				client.trySend(WSMessage{Type: MsgError, Data: map[string]string{"error": "invalid start_analysis data"}})
				continue
			}
			if !client.busy.CompareAndSwap(false, true) {
				client.trySend(WSMessage{Type: MsgError, Data: map[string]string{"error": "analysis already running"}})
				continue
			}
			go s.runForClient(ctx, client, req)
		case MsgPing:
			client.trySend(WSMessage{Type: MsgPong})
		}
	}
}

func (s *Server) runForClient(ctx context.Context, client *WSClient, req AnalyzeRequest) {
	defer client.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, RunTimeout)
	defer cancel()

	obs := pipeline.ObserverFunc(func(_ context.Context, ev pipeline.StageEvent) {
		client.trySend(WSMessage{Type: MsgStage, Data: ev})
	})
	res, err := s.runner.RunQuery(ctx, req.Keyword, req.StartDate, req.EndDate, obs)
	if err != nil {
		client.trySend(WSMessage{Type: MsgError, Data: map[string]string{"error": err.Error()}})
		return
	}
	client.trySend(WSMessage{Type: MsgAnalysisComplete, Data: res})
}

// wsWritePump writes queued messages and keepalive pings until the client's
// send channel is closed.
func wsWritePump(conn *websocket.Conn, client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSHub tracks WebSocket connections and broadcasts run notifications.
type WSHub struct {
	mu        sync.RWMutex
	clients   map[*WSClient]bool
	broadcast chan WSMessage
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub    *WSHub
	send   chan WSMessage
	cancel context.CancelFunc
	busy   atomic.Bool

	mu     sync.Mutex
	closed bool
}

// trySend queues msg without blocking. It reports false if the client is
// gone or its queue is full.
func (c *WSClient) trySend(msg WSMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *WSClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:   make(map[*WSClient]bool),
		broadcast: make(chan WSMessage, 256),
	}
}

// Run delivers broadcasts until ctx is done. Clients whose queue is full are
// disconnected.
func (h *WSHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*WSClient, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				if !c.trySend(msg) {
					h.Unregister(c)
				}
			}
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its queue.
func (h *WSHub) Unregister(client *WSClient) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()
	client.close()
}
