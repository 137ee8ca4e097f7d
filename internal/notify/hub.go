package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mindpulse.local/wellbot/internal/metrics"
)

const (
	maxFrameBytes int64 = 64 << 10
	writeTimeout        = 5 * time.Second
)

// Hub keeps the open websocket connections per user and pushes events to
// them. It is both a Subscriber (server to client) and the reader of client
// frames (typing, read receipts), which it re-publishes.
type Hub struct {
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
	publisher Publisher

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

type client struct {
	userID  string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

// inboundFrame is what clients may send. Conversations have a single
// owner, so presence events always go back to the sender's own sockets.
type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewHub(logger zerolog.Logger, m *metrics.Metrics, checkOrigin func(*http.Request) bool) *Hub {
	return &Hub{
		logger:    logger.With().Str("component", "ws_hub").Logger(),
		metrics:   m,
		upgrader:  websocket.Upgrader{CheckOrigin: checkOrigin},
		publisher: Discard{},
		clients:   make(map[string]map[*client]struct{}),
	}
}

// Attach sets where client frames are re-published. Usually the dispatcher
// that also has the hub as a subscriber.
func (h *Hub) Attach(pub Publisher) {
	if pub == nil {
		pub = Discard{}
	}
	h.mu.Lock()
	h.publisher = pub
	h.mu.Unlock()
}

func (h *Hub) Name() string {
	return "websocket"
}

// Handle pushes event to every socket of event.UserID. A user with no open
// socket is not an error.
func (h *Hub) Handle(_ context.Context, event Event) error {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[event.UserID]))
	for c := range h.clients[event.UserID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var failed int
	for _, c := range targets {
		if err := c.writeJSON(event); err != nil {
			failed++
			h.logger.Debug().Str("user_id", c.userID).Err(err).Msg("push failed, dropping socket")
			h.remove(c)
		}
	}
	if failed > 0 && failed == len(targets) {
		return fmt.Errorf("push to user %s failed on all %d sockets", event.UserID, failed)
	}
	return nil
}

// Connections reports the number of open sockets for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve upgrades the request and blocks reading client frames until the
// socket closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	c := &client{userID: userID, conn: conn}
	h.add(c)
	defer h.remove(c)

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug().Str("user_id", userID).Err(err).Msg("websocket read ended")
			}
			return
		}
		h.handleFrame(r.Context(), c, frame)
	}
}

func (h *Hub) handleFrame(ctx context.Context, c *client, frame inboundFrame) {
	var eventType EventType
	switch strings.ToLower(strings.TrimSpace(frame.Type)) {
	case "typing":
		eventType = EventTyping
	case "read":
		eventType = EventRead
	default:
		_ = c.writeJSON(errorFrame{Type: "error", Error: fmt.Sprintf("unsupported frame type %q", frame.Type)})
		return
	}

	event, err := NewEvent(eventType, c.userID, PresencePayload{
		ConversationID: frame.ConversationID,
		FromUserID:     c.userID,
	})
	if err != nil {
		_ = c.writeJSON(errorFrame{Type: "error", Error: err.Error()})
		return
	}

	h.mu.RLock()
	pub := h.publisher
	h.mu.RUnlock()
	pub.Publish(ctx, event)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.WebsocketOpened()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := set[c]; !present {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	h.mu.Unlock()

	_ = c.conn.Close()
	h.metrics.WebsocketClosed()
}

// Close drops every open socket.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*client, 0)
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range all {
		h.remove(c)
	}
}
