package websocket

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 64
)

// Hub tracks connected users and routes notification frames to them. A user
// may hold several connections (multiple tabs); frames fan out to all of
// them.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*connection
	upgrader    websocket.Upgrader
	logger      *zap.Logger
	closed      bool
}

type connection struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan Message
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleConnection upgrades the request and pumps frames until the client
// disconnects. userID comes from the authenticated request context.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &connection{
		id:     uuid.New().String(),
		userID: userID,
		conn:   ws,
		send:   make(chan Message, sendBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ws.Close()
		return fmt.Errorf("hub is shut down")
	}
	h.connections[c.id] = c
	h.mu.Unlock()

	h.logger.Debug("websocket connected",
		zap.String("connection_id", c.id), zap.String("user_id", userID))

	go h.writePump(c)
	go h.readPump(c)
	return nil
}

func (h *Hub) readPump(c *connection) {
	defer h.drop(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(c *connection) {
	h.mu.Lock()
	if _, ok := h.connections[c.id]; ok {
		delete(h.connections, c.id)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

// SendToUser delivers a frame to every live connection of the user. Returns
// an error only when the user has no connection at all.
func (h *Hub) SendToUser(userID string, msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, c := range h.connections {
		if c.userID != userID {
			continue
		}
		select {
		case c.send <- msg:
			sent++
		default:
			// Buffer full, the slow connection misses this frame.
		}
	}
	if sent == 0 {
		return fmt.Errorf("user %s not connected", userID)
	}
	return nil
}

// Broadcast delivers a frame to every connected client.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.connections {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.connections {
		delete(h.connections, id)
		close(c.send)
		c.conn.Close()
	}
}
