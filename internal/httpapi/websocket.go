package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/dashboard"
	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096

	MessageSnapshot = "snapshot"
	MessageError    = "error"

	CommandRefresh        = "refresh"
	CommandSelectCategory = "select_category"
	CommandToggleTheme    = "toggle_theme"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// same-origin pages only; browsers always send Origin on websocket handshakes
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://") == r.Host
	},
}

// Message is one frame sent to a page. Dashboard events are forwarded as-is.
type Message struct {
	Type      string `json:"type"`
	Mount     string `json:"mount,omitempty"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// Command is one frame received from a page.
type Command struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// Hub tracks the connected pages so the server can report and close them.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: map[*Client]struct{}{}}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[ws] client connected id=%s total=%d\n", c.ID, n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		log.Printf("[ws] client disconnected id=%s total=%d\n", c.ID, n)
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll sends a close frame to every page; their pumps then unwind on their own.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeOnce.Do(func() { close(c.done) })
	}
}

// Client is one connected page. Only writePump writes to the connection.
type Client struct {
	ID   string
	conn *websocket.Conn
	hub  *Hub

	events      <-chan model.Event
	unsubscribe func()
	replies     chan []byte
	done        chan struct{}
	closeOnce   sync.Once
}

func (rt *Router) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] level=warn upgrade failed: %v\n", err)
		return
	}

	dc := rt.Dashboard.Context()
	events, unsubscribe := dc.Subscribe(dashboard.DefaultSubscriberBuffer)
	c := &Client{
		ID:          uuid.NewString(),
		conn:        conn,
		hub:         rt.hub,
		events:      events,
		unsubscribe: unsubscribe,
		replies:     make(chan []byte, 8),
		done:        make(chan struct{}),
	}
	rt.hub.register(c)

	// subscribed before the snapshot is taken, so no event between the two is lost
	snap := dc.Snapshot()
	if err := c.writeJSON(Message{Type: MessageSnapshot, Mount: snap.Mount, Timestamp: timestamp(), Data: snap}); err != nil {
		c.shutdown()
		return
	}

	go c.writePump()
	go c.readPump(rt)
}

func (c *Client) shutdown() {
	c.unsubscribe()
	c.hub.unregister(c)
	_ = c.conn.Close()
}

func (c *Client) readPump(rt *Router) {
	defer func() {
		c.closeOnce.Do(func() { close(c.done) })
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] level=warn read error id=%s: %v\n", c.ID, err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.reply(MessageError, map[string]any{"error": "comando inválido"})
			continue
		}
		if msg := rt.dispatch(context.Background(), c.ID, cmd); msg != "" {
			c.reply(MessageError, map[string]any{"error": msg, "command": cmd.Type})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				c.writeClose()
				return
			}
			if err := c.writeJSON(ev); err != nil {
				return
			}
		case msg := <-c.replies:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.writeClose()
			return
		}
	}
}

func (c *Client) writeJSON(v any) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *Client) writeClose() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (c *Client) reply(kind string, data any) {
	b, err := json.Marshal(Message{Type: kind, Timestamp: timestamp(), Data: data})
	if err != nil {
		return
	}
	select {
	case c.replies <- b:
	default:
		log.Printf("[ws] level=warn reply dropped id=%s type=%s\n", c.ID, kind)
	}
}

// dispatch runs a page command and returns the error text to show, or "".
func (rt *Router) dispatch(ctx context.Context, key string, cmd Command) string {
	switch cmd.Type {
	case CommandRefresh, CommandSelectCategory:
		if !rt.Limiter.Allow(key) {
			return "Muitas requisições, aguarde"
		}
	}

	var err error
	switch cmd.Type {
	case CommandRefresh:
		_, err = rt.Dashboard.Refresh(ctx)
	case CommandSelectCategory:
		_, err = rt.Dashboard.SelectCategory(ctx, strings.TrimSpace(cmd.URL))
	case CommandToggleTheme:
		_, err = rt.Dashboard.ToggleTheme(ctx)
	default:
		return "comando desconhecido"
	}
	if err != nil {
		log.Printf("[ws] level=warn command failed type=%s: %v\n", cmd.Type, err)
		return dashboard.ErrorMessage(err)
	}
	return ""
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
