package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/Hazher89/oppdrag-app/pkg/metrics"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	sendBufferSize = 64
	writeTimeout   = 10 * time.Second
	pingInterval   = 25 * time.Second
	pingTimeout    = 5 * time.Second
)

// Client is one websocket connection owned by a user.
type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// Hub tracks connected clients per user and per conversation room. Services
// publish events after their database work commits; the hub only fans out.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	rooms   map[uuid.UUID]map[*Client]struct{}

	wsMetrics *metrics.WebsocketMetrics
}

// NewHub builds an empty hub.
func NewHub(wsMetrics *metrics.WebsocketMetrics) *Hub {
	return &Hub{
		clients:   map[uuid.UUID]map[*Client]struct{}{},
		rooms:     map[uuid.UUID]map[*Client]struct{}{},
		wsMetrics: wsMetrics,
	}
}

// AddClient registers the connection and starts its write and keepalive loops.
func (h *Hub) AddClient(userID uuid.UUID, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan Event, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	h.wsMetrics.IncConnections()

	go c.writeLoop()
	go c.keepAliveLoop()

	return c
}

// RemoveClient drops the connection from every room and closes it.
func (h *Hub) RemoveClient(c *Client) {
	c.cancel()

	h.mu.Lock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	for roomID, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()

	h.wsMetrics.DecConnections()

	_ = c.Conn.Close(websocket.StatusNormalClosure, "bye")
}

// JoinRoom subscribes the client to a conversation room.
func (h *Hub) JoinRoom(roomID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = map[*Client]struct{}{}
	}
	h.rooms[roomID][c] = struct{}{}
}

// LeaveRoom unsubscribes the client from a conversation room.
func (h *Hub) LeaveRoom(roomID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// PublishToUser delivers the event to every connection the user holds.
func (h *Hub) PublishToUser(userID uuid.UUID, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		c.enqueue(ev)
	}
	h.wsMetrics.IncPublished(ev.Type)
}

// PublishToUsers delivers the event to every listed user.
func (h *Hub) PublishToUsers(userIDs []uuid.UUID, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		for c := range h.clients[uid] {
			c.enqueue(ev)
		}
	}
	h.wsMetrics.IncPublished(ev.Type)
}

// PublishToConversation delivers the event to clients joined to the room.
func (h *Hub) PublishToConversation(roomID uuid.UUID, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[roomID] {
		c.enqueue(ev)
	}
	h.wsMetrics.IncPublished(ev.Type)
}

// PublishToConversationAndUsers delivers the event to room members and to the
// listed users' connections, once per connection even when a connection is
// reachable both ways.
func (h *Hub) PublishToConversationAndUsers(roomID uuid.UUID, userIDs []uuid.UUID, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := map[*Client]struct{}{}
	for c := range h.rooms[roomID] {
		targets[c] = struct{}{}
	}
	for _, uid := range userIDs {
		for c := range h.clients[uid] {
			targets[c] = struct{}{}
		}
	}
	for c := range targets {
		c.enqueue(ev)
	}
	h.wsMetrics.IncPublished(ev.Type)
}

// enqueue drops the event when the client buffer is full; a slow consumer
// must not stall fan-out for everyone else.
func (c *Client) enqueue(ev Event) {
	select {
	case c.Send <- ev:
	default:
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.Send:
			writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			_ = wsjson.Write(writeCtx, c.Conn, ev)
			cancel()
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
			_ = c.Conn.Ping(pingCtx)
			cancel()
		}
	}
}
