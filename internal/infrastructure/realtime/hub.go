package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"parceldesk/internal/infrastructure/auth"
	"parceldesk/internal/infrastructure/datastore"
	sharedconfig "parceldesk/internal/shared/config"
	"parceldesk/internal/shared/goroutine"
	"parceldesk/internal/shared/logger"
)

const authTimeout = 5 * time.Second

// Hub tracks connected clients and their room memberships and fans events
// out to them. Sends are non-blocking: a client whose buffer is full misses
// the event rather than stalling delivery to everyone else.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client

	cfg      sharedconfig.RealtimeConfig
	store    datastore.Store
	verifier *auth.JWTService
	upgrader websocket.Upgrader
	log      logger.Interface

	dropped int64
}

func NewHub(cfg sharedconfig.RealtimeConfig, store datastore.Store, verifier *auth.JWTService, log logger.Interface) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
		cfg:      cfg,
		store:    store,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the handshake carries its own token auth
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.Named("realtime-hub"),
	}
}

// HandleWS upgrades the request and authenticates the connection. Invalid
// credentials close the socket with a reason containing "Authentication
// error"; a backend failure during the account lookup uses a different,
// transient reason so well-behaved clients retry instead of logging out.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}

	claims, err := h.verifier.Verify(token)
	if err != nil {
		closeWithReason(conn, websocket.ClosePolicyViolation, "Authentication error: invalid token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), authTimeout)
	defer cancel()
	acct, err := h.store.GetAccountByID(ctx, claims.AccountID)
	if err != nil {
		h.log.Warnw("account lookup failed during handshake", "error", err)
		closeWithReason(conn, websocket.CloseTryAgainLater, "session verification temporarily unavailable")
		return
	}
	if acct == nil || !acct.IsActive() {
		closeWithReason(conn, websocket.ClosePolicyViolation, "Authentication error: unknown or inactive account")
		return
	}

	if h.connectionsForAccount(acct.ID()) >= h.cfg.MaxConnsPerAccount {
		closeWithReason(conn, websocket.ClosePolicyViolation, "too many connections for this account")
		return
	}

	client := &Client{
		id:        uuid.NewString(),
		accountID: acct.ID(),
		role:      acct.Role().String(),
		conn:      conn,
		send:      make(chan []byte, h.cfg.SendBufferSize),
		rooms:     make(map[string]bool),
		hub:       h,
		log:       h.log.With("connection_id", ""),
	}
	client.log = h.log.With("connection_id", client.id, "account_id", acct.ID())

	h.register(client)
	h.joinRoom(client, RoomForRole(client.role))
	h.joinRoom(client, RoomForAccount(client.accountID))

	client.enqueue(NewEnvelope(EventConnected, map[string]any{
		"message":       "connected",
		"connection_id": client.id,
		"account_id":    client.accountID,
		"role":          client.role,
		"sessions":      h.SessionCount(),
	}))

	goroutine.SafeGo(client.log, "ws-write-pump", client.writePump)
	goroutine.SafeGo(client.log, "ws-read-pump", client.readPump)

	h.log.Infow("client connected",
		"connection_id", client.id,
		"account_id", client.accountID,
		"role", client.role,
		"sessions", h.SessionCount())
}

// WireStoreNotifications subscribes to backend change events when the store
// supports push, so mutations made through the facade surface on the
// dashboard without polling.
func (h *Hub) WireStoreNotifications(store datastore.Store) {
	notifier, ok := store.(datastore.ChangeNotifier)
	if !ok {
		return
	}

	notifier.OnChange(func(entity string, id uint) {
		data := map[string]any{"entity": entity, "id": id}
		switch entity {
		case datastore.EntityTicket:
			h.BroadcastToRoom(RoomForRole("admin"), NewEnvelope(EventTicketUpdated, data))
			h.BroadcastToRoom(RoomForRole("agent"), NewEnvelope(EventTicketUpdated, data))
		case datastore.EntityBroadcast:
			h.BroadcastToRoom(RoomForRole("admin"), NewEnvelope(EventBroadcastUpdated, data))
		}
		h.Broadcast(NewEnvelope(EventDashboardUpdated, nil))
	})
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	for room := range c.rooms {
		h.removeFromRoom(room, c)
	}
	close(c.send)
	h.mu.Unlock()

	h.log.Infow("client disconnected", "connection_id", c.id, "account_id", c.accountID)
}

func (h *Hub) joinRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][c.id] = c
	c.rooms[room] = true
}

func (h *Hub) leaveRoom(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromRoom(room, c)
	delete(c.rooms, room)
}

// removeFromRoom requires h.mu held.
func (h *Hub) removeFromRoom(room string, c *Client) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast fans an event out to every connected client.
func (h *Hub) Broadcast(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Errorw("failed to marshal event", "type", env.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.trySend(c, payload)
	}
}

// BroadcastToRoom fans an event out to the members of one room only.
func (h *Hub) BroadcastToRoom(room string, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Errorw("failed to marshal event", "type", env.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[room] {
		h.trySend(c, payload)
	}
}

// SendToAccount delivers an event to every connection of one account.
func (h *Hub) SendToAccount(accountID uint, env Envelope) {
	h.BroadcastToRoom(RoomForAccount(accountID), env)
}

// trySend enqueues without blocking; a full buffer drops the event for that
// client. Requires h.mu held (read or write).
func (h *Hub) trySend(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		atomic.AddInt64(&h.dropped, 1)
		h.log.Warnw("dropping event for slow client", "connection_id", c.id)
	}
}

// DroppedCount reports how many events were dropped on full client buffers.
func (h *Hub) DroppedCount() int64 {
	return atomic.LoadInt64(&h.dropped)
}

// SessionCount returns the number of connected clients.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) connectionsForAccount(accountID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[RoomForAccount(accountID)])
}

// canJoin restricts room membership: admins may join any room, other roles
// only their own role and account rooms.
func (h *Hub) canJoin(c *Client, room string) bool {
	if c.role == "admin" {
		return true
	}
	return room == RoomForRole(c.role) || room == RoomForAccount(c.accountID)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func closeWithReason(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}
