package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parceldesk/internal/domain/ticket"
	vo "parceldesk/internal/domain/ticket/valueobjects"
	"parceldesk/internal/infrastructure/auth"
	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/shared/biztime"
	sharedconfig "parceldesk/internal/shared/config"
	"parceldesk/internal/shared/logger"
)

type seedHasher struct{}

func (seedHasher) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

func testConfig() sharedconfig.RealtimeConfig {
	return sharedconfig.RealtimeConfig{
		SendBufferSize:      8,
		MaxConnsPerAccount:  2,
		PingIntervalSeconds: 30,
	}
}

func newTestStore(t *testing.T) *datastore.FixtureStore {
	t.Helper()
	store := datastore.NewFixtureStore(logger.NewLogger())
	require.NoError(t, datastore.SeedDemoData(context.Background(), store, seedHasher{}, logger.NewLogger()))
	return store
}

func newTestHub(t *testing.T, store datastore.Store) *Hub {
	t.Helper()
	return NewHub(testConfig(), store, auth.NewJWTService("test-secret"), logger.NewLogger())
}

// newTestClient registers an in-process client without a socket; events land
// in its send channel.
func newTestClient(hub *Hub, id string, accountID uint, role string, buffer int) *Client {
	c := &Client{
		id:        id,
		accountID: accountID,
		role:      role,
		send:      make(chan []byte, buffer),
		rooms:     make(map[string]bool),
		hub:       hub,
		log:       logger.NewLogger(),
	}
	hub.register(c)
	hub.joinRoom(c, RoomForRole(role))
	hub.joinRoom(c, RoomForAccount(accountID))
	return c
}

func receiveEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Envelope{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected event delivered: %s", raw)
	default:
	}
}

func TestHub_RoomScopedDelivery(t *testing.T) {
	hub := newTestHub(t, newTestStore(t))
	admin := newTestClient(hub, "c-admin", 1, "admin", 8)
	agent := newTestClient(hub, "c-agent", 2, "agent", 8)

	hub.BroadcastToRoom(RoomForRole("admin"), NewEnvelope(EventNotification, "admins only"))

	env := receiveEnvelope(t, admin)
	assert.Equal(t, EventNotification, env.Type)
	assert.Equal(t, "admins only", env.Data)
	assertNoEvent(t, agent)
}

func TestHub_SendToAccount(t *testing.T) {
	hub := newTestHub(t, newTestStore(t))
	first := newTestClient(hub, "c-1", 1, "agent", 8)
	second := newTestClient(hub, "c-2", 2, "agent", 8)

	hub.SendToAccount(2, NewEnvelope(EventNotification, "for account 2"))

	env := receiveEnvelope(t, second)
	assert.Equal(t, "for account 2", env.Data)
	assertNoEvent(t, first)
}

func TestHub_BroadcastReachesEveryone(t *testing.T) {
	hub := newTestHub(t, newTestStore(t))
	admin := newTestClient(hub, "c-admin", 1, "admin", 8)
	agent := newTestClient(hub, "c-agent", 2, "agent", 8)

	hub.Broadcast(NewEnvelope(EventDashboardUpdated, nil))

	assert.Equal(t, EventDashboardUpdated, receiveEnvelope(t, admin).Type)
	assert.Equal(t, EventDashboardUpdated, receiveEnvelope(t, agent).Type)
}

func TestHub_SlowClientDropsInsteadOfBlocking(t *testing.T) {
	hub := newTestHub(t, newTestStore(t))
	slow := newTestClient(hub, "c-slow", 1, "agent", 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.BroadcastToRoom(RoomForRole("agent"), NewEnvelope(EventNotification, "first"))
		hub.BroadcastToRoom(RoomForRole("agent"), NewEnvelope(EventNotification, "second"))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}

	env := receiveEnvelope(t, slow)
	assert.Equal(t, "first", env.Data)
	assertNoEvent(t, slow)
	assert.Equal(t, int64(1), hub.DroppedCount())
}

func TestHub_JoinRoomRestrictions(t *testing.T) {
	hub := newTestHub(t, newTestStore(t))
	admin := newTestClient(hub, "c-admin", 1, "admin", 8)
	agent := newTestClient(hub, "c-agent", 2, "agent", 8)

	assert.True(t, hub.canJoin(admin, "role:agent"))
	assert.True(t, hub.canJoin(admin, "account:2"))
	assert.True(t, hub.canJoin(agent, RoomForRole("agent")))
	assert.True(t, hub.canJoin(agent, RoomForAccount(2)))
	assert.False(t, hub.canJoin(agent, "role:admin"))
	assert.False(t, hub.canJoin(agent, "account:1"))
}

func TestHub_LeaveRoomStopsDelivery(t *testing.T) {
	hub := newTestHub(t, newTestStore(t))
	agent := newTestClient(hub, "c-agent", 2, "agent", 8)

	hub.leaveRoom(agent, RoomForRole("agent"))
	hub.BroadcastToRoom(RoomForRole("agent"), NewEnvelope(EventNotification, "gone"))
	assertNoEvent(t, agent)
}

func TestHub_UnregisterCleansUp(t *testing.T) {
	hub := newTestHub(t, newTestStore(t))
	agent := newTestClient(hub, "c-agent", 2, "agent", 8)
	require.Equal(t, 1, hub.SessionCount())

	hub.unregister(agent)
	assert.Equal(t, 0, hub.SessionCount())

	// double unregister is a no-op
	hub.unregister(agent)

	hub.BroadcastToRoom(RoomForRole("agent"), NewEnvelope(EventNotification, "nobody home"))
}

func TestHub_StoreNotifications(t *testing.T) {
	store := newTestStore(t)
	hub := newTestHub(t, store)
	hub.WireStoreNotifications(store)

	admin := newTestClient(hub, "c-admin", 1, "admin", 8)

	tk, err := ticket.NewTicket("T-20260901-0050", "hub wiring", "", vo.PriorityLow, "", "", nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateTicket(context.Background(), tk))

	first := receiveEnvelope(t, admin)
	assert.Equal(t, EventTicketUpdated, first.Type)
	second := receiveEnvelope(t, admin)
	assert.Equal(t, EventDashboardUpdated, second.Type)
}

// End-to-end handshake tests over a real socket.

func dialHub(t *testing.T, server *httptest.Server, token string) (*websocket.Conn, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

func TestHub_Handshake(t *testing.T) {
	store := newTestStore(t)
	hub := newTestHub(t, store)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	admin, err := store.GetAccountByEmail(context.Background(), "admin@parceldesk.local")
	require.NoError(t, err)
	token, err := auth.NewJWTService("test-secret").Generate(admin.ID(), admin.Role().String())
	require.NoError(t, err)

	conn, err := dialHub(t, server, token)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, EventConnected, env.Type)

	_, err = biztime.ParseEventTime(env.Timestamp)
	assert.NoError(t, err)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["connection_id"])
	assert.Equal(t, float64(admin.ID()), data["account_id"])
	assert.Equal(t, "admin", data["role"])
}

func TestHub_HandshakeInvalidToken(t *testing.T) {
	hub := newTestHub(t, newTestStore(t))
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	conn, err := dialHub(t, server, "not-a-token")
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication error")
	assert.Equal(t, 0, hub.SessionCount())
}

func TestHub_HandshakeUnknownAccount(t *testing.T) {
	hub := newTestHub(t, newTestStore(t))
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	token, err := auth.NewJWTService("test-secret").Generate(9999, "admin")
	require.NoError(t, err)

	conn, err := dialHub(t, server, token)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication error")
}

func TestHub_JoinRoomOverSocket(t *testing.T) {
	store := newTestStore(t)
	hub := newTestHub(t, store)
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	admin, err := store.GetAccountByEmail(context.Background(), "admin@parceldesk.local")
	require.NoError(t, err)
	token, err := auth.NewJWTService("test-secret").Generate(admin.ID(), admin.Role().String())
	require.NoError(t, err)

	conn, err := dialHub(t, server, token)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage() // connected greeting
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: clientJoinRoom, Room: "ops"}))

	// wait for the join to land before broadcasting
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.rooms["ops"]) == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastToRoom("ops", NewEnvelope(EventNotification, "room works"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "room works", env.Data)
}
