// Package realtime pushes dashboard events to staff browsers over
// websockets. Connections authenticate with an access token during the
// handshake and are then scoped to rooms; events are only delivered to the
// rooms they target.
package realtime

import (
	"fmt"

	"parceldesk/internal/shared/biztime"
)

// Event types pushed to clients.
const (
	EventConnected        = "connected"
	EventTicketCreated    = "ticket:created"
	EventTicketUpdated    = "ticket:updated"
	EventBroadcastUpdated = "broadcast:updated"
	EventDashboardUpdated = "dashboard:updated"
	EventNotification     = "notification"
	EventUpdate           = "update"
)

// Message types accepted from clients.
const (
	clientJoinRoom  = "join-room"
	clientLeaveRoom = "leave-room"
)

// Envelope is the wire format for every pushed event.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewEnvelope stamps an event with the current time in RFC3339.
func NewEnvelope(eventType string, data any) Envelope {
	return Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: biztime.FormatEventTime(biztime.NowUTC()),
	}
}

// clientMessage is what clients may send after the handshake.
type clientMessage struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

// RoomForRole returns the room every member of a role joins.
func RoomForRole(role string) string {
	return "role:" + role
}

// RoomForAccount returns an account's private room.
func RoomForAccount(accountID uint) string {
	return fmt.Sprintf("account:%d", accountID)
}
