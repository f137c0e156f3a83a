// Package datastore provides the storage backends behind the dashboard: a
// MySQL store speaking parameterized SQL, a SQLite store driven through gorm
// query chains, and an in-memory fixture store for demos and development.
// The Facade probes them in order and hands the application a single Store.
package datastore

import (
	"context"

	"parceldesk/internal/domain/account"
	"parceldesk/internal/domain/broadcast"
	"parceldesk/internal/domain/ticket"
	"parceldesk/internal/shared/query"
)

// Kind identifies which backend a Store is built on.
type Kind string

const (
	KindMySQL   Kind = "mysql"
	KindSQLite  Kind = "sqlite"
	KindFixture Kind = "fixture"
)

// Store is the uniform data access contract all backends implement.
//
// Lookups by ID return (nil, nil) when no row matches; errors are reserved
// for backend failures. Update takes a field patch validated against the
// entity's mutable field set.
type Store interface {
	// Accounts
	GetAccountByID(ctx context.Context, id uint) (*account.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*account.Account, error)
	ListAccounts(ctx context.Context, filter query.Filter) ([]*account.Account, error)
	CreateAccount(ctx context.Context, a *account.Account) error
	UpdateAccount(ctx context.Context, id uint, patch query.Patch) (*account.Account, error)
	DeleteAccount(ctx context.Context, id uint) error

	// Tickets
	GetTicketByID(ctx context.Context, id uint) (*ticket.Ticket, error)
	GetTicketByNumber(ctx context.Context, number string) (*ticket.Ticket, error)
	ListTickets(ctx context.Context, filter query.Filter) ([]*ticket.Ticket, error)
	CreateTicket(ctx context.Context, t *ticket.Ticket) error
	UpdateTicket(ctx context.Context, id uint, patch query.Patch) (*ticket.Ticket, error)
	DeleteTicket(ctx context.Context, id uint) error
	AddComment(ctx context.Context, c *ticket.Comment) error
	ListComments(ctx context.Context, ticketID uint) ([]*ticket.Comment, error)
	// CloseTicket closes the ticket and records the note as an internal
	// system comment in one step.
	CloseTicket(ctx context.Context, id uint, note string) (*ticket.Ticket, error)

	// Broadcast logs
	GetBroadcastByID(ctx context.Context, id uint) (*broadcast.Log, error)
	ListBroadcasts(ctx context.Context, filter query.Filter) ([]*broadcast.Log, error)
	CreateBroadcast(ctx context.Context, l *broadcast.Log) error
	UpdateBroadcast(ctx context.Context, id uint, patch query.Patch) (*broadcast.Log, error)

	// Dashboard
	DashboardStats(ctx context.Context) (*DashboardStats, error)

	HealthCheck(ctx context.Context) error
	Kind() Kind
	Close() error
}

// RawQuerier is an optional capability for backends that accept raw
// parameterized SQL. Backends without it surface the operation as
// unsupported through the facade.
type RawQuerier interface {
	RawQuery(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// ChangeNotifier is an optional capability for backends that can push
// change notifications without polling. The fixture store implements it so
// the realtime hub works end to end in demo mode.
type ChangeNotifier interface {
	OnChange(fn func(entity string, id uint))
}

// TicketStats aggregates ticket counts for the dashboard.
type TicketStats struct {
	TotalTickets   int64 `json:"total_tickets"`
	OpenTickets    int64 `json:"open_tickets"`
	PendingTickets int64 `json:"pending_tickets"`
	ClosedTickets  int64 `json:"closed_tickets"`
}

// BroadcastStats aggregates today's notification delivery counts.
type BroadcastStats struct {
	TotalBroadcasts      int64 `json:"total_broadcasts"`
	SuccessfulBroadcasts int64 `json:"successful_broadcasts"`
	FailedBroadcasts     int64 `json:"failed_broadcasts"`
}

// UserStats aggregates staff counts for the dashboard.
type UserStats struct {
	ActiveAgents int64 `json:"active_agents"`
}

// DashboardStats is the aggregate snapshot rendered on the dashboard
// landing page. Broadcast counts are scoped to the current UTC day.
type DashboardStats struct {
	Tickets    TicketStats    `json:"tickets"`
	Broadcasts BroadcastStats `json:"broadcasts"`
	Users      UserStats      `json:"users"`
}

// Queryable field sets per entity. The translator and the in-memory
// evaluator both validate filters against these.
var (
	TicketSchema = query.Schema{
		Table: "tickets",
		Fields: map[string]bool{
			"id":               true,
			"number":           true,
			"tracking_ref":     true,
			"customer_contact": true,
			"subject":          true,
			"description":      true,
			"status":           true,
			"priority":         true,
			"assignee_id":      true,
			"created_at":       true,
			"updated_at":       true,
			"closed_at":        true,
		},
		SearchFields:          []string{"number", "subject", "tracking_ref", "customer_contact"},
		DefaultOrderBy:        "created_at",
		DefaultOrderDirection: "DESC",
	}

	AccountSchema = query.Schema{
		Table: "accounts",
		Fields: map[string]bool{
			"id":           true,
			"display_name": true,
			"email":        true,
			"role":         true,
			"active":       true,
			"created_at":   true,
			"updated_at":   true,
		},
		SearchFields:          []string{"display_name", "email"},
		DefaultOrderBy:        "created_at",
		DefaultOrderDirection: "DESC",
	}

	BroadcastSchema = query.Schema{
		Table: "broadcast_logs",
		Fields: map[string]bool{
			"id":           true,
			"channel":      true,
			"recipient":    true,
			"tracking_ref": true,
			"message":      true,
			"status":       true,
			"error_detail": true,
			"sent_at":      true,
			"created_at":   true,
			"updated_at":   true,
		},
		SearchFields:          []string{"recipient", "tracking_ref", "message"},
		DefaultOrderBy:        "sent_at",
		DefaultOrderDirection: "DESC",
	}
)

// Mutable field sets accepted by Update patches.
var (
	TicketMutableFields = map[string]bool{
		"subject":          true,
		"description":      true,
		"status":           true,
		"priority":         true,
		"assignee_id":      true,
		"tracking_ref":     true,
		"customer_contact": true,
	}

	AccountMutableFields = map[string]bool{
		"display_name": true,
		"role":         true,
		"active":       true,
	}

	BroadcastMutableFields = map[string]bool{
		"status":       true,
		"error_detail": true,
	}
)
