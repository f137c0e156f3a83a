// Package services holds small infrastructure services built on the data
// store.
package services

import (
	"context"
	"sync"

	"parceldesk/internal/domain/ticket"
	"parceldesk/internal/infrastructure/datastore"
	"parceldesk/internal/shared/biztime"
	"parceldesk/internal/shared/query"
)

// TicketNumberGenerator allocates sequential per-day ticket numbers in the
// form T-YYYYMMDD-NNNN. The sequence restarts at 0001 each UTC day; the
// highest existing number for the day seeds the counter so numbering
// survives restarts.
type TicketNumberGenerator struct {
	mu    sync.Mutex
	store datastore.Store
}

func NewTicketNumberGenerator(store datastore.Store) *TicketNumberGenerator {
	return &TicketNumberGenerator{store: store}
}

func (g *TicketNumberGenerator) Next(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := biztime.NowUTC()
	prefix := ticket.NumberPrefix(now)

	latest, err := g.store.ListTickets(ctx, query.Filter{
		Conditions: map[string]query.Predicate{
			"number": query.Prefix(prefix),
		},
		OrderBy:        "number",
		OrderDirection: "DESC",
		Limit:          1,
	})
	if err != nil {
		return "", err
	}

	seq := 1
	if len(latest) > 0 {
		seq = ticket.ParseNumberSequence(latest[0].Number(), prefix) + 1
	}
	return ticket.FormatNumber(now, seq), nil
}
