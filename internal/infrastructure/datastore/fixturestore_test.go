package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parceldesk/internal/domain/account"
	"parceldesk/internal/domain/broadcast"
	"parceldesk/internal/domain/ticket"
	vo "parceldesk/internal/domain/ticket/valueobjects"
	"parceldesk/internal/shared/errors"
	"parceldesk/internal/shared/logger"
	"parceldesk/internal/shared/query"
)

type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) {
	return "hashed:" + plain, nil
}

func newSeededStore(t *testing.T) *FixtureStore {
	t.Helper()
	store := NewFixtureStore(logger.NewLogger())
	require.NoError(t, SeedDemoData(context.Background(), store, fakeHasher{}, logger.NewLogger()))
	return store
}

func TestFixtureStore_SeededData(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	admin, err := store.GetAccountByEmail(ctx, "admin@parceldesk.local")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, account.RoleAdmin, admin.Role())

	tickets, err := store.ListTickets(ctx, query.Filter{})
	require.NoError(t, err)
	assert.Len(t, tickets, 5)

	// seeding twice is rejected
	err = SeedDemoData(ctx, store, fakeHasher{}, logger.NewLogger())
	assert.True(t, errors.IsConstraintError(err))
}

func TestFixtureStore_GetMissingReturnsNil(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	tk, err := store.GetTicketByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, tk)

	a, err := store.GetAccountByEmail(ctx, "nobody@parceldesk.local")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestFixtureStore_ListTickets_Filters(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	open, err := store.ListTickets(ctx, query.Filter{
		Conditions: map[string]query.Predicate{"status": query.Eq("open")},
	})
	require.NoError(t, err)
	assert.Len(t, open, 4)

	closed, err := store.ListTickets(ctx, query.Filter{
		Conditions: map[string]query.Predicate{"status": query.Eq("closed")},
	})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.NotNil(t, closed[0].ClosedAt())

	byRef, err := store.ListTickets(ctx, query.Filter{Search: "PK900112235"})
	require.NoError(t, err)
	require.Len(t, byRef, 1)
	assert.Equal(t, "Wrong delivery address", byRef[0].Subject())

	urgent, err := store.ListTickets(ctx, query.Filter{
		Conditions: map[string]query.Predicate{"priority": query.In("high", "urgent")},
	})
	require.NoError(t, err)
	assert.Len(t, urgent, 2)
}

func TestFixtureStore_ListTickets_Pagination(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	page, err := store.ListTickets(ctx, query.Filter{Limit: 2, Offset: 2, OrderBy: "id", OrderDirection: "ASC"})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint(3), page[0].ID())
	assert.Equal(t, uint(4), page[1].ID())

	empty, err := store.ListTickets(ctx, query.Filter{Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFixtureStore_ListTickets_UnknownFieldRejected(t *testing.T) {
	store := newSeededStore(t)

	_, err := store.ListTickets(context.Background(), query.Filter{
		Conditions: map[string]query.Predicate{"no_such_field": query.Eq("x")},
	})
	assert.True(t, errors.IsValidationError(err))
}

func TestFixtureStore_UpdateTicket_Patch(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	updated, err := store.UpdateTicket(ctx, 1, query.Patch{"status": "pending", "priority": "urgent"})
	require.NoError(t, err)
	assert.Equal(t, vo.StatusPending, updated.Status())
	assert.Equal(t, vo.PriorityUrgent, updated.Priority())
	assert.Nil(t, updated.ClosedAt())

	closed, err := store.UpdateTicket(ctx, 1, query.Patch{"status": "closed"})
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt())
	assert.NoError(t, closed.CheckClosedAtInvariant())

	// closed tickets may only reopen
	_, err = store.UpdateTicket(ctx, 1, query.Patch{"status": "pending"})
	assert.True(t, errors.IsValidationError(err))

	reopened, err := store.UpdateTicket(ctx, 1, query.Patch{"status": "open"})
	require.NoError(t, err)
	assert.Nil(t, reopened.ClosedAt())

	_, err = store.UpdateTicket(ctx, 1, query.Patch{"number": "T-00000000-0001"})
	assert.True(t, errors.IsValidationError(err), "immutable field must be rejected")

	_, err = store.UpdateTicket(ctx, 9999, query.Patch{"status": "pending"})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestFixtureStore_CloseTicket(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	closed, err := store.CloseTicket(ctx, 2, "customer confirmed receipt")
	require.NoError(t, err)
	assert.Equal(t, vo.StatusClosed, closed.Status())
	require.NotNil(t, closed.ClosedAt())

	comments, err := store.ListComments(ctx, 2)
	require.NoError(t, err)
	require.NotEmpty(t, comments)
	last := comments[len(comments)-1]
	assert.Equal(t, "Ticket closed: customer confirmed receipt", last.Text())
	assert.True(t, last.IsInternal())
	assert.Nil(t, last.AuthorID())

	// already closed
	_, err = store.CloseTicket(ctx, 2, "")
	assert.True(t, errors.IsValidationError(err))
}

func TestFixtureStore_CreateAccount_DuplicateEmail(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	dup, err := account.NewAccount("Other Admin", "admin@parceldesk.local", "hash", account.RoleAdmin)
	require.NoError(t, err)
	err = store.CreateAccount(ctx, dup)
	assert.True(t, errors.IsConstraintError(err))
}

func TestFixtureStore_DeleteAccount_BlockedWhileAssigned(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	agent, err := store.GetAccountByEmail(ctx, "agent@parceldesk.local")
	require.NoError(t, err)
	require.NotNil(t, agent)

	// the seeded agent holds ticket assignments
	err = store.DeleteAccount(ctx, agent.ID())
	assert.True(t, errors.IsConstraintError(err))

	// an unreferenced account deletes cleanly
	spare, err := account.NewAccount("Spare Agent", "spare@parceldesk.local", "hash", account.RoleAgent)
	require.NoError(t, err)
	require.NoError(t, store.CreateAccount(ctx, spare))
	require.NoError(t, store.DeleteAccount(ctx, spare.ID()))

	got, err := store.GetAccountByID(ctx, spare.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFixtureStore_CreateTicket_DuplicateNumber(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	existing, err := store.GetTicketByID(ctx, 1)
	require.NoError(t, err)

	dup, err := ticket.NewTicket(existing.Number(), "dup", "", vo.PriorityLow, "", "", nil)
	require.NoError(t, err)
	err = store.CreateTicket(ctx, dup)
	assert.True(t, errors.IsConstraintError(err))
}

func TestFixtureStore_OnChange(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	var gotEntity string
	var gotID uint
	store.OnChange(func(entity string, id uint) {
		gotEntity = entity
		gotID = id
	})

	l, err := broadcast.NewLog(broadcast.ChannelSMS, "+15550009999", "PK1", "hello")
	require.NoError(t, err)
	require.NoError(t, store.CreateBroadcast(ctx, l))

	assert.Equal(t, EntityBroadcast, gotEntity)
	assert.Equal(t, l.ID(), gotID)
}

func TestFixtureStore_DashboardStats(t *testing.T) {
	store := newSeededStore(t)

	stats, err := store.DashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.Tickets.TotalTickets)
	assert.Equal(t, int64(4), stats.Tickets.OpenTickets)
	assert.Equal(t, int64(0), stats.Tickets.PendingTickets)
	assert.Equal(t, int64(1), stats.Tickets.ClosedTickets)

	assert.Equal(t, int64(5), stats.Broadcasts.TotalBroadcasts)
	assert.Equal(t, int64(3), stats.Broadcasts.SuccessfulBroadcasts)
	assert.Equal(t, int64(2), stats.Broadcasts.FailedBroadcasts)

	assert.Equal(t, int64(1), stats.Users.ActiveAgents)
}
