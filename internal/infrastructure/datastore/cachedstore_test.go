package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parceldesk/internal/domain/ticket"
	vo "parceldesk/internal/domain/ticket/valueobjects"
	"parceldesk/internal/shared/errors"
	"parceldesk/internal/shared/logger"
	"parceldesk/internal/shared/query"
)

func newCachedFixture(t *testing.T) *CachedStore {
	t.Helper()
	return NewCachedStore(newSeededStore(t), NewMemoryCache(time.Minute), logger.NewLogger())
}

func TestCachedStore_ReadThrough(t *testing.T) {
	store := newCachedFixture(t)
	ctx := context.Background()

	first, err := store.ListTickets(ctx, query.Filter{})
	require.NoError(t, err)
	second, err := store.ListTickets(ctx, query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))

	stats := store.CacheStats(ctx)
	assert.GreaterOrEqual(t, stats.Hits, int64(1))
}

func TestCachedStore_MutationInvalidates(t *testing.T) {
	store := newCachedFixture(t)
	ctx := context.Background()

	before, err := store.ListTickets(ctx, query.Filter{})
	require.NoError(t, err)

	tk, err := ticket.NewTicket("T-20260901-0099", "New issue", "", vo.PriorityLow, "PKX", "", nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateTicket(ctx, tk))

	// a read after a successful mutation must see the new state
	after, err := store.ListTickets(ctx, query.Filter{})
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
}

func TestCachedStore_UpdateInvalidatesGet(t *testing.T) {
	store := newCachedFixture(t)
	ctx := context.Background()

	tk, err := store.GetTicketByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, vo.StatusOpen, tk.Status())

	_, err = store.UpdateTicket(ctx, 1, query.Patch{"status": "pending"})
	require.NoError(t, err)

	tk, err = store.GetTicketByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusPending, tk.Status())
}

func TestCachedStore_DashboardStatsInvalidatedByClose(t *testing.T) {
	store := newCachedFixture(t)
	ctx := context.Background()

	stats, err := store.DashboardStats(ctx)
	require.NoError(t, err)
	closedBefore := stats.Tickets.ClosedTickets

	_, err = store.CloseTicket(ctx, 1, "done")
	require.NoError(t, err)

	stats, err = store.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, closedBefore+1, stats.Tickets.ClosedTickets)
}

func TestCachedStore_NilLookupNotCached(t *testing.T) {
	store := newCachedFixture(t)
	ctx := context.Background()

	tk, err := store.GetTicketByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, tk)

	tk, err = store.GetTicketByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, tk)

	stats := store.CacheStats(ctx)
	assert.Equal(t, int64(0), stats.Hits)
}

func TestCachedStore_RawQueryUnsupportedOnFixture(t *testing.T) {
	store := newCachedFixture(t)

	_, err := store.RawQuery(context.Background(), "SELECT * FROM tickets")
	assert.True(t, errors.IsUnsupportedError(err))
}

func TestCachedStore_RoundTripPreservesClosedAt(t *testing.T) {
	store := newCachedFixture(t)
	ctx := context.Background()

	// prime the cache, then read the closed seed ticket back through it
	for i := 0; i < 2; i++ {
		closed, err := store.ListTickets(ctx, query.Filter{
			Conditions: map[string]query.Predicate{"status": query.Eq("closed")},
		})
		require.NoError(t, err)
		require.Len(t, closed, 1)
		require.NotNil(t, closed[0].ClosedAt())
		assert.NoError(t, closed[0].CheckClosedAtInvariant())
	}
}

func TestCachedStore_ClearCache(t *testing.T) {
	store := newCachedFixture(t)
	ctx := context.Background()

	_, err := store.ListTickets(ctx, query.Filter{})
	require.NoError(t, err)

	store.ClearCache(ctx)
	assert.Equal(t, int64(0), store.CacheStats(ctx).Entries)
}

func TestCachedStore_KindPassthrough(t *testing.T) {
	store := newCachedFixture(t)
	assert.Equal(t, KindFixture, store.Kind())
	assert.NoError(t, store.HealthCheck(context.Background()))
}
