package datastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"parceldesk/internal/infrastructure/migration"
	"parceldesk/internal/shared/logger"
	"parceldesk/internal/shared/query"
)

// newSeededSQLite opens a throwaway SQLite store with the schema applied and
// the demo dataset loaded, mirroring newSeededStore for the fixture backend.
func newSeededSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	log := logger.NewLogger()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "equivalence.db"))
	require.NoError(t, err)

	require.NoError(t, migration.NewGormAutoMigrate(log).Run(db))

	store := NewSQLiteStore(db, log)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, SeedDemoData(context.Background(), store, fakeHasher{}, log))
	return store
}

func ticketNumbers(t *testing.T, store Store, f query.Filter) []string {
	t.Helper()
	tickets, err := store.ListTickets(context.Background(), f)
	require.NoError(t, err)
	numbers := make([]string, 0, len(tickets))
	for _, tk := range tickets {
		numbers = append(numbers, tk.Number())
	}
	return numbers
}

// Filters with one predicate per operator must yield the same logical result
// set, in the same order, from every backend given equivalent seeded data.
func TestBackendQueryEquivalence(t *testing.T) {
	fixture := newSeededStore(t)
	sqlite := newSeededSQLite(t)

	cases := []struct {
		name   string
		filter query.Filter
	}{
		{
			name: "equality on status",
			filter: query.Filter{
				Conditions: map[string]query.Predicate{"status": query.Eq("open")},
				OrderBy:    "number", OrderDirection: "ASC",
			},
		},
		{
			name: "in on priority",
			filter: query.Filter{
				Conditions: map[string]query.Predicate{"priority": query.In("high", "urgent")},
				OrderBy:    "number", OrderDirection: "ASC",
			},
		},
		{
			name: "substring search",
			filter: query.Filter{
				Search:  "PK900112",
				OrderBy: "number", OrderDirection: "ASC",
			},
		},
		{
			name: "contains on subject",
			filter: query.Filter{
				Conditions: map[string]query.Predicate{"subject": query.Contains("parcel")},
				OrderBy:    "number", OrderDirection: "ASC",
			},
		},
		{
			name: "prefix on number",
			filter: query.Filter{
				Conditions: map[string]query.Predicate{"number": query.Prefix("T-")},
				OrderBy:    "number", OrderDirection: "DESC",
			},
		},
		{
			name: "pagination",
			filter: query.Filter{
				Limit:   2,
				Offset:  1,
				OrderBy: "number", OrderDirection: "ASC",
			},
		},
		{
			// assignee_id is NULL on the unassigned tickets; equality must
			// skip those rows on every backend, not just in SQL.
			name: "equality on nullable assignee",
			filter: query.Filter{
				Conditions: map[string]query.Predicate{"assignee_id": query.Eq(uint(2))},
				OrderBy:    "number", OrderDirection: "ASC",
			},
		},
		{
			name: "range on id",
			filter: query.Filter{
				Conditions: map[string]query.Predicate{"id": query.GTE(3)},
				OrderBy:    "number", OrderDirection: "ASC",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fromFixture := ticketNumbers(t, fixture, tc.filter)
			fromSQLite := ticketNumbers(t, sqlite, tc.filter)
			require.NotEmpty(t, fromFixture)
			require.Equal(t, fromFixture, fromSQLite)
		})
	}
}

func TestBackendEquivalence_AccountsAndBroadcasts(t *testing.T) {
	fixture := newSeededStore(t)
	sqlite := newSeededSQLite(t)
	ctx := context.Background()

	agentFilter := query.Filter{
		Conditions: map[string]query.Predicate{"role": query.Eq("agent")},
		OrderBy:    "email", OrderDirection: "ASC",
	}
	fa, err := fixture.ListAccounts(ctx, agentFilter)
	require.NoError(t, err)
	sa, err := sqlite.ListAccounts(ctx, agentFilter)
	require.NoError(t, err)
	require.Len(t, sa, len(fa))
	for i := range fa {
		require.Equal(t, fa[i].Email(), sa[i].Email())
	}

	failedFilter := query.Filter{
		Conditions: map[string]query.Predicate{"status": query.Eq("failed")},
		OrderBy:    "recipient", OrderDirection: "ASC",
	}
	fb, err := fixture.ListBroadcasts(ctx, failedFilter)
	require.NoError(t, err)
	sb, err := sqlite.ListBroadcasts(ctx, failedFilter)
	require.NoError(t, err)
	require.Len(t, sb, len(fb))
	for i := range fb {
		require.Equal(t, fb[i].Recipient(), sb[i].Recipient())
	}
}
