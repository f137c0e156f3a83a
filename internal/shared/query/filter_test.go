package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parceldesk/internal/shared/errors"
)

var testSchema = Schema{
	Table: "tickets",
	Fields: map[string]bool{
		"id":         true,
		"status":     true,
		"priority":   true,
		"subject":    true,
		"created_at": true,
	},
	SearchFields:          []string{"subject"},
	DefaultOrderBy:        "created_at",
	DefaultOrderDirection: "DESC",
}

func TestFilterNormalize_Defaults(t *testing.T) {
	f, err := Filter{}.Normalize(testSchema)
	require.NoError(t, err)

	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, "created_at", f.OrderBy)
	assert.Equal(t, "DESC", f.OrderDirection)
}

func TestFilterNormalize_ClampsLimit(t *testing.T) {
	f, err := Filter{Limit: 9999}.Normalize(testSchema)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, f.Limit)
}

func TestFilterNormalize_RejectsNegativePagination(t *testing.T) {
	_, err := Filter{Limit: -1}.Normalize(testSchema)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = Filter{Offset: -5}.Normalize(testSchema)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestFilterNormalize_RejectsUnknownFields(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{
			name:   "unknown condition field",
			filter: Filter{Conditions: map[string]Predicate{"password_hash": Eq("x")}},
		},
		{
			name:   "unknown order field",
			filter: Filter{OrderBy: "secret"},
		},
		{
			name:   "unknown search field",
			filter: Filter{Search: "x", SearchFields: []string{"nope"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.filter.Normalize(testSchema)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestFilterNormalize_SearchFieldDefaults(t *testing.T) {
	f, err := Filter{Search: "delayed"}.Normalize(testSchema)
	require.NoError(t, err)
	assert.Equal(t, []string{"subject"}, f.SearchFields)
}

func TestFilterNormalize_OrderDirection(t *testing.T) {
	f, err := Filter{OrderBy: "priority", OrderDirection: "asc"}.Normalize(testSchema)
	require.NoError(t, err)
	assert.Equal(t, "ASC", f.OrderDirection)

	_, err = Filter{OrderBy: "priority", OrderDirection: "sideways"}.Normalize(testSchema)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestFilterNormalize_InvalidPredicates(t *testing.T) {
	_, err := Filter{Conditions: map[string]Predicate{"status": {Op: OpIn}}}.Normalize(testSchema)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = Filter{Conditions: map[string]Predicate{"subject": {Op: OpContains, Value: 42}}}.Normalize(testSchema)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestMatch_Operators(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		pred  Predicate
		value any
		want  bool
	}{
		{"eq string hit", Eq("open"), "open", true},
		{"eq string miss", Eq("open"), "closed", false},
		{"eq uint across widths", Eq(uint(7)), uint(7), true},
		{"contains case-insensitive", Contains("PACKAGE"), "lost package report", true},
		{"contains miss", Contains("refund"), "lost package report", false},
		{"prefix hit", Prefix("T-2026"), "T-20260301-0001", true},
		{"prefix miss", Prefix("T-2025"), "T-20260301-0001", false},
		{"gte time hit", GTE(now), now.Add(time.Hour), true},
		{"gte time miss", GTE(now), now.Add(-time.Hour), false},
		{"lte number hit", LTE(10), 9, true},
		{"in hit", In("open", "pending"), "pending", true},
		{"in miss", In("open", "pending"), "closed", false},
		{"eq nil field vs number", Eq(uint(2)), nil, false},
		{"eq nil field vs string", Eq("open"), nil, false},
		{"eq nil vs nil", Eq(nil), nil, true},
		{"eq unrelated types", Eq("2"), uint(2), false},
		{"in skips nil field", In(uint(1), uint(2)), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pred, tt.value))
		})
	}
}

func TestPatchValidate(t *testing.T) {
	mutable := map[string]bool{"status": true, "priority": true}

	require.NoError(t, Patch{"status": "closed"}.Validate("ticket", mutable))

	err := Patch{}.Validate("ticket", mutable)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	err = Patch{"credential_hash": "x"}.Validate("ticket", mutable)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestPatchSortedFields(t *testing.T) {
	p := Patch{"subject": "a", "priority": "high", "status": "open"}
	assert.Equal(t, []string{"priority", "status", "subject"}, p.SortedFields())
}
