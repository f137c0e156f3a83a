package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "parceldesk/internal/domain/ticket/valueobjects"
)

func newTestTicket(t *testing.T) *Ticket {
	t.Helper()
	tk, err := NewTicket("T-20260301-0001", "Package stuck in transit", "Customer reports no movement for 5 days", vo.PriorityMedium, "PK123456789", "+15550001111", nil)
	require.NoError(t, err)
	return tk
}

func TestNewTicket(t *testing.T) {
	tk := newTestTicket(t)

	assert.Equal(t, vo.StatusOpen, tk.Status())
	assert.Nil(t, tk.ClosedAt())
	assert.Equal(t, "T-20260301-0001", tk.Number())
	assert.False(t, tk.CreatedAt().IsZero())
	assert.NoError(t, tk.CheckClosedAtInvariant())
}

func TestNewTicket_Validation(t *testing.T) {
	_, err := NewTicket("", "subject", "", vo.PriorityLow, "", "", nil)
	assert.Error(t, err)

	_, err = NewTicket("T-20260301-0002", "", "", vo.PriorityLow, "", "", nil)
	assert.Error(t, err)

	_, err = NewTicket("T-20260301-0003", "subject", "", vo.Priority("extreme"), "", "", nil)
	assert.Error(t, err)
}

func TestNewTicket_SanitizesMarkup(t *testing.T) {
	tk, err := NewTicket("T-20260301-0004", "<script>alert(1)</script>Damaged box", "<b>torn</b> on arrival", vo.PriorityHigh, "", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "Damaged box", tk.Subject())
	assert.Equal(t, "torn on arrival", tk.Description())
}

func TestTicket_CloseSetsClosedAt(t *testing.T) {
	tk := newTestTicket(t)

	require.NoError(t, tk.Close())
	assert.Equal(t, vo.StatusClosed, tk.Status())
	require.NotNil(t, tk.ClosedAt())
	assert.NoError(t, tk.CheckClosedAtInvariant())

	// closing twice is rejected
	assert.Error(t, tk.Close())
}

func TestTicket_ReopenClearsClosedAt(t *testing.T) {
	tk := newTestTicket(t)
	require.NoError(t, tk.Close())

	require.NoError(t, tk.Reopen())
	assert.Equal(t, vo.StatusOpen, tk.Status())
	assert.Nil(t, tk.ClosedAt())
	assert.NoError(t, tk.CheckClosedAtInvariant())
}

func TestTicket_ReopenRequiresClosed(t *testing.T) {
	tk := newTestTicket(t)
	assert.Error(t, tk.Reopen())
}

func TestTicket_ClosedAtInvariantAcrossTransitions(t *testing.T) {
	tk := newTestTicket(t)

	for _, status := range []vo.TicketStatus{vo.StatusPending, vo.StatusOnHold, vo.StatusClosed, vo.StatusOpen} {
		require.NoError(t, tk.TransitionTo(status))
		assert.NoError(t, tk.CheckClosedAtInvariant(), "after transition to %s", status)
		if status.IsClosed() {
			assert.NotNil(t, tk.ClosedAt())
		} else {
			assert.Nil(t, tk.ClosedAt())
		}
	}
}

func TestTicket_InvalidTransition(t *testing.T) {
	tk := newTestTicket(t)
	require.NoError(t, tk.Close())

	// closed tickets can only go back to open
	assert.Error(t, tk.TransitionTo(vo.StatusPending))
	assert.Error(t, tk.TransitionTo(vo.StatusOnHold))
}

func TestTicket_Assign(t *testing.T) {
	tk := newTestTicket(t)

	agentID := uint(7)
	tk.Assign(&agentID)
	require.NotNil(t, tk.AssigneeID())
	assert.Equal(t, uint(7), *tk.AssigneeID())

	tk.Assign(nil)
	assert.Nil(t, tk.AssigneeID())
}

func TestCheckClosedAtInvariant_Violations(t *testing.T) {
	now := time.Now().UTC()

	closedNoTimestamp := ReconstructTicket(1, "T-20260301-0005", "", "", "s", "", vo.StatusClosed, vo.PriorityLow, nil, now, now, nil)
	assert.Error(t, closedNoTimestamp.CheckClosedAtInvariant())

	openWithTimestamp := ReconstructTicket(2, "T-20260301-0006", "", "", "s", "", vo.StatusOpen, vo.PriorityLow, nil, now, now, &now)
	assert.Error(t, openWithTimestamp.CheckClosedAtInvariant())
}

func TestComment(t *testing.T) {
	authorID := uint(3)
	c, err := NewComment(1, &authorID, "  called the customer back  ", false)
	require.NoError(t, err)
	assert.Equal(t, "called the customer back", c.Text())
	assert.False(t, c.IsInternal())

	_, err = NewComment(1, &authorID, "   ", false)
	assert.Error(t, err)

	sys, err := NewSystemComment(1, "Ticket closed: resolved by carrier")
	require.NoError(t, err)
	assert.True(t, sys.IsInternal())
	assert.Nil(t, sys.AuthorID())
}

func TestNumberFormat(t *testing.T) {
	day := time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "T-20260301-", NumberPrefix(day))
	assert.Equal(t, "T-20260301-0042", FormatNumber(day, 42))
	assert.Equal(t, 42, ParseNumberSequence("T-20260301-0042", "T-20260301-"))
	assert.Equal(t, 0, ParseNumberSequence("garbage", "T-20260301-"))
}
