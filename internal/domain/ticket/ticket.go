// Package ticket contains the support ticket aggregate. Tickets are created
// either by staff through the dashboard or by the external delivery
// automation, and reference packages by tracking number.
package ticket

import (
	"fmt"
	"time"

	vo "parceldesk/internal/domain/ticket/valueobjects"
	"parceldesk/internal/shared/biztime"
	"parceldesk/internal/shared/sanitize"
)

type Ticket struct {
	id              uint
	number          string
	trackingRef     string
	customerContact string
	subject         string
	description     string
	status          vo.TicketStatus
	priority        vo.Priority
	assigneeID      *uint
	createdAt       time.Time
	updatedAt       time.Time
	closedAt        *time.Time
	comments        []*Comment
}

func NewTicket(
	number string,
	subject string,
	description string,
	priority vo.Priority,
	trackingRef string,
	customerContact string,
	assigneeID *uint,
) (*Ticket, error) {
	if number == "" {
		return nil, fmt.Errorf("ticket number is required")
	}

	subject = sanitize.Text(subject)
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if len(subject) > 200 {
		return nil, fmt.Errorf("subject exceeds maximum length of 200 characters")
	}

	description = sanitize.Text(description)
	if len(description) > 5000 {
		return nil, fmt.Errorf("description exceeds maximum length of 5000 characters")
	}

	if !priority.IsValid() {
		return nil, fmt.Errorf("invalid ticket priority: %s", priority)
	}

	now := biztime.NowUTC()
	return &Ticket{
		number:          number,
		trackingRef:     sanitize.Text(trackingRef),
		customerContact: sanitize.Text(customerContact),
		subject:         subject,
		description:     description,
		status:          vo.StatusOpen,
		priority:        priority,
		assigneeID:      assigneeID,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructTicket rebuilds a ticket from persistence without validation.
func ReconstructTicket(
	id uint,
	number string,
	trackingRef string,
	customerContact string,
	subject string,
	description string,
	status vo.TicketStatus,
	priority vo.Priority,
	assigneeID *uint,
	createdAt time.Time,
	updatedAt time.Time,
	closedAt *time.Time,
) *Ticket {
	return &Ticket{
		id:              id,
		number:          number,
		trackingRef:     trackingRef,
		customerContact: customerContact,
		subject:         subject,
		description:     description,
		status:          status,
		priority:        priority,
		assigneeID:      assigneeID,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
		closedAt:        closedAt,
	}
}

func (t *Ticket) ID() uint { return t.id }
func (t *Ticket) Number() string { return t.number }
func (t *Ticket) TrackingRef() string { return t.trackingRef }
func (t *Ticket) CustomerContact() string { return t.customerContact }
func (t *Ticket) Subject() string { return t.subject }
func (t *Ticket) Description() string { return t.description }
func (t *Ticket) Status() vo.TicketStatus { return t.status }
func (t *Ticket) Priority() vo.Priority { return t.priority }
func (t *Ticket) AssigneeID() *uint { return t.assigneeID }
func (t *Ticket) CreatedAt() time.Time { return t.createdAt }
func (t *Ticket) UpdatedAt() time.Time { return t.updatedAt }
func (t *Ticket) ClosedAt() *time.Time { return t.closedAt }
func (t *Ticket) Comments() []*Comment { return t.comments }

// SetID assigns the persistence-generated ID once.
func (t *Ticket) SetID(id uint) error {
	if t.id != 0 {
		return fmt.Errorf("ticket ID already set")
	}
	t.id = id
	return nil
}

// SetComments replaces the loaded comment list (repository use).
func (t *Ticket) SetComments(comments []*Comment) {
	t.comments = comments
}

// TransitionTo moves the ticket to a new status, maintaining the closed_at
// invariant: closed_at is set exactly when the ticket is closed and cleared
// when it leaves the closed state.
func (t *Ticket) TransitionTo(status vo.TicketStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid ticket status: %s", status)
	}
	if status == t.status {
		return nil
	}
	if !t.status.CanTransitionTo(status) {
		return fmt.Errorf("cannot transition ticket from %s to %s", t.status, status)
	}

	now := biztime.NowUTC()
	t.status = status
	t.updatedAt = now

	if status.IsClosed() {
		t.closedAt = &now
	} else {
		t.closedAt = nil
	}

	return nil
}

// Close transitions the ticket to closed.
func (t *Ticket) Close() error {
	if t.status.IsClosed() {
		return fmt.Errorf("ticket is already closed")
	}
	return t.TransitionTo(vo.StatusClosed)
}

// Reopen transitions a closed ticket back to open.
func (t *Ticket) Reopen() error {
	if !t.status.IsClosed() {
		return fmt.Errorf("only closed tickets can be reopened")
	}
	return t.TransitionTo(vo.StatusOpen)
}

func (t *Ticket) ChangePriority(priority vo.Priority) error {
	if !priority.IsValid() {
		return fmt.Errorf("invalid ticket priority: %s", priority)
	}
	t.priority = priority
	t.updatedAt = biztime.NowUTC()
	return nil
}

// Assign sets the handling agent; a nil id unassigns.
func (t *Ticket) Assign(accountID *uint) {
	t.assigneeID = accountID
	t.updatedAt = biztime.NowUTC()
}

// CheckClosedAtInvariant verifies closed_at is non-nil exactly when the
// ticket is closed. Stores call this after reconstructing or patching.
func (t *Ticket) CheckClosedAtInvariant() error {
	if t.status.IsClosed() && t.closedAt == nil {
		return fmt.Errorf("ticket %s is closed but has no closed_at", t.number)
	}
	if !t.status.IsClosed() && t.closedAt != nil {
		return fmt.Errorf("ticket %s is %s but has closed_at set", t.number, t.status)
	}
	return nil
}
