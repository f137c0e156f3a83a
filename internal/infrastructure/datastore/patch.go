package datastore

import (
	"fmt"

	"parceldesk/internal/domain/account"
	"parceldesk/internal/domain/broadcast"
	"parceldesk/internal/domain/ticket"
	vo "parceldesk/internal/domain/ticket/valueobjects"
	"parceldesk/internal/shared/biztime"
	"parceldesk/internal/shared/errors"
	"parceldesk/internal/shared/query"
	"parceldesk/internal/shared/sanitize"
)

// applyTicketPatch validates a patch against the current ticket and returns
// the updated entity. Status changes go through the transition rules, and
// closed_at is derived from the status so a patch can never desynchronize
// the two.
func applyTicketPatch(t *ticket.Ticket, patch query.Patch) (*ticket.Ticket, error) {
	if err := patch.Validate("ticket", TicketMutableFields); err != nil {
		return nil, err
	}

	now := biztime.NowUTC()
	subject := t.Subject()
	description := t.Description()
	trackingRef := t.TrackingRef()
	customerContact := t.CustomerContact()
	status := t.Status()
	priority := t.Priority()
	assigneeID := t.AssigneeID()
	closedAt := t.ClosedAt()

	for _, field := range patch.SortedFields() {
		value := patch[field]
		switch field {
		case "subject":
			s, ok := value.(string)
			if !ok {
				return nil, errors.NewValidationError("subject must be a string")
			}
			s = sanitize.Text(s)
			if s == "" {
				return nil, errors.NewValidationError("subject cannot be empty")
			}
			subject = s
		case "description":
			s, ok := value.(string)
			if !ok {
				return nil, errors.NewValidationError("description must be a string")
			}
			description = sanitize.Text(s)
		case "tracking_ref":
			s, ok := value.(string)
			if !ok {
				return nil, errors.NewValidationError("tracking_ref must be a string")
			}
			trackingRef = sanitize.Text(s)
		case "customer_contact":
			s, ok := value.(string)
			if !ok {
				return nil, errors.NewValidationError("customer_contact must be a string")
			}
			customerContact = sanitize.Text(s)
		case "priority":
			s, ok := value.(string)
			if !ok {
				return nil, errors.NewValidationError("priority must be a string")
			}
			p, err := vo.NewPriority(s)
			if err != nil {
				return nil, errors.NewValidationError(err.Error())
			}
			priority = p
		case "status":
			s, ok := value.(string)
			if !ok {
				return nil, errors.NewValidationError("status must be a string")
			}
			next, err := vo.NewTicketStatus(s)
			if err != nil {
				return nil, errors.NewValidationError(err.Error())
			}
			if next != status && !status.CanTransitionTo(next) {
				return nil, errors.NewValidationError(
					fmt.Sprintf("cannot transition ticket from %s to %s", status, next))
			}
			if next != status {
				if next.IsClosed() {
					ts := now
					closedAt = &ts
				} else {
					closedAt = nil
				}
			}
			status = next
		case "assignee_id":
			id, err := toOptionalID(value)
			if err != nil {
				return nil, errors.NewValidationError("assignee_id must be a positive integer or null")
			}
			assigneeID = id
		}
	}

	updated := ticket.ReconstructTicket(
		t.ID(), t.Number(), trackingRef, customerContact, subject, description,
		status, priority, assigneeID, t.CreatedAt(), now, closedAt,
	)
	if err := updated.CheckClosedAtInvariant(); err != nil {
		return nil, errors.NewInternalError(err.Error())
	}
	return updated, nil
}

func applyAccountPatch(a *account.Account, patch query.Patch) (*account.Account, error) {
	if err := patch.Validate("account", AccountMutableFields); err != nil {
		return nil, err
	}

	displayName := a.DisplayName()
	role := a.Role()
	active := a.IsActive()

	for _, field := range patch.SortedFields() {
		value := patch[field]
		switch field {
		case "display_name":
			s, ok := value.(string)
			if !ok {
				return nil, errors.NewValidationError("display_name must be a string")
			}
			s = sanitize.Text(s)
			if s == "" {
				return nil, errors.NewValidationError("display_name cannot be empty")
			}
			displayName = s
		case "role":
			s, ok := value.(string)
			if !ok {
				return nil, errors.NewValidationError("role must be a string")
			}
			r, err := account.NewRole(s)
			if err != nil {
				return nil, errors.NewValidationError(err.Error())
			}
			role = r
		case "active":
			b, ok := value.(bool)
			if !ok {
				return nil, errors.NewValidationError("active must be a boolean")
			}
			active = b
		}
	}

	return account.ReconstructAccount(
		a.ID(), displayName, a.Email(), a.CredentialHash(), role, active,
		a.CreatedAt(), biztime.NowUTC(),
	), nil
}

func applyBroadcastPatch(l *broadcast.Log, patch query.Patch) (*broadcast.Log, error) {
	if err := patch.Validate("broadcast", BroadcastMutableFields); err != nil {
		return nil, err
	}

	status := l.Status()
	errorDetail := l.ErrorDetail()

	for _, field := range patch.SortedFields() {
		value := patch[field]
		switch field {
		case "status":
			s, ok := value.(string)
			if !ok {
				return nil, errors.NewValidationError("status must be a string")
			}
			st, err := broadcast.NewStatus(s)
			if err != nil {
				return nil, errors.NewValidationError(err.Error())
			}
			status = st
		case "error_detail":
			s, ok := value.(string)
			if !ok {
				return nil, errors.NewValidationError("error_detail must be a string")
			}
			errorDetail = sanitize.Text(s)
		}
	}

	return broadcast.ReconstructLog(
		l.ID(), l.Channel(), l.Recipient(), l.TrackingRef(), l.Message(),
		status, errorDetail, l.ProviderMeta(), l.SentAt(), l.CreatedAt(), biztime.NowUTC(),
	), nil
}

// toOptionalID accepts nil, uint and the integer forms JSON decoding
// produces.
func toOptionalID(value any) (*uint, error) {
	if value == nil {
		return nil, nil
	}
	var id uint
	switch n := value.(type) {
	case uint:
		id = n
	case int:
		if n <= 0 {
			return nil, fmt.Errorf("non-positive id")
		}
		id = uint(n)
	case int64:
		if n <= 0 {
			return nil, fmt.Errorf("non-positive id")
		}
		id = uint(n)
	case float64:
		if n <= 0 || n != float64(uint(n)) {
			return nil, fmt.Errorf("not a positive integer")
		}
		id = uint(n)
	default:
		return nil, fmt.Errorf("unsupported id type %T", value)
	}
	if id == 0 {
		return nil, fmt.Errorf("non-positive id")
	}
	return &id, nil
}
