package handlers

import (
	"time"

	"parceldesk/internal/domain/account"
	"parceldesk/internal/domain/broadcast"
	"parceldesk/internal/domain/ticket"
)

type accountResponse struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
}

func toAccountResponse(a *account.Account) accountResponse {
	return accountResponse{
		ID:          a.ID(),
		DisplayName: a.DisplayName(),
		Email:       a.Email(),
		Role:        a.Role().String(),
		Active:      a.IsActive(),
		CreatedAt:   a.CreatedAt().Format(time.RFC3339),
	}
}

type ticketResponse struct {
	ID              uint    `json:"id"`
	Number          string  `json:"number"`
	TrackingRef     string  `json:"tracking_ref,omitempty"`
	CustomerContact string  `json:"customer_contact,omitempty"`
	Subject         string  `json:"subject"`
	Description     string  `json:"description,omitempty"`
	Status          string  `json:"status"`
	Priority        string  `json:"priority"`
	AssigneeID      *uint   `json:"assignee_id"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
	ClosedAt        *string `json:"closed_at"`
}

func toTicketResponse(t *ticket.Ticket) ticketResponse {
	var closedAt *string
	if t.ClosedAt() != nil {
		s := t.ClosedAt().Format(time.RFC3339)
		closedAt = &s
	}
	return ticketResponse{
		ID:              t.ID(),
		Number:          t.Number(),
		TrackingRef:     t.TrackingRef(),
		CustomerContact: t.CustomerContact(),
		Subject:         t.Subject(),
		Description:     t.Description(),
		Status:          t.Status().String(),
		Priority:        t.Priority().String(),
		AssigneeID:      t.AssigneeID(),
		CreatedAt:       t.CreatedAt().Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt().Format(time.RFC3339),
		ClosedAt:        closedAt,
	}
}

func toTicketResponseList(tickets []*ticket.Ticket) []ticketResponse {
	out := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, toTicketResponse(t))
	}
	return out
}

type commentResponse struct {
	ID        uint   `json:"id"`
	TicketID  uint   `json:"ticket_id"`
	AuthorID  *uint  `json:"author_id"`
	Text      string `json:"text"`
	Internal  bool   `json:"internal"`
	CreatedAt string `json:"created_at"`
}

func toCommentResponse(c *ticket.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID(),
		TicketID:  c.TicketID(),
		AuthorID:  c.AuthorID(),
		Text:      c.Text(),
		Internal:  c.IsInternal(),
		CreatedAt: c.CreatedAt().Format(time.RFC3339),
	}
}

type broadcastResponse struct {
	ID          uint           `json:"id"`
	Channel     string         `json:"channel"`
	Recipient   string         `json:"recipient"`
	TrackingRef string         `json:"tracking_ref,omitempty"`
	Message     string         `json:"message,omitempty"`
	Status      string         `json:"status"`
	ErrorDetail string         `json:"error_detail,omitempty"`
	Meta        map[string]any `json:"provider_meta,omitempty"`
	SentAt      string         `json:"sent_at"`
}

func toBroadcastResponse(l *broadcast.Log) broadcastResponse {
	return broadcastResponse{
		ID:          l.ID(),
		Channel:     l.Channel().String(),
		Recipient:   l.Recipient(),
		TrackingRef: l.TrackingRef(),
		Message:     l.Message(),
		Status:      l.Status().String(),
		ErrorDetail: l.ErrorDetail(),
		Meta:        l.ProviderMeta(),
		SentAt:      l.SentAt().Format(time.RFC3339),
	}
}

func toBroadcastResponseList(logs []*broadcast.Log) []broadcastResponse {
	out := make([]broadcastResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toBroadcastResponse(l))
	}
	return out
}
