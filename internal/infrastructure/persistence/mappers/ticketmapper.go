package mappers

import (
	"time"

	"parceldesk/internal/domain/ticket"
	vo "parceldesk/internal/domain/ticket/valueobjects"
	"parceldesk/internal/infrastructure/persistence/models"
)

// TicketMapper converts between ticket entities and TicketModel.
type TicketMapper struct{}

func NewTicketMapper() *TicketMapper {
	return &TicketMapper{}
}

func (m *TicketMapper) ToModel(t *ticket.Ticket) *models.TicketModel {
	var closedAt *int64
	if t.ClosedAt() != nil {
		millis := t.ClosedAt().UnixMilli()
		closedAt = &millis
	}

	return &models.TicketModel{
		ID:              t.ID(),
		Number:          t.Number(),
		TrackingRef:     t.TrackingRef(),
		CustomerContact: t.CustomerContact(),
		Subject:         t.Subject(),
		Description:     t.Description(),
		Status:          t.Status().String(),
		Priority:        t.Priority().String(),
		AssigneeID:      t.AssigneeID(),
		CreatedAt:       t.CreatedAt().UnixMilli(),
		UpdatedAt:       t.UpdatedAt().UnixMilli(),
		ClosedAt:        closedAt,
	}
}

func (m *TicketMapper) ToDomain(model *models.TicketModel) *ticket.Ticket {
	var closedAt *time.Time
	if model.ClosedAt != nil {
		ts := time.UnixMilli(*model.ClosedAt).UTC()
		closedAt = &ts
	}

	t := ticket.ReconstructTicket(
		model.ID,
		model.Number,
		model.TrackingRef,
		model.CustomerContact,
		model.Subject,
		model.Description,
		vo.TicketStatus(model.Status),
		vo.Priority(model.Priority),
		model.AssigneeID,
		time.UnixMilli(model.CreatedAt).UTC(),
		time.UnixMilli(model.UpdatedAt).UTC(),
		closedAt,
	)

	if len(model.Comments) > 0 {
		comments := make([]*ticket.Comment, 0, len(model.Comments))
		for i := range model.Comments {
			comments = append(comments, m.CommentToDomain(&model.Comments[i]))
		}
		t.SetComments(comments)
	}

	return t
}

func (m *TicketMapper) ToDomainList(modelList []*models.TicketModel) []*ticket.Ticket {
	tickets := make([]*ticket.Ticket, 0, len(modelList))
	for _, model := range modelList {
		tickets = append(tickets, m.ToDomain(model))
	}
	return tickets
}

func (m *TicketMapper) CommentToModel(c *ticket.Comment) *models.TicketCommentModel {
	return &models.TicketCommentModel{
		ID:        c.ID(),
		TicketID:  c.TicketID(),
		AuthorID:  c.AuthorID(),
		Text:      c.Text(),
		Internal:  c.IsInternal(),
		CreatedAt: c.CreatedAt().UnixMilli(),
	}
}

func (m *TicketMapper) CommentToDomain(model *models.TicketCommentModel) *ticket.Comment {
	return ticket.ReconstructComment(
		model.ID,
		model.TicketID,
		model.AuthorID,
		model.Text,
		model.Internal,
		time.UnixMilli(model.CreatedAt).UTC(),
	)
}
