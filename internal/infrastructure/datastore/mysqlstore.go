package datastore

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"parceldesk/internal/domain/account"
	"parceldesk/internal/domain/broadcast"
	"parceldesk/internal/domain/ticket"
	"parceldesk/internal/infrastructure/persistence/mappers"
	"parceldesk/internal/infrastructure/persistence/models"
	"parceldesk/internal/shared/biztime"
	"parceldesk/internal/shared/errors"
	"parceldesk/internal/shared/logger"
	"parceldesk/internal/shared/query"
)

// MySQLStore is the primary relational backend. Reads, updates and deletes
// go through the SQL translator as parameterized statements; inserts use the
// persistence models so auto-increment IDs come back without a second round
// trip. It implements RawQuerier for ad-hoc admin queries.
type MySQLStore struct {
	db         *gorm.DB
	translator *SQLTranslator
	log        logger.Interface

	accountMapper   *mappers.AccountMapper
	ticketMapper    *mappers.TicketMapper
	broadcastMapper *mappers.BroadcastMapper
}

func NewMySQLStore(db *gorm.DB, log logger.Interface) *MySQLStore {
	return &MySQLStore{
		db:              db,
		translator:      NewSQLTranslator(),
		log:             log.Named("mysql-store"),
		accountMapper:   mappers.NewAccountMapper(),
		ticketMapper:    mappers.NewTicketMapper(),
		broadcastMapper: mappers.NewBroadcastMapper(),
	}
}

// DB exposes the underlying connection for migration tooling.
func (s *MySQLStore) DB() *gorm.DB {
	return s.db
}

// Accounts

func (s *MySQLStore) GetAccountByID(ctx context.Context, id uint) (*account.Account, error) {
	var model models.AccountModel
	res := s.db.WithContext(ctx).Raw("SELECT * FROM accounts WHERE id = ? LIMIT 1", id).Scan(&model)
	if res.Error != nil {
		return nil, translateDBError(res.Error, "account lookup")
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.accountMapper.ToDomain(&model), nil
}

func (s *MySQLStore) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	var model models.AccountModel
	res := s.db.WithContext(ctx).
		Raw("SELECT * FROM accounts WHERE email = ? LIMIT 1", strings.ToLower(strings.TrimSpace(email))).
		Scan(&model)
	if res.Error != nil {
		return nil, translateDBError(res.Error, "account lookup")
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.accountMapper.ToDomain(&model), nil
}

func (s *MySQLStore) ListAccounts(ctx context.Context, filter query.Filter) ([]*account.Account, error) {
	f, err := filter.Normalize(AccountSchema)
	if err != nil {
		return nil, err
	}
	sql, args, err := s.translator.Select(AccountSchema, f)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	var modelList []*models.AccountModel
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&modelList).Error; err != nil {
		return nil, translateDBError(err, "account list")
	}
	return s.accountMapper.ToDomainList(modelList), nil
}

func (s *MySQLStore) CreateAccount(ctx context.Context, a *account.Account) error {
	model := s.accountMapper.ToModel(a)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateDBError(err, "account create")
	}
	return a.SetID(model.ID)
}

func (s *MySQLStore) UpdateAccount(ctx context.Context, id uint, patch query.Patch) (*account.Account, error) {
	current, err := s.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("account %d not found", id))
	}

	updated, err := applyAccountPatch(current, patch)
	if err != nil {
		return nil, err
	}

	cols := query.Patch{"updated_at": updated.UpdatedAt()}
	for field := range patch {
		switch field {
		case "display_name":
			cols["display_name"] = updated.DisplayName()
		case "role":
			cols["role"] = updated.Role().String()
		case "active":
			cols["active"] = updated.IsActive()
		}
	}

	sql, args := s.translator.Update("accounts", id, cols)
	if err := s.db.WithContext(ctx).Exec(sql, args...).Error; err != nil {
		return nil, translateDBError(err, "account update")
	}
	return updated, nil
}

func (s *MySQLStore) DeleteAccount(ctx context.Context, id uint) error {
	var assigned int64
	err := s.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM tickets WHERE assignee_id = ?", id).
		Scan(&assigned).Error
	if err != nil {
		return translateDBError(err, "account delete")
	}
	if assigned > 0 {
		return errors.NewConstraintError(
			fmt.Sprintf("account %d is still assigned to tickets; reassign them first", id))
	}

	sql, args := s.translator.Delete("accounts", id)
	res := s.db.WithContext(ctx).Exec(sql, args...)
	if res.Error != nil {
		return translateDBError(res.Error, "account delete")
	}
	if res.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("account %d not found", id))
	}
	return nil
}

// Tickets

func (s *MySQLStore) GetTicketByID(ctx context.Context, id uint) (*ticket.Ticket, error) {
	var model models.TicketModel
	res := s.db.WithContext(ctx).Raw("SELECT * FROM tickets WHERE id = ? LIMIT 1", id).Scan(&model)
	if res.Error != nil {
		return nil, translateDBError(res.Error, "ticket lookup")
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.ticketMapper.ToDomain(&model), nil
}

func (s *MySQLStore) GetTicketByNumber(ctx context.Context, number string) (*ticket.Ticket, error) {
	var model models.TicketModel
	res := s.db.WithContext(ctx).Raw("SELECT * FROM tickets WHERE number = ? LIMIT 1", number).Scan(&model)
	if res.Error != nil {
		return nil, translateDBError(res.Error, "ticket lookup")
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.ticketMapper.ToDomain(&model), nil
}

func (s *MySQLStore) ListTickets(ctx context.Context, filter query.Filter) ([]*ticket.Ticket, error) {
	f, err := filter.Normalize(TicketSchema)
	if err != nil {
		return nil, err
	}
	sql, args, err := s.translator.Select(TicketSchema, f)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	var modelList []*models.TicketModel
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&modelList).Error; err != nil {
		return nil, translateDBError(err, "ticket list")
	}
	return s.ticketMapper.ToDomainList(modelList), nil
}

func (s *MySQLStore) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	model := s.ticketMapper.ToModel(t)
	model.Comments = nil
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateDBError(err, "ticket create")
	}
	return t.SetID(model.ID)
}

func (s *MySQLStore) UpdateTicket(ctx context.Context, id uint, patch query.Patch) (*ticket.Ticket, error) {
	current, err := s.GetTicketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("ticket %d not found", id))
	}

	updated, err := applyTicketPatch(current, patch)
	if err != nil {
		return nil, err
	}

	cols := query.Patch{"updated_at": updated.UpdatedAt()}
	for field := range patch {
		switch field {
		case "subject":
			cols["subject"] = updated.Subject()
		case "description":
			cols["description"] = updated.Description()
		case "tracking_ref":
			cols["tracking_ref"] = updated.TrackingRef()
		case "customer_contact":
			cols["customer_contact"] = updated.CustomerContact()
		case "priority":
			cols["priority"] = updated.Priority().String()
		case "status":
			cols["status"] = updated.Status().String()
			cols["closed_at"] = updated.ClosedAt()
		case "assignee_id":
			cols["assignee_id"] = updated.AssigneeID()
		}
	}

	sql, args := s.translator.Update("tickets", id, cols)
	if err := s.db.WithContext(ctx).Exec(sql, args...).Error; err != nil {
		return nil, translateDBError(err, "ticket update")
	}
	return updated, nil
}

func (s *MySQLStore) DeleteTicket(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sql, args := s.translator.Delete("tickets", id)
		res := tx.Exec(sql, args...)
		if res.Error != nil {
			return translateDBError(res.Error, "ticket delete")
		}
		if res.RowsAffected == 0 {
			return errors.NewNotFoundError(fmt.Sprintf("ticket %d not found", id))
		}
		if err := tx.Exec("DELETE FROM ticket_comments WHERE ticket_id = ?", id).Error; err != nil {
			return translateDBError(err, "ticket comment delete")
		}
		return nil
	})
}

func (s *MySQLStore) AddComment(ctx context.Context, c *ticket.Comment) error {
	model := s.ticketMapper.CommentToModel(c)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateDBError(err, "comment create")
	}
	return c.SetID(model.ID)
}

func (s *MySQLStore) ListComments(ctx context.Context, ticketID uint) ([]*ticket.Comment, error) {
	var modelList []*models.TicketCommentModel
	err := s.db.WithContext(ctx).
		Raw("SELECT * FROM ticket_comments WHERE ticket_id = ? ORDER BY created_at ASC", ticketID).
		Scan(&modelList).Error
	if err != nil {
		return nil, translateDBError(err, "comment list")
	}

	comments := make([]*ticket.Comment, 0, len(modelList))
	for _, model := range modelList {
		comments = append(comments, s.ticketMapper.CommentToDomain(model))
	}
	return comments, nil
}

func (s *MySQLStore) CloseTicket(ctx context.Context, id uint, note string) (*ticket.Ticket, error) {
	var closed *ticket.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.TicketModel
		res := tx.Raw("SELECT * FROM tickets WHERE id = ? FOR UPDATE", id).Scan(&model)
		if res.Error != nil {
			return translateDBError(res.Error, "ticket lookup")
		}
		if res.RowsAffected == 0 {
			return errors.NewNotFoundError(fmt.Sprintf("ticket %d not found", id))
		}

		t := s.ticketMapper.ToDomain(&model)
		if err := t.Close(); err != nil {
			return errors.NewValidationError(err.Error())
		}

		sql, args := s.translator.Update("tickets", id, query.Patch{
			"status":     t.Status().String(),
			"closed_at":  t.ClosedAt(),
			"updated_at": t.UpdatedAt(),
		})
		if err := tx.Exec(sql, args...).Error; err != nil {
			return translateDBError(err, "ticket close")
		}

		comment, err := ticket.NewSystemComment(id, closeNoteText(note))
		if err != nil {
			return errors.NewInternalError(err.Error())
		}
		if err := tx.Create(s.ticketMapper.CommentToModel(comment)).Error; err != nil {
			return translateDBError(err, "close note create")
		}

		closed = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// Broadcast logs

func (s *MySQLStore) GetBroadcastByID(ctx context.Context, id uint) (*broadcast.Log, error) {
	var model models.BroadcastLogModel
	res := s.db.WithContext(ctx).Raw("SELECT * FROM broadcast_logs WHERE id = ? LIMIT 1", id).Scan(&model)
	if res.Error != nil {
		return nil, translateDBError(res.Error, "broadcast lookup")
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.broadcastMapper.ToDomain(&model), nil
}

func (s *MySQLStore) ListBroadcasts(ctx context.Context, filter query.Filter) ([]*broadcast.Log, error) {
	f, err := filter.Normalize(BroadcastSchema)
	if err != nil {
		return nil, err
	}
	sql, args, err := s.translator.Select(BroadcastSchema, f)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	var modelList []*models.BroadcastLogModel
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&modelList).Error; err != nil {
		return nil, translateDBError(err, "broadcast list")
	}
	return s.broadcastMapper.ToDomainList(modelList), nil
}

func (s *MySQLStore) CreateBroadcast(ctx context.Context, l *broadcast.Log) error {
	model := s.broadcastMapper.ToModel(l)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateDBError(err, "broadcast create")
	}
	return l.SetID(model.ID)
}

func (s *MySQLStore) UpdateBroadcast(ctx context.Context, id uint, patch query.Patch) (*broadcast.Log, error) {
	current, err := s.GetBroadcastByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("broadcast log %d not found", id))
	}

	updated, err := applyBroadcastPatch(current, patch)
	if err != nil {
		return nil, err
	}

	cols := query.Patch{"updated_at": updated.UpdatedAt()}
	for field := range patch {
		switch field {
		case "status":
			cols["status"] = updated.Status().String()
		case "error_detail":
			cols["error_detail"] = updated.ErrorDetail()
		}
	}

	sql, args := s.translator.Update("broadcast_logs", id, cols)
	if err := s.db.WithContext(ctx).Exec(sql, args...).Error; err != nil {
		return nil, translateDBError(err, "broadcast update")
	}
	return updated, nil
}

// Dashboard

func (s *MySQLStore) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	db := s.db.WithContext(ctx)

	type statusCount struct {
		Status string
		N      int64
	}

	var ticketCounts []statusCount
	err := db.Raw("SELECT status, COUNT(*) AS n FROM tickets GROUP BY status").Scan(&ticketCounts).Error
	if err != nil {
		return nil, translateDBError(err, "ticket stats")
	}
	for _, c := range ticketCounts {
		stats.Tickets.TotalTickets += c.N
		switch c.Status {
		case "open":
			stats.Tickets.OpenTickets = c.N
		case "pending":
			stats.Tickets.PendingTickets = c.N
		case "closed":
			stats.Tickets.ClosedTickets = c.N
		}
	}

	todayMillis := biztime.StartOfDayUTC(biztime.NowUTC()).UnixMilli()
	var broadcastCounts []statusCount
	err = db.Raw(
		"SELECT status, COUNT(*) AS n FROM broadcast_logs WHERE sent_at >= ? GROUP BY status",
		todayMillis,
	).Scan(&broadcastCounts).Error
	if err != nil {
		return nil, translateDBError(err, "broadcast stats")
	}
	for _, c := range broadcastCounts {
		stats.Broadcasts.TotalBroadcasts += c.N
		switch c.Status {
		case "success":
			stats.Broadcasts.SuccessfulBroadcasts = c.N
		case "failed":
			stats.Broadcasts.FailedBroadcasts = c.N
		}
	}

	err = db.Raw(
		"SELECT COUNT(*) FROM accounts WHERE active = ? AND role = ?",
		true, "agent",
	).Scan(&stats.Users.ActiveAgents).Error
	if err != nil {
		return nil, translateDBError(err, "account stats")
	}

	return stats, nil
}

// RawQuery runs an ad-hoc parameterized SELECT and returns generic rows.
// Only read statements are accepted.
func (s *MySQLStore) RawQuery(ctx context.Context, sqlText string, args ...any) ([]map[string]any, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(sqlText))
	if !strings.HasPrefix(trimmed, "SELECT") {
		return nil, errors.NewValidationError("raw queries must be SELECT statements")
	}

	rows, err := s.db.WithContext(ctx).Raw(sqlText, args...).Rows()
	if err != nil {
		return nil, translateDBError(err, "raw query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, translateDBError(err, "raw query")
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, translateDBError(err, "raw query")
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "raw query")
	}

	return result, nil
}

func (s *MySQLStore) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.NewConnectivityError("mysql handle unavailable", err.Error())
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.NewConnectivityError("mysql ping failed", err.Error())
	}
	return nil
}

func (s *MySQLStore) Kind() Kind {
	return KindMySQL
}

func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
