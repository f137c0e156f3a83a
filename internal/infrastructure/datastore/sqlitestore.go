package datastore

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
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

// SQLiteStore is the embedded single-file backend. Filters are translated
// into gorm query chains rather than hand-built SQL; raw SQL is not part of
// its contract, so it does not implement RawQuerier.
type SQLiteStore struct {
	db  *gorm.DB
	log logger.Interface

	accountMapper   *mappers.AccountMapper
	ticketMapper    *mappers.TicketMapper
	broadcastMapper *mappers.BroadcastMapper
}

func NewSQLiteStore(db *gorm.DB, log logger.Interface) *SQLiteStore {
	return &SQLiteStore{
		db:              db,
		log:             log.Named("sqlite-store"),
		accountMapper:   mappers.NewAccountMapper(),
		ticketMapper:    mappers.NewTicketMapper(),
		broadcastMapper: mappers.NewBroadcastMapper(),
	}
}

// DB exposes the underlying connection for migration tooling.
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// applyFilter chains a normalized filter onto a gorm query.
func applyFilter(db *gorm.DB, f query.Filter) *gorm.DB {
	for _, field := range sortedConditionFields(f) {
		pred := f.Conditions[field]
		switch pred.Op {
		case query.OpEq:
			db = db.Where(field+" = ?", normalizeArg(pred.Value))
		case query.OpContains:
			s, _ := pred.Value.(string)
			db = db.Where("LOWER("+field+") LIKE ?", "%"+escapeLike(strings.ToLower(s))+"%")
		case query.OpPrefix:
			s, _ := pred.Value.(string)
			db = db.Where(field+" LIKE ?", escapeLike(s)+"%")
		case query.OpGTE:
			db = db.Where(field+" >= ?", normalizeArg(pred.Value))
		case query.OpLTE:
			db = db.Where(field+" <= ?", normalizeArg(pred.Value))
		case query.OpIn:
			values := make([]any, 0, len(pred.Values))
			for _, v := range pred.Values {
				values = append(values, normalizeArg(v))
			}
			db = db.Where(field+" IN ?", values)
		}
	}

	if f.Search != "" && len(f.SearchFields) > 0 {
		clauses := make([]string, 0, len(f.SearchFields))
		args := make([]any, 0, len(f.SearchFields))
		needle := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
		for _, field := range f.SearchFields {
			clauses = append(clauses, "LOWER("+field+") LIKE ?")
			args = append(args, needle)
		}
		db = db.Where(strings.Join(clauses, " OR "), args...)
	}

	return db.Order(f.OrderBy + " " + f.OrderDirection).Limit(f.Limit).Offset(f.Offset)
}

func sortedConditionFields(f query.Filter) []string {
	fields := make([]string, 0, len(f.Conditions))
	for field := range f.Conditions {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// translateDBError maps driver failures onto the application error taxonomy.
func translateDBError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.IsDuplicateError(err):
		return errors.NewConstraintError(what+" violates a uniqueness constraint", err.Error())
	case stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled):
		return errors.NewConnectivityError(what+" timed out", err.Error())
	case strings.Contains(err.Error(), "FOREIGN KEY") ||
		strings.Contains(err.Error(), "foreign key constraint"):
		return errors.NewConstraintError(what+" references a missing row", err.Error())
	case strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "invalid connection") ||
		strings.Contains(err.Error(), "bad connection") ||
		strings.Contains(err.Error(), "i/o timeout"):
		return errors.NewConnectivityError(what+" failed: backend unreachable", err.Error())
	default:
		return errors.NewInternalError(what+" failed", err.Error())
	}
}

// Accounts

func (s *SQLiteStore) GetAccountByID(ctx context.Context, id uint) (*account.Account, error) {
	var model models.AccountModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateDBError(err, "account lookup")
	}
	return s.accountMapper.ToDomain(&model), nil
}

func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	var model models.AccountModel
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&model).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateDBError(err, "account lookup")
	}
	return s.accountMapper.ToDomain(&model), nil
}

func (s *SQLiteStore) ListAccounts(ctx context.Context, filter query.Filter) ([]*account.Account, error) {
	f, err := filter.Normalize(AccountSchema)
	if err != nil {
		return nil, err
	}

	var modelList []*models.AccountModel
	if err := applyFilter(s.db.WithContext(ctx).Model(&models.AccountModel{}), f).Find(&modelList).Error; err != nil {
		return nil, translateDBError(err, "account list")
	}
	return s.accountMapper.ToDomainList(modelList), nil
}

func (s *SQLiteStore) CreateAccount(ctx context.Context, a *account.Account) error {
	model := s.accountMapper.ToModel(a)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateDBError(err, "account create")
	}
	return a.SetID(model.ID)
}

func (s *SQLiteStore) UpdateAccount(ctx context.Context, id uint, patch query.Patch) (*account.Account, error) {
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
	if err := s.db.WithContext(ctx).Save(s.accountMapper.ToModel(updated)).Error; err != nil {
		return nil, translateDBError(err, "account update")
	}
	return updated, nil
}

func (s *SQLiteStore) DeleteAccount(ctx context.Context, id uint) error {
	var assigned int64
	err := s.db.WithContext(ctx).Model(&models.TicketModel{}).
		Where("assignee_id = ?", id).
		Count(&assigned).Error
	if err != nil {
		return translateDBError(err, "account delete")
	}
	if assigned > 0 {
		return errors.NewConstraintError(
			fmt.Sprintf("account %d is still assigned to tickets; reassign them first", id))
	}

	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AccountModel{})
	if res.Error != nil {
		return translateDBError(res.Error, "account delete")
	}
	if res.RowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("account %d not found", id))
	}
	return nil
}

// Tickets

func (s *SQLiteStore) GetTicketByID(ctx context.Context, id uint) (*ticket.Ticket, error) {
	var model models.TicketModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateDBError(err, "ticket lookup")
	}
	return s.ticketMapper.ToDomain(&model), nil
}

func (s *SQLiteStore) GetTicketByNumber(ctx context.Context, number string) (*ticket.Ticket, error) {
	var model models.TicketModel
	err := s.db.WithContext(ctx).Where("number = ?", number).First(&model).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateDBError(err, "ticket lookup")
	}
	return s.ticketMapper.ToDomain(&model), nil
}

func (s *SQLiteStore) ListTickets(ctx context.Context, filter query.Filter) ([]*ticket.Ticket, error) {
	f, err := filter.Normalize(TicketSchema)
	if err != nil {
		return nil, err
	}

	var modelList []*models.TicketModel
	if err := applyFilter(s.db.WithContext(ctx).Model(&models.TicketModel{}), f).Find(&modelList).Error; err != nil {
		return nil, translateDBError(err, "ticket list")
	}
	return s.ticketMapper.ToDomainList(modelList), nil
}

func (s *SQLiteStore) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	model := s.ticketMapper.ToModel(t)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateDBError(err, "ticket create")
	}
	return t.SetID(model.ID)
}

func (s *SQLiteStore) UpdateTicket(ctx context.Context, id uint, patch query.Patch) (*ticket.Ticket, error) {
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
	if err := s.db.WithContext(ctx).Save(s.ticketMapper.ToModel(updated)).Error; err != nil {
		return nil, translateDBError(err, "ticket update")
	}
	return updated, nil
}

func (s *SQLiteStore) DeleteTicket(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.TicketModel{})
		if res.Error != nil {
			return translateDBError(res.Error, "ticket delete")
		}
		if res.RowsAffected == 0 {
			return errors.NewNotFoundError(fmt.Sprintf("ticket %d not found", id))
		}
		if err := tx.Where("ticket_id = ?", id).Delete(&models.TicketCommentModel{}).Error; err != nil {
			return translateDBError(err, "ticket comment delete")
		}
		return nil
	})
}

func (s *SQLiteStore) AddComment(ctx context.Context, c *ticket.Comment) error {
	model := s.ticketMapper.CommentToModel(c)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateDBError(err, "comment create")
	}
	return c.SetID(model.ID)
}

func (s *SQLiteStore) ListComments(ctx context.Context, ticketID uint) ([]*ticket.Comment, error) {
	var modelList []*models.TicketCommentModel
	err := s.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, translateDBError(err, "comment list")
	}

	comments := make([]*ticket.Comment, 0, len(modelList))
	for _, model := range modelList {
		comments = append(comments, s.ticketMapper.CommentToDomain(model))
	}
	return comments, nil
}

func (s *SQLiteStore) CloseTicket(ctx context.Context, id uint, note string) (*ticket.Ticket, error) {
	var closed *ticket.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.TicketModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.NewNotFoundError(fmt.Sprintf("ticket %d not found", id))
			}
			return translateDBError(err, "ticket lookup")
		}

		t := s.ticketMapper.ToDomain(&model)
		if err := t.Close(); err != nil {
			return errors.NewValidationError(err.Error())
		}
		if err := tx.Save(s.ticketMapper.ToModel(t)).Error; err != nil {
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

func (s *SQLiteStore) GetBroadcastByID(ctx context.Context, id uint) (*broadcast.Log, error) {
	var model models.BroadcastLogModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translateDBError(err, "broadcast lookup")
	}
	return s.broadcastMapper.ToDomain(&model), nil
}

func (s *SQLiteStore) ListBroadcasts(ctx context.Context, filter query.Filter) ([]*broadcast.Log, error) {
	f, err := filter.Normalize(BroadcastSchema)
	if err != nil {
		return nil, err
	}

	var modelList []*models.BroadcastLogModel
	if err := applyFilter(s.db.WithContext(ctx).Model(&models.BroadcastLogModel{}), f).Find(&modelList).Error; err != nil {
		return nil, translateDBError(err, "broadcast list")
	}
	return s.broadcastMapper.ToDomainList(modelList), nil
}

func (s *SQLiteStore) CreateBroadcast(ctx context.Context, l *broadcast.Log) error {
	model := s.broadcastMapper.ToModel(l)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateDBError(err, "broadcast create")
	}
	return l.SetID(model.ID)
}

func (s *SQLiteStore) UpdateBroadcast(ctx context.Context, id uint, patch query.Patch) (*broadcast.Log, error) {
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
	if err := s.db.WithContext(ctx).Save(s.broadcastMapper.ToModel(updated)).Error; err != nil {
		return nil, translateDBError(err, "broadcast update")
	}
	return updated, nil
}

// Dashboard

func (s *SQLiteStore) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	db := s.db.WithContext(ctx)

	type statusCount struct {
		Status string
		N      int64
	}

	var ticketCounts []statusCount
	err := db.Model(&models.TicketModel{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&ticketCounts).Error
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
	err = db.Model(&models.BroadcastLogModel{}).
		Select("status, COUNT(*) AS n").
		Where("sent_at >= ?", todayMillis).
		Group("status").
		Scan(&broadcastCounts).Error
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

	err = db.Model(&models.AccountModel{}).
		Where("active = ? AND role = ?", true, "agent").
		Count(&stats.Users.ActiveAgents).Error
	if err != nil {
		return nil, translateDBError(err, "account stats")
	}

	return stats, nil
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.NewConnectivityError("sqlite handle unavailable", err.Error())
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.NewConnectivityError("sqlite ping failed", err.Error())
	}
	return nil
}

func (s *SQLiteStore) Kind() Kind {
	return KindSQLite
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
