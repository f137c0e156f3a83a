package datastore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"parceldesk/internal/domain/account"
	"parceldesk/internal/domain/broadcast"
	"parceldesk/internal/domain/ticket"
	"parceldesk/internal/shared/biztime"
	"parceldesk/internal/shared/errors"
	"parceldesk/internal/shared/logger"
	"parceldesk/internal/shared/query"
	"parceldesk/internal/shared/sanitize"
)

// Entity names used in change notifications.
const (
	EntityTicket    = "ticket"
	EntityAccount   = "account"
	EntityBroadcast = "broadcast"
)

// FixtureStore is an in-memory Store for demos and development. It serves
// the same contract as the database backends, evaluating filters entirely
// in memory, and implements ChangeNotifier so the realtime hub sees
// mutations without polling.
type FixtureStore struct {
	mu         sync.RWMutex
	accounts   map[uint]*account.Account
	tickets    map[uint]*ticket.Ticket
	comments   map[uint]*ticket.Comment
	broadcasts map[uint]*broadcast.Log

	nextAccountID   uint
	nextTicketID    uint
	nextCommentID   uint
	nextBroadcastID uint

	callbacks []func(entity string, id uint)
	log       logger.Interface
}

func NewFixtureStore(log logger.Interface) *FixtureStore {
	return &FixtureStore{
		accounts:        make(map[uint]*account.Account),
		tickets:         make(map[uint]*ticket.Ticket),
		comments:        make(map[uint]*ticket.Comment),
		broadcasts:      make(map[uint]*broadcast.Log),
		nextAccountID:   1,
		nextTicketID:    1,
		nextCommentID:   1,
		nextBroadcastID: 1,
		log:             log.Named("fixture-store"),
	}
}

// OnChange registers a mutation callback. Callbacks run synchronously after
// the store lock is released.
func (s *FixtureStore) OnChange(fn func(entity string, id uint)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

func (s *FixtureStore) notify(entity string, id uint) {
	s.mu.RLock()
	callbacks := make([]func(string, uint), len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.mu.RUnlock()

	for _, fn := range callbacks {
		fn(entity, id)
	}
}

// Accounts

func (s *FixtureStore) GetAccountByID(_ context.Context, id uint) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[id], nil
}

func (s *FixtureStore) GetAccountByEmail(_ context.Context, email string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range s.accounts {
		if a.Email() == email {
			return a, nil
		}
	}
	return nil, nil
}

func (s *FixtureStore) ListAccounts(_ context.Context, filter query.Filter) ([]*account.Account, error) {
	f, err := filter.Normalize(AccountSchema)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	all := make([]*account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		all = append(all, a)
	}
	s.mu.RUnlock()

	return selectPage(all, f, accountFieldValue), nil
}

func (s *FixtureStore) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	for _, existing := range s.accounts {
		if existing.Email() == a.Email() {
			s.mu.Unlock()
			return errors.NewConstraintError("email already in use", a.Email())
		}
	}
	if err := a.SetID(s.nextAccountID); err != nil {
		s.mu.Unlock()
		return errors.NewInternalError(err.Error())
	}
	s.nextAccountID++
	s.accounts[a.ID()] = a
	s.mu.Unlock()

	s.notify(EntityAccount, a.ID())
	return nil
}

func (s *FixtureStore) UpdateAccount(_ context.Context, id uint, patch query.Patch) (*account.Account, error) {
	s.mu.Lock()
	current, ok := s.accounts[id]
	if !ok {
		s.mu.Unlock()
		return nil, errors.NewNotFoundError(fmt.Sprintf("account %d not found", id))
	}
	updated, err := applyAccountPatch(current, patch)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.accounts[id] = updated
	s.mu.Unlock()

	s.notify(EntityAccount, id)
	return updated, nil
}

func (s *FixtureStore) DeleteAccount(_ context.Context, id uint) error {
	s.mu.Lock()
	if _, ok := s.accounts[id]; !ok {
		s.mu.Unlock()
		return errors.NewNotFoundError(fmt.Sprintf("account %d not found", id))
	}
	for _, t := range s.tickets {
		if t.AssigneeID() != nil && *t.AssigneeID() == id {
			s.mu.Unlock()
			return errors.NewConstraintError(
				fmt.Sprintf("account %d is still assigned to tickets; reassign them first", id))
		}
	}
	delete(s.accounts, id)
	s.mu.Unlock()

	s.notify(EntityAccount, id)
	return nil
}

// Tickets

func (s *FixtureStore) GetTicketByID(_ context.Context, id uint) (*ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tickets[id], nil
}

func (s *FixtureStore) GetTicketByNumber(_ context.Context, number string) (*ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tickets {
		if t.Number() == number {
			return t, nil
		}
	}
	return nil, nil
}

func (s *FixtureStore) ListTickets(_ context.Context, filter query.Filter) ([]*ticket.Ticket, error) {
	f, err := filter.Normalize(TicketSchema)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	all := make([]*ticket.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		all = append(all, t)
	}
	s.mu.RUnlock()

	return selectPage(all, f, ticketFieldValue), nil
}

func (s *FixtureStore) CreateTicket(_ context.Context, t *ticket.Ticket) error {
	s.mu.Lock()
	for _, existing := range s.tickets {
		if existing.Number() == t.Number() {
			s.mu.Unlock()
			return errors.NewConstraintError("ticket number already exists", t.Number())
		}
	}
	if err := t.SetID(s.nextTicketID); err != nil {
		s.mu.Unlock()
		return errors.NewInternalError(err.Error())
	}
	s.nextTicketID++
	s.tickets[t.ID()] = t
	s.mu.Unlock()

	s.notify(EntityTicket, t.ID())
	return nil
}

func (s *FixtureStore) UpdateTicket(_ context.Context, id uint, patch query.Patch) (*ticket.Ticket, error) {
	s.mu.Lock()
	current, ok := s.tickets[id]
	if !ok {
		s.mu.Unlock()
		return nil, errors.NewNotFoundError(fmt.Sprintf("ticket %d not found", id))
	}
	updated, err := applyTicketPatch(current, patch)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.tickets[id] = updated
	s.mu.Unlock()

	s.notify(EntityTicket, id)
	return updated, nil
}

func (s *FixtureStore) DeleteTicket(_ context.Context, id uint) error {
	s.mu.Lock()
	if _, ok := s.tickets[id]; !ok {
		s.mu.Unlock()
		return errors.NewNotFoundError(fmt.Sprintf("ticket %d not found", id))
	}
	delete(s.tickets, id)
	// comments go with their ticket
	for cid, c := range s.comments {
		if c.TicketID() == id {
			delete(s.comments, cid)
		}
	}
	s.mu.Unlock()

	s.notify(EntityTicket, id)
	return nil
}

func (s *FixtureStore) AddComment(_ context.Context, c *ticket.Comment) error {
	s.mu.Lock()
	if _, ok := s.tickets[c.TicketID()]; !ok {
		s.mu.Unlock()
		return errors.NewConstraintError(fmt.Sprintf("ticket %d not found", c.TicketID()))
	}
	if err := c.SetID(s.nextCommentID); err != nil {
		s.mu.Unlock()
		return errors.NewInternalError(err.Error())
	}
	s.nextCommentID++
	s.comments[c.ID()] = c
	ticketID := c.TicketID()
	s.mu.Unlock()

	s.notify(EntityTicket, ticketID)
	return nil
}

func (s *FixtureStore) ListComments(_ context.Context, ticketID uint) ([]*ticket.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]*ticket.Comment, 0)
	for _, c := range s.comments {
		if c.TicketID() == ticketID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt().Before(comments[j].CreatedAt())
	})
	return comments, nil
}

func (s *FixtureStore) CloseTicket(_ context.Context, id uint, note string) (*ticket.Ticket, error) {
	s.mu.Lock()
	current, ok := s.tickets[id]
	if !ok {
		s.mu.Unlock()
		return nil, errors.NewNotFoundError(fmt.Sprintf("ticket %d not found", id))
	}
	if err := current.Close(); err != nil {
		s.mu.Unlock()
		return nil, errors.NewValidationError(err.Error())
	}

	comment, err := ticket.NewSystemComment(id, closeNoteText(note))
	if err == nil {
		if err := comment.SetID(s.nextCommentID); err == nil {
			s.nextCommentID++
			s.comments[comment.ID()] = comment
		}
	}
	s.mu.Unlock()

	s.notify(EntityTicket, id)
	return current, nil
}

// Broadcast logs

func (s *FixtureStore) GetBroadcastByID(_ context.Context, id uint) (*broadcast.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.broadcasts[id], nil
}

func (s *FixtureStore) ListBroadcasts(_ context.Context, filter query.Filter) ([]*broadcast.Log, error) {
	f, err := filter.Normalize(BroadcastSchema)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	all := make([]*broadcast.Log, 0, len(s.broadcasts))
	for _, l := range s.broadcasts {
		all = append(all, l)
	}
	s.mu.RUnlock()

	return selectPage(all, f, broadcastFieldValue), nil
}

func (s *FixtureStore) CreateBroadcast(_ context.Context, l *broadcast.Log) error {
	s.mu.Lock()
	if err := l.SetID(s.nextBroadcastID); err != nil {
		s.mu.Unlock()
		return errors.NewInternalError(err.Error())
	}
	s.nextBroadcastID++
	s.broadcasts[l.ID()] = l
	s.mu.Unlock()

	s.notify(EntityBroadcast, l.ID())
	return nil
}

func (s *FixtureStore) UpdateBroadcast(_ context.Context, id uint, patch query.Patch) (*broadcast.Log, error) {
	s.mu.Lock()
	current, ok := s.broadcasts[id]
	if !ok {
		s.mu.Unlock()
		return nil, errors.NewNotFoundError(fmt.Sprintf("broadcast log %d not found", id))
	}
	updated, err := applyBroadcastPatch(current, patch)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.broadcasts[id] = updated
	s.mu.Unlock()

	s.notify(EntityBroadcast, id)
	return updated, nil
}

// Dashboard

func (s *FixtureStore) DashboardStats(_ context.Context) (*DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &DashboardStats{}
	for _, t := range s.tickets {
		stats.Tickets.TotalTickets++
		switch {
		case t.Status().IsOpen():
			stats.Tickets.OpenTickets++
		case t.Status().IsPending():
			stats.Tickets.PendingTickets++
		case t.Status().IsClosed():
			stats.Tickets.ClosedTickets++
		}
	}

	today := biztime.StartOfDayUTC(biztime.NowUTC())
	for _, l := range s.broadcasts {
		if l.SentAt().Before(today) {
			continue
		}
		stats.Broadcasts.TotalBroadcasts++
		switch l.Status() {
		case broadcast.StatusSuccess:
			stats.Broadcasts.SuccessfulBroadcasts++
		case broadcast.StatusFailed:
			stats.Broadcasts.FailedBroadcasts++
		}
	}

	for _, a := range s.accounts {
		if a.IsActive() && a.Role() == account.RoleAgent {
			stats.Users.ActiveAgents++
		}
	}

	s.log.Debugw("computed dashboard statistics from fixtures",
		"tickets", stats.Tickets.TotalTickets,
		"broadcasts_today", stats.Broadcasts.TotalBroadcasts)
	return stats, nil
}

func (s *FixtureStore) HealthCheck(_ context.Context) error {
	return nil
}

func (s *FixtureStore) Kind() Kind {
	return KindFixture
}

func (s *FixtureStore) Close() error {
	return nil
}

// In-memory filter evaluation

func selectPage[T any](all []T, f query.Filter, fieldValue func(T, string) any) []T {
	matched := make([]T, 0, len(all))
	for _, item := range all {
		if matchesFilter(item, f, fieldValue) {
			matched = append(matched, item)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a := fieldValue(matched[i], f.OrderBy)
		b := fieldValue(matched[j], f.OrderBy)
		if f.OrderDirection == "ASC" {
			return query.Less(a, b)
		}
		return query.Less(b, a)
	})

	if f.Offset >= len(matched) {
		return []T{}
	}
	matched = matched[f.Offset:]
	if len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched
}

func matchesFilter[T any](item T, f query.Filter, fieldValue func(T, string) any) bool {
	for field, pred := range f.Conditions {
		if !query.Match(pred, fieldValue(item, field)) {
			return false
		}
	}

	if f.Search != "" {
		hit := false
		for _, field := range f.SearchFields {
			if query.Match(query.Contains(f.Search), fieldValue(item, field)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func ticketFieldValue(t *ticket.Ticket, field string) any {
	switch field {
	case "id":
		return t.ID()
	case "number":
		return t.Number()
	case "tracking_ref":
		return t.TrackingRef()
	case "customer_contact":
		return t.CustomerContact()
	case "subject":
		return t.Subject()
	case "description":
		return t.Description()
	case "status":
		return t.Status().String()
	case "priority":
		return t.Priority().String()
	case "assignee_id":
		if t.AssigneeID() == nil {
			return nil
		}
		return *t.AssigneeID()
	case "created_at":
		return t.CreatedAt()
	case "updated_at":
		return t.UpdatedAt()
	case "closed_at":
		if t.ClosedAt() == nil {
			return nil
		}
		return *t.ClosedAt()
	}
	return nil
}

func accountFieldValue(a *account.Account, field string) any {
	switch field {
	case "id":
		return a.ID()
	case "display_name":
		return a.DisplayName()
	case "email":
		return a.Email()
	case "role":
		return a.Role().String()
	case "active":
		return a.IsActive()
	case "created_at":
		return a.CreatedAt()
	case "updated_at":
		return a.UpdatedAt()
	}
	return nil
}

func broadcastFieldValue(l *broadcast.Log, field string) any {
	switch field {
	case "id":
		return l.ID()
	case "channel":
		return l.Channel().String()
	case "recipient":
		return l.Recipient()
	case "tracking_ref":
		return l.TrackingRef()
	case "message":
		return l.Message()
	case "status":
		return l.Status().String()
	case "error_detail":
		return l.ErrorDetail()
	case "sent_at":
		return l.SentAt()
	case "created_at":
		return l.CreatedAt()
	case "updated_at":
		return l.UpdatedAt()
	}
	return nil
}

func closeNoteText(note string) string {
	note = sanitize.Text(note)
	if note == "" {
		return "Ticket closed"
	}
	return "Ticket closed: " + note
}
