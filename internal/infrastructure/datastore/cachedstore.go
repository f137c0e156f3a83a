package datastore

import (
	"context"
	"encoding/json"

	"parceldesk/internal/domain/account"
	"parceldesk/internal/domain/broadcast"
	"parceldesk/internal/domain/ticket"
	"parceldesk/internal/infrastructure/persistence/mappers"
	"parceldesk/internal/infrastructure/persistence/models"
	"parceldesk/internal/shared/errors"
	"parceldesk/internal/shared/logger"
	"parceldesk/internal/shared/query"
)

// CachedStore decorates a Store with a read-through ResultCache. Reads are
// keyed by operation name and serialized arguments; every mutation flushes
// the whole cache before returning, so a read issued after a successful
// mutation never observes the pre-mutation state.
//
// Results cross the cache as persistence-model JSON. Nil lookups are not
// cached.
type CachedStore struct {
	inner Store
	cache ResultCache
	log   logger.Interface

	accountMapper   *mappers.AccountMapper
	ticketMapper    *mappers.TicketMapper
	broadcastMapper *mappers.BroadcastMapper
}

func NewCachedStore(inner Store, cache ResultCache, log logger.Interface) *CachedStore {
	return &CachedStore{
		inner:           inner,
		cache:           cache,
		log:             log.Named("cached-store"),
		accountMapper:   mappers.NewAccountMapper(),
		ticketMapper:    mappers.NewTicketMapper(),
		broadcastMapper: mappers.NewBroadcastMapper(),
	}
}

// Unwrap returns the decorated store.
func (s *CachedStore) Unwrap() Store {
	return s.inner
}

// CacheStats exposes the underlying cache counters.
func (s *CachedStore) CacheStats(ctx context.Context) CacheStats {
	return s.cache.Stats(ctx)
}

// ClearCache drops all cached results.
func (s *CachedStore) ClearCache(ctx context.Context) {
	s.cache.InvalidateAll(ctx)
}

func (s *CachedStore) invalidate(ctx context.Context) {
	s.cache.InvalidateAll(ctx)
}

// cached runs fetch through the cache: on a hit the stored model is decoded,
// on a miss the result is fetched, encoded and stored. Cache failures fall
// back to the inner store.
func cached[M any](ctx context.Context, s *CachedStore, key string, fetch func() (*M, error)) (*M, error) {
	if raw, ok := s.cache.Get(ctx, key); ok {
		var model M
		if err := json.Unmarshal(raw, &model); err == nil {
			return &model, nil
		}
		s.log.Warnw("dropping undecodable cache entry", "key", key)
	}

	model, err := fetch()
	if err != nil || model == nil {
		return model, err
	}

	if raw, err := json.Marshal(model); err == nil {
		s.cache.Set(ctx, key, raw)
	}
	return model, nil
}

func cachedList[M any](ctx context.Context, s *CachedStore, key string, fetch func() ([]M, error)) ([]M, error) {
	if raw, ok := s.cache.Get(ctx, key); ok {
		var list []M
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
		s.log.Warnw("dropping undecodable cache entry", "key", key)
	}

	list, err := fetch()
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(list); err == nil {
		s.cache.Set(ctx, key, raw)
	}
	return list, nil
}

// Accounts

func (s *CachedStore) GetAccountByID(ctx context.Context, id uint) (*account.Account, error) {
	model, err := cached(ctx, s, CacheKey("accounts.get", id), func() (*models.AccountModel, error) {
		a, err := s.inner.GetAccountByID(ctx, id)
		if err != nil || a == nil {
			return nil, err
		}
		return s.accountMapper.ToModel(a), nil
	})
	if err != nil || model == nil {
		return nil, err
	}
	return s.accountMapper.ToDomain(model), nil
}

func (s *CachedStore) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	model, err := cached(ctx, s, CacheKey("accounts.get_by_email", email), func() (*models.AccountModel, error) {
		a, err := s.inner.GetAccountByEmail(ctx, email)
		if err != nil || a == nil {
			return nil, err
		}
		return s.accountMapper.ToModel(a), nil
	})
	if err != nil || model == nil {
		return nil, err
	}
	return s.accountMapper.ToDomain(model), nil
}

func (s *CachedStore) ListAccounts(ctx context.Context, filter query.Filter) ([]*account.Account, error) {
	list, err := cachedList(ctx, s, CacheKey("accounts.list", filter), func() ([]*models.AccountModel, error) {
		accounts, err := s.inner.ListAccounts(ctx, filter)
		if err != nil {
			return nil, err
		}
		modelList := make([]*models.AccountModel, 0, len(accounts))
		for _, a := range accounts {
			modelList = append(modelList, s.accountMapper.ToModel(a))
		}
		return modelList, nil
	})
	if err != nil {
		return nil, err
	}
	return s.accountMapper.ToDomainList(list), nil
}

func (s *CachedStore) CreateAccount(ctx context.Context, a *account.Account) error {
	if err := s.inner.CreateAccount(ctx, a); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedStore) UpdateAccount(ctx context.Context, id uint, patch query.Patch) (*account.Account, error) {
	a, err := s.inner.UpdateAccount(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return a, nil
}

func (s *CachedStore) DeleteAccount(ctx context.Context, id uint) error {
	if err := s.inner.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Tickets

func (s *CachedStore) GetTicketByID(ctx context.Context, id uint) (*ticket.Ticket, error) {
	model, err := cached(ctx, s, CacheKey("tickets.get", id), func() (*models.TicketModel, error) {
		t, err := s.inner.GetTicketByID(ctx, id)
		if err != nil || t == nil {
			return nil, err
		}
		return s.ticketMapper.ToModel(t), nil
	})
	if err != nil || model == nil {
		return nil, err
	}
	return s.ticketMapper.ToDomain(model), nil
}

func (s *CachedStore) GetTicketByNumber(ctx context.Context, number string) (*ticket.Ticket, error) {
	model, err := cached(ctx, s, CacheKey("tickets.get_by_number", number), func() (*models.TicketModel, error) {
		t, err := s.inner.GetTicketByNumber(ctx, number)
		if err != nil || t == nil {
			return nil, err
		}
		return s.ticketMapper.ToModel(t), nil
	})
	if err != nil || model == nil {
		return nil, err
	}
	return s.ticketMapper.ToDomain(model), nil
}

func (s *CachedStore) ListTickets(ctx context.Context, filter query.Filter) ([]*ticket.Ticket, error) {
	list, err := cachedList(ctx, s, CacheKey("tickets.list", filter), func() ([]*models.TicketModel, error) {
		tickets, err := s.inner.ListTickets(ctx, filter)
		if err != nil {
			return nil, err
		}
		modelList := make([]*models.TicketModel, 0, len(tickets))
		for _, t := range tickets {
			modelList = append(modelList, s.ticketMapper.ToModel(t))
		}
		return modelList, nil
	})
	if err != nil {
		return nil, err
	}
	return s.ticketMapper.ToDomainList(list), nil
}

func (s *CachedStore) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	if err := s.inner.CreateTicket(ctx, t); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedStore) UpdateTicket(ctx context.Context, id uint, patch query.Patch) (*ticket.Ticket, error) {
	t, err := s.inner.UpdateTicket(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return t, nil
}

func (s *CachedStore) DeleteTicket(ctx context.Context, id uint) error {
	if err := s.inner.DeleteTicket(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedStore) AddComment(ctx context.Context, c *ticket.Comment) error {
	if err := s.inner.AddComment(ctx, c); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedStore) ListComments(ctx context.Context, ticketID uint) ([]*ticket.Comment, error) {
	list, err := cachedList(ctx, s, CacheKey("tickets.comments", ticketID), func() ([]*models.TicketCommentModel, error) {
		comments, err := s.inner.ListComments(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		modelList := make([]*models.TicketCommentModel, 0, len(comments))
		for _, c := range comments {
			modelList = append(modelList, s.ticketMapper.CommentToModel(c))
		}
		return modelList, nil
	})
	if err != nil {
		return nil, err
	}
	comments := make([]*ticket.Comment, 0, len(list))
	for _, model := range list {
		comments = append(comments, s.ticketMapper.CommentToDomain(model))
	}
	return comments, nil
}

func (s *CachedStore) CloseTicket(ctx context.Context, id uint, note string) (*ticket.Ticket, error) {
	t, err := s.inner.CloseTicket(ctx, id, note)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return t, nil
}

// Broadcast logs

func (s *CachedStore) GetBroadcastByID(ctx context.Context, id uint) (*broadcast.Log, error) {
	model, err := cached(ctx, s, CacheKey("broadcasts.get", id), func() (*models.BroadcastLogModel, error) {
		l, err := s.inner.GetBroadcastByID(ctx, id)
		if err != nil || l == nil {
			return nil, err
		}
		return s.broadcastMapper.ToModel(l), nil
	})
	if err != nil || model == nil {
		return nil, err
	}
	return s.broadcastMapper.ToDomain(model), nil
}

func (s *CachedStore) ListBroadcasts(ctx context.Context, filter query.Filter) ([]*broadcast.Log, error) {
	list, err := cachedList(ctx, s, CacheKey("broadcasts.list", filter), func() ([]*models.BroadcastLogModel, error) {
		logs, err := s.inner.ListBroadcasts(ctx, filter)
		if err != nil {
			return nil, err
		}
		modelList := make([]*models.BroadcastLogModel, 0, len(logs))
		for _, l := range logs {
			modelList = append(modelList, s.broadcastMapper.ToModel(l))
		}
		return modelList, nil
	})
	if err != nil {
		return nil, err
	}
	return s.broadcastMapper.ToDomainList(list), nil
}

func (s *CachedStore) CreateBroadcast(ctx context.Context, l *broadcast.Log) error {
	if err := s.inner.CreateBroadcast(ctx, l); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CachedStore) UpdateBroadcast(ctx context.Context, id uint, patch query.Patch) (*broadcast.Log, error) {
	l, err := s.inner.UpdateBroadcast(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return l, nil
}

// Dashboard

func (s *CachedStore) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	return cached(ctx, s, CacheKey("dashboard.stats"), func() (*DashboardStats, error) {
		return s.inner.DashboardStats(ctx)
	})
}

// RawQuery bypasses the cache and delegates when the backend supports raw
// SQL.
func (s *CachedStore) RawQuery(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	if rq, ok := s.inner.(RawQuerier); ok {
		return rq.RawQuery(ctx, sql, args...)
	}
	return nil, errors.NewUnsupportedError(
		"raw queries are not supported by this backend",
		string(s.inner.Kind()))
}

// OnChange delegates to the backend when it can push change notifications.
func (s *CachedStore) OnChange(fn func(entity string, id uint)) {
	if cn, ok := s.inner.(ChangeNotifier); ok {
		cn.OnChange(fn)
	}
}

func (s *CachedStore) HealthCheck(ctx context.Context) error {
	return s.inner.HealthCheck(ctx)
}

func (s *CachedStore) Kind() Kind {
	return s.inner.Kind()
}

func (s *CachedStore) Close() error {
	return s.inner.Close()
}
