package supabase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"shibads/internal/domain"
	"shibads/internal/logger"
	"shibads/internal/store"

	"github.com/shopspring/decimal"
)

const (
	tableUsers       = "users"
	tableActions     = "temp_actions"
	tableWithdrawals = "withdrawals"
	tableCommissions = "commissions"

	compensateAttempts = 3
)

// Store implements store.Store over PostgREST. Compound writes are a
// version-guarded PATCH followed by an insert; a failed insert is undone
// with a compensating balance adjustment.
type Store struct {
	c *Client
}

var _ store.Store = (*Store)(nil)

func NewStore(c *Client) *Store {
	return &Store{c: c}
}

// userRow exposes the version column that the domain type keeps out of JSON.
type userRow struct {
	domain.User
	Version int64 `json:"version"`
}

func (r userRow) toDomain() *domain.User {
	u := r.User
	u.Version = r.Version
	return &u
}

func eq(v any) string {
	return "eq." + fmt.Sprint(v)
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *Store) Ping(ctx context.Context) error {
	var rows []map[string]any
	return s.c.Select(ctx, tableUsers, Filter{"select": "id", "limit": "1"}, &rows)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var rows []userRow
	if err := s.c.Select(ctx, tableUsers, Filter{"id": eq(id), "select": "*"}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	missions := u.MissionsCompleted
	if missions == nil {
		missions = []int{}
	}
	body := map[string]any{
		"id":                 u.ID,
		"balance":            u.Balance,
		"ads_watched_today":  u.AdsWatchedToday,
		"spins_today":        u.SpinsToday,
		"ref_by":             u.ReferredBy,
		"is_banned":          u.IsBanned,
		"task_completed":     u.TaskCompleted,
		"missions_completed": missions,
		"created_at":         u.CreatedAt,
		"last_activity":      u.LastActivity,
		"version":            1,
	}
	var rows []userRow
	if err := s.c.Insert(ctx, tableUsers, body, &rows); err != nil {
		if isConflict(err) {
			return store.ErrConflict
		}
		return err
	}
	u.Version = 1
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User, expected int64) error {
	return s.patchUser(ctx, u, expected)
}

func (s *Store) patchUser(ctx context.Context, u *domain.User, expected int64) error {
	missions := u.MissionsCompleted
	if missions == nil {
		missions = []int{}
	}
	body := map[string]any{
		"balance":                u.Balance,
		"ads_watched_today":      u.AdsWatchedToday,
		"spins_today":            u.SpinsToday,
		"ads_limit_reached_at":   u.AdsLimitReachedAt,
		"spins_limit_reached_at": u.SpinsLimitReachedAt,
		"last_activity":          u.LastActivity,
		"task_completed":         u.TaskCompleted,
		"missions_completed":     missions,
		"version":                expected + 1,
	}
	var rows []userRow
	q := Filter{"id": eq(u.ID), "version": eq(expected)}
	if err := s.c.Update(ctx, tableUsers, q, body, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		if _, err := s.GetUser(ctx, u.ID); err != nil {
			return err
		}
		return store.ErrStale
	}
	u.Version = expected + 1
	return nil
}

// adjustBalance adds delta to the user's balance, retrying on version races.
func (s *Store) adjustBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	var err error
	for i := 0; i < compensateAttempts; i++ {
		var u *domain.User
		u, err = s.GetUser(ctx, id)
		if err != nil {
			return err
		}
		u.Balance = u.Balance.Add(delta)
		if err = s.patchUser(ctx, u, u.Version); !errors.Is(err, store.ErrStale) {
			return err
		}
	}
	return err
}

func (s *Store) CountReferrals(ctx context.Context, referrerID int64) (int, error) {
	return s.c.Count(ctx, tableUsers, Filter{"ref_by": eq(referrerID)})
}

func (s *Store) InsertActionToken(ctx context.Context, t *domain.ActionToken) error {
	body := map[string]any{
		"user_id":     t.UserID,
		"action_id":   t.Token,
		"action_type": t.Kind,
		"created_at":  t.CreatedAt,
	}
	var rows []domain.ActionToken
	if err := s.c.Insert(ctx, tableActions, body, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		t.ID = rows[0].ID
	}
	return nil
}

func (s *Store) ConsumeActionToken(ctx context.Context, userID int64, token string, kind domain.ActionKind, issuedAfter time.Time) (*domain.ActionToken, error) {
	q := Filter{
		"user_id":     eq(userID),
		"action_id":   eq(token),
		"action_type": eq(kind),
		"created_at":  "gte." + ts(issuedAfter),
	}
	var rows []domain.ActionToken
	if err := s.c.Delete(ctx, tableActions, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return &rows[0], nil
}

func (s *Store) FindActionToken(ctx context.Context, userID int64, token string, kind domain.ActionKind) (*domain.ActionToken, error) {
	q := Filter{
		"user_id":     eq(userID),
		"action_id":   eq(token),
		"action_type": eq(kind),
		"limit":       "1",
	}
	var rows []domain.ActionToken
	if err := s.c.Select(ctx, tableActions, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return &rows[0], nil
}

func (s *Store) PurgeActionTokens(ctx context.Context, olderThan time.Time) (int64, error) {
	var rows []domain.ActionToken
	if err := s.c.Delete(ctx, tableActions, Filter{"created_at": "lt." + ts(olderThan), "select": "id"}, &rows); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (s *Store) CreateWithdrawal(ctx context.Context, u *domain.User, expected int64, w *domain.Withdrawal) error {
	if err := s.patchUser(ctx, u, expected); err != nil {
		return err
	}
	var rows []domain.Withdrawal
	if err := s.c.Insert(ctx, tableWithdrawals, w, &rows); err != nil {
		if cerr := s.adjustBalance(ctx, u.ID, w.Amount); cerr != nil {
			logger.Error("withdrawal refund failed", "user_id", u.ID, "amount", w.Amount.String(), "error", cerr)
		}
		return err
	}
	if len(rows) > 0 {
		w.ID = rows[0].ID
	}
	return nil
}

func (s *Store) ListWithdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	if limit <= 0 {
		limit = 100
	}
	q := Filter{
		"user_id": eq(userID),
		"order":   "created_at.desc",
		"limit":   strconv.Itoa(limit),
	}
	rows := []domain.Withdrawal{}
	if err := s.c.Select(ctx, tableWithdrawals, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CreditCommission(ctx context.Context, referrer *domain.User, expected int64, c *domain.Commission) error {
	if err := s.patchUser(ctx, referrer, expected); err != nil {
		return err
	}
	var rows []domain.Commission
	if err := s.c.Insert(ctx, tableCommissions, c, &rows); err != nil {
		if cerr := s.adjustBalance(ctx, referrer.ID, c.Amount.Neg()); cerr != nil {
			logger.Error("commission reversal failed", "referrer_id", referrer.ID, "amount", c.Amount.String(), "error", cerr)
		}
		return err
	}
	if len(rows) > 0 {
		c.ID = rows[0].ID
	}
	return nil
}
