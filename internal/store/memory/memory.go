// Package memory is an in-process store.Store used by tests and local runs.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"shibads/internal/domain"
	"shibads/internal/store"
)

type Store struct {
	mu          sync.Mutex
	users       map[int64]*domain.User
	tokens      []*domain.ActionToken
	withdrawals []domain.Withdrawal
	commissions []domain.Commission
	nextID      int64

	// Err, when set, is returned by every call. Tests use it to simulate outages.
	Err error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[int64]*domain.User)}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Err
}

func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[u.ID]; ok {
		return store.ErrConflict
	}
	u.Version = 1
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	return s.swapUser(u, expected)
}

func (s *Store) swapUser(u *domain.User, expected int64) error {
	cur, ok := s.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != expected {
		return store.ErrStale
	}
	u.Version = expected + 1
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *Store) CountReferrals(ctx context.Context, referrerID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	n := 0
	for _, u := range s.users {
		if u.ReferredBy != nil && *u.ReferredBy == referrerID {
			n++
		}
	}
	return n, nil
}

func (s *Store) InsertActionToken(ctx context.Context, t *domain.ActionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	t.ID = s.id()
	c := *t
	s.tokens = append(s.tokens, &c)
	return nil
}

func (s *Store) ConsumeActionToken(ctx context.Context, userID int64, token string, kind domain.ActionKind, issuedAfter time.Time) (*domain.ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for i, t := range s.tokens {
		if t.UserID == userID && t.Token == token && t.Kind == kind && !t.CreatedAt.Before(issuedAfter) {
			s.tokens = slices.Delete(s.tokens, i, i+1)
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindActionToken(ctx context.Context, userID int64, token string, kind domain.ActionKind) (*domain.ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, t := range s.tokens {
		if t.UserID == userID && t.Token == token && t.Kind == kind {
			c := *t
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) PurgeActionTokens(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	before := len(s.tokens)
	s.tokens = slices.DeleteFunc(s.tokens, func(t *domain.ActionToken) bool {
		return t.CreatedAt.Before(olderThan)
	})
	return int64(before - len(s.tokens)), nil
}

func (s *Store) CreateWithdrawal(ctx context.Context, u *domain.User, expected int64, w *domain.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if err := s.swapUser(u, expected); err != nil {
		return err
	}
	w.ID = s.id()
	s.withdrawals = append(s.withdrawals, *w)
	return nil
}

func (s *Store) ListWithdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []domain.Withdrawal{}
	for i := len(s.withdrawals) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.withdrawals[i].UserID == userID {
			out = append(out, s.withdrawals[i])
		}
	}
	return out, nil
}

func (s *Store) CreditCommission(ctx context.Context, referrer *domain.User, expected int64, c *domain.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if err := s.swapUser(referrer, expected); err != nil {
		return err
	}
	c.ID = s.id()
	s.commissions = append(s.commissions, *c)
	return nil
}

// Commissions returns a copy of the commission log.
func (s *Store) Commissions() []domain.Commission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.commissions)
}

// Tokens returns a copy of the stored action tokens.
func (s *Store) Tokens() []domain.ActionToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ActionToken, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, *t)
	}
	return out
}

// Withdrawals returns a copy of every withdrawal record.
func (s *Store) Withdrawals() []domain.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.withdrawals)
}

// SetErr swaps the injected failure.
func (s *Store) SetErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}
