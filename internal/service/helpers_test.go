package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"shibads/internal/config"
	"shibads/internal/domain"
	"shibads/internal/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeMembership struct {
	mu      sync.Mutex
	members map[int64]bool
	err     error
	calls   int
}

func (f *fakeMembership) IsMember(_ context.Context, _ string, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.members[userID], nil
}

type fixture struct {
	st      *memory.Store
	eco     config.Economy
	clock   *fakeClock
	members *fakeMembership
	tokens  *ActionTokenService
	limiter *RateLimiter
	quotas  *QuotaResetter
	engine  *CommissionEngine
	ledger  *Ledger
	users   *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:      memory.New(),
		eco:     config.DefaultEconomy(),
		clock:   newFakeClock(),
		members: &fakeMembership{members: map[int64]bool{}},
	}

	f.tokens = NewActionTokenService(f.st, f.eco.ActionTokenTTL)
	f.tokens.now = f.clock.Now
	f.limiter = NewRateLimiter(f.st, f.eco.MinActionInterval)
	f.limiter.now = f.clock.Now
	f.quotas = NewQuotaResetter(f.st, f.eco)
	f.quotas.now = f.clock.Now
	f.engine = NewCommissionEngine(f.st, f.eco)
	f.engine.now = f.clock.Now

	ledger, err := NewLedger(f.st, f.eco, f.tokens, f.limiter, f.quotas, f.engine, f.members)
	require.NoError(t, err)
	ledger.now = f.clock.Now
	f.ledger = ledger

	f.users = NewUserService(f.st, f.quotas, f.eco)
	f.users.now = f.clock.Now
	return f
}

// seedUser stores a user whose last activity is well outside the rate limit window.
func (f *fixture) seedUser(t *testing.T, id int64, mutate ...func(u *domain.User)) {
	t.Helper()
	long := f.clock.Now().Add(-time.Hour)
	u := &domain.User{
		ID:           id,
		Balance:      decimal.Zero,
		CreatedAt:    long,
		LastActivity: &long,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, f.st.CreateUser(context.Background(), u))
}

func (f *fixture) user(t *testing.T, id int64) *domain.User {
	t.Helper()
	u, err := f.st.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (f *fixture) issue(t *testing.T, userID int64, kind domain.ActionKind) string {
	t.Helper()
	tok, err := f.tokens.Issue(context.Background(), userID, kind)
	require.NoError(t, err)
	return tok
}

// waitCommissions drains detached commission goroutines.
func (f *fixture) waitCommissions(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.engine.Wait(ctx))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
