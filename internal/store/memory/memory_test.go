package memory

import (
	"context"
	"testing"
	"time"

	"shibads/internal/domain"
	"shibads/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateUserCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := &domain.User{ID: 7, Balance: decimal.Zero}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, int64(1), u.Version)
	assert.ErrorIs(t, s.CreateUser(ctx, &domain.User{ID: 7}), store.ErrConflict)

	a, err := s.GetUser(ctx, 7)
	require.NoError(t, err)
	b, err := s.GetUser(ctx, 7)
	require.NoError(t, err)

	a.Balance = decimal.NewFromInt(3)
	require.NoError(t, s.UpdateUser(ctx, a, a.Version))
	assert.Equal(t, int64(2), a.Version)

	b.Balance = decimal.NewFromInt(5)
	assert.ErrorIs(t, s.UpdateUser(ctx, b, b.Version), store.ErrStale)

	got, err := s.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(3)))

	assert.ErrorIs(t, s.UpdateUser(ctx, &domain.User{ID: 99}, 1), store.ErrNotFound)
}

func TestGetUserReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: 1}))

	u, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	u.IsBanned = true

	again, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.False(t, again.IsBanned)
}

func TestConsumeActionToken(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	require.NoError(t, s.InsertActionToken(ctx, &domain.ActionToken{UserID: 1, Token: "t", Kind: domain.ActionWatchAd, CreatedAt: now}))

	_, err := s.ConsumeActionToken(ctx, 2, "t", domain.ActionWatchAd, now.Add(-time.Minute))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ConsumeActionToken(ctx, 1, "t", domain.ActionPreSpin, now.Add(-time.Minute))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ConsumeActionToken(ctx, 1, "t", domain.ActionWatchAd, now.Add(time.Second))
	assert.ErrorIs(t, err, store.ErrNotFound)

	found, err := s.FindActionToken(ctx, 1, "t", domain.ActionWatchAd)
	require.NoError(t, err)
	assert.Equal(t, "t", found.Token)

	got, err := s.ConsumeActionToken(ctx, 1, "t", domain.ActionWatchAd, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)

	_, err = s.ConsumeActionToken(ctx, 1, "t", domain.ActionWatchAd, now)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, s.Tokens())
}

func TestCountReferralsAndWithdrawals(t *testing.T) {
	ctx := context.Background()
	s := New()
	ref := int64(1)
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: 1, Balance: decimal.NewFromInt(500)}))
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: 2, ReferredBy: &ref}))
	require.NoError(t, s.CreateUser(ctx, &domain.User{ID: 3, ReferredBy: &ref}))

	n, err := s.CountReferrals(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	u, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	expected := u.Version
	u.Balance = decimal.NewFromInt(100)
	w := &domain.Withdrawal{UserID: 1, Amount: decimal.NewFromInt(400), BinanceID: "b", Status: domain.WithdrawalStatusPending}
	require.NoError(t, s.CreateWithdrawal(ctx, u, expected, w))
	assert.NotZero(t, w.ID)

	// stale version leaves no record behind
	err = s.CreateWithdrawal(ctx, u, expected, &domain.Withdrawal{UserID: 1, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, store.ErrStale)

	list, err := s.ListWithdrawals(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Amount.Equal(decimal.NewFromInt(400)))
}
