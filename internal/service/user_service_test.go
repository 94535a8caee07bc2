package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"shibads/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, 10)

	ref := int64(10)
	require.NoError(t, f.users.Register(ctx, 1, &ref))

	u := f.user(t, 1)
	assert.True(t, u.Balance.IsZero())
	assert.Zero(t, u.AdsWatchedToday)
	assert.False(t, u.TaskCompleted)
	assert.Empty(t, u.MissionsCompleted)
	require.NotNil(t, u.ReferredBy)
	assert.Equal(t, int64(10), *u.ReferredBy)
	require.NotNil(t, u.LastActivity)
	assert.True(t, u.LastActivity.Equal(f.clock.Now()))

	assert.ErrorIs(t, f.users.Register(ctx, 1, nil), ErrAlreadyRegistered)
}

func TestRegisterBannedBeforeDuplicate(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 1, func(u *domain.User) { u.IsBanned = true })
	assert.ErrorIs(t, f.users.Register(context.Background(), 1, nil), ErrBanned)
}

func TestRegisterDropsInvalidReferrer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	self := int64(1)
	require.NoError(t, f.users.Register(ctx, 1, &self))
	assert.Nil(t, f.user(t, 1).ReferredBy)

	ghost := int64(999)
	require.NoError(t, f.users.Register(ctx, 2, &ghost))
	assert.Nil(t, f.user(t, 2).ReferredBy)
}

func TestGetUserDataUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.GetUserData(context.Background(), 5)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, 1, func(u *domain.User) {
		u.Balance = decimal.NewFromInt(900)
		u.TaskCompleted = true
		u.MissionsCompleted = []int{3}
	})
	ref := int64(1)
	f.seedUser(t, 2, func(u *domain.User) { u.ReferredBy = &ref })
	f.seedUser(t, 3, func(u *domain.User) { u.ReferredBy = &ref })

	_, err := f.ledger.Withdraw(ctx, 1, f.issue(t, 1, domain.ActionWithdraw), "400", "b")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	data, err := f.users.GetUserData(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, data.ReferralsCount)
	require.Len(t, data.WithdrawalHistory, 1)
	assert.Equal(t, domain.WithdrawalStatusPending, data.WithdrawalHistory[0].Status)

	require.Len(t, data.MissionsStatus, 3)
	done := map[int]bool{}
	for _, m := range data.MissionsStatus {
		done[m.ID] = m.IsCompleted
	}
	assert.Equal(t, map[int]bool{1: true, 2: false, 3: true}, done)

	// last_activity refreshed
	assert.True(t, f.user(t, 1).LastActivity.Equal(f.clock.Now()))

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.EqualValues(t, 500, body["balance"])
	assert.Contains(t, body, "referrals_count")
	assert.Contains(t, body, "missions_status")
	assert.NotContains(t, body, "version")
}

func TestGetUserDataBannedNotTouched(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 1, func(u *domain.User) { u.IsBanned = true })
	before := f.user(t, 1)

	f.clock.Advance(time.Minute)
	_, err := f.users.GetUserData(context.Background(), 1)
	require.NoError(t, err)
	after := f.user(t, 1)
	assert.Equal(t, before.Version, after.Version)
	assert.True(t, after.LastActivity.Equal(*before.LastActivity))
}

func TestGetUserDataAppliesReset(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 1, exhausted(f, true, true))
	f.clock.Advance(7 * time.Hour)

	data, err := f.users.GetUserData(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, data.AdsWatchedToday)
	assert.Zero(t, data.SpinsToday)
	assert.Zero(t, f.user(t, 1).SpinsToday)
}
