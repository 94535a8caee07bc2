package service

import (
	"context"
	"testing"
	"time"

	"shibads/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exhausted(f *fixture, ads, spins bool) func(u *domain.User) {
	return func(u *domain.User) {
		at := f.clock.Now()
		if ads {
			u.AdsWatchedToday = f.eco.DailyMaxAds
			u.AdsLimitReachedAt = &at
		}
		if spins {
			u.SpinsToday = f.eco.DailyMaxSpins
			u.SpinsLimitReachedAt = &at
		}
	}
}

func TestMaybeResetBeforeCooldown(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 1, exhausted(f, true, true))
	f.clock.Advance(6*time.Hour - time.Second)

	u, err := f.quotas.MaybeReset(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, f.eco.DailyMaxAds, u.AdsWatchedToday)
	assert.NotNil(t, u.AdsLimitReachedAt)
	assert.Equal(t, int64(1), f.user(t, 1).Version, "nothing written")
}

func TestMaybeResetAfterCooldown(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 1, exhausted(f, true, true))
	f.clock.Advance(6 * time.Hour)

	_, err := f.quotas.MaybeReset(context.Background(), 1)
	require.NoError(t, err)

	u := f.user(t, 1)
	assert.Zero(t, u.AdsWatchedToday)
	assert.Nil(t, u.AdsLimitReachedAt)
	assert.Zero(t, u.SpinsToday)
	assert.Nil(t, u.SpinsLimitReachedAt)

	// idempotent
	_, err = f.quotas.MaybeReset(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, u.Version, f.user(t, 1).Version)
}

func TestMaybeResetDimensionsIndependent(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 1, exhausted(f, true, false))
	f.clock.Advance(2 * time.Hour)
	spinsAt := f.clock.Now()
	require.NoError(t, f.st.UpdateUser(context.Background(), func() *domain.User {
		u := f.user(t, 1)
		u.SpinsToday = f.eco.DailyMaxSpins
		u.SpinsLimitReachedAt = &spinsAt
		return u
	}(), 1))

	// ads qualify, spins are only 4h into their cooldown
	f.clock.Advance(4 * time.Hour)
	_, err := f.quotas.MaybeReset(context.Background(), 1)
	require.NoError(t, err)

	u := f.user(t, 1)
	assert.Zero(t, u.AdsWatchedToday)
	assert.Nil(t, u.AdsLimitReachedAt)
	assert.Equal(t, f.eco.DailyMaxSpins, u.SpinsToday)
	require.NotNil(t, u.SpinsLimitReachedAt)
	assert.True(t, u.SpinsLimitReachedAt.Equal(spinsAt))
}

func TestApplyRequiresCounterAtMax(t *testing.T) {
	f := newFixture(t)
	at := f.clock.Now().Add(-7 * time.Hour)
	u := &domain.User{AdsWatchedToday: 10, AdsLimitReachedAt: &at}

	assert.Empty(t, f.quotas.Apply(u, f.clock.Now()))
	assert.Equal(t, 10, u.AdsWatchedToday)
}

func TestApplyRequiresTimestamp(t *testing.T) {
	f := newFixture(t)
	u := &domain.User{SpinsToday: f.eco.DailyMaxSpins}
	assert.Empty(t, f.quotas.Apply(u, f.clock.Now()))
	assert.Equal(t, f.eco.DailyMaxSpins, u.SpinsToday)
}

func TestMaybeResetUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.quotas.MaybeReset(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
