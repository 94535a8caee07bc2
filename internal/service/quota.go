package service

import (
	"context"
	"errors"
	"time"

	"shibads/internal/config"
	"shibads/internal/domain"
	"shibads/internal/store"
)

const (
	quotaAds   = "ads"
	quotaSpins = "spins"
)

// QuotaResetter lazily resets exhausted daily quotas once the cooldown has
// passed since the limit was reached. There is no background sweep, a user
// is only reset when they next call in.
type QuotaResetter struct {
	users         store.Users
	maxAds        int
	maxSpins      int
	resetInterval time.Duration
	now           func() time.Time
}

func NewQuotaResetter(users store.Users, eco config.Economy) *QuotaResetter {
	return &QuotaResetter{
		users:         users,
		maxAds:        eco.DailyMaxAds,
		maxSpins:      eco.DailyMaxSpins,
		resetInterval: eco.ResetInterval,
		now:           time.Now,
	}
}

// Apply resets each qualifying quota on u in place and returns the names of
// the quotas it reset. Each dimension is judged independently.
func (q *QuotaResetter) Apply(u *domain.User, now time.Time) []string {
	var reset []string
	if q.expired(u.AdsLimitReachedAt, u.AdsWatchedToday, q.maxAds, now) {
		u.AdsWatchedToday = 0
		u.AdsLimitReachedAt = nil
		reset = append(reset, quotaAds)
	}
	if q.expired(u.SpinsLimitReachedAt, u.SpinsToday, q.maxSpins, now) {
		u.SpinsToday = 0
		u.SpinsLimitReachedAt = nil
		reset = append(reset, quotaSpins)
	}
	return reset
}

func (q *QuotaResetter) expired(reachedAt *time.Time, count, limit int, now time.Time) bool {
	return reachedAt != nil && count >= limit && now.Sub(*reachedAt) >= q.resetInterval
}

// MaybeReset loads the user, applies any due reset and persists it. It is
// idempotent and returns the current user either way.
func (q *QuotaResetter) MaybeReset(ctx context.Context, userID int64) (*domain.User, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		u, err := q.users.GetUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, internalErr("load user", err)
		}

		reset := q.Apply(u, q.now())
		if len(reset) == 0 {
			return u, nil
		}
		err = q.users.UpdateUser(ctx, u, u.Version)
		if errors.Is(err, store.ErrStale) {
			continue
		}
		if err != nil {
			return nil, internalErr("reset quota", err)
		}
		countResets(reset)
		return u, nil
	}
	return nil, internalErr("reset quota", errContended)
}

func countResets(reset []string) {
	for _, name := range reset {
		QuotaResets.WithLabelValues(name).Inc()
	}
}
