package service

import (
	"context"
	"errors"
	"time"

	"shibads/internal/domain"
	"shibads/internal/store"
)

// RateLimiter enforces a minimum spacing between a user's reward actions,
// measured from last_activity. It never writes last_activity itself.
type RateLimiter struct {
	users       store.Users
	minInterval time.Duration
	now         func() time.Time
}

func NewRateLimiter(users store.Users, minInterval time.Duration) *RateLimiter {
	return &RateLimiter{users: users, minInterval: minInterval, now: time.Now}
}

// Check loads the user and applies CheckUser. Unknown users are allowed.
func (r *RateLimiter) Check(ctx context.Context, userID int64) error {
	u, err := r.users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return internalErr("rate limit check", err)
	}
	return r.CheckUser(u, r.now())
}

// CheckUser returns a *RateLimitError when the last action is too recent.
func (r *RateLimiter) CheckUser(u *domain.User, now time.Time) error {
	if u.LastActivity == nil {
		return nil
	}
	elapsed := now.Sub(*u.LastActivity)
	if elapsed < r.minInterval {
		return &RateLimitError{RetryAfter: r.minInterval - elapsed}
	}
	return nil
}
