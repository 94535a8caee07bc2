// Package store defines the record store contract shared by the Postgres,
// PostgREST and in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"shibads/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	// ErrStale means the row changed since it was read; the caller should
	// reload and re-validate before retrying.
	ErrStale = errors.New("stale record version")
)

// Users is the user collection. UpdateUser is a compare-and-swap on
// Version: it only applies when the stored version equals expected, and on
// success sets u.Version to the new stored version.
type Users interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	CreateUser(ctx context.Context, u *domain.User) error
	UpdateUser(ctx context.Context, u *domain.User, expected int64) error
	CountReferrals(ctx context.Context, referrerID int64) (int, error)
}

// ActionTokens is the temp_actions collection.
type ActionTokens interface {
	InsertActionToken(ctx context.Context, t *domain.ActionToken) error
	// ConsumeActionToken deletes and returns the token matching all three
	// fields and created at or after issuedAfter, in one atomic operation.
	ConsumeActionToken(ctx context.Context, userID int64, token string, kind domain.ActionKind, issuedAfter time.Time) (*domain.ActionToken, error)
	FindActionToken(ctx context.Context, userID int64, token string, kind domain.ActionKind) (*domain.ActionToken, error)
	PurgeActionTokens(ctx context.Context, olderThan time.Time) (int64, error)
}

// Ledger holds the compound writes that move balance and append a record.
// Both apply the user update under the same version guard as UpdateUser.
type Ledger interface {
	CreateWithdrawal(ctx context.Context, u *domain.User, expected int64, w *domain.Withdrawal) error
	ListWithdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error)
	CreditCommission(ctx context.Context, referrer *domain.User, expected int64, c *domain.Commission) error
}

type Store interface {
	Users
	ActionTokens
	Ledger
	Ping(ctx context.Context) error
}
