package repository

import (
	"context"
	"errors"

	"shibads/internal/domain"
	"shibads/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, balance::text, ads_watched_today, spins_today, ads_limit_reached_at,
	spins_limit_reached_at, last_activity, ref_by, is_banned, task_completed,
	COALESCE(missions_completed, '{}'), created_at, version`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	missions := u.MissionsCompleted
	if missions == nil {
		missions = []int{}
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (id, balance, ads_watched_today, spins_today, ref_by, is_banned,
		                    task_completed, missions_completed, created_at, last_activity, version)
		 VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8, $9, $10, 1)
		 RETURNING version`,
		u.ID, u.Balance.String(), u.AdsWatchedToday, u.SpinsToday, u.ReferredBy, u.IsBanned,
		u.TaskCompleted, missions, u.CreatedAt, u.LastActivity,
	).Scan(&u.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

// Update writes the mutable user fields if the row is still at version expected.
func (r *UserRepository) Update(ctx context.Context, u *domain.User, expected int64) error {
	return updateUser(ctx, r.db, u, expected)
}

func updateUser(ctx context.Context, q querier, u *domain.User, expected int64) error {
	missions := u.MissionsCompleted
	if missions == nil {
		missions = []int{}
	}
	var version int64
	err := q.QueryRow(ctx,
		`UPDATE users
		 SET balance = $2::numeric,
		     ads_watched_today = $3,
		     spins_today = $4,
		     ads_limit_reached_at = $5,
		     spins_limit_reached_at = $6,
		     last_activity = $7,
		     task_completed = $8,
		     missions_completed = $9,
		     version = version + 1
		 WHERE id = $1 AND version = $10
		 RETURNING version`,
		u.ID, u.Balance.String(), u.AdsWatchedToday, u.SpinsToday, u.AdsLimitReachedAt,
		u.SpinsLimitReachedAt, u.LastActivity, u.TaskCompleted, missions, expected,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			_ = q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, u.ID).Scan(&exists)
			if !exists {
				return store.ErrNotFound
			}
			return store.ErrStale
		}
		return err
	}
	u.Version = version
	return nil
}

// CountReferrals returns how many users were referred by referrerID
func (r *UserRepository) CountReferrals(ctx context.Context, referrerID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE ref_by = $1`, referrerID).Scan(&n)
	return n, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.Balance,
		&u.AdsWatchedToday,
		&u.SpinsToday,
		&u.AdsLimitReachedAt,
		&u.SpinsLimitReachedAt,
		&u.LastActivity,
		&u.ReferredBy,
		&u.IsBanned,
		&u.TaskCompleted,
		&u.MissionsCompleted,
		&u.CreatedAt,
		&u.Version,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
