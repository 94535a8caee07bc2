package repository

import (
	"context"
	"errors"
	"time"

	"shibads/internal/domain"
	"shibads/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActionRepository stores single-use action tokens in temp_actions.
type ActionRepository struct {
	db *pgxpool.Pool
}

func NewActionRepository(db *pgxpool.Pool) *ActionRepository {
	return &ActionRepository{db: db}
}

func (r *ActionRepository) Create(ctx context.Context, t *domain.ActionToken) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO temp_actions (user_id, action_id, action_type, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		t.UserID, t.Token, t.Kind, t.CreatedAt,
	).Scan(&t.ID)
}

// Consume deletes the matching unexpired token and returns it. Concurrent
// callers race on the row lock, so only one of them gets the row back.
func (r *ActionRepository) Consume(ctx context.Context, userID int64, token string, kind domain.ActionKind, issuedAfter time.Time) (*domain.ActionToken, error) {
	row := r.db.QueryRow(ctx,
		`DELETE FROM temp_actions
		 WHERE user_id = $1 AND action_id = $2 AND action_type = $3 AND created_at >= $4
		 RETURNING id, user_id, action_id, action_type, created_at`,
		userID, token, kind, issuedAfter,
	)
	return scanActionToken(row)
}

func (r *ActionRepository) Find(ctx context.Context, userID int64, token string, kind domain.ActionKind) (*domain.ActionToken, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, action_id, action_type, created_at
		 FROM temp_actions
		 WHERE user_id = $1 AND action_id = $2 AND action_type = $3
		 LIMIT 1`,
		userID, token, kind,
	)
	return scanActionToken(row)
}

// Purge removes tokens created before olderThan
func (r *ActionRepository) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM temp_actions WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanActionToken(row pgx.Row) (*domain.ActionToken, error) {
	var t domain.ActionToken
	if err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.Kind, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
