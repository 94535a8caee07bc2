package repository

import (
	"context"

	"shibads/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CommissionRepository is the append-only referral commission log
type CommissionRepository struct {
	db *pgxpool.Pool
}

func NewCommissionRepository(db *pgxpool.Pool) *CommissionRepository {
	return &CommissionRepository{db: db}
}

func (r *CommissionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, c *domain.Commission) error {
	return tx.QueryRow(ctx, `
		INSERT INTO commissions (referrer_id, referee_id, amount, source_reward, created_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5)
		RETURNING id
	`, c.ReferrerID, c.RefereeID, c.Amount.String(), c.SourceReward.String(), c.CreatedAt).Scan(&c.ID)
}

// GetByReferrer returns recent commissions earned by a referrer
func (r *CommissionRepository) GetByReferrer(ctx context.Context, referrerID int64, limit int) ([]domain.Commission, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, referrer_id, referee_id, amount::text, source_reward::text, created_at
		FROM commissions
		WHERE referrer_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, referrerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Commission
	for rows.Next() {
		var c domain.Commission
		if err := rows.Scan(&c.ID, &c.ReferrerID, &c.RefereeID, &c.Amount, &c.SourceReward, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
