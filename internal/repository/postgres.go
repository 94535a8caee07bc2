package repository

import (
	"context"
	"time"

	"shibads/internal/domain"
	"shibads/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements store.Store on top of the repositories.
type Postgres struct {
	db          *pgxpool.Pool
	Users       *UserRepository
	Actions     *ActionRepository
	Withdrawals *WithdrawalRepository
	Commissions *CommissionRepository
}

var _ store.Store = (*Postgres)(nil)

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{
		db:          db,
		Users:       NewUserRepository(db),
		Actions:     NewActionRepository(db),
		Withdrawals: NewWithdrawalRepository(db),
		Commissions: NewCommissionRepository(db),
	}
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *Postgres) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return p.Users.GetByID(ctx, id)
}

func (p *Postgres) CreateUser(ctx context.Context, u *domain.User) error {
	return p.Users.Create(ctx, u)
}

func (p *Postgres) UpdateUser(ctx context.Context, u *domain.User, expected int64) error {
	return p.Users.Update(ctx, u, expected)
}

func (p *Postgres) CountReferrals(ctx context.Context, referrerID int64) (int, error) {
	return p.Users.CountReferrals(ctx, referrerID)
}

func (p *Postgres) InsertActionToken(ctx context.Context, t *domain.ActionToken) error {
	return p.Actions.Create(ctx, t)
}

func (p *Postgres) ConsumeActionToken(ctx context.Context, userID int64, token string, kind domain.ActionKind, issuedAfter time.Time) (*domain.ActionToken, error) {
	return p.Actions.Consume(ctx, userID, token, kind, issuedAfter)
}

func (p *Postgres) FindActionToken(ctx context.Context, userID int64, token string, kind domain.ActionKind) (*domain.ActionToken, error) {
	return p.Actions.Find(ctx, userID, token, kind)
}

func (p *Postgres) PurgeActionTokens(ctx context.Context, olderThan time.Time) (int64, error) {
	return p.Actions.Purge(ctx, olderThan)
}

// CreateWithdrawal deducts the balance and records the request in one transaction.
func (p *Postgres) CreateWithdrawal(ctx context.Context, u *domain.User, expected int64, w *domain.Withdrawal) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = updateUser(ctx, tx, u, expected); err != nil {
		return err
	}
	if err = p.Withdrawals.CreateWithTx(ctx, tx, w); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) ListWithdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	return p.Withdrawals.GetByUserID(ctx, userID, limit)
}

// CreditCommission credits the referrer and appends the audit record in one transaction.
func (p *Postgres) CreditCommission(ctx context.Context, referrer *domain.User, expected int64, c *domain.Commission) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = updateUser(ctx, tx, referrer, expected); err != nil {
		return err
	}
	if err = p.Commissions.CreateWithTx(ctx, tx, c); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
