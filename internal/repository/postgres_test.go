package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shibads/internal/domain"
	"shibads/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migDir := filepath.Join("..", "migrations")
	files, err := os.ReadDir(migDir)
	require.NoError(t, err)
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		require.NoError(t, err)
		_, err = pool.Exec(context.Background(), string(b))
		require.NoError(t, err, "apply migration %s", f.Name())
	}
	return NewPostgres(pool)
}

// testUserID derives an id unlikely to collide with rows from earlier runs.
func testUserID() int64 {
	return time.Now().UnixNano() / 1000
}

func cleanupUser(t *testing.T, p *Postgres, id int64) {
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = p.db.Exec(ctx, `DELETE FROM commissions WHERE referrer_id = $1`, id)
		_, _ = p.db.Exec(ctx, `DELETE FROM withdrawals WHERE user_id = $1`, id)
		_, _ = p.db.Exec(ctx, `DELETE FROM temp_actions WHERE user_id = $1`, id)
		_, _ = p.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	})
}

func TestPostgresUserLifecycle(t *testing.T) {
	p := setupPostgres(t)
	ctx := context.Background()
	id := testUserID()
	cleanupUser(t, p, id)

	u := &domain.User{ID: id, Balance: decimal.Zero, CreatedAt: time.Now().UTC()}
	require.NoError(t, p.CreateUser(ctx, u))
	assert.Equal(t, int64(1), u.Version)
	assert.ErrorIs(t, p.CreateUser(ctx, &domain.User{ID: id, CreatedAt: time.Now()}), store.ErrConflict)

	got, err := p.GetUser(ctx, id)
	require.NoError(t, err)
	got.Balance = decimal.RequireFromString("3.15")
	got.AdsWatchedToday = 1
	got.MarkMissionCompleted(2)
	require.NoError(t, p.UpdateUser(ctx, got, 1))
	assert.Equal(t, int64(2), got.Version)

	// a writer holding the old version loses
	stale := *got
	stale.Balance = decimal.NewFromInt(999)
	assert.ErrorIs(t, p.UpdateUser(ctx, &stale, 1), store.ErrStale)

	again, err := p.GetUser(ctx, id)
	require.NoError(t, err)
	assert.True(t, again.Balance.Equal(decimal.RequireFromString("3.15")))
	assert.Equal(t, []int{2}, again.MissionsCompleted)

	_, err = p.GetUser(ctx, -id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostgresConsumeActionTokenOnce(t *testing.T) {
	p := setupPostgres(t)
	ctx := context.Background()
	id := testUserID()
	cleanupUser(t, p, id)

	tok := &domain.ActionToken{UserID: id, Token: "tok-" + time.Now().Format("150405.000000"), Kind: domain.ActionWatchAd, CreatedAt: time.Now()}
	require.NoError(t, p.InsertActionToken(ctx, tok))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.ConsumeActionToken(ctx, id, tok.Token, domain.ActionWatchAd, time.Now().Add(-time.Minute)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	_, err := p.FindActionToken(ctx, id, tok.Token, domain.ActionWatchAd)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPostgresCreateWithdrawalAtomic(t *testing.T) {
	p := setupPostgres(t)
	ctx := context.Background()
	id := testUserID()
	cleanupUser(t, p, id)

	u := &domain.User{ID: id, Balance: decimal.NewFromInt(500), CreatedAt: time.Now()}
	require.NoError(t, p.CreateUser(ctx, u))

	u.Balance = decimal.NewFromInt(100)
	w := &domain.Withdrawal{UserID: id, Amount: decimal.NewFromInt(400), BinanceID: "bn-1", Status: domain.WithdrawalStatusPending, CreatedAt: time.Now()}
	require.NoError(t, p.CreateWithdrawal(ctx, u, 1, w))
	assert.NotZero(t, w.ID)

	// stale version rolls the whole write back
	u2 := u.Clone()
	u2.Balance = decimal.Zero
	w2 := &domain.Withdrawal{UserID: id, Amount: decimal.NewFromInt(100), BinanceID: "bn-1", Status: domain.WithdrawalStatusPending, CreatedAt: time.Now()}
	assert.ErrorIs(t, p.CreateWithdrawal(ctx, u2, 1, w2), store.ErrStale)

	list, err := p.ListWithdrawals(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Amount.Equal(decimal.NewFromInt(400)))
}
