package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shibads/internal/config"
	httpserver "shibads/internal/http"
	"shibads/internal/http/handlers"
	"shibads/internal/repository"
	"shibads/internal/service"
	"shibads/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const botToken = "777:INTEGRATION"

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "migrations")
	files, err := os.ReadDir(migDir)
	require.NoError(t, err, "read migrations")
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		require.NoError(t, err)
		_, err = db.Exec(context.Background(), string(b))
		require.NoError(t, err, "apply migration %s", f.Name())
	}
}

type allMembers struct{}

func (allMembers) IsMember(context.Context, string, int64) (bool, error) { return true, nil }

type apiResponse struct {
	OK    bool           `json:"ok"`
	Data  map[string]any `json:"data"`
	Error string         `json:"error"`
}

// client posts typed requests to the running test server as one user.
type client struct {
	t      *testing.T
	http   *resty.Client
	signer *telegram.Verifier
	userID int64
}

func (c *client) call(typ string, extra map[string]any) (int, apiResponse) {
	c.t.Helper()
	body := map[string]any{
		"type":     typ,
		"initData": c.signer.UserInitData(c.userID, time.Now()),
		"user_id":  c.userID,
	}
	for k, v := range extra {
		body[k] = v
	}
	var out apiResponse
	resp, err := c.http.R().SetBody(body).SetResult(&out).SetError(&out).Post("/api")
	require.NoError(c.t, err)
	return resp.StatusCode(), out
}

func (c *client) actionID(kind string) string {
	c.t.Helper()
	status, res := c.call("requestActionId", map[string]any{"action_type": kind})
	require.Equal(c.t, http.StatusOK, status, res.Error)
	id, _ := res.Data["action_id"].(string)
	require.NotEmpty(c.t, id)
	return id
}

func TestE2E_RewardFlowOnPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err, "connect db")
	defer pool.Close()
	applyMigrations(t, pool)

	referrerID := time.Now().UnixNano() / 1000
	userID := referrerID + 1
	t.Cleanup(func() {
		ctx := context.Background()
		for _, id := range []int64{userID, referrerID} {
			_, _ = pool.Exec(ctx, `DELETE FROM commissions WHERE referrer_id = $1`, id)
			_, _ = pool.Exec(ctx, `DELETE FROM withdrawals WHERE user_id = $1`, id)
			_, _ = pool.Exec(ctx, `DELETE FROM temp_actions WHERE user_id = $1`, id)
			_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		}
	})

	st := repository.NewPostgres(pool)
	eco := config.DefaultEconomy()
	eco.MinActionInterval = 0

	tokens := service.NewActionTokenService(st, eco.ActionTokenTTL)
	limiter := service.NewRateLimiter(st, eco.MinActionInterval)
	quotas := service.NewQuotaResetter(st, eco)
	commissions := service.NewCommissionEngine(st, eco)
	ledger, err := service.NewLedger(st, eco, tokens, limiter, quotas, commissions, allMembers{})
	require.NoError(t, err)
	signer := telegram.NewVerifier(botToken, time.Hour)
	h := handlers.NewHandler(service.NewUserService(st, quotas, eco), ledger, tokens, commissions, signer, "")

	gin.SetMode(gin.TestMode)
	r := httpserver.NewEngine()
	httpserver.RegisterRoutes(r, h, handlers.NewHealthHandler(st, config.BackendPostgres, "test"), nil)
	ts := httptest.NewServer(r)
	defer ts.Close()

	rc := resty.New().SetBaseURL(ts.URL)
	ref := &client{t: t, http: rc, signer: signer, userID: referrerID}
	usr := &client{t: t, http: rc, signer: signer, userID: userID}

	status, res := ref.call("register", nil)
	require.Equal(t, http.StatusOK, status, res.Error)
	status, res = usr.call("register", map[string]any{"ref_by": referrerID})
	require.Equal(t, http.StatusOK, status, res.Error)

	status, res = usr.call("watchAd", map[string]any{"action_id": usr.actionID("watchAd")})
	require.Equal(t, http.StatusOK, status, res.Error)
	assert.Equal(t, "3", res.Data["new_balance"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, commissions.Wait(ctx))

	referrer, err := st.GetUser(ctx, referrerID)
	require.NoError(t, err)
	assert.True(t, referrer.Balance.Equal(decimal.RequireFromString("0.15")), referrer.Balance.String())

	// top up so a withdrawal clears the minimum
	_, err = pool.Exec(ctx, `UPDATE users SET balance = 450, version = version + 1 WHERE id = $1`, userID)
	require.NoError(t, err)

	status, res = usr.call("withdraw", map[string]any{
		"action_id": usr.actionID("withdraw"),
		"amount":    400,
		"binanceId": "BN-1",
	})
	require.Equal(t, http.StatusOK, status, res.Error)
	assert.Equal(t, "50", res.Data["new_balance"])

	status, res = usr.call("getUserData", nil)
	require.Equal(t, http.StatusOK, status, res.Error)
	history, _ := res.Data["withdrawal_history"].([]any)
	assert.Len(t, history, 1)

	resp, err := rc.R().Get("/readyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}
