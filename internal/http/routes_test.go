package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shibads/internal/config"
	"shibads/internal/http/handlers"
	"shibads/internal/http/middleware"
	"shibads/internal/service"
	"shibads/internal/store/memory"
	"shibads/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, limiter gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	eco := config.DefaultEconomy()
	tokens := service.NewActionTokenService(st, eco.ActionTokenTTL)
	quotas := service.NewQuotaResetter(st, eco)
	commissions := service.NewCommissionEngine(st, eco)
	ledger, err := service.NewLedger(st, eco, tokens, service.NewRateLimiter(st, eco.MinActionInterval), quotas, commissions, nil)
	require.NoError(t, err)

	h := handlers.NewHandler(service.NewUserService(st, quotas, eco), ledger, tokens, commissions, telegram.NewVerifier("1:T", time.Hour), "")
	r := NewEngine()
	RegisterRoutes(r, h, handlers.NewHealthHandler(st, config.BackendMemory, "test"), limiter)
	return r
}

func TestRoutesMounted(t *testing.T) {
	r := newTestEngine(t, nil)

	for _, path := range []string{"/health", "/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	for _, path := range []string{"/api", "/api/v1"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"type":"getUserData"}`)))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestEngine(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAPIThrottledPerIP(t *testing.T) {
	r := newTestEngine(t, middleware.SimpleRateLimit(1, time.Minute))

	send := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{}`)))
		return w.Code
	}
	assert.Equal(t, http.StatusBadRequest, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
