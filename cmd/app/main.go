package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shibads/internal/config"
	"shibads/internal/db"
	httpServer "shibads/internal/http"
	"shibads/internal/http/handlers"
	"shibads/internal/http/middleware"
	"shibads/internal/jobs"
	"shibads/internal/logger"
	"shibads/internal/repository"
	"shibads/internal/service"
	"shibads/internal/store"
	"shibads/internal/store/memory"
	"shibads/internal/supabase"
	"shibads/internal/telegram"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	st, closeStore := openStore(cfg)
	defer closeStore()

	eco := cfg.Economy
	tokens := service.NewActionTokenService(st, eco.ActionTokenTTL)
	limiter := service.NewRateLimiter(st, eco.MinActionInterval)
	quotas := service.NewQuotaResetter(st, eco)
	commissions := service.NewCommissionEngine(st, eco)
	membership := telegram.NewBotMembership(cfg.BotToken, cfg.BotAPIEndpoint, cfg.BotAPITimeout)

	ledger, err := service.NewLedger(st, eco, tokens, limiter, quotas, commissions, membership)
	if err != nil {
		logger.Fatal("ledger", "error", err)
	}
	users := service.NewUserService(st, quotas, eco)
	verifier := telegram.NewVerifier(cfg.BotToken, cfg.InitDataMaxAge)

	h := handlers.NewHandler(users, ledger, tokens, commissions, verifier, cfg.CommissionAPIKey)
	health := handlers.NewHealthHandler(st, cfg.StoreBackend, version)

	redisClient := middleware.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if redisClient != nil {
		defer redisClient.Close()
	}

	gin.SetMode(gin.ReleaseMode)
	r := httpServer.NewEngine()
	httpServer.RegisterRoutes(r, h, health, middleware.APIRateLimit(redisClient, cfg.APIRateLimit, cfg.APIRateWindow))

	janitor, err := jobs.NewJanitor(st, cfg.JanitorSchedule, cfg.ActionTokenRetention)
	if err != nil {
		logger.Fatal("janitor", "error", err)
	}
	janitor.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "store", cfg.StoreBackend, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := commissions.Wait(ctx); err != nil {
		logger.Warn("pending commissions not drained", "error", err)
	}
	janitor.Stop()

	logger.Info("server exited")
}

// openStore selects the record store backend. The returned func releases it.
func openStore(cfg *config.Config) (store.Store, func()) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		client, err := supabase.NewClient(supabase.Config{
			ProjectURL: cfg.SupabaseURL,
			APIKey:     cfg.SupabaseKey,
			Timeout:    cfg.StoreTimeout,
		})
		if err != nil {
			logger.Fatal("supabase client", "error", err)
		}
		return supabase.NewStore(client), func() {}
	case config.BackendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}
	default:
		pool := db.Connect(cfg.DatabaseURL)
		return repository.NewPostgres(pool), pool.Close
	}
}
