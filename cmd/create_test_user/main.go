package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"shibads/internal/config"
	"shibads/internal/db"
	"shibads/internal/logger"
	"shibads/internal/repository"
	"shibads/internal/service"
	"shibads/internal/telegram"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// create_test_user registers a user in Postgres, optionally tops up the
// balance, and prints signed initData for calling the API by hand.
func main() {
	userID := flag.Int64("id", 1234567890, "telegram user id")
	refBy := flag.Int64("ref", 0, "referrer id (0 for none)")
	balance := flag.String("balance", "", "set balance after registering, e.g. 450")
	flag.Parse()

	_ = godotenv.Load()
	logger.Init(os.Getenv("LOG_LEVEL"), false)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("BOT_TOKEN not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	st := repository.NewPostgres(pool)
	eco := config.DefaultEconomy()
	users := service.NewUserService(st, service.NewQuotaResetter(st, eco), eco)
	ctx := context.Background()

	var ref *int64
	if *refBy > 0 {
		ref = refBy
	}
	switch err := users.Register(ctx, *userID, ref); {
	case err == nil:
		logger.Info("user created", "user_id", *userID)
	case errors.Is(err, service.ErrAlreadyRegistered):
		logger.Info("user already exists", "user_id", *userID)
	default:
		logger.Fatal("register failed", "error", err)
	}

	if *balance != "" {
		amount, err := decimal.NewFromString(*balance)
		if err != nil {
			logger.Fatal("invalid balance", "error", err)
		}
		u, err := st.GetUser(ctx, *userID)
		if err != nil {
			logger.Fatal("load user", "error", err)
		}
		u.Balance = amount
		if err := st.UpdateUser(ctx, u, u.Version); err != nil {
			logger.Fatal("set balance", "error", err)
		}
		logger.Info("balance set", "user_id", *userID, "balance", amount.String())
	}

	signer := telegram.NewVerifier(botToken, 0)
	fmt.Println(signer.UserInitData(*userID, time.Now()))
}
