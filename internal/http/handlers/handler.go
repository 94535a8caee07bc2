package handlers

import (
	"log/slog"

	"shibads/internal/logger"
	"shibads/internal/service"
	"shibads/internal/telegram"
)

// Handler serves the single POST API endpoint.
type Handler struct {
	Users       *service.UserService
	Ledger      *service.Ledger
	Tokens      *service.ActionTokenService
	Commissions *service.CommissionEngine
	Verifier    *telegram.Verifier

	// CommissionKey guards the internal "commission" request type. Empty disables it.
	CommissionKey string

	log *slog.Logger
}

func NewHandler(
	users *service.UserService,
	ledger *service.Ledger,
	tokens *service.ActionTokenService,
	commissions *service.CommissionEngine,
	verifier *telegram.Verifier,
	commissionKey string,
) *Handler {
	return &Handler{
		Users:         users,
		Ledger:        ledger,
		Tokens:        tokens,
		Commissions:   commissions,
		Verifier:      verifier,
		CommissionKey: commissionKey,
		log:           logger.With("component", "api"),
	}
}
