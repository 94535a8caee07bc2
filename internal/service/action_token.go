package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"shibads/internal/domain"
	"shibads/internal/logger"
	"shibads/internal/store"
)

const tokenBytes = 16

// ActionTokenService issues and redeems single-use action tokens.
type ActionTokenService struct {
	store store.ActionTokens
	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger
}

func NewActionTokenService(st store.ActionTokens, ttl time.Duration) *ActionTokenService {
	return &ActionTokenService{
		store: st,
		ttl:   ttl,
		now:   time.Now,
		log:   logger.With("component", "action_tokens"),
	}
}

// Issue persists a fresh 128-bit token bound to userID and kind. The token
// is only returned once it is stored.
func (s *ActionTokenService) Issue(ctx context.Context, userID int64, kind domain.ActionKind) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", internalErr("generate action id", err)
	}

	t := &domain.ActionToken{
		UserID:    userID,
		Token:     hex.EncodeToString(buf),
		Kind:      kind,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertActionToken(ctx, t); err != nil {
		ActionTokens.WithLabelValues("issue_failed").Inc()
		return "", internalErr("store action id", err)
	}

	ActionTokens.WithLabelValues("issued").Inc()
	return t.Token, nil
}

// Redeem burns the token if it matches userID and kind and is younger than
// the TTL. Expired tokens are left in place and keep reporting
// ErrTokenExpired until the janitor purges them.
func (s *ActionTokenService) Redeem(ctx context.Context, userID int64, token string, kind domain.ActionKind) error {
	if token == "" {
		return ErrTokenMissing
	}

	issuedAfter := s.now().Add(-s.ttl)
	_, err := s.store.ConsumeActionToken(ctx, userID, token, kind, issuedAfter)
	if err == nil {
		ActionTokens.WithLabelValues("redeemed").Inc()
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return internalErr("consume action id", err)
	}

	// Nothing was deleted: tell an expired token from an unknown one.
	if _, ferr := s.store.FindActionToken(ctx, userID, token, kind); ferr == nil {
		ActionTokens.WithLabelValues("expired").Inc()
		return ErrTokenExpired
	} else if !errors.Is(ferr, store.ErrNotFound) {
		return internalErr("find action id", ferr)
	}

	ActionTokens.WithLabelValues("rejected").Inc()
	s.log.Debug("action id rejected", "user_id", userID, "kind", kind)
	return ErrTokenNotFound
}
