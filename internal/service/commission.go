package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shibads/internal/config"
	"shibads/internal/domain"
	"shibads/internal/logger"
	"shibads/internal/store"

	"github.com/shopspring/decimal"
)

// CommissionTimeout bounds a detached commission credit.
const CommissionTimeout = 5 * time.Second

// CommissionResult describes what Credit did. Skipped credits are not errors.
type CommissionResult struct {
	Credited bool
	Amount   decimal.Decimal
	Reason   string
}

// CommissionEngine credits referrers a share of their referees' rewards.
type CommissionEngine struct {
	store   store.Store
	rate    decimal.Decimal
	floor   decimal.Decimal
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
	wg      sync.WaitGroup
}

func NewCommissionEngine(st store.Store, eco config.Economy) *CommissionEngine {
	return &CommissionEngine{
		store:   st,
		rate:    eco.CommissionRate,
		floor:   eco.CommissionFloor,
		timeout: CommissionTimeout,
		now:     time.Now,
		log:     logger.With("component", "commission"),
	}
}

// Credit adds rate*sourceReward to the referrer and appends an audit record.
// Amounts below the floor, unknown referrers and banned referrers are skipped.
func (e *CommissionEngine) Credit(ctx context.Context, referrerID, refereeID int64, sourceReward decimal.Decimal) (CommissionResult, error) {
	amount := sourceReward.Mul(e.rate)
	if amount.LessThan(e.floor) {
		return e.skip("commission below floor", amount), nil
	}
	if referrerID == refereeID {
		return e.skip("self referral", amount), nil
	}

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		referrer, err := e.store.GetUser(ctx, referrerID)
		if errors.Is(err, store.ErrNotFound) {
			return e.skip("referrer not found", amount), nil
		}
		if err != nil {
			Commissions.WithLabelValues("failed").Inc()
			return CommissionResult{}, internalErr("load referrer", err)
		}
		if referrer.IsBanned {
			return e.skip("referrer banned", amount), nil
		}

		expected := referrer.Version
		referrer.Balance = referrer.Balance.Add(amount)
		record := &domain.Commission{
			ReferrerID:   referrerID,
			RefereeID:    refereeID,
			Amount:       amount,
			SourceReward: sourceReward,
			CreatedAt:    e.now().UTC(),
		}
		err = e.store.CreditCommission(ctx, referrer, expected, record)
		if errors.Is(err, store.ErrStale) {
			continue
		}
		if err != nil {
			Commissions.WithLabelValues("failed").Inc()
			return CommissionResult{}, internalErr("credit commission", err)
		}

		Commissions.WithLabelValues("credited").Inc()
		return CommissionResult{Credited: true, Amount: amount}, nil
	}

	Commissions.WithLabelValues("failed").Inc()
	return CommissionResult{}, internalErr("credit commission", errContended)
}

func (e *CommissionEngine) skip(reason string, amount decimal.Decimal) CommissionResult {
	Commissions.WithLabelValues("skipped").Inc()
	return CommissionResult{Amount: amount, Reason: reason}
}

// Dispatch runs Credit in the background on its own timeout. Failures are
// logged and never reach the caller.
func (e *CommissionEngine) Dispatch(referrerID, refereeID int64, sourceReward decimal.Decimal) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("commission panic", "referrer_id", referrerID, "referee_id", refereeID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		res, err := e.Credit(ctx, referrerID, refereeID, sourceReward)
		if err != nil {
			e.log.Error("commission failed", "referrer_id", referrerID, "referee_id", refereeID, "source_reward", sourceReward.String(), "error", err)
			return
		}
		if !res.Credited {
			e.log.Debug("commission skipped", "referrer_id", referrerID, "referee_id", refereeID, "reason", res.Reason)
		}
	}()
}

// Wait blocks until in-flight commissions finish or ctx is done.
func (e *CommissionEngine) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
