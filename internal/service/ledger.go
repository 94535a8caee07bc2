package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shibads/internal/config"
	"shibads/internal/domain"
	"shibads/internal/game"
	"shibads/internal/logger"
	"shibads/internal/store"
	"shibads/internal/telegram"

	"github.com/shopspring/decimal"
)

// maxWriteAttempts bounds optimistic-concurrency retries on a user row.
const maxWriteAttempts = 3

var errContended = errors.New("user record is being modified concurrently")

// CommissionDispatcher starts a referral commission without waiting for it.
type CommissionDispatcher interface {
	Dispatch(referrerID, refereeID int64, sourceReward decimal.Decimal)
}

// Ledger applies every balance-affecting user action.
type Ledger struct {
	store       store.Store
	eco         config.Economy
	tokens      *ActionTokenService
	limiter     *RateLimiter
	quotas      *QuotaResetter
	commissions CommissionDispatcher
	membership  telegram.MembershipChecker
	wheel       *game.Wheel
	now         func() time.Time
	log         *slog.Logger
}

func NewLedger(
	st store.Store,
	eco config.Economy,
	tokens *ActionTokenService,
	limiter *RateLimiter,
	quotas *QuotaResetter,
	commissions CommissionDispatcher,
	membership telegram.MembershipChecker,
) (*Ledger, error) {
	wheel, err := game.NewWheel(eco.SpinSectors)
	if err != nil {
		return nil, err
	}
	return &Ledger{
		store:       st,
		eco:         eco,
		tokens:      tokens,
		limiter:     limiter,
		quotas:      quotas,
		commissions: commissions,
		membership:  membership,
		wheel:       wheel,
		now:         time.Now,
		log:         logger.With("component", "ledger"),
	}, nil
}

type WatchAdResult struct {
	NewBalance   decimal.Decimal `json:"new_balance"`
	ActualReward decimal.Decimal `json:"actual_reward"`
	NewAdsCount  int             `json:"new_ads_count"`
}

type SpinResult struct {
	Prize         int64           `json:"prize"`
	PrizeIndex    int             `json:"prize_index"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	NewSpinsCount int             `json:"new_spins_count"`
}

type MissionResult struct {
	NewBalance         decimal.Decimal `json:"new_balance"`
	ActualReward       decimal.Decimal `json:"actual_reward"`
	Message            string          `json:"message"`
	CompletedMissionID int             `json:"completed_mission_id"`
}

type WithdrawResult struct {
	NewBalance decimal.Decimal `json:"new_balance"`
	Message    string          `json:"message"`
}

// mutation is applied to a freshly loaded, reset-corrected user. It returns
// whether the user must be written even if no quota was reset.
type mutation func(u *domain.User, now time.Time) (bool, error)

// persistFunc writes u if its stored version still equals expected.
type persistFunc func(ctx context.Context, u *domain.User, expected int64) error

// apply runs the shared load, ban, rate limit, reset, mutate and persist
// steps under an optimistic-concurrency retry loop.
func (l *Ledger) apply(ctx context.Context, userID int64, fn mutation, persist persistFunc) (*domain.User, error) {
	if persist == nil {
		persist = l.store.UpdateUser
	}
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		u, err := l.store.GetUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, internalErr("load user", err)
		}
		if u.IsBanned {
			return nil, ErrBanned
		}

		now := l.now().UTC()
		if err := l.limiter.CheckUser(u, now); err != nil {
			return nil, err
		}

		expected := u.Version
		reset := l.quotas.Apply(u, now)
		write, err := fn(u, now)
		if err != nil {
			return nil, err
		}
		if !write && len(reset) == 0 {
			return u, nil
		}

		err = persist(ctx, u, expected)
		if errors.Is(err, store.ErrStale) {
			l.log.Debug("user changed underneath, retrying", "user_id", userID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, internalErr("save user", err)
		}
		countResets(reset)
		return u, nil
	}
	return nil, internalErr("save user", errContended)
}

// WatchAd credits the fixed ad reward.
func (l *Ledger) WatchAd(ctx context.Context, userID int64, token string) (*WatchAdResult, error) {
	if err := l.tokens.Redeem(ctx, userID, token, domain.ActionWatchAd); err != nil {
		return nil, err
	}

	reward := l.eco.RewardPerAd
	u, err := l.apply(ctx, userID, func(u *domain.User, now time.Time) (bool, error) {
		if u.AdsWatchedToday >= l.eco.DailyMaxAds {
			return false, fmt.Errorf("%w: daily ad limit (%d) reached", ErrQuotaExceeded, l.eco.DailyMaxAds)
		}
		u.Balance = u.Balance.Add(reward)
		u.AdsWatchedToday++
		if u.AdsWatchedToday >= l.eco.DailyMaxAds {
			u.AdsLimitReachedAt = &now
		}
		u.LastActivity = &now
		return true, nil
	}, nil)
	if err != nil {
		return nil, err
	}

	l.granted(domain.ActionWatchAd, reward)
	l.triggerCommission(u, reward)
	return &WatchAdResult{
		NewBalance:   u.Balance,
		ActualReward: reward,
		NewAdsCount:  u.AdsWatchedToday,
	}, nil
}

// PreSpin is the advisory gate shown before the spin ad. It changes nothing
// except a due quota reset.
func (l *Ledger) PreSpin(ctx context.Context, userID int64, token string) error {
	if err := l.tokens.Redeem(ctx, userID, token, domain.ActionPreSpin); err != nil {
		return err
	}

	_, err := l.apply(ctx, userID, func(u *domain.User, _ time.Time) (bool, error) {
		if u.SpinsToday >= l.eco.DailyMaxSpins {
			return false, fmt.Errorf("%w: daily spin limit (%d) reached", ErrQuotaExceeded, l.eco.DailyMaxSpins)
		}
		return false, nil
	}, nil)
	return err
}

// SpinResult picks a wheel sector and credits its prize.
func (l *Ledger) SpinResult(ctx context.Context, userID int64, token string) (*SpinResult, error) {
	if err := l.tokens.Redeem(ctx, userID, token, domain.ActionSpinResult); err != nil {
		return nil, err
	}

	// Spin once so retries on a lost race do not re-roll.
	outcome, err := l.wheel.Spin()
	if err != nil {
		return nil, internalErr("spin wheel", err)
	}
	prize := decimal.NewFromInt(outcome.Prize)

	u, err := l.apply(ctx, userID, func(u *domain.User, now time.Time) (bool, error) {
		if u.SpinsToday >= l.eco.DailyMaxSpins {
			return false, fmt.Errorf("%w: daily spin limit (%d) reached", ErrQuotaExceeded, l.eco.DailyMaxSpins)
		}
		u.Balance = u.Balance.Add(prize)
		u.SpinsToday++
		if u.SpinsToday >= l.eco.DailyMaxSpins {
			u.SpinsLimitReachedAt = &now
		}
		u.LastActivity = &now
		return true, nil
	}, nil)
	if err != nil {
		return nil, err
	}

	l.granted(domain.ActionSpinResult, prize)
	l.triggerCommission(u, prize)
	return &SpinResult{
		Prize:         outcome.Prize,
		PrizeIndex:    outcome.Index,
		NewBalance:    u.Balance,
		NewSpinsCount: u.SpinsToday,
	}, nil
}

// CompleteMission claims a catalog mission once. Unknown missions are
// rejected before the token is spent.
func (l *Ledger) CompleteMission(ctx context.Context, userID int64, token string, missionID int) (*MissionResult, error) {
	mission, ok := l.eco.Missions.Find(missionID)
	if !ok {
		return nil, ErrMissionNotFound
	}
	if err := l.tokens.Redeem(ctx, userID, token, domain.ActionCompleteTask); err != nil {
		return nil, err
	}

	membershipChecked := false
	u, err := l.apply(ctx, userID, func(u *domain.User, now time.Time) (bool, error) {
		if u.HasCompletedMission(mission.ID) {
			return false, ErrMissionCompleted
		}
		if mission.Category == domain.MissionChannelJoin && !membershipChecked {
			if err := l.checkMembership(ctx, mission.Channel, u.ID); err != nil {
				return false, err
			}
			membershipChecked = true
		}
		u.Balance = u.Balance.Add(mission.Reward)
		u.MarkMissionCompleted(mission.ID)
		u.LastActivity = &now
		return true, nil
	}, nil)
	if err != nil {
		return nil, err
	}

	l.granted(domain.ActionCompleteTask, mission.Reward)
	return &MissionResult{
		NewBalance:         u.Balance,
		ActualReward:       mission.Reward,
		Message:            fmt.Sprintf("Mission ID %d completed successfully.", mission.ID),
		CompletedMissionID: mission.ID,
	}, nil
}

func (l *Ledger) checkMembership(ctx context.Context, channel string, userID int64) error {
	if l.membership == nil {
		return ErrNotMember
	}
	ok, err := l.membership.IsMember(ctx, channel, userID)
	if err != nil {
		// Bot API failures count as not joined.
		l.log.Warn("membership check failed", "user_id", userID, "channel", channel, "error", err)
		return ErrNotMember
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

// Withdraw deducts amount and records a pending withdrawal in one write.
func (l *Ledger) Withdraw(ctx context.Context, userID int64, token, amount, binanceID string) (*WithdrawResult, error) {
	if err := l.tokens.Redeem(ctx, userID, token, domain.ActionWithdraw); err != nil {
		return nil, err
	}

	var w *domain.Withdrawal
	u, err := l.apply(ctx, userID, func(u *domain.User, now time.Time) (bool, error) {
		value, err := decimal.NewFromString(amount)
		if err != nil || !value.IsPositive() {
			return false, ErrInvalidAmount
		}
		if value.GreaterThan(u.Balance) {
			return false, ErrInsufficientBalance
		}
		if value.LessThan(l.eco.MinWithdrawal) {
			return false, fmt.Errorf("%w (%s)", ErrBelowMinimum, l.eco.MinWithdrawal.String())
		}
		if binanceID == "" {
			return false, fmt.Errorf("%w: missing binanceId", ErrInvalidRequest)
		}
		u.Balance = u.Balance.Sub(value)
		u.LastActivity = &now
		w = &domain.Withdrawal{
			UserID:    u.ID,
			Amount:    value,
			BinanceID: binanceID,
			Status:    domain.WithdrawalStatusPending,
			CreatedAt: now,
		}
		return true, nil
	}, func(ctx context.Context, u *domain.User, expected int64) error {
		return l.store.CreateWithdrawal(ctx, u, expected, w)
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("withdrawal requested", "user_id", userID, "amount", w.Amount.String(), "withdrawal_id", w.ID)
	return &WithdrawResult{
		NewBalance: u.Balance,
		Message:    "Withdrawal request submitted successfully.",
	}, nil
}

func (l *Ledger) granted(kind domain.ActionKind, amount decimal.Decimal) {
	RewardsGranted.WithLabelValues(string(kind)).Inc()
	RewardAmount.WithLabelValues(string(kind)).Add(amount.InexactFloat64())
}

func (l *Ledger) triggerCommission(u *domain.User, reward decimal.Decimal) {
	if u.ReferredBy == nil || l.commissions == nil {
		return
	}
	l.commissions.Dispatch(*u.ReferredBy, u.ID, reward)
}
