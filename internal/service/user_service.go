package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shibads/internal/config"
	"shibads/internal/domain"
	"shibads/internal/logger"
	"shibads/internal/store"

	"github.com/shopspring/decimal"
)

const withdrawalHistoryLimit = 50

// UserService owns registration and the profile read path.
type UserService struct {
	store    store.Store
	quotas   *QuotaResetter
	missions domain.MissionCatalog
	now      func() time.Time
	log      *slog.Logger
}

func NewUserService(st store.Store, quotas *QuotaResetter, eco config.Economy) *UserService {
	return &UserService{
		store:    st,
		quotas:   quotas,
		missions: eco.Missions,
		now:      time.Now,
		log:      logger.With("component", "users"),
	}
}

type WithdrawalEntry struct {
	Amount    decimal.Decimal         `json:"amount"`
	Status    domain.WithdrawalStatus `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
}

// UserData is the getUserData payload.
type UserData struct {
	*domain.User
	ReferralsCount    int                    `json:"referrals_count"`
	WithdrawalHistory []WithdrawalEntry      `json:"withdrawal_history"`
	MissionsStatus    []domain.MissionStatus `json:"missions_status"`
}

// Register creates a user with zeroed counters. refBy is dropped when it
// points at the user itself or at an unknown user.
func (s *UserService) Register(ctx context.Context, userID int64, refBy *int64) error {
	existing, err := s.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		if existing.IsBanned {
			return ErrBanned
		}
		return ErrAlreadyRegistered
	case !errors.Is(err, store.ErrNotFound):
		return internalErr("load user", err)
	}

	if refBy != nil {
		if *refBy == userID {
			refBy = nil
		} else if _, err := s.store.GetUser(ctx, *refBy); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return internalErr("load referrer", err)
			}
			s.log.Info("ignoring unknown referrer", "user_id", userID, "ref_by", *refBy)
			refBy = nil
		}
	}

	now := s.now().UTC()
	u := &domain.User{
		ID:                userID,
		Balance:           decimal.Zero,
		ReferredBy:        refBy,
		MissionsCompleted: []int{},
		CreatedAt:         now,
		LastActivity:      &now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrAlreadyRegistered
		}
		return internalErr("create user", err)
	}

	s.log.Info("user registered", "user_id", userID, "ref_by", refBy)
	return nil
}

// GetUserData applies any due quota reset, refreshes last_activity for
// users who are not banned and assembles the profile. Unknown users yield
// ErrUserNotFound.
func (s *UserService) GetUserData(ctx context.Context, userID int64) (*UserData, error) {
	var u *domain.User
	for attempt := 0; ; attempt++ {
		if attempt == maxWriteAttempts {
			return nil, internalErr("touch user", errContended)
		}
		cur, err := s.store.GetUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, internalErr("load user", err)
		}

		now := s.now().UTC()
		expected := cur.Version
		reset := s.quotas.Apply(cur, now)
		if !cur.IsBanned {
			cur.LastActivity = &now
		} else if len(reset) == 0 {
			u = cur
			break
		}

		err = s.store.UpdateUser(ctx, cur, expected)
		if errors.Is(err, store.ErrStale) {
			continue
		}
		if err != nil {
			return nil, internalErr("touch user", err)
		}
		countResets(reset)
		u = cur
		break
	}

	referrals, err := s.store.CountReferrals(ctx, userID)
	if err != nil {
		return nil, internalErr("count referrals", err)
	}
	withdrawals, err := s.store.ListWithdrawals(ctx, userID, withdrawalHistoryLimit)
	if err != nil {
		return nil, internalErr("list withdrawals", err)
	}

	history := make([]WithdrawalEntry, 0, len(withdrawals))
	for _, w := range withdrawals {
		history = append(history, WithdrawalEntry{Amount: w.Amount, Status: w.Status, CreatedAt: w.CreatedAt})
	}

	return &UserData{
		User:              u,
		ReferralsCount:    referrals,
		WithdrawalHistory: history,
		MissionsStatus:    s.missions.StatusFor(u),
	}, nil
}
