package service

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidInitData     = errors.New("invalid or expired initData")
	ErrForbidden           = errors.New("forbidden")
	ErrUserNotFound        = errors.New("user not found")
	ErrBanned              = errors.New("user is banned")
	ErrAlreadyRegistered   = errors.New("user already registered")
	ErrQuotaExceeded       = errors.New("daily limit reached")
	ErrMissionNotFound     = errors.New("invalid mission id")
	ErrMissionCompleted    = errors.New("mission already completed")
	ErrNotMember           = errors.New("user is not a member of the required telegram channel")
	ErrInvalidAmount       = errors.New("invalid withdrawal amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimum        = errors.New("amount is below the minimum withdrawal")
	ErrTokenMissing        = errors.New("missing action id")
	ErrTokenNotFound       = errors.New("invalid or previously used action id")
	ErrTokenExpired        = errors.New("expired action id, please try the action again")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrInternal            = errors.New("internal error")
)

// RateLimitError reports how long the caller has to wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, please wait %d seconds before the next action", e.Seconds())
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// Seconds is RetryAfter rounded up to whole seconds.
func (e *RateLimitError) Seconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

// internalErr marks a storage or network failure. The cause stays in the
// chain for logging; clients only see ErrInternal.
func internalErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}
