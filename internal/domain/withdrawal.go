package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus represents withdrawal processing status. Only pending is
// written by this service; the rest are set by payout tooling.
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
)

// Withdrawal is a payout request; the balance is deducted when it is created.
type Withdrawal struct {
	ID        int64            `db:"id" json:"id,omitempty"`
	UserID    int64            `db:"user_id" json:"user_id"`
	Amount    decimal.Decimal  `db:"amount" json:"amount"`
	BinanceID string           `db:"binance_id" json:"binance_id,omitempty"`
	Status    WithdrawalStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
