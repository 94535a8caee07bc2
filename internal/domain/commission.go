package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commission is an append-only record of a referral payout.
type Commission struct {
	ID           int64           `db:"id" json:"id,omitempty"`
	ReferrerID   int64           `db:"referrer_id" json:"referrer_id"`
	RefereeID    int64           `db:"referee_id" json:"referee_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	SourceReward decimal.Decimal `db:"source_reward" json:"source_reward"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
