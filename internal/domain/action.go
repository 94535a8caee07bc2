package domain

import "time"

// ActionKind names the operation an action token is bound to.
type ActionKind string

const (
	ActionWatchAd      ActionKind = "watchAd"
	ActionPreSpin      ActionKind = "preSpin"
	ActionSpinResult   ActionKind = "spinResult"
	ActionWithdraw     ActionKind = "withdraw"
	ActionCompleteTask ActionKind = "completeTask"
)

// ActionKinds lists every kind a client may request a token for.
var ActionKinds = []ActionKind{
	ActionWatchAd,
	ActionPreSpin,
	ActionSpinResult,
	ActionWithdraw,
	ActionCompleteTask,
}

// ParseActionKind validates a client supplied action type.
func ParseActionKind(s string) (ActionKind, bool) {
	for _, k := range ActionKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// ActionToken is a single-use credential binding a user to one operation.
type ActionToken struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Token     string     `db:"action_id" json:"action_id"`
	Kind      ActionKind `db:"action_type" json:"action_type"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
