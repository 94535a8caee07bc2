package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// LegacyMissionID is tracked through the task_completed flag instead of missions_completed.
const LegacyMissionID = 1

type User struct {
	ID                  int64           `db:"id" json:"id"`
	Balance             decimal.Decimal `db:"balance" json:"balance"`
	AdsWatchedToday     int             `db:"ads_watched_today" json:"ads_watched_today"`
	SpinsToday          int             `db:"spins_today" json:"spins_today"`
	AdsLimitReachedAt   *time.Time      `db:"ads_limit_reached_at" json:"ads_limit_reached_at"`
	SpinsLimitReachedAt *time.Time      `db:"spins_limit_reached_at" json:"spins_limit_reached_at"`
	LastActivity        *time.Time      `db:"last_activity" json:"last_activity"`
	ReferredBy          *int64          `db:"ref_by" json:"ref_by"`
	IsBanned            bool            `db:"is_banned" json:"is_banned"`
	TaskCompleted       bool            `db:"task_completed" json:"task_completed"`
	MissionsCompleted   []int           `db:"missions_completed" json:"missions_completed"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`

	// Version is bumped by the store on every successful update and used
	// as the compare-and-swap guard for read-modify-write cycles.
	Version int64 `db:"version" json:"-"`
}

// HasCompletedMission reports whether the user already claimed the mission.
func (u *User) HasCompletedMission(id int) bool {
	if id == LegacyMissionID {
		return u.TaskCompleted
	}
	return slices.Contains(u.MissionsCompleted, id)
}

// MarkMissionCompleted records the mission as claimed.
func (u *User) MarkMissionCompleted(id int) {
	if id == LegacyMissionID {
		u.TaskCompleted = true
		return
	}
	if !slices.Contains(u.MissionsCompleted, id) {
		u.MissionsCompleted = append(slices.Clone(u.MissionsCompleted), id)
	}
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (u *User) Clone() *User {
	c := *u
	c.AdsLimitReachedAt = cloneTime(u.AdsLimitReachedAt)
	c.SpinsLimitReachedAt = cloneTime(u.SpinsLimitReachedAt)
	c.LastActivity = cloneTime(u.LastActivity)
	if u.ReferredBy != nil {
		ref := *u.ReferredBy
		c.ReferredBy = &ref
	}
	c.MissionsCompleted = slices.Clone(u.MissionsCompleted)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
