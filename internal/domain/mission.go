package domain

import "github.com/shopspring/decimal"

type MissionCategory string

const (
	MissionChannelJoin  MissionCategory = "channel_join"
	MissionExternalLink MissionCategory = "external_link"
)

// Mission is a static catalog entry.
type Mission struct {
	ID       int             `json:"id"`
	NameAr   string          `json:"name_ar"`
	NameEn   string          `json:"name_en"`
	Category MissionCategory `json:"type"`
	Link     string          `json:"link"`
	Reward   decimal.Decimal `json:"reward"`
	// Channel is the chat checked for membership on channel_join missions.
	Channel string `json:"-"`
}

// MissionStatus is a catalog entry annotated for a particular user.
type MissionStatus struct {
	ID          int             `json:"id"`
	NameAr      string          `json:"name_ar"`
	Link        string          `json:"link"`
	Reward      decimal.Decimal `json:"reward"`
	Category    MissionCategory `json:"type"`
	IsCompleted bool            `json:"is_completed"`
}

// MissionCatalog is the immutable list of available missions.
type MissionCatalog []Mission

func (c MissionCatalog) Find(id int) (Mission, bool) {
	for _, m := range c {
		if m.ID == id {
			return m, true
		}
	}
	return Mission{}, false
}

// StatusFor annotates the catalog with the user's completion state.
func (c MissionCatalog) StatusFor(u *User) []MissionStatus {
	out := make([]MissionStatus, 0, len(c))
	for _, m := range c {
		out = append(out, MissionStatus{
			ID:          m.ID,
			NameAr:      m.NameAr,
			Link:        m.Link,
			Reward:      m.Reward,
			Category:    m.Category,
			IsCompleted: u.HasCompletedMission(m.ID),
		})
	}
	return out
}
