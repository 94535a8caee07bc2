package handlers

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexInt accepts 123 or "123"; Telegram clients send ids both ways.
type flexInt struct {
	Value int64
	Set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			return nil
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	f.Value, f.Set = n, true
	return nil
}

func (f flexInt) ptr() *int64 {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

// flexNumber keeps a numeric field as text so it can be parsed as a decimal
// without going through float64.
type flexNumber string

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexNumber(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexNumber(n.String())
	return nil
}

// apiRequest is the union of every request type's fields.
type apiRequest struct {
	Type     string  `json:"type"`
	InitData string  `json:"initData"`
	UserID   flexInt `json:"user_id"`

	ActionID   string `json:"action_id"`
	ActionType string `json:"action_type"`

	RefBy     flexInt    `json:"ref_by"`
	MissionID flexInt    `json:"mission_id"`
	Amount    flexNumber `json:"amount"`
	BinanceID string     `json:"binanceId"`

	ReferrerID   flexInt    `json:"referrer_id"`
	RefereeID    flexInt    `json:"referee_id"`
	SourceReward flexNumber `json:"source_reward"`
}
