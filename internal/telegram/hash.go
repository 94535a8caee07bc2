package telegram

import (
	"encoding/json"
	"errors"
	"net/url"
)

// WebAppUser is the "user" object embedded in Mini App initData.
type WebAppUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
}

// ParseUser extracts the user object from already parsed initData values.
func ParseUser(values url.Values) (*WebAppUser, error) {
	raw := values.Get("user")
	if raw == "" {
		return nil, errors.New("initData has no user")
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, err
	}
	if user.ID <= 0 {
		return nil, errors.New("initData user has no id")
	}

	return &user, nil
}
