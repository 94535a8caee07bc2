package telegram

import (
	"context"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MembershipChecker reports whether a user belongs to a channel.
type MembershipChecker interface {
	IsMember(ctx context.Context, channel string, userID int64) (bool, error)
}

// memberStatuses are the getChatMember statuses that count as joined.
var memberStatuses = map[string]bool{
	"member":        true,
	"administrator": true,
	"creator":       true,
}

// BotMembership asks the Bot API via getChatMember.
type BotMembership struct {
	api *tgbotapi.BotAPI
}

// NewBotMembership builds the Bot API client without the getMe round trip
// that tgbotapi.NewBotAPI performs, so startup does not depend on Telegram.
func NewBotMembership(botToken, endpoint string, timeout time.Duration) *BotMembership {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api := &tgbotapi.BotAPI{
		Token:  botToken,
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}
	api.SetAPIEndpoint(endpoint)
	return &BotMembership{api: api}
}

func (m *BotMembership) IsMember(ctx context.Context, channel string, userID int64) (bool, error) {
	type result struct {
		member tgbotapi.ChatMember
		err    error
	}
	done := make(chan result, 1)
	go func() {
		member, err := m.api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
				SuperGroupUsername: channel,
				UserID:             userID,
			},
		})
		done <- result{member: member, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return false, r.err
		}
		return memberStatuses[r.member.Status], nil
	}
}
