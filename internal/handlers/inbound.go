package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/ai-relay-tgbot-go/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Transport is the outbound side of the chat connection
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendTyping(ctx context.Context, chatID int64) error
}

// StatsStore keeps per-user relay statistics
type StatsStore interface {
	GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error)
	IncrementUserStats(ctx context.Context, userID int64, at time.Time) error
}

// Inbound is a text message or command received from a user
type Inbound struct {
	UserID       int64
	ChatID       int64
	Text         string
	DisplayName  string
	LanguageCode string
}

// FromTelegram extracts the relay fields of a Bot API message
func FromTelegram(message *tgbotapi.Message) Inbound {
	in := Inbound{
		ChatID: message.Chat.ID,
		Text:   message.Text,
	}
	if message.From != nil {
		in.UserID = message.From.ID
		in.LanguageCode = message.From.LanguageCode
		in.DisplayName = strings.TrimSpace(message.From.FirstName)
		if in.DisplayName == "" {
			in.DisplayName = message.From.UserName
		}
	}
	return in
}
