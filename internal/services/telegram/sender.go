package telegram

import (
	"context"
	"fmt"

	"github.com/ai-relay-tgbot-go/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Sender delivers replies through the Bot API. Every outgoing call waits on a
// shared token bucket so bursts of chunks stay under Telegram's flood limits.
type Sender struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewSender creates a new throttled sender
func NewSender(bot *tgbotapi.BotAPI, cfg *config.BotConfig, logger *logrus.Logger) *Sender {
	limit := rate.Inf
	if cfg.SendRatePerSec > 0 {
		limit = rate.Limit(cfg.SendRatePerSec)
	}
	burst := cfg.SendBurst
	if burst < 1 {
		burst = 1
	}

	return &Sender{
		bot:     bot,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// SendText sends a MarkdownV2 message
func (s *Sender) SendText(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send throttled: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendTyping shows the typing indicator in a chat
func (s *Sender) SendTyping(ctx context.Context, chatID int64) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send throttled: %w", err)
	}

	if _, err := s.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return fmt.Errorf("send chat action: %w", err)
	}
	return nil
}
