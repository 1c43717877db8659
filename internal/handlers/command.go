package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/ai-relay-tgbot-go/internal/i18n"
	"github.com/ai-relay-tgbot-go/internal/middleware"
	"github.com/ai-relay-tgbot-go/pkg/logger"
	"github.com/ai-relay-tgbot-go/pkg/markdown"
	"github.com/sirupsen/logrus"
)

// CommandHandler handles telegram commands
type CommandHandler struct {
	transport   Transport
	rateLimiter middleware.RateLimiter
	stats       StatsStore
	localizer   *i18n.Localizer
	logger      *logrus.Logger
	modelName   string
	version     string
	now         func() time.Time
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	transport Transport,
	rateLimiter middleware.RateLimiter,
	stats StatsStore,
	localizer *i18n.Localizer,
	logger *logrus.Logger,
	modelName string,
	version string,
) *CommandHandler {
	return &CommandHandler{
		transport:   transport,
		rateLimiter: rateLimiter,
		stats:       stats,
		localizer:   localizer,
		logger:      logger,
		modelName:   modelName,
		version:     version,
		now:         time.Now,
	}
}

// HandleCommand processes telegram commands
func (h *CommandHandler) HandleCommand(ctx context.Context, in Inbound, command string) error {
	var text string
	switch command {
	case "start":
		text = h.get(in, i18n.MsgWelcome, map[string]interface{}{"Name": in.DisplayName})
	case "help":
		text = h.get(in, i18n.MsgHelp, nil)
	case "about":
		text = h.get(in, i18n.MsgAbout, map[string]interface{}{
			"Model":   h.modelName,
			"Version": h.version,
		})
	case "quota":
		quota := h.rateLimiter.Remaining(in.UserID, h.now())
		text = h.get(in, i18n.MsgQuota, map[string]interface{}{
			"Minute": quota.Minute,
			"Day":    quota.Day,
		})
	case "stats":
		return h.handleStats(ctx, in)
	default:
		text = h.get(in, i18n.MsgUnknownCommand, nil)
	}

	if err := h.transport.SendText(ctx, in.ChatID, text); err != nil {
		return fmt.Errorf("%w: /%s: %w", ErrTransportSend, command, err)
	}
	return nil
}

func (h *CommandHandler) handleStats(ctx context.Context, in Inbound) error {
	var total int64
	if h.stats != nil {
		stats, err := h.stats.GetUserStats(ctx, in.UserID)
		if err != nil {
			logger.WithContext(h.logger, in.ChatID, in.UserID).WithError(err).Error("Failed to load user stats")
			return h.transport.SendText(ctx, in.ChatID, markdown.Bold(h.localizer.Get(in.LanguageCode, i18n.MsgError, nil)))
		}
		total = stats.TotalMessages
	}

	text := h.get(in, i18n.MsgStats, map[string]interface{}{"Messages": total})
	if err := h.transport.SendText(ctx, in.ChatID, text); err != nil {
		return fmt.Errorf("%w: /stats: %w", ErrTransportSend, err)
	}
	return nil
}

// get returns a localized text escaped for MarkdownV2
func (h *CommandHandler) get(in Inbound, id string, data map[string]interface{}) string {
	return markdown.EscapeMarkdownV2(h.localizer.Get(in.LanguageCode, id, data))
}
