package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ai-relay-tgbot-go/internal/config"
	"github.com/ai-relay-tgbot-go/internal/i18n"
	"github.com/ai-relay-tgbot-go/internal/middleware"
	"github.com/ai-relay-tgbot-go/internal/models"
	"github.com/ai-relay-tgbot-go/internal/services/ai"
	"github.com/ai-relay-tgbot-go/internal/services/response"
	"github.com/ai-relay-tgbot-go/pkg/logger"
	"github.com/ai-relay-tgbot-go/pkg/markdown"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrTransportSend is returned when a reply chunk could not be delivered.
var ErrTransportSend = errors.New("transport send failed")

// MessageHandler relays user messages to the completion API
type MessageHandler struct {
	transport    Transport
	aiService    ai.Service
	rateLimiter  middleware.RateLimiter
	processor    *response.Processor
	stats        StatsStore
	localizer    *i18n.Localizer
	metrics      *middleware.Metrics
	logger       *logrus.Logger
	modelName    string
	systemPrompt string
	maxLength    int
	now          func() time.Time
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(
	cfg *config.Config,
	transport Transport,
	aiService ai.Service,
	rateLimiter middleware.RateLimiter,
	processor *response.Processor,
	stats StatsStore,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *MessageHandler {
	return &MessageHandler{
		transport:    transport,
		aiService:    aiService,
		rateLimiter:  rateLimiter,
		processor:    processor,
		stats:        stats,
		localizer:    localizer,
		metrics:      metrics,
		logger:       logger,
		modelName:    cfg.Model.Name(),
		systemPrompt: cfg.Model.SystemPrompt,
		maxLength:    cfg.Bot.MaxMessageLength,
		now:          time.Now,
	}
}

// HandleMessage runs one inbound message through admission, completion,
// formatting and delivery. Every failure is answered with exactly one reply
// to the user; the returned error only describes the outcome to the caller.
func (h *MessageHandler) HandleMessage(ctx context.Context, in Inbound) error {
	log := logger.WithRequest(h.logger, uuid.NewString(), in.ChatID, in.UserID)
	now := h.now()

	decision := h.rateLimiter.Check(in.UserID, now)
	if decision != middleware.Admitted {
		h.metrics.RecordRateLimitDenied(decision)
		log.WithField("decision", decision.String()).Info("Request denied by rate limiter")
		h.reply(ctx, log, in.ChatID, h.denialText(in, decision, now))
		return nil
	}
	log.WithField("length", len([]rune(in.Text))).Info("Request admitted")

	if err := h.transport.SendTyping(ctx, in.ChatID); err != nil {
		log.WithError(err).Debug("Failed to send typing indicator")
	}

	start := time.Now()
	raw, err := h.aiService.Complete(ctx, h.buildMessages(in.Text))
	if errors.Is(err, ai.ErrMalformedResponse) {
		h.metrics.RecordAIRequest(h.aiService.Model(), "malformed", time.Since(start))
		log.WithError(err).Warn("Completion response rejected")
		h.reply(ctx, log, in.ChatID, h.emptyResponseText(in.LanguageCode))
		return err
	}
	if err != nil {
		h.metrics.RecordAIRequest(h.aiService.Model(), "error", time.Since(start))
		log.WithError(err).Error("Completion request failed")
		h.reply(ctx, log, in.ChatID, markdown.Bold(h.localizer.Get(in.LanguageCode, i18n.MsgError, nil)))
		return err
	}

	text, err := raw.Text()
	if err != nil {
		h.metrics.RecordAIRequest(h.aiService.Model(), "malformed", time.Since(start))
		log.WithError(err).Warn("Completion response rejected")
		h.reply(ctx, log, in.ChatID, h.emptyResponseText(in.LanguageCode))
		return err
	}
	h.metrics.RecordAIRequest(h.aiService.Model(), "success", time.Since(start))

	msg := h.processor.Process(text, h.labels(in.LanguageCode))
	if msg.Empty() {
		log.Warn("Completion had no text left after processing")
		h.reply(ctx, log, in.ChatID, h.emptyResponseText(in.LanguageCode))
		return fmt.Errorf("%w: nothing left after processing", ai.ErrMalformedResponse)
	}

	chunks := msg.Chunks(h.maxLength)
	for i, chunk := range chunks {
		if err := h.transport.SendText(ctx, in.ChatID, chunk); err != nil {
			h.metrics.RecordChunkSent("error")
			log.WithError(err).WithFields(logrus.Fields{
				"chunk":  i + 1,
				"chunks": len(chunks),
			}).Error("Failed to send reply chunk")
			h.reply(ctx, log, in.ChatID, markdown.Bold(h.localizer.Get(in.LanguageCode, i18n.MsgError, nil)))
			return fmt.Errorf("%w: chunk %d of %d: %w", ErrTransportSend, i+1, len(chunks), err)
		}
		h.metrics.RecordChunkSent("success")
	}

	log.WithFields(logrus.Fields{
		"thoughts": len(msg.Thoughts),
		"chunks":   len(chunks),
	}).Info("Reply delivered")

	h.recordStats(ctx, log, in.UserID, now)
	return nil
}

func (h *MessageHandler) buildMessages(text string) []models.Message {
	messages := make([]models.Message, 0, 2)
	if h.systemPrompt != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: h.systemPrompt})
	}
	return append(messages, models.Message{Role: models.RoleUser, Content: text})
}

func (h *MessageHandler) labels(lang string) response.Labels {
	return response.Labels{
		Header:    h.localizer.Get(lang, i18n.MsgReplyHeader, map[string]interface{}{"Model": h.modelName}),
		Reasoning: h.localizer.Get(lang, i18n.MsgReasoningHeader, nil),
		Answer:    h.localizer.Get(lang, i18n.MsgAnswerHeader, nil),
	}
}

func (h *MessageHandler) denialText(in Inbound, decision middleware.Decision, now time.Time) string {
	quota := h.rateLimiter.Remaining(in.UserID, now)
	data := map[string]interface{}{"Minute": quota.Minute, "Day": quota.Day}

	id := i18n.MsgRateLimitMinute
	if decision == middleware.DeniedDay {
		id = i18n.MsgRateLimitDay
	}
	return markdown.Bold(h.localizer.Get(in.LanguageCode, id, data))
}

func (h *MessageHandler) emptyResponseText(lang string) string {
	return markdown.Bold(h.localizer.Get(lang, i18n.MsgEmptyResponse, nil))
}

// reply sends a single service message; failures are only logged.
func (h *MessageHandler) reply(ctx context.Context, log *logrus.Entry, chatID int64, text string) {
	if err := h.transport.SendText(ctx, chatID, text); err != nil {
		log.WithError(err).Error("Failed to send reply")
	}
}

func (h *MessageHandler) recordStats(ctx context.Context, log *logrus.Entry, userID int64, at time.Time) {
	if h.stats == nil {
		return
	}
	if err := h.stats.IncrementUserStats(ctx, userID, at); err != nil {
		log.WithError(err).Warn("Failed to update user stats")
	}
}
