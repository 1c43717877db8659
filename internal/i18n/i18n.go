package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/ai-relay-tgbot-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	languages       []string
	matcher         language.Matcher
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.Russian)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	tags := make([]language.Tag, 0, len(cfg.Languages))
	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", lang, err)
		}
		if _, err := bundle.LoadMessageFileFS(localeFS, fmt.Sprintf("locales/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
		tags = append(tags, tag)
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	if _, ok := localizers[cfg.DefaultLanguage]; !ok {
		return nil, fmt.Errorf("default language %q is not among the loaded languages", cfg.DefaultLanguage)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		languages:       cfg.Languages,
		matcher:         language.NewMatcher(tags),
		localizers:      localizers,
	}, nil
}

// Resolve maps a client language code such as "en-US" to a loaded language
func (l *Localizer) Resolve(code string) string {
	if code == "" {
		return l.defaultLanguage
	}
	tag, err := language.Parse(code)
	if err != nil {
		return l.defaultLanguage
	}
	_, idx, conf := l.matcher.Match(tag)
	if conf == language.No {
		return l.defaultLanguage
	}
	return l.languages[idx]
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[l.Resolve(lang)]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgWelcome         = "welcome"
	MsgHelp            = "help"
	MsgAbout           = "about"
	MsgRateLimitMinute = "rate_limit_minute"
	MsgRateLimitDay    = "rate_limit_day"
	MsgError           = "error"
	MsgEmptyResponse   = "empty_response"
	MsgUnknownCommand  = "unknown_command"
	MsgQuota           = "quota"
	MsgStats           = "stats"
	MsgReplyHeader     = "reply_header"
	MsgReasoningHeader = "reasoning_header"
	MsgAnswerHeader    = "answer_header"
)
