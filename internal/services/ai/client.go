package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ai-relay-tgbot-go/internal/config"
	"github.com/ai-relay-tgbot-go/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUpstreamUnavailable covers network failures, timeouts and non-2xx replies.
	ErrUpstreamUnavailable = errors.New("completion api unavailable")
	// ErrMalformedResponse is returned when a reply lacks choices or textual content.
	ErrMalformedResponse = errors.New("malformed completion response")
)

// maxResponseBytes bounds how much of a reply body is read.
const maxResponseBytes = 8 << 20

// Service represents the completion API
type Service interface {
	Complete(ctx context.Context, messages []models.Message) (*RawCompletion, error)
	Model() string
}

// RawCompletion is the decoded, unvalidated reply of the completion API.
type RawCompletion struct {
	Choices []RawChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type RawChoice struct {
	Message *RawMessage `json:"message"`
}

type RawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Text returns the content of the first choice, or ErrMalformedResponse
// when any part of that path is missing, not a string, or blank.
func (c *RawCompletion) Text() (string, error) {
	if c == nil || len(c.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	msg := c.Choices[0].Message
	if msg == nil {
		return "", fmt.Errorf("%w: first choice has no message", ErrMalformedResponse)
	}
	if len(msg.Content) == 0 || string(msg.Content) == "null" {
		return "", fmt.Errorf("%w: message has no content", ErrMalformedResponse)
	}

	var text string
	if err := json.Unmarshal(msg.Content, &text); err != nil {
		return "", fmt.Errorf("%w: content is not text", ErrMalformedResponse)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: content is empty", ErrMalformedResponse)
	}
	return text, nil
}

// Client calls an OpenAI-compatible chat completions endpoint
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
	logger      *logrus.Logger
}

// NewClient creates a new completion client
func NewClient(cfg *config.ModelConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	logger.WithFields(logrus.Fields{
		"baseURL": cfg.BaseURL,
		"model":   cfg.ID,
		"timeout": timeout,
	}).Info("Completion client initialized")

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.ID,
		temperature: cfg.Temperature,
		timeout:     timeout,
		httpClient:  &http.Client{},
		logger:      logger,
	}
}

// Model returns the model identifier requests are sent for
func (c *Client) Model() string {
	return c.model
}

// Complete performs a single completion request. There is no retry; callers
// report failures to the user instead.
func (c *Client) Complete(ctx context.Context, messages []models.Message) (*RawCompletion, error) {
	reqBody := map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"temperature": c.temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	c.logger.WithFields(logrus.Fields{
		"model":    c.model,
		"url":      url,
		"messages": len(messages),
	}).Debug("Sending completion request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrUpstreamUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   truncate(string(body), 512),
		}).Error("Completion request failed")
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var result RawCompletion
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrMalformedResponse, err)
	}

	if result.Error != nil && result.Error.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, result.Error.Message)
	}

	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
