package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"BOT_TOKEN", "AI_BASE_URL", "AI_API_KEY", "AI_MODEL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
bot:
  token: "file-token"
model:
  api_key: "key"
  timeout: 30s
rate_limit:
  max_per_minute: 5
  max_per_day: 50
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Bot.Token != "file-token" {
		t.Fatalf("token = %q", cfg.Bot.Token)
	}
	if cfg.Model.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v", cfg.Model.Timeout)
	}
	if cfg.RateLimit.MaxPerMinute != 5 || cfg.RateLimit.MaxPerDay != 50 {
		t.Fatalf("rate limits = %+v", cfg.RateLimit)
	}
	if cfg.RateLimit.MinuteWindow() != time.Minute {
		t.Fatalf("minute window = %v", cfg.RateLimit.MinuteWindow())
	}
	if cfg.Bot.MaxMessageLength != 4096 {
		t.Fatalf("max message length = %d", cfg.Bot.MaxMessageLength)
	}
	if cfg.Model.ID != "deepseek/deepseek-r1:free" {
		t.Fatalf("model id = %q", cfg.Model.ID)
	}
	if cfg.Storage.Type != "memory" {
		t.Fatalf("storage type = %q", cfg.Storage.Type)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
bot:
  token: "file-token"
model:
  api_key: "file-key"
`)
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("AI_MODEL", "openai/gpt-4o-mini")
	t.Setenv("AI_API_KEY", "env-key")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Bot.Token != "env-token" {
		t.Fatalf("token = %q, want env-token", cfg.Bot.Token)
	}
	if cfg.Model.ID != "openai/gpt-4o-mini" {
		t.Fatalf("model id = %q", cfg.Model.ID)
	}
	if cfg.Model.APIKey != "env-key" {
		t.Fatalf("api key = %q", cfg.Model.APIKey)
	}
}

func TestLoadConfig_MissingFileUsesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("AI_API_KEY", "env-key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Bot.Token != "env-token" {
		t.Fatalf("token = %q", cfg.Bot.Token)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing_token",
			body: "model:\n  api_key: k\n",
			want: "bot token is required",
		},
		{
			name: "missing_api_key",
			body: "bot:\n  token: t\n",
			want: "api key is required",
		},
		{
			name: "zero_minute_limit",
			body: "bot:\n  token: t\nmodel:\n  api_key: k\nrate_limit:\n  max_per_minute: 0\n",
			want: "rate limits must be positive",
		},
		{
			name: "zero_message_length",
			body: "bot:\n  token: t\n  max_message_length: 0\nmodel:\n  api_key: k\n",
			want: "max message length must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
		})
	}
}
