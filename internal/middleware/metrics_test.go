package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsRouter(t *testing.T) {
	m := NewMetrics()
	m.RecordMessageReceived("private")
	m.RecordRateLimitDenied(DeniedMinute)
	m.RecordAIRequest("test-model", "success", 150*time.Millisecond)

	srv := httptest.NewServer(NewMetricsRouter("/metrics"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Fatalf("health = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	for _, want := range []string{
		`relay_bot_messages_received_total{chat_type="private"}`,
		`relay_bot_rate_limit_denied_total{window="denied_minute"}`,
		`relay_bot_ai_requests_total{model="test-model",status="success"}`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
