package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Message metrics
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bot_messages_received_total",
		Help: "Total number of messages received",
	}, []string{"chat_type"})

	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bot_messages_processed_total",
		Help: "Total number of messages processed",
	}, []string{"status"})

	// Command metrics
	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	// Completion API metrics
	aiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_bot_ai_request_duration_seconds",
		Help:    "Duration of completion API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	aiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bot_ai_requests_total",
		Help: "Total number of completion API requests",
	}, []string{"model", "status"})

	// Rate limit metrics
	rateLimitDenied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bot_rate_limit_denied_total",
		Help: "Total number of requests denied by the rate limiter",
	}, []string{"window"})

	// Outbound metrics
	chunksSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bot_chunks_sent_total",
		Help: "Total number of response chunks sent to the transport",
	}, []string{"status"})

	// Storage metrics
	storageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bot_storage_operations_total",
		Help: "Total number of storage operations",
	}, []string{"operation", "status"})

	storageOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_bot_storage_operation_duration_seconds",
		Help:    "Duration of storage operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// Users with a live rate limit record
	activeUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_bot_active_users",
		Help: "Number of recently active users",
	})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageReceived records a received message
func (m *Metrics) RecordMessageReceived(chatType string) {
	messagesReceived.WithLabelValues(chatType).Inc()
}

// RecordMessageProcessed records a processed message
func (m *Metrics) RecordMessageProcessed(status string) {
	messagesProcessed.WithLabelValues(status).Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordAIRequest records a completion API request
func (m *Metrics) RecordAIRequest(model, status string, duration time.Duration) {
	aiRequestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	aiRequestsTotal.WithLabelValues(model, status).Inc()
}

// RecordRateLimitDenied records a denied admission
func (m *Metrics) RecordRateLimitDenied(d Decision) {
	rateLimitDenied.WithLabelValues(d.String()).Inc()
}

// RecordChunkSent records one outbound chunk
func (m *Metrics) RecordChunkSent(status string) {
	chunksSent.WithLabelValues(status).Inc()
}

// RecordStorageOperation records a storage operation
func (m *Metrics) RecordStorageOperation(operation, status string, duration time.Duration) {
	storageOperations.WithLabelValues(operation, status).Inc()
	storageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetActiveUsers sets the number of active users
func (m *Metrics) SetActiveUsers(count float64) {
	activeUsers.Set(count)
}

// NewMetricsServer builds the metrics HTTP server
func NewMetricsServer(port int, path string) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewMetricsRouter(path),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// NewMetricsRouter serves Prometheus metrics at path plus a /health check
func NewMetricsRouter(path string) http.Handler {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return router
}
