package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ai-relay-tgbot-go/internal/config"
	"github.com/ai-relay-tgbot-go/internal/middleware"
	"github.com/ai-relay-tgbot-go/internal/models"
	"github.com/sirupsen/logrus"
)

// Storage interface defines storage operations
type Storage interface {
	GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error)
	IncrementUserStats(ctx context.Context, userID int64, at time.Time) error
	Close() error
}

// Manager manages different storage backends
type Manager struct {
	storage Storage
	metrics *middleware.Metrics
	logger  *logrus.Logger
}

// NewManager creates a new storage manager
func NewManager(cfg *config.StorageConfig, metrics *middleware.Metrics, logger *logrus.Logger) (*Manager, error) {
	var storage Storage

	switch cfg.Type {
	case "redis":
		redisStorage, err := NewRedisStorage(&cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		storage = redisStorage
	case "sqlite":
		sqliteStorage, err := NewSQLiteStorage(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, err
		}
		storage = sqliteStorage
	case "memory", "":
		storage = NewMemoryStorage(logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	logger.WithField("type", cfg.Type).Info("Storage initialized")

	return NewManagerWithStorage(storage, metrics, logger), nil
}

// NewManagerWithStorage wraps an already constructed backend
func NewManagerWithStorage(storage Storage, metrics *middleware.Metrics, logger *logrus.Logger) *Manager {
	return &Manager{
		storage: storage,
		metrics: metrics,
		logger:  logger,
	}
}

func (m *Manager) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	start := time.Now()
	stats, err := m.storage.GetUserStats(ctx, userID)
	m.record("get_user_stats", err, start)
	return stats, err
}

func (m *Manager) IncrementUserStats(ctx context.Context, userID int64, at time.Time) error {
	start := time.Now()
	err := m.storage.IncrementUserStats(ctx, userID, at)
	m.record("increment_user_stats", err, start)
	return err
}

func (m *Manager) Close() error {
	return m.storage.Close()
}

func (m *Manager) record(operation string, err error, start time.Time) {
	if m.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordStorageOperation(operation, status, time.Since(start))
}
