package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ai-relay-tgbot-go/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// MemoryStorage implements storage using in-memory cache
type MemoryStorage struct {
	mu        sync.Mutex
	userStats *cache.Cache
	logger    *logrus.Logger
}

func NewMemoryStorage(logger *logrus.Logger) *MemoryStorage {
	return &MemoryStorage{
		userStats: cache.New(cache.NoExpiration, cache.NoExpiration),
		logger:    logger,
	}
}

func (m *MemoryStorage) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if val, found := m.userStats.Get(statsKey(userID)); found {
		stats := *val.(*models.UserStats)
		return &stats, nil
	}
	return &models.UserStats{UserID: userID}, nil
}

func (m *MemoryStorage) IncrementUserStats(ctx context.Context, userID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := statsKey(userID)
	stats := &models.UserStats{UserID: userID}
	if val, found := m.userStats.Get(key); found {
		stats = val.(*models.UserStats)
	}
	stats.TotalMessages++
	stats.LastActive = at
	m.userStats.SetDefault(key, stats)
	return nil
}

func (m *MemoryStorage) Close() error {
	m.userStats.Flush()
	return nil
}

func statsKey(userID int64) string {
	return fmt.Sprintf("user_stats:%d", userID)
}
