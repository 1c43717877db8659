package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ai-relay-tgbot-go/internal/config"
	"github.com/ai-relay-tgbot-go/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	fieldTotalMessages = "total_messages"
	fieldLastActive    = "last_active"
)

// RedisStorage implements storage using Redis hashes
type RedisStorage struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStorage(cfg *config.RedisConfig, logger *logrus.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{
		client: client,
		logger: logger,
	}, nil
}

func (r *RedisStorage) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	fields, err := r.client.HGetAll(ctx, statsKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	stats := &models.UserStats{UserID: userID}
	if v, ok := fields[fieldTotalMessages]; ok {
		if stats.TotalMessages, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid %s for user %d: %w", fieldTotalMessages, userID, err)
		}
	}
	if v, ok := fields[fieldLastActive]; ok {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s for user %d: %w", fieldLastActive, userID, err)
		}
		stats.LastActive = time.Unix(sec, 0)
	}

	return stats, nil
}

func (r *RedisStorage) IncrementUserStats(ctx context.Context, userID int64, at time.Time) error {
	key := statsKey(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldTotalMessages, 1)
		pipe.HSet(ctx, key, fieldLastActive, at.Unix())
		return nil
	})
	return err
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
