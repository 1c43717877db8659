package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ai-relay-tgbot-go/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements storage using a local SQLite file
type SQLiteStorage struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewSQLiteStorage(dbPath string, logger *logrus.Logger) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStorage{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS user_stats (
		user_id INTEGER PRIMARY KEY,
		total_messages INTEGER NOT NULL DEFAULT 0,
		last_active INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT total_messages, last_active FROM user_stats WHERE user_id = ?`, userID)

	stats := &models.UserStats{UserID: userID}
	var lastActive int64
	err := row.Scan(&stats.TotalMessages, &lastActive)
	if err == sql.ErrNoRows {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user stats: %w", err)
	}
	stats.LastActive = time.Unix(lastActive, 0)

	return stats, nil
}

func (s *SQLiteStorage) IncrementUserStats(ctx context.Context, userID int64, at time.Time) error {
	query := `
		INSERT INTO user_stats (user_id, total_messages, last_active)
		VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_messages = total_messages + 1,
			last_active = excluded.last_active`

	if _, err := s.db.ExecContext(ctx, query, userID, at.Unix()); err != nil {
		return fmt.Errorf("increment user stats: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
