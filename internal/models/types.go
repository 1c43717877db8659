package models

import (
	"time"
)

// Chat roles understood by the completion API
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message represents a chat message sent to the completion API
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserStats represents per-user relay statistics
type UserStats struct {
	UserID        int64
	TotalMessages int64
	LastActive    time.Time
}
