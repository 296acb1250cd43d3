package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one append-only conversation turn. TokensUsed and ElapsedMs
// are recorded on assistant turns for latency and cost tracking.
type ChatMessage struct {
	Id            uuid.UUID
	Chat          string
	Role          string
	TokensUsed    int
	ElapsedMs     int64
	ChatSessionId uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
	IsDeleted     bool
}
