package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Chat      string    `json:"chat"`
	CreatedAt time.Time `json:"created_at"`
}

type SendChatRequest struct {
	ChatSessionId uuid.UUID   `json:"chat_session_id"`
	Chat          string      `json:"chat" validate:"required"`
	DocumentIds   []uuid.UUID `json:"document_ids,omitempty" validate:"max=20"`
}

type SendChatResponse struct {
	ChatSessionId      uuid.UUID `json:"chat_session_id"`
	Answer             string    `json:"answer"`
	TokensUsed         int       `json:"tokens_used"`
	ElapsedMs          int64     `json:"elapsed_ms"`
	ResolvedScopeCount int       `json:"resolved_scope_count"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
}
