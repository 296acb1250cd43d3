package dto

import (
	"time"

	"github.com/google/uuid"
)

type RegisterDocumentRequest struct {
	Title          string `json:"title" validate:"required,max=255"`
	ProviderFileId string `json:"provider_file_id" validate:"required"`
}

type DocumentResponse struct {
	Id             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	ProviderFileId string     `json:"provider_file_id"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
}

type SetDocumentActiveRequest struct {
	DocumentId uuid.UUID `json:"document_id" validate:"required"`
	IsActive   bool      `json:"is_active"`
}

// PublishMasterSyncMessage asks the background consumer to reconcile the
// master index against the active document set.
type PublishMasterSyncMessage struct {
	Reason string `json:"reason"`
}

type ResyncMasterResponse struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}
