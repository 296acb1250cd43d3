package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is one uploaded file registered with the search provider.
// DedicatedIndexId is the legacy per-document index kept for backward
// compatibility; new retrieval goes through the master or scoped indexes.
type Document struct {
	Id               uuid.UUID
	Title            string
	ProviderFileId   string
	DedicatedIndexId *string
	IsActive         bool
	UserId           uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	DeletedAt        *time.Time
	IsDeleted        bool
}
