package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title            string         `gorm:"type:varchar(255);not null"`
	ProviderFileId   string         `gorm:"type:varchar(128);not null;uniqueIndex"`
	DedicatedIndexId *string        `gorm:"type:varchar(128)"`
	IsActive         bool           `gorm:"not null;default:false;index"`
	UserId           uuid.UUID      `gorm:"type:uuid;not null;index"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
