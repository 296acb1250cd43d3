package entity

import (
	"time"

	"github.com/google/uuid"
)

// AiConfiguration stores AI behavior settings (key-value pairs)
type AiConfiguration struct {
	Id          uuid.UUID
	Key         string // e.g., "system_instructions"
	Value       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Configuration keys
const (
	AiConfigKeySystemInstructions = "system_instructions"
)
