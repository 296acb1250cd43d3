package index

import (
	"context"
)

// Status is the normalized lifecycle state of a provider-managed search index.
type Status string

const (
	StatusCreating       Status = "creating"
	StatusProcessing     Status = "processing"
	StatusReady          Status = "ready"
	StatusPartiallyReady Status = "partially_ready"
	StatusFailed         Status = "failed"
	StatusExpired        Status = "expired"
)

// Member processing states as reported per file.
const (
	MemberStatusInProgress = "in_progress"
	MemberStatusCompleted  = "completed"
	MemberStatusFailed     = "failed"
	MemberStatusCancelled  = "cancelled"
)

// MemberCounts mirrors the provider's aggregate per-file counters.
type MemberCounts struct {
	Total      int
	Completed  int
	Failed     int
	InProgress int
}

// Handle identifies a provider index together with its last observed state.
type Handle struct {
	Id     string
	Name   string
	Status Status
	Counts MemberCounts
}

// Member is one file inside an index with its own processing status.
type Member struct {
	FileId string
	Status string
}

// ExpiryPolicy controls provider-side inactivity expiry of an index.
// Scoped indexes use a short policy, the master index a year-scale one.
type ExpiryPolicy struct {
	Days int
}

var (
	ExpiryScoped = ExpiryPolicy{Days: 7}
	ExpiryMaster = ExpiryPolicy{Days: 365}
)

// Provider is the managed document-search backend. All calls are remote and
// eventually consistent; an index reported ready may lag behind queryability.
type Provider interface {
	CreateIndex(ctx context.Context, name string, expiry ExpiryPolicy) (*Handle, error)
	GetIndex(ctx context.Context, indexId string) (*Handle, error)
	DeleteIndex(ctx context.Context, indexId string) error

	// FindIndexByName returns (nil, nil) when no index carries the name.
	FindIndexByName(ctx context.Context, name string) (*Handle, error)

	AddFile(ctx context.Context, indexId, fileId string) error
	RemoveFile(ctx context.Context, indexId, fileId string) error
	ListFiles(ctx context.Context, indexId string) ([]Member, error)
}
