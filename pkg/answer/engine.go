package answer

import (
	"context"
	"errors"
)

// Message is a role-tagged chat message in a provider-agnostic format.
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// JobStatus is the state of an asynchronous grounded-generation job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobExpired    JobStatus = "expired"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the job will not change state again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobExpired, JobCancelled:
		return true
	}
	return false
}

// Job tracks one grounded-generation request on the provider.
type Job struct {
	Id            string
	ThreadId      string
	Status        JobStatus
	TokensUsed    int
	FailureReason string
}

// ErrGenerationFailed marks a grounded job that ended in a terminal failure
// or never reached a terminal state within the polling budget.
var ErrGenerationFailed = errors.New("grounded generation failed")

// Engine abstracts the provider's generation surface: synchronous ungrounded
// completion and asynchronous grounded jobs scoped to search indexes.
type Engine interface {
	// Complete runs a plain completion. Returns the text and token usage.
	Complete(ctx context.Context, messages []Message) (string, int, error)

	// StartGroundedJob submits a generation request with the given indexes
	// attached as its search scope. The job may already be terminal.
	StartGroundedJob(ctx context.Context, indexIds []string, messages []Message) (*Job, error)

	// PollGroundedJob refreshes the job's status.
	PollGroundedJob(ctx context.Context, job *Job) (*Job, error)

	// FetchJobSegments returns the structured content of a completed job.
	FetchJobSegments(ctx context.Context, job *Job) ([]Segment, error)
}
