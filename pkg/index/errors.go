package index

import (
	"errors"
	"fmt"
)

// ErrProviderUnavailable wraps network-level or 5xx failures of the provider.
var ErrProviderUnavailable = errors.New("search provider unavailable")

// ErrIndexNotReady marks an index still processing after its wait budget.
var ErrIndexNotReady = errors.New("index not ready")

// IndexFailedError is raised when the provider reports a terminal failed or
// expired index. It is not retried.
type IndexFailedError struct {
	IndexId string
	Name    string
	Status  Status
}

func (e *IndexFailedError) Error() string {
	return fmt.Sprintf("index %s (%s) is terminally %s", e.Name, e.IndexId, e.Status)
}

// Unavailable tags a provider transport error so callers can match it with
// errors.Is(err, ErrProviderUnavailable).
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrProviderUnavailable, err)
}
