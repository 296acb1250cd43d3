package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"askdocs-be/internal/pkg/logger"
	"askdocs-be/pkg/index"
	"askdocs-be/pkg/index/indextest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWaiter(provider index.Provider) *Waiter {
	w := NewWaiter(provider, logger.NewNoopLogger())
	w.Interval = 1 * time.Millisecond
	w.SettleDelay = 1 * time.Millisecond
	return w
}

func TestWaitReadyImmediately(t *testing.T) {
	provider := indextest.NewFakeProvider()
	id := provider.Seed("test-index", index.StatusReady, "file-1")
	w := newTestWaiter(provider)

	handle, err := provider.GetIndex(context.Background(), id)
	require.NoError(t, err)

	result, err := w.Wait(context.Background(), handle, Options{Budget: BudgetReused})
	require.NoError(t, err)
	assert.Equal(t, StateReady, result.State)
	assert.True(t, result.Usable())
}

func TestWaitKeepsPollingWhileMembersInvisible(t *testing.T) {
	provider := indextest.NewFakeProvider()
	id := provider.Seed("test-index", index.StatusReady, "file-1")

	// Aggregate reports ready before any member is visible; the waiter must
	// treat that as still-processing rather than usable.
	provider.Script(id,
		index.Handle{Id: id, Name: "test-index", Status: index.StatusReady},
		index.Handle{Id: id, Name: "test-index", Status: index.StatusReady},
		index.Handle{Id: id, Name: "test-index", Status: index.StatusReady,
			Counts: index.MemberCounts{Total: 1, Completed: 1}},
	)
	w := newTestWaiter(provider)

	handle := &index.Handle{Id: id, Name: "test-index", Status: index.StatusCreating}
	result, err := w.Wait(context.Background(), handle, Options{Budget: BudgetNew})
	require.NoError(t, err)
	assert.Equal(t, StateReady, result.State)
	assert.GreaterOrEqual(t, provider.Gets, 3)
}

func TestWaitAllMembersFailedIsDegraded(t *testing.T) {
	provider := indextest.NewFakeProvider()
	id := provider.Seed("test-index", index.StatusPartiallyReady)
	provider.Script(id, index.Handle{
		Id: id, Name: "test-index", Status: index.StatusPartiallyReady,
		Counts: index.MemberCounts{Total: 2, Failed: 2},
	})
	w := newTestWaiter(provider)

	handle := &index.Handle{Id: id, Name: "test-index"}
	result, err := w.Wait(context.Background(), handle, Options{Budget: BudgetReused})
	require.NoError(t, err)
	assert.Equal(t, StateDegraded, result.State)
	assert.False(t, result.Usable())
}

func TestWaitBudgetExhaustedReturnsDegraded(t *testing.T) {
	provider := indextest.NewFakeProvider()
	id := provider.Seed("test-index", index.StatusProcessing)
	provider.Script(id, index.Handle{Id: id, Name: "test-index", Status: index.StatusProcessing})
	w := newTestWaiter(provider)

	handle := &index.Handle{Id: id, Name: "test-index", Status: index.StatusProcessing}
	result, err := w.Wait(context.Background(), handle, Options{Budget: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, StateDegraded, result.State)
	assert.Equal(t, index.StatusProcessing, result.Handle.Status)
}

func TestWaitTerminalFailureRaises(t *testing.T) {
	provider := indextest.NewFakeProvider()
	id := provider.Seed("test-index", index.StatusFailed)
	w := newTestWaiter(provider)

	handle := &index.Handle{Id: id, Name: "test-index"}
	_, err := w.Wait(context.Background(), handle, Options{Budget: BudgetReused})
	require.Error(t, err)

	var failed *index.IndexFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, index.StatusFailed, failed.Status)
}

func TestWaitProviderErrorIsUnavailable(t *testing.T) {
	provider := indextest.NewFakeProvider()
	provider.GetErr = errors.New("connection refused")
	w := newTestWaiter(provider)

	handle := &index.Handle{Id: "idx-x", Name: "test-index"}
	_, err := w.Wait(context.Background(), handle, Options{Budget: BudgetReused})
	require.Error(t, err)
	assert.True(t, errors.Is(err, index.ErrProviderUnavailable))
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	provider := indextest.NewFakeProvider()
	id := provider.Seed("test-index", index.StatusProcessing)
	provider.Script(id, index.Handle{Id: id, Name: "test-index", Status: index.StatusProcessing})
	w := newTestWaiter(provider)
	w.Interval = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handle := &index.Handle{Id: id, Name: "test-index"}
	_, err := w.Wait(ctx, handle, Options{Budget: BudgetNew})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
