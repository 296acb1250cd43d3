package readiness

import (
	"context"
	"time"

	"askdocs-be/internal/pkg/logger"
	"askdocs-be/pkg/index"
)

// State of the wait state machine.
type State string

const (
	StatePending  State = "pending"
	StatePolling  State = "polling"
	StateReady    State = "ready"
	StateDegraded State = "degraded"
	StateFailed   State = "failed"
)

// Wait budgets per scenario. Reused and dedicated indexes were processed
// before, new scoped indexes need the provider's full ingestion time.
const (
	BudgetReused = 20 * time.Second
	BudgetNew    = 60 * time.Second
)

// Options controls one Wait call.
type Options struct {
	// Budget bounds the total polling time.
	Budget time.Duration
	// Settle applies one extra delay after the index first reports ready.
	// Only set for newly created indexes; a reused ready index is queryable
	// as-is.
	Settle bool
}

// Result is the terminal outcome of a Wait call. State is never StatePending
// or StatePolling on return.
type Result struct {
	Handle *index.Handle
	State  State
}

func (r *Result) Usable() bool {
	return r.State == StateReady
}

// Waiter turns a possibly-async provider index into a definitive
// ready/degraded/failed outcome by fixed-interval polling.
type Waiter struct {
	provider index.Provider
	logger   logger.ILogger

	// Interval and SettleDelay are overridable for tests.
	Interval    time.Duration
	SettleDelay time.Duration
}

func NewWaiter(provider index.Provider, log logger.ILogger) *Waiter {
	return &Waiter{
		provider:    provider,
		logger:      log,
		Interval:    2 * time.Second,
		SettleDelay: 5 * time.Second,
	}
}

// Wait polls the index until it is usable, terminally failed, or the budget
// runs out. A budget overrun is not an error: the last observed handle comes
// back with StateDegraded and the caller decides how to degrade.
func (w *Waiter) Wait(ctx context.Context, handle *index.Handle, opts Options) (*Result, error) {
	deadline := time.Now().Add(opts.Budget)
	current := handle

	for {
		refreshed, err := w.provider.GetIndex(ctx, current.Id)
		if err != nil {
			return nil, index.Unavailable("readiness poll", err)
		}
		current = refreshed

		switch current.Status {
		case index.StatusFailed, index.StatusExpired:
			// Terminal on the provider side, retrying cannot help.
			w.logger.Error("readiness", "Index terminally failed", map[string]interface{}{
				"index": current.Name, "status": string(current.Status),
			})
			return nil, &index.IndexFailedError{IndexId: current.Id, Name: current.Name, Status: current.Status}
		case index.StatusReady, index.StatusPartiallyReady:
			outcome, decided := w.classifyCompleted(current)
			if decided {
				if outcome == StateReady && opts.Settle {
					// The provider reports ready before the index is
					// consistently queryable.
					if err := sleepCtx(ctx, w.SettleDelay); err != nil {
						return nil, err
					}
				}
				return &Result{Handle: current, State: outcome}, nil
			}
			// Aggregate says completed but no members are visible yet.
			// Member listing lags the aggregate status; keep polling.
		}

		if time.Now().Add(w.Interval).After(deadline) {
			w.logger.Warn("readiness", "Wait budget exhausted", map[string]interface{}{
				"index": current.Name, "status": string(current.Status), "budget": opts.Budget.String(),
			})
			return &Result{Handle: current, State: StateDegraded}, nil
		}
		if err := sleepCtx(ctx, w.Interval); err != nil {
			return nil, err
		}
	}
}

// classifyCompleted decides whether a completed aggregate status is actually
// usable. Returns decided=false while the member counters are still empty.
func (w *Waiter) classifyCompleted(h *index.Handle) (State, bool) {
	if h.Counts.Total == 0 {
		return StatePolling, false
	}
	if h.Counts.Completed > 0 {
		return StateReady, true
	}
	if h.Counts.Failed == h.Counts.Total {
		// Every member failed. Surface a degraded result instead of
		// polling forever; the caller decides whether to answer at all.
		return StateDegraded, true
	}
	return StatePolling, false
}

// sleepCtx sleeps but aborts when the request context is cancelled, so an
// abandoned request stops polling client-side.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
