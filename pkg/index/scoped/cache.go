package scoped

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"askdocs-be/internal/pkg/logger"
	"askdocs-be/pkg/index"
	"askdocs-be/pkg/index/readiness"

	"github.com/cespare/xxhash/v2"
)

const namePrefix = "askdocs-scoped-"

// Cache builds and reuses ephemeral indexes for explicit document subsets.
// Entries are content-addressed: the index name is a digest of the requested
// file-id set, so identical requests converge on the same provider index.
//
// There is no cross-process lock. Two concurrent identical requests may each
// create an index under the same name; a later lookup settles on one of them
// and the loser ages out through its own inactivity expiry.
type Cache struct {
	provider index.Provider
	waiter   *readiness.Waiter
	logger   logger.ILogger
}

func NewCache(provider index.Provider, waiter *readiness.Waiter, log logger.ILogger) *Cache {
	return &Cache{
		provider: provider,
		waiter:   waiter,
		logger:   log,
	}
}

// Hash returns a stable digest over the sorted, deduplicated file-id set.
// Hash([a,b]) == Hash([b,a]); distinct sets yield distinct names.
func Hash(fileIds []string) string {
	unique := make(map[string]bool, len(fileIds))
	for _, id := range fileIds {
		unique[id] = true
	}
	sorted := make([]string, 0, len(unique))
	for id := range unique {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	sum := xxhash.Sum64String(strings.Join(sorted, "\x00"))
	return fmt.Sprintf("%s%016x", namePrefix, sum)
}

// lookupResult distinguishes the cases Lookup can land in.
type lookupResult struct {
	handle  *index.Handle
	missing []string // requested files absent from the found index
	exact   bool
}

// Lookup finds a candidate index by name and verifies its live membership is
// exactly the requested set. Supersets are discarded outright: extra members
// would silently broaden retrieval beyond the caller's intent, which is a
// correctness problem, not a tuning knob. Subsets report the missing files so
// the caller can top the index up.
func (c *Cache) lookup(ctx context.Context, name string, fileIds []string) (*lookupResult, error) {
	handle, err := c.provider.FindIndexByName(ctx, name)
	if err != nil {
		return nil, index.Unavailable("scoped lookup", err)
	}
	if handle == nil {
		return &lookupResult{}, nil
	}
	if handle.Status == index.StatusFailed || handle.Status == index.StatusExpired {
		c.discard(ctx, handle, "terminal status")
		return &lookupResult{}, nil
	}

	members, err := c.provider.ListFiles(ctx, handle.Id)
	if err != nil {
		return nil, index.Unavailable("scoped membership check", err)
	}

	requested := make(map[string]bool, len(fileIds))
	for _, id := range fileIds {
		requested[id] = true
	}

	extras := 0
	live := make(map[string]bool, len(members))
	for _, member := range members {
		live[member.FileId] = true
		if !requested[member.FileId] {
			extras++
		}
	}

	if extras > 0 {
		c.discard(ctx, handle, "unexpected members")
		return &lookupResult{}, nil
	}

	var missing []string
	for _, id := range fileIds {
		if !live[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &lookupResult{handle: handle, missing: missing}, nil
	}

	return &lookupResult{handle: handle, exact: true}, nil
}

// GetOrCreate resolves the scoped index for fileIds, reusing a verified entry
// when possible and building one otherwise. Membership verification runs
// synchronously in the request path: added p50 latency is the accepted price
// for never querying the wrong document set.
func (c *Cache) GetOrCreate(ctx context.Context, fileIds []string) (*readiness.Result, error) {
	name := Hash(fileIds)

	found, err := c.lookup(ctx, name, fileIds)
	if err != nil {
		return nil, err
	}

	if found.exact {
		if found.handle.Status == index.StatusReady || found.handle.Status == index.StatusPartiallyReady {
			// Verified ready hit. Reuse without any settle delay.
			c.logger.Info("scoped-cache", "Reusing scoped index", map[string]interface{}{
				"name": name, "files": len(fileIds),
			})
			return &readiness.Result{Handle: found.handle, State: readiness.StateReady}, nil
		}
		// Hit but still processing.
		return c.waiter.Wait(ctx, found.handle, readiness.Options{Budget: readiness.BudgetReused})
	}

	if found.handle != nil {
		// Subset hit: top the existing index up instead of rebuilding.
		for _, fileId := range found.missing {
			if err := c.provider.AddFile(ctx, found.handle.Id, fileId); err != nil {
				return nil, index.Unavailable("scoped top-up", err)
			}
		}
		c.logger.Info("scoped-cache", "Topped up scoped index", map[string]interface{}{
			"name": name, "added": len(found.missing),
		})
		return c.waiter.Wait(ctx, found.handle, readiness.Options{Budget: readiness.BudgetNew, Settle: true})
	}

	// Miss: build a fresh index named by the digest.
	handle, err := c.provider.CreateIndex(ctx, name, index.ExpiryScoped)
	if err != nil {
		return nil, index.Unavailable("scoped create", err)
	}
	for _, fileId := range dedupe(fileIds) {
		if err := c.provider.AddFile(ctx, handle.Id, fileId); err != nil {
			return nil, index.Unavailable("scoped add", err)
		}
	}
	c.logger.Info("scoped-cache", "Created scoped index", map[string]interface{}{
		"name": name, "files": len(fileIds),
	})

	return c.waiter.Wait(ctx, handle, readiness.Options{Budget: readiness.BudgetNew, Settle: true})
}

// discard drops a cache entry whose index can no longer be trusted. Deletion
// failures are logged only; the entry will expire on its own.
func (c *Cache) discard(ctx context.Context, handle *index.Handle, reason string) {
	c.logger.Warn("scoped-cache", "Discarding scoped index", map[string]interface{}{
		"name": handle.Name, "reason": reason,
	})
	if err := c.provider.DeleteIndex(ctx, handle.Id); err != nil {
		c.logger.Error("scoped-cache", "Failed to delete discarded index", map[string]interface{}{
			"name": handle.Name, "error": err.Error(),
		})
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
