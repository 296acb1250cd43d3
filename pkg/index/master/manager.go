package master

import (
	"context"
	"sync"

	"askdocs-be/internal/pkg/logger"
	"askdocs-be/pkg/index"
)

// IndexName is the well-known name of the single long-lived master index
// mirroring all currently active documents.
const IndexName = "askdocs-master"

// Manager owns the master index. It is constructed once at service start and
// passed into request handlers; the cached handle is the only shared state.
type Manager struct {
	provider index.Provider
	logger   logger.ILogger

	mu     sync.Mutex
	cached *index.Handle
}

// SyncResult reports the outcome of one diff-based sync pass.
type SyncResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

func NewManager(provider index.Provider, log logger.ILogger) *Manager {
	return &Manager{
		provider: provider,
		logger:   log,
	}
}

// GetOrCreate finds the master index by its well-known name, creating it with
// a year-scale inactivity expiry when absent. Safe to call repeatedly.
func (m *Manager) GetOrCreate(ctx context.Context) (*index.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil {
		refreshed, err := m.provider.GetIndex(ctx, m.cached.Id)
		if err == nil && refreshed.Status != index.StatusExpired {
			m.cached = refreshed
			return refreshed, nil
		}
		// Cached handle went stale (deleted or expired); fall through to
		// a fresh lookup.
		m.cached = nil
	}

	handle, err := m.provider.FindIndexByName(ctx, IndexName)
	if err != nil {
		return nil, index.Unavailable("master lookup", err)
	}
	if handle != nil && handle.Status == index.StatusExpired {
		// An expired master cannot be revived; build a fresh one.
		handle = nil
	}
	if handle == nil {
		handle, err = m.provider.CreateIndex(ctx, IndexName, index.ExpiryMaster)
		if err != nil {
			return nil, index.Unavailable("master create", err)
		}
		m.logger.Info("master-index", "Created master index", map[string]interface{}{
			"index_id": handle.Id,
		})
	}

	m.cached = handle
	return handle, nil
}

// Add places a document file into the master index. Idempotent: membership is
// checked first so a repeated activation never trips a duplicate-add error.
func (m *Manager) Add(ctx context.Context, fileId string) error {
	handle, err := m.GetOrCreate(ctx)
	if err != nil {
		return err
	}

	members, err := m.provider.ListFiles(ctx, handle.Id)
	if err != nil {
		return index.Unavailable("master membership check", err)
	}
	for _, member := range members {
		if member.FileId == fileId {
			return nil
		}
	}

	if err := m.provider.AddFile(ctx, handle.Id, fileId); err != nil {
		return index.Unavailable("master add", err)
	}
	m.logger.Info("master-index", "Added file to master index", map[string]interface{}{
		"file_id": fileId,
	})
	return nil
}

// Remove drops a document file from the master index. Missing membership is
// not an error.
func (m *Manager) Remove(ctx context.Context, fileId string) error {
	handle, err := m.GetOrCreate(ctx)
	if err != nil {
		return err
	}

	members, err := m.provider.ListFiles(ctx, handle.Id)
	if err != nil {
		return index.Unavailable("master membership check", err)
	}
	present := false
	for _, member := range members {
		if member.FileId == fileId {
			present = true
			break
		}
	}
	if !present {
		return nil
	}

	if err := m.provider.RemoveFile(ctx, handle.Id, fileId); err != nil {
		return index.Unavailable("master remove", err)
	}
	m.logger.Info("master-index", "Removed file from master index", map[string]interface{}{
		"file_id": fileId,
	})
	return nil
}

// Sync converges master membership onto activeFileIds. Adds and removes run
// concurrently with per-file error isolation: one failing file never aborts
// the batch. Invoked out-of-band on activation transitions, never per query.
func (m *Manager) Sync(ctx context.Context, activeFileIds []string) (*SyncResult, error) {
	handle, err := m.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	members, err := m.provider.ListFiles(ctx, handle.Id)
	if err != nil {
		return nil, index.Unavailable("master sync listing", err)
	}

	current := make(map[string]bool, len(members))
	for _, member := range members {
		current[member.FileId] = true
	}
	active := make(map[string]bool, len(activeFileIds))
	for _, id := range activeFileIds {
		active[id] = true
	}

	var toAdd, toRemove []string
	for id := range active {
		if !current[id] {
			toAdd = append(toAdd, id)
		}
	}
	for id := range current {
		if !active[id] {
			toRemove = append(toRemove, id)
		}
	}

	result := &SyncResult{}
	var wg sync.WaitGroup
	var resMu sync.Mutex

	for _, fileId := range toAdd {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := m.provider.AddFile(ctx, handle.Id, id)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				result.Failed++
				m.logger.Error("master-index", "Sync add failed", map[string]interface{}{
					"file_id": id, "error": err.Error(),
				})
				return
			}
			result.Added++
		}(fileId)
	}
	for _, fileId := range toRemove {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := m.provider.RemoveFile(ctx, handle.Id, id)
			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				result.Failed++
				m.logger.Error("master-index", "Sync remove failed", map[string]interface{}{
					"file_id": id, "error": err.Error(),
				})
				return
			}
			result.Removed++
		}(fileId)
	}
	wg.Wait()

	m.logger.Info("master-index", "Sync completed", map[string]interface{}{
		"added": result.Added, "removed": result.Removed, "failed": result.Failed,
	})
	return result, nil
}
