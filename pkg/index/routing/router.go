package routing

import (
	"context"

	"askdocs-be/internal/entity"
	"askdocs-be/internal/pkg/logger"
	"askdocs-be/internal/repository/specification"
	"askdocs-be/internal/repository/unitofwork"
	"askdocs-be/pkg/index"
	"askdocs-be/pkg/index/master"
	"askdocs-be/pkg/index/readiness"
	"askdocs-be/pkg/index/scoped"

	"github.com/google/uuid"
)

// Resolution is the routing outcome for one query. Handles is ordered and
// currently always resolves to at most one entry, but the shape supports
// fan-in across several indexes.
type Resolution struct {
	Handles []*index.Handle
	// Degraded is set when a handle came back below ready; the answer path
	// still runs but the caller should message accordingly.
	Degraded bool
	// NoMatches is set when explicit document ids matched nothing active.
	// Nothing was created and no provider call was made.
	NoMatches bool
	// ScopeCount is the number of active documents the query resolved to.
	ScopeCount int
}

func (r *Resolution) IndexIds() []string {
	ids := make([]string, 0, len(r.Handles))
	for _, h := range r.Handles {
		ids = append(ids, h.Id)
	}
	return ids
}

// Router resolves a query to the index handles it should run against:
// the master index by default, a dedicated index for a single addressed
// document, or a scoped index for an explicit subset.
type Router struct {
	provider index.Provider
	master   *master.Manager
	scoped   *scoped.Cache
	waiter   *readiness.Waiter
	logger   logger.ILogger
}

func NewRouter(
	provider index.Provider,
	masterManager *master.Manager,
	scopedCache *scoped.Cache,
	waiter *readiness.Waiter,
	log logger.ILogger,
) *Router {
	return &Router{
		provider: provider,
		master:   masterManager,
		scoped:   scopedCache,
		waiter:   waiter,
		logger:   log,
	}
}

// Resolve maps a query plus optional explicit document ids onto index
// handles. With no explicit ids the master index is used as-is: activation
// transitions keep it in sync, so the hot path never re-syncs. An explicit
// empty list is not the same as no list: the caller scoped the query to
// nothing, which matches nothing.
func (r *Router) Resolve(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, explicitDocIds []uuid.UUID) (*Resolution, error) {
	if explicitDocIds != nil {
		return r.resolveExplicit(ctx, uow, userId, explicitDocIds)
	}
	return r.resolveDefault(ctx, uow, userId)
}

func (r *Router) resolveExplicit(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, docIds []uuid.UUID) (*Resolution, error) {
	if len(docIds) == 0 {
		return &Resolution{NoMatches: true}, nil
	}

	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.ByIDs{IDs: docIds},
		specification.UserOwnedBy{UserID: userId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		// Fast path: no index creation, no provider call, zero cost.
		return &Resolution{NoMatches: true}, nil
	}

	if len(docs) == 1 && docs[0].DedicatedIndexId != nil {
		if res, ok := r.tryDedicated(ctx, docs[0]); ok {
			res.ScopeCount = 1
			return res, nil
		}
		// Dedicated index unusable; fall through to the scoped path.
	}

	fileIds := make([]string, 0, len(docs))
	for _, doc := range docs {
		fileIds = append(fileIds, doc.ProviderFileId)
	}

	result, err := r.scoped.GetOrCreate(ctx, fileIds)
	if err != nil {
		return nil, err
	}
	return &Resolution{
		Handles:    []*index.Handle{result.Handle},
		Degraded:   !result.Usable(),
		ScopeCount: len(docs),
	}, nil
}

// tryDedicated reuses a document's legacy dedicated index when it still holds
// exactly that document and is ready. Any doubt routes to the scoped cache.
func (r *Router) tryDedicated(ctx context.Context, doc *entity.Document) (*Resolution, bool) {
	handle, err := r.provider.GetIndex(ctx, *doc.DedicatedIndexId)
	if err != nil {
		r.logger.Warn("query-router", "Dedicated index unreachable", map[string]interface{}{
			"document_id": doc.Id.String(), "error": err.Error(),
		})
		return nil, false
	}

	members, err := r.provider.ListFiles(ctx, handle.Id)
	if err != nil || len(members) != 1 || members[0].FileId != doc.ProviderFileId {
		return nil, false
	}

	result, err := r.waiter.Wait(ctx, handle, readiness.Options{Budget: readiness.BudgetReused})
	if err != nil || !result.Usable() {
		return nil, false
	}

	r.logger.Info("query-router", "Using dedicated index", map[string]interface{}{
		"document_id": doc.Id.String(),
	})
	return &Resolution{Handles: []*index.Handle{result.Handle}}, true
}

func (r *Router) resolveDefault(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*Resolution, error) {
	count, err := uow.DocumentRepository().Count(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		// No corpus at all: the caller answers ungrounded.
		return &Resolution{}, nil
	}

	handle, err := r.master.GetOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	result, err := r.waiter.Wait(ctx, handle, readiness.Options{Budget: readiness.BudgetReused})
	if err != nil {
		return nil, err
	}
	return &Resolution{
		Handles:    []*index.Handle{result.Handle},
		Degraded:   !result.Usable(),
		ScopeCount: int(count),
	}, nil
}
