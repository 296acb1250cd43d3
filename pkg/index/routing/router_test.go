package routing

import (
	"context"
	"testing"
	"time"

	"askdocs-be/internal/entity"
	"askdocs-be/internal/pkg/logger"
	"askdocs-be/internal/repository/contract"
	"askdocs-be/internal/repository/specification"
	"askdocs-be/internal/repository/unitofwork"
	"askdocs-be/pkg/index"
	"askdocs-be/pkg/index/indextest"
	"askdocs-be/pkg/index/master"
	"askdocs-be/pkg/index/readiness"
	"askdocs-be/pkg/index/scoped"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocumentRepository serves a canned document list; the router's
// specifications are applied upstream in production and irrelevant here.
type fakeDocumentRepository struct {
	contract.DocumentRepository
	docs []*entity.Document
}

func (f *fakeDocumentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	return f.docs, nil
}

func (f *fakeDocumentRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(f.docs)), nil
}

type fakeUow struct {
	unitofwork.UnitOfWork
	docs *fakeDocumentRepository
}

func (f *fakeUow) DocumentRepository() contract.DocumentRepository {
	return f.docs
}

func newTestRouter(provider index.Provider) *Router {
	log := logger.NewNoopLogger()
	waiter := readiness.NewWaiter(provider, log)
	waiter.Interval = 1 * time.Millisecond
	waiter.SettleDelay = 1 * time.Millisecond
	masterManager := master.NewManager(provider, log)
	scopedCache := scoped.NewCache(provider, waiter, log)
	return NewRouter(provider, masterManager, scopedCache, waiter, log)
}

func uowWith(docs ...*entity.Document) *fakeUow {
	return &fakeUow{docs: &fakeDocumentRepository{docs: docs}}
}

func doc(fileId string, dedicatedIndexId *string) *entity.Document {
	return &entity.Document{
		Id:               uuid.New(),
		Title:            "doc " + fileId,
		ProviderFileId:   fileId,
		DedicatedIndexId: dedicatedIndexId,
		IsActive:         true,
		UserId:           uuid.New(),
	}
}

func TestResolveExplicitNoMatchesIsFastPath(t *testing.T) {
	provider := indextest.NewFakeProvider()
	r := newTestRouter(provider)

	res, err := r.Resolve(context.Background(), uowWith(), uuid.New(), []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.True(t, res.NoMatches)
	assert.Empty(t, res.Handles)

	// Cost avoidance: the provider must never have been touched.
	assert.Equal(t, 0, provider.Creates)
	assert.Equal(t, 0, provider.Gets)
}

func TestResolveExplicitEmptyListMatchesNothing(t *testing.T) {
	provider := indextest.NewFakeProvider()
	provider.Seed(master.IndexName, index.StatusReady, "file-1")
	r := newTestRouter(provider)

	// An empty list is an explicit scope, not an absent one: it must not
	// fall back to the master index.
	d := doc("file-1", nil)
	res, err := r.Resolve(context.Background(), uowWith(d), uuid.New(), []uuid.UUID{})
	require.NoError(t, err)
	assert.True(t, res.NoMatches)
	assert.Empty(t, res.Handles)
	assert.Equal(t, 0, res.ScopeCount)
	assert.Equal(t, 0, provider.Gets)
}

func TestResolveExplicitBuildsScopedIndex(t *testing.T) {
	provider := indextest.NewFakeProvider()
	r := newTestRouter(provider)

	d1, d2 := doc("file-1", nil), doc("file-2", nil)
	res, err := r.Resolve(context.Background(), uowWith(d1, d2), uuid.New(), []uuid.UUID{d1.Id, d2.Id})
	require.NoError(t, err)
	require.Len(t, res.Handles, 1)
	assert.False(t, res.Degraded)
	assert.Equal(t, 2, res.ScopeCount)
	assert.Equal(t, scoped.Hash([]string{"file-1", "file-2"}), res.Handles[0].Name)
}

func TestResolveSingleDocUsesDedicatedIndex(t *testing.T) {
	provider := indextest.NewFakeProvider()
	dedicatedId := provider.Seed("legacy-doc-index", index.StatusReady, "file-1")
	r := newTestRouter(provider)

	d := doc("file-1", &dedicatedId)
	res, err := r.Resolve(context.Background(), uowWith(d), uuid.New(), []uuid.UUID{d.Id})
	require.NoError(t, err)
	require.Len(t, res.Handles, 1)
	assert.Equal(t, dedicatedId, res.Handles[0].Id)
	assert.Equal(t, 1, res.ScopeCount)
	assert.Equal(t, 0, provider.Creates)
}

func TestResolveDedicatedMismatchFallsBackToScoped(t *testing.T) {
	provider := indextest.NewFakeProvider()
	// The dedicated index drifted: it holds a second file.
	dedicatedId := provider.Seed("legacy-doc-index", index.StatusReady, "file-1", "file-9")
	r := newTestRouter(provider)

	d := doc("file-1", &dedicatedId)
	res, err := r.Resolve(context.Background(), uowWith(d), uuid.New(), []uuid.UUID{d.Id})
	require.NoError(t, err)
	require.Len(t, res.Handles, 1)
	assert.NotEqual(t, dedicatedId, res.Handles[0].Id)
	assert.Equal(t, 1, provider.Creates)
}

func TestResolveDefaultNoActiveDocsIsUngrounded(t *testing.T) {
	provider := indextest.NewFakeProvider()
	r := newTestRouter(provider)

	res, err := r.Resolve(context.Background(), uowWith(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Handles)
	assert.False(t, res.NoMatches)
	assert.Equal(t, 0, provider.Creates)
}

func TestResolveDefaultUsesMasterIndex(t *testing.T) {
	provider := indextest.NewFakeProvider()
	provider.Seed(master.IndexName, index.StatusReady, "file-1", "file-2")
	r := newTestRouter(provider)

	d1, d2 := doc("file-1", nil), doc("file-2", nil)
	res, err := r.Resolve(context.Background(), uowWith(d1, d2), uuid.New(), nil)
	require.NoError(t, err)
	require.Len(t, res.Handles, 1)
	assert.Equal(t, master.IndexName, res.Handles[0].Name)
	assert.Equal(t, 2, res.ScopeCount)
	assert.Equal(t, 0, provider.Creates)
}
