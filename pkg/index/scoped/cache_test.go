package scoped

import (
	"context"
	"sort"
	"testing"
	"time"

	"askdocs-be/internal/pkg/logger"
	"askdocs-be/pkg/index"
	"askdocs-be/pkg/index/indextest"
	"askdocs-be/pkg/index/readiness"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(provider index.Provider) *Cache {
	waiter := readiness.NewWaiter(provider, logger.NewNoopLogger())
	waiter.Interval = 1 * time.Millisecond
	waiter.SettleDelay = 1 * time.Millisecond
	return NewCache(provider, waiter, logger.NewNoopLogger())
}

func TestHash(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		same bool
	}{
		{
			name: "order independent",
			a:    []string{"file-1", "file-2", "file-3"},
			b:    []string{"file-3", "file-1", "file-2"},
			same: true,
		},
		{
			name: "duplicates ignored",
			a:    []string{"file-1", "file-2"},
			b:    []string{"file-2", "file-1", "file-2"},
			same: true,
		},
		{
			name: "distinct sets differ",
			a:    []string{"file-1", "file-2"},
			b:    []string{"file-1", "file-3"},
			same: false,
		},
		{
			name: "subset differs",
			a:    []string{"file-1", "file-2"},
			b:    []string{"file-1"},
			same: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, Hash(tt.a), Hash(tt.b))
			} else {
				assert.NotEqual(t, Hash(tt.a), Hash(tt.b))
			}
		})
	}
}

func TestHashIsDeterministic(t *testing.T) {
	ids := []string{"file-b", "file-a"}
	assert.Equal(t, Hash(ids), Hash(ids))
	assert.Contains(t, Hash(ids), namePrefix)
}

func TestGetOrCreateMissBuildsIndex(t *testing.T) {
	provider := indextest.NewFakeProvider()
	cache := newTestCache(provider)

	fileIds := []string{"file-1", "file-2", "file-1"}
	result, err := cache.GetOrCreate(context.Background(), fileIds)
	require.NoError(t, err)
	assert.Equal(t, readiness.StateReady, result.State)
	assert.Equal(t, 1, provider.Creates)

	// Duplicates in the request must not become duplicate members.
	members := provider.FileIds(result.Handle.Id)
	sort.Strings(members)
	assert.Equal(t, []string{"file-1", "file-2"}, members)
	assert.Equal(t, Hash(fileIds), result.Handle.Name)
}

func TestGetOrCreateReadyHitReusesWithoutCreate(t *testing.T) {
	provider := indextest.NewFakeProvider()
	fileIds := []string{"file-1", "file-2"}
	provider.Seed(Hash(fileIds), index.StatusReady, "file-1", "file-2")
	cache := newTestCache(provider)

	result, err := cache.GetOrCreate(context.Background(), fileIds)
	require.NoError(t, err)
	assert.Equal(t, readiness.StateReady, result.State)
	assert.Equal(t, 0, provider.Creates)
	assert.Equal(t, 0, provider.Adds)
}

func TestGetOrCreateSupersetDiscardsAndRebuilds(t *testing.T) {
	provider := indextest.NewFakeProvider()
	fileIds := []string{"file-1", "file-2"}
	// An index under the right name but holding an extra member. Reusing it
	// would broaden retrieval beyond the request.
	provider.Seed(Hash(fileIds), index.StatusReady, "file-1", "file-2", "file-3")
	cache := newTestCache(provider)

	result, err := cache.GetOrCreate(context.Background(), fileIds)
	require.NoError(t, err)
	assert.Equal(t, readiness.StateReady, result.State)
	assert.Equal(t, 1, provider.Deletes)
	assert.Equal(t, 1, provider.Creates)

	members := provider.FileIds(result.Handle.Id)
	sort.Strings(members)
	assert.Equal(t, []string{"file-1", "file-2"}, members)
}

func TestGetOrCreateSubsetTopsUp(t *testing.T) {
	provider := indextest.NewFakeProvider()
	fileIds := []string{"file-1", "file-2"}
	id := provider.Seed(Hash(fileIds), index.StatusReady, "file-1")
	cache := newTestCache(provider)

	result, err := cache.GetOrCreate(context.Background(), fileIds)
	require.NoError(t, err)
	assert.Equal(t, readiness.StateReady, result.State)
	assert.Equal(t, 0, provider.Creates)
	assert.Equal(t, 1, provider.Adds)
	assert.Equal(t, id, result.Handle.Id)

	members := provider.FileIds(id)
	sort.Strings(members)
	assert.Equal(t, []string{"file-1", "file-2"}, members)
}

func TestGetOrCreateRepeatReusesIndex(t *testing.T) {
	provider := indextest.NewFakeProvider()
	cache := newTestCache(provider)
	fileIds := []string{"file-1", "file-2"}

	first, err := cache.GetOrCreate(context.Background(), fileIds)
	require.NoError(t, err)
	second, err := cache.GetOrCreate(context.Background(), fileIds)
	require.NoError(t, err)

	assert.Equal(t, first.Handle.Id, second.Handle.Id)
	assert.Equal(t, 1, provider.Creates)
}

func TestGetOrCreateDiscardsTerminalEntry(t *testing.T) {
	provider := indextest.NewFakeProvider()
	fileIds := []string{"file-1"}
	provider.Seed(Hash(fileIds), index.StatusExpired, "file-1")
	cache := newTestCache(provider)

	result, err := cache.GetOrCreate(context.Background(), fileIds)
	require.NoError(t, err)
	assert.Equal(t, readiness.StateReady, result.State)
	assert.Equal(t, 1, provider.Deletes)
	assert.Equal(t, 1, provider.Creates)
}
