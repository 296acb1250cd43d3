package service

import (
	"context"
	"testing"

	"askdocs-be/internal/dto"
	"askdocs-be/internal/entity"
	"askdocs-be/internal/pkg/logger"
	"askdocs-be/internal/repository/specification"
	"askdocs-be/pkg/index"
	"askdocs-be/pkg/index/indextest"
	"askdocs-be/pkg/index/master"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (m *memDocumentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	if len(m.docs) == 0 {
		return nil, nil
	}
	return m.docs[0], nil
}

func (m *memDocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	m.docs = append(m.docs, doc)
	return nil
}

func (m *memDocumentRepository) Update(ctx context.Context, doc *entity.Document) error {
	return nil
}

type memPublisher struct {
	published [][]byte
}

func (p *memPublisher) Publish(ctx context.Context, payload []byte) error {
	p.published = append(p.published, payload)
	return nil
}

func newTestDocumentService(uow *memUow, provider index.Provider, pub *memPublisher) IDocumentService {
	log := logger.NewNoopLogger()
	return NewDocumentService(&memFactory{uow: uow}, master.NewManager(provider, log), provider, pub, log)
}

func TestRegisterAddsToMasterAndPublishes(t *testing.T) {
	provider := indextest.NewFakeProvider()
	uow := newMemUow()
	pub := &memPublisher{}
	svc := newTestDocumentService(uow, provider, pub)

	res, err := svc.Register(context.Background(), uuid.New(), &dto.RegisterDocumentRequest{
		Title:          "quarterly report",
		ProviderFileId: "file-1",
	})
	require.NoError(t, err)
	assert.True(t, res.IsActive)
	assert.Equal(t, 1, uow.commits)
	require.Len(t, uow.docs.docs, 1)

	// Registration joins the master index and announces the transition.
	assert.Equal(t, 1, provider.Adds)
	assert.Len(t, pub.published, 1)
}

func TestRegisterRejectsDuplicateProviderFile(t *testing.T) {
	provider := indextest.NewFakeProvider()
	uow := newMemUow(activeDoc("file-1"))
	pub := &memPublisher{}
	svc := newTestDocumentService(uow, provider, pub)

	_, err := svc.Register(context.Background(), uuid.New(), &dto.RegisterDocumentRequest{
		Title:          "same file again",
		ProviderFileId: "file-1",
	})
	require.Error(t, err)
	assert.Equal(t, 0, uow.commits)
	assert.Empty(t, pub.published)
}

func TestSetActiveDeactivationRemovesFromMaster(t *testing.T) {
	provider := indextest.NewFakeProvider()
	provider.Seed(master.IndexName, index.StatusReady, "file-1")
	doc := activeDoc("file-1")
	uow := newMemUow(doc)
	pub := &memPublisher{}
	svc := newTestDocumentService(uow, provider, pub)

	res, err := svc.SetActive(context.Background(), doc.UserId, &dto.SetDocumentActiveRequest{
		DocumentId: doc.Id,
		IsActive:   false,
	})
	require.NoError(t, err)
	assert.False(t, res.IsActive)
	assert.Equal(t, 1, uow.commits)
	assert.Equal(t, 1, provider.Removes)
	assert.Len(t, pub.published, 1)
}
