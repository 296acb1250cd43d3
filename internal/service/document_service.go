package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"askdocs-be/internal/dto"
	"askdocs-be/internal/entity"
	"askdocs-be/internal/pkg/logger"
	"askdocs-be/internal/repository/specification"
	"askdocs-be/internal/repository/unitofwork"
	"askdocs-be/pkg/index"
	"askdocs-be/pkg/index/master"

	"github.com/google/uuid"
)

// IDocumentService defines the document registry service interface
type IDocumentService interface {
	Register(ctx context.Context, userId uuid.UUID, request *dto.RegisterDocumentRequest) (*dto.DocumentResponse, error)
	List(ctx context.Context, userId uuid.UUID) ([]*dto.DocumentResponse, error)
	SetActive(ctx context.Context, userId uuid.UUID, request *dto.SetDocumentActiveRequest) (*dto.DocumentResponse, error)
	ResyncMaster(ctx context.Context) (*dto.ResyncMasterResponse, error)
}

// documentService owns document registration and the activation transitions
// that keep the master index in step with the active set. Master and legacy
// dedicated-index calls are best effort: their failures are logged and
// swallowed so the database transition always commits.
type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	masterManager    *master.Manager
	provider         index.Provider
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	masterManager *master.Manager,
	provider index.Provider,
	publisherService IPublisherService,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		masterManager:    masterManager,
		provider:         provider,
		publisherService: publisherService,
		logger:           log,
	}
}

// Register records an already-uploaded provider file as an active document.
func (ds *documentService) Register(ctx context.Context, userId uuid.UUID, request *dto.RegisterDocumentRequest) (*dto.DocumentResponse, error) {
	uow := ds.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByProviderFileID{FileID: request.ProviderFileId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("provider file %s is already registered", request.ProviderFileId)
	}

	doc := entity.Document{
		Id:             uuid.New(),
		Title:          request.Title,
		ProviderFileId: request.ProviderFileId,
		IsActive:       true,
		UserId:         userId,
		CreatedAt:      time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().Create(ctx, &doc); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	// Registered documents start active, so they join the master index as
	// part of the same transition.
	if err := ds.masterManager.Add(ctx, doc.ProviderFileId); err != nil {
		ds.logger.Warn("document-service", "Master add failed on register", map[string]interface{}{
			"document_id": doc.Id.String(), "error": err.Error(),
		})
	}
	ds.publishSync(ctx, "document_registered")

	return toDocumentResponse(&doc), nil
}

// List returns all of the user's documents, newest first.
func (ds *documentService) List(ctx context.Context, userId uuid.UUID) ([]*dto.DocumentResponse, error) {
	uow := ds.uowFactory.NewUnitOfWork(ctx)

	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		response = append(response, toDocumentResponse(doc))
	}
	return response, nil
}

// SetActive flips the activation flag and synchronously propagates the
// transition to the master index and, transitionally, the legacy dedicated
// index. Index failures never roll back the flag.
func (ds *documentService) SetActive(ctx context.Context, userId uuid.UUID, request *dto.SetDocumentActiveRequest) (*dto.DocumentResponse, error) {
	uow := ds.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: request.DocumentId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document not found or access denied")
	}

	if doc.IsActive != request.IsActive {
		doc.IsActive = request.IsActive
		now := time.Now()
		doc.UpdatedAt = &now

		if err := uow.Begin(ctx); err != nil {
			return nil, err
		}
		defer uow.Rollback()

		if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, err
		}

		ds.propagateTransition(ctx, doc)
		ds.publishSync(ctx, "document_activation_changed")
	}

	return toDocumentResponse(doc), nil
}

// ResyncMaster reconciles the master index against the full active set on
// demand. Admin escape hatch for drift.
func (ds *documentService) ResyncMaster(ctx context.Context) (*dto.ResyncMasterResponse, error) {
	uow := ds.uowFactory.NewUnitOfWork(ctx)

	fileIds, err := activeFileIds(ctx, uow)
	if err != nil {
		return nil, err
	}

	result, err := ds.masterManager.Sync(ctx, fileIds)
	if err != nil {
		return nil, err
	}
	return &dto.ResyncMasterResponse{
		Added:   result.Added,
		Removed: result.Removed,
		Failed:  result.Failed,
	}, nil
}

func (ds *documentService) propagateTransition(ctx context.Context, doc *entity.Document) {
	var err error
	if doc.IsActive {
		err = ds.masterManager.Add(ctx, doc.ProviderFileId)
	} else {
		err = ds.masterManager.Remove(ctx, doc.ProviderFileId)
	}
	if err != nil {
		ds.logger.Warn("document-service", "Master transition failed", map[string]interface{}{
			"document_id": doc.Id.String(), "is_active": doc.IsActive, "error": err.Error(),
		})
	}

	// Legacy dual-write: documents carrying a dedicated index keep it in
	// step until the migration away from per-document indexes completes.
	if doc.DedicatedIndexId == nil {
		return
	}
	if doc.IsActive {
		err = ds.provider.AddFile(ctx, *doc.DedicatedIndexId, doc.ProviderFileId)
	} else {
		err = ds.provider.RemoveFile(ctx, *doc.DedicatedIndexId, doc.ProviderFileId)
	}
	if err != nil {
		ds.logger.Warn("document-service", "Dedicated index dual-write failed", map[string]interface{}{
			"document_id": doc.Id.String(), "index_id": *doc.DedicatedIndexId, "error": err.Error(),
		})
	}
}

func (ds *documentService) publishSync(ctx context.Context, reason string) {
	payload, err := json.Marshal(dto.PublishMasterSyncMessage{Reason: reason})
	if err != nil {
		return
	}
	if err := ds.publisherService.Publish(ctx, payload); err != nil {
		ds.logger.Warn("document-service", "Failed to publish sync event", map[string]interface{}{
			"reason": reason, "error": err.Error(),
		})
	}
}

// activeFileIds collects provider file ids across every active document.
func activeFileIds(ctx context.Context, uow unitofwork.UnitOfWork) ([]string, error) {
	docs, err := uow.DocumentRepository().FindAll(ctx, specification.ActiveOnly{})
	if err != nil {
		return nil, err
	}
	fileIds := make([]string, 0, len(docs))
	for _, doc := range docs {
		fileIds = append(fileIds, doc.ProviderFileId)
	}
	return fileIds, nil
}

func toDocumentResponse(doc *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:             doc.Id,
		Title:          doc.Title,
		ProviderFileId: doc.ProviderFileId,
		IsActive:       doc.IsActive,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}
