package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"askdocs-be/internal/constant"
	"askdocs-be/internal/dto"
	"askdocs-be/internal/entity"
	"askdocs-be/internal/pkg/logger"
	"askdocs-be/internal/repository/contract"
	"askdocs-be/internal/repository/specification"
	"askdocs-be/internal/repository/unitofwork"
	"askdocs-be/pkg/answer"
	"askdocs-be/pkg/index"
	"askdocs-be/pkg/index/indextest"
	"askdocs-be/pkg/index/master"
	"askdocs-be/pkg/index/readiness"
	"askdocs-be/pkg/index/routing"
	"askdocs-be/pkg/index/scoped"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory unit of work capturing persisted rows.

type memDocumentRepository struct {
	contract.DocumentRepository
	docs []*entity.Document
}

func (m *memDocumentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	return m.docs, nil
}

func (m *memDocumentRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(m.docs)), nil
}

type memSessionRepository struct {
	contract.ChatSessionRepository
	sessions []*entity.ChatSession
}

func (m *memSessionRepository) Create(ctx context.Context, session *entity.ChatSession) error {
	m.sessions = append(m.sessions, session)
	return nil
}

func (m *memSessionRepository) Update(ctx context.Context, session *entity.ChatSession) error {
	return nil
}

func (m *memSessionRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	if len(m.sessions) == 0 {
		return nil, nil
	}
	return m.sessions[0], nil
}

type memMessageRepository struct {
	contract.ChatMessageRepository
	messages []*entity.ChatMessage
}

func (m *memMessageRepository) Create(ctx context.Context, message *entity.ChatMessage) error {
	m.messages = append(m.messages, message)
	return nil
}

func (m *memMessageRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	return m.messages, nil
}

type memUow struct {
	unitofwork.UnitOfWork
	docs      *memDocumentRepository
	sessions  *memSessionRepository
	messages  *memMessageRepository
	commits   int
	rollbacks int
}

func (m *memUow) Begin(ctx context.Context) error { return nil }
func (m *memUow) Commit() error                   { m.commits++; return nil }
func (m *memUow) Rollback() error                 { m.rollbacks++; return nil }

func (m *memUow) DocumentRepository() contract.DocumentRepository {
	return m.docs
}

func (m *memUow) ChatSessionRepository() contract.ChatSessionRepository {
	return m.sessions
}

func (m *memUow) ChatMessageRepository() contract.ChatMessageRepository {
	return m.messages
}

type memFactory struct {
	uow *memUow
}

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

func newMemUow(docs ...*entity.Document) *memUow {
	return &memUow{
		docs:     &memDocumentRepository{docs: docs},
		sessions: &memSessionRepository{},
		messages: &memMessageRepository{},
	}
}

type staticInstructions struct{}

func (staticInstructions) SystemInstructions(ctx context.Context) string {
	return constant.DefaultSystemInstructions
}

// stubEngine answers every completion with fixed text.
type stubEngine struct {
	text   string
	tokens int
}

func (s *stubEngine) Complete(ctx context.Context, messages []answer.Message) (string, int, error) {
	return s.text, s.tokens, nil
}

func (s *stubEngine) StartGroundedJob(ctx context.Context, indexIds []string, messages []answer.Message) (*answer.Job, error) {
	return &answer.Job{Id: "job-1", Status: answer.JobCompleted, TokensUsed: s.tokens}, nil
}

func (s *stubEngine) PollGroundedJob(ctx context.Context, job *answer.Job) (*answer.Job, error) {
	return job, nil
}

func (s *stubEngine) FetchJobSegments(ctx context.Context, job *answer.Job) ([]answer.Segment, error) {
	return []answer.Segment{{Kind: answer.SegmentText, Text: s.text}}, nil
}

func newTestService(uow *memUow, provider index.Provider, engine answer.Engine) IChatbotService {
	log := logger.NewNoopLogger()
	waiter := readiness.NewWaiter(provider, log)
	waiter.Interval = 1 * time.Millisecond
	waiter.SettleDelay = 1 * time.Millisecond
	masterManager := master.NewManager(provider, log)
	scopedCache := scoped.NewCache(provider, waiter, log)
	router := routing.NewRouter(provider, masterManager, scopedCache, waiter, log)

	generator := answer.NewGenerator(engine, staticInstructions{}, log)
	generator.PollInterval = 1 * time.Millisecond

	return NewChatbotService(&memFactory{uow: uow}, router, generator, log)
}

func activeDoc(fileId string) *entity.Document {
	return &entity.Document{
		Id:             uuid.New(),
		Title:          "doc " + fileId,
		ProviderFileId: fileId,
		IsActive:       true,
		UserId:         uuid.New(),
		CreatedAt:      time.Now(),
	}
}

func TestSendChatGroundedSuccess(t *testing.T) {
	provider := indextest.NewFakeProvider()
	provider.Seed(master.IndexName, index.StatusReady, "file-1")
	uow := newMemUow(activeDoc("file-1"))
	svc := newTestService(uow, provider, &stubEngine{text: "grounded answer", tokens: 21})

	res, err := svc.SendChat(context.Background(), uuid.New(), &dto.SendChatRequest{Chat: "what does the doc say?"})
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", res.Answer)
	assert.Equal(t, 21, res.TokensUsed)
	assert.Equal(t, 1, res.ResolvedScopeCount)

	// One user turn and one assistant turn, in one committed transaction.
	require.Len(t, uow.messages.messages, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, uow.messages.messages[0].Role)
	assert.Equal(t, constant.ChatMessageRoleAssistant, uow.messages.messages[1].Role)
	assert.Equal(t, 21, uow.messages.messages[1].TokensUsed)
	assert.Equal(t, 1, uow.commits)

	// First turn of a fresh session names it after the query.
	require.Len(t, uow.sessions.sessions, 1)
	assert.Equal(t, "what does the doc say?", uow.sessions.sessions[0].Title)
}

func TestSendChatNoMatchingDocumentsPersistsPlaceholder(t *testing.T) {
	provider := indextest.NewFakeProvider()
	uow := newMemUow() // no documents at all
	svc := newTestService(uow, provider, &stubEngine{text: "unused"})

	res, err := svc.SendChat(context.Background(), uuid.New(), &dto.SendChatRequest{
		Chat:        "question",
		DocumentIds: []uuid.UUID{uuid.New()},
	})
	require.NoError(t, err)
	assert.Equal(t, constant.MsgNoMatchingDocuments, res.Answer)
	assert.Equal(t, 0, res.TokensUsed)
	assert.Equal(t, 0, res.ResolvedScopeCount)

	// Zero cost: no provider call was made, yet both turns are persisted.
	assert.Equal(t, 0, provider.Creates)
	assert.Equal(t, 0, provider.Gets)
	require.Len(t, uow.messages.messages, 2)
	assert.Equal(t, constant.MsgNoMatchingDocuments, uow.messages.messages[1].Chat)
	assert.Equal(t, 1, uow.commits)
}

func TestSendChatEmptyDocumentListPersistsPlaceholder(t *testing.T) {
	provider := indextest.NewFakeProvider()
	provider.Seed(master.IndexName, index.StatusReady, "file-1")
	uow := newMemUow(activeDoc("file-1"))
	svc := newTestService(uow, provider, &stubEngine{text: "unused"})

	// Explicitly scoping to zero documents matches nothing, even with an
	// active corpus available.
	res, err := svc.SendChat(context.Background(), uuid.New(), &dto.SendChatRequest{
		Chat:        "question",
		DocumentIds: []uuid.UUID{},
	})
	require.NoError(t, err)
	assert.Equal(t, constant.MsgNoMatchingDocuments, res.Answer)
	assert.Equal(t, 0, res.TokensUsed)
	assert.Equal(t, 0, res.ResolvedScopeCount)

	assert.Equal(t, 0, provider.Creates)
	assert.Equal(t, 0, provider.Gets)
	require.Len(t, uow.messages.messages, 2)
	assert.Equal(t, constant.MsgNoMatchingDocuments, uow.messages.messages[1].Chat)
	assert.Equal(t, 1, uow.commits)
}

func TestSendChatProviderUnavailablePersistsTurns(t *testing.T) {
	provider := indextest.NewFakeProvider()
	provider.FindErr = errors.New("connection refused")
	uow := newMemUow(activeDoc("file-1"))
	svc := newTestService(uow, provider, &stubEngine{text: "unused"})

	res, err := svc.SendChat(context.Background(), uuid.New(), &dto.SendChatRequest{Chat: "question"})
	require.NoError(t, err)
	assert.Equal(t, constant.MsgProviderUnavailable, res.Answer)
	assert.Equal(t, 0, res.TokensUsed)

	require.Len(t, uow.messages.messages, 2)
	assert.Equal(t, constant.MsgProviderUnavailable, uow.messages.messages[1].Chat)
	assert.Equal(t, 1, uow.commits)
}

func TestSendChatUngroundedWhenNoActiveDocuments(t *testing.T) {
	provider := indextest.NewFakeProvider()
	uow := newMemUow() // no documents, no explicit ids
	svc := newTestService(uow, provider, &stubEngine{text: "general knowledge answer", tokens: 9})

	res, err := svc.SendChat(context.Background(), uuid.New(), &dto.SendChatRequest{Chat: "question"})
	require.NoError(t, err)
	assert.Equal(t, "general knowledge answer\n\n"+constant.MsgNoActiveDocuments, res.Answer)
	assert.Equal(t, 9, res.TokensUsed)
	assert.Equal(t, 0, res.ResolvedScopeCount)
	assert.Equal(t, 0, provider.Creates)
}

func TestSendChatRejectsForeignSession(t *testing.T) {
	provider := indextest.NewFakeProvider()
	uow := newMemUow()
	svc := newTestService(uow, provider, &stubEngine{text: "unused"})

	_, err := svc.SendChat(context.Background(), uuid.New(), &dto.SendChatRequest{
		Chat:          "question",
		ChatSessionId: uuid.New(), // unknown session
	})
	require.Error(t, err)
	assert.Empty(t, uow.messages.messages)
}
