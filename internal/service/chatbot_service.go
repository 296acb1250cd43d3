package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"askdocs-be/internal/constant"
	"askdocs-be/internal/dto"
	"askdocs-be/internal/entity"
	"askdocs-be/internal/pkg/logger"
	"askdocs-be/internal/repository/specification"
	"askdocs-be/internal/repository/unitofwork"
	"askdocs-be/pkg/answer"
	"askdocs-be/pkg/index"
	"askdocs-be/pkg/index/routing"

	"github.com/google/uuid"
)

const sessionTitleMaxLen = 60

// IChatbotService defines the chatbot service interface
type IChatbotService interface {
	CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error
}

// chatbotService coordinates query routing and answer generation. A user and
// an assistant turn are persisted for every query, including degraded ones,
// so the conversation log never has holes.
type chatbotService struct {
	uowFactory unitofwork.RepositoryFactory
	router     *routing.Router
	generator  *answer.Generator
	logger     logger.ILogger
}

func NewChatbotService(
	uowFactory unitofwork.RepositoryFactory,
	router *routing.Router,
	generator *answer.Generator,
	log logger.ILogger,
) IChatbotService {
	return &chatbotService{
		uowFactory: uowFactory,
		router:     router,
		generator:  generator,
		logger:     log,
	}
}

// CreateSession creates a new chat session
func (cs *chatbotService) CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     "Unnamed session",
		CreatedAt: time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions retrieves all chat sessions
func (cs *chatbotService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return response, nil
}

// GetChatHistory retrieves chat history for a session
func (cs *chatbotService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		resp = append(resp, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Chat:      msg.Chat,
			CreatedAt: msg.CreatedAt,
		})
	}

	return resp, nil
}

// SendChat answers one query. Routing resolves the index scope, generation
// produces the answer, and both turns are persisted in one transaction no
// matter which path the query took.
func (cs *chatbotService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, isNew, err := cs.resolveSession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return nil, err
	}

	history, err := cs.loadHistory(ctx, uow, chatSession.Id)
	if err != nil {
		return nil, err
	}

	outcome := cs.produceAnswer(ctx, uow, userId, request, history)

	now := time.Now()
	userMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          request.Chat,
		Role:          constant.ChatMessageRoleUser,
		ChatSessionId: chatSession.Id,
		CreatedAt:     now,
	}
	assistantMessage := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          outcome.answerText,
		Role:          constant.ChatMessageRoleAssistant,
		TokensUsed:    outcome.tokensUsed,
		ElapsedMs:     outcome.elapsedMs,
		ChatSessionId: chatSession.Id,
		CreatedAt:     now.Add(1 * time.Millisecond),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if isNew {
		if err := uow.ChatSessionRepository().Create(ctx, chatSession); err != nil {
			return nil, err
		}
	}
	if err := uow.ChatMessageRepository().Create(ctx, &userMessage); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &assistantMessage); err != nil {
		return nil, err
	}

	if len(history) == 0 {
		chatSession.Title = truncateTitle(request.Chat)
		updated := now
		chatSession.UpdatedAt = &updated
		if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.SendChatResponse{
		ChatSessionId:      chatSession.Id,
		Answer:             outcome.answerText,
		TokensUsed:         outcome.tokensUsed,
		ElapsedMs:          outcome.elapsedMs,
		ResolvedScopeCount: outcome.scopeCount,
	}, nil
}

// DeleteSession removes a chat session and its messages
func (cs *chatbotService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: request.ChatSessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session not found or access denied")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		return err
	}

	return uow.Commit()
}

// answerOutcome is the per-query result that gets persisted. Degraded paths
// land here as placeholder text with zero tokens rather than as errors.
type answerOutcome struct {
	answerText string
	tokensUsed int
	elapsedMs  int64
	scopeCount int
}

// produceAnswer routes the query and runs generation, mapping every failure
// class onto a user-facing message. It never returns an error: the caller
// persists whatever comes back.
func (cs *chatbotService) produceAnswer(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	userId uuid.UUID,
	request *dto.SendChatRequest,
	history []answer.Message,
) *answerOutcome {
	started := time.Now()

	resolution, err := cs.router.Resolve(ctx, uow, userId, request.DocumentIds)
	if err != nil {
		return cs.degradedOutcome("routing", err, started)
	}

	if resolution.NoMatches {
		// Zero cost: no index was touched and no generation runs.
		return &answerOutcome{
			answerText: constant.MsgNoMatchingDocuments,
			elapsedMs:  time.Since(started).Milliseconds(),
		}
	}

	if resolution.Degraded {
		return &answerOutcome{
			answerText: constant.MsgIndexStillProcessing,
			elapsedMs:  time.Since(started).Milliseconds(),
			scopeCount: resolution.ScopeCount,
		}
	}

	result, err := cs.generator.Generate(ctx, request.Chat, history, resolution.IndexIds())
	if err != nil {
		outcome := cs.degradedOutcome("generation", err, started)
		outcome.scopeCount = resolution.ScopeCount
		return outcome
	}

	answerText := result.Answer
	if len(resolution.Handles) == 0 {
		// Ungrounded answer: no document backed it, tell the user so.
		answerText = result.Answer + "\n\n" + constant.MsgNoActiveDocuments
	}

	return &answerOutcome{
		answerText: answerText,
		tokensUsed: result.TokensUsed,
		elapsedMs:  result.ElapsedMs,
		scopeCount: resolution.ScopeCount,
	}
}

// degradedOutcome translates an internal failure into the persisted
// user-facing message for it.
func (cs *chatbotService) degradedOutcome(stage string, err error, started time.Time) *answerOutcome {
	cs.logger.Error("chatbot-service", "Query degraded", map[string]interface{}{
		"stage": stage, "error": err.Error(),
	})

	text := constant.MsgGenerationFailed
	var failed *index.IndexFailedError
	switch {
	case errors.Is(err, index.ErrProviderUnavailable):
		text = constant.MsgProviderUnavailable
	case errors.As(err, &failed), errors.Is(err, index.ErrIndexNotReady):
		text = constant.MsgIndexStillProcessing
	}

	return &answerOutcome{
		answerText: text,
		elapsedMs:  time.Since(started).Milliseconds(),
	}
}

// resolveSession loads the addressed session or prepares a fresh one when the
// request carries no session id. A new session is only persisted together
// with its first two turns.
func (cs *chatbotService) resolveSession(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID) (*entity.ChatSession, bool, error) {
	if sessionId == uuid.Nil {
		return &entity.ChatSession{
			Id:        uuid.New(),
			UserId:    userId,
			Title:     "Unnamed session",
			CreatedAt: time.Now(),
		}, true, nil
	}

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, false, err
	}
	if sess == nil {
		return nil, false, fmt.Errorf("session not found or access denied")
	}
	return sess, false, nil
}

func (cs *chatbotService) loadHistory(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID) ([]answer.Message, error) {
	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	history := make([]answer.Message, 0, len(chatMessages))
	for _, msg := range chatMessages {
		history = append(history, answer.Message{
			Role:    msg.Role,
			Content: msg.Chat,
		})
	}
	return history, nil
}

func truncateTitle(chat string) string {
	runes := []rune(chat)
	if len(runes) <= sessionTitleMaxLen {
		return chat
	}
	return string(runes[:sessionTitleMaxLen]) + "..."
}
