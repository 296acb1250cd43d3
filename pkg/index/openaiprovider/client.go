package openaiprovider

import (
	"context"
	"sync"

	"askdocs-be/pkg/answer"
	"askdocs-be/pkg/index"

	openai "github.com/sashabaranov/go-openai"
)

const (
	assistantName = "askdocs-answerer"
	listPageSize  = 100

	// Anchor for provider-side inactivity expiry of vector stores.
	expiryAnchor = "last_active_at"
)

// Client adapts OpenAI vector stores and assistant runs to the index.Provider
// and answer.Engine contracts.
type Client struct {
	api   *openai.Client
	model string

	mu          sync.Mutex
	assistantId string
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// --- index.Provider ---

func (c *Client) CreateIndex(ctx context.Context, name string, expiry index.ExpiryPolicy) (*index.Handle, error) {
	store, err := c.api.CreateVectorStore(ctx, openai.VectorStoreRequest{
		Name: name,
		ExpiresAfter: &openai.VectorStoreExpires{
			Anchor: expiryAnchor,
			Days:   expiry.Days,
		},
	})
	if err != nil {
		return nil, err
	}
	return toHandle(store), nil
}

func (c *Client) GetIndex(ctx context.Context, indexId string) (*index.Handle, error) {
	store, err := c.api.RetrieveVectorStore(ctx, indexId)
	if err != nil {
		return nil, err
	}
	return toHandle(store), nil
}

func (c *Client) DeleteIndex(ctx context.Context, indexId string) error {
	_, err := c.api.DeleteVectorStore(ctx, indexId)
	return err
}

func (c *Client) FindIndexByName(ctx context.Context, name string) (*index.Handle, error) {
	limit := listPageSize
	list, err := c.api.ListVectorStores(ctx, openai.Pagination{Limit: &limit})
	if err != nil {
		return nil, err
	}
	for _, store := range list.VectorStores {
		if store.Name == name {
			return toHandle(store), nil
		}
	}
	return nil, nil
}

func (c *Client) AddFile(ctx context.Context, indexId, fileId string) error {
	_, err := c.api.CreateVectorStoreFile(ctx, indexId, openai.VectorStoreFileRequest{
		FileID: fileId,
	})
	return err
}

func (c *Client) RemoveFile(ctx context.Context, indexId, fileId string) error {
	return c.api.DeleteVectorStoreFile(ctx, indexId, fileId)
}

func (c *Client) ListFiles(ctx context.Context, indexId string) ([]index.Member, error) {
	limit := listPageSize
	list, err := c.api.ListVectorStoreFiles(ctx, indexId, openai.Pagination{Limit: &limit})
	if err != nil {
		return nil, err
	}
	members := make([]index.Member, 0, len(list.VectorStoreFiles))
	for _, file := range list.VectorStoreFiles {
		members = append(members, index.Member{
			FileId: file.ID,
			Status: file.Status,
		})
	}
	return members, nil
}

// toHandle normalizes a vector store into an index handle. The provider only
// distinguishes in_progress / completed / expired at the aggregate level;
// partial readiness is derived from the per-file counters.
func toHandle(store openai.VectorStore) *index.Handle {
	counts := index.MemberCounts{
		Total:      store.FileCounts.Total,
		Completed:  store.FileCounts.Completed,
		Failed:     store.FileCounts.Failed,
		InProgress: store.FileCounts.InProgress,
	}

	var status index.Status
	switch store.Status {
	case "expired":
		status = index.StatusExpired
	case "in_progress":
		status = index.StatusProcessing
	case "completed":
		if counts.Failed > 0 && counts.Completed > 0 {
			status = index.StatusPartiallyReady
		} else {
			status = index.StatusReady
		}
	default:
		status = index.StatusCreating
	}

	return &index.Handle{
		Id:     store.ID,
		Name:   store.Name,
		Status: status,
		Counts: counts,
	}
}

// --- answer.Engine ---

func (c *Client) Complete(ctx context.Context, messages []answer.Message) (string, int, error) {
	chat := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chat = append(chat, openai.ChatCompletionMessage{
			Role:    toChatRole(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: chat,
	})
	if err != nil {
		return "", 0, err
	}
	if len(resp.Choices) == 0 {
		return answer.FallbackAnswer, resp.Usage.TotalTokens, nil
	}
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}

func (c *Client) StartGroundedJob(ctx context.Context, indexIds []string, messages []answer.Message) (*answer.Job, error) {
	assistantId, err := c.ensureAssistant(ctx)
	if err != nil {
		return nil, err
	}

	// The system message rides along as run instructions; the rest becomes
	// the thread transcript.
	instructions := ""
	threadMessages := make([]openai.ThreadMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == answer.RoleSystem {
			instructions = m.Content
			continue
		}
		threadMessages = append(threadMessages, openai.ThreadMessage{
			Role:    toThreadRole(m.Role),
			Content: m.Content,
		})
	}

	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{
		Messages: threadMessages,
		ToolResources: &openai.ToolResourcesRequest{
			FileSearch: &openai.FileSearchToolResourcesRequest{
				VectorStoreIDs: indexIds,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	run, err := c.api.CreateRun(ctx, thread.ID, openai.RunRequest{
		AssistantID:  assistantId,
		Instructions: instructions,
	})
	if err != nil {
		return nil, err
	}
	return toJob(run), nil
}

func (c *Client) PollGroundedJob(ctx context.Context, job *answer.Job) (*answer.Job, error) {
	run, err := c.api.RetrieveRun(ctx, job.ThreadId, job.Id)
	if err != nil {
		return nil, err
	}
	return toJob(run), nil
}

func (c *Client) FetchJobSegments(ctx context.Context, job *answer.Job) ([]answer.Segment, error) {
	limit := 1
	order := "desc"
	list, err := c.api.ListMessage(ctx, job.ThreadId, &limit, &order, nil, nil, &job.Id)
	if err != nil {
		return nil, err
	}

	var segments []answer.Segment
	for _, message := range list.Messages {
		for _, content := range message.Content {
			switch {
			case content.Text != nil:
				segments = append(segments, answer.Segment{
					Kind: answer.SegmentText,
					Text: content.Text.Value,
				})
			case content.Type == "tool_call":
				segments = append(segments, answer.Segment{Kind: answer.SegmentToolCall})
			default:
				segments = append(segments, answer.Segment{Kind: answer.SegmentUnknown})
			}
		}
	}
	return segments, nil
}

// ensureAssistant lazily finds or creates the file-search assistant backing
// grounded runs. The id is cached for the process lifetime.
func (c *Client) ensureAssistant(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.assistantId != "" {
		return c.assistantId, nil
	}

	limit := listPageSize
	list, err := c.api.ListAssistants(ctx, &limit, nil, nil, nil)
	if err != nil {
		return "", err
	}
	for _, assistant := range list.Assistants {
		if assistant.Name != nil && *assistant.Name == assistantName {
			c.assistantId = assistant.ID
			return c.assistantId, nil
		}
	}

	name := assistantName
	created, err := c.api.CreateAssistant(ctx, openai.AssistantRequest{
		Model: c.model,
		Name:  &name,
		Tools: []openai.AssistantTool{{Type: openai.AssistantToolTypeFileSearch}},
	})
	if err != nil {
		return "", err
	}
	c.assistantId = created.ID
	return c.assistantId, nil
}

func toJob(run openai.Run) *answer.Job {
	job := &answer.Job{
		Id:         run.ID,
		ThreadId:   run.ThreadID,
		Status:     toJobStatus(run.Status),
		TokensUsed: run.Usage.TotalTokens,
	}
	if run.LastError != nil {
		job.FailureReason = run.LastError.Message
	}
	return job
}

func toJobStatus(status openai.RunStatus) answer.JobStatus {
	switch status {
	case openai.RunStatusQueued:
		return answer.JobQueued
	case openai.RunStatusCompleted:
		return answer.JobCompleted
	case openai.RunStatusFailed:
		return answer.JobFailed
	case openai.RunStatusExpired:
		return answer.JobExpired
	case openai.RunStatusCancelled:
		return answer.JobCancelled
	default:
		return answer.JobInProgress
	}
}

func toChatRole(role string) string {
	switch role {
	case answer.RoleSystem:
		return openai.ChatMessageRoleSystem
	case answer.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func toThreadRole(role string) openai.ThreadMessageRole {
	if role == answer.RoleAssistant {
		return openai.ThreadMessageRoleAssistant
	}
	return openai.ThreadMessageRoleUser
}
