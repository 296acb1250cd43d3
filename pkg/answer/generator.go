package answer

import (
	"context"
	"fmt"
	"time"

	"askdocs-be/internal/pkg/logger"
)

// Latency targets are aspirational: generation is dominated by network-bound
// provider calls, but classifying every answer keeps regressions visible.
const (
	latencyAchieved   = 5 * time.Millisecond
	latencyAcceptable = 20 * time.Millisecond
)

const ungroundedGuidance = "You have no documents to search for this question. " +
	"Answer from general knowledge when you safely can, and say plainly when you " +
	"do not have enough evidence to answer."

// InstructionSource supplies the system instructions, typically a TTL-cached
// configuration value.
type InstructionSource interface {
	SystemInstructions(ctx context.Context) string
}

// Result is what every generation path returns, success or not.
type Result struct {
	Answer       string
	TokensUsed   int
	ElapsedMs    int64
	Grounded     bool
	LatencyClass string
}

// Generator produces answers against resolved index handles, or ungrounded
// when there are none.
type Generator struct {
	engine       Engine
	instructions InstructionSource
	logger       logger.ILogger

	// Poll pacing for grounded jobs; overridable for tests.
	PollInterval    time.Duration
	MaxPollAttempts int
	HistoryWindow   int
}

func NewGenerator(engine Engine, instructions InstructionSource, log logger.ILogger) *Generator {
	return &Generator{
		engine:          engine,
		instructions:    instructions,
		logger:          log,
		PollInterval:    2 * time.Second,
		MaxPollAttempts: 30,
		HistoryWindow:   10,
	}
}

// Generate answers the query. With index ids the grounded path is used; with
// none the engine completes ungrounded. Elapsed time and token usage are
// reported on every path.
func (g *Generator) Generate(ctx context.Context, query string, history []Message, indexIds []string) (*Result, error) {
	started := time.Now()

	messages := g.buildMessages(ctx, query, history, len(indexIds) == 0)

	var (
		text   string
		tokens int
		err    error
	)
	if len(indexIds) == 0 {
		text, tokens, err = g.engine.Complete(ctx, messages)
	} else {
		text, tokens, err = g.generateGrounded(ctx, indexIds, messages)
	}
	elapsed := time.Since(started)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Answer:       text,
		TokensUsed:   tokens,
		ElapsedMs:    elapsed.Milliseconds(),
		Grounded:     len(indexIds) > 0,
		LatencyClass: classifyLatency(elapsed),
	}
	g.logger.Info("answer-generator", "Answer generated", map[string]interface{}{
		"grounded": result.Grounded, "tokens": tokens,
		"elapsed_ms": result.ElapsedMs, "latency": result.LatencyClass,
	})
	return result, nil
}

// buildMessages assembles system instructions, a trailing window of prior
// turns and the current query.
func (g *Generator) buildMessages(ctx context.Context, query string, history []Message, ungrounded bool) []Message {
	system := g.instructions.SystemInstructions(ctx)
	if ungrounded {
		system = system + "\n\n" + ungroundedGuidance
	}

	window := history
	if len(window) > g.HistoryWindow {
		window = window[len(window)-g.HistoryWindow:]
	}

	messages := make([]Message, 0, len(window)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: system})
	messages = append(messages, window...)
	messages = append(messages, Message{Role: RoleUser, Content: query})
	return messages
}

func (g *Generator) generateGrounded(ctx context.Context, indexIds []string, messages []Message) (string, int, error) {
	job, err := g.engine.StartGroundedJob(ctx, indexIds, messages)
	if err != nil {
		return "", 0, err
	}

	for attempt := 0; !job.Status.Terminal(); attempt++ {
		if attempt >= g.MaxPollAttempts {
			return "", 0, fmt.Errorf("%w: job %s still %s after %d polls",
				ErrGenerationFailed, job.Id, job.Status, attempt)
		}
		if err := sleepCtx(ctx, g.PollInterval); err != nil {
			return "", 0, err
		}
		job, err = g.engine.PollGroundedJob(ctx, job)
		if err != nil {
			return "", 0, err
		}
	}

	if job.Status != JobCompleted {
		g.logger.Error("answer-generator", "Grounded job failed", map[string]interface{}{
			"job_id": job.Id, "status": string(job.Status), "reason": job.FailureReason,
		})
		return "", 0, fmt.Errorf("%w: job %s ended %s: %s",
			ErrGenerationFailed, job.Id, job.Status, job.FailureReason)
	}

	segments, err := g.engine.FetchJobSegments(ctx, job)
	if err != nil {
		return "", 0, err
	}
	return ExtractAnswer(segments), job.TokensUsed, nil
}

func classifyLatency(elapsed time.Duration) string {
	switch {
	case elapsed <= latencyAchieved:
		return "achieved"
	case elapsed <= latencyAcceptable:
		return "acceptable"
	default:
		return "missed"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
