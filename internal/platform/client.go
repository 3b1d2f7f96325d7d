// Package platform drives the hosted agent platform's assistants surface.
// The platform owns conversation threads, agent runs, model invocation and
// the tool-calling loop; this client only creates threads, submits messages
// and relays run streams.
package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"

	"github.com/zavatech/agent-concierge/pkg/logger"
)

// Config holds configuration for the platform client
type Config struct {
	// Client is the shared API client; the caller wires endpoint and
	// credentials into it.
	Client *openai.Client

	// Timeout bounds request/response calls. Run streams are exempt and
	// end through context cancellation instead.
	Timeout time.Duration

	Logger logger.Logger
}

// Client talks to the agent platform's threads/runs API.
type Client struct {
	api     *openai.Client
	timeout time.Duration
	log     logger.Logger
}

// NewClient creates a new platform client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("api client is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		api:     cfg.Client,
		timeout: cfg.Timeout,
		log:     cfg.Logger.WithFields(logger.StringField("component", "platform_client")),
	}, nil
}

// CreateThread creates a new conversation thread and returns its identifier.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	thread, err := c.api.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	if thread.ID == "" {
		return "", fmt.Errorf("platform returned empty thread id")
	}

	c.log.Debug("Created platform thread", logger.StringField("thread_id", thread.ID))
	return thread.ID, nil
}

// DeleteThread deletes a conversation thread. Best effort - the platform may
// retain thread state regardless.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.api.Beta.Threads.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	return nil
}

// CreateMessage appends a user message to the thread.
func (c *Client) CreateMessage(ctx context.Context, threadID, content string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.api.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role:    openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{OfString: openai.String(content)},
	})
	if err != nil {
		return fmt.Errorf("failed to add message to thread %s: %w", threadID, err)
	}
	return nil
}

// StreamRun starts a streamed run of the given agent on the thread.
// The caller must Close the returned stream.
func (c *Client) StreamRun(ctx context.Context, threadID, agentID string, tools []ToolSpec) (*RunStream, error) {
	params := openai.BetaThreadRunNewParams{AssistantID: agentID}
	if len(tools) > 0 {
		params.Tools = assistantTools(tools)
	}

	stream := c.api.Beta.Threads.Runs.NewStreaming(ctx, threadID, params)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to start run on thread %s: %w", threadID, err)
	}
	return newRunStream(stream), nil
}

// SubmitToolOutputs resumes a paused run with resolved tool results and
// continues streaming the remainder of the run.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*RunStream, error) {
	params := openai.BetaThreadRunSubmitToolOutputsParams{
		ToolOutputs: make([]openai.BetaThreadRunSubmitToolOutputsParamsToolOutput, 0, len(outputs)),
	}
	for _, out := range outputs {
		params.ToolOutputs = append(params.ToolOutputs, openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: openai.String(out.ToolCallID),
			Output:     openai.String(out.Output),
		})
	}

	stream := c.api.Beta.Threads.Runs.SubmitToolOutputsStreaming(ctx, threadID, runID, params)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to submit tool outputs for run %s: %w", runID, err)
	}
	return newRunStream(stream), nil
}
