// Package router implements the handoff router: a small classifier call that
// picks which specialized agent should answer the next message.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"

	"github.com/zavatech/agent-concierge/pkg/logger"
)

// Known agent type labels. The classifier output is coerced onto this closed
// set; anything else downgrades to DefaultAgent.
const (
	AgentCora             = "cora"
	AgentInteriorDesigner = "interior_designer"
	AgentCustomerLoyalty  = "customer_loyalty"
	AgentInventory        = "inventory_agent"

	// DefaultAgent is the general conversational agent used as fallback
	DefaultAgent = AgentCora
)

// KnownAgentTypes returns all routable agent type labels.
func KnownAgentTypes() []string {
	return []string{AgentCora, AgentInteriorDesigner, AgentCustomerLoyalty, AgentInventory}
}

const routingInstruction = `You are a message router for Zava, a home improvement retailer.
Classify the customer's latest message and reply with exactly one label:

- interior_designer: room design, decoration, color schemes, visualising spaces
- customer_loyalty: loyalty program, membership tiers, discounts, rewards
- inventory_agent: stock levels, product availability, finding items in store
- cora: greetings, general conversation, anything else

Reply with the label only. No punctuation, no explanation.`

// Turn is one message of the running conversation history.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Config holds configuration for the handoff router
type Config struct {
	Client     *openai.Client
	Deployment string
	MaxHistory int
	Timeout    time.Duration
	Logger     logger.Logger
}

// Router chooses an agent type for each incoming message.
type Router struct {
	client     *openai.Client
	deployment string
	maxHistory int
	timeout    time.Duration
	labels     map[string]bool
	log        logger.Logger
}

// New creates a new handoff router
func New(cfg Config) (*Router, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("openai client is required")
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("router model deployment is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	labels := make(map[string]bool)
	for _, label := range KnownAgentTypes() {
		labels[label] = true
	}

	return &Router{
		client:     cfg.Client,
		deployment: cfg.Deployment,
		maxHistory: cfg.MaxHistory,
		timeout:    cfg.Timeout,
		labels:     labels,
		log:        cfg.Logger.WithFields(logger.StringField("component", "handoff_router")),
	}, nil
}

// Route classifies the conversation and returns an agent type label.
// It never fails: classifier errors and unrecognized labels downgrade to
// DefaultAgent without retrying.
func (r *Router) Route(ctx context.Context, history []Turn) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if len(history) > r.maxHistory {
		history = history[len(history)-r.maxHistory:]
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(routingInstruction))
	for _, turn := range history {
		if turn.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(turn.Content))
		} else {
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       r.deployment,
		Messages:    messages,
		MaxTokens:   openai.Int(8),
		Temperature: openai.Float(0),
	})
	if err != nil {
		r.log.Warn("Routing call failed, using default agent",
			logger.StringField("default", DefaultAgent),
			logger.ErrorField(err))
		return DefaultAgent
	}
	if len(completion.Choices) == 0 {
		r.log.Warn("Routing call returned no choices, using default agent")
		return DefaultAgent
	}

	return r.coerceLabel(completion.Choices[0].Message.Content)
}

// coerceLabel validates raw classifier output against the known label set.
func (r *Router) coerceLabel(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.Trim(label, `"'.`)

	if r.labels[label] {
		return label
	}

	r.log.Warn("Unrecognized routing label, using default agent",
		logger.StringField("label", raw),
		logger.StringField("default", DefaultAgent))
	return DefaultAgent
}
