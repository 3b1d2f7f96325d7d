package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/zavatech/agent-concierge/internal/metrics"
	"github.com/zavatech/agent-concierge/internal/platform"
	"github.com/zavatech/agent-concierge/internal/tools"
	"github.com/zavatech/agent-concierge/pkg/logger"
)

// maxToolRounds bounds the submit-tool-outputs loop for a single message so a
// misbehaving run cannot hold the session forever.
const maxToolRounds = 10

// Processor submits user messages to one platform agent and streams back the
// response, resolving tool calls against the agent's static toolset.
// Processors are reusable across sessions and safe for concurrent use.
type Processor struct {
	client     *platform.Client
	descriptor Descriptor
	toolset    []tools.Definition
	toolSpecs  []platform.ToolSpec
	metrics    *metrics.Metrics
	log        logger.Logger
}

// NewProcessor creates a processor for the given descriptor and toolset
func NewProcessor(client *platform.Client, descriptor Descriptor, toolset []tools.Definition, m *metrics.Metrics, log logger.Logger) *Processor {
	specs := make([]platform.ToolSpec, 0, len(toolset))
	for _, def := range toolset {
		specs = append(specs, platform.ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}

	return &Processor{
		client:     client,
		descriptor: descriptor,
		toolset:    toolset,
		toolSpecs:  specs,
		metrics:    m,
		log: log.WithFields(
			logger.StringField("component", "processor"),
			logger.StringField("agent_type", descriptor.Type)),
	}
}

// AgentType returns the agent type label this processor serves.
func (p *Processor) AgentType() string {
	return p.descriptor.Type
}

// Send submits a user message to the thread and returns a finite sequence of
// response text fragments. The sequence ends when the platform signals run
// completion; cancelling ctx aborts the in-flight platform call.
func (p *Processor) Send(ctx context.Context, threadID, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := p.client.CreateMessage(ctx, threadID, message); err != nil {
			yield("", err)
			return
		}

		stream, err := p.client.StreamRun(ctx, threadID, p.descriptor.AgentID, p.toolSpecs)
		if err != nil {
			yield("", err)
			return
		}
		defer func() { _ = stream.Close() }()

		for round := 0; ; round++ {
			event, err := p.drain(stream, yield)
			if err != nil {
				yield("", err)
				return
			}

			switch {
			case event == nil:
				// consumer stopped iterating
				return
			case event.Kind == platform.EventCompleted:
				return
			case event.Kind == platform.EventFailed:
				yield("", fmt.Errorf("agent run failed: %s", event.ErrorMsg))
				return
			case event.Kind == platform.EventToolCalls:
				if round >= maxToolRounds {
					yield("", fmt.Errorf("agent run exceeded %d tool rounds", maxToolRounds))
					return
				}
				outputs := p.resolveToolCalls(ctx, event.ToolCalls)
				_ = stream.Close()
				stream, err = p.client.SubmitToolOutputs(ctx, threadID, event.RunID, outputs)
				if err != nil {
					yield("", err)
					return
				}
			}
		}
	}
}

// drain forwards fragments until the stream yields a terminal event or ends.
// A nil event with nil error means the consumer stopped or the stream ended
// without a terminal event.
func (p *Processor) drain(stream *platform.RunStream, yield func(string, error) bool) (*platform.Event, error) {
	for stream.Next() {
		event := stream.Current()
		if event.Kind == platform.EventFragment {
			if !yield(event.Text, nil) {
				return nil, nil
			}
			continue
		}
		return &event, nil
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	// Stream ended without completion marker: treat as completed
	return &platform.Event{Kind: platform.EventCompleted}, nil
}

// resolveToolCalls invokes the matching local function for each requested
// tool call. Failures produce empty result lists, never errors - the platform
// only ever sees structured output.
func (p *Processor) resolveToolCalls(ctx context.Context, calls []platform.ToolCall) []platform.ToolOutput {
	outputs := make([]platform.ToolOutput, 0, len(calls))

	for _, call := range calls {
		outputs = append(outputs, platform.ToolOutput{
			ToolCallID: call.ID,
			Output:     p.invokeTool(ctx, call),
		})
	}
	return outputs
}

func (p *Processor) invokeTool(ctx context.Context, call platform.ToolCall) string {
	const empty = "[]"

	def, ok := p.lookupTool(call.Name)
	if !ok {
		p.log.Warn("Platform requested unknown tool", logger.StringField("tool", call.Name))
		return empty
	}

	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			p.log.Warn("Failed to parse tool arguments",
				logger.StringField("tool", call.Name),
				logger.ErrorField(err))
			return empty
		}
	}

	p.metrics.ToolCall(call.Name)
	records := def.Handler(ctx, args)
	if records == nil {
		records = []tools.Record{}
	}

	payload, err := json.Marshal(records)
	if err != nil {
		p.log.Warn("Failed to marshal tool result",
			logger.StringField("tool", call.Name),
			logger.ErrorField(err))
		return empty
	}
	return string(payload)
}

func (p *Processor) lookupTool(name string) (tools.Definition, bool) {
	for _, def := range p.toolset {
		if def.Name == name {
			return def, true
		}
	}
	return tools.Definition{}, false
}
