package platform

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// ToolSpec describes one callable function attached to a run.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a function invocation requested by the platform mid-run.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON argument payload
}

// ToolOutput carries a resolved tool call result back to the platform.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// EventKind classifies run stream events.
type EventKind int

const (
	// EventFragment carries a chunk of assistant text
	EventFragment EventKind = iota
	// EventToolCalls means the run is paused awaiting tool outputs
	EventToolCalls
	// EventCompleted means the run finished successfully
	EventCompleted
	// EventFailed means the run ended in a terminal error state
	EventFailed
)

// Event is one decoded run stream event.
type Event struct {
	Kind      EventKind
	Text      string // set for EventFragment
	RunID     string
	ToolCalls []ToolCall // set for EventToolCalls
	ErrorMsg  string     // set for EventFailed
}

// assistantTools converts tool specs into the function tool params attached
// to a run request.
func assistantTools(specs []ToolSpec) []openai.AssistantToolUnionParam {
	params := make([]openai.AssistantToolUnionParam, 0, len(specs))
	for _, spec := range specs {
		fn := shared.FunctionDefinitionParam{
			Name:       spec.Name,
			Parameters: shared.FunctionParameters(spec.Parameters),
		}
		if spec.Description != "" {
			fn.Description = openai.String(spec.Description)
		}
		params = append(params, openai.AssistantToolParamOfFunction(fn))
	}
	return params
}
