package platform

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

// RunStream narrows the assistants event stream down to the events this
// service acts on.
//
// Usage follows the bufio.Scanner idiom:
//
//	for stream.Next() {
//		event := stream.Current()
//		...
//	}
//	if err := stream.Err(); err != nil { ... }
type RunStream struct {
	stream  *ssestream.Stream[openai.AssistantStreamEventUnion]
	current Event
	runID   string
	err     error
	done    bool
}

func newRunStream(stream *ssestream.Stream[openai.AssistantStreamEventUnion]) *RunStream {
	return &RunStream{stream: stream}
}

// Next advances to the next event. It returns false when the stream ends or
// fails; Err distinguishes the two.
func (s *RunStream) Next() bool {
	if s.done || s.err != nil {
		return false
	}

	for s.stream.Next() {
		event, ok := mapEvent(s.stream.Current())
		if !ok {
			continue // ignored event type
		}
		if event.RunID == "" {
			event.RunID = s.runID
		} else {
			s.runID = event.RunID
		}
		s.current = event
		// Terminal events end the stream after being surfaced once
		if event.Kind == EventCompleted || event.Kind == EventFailed || event.Kind == EventToolCalls {
			s.done = true
		}
		return true
	}

	if err := s.stream.Err(); err != nil {
		s.err = fmt.Errorf("run stream read failed: %w", err)
	}
	s.done = true
	return false
}

// Current returns the event decoded by the last successful Next call.
func (s *RunStream) Current() Event {
	return s.current
}

// Err returns the first error encountered while reading the stream.
func (s *RunStream) Err() error {
	return s.err
}

// Close releases the underlying response body.
func (s *RunStream) Close() error {
	return s.stream.Close()
}

// mapEvent projects one assistants stream event onto an Event. Events this
// service does not care about (run steps, message lifecycle) are skipped.
func mapEvent(raw openai.AssistantStreamEventUnion) (Event, bool) {
	switch raw.Event {
	case "thread.message.delta":
		var text strings.Builder
		for _, part := range raw.Data.Delta.Content {
			if part.Type == "" || part.Type == "text" {
				text.WriteString(part.Text.Value)
			}
		}
		if text.Len() == 0 {
			return Event{}, false
		}
		return Event{Kind: EventFragment, Text: text.String()}, true

	case "thread.run.requires_action":
		action := raw.Data.RequiredAction
		if string(action.Type) != "submit_tool_outputs" {
			return Event{}, false
		}
		calls := make([]ToolCall, 0, len(action.SubmitToolOutputs.ToolCalls))
		for _, tc := range action.SubmitToolOutputs.ToolCalls {
			calls = append(calls, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return Event{Kind: EventToolCalls, RunID: raw.Data.ID, ToolCalls: calls}, true

	case "thread.run.completed":
		return Event{Kind: EventCompleted, RunID: raw.Data.ID}, true

	case "thread.run.failed", "thread.run.cancelled", "thread.run.expired":
		msg := "run ended in state " + strings.TrimPrefix(raw.Event, "thread.run.")
		if raw.Data.LastError.Message != "" {
			msg = raw.Data.LastError.Message
		}
		return Event{Kind: EventFailed, RunID: raw.Data.ID, ErrorMsg: msg}, true

	default:
		return Event{}, false
	}
}
