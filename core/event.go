package core

import (
	"time"

	"github.com/google/uuid"
)

// AuthorUser is the reserved author for events synthesized from caller input.
const AuthorUser = "user"

// AuthorSystem is the distinguished author for runner-level diagnostic events.
const AuthorSystem = "system"

// EventCompaction describes a range of history replaced by a compacted summary.
type EventCompaction struct {
	StartTimestamp float64  `json:"start_timestamp,omitempty"`
	EndTimestamp   float64  `json:"end_timestamp,omitempty"`
	Content        *Content `json:"content,omitempty"`
}

// EventActions encodes side-effects or orchestration signals attached to an
// Event. All fields are optional pointers / maps so absence can be
// distinguished from zero values; serialization omits empty fields. The
// runner interprets these after persistence (state deltas, transfer
// directives), everything else is carried for collaborators.
type EventActions struct {
	SkipSummarization          *bool            `json:"skip_summarization,omitempty"`
	StateDelta                 map[string]any   `json:"state_delta,omitempty"`
	AgentState                 map[string]any   `json:"agent_state,omitempty"`
	ArtifactDelta              map[string]int   `json:"artifact_delta,omitempty"`
	TransferToAgent            *string          `json:"transfer_to_agent,omitempty"`
	Escalate                   *bool            `json:"escalate,omitempty"`
	EndOfAgent                 *bool            `json:"end_of_agent,omitempty"`
	RequestedAuthConfigs       map[string]any   `json:"requested_auth_configs,omitempty"`
	RequestedToolConfirmations map[string]any   `json:"requested_tool_confirmations,omitempty"`
	RewindBeforeInvocationID   *string          `json:"rewind_before_invocation_id,omitempty"`
	Compaction                 *EventCompaction `json:"compaction,omitempty"`
}

// IsEmpty reports whether no action field is set.
func (a *EventActions) IsEmpty() bool {
	if a == nil {
		return true
	}
	return a.SkipSummarization == nil &&
		len(a.StateDelta) == 0 &&
		len(a.AgentState) == 0 &&
		len(a.ArtifactDelta) == 0 &&
		a.TransferToAgent == nil &&
		a.Escalate == nil &&
		a.EndOfAgent == nil &&
		len(a.RequestedAuthConfigs) == 0 &&
		len(a.RequestedToolConfirmations) == 0 &&
		a.RewindBeforeInvocationID == nil &&
		a.Compaction == nil
}

// Event is the primary unit of communication between agents, the runner and
// external clients. After emission it must be treated as immutable. It
// captures:
//   - Correlation (ID, InvocationID, Author)
//   - Conversational content (optional role-based Parts)
//   - Orchestration directives (Actions)
//   - Tool / long-running operation hints (LongRunningToolIDs)
//   - Error metadata for diagnostic events
//   - UTC timestamp
//
// Content may be nil for control or error-only events.
type Event struct {
	ID                 string        `json:"id"`
	InvocationID       string        `json:"invocation_id"`
	Author             string        `json:"author"`
	Actions            *EventActions `json:"actions,omitempty"`
	LongRunningToolIDs []string      `json:"long_running_tool_ids,omitempty"`
	Branch             *string       `json:"branch,omitempty"`
	Timestamp          time.Time     `json:"timestamp"`
	Content            *Content      `json:"content,omitempty"`
	ErrorCode          *string       `json:"error_code,omitempty"`
	ErrorMessage       *string       `json:"error_message,omitempty"`
}

// NewEvent creates a bare event authored by 'author' bound to an invocation.
// Prefer helper constructors for common semantic categories (message,
// function call/response, error).
func NewEvent(invocationID, author string) Event {
	return Event{
		ID:           NewID(),
		InvocationID: invocationID,
		Author:       author,
		Timestamp:    time.Now().UTC(),
	}
}

// NewMessageEvent creates an agent-authored message event with a single text part.
func NewMessageEvent(invocationID, author, message string) Event {
	e := NewEvent(invocationID, author)
	e.Content = NewTextContent("assistant", message)
	return e
}

// NewUserMessageEvent creates a user-authored text message event.
func NewUserMessageEvent(invocationID, message string) Event {
	e := NewEvent(invocationID, AuthorUser)
	e.Content = NewTextContent("user", message)
	return e
}

// NewUserContentEvent creates a user-authored event with arbitrary Content.
// Useful when the input is not just a simple text message.
func NewUserContentEvent(invocationID string, content *Content) Event {
	e := NewEvent(invocationID, AuthorUser)
	e.Content = content
	return e
}

// NewFunctionCallEvent represents an agent requesting execution of a named function/tool.
func NewFunctionCallEvent(invocationID, author, functionName, args string) Event {
	e := NewEvent(invocationID, author)
	e.Content = &Content{
		Role: "assistant",
		Parts: []Part{
			FunctionCallPart{
				FunctionCall: FunctionCall{Name: functionName, Arguments: args},
			},
		},
	}
	return e
}

// NewFunctionResponseEvent records the completion result (or error) of a
// tool/function invocation. If err is non-nil its message is copied into the
// response's Error field; the event itself stays non-error so the turn keeps
// flowing.
func NewFunctionResponseEvent(invocationID, author, id, functionName string, result any, err error) Event {
	e := NewEvent(invocationID, author)
	fr := FunctionResponse{ID: id, Name: functionName, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	e.Content = &Content{Role: "tool", Parts: []Part{FunctionResponsePart{FunctionResponse: fr}}}
	return e
}

// NewErrorEvent converts a runtime failure into a diagnostic event so a turn
// always terminates with at least one explanatory record.
func NewErrorEvent(invocationID, author string, err error) Event {
	e := NewEvent(invocationID, author)
	msg := err.Error()
	e.ErrorMessage = &msg
	e.Content = NewTextContent("assistant", "Error: "+msg)
	return e
}

// NewID generates a new unique identifier used for events, sessions and
// invocations throughout the framework.
func NewID() string { return uuid.NewString() }

// HasContent reports whether the event carries content with at least one part.
func (e Event) HasContent() bool { return e.Content != nil && len(e.Content.Parts) > 0 }

// GetFunctionCalls returns any FunctionCall parts contained within the event
// content preserving their original order.
func (e Event) GetFunctionCalls() []FunctionCall {
	if e.Content == nil {
		return nil
	}
	var calls []FunctionCall
	for _, p := range e.Content.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// GetFunctionResponses returns any FunctionResponse parts contained within the
// event content preserving their original order.
func (e Event) GetFunctionResponses() []FunctionResponse {
	if e.Content == nil {
		return nil
	}
	var responses []FunctionResponse
	for _, p := range e.Content.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// IsFinalResponse reports whether this event concludes handling for its
// author. An event is final unless its actions carry a transfer directive;
// user events and events without actions are always final.
func (e Event) IsFinalResponse() bool {
	if e.Author == AuthorUser {
		return true
	}
	if e.Actions == nil {
		return true
	}
	return e.Actions.TransferToAgent == nil
}

// UnixSeconds returns the timestamp as fractional seconds since Unix epoch.
// Useful for metrics & numeric serialization paths.
func (e Event) UnixSeconds() float64 { return float64(e.Timestamp.UnixNano()) / 1e9 }
