package core

import (
	"fmt"

	"github.com/ensembleai/ensemble/logging"
)

// ToolContext provides a constrained, auditable surface for tool / function
// implementations invoked by an agent. It accumulates EventActions (state
// deltas, transfers, escalation signals, artifact diffs, auth and
// confirmation requests) which the owning agent merges into the originating
// function-response event via ApplyActions.
type ToolContext struct {
	ictx           *InvocationContext
	functionCallID string
	agentName      string
	actions        EventActions
}

// NewToolContext constructs a tool context bound to a parent invocation
// context, the calling agent and a unique function call id.
func NewToolContext(ictx *InvocationContext, agentName, functionCallID string) *ToolContext {
	return &ToolContext{
		ictx:           ictx,
		functionCallID: functionCallID,
		agentName:      agentName,
	}
}

// InvocationID returns the invocation id associated with the tool invocation.
func (tc *ToolContext) InvocationID() string { return tc.ictx.InvocationID }

// SessionID returns the session id associated with the tool invocation.
func (tc *ToolContext) SessionID() string {
	if tc.ictx.Session == nil {
		return ""
	}
	return tc.ictx.Session.ID
}

// FunctionCallID returns the function call id associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the name of the agent that invoked the tool.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// Logger returns the logger associated with the invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.ictx.Logger }

// GetState retrieves the conversation state value for the given key.
func (tc *ToolContext) GetState(k string) (any, bool) { return tc.ictx.GetState(k) }

// SetState records a state mutation both on the working session (for
// immediate visibility) and in the local EventActions delta for emission.
func (tc *ToolContext) SetState(k string, v any) {
	tc.ictx.SetState(k, v)
	if tc.actions.StateDelta == nil {
		tc.actions.StateDelta = map[string]any{}
	}
	tc.actions.StateDelta[k] = v
}

// Actions returns the event actions accumulated in the tool context.
func (tc *ToolContext) Actions() *EventActions { return &tc.actions }

// SkipSummarization requests that post-processing summarization be bypassed
// for the originating event.
func (tc *ToolContext) SkipSummarization() {
	b := true
	tc.actions.SkipSummarization = &b
}

// TransferToAgent signals orchestration to hand off control to another agent.
func (tc *ToolContext) TransferToAgent(name string) {
	tc.actions.TransferToAgent = &name
	tc.ictx.Logger.Info("tool.transfer.request",
		"from_agent", tc.agentName, "to_agent", name, "function_call_id", tc.functionCallID)
}

// Escalate requests escalation to the enclosing workflow or a human.
func (tc *ToolContext) Escalate() {
	b := true
	tc.actions.Escalate = &b
}

// RequestAuthConfig stages an authentication request keyed by provider.
func (tc *ToolContext) RequestAuthConfig(key string, config any) {
	if tc.actions.RequestedAuthConfigs == nil {
		tc.actions.RequestedAuthConfigs = map[string]any{}
	}
	tc.actions.RequestedAuthConfigs[key] = config
}

// RequestToolConfirmation stages a confirmation request for this call.
func (tc *ToolContext) RequestToolConfirmation(hint any) {
	if tc.actions.RequestedToolConfirmations == nil {
		tc.actions.RequestedToolConfirmations = map[string]any{}
	}
	tc.actions.RequestedToolConfirmations[tc.functionCallID] = hint
}

// SaveArtifact persists artifact bytes and records the delta size for emission.
func (tc *ToolContext) SaveArtifact(id string, data []byte) error {
	if tc.ictx.ArtifactService == nil {
		return fmt.Errorf("artifact service not configured")
	}
	if err := tc.ictx.ArtifactService.Save(tc.SessionID(), id, data); err != nil {
		return err
	}
	if tc.actions.ArtifactDelta == nil {
		tc.actions.ArtifactDelta = map[string]int{}
	}
	tc.actions.ArtifactDelta[id] = len(data)
	return nil
}

// LoadArtifact retrieves a persisted artifact by id.
func (tc *ToolContext) LoadArtifact(id string) ([]byte, error) {
	if tc.ictx.ArtifactService == nil {
		return nil, fmt.Errorf("artifact service not configured")
	}
	return tc.ictx.ArtifactService.Get(tc.SessionID(), id)
}

// ListArtifacts returns artifact ids stored for the session.
func (tc *ToolContext) ListArtifacts() ([]string, error) {
	if tc.ictx.ArtifactService == nil {
		return nil, fmt.Errorf("artifact service not configured")
	}
	return tc.ictx.ArtifactService.List(tc.SessionID())
}

// SearchMemory performs a recall query against the configured MemoryStore.
func (tc *ToolContext) SearchMemory(q string, limit int) ([]SearchResult, error) {
	if tc.ictx.MemoryService == nil {
		return nil, fmt.Errorf("memory service not configured")
	}
	return tc.ictx.MemoryService.Search(tc.SessionID(), q, limit)
}

// StoreMemory appends new content to the session's memory store with metadata.
func (tc *ToolContext) StoreMemory(content string, md map[string]any) error {
	if tc.ictx.MemoryService == nil {
		return fmt.Errorf("memory service not configured")
	}
	return tc.ictx.MemoryService.Store(tc.SessionID(), content, md)
}

// GetSessionHistory returns conversation history (filtered) for context.
func (tc *ToolContext) GetSessionHistory() []Event {
	if tc.ictx.Session == nil {
		return nil
	}
	return tc.ictx.Session.GetConversationHistory()
}

// ApplyActions merges accumulated EventActions into the provided event. Used
// by agents when finalizing the function-response event for a tool call.
func (tc *ToolContext) ApplyActions(ev *Event) {
	if tc.actions.IsEmpty() {
		return
	}
	if ev.Actions == nil {
		ev.Actions = &EventActions{}
	}
	if len(tc.actions.StateDelta) > 0 {
		if ev.Actions.StateDelta == nil {
			ev.Actions.StateDelta = map[string]any{}
		}
		for k, v := range tc.actions.StateDelta {
			ev.Actions.StateDelta[k] = v
		}
	}
	if len(tc.actions.ArtifactDelta) > 0 {
		if ev.Actions.ArtifactDelta == nil {
			ev.Actions.ArtifactDelta = map[string]int{}
		}
		for k, v := range tc.actions.ArtifactDelta {
			ev.Actions.ArtifactDelta[k] = v
		}
	}
	if len(tc.actions.RequestedAuthConfigs) > 0 {
		if ev.Actions.RequestedAuthConfigs == nil {
			ev.Actions.RequestedAuthConfigs = map[string]any{}
		}
		for k, v := range tc.actions.RequestedAuthConfigs {
			ev.Actions.RequestedAuthConfigs[k] = v
		}
	}
	if len(tc.actions.RequestedToolConfirmations) > 0 {
		if ev.Actions.RequestedToolConfirmations == nil {
			ev.Actions.RequestedToolConfirmations = map[string]any{}
		}
		for k, v := range tc.actions.RequestedToolConfirmations {
			ev.Actions.RequestedToolConfirmations[k] = v
		}
	}
	if tc.actions.SkipSummarization != nil {
		ev.Actions.SkipSummarization = tc.actions.SkipSummarization
	}
	if tc.actions.TransferToAgent != nil {
		ev.Actions.TransferToAgent = tc.actions.TransferToAgent
	}
	if tc.actions.Escalate != nil {
		ev.Actions.Escalate = tc.actions.Escalate
	}
}
