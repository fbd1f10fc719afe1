package core

import (
	"context"

	"github.com/ensembleai/ensemble/logging"
)

// InvocationContext is the ephemeral, per-invocation facade binding one
// Runner call to one Session. It aggregates:
//   - The ambient cancellation Context
//   - Identifiers (InvocationID, Branch)
//   - The working Session (mutable state + event log)
//   - The root agent driving the invocation
//   - Backing services (session, artifact, memory)
//   - Run / cache configuration value objects
//   - A per-agent-name scratch state map distinct from conversation state
//
// Lifetime is exactly one Runner.Run call. Narrower read-only and tool-scoped
// views are derived via Snapshot and NewToolContext.
type InvocationContext struct {
	Context      context.Context
	InvocationID string
	Branch       string

	Session   *Session
	RootAgent Agent

	SessionService  SessionService
	ArtifactService ArtifactStore
	MemoryService   MemoryStore

	RunConfig   RunConfig
	CacheConfig CacheConfig

	Logger logging.Logger

	limiter     *ModelLimiter
	agentStates map[string]map[string]any
}

// NewInvocationContext constructs an invocation context for one runner turn.
func NewInvocationContext(
	ctx context.Context,
	invocationID string,
	sess *Session,
	rootAgent Agent,
	sessionService SessionService,
	artifactService ArtifactStore,
	memoryService MemoryStore,
	runConfig RunConfig,
	cacheConfig CacheConfig,
	logger logging.Logger,
) *InvocationContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &InvocationContext{
		Context:         ctx,
		InvocationID:    invocationID,
		Session:         sess,
		RootAgent:       rootAgent,
		SessionService:  sessionService,
		ArtifactService: artifactService,
		MemoryService:   memoryService,
		RunConfig:       runConfig,
		CacheConfig:     cacheConfig,
		Logger:          logger,
		limiter:         NewModelLimiter(runConfig.MaxModelCalls),
		agentStates:     map[string]map[string]any{},
	}
}

// Done mirrors context.Context's Done.
func (ic *InvocationContext) Done() <-chan struct{} { return ic.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (ic *InvocationContext) Err() error { return ic.Context.Err() }

// GetState returns the session state value and existence flag for a key.
func (ic *InvocationContext) GetState(k string) (any, bool) {
	if ic.Session == nil {
		return nil, false
	}
	return ic.Session.GetState(k)
}

// SetState mutates the session's conversation state directly.
func (ic *InvocationContext) SetState(k string, v any) {
	if ic.Session != nil {
		ic.Session.SetState(k, v)
	}
}

// ApplyStateDelta merges all pairs from d into the session state.
func (ic *InvocationContext) ApplyStateDelta(d map[string]any) {
	if ic.Session != nil {
		ic.Session.ApplyStateDelta(d)
	}
}

// Events returns the session's event log view.
func (ic *InvocationContext) Events() []Event {
	if ic.Session == nil {
		return nil
	}
	return ic.Session.GetEvents()
}

// AddEvent appends an event to the working session's log.
func (ic *InvocationContext) AddEvent(ev Event) {
	if ic.Session != nil {
		ic.Session.AddEvent(ev)
	}
}

// AgentState returns the scratch state map for the named agent, creating it
// lazily. The map is auxiliary working storage scoped to this invocation and
// is never part of the conversation state.
func (ic *InvocationContext) AgentState(agentName string) map[string]any {
	st, ok := ic.agentStates[agentName]
	if !ok {
		st = map[string]any{}
		ic.agentStates[agentName] = st
	}
	return st
}

// ReplaceAgentState swaps the named agent's scratch state wholesale.
func (ic *InvocationContext) ReplaceAgentState(agentName string, state map[string]any) {
	if state == nil {
		delete(ic.agentStates, agentName)
		return
	}
	ic.agentStates[agentName] = state
}

// ModelLimiter returns the per-invocation model call limiter.
func (ic *InvocationContext) ModelLimiter() *ModelLimiter { return ic.limiter }

// WithBranch returns a shallow derivative of the context carrying the branch
// label. Session, services and the limiter stay shared; only the label differs.
func (ic *InvocationContext) WithBranch(branch string) *InvocationContext {
	c := *ic
	c.Branch = branch
	return &c
}

// Snapshot produces a read-only view with the conversation state frozen at
// call time. Intended for passive consumers such as instruction templating.
func (ic *InvocationContext) Snapshot() *ReadonlyContext {
	rc := &ReadonlyContext{
		InvocationID: ic.InvocationID,
		Branch:       ic.Branch,
		state:        map[string]any{},
	}
	if ic.Session != nil {
		rc.SessionID = ic.Session.ID
		rc.AppName = ic.Session.AppName
		rc.UserID = ic.Session.UserID
		ic.Session.mu.RLock()
		for k, v := range ic.Session.State {
			rc.state[k] = v
		}
		ic.Session.mu.RUnlock()
	}
	return rc
}

// ReadonlyContext is a frozen view of an invocation. Mutating the maps it
// returns has no effect on the live session.
type ReadonlyContext struct {
	InvocationID string
	Branch       string
	SessionID    string
	AppName      string
	UserID       string

	state map[string]any
}

// State returns the frozen value and existence flag for a key.
func (rc *ReadonlyContext) State(k string) (any, bool) {
	v, ok := rc.state[k]
	return v, ok
}

// StateMap returns a copy of the frozen state map.
func (rc *ReadonlyContext) StateMap() map[string]any {
	m := make(map[string]any, len(rc.state))
	for k, v := range rc.state {
		m[k] = v
	}
	return m
}
