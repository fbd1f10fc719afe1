package core

import "errors"

// ErrStopped is returned by an EmitFunc once the consumer has stopped taking
// events (a transfer directive was seen or the caller abandoned the stream).
// Agents must propagate it unchanged instead of converting it into a
// diagnostic event.
var ErrStopped = errors.New("event consumer stopped")

// ErrLiveUnsupported is returned by RunLive; streaming execution is declared
// on the contract but intentionally not implemented.
var ErrLiveUnsupported = errors.New("live execution is not supported")

// EmitFunc receives one event of an agent's output sequence. Emission is
// synchronous and forward-only; a non-nil return aborts production.
type EmitFunc func(Event) error

// CloneOverrides selects fields to replace when cloning an agent. Zero-value
// fields keep the original's value. Children are always deep-copied, never
// aliased.
type CloneOverrides struct {
	Name        string
	Description string
}

// Agent is the composable execution unit of Ensemble. Concrete variants are
// the model-backed agent and the three workflow agents (sequential, parallel,
// loop); custom implementations only need to satisfy this interface.
//
// Hierarchy invariants every implementation must uphold:
//   - sibling names are unique under any one parent
//   - the tree is acyclic and children are exclusively owned
//   - a child's Parent back-reference always reflects its current owner and
//     never implies ownership
//
// Run produces a finite, forward-only sequence of events through emit and
// must never let a backend or runtime failure escape as an error: such
// failures are converted into a diagnostic event at the smallest enclosing
// boundary. The returned error is reserved for propagating emission aborts
// (ErrStopped, context cancellation).
type Agent interface {
	Name() string
	Description() string
	Parent() Agent
	SubAgents() []Agent
	SetSubAgents(children ...Agent) error
	FindAgent(name string) Agent
	FindSubAgent(name string) Agent
	Clone(overrides *CloneOverrides) (Agent, error)
	Run(ictx *InvocationContext, message *Content, emit EmitFunc) error
	RunLive(ictx *InvocationContext, message *Content, emit EmitFunc) error
}
