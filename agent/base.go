package agent

import (
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/ensembleai/ensemble/core"
)

// Configuration errors reported synchronously at construction time. They are
// never caught internally; an invalid tree must not come into existence.
var (
	// ErrInvalidAgentName indicates a name that is not a valid identifier.
	ErrInvalidAgentName = errors.New("invalid agent name")
	// ErrReservedAgentName indicates the reserved author "user" was used as an agent name.
	ErrReservedAgentName = errors.New("agent name is reserved")
	// ErrDuplicateAgentName indicates two siblings under one parent share a name.
	ErrDuplicateAgentName = errors.New("duplicate sibling agent name")
	// ErrNoSubAgents indicates a workflow agent was constructed without children.
	ErrNoSubAgents = errors.New("workflow agent requires at least one sub-agent")
)

var agentNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateAgentName checks the identifier pattern and the reserved author.
func validateAgentName(name string) error {
	if !agentNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q must match %s", ErrInvalidAgentName, name, agentNamePattern.String())
	}
	if name == core.AuthorUser {
		return fmt.Errorf("%w: %q is the reserved user author", ErrReservedAgentName, name)
	}
	return nil
}

// Callback is an optional lifecycle hook invoked around an agent's Run. A
// callback failure never aborts the turn: it is converted into a diagnostic
// event at the agent boundary.
type Callback func(ictx *core.InvocationContext) error

// BaseAgent bundles identity, hierarchy management and lifecycle callbacks
// shared by all agent variants. Embed it in concrete implementations and
// supply Run/Clone to satisfy core.Agent. All exported methods are
// goroutine-safe unless otherwise documented.
type BaseAgent struct {
	name        string
	description string

	mu        sync.Mutex
	parent    core.Agent
	subAgents []core.Agent

	// self is the embedding concrete agent; hierarchy methods return and link
	// this value so callers always see the full agent, never the embedded base.
	self core.Agent

	beforeRun Callback
	afterRun  Callback
}

// BaseOptions configures a BaseAgent at construction.
type BaseOptions struct {
	Description string
	BeforeRun   Callback
	AfterRun    Callback
}

// NewBaseAgent validates the name and constructs a BaseAgent. A default
// description is synthesized when none is supplied. The embedding agent must
// call Bind before the hierarchy methods are used.
func NewBaseAgent(name string, optFns ...func(o *BaseOptions)) (BaseAgent, error) {
	if err := validateAgentName(name); err != nil {
		return BaseAgent{}, err
	}

	opts := BaseOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Description == "" {
		opts.Description = fmt.Sprintf("Agent %s", name)
	}

	return BaseAgent{
		name:        name,
		description: opts.Description,
		beforeRun:   opts.BeforeRun,
		afterRun:    opts.AfterRun,
	}, nil
}

// Bind registers the embedding concrete agent. Constructors in this package
// call it; external embedders must do the same before wiring children.
func (b *BaseAgent) Bind(self core.Agent) { b.self = self }

// Name returns the agent's unique identifier.
func (b *BaseAgent) Name() string { return b.name }

// Description returns the agent's purpose description.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// SetSubAgents replaces the existing child set wholesale, re-validating
// sibling name uniqueness and re-pointing parent back-references. Previous
// children are detached. Nil slots are tolerated and kept in order; workflow
// agents surface them as diagnostic events at run time.
func (b *BaseAgent) SetSubAgents(children ...core.Agent) error {
	seen := map[string]struct{}{}
	for _, child := range children {
		if child == nil {
			continue
		}
		if _, dup := seen[child.Name()]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateAgentName, child.Name())
		}
		seen[child.Name()] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, child := range b.subAgents {
		if setter, ok := child.(parentSetter); ok {
			setter.setParent(nil)
		}
	}
	b.subAgents = nil

	for _, child := range children {
		if setter, ok := child.(parentSetter); ok {
			setter.setParent(b.self)
		}
		b.subAgents = append(b.subAgents, child)
	}

	return nil
}

// parentSetter is the internal hook used to maintain parent back-references.
type parentSetter interface{ setParent(core.Agent) }

// setParent records the owning parent. The back-reference is weak: it never
// implies ownership and is cleared on detach.
func (b *BaseAgent) setParent(p core.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = p
}

// Parent returns the owning parent agent or nil for a root.
func (b *BaseAgent) Parent() core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// SubAgents returns a shallow copy of the ordered child list for safe iteration.
func (b *BaseAgent) SubAgents() []core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]core.Agent, len(b.subAgents))
	copy(result, b.subAgents)
	return result
}

// FindAgent performs a depth-first search over the subtree rooted at this
// agent (itself included) returning the first agent whose name matches, or
// nil when no match exists.
func (b *BaseAgent) FindAgent(name string) core.Agent {
	if b.name == name {
		return b.self
	}
	for _, child := range b.SubAgents() {
		if child == nil {
			continue
		}
		if found := child.FindAgent(name); found != nil {
			return found
		}
	}
	return nil
}

// FindSubAgent searches direct children only.
func (b *BaseAgent) FindSubAgent(name string) core.Agent {
	for _, child := range b.SubAgents() {
		if child != nil && child.Name() == name {
			return child
		}
	}
	return nil
}

// RunLive is the streaming execution contract. It is declared on every agent
// but intentionally unimplemented.
func (b *BaseAgent) RunLive(_ *core.InvocationContext, _ *core.Content, _ core.EmitFunc) error {
	return core.ErrLiveUnsupported
}

// cloneBase copies identity fields applying overrides. Parent and children are
// deliberately left empty: the caller deep-copies children and the new tree
// owns them exclusively.
func (b *BaseAgent) cloneBase(overrides *core.CloneOverrides) (BaseAgent, error) {
	name := b.name
	description := b.description
	if overrides != nil {
		if overrides.Name != "" {
			name = overrides.Name
		}
		if overrides.Description != "" {
			description = overrides.Description
		}
	}
	if err := validateAgentName(name); err != nil {
		return BaseAgent{}, err
	}
	return BaseAgent{
		name:        name,
		description: description,
		beforeRun:   b.beforeRun,
		afterRun:    b.afterRun,
	}, nil
}

// cloneChildren deep-copies the child list. Nil slots are preserved.
func (b *BaseAgent) cloneChildren() ([]core.Agent, error) {
	children := b.SubAgents()
	cloned := make([]core.Agent, len(children))
	for i, child := range children {
		if child == nil {
			continue
		}
		c, err := child.Clone(nil)
		if err != nil {
			return nil, fmt.Errorf("cloning child %s: %w", child.Name(), err)
		}
		cloned[i] = c
	}
	return cloned, nil
}

// emitCallbackFailure converts a lifecycle callback failure into a diagnostic
// event so it never escapes the agent boundary.
func (b *BaseAgent) emitCallbackFailure(ictx *core.InvocationContext, emit core.EmitFunc, phase string, err error) error {
	ictx.Logger.Warn("agent.callback.error", "agent", b.name, "phase", phase, "error", err.Error())
	return emit(core.NewErrorEvent(ictx.InvocationID, b.name, fmt.Errorf("%s callback failed: %w", phase, err)))
}

// runBefore invokes the before-run callback, reporting failure as a diagnostic event.
func (b *BaseAgent) runBefore(ictx *core.InvocationContext, emit core.EmitFunc) error {
	if b.beforeRun == nil {
		return nil
	}
	if err := b.beforeRun(ictx); err != nil {
		return b.emitCallbackFailure(ictx, emit, "before", err)
	}
	return nil
}

// runAfter invokes the after-run callback, reporting failure as a diagnostic event.
func (b *BaseAgent) runAfter(ictx *core.InvocationContext, emit core.EmitFunc) error {
	if b.afterRun == nil {
		return nil
	}
	if err := b.afterRun(ictx); err != nil {
		return b.emitCallbackFailure(ictx, emit, "after", err)
	}
	return nil
}
