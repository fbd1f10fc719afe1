package agent

import (
	"fmt"

	"github.com/ensembleai/ensemble/core"
)

// DefaultMaxIterations bounds a LoopAgent when no explicit cap is configured.
const DefaultMaxIterations = 10

// Condition decides before each iteration whether the loop should continue.
// It receives the previous iteration's result (nil before the first run) and
// the zero-based iteration index; returning false stops the loop without
// running that iteration.
type Condition func(previous *core.Content, iteration int) bool

// LoopAgent wraps exactly one child and executes it repeatedly.
//
// Each iteration runs the child with the previous iteration's last
// content-bearing event as input (the original message at iteration 0). The
// loop always halts at the iteration cap regardless of the condition; with no
// condition it runs exactly the cap. A failing iteration yields a diagnostic
// event but still advances the counter, so the loop is never aborted by a
// child error.
//
// LoopAgent is ideal for:
//   - Iterative refinement workflows
//   - Retry logic with custom conditions
//   - Workflows requiring convergence checking
type LoopAgent struct {
	BaseAgent
	maxIterations int
	condition     Condition
}

// LoopOptions configures a LoopAgent.
type LoopOptions struct {
	BaseOptions
	// MaxIterations caps the loop; non-positive values use DefaultMaxIterations.
	MaxIterations int
	// Condition is checked before each iteration; nil means always continue.
	Condition Condition
}

// NewLoopAgent creates an iterative coordinator around a single child.
func NewLoopAgent(name string, child core.Agent, optFns ...func(o *LoopOptions)) (*LoopAgent, error) {
	if child == nil {
		return nil, ErrNoSubAgents
	}

	opts := LoopOptions{MaxIterations: DefaultMaxIterations}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Description == "" {
		opts.Description = fmt.Sprintf("Executes agent %s up to %d times", child.Name(), opts.MaxIterations)
	}

	b, err := NewBaseAgent(name, func(o *BaseOptions) { *o = opts.BaseOptions })
	if err != nil {
		return nil, err
	}

	a := &LoopAgent{BaseAgent: b, maxIterations: opts.MaxIterations, condition: opts.Condition}
	a.Bind(a)
	if err := a.SetSubAgents(child); err != nil {
		return nil, err
	}
	return a, nil
}

// MaxIterations returns the configured iteration cap.
func (l *LoopAgent) MaxIterations() int { return l.maxIterations }

// Clone returns a structurally independent copy of this agent and its child.
func (l *LoopAgent) Clone(overrides *core.CloneOverrides) (core.Agent, error) {
	b, err := l.cloneBase(overrides)
	if err != nil {
		return nil, err
	}
	children, err := l.cloneChildren()
	if err != nil {
		return nil, err
	}

	c := &LoopAgent{BaseAgent: b, maxIterations: l.maxIterations, condition: l.condition}
	c.Bind(c)
	if err := c.SetSubAgents(children...); err != nil {
		return nil, err
	}
	return c, nil
}

// Run implements core.Agent performing bounded iterative execution.
func (l *LoopAgent) Run(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error {
	if err := l.runBefore(ictx, emit); err != nil {
		return err
	}

	var child core.Agent
	if children := l.SubAgents(); len(children) > 0 {
		child = children[0]
	}

	current := message
	var previous *core.Content

	for i := 0; i < l.maxIterations; i++ {
		select {
		case <-ictx.Done():
			return ictx.Err()
		default:
		}

		if l.condition != nil && !l.condition(previous, i) {
			ictx.Logger.Debug("workflow.loop.condition_stop", "agent", l.Name(), "iteration", i)
			break
		}

		markerEv := core.NewMessageEvent(ictx.InvocationID, l.Name(),
			fmt.Sprintf("Iteration %d of %d", i+1, l.maxIterations))
		if err := emit(markerEv); err != nil {
			return err
		}

		if child == nil {
			if err := emit(core.NewErrorEvent(ictx.InvocationID, l.Name(),
				fmt.Errorf("sub-agent does not implement the run contract"))); err != nil {
				return err
			}
			continue
		}

		last, err := runChildCollect(child, ictx, current, emit)
		if err != nil {
			if isAbort(ictx, err) {
				return err
			}
			ictx.Logger.Warn("workflow.loop.iteration.error",
				"agent", l.Name(), "iteration", i, "error", err.Error())
			if emitErr := emit(core.NewErrorEvent(ictx.InvocationID, l.Name(),
				fmt.Errorf("iteration %d failed: %w", i+1, err))); emitErr != nil {
				return emitErr
			}
			// Counter advances; the loop is never aborted by a child failure.
			continue
		}

		if last != nil {
			previous = last
			current = last
		}
	}

	return l.runAfter(ictx, emit)
}
