package agent

import (
	"fmt"

	"github.com/ensembleai/ensemble/core"
)

// SequentialAgent coordinates the execution of multiple child agents in order.
//
// Each child runs with the previous child's last content-bearing event as its
// input (the original message for the first child), so outputs chain through
// the pipeline. A failing child does not stop the pipeline: an error event
// naming it is emitted and the input for the NEXT child is reset to the
// ORIGINAL message, a deliberate fail-and-restart-from-origin policy.
//
// Ordering guarantee: a later child's events are never forwarded before an
// earlier child's full sequence has been forwarded.
//
// SequentialAgent is ideal for:
//   - Multi-step processing pipelines
//   - Workflows requiring specific execution order
//   - Scenarios where agent outputs build upon each other
type SequentialAgent struct {
	BaseAgent
}

// NewSequentialAgent creates a sequential execution coordinator over the
// given children. At least one child is required.
func NewSequentialAgent(name string, children []core.Agent, optFns ...func(o *BaseOptions)) (*SequentialAgent, error) {
	if len(children) == 0 {
		return nil, ErrNoSubAgents
	}
	b, err := NewBaseAgent(name, append([]func(o *BaseOptions){func(o *BaseOptions) {
		o.Description = fmt.Sprintf("Executes %d agents in sequence", len(children))
	}}, optFns...)...)
	if err != nil {
		return nil, err
	}

	a := &SequentialAgent{BaseAgent: b}
	a.Bind(a)
	if err := a.SetSubAgents(children...); err != nil {
		return nil, err
	}
	return a, nil
}

// Clone returns a structurally independent copy of this agent and its subtree.
func (s *SequentialAgent) Clone(overrides *core.CloneOverrides) (core.Agent, error) {
	b, err := s.cloneBase(overrides)
	if err != nil {
		return nil, err
	}
	children, err := s.cloneChildren()
	if err != nil {
		return nil, err
	}

	c := &SequentialAgent{BaseAgent: b}
	c.Bind(c)
	if err := c.SetSubAgents(children...); err != nil {
		return nil, err
	}
	return c, nil
}

// Run implements core.Agent. It emits a start event, drives each child in
// declared order chaining content between them, and finishes with a
// completion event summarizing the final input.
func (s *SequentialAgent) Run(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error {
	if err := s.runBefore(ictx, emit); err != nil {
		return err
	}

	children := s.SubAgents()

	startEv := core.NewMessageEvent(ictx.InvocationID, s.Name(),
		fmt.Sprintf("Starting sequential execution of %d agents", len(children)))
	if err := emit(startEv); err != nil {
		return err
	}

	current := message
	for _, child := range children {
		if child == nil {
			// Slot without a runnable agent: report and leave input unchanged.
			if err := emit(core.NewErrorEvent(ictx.InvocationID, s.Name(),
				fmt.Errorf("sub-agent does not implement the run contract"))); err != nil {
				return err
			}
			continue
		}

		progressEv := core.NewMessageEvent(ictx.InvocationID, s.Name(),
			fmt.Sprintf("Running agent %s", child.Name()))
		if err := emit(progressEv); err != nil {
			return err
		}

		ictx.Logger.Debug("workflow.sequential.child.start", "agent", s.Name(), "child", child.Name())

		last, err := runChildCollect(child, ictx, current, emit)
		if err != nil {
			if isAbort(ictx, err) {
				return err
			}
			ictx.Logger.Warn("workflow.sequential.child.error",
				"agent", s.Name(), "child", child.Name(), "error", err.Error())
			if emitErr := emit(core.NewErrorEvent(ictx.InvocationID, s.Name(),
				fmt.Errorf("agent %s failed: %w", child.Name(), err))); emitErr != nil {
				return emitErr
			}
			// Restart from the original message rather than the last good value.
			current = message
			continue
		}

		if last != nil {
			current = last
		}
	}

	doneEv := core.NewMessageEvent(ictx.InvocationID, s.Name(),
		fmt.Sprintf("Sequential execution complete. Final output: %s", current.Text()))
	if err := emit(doneEv); err != nil {
		return err
	}

	return s.runAfter(ictx, emit)
}
