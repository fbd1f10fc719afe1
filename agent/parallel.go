package agent

import (
	"fmt"
	"strings"

	"github.com/ensembleai/ensemble/core"
)

// Aggregation strategies for ParallelAgent summary events.
const (
	// StrategyAll concatenates every collected child result (default).
	StrategyAll = "all"
	// StrategyFirst reports only the first result in declaration order.
	StrategyFirst = "first"
)

// ParallelAgent coordinates fan-out execution of multiple child agents, each
// receiving the SAME original input rather than chained outputs.
//
// Dispatch is deliberately serialized: children run one at a time in declared
// order on the invocation's single logical thread of control. The aggregation
// contract is written so a genuinely concurrent implementation is a drop-in
// replacement; under serialized dispatch "first" means first by declaration
// order, not first to complete.
//
// Failure isolation: a failing child yields a diagnostic event and its
// siblings still run; failures are reflected in the summary's failed count.
//
// Each child's events are stamped with a hierarchical branch tag
// ("parent.Parallel.child") isolating its state mutations.
type ParallelAgent struct {
	BaseAgent
	strategy string
}

// ParallelOptions configures a ParallelAgent.
type ParallelOptions struct {
	BaseOptions
	// Strategy selects the result aggregation policy. Unknown values fall
	// back to reporting only the collected-result count.
	Strategy string
}

// NewParallelAgent creates a fan-out coordinator over the given children.
// At least one child is required.
func NewParallelAgent(name string, children []core.Agent, optFns ...func(o *ParallelOptions)) (*ParallelAgent, error) {
	if len(children) == 0 {
		return nil, ErrNoSubAgents
	}

	opts := ParallelOptions{Strategy: StrategyAll}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Description == "" {
		opts.Description = fmt.Sprintf("Executes %d agents in parallel branches", len(children))
	}

	b, err := NewBaseAgent(name, func(o *BaseOptions) { *o = opts.BaseOptions })
	if err != nil {
		return nil, err
	}

	a := &ParallelAgent{BaseAgent: b, strategy: opts.Strategy}
	a.Bind(a)
	if err := a.SetSubAgents(children...); err != nil {
		return nil, err
	}
	return a, nil
}

// Strategy returns the configured aggregation strategy.
func (p *ParallelAgent) Strategy() string { return p.strategy }

// Clone returns a structurally independent copy of this agent and its subtree.
func (p *ParallelAgent) Clone(overrides *core.CloneOverrides) (core.Agent, error) {
	b, err := p.cloneBase(overrides)
	if err != nil {
		return nil, err
	}
	children, err := p.cloneChildren()
	if err != nil {
		return nil, err
	}

	c := &ParallelAgent{BaseAgent: b, strategy: p.strategy}
	c.Bind(c)
	if err := c.SetSubAgents(children...); err != nil {
		return nil, err
	}
	return c, nil
}

// childResult pairs a child with its last content-bearing output.
type childResult struct {
	name    string
	content *core.Content
}

// Run implements core.Agent. Every child receives the original message; per
// child the last content-bearing event is collected as its result, then a
// single summary event is emitted per the aggregation strategy.
func (p *ParallelAgent) Run(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error {
	if err := p.runBefore(ictx, emit); err != nil {
		return err
	}

	children := p.SubAgents()

	startEv := core.NewMessageEvent(ictx.InvocationID, p.Name(),
		fmt.Sprintf("Dispatching %d agents in parallel", len(children)))
	if err := emit(startEv); err != nil {
		return err
	}

	var results []childResult
	failed := 0

	for _, child := range children {
		if child == nil {
			failed++
			if err := emit(core.NewErrorEvent(ictx.InvocationID, p.Name(),
				fmt.Errorf("sub-agent does not implement the run contract"))); err != nil {
				return err
			}
			continue
		}

		branch := buildBranchPath(ictx.Branch, fmt.Sprintf("%s.%s", p.Name(), child.Name()))
		branchCtx := ictx.WithBranch(branch)

		ictx.Logger.Debug("workflow.parallel.child.start",
			"agent", p.Name(), "child", child.Name(), "branch", branch)

		last, err := runChildCollect(child, branchCtx, message, func(ev core.Event) error {
			if ev.Branch == nil {
				ev.Branch = &branch
			}
			return emit(ev)
		})
		if err != nil {
			if isAbort(ictx, err) {
				return err
			}
			failed++
			ictx.Logger.Warn("workflow.parallel.child.error",
				"agent", p.Name(), "child", child.Name(), "error", err.Error())
			if emitErr := emit(core.NewErrorEvent(ictx.InvocationID, p.Name(),
				fmt.Errorf("agent %s failed: %w", child.Name(), err))); emitErr != nil {
				return emitErr
			}
			continue
		}

		if last != nil {
			results = append(results, childResult{name: child.Name(), content: last})
		}
	}

	summary := core.NewMessageEvent(ictx.InvocationID, p.Name(), p.summarize(results, failed))
	if err := emit(summary); err != nil {
		return err
	}

	return p.runAfter(ictx, emit)
}

// summarize renders the aggregation summary per the configured strategy.
func (p *ParallelAgent) summarize(results []childResult, failed int) string {
	switch p.strategy {
	case StrategyAll:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Parallel execution complete: %d results, %d failed.", len(results), failed))
		for _, r := range results {
			sb.WriteString(fmt.Sprintf("\n[%s] %s", r.name, r.content.Text()))
		}
		return sb.String()
	case StrategyFirst:
		if len(results) == 0 {
			return fmt.Sprintf("Parallel execution complete: no results, %d failed.", failed)
		}
		first := results[0]
		return fmt.Sprintf("Parallel execution complete: first result (by declaration order) from %s: %s (%d failed)",
			first.name, first.content.Text(), failed)
	default:
		return fmt.Sprintf("Parallel execution complete: %d results collected, %d failed.", len(results), failed)
	}
}
