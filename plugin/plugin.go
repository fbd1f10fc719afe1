// Package plugin defines the passive observer surface of the runner and a
// small registry for dispatching hooks in registration order.
//
// Plugins hook into a turn's lifecycle without influencing dispatch: no
// return value is consumed, events are forwarded regardless, and a plugin's
// own failures are the caller's responsibility, not isolated by the runner.
//
// Implementations should be:
//   - Fast: hooks run synchronously on the event path and can block it
//   - Safe: avoid panics
//   - Stateless: or protect their own state, hooks may run on the runner's
//     consumer goroutine
package plugin

import (
	"github.com/ensembleai/ensemble/core"
)

// Plugin is the set of optional side-effect-only lifecycle hooks invoked by
// the runner during a turn.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// OnUserMessage fires after the user event has been synthesized and
	// persisted, before the agent tree runs.
	OnUserMessage(ictx *core.InvocationContext, message *core.Content)

	// OnEvent fires for every event forwarded to the caller, the user event
	// included.
	OnEvent(ictx *core.InvocationContext, ev core.Event)

	// OnAgentStart fires once before the root agent is driven.
	OnAgentStart(ictx *core.InvocationContext, agentName string)

	// OnAgentEnd fires exactly once per turn, success or failure. runErr is
	// the uncaught failure when there was one, nil otherwise.
	OnAgentEnd(ictx *core.InvocationContext, agentName string, runErr error)
}

// Base is a no-op Plugin for embedding, so implementations only override the
// hooks they care about.
type Base struct {
	PluginName string
}

// Name implements Plugin.
func (b Base) Name() string {
	if b.PluginName == "" {
		return "plugin"
	}
	return b.PluginName
}

// OnUserMessage implements Plugin.
func (Base) OnUserMessage(*core.InvocationContext, *core.Content) {}

// OnEvent implements Plugin.
func (Base) OnEvent(*core.InvocationContext, core.Event) {}

// OnAgentStart implements Plugin.
func (Base) OnAgentStart(*core.InvocationContext, string) {}

// OnAgentEnd implements Plugin.
func (Base) OnAgentEnd(*core.InvocationContext, string, error) {}

// Hooks wraps plain functions as a Plugin. Nil fields are skipped.
type Hooks struct {
	HookName      string
	UserMessageFn func(ictx *core.InvocationContext, message *core.Content)
	EventFn       func(ictx *core.InvocationContext, ev core.Event)
	AgentStartFn  func(ictx *core.InvocationContext, agentName string)
	AgentEndFn    func(ictx *core.InvocationContext, agentName string, runErr error)
}

// Name implements Plugin.
func (h *Hooks) Name() string {
	if h.HookName == "" {
		return "hooks"
	}
	return h.HookName
}

// OnUserMessage implements Plugin.
func (h *Hooks) OnUserMessage(ictx *core.InvocationContext, message *core.Content) {
	if h.UserMessageFn != nil {
		h.UserMessageFn(ictx, message)
	}
}

// OnEvent implements Plugin.
func (h *Hooks) OnEvent(ictx *core.InvocationContext, ev core.Event) {
	if h.EventFn != nil {
		h.EventFn(ictx, ev)
	}
}

// OnAgentStart implements Plugin.
func (h *Hooks) OnAgentStart(ictx *core.InvocationContext, agentName string) {
	if h.AgentStartFn != nil {
		h.AgentStartFn(ictx, agentName)
	}
}

// OnAgentEnd implements Plugin.
func (h *Hooks) OnAgentEnd(ictx *core.InvocationContext, agentName string, runErr error) {
	if h.AgentEndFn != nil {
		h.AgentEndFn(ictx, agentName, runErr)
	}
}
