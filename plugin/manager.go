package plugin

import "github.com/ensembleai/ensemble/core"

// Manager fans a hook invocation out to every registered plugin in
// registration order.
//
// Thread Safety: registration is not synchronized; register everything before
// handing the manager to a runner. Once registration is complete, hook
// dispatch is safe for concurrent use.
type Manager struct {
	plugins []Plugin
}

// NewManager creates a manager over the given plugins.
func NewManager(plugins ...Plugin) *Manager {
	return &Manager{plugins: plugins}
}

// Register appends a plugin. Multiple plugins fire in registration order.
func (m *Manager) Register(p Plugin) { m.plugins = append(m.plugins, p) }

// Plugins returns the registered plugins in order.
func (m *Manager) Plugins() []Plugin { return m.plugins }

// UserMessage dispatches OnUserMessage.
func (m *Manager) UserMessage(ictx *core.InvocationContext, message *core.Content) {
	for _, p := range m.plugins {
		p.OnUserMessage(ictx, message)
	}
}

// Event dispatches OnEvent.
func (m *Manager) Event(ictx *core.InvocationContext, ev core.Event) {
	for _, p := range m.plugins {
		p.OnEvent(ictx, ev)
	}
}

// AgentStart dispatches OnAgentStart.
func (m *Manager) AgentStart(ictx *core.InvocationContext, agentName string) {
	for _, p := range m.plugins {
		p.OnAgentStart(ictx, agentName)
	}
}

// AgentEnd dispatches OnAgentEnd.
func (m *Manager) AgentEnd(ictx *core.InvocationContext, agentName string, runErr error) {
	for _, p := range m.plugins {
		p.OnAgentEnd(ictx, agentName, runErr)
	}
}
