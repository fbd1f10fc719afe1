package plugin

import (
	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/logging"
)

// LoggingPlugin records turn lifecycle and every forwarded event through a
// structured logger. Useful for debugging, monitoring and audit trails.
type LoggingPlugin struct {
	Base
	logger logging.Logger
}

// NewLoggingPlugin creates a logging plugin. A nil logger falls back to the
// no-op logger.
func NewLoggingPlugin(logger logging.Logger) *LoggingPlugin {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LoggingPlugin{Base: Base{PluginName: "logging"}, logger: logger}
}

// OnUserMessage implements Plugin.
func (p *LoggingPlugin) OnUserMessage(ictx *core.InvocationContext, message *core.Content) {
	p.logger.Info("plugin.user_message",
		"invocation_id", ictx.InvocationID,
		"text", message.Text(),
	)
}

// OnEvent implements Plugin.
func (p *LoggingPlugin) OnEvent(ictx *core.InvocationContext, ev core.Event) {
	p.logger.Debug("plugin.event",
		"invocation_id", ictx.InvocationID,
		"event_id", ev.ID,
		"author", ev.Author,
		"fn_calls", len(ev.GetFunctionCalls()),
		"final", ev.IsFinalResponse(),
	)
}

// OnAgentStart implements Plugin.
func (p *LoggingPlugin) OnAgentStart(ictx *core.InvocationContext, agentName string) {
	p.logger.Info("plugin.agent_start", "invocation_id", ictx.InvocationID, "agent", agentName)
}

// OnAgentEnd implements Plugin.
func (p *LoggingPlugin) OnAgentEnd(ictx *core.InvocationContext, agentName string, runErr error) {
	if runErr != nil {
		p.logger.Warn("plugin.agent_end", "invocation_id", ictx.InvocationID, "agent", agentName, "error", runErr.Error())
		return
	}
	p.logger.Info("plugin.agent_end", "invocation_id", ictx.InvocationID, "agent", agentName)
}
