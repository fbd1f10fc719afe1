package tool

import (
	"fmt"

	"github.com/ensembleai/ensemble/core"
)

// transferToAgentTool lets a model hand the conversation to a named sub-agent
// by recording a transfer directive on the tool context.
type transferToAgentTool struct{}

// NewTransferToAgentTool creates the built-in transfer tool. Model agents
// register it automatically when they have sub-agents to delegate to.
func NewTransferToAgentTool() Tool { return &transferToAgentTool{} }

func (t *transferToAgentTool) Name() string { return "transfer_to_agent" }

func (t *transferToAgentTool) Description() string {
	return "Hand the conversation to another agent by name when it is better suited to continue."
}

func (t *transferToAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent": map[string]any{"type": "string", "description": "Name of the agent to hand off to"},
		},
		"required": []string{"agent"},
	}
}

func (t *transferToAgentTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	agentName, _ := args["agent"].(string)
	if agentName == "" {
		return nil, fmt.Errorf("transfer_to_agent requires a non-empty 'agent' argument")
	}
	tc.TransferToAgent(agentName)
	return map[string]any{"transferred": true, "agent": agentName}, nil
}
