package tool

import (
	"fmt"
	"strings"

	"github.com/ensembleai/ensemble/core"
)

// StateManagerTool exposes session state, flow control, artifact and memory
// operations to models through a single multiplexed tool. It is the canonical
// example of driving the full ToolContext surface from one tool.
type StateManagerTool struct {
	name        string
	description string
}

// NewStateManagerTool creates a new state management tool.
func NewStateManagerTool() *StateManagerTool {
	return &StateManagerTool{
		name: "state_manager",
		description: "Manages session state, agent flow control, and framework integration. " +
			"Supports operations: get_state, set_state, transfer_agent, escalate, save_artifact, " +
			"load_artifact, list_artifacts, search_memory, store_memory, get_session_history, " +
			"skip_summarization.",
	}
}

// Name returns the tool identifier.
func (t *StateManagerTool) Name() string { return t.name }

// Description returns the tool description.
func (t *StateManagerTool) Description() string { return t.description }

// Parameters returns the JSON schema for tool parameters.
func (t *StateManagerTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"operation": map[string]interface{}{
				"type": "string",
				"enum": []string{
					"get_state", "set_state", "transfer_agent", "escalate",
					"save_artifact", "load_artifact", "search_memory", "store_memory",
					"list_artifacts", "get_session_history", "skip_summarization",
				},
				"description": "The state management operation to perform",
			},
			"key": map[string]interface{}{
				"type":        "string",
				"description": "State key for get_state/set_state operations",
			},
			"value": map[string]interface{}{
				"description": "Value for set_state operations (any type)",
			},
			"agent_name": map[string]interface{}{
				"type":        "string",
				"description": "Agent name for transfer_agent operation",
			},
			"artifact_id": map[string]interface{}{
				"type":        "string",
				"description": "Artifact identifier for artifact operations",
			},
			"data": map[string]interface{}{
				"type":        "string",
				"description": "Data for save_artifact operation",
			},
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query for memory operations",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Content to store in memory",
			},
			"metadata": map[string]interface{}{
				"type":        "object",
				"description": "Metadata for memory storage",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Limit for search operations (default: 10)",
				"default":     10,
			},
		},
		"required": []string{"operation"},
	}
}

// Call dispatches to the requested operation.
func (t *StateManagerTool) Call(toolCtx *core.ToolContext, args map[string]interface{}) (interface{}, error) {
	operation, ok := args["operation"].(string)
	if !ok {
		return nil, fmt.Errorf("operation parameter is required")
	}

	switch operation {
	case "get_state":
		key, err := requireString(args, "key", operation)
		if err != nil {
			return nil, err
		}
		value, exists := toolCtx.GetState(key)
		return map[string]interface{}{"key": key, "exists": exists, "value": value}, nil

	case "set_state":
		key, err := requireString(args, "key", operation)
		if err != nil {
			return nil, err
		}
		value := args["value"] // Can be any type
		toolCtx.SetState(key, value)
		return map[string]interface{}{"key": key, "value": value, "success": true}, nil

	case "transfer_agent":
		agentName, err := requireString(args, "agent_name", operation)
		if err != nil {
			return nil, err
		}
		toolCtx.TransferToAgent(agentName)
		return map[string]interface{}{
			"agent_name": agentName,
			"success":    true,
			"message":    fmt.Sprintf("Transfer to agent '%s' initiated", agentName),
		}, nil

	case "escalate":
		toolCtx.Escalate()
		return map[string]interface{}{"success": true, "message": "Escalation initiated"}, nil

	case "save_artifact":
		return t.handleSaveArtifact(args, toolCtx)

	case "load_artifact":
		return t.handleLoadArtifact(args, toolCtx)

	case "list_artifacts":
		artifacts, err := toolCtx.ListArtifacts()
		if err != nil {
			return nil, fmt.Errorf("failed to list artifacts: %w", err)
		}
		return map[string]interface{}{"artifacts": artifacts, "count": len(artifacts), "success": true}, nil

	case "search_memory":
		return t.handleSearchMemory(args, toolCtx)

	case "store_memory":
		return t.handleStoreMemory(args, toolCtx)

	case "get_session_history":
		return t.handleGetSessionHistory(toolCtx)

	case "skip_summarization":
		toolCtx.SkipSummarization()
		return map[string]interface{}{
			"success": true,
			"message": "Summarization will be skipped for this interaction",
		}, nil

	default:
		return nil, fmt.Errorf("unknown operation: %s", operation)
	}
}

func requireString(args map[string]interface{}, key, operation string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s parameter is required for %s operation", key, operation)
	}
	return v, nil
}

func (t *StateManagerTool) handleSaveArtifact(args map[string]interface{}, toolCtx *core.ToolContext) (interface{}, error) {
	artifactID, err := requireString(args, "artifact_id", "save_artifact")
	if err != nil {
		return nil, err
	}
	dataStr, err := requireString(args, "data", "save_artifact")
	if err != nil {
		return nil, err
	}

	data := []byte(dataStr)
	if err := toolCtx.SaveArtifact(artifactID, data); err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}
	return map[string]interface{}{
		"artifact_id": artifactID,
		"size":        len(data),
		"success":     true,
	}, nil
}

func (t *StateManagerTool) handleLoadArtifact(args map[string]interface{}, toolCtx *core.ToolContext) (interface{}, error) {
	artifactID, err := requireString(args, "artifact_id", "load_artifact")
	if err != nil {
		return nil, err
	}
	data, err := toolCtx.LoadArtifact(artifactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}
	return map[string]interface{}{
		"artifact_id": artifactID,
		"data":        string(data),
		"size":        len(data),
		"success":     true,
	}, nil
}

func (t *StateManagerTool) handleSearchMemory(args map[string]interface{}, toolCtx *core.ToolContext) (interface{}, error) {
	query, err := requireString(args, "query", "search_memory")
	if err != nil {
		return nil, err
	}
	limit := 10
	if l, ok := args["limit"].(float64); ok {
		limit = int(l)
	}
	results, err := toolCtx.SearchMemory(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search memory: %w", err)
	}
	return map[string]interface{}{
		"query":   query,
		"limit":   limit,
		"count":   len(results),
		"results": results,
		"success": true,
	}, nil
}

func (t *StateManagerTool) handleStoreMemory(args map[string]interface{}, toolCtx *core.ToolContext) (interface{}, error) {
	content, err := requireString(args, "content", "store_memory")
	if err != nil {
		return nil, err
	}
	metadata := make(map[string]interface{})
	if m, ok := args["metadata"].(map[string]interface{}); ok {
		metadata = m
	}
	if err := toolCtx.StoreMemory(content, metadata); err != nil {
		return nil, fmt.Errorf("failed to store memory: %w", err)
	}
	return map[string]interface{}{"content": content, "metadata": metadata, "success": true}, nil
}

func (t *StateManagerTool) handleGetSessionHistory(toolCtx *core.ToolContext) (interface{}, error) {
	history := toolCtx.GetSessionHistory()

	events := make([]map[string]interface{}, len(history))
	for i, ev := range history {
		events[i] = map[string]interface{}{
			"id":          ev.ID,
			"author":      ev.Author,
			"timestamp":   ev.Timestamp,
			"has_content": ev.Content != nil,
		}
		if ev.Content == nil || len(ev.Content.Parts) == 0 {
			continue
		}
		var summary []string
		for _, part := range ev.Content.Parts {
			switch p := part.(type) {
			case core.TextPart:
				preview := p.Text
				if len(preview) > 100 {
					preview = preview[:100] + "..."
				}
				summary = append(summary, fmt.Sprintf("text: %s", preview))
			case core.FunctionCallPart:
				summary = append(summary, fmt.Sprintf("function_call: %s", p.FunctionCall.Name))
			case core.FunctionResponsePart:
				summary = append(summary, fmt.Sprintf("function_response: %s", p.FunctionResponse.Name))
			default:
				summary = append(summary, "other")
			}
		}
		events[i]["content_summary"] = strings.Join(summary, ", ")
	}

	return map[string]interface{}{"events": events, "count": len(events), "success": true}, nil
}
