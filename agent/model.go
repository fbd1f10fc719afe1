package agent

import (
	"encoding/json"
	"fmt"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/model"
	"github.com/ensembleai/ensemble/tool"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	BaseOptions
	Instruction           Instruction
	EnableFunctionCalling bool
	OutputKey             string
	MaxHistoryMessages    int
	AllowTransfer         bool
	Tools                 []tool.Tool
}

// ModelAgent integrates with language models to provide intelligent text
// processing capabilities.
//
// Every event a ModelAgent emits is authored by its own name. Model or tool
// failures never escape as errors: they are converted into diagnostic events
// so the turn always terminates with at least one explanatory record.
//
// Supported capabilities:
//   - Natural language conversation with templated instructions
//   - Function calling with registered tools (schema-validated arguments)
//   - Session state management with an output key
//   - Per-invocation model call limiting and optional response caching
type ModelAgent struct {
	BaseAgent
	llm                   model.Model
	instruction           Instruction
	tools                 map[string]tool.Tool
	toolOrder             []string
	enableFunctionCalling bool
	outputKey             string
	maxHistoryMessages    int
	allowTransfer         bool
	cache                 *responseCache
}

// NewModelAgent creates a new model-based agent with sensible defaults.
//
// Defaults:
//   - Instruction "You are <name>, a helpful AI assistant."
//   - Function calling enabled
//   - 20-message conversation history window
//   - Transfer to sub-agents enabled (registers the transfer_to_agent tool)
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) (*ModelAgent, error) {
	opts := ModelAgentOptions{
		EnableFunctionCalling: true,
		MaxHistoryMessages:    20,
		AllowTransfer:         true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Instruction == (Instruction{}) {
		opts.Instruction = NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name))
	}

	b, err := NewBaseAgent(name, func(o *BaseOptions) {
		if opts.Description != "" {
			o.Description = opts.Description
		}
		o.BeforeRun = opts.BeforeRun
		o.AfterRun = opts.AfterRun
	})
	if err != nil {
		return nil, err
	}

	a := &ModelAgent{
		BaseAgent:             b,
		llm:                   llm,
		instruction:           opts.Instruction,
		tools:                 make(map[string]tool.Tool),
		enableFunctionCalling: opts.EnableFunctionCalling,
		outputKey:             opts.OutputKey,
		maxHistoryMessages:    opts.MaxHistoryMessages,
		allowTransfer:         opts.AllowTransfer,
	}
	a.Bind(a)

	if opts.AllowTransfer {
		a.RegisterTool(tool.NewTransferToAgentTool())
	}
	a.RegisterTools(opts.Tools...)

	return a, nil
}

// RegisterTool adds a function tool to the agent's capability set. A tool
// with an already registered name replaces the previous one.
func (a *ModelAgent) RegisterTool(t tool.Tool) {
	if _, exists := a.tools[t.Name()]; !exists {
		a.toolOrder = append(a.toolOrder, t.Name())
	}
	a.tools[t.Name()] = t
}

// RegisterTools adds multiple tools to the agent's capability set.
func (a *ModelAgent) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// UnregisterTool removes a tool from the agent's capability set.
// Returns true if the tool was found and removed.
func (a *ModelAgent) UnregisterTool(name string) bool {
	if _, exists := a.tools[name]; !exists {
		return false
	}
	delete(a.tools, name)
	for i, n := range a.toolOrder {
		if n == name {
			a.toolOrder = append(a.toolOrder[:i], a.toolOrder[i+1:]...)
			break
		}
	}
	return true
}

// HasTool checks if a tool is registered with the agent.
func (a *ModelAgent) HasTool(name string) bool {
	_, exists := a.tools[name]
	return exists
}

// ListTools returns the names of all registered tools in registration order.
func (a *ModelAgent) ListTools() []string {
	names := make([]string, len(a.toolOrder))
	copy(names, a.toolOrder)
	return names
}

// GetTool retrieves a specific tool by name.
func (a *ModelAgent) GetTool(name string) (tool.Tool, bool) {
	t, exists := a.tools[name]
	return t, exists
}

// OutputKey returns the session state key the final response is staged under.
func (a *ModelAgent) OutputKey() string { return a.outputKey }

// Clone returns a structurally independent copy of this agent and its subtree.
// The tool registry and model reference are shared; they are stateless
// collaborators, not owned children.
func (a *ModelAgent) Clone(overrides *core.CloneOverrides) (core.Agent, error) {
	b, err := a.cloneBase(overrides)
	if err != nil {
		return nil, err
	}
	children, err := a.cloneChildren()
	if err != nil {
		return nil, err
	}

	c := &ModelAgent{
		BaseAgent:             b,
		llm:                   a.llm,
		instruction:           a.instruction,
		tools:                 make(map[string]tool.Tool, len(a.tools)),
		toolOrder:             append([]string(nil), a.toolOrder...),
		enableFunctionCalling: a.enableFunctionCalling,
		outputKey:             a.outputKey,
		maxHistoryMessages:    a.maxHistoryMessages,
		allowTransfer:         a.allowTransfer,
	}
	for name, t := range a.tools {
		c.tools[name] = t
	}
	c.Bind(c)
	if err := c.SetSubAgents(children...); err != nil {
		return nil, err
	}
	return c, nil
}

// Run implements core.Agent. It resolves the instruction, assembles the
// conversation window, then drives the model / tool loop bounded by
// RunConfig.MaxToolIterations.
func (a *ModelAgent) Run(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error {
	if err := a.runBefore(ictx, emit); err != nil {
		return err
	}

	instructions, err := a.instruction.Resolve(ictx.Snapshot())
	if err != nil {
		ictx.Logger.Error("agent.instruction.error", "agent", a.Name(), "error", err.Error())
		return emit(core.NewErrorEvent(ictx.InvocationID, a.Name(),
			fmt.Errorf("instruction resolution failed: %w", err)))
	}

	req := model.Request{
		Instructions: instructions,
		Contents:     a.buildContents(ictx, message),
		Tools:        a.toolDefinitions(),
	}

	maxToolIterations := ictx.RunConfig.MaxToolIterations
	if maxToolIterations <= 0 {
		maxToolIterations = 1
	}

	for iteration := 0; iteration <= maxToolIterations; iteration++ {
		resp, genErr := a.generate(ictx, instructions, req)
		if genErr != nil {
			if ictx.Err() != nil {
				return ictx.Err()
			}
			ictx.Logger.Error("agent.model.error", "agent", a.Name(), "error", genErr.Error())
			return emit(core.NewErrorEvent(ictx.InvocationID, a.Name(), genErr))
		}

		calls := functionCalls(&resp.Content)
		runTools := a.enableFunctionCalling && len(calls) > 0 && iteration < maxToolIterations

		ev := core.NewEvent(ictx.InvocationID, a.Name())
		ev.Content = &resp.Content
		if !runTools && a.outputKey != "" {
			if text := resp.Content.Text(); text != "" {
				ev.Actions = &core.EventActions{StateDelta: map[string]any{a.outputKey: text}}
			}
		}
		if err := emit(ev); err != nil {
			return err
		}

		if !runTools {
			if a.enableFunctionCalling && len(calls) > 0 {
				// Budget exhausted with the model still requesting tools.
				if err := emit(core.NewErrorEvent(ictx.InvocationID, a.Name(),
					fmt.Errorf("tool iteration limit (%d) reached", maxToolIterations))); err != nil {
					return err
				}
			}
			break
		}

		req.Contents = append(req.Contents, resp.Content)
		for _, call := range calls {
			respEv := a.executeToolCall(ictx, call)
			if err := emit(respEv); err != nil {
				return err
			}
			if respEv.Content != nil {
				req.Contents = append(req.Contents, *respEv.Content)
			}
		}
	}

	return a.runAfter(ictx, emit)
}

// generate calls the model, consulting the response cache when enabled. Only
// responses without tool calls are cached.
func (a *ModelAgent) generate(ictx *core.InvocationContext, instructions string, req model.Request) (*model.Response, error) {
	cacheCfg := ictx.CacheConfig
	var key string
	if cacheCfg.Enabled {
		if a.cache == nil {
			a.cache = newResponseCache(cacheCfg.TTL, cacheCfg.MaxEntries)
		}
		key = a.cache.key(a.llm.Info().Name, instructions, req)
		if resp, ok := a.cache.get(key); ok {
			ictx.Logger.Debug("agent.model.cache_hit", "agent", a.Name())
			return resp, nil
		}
	}

	if err := ictx.ModelLimiter().Increment(); err != nil {
		return nil, err
	}

	resp, err := a.llm.Generate(ictx.Context, req)
	if err != nil {
		return nil, err
	}

	if cacheCfg.Enabled && len(functionCalls(&resp.Content)) == 0 {
		a.cache.put(key, resp)
	}
	return resp, nil
}

// executeToolCall runs one requested tool and wraps the outcome (or failure)
// in a function-response event. Staged ToolContext actions (state deltas,
// transfer, escalation) are merged onto the event before return.
func (a *ModelAgent) executeToolCall(ictx *core.InvocationContext, call core.FunctionCall) core.Event {
	toolCtx := core.NewToolContext(ictx, a.Name(), call.ID)

	t, exists := a.tools[call.Name]
	if !exists {
		ev := core.NewFunctionResponseEvent(ictx.InvocationID, a.Name(), call.ID, call.Name,
			nil, fmt.Errorf("tool %s not found", call.Name))
		return ev
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return core.NewFunctionResponseEvent(ictx.InvocationID, a.Name(), call.ID, call.Name,
				nil, fmt.Errorf("invalid arguments: %w", err))
		}
	}

	result, err := t.Call(toolCtx, args)
	ev := core.NewFunctionResponseEvent(ictx.InvocationID, a.Name(), call.ID, call.Name, result, err)
	toolCtx.ApplyActions(&ev)
	return ev
}

// buildContents assembles the windowed conversation history plus the current
// input message. The message is skipped when it is already the session log's
// latest content (the runner persists the user event before driving the tree).
func (a *ModelAgent) buildContents(ictx *core.InvocationContext, message *core.Content) []core.Content {
	history := ictx.Events()
	var contents []core.Content
	var lastContent *core.Content

	for _, ev := range history {
		if !ev.HasContent() {
			continue
		}
		switch ev.Content.Role {
		case "user", "assistant", "tool":
			contents = append(contents, *ev.Content)
			lastContent = ev.Content
		}
	}

	if a.maxHistoryMessages > 0 && len(contents) > a.maxHistoryMessages {
		contents = contents[len(contents)-a.maxHistoryMessages:]
	}

	if message != nil && !message.IsEmpty() && message != lastContent {
		contents = append(contents, *message)
	}
	return contents
}

// toolDefinitions renders the registry for the model request.
func (a *ModelAgent) toolDefinitions() []model.ToolDefinition {
	if !a.enableFunctionCalling || len(a.toolOrder) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, len(a.toolOrder))
	for _, name := range a.toolOrder {
		t := a.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
