package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/ensembleai/ensemble/agent"
	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/model"
)

// RunFunc is the scripted behavior of a ScriptedAgent.
type RunFunc func(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error

// ScriptedAgent is a leaf agent whose Run behavior is supplied by the test.
// It records every input it receives, so ordering and input-propagation
// assertions stay simple.
type ScriptedAgent struct {
	agent.BaseAgent

	runFn RunFunc

	mu     sync.Mutex
	inputs []*core.Content
}

// NewScriptedAgent creates a scripted agent. A nil runFn emits a single text
// event "<name>: ok". The name must be a valid agent name; invalid names
// panic since they indicate a broken test.
func NewScriptedAgent(name string, runFn RunFunc) *ScriptedAgent {
	base, err := agent.NewBaseAgent(name)
	if err != nil {
		panic(fmt.Sprintf("testutil: invalid agent name %q: %v", name, err))
	}
	a := &ScriptedAgent{BaseAgent: base, runFn: runFn}
	a.Bind(a)
	return a
}

// NewEchoAgent creates a scripted agent that emits one text event echoing the
// input message prefixed with its own name.
func NewEchoAgent(name string) *ScriptedAgent {
	return NewScriptedAgent(name, nil)
}

// NewStaticAgent creates a scripted agent that always emits the fixed text.
func NewStaticAgent(name, text string) *ScriptedAgent {
	return NewScriptedAgent(name, func(ictx *core.InvocationContext, _ *core.Content, emit core.EmitFunc) error {
		ev := core.NewMessageEvent(ictx.InvocationID, name, text)
		return emit(ev)
	})
}

// NewFailingAgent creates a scripted agent whose Run always returns err
// without emitting anything.
func NewFailingAgent(name string, err error) *ScriptedAgent {
	return NewScriptedAgent(name, func(*core.InvocationContext, *core.Content, core.EmitFunc) error {
		return err
	})
}

// Run implements core.Agent.
func (a *ScriptedAgent) Run(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error {
	a.mu.Lock()
	a.inputs = append(a.inputs, message)
	a.mu.Unlock()

	if a.runFn != nil {
		return a.runFn(ictx, message, emit)
	}
	ev := core.NewMessageEvent(ictx.InvocationID, a.Name(), a.Name()+": "+message.Text())
	return emit(ev)
}

// Clone implements core.Agent. The script is shared; recorded inputs are not.
func (a *ScriptedAgent) Clone(overrides *core.CloneOverrides) (core.Agent, error) {
	name := a.Name()
	if overrides != nil && overrides.Name != "" {
		name = overrides.Name
	}
	clone := NewScriptedAgent(name, a.runFn)
	return clone, nil
}

// Inputs returns the messages passed to Run so far, in order.
func (a *ScriptedAgent) Inputs() []*core.Content {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*core.Content, len(a.inputs))
	copy(out, a.inputs)
	return out
}

// Calls returns how many times Run was invoked.
func (a *ScriptedAgent) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inputs)
}

// ScriptedModel returns queued responses in order, independent of the prompt.
// Once the queue is exhausted it returns a plain "done" text response. Use it
// for multi-round tool call flows where model.MockModel's prompt keying is
// too rigid.
type ScriptedModel struct {
	mu        sync.Mutex
	responses []*model.Response
	calls     []model.Request
	err       error
}

// NewScriptedModel queues the given responses.
func NewScriptedModel(responses ...*model.Response) *ScriptedModel {
	return &ScriptedModel{responses: responses}
}

// FailWith makes every subsequent Generate call return err.
func (m *ScriptedModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the requests seen so far, in order.
func (m *ScriptedModel) Calls() []model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// Generate implements model.Model.
func (m *ScriptedModel) Generate(_ context.Context, req model.Request) (*model.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return TextResponse("done"), nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

// Info implements model.Model.
func (m *ScriptedModel) Info() model.Info {
	return model.Info{Name: "scripted", Provider: "test", SupportsTools: true}
}

// TextResponse builds a plain assistant text response.
func TextResponse(text string) *model.Response {
	return &model.Response{
		ID:           core.NewID(),
		Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}},
		FinishReason: "stop",
	}
}

// ToolCallResponse builds an assistant response requesting one tool call.
func ToolCallResponse(callID, name, args string) *model.Response {
	return &model.Response{
		ID: core.NewID(),
		Content: core.Content{
			Role: "assistant",
			Parts: []core.Part{
				core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: callID, Name: name, Arguments: args}},
			},
		},
		FinishReason: "tool_calls",
	}
}
