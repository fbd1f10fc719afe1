package agent

import (
	"context"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/logging"
)

// fakeAgent is a scripted leaf agent for workflow tests. With no script it
// emits a single message event "<name>: <input text>" so output chaining is
// observable.
type fakeAgent struct {
	BaseAgent
	runFn  func(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error
	inputs []*core.Content
}

func newFakeAgent(name string, runFn func(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error) *fakeAgent {
	base, err := NewBaseAgent(name)
	if err != nil {
		panic(err)
	}
	a := &fakeAgent{BaseAgent: base, runFn: runFn}
	a.Bind(a)
	return a
}

func newEchoAgent(name string) *fakeAgent { return newFakeAgent(name, nil) }

func newFailingAgent(name string, err error) *fakeAgent {
	return newFakeAgent(name, func(*core.InvocationContext, *core.Content, core.EmitFunc) error {
		return err
	})
}

func (a *fakeAgent) Run(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error {
	a.inputs = append(a.inputs, message)
	if a.runFn != nil {
		return a.runFn(ictx, message, emit)
	}
	return emit(core.NewMessageEvent(ictx.InvocationID, a.Name(), a.Name()+": "+message.Text()))
}

func (a *fakeAgent) Clone(overrides *core.CloneOverrides) (core.Agent, error) {
	b, err := a.cloneBase(overrides)
	if err != nil {
		return nil, err
	}
	c := &fakeAgent{BaseAgent: b, runFn: a.runFn}
	c.Bind(c)
	return c, nil
}

// newRunContext builds a minimal invocation context over a fresh session.
func newRunContext() *core.InvocationContext {
	sess := core.NewSession("test-session", "test-app", "test-user")
	return core.NewInvocationContext(
		context.Background(),
		"test-invocation",
		sess,
		nil,
		nil, nil, nil,
		core.DefaultRunConfig(),
		core.DefaultCacheConfig(),
		logging.NoOpLogger{},
	)
}

// collector returns an emit func appending every event to the returned slice.
func collector() (core.EmitFunc, *[]core.Event) {
	var events []core.Event
	return func(ev core.Event) error {
		events = append(events, ev)
		return nil
	}, &events
}

func userText(text string) *core.Content { return core.NewTextContent("user", text) }

// textsOf extracts the text of every content-bearing event.
func textsOf(events []core.Event) []string {
	var out []string
	for _, ev := range events {
		if ev.HasContent() {
			out = append(out, ev.Content.Text())
		}
	}
	return out
}
