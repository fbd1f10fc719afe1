package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/logging"
)

func newObserverContext() *core.InvocationContext {
	sess := core.NewSession("s-1", "app", "u-1")
	return core.NewInvocationContext(context.Background(), "inv-1", sess, nil,
		nil, nil, nil, core.DefaultRunConfig(), core.DefaultCacheConfig(), logging.NoOpLogger{})
}

// recorderPlugin notes every hook call in order.
type recorderPlugin struct {
	Base
	name string
	log  *[]string
}

func newRecorder(name string, log *[]string) *recorderPlugin {
	return &recorderPlugin{Base: Base{PluginName: name}, name: name, log: log}
}

func (p *recorderPlugin) OnUserMessage(_ *core.InvocationContext, _ *core.Content) {
	*p.log = append(*p.log, p.name+":user_message")
}

func (p *recorderPlugin) OnEvent(_ *core.InvocationContext, _ core.Event) {
	*p.log = append(*p.log, p.name+":event")
}

func (p *recorderPlugin) OnAgentStart(_ *core.InvocationContext, agentName string) {
	*p.log = append(*p.log, p.name+":start:"+agentName)
}

func (p *recorderPlugin) OnAgentEnd(_ *core.InvocationContext, agentName string, runErr error) {
	suffix := "ok"
	if runErr != nil {
		suffix = "err"
	}
	*p.log = append(*p.log, p.name+":end:"+agentName+":"+suffix)
}

func TestManager_DispatchOrder(t *testing.T) {
	var log []string
	m := NewManager(newRecorder("first", &log), newRecorder("second", &log))

	ictx := newObserverContext()
	m.UserMessage(ictx, core.NewTextContent("user", "hi"))
	m.AgentStart(ictx, "Root")
	m.Event(ictx, core.NewMessageEvent("inv-1", "Root", "hello"))
	m.AgentEnd(ictx, "Root", nil)

	assert.Equal(t, []string{
		"first:user_message", "second:user_message",
		"first:start:Root", "second:start:Root",
		"first:event", "second:event",
		"first:end:Root:ok", "second:end:Root:ok",
	}, log)
}

func TestManager_Register(t *testing.T) {
	var log []string
	m := NewManager()
	assert.Empty(t, m.Plugins())

	m.Register(newRecorder("late", &log))
	require.Len(t, m.Plugins(), 1)

	m.AgentEnd(newObserverContext(), "Root", errors.New("boom"))
	assert.Equal(t, []string{"late:end:Root:err"}, log)
}

func TestBase_NoOpHooks(t *testing.T) {
	b := Base{PluginName: "noop"}
	assert.Equal(t, "noop", b.Name())

	// All hooks are callable without side effects.
	ictx := newObserverContext()
	b.OnUserMessage(ictx, nil)
	b.OnEvent(ictx, core.Event{})
	b.OnAgentStart(ictx, "A")
	b.OnAgentEnd(ictx, "A", nil)
}

func TestLoggingPlugin_NilLoggerFallsBack(t *testing.T) {
	p := NewLoggingPlugin(nil)
	assert.Equal(t, "logging", p.Name())

	ictx := newObserverContext()
	p.OnUserMessage(ictx, core.NewTextContent("user", "hi"))
	p.OnEvent(ictx, core.NewMessageEvent("inv-1", "Root", "hello"))
	p.OnAgentStart(ictx, "Root")
	p.OnAgentEnd(ictx, "Root", errors.New("boom"))
}

func TestHooks_FuncBackedPlugin(t *testing.T) {
	var events int
	var ended bool
	h := &Hooks{
		HookName:   "metrics",
		EventFn:    func(*core.InvocationContext, core.Event) { events++ },
		AgentEndFn: func(_ *core.InvocationContext, _ string, _ error) { ended = true },
	}

	m := NewManager(h)
	ictx := newObserverContext()
	m.UserMessage(ictx, nil) // nil fn is skipped
	m.Event(ictx, core.Event{})
	m.Event(ictx, core.Event{})
	m.AgentEnd(ictx, "Root", nil)

	assert.Equal(t, "metrics", h.Name())
	assert.Equal(t, 2, events)
	assert.True(t, ended)
}
