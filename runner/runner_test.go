package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/internal/testutil"
	"github.com/ensembleai/ensemble/plugin"
	"github.com/ensembleai/ensemble/runner"
	"github.com/ensembleai/ensemble/session"
)

func TestNew_NilRootErrors(t *testing.T) {
	r, err := runner.New(nil)
	require.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "root agent")
}

func TestNew_Defaults(t *testing.T) {
	r, err := runner.New(testutil.NewEchoAgent("Echo"))
	require.NoError(t, err)

	assert.Equal(t, "ensemble", r.AppName())
	assert.NotNil(t, r.SessionService())
}

func TestRunner_Run_UserEventFirst(t *testing.T) {
	r, err := runner.New(testutil.NewEchoAgent("Echo"))
	require.NoError(t, err)

	events, err := r.RunSync(context.Background(), "u-1", core.NewTextContent("user", "hello"))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "user", events[0].Author)
	assert.Equal(t, "hello", events[0].Content.Text())
	assert.Equal(t, "Echo", events[1].Author)
	assert.Equal(t, "Echo: hello", events[1].Content.Text())

	// Both events belong to the same invocation.
	assert.Equal(t, events[0].InvocationID, events[1].InvocationID)
}

func TestRunner_Run_PersistsEveryEvent(t *testing.T) {
	svc := session.NewInMemoryService()
	sess, err := svc.Create("ensemble", "u-1", nil)
	require.NoError(t, err)

	r, err := runner.New(testutil.NewEchoAgent("Echo"), func(o *runner.Options) {
		o.SessionService = svc
	})
	require.NoError(t, err)

	events, err := r.RunSync(context.Background(), "u-1", core.NewTextContent("user", "hi"),
		func(o *runner.RunOptions) { o.SessionID = sess.ID })
	require.NoError(t, err)
	require.Len(t, events, 2)

	stored, err := svc.Get("ensemble", "u-1", sess.ID)
	require.NoError(t, err)
	require.Len(t, stored.Events, 2)
	for i, ev := range stored.Events {
		assert.Equal(t, events[i].ID, ev.ID)
	}
}

func TestRunner_Run_AppliesStateDelta(t *testing.T) {
	svc := session.NewInMemoryService()
	sess, err := svc.Create("ensemble", "u-1", nil)
	require.NoError(t, err)

	root := testutil.NewScriptedAgent("Writer", func(ictx *core.InvocationContext, _ *core.Content, emit core.EmitFunc) error {
		ev := testutil.NewEventBuilder().
			Invocation(ictx.InvocationID).
			Author("Writer").
			AssistantText("saved").
			StateDelta("answer", 42).
			Build()
		return emit(ev)
	})

	r, err := runner.New(root, func(o *runner.Options) { o.SessionService = svc })
	require.NoError(t, err)

	_, err = r.RunSync(context.Background(), "u-1", core.NewTextContent("user", "go"),
		func(o *runner.RunOptions) { o.SessionID = sess.ID })
	require.NoError(t, err)

	stored, err := svc.Get("ensemble", "u-1", sess.ID)
	require.NoError(t, err)
	val, ok := stored.GetState("answer")
	require.True(t, ok)
	assert.Equal(t, 42, val)
}

func TestRunner_Run_TransferStopsStream(t *testing.T) {
	var secondEmit error
	root := testutil.NewScriptedAgent("Router", func(ictx *core.InvocationContext, _ *core.Content, emit core.EmitFunc) error {
		handoff := testutil.NewEventBuilder().
			Invocation(ictx.InvocationID).
			Author("Router").
			AssistantText("handing off").
			Transfer("Specialist").
			Build()
		if err := emit(handoff); err != nil {
			return err
		}
		secondEmit = emit(core.NewMessageEvent(ictx.InvocationID, "Router", "never seen"))
		return secondEmit
	})

	r, err := runner.New(root)
	require.NoError(t, err)

	events, err := r.RunSync(context.Background(), "u-1", core.NewTextContent("user", "route me"))
	require.NoError(t, err)

	assert.ErrorIs(t, secondEmit, core.ErrStopped)

	// The stream ends at the transfer event and no failure event is appended.
	require.Len(t, events, 2)
	last := events[1]
	require.NotNil(t, last.Actions)
	require.NotNil(t, last.Actions.TransferToAgent)
	assert.Equal(t, "Specialist", *last.Actions.TransferToAgent)
}

func TestRunner_Run_FailureBecomesSystemEvent(t *testing.T) {
	svc := session.NewInMemoryService()
	sess, err := svc.Create("ensemble", "u-1", nil)
	require.NoError(t, err)

	r, err := runner.New(testutil.NewFailingAgent("Broken", errors.New("backend down")),
		func(o *runner.Options) { o.SessionService = svc })
	require.NoError(t, err)

	events, err := r.RunSync(context.Background(), "u-1", core.NewTextContent("user", "hi"),
		func(o *runner.RunOptions) { o.SessionID = sess.ID })
	require.NoError(t, err)
	require.Len(t, events, 2)

	last := events[1]
	assert.Equal(t, core.AuthorSystem, last.Author)
	require.NotNil(t, last.ErrorMessage)
	assert.Contains(t, *last.ErrorMessage, "backend down")

	stored, err := svc.Get("ensemble", "u-1", sess.ID)
	require.NoError(t, err)
	require.Len(t, stored.Events, 2)
	assert.Equal(t, core.AuthorSystem, stored.Events[1].Author)
}

func TestRunner_Run_PanicBecomesSystemEvent(t *testing.T) {
	root := testutil.NewScriptedAgent("Volatile", func(*core.InvocationContext, *core.Content, core.EmitFunc) error {
		panic("wires crossed")
	})

	r, err := runner.New(root)
	require.NoError(t, err)

	events, err := r.RunSync(context.Background(), "u-1", core.NewTextContent("user", "hi"))
	require.NoError(t, err)
	require.Len(t, events, 2)

	last := events[1]
	assert.Equal(t, core.AuthorSystem, last.Author)
	require.NotNil(t, last.ErrorMessage)
	assert.Contains(t, *last.ErrorMessage, "agent tree panicked")
	assert.Contains(t, *last.ErrorMessage, "wires crossed")
}

func TestRunner_Run_ReusesSessionAcrossTurns(t *testing.T) {
	svc := session.NewInMemoryService()
	sess, err := svc.Create("ensemble", "u-1", nil)
	require.NoError(t, err)

	r, err := runner.New(testutil.NewEchoAgent("Echo"), func(o *runner.Options) {
		o.SessionService = svc
	})
	require.NoError(t, err)

	for _, text := range []string{"first", "second"} {
		_, err := r.RunSync(context.Background(), "u-1", core.NewTextContent("user", text),
			func(o *runner.RunOptions) { o.SessionID = sess.ID })
		require.NoError(t, err)
	}

	stored, err := svc.Get("ensemble", "u-1", sess.ID)
	require.NoError(t, err)
	require.Len(t, stored.Events, 4)
	assert.Equal(t, "first", stored.Events[0].Content.Text())
	assert.Equal(t, "second", stored.Events[2].Content.Text())
}

func TestRunner_Run_UnknownSessionErrors(t *testing.T) {
	r, err := runner.New(testutil.NewEchoAgent("Echo"))
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "u-1", core.NewTextContent("user", "hi"),
		func(o *runner.RunOptions) { o.SessionID = "ghost" })
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestRunner_Run_CreatesSessionWithInitialState(t *testing.T) {
	r, err := runner.New(testutil.NewEchoAgent("Echo"))
	require.NoError(t, err)

	_, err = r.RunSync(context.Background(), "u-1", core.NewTextContent("user", "hi"),
		func(o *runner.RunOptions) {
			o.NewSession = true
			o.InitialState = map[string]any{"plan": "basic"}
		})
	require.NoError(t, err)

	sessions := r.SessionService().List("ensemble", "u-1")
	require.Len(t, sessions, 1)
	val, ok := sessions[0].GetState("plan")
	require.True(t, ok)
	assert.Equal(t, "basic", val)
}

func TestRunner_Run_NotifiesPlugins(t *testing.T) {
	var observed []string
	hooks := &plugin.Hooks{
		HookName: "recorder",
		UserMessageFn: func(_ *core.InvocationContext, message *core.Content) {
			observed = append(observed, "user:"+message.Text())
		},
		EventFn: func(_ *core.InvocationContext, ev core.Event) {
			observed = append(observed, "event:"+ev.Author)
		},
		AgentStartFn: func(_ *core.InvocationContext, agentName string) {
			observed = append(observed, "start:"+agentName)
		},
		AgentEndFn: func(_ *core.InvocationContext, agentName string, runErr error) {
			observed = append(observed, "end:"+agentName)
		},
	}

	r, err := runner.New(testutil.NewEchoAgent("Echo"), func(o *runner.Options) {
		o.Plugins = plugin.NewManager(hooks)
	})
	require.NoError(t, err)

	_, err = r.RunSync(context.Background(), "u-1", core.NewTextContent("user", "hi"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"user:hi",
		"event:user",
		"start:Echo",
		"event:Echo",
		"end:Echo",
	}, observed)
}
