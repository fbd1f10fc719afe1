package ensemble_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleai/ensemble"
	"github.com/ensembleai/ensemble/agent"
	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/internal/testutil"
	"github.com/ensembleai/ensemble/runner"
)

func TestNew_NilRoot(t *testing.T) {
	e, err := ensemble.New(nil)
	require.Error(t, err)
	assert.Nil(t, e)
}

func TestEnsemble_RunSync(t *testing.T) {
	e, err := ensemble.New(testutil.NewEchoAgent("Echo"), func(o *ensemble.Options) {
		o.AppName = "demo"
	})
	require.NoError(t, err)
	require.NotNil(t, e.Runner())
	assert.Equal(t, "demo", e.Runner().AppName())

	events, err := e.RunSync(context.Background(), "u-1", core.NewTextContent("user", "ping"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Echo: ping", events[1].Content.Text())

	sessions := e.SessionService().List("demo", "u-1")
	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].Events, 2)
}

func TestEnsemble_WorkflowPipeline(t *testing.T) {
	upper := testutil.NewScriptedAgent("Draft", func(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error {
		return emit(core.NewMessageEvent(ictx.InvocationID, "Draft", "draft of "+message.Text()))
	})
	review := testutil.NewScriptedAgent("Review", func(ictx *core.InvocationContext, message *core.Content, emit core.EmitFunc) error {
		return emit(core.NewMessageEvent(ictx.InvocationID, "Review", "reviewed "+message.Text()))
	})

	pipeline, err := agent.NewSequentialAgent("Pipeline", []core.Agent{upper, review})
	require.NoError(t, err)

	e, err := ensemble.New(pipeline)
	require.NoError(t, err)

	events, err := e.RunSync(context.Background(), "u-1", core.NewTextContent("user", "the plan"))
	require.NoError(t, err)
	require.NotEmpty(t, events)

	// The reviewer sees the drafter's output, and the final summary reports it.
	last := events[len(events)-1]
	assert.Contains(t, last.Content.Text(), "reviewed draft of the plan")
}

func TestEnsemble_RunStream(t *testing.T) {
	e, err := ensemble.New(testutil.NewStaticAgent("Greeter", "hello there"))
	require.NoError(t, err)

	ch, err := e.Run(context.Background(), "u-1", core.NewTextContent("user", "hi"),
		func(o *runner.RunOptions) { o.NewSession = true })
	require.NoError(t, err)

	var authors []string
	for ev := range ch {
		authors = append(authors, ev.Author)
	}
	assert.Equal(t, []string{"user", "Greeter"}, authors)
}
