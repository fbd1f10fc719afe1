package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleai/ensemble/core"
)

func TestNewSequentialAgent(t *testing.T) {
	a, err := NewSequentialAgent("Pipeline", []core.Agent{newEchoAgent("A"), newEchoAgent("B")})
	require.NoError(t, err)
	assert.Equal(t, "Pipeline", a.Name())
	assert.Equal(t, "Executes 2 agents in sequence", a.Description())
	assert.Len(t, a.SubAgents(), 2)
}

func TestNewSequentialAgent_NoChildren(t *testing.T) {
	_, err := NewSequentialAgent("Pipeline", nil)
	assert.ErrorIs(t, err, ErrNoSubAgents)
}

func TestSequentialAgent_Run_ChainsOutputs(t *testing.T) {
	first := newEchoAgent("First")
	second := newEchoAgent("Second")
	a, err := NewSequentialAgent("Pipeline", []core.Agent{first, second})
	require.NoError(t, err)

	emit, events := collector()
	err = a.Run(newRunContext(), userText("hello"), emit)
	require.NoError(t, err)

	// Second child receives the first child's output, not the original input.
	require.Len(t, second.inputs, 1)
	assert.Equal(t, "First: hello", second.inputs[0].Text())

	texts := textsOf(*events)
	assert.Equal(t, []string{
		"Starting sequential execution of 2 agents",
		"Running agent First",
		"First: hello",
		"Running agent Second",
		"Second: First: hello",
		"Sequential execution complete. Final output: Second: First: hello",
	}, texts)
}

func TestSequentialAgent_Run_Ordering(t *testing.T) {
	a, err := NewSequentialAgent("Pipeline", []core.Agent{
		newEchoAgent("A"), newEchoAgent("B"), newEchoAgent("C"),
	})
	require.NoError(t, err)

	emit, events := collector()
	require.NoError(t, a.Run(newRunContext(), userText("x"), emit))

	var order []string
	for _, ev := range *events {
		if ev.Author != "Pipeline" {
			order = append(order, ev.Author)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestSequentialAgent_Run_ChildErrorResetsInput(t *testing.T) {
	first := newEchoAgent("First")
	failing := newFailingAgent("Broken", errors.New("boom"))
	third := newEchoAgent("Third")
	a, err := NewSequentialAgent("Pipeline", []core.Agent{first, failing, third})
	require.NoError(t, err)

	emit, events := collector()
	require.NoError(t, a.Run(newRunContext(), userText("origin"), emit))

	// After the failure the next child restarts from the original message.
	require.Len(t, third.inputs, 1)
	assert.Equal(t, "origin", third.inputs[0].Text())

	var diagnostics []core.Event
	for _, ev := range *events {
		if ev.ErrorMessage != nil {
			diagnostics = append(diagnostics, ev)
		}
	}
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "Pipeline", diagnostics[0].Author)
	assert.Contains(t, *diagnostics[0].ErrorMessage, "agent Broken failed")
	assert.Contains(t, *diagnostics[0].ErrorMessage, "boom")
}

func TestSequentialAgent_Run_NilChildDiagnostic(t *testing.T) {
	a, err := NewSequentialAgent("Pipeline", []core.Agent{newEchoAgent("A")})
	require.NoError(t, err)
	require.NoError(t, a.SetSubAgents(newEchoAgent("A"), nil))

	emit, events := collector()
	require.NoError(t, a.Run(newRunContext(), userText("x"), emit))

	var diagnostics int
	for _, ev := range *events {
		if ev.ErrorMessage != nil {
			diagnostics++
			assert.Contains(t, *ev.ErrorMessage, "does not implement the run contract")
		}
	}
	assert.Equal(t, 1, diagnostics)
}

func TestSequentialAgent_Run_StoppedPropagates(t *testing.T) {
	a, err := NewSequentialAgent("Pipeline", []core.Agent{newEchoAgent("A"), newEchoAgent("B")})
	require.NoError(t, err)

	count := 0
	err = a.Run(newRunContext(), userText("x"), func(core.Event) error {
		count++
		if count >= 2 {
			return core.ErrStopped
		}
		return nil
	})
	assert.ErrorIs(t, err, core.ErrStopped)
}
