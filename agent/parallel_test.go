package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleai/ensemble/core"
)

func TestNewParallelAgent(t *testing.T) {
	a, err := NewParallelAgent("FanOut", []core.Agent{newEchoAgent("A"), newEchoAgent("B")})
	require.NoError(t, err)
	assert.Equal(t, StrategyAll, a.Strategy())
	assert.Equal(t, "Executes 2 agents in parallel branches", a.Description())

	_, err = NewParallelAgent("FanOut", nil)
	assert.ErrorIs(t, err, ErrNoSubAgents)
}

func TestParallelAgent_Run_SameInputForAllChildren(t *testing.T) {
	x := newEchoAgent("X")
	y := newEchoAgent("Y")
	a, err := NewParallelAgent("FanOut", []core.Agent{x, y})
	require.NoError(t, err)

	emit, _ := collector()
	require.NoError(t, a.Run(newRunContext(), userText("same"), emit))

	require.Len(t, x.inputs, 1)
	require.Len(t, y.inputs, 1)
	assert.Equal(t, "same", x.inputs[0].Text())
	assert.Equal(t, "same", y.inputs[0].Text())
}

func TestParallelAgent_Run_BranchStamping(t *testing.T) {
	a, err := NewParallelAgent("FanOut", []core.Agent{newEchoAgent("X"), newEchoAgent("Y")})
	require.NoError(t, err)

	emit, events := collector()
	require.NoError(t, a.Run(newRunContext(), userText("in"), emit))

	branches := map[string]string{}
	for _, ev := range *events {
		if ev.Author == "X" || ev.Author == "Y" {
			require.NotNil(t, ev.Branch)
			branches[ev.Author] = *ev.Branch
		}
	}
	assert.Equal(t, "FanOut.X", branches["X"])
	assert.Equal(t, "FanOut.Y", branches["Y"])
}

func TestParallelAgent_Run_NestedBranchPath(t *testing.T) {
	inner, err := NewParallelAgent("Inner", []core.Agent{newEchoAgent("Leaf")})
	require.NoError(t, err)
	outer, err := NewParallelAgent("Outer", []core.Agent{inner})
	require.NoError(t, err)

	emit, events := collector()
	require.NoError(t, outer.Run(newRunContext(), userText("in"), emit))

	var leafBranch string
	for _, ev := range *events {
		if ev.Author == "Leaf" {
			require.NotNil(t, ev.Branch)
			leafBranch = *ev.Branch
		}
	}
	assert.Equal(t, "Outer.Inner.Inner.Leaf", leafBranch)
}

func TestParallelAgent_Run_AllStrategySummary(t *testing.T) {
	a, err := NewParallelAgent("FanOut", []core.Agent{newEchoAgent("X"), newEchoAgent("Y")})
	require.NoError(t, err)

	emit, events := collector()
	require.NoError(t, a.Run(newRunContext(), userText("q"), emit))

	summary := (*events)[len(*events)-1]
	text := summary.Content.Text()
	assert.Contains(t, text, "2 results, 0 failed")
	assert.Contains(t, text, "[X] X: q")
	assert.Contains(t, text, "[Y] Y: q")
}

func TestParallelAgent_Run_FirstStrategyWithFailure(t *testing.T) {
	x := newFailingAgent("X", errors.New("down"))
	y := newEchoAgent("Y")
	a, err := NewParallelAgent("FanOut", []core.Agent{x, y}, func(o *ParallelOptions) {
		o.Strategy = StrategyFirst
	})
	require.NoError(t, err)

	emit, events := collector()
	require.NoError(t, a.Run(newRunContext(), userText("q"), emit))

	// Y still ran despite X failing.
	assert.Len(t, y.inputs, 1)

	summary := (*events)[len(*events)-1]
	text := summary.Content.Text()
	assert.Contains(t, text, "from Y")
	assert.Contains(t, text, "(1 failed)")
}

func TestParallelAgent_Run_FailureIsolation(t *testing.T) {
	a, err := NewParallelAgent("FanOut", []core.Agent{
		newFailingAgent("Bad", errors.New("nope")),
		newEchoAgent("Good"),
	})
	require.NoError(t, err)

	emit, events := collector()
	require.NoError(t, a.Run(newRunContext(), userText("q"), emit))

	var diagnostics int
	for _, ev := range *events {
		if ev.ErrorMessage != nil {
			diagnostics++
		}
	}
	assert.Equal(t, 1, diagnostics)

	summary := (*events)[len(*events)-1]
	assert.Contains(t, summary.Content.Text(), "1 results, 1 failed")
}
