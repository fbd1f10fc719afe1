package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleai/ensemble/core"
)

func TestMockModel_Info(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	info := m.Info()
	assert.Equal(t, "test-model", info.Name)
	assert.Equal(t, "mock", info.Provider)
	assert.True(t, info.SupportsTools)
}

func TestMockModel_CannedResponse(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	m.AddResponse("what is 2+2?", "4")

	resp, err := m.Generate(context.Background(), Request{
		Contents: []core.Content{*core.NewTextContent("user", "what is 2+2?")},
	})
	require.NoError(t, err)
	assert.Equal(t, "4", resp.Content.Text())
	assert.Equal(t, "stop", resp.FinishReason)
	assert.NotEmpty(t, resp.ID)
}

func TestMockModel_EchoFallback(t *testing.T) {
	m := NewMockModel("test-model", "mock")

	resp, err := m.Generate(context.Background(), Request{
		Contents: []core.Content{*core.NewTextContent("user", "unscripted")},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: unscripted", resp.Content.Text())
}

func TestMockModel_KeysOnLastContent(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	m.AddResponse("followup", "second answer")

	resp, err := m.Generate(context.Background(), Request{
		Contents: []core.Content{
			*core.NewTextContent("user", "opening"),
			*core.NewTextContent("assistant", "echo: opening"),
			*core.NewTextContent("user", "followup"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "second answer", resp.Content.Text())
}

func TestMockModel_EmptyRequest(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	_, err := m.Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no contents")
}

func TestMockModel_FailWith(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	backendErr := errors.New("quota exhausted")
	m.FailWith(backendErr)

	_, err := m.Generate(context.Background(), Request{
		Contents: []core.Content{*core.NewTextContent("user", "hi")},
	})
	assert.ErrorIs(t, err, backendErr)

	// Failed calls are still recorded.
	assert.Len(t, m.Calls(), 1)
}

func TestMockModel_RecordsCalls(t *testing.T) {
	m := NewMockModel("test-model", "mock")

	for _, text := range []string{"one", "two"} {
		_, err := m.Generate(context.Background(), Request{
			Instructions: "be brief",
			Contents:     []core.Content{*core.NewTextContent("user", text)},
		})
		require.NoError(t, err)
	}

	calls := m.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "one", calls[0].Contents[0].Text())
	assert.Equal(t, "two", calls[1].Contents[0].Text())
	assert.Equal(t, "be brief", calls[0].Instructions)
}
