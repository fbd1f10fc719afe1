package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_Defaults(t *testing.T) {
	ev := NewEvent("inv-1", "agent")
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "inv-1", ev.InvocationID)
	assert.Equal(t, "agent", ev.Author)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Nil(t, ev.Content)
	assert.False(t, ev.HasContent())
}

func TestNewUserMessageEvent(t *testing.T) {
	ev := NewUserMessageEvent("inv-1", "hello")
	assert.Equal(t, AuthorUser, ev.Author)
	assert.Equal(t, "user", ev.Content.Role)
	assert.Equal(t, "hello", ev.Content.Text())
	assert.True(t, ev.HasContent())
}

func TestNewFunctionResponseEvent_Error(t *testing.T) {
	ev := NewFunctionResponseEvent("inv-1", "agent", "call-1", "lookup", nil, errors.New("timeout"))

	responses := ev.GetFunctionResponses()
	require.Len(t, responses, 1)
	assert.Equal(t, "call-1", responses[0].ID)
	assert.Equal(t, "lookup", responses[0].Name)
	assert.Equal(t, "timeout", responses[0].Error)

	// The event itself is not an error event; the turn keeps flowing.
	assert.Nil(t, ev.ErrorMessage)
}

func TestNewErrorEvent(t *testing.T) {
	ev := NewErrorEvent("inv-1", "agent", errors.New("backend down"))
	require.NotNil(t, ev.ErrorMessage)
	assert.Equal(t, "backend down", *ev.ErrorMessage)
	assert.Contains(t, ev.Content.Text(), "backend down")
}

func TestGetFunctionCalls_PreservesOrder(t *testing.T) {
	ev := NewEvent("inv-1", "agent")
	ev.Content = &Content{Role: "assistant", Parts: []Part{
		FunctionCallPart{FunctionCall: FunctionCall{ID: "1", Name: "first"}},
		TextPart{Text: "between"},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "2", Name: "second"}},
	}}

	calls := ev.GetFunctionCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "first", calls[0].Name)
	assert.Equal(t, "second", calls[1].Name)
}

func TestIsFinalResponse(t *testing.T) {
	user := NewUserMessageEvent("inv-1", "hi")
	assert.True(t, user.IsFinalResponse())

	plain := NewMessageEvent("inv-1", "agent", "done")
	assert.True(t, plain.IsFinalResponse())

	target := "Other"
	transferring := NewEvent("inv-1", "agent")
	transferring.Actions = &EventActions{TransferToAgent: &target}
	assert.False(t, transferring.IsFinalResponse())

	// A user event is final even with a transfer directive attached.
	userTransfer := NewUserMessageEvent("inv-1", "hi")
	userTransfer.Actions = &EventActions{TransferToAgent: &target}
	assert.True(t, userTransfer.IsFinalResponse())
}

func TestEventActions_IsEmpty(t *testing.T) {
	var nilActions *EventActions
	assert.True(t, nilActions.IsEmpty())
	assert.True(t, (&EventActions{}).IsEmpty())

	esc := true
	assert.False(t, (&EventActions{Escalate: &esc}).IsEmpty())
	assert.False(t, (&EventActions{StateDelta: map[string]any{"k": 1}}).IsEmpty())
}
