package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/model"
)

func cacheRequest(text string) model.Request {
	return model.Request{Contents: []core.Content{*core.NewTextContent("user", text)}}
}

func TestResponseCache_Key(t *testing.T) {
	c := newResponseCache(time.Minute, 10)

	base := c.key("gpt", "be brief", cacheRequest("hello"))
	assert.Equal(t, base, c.key("gpt", "be brief", cacheRequest("hello")))

	// Any component changing produces a different key.
	assert.NotEqual(t, base, c.key("claude", "be brief", cacheRequest("hello")))
	assert.NotEqual(t, base, c.key("gpt", "be verbose", cacheRequest("hello")))
	assert.NotEqual(t, base, c.key("gpt", "be brief", cacheRequest("goodbye")))
}

func TestResponseCache_PutGet(t *testing.T) {
	c := newResponseCache(time.Minute, 10)
	key := c.key("gpt", "", cacheRequest("hello"))

	_, ok := c.get(key)
	assert.False(t, ok)

	resp := &model.Response{ID: "r-1", FinishReason: "stop"}
	c.put(key, resp)

	got, ok := c.get(key)
	require.True(t, ok)
	assert.Same(t, resp, got)
}

func TestResponseCache_TTLExpiry(t *testing.T) {
	c := newResponseCache(time.Nanosecond, 10)
	key := c.key("gpt", "", cacheRequest("hello"))
	c.put(key, &model.Response{ID: "r-1"})

	time.Sleep(2 * time.Millisecond)
	_, ok := c.get(key)
	assert.False(t, ok)

	// Expired entries are dropped on read.
	c.mu.Lock()
	assert.Empty(t, c.entries)
	c.mu.Unlock()
}

func TestResponseCache_EvictsOldestWhenFull(t *testing.T) {
	c := newResponseCache(time.Minute, 2)

	keyA := c.key("gpt", "", cacheRequest("a"))
	keyB := c.key("gpt", "", cacheRequest("b"))
	keyC := c.key("gpt", "", cacheRequest("c"))

	c.put(keyA, &model.Response{ID: "a"})
	time.Sleep(time.Millisecond)
	c.put(keyB, &model.Response{ID: "b"})
	time.Sleep(time.Millisecond)
	c.put(keyC, &model.Response{ID: "c"})

	_, ok := c.get(keyA)
	assert.False(t, ok)

	gotB, ok := c.get(keyB)
	require.True(t, ok)
	assert.Equal(t, "b", gotB.ID)
	gotC, ok := c.get(keyC)
	require.True(t, ok)
	assert.Equal(t, "c", gotC.ID)
}

func TestBuildBranchPath(t *testing.T) {
	assert.Equal(t, "Root.Fan", buildBranchPath("Root", "Fan"))
	assert.Equal(t, "Fan", buildBranchPath("", "Fan"))
	assert.Equal(t, "Root", buildBranchPath("Root", ""))
}
