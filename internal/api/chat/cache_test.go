package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

func TestResponseCacheReplayMarksDuplicate(t *testing.T) {
	cache := NewResponseCache(time.Minute, 15*time.Second)
	cache.Store("s1", "key", types.ChatResponse{Message: "answer", Source: "data+ai"})

	replay := cache.ReplayDuplicate("s1", "key")
	require.NotNil(t, replay)
	assert.True(t, replay.Duplicate)
	assert.Equal(t, "data+ai_cached", replay.Source)
	assert.Equal(t, "answer", replay.Message)

	// another session sees nothing in the per-session layer
	assert.Nil(t, cache.ReplayDuplicate("s2", "key"))
}

func TestResponseCacheGlobalSharedAcrossSessions(t *testing.T) {
	cache := NewResponseCache(time.Minute, 15*time.Second)
	cache.Store("s1", "key", types.ChatResponse{Message: "answer", Source: "data+ai"})

	cached, ok := cache.GetGlobal("key")
	require.True(t, ok)
	assert.Equal(t, "answer", cached.Message)
	assert.False(t, cached.Duplicate)

	// mutating the copy does not affect the cache
	cached.Message = "changed"
	again, ok := cache.GetGlobal("key")
	require.True(t, ok)
	assert.Equal(t, "answer", again.Message)
}

func TestResponseCacheIgnoresEmptyKey(t *testing.T) {
	cache := NewResponseCache(time.Minute, 15*time.Second)
	cache.Store("s1", "", types.ChatResponse{Message: "answer"})

	_, ok := cache.GetGlobal("")
	assert.False(t, ok)
	assert.Nil(t, cache.ReplayDuplicate("s1", ""))
}

func TestConversationMemoryKeepsLastPairs(t *testing.T) {
	memory := NewConversationMemory(2, time.Minute)
	memory.Append("s1", "q1", "a1")
	memory.Append("s1", "q2", "a2")
	memory.Append("s1", "q3", "a3")

	turns := memory.History("s1")
	require.Len(t, turns, 2)
	assert.Equal(t, "q2", turns[0].UserText)
	assert.Equal(t, "q3", turns[1].UserText)
	assert.Equal(t, "a3", turns[1].BotText)
}

func TestConversationMemorySessionsAreIsolated(t *testing.T) {
	memory := NewConversationMemory(10, time.Minute)
	memory.Append("s1", "q1", "a1")

	assert.Len(t, memory.History("s1"), 1)
	assert.Empty(t, memory.History("s2"))

	memory.Clear("s1")
	assert.Empty(t, memory.History("s1"))
}
