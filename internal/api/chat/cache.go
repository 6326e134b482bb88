package chat

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

// ResponseCache keeps two layers of finished responses: a global layer
// shared by all sessions for common queries, and a short per-session
// layer that absorbs rapid resubmissions of the same message.
type ResponseCache struct {
	global  *gocache.Cache
	perUser *gocache.Cache
}

func NewResponseCache(responseTTL, duplicateWindow time.Duration) *ResponseCache {
	return &ResponseCache{
		global:  gocache.New(responseTTL, responseTTL),
		perUser: gocache.New(duplicateWindow, duplicateWindow),
	}
}

func userKey(sessionID, key string) string {
	return sessionID + "|" + key
}

// GetGlobal returns a copy of the cached response for a normalized query
// key, regardless of which session produced it.
func (c *ResponseCache) GetGlobal(key string) (*types.ChatResponse, bool) {
	if key == "" {
		return nil, false
	}
	cached, ok := c.global.Get(key)
	if !ok {
		return nil, false
	}
	resp, ok := cached.(types.ChatResponse)
	if !ok {
		return nil, false
	}
	return &resp, true
}

// ReplayDuplicate returns the response previously sent to this session
// for the same normalized query, marked as a duplicate, or nil when the
// duplicate window has passed.
func (c *ResponseCache) ReplayDuplicate(sessionID, key string) *types.ChatResponse {
	if key == "" {
		return nil
	}
	cached, ok := c.perUser.Get(userKey(sessionID, key))
	if !ok {
		return nil
	}
	resp, ok := cached.(types.ChatResponse)
	if !ok {
		return nil
	}
	resp.Duplicate = true
	resp.Source = resp.Source + "_cached"
	return &resp
}

// Store records a finished response in both layers.
func (c *ResponseCache) Store(sessionID, key string, resp types.ChatResponse) {
	if key == "" {
		return
	}
	c.perUser.Set(userKey(sessionID, key), resp, gocache.DefaultExpiration)
	c.global.Set(key, resp, gocache.DefaultExpiration)
}
