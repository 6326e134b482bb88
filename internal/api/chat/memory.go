package chat

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

// ConversationMemory keeps the recent question/answer pairs per session
// so follow-up questions can be answered in context. Sessions expire
// after a period of inactivity.
type ConversationMemory struct {
	store    *gocache.Cache
	maxPairs int
}

func NewConversationMemory(maxPairs int, ttl time.Duration) *ConversationMemory {
	if maxPairs <= 0 {
		maxPairs = 10
	}
	return &ConversationMemory{
		store:    gocache.New(ttl, ttl),
		maxPairs: maxPairs,
	}
}

// Append records one exchange and refreshes the session's expiry.
func (m *ConversationMemory) Append(sessionID, userText, botText string) {
	turns := m.History(sessionID)
	turns = append(turns, types.ConversationTurn{
		UserText:  userText,
		BotText:   botText,
		Timestamp: time.Now(),
	})
	if len(turns) > m.maxPairs {
		turns = turns[len(turns)-m.maxPairs:]
	}
	m.store.Set(sessionID, turns, gocache.DefaultExpiration)
}

// History returns the retained turns for a session, oldest first.
func (m *ConversationMemory) History(sessionID string) []types.ConversationTurn {
	cached, ok := m.store.Get(sessionID)
	if !ok {
		return nil
	}
	turns, ok := cached.([]types.ConversationTurn)
	if !ok {
		return nil
	}
	out := make([]types.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// Clear drops the stored history for a session.
func (m *ConversationMemory) Clear(sessionID string) {
	m.store.Delete(sessionID)
}
