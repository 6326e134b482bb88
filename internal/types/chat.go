package types

import (
	"time"

	"github.com/google/uuid"
)

// IntentType is the coarse routing decision for an incoming message.
type IntentType string

const (
	IntentGreeting      IntentType = "greeting"
	IntentSpecificPlace IntentType = "specific_place"
	IntentGeneralTravel IntentType = "general_travel"
	IntentNearLocation  IntentType = "near_location"
	IntentOutOfScope    IntentType = "out_of_scope"
)

// QueryAnalysis is the combined result of intent classification and
// keyword extraction for a single message.
type QueryAnalysis struct {
	Intent     IntentType `json:"intent"`
	IsSpecific bool       `json:"is_specific"`
	Keywords   []string   `json:"keywords"`
	Language   string     `json:"language"`
	// Location is non-nil when the message asks for places near somewhere.
	Location *LocationQuery `json:"location,omitempty"`
}

// DataStatus describes how the response payload was produced so the
// frontend can adjust its presentation.
type DataStatus string

const (
	DataStatusFound       DataStatus = "found"
	DataStatusNotFound    DataStatus = "not_found"
	DataStatusOutOfScope  DataStatus = "out_of_scope"
	DataStatusGreeting    DataStatus = "greeting"
	DataStatusUnavailable DataStatus = "unavailable"
)

// ChatResponse is the envelope returned by /api/chat and /api/query.
type ChatResponse struct {
	Message    string     `json:"message"`
	Places     []Place    `json:"places,omitempty"`
	Source     string     `json:"source"`
	DataStatus DataStatus `json:"data_status"`
	Duplicate  bool       `json:"duplicate,omitempty"`
	Language   string     `json:"language,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// StreamEvent is one SSE frame on /api/chat/stream.
type StreamEvent struct {
	Type string `json:"type"` // status, places, chunk, done, error
	// Delta carries response text for chunk events.
	Delta string `json:"delta,omitempty"`
	// Message carries status text or the final message for done events.
	Message string  `json:"message,omitempty"`
	Places  []Place `json:"places,omitempty"`
	Source  string  `json:"source,omitempty"`
}

// ChatLog is a persisted question/answer pair.
type ChatLog struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`
	UserText  string    `json:"user_text"`
	BotText   string    `json:"bot_text"`
	Source    string    `json:"source"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageFeedback is a thumbs up or down left on a bot message.
type MessageFeedback struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"message_id"`
	SessionID string    `json:"session_id"`
	Rating    string    `json:"rating"` // up or down
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationTurn is one user/assistant exchange kept in short term memory.
type ConversationTurn struct {
	UserText  string    `json:"user_text"`
	BotText   string    `json:"bot_text"`
	Timestamp time.Time `json:"timestamp"`
}

// DatasetSummary reports what the places table currently holds.
type DatasetSummary struct {
	TotalPlaces     int            `json:"total_places"`
	MainAttractions int            `json:"main_attractions"`
	ByCategory      map[string]int `json:"by_category"`
	WithCoordinates int            `json:"with_coordinates"`
	WithEmbeddings  int            `json:"with_embeddings"`
}
