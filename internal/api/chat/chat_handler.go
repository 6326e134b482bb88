package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/TajimeRose/NongPlatoo.Ai/app/middleware"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

const defaultSessionID = "default"

type Handler struct {
	chatService Service
	logger      *slog.Logger
}

func NewHandler(chatService Service, logger *slog.Logger) *Handler {
	return &Handler{
		chatService: chatService,
		logger:      logger,
	}
}

// ChatRequest is the body of /api/query and /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// FeedbackRequest is the body of /api/feedback.
type FeedbackRequest struct {
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id,omitempty"`
	Rating    string `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// sessionFromRequest picks the session id in order of explicit body
// value, the id set by the session middleware, then the shared default.
func sessionFromRequest(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if id, ok := appMiddleware.SessionIDFromContext(r.Context()); ok {
		return id
	}
	return defaultSessionID
}

// Query answers a message with the full structured envelope.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("Query").Start(r.Context(), "Query", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/query"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Query"))

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Message is required")
		return
	}

	resp, err := h.chatService.GetResponse(ctx, req.Message, sessionFromRequest(r, req.SessionID))
	if err != nil {
		l.ErrorContext(ctx, "Failed to produce response", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to produce response: %s", err.Error()))
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// Chat answers a message with a plain text envelope for simple clients.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("Chat").Start(r.Context(), "Chat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/chat"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Chat"))

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Message is required")
		return
	}

	resp, err := h.chatService.GetResponse(ctx, req.Message, sessionFromRequest(r, req.SessionID))
	if err != nil {
		l.ErrorContext(ctx, "Failed to produce response", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to produce response: %s", err.Error()))
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"success":   true,
		"response":  resp.Message,
		"source":    resp.Source,
		"language":  resp.Language,
		"timestamp": resp.Timestamp.Format(time.RFC3339),
	})
}

// ChatStream answers a message as a server-sent event stream.
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatStream").Start(r.Context(), "ChatStream", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/chat/stream"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ChatStream"))

	var req ChatRequest
	if r.Method == http.MethodGet {
		req.Message = r.URL.Query().Get("message")
		req.SessionID = r.URL.Query().Get("session_id")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for event := range h.chatService.StreamResponse(ctx, req.Message, sessionFromRequest(r, req.SessionID)) {
		payload, err := json.Marshal(event)
		if err != nil {
			l.ErrorContext(ctx, "Failed to marshal stream event", slog.Any("error", err))
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			l.WarnContext(ctx, "Client went away mid-stream", slog.Any("error", err))
			return
		}
		flusher.Flush()
	}
}

// GetHistory returns the in-memory conversation for a session.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	_, span := otel.Tracer("GetHistory").Start(r.Context(), "GetHistory", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/chat/history"),
	))
	defer span.End()

	sessionID := sessionFromRequest(r, r.URL.Query().Get("session_id"))

	turns := h.chatService.History(sessionID)
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
	})
}

// ClearHistory drops the in-memory conversation for a session.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	_, span := otel.Tracer("ClearHistory").Start(r.Context(), "ClearHistory", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/chat/history"),
	))
	defer span.End()

	sessionID := sessionFromRequest(r, r.URL.Query().Get("session_id"))

	h.chatService.ClearHistory(sessionID)
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"cleared":    true,
	})
}

// GetChatLogs returns persisted question/answer pairs for a session.
func (h *Handler) GetChatLogs(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GetChatLogs").Start(r.Context(), "GetChatLogs", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/chat/logs"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetChatLogs"))

	sessionID := sessionFromRequest(r, r.URL.Query().Get("session_id"))

	logs, err := h.chatService.GetChatLogs(ctx, sessionID, 20)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list chat logs", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list chat logs")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, logs)
}

// SaveFeedback records a thumbs up or down for a bot message.
func (h *Handler) SaveFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SaveFeedback").Start(r.Context(), "SaveFeedback", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/feedback"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SaveFeedback"))

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	messageID, err := uuid.Parse(req.MessageID)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid message_id format")
		return
	}
	if req.Rating != "up" && req.Rating != "down" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Rating must be up or down")
		return
	}

	sessionID := sessionFromRequest(r, req.SessionID)

	id, err := h.chatService.SaveFeedback(ctx, types.MessageFeedback{
		MessageID: messageID,
		SessionID: sessionID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to save feedback", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to save feedback")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]any{"id": id})
}

// DatasetSummary reports what the dataset currently holds.
func (h *Handler) DatasetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DatasetSummary").Start(r.Context(), "DatasetSummary", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/dataset/summary"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "DatasetSummary"))

	summary, err := h.chatService.DatasetSummary(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to build dataset summary", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to build dataset summary")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, summary)
}
