package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

// StreamResponse runs the same pipeline as GetResponse but emits the
// answer incrementally. The returned channel is closed after the done
// or error event.
func (s *ServiceImpl) StreamResponse(ctx context.Context, message, sessionID string) <-chan types.StreamEvent {
	events := make(chan types.StreamEvent, 8)

	go func() {
		defer close(events)

		ctx, span := otel.Tracer("ChatService").Start(ctx, "StreamResponse", trace.WithAttributes(
			attribute.String("chat.session_id", sessionID),
		))
		defer span.End()

		if s.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
			defer cancel()
		}

		start := time.Now()
		res := s.resolve(ctx, message, sessionID)
		if res.short != nil {
			events <- types.StreamEvent{Type: "done", Message: res.short.Message, Source: res.short.Source}
			s.recordRequest(ctx, res.short.Source, start)
			return
		}

		if len(res.places) > 0 {
			events <- types.StreamEvent{Type: "places", Places: res.places}
		}

		resp := s.streamCompose(ctx, message, sessionID, res, events)
		events <- types.StreamEvent{Type: "done", Message: resp.Message, Source: resp.Source}

		s.finalize(ctx, message, sessionID, res.key, resp)
		s.recordRequest(ctx, resp.Source, start)
		span.SetAttributes(attribute.String("chat.source", resp.Source))
	}()

	return events
}

// streamCompose emits chunk events while accumulating the full answer.
// Model failure mid-stream falls back to the templated response.
func (s *ServiceImpl) streamCompose(ctx context.Context, message, sessionID string, res *resolution, events chan<- types.StreamEvent) *types.ChatResponse {
	l := s.logger.With(slog.String("method", "streamCompose"))

	if s.ai == nil {
		resp := s.compose(ctx, message, sessionID, res)
		events <- types.StreamEvent{Type: "chunk", Delta: resp.Message}
		return resp
	}

	status := types.DataStatusFound
	if len(res.places) == 0 {
		status = types.DataStatusNotFound
	}
	prefix := "data"
	if res.fromGoogle {
		prefix = "google"
	}

	templated := func(reason error) *types.ChatResponse {
		l.ErrorContext(ctx, "Model stream failed, using template", slog.Any("error", reason))
		fallback := composeSimpleResponse(res.places, res.language, res.isSpecific)
		events <- types.StreamEvent{Type: "chunk", Delta: fallback}
		return &types.ChatResponse{
			Message:    fallback,
			Places:     res.places,
			Source:     prefix + "+simple",
			DataStatus: status,
			Language:   res.language,
			Timestamp:  time.Now(),
		}
	}

	history := s.memory.History(sessionID)
	seq, err := s.ai.GenerateTravelResponseStream(ctx, message, res.places, history, res.language)
	if err != nil {
		return templated(err)
	}

	var full strings.Builder
	var streamErr error
	seq(func(chunk string, err error) bool {
		if err != nil {
			streamErr = err
			return false
		}
		if chunk != "" {
			full.WriteString(chunk)
			events <- types.StreamEvent{Type: "chunk", Delta: chunk}
		}
		return true
	})

	if streamErr != nil && full.Len() == 0 {
		return templated(streamErr)
	}

	source := prefix + "+ai"
	if len(res.places) == 0 {
		source = "gpt_fallback"
	}
	return &types.ChatResponse{
		Message:    full.String(),
		Places:     res.places,
		Source:     source,
		DataStatus: status,
		Language:   res.language,
		Timestamp:  time.Now(),
	}
}
