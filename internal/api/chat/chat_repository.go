package chat

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/place"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	SaveChatLog(ctx context.Context, log types.ChatLog) (uuid.UUID, error)
	ListChatLogs(ctx context.Context, sessionID string, limit int) ([]types.ChatLog, error)
	SaveFeedback(ctx context.Context, feedback types.MessageFeedback) (uuid.UUID, error)
	ListFeedback(ctx context.Context, sessionID string) ([]types.MessageFeedback, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool place.PGXQuerier
}

func NewRepository(pgxpool place.PGXQuerier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
	}
}

// SaveChatLog persists one question/answer pair and returns its id.
func (r *RepositoryImpl) SaveChatLog(ctx context.Context, log types.ChatLog) (uuid.UUID, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "SaveChatLog", trace.WithAttributes(
		attribute.String("chat.session_id", log.SessionID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SaveChatLog"))

	query := `
        INSERT INTO chat_logs (session_id, user_text, bot_text, source, language)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	var id uuid.UUID
	err := r.pgpool.QueryRow(ctx, query,
		log.SessionID, log.UserText, log.BotText, log.Source, log.Language,
	).Scan(&id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert chat log", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return uuid.Nil, fmt.Errorf("failed to insert chat log: %w", err)
	}

	span.SetStatus(codes.Ok, "Chat log saved")
	return id, nil
}

// ListChatLogs returns the most recent logs for a session, newest first.
func (r *RepositoryImpl) ListChatLogs(ctx context.Context, sessionID string, limit int) ([]types.ChatLog, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "ListChatLogs", trace.WithAttributes(
		attribute.String("chat.session_id", sessionID),
		attribute.Int("chat.limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListChatLogs"))

	if limit <= 0 {
		limit = 20
	}

	query := `
        SELECT id, session_id, user_text, bot_text, source, language, created_at
        FROM chat_logs
        WHERE session_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.pgpool.Query(ctx, query, sessionID, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query chat logs", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, fmt.Errorf("failed to query chat logs: %w", err)
	}
	defer rows.Close()

	logs := make([]types.ChatLog, 0)
	for rows.Next() {
		var log types.ChatLog
		var source, language sql.NullString
		if err := rows.Scan(&log.ID, &log.SessionID, &log.UserText, &log.BotText,
			&source, &language, &log.CreatedAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Scan failed")
			return nil, fmt.Errorf("failed to scan chat log: %w", err)
		}
		log.Source = source.String
		log.Language = language.String
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("failed reading chat logs: %w", err)
	}

	span.SetAttributes(attribute.Int("chat.count", len(logs)))
	span.SetStatus(codes.Ok, "Chat logs listed")
	return logs, nil
}

// SaveFeedback records a rating for a bot message. A second rating on the
// same message replaces the first.
func (r *RepositoryImpl) SaveFeedback(ctx context.Context, feedback types.MessageFeedback) (uuid.UUID, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "SaveFeedback", trace.WithAttributes(
		attribute.String("feedback.message_id", feedback.MessageID.String()),
		attribute.String("feedback.rating", feedback.Rating),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SaveFeedback"))

	if feedback.Rating != "up" && feedback.Rating != "down" {
		return uuid.Nil, fmt.Errorf("invalid rating: %q", feedback.Rating)
	}

	var existingID uuid.UUID
	err := r.pgpool.QueryRow(ctx,
		`SELECT id FROM message_feedback WHERE message_id = $1`, feedback.MessageID,
	).Scan(&existingID)
	switch {
	case err == nil:
		updateQuery := `
            UPDATE message_feedback
            SET rating = $2, comment = $3
            WHERE id = $1
        `
		if _, err := r.pgpool.Exec(ctx, updateQuery, existingID, feedback.Rating, feedback.Comment); err != nil {
			l.ErrorContext(ctx, "Failed to update feedback", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Update failed")
			return uuid.Nil, fmt.Errorf("failed to update feedback: %w", err)
		}
		span.SetStatus(codes.Ok, "Feedback updated")
		return existingID, nil
	case err == pgx.ErrNoRows:
		insertQuery := `
            INSERT INTO message_feedback (message_id, session_id, rating, comment)
            VALUES ($1, $2, $3, $4)
            RETURNING id
        `
		var id uuid.UUID
		if err := r.pgpool.QueryRow(ctx, insertQuery,
			feedback.MessageID, feedback.SessionID, feedback.Rating, feedback.Comment,
		).Scan(&id); err != nil {
			l.ErrorContext(ctx, "Failed to insert feedback", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Insert failed")
			return uuid.Nil, fmt.Errorf("failed to insert feedback: %w", err)
		}
		span.SetStatus(codes.Ok, "Feedback saved")
		return id, nil
	default:
		l.ErrorContext(ctx, "Failed to look up feedback", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return uuid.Nil, fmt.Errorf("failed to look up feedback: %w", err)
	}
}

// ListFeedback returns all feedback left within a session.
func (r *RepositoryImpl) ListFeedback(ctx context.Context, sessionID string) ([]types.MessageFeedback, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "ListFeedback", trace.WithAttributes(
		attribute.String("feedback.session_id", sessionID),
	))
	defer span.End()

	query := `
        SELECT id, message_id, session_id, rating, comment, created_at
        FROM message_feedback
        WHERE session_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.pgpool.Query(ctx, query, sessionID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query feedback", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	feedbacks := make([]types.MessageFeedback, 0)
	for rows.Next() {
		var fb types.MessageFeedback
		var comment sql.NullString
		if err := rows.Scan(&fb.ID, &fb.MessageID, &fb.SessionID, &fb.Rating, &comment, &fb.CreatedAt); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Scan failed")
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		fb.Comment = comment.String
		feedbacks = append(feedbacks, fb)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("failed reading feedback: %w", err)
	}

	span.SetStatus(codes.Ok, "Feedback listed")
	return feedbacks, nil
}
