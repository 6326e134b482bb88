package geocode

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/place"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository persists resolved coordinates so each location name hits an
// external geocoder at most once.
type Repository interface {
	GetLocation(ctx context.Context, name string) (*types.LocationCacheEntry, error)
	SaveLocation(ctx context.Context, entry types.LocationCacheEntry) error
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool place.PGXQuerier
}

func NewRepository(pgpool place.PGXQuerier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

// GetLocation looks up a cached geocoding result by normalized name.
// Returns nil when no entry exists.
func (r *RepositoryImpl) GetLocation(ctx context.Context, name string) (*types.LocationCacheEntry, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "GetLocation", trace.WithAttributes(
		attribute.String("name", name),
	))
	defer span.End()

	var entry types.LocationCacheEntry
	err := r.pgpool.QueryRow(ctx,
		`SELECT name, latitude, longitude, source FROM location_cache WHERE name = $1`,
		name,
	).Scan(&entry.Name, &entry.Latitude, &entry.Longitude, &entry.Source)
	if err == pgx.ErrNoRows {
		span.SetStatus(codes.Ok, "Cache miss")
		return nil, nil
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query location cache", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to query location cache: %w", err)
	}

	span.SetStatus(codes.Ok, "Cache hit")
	return &entry, nil
}

// SaveLocation upserts a geocoding result.
func (r *RepositoryImpl) SaveLocation(ctx context.Context, entry types.LocationCacheEntry) error {
	ctx, span := otel.Tracer("Repository").Start(ctx, "SaveLocation", trace.WithAttributes(
		attribute.String("name", entry.Name),
		attribute.String("source", entry.Source),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx, `
        INSERT INTO location_cache (name, latitude, longitude, source)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (name) DO UPDATE
        SET latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            source = EXCLUDED.source
    `, entry.Name, entry.Latitude, entry.Longitude, entry.Source)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save location cache entry", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return fmt.Errorf("failed to save location cache entry: %w", err)
	}

	span.SetStatus(codes.Ok, "Location cached")
	return nil
}
