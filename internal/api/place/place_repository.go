package place

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TajimeRose/NongPlatoo.Ai/app/observability/metrics"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/generativeai"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// PGXQuerier is the subset of pgxpool.Pool the repository uses. Tests
// substitute a pgxmock pool through it.
type PGXQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ PGXQuerier = (*pgxpool.Pool)(nil)

type Repository interface {
	SearchPlaces(ctx context.Context, query string, limit int) ([]types.Place, error)
	SearchMainAttractions(ctx context.Context, limit int) ([]types.Place, error)
	GetAttractionsByType(ctx context.Context, category string) ([]types.Place, error)
	SearchPlacesNearLocation(ctx context.Context, keyword string, lat, lon, radiusKm float64, limit int) ([]types.Place, error)
	GetAllPlaces(ctx context.Context, limit int) ([]types.Place, error)
	SavePlace(ctx context.Context, place types.Place) (int, error)
	FindPlaceCoordinates(ctx context.Context, name string) (*types.GeoPoint, error)
	GetDatasetSummary(ctx context.Context) (*types.DatasetSummary, error)

	// Vector similarity search methods
	SearchPlacesSemantic(ctx context.Context, queryEmbedding []float32, limit int) ([]types.Place, error)
	UpdatePlaceEmbedding(ctx context.Context, placeID int, embedding []float32) error
	GetPlacesWithoutEmbeddings(ctx context.Context, limit int) ([]types.Place, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool PGXQuerier
}

func NewRepository(pgxpool PGXQuerier, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgxpool,
	}
}

const placeColumns = `id, name, category, address, description, attraction_type, image_url, map_url, latitude, longitude, rating, source`

// recordQuery feeds the db query duration and error counters.
func recordQuery(ctx context.Context, method string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("method", method))
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

func scanPlace(row pgx.Rows) (types.Place, error) {
	var p types.Place
	var category, address, description, attractionType, imageURL, mapURL, source sql.NullString
	var lat, lon, rating sql.NullFloat64

	err := row.Scan(
		&p.ID,
		&p.Name,
		&category,
		&address,
		&description,
		&attractionType,
		&imageURL,
		&mapURL,
		&lat,
		&lon,
		&rating,
		&source,
	)
	if err != nil {
		return types.Place{}, err
	}

	p.Category = category.String
	p.Address = address.String
	p.Description = description.String
	p.AttractionType = attractionType.String
	p.ImageURL = imageURL.String
	p.MapURL = mapURL.String
	p.Source = source.String
	if lat.Valid {
		p.Latitude = &lat.Float64
	}
	if lon.Valid {
		p.Longitude = &lon.Float64
	}
	if rating.Valid {
		p.Rating = &rating.Float64
	}
	return p, nil
}

func collectPlaces(rows pgx.Rows) ([]types.Place, error) {
	defer rows.Close()

	var places []types.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}
	return places, nil
}

// SearchPlaces runs a keyword search across every text column of the
// places table. Results come back in id order so repeated queries stay
// stable.
func (r *RepositoryImpl) SearchPlaces(ctx context.Context, query string, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "SearchPlaces", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SearchPlaces"))

	sqlQuery := `
        SELECT ` + placeColumns + `
        FROM places
        WHERE name ILIKE $1
           OR category ILIKE $1
           OR address ILIKE $1
           OR description ILIKE $1
           OR attraction_type ILIKE $1
        ORDER BY id
        LIMIT $2
    `
	pattern := "%" + query + "%"

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, sqlQuery, pattern, limit)
	recordQuery(ctx, "SearchPlaces", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query places", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to search places: %w", err)
	}

	places, err := collectPlaces(rows)
	if err != nil {
		l.ErrorContext(ctx, "Failed to collect place rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Places found")
	return places, nil
}

// SearchMainAttractions returns the curated headline attractions.
func (r *RepositoryImpl) SearchMainAttractions(ctx context.Context, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "SearchMainAttractions", trace.WithAttributes(
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SearchMainAttractions"))

	sqlQuery := `
        SELECT ` + placeColumns + `
        FROM places
        WHERE attraction_type = 'main_attraction'
        ORDER BY id
        LIMIT $1
    `

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, sqlQuery, limit)
	recordQuery(ctx, "SearchMainAttractions", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query main attractions", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to search main attractions: %w", err)
	}

	places, err := collectPlaces(rows)
	if err != nil {
		l.ErrorContext(ctx, "Failed to collect place rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Main attractions found")
	return places, nil
}

// GetAttractionsByType filters by category only, ordered by name.
func (r *RepositoryImpl) GetAttractionsByType(ctx context.Context, category string) ([]types.Place, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "GetAttractionsByType", trace.WithAttributes(
		attribute.String("category", category),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetAttractionsByType"))

	sqlQuery := `
        SELECT ` + placeColumns + `
        FROM places
        WHERE category ILIKE $1
        ORDER BY name
        LIMIT 100
    `
	pattern := "%" + category + "%"

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, sqlQuery, pattern)
	recordQuery(ctx, "GetAttractionsByType", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query attractions by type", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to get attractions by type: %w", err)
	}

	places, err := collectPlaces(rows)
	if err != nil {
		l.ErrorContext(ctx, "Failed to collect place rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Attractions found")
	return places, nil
}

// SearchPlacesNearLocation finds places within radiusKm of a point using
// the haversine great-circle distance, nearest first. Rows without
// coordinates are excluded. A non-empty keyword narrows the matches to
// rows mentioning it in any of the searchable text columns.
func (r *RepositoryImpl) SearchPlacesNearLocation(ctx context.Context, keyword string, lat, lon, radiusKm float64, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "SearchPlacesNearLocation", trace.WithAttributes(
		attribute.String("keyword", keyword),
		attribute.Float64("lat", lat),
		attribute.Float64("lon", lon),
		attribute.Float64("radius_km", radiusKm),
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SearchPlacesNearLocation"))

	sqlQuery := `
        SELECT ` + placeColumns + `,
            6371 * acos(
                LEAST(1.0, GREATEST(-1.0,
                    cos(radians($1)) * cos(radians(latitude)) *
                    cos(radians(longitude) - radians($2)) +
                    sin(radians($1)) * sin(radians(latitude))
                ))
            ) AS distance_km
        FROM places
        WHERE latitude IS NOT NULL AND longitude IS NOT NULL
          AND 6371 * acos(
                LEAST(1.0, GREATEST(-1.0,
                    cos(radians($1)) * cos(radians(latitude)) *
                    cos(radians(longitude) - radians($2)) +
                    sin(radians($1)) * sin(radians(latitude))
                ))
            ) <= $3
          AND ($4 = '' OR name ILIKE $5 OR category ILIKE $5 OR address ILIKE $5
               OR description ILIKE $5 OR attraction_type ILIKE $5)
        ORDER BY distance_km
        LIMIT $6
    `

	pattern := "%" + keyword + "%"
	start := time.Now()
	rows, err := r.pgpool.Query(ctx, sqlQuery, lat, lon, radiusKm, keyword, pattern, limit)
	recordQuery(ctx, "SearchPlacesNearLocation", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query places near location", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to search places near location: %w", err)
	}
	defer rows.Close()

	var places []types.Place
	for rows.Next() {
		var p types.Place
		var category, address, description, attractionType, imageURL, mapURL, source sql.NullString
		var plat, plon, rating sql.NullFloat64
		var distance float64

		err := rows.Scan(
			&p.ID,
			&p.Name,
			&category,
			&address,
			&description,
			&attractionType,
			&imageURL,
			&mapURL,
			&plat,
			&plon,
			&rating,
			&source,
			&distance,
		)
		if err != nil {
			l.ErrorContext(ctx, "Failed to scan place row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}

		p.Category = category.String
		p.Address = address.String
		p.Description = description.String
		p.AttractionType = attractionType.String
		p.ImageURL = imageURL.String
		p.MapURL = mapURL.String
		p.Source = source.String
		if plat.Valid {
			p.Latitude = &plat.Float64
		}
		if plon.Valid {
			p.Longitude = &plon.Float64
		}
		if rating.Valid {
			p.Rating = &rating.Float64
		}

		rounded := math.Round(distance*100) / 100
		p.DistanceKm = &rounded

		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		l.ErrorContext(ctx, "Error iterating place rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Nearby places found")
	return places, nil
}

func (r *RepositoryImpl) GetAllPlaces(ctx context.Context, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "GetAllPlaces", trace.WithAttributes(
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetAllPlaces"))

	sqlQuery := `
        SELECT ` + placeColumns + `
        FROM places
        ORDER BY id
        LIMIT $1
    `

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, sqlQuery, limit)
	recordQuery(ctx, "GetAllPlaces", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query places", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to get places: %w", err)
	}

	places, err := collectPlaces(rows)
	if err != nil {
		l.ErrorContext(ctx, "Failed to collect place rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Places listed")
	return places, nil
}

// SavePlace inserts a place, or updates the existing row when one with
// the same name already exists. Returns the row id.
func (r *RepositoryImpl) SavePlace(ctx context.Context, place types.Place) (int, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "SavePlace", trace.WithAttributes(
		attribute.String("place.name", place.Name),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SavePlace"))

	if place.Name == "" {
		return 0, fmt.Errorf("place name is required")
	}
	if place.Latitude != nil && (*place.Latitude < -90 || *place.Latitude > 90) {
		return 0, fmt.Errorf("invalid latitude: %f", *place.Latitude)
	}
	if place.Longitude != nil && (*place.Longitude < -180 || *place.Longitude > 180) {
		return 0, fmt.Errorf("invalid longitude: %f", *place.Longitude)
	}

	var existingID int
	err := r.pgpool.QueryRow(ctx, `SELECT id FROM places WHERE name = $1`, place.Name).Scan(&existingID)
	switch {
	case err == nil:
		updateQuery := `
            UPDATE places
            SET category = COALESCE(NULLIF($2, ''), category),
                address = COALESCE(NULLIF($3, ''), address),
                description = COALESCE(NULLIF($4, ''), description),
                attraction_type = COALESCE(NULLIF($5, ''), attraction_type),
                latitude = COALESCE($6, latitude),
                longitude = COALESCE($7, longitude),
                rating = COALESCE($8, rating),
                source = COALESCE(NULLIF($9, ''), source),
                updated_at = now()
            WHERE id = $1
        `
		if _, err := r.pgpool.Exec(ctx, updateQuery,
			existingID, place.Category, place.Address, place.Description,
			place.AttractionType, place.Latitude, place.Longitude, place.Rating, place.Source,
		); err != nil {
			l.ErrorContext(ctx, "Failed to update place", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Update failed")
			return 0, fmt.Errorf("failed to update place: %w", err)
		}
		span.SetStatus(codes.Ok, "Place updated")
		return existingID, nil

	case err == pgx.ErrNoRows:
		insertQuery := `
            INSERT INTO places (name, category, address, description, attraction_type, image_url, map_url, latitude, longitude, rating, source)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
            RETURNING id
        `
		var id int
		if err := r.pgpool.QueryRow(ctx, insertQuery,
			place.Name, place.Category, place.Address, place.Description,
			place.AttractionType, place.ImageURL, place.MapURL,
			place.Latitude, place.Longitude, place.Rating, place.Source,
		).Scan(&id); err != nil {
			l.ErrorContext(ctx, "Failed to insert place", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Insert failed")
			return 0, fmt.Errorf("failed to insert place: %w", err)
		}
		span.SetStatus(codes.Ok, "Place inserted")
		return id, nil

	default:
		l.ErrorContext(ctx, "Failed to look up place by name", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return 0, fmt.Errorf("failed to look up place by name: %w", err)
	}
}

// FindPlaceCoordinates resolves a location name to coordinates from the
// places table. Returns nil when no named row has coordinates.
func (r *RepositoryImpl) FindPlaceCoordinates(ctx context.Context, name string) (*types.GeoPoint, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "FindPlaceCoordinates", trace.WithAttributes(
		attribute.String("name", name),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "FindPlaceCoordinates"))

	sqlQuery := `
        SELECT latitude, longitude
        FROM places
        WHERE name ILIKE $1
          AND latitude IS NOT NULL AND longitude IS NOT NULL
        ORDER BY id
        LIMIT 1
    `
	pattern := "%" + name + "%"

	var point types.GeoPoint
	err := r.pgpool.QueryRow(ctx, sqlQuery, pattern).Scan(&point.Latitude, &point.Longitude)
	if err == pgx.ErrNoRows {
		span.SetStatus(codes.Ok, "No coordinates found")
		return nil, nil
	}
	if err != nil {
		l.ErrorContext(ctx, "Failed to look up place coordinates", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to find place coordinates: %w", err)
	}

	span.SetStatus(codes.Ok, "Coordinates found")
	return &point, nil
}

// GetDatasetSummary reports row counts by category and coverage of
// coordinates and embeddings.
func (r *RepositoryImpl) GetDatasetSummary(ctx context.Context) (*types.DatasetSummary, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "GetDatasetSummary")
	defer span.End()

	l := r.logger.With(slog.String("method", "GetDatasetSummary"))

	summary := &types.DatasetSummary{ByCategory: make(map[string]int)}

	totalsQuery := `
        SELECT
            count(*),
            count(*) FILTER (WHERE attraction_type = 'main_attraction'),
            count(*) FILTER (WHERE latitude IS NOT NULL AND longitude IS NOT NULL),
            count(*) FILTER (WHERE description_embedding IS NOT NULL)
        FROM places
    `
	err := r.pgpool.QueryRow(ctx, totalsQuery).Scan(
		&summary.TotalPlaces,
		&summary.MainAttractions,
		&summary.WithCoordinates,
		&summary.WithEmbeddings,
	)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query dataset totals", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to get dataset summary: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, `
        SELECT COALESCE(category, ''), count(*)
        FROM places
        GROUP BY category
    `)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query category counts", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to get category counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		summary.ByCategory[category] = count
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}

	span.SetStatus(codes.Ok, "Dataset summary built")
	return summary, nil
}

// SearchPlacesSemantic finds places similar to the query embedding using
// cosine distance. Similarity is clamped to zero so callers never see a
// negative score.
func (r *RepositoryImpl) SearchPlacesSemantic(ctx context.Context, queryEmbedding []float32, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "SearchPlacesSemantic", trace.WithAttributes(
		attribute.Int("embedding.dimension", len(queryEmbedding)),
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "SearchPlacesSemantic"))

	embeddingStr := generativeai.VectorLiteral(queryEmbedding)

	sqlQuery := `
        SELECT ` + placeColumns + `,
            1 - (description_embedding <=> $1::vector) AS similarity_score
        FROM places
        WHERE description_embedding IS NOT NULL
        ORDER BY description_embedding <=> $1::vector
        LIMIT $2
    `

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, sqlQuery, embeddingStr, limit)
	recordQuery(ctx, "SearchPlacesSemantic", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query similar places", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to search similar places: %w", err)
	}
	defer rows.Close()

	var places []types.Place
	for rows.Next() {
		var p types.Place
		var category, address, description, attractionType, imageURL, mapURL, source sql.NullString
		var lat, lon, rating sql.NullFloat64
		var similarity float64

		err := rows.Scan(
			&p.ID,
			&p.Name,
			&category,
			&address,
			&description,
			&attractionType,
			&imageURL,
			&mapURL,
			&lat,
			&lon,
			&rating,
			&source,
			&similarity,
		)
		if err != nil {
			l.ErrorContext(ctx, "Failed to scan similar place row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan similar place row: %w", err)
		}

		p.Category = category.String
		p.Address = address.String
		p.Description = description.String
		p.AttractionType = attractionType.String
		p.ImageURL = imageURL.String
		p.MapURL = mapURL.String
		p.Source = source.String
		if lat.Valid {
			p.Latitude = &lat.Float64
		}
		if lon.Valid {
			p.Longitude = &lon.Float64
		}
		if rating.Valid {
			p.Rating = &rating.Float64
		}

		score := math.Max(0, similarity)
		p.SimilarityScore = &score

		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		l.ErrorContext(ctx, "Error iterating similar place rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("error iterating similar place rows: %w", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Similar places found")
	return places, nil
}

func (r *RepositoryImpl) UpdatePlaceEmbedding(ctx context.Context, placeID int, embedding []float32) error {
	ctx, span := otel.Tracer("Repository").Start(ctx, "UpdatePlaceEmbedding", trace.WithAttributes(
		attribute.Int("place.id", placeID),
		attribute.Int("embedding.dimension", len(embedding)),
	))
	defer span.End()

	embeddingStr := generativeai.VectorLiteral(embedding)

	start := time.Now()
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE places SET description_embedding = $1::vector, updated_at = now() WHERE id = $2`,
		embeddingStr, placeID,
	)
	recordQuery(ctx, "UpdatePlaceEmbedding", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return fmt.Errorf("failed to update place embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("place %d not found", placeID)
	}

	span.SetStatus(codes.Ok, "Embedding updated")
	return nil
}

func (r *RepositoryImpl) GetPlacesWithoutEmbeddings(ctx context.Context, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("Repository").Start(ctx, "GetPlacesWithoutEmbeddings", trace.WithAttributes(
		attribute.Int("limit", limit),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetPlacesWithoutEmbeddings"))

	sqlQuery := `
        SELECT ` + placeColumns + `
        FROM places
        WHERE description_embedding IS NULL
        ORDER BY id
        LIMIT $1
    `

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, sqlQuery, limit)
	recordQuery(ctx, "GetPlacesWithoutEmbeddings", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query places without embeddings", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		return nil, fmt.Errorf("failed to get places without embeddings: %w", err)
	}

	places, err := collectPlaces(rows)
	if err != nil {
		l.ErrorContext(ctx, "Failed to collect place rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Places without embeddings listed")
	return places, nil
}
