package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"googlemaps.github.io/maps"

	"github.com/TajimeRose/NongPlatoo.Ai/config"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/place"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the last-resort place lookup against Google Places, used
// when the database has nothing for an in-province question.
type Service interface {
	SearchFallback(ctx context.Context, query string) ([]types.Place, error)
}

// PlacesAPI is the Google Maps client surface the service uses.
type PlacesAPI interface {
	NearbySearch(ctx context.Context, r *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	client PlacesAPI
	places place.Repository
	cfg    config.ExternalConfig
	centre types.GeoPoint
}

// NewServiceImpl builds the fallback service. The place repository may be
// nil, in which case results are served without being persisted.
func NewServiceImpl(client PlacesAPI, places place.Repository, cfg config.ExternalConfig, centre types.GeoPoint, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		client: client,
		places: places,
		cfg:    cfg,
		centre: centre,
	}
}

// NewMapsClient creates the Google Maps client from the environment.
func NewMapsClient() (*maps.Client, error) {
	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY environment variable is not set")
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

// SearchFallback runs a nearby search centred on the province and
// normalizes the top results into place records. Found places are
// persisted as google_cached rows so later questions hit the database
// directly.
func (s *ServiceImpl) SearchFallback(ctx context.Context, query string) ([]types.Place, error) {
	ctx, span := otel.Tracer("ExternalService").Start(ctx, "SearchFallback", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	if s.client == nil {
		span.SetStatus(codes.Ok, "No maps client configured")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GoogleTimeout)
	defer cancel()

	resp, err := s.client.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: s.centre.Latitude, Lng: s.centre.Longitude},
		Radius:   uint(s.cfg.GoogleRadiusM),
		Keyword:  query,
		Language: "th",
	})
	if err != nil {
		s.logger.WarnContext(ctx, "google places search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Nearby search failed")
		return nil, fmt.Errorf("google places search failed: %w", err)
	}

	limit := s.cfg.GoogleMaxPlaces
	if limit <= 0 {
		limit = 3
	}

	var results []types.Place
	for _, result := range resp.Results {
		if len(results) >= limit {
			break
		}
		p := normalizeResult(result)
		results = append(results, p)

		if s.places != nil {
			cached := p
			cached.AttractionType = "google_cached"
			if _, err := s.places.SavePlace(ctx, cached); err != nil {
				s.logger.WarnContext(ctx, "failed to persist google place",
					slog.Any("error", err),
					slog.String("place_name", cached.Name),
				)
			}
		}
	}

	span.SetAttributes(attribute.Int("results.count", len(results)))
	span.SetStatus(codes.Ok, "Fallback search complete")
	return results, nil
}

func normalizeResult(result maps.PlacesSearchResult) types.Place {
	lat := result.Geometry.Location.Lat
	lon := result.Geometry.Location.Lng

	p := types.Place{
		Name:      result.Name,
		Address:   result.Vicinity,
		Latitude:  &lat,
		Longitude: &lon,
		Source:    "google_search",
	}
	if len(result.Types) > 0 {
		p.Category = result.Types[0]
	}
	if result.Rating > 0 {
		rating := float64(result.Rating)
		p.Rating = &rating
	}
	if result.PlaceID != "" {
		p.MapURL = "https://www.google.com/maps/place/?q=place_id:" + url.QueryEscape(result.PlaceID)
	}
	return p
}
