package geocode

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/intent"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/place"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service resolves location names to coordinates.
type Service interface {
	Resolve(ctx context.Context, name string) (*types.GeoPoint, error)
}

// Geocoder is the Nominatim surface the resolver depends on.
type Geocoder interface {
	Geocode(ctx context.Context, name string) (*types.GeoPoint, error)
}

// ServiceImpl resolves a name through three tiers: the persisted
// location cache, the places table, then Nominatim. Resolutions from the
// later tiers are written back to the cache. An in-process memo avoids
// repeated database round trips within a burst of similar questions.
type ServiceImpl struct {
	logger    *slog.Logger
	repo      Repository
	places    place.Repository
	nominatim Geocoder
	memo      *gocache.Cache
}

func NewServiceImpl(repo Repository, places place.Repository, nominatim Geocoder, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		places:    places,
		nominatim: nominatim,
		memo:      gocache.New(10*time.Minute, 15*time.Minute),
	}
}

// Resolve returns coordinates for a location name, or nil when no tier
// can place it. Tier failures log and fall through instead of failing
// the request.
func (s *ServiceImpl) Resolve(ctx context.Context, name string) (*types.GeoPoint, error) {
	ctx, span := otel.Tracer("GeocodeService").Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("name", name),
	))
	defer span.End()

	key := intent.NormalizeNameToken(name)
	if key == "" {
		span.SetStatus(codes.Ok, "Empty name")
		return nil, nil
	}

	if cached, found := s.memo.Get(key); found {
		span.SetAttributes(attribute.String("tier", "memo"))
		span.SetStatus(codes.Ok, "Resolved from memo")
		point := cached.(types.GeoPoint)
		return &point, nil
	}

	if entry, err := s.repo.GetLocation(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "location cache lookup failed", slog.Any("error", err))
	} else if entry != nil {
		point := types.GeoPoint{Latitude: entry.Latitude, Longitude: entry.Longitude}
		s.memo.SetDefault(key, point)
		span.SetAttributes(attribute.String("tier", "location_cache"))
		span.SetStatus(codes.Ok, "Resolved from location cache")
		return &point, nil
	}

	if point, err := s.places.FindPlaceCoordinates(ctx, name); err != nil {
		s.logger.WarnContext(ctx, "place table lookup failed", slog.Any("error", err))
	} else if point != nil {
		s.store(ctx, key, *point, "places_table")
		span.SetAttributes(attribute.String("tier", "places_table"))
		span.SetStatus(codes.Ok, "Resolved from places table")
		return point, nil
	}

	point, err := s.nominatim.Geocode(ctx, name)
	if err != nil {
		s.logger.WarnContext(ctx, "nominatim geocoding failed", slog.Any("error", err), slog.String("name", name))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocoding failed")
		return nil, nil
	}
	if point == nil {
		span.SetStatus(codes.Ok, "No tier resolved the name")
		return nil, nil
	}

	s.store(ctx, key, *point, "nominatim")
	span.SetAttributes(attribute.String("tier", "nominatim"))
	span.SetStatus(codes.Ok, "Resolved from nominatim")
	return point, nil
}

func (s *ServiceImpl) store(ctx context.Context, key string, point types.GeoPoint, source string) {
	s.memo.SetDefault(key, point)
	entry := types.LocationCacheEntry{
		Name:      key,
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
		Source:    source,
	}
	if err := s.repo.SaveLocation(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to persist location cache entry", slog.Any("error", err))
	}
}
