package place

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/TajimeRose/NongPlatoo.Ai/internal/api"
)

type Handler struct {
	placeService Service
	logger       *slog.Logger
}

func NewHandler(placeService Service, logger *slog.Logger) *Handler {
	return &Handler{
		placeService: placeService,
		logger:       logger,
	}
}

const defaultSearchLimit = 50

// Search looks up places by free text.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SearchPlaces").Start(r.Context(), "SearchPlaces", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/places"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Search"))

	query := r.URL.Query().Get("q")
	if query == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	limit := queryInt(r, "limit", defaultSearchLimit)

	places, err := h.placeService.SearchPlaces(ctx, query, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to search places", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to search places")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, places)
}

// Nearby returns places within a radius of a point.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("NearbyPlaces").Start(r.Context(), "NearbyPlaces", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/places/nearby"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Nearby"))

	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Valid lat and lon parameters are required")
		return
	}
	radiusKm, err := strconv.ParseFloat(r.URL.Query().Get("radius_km"), 64)
	if err != nil || radiusKm <= 0 {
		radiusKm = 2
	}
	limit := queryInt(r, "limit", 6)
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))

	places, err := h.placeService.SearchNearLocation(ctx, keyword, lat, lon, radiusKm, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to search nearby places", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to search nearby places")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, places)
}

// MainAttractions returns the curated headline attractions.
func (h *Handler) MainAttractions(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("MainAttractions").Start(r.Context(), "MainAttractions", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/places/main"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "MainAttractions"))

	places, err := h.placeService.SearchMainAttractions(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch main attractions", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch main attractions")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, places)
}

// ByCategory returns places in one category.
func (h *Handler) ByCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlacesByCategory").Start(r.Context(), "PlacesByCategory", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/places/category"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ByCategory"))

	category := r.URL.Query().Get("category")
	if category == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Query parameter category is required")
		return
	}

	places, err := h.placeService.GetAttractionsByType(ctx, category)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch places by category", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch places by category")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, places)
}

func queryInt(r *http.Request, name string, fallback int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
