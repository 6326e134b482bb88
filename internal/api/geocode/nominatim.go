package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TajimeRose/NongPlatoo.Ai/config"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

// NominatimClient geocodes location names through the OpenStreetMap
// Nominatim API. Lookups carry the configured User-Agent per the usage
// policy and are biased to Thailand.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewNominatimClient(cfg config.ExternalConfig) *NominatimClient {
	return &NominatimClient{
		baseURL:   cfg.NominatimURL,
		userAgent: cfg.NominatimAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves a free-form location name to coordinates. Returns nil
// when Nominatim has no match.
func (c *NominatimClient) Geocode(ctx context.Context, name string) (*types.GeoPoint, error) {
	ctx, span := otel.Tracer("NominatimClient").Start(ctx, "Geocode", trace.WithAttributes(
		attribute.String("name", name),
	))
	defer span.End()

	params := url.Values{}
	params.Set("q", name)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", "th")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Request build failed")
		return nil, fmt.Errorf("failed to build nominatim request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Request failed")
		return nil, fmt.Errorf("nominatim request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("nominatim returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unexpected status")
		return nil, err
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Decode failed")
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		span.SetStatus(codes.Ok, "No match")
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in nominatim response: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in nominatim response: %w", err)
	}

	span.SetStatus(codes.Ok, "Location geocoded")
	return &types.GeoPoint{Latitude: lat, Longitude: lon}, nil
}
