package types

// Place is the canonical attraction record served by the chatbot. Rows come
// from the places table, from Google Places fallback results, or from LLM
// output that was normalized into the same shape.
type Place struct {
	ID             int      `json:"id,omitempty"`
	Name           string   `json:"name"`
	Category       string   `json:"category,omitempty"`
	Address        string   `json:"address,omitempty"`
	Description    string   `json:"description,omitempty"`
	AttractionType string   `json:"attraction_type,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	MapURL         string   `json:"map_url,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	// DistanceKm is set only by proximity searches, rounded to two decimals.
	DistanceKm *float64 `json:"distance_km,omitempty"`
	// SimilarityScore is set only by semantic search results.
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
	// CombinedScore is set only by hybrid search results.
	CombinedScore *float64 `json:"combined_score,omitempty"`
	// Source marks non-database origins such as "google_search".
	Source string `json:"source,omitempty"`
	Rating *float64 `json:"rating,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (p *Place) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// LocationQuery is the decomposition of a "near X" style question.
type LocationQuery struct {
	// Target is what the user wants to find, e.g. "คาเฟ่".
	Target string `json:"target"`
	// Reference is the anchor location, empty when the query has none.
	Reference string `json:"reference,omitempty"`
	// RadiusKm is the search radius to apply around the resolved anchor.
	RadiusKm float64 `json:"radius_km"`
}

// GeoPoint is a resolved coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationCacheEntry is a persisted geocoding result keyed by the
// normalized location name.
type LocationCacheEntry struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Source records how the coordinates were obtained: "places_table",
	// "nominatim" or "manual".
	Source string `json:"source"`
}
