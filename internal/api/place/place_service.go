package place

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/TajimeRose/NongPlatoo.Ai/config"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/generativeai"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for place retrieval.
type Service interface {
	SearchPlaces(ctx context.Context, query string, limit int) ([]types.Place, error)
	SearchMainAttractions(ctx context.Context) ([]types.Place, error)
	GetAttractionsByType(ctx context.Context, category string) ([]types.Place, error)
	SearchNearLocation(ctx context.Context, keyword string, lat, lon, radiusKm float64, limit int) ([]types.Place, error)
	SearchSemantic(ctx context.Context, query string, limit int) ([]types.Place, error)
	SearchHybrid(ctx context.Context, query string, limit int) ([]types.Place, error)
	SearchByKeywords(ctx context.Context, keywords []string, perKeywordLimit int) ([]types.Place, error)
	GetAllPlaces(ctx context.Context, limit int) ([]types.Place, error)
	SavePlace(ctx context.Context, place types.Place) (int, error)
	GetDatasetSummary(ctx context.Context) (*types.DatasetSummary, error)
	GenerateEmbeddingsForAllPlaces(ctx context.Context, batchSize int) error
}

type ServiceImpl struct {
	logger           *slog.Logger
	placeRepository  Repository
	embeddingService *generativeai.EmbeddingService
	cfg              config.ChatbotConfig
}

func NewServiceImpl(placeRepository Repository, embeddingService *generativeai.EmbeddingService, cfg config.ChatbotConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:           logger,
		placeRepository:  placeRepository,
		embeddingService: embeddingService,
		cfg:              cfg,
	}
}

// SearchPlaces runs the keyword search. Database failures degrade to an
// empty result so the caller can fall through to other retrieval tiers.
func (s *ServiceImpl) SearchPlaces(ctx context.Context, query string, limit int) ([]types.Place, error) {
	if limit <= 0 {
		limit = s.cfg.MatchLimit
	}
	places, err := s.placeRepository.SearchPlaces(ctx, query, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "keyword search failed, returning empty result", slog.Any("error", err))
		return []types.Place{}, nil
	}
	return places, nil
}

func (s *ServiceImpl) SearchMainAttractions(ctx context.Context) ([]types.Place, error) {
	places, err := s.placeRepository.SearchMainAttractions(ctx, s.cfg.MatchLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "main attraction search failed, returning empty result", slog.Any("error", err))
		return []types.Place{}, nil
	}
	return places, nil
}

func (s *ServiceImpl) GetAttractionsByType(ctx context.Context, category string) ([]types.Place, error) {
	places, err := s.placeRepository.GetAttractionsByType(ctx, category)
	if err != nil {
		s.logger.ErrorContext(ctx, "attraction type search failed, returning empty result", slog.Any("error", err))
		return []types.Place{}, nil
	}
	return places, nil
}

// SearchNearLocation finds places within radiusKm of a point. A non-empty
// keyword restricts the matches to rows mentioning it, so "ร้านอาหาร near X"
// does not return every place around X.
func (s *ServiceImpl) SearchNearLocation(ctx context.Context, keyword string, lat, lon, radiusKm float64, limit int) ([]types.Place, error) {
	if radiusKm <= 0 {
		radiusKm = s.cfg.DefaultRadiusKm
	}
	if limit <= 0 {
		limit = s.cfg.MatchLimit
	}
	places, err := s.placeRepository.SearchPlacesNearLocation(ctx, keyword, lat, lon, radiusKm, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "proximity search failed, returning empty result", slog.Any("error", err))
		return []types.Place{}, nil
	}
	return places, nil
}

// SearchSemantic embeds the query and runs a vector similarity search.
func (s *ServiceImpl) SearchSemantic(ctx context.Context, query string, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceService").Start(ctx, "SearchSemantic", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Int("limit", limit),
	))
	defer span.End()

	if s.embeddingService == nil {
		return []types.Place{}, nil
	}

	embedding, err := s.embeddingService.GenerateQueryEmbedding(ctx, query)
	if err != nil {
		s.logger.WarnContext(ctx, "query embedding failed, skipping semantic search", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Embedding failed")
		return []types.Place{}, nil
	}

	places, err := s.placeRepository.SearchPlacesSemantic(ctx, embedding, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "semantic search failed, returning empty result", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Semantic search failed")
		return []types.Place{}, nil
	}

	span.SetAttributes(attribute.Int("results.count", len(places)))
	span.SetStatus(codes.Ok, "Semantic search complete")
	return places, nil
}

// SearchHybrid combines keyword and semantic retrieval. Keyword matches
// carry a fixed score of 1.0 weighted by the configured keyword weight,
// semantic matches contribute their similarity weighted by the remainder.
func (s *ServiceImpl) SearchHybrid(ctx context.Context, query string, limit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceService").Start(ctx, "SearchHybrid", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Int("limit", limit),
	))
	defer span.End()

	if limit <= 0 {
		limit = s.cfg.MatchLimit
	}

	var keywordResults, semanticResults []types.Place

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		keywordResults, err = s.SearchPlaces(gctx, query, limit)
		return err
	})
	g.Go(func() error {
		var err error
		semanticResults, err = s.SearchSemantic(gctx, query, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hybrid search failed")
		return nil, fmt.Errorf("hybrid search failed: %w", err)
	}

	w := s.cfg.HybridKeywordWeight
	combined := make(map[int]*types.Place)
	scores := make(map[int]float64)
	// first-seen order keeps equal-score rows stable across runs
	order := make([]int, 0, len(semanticResults)+len(keywordResults))

	for i := range semanticResults {
		p := semanticResults[i]
		score := 0.0
		if p.SimilarityScore != nil {
			score = *p.SimilarityScore * (1 - w)
		}
		if _, ok := combined[p.ID]; !ok {
			order = append(order, p.ID)
		}
		combined[p.ID] = &p
		scores[p.ID] = score
	}
	for i := range keywordResults {
		p := keywordResults[i]
		if existing, ok := combined[p.ID]; ok {
			scores[p.ID] += 1.0 * w
			if existing.Description == "" {
				existing.Description = p.Description
			}
		} else {
			order = append(order, p.ID)
			combined[p.ID] = &p
			scores[p.ID] = 1.0 * w
		}
	}

	merged := make([]types.Place, 0, len(combined))
	for _, id := range order {
		p := combined[id]
		score := scores[id]
		p.CombinedScore = &score
		merged = append(merged, *p)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return *merged[i].CombinedScore > *merged[j].CombinedScore
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	span.SetAttributes(attribute.Int("results.count", len(merged)))
	span.SetStatus(codes.Ok, "Hybrid search complete")
	return merged, nil
}

// SearchByKeywords expands detected keywords into places, a few rows per
// keyword, deduplicated by id in encounter order.
func (s *ServiceImpl) SearchByKeywords(ctx context.Context, keywords []string, perKeywordLimit int) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlaceService").Start(ctx, "SearchByKeywords", trace.WithAttributes(
		attribute.Int("keywords.count", len(keywords)),
	))
	defer span.End()

	if perKeywordLimit <= 0 {
		perKeywordLimit = s.cfg.PerKeywordLimit
	}

	seen := make(map[int]bool)
	var results []types.Place
	for _, keyword := range keywords {
		places, err := s.SearchPlaces(ctx, keyword, perKeywordLimit)
		if err != nil {
			continue
		}
		for _, p := range places {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			results = append(results, p)
		}
	}

	span.SetAttributes(attribute.Int("results.count", len(results)))
	span.SetStatus(codes.Ok, "Keyword expansion complete")
	return results, nil
}

func (s *ServiceImpl) GetAllPlaces(ctx context.Context, limit int) ([]types.Place, error) {
	places, err := s.placeRepository.GetAllPlaces(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list places", "error", err)
		return nil, err
	}
	return places, nil
}

func (s *ServiceImpl) SavePlace(ctx context.Context, place types.Place) (int, error) {
	id, err := s.placeRepository.SavePlace(ctx, place)
	if err != nil {
		s.logger.Error("failed to save place", "error", err)
		return 0, err
	}
	return id, nil
}

func (s *ServiceImpl) GetDatasetSummary(ctx context.Context) (*types.DatasetSummary, error) {
	summary, err := s.placeRepository.GetDatasetSummary(ctx)
	if err != nil {
		s.logger.Error("failed to build dataset summary", "error", err)
		return nil, err
	}
	return summary, nil
}

// GenerateEmbeddingsForAllPlaces backfills description embeddings in
// batches until no unembedded rows remain.
func (s *ServiceImpl) GenerateEmbeddingsForAllPlaces(ctx context.Context, batchSize int) error {
	ctx, span := otel.Tracer("PlaceService").Start(ctx, "GenerateEmbeddingsForAllPlaces", trace.WithAttributes(
		attribute.Int("batch_size", batchSize),
	))
	defer span.End()

	if s.embeddingService == nil {
		return fmt.Errorf("embedding service is not configured")
	}
	if batchSize <= 0 {
		batchSize = 20
	}

	totalProcessed := 0
	totalErrors := 0
	for {
		places, err := s.placeRepository.GetPlacesWithoutEmbeddings(ctx, batchSize)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to fetch batch")
			return fmt.Errorf("failed to get places without embeddings: %w", err)
		}
		if len(places) == 0 {
			break
		}

		s.logger.InfoContext(ctx, "Processing batch of places", slog.Int("batch_size", len(places)))

		for _, p := range places {
			embedding, err := s.embeddingService.GeneratePlaceEmbedding(ctx, p.Name, p.Category, p.Description)
			if err != nil {
				s.logger.ErrorContext(ctx, "Failed to generate embedding for place",
					slog.Any("error", err),
					slog.Int("place_id", p.ID),
					slog.String("place_name", p.Name),
				)
				totalErrors++
				continue
			}
			if err := s.placeRepository.UpdatePlaceEmbedding(ctx, p.ID, embedding); err != nil {
				s.logger.ErrorContext(ctx, "Failed to store embedding for place",
					slog.Any("error", err),
					slog.Int("place_id", p.ID),
				)
				totalErrors++
				continue
			}
			totalProcessed++
		}
	}

	s.logger.InfoContext(ctx, "Embedding backfill finished",
		slog.Int("processed", totalProcessed),
		slog.Int("errors", totalErrors),
	)
	span.SetAttributes(attribute.Int("processed", totalProcessed), attribute.Int("errors", totalErrors))
	span.SetStatus(codes.Ok, "Embedding backfill finished")
	return nil
}
