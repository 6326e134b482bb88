package generativeai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/TajimeRose/NongPlatoo.Ai/config"
)

// EmbeddingService generates dense vectors for semantic search over the
// places table. Documents and queries go through the same model so
// distances stay comparable.
type EmbeddingService struct {
	client *genai.Client
	model  string
	dim    int32
	logger *slog.Logger
}

func NewEmbeddingService(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (*EmbeddingService, error) {
	apiKey := os.Getenv("GOOGLE_GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY environment variable is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &EmbeddingService{
		client: client,
		model:  cfg.EmbeddingModel,
		dim:    int32(cfg.EmbeddingDim),
		logger: logger,
	}, nil
}

// Close is a no-op kept for symmetry with other clients.
func (s *EmbeddingService) Close() {}

func (s *EmbeddingService) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.Models.EmbedContent(ctx, s.model,
		genai.Text(text),
		&genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(s.dim)},
	)
	if err != nil {
		return nil, fmt.Errorf("embed content failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("embed content returned no values")
	}
	values := resp.Embeddings[0].Values
	if len(values) != int(s.dim) {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(values), s.dim)
	}
	return values, nil
}

// GenerateQueryEmbedding embeds a user query for semantic place search.
func (s *EmbeddingService) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	ctx, span := otel.Tracer("EmbeddingService").Start(ctx, "GenerateQueryEmbedding", trace.WithAttributes(
		attribute.Int("query.length", len(query)),
		attribute.String("model", s.model),
	))
	defer span.End()

	values, err := s.embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to embed query")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Query embedded")
	return values, nil
}

// GeneratePlaceEmbedding embeds the searchable text of a place record.
func (s *EmbeddingService) GeneratePlaceEmbedding(ctx context.Context, name, category, description string) ([]float32, error) {
	ctx, span := otel.Tracer("EmbeddingService").Start(ctx, "GeneratePlaceEmbedding", trace.WithAttributes(
		attribute.String("place.name", name),
	))
	defer span.End()

	text := strings.TrimSpace(strings.Join([]string{name, category, description}, " "))
	values, err := s.embed(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to embed place")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Place embedded")
	return values, nil
}

// VectorLiteral renders an embedding as a pgvector text literal, e.g.
// "[0.1,0.2,...]", suitable for a $n::vector parameter.
func VectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
