package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/TajimeRose/NongPlatoo.Ai/app/db"
	"github.com/TajimeRose/NongPlatoo.Ai/config"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/chat"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/external"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/generativeai"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/geocode"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/intent"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/place"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *slog.Logger
	Pool         *pgxpool.Pool
	ChatHandler  *chat.Handler
	PlaceHandler *place.Handler
	ChatService  chat.Service
	PlaceService place.Service
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	// Initialize database
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	// Model-backed services degrade to nil when no API key is configured.
	var travelService *generativeai.TravelService
	var embeddingService *generativeai.EmbeddingService
	aiClient, err := generativeai.NewAIClient(ctx, cfg.AI)
	if err != nil {
		logger.Warn("Generative AI unavailable, responses will use templates", slog.Any("error", err))
	} else {
		travelService = generativeai.NewTravelService(aiClient, cfg.AI, logger)
		embeddingService, err = generativeai.NewEmbeddingService(ctx, cfg.AI, logger)
		if err != nil {
			logger.Warn("Embedding service unavailable, semantic search disabled", slog.Any("error", err))
			embeddingService = nil
		}
	}

	placeRepo := place.NewRepository(pool, logger)
	placeService := place.NewServiceImpl(placeRepo, embeddingService, cfg.Chatbot, logger)
	placeHandler := place.NewHandler(placeService, logger)

	geocodeRepo := geocode.NewRepository(pool, logger)
	nominatim := geocode.NewNominatimClient(cfg.External)
	geocodeService := geocode.NewServiceImpl(geocodeRepo, placeRepo, nominatim, logger)

	// Google Places fallback is optional as well.
	var googleService external.Service
	mapsClient, err := external.NewMapsClient()
	if err != nil {
		logger.Warn("Google Places fallback unavailable", slog.Any("error", err))
	} else {
		centre := types.GeoPoint{Latitude: cfg.Chatbot.DefaultLatitude, Longitude: cfg.Chatbot.DefaultLongitude}
		googleService = external.NewServiceImpl(mapsClient, placeRepo, cfg.External, centre, logger)
	}

	classifier := intent.NewRuleClassifier(cfg.Chatbot.LocalKeywords)
	matcher := intent.NewTopicMatcher(cfg.Chatbot.LocalKeywords)

	chatRepo := chat.NewRepository(pool, logger)
	probe := func(ctx context.Context) error { return database.Probe(ctx, pool) }

	var composer chat.Composer
	if travelService != nil {
		composer = travelService
	}

	chatService := chat.NewService(
		logger,
		cfg.Chatbot,
		placeService,
		classifier,
		matcher,
		composer,
		geocodeService,
		googleService,
		chatRepo,
		probe,
	)
	chatHandler := chat.NewHandler(chatService, logger)

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Pool:         pool,
		ChatHandler:  chatHandler,
		PlaceHandler: placeHandler,
		ChatService:  chatService,
		PlaceService: placeService,
	}, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
