// Backfills description embeddings for places that do not have one yet.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	database "github.com/TajimeRose/NongPlatoo.Ai/app/db"
	"github.com/TajimeRose/NongPlatoo.Ai/config"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/generativeai"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/place"
)

var batchSize = flag.Int("batch", 10, "places to embed per batch")

func main() {
	flag.Parse()
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := pgxpool.New(ctx, dbConfig.ConnectionURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Connected to database successfully")

	embeddingService, err := generativeai.NewEmbeddingService(ctx, cfg.AI, logger)
	if err != nil {
		log.Fatalf("Failed to initialize embedding service: %v", err)
	}
	defer embeddingService.Close()

	placeRepo := place.NewRepository(dbpool, logger)
	placeService := place.NewServiceImpl(placeRepo, embeddingService, cfg.Chatbot, logger)

	if err := placeService.GenerateEmbeddingsForAllPlaces(ctx, *batchSize); err != nil {
		log.Fatalf("Embedding generation failed: %v", err)
	}
	logger.Info("Embedding generation complete")
}
