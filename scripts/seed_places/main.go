// Loads places from a JSON file into the places table. Existing rows
// are updated by name, so the seed is safe to re-run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	database "github.com/TajimeRose/NongPlatoo.Ai/app/db"
	"github.com/TajimeRose/NongPlatoo.Ai/config"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/api/place"
	"github.com/TajimeRose/NongPlatoo.Ai/internal/types"
)

var input = flag.String("input", "data/places.json", "path to the places JSON file")

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

	raw, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *input, err)
	}
	var places []types.Place
	if err := json.Unmarshal(raw, &places); err != nil {
		log.Fatalf("Failed to parse %s: %v", *input, err)
	}

	placeRepo := place.NewRepository(dbpool, logger)

	saved := 0
	for _, p := range places {
		if _, err := placeRepo.SavePlace(ctx, p); err != nil {
			logger.Warn("Failed to save place", slog.String("name", p.Name), slog.Any("error", err))
			continue
		}
		saved++
	}
	logger.Info("Seed complete", slog.Int("saved", saved), slog.Int("total", len(places)))
}
