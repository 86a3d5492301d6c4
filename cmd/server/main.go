package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/david/grant-hunter/internal/ai"
	"github.com/david/grant-hunter/internal/api"
	"github.com/david/grant-hunter/internal/config"
	"github.com/david/grant-hunter/internal/db"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	aiClient := ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model)
	if cfg.AI.EmbedModel != "" {
		aiClient.EmbedModel = cfg.AI.EmbedModel
	}

	srv := api.NewServer(pool, aiClient)
	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := srv.Start(cfg.Server.Port); err != nil {
		log.Fatal(err)
	}
}
