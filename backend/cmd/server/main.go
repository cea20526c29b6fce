package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"owing/backend/internal/adapter"
	"owing/backend/internal/casting"
	"owing/backend/internal/graph"
	"owing/backend/internal/server"
	"owing/backend/internal/story"
	"owing/backend/internal/store"
	"owing/backend/internal/universe"
	"owing/backend/pkg/config"
	"owing/backend/pkg/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

func main() {
	// Load configuration first so the logger knows the environment
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	if err := logger.Init(cfg.Env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting Owing backend...")

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	// Verify Neo4j connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	graphRepo := graph.NewRepository(driver)
	if err := graphRepo.EnsureConstraints(ctx); err != nil {
		log.Fatal("Failed to ensure graph constraints", zap.Error(err))
	}

	// Open the relational store
	db, err := store.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatal("Failed to open SQLite store", zap.Error(err))
	}
	defer db.Close()

	// OpenAI is optional; generation endpoints fail at call time without it
	var generator casting.Generator
	if cfg.OpenAIAPIKey != "" {
		generator = adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ImageModel, cfg.ChatModel)
		log.Info("OpenAI adapter initialized",
			zap.String("image_model", cfg.ImageModel),
			zap.String("chat_model", cfg.ChatModel),
		)
	} else {
		log.Info("OpenAI not configured, generation endpoints disabled")
	}

	castingSvc := casting.NewService(db, graphRepo, generator)
	storySvc := story.NewService(db, graphRepo)
	universeSvc := universe.NewService(db, nil)

	srv := server.NewServer(castingSvc, storySvc, universeSvc)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Router(cfg.IsProduction()),
	}

	go func() {
		log.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-shutdownChan

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
}
