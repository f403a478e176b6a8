package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walkgen-backend/internal/config"
	"walkgen-backend/internal/database"
	"walkgen-backend/internal/handlers"
	"walkgen-backend/internal/repository"
	"walkgen-backend/internal/router"
	"walkgen-backend/internal/services"
	"walkgen-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting WalkGen Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Client ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	walkthroughRepo := repository.NewWalkthroughRepo(pool)
	commentRepo := repository.NewCommentRepo(pool)

	// ──── Step 5: Initialize Services ────
	ctx := context.Background()

	youtubeService, err := services.NewYouTubeService(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		log.Fatalf("✗ YouTube Data API client initialization failed: %v", err)
	}
	transcriptService := services.NewTranscriptService()

	analyzerService, err := services.NewAnalyzerService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs, cfg.TranscriptChunkSize)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer analyzerService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Step 6: Start Job Worker Pool ────
	registry := worker.NewRegistry()
	workerPool := worker.NewPool(
		redisClient,
		registry,
		youtubeService,
		transcriptService,
		analyzerService,
		walkthroughRepo,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Initialize Handlers ────
	analyzeHandler := handlers.NewAnalyzeHandler(registry, walkthroughRepo, redisClient)
	browseHandler := handlers.NewBrowseHandler(walkthroughRepo, youtubeService)
	commentHandler := handlers.NewCommentHandler(commentRepo)

	// ──── Step 7: Start HTTP Server ────
	r := router.New(analyzeHandler, browseHandler, commentHandler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("✓ WalkGen Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
