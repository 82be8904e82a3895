package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata" // bundles Asia/Kolkata so session.DefaultClock works without a system tzdata install

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tickcandle/config"
	"tickcandle/internal/aggregator"
	"tickcandle/internal/database"
	"tickcandle/internal/ingest"
	"tickcandle/internal/session"
	"tickcandle/models"
	"tickcandle/routes"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	clock, err := session.NewClock(cfg.SessionTimezone, 9, 15, 15, 30)
	if err != nil {
		log.Fatalf("Failed to load session clock: %v", err)
	}
	registry := aggregator.NewRegistry(clock)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	startedAt := time.Now()
	aggService := routes.SetupRoutes(e, db, cfg, registry, startedAt)

	ctx, cancelIngest := context.WithCancel(context.Background())
	defer cancelIngest()
	if cfg.IngestFeedURL != "" {
		feed := ingest.NewFeed(cfg.IngestFeedURL, "1m", cfg.DefaultBucketSz, cfg.DefaultMultiplier, func(req models.IngestTickRequest) {
			if req.Timeframe == "" || req.Symbol == "" {
				return
			}
			if _, processed, err := aggService.IngestTick(ctx, req.ToTick(), req.Timeframe, req.BucketSize, req.Multiplier); err != nil {
				log.Printf("ingest: tick error for %s: %v", req.Symbol, err)
			} else if !processed {
				log.Printf("ingest: tick rejected for %s", req.Symbol)
			}
		})
		go feed.Run(ctx)
		log.Printf("Ingest feed connecting to %s", cfg.IngestFeedURL)
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelIngest()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
