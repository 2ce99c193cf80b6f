package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codyseavey/card-resolver/internal/api"
	"github.com/codyseavey/card-resolver/internal/catalog"
	"github.com/codyseavey/card-resolver/internal/metrics"
	"github.com/codyseavey/card-resolver/internal/recency"
	"github.com/codyseavey/card-resolver/internal/resolver"
)

func main() {
	// Catalog path. The installer/updater guarantees a catalog file exists
	// here before we start; it may swap in a newer build between runs, so
	// schema capabilities are re-detected on every open.
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./card_catalog.db"
	}

	store := catalog.New()
	if err := store.Open(dbPath); err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}

	count, err := store.CardCount()
	if err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}
	metrics.CatalogCardsTotal.Set(float64(count))
	log.Printf("Catalog ready with %d cards", count)

	// Recency history survives restarts so tie-breaking keeps working
	// across sessions.
	recencyPath := os.Getenv("RECENT_SETS_PATH")
	if recencyPath == "" {
		recencyPath = "./recent_sets.json"
	}
	tracker := recency.New(recencyPath)

	engine := resolver.New(store, tracker)

	// Setup router
	router := api.SetupRouter(store, engine, tracker)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
