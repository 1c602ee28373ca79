package main

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/platelog/backend/config"
	httpDelivery "github.com/platelog/backend/internal/delivery/http"
	"github.com/platelog/backend/internal/domain"
	"github.com/platelog/backend/internal/infrastructure/catalog"
	"github.com/platelog/backend/internal/infrastructure/fetch"
	"github.com/platelog/backend/internal/infrastructure/pdftext"
	"github.com/platelog/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PlateLog Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Catalog: %s", cfg.Catalog.Type)

	logger, err := buildLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Initialize infrastructure dependencies
	var (
		store domain.CatalogRepository
		meals domain.MealRepository
	)
	switch cfg.Catalog.Type {
	case "sqlite":
		db, err := catalog.OpenSQLite(cfg.Catalog.Path)
		if err != nil {
			log.Fatalf("Failed to open catalog database %s: %v", cfg.Catalog.Path, err)
		}
		defer db.Close()
		store, meals = db, db
		log.Printf("Catalog database: %s", cfg.Catalog.Path)
	case "memory":
		store = catalog.NewMemoryStore()
		meals = catalog.NewMemoryMealLog()
	}

	fetcher := fetch.NewClient(cfg.Scrape.FetchTimeout, cfg.Scrape.RequestInterval, sugar)
	pdfReader := pdftext.NewReader()

	// Initialize usecase layer
	parser := usecase.NewOrderParser(sugar)
	matcher := usecase.NewMatchingService(store, sugar)
	orders := usecase.NewOrderService(parser, matcher, meals, fetcher, pdfReader, sugar)
	// The fetch client already paces requests; no second limiter here.
	ingest := usecase.NewIngestService(store, fetcher, pdfReader, nil, cfg.Scrape.ForceStationUpdate, sugar)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(orders, ingest, matcher, parser, sugar)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func buildLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
