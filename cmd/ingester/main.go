package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bikeshare-platform/internal/config"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	dataDir := flag.String("data-dir", cfg.Data.Dir, "Directory containing the city trip CSV files")
	cityList := flag.String("cities", "", "Comma-separated cities to ingest (default: all configured)")
	batchSize := flag.Int("batch-size", 1000, "Number of rows inserted per batch")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("bikeshare-ingester", version, logging.ParseLevel(cfg.Logging.Level))

	var cities []string
	for _, city := range strings.Split(*cityList, ",") {
		if city = strings.TrimSpace(city); city != "" {
			cities = append(cities, city)
		}
	}

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting trip ingestion", logging.Fields{
		"version":    version,
		"data_dir":   *dataDir,
		"cities":     cities,
		"batch_size": *batchSize,
	})

	metricsCollector := metrics.NewCollector("bikeshare_ingester")

	db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	source := repository.NewCSVTripRepository(*dataDir, cfg.Data.Cities, logger)
	store := repository.NewPostgresTripRepository(db, cfg.Data.Cities, logger, metricsCollector)
	ingestionService := services.NewIngestionService(source, store, cfg.Data.Cities, logger, metricsCollector)

	result, err := ingestionService.IngestCities(ctx, cities, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Cities:          %d/%d\n", result.IngestedCities, result.TotalCities)
	fmt.Printf("Total Records:   %d\n", result.TotalRecords)
	fmt.Printf("Duration:        %v\n", result.Duration)
	if secs := result.Duration.Seconds(); secs > 0 {
		fmt.Printf("Records/Second:  %.2f\n", float64(result.TotalRecords)/secs)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, errMsg := range result.Errors {
			fmt.Printf("  - %s\n", errMsg)
		}
	}

	datasets, err := store.ListCities(ctx)
	if err != nil {
		logger.Error(ctx, "[INGESTER_LIST_ERROR] Failed to list stored cities", logging.Fields{}, err)
	} else {
		fmt.Println("\nStored cities:")
		for _, d := range datasets {
			fmt.Printf("  %-15s %8d rows  gender=%t birth_year=%t\n", d.City, d.RowCount, d.HasGender, d.HasBirthYear)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"ingested_cities":  result.IngestedCities,
		"total_records":    result.TotalRecords,
		"duration_seconds": result.Duration.Seconds(),
	})
}
