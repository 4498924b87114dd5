package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bikeshare-platform/internal/config"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	exportDir, err := applyFlags(flag.CommandLine, os.Args[1:], cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger := logging.NewStructuredLoggerTo(os.Stderr, "bikeshare-cli", version, logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("bikeshare_cli")

	ctx := context.Background()

	var tripRepo repository.TripRepository
	switch cfg.Data.Source {
	case config.SourcePostgres:
		db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		tripRepo = repository.NewPostgresTripRepository(db, cfg.Data.Cities, logger, metricsCollector)
	default:
		tripRepo = repository.NewCSVTripRepository(cfg.Data.Dir, cfg.Data.Cities, logger)
	}

	sh := &shell{
		in:        newPrompter(os.Stdin, os.Stdout),
		out:       os.Stdout,
		trips:     services.NewTripService(tripRepo, cfg.Data.Cities, logger, metricsCollector),
		stats:     services.NewStatisticsService(logger, metricsCollector),
		logger:    logger,
		exportDir: exportDir,
	}

	if err := sh.run(ctx); err != nil {
		logger.Error(ctx, "[CLI_ERROR] Shell stopped", logging.Fields{}, err)
		os.Exit(1)
	}
}

// applyFlags parses args over cfg. Flags default to the loaded configuration;
// it returns the export directory and validates the result.
func applyFlags(fs *flag.FlagSet, args []string, cfg *config.Config) (string, error) {
	dataDir := fs.String("data-dir", cfg.Data.Dir, "Directory containing the city trip CSV files")
	exportDir := fs.String("export", "", "Write an .xlsx report of each session into this directory")
	logLevel := fs.String("log-level", cfg.Logging.Level, "Log level written to stderr")
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	cfg.Data.Dir = *dataDir
	cfg.Logging.Level = *logLevel
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return *exportDir, nil
}
