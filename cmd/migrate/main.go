package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"bikeshare-platform/internal/config"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	dir := flag.String("dir", "migrations", "Directory containing migration files")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("bikeshare-migrate", version, logging.ParseLevel(cfg.Logging.Level))
	ctx := context.Background()

	files, err := migrationFiles(*dir, *direction)
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_INIT_ERROR] Invalid migration set", logging.Fields{
			"dir":       *dir,
			"direction": *direction,
		}, err)
	}

	db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metrics.NewCollector("bikeshare_migrate"))
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_INIT_ERROR] Failed to connect to database", nil, err)
	}
	defer db.Close()

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			logger.Fatal(ctx, "[MIGRATE_READ_ERROR] Failed to read migration file", logging.Fields{"file": file}, err)
		}

		start := time.Now()
		if _, err := db.ExecContext(ctx, "migration", string(content)); err != nil {
			logger.Fatal(ctx, "[MIGRATE_EXEC_ERROR] Failed to execute migration", logging.Fields{"file": file}, err)
		}

		logger.Info(ctx, "[MIGRATE_APPLIED] Migration applied", logging.Fields{
			"file":        file,
			"direction":   *direction,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}

	fmt.Printf("Applied %d %s migration(s) from %s\n", len(files), *direction, *dir)
}

// migrationFiles lists the *.<direction>.sql files of dir in the order they
// must run: ascending for up, descending for down.
func migrationFiles(dir, direction string) ([]string, error) {
	if direction != "up" && direction != "down" {
		return nil, fmt.Errorf("invalid direction %q: expected up or down", direction)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*."+direction+".sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s migrations in %s", direction, dir)
	}

	sort.Strings(files)
	if direction == "down" {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}
	return files, nil
}
