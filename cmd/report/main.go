package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"bikeshare-platform/internal/config"
	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

const version = "1.0.0"

const (
	heavyRule = "════════════════════════════════════════════════════════════════"
	lightRule = "─────────────────────────────────────────────────────────────"
)

// cityReport is one city's batch output
type cityReport struct {
	Report           *services.Report `json:"report,omitempty"`
	Error            string           `json:"error,omitempty"`
	MissingGender    int              `json:"missing_gender"`
	MissingBirthYear int              `json:"missing_birth_year"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	dataDir := flag.String("data-dir", cfg.Data.Dir, "Directory containing the city trip CSV files")
	month := flag.String("month", models.All, "Month filter")
	day := flag.String("day", models.All, "Day of week filter")
	asJSON := flag.Bool("json", false, "Print reports as JSON")
	workers := flag.Int("workers", 3, "Number of city sessions run concurrently")
	flag.Parse()

	cfg.Data.Dir = *dataDir
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLoggerTo(os.Stderr, "bikeshare-report", version, logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("bikeshare_report")

	var repo repository.TripRepository
	switch cfg.Data.Source {
	case config.SourcePostgres:
		db, err := database.NewPostgresDB(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		repo = repository.NewPostgresTripRepository(db, cfg.Data.Cities, logger, metricsCollector)
	default:
		repo = repository.NewCSVTripRepository(cfg.Data.Dir, cfg.Data.Cities, logger)
	}

	tripService := services.NewTripService(repo, cfg.Data.Cities, logger, metricsCollector)
	statsService := services.NewStatisticsService(logger, metricsCollector)

	reports := buildReports(context.Background(), tripService, statsService, *month, *day, *workers)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode reports: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printReports(os.Stdout, tripService.Cities(), reports)
}

// buildReports runs one independent single-city session per configured city,
// at most workers at a time. Results are never combined across cities. A city
// that fails to load is recorded and does not stop the others.
func buildReports(ctx context.Context, trips *services.TripService, stats *services.StatisticsService, month, day string, workers int) map[string]*cityReport {
	var mu sync.Mutex
	reports := make(map[string]*cityReport)

	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, city := range trips.Cities() {
		city := city
		g.Go(func() error {
			cr := buildReport(ctx, trips, stats, city, month, day)
			mu.Lock()
			reports[city] = cr
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return reports
}

func buildReport(ctx context.Context, trips *services.TripService, stats *services.StatisticsService, city, month, day string) *cityReport {
	session, err := trips.OpenSession(ctx, city, month, day)
	if err != nil {
		return &cityReport{Error: err.Error()}
	}

	cr := &cityReport{Report: stats.Report(ctx, session)}
	for _, trip := range session.Table.Rows {
		if session.Table.Schema.HasGender && trip.Gender == nil {
			cr.MissingGender++
		}
		if session.Table.Schema.HasBirthYear && trip.BirthYear == nil {
			cr.MissingBirthYear++
		}
	}
	return cr
}

func printReports(w io.Writer, cities []string, reports map[string]*cityReport) {
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintln(w, "BIKESHARE PLATFORM - CITY REPORTS")
	fmt.Fprintln(w, heavyRule)

	loaded := 0
	for _, city := range cities {
		cr := reports[city]
		fmt.Fprintln(w, lightRule)
		fmt.Fprintf(w, "City: %s\n", city)
		fmt.Fprintln(w, lightRule)

		if cr.Error != "" {
			fmt.Fprintf(w, "  Load failed: %s\n\n", cr.Error)
			continue
		}
		loaded++

		r := cr.Report
		fmt.Fprintf(w, "  Filter: month=%s day=%s\n", r.Month, r.Day)
		fmt.Fprintf(w, "  Trips:  %d\n", r.TripCount)

		if r.Time != nil {
			fmt.Fprintf(w, "  Busiest month/day/hour: %s / %s / %s\n", r.Time.MonthName, r.Time.MostCommonDay, r.Time.HourLabel)
		}
		if r.Stations != nil {
			fmt.Fprintf(w, "  Top trip: %s -> %s (%d)\n", r.Stations.MostCommonTrip.StartStation, r.Stations.MostCommonTrip.EndStation, r.Stations.TripCount)
		}
		if r.Duration != nil {
			fmt.Fprintf(w, "  Mean duration: %d min %.0f s\n", r.Duration.Mean.Minutes, r.Duration.Mean.Seconds)
		}
		if r.Users != nil {
			types := make([]string, 0, len(r.Users.UserTypes))
			for _, vc := range r.Users.UserTypes {
				types = append(types, fmt.Sprintf("%s=%d", vc.Value, vc.Count))
			}
			fmt.Fprintf(w, "  User types: %s\n", strings.Join(types, ", "))
		}
		if cr.MissingGender > 0 || cr.MissingBirthYear > 0 {
			fmt.Fprintf(w, "  Missing values: gender=%d birth_year=%d\n", cr.MissingGender, cr.MissingBirthYear)
		}
		for _, section := range services.Sections {
			if msg, ok := r.Errors[section]; ok {
				fmt.Fprintf(w, "  %s: %s\n", section, msg)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, heavyRule)
	fmt.Fprintln(w, "SUMMARY")
	fmt.Fprintln(w, heavyRule)
	fmt.Fprintf(w, "Cities loaded: %d/%d\n", loaded, len(cities))
}
