package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

// TripService loads and filters city trip tables
type TripService struct {
	repo    repository.TripRepository
	cities  map[string]string
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewTripService creates a new trip service for the supported cities
func NewTripService(repo repository.TripRepository, cities map[string]string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *TripService {
	return &TripService{
		repo:    repo,
		cities:  cities,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Cities returns the supported city names in sorted order
func (s *TripService) Cities() []string {
	names := make([]string, 0, len(s.cities))
	for city := range s.cities {
		names = append(names, city)
	}
	sort.Strings(names)
	return names
}

// NormalizeCity lowercases and trims a city name
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// Load returns the full ordered table for a supported city
func (s *TripService) Load(ctx context.Context, city string) (*models.Table, error) {
	city = NormalizeCity(city)
	if _, ok := s.cities[city]; !ok {
		s.metrics.RecordLoadError("unknown_city")
		return nil, &models.UnknownCityError{City: city, Supported: s.Cities()}
	}

	ctx = logging.WithCity(ctx, city)
	s.logger.Info(ctx, "[LOAD_START] Loading city trips", logging.Fields{
		"source": s.repo.Source(),
		"stage":  "LOAD",
	})

	timer := s.metrics.NewTimer(s.metrics.LoadDuration.WithLabelValues(city, s.repo.Source()))
	table, err := s.repo.LoadCity(ctx, city)
	duration := timer.ObserveDuration()
	if err != nil {
		s.metrics.RecordLoadError(loadErrorType(err))
		s.logger.Error(ctx, "[LOAD_ERROR] Failed to load city trips", logging.Fields{
			"source": s.repo.Source(),
		}, err)
		return nil, fmt.Errorf("failed to load %s: %w", city, err)
	}

	s.metrics.LoadRowsTotal.WithLabelValues(city).Add(float64(table.Len()))
	s.logger.Info(ctx, "[LOAD_COMPLETE] City trips loaded", logging.Fields{
		"rows":           table.Len(),
		"has_gender":     table.Schema.HasGender,
		"has_birth_year": table.Schema.HasBirthYear,
		"duration_ms":    duration.Milliseconds(),
	})

	return table, nil
}

// Filter narrows a table to a month and day of week
func (s *TripService) Filter(ctx context.Context, table *models.Table, month models.MonthSelector, day models.DaySelector) *models.Table {
	filtered := models.FilterTable(table, month, day)
	s.metrics.FilteredRows.Observe(float64(filtered.Len()))

	s.logger.Debug(ctx, "[FILTER] Table filtered", logging.Fields{
		"city":     table.City,
		"month":    month.String(),
		"day":      day.String(),
		"rows_in":  table.Len(),
		"rows_out": filtered.Len(),
	})
	return filtered
}

// Session is one load → filter sequence for a city/month/day combination
type Session struct {
	City      string
	Month     models.MonthSelector
	Day       models.DaySelector
	Table     *models.Table
	Paginator *models.RowPaginator
}

// OpenSession parses the selectors, loads the city and filters it.
// Each call builds a fresh table and paginator.
func (s *TripService) OpenSession(ctx context.Context, city, month, day string) (*Session, error) {
	monthSel, err := models.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	daySel, err := models.ParseDay(day)
	if err != nil {
		return nil, err
	}

	table, err := s.Load(ctx, city)
	if err != nil {
		return nil, err
	}

	filtered := s.Filter(ctx, table, monthSel, daySel)
	return &Session{
		City:      table.City,
		Month:     monthSel,
		Day:       daySel,
		Table:     filtered,
		Paginator: models.NewRowPaginator(filtered),
	}, nil
}

// HealthCheck checks the underlying trip source
func (s *TripService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func loadErrorType(err error) string {
	var notFound *repository.NotFoundError
	var validation *models.ValidationError
	switch {
	case errors.Is(err, models.ErrUnknownCity):
		return "unknown_city"
	case errors.Is(err, models.ErrUnparseableTimestamp):
		return "unparseable_timestamp"
	case errors.As(err, &validation):
		return "validation_error"
	case errors.As(err, &notFound):
		return "not_found"
	default:
		return "source_error"
	}
}
