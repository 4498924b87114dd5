package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/internal/repository"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

// IngestionService copies city trip files into the PostgreSQL trip store
type IngestionService struct {
	source  repository.TripRepository
	store   repository.TripStore
	cities  map[string]string
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalCities    int
	IngestedCities int
	TotalRecords   int
	Duration       time.Duration
	Errors         []string
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(source repository.TripRepository, store repository.TripStore, cities map[string]string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		source:  source,
		store:   store,
		cities:  cities,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestCities ingests each named city; an empty list means every supported city.
// A failing city is reported in the result and does not stop the others.
func (s *IngestionService) IngestCities(ctx context.Context, cities []string, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()

	if len(cities) == 0 {
		for city := range s.cities {
			cities = append(cities, city)
		}
		sort.Strings(cities)
	}

	s.logger.Info(ctx, "[INGEST_START] Starting trip ingestion", logging.Fields{
		"cities":     cities,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	result := &IngestionResult{
		TotalCities: len(cities),
		Errors:      make([]string, 0),
	}

	for _, city := range cities {
		city = NormalizeCity(city)
		cityLogger := s.logger.With(logging.Fields{"city": city})

		count, errorType, err := s.ingestCity(ctx, city, batchSize)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", city, err))
			cityLogger.Error(ctx, "[INGEST_CITY_ERROR] City ingestion failed", logging.Fields{
				"stage":      "CITY_PROCESSING",
				"error_type": errorType,
			}, err)
			s.metrics.RecordIngestionError(errorType)
			continue
		}

		result.IngestedCities++
		result.TotalRecords += count

		cityLogger.Info(ctx, "[INGEST_CITY_SUCCESS] City ingested successfully", logging.Fields{
			"records": count,
			"stage":   "CITY_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Trip ingestion completed", logging.Fields{
		"total_cities":     result.TotalCities,
		"ingested_cities":  result.IngestedCities,
		"total_records":    result.TotalRecords,
		"duration_seconds": result.Duration.Seconds(),
		"error_count":      len(result.Errors),
		"stage":            "COMPLETE",
	})

	if result.IngestedCities == 0 && len(result.Errors) > 0 {
		return result, fmt.Errorf("no city ingested: %s", result.Errors[0])
	}
	return result, nil
}

// ingestCity loads one city from the source and replaces it in the store.
// On failure it also returns the error type recorded in the ingestion metrics.
func (s *IngestionService) ingestCity(ctx context.Context, city string, batchSize int) (int, string, error) {
	fileName, ok := s.cities[city]
	if !ok {
		return 0, "unknown_city", &models.UnknownCityError{City: city}
	}

	table, err := s.source.LoadCity(ctx, city)
	if err != nil {
		return 0, "parse_error", err
	}

	now := time.Now().UTC()
	dataset := &models.CityDataset{
		City:       city,
		SourceFile: fileName,
		RowCount:   table.Len(),
		Schema:     table.Schema,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.SaveCity(ctx, dataset, table.Rows, batchSize); err != nil {
		return 0, "store_error", fmt.Errorf("failed to store trips: %w", err)
	}
	return table.Len(), "", nil
}
