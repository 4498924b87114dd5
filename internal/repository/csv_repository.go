package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/pkg/logging"
)

// Column names of the trip file layout, compared case-insensitively
const (
	colStartTime    = "start time"
	colEndTime      = "end time"
	colTripDuration = "trip duration"
	colStartStation = "start station"
	colEndStation   = "end station"
	colUserType     = "user type"
	colGender       = "gender"
	colBirthYear    = "birth year"
)

var requiredColumns = []string{
	colStartTime,
	colEndTime,
	colTripDuration,
	colStartStation,
	colEndStation,
	colUserType,
}

// csvTripRepository reads one CSV file per city from a data directory
type csvTripRepository struct {
	dataDir string
	cities  map[string]string
	logger  *logging.StructuredLogger
}

// NewCSVTripRepository creates a repository reading <dataDir>/<cities[city]>
func NewCSVTripRepository(dataDir string, cities map[string]string, logger *logging.StructuredLogger) TripRepository {
	return &csvTripRepository{
		dataDir: dataDir,
		cities:  cities,
		logger:  logger,
	}
}

func (r *csvTripRepository) Source() string { return "csv" }

// LoadCity parses the city's CSV file into a table
func (r *csvTripRepository) LoadCity(ctx context.Context, city string) (*models.Table, error) {
	fileName, ok := r.cities[city]
	if !ok {
		return nil, unknownCity(city, r.cities)
	}

	path := filepath.Join(r.dataDir, fileName)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Resource: "trip_file", ID: path}
		}
		return nil, fmt.Errorf("failed to open trip file: %w", err)
	}
	defer file.Close()

	timer := time.Now()
	table, err := ReadTrips(city, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	r.logger.Debug(ctx, "[REPO_CSV_LOAD] Trip file parsed", logging.Fields{
		"file":           path,
		"rows":           table.Len(),
		"has_gender":     table.Schema.HasGender,
		"has_birth_year": table.Schema.HasBirthYear,
		"duration_ms":    time.Since(timer).Milliseconds(),
	})

	return table, nil
}

// HealthCheck verifies the data directory is readable
func (r *csvTripRepository) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(r.dataDir)
	if err != nil {
		return fmt.Errorf("data directory health check failed: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory health check failed: %s is not a directory", r.dataDir)
	}
	return nil
}

// ReadTrips parses a trip CSV stream. The schema is detected once from the
// header; the first unparseable row aborts the whole read.
func ReadTrips(city string, in io.Reader) (*models.Table, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("trip file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	_, hasGender := index[colGender]
	_, hasBirthYear := index[colBirthYear]
	schema := models.Schema{HasGender: hasGender, HasBirthYear: hasBirthYear}

	field := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	trips := make([]*models.TripRecord, 0, 1024)
	for rowNum := 0; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		raw := models.RawTripRecord{
			StartTime:    field(row, colStartTime),
			EndTime:      field(row, colEndTime),
			TripDuration: field(row, colTripDuration),
			StartStation: field(row, colStartStation),
			EndStation:   field(row, colEndStation),
			UserType:     field(row, colUserType),
			Gender:       field(row, colGender),
			BirthYear:    field(row, colBirthYear),
		}

		trip, err := raw.ToTrip(rowNum)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return models.NewTable(city, schema, trips), nil
}
