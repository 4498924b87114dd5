package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/pkg/database"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

// TripStore is a TripRepository backed by PostgreSQL that also accepts ingested cities
type TripStore interface {
	TripRepository

	// SaveCity replaces every stored trip of dataset.City, batchSize rows per insert batch
	SaveCity(ctx context.Context, dataset *models.CityDataset, trips []*models.TripRecord, batchSize int) error

	// ListCities returns the ingested datasets
	ListCities(ctx context.Context) ([]*models.CityDataset, error)
}

// postgresTripRepository implements TripStore
type postgresTripRepository struct {
	db      *database.PostgresDB
	cities  map[string]string
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewPostgresTripRepository creates a new trip store over db.
// cities is the supported set; its values (file names) are informational only.
func NewPostgresTripRepository(db *database.PostgresDB, cities map[string]string, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) TripStore {
	return &postgresTripRepository{
		db:      db,
		cities:  cities,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func (r *postgresTripRepository) Source() string { return "postgres" }

// LoadCity reads a city's trips ordered by their position in the source file
func (r *postgresTripRepository) LoadCity(ctx context.Context, city string) (*models.Table, error) {
	if _, ok := r.cities[city]; !ok {
		return nil, unknownCity(city, r.cities)
	}

	var dataset models.CityDataset
	err := r.db.GetContext(ctx, "get_city_dataset", &dataset, `
		SELECT city, source_file, row_count, has_gender, has_birth_year, created_at, updated_at
		FROM city_datasets
		WHERE city = $1
	`, city)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Resource: "city_dataset", ID: city}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get city dataset: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, "load_city_trips", `
		SELECT start_time, end_time, trip_duration, start_station, end_station,
		       user_type, gender, birth_year
		FROM trip_records
		WHERE city = $1
		ORDER BY source_row
	`, city)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips: %w", err)
	}
	defer rows.Close()

	trips := make([]*models.TripRecord, 0, dataset.RowCount)
	for rows.Next() {
		var trip models.TripRecord
		if err := rows.StructScan(&trip); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trip.DeriveFields()
		trips = append(trips, &trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}

	return models.NewTable(city, dataset.Schema, trips), nil
}

// tripColumns are the trip_records columns written per row, in argument order
var tripColumns = []string{
	"city", "source_row", "start_time", "end_time", "trip_duration",
	"start_station", "end_station", "user_type", "gender", "birth_year",
}

// maxInsertBatch keeps one multi-row insert under PostgreSQL's 65535 bind parameters
var maxInsertBatch = 65535 / len(tripColumns)

// insertTripsQuery builds one multi-row INSERT for trips, whose first element
// sits at firstRow in the source file
func insertTripsQuery(city string, firstRow int, trips []*models.TripRecord) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("INSERT INTO trip_records (")
	b.WriteString(strings.Join(tripColumns, ", "))
	b.WriteString(") VALUES ")

	args := make([]interface{}, 0, len(trips)*len(tripColumns))
	for i, trip := range trips {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range tripColumns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", len(args)+c+1)
		}
		b.WriteByte(')')

		args = append(args,
			city,
			firstRow+i,
			trip.StartTime,
			trip.EndTime,
			trip.TripDuration,
			trip.StartStation,
			trip.EndStation,
			trip.UserType,
			trip.Gender,
			trip.BirthYear,
		)
	}
	return b.String(), args
}

// SaveCity replaces a city's trips inside a single transaction, one multi-row
// insert per batch of batchSize trips
func (r *postgresTripRepository) SaveCity(ctx context.Context, dataset *models.CityDataset, trips []*models.TripRecord, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if batchSize > maxInsertBatch {
		batchSize = maxInsertBatch
	}

	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[REPO_SAVE_CITY] City trips stored", logging.Fields{
			"city":        dataset.City,
			"count":       len(trips),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_records WHERE city = $1`, dataset.City); err != nil {
		return fmt.Errorf("failed to clear trips: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO city_datasets (city, source_file, row_count, has_gender, has_birth_year, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (city) DO UPDATE SET
			source_file = EXCLUDED.source_file,
			row_count = EXCLUDED.row_count,
			has_gender = EXCLUDED.has_gender,
			has_birth_year = EXCLUDED.has_birth_year,
			updated_at = EXCLUDED.updated_at
	`,
		dataset.City,
		dataset.SourceFile,
		len(trips),
		dataset.HasGender,
		dataset.HasBirthYear,
		dataset.CreatedAt,
		dataset.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert city dataset: %w", err)
	}

	for start := 0; start < len(trips); start += batchSize {
		end := start + batchSize
		if end > len(trips) {
			end = len(trips)
		}

		query, args := insertTripsQuery(dataset.City, start, trips[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert trips %d-%d: %w", start, end-1, err)
		}
		r.metrics.IngestionBatchSize.Observe(float64(end - start))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(trips)))

	return nil
}

// ListCities returns every ingested city dataset
func (r *postgresTripRepository) ListCities(ctx context.Context) ([]*models.CityDataset, error) {
	var datasets []*models.CityDataset
	err := r.db.SelectContext(ctx, "list_city_datasets", &datasets, `
		SELECT city, source_file, row_count, has_gender, has_birth_year, created_at, updated_at
		FROM city_datasets
		ORDER BY city
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list city datasets: %w", err)
	}
	return datasets, nil
}

// HealthCheck performs a repository health check
func (r *postgresTripRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
