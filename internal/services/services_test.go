package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

var testCities = map[string]string{
	"chicago":       "chicago.csv",
	"new york city": "new_york_city.csv",
	"washington":    "washington.csv",
}

func newTestCollector() *metrics.Collector {
	return metrics.NewCollectorWith("bikeshare_test", prometheus.NewRegistry())
}

// fakeTripRepository serves in-memory tables keyed by city
type fakeTripRepository struct {
	tables map[string]*models.Table
	errs   map[string]error
	loads  int
}

func (r *fakeTripRepository) Source() string { return "fake" }

func (r *fakeTripRepository) LoadCity(ctx context.Context, city string) (*models.Table, error) {
	r.loads++
	if err, ok := r.errs[city]; ok {
		return nil, err
	}
	table, ok := r.tables[city]
	if !ok {
		return nil, fmt.Errorf("no table for %s", city)
	}
	return table, nil
}

func (r *fakeTripRepository) HealthCheck(ctx context.Context) error { return nil }

// fakeTripStore records SaveCity calls
type fakeTripStore struct {
	fakeTripRepository
	saved   map[string]*models.CityDataset
	rows    map[string]int
	failFor string
}

func newFakeTripStore() *fakeTripStore {
	return &fakeTripStore{
		saved: make(map[string]*models.CityDataset),
		rows:  make(map[string]int),
	}
}

func (s *fakeTripStore) SaveCity(ctx context.Context, dataset *models.CityDataset, trips []*models.TripRecord, batchSize int) error {
	if dataset.City == s.failFor {
		return errors.New("connection reset")
	}
	s.saved[dataset.City] = dataset
	s.rows[dataset.City] = len(trips)
	return nil
}

func (s *fakeTripStore) ListCities(ctx context.Context) ([]*models.CityDataset, error) {
	out := make([]*models.CityDataset, 0, len(s.saved))
	for _, d := range s.saved {
		out = append(out, d)
	}
	return out, nil
}

func newTestTripService(repo *fakeTripRepository) *TripService {
	return NewTripService(repo, testCities, logging.Discard(), newTestCollector())
}

func chicagoTable(t *testing.T) *models.Table {
	return buildTable(t, models.Schema{HasGender: true, HasBirthYear: true},
		tripFixture{start: "2017-01-01 08:15:00", from: "A", to: "B", duration: 300, userType: "Subscriber", gender: "Male", birth: 1980},
		tripFixture{start: "2017-01-02 09:00:00", from: "B", to: "C", duration: 600, userType: "Customer"},
		tripFixture{start: "2017-03-05 17:45:00", from: "A", to: "B", duration: 900, userType: "Subscriber", gender: "Female", birth: 1990},
		tripFixture{start: "2017-06-04 12:00:00", from: "C", to: "A", duration: 120, userType: "Subscriber", gender: "Female", birth: 1990},
	)
}
