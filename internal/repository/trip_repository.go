package repository

import (
	"context"
	"fmt"
	"sort"

	"bikeshare-platform/internal/models"
)

// TripRepository provides read access to a city's trip records.
// LoadCity returns rows in source order with derived calendar fields populated.
type TripRepository interface {
	// Source names the backing store ("csv" or "postgres")
	Source() string

	// LoadCity loads the full ordered table for one city
	LoadCity(ctx context.Context, city string) (*models.Table, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// unknownCity builds the error returned for a city outside the configured set
func unknownCity(city string, cities map[string]string) error {
	supported := make([]string, 0, len(cities))
	for name := range cities {
		supported = append(supported, name)
	}
	sort.Strings(supported)
	return &models.UnknownCityError{City: city, Supported: supported}
}
