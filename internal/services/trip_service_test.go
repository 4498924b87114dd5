package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare-platform/internal/models"
)

func TestTripService_Cities(t *testing.T) {
	svc := newTestTripService(&fakeTripRepository{})
	assert.Equal(t, []string{"chicago", "new york city", "washington"}, svc.Cities())
}

func TestTripService_Load(t *testing.T) {
	table := chicagoTable(t)
	repo := &fakeTripRepository{tables: map[string]*models.Table{"chicago": table}}
	svc := newTestTripService(repo)

	tests := []struct {
		name    string
		city    string
		wantErr error
	}{
		{name: "exact name", city: "chicago"},
		{name: "mixed case and padding", city: "  Chicago "},
		{name: "unknown city", city: "boston", wantErr: models.ErrUnknownCity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Load(context.Background(), tt.city)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))

				var unknown *models.UnknownCityError
				require.True(t, errors.As(err, &unknown))
				assert.Equal(t, svc.Cities(), unknown.Supported)
				return
			}
			require.NoError(t, err)
			assert.Same(t, table, got)
		})
	}
}

func TestTripService_Load_UnknownCityDoesNotTouchRepository(t *testing.T) {
	repo := &fakeTripRepository{}
	svc := newTestTripService(repo)

	_, err := svc.Load(context.Background(), "paris")
	require.Error(t, err)
	assert.Equal(t, 0, repo.loads)
}

func TestTripService_Load_PropagatesParseFailure(t *testing.T) {
	repo := &fakeTripRepository{errs: map[string]error{
		"washington": &models.UnparseableTimestampError{Row: 3, Value: "yesterday"},
	}}
	svc := newTestTripService(repo)

	_, err := svc.Load(context.Background(), "washington")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnparseableTimestamp))
}

func TestTripService_Filter_DoesNotMutateInput(t *testing.T) {
	table := chicagoTable(t)
	svc := newTestTripService(&fakeTripRepository{})

	filtered := svc.Filter(context.Background(), table, models.MonthOf(1), models.AllDays)

	assert.Equal(t, 2, filtered.Len())
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, table.Schema, filtered.Schema)
}

func TestTripService_OpenSession(t *testing.T) {
	repo := &fakeTripRepository{tables: map[string]*models.Table{"chicago": chicagoTable(t)}}
	svc := newTestTripService(repo)

	session, err := svc.OpenSession(context.Background(), "Chicago", "all", "Sunday")
	require.NoError(t, err)

	assert.Equal(t, "chicago", session.City)
	assert.True(t, session.Month.IsAll())
	assert.Equal(t, "sunday", session.Day.String())
	assert.Equal(t, 3, session.Table.Len())
	for _, trip := range session.Table.Rows {
		assert.Equal(t, "Sunday", trip.DayOfWeek)
	}
	assert.Equal(t, 0, session.Paginator.Cursor())
	assert.True(t, session.Paginator.HasMore())
}

func TestTripService_OpenSession_EachCallStartsFresh(t *testing.T) {
	repo := &fakeTripRepository{tables: map[string]*models.Table{"chicago": chicagoTable(t)}}
	svc := newTestTripService(repo)

	first, err := svc.OpenSession(context.Background(), "chicago", "all", "all")
	require.NoError(t, err)
	first.Paginator.NextPage()

	second, err := svc.OpenSession(context.Background(), "chicago", "june", "all")
	require.NoError(t, err)

	assert.Equal(t, 0, second.Paginator.Cursor())
	assert.Equal(t, 1, second.Table.Len())
	assert.Equal(t, 2, repo.loads)
}

func TestTripService_OpenSession_InvalidSelectors(t *testing.T) {
	repo := &fakeTripRepository{tables: map[string]*models.Table{"chicago": chicagoTable(t)}}
	svc := newTestTripService(repo)

	_, err := svc.OpenSession(context.Background(), "chicago", "smarch", "all")
	assert.True(t, errors.Is(err, models.ErrInvalidSelector))

	_, err = svc.OpenSession(context.Background(), "chicago", "all", "caturday")
	assert.True(t, errors.Is(err, models.ErrInvalidSelector))

	assert.Equal(t, 0, repo.loads)
}
