package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare-platform/internal/repository"
	"bikeshare-platform/internal/services"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

const chicagoCSV = `,Start Time,End Time,Trip Duration,Start Station,End Station,User Type,Gender,Birth Year
1,2017-06-23 15:09:32,2017-06-23 15:14:53,321,Wood St & Hubbard St,Damen Ave & Chicago Ave,Subscriber,Male,1992.0
2,2017-06-02 09:00:00,2017-06-02 09:10:00,600,Wood St & Hubbard St,Damen Ave & Chicago Ave,Customer,,
3,2017-01-04 08:27:49,2017-01-04 08:34:45,416,May St & Taylor St,Wood St & Taylor St,Subscriber,Female,1981.0
`

func newServices(t *testing.T) (*services.TripService, *services.StatisticsService) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chicago.csv"), []byte(chicagoCSV), 0o600))

	cities := map[string]string{"chicago": "chicago.csv", "washington": "washington.csv"}
	logger := logging.Discard()
	collector := metrics.NewCollectorWith("bikeshare_test", prometheus.NewRegistry())
	repo := repository.NewCSVTripRepository(dir, cities, logger)
	return services.NewTripService(repo, cities, logger, collector), services.NewStatisticsService(logger, collector)
}

func TestBuildReports(t *testing.T) {
	trips, stats := newServices(t)

	reports := buildReports(context.Background(), trips, stats, "june", "all", 2)

	require.Contains(t, reports, "chicago")
	chicago := reports["chicago"]
	require.NotNil(t, chicago.Report)
	assert.Equal(t, 2, chicago.Report.TripCount)
	assert.Equal(t, 1, chicago.MissingGender)
	assert.Equal(t, 1, chicago.MissingBirthYear)

	require.Contains(t, reports, "washington")
	assert.Nil(t, reports["washington"].Report)
	assert.NotEmpty(t, reports["washington"].Error)
}

func TestPrintReports(t *testing.T) {
	trips, stats := newServices(t)
	reports := buildReports(context.Background(), trips, stats, "all", "all", 1)

	var buf bytes.Buffer
	printReports(&buf, trips.Cities(), reports)
	out := buf.String()

	assert.Contains(t, out, "City: chicago")
	assert.Contains(t, out, "Trips:  3")
	assert.Contains(t, out, "Top trip: Wood St & Hubbard St -> Damen Ave & Chicago Ave (2)")
	assert.Contains(t, out, "User types: Subscriber=2, Customer=1")
	assert.Contains(t, out, "Load failed:")
	assert.Contains(t, out, "Cities loaded: 1/2")
	assert.NotContains(t, out, "Matching trips")
}
