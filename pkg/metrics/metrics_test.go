package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordsOnIsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectorWith("bikeshare_test", reg)

	c.RecordLoadError("unknown_city")
	c.RecordLoadError("unknown_city")
	c.RecordEmptyDataset("time")
	c.RecordAPIRequest("/api/cities", "GET", "200")
	c.LoadRowsTotal.WithLabelValues("chicago").Add(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.LoadErrorsTotal.WithLabelValues("unknown_city")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StatsEmptyDatasetTotal.WithLabelValues("time")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.LoadRowsTotal.WithLabelValues("chicago")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestCollector_TwoRegistriesDoNotConflict(t *testing.T) {
	assert.NotPanics(t, func() {
		NewCollectorWith("bikeshare_test", prometheus.NewRegistry())
		NewCollectorWith("bikeshare_test", prometheus.NewRegistry())
	})
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := NewCollectorWith("bikeshare_test", prometheus.NewRegistry())

	timer := c.NewTimer(c.StatsCalculationDuration.WithLabelValues("duration"))
	d := timer.ObserveDuration()

	assert.GreaterOrEqual(t, d.Nanoseconds(), int64(0))
	assert.Equal(t, 1, testutil.CollectAndCount(c.StatsCalculationDuration))
}
