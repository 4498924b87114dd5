package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

func newMockDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock, *metrics.Collector) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	collector := metrics.NewCollectorWith("bikeshare_test", prometheus.NewRegistry())
	db := Wrap(sqlx.NewDb(conn, "postgres"), &Config{Database: "bikeshare"}, logging.Discard(), collector)
	return db, mock, collector
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Host: "db", Port: 5432, User: "u", Password: "p", Database: "bikeshare", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=bikeshare sslmode=disable", cfg.DSN())
}

func TestPostgresDB_SelectContext(t *testing.T) {
	db, mock, _ := newMockDB(t)

	mock.ExpectQuery("SELECT city FROM city_datasets").
		WillReturnRows(sqlmock.NewRows([]string{"city"}).AddRow("chicago").AddRow("washington"))

	var cities []string
	err := db.SelectContext(context.Background(), "list_cities", &cities, "SELECT city FROM city_datasets")
	require.NoError(t, err)
	assert.Equal(t, []string{"chicago", "washington"}, cities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDB_SelectContextRecordsError(t *testing.T) {
	db, mock, collector := newMockDB(t)

	mock.ExpectQuery("SELECT city").WillReturnError(errors.New("connection reset"))

	var cities []string
	err := db.SelectContext(context.Background(), "list_cities", &cities, "SELECT city FROM city_datasets")
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.DBErrorsTotal.WithLabelValues("select_error")))
}

func TestPostgresDB_HealthCheck(t *testing.T) {
	db, mock, _ := newMockDB(t)

	mock.ExpectPing()
	assert.NoError(t, db.HealthCheck(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("down"))
	assert.Error(t, db.HealthCheck(context.Background()))
}

func TestPostgresDB_GetContextNoRowsIsNotAnError(t *testing.T) {
	db, mock, collector := newMockDB(t)

	mock.ExpectQuery("SELECT row_count").WithArgs("boston").
		WillReturnRows(sqlmock.NewRows([]string{"row_count"}))

	var count int
	err := db.GetContext(context.Background(), "get_row_count", &count,
		"SELECT row_count FROM city_datasets WHERE city = $1", "boston")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.DBErrorsTotal.WithLabelValues("get_error")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.DBQueryDuration))
}

func TestPostgresDB_ExecContext(t *testing.T) {
	db, mock, collector := newMockDB(t)

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	_, err := db.ExecContext(context.Background(), "migration", "CREATE TABLE city_datasets (city TEXT)")
	require.NoError(t, err)

	mock.ExpectExec("DROP TABLE").WillReturnError(errors.New("permission denied"))
	_, err = db.ExecContext(context.Background(), "migration", "DROP TABLE city_datasets")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.DBErrorsTotal.WithLabelValues("exec_error")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDB_CloseStopsMonitor(t *testing.T) {
	db, mock, collector := newMockDB(t)
	db.config.MaxOpenConns = 1

	stopped := make(chan struct{})
	go func() {
		db.monitorConnectionPool(time.Millisecond)
		close(stopped)
	}()

	mock.ExpectClose()
	require.NoError(t, db.Close())

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("pool monitor still running after Close")
	}

	db.recordPoolStats()
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.DBConnectionPool.WithLabelValues("in_use")))
}
