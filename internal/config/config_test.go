package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, SourceCSV, cfg.Data.Source)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"chicago", "new york city", "washington"}, cfg.CityNames())
	assert.Equal(t, "new_york_city.csv", cfg.Data.Cities["new york city"])
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("BIKESHARE_SERVER_PORT", "9090")
	t.Setenv("BIKESHARE_DATA_SOURCE", "postgres")
	t.Setenv("BIKESHARE_DATABASE_NAME", "trips")
	t.Setenv("BIKESHARE_DATA_CITIES", "Chicago:chi.csv,Boston:bos.csv")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, SourcePostgres, cfg.Data.Source)
	assert.Equal(t, "trips", cfg.Database.Name)
	assert.Equal(t, []string{"boston", "chicago"}, cfg.CityNames())
	assert.Equal(t, "chi.csv", cfg.Data.Cities["chicago"])
}

func TestLoadConfig_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
  read_timeout: 3s
data:
  dir: /srv/bikeshare
logging:
  level: debug
`), 0o600))
	t.Setenv("BIKESHARE_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/srv/bikeshare", cfg.Data.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout, "keys absent from the file keep env defaults")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("BIKESHARE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yml"))

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Data.Source = "s3" }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"no cities", func(c *Config) { c.Data.Cities = map[string]string{} }},
		{"empty file name", func(c *Config) { c.Data.Cities = map[string]string{"chicago": ""} }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDatabaseConfig_Connection(t *testing.T) {
	t.Setenv("BIKESHARE_DATABASE_NAME", "trips")
	t.Setenv("BIKESHARE_DATABASE_HOST", "db.internal")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	conn := cfg.Database.Connection()
	assert.Equal(t, "trips", conn.Database)
	assert.Equal(t, "db.internal", conn.Host)
	assert.Equal(t, 5432, conn.Port)
	assert.Contains(t, conn.DSN(), "dbname=trips")
}
