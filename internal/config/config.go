package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"bikeshare-platform/pkg/database"
)

// EnvPrefix is the prefix of every environment variable read by LoadConfig
const EnvPrefix = "BIKESHARE"

// Data sources for trip records
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// DefaultCities maps each supported city to its trip file
var DefaultCities = map[string]string{
	"chicago":       "chicago.csv",
	"new york city": "new_york_city.csv",
	"washington":    "washington.csv",
}

// Config is the root application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Data     DataConfig     `yaml:"data"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string        `yaml:"host" split_words:"true" default:"0.0.0.0"`
	Port         int           `yaml:"port" split_words:"true" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout  time.Duration `yaml:"read_timeout" split_words:"true" default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" split_words:"true" default:"30s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" split_words:"true" default:"60s"`

	// RateLimitRPS of 0 disables rate limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps" split_words:"true" default:"50" validate:"gte=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" split_words:"true" default:"100" validate:"gte=1"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `yaml:"host" split_words:"true" default:"localhost"`
	Port            int           `yaml:"port" split_words:"true" default:"5432" validate:"gt=0,lt=65536"`
	User            string        `yaml:"user" split_words:"true" default:"bikeshare"`
	Password        string        `yaml:"password" split_words:"true"`
	Name            string        `yaml:"name" split_words:"true" default:"bikeshare"`
	SSLMode         string        `yaml:"ssl_mode" split_words:"true" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `yaml:"max_open_conns" split_words:"true" default:"10" validate:"gte=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" split_words:"true" default:"5" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" split_words:"true" default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" split_words:"true" default:"5m"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" split_words:"true" default:"info" validate:"oneof=debug info warn warning error fatal"`
}

// DataConfig selects where trip records are read from
type DataConfig struct {
	Source string            `yaml:"source" split_words:"true" default:"csv" validate:"oneof=csv postgres"`
	Dir    string            `yaml:"dir" split_words:"true" default:"./data"`
	Cities map[string]string `yaml:"cities" split_words:"true" validate:"required,min=1,dive,keys,required,endkeys,required"`
}

// LoadConfig reads configuration from BIKESHARE_* environment variables
// (e.g. BIKESHARE_SERVER_PORT, BIKESHARE_DATA_CITIES="chicago:chicago.csv") and,
// when BIKESHARE_CONFIG_FILE is set, overlays the YAML file on top.
func LoadConfig() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if len(cfg.Data.Cities) == 0 {
		cfg.Data.Cities = make(map[string]string, len(DefaultCities))
		for city, file := range DefaultCities {
			cfg.Data.Cities[city] = file
		}
	}
	cfg.Data.Cities = normalizeCities(cfg.Data.Cities)

	return &cfg, nil
}

// overlayFile decodes a YAML file over the env-populated config.
// Keys absent from the file keep their current values.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks the configuration struct tags
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Connection converts the settings into a database connection config
func (d DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Name,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// CityNames returns the configured cities in sorted order
func (c *Config) CityNames() []string {
	names := make([]string, 0, len(c.Data.Cities))
	for city := range c.Data.Cities {
		names = append(names, city)
	}
	sort.Strings(names)
	return names
}

func normalizeCities(cities map[string]string) map[string]string {
	out := make(map[string]string, len(cities))
	for city, file := range cities {
		out[strings.ToLower(strings.TrimSpace(city))] = strings.TrimSpace(file)
	}
	return out
}
