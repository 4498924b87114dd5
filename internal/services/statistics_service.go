package services

import (
	"context"
	"errors"
	"time"

	"bikeshare-platform/internal/models"
	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

// StatisticsService computes the statistics sections over filtered tables
type StatisticsService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Report holds every statistics section for one session. A section that could
// not be computed is nil and its error message is kept in Errors.
type Report struct {
	City      string            `json:"city"`
	Month     string            `json:"month"`
	Day       string            `json:"day"`
	TripCount int               `json:"trip_count"`
	Time      *TimeStats        `json:"time,omitempty"`
	Stations  *StationStats     `json:"stations,omitempty"`
	Duration  *DurationStats    `json:"duration,omitempty"`
	Users     *UserStats        `json:"users,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Timings   map[string]string `json:"timings"`
}

// TimeStats computes the most frequent times of travel
func (s *StatisticsService) TimeStats(ctx context.Context, table *models.Table) (*TimeStats, time.Duration, error) {
	var stats *TimeStats
	elapsed, err := s.observe(ctx, SectionTime, table, func() error {
		var err error
		stats, err = ComputeTimeStats(table)
		return err
	})
	return stats, elapsed, err
}

// StationStats computes the most popular stations and trip
func (s *StatisticsService) StationStats(ctx context.Context, table *models.Table) (*StationStats, time.Duration, error) {
	var stats *StationStats
	elapsed, err := s.observe(ctx, SectionStations, table, func() error {
		var err error
		stats, err = ComputeStationStats(table)
		return err
	})
	return stats, elapsed, err
}

// DurationStats computes total and mean trip duration
func (s *StatisticsService) DurationStats(ctx context.Context, table *models.Table) (*DurationStats, time.Duration) {
	var stats *DurationStats
	elapsed, _ := s.observe(ctx, SectionDuration, table, func() error {
		stats = ComputeDurationStats(table)
		return nil
	})
	return stats, elapsed
}

// UserStats computes rider demographics
func (s *StatisticsService) UserStats(ctx context.Context, table *models.Table) (*UserStats, time.Duration) {
	var stats *UserStats
	elapsed, _ := s.observe(ctx, SectionUsers, table, func() error {
		stats = ComputeUserStats(table)
		return nil
	})
	return stats, elapsed
}

// Report computes every section independently; one failing section does not
// stop the others.
func (s *StatisticsService) Report(ctx context.Context, session *Session) *Report {
	table := session.Table
	report := &Report{
		City:      session.City,
		Month:     session.Month.String(),
		Day:       session.Day.String(),
		TripCount: table.Len(),
		Errors:    make(map[string]string),
		Timings:   make(map[string]string),
	}

	var elapsed time.Duration
	var err error

	if report.Time, elapsed, err = s.TimeStats(ctx, table); err != nil {
		report.Errors[SectionTime] = err.Error()
	}
	report.Timings[SectionTime] = elapsed.String()

	if report.Stations, elapsed, err = s.StationStats(ctx, table); err != nil {
		report.Errors[SectionStations] = err.Error()
	}
	report.Timings[SectionStations] = elapsed.String()

	report.Duration, elapsed = s.DurationStats(ctx, table)
	report.Timings[SectionDuration] = elapsed.String()

	report.Users, elapsed = s.UserStats(ctx, table)
	report.Timings[SectionUsers] = elapsed.String()

	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	return report
}

// observe runs one section computation with timing, metrics and logging
func (s *StatisticsService) observe(ctx context.Context, section string, table *models.Table, compute func() error) (time.Duration, error) {
	timer := s.metrics.NewTimer(s.metrics.StatsCalculationDuration.WithLabelValues(section))
	err := compute()
	elapsed := timer.ObserveDuration()

	if errors.Is(err, models.ErrEmptyDataset) {
		s.metrics.RecordEmptyDataset(section)
		s.logger.Warn(ctx, "[STATS_EMPTY] No trips for statistics section", logging.Fields{
			"section": section,
			"city":    table.City,
		})
		return elapsed, err
	}
	if err != nil {
		s.logger.Error(ctx, "[STATS_CALC_ERROR] Failed to calculate statistics", logging.Fields{
			"section": section,
		}, err)
		return elapsed, err
	}

	s.logger.Debug(ctx, "[STATS_CALC_COMPLETE] Statistics section calculated", logging.Fields{
		"section":     section,
		"rows":        table.Len(),
		"duration_ms": elapsed.Milliseconds(),
	})
	return elapsed, nil
}
