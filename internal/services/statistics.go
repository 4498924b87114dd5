package services

import (
	"fmt"
	"math"

	"bikeshare-platform/internal/models"
)

// Statistic section names, used in reports, metrics and the HTTP API
const (
	SectionTime     = "time"
	SectionStations = "stations"
	SectionDuration = "duration"
	SectionUsers    = "users"
)

// Sections lists every statistics section in report order
var Sections = []string{SectionTime, SectionStations, SectionDuration, SectionUsers}

// TimeStats holds the most frequent times of travel
type TimeStats struct {
	MostCommonMonth int    `json:"most_common_month"`
	MonthName       string `json:"month_name"`
	MostCommonDay   string `json:"most_common_day"`
	MostCommonHour  int    `json:"most_common_hour"`
	HourLabel       string `json:"hour_label"`
}

// StationPair is a (start, end) station combination
type StationPair struct {
	StartStation string `json:"start_station"`
	EndStation   string `json:"end_station"`
}

// StationStats holds the most popular stations and trip
type StationStats struct {
	MostCommonStartStation string      `json:"most_common_start_station"`
	StartStationCount      int         `json:"start_station_count"`
	MostCommonEndStation   string      `json:"most_common_end_station"`
	EndStationCount        int         `json:"end_station_count"`
	MostCommonTrip         StationPair `json:"most_common_trip"`
	TripCount              int         `json:"trip_count"`
}

// TotalBreakdown splits a number of seconds into days, hours, minutes and seconds
type TotalBreakdown struct {
	Days    int64   `json:"days"`
	Hours   int64   `json:"hours"`
	Minutes int64   `json:"minutes"`
	Seconds float64 `json:"seconds"`
}

// MeanBreakdown splits a number of seconds into minutes and seconds
type MeanBreakdown struct {
	Minutes int64   `json:"minutes"`
	Seconds float64 `json:"seconds"`
}

// DurationStats holds total and mean trip duration
type DurationStats struct {
	TripCount    int            `json:"trip_count"`
	TotalSeconds float64        `json:"total_seconds"`
	MeanSeconds  float64        `json:"mean_seconds"`
	Total        TotalBreakdown `json:"total"`
	Mean         MeanBreakdown  `json:"mean"`
}

// BirthYearStats holds earliest, most recent and most common birth year
type BirthYearStats struct {
	Earliest   int `json:"earliest"`
	MostRecent int `json:"most_recent"`
	MostCommon int `json:"most_common"`
}

// UserStats holds rider demographics. Genders and BirthYears are nil when the
// city's schema does not carry those columns.
type UserStats struct {
	UserTypes  []ValueCount    `json:"user_types"`
	Genders    []ValueCount    `json:"genders,omitempty"`
	BirthYears *BirthYearStats `json:"birth_years,omitempty"`
}

// ComputeTimeStats returns the most common month, day of week and start hour
func ComputeTimeStats(table *models.Table) (*TimeStats, error) {
	if table.IsEmpty() {
		return nil, &models.EmptyDatasetError{Statistic: SectionTime}
	}

	months := newFrequency[int]()
	days := newFrequency[string]()
	hours := newFrequency[int]()
	for _, trip := range table.Rows {
		months.add(trip.Month)
		days.add(trip.DayOfWeek)
		hours.add(trip.StartHour)
	}

	month, _, _ := months.mode()
	day, _, _ := days.mode()
	hour, _, _ := hours.mode()

	return &TimeStats{
		MostCommonMonth: month,
		MonthName:       models.MonthName(month),
		MostCommonDay:   day,
		MostCommonHour:  hour,
		HourLabel:       fmt.Sprintf("%02d:00", hour),
	}, nil
}

// ComputeStationStats returns the most popular start station, end station and
// (start, end) combination, all counted in a single pass over table.
func ComputeStationStats(table *models.Table) (*StationStats, error) {
	if table.IsEmpty() {
		return nil, &models.EmptyDatasetError{Statistic: SectionStations}
	}

	starts := newFrequency[string]()
	ends := newFrequency[string]()
	pairs := newFrequency[StationPair]()
	for _, trip := range table.Rows {
		starts.add(trip.StartStation)
		ends.add(trip.EndStation)
		pairs.add(StationPair{StartStation: trip.StartStation, EndStation: trip.EndStation})
	}

	start, startCount, _ := starts.mode()
	end, endCount, _ := ends.mode()
	pair, pairCount, _ := pairs.mode()

	return &StationStats{
		MostCommonStartStation: start,
		StartStationCount:      startCount,
		MostCommonEndStation:   end,
		EndStationCount:        endCount,
		MostCommonTrip:         pair,
		TripCount:              pairCount,
	}, nil
}

// ComputeDurationStats returns total and mean trip duration. An empty table
// yields zero totals and a zero mean.
func ComputeDurationStats(table *models.Table) *DurationStats {
	stats := &DurationStats{TripCount: table.Len()}
	for _, trip := range table.Rows {
		stats.TotalSeconds += trip.TripDuration
	}
	if stats.TripCount > 0 {
		stats.MeanSeconds = stats.TotalSeconds / float64(stats.TripCount)
	}

	stats.Total = breakdownTotal(stats.TotalSeconds)
	stats.Mean = breakdownMean(stats.MeanSeconds)
	return stats
}

func breakdownTotal(seconds float64) TotalBreakdown {
	days := math.Floor(seconds / 86400)
	remaining := seconds - days*86400
	hours := math.Floor(remaining / 3600)
	remaining -= hours * 3600
	minutes := math.Floor(remaining / 60)
	remaining -= minutes * 60

	return TotalBreakdown{
		Days:    int64(days),
		Hours:   int64(hours),
		Minutes: int64(minutes),
		Seconds: remaining,
	}
}

func breakdownMean(seconds float64) MeanBreakdown {
	minutes := math.Floor(seconds / 60)
	return MeanBreakdown{
		Minutes: int64(minutes),
		Seconds: seconds - minutes*60,
	}
}

// ComputeUserStats returns the user type breakdown and, when the schema has the
// columns, gender counts and birth year statistics.
func ComputeUserStats(table *models.Table) *UserStats {
	userTypes := newFrequency[string]()
	genders := newFrequency[string]()
	years := newFrequency[int]()
	earliest, mostRecent := 0, 0

	for _, trip := range table.Rows {
		if trip.UserType != "" {
			userTypes.add(trip.UserType)
		}
		if table.Schema.HasGender && trip.Gender != nil {
			genders.add(*trip.Gender)
		}
		if table.Schema.HasBirthYear && trip.BirthYear != nil {
			year := *trip.BirthYear
			if years.len() == 0 || year < earliest {
				earliest = year
			}
			if years.len() == 0 || year > mostRecent {
				mostRecent = year
			}
			years.add(year)
		}
	}

	stats := &UserStats{UserTypes: rankedCounts(userTypes)}
	if table.Schema.HasGender {
		stats.Genders = rankedCounts(genders)
	}
	if common, _, ok := years.mode(); ok {
		stats.BirthYears = &BirthYearStats{
			Earliest:   earliest,
			MostRecent: mostRecent,
			MostCommon: common,
		}
	}
	return stats
}
