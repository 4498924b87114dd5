package models

import (
	"strconv"
	"strings"
	"time"
)

// TripRecord represents a single bike-share trip with its derived calendar fields.
// Optional columns are pointers; nil means the value is missing for the row.
type TripRecord struct {
	StartTime    time.Time `json:"start_time" db:"start_time"`
	EndTime      time.Time `json:"end_time" db:"end_time"`
	TripDuration float64   `json:"trip_duration" db:"trip_duration"`
	StartStation string    `json:"start_station" db:"start_station"`
	EndStation   string    `json:"end_station" db:"end_station"`
	UserType     string    `json:"user_type" db:"user_type"`
	Gender       *string   `json:"gender,omitempty" db:"gender"`
	BirthYear    *int      `json:"birth_year,omitempty" db:"birth_year"`

	// Derived from StartTime once, at load time.
	Month      int    `json:"month" db:"-"`
	DayOfMonth int    `json:"day_of_month" db:"-"`
	DayOfWeek  string `json:"day_of_week" db:"-"`
	StartHour  int    `json:"start_hour" db:"-"`
}

// DeriveFields populates the calendar fields from StartTime.
func (t *TripRecord) DeriveFields() {
	t.Month = int(t.StartTime.Month())
	t.DayOfMonth = t.StartTime.Day()
	t.DayOfWeek = t.StartTime.Weekday().String()
	t.StartHour = t.StartTime.Hour()
}

// RawTripRecord represents a single row from a city's trip source before parsing.
// Gender and BirthYear are empty strings when the column is absent or blank.
type RawTripRecord struct {
	StartTime    string
	EndTime      string
	TripDuration string
	StartStation string
	EndStation   string
	UserType     string
	Gender       string
	BirthYear    string
}

// timestampLayouts are tried in order when parsing trip timestamps
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04",
}

// ParseTimestamp parses a trip timestamp in any of the accepted source layouts
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ToTrip converts RawTripRecord to TripRecord and derives the calendar fields.
// row is the zero-based source row used in error reports.
func (r *RawTripRecord) ToTrip(row int) (*TripRecord, error) {
	start, ok := ParseTimestamp(r.StartTime)
	if !ok {
		return nil, &UnparseableTimestampError{Row: row, Value: r.StartTime}
	}

	end, ok := ParseTimestamp(r.EndTime)
	if !ok {
		return nil, &ValidationError{
			Row:     row,
			Field:   "end_time",
			Value:   r.EndTime,
			Message: "invalid end time",
		}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(r.TripDuration), 64)
	if err != nil || duration < 0 {
		return nil, &ValidationError{
			Row:     row,
			Field:   "trip_duration",
			Value:   r.TripDuration,
			Message: "trip duration must be a non-negative number of seconds",
		}
	}

	trip := &TripRecord{
		StartTime:    start,
		EndTime:      end,
		TripDuration: duration,
		StartStation: strings.TrimSpace(r.StartStation),
		EndStation:   strings.TrimSpace(r.EndStation),
		UserType:     strings.TrimSpace(r.UserType),
	}

	if trip.StartStation == "" || trip.EndStation == "" {
		return nil, &ValidationError{
			Row:     row,
			Field:   "station",
			Value:   r.StartStation + " -> " + r.EndStation,
			Message: "start and end station must be present",
		}
	}

	if gender := strings.TrimSpace(r.Gender); gender != "" {
		trip.Gender = &gender
	}

	// Birth years are exported as floats by some sources ("1992.0")
	if by := strings.TrimSpace(r.BirthYear); by != "" {
		year, err := strconv.ParseFloat(by, 64)
		if err != nil {
			return nil, &ValidationError{
				Row:     row,
				Field:   "birth_year",
				Value:   r.BirthYear,
				Message: "invalid birth year",
			}
		}
		y := int(year)
		trip.BirthYear = &y
	}

	trip.DeriveFields()
	return trip, nil
}

// Schema is the set of optional columns available in a loaded city dataset.
// It is detected once per table from the source header, never per row.
type Schema struct {
	HasGender    bool `json:"has_gender" db:"has_gender"`
	HasBirthYear bool `json:"has_birth_year" db:"has_birth_year"`
}

// CityDataset describes one ingested city in the trip store
type CityDataset struct {
	City       string `json:"city" db:"city"`
	SourceFile string `json:"source_file" db:"source_file"`
	RowCount   int    `json:"row_count" db:"row_count"`
	Schema     `json:"schema"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
