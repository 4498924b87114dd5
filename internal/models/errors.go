package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is checks across layers
var (
	ErrUnknownCity          = errors.New("unknown city")
	ErrUnparseableTimestamp = errors.New("unparseable timestamp")
	ErrEmptyDataset         = errors.New("empty dataset")
	ErrInvalidSelector      = errors.New("invalid selector")
)

// UnknownCityError is returned when a city is not in the supported set
type UnknownCityError struct {
	City      string
	Supported []string
}

func (e *UnknownCityError) Error() string {
	return fmt.Sprintf("unknown city %q (supported: %s)", e.City, strings.Join(e.Supported, ", "))
}

func (e *UnknownCityError) Is(target error) bool {
	return target == ErrUnknownCity
}

// UnparseableTimestampError aborts the load of a city
type UnparseableTimestampError struct {
	Row   int
	Value string
}

func (e *UnparseableTimestampError) Error() string {
	return fmt.Sprintf("row %d: cannot parse start time %q", e.Row, e.Value)
}

func (e *UnparseableTimestampError) Is(target error) bool {
	return target == ErrUnparseableTimestamp
}

// EmptyDatasetError is returned by statistics that need at least one row
type EmptyDatasetError struct {
	Statistic string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s: no trips match the selected filters", e.Statistic)
}

func (e *EmptyDatasetError) Is(target error) bool {
	return target == ErrEmptyDataset
}

// ValidationError represents a data validation error
type ValidationError struct {
	Row     int
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s: %s (%q)", e.Row, e.Field, e.Message, e.Value)
}
