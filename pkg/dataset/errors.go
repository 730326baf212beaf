package dataset

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is
var (
	// ErrInsufficientData is returned when labels are missing or too short
	ErrInsufficientData = errors.New("insufficient data")

	// ErrEmptyDatabase is returned when the dataset was never populated or has no records
	ErrEmptyDatabase = errors.New("empty database")

	// ErrWrongSize is returned when bulk values do not match the record count
	ErrWrongSize = errors.New("wrong size")

	// ErrInvalidRange is returned for conversion ranges outside the stored ids
	ErrInvalidRange = errors.New("invalid id range")
)

// InsufficientDataError describes the missing item
type InsufficientDataError struct {
	What string
	Path string
}

func (e *InsufficientDataError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("insufficient data: %s", e.What)
	}
	return fmt.Sprintf("insufficient data: %s (%s)", e.What, e.Path)
}

// Unwrap returns ErrInsufficientData
func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// EmptyDatabaseError names the operation attempted against an empty dataset
type EmptyDatabaseError struct {
	Op   string
	Path string
}

func (e *EmptyDatabaseError) Error() string {
	return fmt.Sprintf("empty database: %s on %s; run Prepopulate first", e.Op, e.Path)
}

// Unwrap returns ErrEmptyDatabase
func (e *EmptyDatabaseError) Unwrap() error {
	return ErrEmptyDatabase
}

// WrongSizeError reports a length mismatch between supplied values and records
type WrongSizeError struct {
	Op   string
	Want int64
	Got  int64
}

func (e *WrongSizeError) Error() string {
	return fmt.Sprintf("wrong size: %s got %d values for %d records", e.Op, e.Got, e.Want)
}

// Unwrap returns ErrWrongSize
func (e *WrongSizeError) Unwrap() error {
	return ErrWrongSize
}
