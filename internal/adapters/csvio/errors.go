package csvio

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrMissingFile is returned when an input file does not exist.
	ErrMissingFile = errors.New("input file not found")
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("required column missing")
	// ErrEmptyFile is returned when a file has no header or no data rows.
	ErrEmptyFile = errors.New("input file is empty")
	// ErrMalformed is returned when the file cannot be parsed as CSV.
	ErrMalformed = errors.New("malformed csv")
)
