package service

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrLoad marks a fatal load failure: a required table or a model
	// artifact is missing or unusable.
	ErrLoad = errors.New("dataset load failed")
	// ErrNotStarted is returned by queries before Start succeeded.
	ErrNotStarted = errors.New("service not started")
)
