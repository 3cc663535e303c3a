package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrNoSnapshot   = errors.New("no dataset published")
	ErrNilDataset   = errors.New("nil dataset")
)
