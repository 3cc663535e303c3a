package churn

import "errors"

// Sentinel errors for this package. These allow errors.Is/As from callers.
var (
	// ErrSchemaDrift marks artifacts that do not agree on the feature layout.
	// It is a fatal load error.
	ErrSchemaDrift = errors.New("model artifact schema drift")
	// ErrScorerUnavailable is returned when a scorer cannot produce output.
	ErrScorerUnavailable = errors.New("churn scorer unavailable")
	// ErrInvalidData is returned when the input fails the quality check.
	ErrInvalidData = errors.New("invalid scoring input")
	// ErrUnsupportedModel is returned for unknown classifier types.
	ErrUnsupportedModel = errors.New("unsupported classifier type")
	// ErrDimension is returned when a feature matrix has the wrong width.
	ErrDimension = errors.New("feature dimension mismatch")
)
