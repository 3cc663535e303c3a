package segment

import "errors"

// Sentinel errors for this package.
var (
	ErrUnknownLabel = errors.New("unknown label")
)
