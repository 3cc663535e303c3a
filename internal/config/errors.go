package config

import "errors"

// ErrLoadConfig wraps failures reading the .env file, the YAML file or the
// environment. ErrInvalidConfig wraps every validation failure; the
// narrower kinds below wrap it too.
var (
	ErrLoadConfig    = errors.New("load config failed")
	ErrInvalidConfig = errors.New("invalid config")

	ErrPriorityWeights = errors.New("priority weights must sum to 1")
	ErrActivityWindow  = errors.New("activity boundary must be below the inactivity threshold")
)
