// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers .env, YAML and CHURN_* environment variables over defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// Input tables. Calls, agents and churn are required; base and
	// transactions are optional enrichment.
	CallsCSV        string `koanf:"calls_csv" validate:"required"`
	AgentsCSV       string `koanf:"agents_csv" validate:"required"`
	ChurnCSV        string `koanf:"churn_csv" validate:"required"`
	BaseCSV         string `koanf:"base_csv"`
	TransactionsCSV string `koanf:"transactions_csv"`

	// ModelDir holds the churn model artifacts. Empty or missing means the
	// heuristic scorer is used.
	ModelDir string `koanf:"model_dir"`

	// InactivityThresholdDays is the churn cut-off T.
	InactivityThresholdDays int `koanf:"inactivity_threshold_days" validate:"gt=0"`

	// ActivityBoundaryDays separates Activo from En Riesgo.
	ActivityBoundaryDays int `koanf:"activity_boundary_days" validate:"gt=0"`

	// MLThreshold is the probability cut-off reported with ML predictions.
	MLThreshold float64 `koanf:"ml_threshold" validate:"gt=0,lt=1"`

	// BayesianConfidence is the pseudo-count k of the agent ranker.
	BayesianConfidence float64 `koanf:"bayesian_confidence" validate:"gte=0"`

	// DefaultGlobalRate is the team win rate prior, in percent, used when
	// the team has no cases.
	DefaultGlobalRate float64 `koanf:"default_global_rate" validate:"gte=0,lte=100"`

	// Priority score weights; they must sum to 1.
	PriorityWeightProbability float64 `koanf:"priority_weight_probability" validate:"gte=0,lte=1"`
	PriorityWeightAmount      float64 `koanf:"priority_weight_amount" validate:"gte=0,lte=1"`
	PriorityWeightDays        float64 `koanf:"priority_weight_days" validate:"gte=0,lte=1"`

	// QueryCacheSize bounds the filtered-customer cache. 0 disables it.
	QueryCacheSize int `koanf:"query_cache_size" validate:"gte=0"`

	// ReloadIntervalSec re-reads the inputs periodically. 0 disables it.
	ReloadIntervalSec int `koanf:"reload_interval_sec" validate:"gte=0"`

	// MinRecords is the row count below which a table draws a warning.
	MinRecords int `koanf:"min_records" validate:"gte=0"`

	// MaxExportRows caps CSV exports.
	MaxExportRows int `koanf:"max_export_rows" validate:"gt=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                  "info",
		LogFormat:                 "text",
		Addr:                      ":9080",
		CallsCSV:                  "data/llamadas.csv",
		AgentsCSV:                 "data/agentes.csv",
		ChurnCSV:                  "data/churn.csv",
		BaseCSV:                   "data/base.csv",
		ModelDir:                  "models",
		InactivityThresholdDays:   42,
		ActivityBoundaryDays:      30,
		MLThreshold:               0.5,
		BayesianConfidence:        10,
		DefaultGlobalRate:         48,
		PriorityWeightProbability: 0.4,
		PriorityWeightAmount:      0.4,
		PriorityWeightDays:        0.2,
		QueryCacheSize:            256,
		ReloadIntervalSec:         0,
		MinRecords:                10,
		MaxExportRows:             100_000,
	}
}
