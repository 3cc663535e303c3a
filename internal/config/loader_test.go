package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/churnlens/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.InactivityThresholdDays, convey.ShouldEqual, 42)
				convey.So(cfg.PriorityWeightProbability, convey.ShouldEqual, 0.4)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("CHURN_ADDR", ":8080")
			_ = os.Setenv("CHURN_CHURN_CSV", "/data/churn.csv")
			_ = os.Setenv("CHURN_INACTIVITY_THRESHOLD_DAYS", "60")
			_ = os.Setenv("CHURN_ML_THRESHOLD", "0.35")
			_ = os.Setenv("CHURN_QUERY_CACHE_SIZE", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.ChurnCSV, convey.ShouldEqual, "/data/churn.csv")
				convey.So(cfg.InactivityThresholdDays, convey.ShouldEqual, 60)
				convey.So(cfg.MLThreshold, convey.ShouldEqual, 0.35)
				convey.So(cfg.QueryCacheSize, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
# inputs
addr: ":9090"
calls_csv: "in/calls.csv"
base_csv: ""
bayesian_confidence: 25
priority_weight_probability: 0.5
priority_weight_amount: 0.3
priority_weight_days: 0.2
`
			tmpFile := createTempFile("churn-config-*.yaml", yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CHURN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge the file with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.CallsCSV, convey.ShouldEqual, "in/calls.csv")
				convey.So(cfg.BaseCSV, convey.ShouldEqual, "")
				convey.So(cfg.BayesianConfidence, convey.ShouldEqual, 25)
				convey.So(cfg.PriorityWeightAmount, convey.ShouldEqual, 0.3)
				convey.So(cfg.AgentsCSV, convey.ShouldEqual, "data/agentes.csv")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
min_records: 50
`
			tmpFile := createTempFile("churn-config-*.yaml", yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CHURN_CONFIG", tmpFile)
			_ = os.Setenv("CHURN_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MinRecords, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When loading config with a .env file", func() {
			tmpFile := createTempFile("churn-*.env", "CHURN_MODEL_DIR=/srv/models\nCHURN_LOG_FORMAT=json\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CHURN_ENV_FILE", tmpFile)
			_ = os.Setenv("CHURN_LOG_FORMAT", "text")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fill unset variables only", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ModelDir, convey.ShouldEqual, "/srv/models")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempFile("churn-config-*.yaml", `invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("CHURN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("CHURN_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a missing .env file", func() {
			_ = os.Setenv("CHURN_ENV_FILE", "/non/existent/.env")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("CHURN_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("CHURN_MIN_RECORDS", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When env weights break the sum", func() {
			_ = os.Setenv("CHURN_PRIORITY_WEIGHT_DAYS", "0.9")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects the config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"CHURN_CONFIG",
		"CHURN_ENV_FILE",
		"CHURN_ADDR",
		"CHURN_CHURN_CSV",
		"CHURN_MODEL_DIR",
		"CHURN_LOG_FORMAT",
		"CHURN_INACTIVITY_THRESHOLD_DAYS",
		"CHURN_ML_THRESHOLD",
		"CHURN_QUERY_CACHE_SIZE",
		"CHURN_MIN_RECORDS",
		"CHURN_PRIORITY_WEIGHT_DAYS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempFile(pattern, content string) string {
	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
