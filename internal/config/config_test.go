package config_test

import (
	"errors"
	"testing"

	"github.com/okian/churnlens/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.InactivityThresholdDays, convey.ShouldEqual, 42)
			convey.So(cfg.ActivityBoundaryDays, convey.ShouldEqual, 30)
			convey.So(cfg.MLThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.BayesianConfidence, convey.ShouldEqual, 10)
			convey.So(cfg.DefaultGlobalRate, convey.ShouldEqual, 48)
			convey.So(cfg.QueryCacheSize, convey.ShouldEqual, 256)
			convey.So(cfg.MaxExportRows, convey.ShouldEqual, 100_000)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with out-of-range fields", t, func() {
		convey.Convey("When the log level is unknown", func() {
			cfg := config.New()
			cfg.LogLevel = "verbose"
			err := cfg.Validate()

			convey.Convey("Then the error names the koanf key", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "log_level")
			})
		})

		convey.Convey("When the ML threshold is outside (0,1)", func() {
			cfg := config.New()
			cfg.MLThreshold = 1
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the priority weights do not sum to one", func() {
			cfg := config.New()
			cfg.PriorityWeightDays = 0.5
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, config.ErrPriorityWeights), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "got 1.3000")
		})

		convey.Convey("When the activity boundary is not below the threshold", func() {
			cfg := config.New()
			cfg.ActivityBoundaryDays = 42
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, config.ErrActivityWindow), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "activity_boundary_days=42")
		})

		convey.Convey("When a required input path is empty", func() {
			cfg := config.New()
			cfg.ChurnCSV = ""
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "churn_csv")
		})

		convey.Convey("When the optional inputs are empty", func() {
			cfg := config.New()
			cfg.BaseCSV = ""
			cfg.ModelDir = ""
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
