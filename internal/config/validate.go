package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const weightTolerance = 1e-6

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges and the cross-field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				if fe.Param() != "" {
					msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
					continue
				}
				msgs = append(msgs, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	sum := c.PriorityWeightProbability + c.PriorityWeightAmount + c.PriorityWeightDays
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: %w, got %.4f", ErrInvalidConfig, ErrPriorityWeights, sum)
	}
	if c.ActivityBoundaryDays >= c.InactivityThresholdDays {
		return fmt.Errorf("%w: %w: activity_boundary_days=%d, inactivity_threshold_days=%d",
			ErrInvalidConfig, ErrActivityWindow, c.ActivityBoundaryDays, c.InactivityThresholdDays)
	}
	return nil
}
