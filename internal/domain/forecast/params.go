package forecast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors for this package.
var (
	ErrInvalidParams = errors.New("invalid forecast parameters")
	ErrEmptyHistory  = errors.New("empty history")
)

// Scenario dampens or amplifies the projected trend.
type Scenario string

const (
	Conservador Scenario = "Conservador"
	Moderado    Scenario = "Moderado"
	Optimista   Scenario = "Optimista"
)

// Factor returns the trend multiplier for the scenario.
func (s Scenario) Factor() float64 {
	switch s {
	case Conservador:
		return 1.1
	case Optimista:
		return 0.9
	default:
		return 1.0
	}
}

// ParseScenario accepts scenario names case-insensitively.
func ParseScenario(s string) (Scenario, error) {
	for _, sc := range []Scenario{Conservador, Moderado, Optimista} {
		if strings.EqualFold(strings.TrimSpace(s), string(sc)) {
			return sc, nil
		}
	}
	return "", fmt.Errorf("%w: unknown scenario %q", ErrInvalidParams, s)
}

// Params configure one projection. Window is the number of most recent
// months to consider; 0 means the whole history.
type Params struct {
	Horizon      int      `json:"horizon" validate:"min=1,max=12"`
	Scenario     Scenario `json:"scenario" validate:"oneof=Conservador Moderado Optimista"`
	Window       int      `json:"window" validate:"oneof=0 6 12 24"`
	RecentWeight float64  `json:"recent_weight" validate:"min=0,max=1"`
	Intervention float64  `json:"intervention" validate:"min=0,max=0.3"`
}

// DefaultParams returns a three-month Moderado projection over the last
// twelve months with equal trend weights and a 15% intervention effect.
func DefaultParams() Params {
	return Params{
		Horizon:      3,
		Scenario:     Moderado,
		Window:       12,
		RecentWeight: 0.5,
		Intervention: 0.15,
	}
}

var validate = validator.New()

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}
