// Package segment holds the categorical business rules applied to customers:
// inactivity risk tiers, the coarse activity state and value segments.
package segment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskTier is an ordered inactivity bucket. The zero value is Unknown and
// sorts below every real tier.
type RiskTier int

const (
	RiskUnknown RiskTier = iota
	RiskBajo
	RiskMedio
	RiskAlto
	RiskCritico
)

var riskNames = map[RiskTier]string{
	RiskUnknown: "",
	RiskBajo:    "Bajo",
	RiskMedio:   "Medio",
	RiskAlto:    "Alto",
	RiskCritico: "Crítico",
}

// RiskTiers lists the real tiers in ascending order.
var RiskTiers = []RiskTier{RiskBajo, RiskMedio, RiskAlto, RiskCritico}

func (r RiskTier) String() string { return riskNames[r] }

// Valid reports whether r is one of the four named tiers.
func (r RiskTier) Valid() bool { return r >= RiskBajo && r <= RiskCritico }

// ParseRiskTier accepts the display names, case-insensitively. "Critico"
// without the accent is accepted as well.
func ParseRiskTier(s string) (RiskTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bajo":
		return RiskBajo, nil
	case "medio":
		return RiskMedio, nil
	case "alto":
		return RiskAlto, nil
	case "crítico", "critico":
		return RiskCritico, nil
	}
	return RiskUnknown, fmt.Errorf("%w: risk tier %q", ErrUnknownLabel, s)
}

func (r RiskTier) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

func (r *RiskTier) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*r = RiskUnknown
		return nil
	}
	v, err := ParseRiskTier(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ActivityState is the coarse three-way activity label.
type ActivityState int

const (
	Activo ActivityState = iota
	EnRiesgo
	Churneado
)

func (a ActivityState) String() string {
	switch a {
	case Activo:
		return "Activo"
	case EnRiesgo:
		return "En Riesgo"
	case Churneado:
		return "Churneado"
	}
	return ""
}

// ParseActivityState accepts the display names case-insensitively.
func ParseActivityState(s string) (ActivityState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "activo":
		return Activo, nil
	case "en riesgo", "en_riesgo":
		return EnRiesgo, nil
	case "churneado":
		return Churneado, nil
	}
	return Activo, fmt.Errorf("%w: activity state %q", ErrUnknownLabel, s)
}

func (a ActivityState) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }

// ValueSegment is an ordered customer value bucket: Básico < Premium < VIP.
type ValueSegment int

const (
	Basico ValueSegment = iota
	Premium
	VIP
)

// ValueSegments lists the segments in ascending order.
var ValueSegments = []ValueSegment{Basico, Premium, VIP}

func (v ValueSegment) String() string {
	switch v {
	case Basico:
		return "Básico"
	case Premium:
		return "Premium"
	case VIP:
		return "VIP"
	}
	return ""
}

// ParseValueSegment accepts the display names case-insensitively, with or
// without the accent on Básico.
func ParseValueSegment(s string) (ValueSegment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "básico", "basico":
		return Basico, nil
	case "premium":
		return Premium, nil
	case "vip":
		return VIP, nil
	}
	return Basico, fmt.Errorf("%w: value segment %q", ErrUnknownLabel, s)
}

func (v ValueSegment) MarshalJSON() ([]byte, error) { return json.Marshal(v.String()) }

func (v *ValueSegment) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	p, err := ParseValueSegment(s)
	if err != nil {
		return err
	}
	*v = p
	return nil
}
