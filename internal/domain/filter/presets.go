package filter

import (
	"strings"

	"github.com/okian/churnlens/internal/domain/segment"
)

// Preset names accepted by Preset.
const (
	PresetUrgent    = "urgente"
	PresetHighValue = "alto_valor"
	PresetVIP       = "vip"
	PresetClear     = "limpiar"
)

// Urgent selects every Alto and Crítico customer.
func Urgent() Set {
	return Set{Risks: []segment.RiskTier{segment.RiskAlto, segment.RiskCritico}}
}

// HighValue selects Alto and Crítico customers in the VIP and Premium segments.
func HighValue() Set {
	return Set{
		Risks:    []segment.RiskTier{segment.RiskAlto, segment.RiskCritico},
		Segments: []segment.ValueSegment{segment.VIP, segment.Premium},
	}
}

// VIPAtRisk selects Alto and Crítico VIP customers.
func VIPAtRisk() Set {
	return Set{
		Risks:    []segment.RiskTier{segment.RiskAlto, segment.RiskCritico},
		Segments: []segment.ValueSegment{segment.VIP},
	}
}

// Clear matches everything.
func Clear() Set { return Set{} }

// Preset looks a preset up by name.
func Preset(name string) (Set, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetUrgent:
		return Urgent(), true
	case PresetHighValue:
		return HighValue(), true
	case PresetVIP:
		return VIPAtRisk(), true
	case PresetClear, "":
		return Clear(), true
	}
	return Set{}, false
}
