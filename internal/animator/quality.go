package animator

import (
	"errors"
	"fmt"
)

// ErrUnknownQuality is returned for an unrecognized quality tier name.
var ErrUnknownQuality = errors.New("unknown quality tier")

// QualityConfig switches optional layers for cheaper form factors.
type QualityConfig struct {
	EnablePhysics        bool    `mapstructure:"enable_physics" yaml:"enable_physics" json:"enablePhysics"`
	EnableWeightShift    bool    `mapstructure:"enable_weight_shift" yaml:"enable_weight_shift" json:"enableWeightShift"`
	EnableMicroMovements bool    `mapstructure:"enable_micro_movements" yaml:"enable_micro_movements" json:"enableMicroMovements"`
	EnableExpressions    bool    `mapstructure:"enable_expressions" yaml:"enable_expressions" json:"enableExpressions"`
	EnableEyeTracking    bool    `mapstructure:"enable_eye_tracking" yaml:"enable_eye_tracking" json:"enableEyeTracking"`
	BreathingDetail      float64 `mapstructure:"breathing_detail" yaml:"breathing_detail" json:"breathingDetail"`
}

const (
	QualityLow    = "low"
	QualityMedium = "medium"
	QualityHigh   = "high"
)

var qualityPresets = map[string]QualityConfig{
	QualityLow: {
		BreathingDetail: 0.5,
	},
	QualityMedium: {
		EnablePhysics:     true,
		EnableWeightShift: true,
		EnableExpressions: true,
		EnableEyeTracking: true,
		BreathingDetail:   1,
	},
	QualityHigh: {
		EnablePhysics:        true,
		EnableWeightShift:    true,
		EnableMicroMovements: true,
		EnableExpressions:    true,
		EnableEyeTracking:    true,
		BreathingDetail:      1,
	},
}

// QualityPreset returns the named tier.
func QualityPreset(name string) (QualityConfig, error) {
	q, ok := qualityPresets[name]
	if !ok {
		return QualityConfig{}, fmt.Errorf("%w: %q", ErrUnknownQuality, name)
	}
	return q, nil
}
