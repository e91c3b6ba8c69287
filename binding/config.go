package binding

import "github.com/kbukum/speakerbind/errors"

// Config tunes candidate selection, evidence fusion and posterior policy.
type Config struct {
	FrameToleranceSeconds float64 `mapstructure:"frame_tolerance_seconds" yaml:"frame_tolerance_seconds" json:"frame_tolerance_seconds" validate:"gte=0"`
	MinFaceArea           float64 `mapstructure:"min_face_area" yaml:"min_face_area" json:"min_face_area" validate:"gte=0,lte=1"`
	TopK                  int     `mapstructure:"top_k" yaml:"top_k" json:"top_k" validate:"gte=1"`
	RelativeAreaFloor     float64 `mapstructure:"relative_area_floor" yaml:"relative_area_floor" json:"relative_area_floor" validate:"gte=0,lte=1"`

	CenterWeight        float64 `mapstructure:"center_weight" yaml:"center_weight" json:"center_weight" validate:"gte=0"`
	MotionWeight        float64 `mapstructure:"motion_weight" yaml:"motion_weight" json:"motion_weight" validate:"gte=0"`
	MouthActivityWeight float64 `mapstructure:"mouth_activity_weight" yaml:"mouth_activity_weight" json:"mouth_activity_weight" validate:"gte=0"`
	MouthOpenWeight     float64 `mapstructure:"mouth_open_weight" yaml:"mouth_open_weight" json:"mouth_open_weight" validate:"gte=0"`
	MotionWindowSeconds float64 `mapstructure:"motion_window_seconds" yaml:"motion_window_seconds" json:"motion_window_seconds" validate:"gte=0"`
	MouthWindowSeconds  float64 `mapstructure:"mouth_window_seconds" yaml:"mouth_window_seconds" json:"mouth_window_seconds" validate:"gte=0"`

	ExclusivityExponent float64 `mapstructure:"exclusivity_exponent" yaml:"exclusivity_exponent" json:"exclusivity_exponent" validate:"gte=0"`
	MinPosterior        float64 `mapstructure:"min_posterior" yaml:"min_posterior" json:"min_posterior" validate:"gte=0,lte=1"`
	AmbiguityMinGap     float64 `mapstructure:"ambiguity_min_gap" yaml:"ambiguity_min_gap" json:"ambiguity_min_gap" validate:"gte=0,lte=1"`
	ConfidentPosterior  float64 `mapstructure:"confident_posterior" yaml:"confident_posterior" json:"confident_posterior" validate:"gte=0,lte=1"`
	MaxProvenanceWords  int     `mapstructure:"max_provenance_words" yaml:"max_provenance_words" json:"max_provenance_words" validate:"gte=0"`
}

// DefaultConfig returns the tuned defaults. Geometry dominates; the motion
// and mouth terms only break near-ties.
func DefaultConfig() Config {
	return Config{
		FrameToleranceSeconds: 0.5,
		MinFaceArea:           0.002,
		TopK:                  2,
		RelativeAreaFloor:     0.35,
		CenterWeight:          0.5,
		MotionWeight:          0.25,
		MouthActivityWeight:   0.35,
		MouthOpenWeight:       0.2,
		MotionWindowSeconds:   1.0,
		MouthWindowSeconds:    1.0,
		ExclusivityExponent:   0.7,
		MinPosterior:          0.05,
		AmbiguityMinGap:       0.15,
		ConfidentPosterior:    0.70,
		MaxProvenanceWords:    32,
	}
}

// Validate checks values the builder cannot run with.
func (c Config) Validate() error {
	if c.TopK < 1 {
		return errors.InvalidConfig("binding.top_k must be at least 1")
	}
	if c.FrameToleranceSeconds < 0 {
		return errors.InvalidConfig("binding.frame_tolerance_seconds must not be negative")
	}
	if c.ExclusivityExponent < 0 {
		return errors.InvalidConfig("binding.exclusivity_exponent must not be negative")
	}
	return nil
}
