// Package validation checks job requests and configuration records.
//
// Struct tag validation (go-playground/validator) covers per-field bounds:
//
//	type Config struct {
//	    HopSeconds float64 `json:"hop_seconds" validate:"gt=0"`
//	}
//	err := validation.ValidateConfig(cfg)
//
// The programmatic Validator covers cross-field rules:
//
//	v := validation.New()
//	v.Required("clip_id", req.ClipID).Custom(rate > 0, "sample_rate", "must be positive")
//	if appErr := v.Validate(); appErr != nil { ... }
//
// Both report every failing field at once in the AppError details.
package validation
