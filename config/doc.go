// Package config loads the speakerbind configuration.
//
// Values are layered from lowest to highest precedence: Default, a YAML,
// JSON or TOML file read through viper, a .env file loaded with godotenv, and
// SPEAKERBIND_ environment variables whose underscores map onto nested keys:
//
//	SPEAKERBIND_DIARIZATION_SIMILARITY_THRESHOLD=0.8
//	SPEAKERBIND_CACHE_BACKEND=redis
//
// Usage:
//
//	cfg, err := config.Load("speakerbind.yml")
//	if err != nil {
//	    return err
//	}
//	diarizer := diarization.New(provider, cache, cfg.Diarization)
package config
