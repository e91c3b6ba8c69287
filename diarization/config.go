package diarization

import (
	"github.com/kbukum/speakerbind/cluster"
	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/errors"
)

// Config tunes every diarization stage. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	WindowSeconds       float64 `mapstructure:"window_seconds" yaml:"window_seconds" json:"window_seconds" validate:"gte=0"`
	HopSeconds          float64 `mapstructure:"hop_seconds" yaml:"hop_seconds" json:"hop_seconds" validate:"gt=0"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold" json:"similarity_threshold" validate:"gt=0,lte=1"`
	MinWindowRMS        float64 `mapstructure:"min_window_rms" yaml:"min_window_rms" json:"min_window_rms" validate:"gte=0"`

	// Gating
	MinSpeechConfidence   float64 `mapstructure:"min_speech_confidence" yaml:"min_speech_confidence" json:"min_speech_confidence" validate:"gte=0,lte=1"`
	CoarseGateCoverage    float64 `mapstructure:"coarse_gate_coverage" yaml:"coarse_gate_coverage" json:"coarse_gate_coverage" validate:"gt=0,lte=1"`
	MinWordsForRefinement int     `mapstructure:"min_words_for_refinement" yaml:"min_words_for_refinement" json:"min_words_for_refinement" validate:"gte=0"`
	WordPadSeconds        float64 `mapstructure:"word_pad_seconds" yaml:"word_pad_seconds" json:"word_pad_seconds" validate:"gte=0"`
	WordMergeGapSeconds   float64 `mapstructure:"word_merge_gap_seconds" yaml:"word_merge_gap_seconds" json:"word_merge_gap_seconds" validate:"gte=0"`
	DisableGateRefinement bool    `mapstructure:"disable_gate_refinement" yaml:"disable_gate_refinement" json:"disable_gate_refinement"`

	// Tapering
	TaperMaxWindowSeconds float64 `mapstructure:"taper_max_window_seconds" yaml:"taper_max_window_seconds" json:"taper_max_window_seconds" validate:"gte=0"`
	TaperFraction         float64 `mapstructure:"taper_fraction" yaml:"taper_fraction" json:"taper_fraction" validate:"gte=0,lte=1"`
	DisableTaper          bool    `mapstructure:"disable_taper" yaml:"disable_taper" json:"disable_taper"`

	// Clustering and cleanup
	AgglomerativeLimit int     `mapstructure:"agglomerative_limit" yaml:"agglomerative_limit" json:"agglomerative_limit" validate:"gte=0"`
	DisableCleanup     bool    `mapstructure:"disable_cleanup" yaml:"disable_cleanup" json:"disable_cleanup"`
	CleanupMinClusters int     `mapstructure:"cleanup_min_clusters" yaml:"cleanup_min_clusters" json:"cleanup_min_clusters" validate:"gte=3"`
	SmallClusterSize   int     `mapstructure:"small_cluster_size" yaml:"small_cluster_size" json:"small_cluster_size" validate:"gte=0"`
	SmallClusterMargin float64 `mapstructure:"small_cluster_margin" yaml:"small_cluster_margin" json:"small_cluster_margin" validate:"gte=0,lte=1"`
	SplinterThreshold  float64 `mapstructure:"splinter_threshold" yaml:"splinter_threshold" json:"splinter_threshold" validate:"gte=0,lte=1"`

	// Word attribution
	WordToleranceSeconds float64 `mapstructure:"word_tolerance_seconds" yaml:"word_tolerance_seconds" json:"word_tolerance_seconds" validate:"gte=0"`
	DisableRareCollapse  bool    `mapstructure:"disable_rare_collapse" yaml:"disable_rare_collapse" json:"disable_rare_collapse"`
	RareMinSpeakers      int     `mapstructure:"rare_min_speakers" yaml:"rare_min_speakers" json:"rare_min_speakers" validate:"gte=2"`
	RareMinWords         int     `mapstructure:"rare_min_words" yaml:"rare_min_words" json:"rare_min_words" validate:"gte=0"`
	RareFraction         float64 `mapstructure:"rare_fraction" yaml:"rare_fraction" json:"rare_fraction" validate:"gte=0,lte=1"`

	EmbedBatchSize int `mapstructure:"embed_batch_size" yaml:"embed_batch_size" json:"embed_batch_size" validate:"gte=1"`
}

// DefaultConfig returns the tuned defaults. The thresholds are empirical.
func DefaultConfig() Config {
	return Config{
		HopSeconds:            0.75,
		SimilarityThreshold:   0.75,
		MinSpeechConfidence:   0.5,
		CoarseGateCoverage:    0.9,
		MinWordsForRefinement: 8,
		WordPadSeconds:        0.25,
		WordMergeGapSeconds:   0.5,
		TaperMaxWindowSeconds: 3.5,
		TaperFraction:         0.2,
		AgglomerativeLimit:    cluster.DefaultAgglomerativeLimit,
		CleanupMinClusters:    3,
		SmallClusterSize:      3,
		SmallClusterMargin:    0.10,
		SplinterThreshold:     0.86,
		WordToleranceSeconds:  1.5,
		RareMinSpeakers:       5,
		RareMinWords:          2,
		RareFraction:          0.03,
		EmbedBatchSize:        16,
	}
}

// Validate checks the cross-field constraints struct tags cannot express.
func (c Config) Validate() error {
	if c.HopSeconds <= 0 {
		return errors.InvalidConfig("diarization.hop_seconds must be positive")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return errors.InvalidConfig("diarization.similarity_threshold must be in (0, 1]")
	}
	if c.EmbedBatchSize < 1 {
		return errors.InvalidConfig("diarization.embed_batch_size must be at least 1")
	}
	if c.WindowSeconds > 0 && c.HopSeconds > c.WindowSeconds {
		return errors.InvalidConfig("diarization.hop_seconds must not exceed window_seconds")
	}
	return nil
}

func (c Config) extractor() embedding.ExtractorConfig {
	return embedding.ExtractorConfig{
		WindowSeconds:         c.WindowSeconds,
		HopSeconds:            c.HopSeconds,
		MinWindowRMS:          c.MinWindowRMS,
		TaperMaxWindowSeconds: c.TaperMaxWindowSeconds,
		TaperFraction:         c.TaperFraction,
		DisableTaper:          c.DisableTaper,
		BatchSize:             c.EmbedBatchSize,
	}
}

func (c Config) cleanup() cluster.CleanupConfig {
	return cluster.CleanupConfig{
		Threshold:         c.SimilarityThreshold,
		MinClusters:       c.CleanupMinClusters,
		SmallSize:         c.SmallClusterSize,
		SmallMargin:       c.SmallClusterMargin,
		SplinterThreshold: c.SplinterThreshold,
	}
}
