package diarization

import (
	"context"

	"github.com/kbukum/speakerbind/cluster"
	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/transcript"
)

// Input is everything one diarization run reads.
type Input struct {
	Audio    embedding.Audio
	Segments []transcript.AudioSegment
	Words    []transcript.Word
}

// Report records which regime and heuristics shaped a result.
type Report struct {
	Gate           Gate                   `json:"gate" yaml:"gate"`
	ClipSeconds    float64                `json:"clip_seconds" yaml:"clip_seconds"`
	Regime         cluster.Regime         `json:"regime,omitempty" yaml:"regime,omitempty"`
	Windows        embedding.ExtractStats `json:"windows" yaml:"windows"`
	ClustersFormed int                    `json:"clusters_formed" yaml:"clusters_formed"`
	Cleanup        cluster.CleanupReport  `json:"cleanup" yaml:"cleanup"`

	OutsideGate           int      `json:"outside_gate" yaml:"outside_gate"`
	Unmatched             int      `json:"unmatched" yaml:"unmatched"`
	RareCollapsed         []string `json:"rare_collapsed,omitempty" yaml:"rare_collapsed,omitempty"`
	RareWordsReassigned   int      `json:"rare_words_reassigned" yaml:"rare_words_reassigned"`
	RareWordsUnattributed int      `json:"rare_words_unattributed" yaml:"rare_words_unattributed"`
}

// Result is the diarized transcript and speaker map.
type Result struct {
	Words    []transcript.Word `json:"words" yaml:"words"`
	Speakers []Speaker         `json:"speakers" yaml:"speakers"`
	Report   Report            `json:"report" yaml:"report"`
}

// Diarizer runs the diarization pipeline with one provider and config.
type Diarizer struct {
	provider embedding.Provider
	cache    *embedding.Cache
	cfg      Config
	log      *logger.Logger
}

// New creates a Diarizer. cache may be nil.
func New(p embedding.Provider, cache *embedding.Cache, cfg Config) *Diarizer {
	return &Diarizer{provider: p, cache: cache, cfg: cfg, log: logger.Get("diarization")}
}

// Config returns the configuration the diarizer runs with.
func (d *Diarizer) Config() Config { return d.cfg }

// Run attributes every input word. The input words are not modified.
// Provider failure aborts the run; missing speech, words or windows yield a
// valid result with unattributed words.
func (d *Diarizer) Run(ctx context.Context, in Input) (*Result, error) {
	if d.provider == nil {
		return nil, errors.InvalidConfig("diarization requires an embedding provider")
	}
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := transcript.ValidateWords(in.Words); err != nil {
		return nil, err
	}
	log := d.log.WithContext(ctx)

	words := transcript.CloneWords(in.Words)
	for i := range words {
		words[i].SpeakerID = nil
		words[i].SpeakerLabel = nil
	}
	res := &Result{Words: words, Speakers: []Speaker{}}
	if len(words) == 0 {
		res.Report.Gate = Gate{Source: gateNone}
		return res, nil
	}

	clipSeconds := clipLength(in)
	res.Report.ClipSeconds = clipSeconds
	gate := buildGate(in.Segments, words, clipSeconds, d.cfg)
	res.Report.Gate = *gate
	if gate.Empty() {
		log.Info("no speech gated, words left unattributed", logger.Fields("words", len(words)))
		return res, nil
	}

	extracted, err := embedding.NewExtractor(d.provider, d.cache, d.cfg.extractor()).Extract(ctx, in.Audio, gate.Contains)
	if err != nil {
		return nil, err
	}
	res.Report.Windows = extracted.Stats

	clusters := cluster.Assign(extracted.Embeddings, cluster.Config{
		Threshold:          d.cfg.SimilarityThreshold,
		AgglomerativeLimit: d.cfg.AgglomerativeLimit,
	})
	res.Report.Regime = clusters.Regime
	res.Report.ClustersFormed = len(clusters.Clusters)
	res.Report.Cleanup = cluster.CleanupReport{ClustersBefore: len(clusters.Clusters), ClustersAfter: len(clusters.Clusters)}
	if !d.cfg.DisableCleanup {
		clusters, res.Report.Cleanup = cluster.Cleanup(clusters, d.cfg.cleanup())
	}

	gated := make([]bool, len(words))
	for i := range words {
		gated[i] = gate.Contains(words[i].Midpoint())
	}
	res.Report.OutsideGate, res.Report.Unmatched = assignWords(words, gate, clusters.Assignments, d.cfg.WordToleranceSeconds)

	if !d.cfg.DisableRareCollapse {
		rare := collapseRare(words, d.cfg)
		res.Report.RareCollapsed = rare.Collapsed
		res.Report.RareWordsReassigned = rare.Reassigned
		res.Report.RareWordsUnattributed = rare.Unattributed
	}

	res.Speakers = labelSpeakers(words, gated)

	log.Info("diarization complete", logger.Fields(
		"regime", string(clusters.Regime),
		"gate", gate.Source,
		"windows", extracted.Stats.Embedded,
		"clusters", len(clusters.Clusters),
		"speakers", len(res.Speakers),
		"outside_gate", res.Report.OutsideGate,
		"unmatched", res.Report.Unmatched,
	))
	return res, nil
}

// clipLength is the audio duration, or the latest segment or word end when
// no audio is supplied.
func clipLength(in Input) float64 {
	if d := in.Audio.Duration(); d > 0 {
		return d
	}
	end := 0.0
	for _, s := range in.Segments {
		end = max(end, s.End)
	}
	for _, w := range in.Words {
		end = max(end, w.SourceEnd.Seconds())
	}
	return end
}
