// Package timeline aggregates diarized words and identity bindings into a
// per-speaker lifecycle and the contiguous spans each speaker talks for.
package timeline

import (
	"cmp"
	"context"
	"slices"

	"github.com/kbukum/speakerbind/binding"
	"github.com/kbukum/speakerbind/diarization"
	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/transcript"
)

// Config controls span splitting and freezing.
type Config struct {
	MaxSpanGapSeconds  float64 `mapstructure:"max_span_gap_seconds" yaml:"max_span_gap_seconds" json:"max_span_gap_seconds" validate:"gte=0"`
	FreezeAfterSeconds float64 `mapstructure:"freeze_after_seconds" yaml:"freeze_after_seconds" json:"freeze_after_seconds" validate:"gte=0"`
}

// DefaultConfig returns the default timeline settings.
func DefaultConfig() Config {
	return Config{MaxSpanGapSeconds: 1.5, FreezeAfterSeconds: 30}
}

// Validate rejects negative settings.
func (c Config) Validate() error {
	if c.MaxSpanGapSeconds < 0 || c.FreezeAfterSeconds < 0 {
		return errors.InvalidConfig("timeline settings must not be negative")
	}
	return nil
}

// FaceBinding is a speaker's best face track.
type FaceBinding struct {
	TrackID   string  `json:"track_id" yaml:"track_id"`
	PersonID  *string `json:"person_id,omitempty" yaml:"person_id,omitempty"`
	EdgeID    string  `json:"edge_id" yaml:"edge_id"`
	Posterior float64 `json:"posterior" yaml:"posterior"`
}

// Speaker is one talker's lifecycle across the clip.
type Speaker struct {
	SpeakerID       string               `json:"speaker_id" yaml:"speaker_id"`
	Label           string               `json:"label" yaml:"label"`
	BornAt          transcript.Tick      `json:"born_at" yaml:"born_at"`
	LastActiveAt    transcript.Tick      `json:"last_active_at" yaml:"last_active_at"`
	Words           int                  `json:"words" yaml:"words"`
	SpeakingSeconds float64              `json:"speaking_seconds" yaml:"speaking_seconds"`
	Spans           int                  `json:"spans" yaml:"spans"`
	Frozen          bool                 `json:"frozen" yaml:"frozen"`
	Confidence      float64              `json:"confidence" yaml:"confidence"`
	Level           binding.Level        `json:"level" yaml:"level"`
	Reasons         []binding.ReasonCode `json:"reasons" yaml:"reasons"`
	BestFace        *FaceBinding         `json:"best_face,omitempty" yaml:"best_face,omitempty"`
}

// Span is a run of consecutive words by one speaker.
type Span struct {
	SpeakerID   string          `json:"speaker_id" yaml:"speaker_id"`
	Label       string          `json:"label" yaml:"label"`
	Start       transcript.Tick `json:"start" yaml:"start"`
	End         transcript.Tick `json:"end" yaml:"end"`
	FirstWordID string          `json:"first_word_id" yaml:"first_word_id"`
	LastWordID  string          `json:"last_word_id" yaml:"last_word_id"`
	Words       int             `json:"words" yaml:"words"`
}

// Timeline is the identity timeline for one clip.
type Timeline struct {
	ClipSeconds float64   `json:"clip_seconds" yaml:"clip_seconds"`
	Speakers    []Speaker `json:"speakers" yaml:"speakers"`
	Spans       []Span    `json:"spans" yaml:"spans"`
}

// Builder assembles timelines.
type Builder struct {
	cfg Config
	log *logger.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg, log: logger.Get("timeline")}
}

// Build derives the timeline from a diarization result and its binding
// graph. clipSeconds of 0 uses the end of the last word. The sentinel
// speaker is never part of the timeline.
func (b *Builder) Build(ctx context.Context, diar *diarization.Result, graph *binding.Graph, clipSeconds float64) (*Timeline, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	tl := &Timeline{Speakers: []Speaker{}, Spans: []Span{}}
	if diar == nil {
		return tl, nil
	}
	if graph == nil {
		graph = &binding.Graph{}
	}

	words := orderedWords(diar.Words)
	for _, w := range words {
		clipSeconds = max(clipSeconds, w.SourceEnd.Seconds())
	}
	tl.ClipSeconds = clipSeconds

	labels := make(map[string]string, len(diar.Speakers))
	for _, s := range diar.Speakers {
		labels[s.ID] = s.Label
	}
	tl.Spans = b.spans(words, labels)

	for _, s := range diar.Speakers {
		if s.ID == transcript.SentinelSpeakerID {
			continue
		}
		tl.Speakers = append(tl.Speakers, b.lifecycle(s, words, tl.Spans, graph, clipSeconds))
	}

	b.log.WithContext(ctx).Debug("timeline built", logger.Fields("speakers", len(tl.Speakers), "spans", len(tl.Spans)))
	return tl, nil
}

// orderedWords returns the attributed words sorted by start, keeping
// transcript order for equal starts.
func orderedWords(words []transcript.Word) []transcript.Word {
	out := slices.Clone(words)
	slices.SortStableFunc(out, func(a, c transcript.Word) int { return cmp.Compare(a.SourceStart, c.SourceStart) })
	return out
}

// spans groups consecutive words of one speaker. Any other word in between,
// including an unattributed one, or a silence longer than MaxSpanGapSeconds
// closes the span.
func (b *Builder) spans(words []transcript.Word, labels map[string]string) []Span {
	spans := []Span{}
	cur := -1
	maxGap := transcript.FromSeconds(b.cfg.MaxSpanGapSeconds)
	for _, w := range words {
		id := w.Speaker()
		if id == "" || id == transcript.SentinelSpeakerID {
			cur = -1
			continue
		}
		if cur >= 0 && spans[cur].SpeakerID == id && w.SourceStart-spans[cur].End <= maxGap {
			spans[cur].End = max(spans[cur].End, w.SourceEnd)
			spans[cur].LastWordID = w.ID
			spans[cur].Words++
			continue
		}
		spans = append(spans, Span{
			SpeakerID:   id,
			Label:       labels[id],
			Start:       w.SourceStart,
			End:         w.SourceEnd,
			FirstWordID: w.ID,
			LastWordID:  w.ID,
			Words:       1,
		})
		cur = len(spans) - 1
	}
	return spans
}

func (b *Builder) lifecycle(s diarization.Speaker, words []transcript.Word, spans []Span, graph *binding.Graph, clipSeconds float64) Speaker {
	sp := Speaker{SpeakerID: s.ID, Label: s.Label, BornAt: s.FirstSeen, Reasons: []binding.ReasonCode{}}
	for _, w := range words {
		if w.Speaker() != s.ID {
			continue
		}
		sp.Words++
		sp.LastActiveAt = max(sp.LastActiveAt, w.SourceEnd)
	}
	for _, span := range spans {
		if span.SpeakerID == s.ID {
			sp.Spans++
			sp.SpeakingSeconds += (span.End - span.Start).Seconds()
		}
	}
	sp.Frozen = clipSeconds-sp.LastActiveAt.Seconds() > b.cfg.FreezeAfterSeconds

	summary, _ := graph.Summary(s.ID)
	if summary.Reasons != nil {
		sp.Reasons = slices.Clone(summary.Reasons)
	}
	edges := graph.EdgesFor(s.ID)
	if len(edges) == 0 {
		if !slices.Contains(sp.Reasons, binding.ReasonMissingFaceEvidence) {
			sp.Reasons = append(sp.Reasons, binding.ReasonMissingFaceEvidence)
		}
		sp.Level = binding.LevelNone
		return sp
	}
	best := edges[0]
	sp.BestFace = &FaceBinding{TrackID: best.TrackID, PersonID: best.PersonID, EdgeID: best.ID, Posterior: best.Posterior}
	sp.Confidence = best.Posterior * summary.Coverage()
	sp.Level = binding.LevelFor(sp.Confidence)
	return sp
}
