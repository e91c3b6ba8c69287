// Package transcript defines the externally owned inputs the diarization
// stage reads and annotates: transcript words in tick units and upstream
// audio segments used for speech gating.
package transcript

import (
	"fmt"

	"github.com/kbukum/speakerbind/errors"
)

// TicksPerSecond is the resolution of word timestamps.
const TicksPerSecond = 60000

// Tick is a timestamp in 1/60000 second units.
type Tick int64

// Seconds converts the tick to seconds.
func (t Tick) Seconds() float64 { return float64(t) / TicksPerSecond }

// FromSeconds converts seconds to the nearest tick.
func FromSeconds(s float64) Tick {
	if s < 0 {
		return Tick(s*TicksPerSecond - 0.5)
	}
	return Tick(s*TicksPerSecond + 0.5)
}

// Sentinel identity for words that cannot be attributed to a gated speaker.
const (
	SentinelSpeakerID = "UNATTRIBUTED"
	SentinelLabel     = "T?"
)

// Word is one transcript word. Only SpeakerID and SpeakerLabel are written
// by speakerbind; every other field is owned upstream.
type Word struct {
	ID            string  `json:"id" yaml:"id" validate:"required"`
	Text          string  `json:"text" yaml:"text"`
	SourceStart   Tick    `json:"source_start" yaml:"source_start"`
	SourceEnd     Tick    `json:"source_end" yaml:"source_end"`
	TimelineStart Tick    `json:"timeline_start" yaml:"timeline_start"`
	TimelineEnd   Tick    `json:"timeline_end" yaml:"timeline_end"`
	SpeakerID     *string `json:"speaker_id,omitempty" yaml:"speaker_id,omitempty"`
	SpeakerLabel  *string `json:"speaker_label,omitempty" yaml:"speaker_label,omitempty"`
}

// Midpoint returns the source-time midpoint of the word in seconds.
func (w Word) Midpoint() float64 {
	return (w.SourceStart.Seconds() + w.SourceEnd.Seconds()) / 2
}

// Speaker returns the assigned speaker id, or "" when unset.
func (w Word) Speaker() string {
	if w.SpeakerID == nil {
		return ""
	}
	return *w.SpeakerID
}

// SegmentKind classifies an upstream audio segment.
type SegmentKind string

const (
	KindSilence    SegmentKind = "silence"
	KindSpeechLike SegmentKind = "speech_like"
	KindUnknown    SegmentKind = "unknown"
)

// AudioSegment is an upstream classification of a time range, in seconds.
type AudioSegment struct {
	Start      float64     `json:"start" yaml:"start"`
	End        float64     `json:"end" yaml:"end"`
	Kind       SegmentKind `json:"kind" yaml:"kind"`
	Confidence float64     `json:"confidence" yaml:"confidence"`
}

// Contains reports whether t lies inside the closed segment.
func (s AudioSegment) Contains(t float64) bool {
	return t >= s.Start && t <= s.End
}

// Duration returns the segment length in seconds.
func (s AudioSegment) Duration() float64 { return s.End - s.Start }

// ValidateWords rejects word lists that cannot be attributed consistently:
// duplicate ids and words that end before they start.
func ValidateWords(words []Word) error {
	seen := make(map[string]struct{}, len(words))
	for i, w := range words {
		if w.ID == "" {
			return errors.InvalidInput(fmt.Sprintf("words[%d].id", i), "word id is required")
		}
		if _, dup := seen[w.ID]; dup {
			return errors.InvalidInput(fmt.Sprintf("words[%d].id", i), fmt.Sprintf("duplicate word id %q", w.ID))
		}
		seen[w.ID] = struct{}{}
		if w.SourceEnd < w.SourceStart {
			return errors.InvalidInput(fmt.Sprintf("words[%d]", i), "source end precedes start")
		}
	}
	return nil
}

// CloneWords deep-copies words so callers keep ownership of their input.
func CloneWords(words []Word) []Word {
	out := make([]Word, len(words))
	for i, w := range words {
		out[i] = w
		if w.SpeakerID != nil {
			id := *w.SpeakerID
			out[i].SpeakerID = &id
		}
		if w.SpeakerLabel != nil {
			label := *w.SpeakerLabel
			out[i].SpeakerLabel = &label
		}
	}
	return out
}
