package binding

import "math"

// Rect is a face box in normalized frame coordinates.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Area returns the normalized area.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Center returns the box center.
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// maxCenterDistance is the distance from the frame center to a corner.
var maxCenterDistance = math.Sqrt(0.5)

// CenterProximity is 1 at the frame center, falling linearly to 0 at a corner.
func (r Rect) CenterProximity() float64 {
	cx, cy := r.Center()
	d := math.Hypot(cx-0.5, cy-0.5)
	return max(0, 1-d/maxCenterDistance)
}

// Face is one tracked face in one analyzed frame.
type Face struct {
	TrackID        string   `json:"track_id" yaml:"track_id" validate:"required"`
	Rect           Rect     `json:"rect" yaml:"rect"`
	PersonID       *string  `json:"person_id,omitempty" yaml:"person_id,omitempty"`
	MouthOpenRatio *float64 `json:"mouth_open_ratio,omitempty" yaml:"mouth_open_ratio,omitempty"`
}

// VideoSample holds the faces seen at one analyzed timestamp, in seconds.
type VideoSample struct {
	Time  float64 `json:"time" yaml:"time"`
	Faces []Face  `json:"faces" yaml:"faces"`
}

// ReasonCode explains a low-confidence or degraded binding.
type ReasonCode string

const (
	ReasonAmbiguousTop2Gap     ReasonCode = "AMBIGUOUS_TOP2_GAP"
	ReasonLowTopPosterior      ReasonCode = "LOW_TOP_POSTERIOR"
	ReasonSingleCandidateTrack ReasonCode = "SINGLE_CANDIDATE_TRACK"
	ReasonMissingFaceEvidence  ReasonCode = "MISSING_FACE_EVIDENCE"
	ReasonTinyFaceFiltered     ReasonCode = "TINY_FACE_FILTERED"
	ReasonFrameUnmatched       ReasonCode = "FRAME_UNMATCHED"
)

// Level buckets a confidence score.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
	LevelNone   Level = "none"
)

// LevelFor maps a score to its bucket.
func LevelFor(score float64) Level {
	switch {
	case score >= 0.85:
		return LevelHigh
	case score >= 0.70:
		return LevelMedium
	case score >= 0.50:
		return LevelLow
	default:
		return LevelNone
	}
}

// Confidence is the explainable confidence attached to an edge.
type Confidence struct {
	Score   float64      `json:"score" yaml:"score"`
	Level   Level        `json:"level" yaml:"level"`
	Reasons []ReasonCode `json:"reasons" yaml:"reasons"`
}

// Provenance points back at the evidence behind an edge.
type Provenance struct {
	// WordIDs lists the first words that contributed to this pair.
	WordIDs []string `json:"word_ids" yaml:"word_ids"`
	// Words is the total number of contributing words.
	Words int `json:"words" yaml:"words"`
	// Weight is the accumulated soft evidence for the pair.
	Weight float64 `json:"weight" yaml:"weight"`
	// FirstSample and LastSample bound the matched video timestamps.
	FirstSample float64 `json:"first_sample" yaml:"first_sample"`
	LastSample  float64 `json:"last_sample" yaml:"last_sample"`
}

// Edge binds one speaker to one face track.
type Edge struct {
	ID         string     `json:"id" yaml:"id"`
	SpeakerID  string     `json:"speaker_id" yaml:"speaker_id"`
	TrackID    string     `json:"track_id" yaml:"track_id"`
	PersonID   *string    `json:"person_id,omitempty" yaml:"person_id,omitempty"`
	Posterior  float64    `json:"posterior" yaml:"posterior"`
	Confidence Confidence `json:"confidence" yaml:"confidence"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
}

// SpeakerSummary records per-speaker evidence accounting, including
// speakers that received no edge.
type SpeakerSummary struct {
	SpeakerID string `json:"speaker_id" yaml:"speaker_id"`
	Words     int    `json:"words" yaml:"words"`
	// EvidenceWords is the number of words that contributed face evidence.
	EvidenceWords int `json:"evidence_words" yaml:"evidence_words"`
	// Candidates is the number of tracks with nonzero evidence.
	Candidates int `json:"candidates" yaml:"candidates"`
	// EmittedMass is the sum of emitted posteriors; at most 1.
	EmittedMass float64      `json:"emitted_mass" yaml:"emitted_mass"`
	Reasons     []ReasonCode `json:"reasons" yaml:"reasons"`
}

// Coverage is the share of words that contributed evidence.
func (s SpeakerSummary) Coverage() float64 {
	if s.Words == 0 {
		return 0
	}
	return float64(s.EvidenceWords) / float64(s.Words)
}

// Graph is the identity binding graph for one clip.
type Graph struct {
	AnalyzedSeconds float64          `json:"analyzed_seconds" yaml:"analyzed_seconds"`
	Edges           []Edge           `json:"edges" yaml:"edges"`
	Speakers        []SpeakerSummary `json:"speakers" yaml:"speakers"`
}

// EdgesFor returns the edges of one speaker, highest posterior first.
func (g *Graph) EdgesFor(speakerID string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.SpeakerID == speakerID {
			out = append(out, e)
		}
	}
	return out
}

// Summary returns the summary for one speaker.
func (g *Graph) Summary(speakerID string) (SpeakerSummary, bool) {
	for _, s := range g.Speakers {
		if s.SpeakerID == speakerID {
			return s, true
		}
	}
	return SpeakerSummary{}, false
}
