package diarization

import (
	"cmp"
	"slices"

	"github.com/kbukum/speakerbind/transcript"
)

// Interval is a closed time range in seconds.
type Interval struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Gate is the sorted, non-overlapping set of intervals treated as speech.
type Gate struct {
	Intervals []Interval `json:"intervals" yaml:"intervals"`
	// Source is "speech_like", "non_silence", "words" or "none".
	Source  string `json:"source" yaml:"source"`
	Refined bool   `json:"refined" yaml:"refined"`
}

const (
	gateSpeechLike = "speech_like"
	gateNonSilence = "non_silence"
	gateWords      = "words"
	gateNone       = "none"
)

// Empty reports whether nothing was gated as speech.
func (g *Gate) Empty() bool { return len(g.Intervals) == 0 }

// Contains reports whether t falls inside any interval.
func (g *Gate) Contains(t float64) bool {
	_, found := slices.BinarySearchFunc(g.Intervals, t, func(iv Interval, t float64) int {
		switch {
		case iv.End < t:
			return -1
		case iv.Start > t:
			return 1
		default:
			return 0
		}
	})
	return found
}

// Seconds returns the total gated duration.
func (g *Gate) Seconds() float64 {
	total := 0.0
	for _, iv := range g.Intervals {
		total += iv.End - iv.Start
	}
	return total
}

// buildGate selects speech segments and refines a coarse single-segment gate
// into padded word intervals.
func buildGate(segments []transcript.AudioSegment, words []transcript.Word, clipSeconds float64, cfg Config) *Gate {
	var speech, nonSilence []Interval
	for _, s := range segments {
		if s.End <= s.Start {
			continue
		}
		iv := Interval{Start: s.Start, End: s.End}
		if s.Kind == transcript.KindSpeechLike && s.Confidence >= cfg.MinSpeechConfidence {
			speech = append(speech, iv)
		}
		if s.Kind != transcript.KindSilence {
			nonSilence = append(nonSilence, iv)
		}
	}

	g := &Gate{Source: gateSpeechLike, Intervals: mergeIntervals(speech, 0)}
	if g.Empty() {
		g = &Gate{Source: gateNonSilence, Intervals: mergeIntervals(nonSilence, 0)}
	}
	if g.Empty() {
		return &Gate{Source: gateNone}
	}

	if !cfg.DisableGateRefinement && isCoarse(g, clipSeconds, cfg.CoarseGateCoverage) && len(words) >= max(cfg.MinWordsForRefinement, 1) {
		refined := wordIntervals(words, clipSeconds, cfg.WordPadSeconds, cfg.WordMergeGapSeconds)
		if len(refined) > 0 {
			return &Gate{Source: gateWords, Intervals: refined, Refined: true}
		}
	}
	return g
}

func isCoarse(g *Gate, clipSeconds, coverage float64) bool {
	if len(g.Intervals) != 1 || clipSeconds <= 0 {
		return false
	}
	return g.Seconds() >= coverage*clipSeconds
}

// wordIntervals pads each word, clamps it to the clip and merges intervals
// separated by less than mergeGap.
func wordIntervals(words []transcript.Word, clipSeconds, pad, mergeGap float64) []Interval {
	ivs := make([]Interval, 0, len(words))
	for _, w := range words {
		start := max(w.SourceStart.Seconds()-pad, 0)
		end := w.SourceEnd.Seconds() + pad
		if clipSeconds > 0 {
			end = min(end, clipSeconds)
		}
		if end > start {
			ivs = append(ivs, Interval{Start: start, End: end})
		}
	}
	return mergeIntervals(ivs, mergeGap)
}

// mergeIntervals sorts ivs and joins any two separated by less than gap.
func mergeIntervals(ivs []Interval, gap float64) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := slices.Clone(ivs)
	slices.SortFunc(sorted, func(a, b Interval) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})
	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start-last.End < gap || iv.Start <= last.End {
			last.End = max(last.End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}
