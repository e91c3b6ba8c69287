package diarization

import (
	"cmp"
	"math"
	"slices"
	"strconv"

	"github.com/kbukum/speakerbind/cluster"
	"github.com/kbukum/speakerbind/transcript"
	"github.com/kbukum/speakerbind/util"
)

// Speaker is one entry of the speaker map.
type Speaker struct {
	ID        string          `json:"id" yaml:"id"`
	Label     string          `json:"label" yaml:"label"`
	FirstSeen transcript.Tick `json:"first_seen" yaml:"first_seen"`
	Words     int             `json:"words" yaml:"words"`
}

// nearestWindow returns the cluster of the window whose midpoint is closest
// to t, if it lies within tolerance. Equidistant windows resolve to the
// earlier one.
func nearestWindow(assignments []cluster.Assignment, t, tolerance float64) (string, bool) {
	if len(assignments) == 0 {
		return "", false
	}
	i, _ := slices.BinarySearchFunc(assignments, t, func(a cluster.Assignment, t float64) int {
		return cmp.Compare(a.Midpoint, t)
	})
	best := -1
	bestDist := math.Inf(1)
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(assignments) {
			continue
		}
		if d := math.Abs(assignments[j].Midpoint - t); d < bestDist {
			best, bestDist = j, d
		}
	}
	if best < 0 || bestDist > tolerance {
		return "", false
	}
	return assignments[best].ClusterID, true
}

// assignWords writes cluster ids onto words in place and returns the count
// of words left without a gated speaker.
func assignWords(words []transcript.Word, gate *Gate, assignments []cluster.Assignment, tolerance float64) (outside, unmatched int) {
	for i := range words {
		mid := words[i].Midpoint()
		if !gate.Contains(mid) {
			words[i].SpeakerID = util.Ptr(transcript.SentinelSpeakerID)
			words[i].SpeakerLabel = nil
			outside++
			continue
		}
		id, ok := nearestWindow(assignments, mid, tolerance)
		if !ok {
			id = transcript.SentinelSpeakerID
			unmatched++
		}
		words[i].SpeakerID = util.Ptr(id)
	}
	return outside, unmatched
}

// rareOutcome describes what rare-speaker collapse did.
type rareOutcome struct {
	Collapsed    []string
	Reassigned   int
	Unattributed int
}

// collapseRare moves words of speakers with very few words onto the nearest
// word, in transcript order, held by a speaker that is not rare.
func collapseRare(words []transcript.Word, cfg Config) rareOutcome {
	var out rareOutcome
	counts := make(map[string]int)
	attributed := 0
	for _, w := range words {
		if id := w.Speaker(); id != "" && id != transcript.SentinelSpeakerID {
			counts[id]++
			attributed++
		}
	}
	if len(counts) < cfg.RareMinSpeakers {
		return out
	}

	cutoff := max(float64(cfg.RareMinWords), cfg.RareFraction*float64(attributed))
	rare := make(map[string]bool)
	for _, id := range util.SortedKeys(counts) {
		if float64(counts[id]) <= cutoff {
			rare[id] = true
			out.Collapsed = append(out.Collapsed, id)
		}
	}
	if len(rare) == 0 {
		return out
	}

	// Donors are read from the pre-collapse assignment so reassignment does
	// not cascade.
	original := make([]string, len(words))
	for i, w := range words {
		original[i] = w.Speaker()
	}
	donor := func(i int) bool {
		id := original[i]
		return id != "" && id != transcript.SentinelSpeakerID && !rare[id]
	}

	for i := range words {
		if !rare[original[i]] {
			continue
		}
		target := ""
		for d := 1; d < len(words); d++ {
			if j := i - d; j >= 0 && donor(j) {
				target = original[j]
				break
			}
			if j := i + d; j < len(words) && donor(j) {
				target = original[j]
				break
			}
		}
		if target == "" {
			target = transcript.SentinelSpeakerID
			out.Unattributed++
		} else {
			out.Reassigned++
		}
		words[i].SpeakerID = util.Ptr(target)
	}
	return out
}

// labelSpeakers assigns T1, T2, ... by first occurrence and writes labels on
// attributed words. The sentinel keeps its own label and is listed last.
// Words that fell outside the gate carry no label.
func labelSpeakers(words []transcript.Word, gated []bool) []Speaker {
	byID := make(map[string]*Speaker)
	for _, w := range words {
		id := w.Speaker()
		if id == "" {
			continue
		}
		s, ok := byID[id]
		if !ok {
			s = &Speaker{ID: id, FirstSeen: w.SourceStart}
			byID[id] = s
		}
		s.Words++
		if w.SourceStart < s.FirstSeen {
			s.FirstSeen = w.SourceStart
		}
	}

	speakers := make([]Speaker, 0, len(byID))
	var sentinel *Speaker
	for _, id := range util.SortedKeys(byID) {
		if id == transcript.SentinelSpeakerID {
			sentinel = byID[id]
			continue
		}
		speakers = append(speakers, *byID[id])
	}
	slices.SortStableFunc(speakers, func(a, b Speaker) int {
		if c := cmp.Compare(a.FirstSeen, b.FirstSeen); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	labels := make(map[string]string, len(speakers)+1)
	for i := range speakers {
		speakers[i].Label = labelFor(i)
		labels[speakers[i].ID] = speakers[i].Label
	}
	if sentinel != nil {
		sentinel.Label = transcript.SentinelLabel
		labels[sentinel.ID] = sentinel.Label
		speakers = append(speakers, *sentinel)
	}

	for i := range words {
		id := words[i].Speaker()
		if id == "" || !gated[i] {
			words[i].SpeakerLabel = nil
			continue
		}
		words[i].SpeakerLabel = util.Ptr(labels[id])
	}
	return speakers
}

func labelFor(i int) string {
	return "T" + strconv.Itoa(i+1)
}
