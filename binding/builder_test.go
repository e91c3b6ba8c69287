package binding

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/kbukum/speakerbind/transcript"
)

func word(id, speaker string, start, end float64) transcript.Word {
	w := transcript.Word{
		ID:          id,
		SourceStart: transcript.FromSeconds(start),
		SourceEnd:   transcript.FromSeconds(end),
	}
	if speaker != "" {
		w.SpeakerID = &speaker
	}
	return w
}

func f64(v float64) *float64 { return &v }

// steadyClip has one sample every 0.5s from 0 to 10s with the given faces.
func steadyClip(faces ...Face) []VideoSample {
	var samples []VideoSample
	for i := 0; i <= 20; i++ {
		samples = append(samples, VideoSample{Time: float64(i) * 0.5, Faces: faces})
	}
	return samples
}

func TestBuild_SingleTrackBindsEverySpeaker(t *testing.T) {
	samples := steadyClip(Face{TrackID: "track-1", Rect: Rect{X: 0.3, Y: 0.2, W: 0.3, H: 0.4}})
	words := []transcript.Word{
		word("w1", "C1", 0.2, 0.8),
		word("w2", "C2", 1.2, 1.8),
		word("w3", "C1", 2.2, 2.8),
		word("w4", "C2", 3.2, 3.8),
	}

	g, err := NewBuilder(DefaultConfig()).Build(context.Background(), samples, words)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(g.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(g.Edges))
	}
	for _, e := range g.Edges {
		if e.TrackID != "track-1" {
			t.Errorf("expected track-1, got %s", e.TrackID)
		}
		if math.Abs(e.Posterior-1) > 1e-12 {
			t.Errorf("speaker %s: expected posterior 1.0, got %v", e.SpeakerID, e.Posterior)
		}
		if e.Confidence.Level != LevelHigh {
			t.Errorf("expected high confidence, got %s", e.Confidence.Level)
		}
	}
	if g.Edges[0].SpeakerID != "C1" || g.Edges[1].SpeakerID != "C2" {
		t.Errorf("expected edges in first-appearance order, got %s, %s", g.Edges[0].SpeakerID, g.Edges[1].SpeakerID)
	}
	if g.AnalyzedSeconds != 10 {
		t.Errorf("expected 10 analyzed seconds, got %v", g.AnalyzedSeconds)
	}
}

func TestBuild_DistinctSpeakersDistinctTracks(t *testing.T) {
	left := Rect{X: 0.05, Y: 0.3, W: 0.25, H: 0.35}
	right := Rect{X: 0.7, Y: 0.3, W: 0.25, H: 0.35}
	var samples []VideoSample
	for i := 0; i <= 40; i++ {
		ts := float64(i) * 0.25
		// Whoever speaks in this second moves their mouth.
		speakingLeft := int(ts)%2 == 0
		lm, rm := 0.1, 0.1
		if speakingLeft && i%2 == 0 {
			lm = 0.6
		}
		if !speakingLeft && i%2 == 0 {
			rm = 0.6
		}
		samples = append(samples, VideoSample{Time: ts, Faces: []Face{
			{TrackID: "left", Rect: left, MouthOpenRatio: f64(lm)},
			{TrackID: "right", Rect: right, MouthOpenRatio: f64(rm)},
		}})
	}
	var words []transcript.Word
	for i := 0; i < 10; i++ {
		sp := "C1"
		if i%2 == 1 {
			sp = "C2"
		}
		words = append(words, word(fmt.Sprintf("w%d", i), sp, float64(i)+0.3, float64(i)+0.7))
	}

	g, err := NewBuilder(DefaultConfig()).Build(context.Background(), samples, words)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	top := map[string]string{}
	for _, e := range g.Edges {
		if _, ok := top[e.SpeakerID]; !ok {
			top[e.SpeakerID] = e.TrackID
		}
	}
	if top["C1"] != "left" || top["C2"] != "right" {
		t.Errorf("expected C1->left and C2->right, got %v", top)
	}
	for _, s := range g.Speakers {
		if s.EmittedMass > 1+1e-12 {
			t.Errorf("speaker %s: emitted mass %v exceeds 1", s.SpeakerID, s.EmittedMass)
		}
	}
}

func TestBuild_ReasonCodes(t *testing.T) {
	t.Run("frame unmatched and missing evidence", func(t *testing.T) {
		samples := []VideoSample{{Time: 0, Faces: []Face{{TrackID: "a", Rect: Rect{W: 0.2, H: 0.2}}}}}
		g, err := NewBuilder(DefaultConfig()).Build(context.Background(), samples, []transcript.Word{word("w1", "C1", 5, 5.5)})
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(g.Edges) != 0 {
			t.Fatalf("expected no edges, got %d", len(g.Edges))
		}
		s, ok := g.Summary("C1")
		if !ok {
			t.Fatal("expected a summary for C1")
		}
		want := []ReasonCode{ReasonMissingFaceEvidence, ReasonFrameUnmatched}
		if fmt.Sprint(s.Reasons) != fmt.Sprint(want) {
			t.Errorf("expected %v, got %v", want, s.Reasons)
		}
	})

	t.Run("tiny faces filtered", func(t *testing.T) {
		samples := steadyClip(
			Face{TrackID: "big", Rect: Rect{X: 0.4, Y: 0.4, W: 0.2, H: 0.2}},
			Face{TrackID: "tiny", Rect: Rect{X: 0.1, Y: 0.1, W: 0.01, H: 0.01}},
		)
		g, err := NewBuilder(DefaultConfig()).Build(context.Background(), samples, []transcript.Word{word("w1", "C1", 1, 1.2)})
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if len(g.Edges) != 1 || g.Edges[0].TrackID != "big" {
			t.Fatalf("expected one edge to big, got %+v", g.Edges)
		}
		reasons := fmt.Sprint(g.Edges[0].Confidence.Reasons)
		want := fmt.Sprint([]ReasonCode{ReasonSingleCandidateTrack, ReasonTinyFaceFiltered})
		if reasons != want {
			t.Errorf("expected %s, got %s", want, reasons)
		}
	})
}

func TestBuild_IgnoresUnattributedWords(t *testing.T) {
	samples := steadyClip(Face{TrackID: "a", Rect: Rect{X: 0.4, Y: 0.4, W: 0.2, H: 0.2}})
	words := []transcript.Word{
		word("w1", transcript.SentinelSpeakerID, 1, 1.2),
		word("w2", "", 2, 2.2),
	}
	g, err := NewBuilder(DefaultConfig()).Build(context.Background(), samples, words)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(g.Edges) != 0 || len(g.Speakers) != 0 {
		t.Errorf("expected empty graph, got %d edges, %d speakers", len(g.Edges), len(g.Speakers))
	}
}

func TestBuild_EmptyInputs(t *testing.T) {
	g, err := NewBuilder(DefaultConfig()).Build(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if g.Edges == nil || len(g.Edges) != 0 {
		t.Errorf("expected empty non-nil edges, got %v", g.Edges)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	samples := steadyClip(
		Face{TrackID: "b", Rect: Rect{X: 0.1, Y: 0.3, W: 0.2, H: 0.3}, PersonID: strPtr("p-2")},
		Face{TrackID: "a", Rect: Rect{X: 0.6, Y: 0.3, W: 0.2, H: 0.3}, PersonID: strPtr("p-1")},
	)
	words := []transcript.Word{word("w1", "C2", 0.1, 0.4), word("w2", "C1", 1.1, 1.4), word("w3", "C2", 2.1, 2.4)}

	var first []byte
	for i := range 5 {
		g, err := NewBuilder(DefaultConfig()).Build(context.Background(), samples, words)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		out, _ := json.Marshal(g)
		if i == 0 {
			first = out
			continue
		}
		if string(out) != string(first) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestFuse_ExclusivityPenalty(t *testing.T) {
	s1 := &speakerState{id: "C1", pairs: map[string]*pairEvidence{"A": {weight: 10}}}
	s2 := &speakerState{id: "C2", pairs: map[string]*pairEvidence{"A": {weight: 6}, "B": {weight: 4}}}

	post := fuse([]*speakerState{s1, s2}, 0.7)
	if len(post["C1"]) != 1 || post["C1"][0].value != 1 {
		t.Errorf("expected C1 fully on A, got %+v", post["C1"])
	}
	c2 := post["C2"]
	if len(c2) != 2 || c2[0].trackID != "B" {
		t.Fatalf("expected the shared track to be discounted below B, got %+v", c2)
	}
	sum := c2[0].value + c2[1].value
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("expected posteriors to sum to 1, got %v", sum)
	}
	// 0.4 / (0.4 + 0.6 * 0.375^0.7)
	want := 0.4 / (0.4 + 0.6*math.Pow(0.375, 0.7))
	if math.Abs(c2[0].value-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, c2[0].value)
	}

	plain := fuse([]*speakerState{s1, s2}, 0)
	if plain["C2"][0].trackID != "A" {
		t.Errorf("expected A to win without exclusivity, got %+v", plain["C2"])
	}
}

func TestEmit_AmbiguityAnnotatesWithoutDropping(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	idx := newIndex(nil)
	idx.tracks["A"] = &trackSeries{persons: map[string]int{}}
	idx.tracks["B"] = &trackSeries{persons: map[string]int{}}
	st := &speakerState{id: "C1", words: 4, evidenceWords: 4, flags: map[ReasonCode]bool{}, pairs: map[string]*pairEvidence{
		"A": {weight: 0.55}, "B": {weight: 0.45},
	}}
	edges, summary := b.emit(idx, st, []posterior{{"A", 0.55}, {"B", 0.45}})
	if len(edges) != 2 {
		t.Fatalf("expected both edges kept, got %d", len(edges))
	}
	want := fmt.Sprint([]ReasonCode{ReasonAmbiguousTop2Gap, ReasonLowTopPosterior})
	for _, e := range edges {
		if fmt.Sprint(e.Confidence.Reasons) != want {
			t.Errorf("edge %s: expected %s, got %v", e.TrackID, want, e.Confidence.Reasons)
		}
	}
	if math.Abs(summary.EmittedMass-1) > 1e-12 {
		t.Errorf("expected emitted mass 1, got %v", summary.EmittedMass)
	}
}

func TestEmit_MinPosteriorTruncates(t *testing.T) {
	b := NewBuilder(DefaultConfig())
	idx := newIndex(nil)
	idx.tracks["A"] = &trackSeries{persons: map[string]int{}}
	idx.tracks["B"] = &trackSeries{persons: map[string]int{}}
	st := &speakerState{id: "C1", flags: map[ReasonCode]bool{}, pairs: map[string]*pairEvidence{
		"A": {weight: 0.97}, "B": {weight: 0.03},
	}}
	edges, summary := b.emit(idx, st, []posterior{{"A", 0.97}, {"B", 0.03}})
	if len(edges) != 1 {
		t.Fatalf("expected B truncated, got %d edges", len(edges))
	}
	if summary.Candidates != 2 {
		t.Errorf("expected 2 candidates, got %d", summary.Candidates)
	}
	if math.Abs(summary.EmittedMass-0.97) > 1e-12 {
		t.Errorf("expected emitted mass 0.97, got %v", summary.EmittedMass)
	}
}

func strPtr(s string) *string { return &s }
