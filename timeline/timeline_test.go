package timeline

import (
	"context"
	"math"
	"testing"

	"github.com/kbukum/speakerbind/binding"
	"github.com/kbukum/speakerbind/diarization"
	"github.com/kbukum/speakerbind/transcript"
)

func word(id, speaker string, start, end float64) transcript.Word {
	w := transcript.Word{ID: id, SourceStart: transcript.FromSeconds(start), SourceEnd: transcript.FromSeconds(end)}
	if speaker != "" {
		w.SpeakerID = &speaker
	}
	return w
}

func fixture() (*diarization.Result, *binding.Graph) {
	diar := &diarization.Result{
		Words: []transcript.Word{
			word("w1", "C1", 0.0, 0.5),
			word("w2", "C1", 0.6, 1.0),
			word("w3", "C2", 1.2, 1.6),
			word("w4", transcript.SentinelSpeakerID, 1.7, 1.9),
			word("w5", "C2", 2.0, 2.4),
			word("w6", "C1", 6.0, 6.5),
		},
		Speakers: []diarization.Speaker{
			{ID: "C1", Label: "T1", FirstSeen: 0, Words: 3},
			{ID: "C2", Label: "T2", FirstSeen: transcript.FromSeconds(1.2), Words: 2},
			{ID: transcript.SentinelSpeakerID, Label: transcript.SentinelLabel, FirstSeen: transcript.FromSeconds(1.7), Words: 1},
		},
	}
	person := "p-7"
	graph := &binding.Graph{
		Edges: []binding.Edge{
			{ID: "e1", SpeakerID: "C1", TrackID: "face-a", PersonID: &person, Posterior: 0.9},
			{ID: "e2", SpeakerID: "C1", TrackID: "face-b", Posterior: 0.1},
		},
		Speakers: []binding.SpeakerSummary{
			{SpeakerID: "C1", Words: 3, EvidenceWords: 3, Candidates: 2, EmittedMass: 1, Reasons: []binding.ReasonCode{}},
			{SpeakerID: "C2", Words: 2, Reasons: []binding.ReasonCode{binding.ReasonMissingFaceEvidence, binding.ReasonFrameUnmatched}},
		},
	}
	return diar, graph
}

func TestBuild_Spans(t *testing.T) {
	diar, graph := fixture()
	tl, err := NewBuilder(DefaultConfig()).Build(context.Background(), diar, graph, 10)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := []struct {
		speaker, first, last string
		words                int
	}{
		{"C1", "w1", "w2", 2},
		{"C2", "w3", "w3", 1},
		{"C2", "w5", "w5", 1},
		{"C1", "w6", "w6", 1},
	}
	if len(tl.Spans) != len(want) {
		t.Fatalf("expected %d spans, got %+v", len(want), tl.Spans)
	}
	for i, w := range want {
		s := tl.Spans[i]
		if s.SpeakerID != w.speaker || s.FirstWordID != w.first || s.LastWordID != w.last || s.Words != w.words {
			t.Errorf("span %d: expected %+v, got %+v", i, w, s)
		}
	}
	if tl.Spans[0].Label != "T1" {
		t.Errorf("expected label T1, got %s", tl.Spans[0].Label)
	}
}

func TestBuild_SpeakerLifecycle(t *testing.T) {
	diar, graph := fixture()
	tl, err := NewBuilder(DefaultConfig()).Build(context.Background(), diar, graph, 40)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(tl.Speakers) != 2 {
		t.Fatalf("expected the sentinel to be excluded, got %+v", tl.Speakers)
	}

	c1 := tl.Speakers[0]
	if c1.BornAt != 0 || c1.LastActiveAt != transcript.FromSeconds(6.5) {
		t.Errorf("expected C1 active 0..6.5s, got %v..%v", c1.BornAt, c1.LastActiveAt)
	}
	if !c1.Frozen {
		t.Error("expected C1 frozen 33.5s before the clip end")
	}
	if c1.BestFace == nil || c1.BestFace.TrackID != "face-a" || *c1.BestFace.PersonID != "p-7" {
		t.Errorf("expected best face face-a/p-7, got %+v", c1.BestFace)
	}
	if math.Abs(c1.Confidence-0.9) > 1e-12 || c1.Level != binding.LevelHigh {
		t.Errorf("expected confidence 0.9 high, got %v %s", c1.Confidence, c1.Level)
	}
	if c1.Spans != 2 || math.Abs(c1.SpeakingSeconds-1.5) > 1e-9 {
		t.Errorf("expected 2 spans over 1.5s, got %d over %v", c1.Spans, c1.SpeakingSeconds)
	}

	c2 := tl.Speakers[1]
	if c2.BestFace != nil || c2.Confidence != 0 || c2.Level != binding.LevelNone {
		t.Errorf("expected C2 unbound, got %+v", c2)
	}
	if len(c2.Reasons) != 2 || c2.Reasons[0] != binding.ReasonMissingFaceEvidence {
		t.Errorf("expected missing face evidence, got %v", c2.Reasons)
	}
}

func TestBuild_CoverageScalesConfidence(t *testing.T) {
	diar, graph := fixture()
	graph.Speakers[0].EvidenceWords = 1
	tl, err := NewBuilder(DefaultConfig()).Build(context.Background(), diar, graph, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := tl.Speakers[0].Confidence; math.Abs(got-0.3) > 1e-12 {
		t.Errorf("expected 0.9 * 1/3, got %v", got)
	}
	if tl.ClipSeconds != 6.5 {
		t.Errorf("expected clip length from the last word, got %v", tl.ClipSeconds)
	}
	if tl.Speakers[0].Frozen {
		t.Error("expected no freezing at the clip end")
	}
}

func TestBuild_Empty(t *testing.T) {
	tl, err := NewBuilder(DefaultConfig()).Build(context.Background(), &diarization.Result{}, nil, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(tl.Speakers) != 0 || len(tl.Spans) != 0 {
		t.Errorf("expected empty timeline, got %+v", tl)
	}
}

func TestBuild_GapSplitsSpan(t *testing.T) {
	diar := &diarization.Result{
		Words: []transcript.Word{
			word("a", "C1", 0, 0.5),
			word("b", "C1", 1.5, 2.0),
			word("c", "C1", 4.0, 4.5),
		},
		Speakers: []diarization.Speaker{{ID: "C1", Label: "T1"}},
	}
	tl, err := NewBuilder(DefaultConfig()).Build(context.Background(), diar, nil, 0)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(tl.Spans) != 2 || tl.Spans[0].Words != 2 {
		t.Errorf("expected a 1.0s gap to join and a 2.0s gap to split, got %+v", tl.Spans)
	}
}
