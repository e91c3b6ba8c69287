package artifact

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kbukum/speakerbind/binding"
	"github.com/kbukum/speakerbind/diarization"
	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/storage"
	"github.com/kbukum/speakerbind/storage/local"
	"github.com/kbukum/speakerbind/timeline"
	"github.com/kbukum/speakerbind/transcript"
	"github.com/kbukum/speakerbind/util"
)

func sampleBundle() *Bundle {
	diar := &diarization.Result{
		Words: []transcript.Word{
			{ID: "w1", Text: "hello", SourceStart: 0, SourceEnd: 30000, SpeakerID: util.Ptr("C1"), SpeakerLabel: util.Ptr("T1")},
			{ID: "w2", Text: "there", SourceStart: 30000, SourceEnd: 60000, SpeakerID: util.Ptr("C1"), SpeakerLabel: util.Ptr("T1")},
		},
		Speakers: []diarization.Speaker{{ID: "C1", Label: "T1", FirstSeen: 0, Words: 2}},
		Report: diarization.Report{
			Gate:        diarization.Gate{Intervals: []diarization.Interval{{Start: 0, End: 1}}, Source: "speech_like"},
			ClipSeconds: 1,
		},
	}
	graph := &binding.Graph{
		AnalyzedSeconds: 1,
		Edges: []binding.Edge{{
			ID:        util.StableID("binding", "C1", "face-a"),
			SpeakerID: "C1",
			TrackID:   "face-a",
			Posterior: 1,
			Confidence: binding.Confidence{
				Score:   0.9,
				Level:   binding.LevelHigh,
				Reasons: []binding.ReasonCode{binding.ReasonSingleCandidateTrack},
			},
			Provenance: binding.Provenance{WordIDs: []string{"w1", "w2"}, Words: 2, Weight: 2, LastSample: 1},
		}},
		Speakers: []binding.SpeakerSummary{{SpeakerID: "C1", Words: 2, EvidenceWords: 2, Candidates: 1, EmittedMass: 1, Reasons: []binding.ReasonCode{}}},
	}
	tl := &timeline.Timeline{
		ClipSeconds: 1,
		Speakers: []timeline.Speaker{{
			SpeakerID: "C1", Label: "T1", LastActiveAt: 60000, Words: 2, SpeakingSeconds: 1, Spans: 1,
			Confidence: 1, Level: binding.LevelHigh, Reasons: []binding.ReasonCode{},
			BestFace: &timeline.FaceBinding{TrackID: "face-a", EdgeID: "e", Posterior: 1},
		}},
		Spans: []timeline.Span{{SpeakerID: "C1", Label: "T1", End: 60000, FirstWordID: "w1", LastWordID: "w2", Words: 2}},
	}
	return NewBundle(NewProvenance("clip-1", "digest"), diar, graph, tl)
}

func TestKind_Schema(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindDiarization, SchemaDiarization},
		{KindBindingGraph, SchemaBindingGraph},
		{KindTimeline, SchemaTimeline},
		{Kind("other"), ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Schema(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewProvenance_Deterministic(t *testing.T) {
	a := NewProvenance("clip-1", "x")
	b := NewProvenance("clip-1", "x")
	c := NewProvenance("clip-1", "y")
	if a != b {
		t.Errorf("expected identical provenance, got %+v and %+v", a, b)
	}
	if a.RunID == c.RunID {
		t.Error("expected different digests to yield different run ids")
	}
	if a.Generator != "speakerbind" || a.ClipID != "clip-1" {
		t.Errorf("unexpected provenance %+v", a)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			b := sampleBundle()

			data, err := Marshal(b.BindingGraph, f)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			env, err := Decode[binding.Graph](data, f, SchemaBindingGraph)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Provenance != b.BindingGraph.Provenance {
				t.Errorf("expected provenance %+v, got %+v", b.BindingGraph.Provenance, env.Provenance)
			}
			if len(env.Data.Edges) != 1 || env.Data.Edges[0].Confidence.Reasons[0] != binding.ReasonSingleCandidateTrack {
				t.Fatalf("unexpected edges %+v", env.Data.Edges)
			}

			again, err := Marshal(env, f)
			if err != nil {
				t.Fatalf("re-marshal: %v", err)
			}
			if !bytes.Equal(data, again) {
				t.Errorf("expected stable encoding, got\n%s\nvs\n%s", data, again)
			}
		})
	}
}

func TestDecode_DiarizationWords(t *testing.T) {
	b := sampleBundle()
	data, err := Marshal(b.Diarization, FormatYAML)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	env, err := Decode[diarization.Result](data, FormatYAML, SchemaDiarization)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := util.Deref(env.Data.Words[1].SpeakerLabel); got != "T1" {
		t.Errorf("expected label T1, got %q", got)
	}
	if env.Data.Words[1].SourceStart != 30000 {
		t.Errorf("expected tick 30000, got %d", env.Data.Words[1].SourceStart)
	}
}

func TestDecode_SchemaMismatch(t *testing.T) {
	b := sampleBundle()
	data, err := Marshal(b.Timeline, FormatJSON)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	_, err = Decode[binding.Graph](data, FormatJSON, SchemaBindingGraph)
	if !errors.HasCode(err, errors.ErrCodeSchemaMismatch) {
		t.Fatalf("expected SCHEMA_MISMATCH, got %v", err)
	}

	future := strings.Replace(string(data), SchemaTimeline, "speakerbind.identity_timeline/v2", 1)
	_, err = Decode[timeline.Timeline]([]byte(future), FormatJSON, SchemaTimeline)
	if !errors.HasCode(err, errors.ErrCodeSchemaMismatch) {
		t.Errorf("expected SCHEMA_MISMATCH for v2, got %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode[timeline.Timeline]([]byte("{not json"), FormatJSON, SchemaTimeline)
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"toml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	store, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	p := NewPublisher(store, storage.Config{Prefix: "runs"}, FormatJSON, nil)

	keys, err := p.Publish(ctx, "clip-1", sampleBundle())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	want := []string{
		"runs/clip-1/diarization.json",
		"runs/clip-1/identity_binding_graph.json",
		"runs/clip-1/identity_timeline.json",
	}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %v", len(want), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("expected key %q, got %q", want[i], keys[i])
		}
	}

	data, err := storage.GetBytes(ctx, store, keys[2])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	env, err := Decode[timeline.Timeline](data, FormatJSON, SchemaTimeline)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Speakers[0].BestFace.TrackID != "face-a" {
		t.Errorf("expected best face face-a, got %+v", env.Data.Speakers[0].BestFace)
	}
}

func TestPublisher_YAMLPath(t *testing.T) {
	p := NewPublisher(nil, storage.Config{}, FormatYAML, nil)
	if got := p.Path("c", KindTimeline); got != "c/identity_timeline.yaml" {
		t.Errorf("expected c/identity_timeline.yaml, got %q", got)
	}
}
