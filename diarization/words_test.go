package diarization

import (
	"fmt"
	"testing"

	"github.com/kbukum/speakerbind/cluster"
	"github.com/kbukum/speakerbind/transcript"
)

func TestNearestWindow(t *testing.T) {
	assignments := []cluster.Assignment{
		{Midpoint: 0.5, ClusterID: "C1"},
		{Midpoint: 1.5, ClusterID: "C2"},
		{Midpoint: 2.5, ClusterID: "C1"},
	}
	tests := []struct {
		name string
		t    float64
		id   string
		ok   bool
	}{
		{"exact", 1.5, "C2", true},
		{"tie goes to earlier", 1.0, "C1", true},
		{"before first", 0.0, "C1", true},
		{"after last within tolerance", 3.9, "C1", true},
		{"beyond tolerance", 7.5, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := nearestWindow(assignments, tc.t, 1.5)
			if id != tc.id || ok != tc.ok {
				t.Errorf("expected (%q, %v), got (%q, %v)", tc.id, tc.ok, id, ok)
			}
		})
	}
	if _, ok := nearestWindow(nil, 1, 1); ok {
		t.Error("expected no match without windows")
	}
}

func speakerWords(ids ...string) []transcript.Word {
	words := make([]transcript.Word, len(ids))
	for i, id := range ids {
		words[i] = transcript.Word{
			ID:          fmt.Sprintf("w%d", i),
			SourceStart: transcript.Tick(i * transcript.TicksPerSecond),
			SourceEnd:   transcript.Tick(i*transcript.TicksPerSecond + 1000),
		}
		if id != "" {
			words[i].SpeakerID = ptr(id)
		}
	}
	return words
}

func repeat(id string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = id
	}
	return out
}

func TestCollapseRare(t *testing.T) {
	var ids []string
	ids = append(ids, repeat("C1", 10)...)
	ids = append(ids, repeat("C2", 10)...)
	ids = append(ids, "C5")
	ids = append(ids, repeat("C3", 10)...)
	ids = append(ids, repeat("C4", 10)...)
	ids = append(ids, "C6", "C6")
	words := speakerWords(ids...)

	out := collapseRare(words, DefaultConfig())
	if len(out.Collapsed) != 2 || out.Collapsed[0] != "C5" || out.Collapsed[1] != "C6" {
		t.Fatalf("expected C5 and C6 collapsed, got %v", out.Collapsed)
	}
	if got := words[20].Speaker(); got != "C2" {
		t.Errorf("expected tie between neighbours to pick the earlier C2, got %s", got)
	}
	if got := words[len(words)-1].Speaker(); got != "C4" {
		t.Errorf("expected trailing rare word to join C4, got %s", got)
	}
	if out.Reassigned != 3 || out.Unattributed != 0 {
		t.Errorf("expected 3 reassigned, got %+v", out)
	}
}

func TestCollapseRare_BelowSpeakerCount(t *testing.T) {
	words := speakerWords("C1", "C1", "C1", "C2", "C3", "C4")
	out := collapseRare(words, DefaultConfig())
	if len(out.Collapsed) != 0 {
		t.Errorf("expected no collapse with 4 speakers, got %v", out.Collapsed)
	}
}

func TestCollapseRare_NoDonorFallsBackToSentinel(t *testing.T) {
	words := speakerWords("C1", "C2", "C3", "C4", "C5")
	out := collapseRare(words, DefaultConfig())
	if out.Unattributed != 5 {
		t.Fatalf("expected every word unattributed, got %+v", out)
	}
	for i, w := range words {
		if w.Speaker() != transcript.SentinelSpeakerID {
			t.Errorf("word %d: expected sentinel, got %s", i, w.Speaker())
		}
	}
}

func TestLabelSpeakers_FirstOccurrenceOrder(t *testing.T) {
	words := speakerWords("C2", "C1", transcript.SentinelSpeakerID, "C2", "C3", "")
	gated := []bool{true, true, true, true, true, false}

	speakers := labelSpeakers(words, gated)
	want := []struct{ id, label string }{
		{"C2", "T1"}, {"C1", "T2"}, {"C3", "T3"}, {transcript.SentinelSpeakerID, transcript.SentinelLabel},
	}
	if len(speakers) != len(want) {
		t.Fatalf("expected %d speakers, got %+v", len(want), speakers)
	}
	for i, w := range want {
		if speakers[i].ID != w.id || speakers[i].Label != w.label {
			t.Errorf("speaker %d: expected %s/%s, got %s/%s", i, w.id, w.label, speakers[i].ID, speakers[i].Label)
		}
	}
	if speakers[0].Words != 2 {
		t.Errorf("expected C2 to hold 2 words, got %d", speakers[0].Words)
	}
	if *words[3].SpeakerLabel != "T1" {
		t.Errorf("expected word 3 labelled T1, got %s", *words[3].SpeakerLabel)
	}
	if words[5].SpeakerLabel != nil {
		t.Error("expected ungated word to stay unlabelled")
	}
}
