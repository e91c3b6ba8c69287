package artifact

import (
	"github.com/kbukum/speakerbind/binding"
	"github.com/kbukum/speakerbind/diarization"
	"github.com/kbukum/speakerbind/timeline"
	"github.com/kbukum/speakerbind/util"
	"github.com/kbukum/speakerbind/version"
)

// Schema versions.
const (
	SchemaDiarization  = "speakerbind.diarization/v1"
	SchemaBindingGraph = "speakerbind.identity_binding_graph/v1"
	SchemaTimeline     = "speakerbind.identity_timeline/v1"
)

// Kind names an artifact. It doubles as the object name under a clip.
type Kind string

// Artifact kinds.
const (
	KindDiarization  Kind = "diarization"
	KindBindingGraph Kind = "identity_binding_graph"
	KindTimeline     Kind = "identity_timeline"
)

// Schema returns the schema version written for k.
func (k Kind) Schema() string {
	switch k {
	case KindDiarization:
		return SchemaDiarization
	case KindBindingGraph:
		return SchemaBindingGraph
	case KindTimeline:
		return SchemaTimeline
	default:
		return ""
	}
}

// Provenance records which build produced an artifact and for which clip.
// RunID is derived from the clip id and a caller-supplied digest of the
// inputs, never from wall-clock time.
type Provenance struct {
	Generator string `json:"generator" yaml:"generator"`
	Version   string `json:"version" yaml:"version"`
	ClipID    string `json:"clip_id" yaml:"clip_id"`
	RunID     string `json:"run_id" yaml:"run_id"`
}

// NewProvenance builds provenance for clipID. digest identifies the inputs
// and configuration of the run.
func NewProvenance(clipID string, digest ...string) Provenance {
	parts := append([]string{"run", clipID}, digest...)
	return Provenance{
		Generator: "speakerbind",
		Version:   version.Version,
		ClipID:    clipID,
		RunID:     util.StableID(parts...),
	}
}

// Envelope is the on-disk shape of every artifact.
type Envelope[T any] struct {
	SchemaVersion string     `json:"schema_version" yaml:"schema_version"`
	Provenance    Provenance `json:"provenance" yaml:"provenance"`
	Data          T          `json:"data" yaml:"data"`
}

// Bundle holds the three artifacts of one job.
type Bundle struct {
	Diarization  *Envelope[diarization.Result] `json:"diarization,omitempty" yaml:"diarization,omitempty"`
	BindingGraph *Envelope[binding.Graph]      `json:"identity_binding_graph,omitempty" yaml:"identity_binding_graph,omitempty"`
	Timeline     *Envelope[timeline.Timeline]  `json:"identity_timeline,omitempty" yaml:"identity_timeline,omitempty"`
}

// NewBundle wraps the stage results under a shared provenance.
func NewBundle(p Provenance, diar *diarization.Result, graph *binding.Graph, tl *timeline.Timeline) *Bundle {
	b := &Bundle{}
	if diar != nil {
		b.Diarization = &Envelope[diarization.Result]{SchemaVersion: SchemaDiarization, Provenance: p, Data: *diar}
	}
	if graph != nil {
		b.BindingGraph = &Envelope[binding.Graph]{SchemaVersion: SchemaBindingGraph, Provenance: p, Data: *graph}
	}
	if tl != nil {
		b.Timeline = &Envelope[timeline.Timeline]{SchemaVersion: SchemaTimeline, Provenance: p, Data: *tl}
	}
	return b
}

// items lists the bundle's envelopes in publishing order.
func (b *Bundle) items() []item {
	var out []item
	if b.Diarization != nil {
		out = append(out, item{KindDiarization, b.Diarization})
	}
	if b.BindingGraph != nil {
		out = append(out, item{KindBindingGraph, b.BindingGraph})
	}
	if b.Timeline != nil {
		out = append(out, item{KindTimeline, b.Timeline})
	}
	return out
}

type item struct {
	kind Kind
	v    any
}
