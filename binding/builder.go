package binding

import (
	"cmp"
	"context"
	"math"
	"slices"

	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/transcript"
	"github.com/kbukum/speakerbind/util"
)

// reasonOrder is the canonical order reason codes are reported in.
var reasonOrder = []ReasonCode{
	ReasonAmbiguousTop2Gap,
	ReasonLowTopPosterior,
	ReasonSingleCandidateTrack,
	ReasonMissingFaceEvidence,
	ReasonTinyFaceFiltered,
	ReasonFrameUnmatched,
}

// Builder computes identity binding graphs.
type Builder struct {
	cfg Config
	log *logger.Logger
}

// NewBuilder creates a Builder with cfg.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg, log: logger.Get("binding")}
}

// candidate is one face competing for a word.
type candidate struct {
	face  Face
	area  float64
	score float64
}

// pairEvidence accumulates the soft evidence for one (speaker, track) pair.
type pairEvidence struct {
	weight      float64
	words       int
	wordIDs     []string
	firstSample float64
	lastSample  float64
}

// speakerState accumulates everything seen for one speaker.
type speakerState struct {
	id            string
	words         int
	evidenceWords int
	flags         map[ReasonCode]bool
	pairs         map[string]*pairEvidence
}

// Build binds every attributed speaker in words to the face tracks in
// samples. Words without a speaker or with the sentinel id are ignored.
// Missing frames or faces never fail the build; they surface as reason codes.
func (b *Builder) Build(ctx context.Context, samples []VideoSample, words []transcript.Word) (*Graph, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	idx := newIndex(samples)

	var order []*speakerState
	states := make(map[string]*speakerState)
	for _, w := range words {
		id := w.Speaker()
		if id == "" || id == transcript.SentinelSpeakerID {
			continue
		}
		st, ok := states[id]
		if !ok {
			st = &speakerState{id: id, flags: make(map[ReasonCode]bool), pairs: make(map[string]*pairEvidence)}
			states[id] = st
			order = append(order, st)
		}
		st.words++
		b.accumulate(idx, st, w)
	}

	graph := &Graph{AnalyzedSeconds: idx.analyzedSeconds(), Edges: []Edge{}, Speakers: []SpeakerSummary{}}
	posteriors := fuse(order, b.cfg.ExclusivityExponent)
	for _, st := range order {
		edges, summary := b.emit(idx, st, posteriors[st.id])
		graph.Edges = append(graph.Edges, edges...)
		graph.Speakers = append(graph.Speakers, summary)
	}

	b.log.WithContext(ctx).Debug("binding graph built", logger.Fields(
		"speakers", len(graph.Speakers),
		"edges", len(graph.Edges),
		"frames", len(idx.frames),
		"tracks", len(idx.tracks),
	))
	return graph, nil
}

// accumulate adds one word's evidence to its speaker.
func (b *Builder) accumulate(idx *index, st *speakerState, w transcript.Word) {
	fr, ok := idx.nearestFrame(w.Midpoint(), b.cfg.FrameToleranceSeconds)
	if !ok {
		st.flags[ReasonFrameUnmatched] = true
		return
	}
	cands, filtered := b.candidates(fr)
	if filtered {
		st.flags[ReasonTinyFaceFiltered] = true
	}
	if len(cands) == 0 {
		return
	}
	b.score(idx, fr.time, cands)

	total, best := 0.0, 0.0
	for _, c := range cands {
		total += c.score
		best = max(best, c.score)
	}
	if total <= 0 {
		return
	}
	strength := best / total
	st.evidenceWords++
	for _, c := range cands {
		pe, ok := st.pairs[c.face.TrackID]
		if !ok {
			pe = &pairEvidence{firstSample: fr.time}
			st.pairs[c.face.TrackID] = pe
		}
		pe.weight += strength * c.score / total
		pe.words++
		pe.lastSample = fr.time
		if len(pe.wordIDs) < b.cfg.MaxProvenanceWords {
			pe.wordIDs = append(pe.wordIDs, w.ID)
		}
	}
}

// candidates filters tiny faces, keeps the TopK largest and drops faces far
// smaller than the largest kept one.
func (b *Builder) candidates(fr *frame) ([]candidate, bool) {
	var cands []candidate
	filtered := false
	for _, f := range fr.faces {
		area := f.Rect.Area()
		if area <= 0 || area < b.cfg.MinFaceArea {
			filtered = true
			continue
		}
		cands = append(cands, candidate{face: f, area: area})
	}
	slices.SortFunc(cands, func(a, c candidate) int {
		if r := cmp.Compare(c.area, a.area); r != 0 {
			return r
		}
		return cmp.Compare(a.face.TrackID, c.face.TrackID)
	})
	if len(cands) > b.cfg.TopK {
		cands = cands[:b.cfg.TopK]
	}
	if len(cands) == 0 {
		return nil, filtered
	}
	floor := b.cfg.RelativeAreaFloor * cands[0].area
	kept := []candidate{cands[0]}
	for _, c := range cands[1:] {
		if c.area >= floor {
			kept = append(kept, c)
		}
	}
	return kept, filtered
}

// score sets each candidate's geometry score scaled by its normalized
// motion, mouth-activity and mouth-openness evidence.
func (b *Builder) score(idx *index, t float64, cands []candidate) {
	motion := make([]float64, len(cands))
	activity := make([]float64, len(cands))
	open := make([]float64, len(cands))
	for i, c := range cands {
		ts := idx.tracks[c.face.TrackID]
		motion[i] = ts.motionEnergy(t, b.cfg.MotionWindowSeconds)
		activity[i] = ts.mouthActivity(t, b.cfg.MouthWindowSeconds)
		open[i] = ts.aboveBaseline(c.face)
	}
	normalizeByMax(motion)
	normalizeByMax(activity)
	normalizeByMax(open)

	for i := range cands {
		base := cands[i].area * (1 + b.cfg.CenterWeight*cands[i].face.Rect.CenterProximity())
		cands[i].score = base *
			(1 + b.cfg.MotionWeight*motion[i]) *
			(1 + b.cfg.MouthActivityWeight*activity[i]) *
			(1 + b.cfg.MouthOpenWeight*open[i])
	}
}

func normalizeByMax(values []float64) {
	top := 0.0
	for _, v := range values {
		top = max(top, v)
	}
	for i := range values {
		if top > 0 {
			values[i] /= top
		} else {
			values[i] = 0
		}
	}
}

// posterior is one track's full, pre-threshold posterior for a speaker.
type posterior struct {
	trackID string
	value   float64
}

// fuse turns the accumulated weights into per-speaker posteriors over
// tracks, sorted by descending posterior then track id. A track claimed by
// several speakers is discounted by P(speaker|track)^exponent.
func fuse(speakers []*speakerState, exponent float64) map[string][]posterior {
	byID := make(map[string]*speakerState, len(speakers))
	for _, st := range speakers {
		byID[st.id] = st
	}

	trackTotals := make(map[string]float64)
	for _, sid := range util.SortedKeys(byID) {
		pairs := byID[sid].pairs
		for _, tid := range util.SortedKeys(pairs) {
			trackTotals[tid] += pairs[tid].weight
		}
	}

	out := make(map[string][]posterior, len(speakers))
	for _, sid := range util.SortedKeys(byID) {
		pairs := byID[sid].pairs
		tracks := util.SortedKeys(pairs)
		speakerTotal := 0.0
		for _, tid := range tracks {
			speakerTotal += pairs[tid].weight
		}
		if speakerTotal <= 0 {
			continue
		}

		assoc := make([]posterior, 0, len(tracks))
		sum := 0.0
		for _, tid := range tracks {
			w := pairs[tid].weight
			if w <= 0 {
				continue
			}
			a := (w / speakerTotal) * math.Pow(w/trackTotals[tid], exponent)
			assoc = append(assoc, posterior{trackID: tid, value: a})
			sum += a
		}
		if sum <= 0 {
			continue
		}
		for i := range assoc {
			assoc[i].value /= sum
		}
		slices.SortStableFunc(assoc, func(a, c posterior) int {
			if r := cmp.Compare(c.value, a.value); r != 0 {
				return r
			}
			return cmp.Compare(a.trackID, c.trackID)
		})
		out[sid] = assoc
	}
	return out
}

// emit builds a speaker's edges and summary from its full posterior.
func (b *Builder) emit(idx *index, st *speakerState, post []posterior) ([]Edge, SpeakerSummary) {
	summary := SpeakerSummary{
		SpeakerID:     st.id,
		Words:         st.words,
		EvidenceWords: st.evidenceWords,
		Candidates:    len(post),
	}
	flags := st.flags
	if len(post) == 0 {
		flags[ReasonMissingFaceEvidence] = true
	} else {
		top, second := post[0].value, 0.0
		if len(post) > 1 {
			second = post[1].value
		} else {
			flags[ReasonSingleCandidateTrack] = true
		}
		if len(post) > 1 && top-second < b.cfg.AmbiguityMinGap {
			flags[ReasonAmbiguousTop2Gap] = true
		}
		if top < b.cfg.ConfidentPosterior {
			flags[ReasonLowTopPosterior] = true
		}
	}
	summary.Reasons = reasons(flags)

	var edges []Edge
	for _, p := range post {
		if p.value < b.cfg.MinPosterior {
			continue
		}
		pe := st.pairs[p.trackID]
		edges = append(edges, Edge{
			ID:        util.StableID("binding", st.id, p.trackID),
			SpeakerID: st.id,
			TrackID:   p.trackID,
			PersonID:  idx.tracks[p.trackID].person(),
			Posterior: p.value,
			Confidence: Confidence{
				Score:   p.value,
				Level:   LevelFor(p.value),
				Reasons: reasons(flags),
			},
			Provenance: Provenance{
				WordIDs:     slices.Clone(pe.wordIDs),
				Words:       pe.words,
				Weight:      pe.weight,
				FirstSample: pe.firstSample,
				LastSample:  pe.lastSample,
			},
		})
		summary.EmittedMass += p.value
	}
	return edges, summary
}

func reasons(flags map[ReasonCode]bool) []ReasonCode {
	out := []ReasonCode{}
	for _, r := range reasonOrder {
		if flags[r] {
			out = append(out, r)
		}
	}
	return out
}
