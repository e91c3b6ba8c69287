package job

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/kbukum/speakerbind/artifact"
	"github.com/kbukum/speakerbind/binding"
	"github.com/kbukum/speakerbind/diarization"
	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/observability"
	"github.com/kbukum/speakerbind/timeline"
	"github.com/kbukum/speakerbind/transcript"
)

// Request is the materialized input of one job.
type Request struct {
	ClipID   string                    `json:"clip_id" validate:"required"`
	Audio    embedding.Audio           `json:"-"`
	Segments []transcript.AudioSegment `json:"segments" validate:"dive"`
	Words    []transcript.Word         `json:"words" validate:"dive"`
	Video    []binding.VideoSample     `json:"video" validate:"dive"`
}

// Result holds every stage output of a finished job.
type Result struct {
	Provenance  artifact.Provenance `json:"provenance"`
	Diarization *diarization.Result `json:"diarization"`
	Graph       *binding.Graph      `json:"identity_binding_graph"`
	Timeline    *timeline.Timeline  `json:"identity_timeline"`
	// Published lists the storage keys written, when a publisher is set.
	Published []string `json:"published,omitempty"`
}

// Bundle wraps the result in schema-versioned envelopes.
func (r *Result) Bundle() *artifact.Bundle {
	return artifact.NewBundle(r.Provenance, r.Diarization, r.Graph, r.Timeline)
}

// Runner runs jobs against one configured set of stages.
type Runner struct {
	diarizer  *diarization.Diarizer
	binder    *binding.Builder
	timeline  *timeline.Builder
	bindCfg   binding.Config
	tlCfg     timeline.Config
	publisher *artifact.Publisher
	metrics   *observability.Metrics
	log       *logger.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithPublisher publishes the artifacts of every successful job.
func WithPublisher(p *artifact.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithMetrics records job metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger replaces the "job" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l.WithComponent("job") }
}

// NewRunner creates a Runner.
func NewRunner(diarizer *diarization.Diarizer, bindCfg binding.Config, tlCfg timeline.Config, opts ...Option) *Runner {
	r := &Runner{
		diarizer: diarizer,
		binder:   binding.NewBuilder(bindCfg),
		timeline: timeline.NewBuilder(tlCfg),
		bindCfg:  bindCfg,
		tlCfg:    tlCfg,
		log:      logger.Get("job"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the job. Expected gaps (no speech, no faces, no words) yield a
// complete, possibly empty result; only hard input or provider errors fail it.
func (r *Runner) Run(ctx context.Context, req Request) (res *Result, err error) {
	if req.ClipID == "" {
		return nil, errors.InvalidInput("clip_id", "clip_id is required")
	}
	if r.diarizer == nil {
		return nil, errors.InvalidConfig("job requires a diarizer")
	}

	runID, err := r.digest(req)
	if err != nil {
		return nil, err
	}
	prov := artifact.NewProvenance(req.ClipID, runID)
	log := r.log.WithContext(ctx).WithFields(logger.Fields("clip_id", req.ClipID, "run_id", prov.RunID))

	ctx, stage := observability.StartStage(ctx, r.metrics, observability.SpanJob)
	observability.SetSpanAttribute(ctx, observability.AttrClipID, req.ClipID)
	observability.SetSpanAttribute(ctx, observability.AttrRunID, prov.RunID)
	defer func() {
		stage.End(ctx, err)
		status := "ok"
		if err != nil {
			status = "error"
			log.Error("job failed", logger.ErrorFields("run", err))
		}
		r.metrics.RecordJob(ctx, status)
	}()

	log.Info("job started", logger.Fields(
		"words", len(req.Words),
		"segments", len(req.Segments),
		"video_samples", len(req.Video),
		"audio_seconds", req.Audio.Duration(),
	))

	res = &Result{Provenance: prov}

	if res.Diarization, err = r.diarize(ctx, req); err != nil {
		return nil, err
	}
	if res.Graph, err = r.bind(ctx, req, res.Diarization); err != nil {
		return nil, err
	}
	if res.Timeline, err = r.buildTimeline(ctx, res.Diarization, res.Graph); err != nil {
		return nil, err
	}

	if r.publisher != nil {
		if res.Published, err = r.publish(ctx, req.ClipID, res); err != nil {
			return nil, err
		}
	}

	log.Info("job complete", logger.Fields(
		"speakers", len(res.Diarization.Speakers),
		"edges", len(res.Graph.Edges),
		"spans", len(res.Timeline.Spans),
		"duration_ms", stage.Duration().Milliseconds(),
	))
	return res, nil
}

func (r *Runner) diarize(ctx context.Context, req Request) (res *diarization.Result, err error) {
	ctx, stage := observability.StartStage(ctx, r.metrics, observability.SpanDiarize)
	defer func() { stage.End(ctx, err) }()

	res, err = r.diarizer.Run(ctx, diarization.Input{Audio: req.Audio, Segments: req.Segments, Words: req.Words})
	if err != nil {
		return nil, err
	}
	rep := res.Report
	r.metrics.RecordDiarization(ctx, rep.Windows.Embedded, rep.Cleanup.ClustersAfter)
	observability.SetSpanAttribute(ctx, observability.AttrWords, len(res.Words))
	observability.SetSpanAttribute(ctx, observability.AttrWindowsEmbedded, rep.Windows.Embedded)
	observability.SetSpanAttribute(ctx, observability.AttrClusters, rep.Cleanup.ClustersAfter)
	observability.SetSpanAttribute(ctx, observability.AttrRegime, string(rep.Regime))
	observability.SetSpanAttribute(ctx, observability.AttrSpeakers, len(res.Speakers))
	return res, nil
}

func (r *Runner) bind(ctx context.Context, req Request, diar *diarization.Result) (g *binding.Graph, err error) {
	ctx, stage := observability.StartStage(ctx, r.metrics, observability.SpanBind)
	defer func() { stage.End(ctx, err) }()

	g, err = r.binder.Build(ctx, req.Video, diar.Words)
	if err != nil {
		return nil, err
	}
	r.metrics.RecordEdges(ctx, len(g.Edges))
	observability.SetSpanAttribute(ctx, observability.AttrEdges, len(g.Edges))
	return g, nil
}

func (r *Runner) buildTimeline(ctx context.Context, diar *diarization.Result, g *binding.Graph) (tl *timeline.Timeline, err error) {
	ctx, stage := observability.StartStage(ctx, r.metrics, observability.SpanTimeline)
	defer func() { stage.End(ctx, err) }()

	tl, err = r.timeline.Build(ctx, diar, g, diar.Report.ClipSeconds)
	if err != nil {
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrSpans, len(tl.Spans))
	return tl, nil
}

func (r *Runner) publish(ctx context.Context, clipID string, res *Result) (keys []string, err error) {
	ctx, stage := observability.StartStage(ctx, r.metrics, observability.SpanPublish)
	defer func() { stage.End(ctx, err) }()
	return r.publisher.Publish(ctx, clipID, res.Bundle())
}

// digest fingerprints the request and stage configuration. Two jobs with the
// same digest produce byte-identical artifacts. Values JSON cannot encode,
// such as NaN coordinates, are rejected rather than left out.
func (r *Runner) digest(req Request) (string, error) {
	h := sha256.New()
	err := json.NewEncoder(h).Encode(struct {
		Diarization diarization.Config        `json:"diarization"`
		Binding     binding.Config            `json:"binding"`
		Timeline    timeline.Config           `json:"timeline"`
		SourceID    string                    `json:"source_id"`
		Audio       string                    `json:"audio"`
		Segments    []transcript.AudioSegment `json:"segments"`
		Words       []transcript.Word         `json:"words"`
		Video       []binding.VideoSample     `json:"video"`
	}{
		Diarization: r.diarizer.Config(),
		Binding:     r.bindCfg,
		Timeline:    r.tlCfg,
		SourceID:    req.Audio.SourceID,
		Audio:       req.Audio.Digest(),
		Segments:    req.Segments,
		Words:       req.Words,
		Video:       req.Video,
	})
	if err != nil {
		return "", errors.InvalidInput("request", "request is not encodable: "+err.Error())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
