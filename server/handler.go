package server

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerbind/artifact"
	"github.com/kbukum/speakerbind/audio"
	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/job"
	"github.com/kbukum/speakerbind/observability"
	"github.com/kbukum/speakerbind/server/middleware"
	"github.com/kbukum/speakerbind/validation"
	"github.com/kbukum/speakerbind/version"
)

// JobRunner runs one clip-level job. *job.Runner satisfies it.
type JobRunner interface {
	Run(ctx context.Context, req job.Request) (*job.Result, error)
}

// JobRequest is the POST /v1/jobs body. Audio arrives either as a
// base64-encoded WAV file or as mono float samples with their rate.
type JobRequest struct {
	job.Request

	AudioWAV   []byte    `json:"audio_wav,omitempty"`
	Samples    []float32 `json:"samples,omitempty"`
	SampleRate int       `json:"sample_rate,omitempty" validate:"gte=0"`
	SourceID   string    `json:"source_id,omitempty"`
}

// VersionResponse is the GET /version body.
type VersionResponse struct {
	*version.Info
	Schemas map[artifact.Kind]string `json:"schemas"`
}

// Handler serves the job, health and version routes.
type Handler struct {
	runner  JobRunner
	service string
	deps    []observability.Availability
}

// NewHandler creates a Handler. deps are probed by GET /healthz.
func NewHandler(runner JobRunner, service string, deps ...observability.Availability) *Handler {
	return &Handler{runner: runner, service: service, deps: deps}
}

func (h *Handler) register(r gin.IRouter, cfg Config) {
	r.GET("/healthz", h.health)
	r.GET("/version", h.version)
	r.POST("/v1/jobs",
		middleware.ConcurrencyLimit(cfg.MaxConcurrentJobs),
		middleware.BodySizeLimit(cfg.MaxBodySize),
		h.runJob,
	)
}

func (h *Handler) runJob(c *gin.Context) {
	var body JobRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(err)
		RespondWithError(c, errors.InvalidInput("body", "request body is not valid JSON").WithCause(err))
		return
	}
	if err := validation.Validate(&body); err != nil {
		RespondWithError(c, err)
		return
	}

	req := body.Request
	a, err := body.audio()
	if err != nil {
		RespondWithError(c, err)
		return
	}
	req.Audio = a

	res, err := h.runner.Run(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		RespondWithError(c, err)
		return
	}
	RespondOK(c, res)
}

func (r *JobRequest) audio() (embedding.Audio, error) {
	sourceID := r.SourceID
	if sourceID == "" {
		sourceID = r.ClipID
	}
	switch {
	case len(r.AudioWAV) > 0:
		return audio.ReadWAV(bytes.NewReader(r.AudioWAV), sourceID)
	case len(r.Samples) > 0:
		if r.SampleRate <= 0 {
			return embedding.Audio{}, errors.InvalidInput("sample_rate", "sample_rate is required with samples")
		}
		return embedding.Audio{SourceID: sourceID, SampleRate: r.SampleRate, Samples: r.Samples}, nil
	default:
		return embedding.Audio{}, errors.InvalidInput("audio", "one of audio_wav or samples is required")
	}
}

func (h *Handler) health(c *gin.Context) {
	sh := observability.NewServiceHealth(h.service, version.GetShortVersion())
	for _, d := range h.deps {
		sh.AddComponent(observability.CheckAvailability(c.Request.Context(), d))
	}
	status := http.StatusOK
	if sh.Status != observability.HealthStatusUp {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, sh)
}

func (h *Handler) version(c *gin.Context) {
	schemas := map[artifact.Kind]string{}
	for _, k := range []artifact.Kind{artifact.KindDiarization, artifact.KindBindingGraph, artifact.KindTimeline} {
		schemas[k] = k.Schema()
	}
	c.JSON(http.StatusOK, VersionResponse{Info: version.GetVersionInfo(), Schemas: schemas})
}
