package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerbind/artifact"
	"github.com/kbukum/speakerbind/audio"
	"github.com/kbukum/speakerbind/binding"
	"github.com/kbukum/speakerbind/diarization"
	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/embedding/embeddingtest"
	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/job"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/observability"
	"github.com/kbukum/speakerbind/timeline"
	"github.com/kbukum/speakerbind/transcript"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRunner struct {
	got job.Request
	err error
}

func (f *fakeRunner) Run(_ context.Context, req job.Request) (*job.Result, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &job.Result{Provenance: artifact.NewProvenance(req.ClipID)}, nil
}

type fakeDep struct {
	name string
	up   bool
}

func (d fakeDep) Name() string                    { return d.name }
func (d fakeDep) IsAvailable(context.Context) bool { return d.up }

func newTestServer(runner JobRunner, deps ...observability.Availability) *Server {
	cfg := Config{}
	cfg.ApplyDefaults()
	s := New(cfg, logger.NewNop())
	s.Register(NewHandler(runner, "speakerbind", deps...))
	return s
}

func do(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) errors.ErrorCode {
	t.Helper()
	var resp errors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected an error body, got %q", rr.Body.String())
	}
	return resp.Error.Code
}

func TestRunJob_Samples(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(runner)

	rr := do(s, http.MethodPost, "/v1/jobs", JobRequest{
		Request:    job.Request{ClipID: "clip-1", Words: []transcript.Word{{ID: "w0", Text: "hi", SourceStart: 6000, SourceEnd: 24000}}},
		Samples:    []float32{0.1, -0.1, 0.2},
		SampleRate: 16000,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if runner.got.ClipID != "clip-1" {
		t.Errorf("expected clip-1, got %q", runner.got.ClipID)
	}
	if runner.got.Audio.SourceID != "clip-1" {
		t.Errorf("expected source id to default to the clip id, got %q", runner.got.Audio.SourceID)
	}
	if runner.got.Audio.SampleRate != 16000 || len(runner.got.Audio.Samples) != 3 {
		t.Errorf("unexpected audio %+v", runner.got.Audio)
	}
	if len(runner.got.Words) != 1 {
		t.Errorf("expected 1 word, got %d", len(runner.got.Words))
	}

	var resp struct {
		Data job.Result `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Provenance.ClipID != "clip-1" {
		t.Errorf("expected provenance for clip-1, got %+v", resp.Data.Provenance)
	}
}

func TestRunJob_WAV(t *testing.T) {
	var wav bytes.Buffer
	if err := audio.WriteWAV(&wav, embedding.Audio{SampleRate: 8000, Samples: []float32{0, 0.5, -0.5, 0.25}}); err != nil {
		t.Fatal(err)
	}
	runner := &fakeRunner{}
	s := newTestServer(runner)

	rr := do(s, http.MethodPost, "/v1/jobs", JobRequest{
		Request:  job.Request{ClipID: "clip-2"},
		AudioWAV: wav.Bytes(),
		SourceID: "mic-1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if runner.got.Audio.SampleRate != 8000 || len(runner.got.Audio.Samples) != 4 {
		t.Errorf("unexpected decoded audio %+v", runner.got.Audio)
	}
	if runner.got.Audio.SourceID != "mic-1" {
		t.Errorf("expected source id mic-1, got %q", runner.got.Audio.SourceID)
	}
}

func TestRunJob_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   errors.ErrorCode
	}{
		{"missing clip id", JobRequest{Samples: []float32{0}, SampleRate: 16000}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"no audio", JobRequest{Request: job.Request{ClipID: "c"}}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"samples without rate", JobRequest{Request: job.Request{ClipID: "c"}, Samples: []float32{0}}, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"not json", "{", http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"not a wav", JobRequest{Request: job.Request{ClipID: "c"}, AudioWAV: []byte("nope")}, 0, errors.ErrCodeAudioUnreadable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			rr := do(newTestServer(runner), http.MethodPost, "/v1/jobs", tt.body)
			if tt.wantStatus != 0 && rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if got := errorCode(t, rr); got != tt.wantCode {
				t.Errorf("expected %s, got %s", tt.wantCode, got)
			}
			if runner.got.ClipID != "" {
				t.Error("expected the runner not to be called")
			}
		})
	}
}

func TestRunJob_RunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.EmbeddingFailed("sidecar", 0, context.DeadlineExceeded)}
	rr := do(newTestServer(runner), http.MethodPost, "/v1/jobs", JobRequest{
		Request:    job.Request{ClipID: "c"},
		Samples:    []float32{0},
		SampleRate: 16000,
	})
	if got := errorCode(t, rr); got != errors.ErrCodeEmbeddingFailed {
		t.Errorf("expected EMBEDDING_FAILED, got %s", got)
	}
}

func TestRunJob_EndToEnd(t *testing.T) {
	const rate = 100
	cfg := diarization.DefaultConfig()
	cfg.HopSeconds = 1
	cfg.SimilarityThreshold = 0.8
	runner := job.NewRunner(
		diarization.New(embeddingtest.SignProvider(1, rate), nil, cfg),
		binding.DefaultConfig(), timeline.DefaultConfig(),
		job.WithLogger(logger.NewNop()),
	)

	var words []transcript.Word
	for i := range 20 {
		words = append(words, transcript.Word{
			ID:          fmt.Sprintf("w%02d", i),
			Text:        "word",
			SourceStart: transcript.FromSeconds(float64(i) + 0.2),
			SourceEnd:   transcript.FromSeconds(float64(i) + 0.8),
		})
	}
	rr := do(newTestServer(runner), http.MethodPost, "/v1/jobs", JobRequest{
		Request: job.Request{
			ClipID:   "clip-e2e",
			Segments: []transcript.AudioSegment{{Start: 0, End: 20, Kind: transcript.KindSpeechLike, Confidence: 0.9}},
			Words:    words,
		},
		Samples:    embeddingtest.Alternating(20, 2, rate, 0.5),
		SampleRate: rate,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Data job.Result `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Diarization == nil || len(resp.Data.Diarization.Words) != 20 {
		t.Fatalf("expected 20 diarized words, got %+v", resp.Data.Diarization)
	}
	if resp.Data.Timeline == nil || len(resp.Data.Timeline.Speakers) != 2 {
		t.Errorf("expected 2 speakers in the timeline, got %+v", resp.Data.Timeline)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		deps       []observability.Availability
		wantStatus int
		wantHealth observability.HealthStatus
	}{
		{"no deps", nil, http.StatusOK, observability.HealthStatusUp},
		{"provider up", []observability.Availability{fakeDep{"sidecar", true}}, http.StatusOK, observability.HealthStatusUp},
		{"provider down", []observability.Availability{fakeDep{"sidecar", false}}, http.StatusServiceUnavailable, observability.HealthStatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(newTestServer(&fakeRunner{}, tt.deps...), http.MethodGet, "/healthz", nil)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			var sh observability.ServiceHealth
			if err := json.Unmarshal(rr.Body.Bytes(), &sh); err != nil {
				t.Fatal(err)
			}
			if sh.Status != tt.wantHealth {
				t.Errorf("expected %s, got %s", tt.wantHealth, sh.Status)
			}
			if sh.Service != "speakerbind" {
				t.Errorf("expected service speakerbind, got %q", sh.Service)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	rr := do(newTestServer(&fakeRunner{}), http.MethodGet, "/version", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Version string            `json:"version"`
		Schemas map[string]string `json:"schemas"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Version == "" {
		t.Error("expected a version")
	}
	if resp.Schemas["identity_timeline"] != artifact.SchemaTimeline {
		t.Errorf("expected timeline schema %q, got %q", artifact.SchemaTimeline, resp.Schemas["identity_timeline"])
	}
}

func TestStartStop(t *testing.T) {
	cfg := Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	cfg.Port = 0
	s := New(cfg, logger.NewNop())
	s.Register(NewHandler(&fakeRunner{}, "speakerbind"))

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if err := s.Stop(ctx); err != nil {
		t.Errorf("stop: %v", err)
	}
}
