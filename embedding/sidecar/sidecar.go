// Package sidecar implements embedding.Provider over an HTTP model server
// running next to speakerbind.
//
// The sidecar exposes:
//
//	GET  /health       200 when the model is loaded
//	GET  /info         {"model": "ecapa-v2", "window_seconds": 3.0, "sample_rate": 16000, "dimension": 192}
//	POST /embed        {"sample_rate": 16000, "samples": [...]}   -> {"embedding": [...]}
//	POST /embed/batch  {"sample_rate": 16000, "windows": [[...]]} -> {"embeddings": [[...]]}
package sidecar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kbukum/speakerbind/embedding"
	apperrors "github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/provider"
	"github.com/kbukum/speakerbind/resilience"
)

const (
	// ProviderName is the registered name for the sidecar provider.
	ProviderName = "sidecar"

	defaultSidecarURL     = "http://localhost:8390"
	defaultSidecarTimeout = 60 * time.Second
	defaultMaxAttempts    = 1
)

// Config holds configuration for the sidecar embedding provider.
type Config struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
	// Model names the served model. Init fills it from /info when empty.
	Model string `json:"model"`
	// WindowSeconds and SampleRate are fetched from /info when zero.
	WindowSeconds float64 `json:"window_seconds"`
	SampleRate    int     `json:"sample_rate"`
	// MaxAttempts bounds retries of transport failures and 5xx replies.
	// The default of 1 makes every failure surface immediately.
	MaxAttempts int `json:"max_attempts"`
	// BreakerFailures consecutive failed calls make the provider fail fast
	// for BreakerCooldown.
	BreakerFailures int           `json:"breaker_failures"`
	BreakerCooldown time.Duration `json:"breaker_cooldown"`
}

// Provider implements embedding.BatchProvider using the HTTP sidecar.
type Provider struct {
	cfg     Config
	client  *http.Client
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

var (
	_ embedding.BatchProvider   = (*Provider)(nil)
	_ embedding.ModelIdentifier = (*Provider)(nil)
	_ provider.Initializable    = (*Provider)(nil)
)

// NewProvider creates a new sidecar embedding provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSidecarURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultSidecarTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	log := logger.Get("sidecar")
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxAttempts
	retry.RetryIf = isTransient
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("sidecar call failed, retrying", logger.Fields("attempt", attempt, "backoff", backoff.String(), "error", err.Error()))
	}

	bc := resilience.DefaultBreakerConfig(ProviderName)
	if cfg.BreakerFailures > 0 {
		bc.MaxFailures = cfg.BreakerFailures
	}
	if cfg.BreakerCooldown > 0 {
		bc.Cooldown = cfg.BreakerCooldown
	}
	bc.IsFailure = isTransient
	bc.OnStateChange = func(name string, from, to resilience.State) {
		log.Info("sidecar breaker state changed", logger.Fields("from", from.String(), "to", to.String()))
	}

	return &Provider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		retry:   retry,
		breaker: resilience.NewBreaker(bc),
	}
}

// Factory returns a provider.Factory that creates sidecar Provider
// instances from a generic config map.
func Factory() provider.Factory[embedding.Provider] {
	return func(cfg map[string]any) (embedding.Provider, error) {
		pc := Config{}
		if v, ok := cfg["base_url"].(string); ok {
			pc.BaseURL = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			pc.Timeout = v
		}
		if v, ok := cfg["model"].(string); ok {
			pc.Model = v
		}
		if v, ok := cfg["window_seconds"].(float64); ok {
			pc.WindowSeconds = v
		}
		if v, ok := cfg["sample_rate"].(int); ok {
			pc.SampleRate = v
		}
		if v, ok := cfg["max_attempts"].(int); ok {
			pc.MaxAttempts = v
		}
		if v, ok := cfg["breaker_failures"].(int); ok {
			pc.BreakerFailures = v
		}
		if v, ok := cfg["breaker_cooldown"].(time.Duration); ok {
			pc.BreakerCooldown = v
		}
		return NewProvider(pc), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// ModelID returns the served model name, or the base URL when the sidecar
// never reported one.
func (p *Provider) ModelID() string {
	if p.cfg.Model != "" {
		return p.cfg.Model
	}
	return p.cfg.BaseURL
}

// WindowSeconds returns the window the sidecar model expects.
func (p *Provider) WindowSeconds() float64 { return p.cfg.WindowSeconds }

// SampleRate returns the sample rate the sidecar model expects.
func (p *Provider) SampleRate() int { return p.cfg.SampleRate }

// IsAvailable checks if the sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Init fills in the model name, window length and sample rate from /info
// when they were not configured. An unreachable /info is only an error when
// the window or sample rate is still unknown.
func (p *Provider) Init(ctx context.Context) error {
	if p.cfg.WindowSeconds > 0 && p.cfg.SampleRate > 0 && p.cfg.Model != "" {
		return nil
	}
	var info infoResponse
	if err := p.do(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		if p.cfg.WindowSeconds > 0 && p.cfg.SampleRate > 0 {
			logger.Get("sidecar").Warn("sidecar info unavailable, caching under the base url", logger.Fields("error", err.Error()))
			return nil
		}
		return fmt.Errorf("fetch sidecar info: %w", err)
	}
	if p.cfg.Model == "" {
		p.cfg.Model = info.Model
	}
	if p.cfg.WindowSeconds <= 0 {
		p.cfg.WindowSeconds = info.WindowSeconds
	}
	if p.cfg.SampleRate <= 0 {
		p.cfg.SampleRate = info.SampleRate
	}
	if p.cfg.SampleRate <= 0 {
		return fmt.Errorf("sidecar reported no sample rate")
	}
	return nil
}

// Embed sends one window to the sidecar.
func (p *Provider) Embed(ctx context.Context, window []float32) ([]float32, error) {
	var result embedResponse
	body := embedRequest{SampleRate: p.cfg.SampleRate, Samples: window}
	if err := p.do(ctx, http.MethodPost, "/embed", body, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("embedding error: %s", result.Error)
	}
	return result.Embedding, nil
}

// EmbedBatch sends several windows in one request.
func (p *Provider) EmbedBatch(ctx context.Context, windows [][]float32) ([][]float32, error) {
	var result batchResponse
	body := batchRequest{SampleRate: p.cfg.SampleRate, Windows: windows}
	if err := p.do(ctx, http.MethodPost, "/embed/batch", body, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("embedding error: %s", result.Error)
	}
	if len(result.Embeddings) != len(windows) {
		return nil, fmt.Errorf("sidecar returned %d embeddings for %d windows", len(result.Embeddings), len(windows))
	}
	return result.Embeddings, nil
}

// do sends one JSON request through the breaker, retrying transient
// failures. An open breaker surfaces as SERVICE_UNAVAILABLE.
func (p *Provider) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = data
	}

	err := p.breaker.Execute(func() error {
		return resilience.RetryFunc(ctx, p.retry, func(ctx context.Context) error {
			return p.roundTrip(ctx, method, path, payload, out)
		})
	})
	if errors.Is(err, resilience.ErrOpen) {
		return apperrors.Unavailable("embedding sidecar", err)
	}
	return err
}

func (p *Provider) roundTrip(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusError{code: resp.StatusCode, body: string(msg)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode sidecar response: %w", err)
	}
	return nil
}

type transportError struct{ err error }

func (e *transportError) Error() string { return "sidecar request: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("sidecar error (status %d): %s", e.code, e.body)
}

// isTransient reports failures worth retrying: transport errors other than
// cancellation, 429 and 5xx.
func isTransient(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return resilience.DefaultRetryIf(te.err)
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
	}
	return false
}

// --- internal sidecar API types ---

type infoResponse struct {
	Model         string  `json:"model"`
	WindowSeconds float64 `json:"window_seconds"`
	SampleRate    int     `json:"sample_rate"`
	Dimension     int     `json:"dimension"`
}

type embedRequest struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float32 `json:"samples"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

type batchRequest struct {
	SampleRate int         `json:"sample_rate"`
	Windows    [][]float32 `json:"windows"`
}

type batchResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}
