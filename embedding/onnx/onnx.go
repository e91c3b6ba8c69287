// Package onnx implements embedding.Provider with a speaker encoder model
// executed by ONNX Runtime. Audio windows go through a log-mel front end and
// the model maps the [1, frames, mels] feature tensor to one embedding.
package onnx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/provider"
)

const (
	// ProviderName is the registered name for the ONNX provider.
	ProviderName = "onnx"

	defaultWindowSeconds = 3.0
	libraryEnv           = "ONNXRUNTIME_SHARED_LIBRARY_PATH"
)

var (
	runtimeMu    sync.Mutex
	runtimeReady bool
)

// Config holds configuration for the ONNX speaker encoder.
type Config struct {
	ModelPath     string    `json:"model_path"`
	LibraryPath   string    `json:"library_path"`
	WindowSeconds float64   `json:"window_seconds"`
	Mel           MelConfig `json:"mel"`
}

// Provider runs a speaker encoder through ONNX Runtime.
type Provider struct {
	cfg     Config
	modelID string
	mel     *melFrontEnd
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	log     *logger.Logger
}

var (
	_ embedding.Provider        = (*Provider)(nil)
	_ embedding.ModelIdentifier = (*Provider)(nil)
	_ provider.Initializable    = (*Provider)(nil)
	_ provider.Closeable        = (*Provider)(nil)
)

// NewProvider validates cfg and returns an uninitialized provider. Init
// loads the runtime and model.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx: model_path is required")
	}
	modelID, err := hashFile(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: model file: %w", err)
	}
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = defaultWindowSeconds
	}
	if cfg.Mel.SampleRate == 0 {
		cfg.Mel = DefaultMelConfig()
	}
	if cfg.LibraryPath == "" {
		cfg.LibraryPath = os.Getenv(libraryEnv)
	}
	return &Provider{cfg: cfg, modelID: modelID, mel: newMelFrontEnd(cfg.Mel), log: logger.Get("onnx")}, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Factory returns a provider.Factory that creates ONNX Provider instances
// from a generic config map.
func Factory() provider.Factory[embedding.Provider] {
	return func(cfg map[string]any) (embedding.Provider, error) {
		pc := Config{}
		if v, ok := cfg["model_path"].(string); ok {
			pc.ModelPath = v
		}
		if v, ok := cfg["library_path"].(string); ok {
			pc.LibraryPath = v
		}
		if v, ok := cfg["window_seconds"].(float64); ok {
			pc.WindowSeconds = v
		}
		if v, ok := cfg["sample_rate"].(int); ok && v > 0 {
			pc.Mel = DefaultMelConfig()
			pc.Mel.SampleRate = v
		}
		return NewProvider(pc)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// ModelID returns the SHA-256 of the model file.
func (p *Provider) ModelID() string { return p.modelID }

// WindowSeconds returns the fixed window the encoder expects.
func (p *Provider) WindowSeconds() float64 { return p.cfg.WindowSeconds }

// SampleRate returns the encoder's sample rate.
func (p *Provider) SampleRate() int { return p.cfg.Mel.SampleRate }

// IsAvailable reports whether the model session is loaded.
func (p *Provider) IsAvailable(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session != nil
}

// Init loads the shared library once per process and opens the model session.
func (p *Provider) Init(context.Context) error {
	if err := initRuntime(p.cfg.LibraryPath); err != nil {
		return err
	}

	inputInfo, outputInfo, err := ort.GetInputOutputInfo(p.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("onnx: model info: %w", err)
	}
	inputNames := make([]string, len(inputInfo))
	for i, info := range inputInfo {
		inputNames[i] = info.Name
	}
	outputNames := make([]string, len(outputInfo))
	for i, info := range outputInfo {
		outputNames[i] = info.Name
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("onnx: session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(p.cfg.ModelPath, inputNames, outputNames, options)
	if err != nil {
		return fmt.Errorf("onnx: create session: %w", err)
	}

	p.mu.Lock()
	p.session = session
	p.mu.Unlock()
	p.log.Info("speaker encoder loaded", logger.Fields("model", p.cfg.ModelPath, "inputs", inputNames, "outputs", outputNames))
	return nil
}

// Embed computes log-mel features for the window and runs the encoder.
func (p *Provider) Embed(_ context.Context, samples []float32) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil, fmt.Errorf("onnx: session not initialized")
	}

	features, frames := p.mel.compute(samples)
	input, err := ort.NewTensor(ort.NewShape(1, int64(frames), int64(p.cfg.Mel.NMels)), features)
	if err != nil {
		return nil, fmt.Errorf("onnx: input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := p.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("onnx: inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnx: unexpected output type %T", outputs[0])
	}
	data := tensor.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// Close destroys the model session.
func (p *Provider) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		err := p.session.Destroy()
		p.session = nil
		return err
	}
	return nil
}

func initRuntime(libraryPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	if runtimeReady {
		return nil
	}
	if libraryPath == "" {
		return fmt.Errorf("onnx: runtime library not configured (set %s)", libraryEnv)
	}
	ort.SetSharedLibraryPath(libraryPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx: initialize runtime: %w", err)
	}
	runtimeReady = true
	return nil
}
