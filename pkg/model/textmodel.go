package model

// textmodel.go - optional local text classification over domain tokens.
//
// The training pipeline also fits a text model on tokenized domain names
// ("secure-login.paypal.com.evil.top" -> "secure login paypal com evil top").
// When an ONNX export of that model is present, it can be consulted as a
// tie-breaker while the linear model sits near its decision threshold.
//
// This layer is strictly optional: no model directory means IsReady() stays
// false and the decision engine never calls it.

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
)

// DomainTextClassifier wraps a hugot text-classification pipeline over
// domain tokens.
type DomainTextClassifier struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	mu       sync.RWMutex
	ready    bool
}

// TextModelConfig configures the optional domain text model.
type TextModelConfig struct {
	// ModelPath is the local directory containing model.onnx plus tokenizer
	// files.
	ModelPath string

	// OnnxLibraryPath points at libonnxruntime.so; empty means the pure Go
	// backend.
	OnnxLibraryPath string

	// Timeout bounds a single inference call.
	Timeout time.Duration
}

// DefaultTextModelConfig returns the standard configuration for a given
// model directory.
func DefaultTextModelConfig(modelPath string) TextModelConfig {
	return TextModelConfig{
		ModelPath:       modelPath,
		OnnxLibraryPath: defaultOnnxPath(),
		Timeout:         10 * time.Second,
	}
}

// defaultOnnxPath returns the ONNX Runtime library directory for this
// platform, or empty when none is installed.
func defaultOnnxPath() string {
	paths := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Dir(p)
		}
	}
	return ""
}

// NewDomainTextClassifier initializes the pipeline. Returns an error when
// the model directory or runtime is unusable.
func NewDomainTextClassifier(cfg TextModelConfig) (*DomainTextClassifier, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if _, err := os.Stat(filepath.Join(cfg.ModelPath, "model.onnx")); err != nil {
		return nil, fmt.Errorf("no model.onnx in %s: %w", cfg.ModelPath, err)
	}

	session, err := newSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	pipeline, err := hugot.NewPipeline(session, hugot.TextClassificationConfig{
		ModelPath: cfg.ModelPath,
		Name:      "domain-token-classifier",
	})
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	log.Printf("[STARTUP] domain text model initialized (path: %s)", cfg.ModelPath)
	return &DomainTextClassifier{session: session, pipeline: pipeline, ready: true}, nil
}

// NewDomainTextClassifierWithFallback degrades gracefully: initialization
// failure logs a warning and yields a never-ready classifier.
func NewDomainTextClassifierWithFallback(cfg TextModelConfig) *DomainTextClassifier {
	c, err := NewDomainTextClassifier(cfg)
	if err != nil {
		log.Printf("[WARN] domain text model disabled: %v", err)
		return &DomainTextClassifier{ready: false}
	}
	return c
}

func newSession(cfg TextModelConfig) (*hugot.Session, error) {
	if cfg.OnnxLibraryPath != "" {
		session, err := hugot.NewORTSession(options.WithOnnxLibraryPath(cfg.OnnxLibraryPath))
		if err == nil {
			return session, nil
		}
		log.Printf("[WARN] ONNX Runtime unavailable, falling back to Go backend: %v", err)
	}
	return hugot.NewGoSession()
}

// IsReady reports whether the pipeline is usable.
func (c *DomainTextClassifier) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// PredictTokens classifies a space-joined domain token string.
func (c *DomainTextClassifier) PredictTokens(ctx context.Context, tokens string) (Prediction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ready || c.pipeline == nil {
		return Prediction{}, fmt.Errorf("domain text model not ready")
	}

	result, err := c.pipeline.RunPipeline([]string{tokens})
	if err != nil {
		return Prediction{}, fmt.Errorf("text classification failed: %w", err)
	}
	if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
		return Prediction{}, fmt.Errorf("no classification output")
	}

	out := result.ClassificationOutputs[0][0]
	phishing := isPhishingLabel(out.Label)
	p := float64(out.Score)
	if !phishing {
		p = 1 - p
	}
	return Prediction{Probability: p, Label: phishing}, nil
}

// Close releases ONNX resources.
func (c *DomainTextClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = false
	if c.session != nil {
		if err := c.session.Destroy(); err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
	}
	return nil
}

// isPhishingLabel maps model label conventions onto the phishing class.
func isPhishingLabel(label string) bool {
	switch label {
	case "phishing", "PHISHING", "malicious", "LABEL_1":
		return true
	default:
		return false
	}
}

// DomainTokens converts a hostname into the token string the text model was
// trained on: dots and hyphens become spaces.
func DomainTokens(hostname string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == '-' {
			return ' '
		}
		return r
	}, strings.ToLower(hostname))
}
