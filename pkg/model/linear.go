package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/phishguard/phishguard/pkg/features"
)

// linearArtifact is the on-disk form of the trained model: a standardized
// logistic regression exported from the training pipeline. The schema block
// pins the feature names and order the weights were fit against.
type linearArtifact struct {
	Version   string    `json:"version,omitempty"`
	TrainedAt string    `json:"trained_at,omitempty"`
	Schema    []string  `json:"schema"`
	Means     []float64 `json:"means"`
	Stds      []float64 `json:"stds"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// LinearModel is the primary classifier: logistic regression over the
// standardized feature vector. Immutable after load.
type LinearModel struct {
	artifact  linearArtifact
	threshold float64
}

// LoadLinearModel reads and validates an artifact. Any failure wraps
// ErrModelUnavailable; callers decide whether that is fatal (the gateway
// refuses to start without it).
func LoadLinearModel(path string, threshold float64) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrModelUnavailable, path, err)
	}

	var art linearArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrModelUnavailable, path, err)
	}

	if err := validateArtifact(&art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}

	return &LinearModel{artifact: art, threshold: threshold}, nil
}

func validateArtifact(art *linearArtifact) error {
	want := features.Names()
	if len(art.Schema) != len(want) {
		return fmt.Errorf("schema width mismatch: artifact has %d features, extractor produces %d", len(art.Schema), len(want))
	}
	for i, name := range want {
		if art.Schema[i] != name {
			return fmt.Errorf("schema mismatch at position %d: artifact %q, extractor %q", i, art.Schema[i], name)
		}
	}
	if len(art.Means) != len(want) || len(art.Stds) != len(want) || len(art.Weights) != len(want) {
		return fmt.Errorf("artifact arrays must all have length %d (means=%d stds=%d weights=%d)",
			len(want), len(art.Means), len(art.Stds), len(art.Weights))
	}
	for i, s := range art.Stds {
		if s <= 0 {
			return fmt.Errorf("std for %s must be positive, got %v", want[i], s)
		}
	}
	return nil
}

// Predict standardizes the vector and applies the logistic function.
func (m *LinearModel) Predict(v *features.Vector) (Prediction, error) {
	if v == nil {
		return Prediction{}, fmt.Errorf("nil feature vector")
	}
	values := v.Values()
	if len(values) != len(m.artifact.Weights) {
		// Unreachable while the schema is validated at load, kept as a guard
		// against future extractor changes shipped without a retrained model.
		return Prediction{}, fmt.Errorf("vector width %d does not match model width %d", len(values), len(m.artifact.Weights))
	}

	z := m.artifact.Intercept
	for i, x := range values {
		z += m.artifact.Weights[i] * (x - m.artifact.Means[i]) / m.artifact.Stds[i]
	}

	p := sigmoid(z)
	return Prediction{Probability: p, Label: p >= m.threshold}, nil
}

// Threshold returns the decision threshold the model binarizes with.
func (m *LinearModel) Threshold() float64 {
	return m.threshold
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
