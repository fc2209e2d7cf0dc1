// Package model adapts pre-trained classifier artifacts to the decision
// engine. The primary model is a serialized linear classifier over the fixed
// feature schema; an optional ONNX text model over domain tokens can be
// layered on top when the primary is uncertain.
package model

import (
	"context"
	"errors"

	"github.com/phishguard/phishguard/pkg/features"
)

// ErrModelUnavailable is returned when a classifier artifact cannot be
// loaded or does not match the feature schema. The gateway treats this as
// fatal at startup: no meaningful verdict can be produced without a model.
var ErrModelUnavailable = errors.New("classifier model unavailable")

// Prediction is a single classification outcome.
type Prediction struct {
	// Probability is P(phishing) in [0,1].
	Probability float64 `json:"probability"`
	// Label is true for phishing, false for legitimate.
	Label bool `json:"label"`
}

// Classifier produces a phishing probability from a feature vector.
// Implementations must be safe for concurrent use after construction.
type Classifier interface {
	Predict(v *features.Vector) (Prediction, error)
}

// TextClassifier is the optional secondary capability: a probability from
// the domain's token string rather than the numeric vector.
type TextClassifier interface {
	PredictTokens(ctx context.Context, tokens string) (Prediction, error)
	IsReady() bool
}
