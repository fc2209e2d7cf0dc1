// Package engine combines the feature extractor, trusted-domain registry and
// classifier adapter into verdicts. The trusted override is an explicit first
// decision step, not a conditional buried in the classification path: a
// trusted host never reaches the classifier.
package engine

import (
	"context"
	"fmt"

	"github.com/phishguard/phishguard/pkg/features"
	"github.com/phishguard/phishguard/pkg/model"
	"github.com/phishguard/phishguard/pkg/trust"
)

// Options configures an Engine. Registry and Classifier are injected so
// tests can substitute fakes; nothing here is ambient global state.
type Options struct {
	Registry   *trust.Registry  // required
	Classifier model.Classifier // required

	// TextClassifier is the optional domain-token tie-breaker. Nil or
	// not-ready means the linear prediction stands alone.
	TextClassifier model.TextClassifier

	// Threshold binarizes P(phishing); 0 means the 0.5 default.
	Threshold float64

	// Policy controls explanation behavior; nil means DefaultPolicy.
	Policy *Policy
}

// Engine evaluates submissions. Immutable after construction and safe for
// concurrent use: every evaluation is a stateless computation over the
// loaded registry and model.
type Engine struct {
	registry  *trust.Registry
	clf       model.Classifier
	text      model.TextClassifier
	threshold float64
	policy    *Policy
}

// New validates options and constructs an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("engine requires a trusted-domain registry")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("engine requires a classifier")
	}
	threshold := opts.Threshold
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}
	policy := opts.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Engine{
		registry:  opts.Registry,
		clf:       opts.Classifier,
		text:      opts.TextClassifier,
		threshold: threshold,
		policy:    policy,
	}, nil
}

// Evaluate classifies a raw URL/IP submission in one forward pass:
// parse -> trusted check -> extract -> classify -> explain.
// Returns features.ErrInvalidInput for unusable input and never a partial
// verdict alongside an error.
func (e *Engine) Evaluate(ctx context.Context, raw string) (*Verdict, error) {
	trace := []State{StateReceived}

	parts, err := features.Parse(raw)
	if err != nil {
		return nil, err
	}

	trace = append(trace, StateTrustChecked)
	if e.registry.IsTrusted(parts.Hostname) {
		return &Verdict{
			Input:      parts.Raw,
			Label:      LabelLegitimate,
			Confidence: 100,
			Reasons: []string{
				fmt.Sprintf("domain %s is on the trusted allow list; classifier bypassed", parts.Hostname),
			},
			Probability:     0,
			Threshold:       e.threshold,
			TrustedOverride: true,
			State:           StateDone,
			Trace:           append(trace, StateDone),
		}, nil
	}

	vec := features.FromParts(parts)
	trace = append(trace, StateFeatureExtracted)

	pred, err := e.clf.Predict(vec)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", parts.Raw, err)
	}
	probability := e.maybeConsultTextModel(ctx, parts, pred.Probability)
	trace = append(trace, StateClassified)

	label := LabelLegitimate
	confidence := (1 - probability) * 100
	if probability >= e.threshold {
		label = LabelPhishing
		confidence = probability * 100
	}
	confidence = clamp(confidence, 0, 100)

	reasons := buildReasons(vec, e.policy)
	if len(reasons) == 0 {
		if label == LabelPhishing {
			// No individual heuristic fired; say so instead of inventing one.
			reasons = []string{"classifier indicates phishing without a specific heuristic trigger"}
		} else {
			reasons = []string{"no suspicious lexical features detected"}
		}
	}
	trace = append(trace, StateExplained)

	return &Verdict{
		Input:       parts.Raw,
		Label:       label,
		Confidence:  confidence,
		Reasons:     reasons,
		Probability: probability,
		Threshold:   e.threshold,
		State:       StateDone,
		Trace:       append(trace, StateDone),
	}, nil
}

// maybeConsultTextModel blends in the optional domain-token model when the
// linear probability falls inside the uncertainty band. Failures leave the
// primary probability untouched.
func (e *Engine) maybeConsultTextModel(ctx context.Context, parts *features.URLParts, probability float64) float64 {
	if e.text == nil || !e.text.IsReady() {
		return probability
	}
	band := e.policy.UncertaintyBand
	if probability < e.threshold-band || probability >= e.threshold+band {
		return probability
	}
	tp, err := e.text.PredictTokens(ctx, model.DomainTokens(parts.Hostname))
	if err != nil {
		return probability
	}
	return (probability + tp.Probability) / 2
}

// Explain produces the color-coded heuristic report for a submission without
// consulting the classifier.
func (e *Engine) Explain(raw string) (*Report, error) {
	parts, err := features.Parse(raw)
	if err != nil {
		return nil, err
	}
	vec := features.FromParts(parts)
	return buildReport(vec, e.policy, e.registry.IsTrusted(parts.Hostname)), nil
}

// Threshold returns the configured decision threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
