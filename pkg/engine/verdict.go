package engine

// State tracks an evaluation through its single forward pass. Every
// evaluation that returns a verdict terminates in StateDone; there are no
// retries or suspension points.
type State string

const (
	StateReceived         State = "received"
	StateTrustChecked     State = "trust_checked"
	StateFeatureExtracted State = "feature_extracted"
	StateClassified       State = "classified"
	StateExplained        State = "explained"
	StateDone             State = "done"
)

// Verdict labels.
const (
	LabelPhishing   = "phishing"
	LabelLegitimate = "legitimate"
)

// Verdict is the structured outcome of one evaluation. It is produced per
// request and never persisted by the engine.
type Verdict struct {
	Input string `json:"url"` // normalized input

	// Label is "phishing" or "legitimate".
	Label string `json:"label"`

	// Confidence is the probability mass assigned to the predicted class,
	// as a percentage in [0,100].
	Confidence float64 `json:"confidence"`

	// Reasons lists the triggered heuristics in priority order, capped by
	// policy.
	Reasons []string `json:"reasons"`

	// Probability is the raw P(phishing) the decision was made from.
	Probability float64 `json:"probability"`

	// Threshold is the cutoff the label was binarized with.
	Threshold float64 `json:"threshold"`

	// TrustedOverride is true when the trusted-domain allow list
	// short-circuited classification.
	TrustedOverride bool `json:"trusted"`

	// State is the terminal evaluation state, for introspection and tests.
	State State `json:"-"`

	// Trace records the states the evaluation passed through, in order.
	Trace []State `json:"-"`
}
