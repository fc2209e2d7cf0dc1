package engine

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/phishguard/phishguard/pkg/features"
	"github.com/phishguard/phishguard/pkg/model"
	"github.com/phishguard/phishguard/pkg/trust"
)

// fakeClassifier returns a fixed probability and counts invocations.
type fakeClassifier struct {
	p     float64
	err   error
	calls int
}

func (f *fakeClassifier) Predict(v *features.Vector) (model.Prediction, error) {
	f.calls++
	if f.err != nil {
		return model.Prediction{}, f.err
	}
	return model.Prediction{Probability: f.p, Label: f.p >= 0.5}, nil
}

// fakeTextClassifier is an always-ready text model with a fixed probability.
type fakeTextClassifier struct {
	p     float64
	ready bool
	calls int
}

func (f *fakeTextClassifier) PredictTokens(ctx context.Context, tokens string) (model.Prediction, error) {
	f.calls++
	return model.Prediction{Probability: f.p, Label: f.p >= 0.5}, nil
}

func (f *fakeTextClassifier) IsReady() bool { return f.ready }

func newTestEngine(t *testing.T, clf model.Classifier, trusted map[string]bool, opts ...func(*Options)) *Engine {
	t.Helper()
	o := Options{
		Registry:   trust.NewStatic(trusted),
		Classifier: clf,
	}
	for _, fn := range opts {
		fn(&o)
	}
	e, err := New(o)
	if err != nil {
		t.Fatalf("engine construction failed: %v", err)
	}
	return e
}

func TestNewRequiresRegistryAndClassifier(t *testing.T) {
	if _, err := New(Options{Classifier: &fakeClassifier{}}); err == nil {
		t.Error("missing registry should fail construction")
	}
	if _, err := New(Options{Registry: trust.NewStatic(nil)}); err == nil {
		t.Error("missing classifier should fail construction")
	}
}

func TestInvalidInputProducesNoVerdict(t *testing.T) {
	clf := &fakeClassifier{p: 0.9}
	e := newTestEngine(t, clf, nil)

	for _, in := range []string{"", "   ", "not a url at all"} {
		v, err := e.Evaluate(context.Background(), in)
		if err == nil {
			t.Errorf("Evaluate(%q) should fail", in)
			continue
		}
		if !errors.Is(err, features.ErrInvalidInput) {
			t.Errorf("Evaluate(%q) error should wrap ErrInvalidInput, got %v", in, err)
		}
		if v != nil {
			t.Errorf("Evaluate(%q) returned a partial verdict alongside an error", in)
		}
	}
	if clf.calls != 0 {
		t.Errorf("classifier consulted %d times for invalid input", clf.calls)
	}
}

func TestTrustedOverrideBypassesClassifier(t *testing.T) {
	clf := &fakeClassifier{p: 0.99} // would scream phishing if consulted
	e := newTestEngine(t, clf, map[string]bool{"paypal.com": true})

	v, err := e.Evaluate(context.Background(), "http://paypal.com/login?verify=1")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if clf.calls != 0 {
		t.Fatalf("classifier was consulted %d times for a trusted host", clf.calls)
	}
	if v.Label != LabelLegitimate {
		t.Errorf("Label = %q, want %q", v.Label, LabelLegitimate)
	}
	if v.Confidence != 100 {
		t.Errorf("Confidence = %v, want 100", v.Confidence)
	}
	if !v.TrustedOverride {
		t.Error("TrustedOverride should be set")
	}
	if len(v.Reasons) != 1 || !strings.Contains(v.Reasons[0], "trusted") {
		t.Errorf("Reasons = %v, want a single trusted-override reason", v.Reasons)
	}
	wantTrace := []State{StateReceived, StateTrustChecked, StateDone}
	if !reflect.DeepEqual(v.Trace, wantTrace) {
		t.Errorf("Trace = %v, want %v", v.Trace, wantTrace)
	}
}

func TestUntrustedLookalikeIsClassified(t *testing.T) {
	clf := &fakeClassifier{p: 0.9}
	e := newTestEngine(t, clf, map[string]bool{"paypal.com": true})

	v, err := e.Evaluate(context.Background(), "http://paypal.com.verify-login.xyz")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if clf.calls != 1 {
		t.Fatalf("classifier calls = %d, want 1 (lookalike is not trusted)", clf.calls)
	}
	if v.TrustedOverride {
		t.Error("lookalike host must not get the trusted override")
	}
	if v.Label != LabelPhishing {
		t.Errorf("Label = %q, want %q", v.Label, LabelPhishing)
	}
}

func TestConfidenceTracksPredictedClass(t *testing.T) {
	cases := []struct {
		p         float64
		wantLabel string
		wantConf  float64
	}{
		{0.8, LabelPhishing, 80},
		{0.5, LabelPhishing, 50}, // at the threshold counts as phishing
		{0.2, LabelLegitimate, 80},
		{0.05, LabelLegitimate, 95},
	}
	for _, c := range cases {
		e := newTestEngine(t, &fakeClassifier{p: c.p}, nil)
		v, err := e.Evaluate(context.Background(), "http://example.com")
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if v.Label != c.wantLabel {
			t.Errorf("p=%.2f: Label = %q, want %q", c.p, v.Label, c.wantLabel)
		}
		if math.Abs(v.Confidence-c.wantConf) > 1e-9 {
			t.Errorf("p=%.2f: Confidence = %v, want %v", c.p, v.Confidence, c.wantConf)
		}
		if v.Probability != c.p {
			t.Errorf("p=%.2f: Probability = %v, want raw probability", c.p, v.Probability)
		}
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	e := newTestEngine(t, &fakeClassifier{p: 0.73}, nil)

	a, err := e.Evaluate(context.Background(), "http://secure-login.example.xyz/verify?id=1")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	b, err := e.Evaluate(context.Background(), "http://secure-login.example.xyz/verify?id=1")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical input produced different verdicts:\n%+v\n%+v", a, b)
	}
}

func TestReasonPriorityOrder(t *testing.T) {
	e := newTestEngine(t, &fakeClassifier{p: 0.95}, nil)

	// Triggers, in priority order: ip_host, at_symbol, suspicious_keyword,
	// then (after the missing tld/lookalike/shortener rules) no_https.
	v, err := e.Evaluate(context.Background(), "http://user@192.168.1.1/login")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if len(v.Reasons) < 3 {
		t.Fatalf("Reasons = %v, want at least 3", v.Reasons)
	}
	if !strings.Contains(v.Reasons[0], "IP address") {
		t.Errorf("first reason should be the IP host, got %q", v.Reasons[0])
	}
	if !strings.Contains(v.Reasons[1], "@") {
		t.Errorf("second reason should be the @ trick, got %q", v.Reasons[1])
	}
	if !strings.Contains(v.Reasons[2], "credential-bait") {
		t.Errorf("third reason should be the keyword hit, got %q", v.Reasons[2])
	}
}

func TestReasonCap(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxReasons = 2
	e := newTestEngine(t, &fakeClassifier{p: 0.95}, nil, func(o *Options) { o.Policy = policy })

	v, err := e.Evaluate(context.Background(), "http://user@192.168.1.1/login?a=1&b=2&c=3")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(v.Reasons) != 2 {
		t.Fatalf("Reasons = %v, want exactly 2 (capped)", v.Reasons)
	}
	// Capping truncates from the bottom of the priority table.
	if !strings.Contains(v.Reasons[0], "IP address") || !strings.Contains(v.Reasons[1], "@") {
		t.Errorf("cap kept the wrong reasons: %v", v.Reasons)
	}
}

func TestFallbackReasons(t *testing.T) {
	// An HTTPS URL with no heuristic triggers at all.
	clean := "https://corporate.example"

	e := newTestEngine(t, &fakeClassifier{p: 0.9}, nil)
	v, err := e.Evaluate(context.Background(), clean)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(v.Reasons) != 1 || !strings.Contains(v.Reasons[0], "without a specific heuristic") {
		t.Errorf("phishing verdict with no triggers should carry the model-driven reason, got %v", v.Reasons)
	}

	e = newTestEngine(t, &fakeClassifier{p: 0.05}, nil)
	v, err = e.Evaluate(context.Background(), clean)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(v.Reasons) != 1 || !strings.Contains(v.Reasons[0], "no suspicious lexical features") {
		t.Errorf("clean legitimate verdict should carry the all-clear reason, got %v", v.Reasons)
	}
}

func TestTraceCoversFullPass(t *testing.T) {
	e := newTestEngine(t, &fakeClassifier{p: 0.3}, nil)
	v, err := e.Evaluate(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	want := []State{
		StateReceived,
		StateTrustChecked,
		StateFeatureExtracted,
		StateClassified,
		StateExplained,
		StateDone,
	}
	if !reflect.DeepEqual(v.Trace, want) {
		t.Errorf("Trace = %v, want %v", v.Trace, want)
	}
	if v.State != StateDone {
		t.Errorf("State = %v, want %v", v.State, StateDone)
	}
}

func TestTextModelConsultedOnlyInUncertaintyBand(t *testing.T) {
	text := &fakeTextClassifier{p: 0.9, ready: true}
	e := newTestEngine(t, &fakeClassifier{p: 0.45}, nil, func(o *Options) { o.TextClassifier = text })

	v, err := e.Evaluate(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if text.calls != 1 {
		t.Fatalf("text model calls = %d, want 1 (probability inside the band)", text.calls)
	}
	if v.Probability != (0.45+0.9)/2 {
		t.Errorf("Probability = %v, want blended average", v.Probability)
	}
	if v.Label != LabelPhishing {
		t.Errorf("blended probability above threshold should flip the label, got %q", v.Label)
	}

	// Far outside the band: text model must stay silent.
	text = &fakeTextClassifier{p: 0.9, ready: true}
	e = newTestEngine(t, &fakeClassifier{p: 0.05}, nil, func(o *Options) { o.TextClassifier = text })
	v, err = e.Evaluate(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if text.calls != 0 {
		t.Errorf("text model calls = %d, want 0 outside the band", text.calls)
	}
	if v.Probability != 0.05 {
		t.Errorf("Probability = %v, want untouched primary probability", v.Probability)
	}

	// Not ready: never consulted even inside the band.
	text = &fakeTextClassifier{p: 0.9, ready: false}
	e = newTestEngine(t, &fakeClassifier{p: 0.45}, nil, func(o *Options) { o.TextClassifier = text })
	if _, err := e.Evaluate(context.Background(), "http://example.com"); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if text.calls != 0 {
		t.Errorf("text model calls = %d, want 0 when not ready", text.calls)
	}
}

func TestShippedModelScenarios(t *testing.T) {
	linear, err := model.LoadLinearModel("../../models/url_classifier.json", 0.5)
	if err != nil {
		t.Fatalf("shipped artifact failed to load: %v", err)
	}
	e := newTestEngine(t, linear, nil)

	v, err := e.Evaluate(context.Background(), "http://192.168.1.1/login.php")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v.Label != LabelPhishing {
		t.Errorf("IP login URL: Label = %q (p=%.4f), want phishing", v.Label, v.Probability)
	}
	if len(v.Reasons) == 0 || !strings.Contains(v.Reasons[0], "IP address") {
		t.Errorf("IP login URL: first reason should cite the IP host, got %v", v.Reasons)
	}

	v, err = e.Evaluate(context.Background(), "http://secure-login-update.verify-account.info")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v.Label != LabelPhishing {
		t.Errorf("keyword chain: Label = %q (p=%.4f), want phishing", v.Label, v.Probability)
	}
	if len(v.Reasons) < 2 {
		t.Fatalf("keyword chain: Reasons = %v, want multiple triggered heuristics", v.Reasons)
	}
	if !strings.Contains(v.Reasons[0], "credential-bait") {
		t.Errorf("keyword chain: highest-priority reason should be the keyword hit, got %v", v.Reasons)
	}

	v, err = e.Evaluate(context.Background(), "http://example.com")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if v.Label != LabelLegitimate {
		t.Errorf("example.com: Label = %q (p=%.4f), want legitimate", v.Label, v.Probability)
	}
}

func TestExplainReport(t *testing.T) {
	e := newTestEngine(t, &fakeClassifier{p: 0.5}, map[string]bool{"example.com": true})

	report, err := e.Explain("http://192.168.1.1/login.php")
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if len(report.Heuristics) != 12 {
		t.Fatalf("report has %d heuristics, want 12", len(report.Heuristics))
	}

	byName := map[string]Heuristic{}
	for _, h := range report.Heuristics {
		if h.Color != ColorGreen && h.Color != ColorYellow && h.Color != ColorRed {
			t.Errorf("heuristic %s has invalid color %q", h.Feature, h.Color)
		}
		byName[h.Feature] = h
	}
	if byName["is_ip_address"].Color != ColorRed {
		t.Errorf("is_ip_address should be red for an IP host")
	}
	if byName["suspicious_keywords"].Color != ColorRed {
		t.Errorf("suspicious_keywords should be red for a login path")
	}
	if byName["is_trusted_domain"].Color != ColorRed {
		t.Errorf("is_trusted_domain should be red for an untrusted host")
	}
	if report.Trusted {
		t.Error("report should not mark an IP host trusted")
	}

	trustedReport, err := e.Explain("https://example.com")
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if !trustedReport.Trusted {
		t.Error("trusted host should be marked in the report")
	}
	for _, h := range trustedReport.Heuristics {
		if h.Feature == "is_trusted_domain" && h.Color != ColorGreen {
			t.Errorf("is_trusted_domain should be green for a trusted host")
		}
	}
}
