package engine

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	return path
}

func TestLoadPolicyDefaults(t *testing.T) {
	if p := LoadPolicy(""); !reflect.DeepEqual(p, DefaultPolicy()) {
		t.Errorf("empty path should yield defaults, got %+v", p)
	}
	if p := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml")); !reflect.DeepEqual(p, DefaultPolicy()) {
		t.Errorf("missing file should yield defaults, got %+v", p)
	}
	if p := LoadPolicy(writePolicy(t, "{reasons: [unclosed")); !reflect.DeepEqual(p, DefaultPolicy()) {
		t.Errorf("malformed file should yield defaults, got %+v", p)
	}
}

func TestLoadPolicyPartialOverride(t *testing.T) {
	p := LoadPolicy(writePolicy(t, "reasons:\n  max: 3\nthresholds:\n  entropy: 3.5\n"))

	if p.MaxReasons != 3 {
		t.Errorf("MaxReasons = %d, want 3", p.MaxReasons)
	}
	if p.EntropyLimit != 3.5 {
		t.Errorf("EntropyLimit = %v, want 3.5", p.EntropyLimit)
	}

	// Everything not mentioned keeps its default.
	d := DefaultPolicy()
	if p.LongURL != d.LongURL || p.MediumURL != d.MediumURL || p.MaxSubdomains != d.MaxSubdomains {
		t.Errorf("unmentioned fields changed: %+v", p)
	}
	if p.UncertaintyBand != d.UncertaintyBand {
		t.Errorf("UncertaintyBand = %v, want default %v", p.UncertaintyBand, d.UncertaintyBand)
	}
}

func TestLoadShippedPolicy(t *testing.T) {
	p := LoadPolicy("../../config/policy.yaml")
	if !reflect.DeepEqual(p, DefaultPolicy()) {
		t.Errorf("shipped policy should match the built-in defaults, got %+v", p)
	}
}
