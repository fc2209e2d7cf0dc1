package engine

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is the documented, tunable part of the decision layer: the reason
// cap, the thresholds that put a heuristic into its "suspicious" state, and
// the band in which the optional text model is consulted. Everything that is
// a judgment call rather than trained behavior lives here.
type Policy struct {
	// MaxReasons caps the explanation length.
	MaxReasons int

	// LongURL / MediumURL split url_length into green/yellow/red.
	LongURL   int
	MediumURL int

	// MaxDots, MaxSpecialChars, MaxSubdomains and EntropyLimit mark the
	// suspicious state for their heuristics.
	MaxDots         int
	MaxSpecialChars int
	MaxSubdomains   int
	EntropyLimit    float64

	// UncertaintyBand is the half-width around the decision threshold inside
	// which the optional text model is consulted.
	UncertaintyBand float64
}

// DefaultPolicy mirrors the thresholds the original heuristic report used.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxReasons:      5,
		LongURL:         60,
		MediumURL:       30,
		MaxDots:         2,
		MaxSpecialChars: 2,
		MaxSubdomains:   2,
		EntropyLimit:    4.0,
		UncertaintyBand: 0.2,
	}
}

// policyFile is the YAML shape of a policy override file.
type policyFile struct {
	Reasons struct {
		Max int `yaml:"max"`
	} `yaml:"reasons"`
	Thresholds struct {
		LongURL       int     `yaml:"long_url"`
		MediumURL     int     `yaml:"medium_url"`
		MaxDots       int     `yaml:"max_dots"`
		MaxSpecial    int     `yaml:"max_special_chars"`
		MaxSubdomains int     `yaml:"max_subdomains"`
		Entropy       float64 `yaml:"entropy"`
	} `yaml:"thresholds"`
	UncertaintyBand float64 `yaml:"uncertainty_band"`
}

// LoadPolicy reads a YAML policy file, falling back to defaults (with a
// warning) when the file is missing or malformed. Zero-valued fields in the
// file keep their defaults, so partial overrides are fine.
func LoadPolicy(path string) *Policy {
	p := DefaultPolicy()
	if path == "" {
		return p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[WARN] decision policy: cannot read %s (%v), using defaults", path, err)
		return p
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		log.Printf("[WARN] decision policy: malformed %s (%v), using defaults", path, err)
		return p
	}

	if pf.Reasons.Max > 0 {
		p.MaxReasons = pf.Reasons.Max
	}
	if pf.Thresholds.LongURL > 0 {
		p.LongURL = pf.Thresholds.LongURL
	}
	if pf.Thresholds.MediumURL > 0 {
		p.MediumURL = pf.Thresholds.MediumURL
	}
	if pf.Thresholds.MaxDots > 0 {
		p.MaxDots = pf.Thresholds.MaxDots
	}
	if pf.Thresholds.MaxSpecial > 0 {
		p.MaxSpecialChars = pf.Thresholds.MaxSpecial
	}
	if pf.Thresholds.MaxSubdomains > 0 {
		p.MaxSubdomains = pf.Thresholds.MaxSubdomains
	}
	if pf.Thresholds.Entropy > 0 {
		p.EntropyLimit = pf.Thresholds.Entropy
	}
	if pf.UncertaintyBand > 0 {
		p.UncertaintyBand = pf.UncertaintyBand
	}
	return p
}
