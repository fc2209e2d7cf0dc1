// Package features turns a raw URL or IP submission into the fixed-schema
// lexical feature vector the classifier was trained on. Every feature is
// deterministic, O(len(input)), and computed without network access.
package features

import (
	"math"
	"strings"
	"unicode"
)

// NumFeatures is the width of the vector. It must match the artifact schema.
const NumFeatures = 16

// featureNames is the canonical schema: same names, order, and count on every
// extraction. The classifier consumes Values() positionally, so the order here
// is load-bearing.
var featureNames = []string{
	"url_length",
	"num_digits",
	"num_special_chars",
	"num_subdomains",
	"has_ip",
	"num_slashes",
	"domain_length",
	"has_suspicious_keyword",
	"has_suspicious_tld",
	"domain_entropy",
	"num_query_params",
	"query_length",
	"has_https",
	"has_at_symbol",
	"has_shortener",
	"has_brand_lookalike",
}

// Names returns the feature schema in vector order.
func Names() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// Vector is one extracted feature vector plus the parse it came from.
type Vector struct {
	URLLength            int
	NumDigits            int
	NumSpecialChars      int
	NumSubdomains        int
	HasIP                bool
	NumSlashes           int
	DomainLength         int
	HasSuspiciousKeyword bool
	HasSuspiciousTLD     bool
	DomainEntropy        float64
	NumQueryParams       int
	QueryLength          int
	HasHTTPS             bool
	HasAtSymbol          bool
	HasShortener         bool
	HasBrandLookalike    bool

	Parts *URLParts // retained for explanation building; not part of the schema
}

// Values returns the vector in schema order for the classifier.
func (v *Vector) Values() []float64 {
	return []float64{
		float64(v.URLLength),
		float64(v.NumDigits),
		float64(v.NumSpecialChars),
		float64(v.NumSubdomains),
		boolToFloat(v.HasIP),
		float64(v.NumSlashes),
		float64(v.DomainLength),
		boolToFloat(v.HasSuspiciousKeyword),
		boolToFloat(v.HasSuspiciousTLD),
		v.DomainEntropy,
		float64(v.NumQueryParams),
		float64(v.QueryLength),
		boolToFloat(v.HasHTTPS),
		boolToFloat(v.HasAtSymbol),
		boolToFloat(v.HasShortener),
		boolToFloat(v.HasBrandLookalike),
	}
}

// Extract parses raw and computes the full feature vector.
// Fails with ErrInvalidInput when the submission cannot be parsed.
func Extract(raw string) (*Vector, error) {
	parts, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return FromParts(parts), nil
}

// FromParts computes the feature vector for an already-parsed submission.
func FromParts(parts *URLParts) *Vector {
	u := parts.Raw
	domain := parts.Host

	numDigits := 0
	numSpecial := 0
	for _, r := range u {
		if unicode.IsDigit(r) {
			numDigits++
		}
		switch r {
		case '@', '?', '=', '&', '%':
			numSpecial++
		}
	}

	return &Vector{
		URLLength:            len(u),
		NumDigits:            numDigits,
		NumSpecialChars:      numSpecial,
		NumSubdomains:        maxInt(strings.Count(domain, ".")-1, 0),
		HasIP:                parts.IsIP,
		NumSlashes:           strings.Count(u, "/"),
		DomainLength:         len(domain),
		HasSuspiciousKeyword: hasSuspiciousKeyword(domain + parts.Path),
		HasSuspiciousTLD:     hasSuspiciousTLD(domain),
		DomainEntropy:        shannonEntropy(domain),
		NumQueryParams:       strings.Count(parts.Query, "="),
		QueryLength:          len(parts.Query),
		HasHTTPS:             parts.Scheme == "https",
		HasAtSymbol:          strings.Contains(u, "@"),
		HasShortener:         shortenerHosts[parts.Hostname],
		HasBrandLookalike:    isBrandLookalike(parts.Hostname),

		Parts: parts,
	}
}

// shannonEntropy measures character diversity. Machine-generated domains
// score noticeably higher than dictionary-word domains.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0.0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
