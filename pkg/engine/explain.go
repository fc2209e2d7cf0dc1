package engine

import (
	"fmt"
	"strings"

	"github.com/phishguard/phishguard/pkg/features"
)

// reasonRule is one prioritized explanation rule. Rules are evaluated in
// table order, which is the documented diagnostic priority: structural
// deception tricks first, soft statistical signals last.
type reasonRule struct {
	name      string
	triggered func(v *features.Vector, p *Policy) bool
	message   func(v *features.Vector) string
}

// reasonRules is the fixed priority table. Order is load-bearing: tests pin
// it, and the verdict cap truncates from the bottom.
var reasonRules = []reasonRule{
	{
		name: "ip_host",
		triggered: func(v *features.Vector, p *Policy) bool { return v.HasIP },
		message: func(v *features.Vector) string {
			return fmt.Sprintf("host is a literal IP address (%s)", v.Parts.Hostname)
		},
	},
	{
		name: "at_symbol",
		triggered: func(v *features.Vector, p *Policy) bool { return v.HasAtSymbol },
		message: func(v *features.Vector) string {
			return "URL contains an '@', which hides the real destination behind a fake prefix"
		},
	},
	{
		name: "suspicious_keyword",
		triggered: func(v *features.Vector, p *Policy) bool { return v.HasSuspiciousKeyword },
		message: func(v *features.Vector) string {
			return "host or path contains credential-bait wording (login/secure/verify/...)"
		},
	},
	{
		name: "suspicious_tld",
		triggered: func(v *features.Vector, p *Policy) bool { return v.HasSuspiciousTLD },
		message: func(v *features.Vector) string {
			return "top-level domain is a known high-abuse zone"
		},
	},
	{
		name: "brand_lookalike",
		triggered: func(v *features.Vector, p *Policy) bool { return v.HasBrandLookalike },
		message: func(v *features.Vector) string {
			return "hostname imitates a well-known brand outside its official domain"
		},
	},
	{
		name: "shortener",
		triggered: func(v *features.Vector, p *Policy) bool { return v.HasShortener },
		message: func(v *features.Vector) string {
			return "URL shortener host conceals the final destination"
		},
	},
	{
		name: "subdomain_nesting",
		triggered: func(v *features.Vector, p *Policy) bool { return v.NumSubdomains > p.MaxSubdomains },
		message: func(v *features.Vector) string {
			return fmt.Sprintf("unusually deep subdomain nesting (%d levels)", v.NumSubdomains)
		},
	},
	{
		name: "domain_entropy",
		triggered: func(v *features.Vector, p *Policy) bool { return v.DomainEntropy >= p.EntropyLimit },
		message: func(v *features.Vector) string {
			return fmt.Sprintf("domain looks machine-generated (entropy %.2f)", v.DomainEntropy)
		},
	},
	{
		name: "url_length",
		triggered: func(v *features.Vector, p *Policy) bool { return v.URLLength >= p.LongURL },
		message: func(v *features.Vector) string {
			return fmt.Sprintf("unusually long URL (%d characters)", v.URLLength)
		},
	},
	{
		name: "special_chars",
		triggered: func(v *features.Vector, p *Policy) bool { return v.NumSpecialChars > p.MaxSpecialChars },
		message: func(v *features.Vector) string {
			return fmt.Sprintf("high density of special characters (%d)", v.NumSpecialChars)
		},
	},
	{
		name: "no_https",
		triggered: func(v *features.Vector, p *Policy) bool { return !v.HasHTTPS },
		message: func(v *features.Vector) string {
			return "connection does not use HTTPS"
		},
	},
}

// buildReasons evaluates the rule table in priority order and returns up to
// policy.MaxReasons triggered messages.
func buildReasons(v *features.Vector, p *Policy) []string {
	var reasons []string
	for _, rule := range reasonRules {
		if len(reasons) >= p.MaxReasons {
			break
		}
		if rule.triggered(v, p) {
			reasons = append(reasons, rule.message(v))
		}
	}
	return reasons
}

// HeuristicColor marks a heuristic's state in the explain report.
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorRed    = "red"
)

// Heuristic is one row of the explain report.
type Heuristic struct {
	Feature string      `json:"feature"`
	Value   interface{} `json:"value"`
	Color   string      `json:"color"`
}

// Report is the full color-coded heuristic breakdown for a URL, independent
// of the classifier.
type Report struct {
	URL        string      `json:"url"`
	Heuristics []Heuristic `json:"explanations"`
	Trusted    bool        `json:"trusted"`
}

// buildReport computes the per-heuristic color report.
func buildReport(v *features.Vector, p *Policy, trusted bool) *Report {
	numDots := strings.Count(v.Parts.Raw, ".")

	boolColor := func(suspicious bool) string {
		if suspicious {
			return ColorRed
		}
		return ColorGreen
	}

	urlLengthColor := ColorGreen
	if v.URLLength >= p.LongURL {
		urlLengthColor = ColorRed
	} else if v.URLLength >= p.MediumURL {
		urlLengthColor = ColorYellow
	}

	trustedColor := ColorRed
	if trusted {
		trustedColor = ColorGreen
	}

	return &Report{
		URL:     v.Parts.Raw,
		Trusted: trusted,
		Heuristics: []Heuristic{
			{Feature: "url_length", Value: v.URLLength, Color: urlLengthColor},
			{Feature: "num_dots", Value: numDots, Color: boolColor(numDots > p.MaxDots)},
			{Feature: "num_special_chars", Value: v.NumSpecialChars, Color: boolColor(v.NumSpecialChars > p.MaxSpecialChars)},
			{Feature: "domain_entropy", Value: v.DomainEntropy, Color: boolColor(v.DomainEntropy >= p.EntropyLimit)},
			{Feature: "is_ip_address", Value: v.HasIP, Color: boolColor(v.HasIP)},
			{Feature: "num_subdomains", Value: v.NumSubdomains, Color: boolColor(v.NumSubdomains > p.MaxSubdomains)},
			{Feature: "suspicious_keywords", Value: v.HasSuspiciousKeyword, Color: boolColor(v.HasSuspiciousKeyword)},
			{Feature: "suspicious_tld", Value: v.HasSuspiciousTLD, Color: boolColor(v.HasSuspiciousTLD)},
			{Feature: "brand_lookalike", Value: v.HasBrandLookalike, Color: boolColor(v.HasBrandLookalike)},
			{Feature: "url_shortener", Value: v.HasShortener, Color: boolColor(v.HasShortener)},
			{Feature: "uses_https", Value: v.HasHTTPS, Color: boolColor(!v.HasHTTPS)},
			{Feature: "is_trusted_domain", Value: trusted, Color: trustedColor},
		},
	}
}
