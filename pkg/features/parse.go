package features

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidInput is returned when a submission is empty or cannot be
// interpreted as a URL, bare hostname, or IP literal. Callers should treat it
// as a client fault, never as a verdict.
var ErrInvalidInput = errors.New("invalid input")

// URLParts is the normalized decomposition of a submission.
type URLParts struct {
	Raw      string // normalized input (scheme always present)
	Scheme   string
	Host     string // full authority, lowercased, may include port/brackets
	Hostname string // host without port or IPv6 brackets
	Path     string // lowercased
	Query    string // raw query string
	IsIP     bool   // host is a literal IPv4/IPv6 address
}

// Authority characters permitted after normalization. Anything else (spaces,
// control characters, non-ASCII tricks) is rejected up front.
var hostChars = regexp.MustCompile(`^[a-z0-9.\-\[\]:]+$`)

// Parse normalizes and decomposes a raw URL, bare host, or IP literal.
// Returns ErrInvalidInput for anything that cannot be classified.
func Parse(raw string) (*URLParts, error) {
	normalized := Normalize(raw)
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidInput)
	}

	u, err := url.Parse(normalized)
	if err != nil || u.Host == "" {
		// Bare IPv6 literals ("http://::1") confuse net/url without brackets.
		if fixed, ok := bracketIPv6(normalized); ok {
			u, err = url.Parse(fixed)
		}
		if err != nil || u == nil || u.Host == "" {
			return nil, fmt.Errorf("%w: not parseable as URL or IP", ErrInvalidInput)
		}
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidInput, u.Scheme)
	}

	host := strings.ToLower(u.Host)
	if !hostChars.MatchString(host) {
		return nil, fmt.Errorf("%w: host contains invalid characters", ErrInvalidInput)
	}

	hostname := strings.ToLower(u.Hostname())
	_, ipErr := netip.ParseAddr(hostname)
	isIP := ipErr == nil

	if !isIP && !plausibleDomain(hostname) {
		return nil, fmt.Errorf("%w: implausible domain %q", ErrInvalidInput, hostname)
	}

	return &URLParts{
		Raw:      normalized,
		Scheme:   scheme,
		Host:     host,
		Hostname: hostname,
		Path:     strings.ToLower(u.Path),
		Query:    u.RawQuery,
		IsIP:     isIP,
	}, nil
}

// bracketIPv6 rewrites "scheme://addr[/rest]" to "scheme://[addr][/rest]" when
// addr is an unbracketed IPv6 literal.
func bracketIPv6(normalized string) (string, bool) {
	idx := strings.Index(normalized, "://")
	if idx < 0 {
		return "", false
	}
	rest := normalized[idx+3:]
	authority := rest
	if slash := strings.IndexAny(rest, "/?#"); slash >= 0 {
		authority = rest[:slash]
		rest = rest[slash:]
	} else {
		rest = ""
	}
	addr, err := netip.ParseAddr(strings.Trim(authority, "[]"))
	if err != nil || !addr.Is6() {
		return "", false
	}
	return normalized[:idx+3] + "[" + addr.String() + "]" + rest, true
}

// plausibleDomain rejects random strings posing as hostnames: a non-IP host
// must be dotted, contain a letter, and end in an alphabetic TLD of 2+ chars.
func plausibleDomain(hostname string) bool {
	if hostname == "" || !strings.Contains(hostname, ".") {
		return false
	}
	if !strings.ContainsFunc(hostname, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		return false
	}
	labels := strings.Split(hostname, ".")
	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}
