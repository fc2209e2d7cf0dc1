// Package trust implements the trusted-domain allow list. A trusted host
// bypasses classification entirely, so the registry fails safe: a missing or
// malformed table yields an empty registry, never a permissive one.
package trust

import (
	"encoding/json"
	"log"
	"os"
	"strings"
)

// Registry answers membership queries against a static domain table.
// It is loaded once at process start and read-only afterwards, so lookups
// are safe for concurrent use without locking.
type Registry struct {
	exact    map[string]struct{}
	wildcard map[string]struct{} // "*.example.com" entries, keyed by "example.com"
}

// Load reads a JSON table mapping domain -> bool. Entries set to false are
// skipped. Any load problem degrades to an empty registry with a warning:
// the service keeps running, nothing becomes trusted by accident.
func Load(path string) *Registry {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[WARN] trusted domain registry: cannot read %s (%v), nothing will be trusted", path, err)
		return empty()
	}

	var table map[string]bool
	if err := json.Unmarshal(data, &table); err != nil {
		log.Printf("[WARN] trusted domain registry: malformed table %s (%v), nothing will be trusted", path, err)
		return empty()
	}

	r := NewStatic(table)
	log.Printf("[STARTUP] trusted domain registry loaded: %d entries", r.Len())
	return r
}

// NewStatic builds a registry from an in-memory table. Used by tests and by
// callers that manage their own table loading.
func NewStatic(table map[string]bool) *Registry {
	r := empty()
	for domain, trusted := range table {
		if !trusted {
			continue
		}
		key := normalizeEntry(domain)
		if key == "" {
			continue
		}
		if base, ok := strings.CutPrefix(key, "*."); ok {
			if base != "" {
				r.wildcard[base] = struct{}{}
			}
			continue
		}
		r.exact[key] = struct{}{}
	}
	return r
}

func empty() *Registry {
	return &Registry{
		exact:    make(map[string]struct{}),
		wildcard: make(map[string]struct{}),
	}
}

// Len reports the number of loaded entries.
func (r *Registry) Len() int {
	return len(r.exact) + len(r.wildcard)
}

// IsTrusted reports whether the host matches a stored entry. Matching is
// exact after normalization; subdomains match only entries stored with an
// explicit "*." prefix.
func (r *Registry) IsTrusted(host string) bool {
	h := normalizeHost(host)
	if h == "" {
		return false
	}
	if _, ok := r.exact[h]; ok {
		return true
	}
	// Walk parent suffixes for wildcard entries: a.b.example.com checks
	// b.example.com and example.com.
	if _, ok := r.wildcard[h]; ok {
		return true
	}
	for {
		dot := strings.Index(h, ".")
		if dot < 0 {
			return false
		}
		h = h[dot+1:]
		if _, ok := r.wildcard[h]; ok {
			return true
		}
	}
}

// normalizeEntry canonicalizes a stored table key.
func normalizeEntry(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimSuffix(d, ".")
	return d
}

// normalizeHost canonicalizes a queried host: lowercase, port stripped,
// leading "www." dropped.
func normalizeHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return ""
	}
	// IPv6 literals keep their brackets-free form; names lose their port.
	if strings.HasPrefix(h, "[") {
		if end := strings.Index(h, "]"); end > 0 {
			h = h[1:end]
		}
	} else if colon := strings.LastIndex(h, ":"); colon >= 0 && !strings.Contains(h[colon:], "]") {
		if strings.Count(h, ":") == 1 {
			h = h[:colon]
		}
	}
	h = strings.TrimPrefix(h, "www.")
	return strings.TrimSuffix(h, ".")
}
