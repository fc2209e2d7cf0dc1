package features

import "strings"

// Lexical lookup tables used by the extractor. These are static: the feature
// schema is tied to the trained artifact, so additions here require retraining.

// suspiciousKeywords flag credential-bait wording in the host or path.
var suspiciousKeywords = []string{
	"login", "secure", "verify", "update", "bank",
	"account", "free", "bonus", "click", "win",
}

// suspiciousTLDs are zones with disproportionate abuse rates.
var suspiciousTLDs = []string{
	".xyz", ".top", ".gq", ".tk", ".ml", ".icu", ".cn", ".cf",
}

// shortenerHosts are URL shortening services. A shortened URL hides its real
// destination, which is itself a signal.
var shortenerHosts = map[string]bool{
	"bit.ly":     true,
	"tinyurl.com": true,
	"t.co":       true,
	"goo.gl":     true,
	"is.gd":      true,
	"ow.ly":      true,
	"buff.ly":    true,
	"cutt.ly":    true,
	"rb.gy":      true,
	"tiny.cc":    true,
	"rebrand.ly": true,
}

// brandDomains maps an impersonated brand token to its official registrable
// domain. A host containing the token without belonging to the official domain
// is a lookalike.
var brandDomains = map[string]string{
	"paypal":    "paypal.com",
	"apple":     "apple.com",
	"amazon":    "amazon.com",
	"google":    "google.com",
	"microsoft": "microsoft.com",
	"netflix":   "netflix.com",
	"facebook":  "facebook.com",
	"instagram": "instagram.com",
	"whatsapp":  "whatsapp.com",
	"dropbox":   "dropbox.com",
}

func hasSuspiciousKeyword(hostAndPath string) bool {
	for _, kw := range suspiciousKeywords {
		if strings.Contains(hostAndPath, kw) {
			return true
		}
	}
	return false
}

func hasSuspiciousTLD(host string) bool {
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return false
}

func isBrandLookalike(hostname string) bool {
	for token, official := range brandDomains {
		if !strings.Contains(hostname, token) {
			continue
		}
		if hostname == official || strings.HasSuffix(hostname, "."+official) {
			continue
		}
		return true
	}
	return false
}
