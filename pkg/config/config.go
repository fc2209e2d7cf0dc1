package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds global settings for the PhishGuard gateway.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Core paths ===
	ModelPath          string // Path to the serialized classifier artifact (default: "./models/url_classifier.json")
	TrustedDomainsPath string // Path to the trusted-domain table (default: "./config/trusted_domains.json")
	PolicyPath         string // Path to the decision policy file (default: "./config/policy.yaml")

	// === Decision thresholds ===
	// PhishThreshold binarizes the classifier probability: probability >= threshold
	// is classified as phishing. Tune to balance false positives vs. misses.
	PhishThreshold float64 // default: 0.5
	MaxReasons     int     // Cap on human-readable reasons per verdict (default: 5)

	// === Feature flags ===
	// EnableTextModel turns on the optional ONNX domain-token classifier.
	// It is consulted only when the primary model is uncertain.
	EnableTextModel bool   // default: false
	TextModelPath   string // ONNX model directory (default: "./models/domain-bert")

	// === Supporting services (all optional) ===
	RedisAddr       string // Verdict cache, e.g. "localhost:6379"; empty disables caching
	CacheTTLSeconds int    // Verdict cache TTL (default: 300)
	AuditLogPath    string // JSONL audit trail (default: "audit_events.jsonl"; empty disables)
	PostgresDSN     string // Postgres audit sink; empty disables
	AuditWorkers    int    // Max concurrent background audit writes (default: 16)
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		ModelPath:          GetEnv("PHISHGUARD_MODEL_PATH", "./models/url_classifier.json"),
		TrustedDomainsPath: GetEnv("PHISHGUARD_TRUSTED_DOMAINS", "./config/trusted_domains.json"),
		PolicyPath:         GetEnv("PHISHGUARD_POLICY_PATH", "./config/policy.yaml"),

		PhishThreshold: GetEnvFloat("PHISHGUARD_THRESHOLD", 0.5),
		MaxReasons:     clampInt(GetEnvInt("PHISHGUARD_MAX_REASONS", 5), 1, 32),

		EnableTextModel: GetEnvBool("PHISHGUARD_ENABLE_TEXT_MODEL", false),
		TextModelPath:   GetEnv("PHISHGUARD_TEXT_MODEL_PATH", "./models/domain-bert"),

		RedisAddr:       GetEnv("PHISHGUARD_REDIS_ADDR", ""),
		CacheTTLSeconds: GetEnvInt("PHISHGUARD_CACHE_TTL_SECONDS", 300),
		AuditLogPath:    GetEnv("PHISHGUARD_AUDIT_LOG", "audit_events.jsonl"),
		PostgresDSN:     GetEnv("PHISHGUARD_POSTGRES_DSN", ""),
		AuditWorkers:    clampInt(GetEnvInt("PHISHGUARD_AUDIT_WORKERS", 16), 1, 256),
	}
}

// NewStrictConfig creates a Config biased toward flagging: a lower threshold
// means more URLs classified as phishing. Use where misses are costlier than
// false positives (e.g. mail gateways).
func NewStrictConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.PhishThreshold = 0.35
	return cfg
}

// NewLenientConfig creates a Config that minimizes false positives.
func NewLenientConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.PhishThreshold = 0.7
	return cfg
}

// Validate checks that configuration values are internally consistent.
func (c *Config) Validate() error {
	var problems []string

	if c.PhishThreshold <= 0 || c.PhishThreshold >= 1 {
		problems = append(problems, fmt.Sprintf("PHISHGUARD_THRESHOLD must be in (0,1), got %v", c.PhishThreshold))
	}
	if c.ModelPath == "" {
		problems = append(problems, "PHISHGUARD_MODEL_PATH must not be empty")
	}
	if c.CacheTTLSeconds < 0 {
		problems = append(problems, fmt.Sprintf("PHISHGUARD_CACHE_TTL_SECONDS must be >= 0, got %d", c.CacheTTLSeconds))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before loading the model.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.
// These are exported for use by other packages.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
