package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/phishguard/phishguard/pkg/audit"
	"github.com/phishguard/phishguard/pkg/cache"
	"github.com/phishguard/phishguard/pkg/config"
	"github.com/phishguard/phishguard/pkg/engine"
	"github.com/phishguard/phishguard/pkg/features"
	"github.com/phishguard/phishguard/pkg/httputil"
	"github.com/phishguard/phishguard/pkg/model"
	"github.com/phishguard/phishguard/pkg/trust"
)

const Version = "0.1.0"

// Detector bundles the loaded core with its optional supporting services.
// Everything is constructed once at startup; requests only read.
type Detector struct {
	engine   *engine.Engine
	cache    *cache.VerdictCache // nil-safe when disabled
	sink     audit.Sink          // nil when auditing is disabled
	auditSem *httputil.Semaphore
	cfg      *config.Config
}

// NewDetector loads all process-wide state. The classifier artifact is the
// only hard requirement: without it no meaningful verdict exists, so load
// failure is fatal. Everything else degrades gracefully.
func NewDetector(cfg *config.Config) *Detector {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	cfg.MustValidate()

	registry := trust.Load(cfg.TrustedDomainsPath)

	linear, err := model.LoadLinearModel(cfg.ModelPath, cfg.PhishThreshold)
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}
	log.Printf("[STARTUP] classifier artifact loaded: %s", cfg.ModelPath)

	policy := engine.LoadPolicy(cfg.PolicyPath)
	if os.Getenv("PHISHGUARD_MAX_REASONS") != "" {
		policy.MaxReasons = cfg.MaxReasons
	}

	var text model.TextClassifier
	if cfg.EnableTextModel {
		tc := model.NewDomainTextClassifierWithFallback(model.DefaultTextModelConfig(cfg.TextModelPath))
		if tc.IsReady() {
			text = tc
			log.Println("✓ domain text model enabled (hugot/ONNX)")
		} else {
			log.Println("○ domain text model disabled (initialization failed)")
		}
	} else {
		log.Println("○ domain text model disabled (PHISHGUARD_ENABLE_TEXT_MODEL not set)")
	}

	eng, err := engine.New(engine.Options{
		Registry:       registry,
		Classifier:     linear,
		TextClassifier: text,
		Threshold:      cfg.PhishThreshold,
		Policy:         policy,
	})
	if err != nil {
		log.Fatalf("[STARTUP] FATAL: %v", err)
	}

	verdictCache := cache.New(cfg.RedisAddr, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	if verdictCache != nil {
		log.Printf("✓ verdict cache enabled (redis: %s)", cfg.RedisAddr)
	} else {
		log.Println("○ verdict cache disabled (no PHISHGUARD_REDIS_ADDR)")
	}

	var sinks audit.MultiSink
	if cfg.AuditLogPath != "" {
		fs, err := audit.NewFileSink(cfg.AuditLogPath)
		if err != nil {
			log.Printf("[WARN] audit log disabled: %v", err)
		} else {
			sinks = append(sinks, fs)
			log.Printf("✓ audit log enabled (%s)", cfg.AuditLogPath)
		}
	}
	if cfg.PostgresDSN != "" {
		ps, err := audit.NewPostgresSink(context.Background(), cfg.PostgresDSN)
		if err != nil {
			log.Printf("[WARN] postgres audit sink disabled: %v", err)
		} else {
			sinks = append(sinks, ps)
			log.Println("✓ postgres audit sink enabled")
		}
	}

	d := &Detector{
		engine:   eng,
		cache:    verdictCache,
		auditSem: httputil.NewSemaphore(cfg.AuditWorkers),
		cfg:      cfg,
	}
	if len(sinks) > 0 {
		d.sink = sinks
	}
	return d
}

// Evaluate runs one classification with cache read-through and
// fire-and-forget auditing.
func (d *Detector) Evaluate(ctx context.Context, raw, source string) (*engine.Verdict, error) {
	key := features.Normalize(raw)

	if v, err := d.cache.Get(ctx, key); err == nil && v != nil {
		return v, nil
	}

	v, err := d.engine.Evaluate(ctx, raw)
	if err != nil {
		return nil, err
	}

	if err := d.cache.Put(ctx, key, v); err != nil {
		log.Printf("[WARN] verdict cache write failed: %v", err)
	}
	d.publishAudit(v, source)
	return v, nil
}

// publishAudit writes the event in the background. At capacity the event is
// dropped: auditing must never add latency to classification.
func (d *Detector) publishAudit(v *engine.Verdict, source string) {
	if d.sink == nil {
		return
	}
	if !d.auditSem.TryAcquire() {
		return
	}
	ev := audit.NewEvent(v, source)
	go func() {
		defer d.auditSem.Release()
		if err := d.sink.Write(ev); err != nil {
			log.Printf("[WARN] audit write failed: %v", err)
		}
	}()
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		port := "8080"
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "scan":
		if len(os.Args) < 3 {
			fmt.Println("Usage: phishguard scan <url>")
			os.Exit(1)
		}
		runCLIScan(os.Args[2])
	case "version":
		fmt.Printf("PhishGuard v%s\n", Version)
		fmt.Println("Phishing URL detector - heuristics + trained classifier")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("PhishGuard v%s - phishing URL detector\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  phishguard serve [port]   Start HTTP server (default: 8080)")
	fmt.Println("  phishguard scan <url>     Classify a single URL")
	fmt.Println("  phishguard version        Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  PHISHGUARD_MODEL_PATH         Classifier artifact (default: ./models/url_classifier.json)")
	fmt.Println("  PHISHGUARD_TRUSTED_DOMAINS    Trusted domain table (default: ./config/trusted_domains.json)")
	fmt.Println("  PHISHGUARD_THRESHOLD          Phishing probability cutoff (default: 0.5)")
	fmt.Println("  PHISHGUARD_REDIS_ADDR         Enable verdict caching")
	fmt.Println("  PHISHGUARD_POSTGRES_DSN       Enable postgres audit sink")
	fmt.Println("  PHISHGUARD_ENABLE_TEXT_MODEL  Enable ONNX domain text model")
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runHTTPServer(port string) {
	detector := NewDetector(config.NewDefaultConfig())

	app := fiber.New(fiber.Config{
		AppName: "PhishGuard",
	})

	app.Use(func(c fiber.Ctx) error {
		c.Set("X-Request-ID", uuid.NewString())
		return c.Next()
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	// GET /predict?url=... mirrors the original serving contract: the
	// compact prediction fields plus the verdict's confidence and reasons.
	app.Get("/predict", func(c fiber.Ctx) error {
		rawURL := c.Query("url")
		if rawURL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url query parameter is required"})
		}

		v, err := detector.Evaluate(c.Context(), rawURL, "http")
		if err != nil {
			return verdictError(c, err)
		}

		prediction := 0
		if v.Label == engine.LabelPhishing {
			prediction = 1
		}
		return c.JSON(fiber.Map{
			"url":         v.Input,
			"prediction":  prediction,
			"class_name":  v.Label,
			"probability": v.Probability,
			"threshold":   v.Threshold,
			"trusted":     v.TrustedOverride,
			"confidence":  v.Confidence,
			"reasons":     v.Reasons,
		})
	})

	// GET /explain?url=... returns the color-coded heuristic breakdown
	// without consulting the classifier.
	app.Get("/explain", func(c fiber.Ctx) error {
		rawURL := c.Query("url")
		if rawURL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url query parameter is required"})
		}

		report, err := detector.engine.Explain(rawURL)
		if err != nil {
			return verdictError(c, err)
		}
		return c.JSON(report)
	})

	// POST /scan {"url": "..."} returns the full verdict.
	app.Post("/scan", func(c fiber.Ctx) error {
		var req struct {
			URL string `json:"url"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		if req.URL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "url field is required"})
		}

		v, err := detector.Evaluate(c.Context(), req.URL, "http")
		if err != nil {
			return verdictError(c, err)
		}
		return c.JSON(v)
	})

	log.Printf("[STARTUP] PhishGuard v%s listening on :%s", Version, port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("[FATAL] server exited: %v", err)
	}
}

// verdictError maps classification-path errors onto HTTP statuses: client
// faults are 400, everything else is a 500 that is clearly not a verdict.
func verdictError(c fiber.Ctx, err error) error {
	if errors.Is(err, features.ErrInvalidInput) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	log.Printf("[ERROR] classification failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "classification failed"})
}

// ============================================================================
// CLI Scan Mode
// ============================================================================

func runCLIScan(rawURL string) {
	detector := NewDetector(config.NewDefaultConfig())

	v, err := detector.Evaluate(context.Background(), rawURL, "cli")
	if err != nil {
		if errors.Is(err, features.ErrInvalidInput) {
			fmt.Printf("Invalid input: %v\n", err)
			os.Exit(2)
		}
		log.Fatalf("[FATAL] scan failed: %v", err)
	}

	fmt.Printf("URL:        %s\n", v.Input)
	fmt.Printf("Verdict:    %s (%.1f%% confidence)\n", strings.ToUpper(v.Label), v.Confidence)
	fmt.Printf("P(phish):   %.4f (threshold %.2f)\n", v.Probability, v.Threshold)
	if v.TrustedOverride {
		fmt.Println("Trusted:    yes (classifier bypassed)")
	}
	fmt.Println("Reasons:")
	for i, r := range v.Reasons {
		fmt.Printf("  %d. %s\n", i+1, r)
	}
}
