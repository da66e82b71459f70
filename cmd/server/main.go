package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"contract-risk-eval/internal/ai"
	"contract-risk-eval/internal/analysis"
	"contract-risk-eval/internal/api"
	"contract-risk-eval/internal/rules"
	"contract-risk-eval/internal/upstream"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("load .env")
	}
	configureLogging()

	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	catalog := rules.NewCatalog()
	for _, pack := range splitList(os.Getenv("RULE_PACKS")) {
		added, err := catalog.LoadPack(pack)
		if err != nil {
			logrus.Fatalf("load rule pack %s: %v", pack, err)
		}
		logrus.WithFields(logrus.Fields{"pack": pack, "rules": added}).Info("rule pack loaded")
	}

	ctx := context.Background()
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER")))
	if provider == "" {
		provider = ai.ProviderHuggingFace
	}

	var extractor analysis.RiskExtractor
	disableAI := strings.EqualFold(strings.TrimSpace(os.Getenv("DISABLE_AI")), "true")
	if disableAI {
		logrus.Info("ai risk extraction disabled by DISABLE_AI")
	} else {
		completer, closers := buildCompleter(ctx, provider)
		for _, closer := range closers {
			defer closer.Close()
		}
		if completer != nil {
			opts := []ai.ExtractorOption{ai.WithLogger(logrus.StandardLogger())}
			if timeout := os.Getenv("AI_TIMEOUT"); timeout != "" {
				if d, err := time.ParseDuration(timeout); err == nil {
					opts = append(opts, ai.WithTimeout(d))
				}
			}
			extractor = ai.NewExtractor(completer, opts...)
		}
	}

	engine := analysis.NewEngine(catalog, extractor, logrus.StandardLogger())

	cfg := api.Config{
		DBPath: filepath.Join(dataDir, "contract-risk.db"),
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		},
		Engine:     engine,
		Upstream:   upstream.NewClient(upstream.Config{BaseURL: os.Getenv("AI_SERVICE_URL")}),
		AIProvider: provider,
	}
	if origins := splitList(os.Getenv("ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.AllowedOrigins = origins
		if len(origins) == 1 && origins[0] == "*" {
			cfg.AllowedOrigins = nil
		}
	}
	if override, ok := os.LookupEnv("REPORTS_DB_PATH"); ok {
		cfg.DBPath = strings.TrimSpace(override)
	}
	if v := strings.TrimSpace(os.Getenv("MAX_UPLOAD_BYTES")); v != "" {
		if val, err := strconv.ParseInt(v, 10, 64); err == nil && val > 0 {
			cfg.MaxUploadBytes = val
		}
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer server.Close()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logrus.WithFields(logrus.Fields{
		"port":       port,
		"categories": catalog.Categories(),
		"ai":         engine.AIAvailable(),
		"ai_service": cfg.Upstream.BaseURL(),
	}).Info("starting contract-risk-eval backend")
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

func configureLogging() {
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			logrus.WithError(err).Warn("invalid LOG_LEVEL, keeping info")
			return
		}
		logrus.SetLevel(parsed)
	}
}

// buildCompleter returns the configured primary completer chained with the
// optional AI_FALLBACK provider, or nil when no provider has an API key.
func buildCompleter(ctx context.Context, provider string) (ai.Completer, []io.Closer) {
	var closers []io.Closer
	build := func(name string, primary bool) ai.Completer {
		cfg := ai.Config{Provider: name, APIKey: ai.APIKeyFromEnv(name)}
		if primary {
			cfg.Model = os.Getenv("AI_MODEL")
			cfg.BaseURL = os.Getenv("AI_BASE_URL")
		}
		completer, err := ai.NewCompleter(ctx, cfg)
		if err != nil {
			logrus.WithError(err).WithField("provider", name).Warn("ai provider unavailable")
			return nil
		}
		if closer, ok := completer.(io.Closer); ok {
			closers = append(closers, closer)
		}
		entry := logrus.WithField("provider", name)
		if m, ok := completer.(interface{ Model() string }); ok {
			entry = entry.WithField("model", m.Model())
		}
		entry.Info("ai provider configured")
		return completer
	}

	primary := build(provider, true)
	var fallback ai.Completer
	if name := strings.ToLower(strings.TrimSpace(os.Getenv("AI_FALLBACK"))); name != "" && name != provider {
		fallback = build(name, false)
	}

	switch {
	case primary != nil && fallback != nil:
		return ai.WithFallback(primary, fallback), closers
	case primary != nil:
		return primary, closers
	case fallback != nil:
		return fallback, closers
	}
	return nil, closers
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
