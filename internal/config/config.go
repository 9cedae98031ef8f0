package config

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type StalePolicy string

const (
	// DropStale discards responses of cycles that are no longer current.
	DropStale StalePolicy = "drop"
	// LastResolvedWins applies whichever response arrives last.
	LastResolvedWins StalePolicy = "last"
)

type Config struct {
	Port              int
	BackendURL        string
	DefaultSource     string
	HTTPClientTimeout time.Duration
	ProgressTick      time.Duration
	FadeDelay         time.Duration
	StalePolicy       StalePolicy
	ThemeStore        string
	CategoriesFile    string
	LogRequests       bool
	RefreshRPS        float64
	RefreshBurst      int
	OTLPEndpoint      string
	OTLPInsecure      bool
	ServiceName       string
}

func Load(getenv func(string) string) Config {
	cfg := Config{
		Port:              8080,
		BackendURL:        strings.TrimRight(envOr(getenv, "BACKEND_URL", "http://localhost:5000"), "/"),
		DefaultSource:     strings.TrimSpace(getenv("DEFAULT_SOURCE")),
		HTTPClientTimeout: parseInterval(getenv("HTTP_CLIENT_TIMEOUT"), 30*time.Second),
		ProgressTick:      parseInterval(getenv("PROGRESS_TICK"), time.Second),
		FadeDelay:         parseInterval(getenv("FADE_DELAY"), 500*time.Millisecond),
		StalePolicy:       parseStalePolicy(getenv("STALE_POLICY")),
		ThemeStore:        envOr(getenv, "THEME_STORE", "sqlite:dashboard.db"),
		CategoriesFile:    strings.TrimSpace(getenv("CATEGORIES_FILE")),
		LogRequests:       strings.TrimSpace(getenv("LOG_REQUESTS")) != "0",
		RefreshRPS:        1,
		RefreshBurst:      getEnvInt(getenv, "REFRESH_BURST", 3, 1, 100),
		OTLPEndpoint:      strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTLPInsecure:      strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_INSECURE")) == "1",
		ServiceName:       envOr(getenv, "OTEL_SERVICE_NAME", "dcortex-dashboard"),
	}

	if raw := strings.TrimSpace(getenv("PORT")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < 65536 {
			cfg.Port = n
		}
	}

	// 0 turns the refresh limiter off
	if v := strings.TrimSpace(getenv("REFRESH_RPS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && !math.IsInf(f, 0) {
			cfg.RefreshRPS = f
		}
	}

	// a zero tick would spin the progress loop
	if cfg.ProgressTick <= 0 {
		cfg.ProgressTick = time.Second
	}

	return cfg
}

// FakeBackend configures the development stub of the data service.
type FakeBackend struct {
	Port          int
	Shape         string
	Scrape        bool
	ScrapeTimeout time.Duration
	Latency       time.Duration
}

func LoadFakeBackend(getenv func(string) string) FakeBackend {
	cfg := FakeBackend{
		Port:          getEnvInt(getenv, "FAKE_PORT", 5000, 1, 65535),
		Shape:         envOr(getenv, "FAKE_SHAPE", "precomputed"),
		Scrape:        strings.TrimSpace(getenv("FAKE_SCRAPE")) == "1",
		ScrapeTimeout: parseInterval(getenv("FAKE_SCRAPE_TIMEOUT"), 20*time.Second),
		Latency:       parseInterval(getenv("FAKE_LATENCY"), 0),
	}
	return cfg
}

func parseStalePolicy(raw string) StalePolicy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "last", "last_resolved", "last-resolved":
		return LastResolvedWins
	}
	return DropStale
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(getenv func(string) string, key string, fallback, min, max int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}

func parseInterval(raw string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(raw)
	if v == "" {
		return fallback
	}
	if v == "0" || v == "0s" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
