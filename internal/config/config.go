// Package config defines the typed initialization-options tree negotiated
// during the LSP `initialize` request (spec.md §6). Invalid values are
// clamped to the nearest valid bound and logged, never rejected — a
// misconfigured client must still get a working server (spec.md §7's
// ConfigError policy).
package config

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/deps-lsp/deps-lsp/internal/errs"
)

// Severity mirrors the LSP DiagnosticSeverity levels named in spec.md §6.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityHint    Severity = "hint"
)

type InlayHints struct {
	Enabled         bool   `json:"enabled"`
	UpToDateText    string `json:"up_to_date_text"`
	NeedsUpdateText string `json:"needs_update_text"`
}

type Diagnostics struct {
	OutdatedSeverity Severity `json:"outdated_severity"`
	UnknownSeverity  Severity `json:"unknown_severity"`
	YankedSeverity   Severity `json:"yanked_severity"`
}

type Cache struct {
	Enabled              bool `json:"enabled"`
	RefreshIntervalSecs  int  `json:"refresh_interval_secs"`
	FetchTimeoutSecs     int  `json:"fetch_timeout_secs"`
	MaxConcurrentFetches int  `json:"max_concurrent_fetches"`
}

func (c Cache) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

func (c Cache) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSecs) * time.Second
}

type LoadingIndicator struct {
	Enabled         bool   `json:"enabled"`
	FallbackToHints bool   `json:"fallback_to_hints"`
	LoadingText     string `json:"loading_text"`
}

type ColdStart struct {
	Enabled     bool `json:"enabled"`
	RateLimitMs int  `json:"rate_limit_ms"`
}

// Config is the full tree negotiated via LSP initializationOptions.
type Config struct {
	InlayHints       InlayHints       `json:"inlay_hints"`
	Diagnostics      Diagnostics      `json:"diagnostics"`
	Cache            Cache            `json:"cache"`
	LoadingIndicator LoadingIndicator `json:"loading_indicator"`
	ColdStart        ColdStart        `json:"cold_start"`
}

// Default returns the spec.md §6 documented defaults.
func Default() Config {
	return Config{
		InlayHints: InlayHints{
			Enabled:         true,
			UpToDateText:    "✅",
			NeedsUpdateText: "❌ {}",
		},
		Diagnostics: Diagnostics{
			OutdatedSeverity: SeverityHint,
			UnknownSeverity:  SeverityWarning,
			YankedSeverity:   SeverityWarning,
		},
		Cache: Cache{
			Enabled:              true,
			RefreshIntervalSecs:  300,
			FetchTimeoutSecs:     5,
			MaxConcurrentFetches: 20,
		},
		LoadingIndicator: LoadingIndicator{
			Enabled:         true,
			FallbackToHints: true,
			LoadingText:     "⏳",
		},
		ColdStart: ColdStart{
			Enabled:     true,
			RateLimitMs: 100,
		},
	}
}

// Parse decodes raw initializationOptions JSON over the defaults, then
// clamps every bounded field, returning the clamped config plus one
// *errs.ConfigError per field that needed clamping (callers log and
// continue, per spec.md §7).
func Parse(raw json.RawMessage, logger *zap.Logger) (Config, []*errs.ConfigError) {
	cfg := Default()
	if len(raw) > 0 {
		// Unknown fields are ignored; a malformed options blob falls back to
		// defaults entirely rather than failing startup.
		_ = json.Unmarshal(raw, &cfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var problems []*errs.ConfigError

	clampInt(&cfg.Cache.FetchTimeoutSecs, 1, 300, "cache.fetch_timeout_secs", &problems)
	clampInt(&cfg.Cache.MaxConcurrentFetches, 1, 100, "cache.max_concurrent_fetches", &problems)
	if utf8.RuneCountInString(cfg.LoadingIndicator.LoadingText) > 100 {
		problems = append(problems, &errs.ConfigError{
			Field: "loading_indicator.loading_text",
			Value: cfg.LoadingIndicator.LoadingText,
			Bound: "<=100 chars",
		})
		runes := []rune(cfg.LoadingIndicator.LoadingText)
		cfg.LoadingIndicator.LoadingText = string(runes[:100])
	}
	if cfg.ColdStart.RateLimitMs < 0 {
		problems = append(problems, &errs.ConfigError{
			Field: "cold_start.rate_limit_ms",
			Value: cfg.ColdStart.RateLimitMs,
			Bound: 0,
		})
		cfg.ColdStart.RateLimitMs = 0
	}
	if cfg.Cache.RefreshIntervalSecs < 0 {
		problems = append(problems, &errs.ConfigError{
			Field: "cache.refresh_interval_secs",
			Value: cfg.Cache.RefreshIntervalSecs,
			Bound: 0,
		})
		cfg.Cache.RefreshIntervalSecs = 0
	}

	for _, p := range problems {
		logger.Warn(p.Error())
	}

	return cfg, problems
}

func clampInt(field *int, min, max int, name string, problems *[]*errs.ConfigError) {
	if *field >= min && *field <= max {
		return
	}
	bound := min
	if *field > max {
		bound = max
	}
	*problems = append(*problems, &errs.ConfigError{Field: name, Value: *field, Bound: bound})
	*field = bound
}
