package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/httpcache"
)

// Transport is the shared, cached HTTP access point every ecosystem Client
// fetches through, so every registry benefits from one ETag-validated cache
// and one DNS-cached dialer rather than each client rolling its own
// (spec.md §4.3: "uses HTTP Cache").
type Transport struct {
	cache     *httpcache.Cache
	userAgent string
}

// NewTransport builds a Transport with a fresh HTTPFetcher and cache.
func NewTransport(userAgent string, refreshInterval time.Duration, maxCacheBytes int64) *Transport {
	fetcher := httpcache.NewHTTPFetcher(userAgent)
	return &Transport{
		cache:     httpcache.New(fetcher, refreshInterval, maxCacheBytes),
		userAgent: userAgent,
	}
}

var defaultTransport *Transport

// DefaultTransport returns a process-wide Transport with sensible
// defaults, created lazily on first use.
func DefaultTransport() *Transport {
	if defaultTransport == nil {
		defaultTransport = NewTransport("deps-lsp", 5*time.Minute, 64<<20)
	}
	return defaultTransport
}

// GetJSON fetches url through the cache and decodes the JSON body into v.
// A 404 is translated into errs.NotFoundError by the caller, which knows
// the ecosystem/name/version context this package doesn't.
func (t *Transport) GetJSON(ctx context.Context, url string, v any) error {
	body, stale, err := t.GetBody(ctx, url)
	if err != nil {
		return err
	}
	_ = stale // callers that care about soft staleness read GetBody directly
	return json.Unmarshal(body, v)
}

// GetBody fetches url through the cache and returns the raw body plus
// whether it was served stale after a failed revalidation.
func (t *Transport) GetBody(ctx context.Context, url string) (body []byte, stale bool, err error) {
	res, err := t.cache.Get(ctx, url)
	if err != nil {
		if httpErr, ok := err.(*errs.HTTPError); ok {
			return nil, false, httpErr
		}
		return nil, false, &errs.TransportError{URL: url, Err: err}
	}
	return res.Body, res.Stale, nil
}
