package httpcache

import (
	"context"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	"github.com/deps-lsp/deps-lsp/internal/errs"
)

// HTTPFetcher is the default Fetcher implementation: a retrying HTTP client
// with a DNS-cached dialer, carried over from the teacher's
// internal/core.Client (GetBody's retry loop) and fetch.Fetcher (DNS
// caching), generalized to send conditional request headers.
type HTTPFetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
}

// NewHTTPFetcher builds an HTTPFetcher with a DNS-cached dialer, refreshed
// every 5 minutes, matching fetch.NewFetcher's transport setup.
func NewHTTPFetcher(userAgent string) *HTTPFetcher {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					host, port, err := net.SplitHostPort(addr)
					if err != nil {
						return nil, err
					}
					ips, err := resolver.LookupHost(ctx, host)
					if err != nil {
						return nil, err
					}
					var lastErr error
					for _, ip := range ips {
						conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
						if dialErr == nil {
							return conn, nil
						}
						lastErr = dialErr
					}
					return nil, fmt.Errorf("failed to dial any resolved IP: %w", lastErr)
				},
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		userAgent:  userAgent,
		maxRetries: 5,
		baseDelay:  50 * time.Millisecond,
	}
}

// Fetch performs a conditional GET, retrying on 429/5xx with exponential
// backoff, matching internal/core.Client.GetBody's retry policy.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, etag, lastModified string) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := f.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := f.doRequest(ctx, url, etag, lastModified)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var httpErr *errs.HTTPError
		if asHTTPError(err, &httpErr) {
			if httpErr.IsNotFound() {
				return nil, err
			}
			if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.IsServerError() {
				continue
			}
			return nil, err
		}
		return nil, &errs.TransportError{URL: url, Err: err}
	}

	return nil, lastErr
}

func (f *HTTPFetcher) doRequest(ctx context.Context, url, etag, lastModified string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == statusNotModified {
		return &Response{StatusCode: statusNotModified}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, &errs.HTTPError{StatusCode: resp.StatusCode, URL: url, Body: string(body)}
	}

	return &Response{
		StatusCode:   resp.StatusCode,
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

func asHTTPError(err error, target **errs.HTTPError) bool {
	if httpErr, ok := err.(*errs.HTTPError); ok {
		*target = httpErr
		return true
	}
	return false
}
