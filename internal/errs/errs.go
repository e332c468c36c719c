// Package errs collects the error taxonomy shared across the dependency
// resolution pipeline. Errors local to a single dependency are converted to
// state flags by the orchestrator; errors affecting a whole document become
// a single diagnostic. Nothing in this package panics.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a package or version is not found upstream.
var ErrNotFound = errors.New("not found")

// HTTPError represents a non-2xx HTTP response from a registry.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether the response was a 404.
func (e *HTTPError) IsNotFound() bool { return e.StatusCode == 404 }

// IsServerError reports whether the response was a 5xx.
func (e *HTTPError) IsServerError() bool { return e.StatusCode >= 500 }

// NotFoundError wraps ErrNotFound with the ecosystem/name/version context.
type NotFoundError struct {
	Ecosystem string
	Name      string
	Version   string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("%s: package %s version %s not found", e.Ecosystem, e.Name, e.Version)
	}
	return fmt.Sprintf("%s: package %s not found", e.Ecosystem, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RateLimitError is returned when a registry rate limits requests.
type RateLimitError struct {
	RetryAfter int // seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %d seconds", e.RetryAfter)
}

// TransportError wraps a network/TLS-level failure reaching a registry.
// Dependencies that fail with a TransportError keep their prior cached
// state; no "unknown" diagnostic fires if the name is present in the lock
// file (spec.md §7).
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError marks a per-dependency fetch deadline exceeded. Treated
// identically to TransportError by the orchestrator's failure policy.
type TimeoutError struct {
	Name string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out fetching %s", e.Name)
}

// ParseError reports that a manifest could not be parsed, or could only be
// partially parsed. The document is still stored with whatever dependencies
// were recovered so later edits can fix it.
type ParseError struct {
	URI     string
	Message string
	Line    int // 0-based
	Col     int // 0-based, byte offset within line
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.URI, e.Line+1, e.Col+1, e.Message)
}

// LockParseError reports that a lock file could not be read or parsed.
// resolved_lock is left empty for the affected document; the error is
// logged, not surfaced as a document diagnostic (spec.md §7).
type LockParseError struct {
	Path string
	Err  error
}

func (e *LockParseError) Error() string {
	return fmt.Sprintf("parsing lock file %s: %v", e.Path, e.Err)
}

func (e *LockParseError) Unwrap() error { return e.Err }

// OversizeFileError marks a manifest over the 10MB hard limit.
type OversizeFileError struct {
	URI  string
	Size int64
}

func (e *OversizeFileError) Error() string {
	return fmt.Sprintf("%s: file too large (%d bytes, limit 10MB)", e.URI, e.Size)
}

// ConfigError reports an invalid initialization option value. The caller
// clamps to the nearest valid bound and logs a warning; the server still
// starts (spec.md §7).
type ConfigError struct {
	Field string
	Value any
	Bound any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s=%v out of bounds, clamped to %v", e.Field, e.Value, e.Bound)
}
