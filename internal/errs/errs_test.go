package errs

import (
	"errors"
	"testing"
)

func TestHTTPErrorClassification(t *testing.T) {
	notFound := &HTTPError{StatusCode: 404, URL: "https://example.test/pkg"}
	if !notFound.IsNotFound() {
		t.Error("IsNotFound() = false for a 404")
	}
	if notFound.IsServerError() {
		t.Error("IsServerError() = true for a 404")
	}

	serverErr := &HTTPError{StatusCode: 503, URL: "https://example.test/pkg"}
	if serverErr.IsNotFound() {
		t.Error("IsNotFound() = true for a 503")
	}
	if !serverErr.IsServerError() {
		t.Error("IsServerError() = false for a 503")
	}
}

func TestNotFoundErrorUnwrapsToErrNotFound(t *testing.T) {
	err := &NotFoundError{Ecosystem: "npm", Name: "left-pad"}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false")
	}
	if err.Error() != "npm: package left-pad not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNotFoundErrorIncludesVersionWhenSet(t *testing.T) {
	err := &NotFoundError{Ecosystem: "cargo", Name: "serde", Version: "99.0.0"}
	want := "cargo: package serde version 99.0.0 not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTransportErrorUnwrapsUnderlyingError(t *testing.T) {
	inner := errors.New("connection reset")
	err := &TransportError{URL: "https://example.test", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is(err, inner) = false")
	}
}

func TestLockParseErrorUnwrapsUnderlyingError(t *testing.T) {
	inner := errors.New("unexpected token")
	err := &LockParseError{Path: "Cargo.lock", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is(err, inner) = false")
	}
}

func TestOversizeFileErrorMessage(t *testing.T) {
	err := &OversizeFileError{URI: "file:///big.json", Size: 20 * 1024 * 1024}
	if err.Error() == "" {
		t.Error("Error() returned an empty string")
	}
}

func TestParseErrorFormatsOneBasedPosition(t *testing.T) {
	err := &ParseError{URI: "file:///a/Cargo.toml", Message: "unexpected EOF", Line: 4, Col: 9}
	want := "file:///a/Cargo.toml:5:10: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
