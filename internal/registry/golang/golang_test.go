package golang

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deps-lsp/deps-lsp/internal/registry"
)

func TestEncodeForProxyEscapesUppercase(t *testing.T) {
	if got := encodeForProxy("github.com/BurntSushi/toml"); got != "github.com/!burnt!sushi/toml" {
		t.Errorf("encodeForProxy = %q", got)
	}
}

func TestGetVersionsFetchesListAndInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/github.com/!burnt!sushi/toml/@v/list":
			w.Write([]byte("v1.4.0\nv1.5.0\n"))
		case "/github.com/!burnt!sushi/toml/@v/v1.4.0.info":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"Version":"v1.4.0","Time":"2024-01-01T00:00:00Z"}`))
		case "/github.com/!burnt!sushi/toml/@v/v1.5.0.info":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"Version":"v1.5.0","Time":"2025-01-01T00:00:00Z"}`))
		default:
			w.WriteHeader(404)
		}
	}))
	defer server.Close()

	client := New(server.URL, registry.NewTransport("deps-lsp-test", 0, 0))
	versions, err := client.GetVersions(context.Background(), "github.com/BurntSushi/toml")
	if err != nil {
		t.Fatalf("GetVersions failed: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("len(versions) = %d, want 2", len(versions))
	}
	if versions[0].PublishedAt.Year() != 2024 {
		t.Errorf("versions[0].PublishedAt.Year() = %d, want 2024", versions[0].PublishedAt.Year())
	}
}

func TestGetVersionsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, registry.NewTransport("deps-lsp-test", 0, 0))
	_, err := client.GetVersions(context.Background(), "example.com/nope")
	if err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestDeriveRepoURLForKnownHosts(t *testing.T) {
	if got := deriveRepoURL("github.com/spf13/cobra"); got != "https://github.com/spf13/cobra" {
		t.Errorf("deriveRepoURL = %q", got)
	}
	if got := deriveRepoURL("example.com/foo/bar"); got != "https://example.com/foo/bar" {
		t.Errorf("deriveRepoURL (unknown host) = %q", got)
	}
}
