package npm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deps-lsp/deps-lsp/internal/registry"
)

func TestGetMetadataUsesLatestDistTag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lodash" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(404)
			return
		}
		resp := packageResponse{
			ID:          "lodash",
			Description: "Lodash modular utilities.",
			Homepage:    "https://lodash.com/",
			Repository:  map[string]interface{}{"url": "git+https://github.com/lodash/lodash.git"},
			DistTags:    map[string]string{"latest": "4.17.21"},
			Versions: map[string]versionInfo{
				"4.17.21": {Description: "Lodash modular utilities.", License: "MIT", Keywords: []interface{}{"modules", "stdlib"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := New(server.URL, registry.NewTransport("deps-lsp-test", 0, 0))
	meta, err := client.GetMetadata(context.Background(), "lodash")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if meta.Repository != "https://github.com/lodash/lodash" {
		t.Errorf("Repository = %q", meta.Repository)
	}
	if meta.Licenses != "MIT" {
		t.Errorf("Licenses = %q, want MIT", meta.Licenses)
	}
	if len(meta.Keywords) != 2 {
		t.Errorf("Keywords = %v, want 2 entries", meta.Keywords)
	}
}

func TestGetVersionsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, registry.NewTransport("deps-lsp-test", 0, 0))
	_, err := client.GetVersions(context.Background(), "does-not-exist")
	if err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestScopedPackageNameEscaping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/@scope%2Fpkg" {
			t.Errorf("unexpected escaped path: %s", r.URL.EscapedPath())
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(packageResponse{ID: "@scope/pkg"})
	}))
	defer server.Close()

	client := New(server.URL, registry.NewTransport("deps-lsp-test", 0, 0))
	if _, err := client.GetVersions(context.Background(), "@scope/pkg"); err != nil {
		t.Fatalf("GetVersions failed: %v", err)
	}
}
