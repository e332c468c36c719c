package pypi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deps-lsp/deps-lsp/internal/registry"
)

func TestGetMetadataPrefersRepositoryProjectURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/Requests/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := packageResponse{
			Info: infoBlock{
				Summary:     "Python HTTP for Humans.",
				HomePage:    "https://requests.readthedocs.io",
				License:     "Apache-2.0",
				Keywords:    "http, requests, client",
				ProjectURLs: map[string]string{"Source": "https://github.com/psf/requests"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := New(server.URL, registry.NewTransport("deps-lsp-test", 0, 0))
	meta, err := client.GetMetadata(context.Background(), "Requests")
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if meta.Name != "requests" {
		t.Errorf("Name = %q, want normalized lowercase requests", meta.Name)
	}
	if meta.Repository != "https://github.com/psf/requests" {
		t.Errorf("Repository = %q", meta.Repository)
	}
	if len(meta.Keywords) != 3 {
		t.Errorf("Keywords = %v, want 3 entries", meta.Keywords)
	}
}

func TestGetVersionsMarksYanked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := packageResponse{
			Releases: map[string][]releaseFile{
				"1.0.0": {{UploadTime: "2020-01-01T00:00:00", Yanked: true}},
				"1.0.1": {{UploadTime: "2020-02-01T00:00:00", Yanked: false}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := New(server.URL, registry.NewTransport("deps-lsp-test", 0, 0))
	versions, err := client.GetVersions(context.Background(), "demo")
	if err != nil {
		t.Fatalf("GetVersions failed: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("len(versions) = %d, want 2", len(versions))
	}
	var sawYanked bool
	for _, v := range versions {
		if v.Number == "1.0.0" && v.IsYanked {
			sawYanked = true
		}
	}
	if !sawYanked {
		t.Error("expected 1.0.0 to be marked yanked")
	}
}

func TestSearchReturnsEmptyNotError(t *testing.T) {
	client := New("https://pypi.org", registry.NewTransport("deps-lsp-test", 0, 0))
	names, err := client.Search(context.Background(), "req")
	if err != nil {
		t.Fatalf("Search returned an error, want nil: %v", err)
	}
	if names != nil {
		t.Errorf("Search = %v, want nil", names)
	}
}

func TestNormalizeNameCollapsesSeparators(t *testing.T) {
	if got := normalizeName("My_Package.Name"); got != "my-package-name" {
		t.Errorf("normalizeName = %q, want my-package-name", got)
	}
}
