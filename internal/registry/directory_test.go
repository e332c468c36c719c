package registry_test

import (
	"context"
	"testing"

	"github.com/deps-lsp/deps-lsp/internal/registry"
)

type fakeClient struct{ eco string }

func (f *fakeClient) Ecosystem() string { return f.eco }
func (f *fakeClient) GetVersions(context.Context, string) ([]registry.Version, error) {
	return nil, nil
}
func (f *fakeClient) GetMetadata(context.Context, string) (*registry.Metadata, error) {
	return nil, nil
}
func (f *fakeClient) Search(context.Context, string) ([]string, error) { return nil, nil }

func TestRegisterAndNewUsesDefaultURL(t *testing.T) {
	registry.Register("fakeeco", "https://fake.example.test", func(baseURL string, t *registry.Transport) registry.Client {
		return &fakeClient{eco: "fakeeco-" + baseURL}
	})

	client, err := registry.New("fakeeco", "", registry.NewTransport("test", 0, 0))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if client.Ecosystem() != "fakeeco-https://fake.example.test" {
		t.Errorf("Ecosystem() = %q, did not fall back to the registered default URL", client.Ecosystem())
	}

	if registry.DefaultURL("fakeeco") != "https://fake.example.test" {
		t.Errorf("DefaultURL = %q", registry.DefaultURL("fakeeco"))
	}

	var found bool
	for _, eco := range registry.SupportedEcosystems() {
		if eco == "fakeeco" {
			found = true
		}
	}
	if !found {
		t.Error("SupportedEcosystems did not include the just-registered ecosystem")
	}
}

func TestNewUnknownEcosystemErrors(t *testing.T) {
	if _, err := registry.New("no-such-ecosystem", "", nil); err == nil {
		t.Fatal("expected an error for an unregistered ecosystem")
	}
}

func TestNewOverridesBaseURL(t *testing.T) {
	registry.Register("fakeeco2", "https://default.example.test", func(baseURL string, t *registry.Transport) registry.Client {
		return &fakeClient{eco: baseURL}
	})

	client, err := registry.New("fakeeco2", "https://override.example.test", registry.NewTransport("test", 0, 0))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if client.Ecosystem() != "https://override.example.test" {
		t.Errorf("Ecosystem() = %q, want the overriding base URL", client.Ecosystem())
	}
}
