// Package cargo provides a registry.Client for crates.io.
package cargo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/registry"
)

const (
	DefaultURL = "https://crates.io"
	ecosystem  = "cargo"
)

func init() {
	registry.Register(ecosystem, DefaultURL, func(baseURL string, t *registry.Transport) registry.Client {
		return New(baseURL, t)
	})
}

type Client struct {
	baseURL   string
	transport *registry.Transport
}

func New(baseURL string, t *registry.Transport) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), transport: t}
}

func (c *Client) Ecosystem() string { return ecosystem }

type crateResponse struct {
	Crate    crateInfo     `json:"crate"`
	Versions []versionInfo `json:"versions"`
}

type crateInfo struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Homepage    string   `json:"homepage"`
	Repository  string   `json:"repository"`
	Keywords    []string `json:"keywords"`
}

type versionInfo struct {
	Num         string `json:"num"`
	License     string `json:"license"`
	Yanked      bool   `json:"yanked"`
	CreatedAt   string `json:"created_at"`
	Downloads   int    `json:"downloads"`
	RustVersion string `json:"rust_version"`
}

func (c *Client) fetchCrate(ctx context.Context, name string) (*crateResponse, error) {
	url := fmt.Sprintf("%s/api/v1/crates/%s", c.baseURL, name)
	var resp crateResponse
	if err := c.transport.GetJSON(ctx, url, &resp); err != nil {
		if httpErr, ok := err.(*errs.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &errs.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetVersions(ctx context.Context, name string) ([]registry.Version, error) {
	resp, err := c.fetchCrate(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]registry.Version, len(resp.Versions))
	for i, v := range resp.Versions {
		var publishedAt time.Time
		if v.CreatedAt != "" {
			publishedAt, _ = time.Parse(time.RFC3339, v.CreatedAt)
		}
		out[i] = registry.Version{
			Number:      v.Num,
			PublishedAt: publishedAt,
			IsYanked:    v.Yanked,
			Metadata: map[string]any{
				"downloads":    v.Downloads,
				"rust_version": v.RustVersion,
				"license":      v.License,
			},
		}
	}
	return out, nil
}

func (c *Client) GetMetadata(ctx context.Context, name string) (*registry.Metadata, error) {
	resp, err := c.fetchCrate(ctx, name)
	if err != nil {
		return nil, err
	}
	var licenses string
	if len(resp.Versions) > 0 {
		licenses = resp.Versions[0].License
	}
	return &registry.Metadata{
		Name:        resp.Crate.ID,
		Description: resp.Crate.Description,
		Homepage:    resp.Crate.Homepage,
		Repository:  resp.Crate.Repository,
		Licenses:    licenses,
		Keywords:    resp.Crate.Keywords,
	}, nil
}

// Search hits crates.io's search endpoint, which unlike most of the other
// registries supports prefix search directly.
func (c *Client) Search(ctx context.Context, prefix string) ([]string, error) {
	url := fmt.Sprintf("%s/api/v1/crates?q=%s&per_page=20", c.baseURL, prefix)
	var resp struct {
		Crates []struct {
			Name string `json:"name"`
		} `json:"crates"`
	}
	if err := c.transport.GetJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	names := make([]string, len(resp.Crates))
	for i, cr := range resp.Crates {
		names[i] = cr.Name
	}
	return names, nil
}
