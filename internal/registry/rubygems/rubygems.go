// Package rubygems provides a registry.Client for rubygems.org.
package rubygems

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/registry"
)

const (
	DefaultURL = "https://rubygems.org"
	ecosystem  = "bundler"
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

type gemResponse struct {
	Name          string   `json:"name"`
	Info          string   `json:"info"`
	Licenses      []string `json:"licenses"`
	HomepageURI   string   `json:"homepage_uri"`
	SourceCodeURI string   `json:"source_code_uri"`
	WikiURI       string   `json:"wiki_uri"`
	DocumentURI   string   `json:"documentation_uri"`
	BugTrackerURI string   `json:"bug_tracker_uri"`
	ChangelogURI  string   `json:"changelog_uri"`
}

type versionResponse struct {
	Number     string `json:"number"`
	Platform   string `json:"platform"`
	CreatedAt  string `json:"created_at"`
	Prerelease bool   `json:"prerelease"`
}

func (c *Client) GetVersions(ctx context.Context, name string) ([]registry.Version, error) {
	url := fmt.Sprintf("%s/api/v1/versions/%s.json", c.baseURL, name)
	var resp []versionResponse
	if err := c.transport.GetJSON(ctx, url, &resp); err != nil {
		if httpErr, ok := err.(*errs.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &errs.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}

	out := make([]registry.Version, len(resp))
	for i, v := range resp {
		var publishedAt time.Time
		if v.CreatedAt != "" {
			publishedAt, _ = time.Parse(time.RFC3339, v.CreatedAt)
		}
		number := v.Number
		if v.Platform != "" && v.Platform != "ruby" {
			number = fmt.Sprintf("%s-%s", v.Number, v.Platform)
		}
		out[i] = registry.Version{
			Number:      number,
			PublishedAt: publishedAt,
			Metadata: map[string]any{
				"prerelease": v.Prerelease,
				"platform":   v.Platform,
			},
		}
	}
	return out, nil
}

func (c *Client) GetMetadata(ctx context.Context, name string) (*registry.Metadata, error) {
	url := fmt.Sprintf("%s/api/v1/gems/%s.json", c.baseURL, name)
	var resp gemResponse
	if err := c.transport.GetJSON(ctx, url, &resp); err != nil {
		if httpErr, ok := err.(*errs.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &errs.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}
	repoURL := extractRepoURL(resp.SourceCodeURI, resp.WikiURI, resp.DocumentURI, resp.BugTrackerURI, resp.ChangelogURI, resp.HomepageURI)
	return &registry.Metadata{
		Name:        resp.Name,
		Description: resp.Info,
		Homepage:    resp.HomepageURI,
		Repository:  repoURL,
		Licenses:    strings.Join(resp.Licenses, ","),
	}, nil
}

func extractRepoURL(urls ...string) string {
	for _, u := range urls {
		if u != "" && (strings.Contains(u, "github.com") || strings.Contains(u, "gitlab.com") || strings.Contains(u, "bitbucket.org")) {
			return u
		}
	}
	for _, u := range urls {
		if u != "" {
			return u
		}
	}
	return ""
}

// Search uses rubygems.org's name-search endpoint, which matches by
// substring rather than strict prefix.
func (c *Client) Search(ctx context.Context, prefix string) ([]string, error) {
	url := fmt.Sprintf("%s/api/v1/search.json?query=%s", c.baseURL, prefix)
	var resp []struct {
		Name string `json:"name"`
	}
	if err := c.transport.GetJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	names := make([]string, len(resp))
	for i, r := range resp {
		names[i] = r.Name
	}
	return names, nil
}
