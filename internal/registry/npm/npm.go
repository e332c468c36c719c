// Package npm provides a registry.Client for registry.npmjs.org.
package npm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/registry"
)

const (
	DefaultURL = "https://registry.npmjs.org"
	ecosystem  = "npm"
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

type packageResponse struct {
	ID          string                 `json:"_id"`
	Description string                 `json:"description"`
	Homepage    interface{}            `json:"homepage"`
	Repository  interface{}            `json:"repository"`
	Versions    map[string]versionInfo `json:"versions"`
	Time        map[string]string      `json:"time"`
	DistTags    map[string]string      `json:"dist-tags"`
}

type versionInfo struct {
	Description string      `json:"description"`
	Keywords    interface{} `json:"keywords"`
	License     interface{} `json:"license"`
	Deprecated  string      `json:"deprecated"`
}

func (c *Client) fetchPackage(ctx context.Context, name string) (*packageResponse, error) {
	escaped := url.PathEscape(name)
	u := fmt.Sprintf("%s/%s", c.baseURL, escaped)
	var resp packageResponse
	if err := c.transport.GetJSON(ctx, u, &resp); err != nil {
		if httpErr, ok := err.(*errs.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &errs.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetVersions(ctx context.Context, name string) ([]registry.Version, error) {
	resp, err := c.fetchPackage(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]registry.Version, 0, len(resp.Versions))
	for num, v := range resp.Versions {
		var publishedAt time.Time
		if ts, ok := resp.Time[num]; ok {
			publishedAt, _ = time.Parse(time.RFC3339, ts)
		}
		out = append(out, registry.Version{
			Number:      num,
			PublishedAt: publishedAt,
			Metadata: map[string]any{
				"deprecated": v.Deprecated,
			},
		})
	}
	return out, nil
}

func (c *Client) GetMetadata(ctx context.Context, name string) (*registry.Metadata, error) {
	resp, err := c.fetchPackage(ctx, name)
	if err != nil {
		return nil, err
	}

	latestTag := resp.DistTags["latest"]
	var latest versionInfo
	if latestTag != "" {
		latest = resp.Versions[latestTag]
	}

	return &registry.Metadata{
		Name:        resp.ID,
		Description: coalesce(latest.Description, resp.Description),
		Homepage:    extractString(resp.Homepage),
		Repository:  extractRepoURL(resp.Repository),
		Licenses:    extractLicense(latest.License),
		Keywords:    extractKeywords(latest.Keywords),
	}, nil
}

// Search uses npm's registry search API, which scores by relevance rather
// than strict prefix match; callers filter further if an exact prefix
// match is required.
func (c *Client) Search(ctx context.Context, prefix string) ([]string, error) {
	u := fmt.Sprintf("https://registry.npmjs.org/-/v1/search?text=%s&size=20", url.QueryEscape(prefix))
	var resp struct {
		Objects []struct {
			Package struct {
				Name string `json:"name"`
			} `json:"package"`
		} `json:"objects"`
	}
	if err := c.transport.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}
	names := make([]string, len(resp.Objects))
	for i, o := range resp.Objects {
		names[i] = o.Package.Name
	}
	return names, nil
}

func extractString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func extractRepoURL(repo interface{}) string {
	switch r := repo.(type) {
	case string:
		return normalizeGitURL(r)
	case map[string]interface{}:
		if u, ok := r["url"].(string); ok {
			return normalizeGitURL(u)
		}
	}
	return ""
}

func normalizeGitURL(u string) string {
	u = strings.TrimPrefix(u, "git+")
	u = strings.TrimPrefix(u, "git://")
	u = strings.TrimSuffix(u, ".git")
	if strings.HasPrefix(u, "github.com/") {
		u = "https://" + u
	}
	return u
}

func extractLicense(v interface{}) string {
	switch l := v.(type) {
	case string:
		return l
	case map[string]interface{}:
		if t, ok := l["type"].(string); ok {
			return t
		}
	}
	return ""
}

func extractKeywords(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
