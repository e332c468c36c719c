// Package pypi provides a registry.Client for pypi.org.
package pypi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/registry"
)

const (
	DefaultURL = "https://pypi.org"
	ecosystem  = "pypi"
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
	Info     infoBlock                `json:"info"`
	Releases map[string][]releaseFile `json:"releases"`
}

type infoBlock struct {
	Summary           string            `json:"summary"`
	HomePage          string            `json:"home_page"`
	License           string            `json:"license"`
	LicenseExpression string            `json:"license_expression"`
	Keywords          string            `json:"keywords"`
	Classifiers       []string          `json:"classifiers"`
	ProjectURLs       map[string]string `json:"project_urls"`
}

type releaseFile struct {
	Digests    map[string]string `json:"digests"`
	UploadTime string            `json:"upload_time"`
	Yanked     bool              `json:"yanked"`
}

func (c *Client) fetchPackage(ctx context.Context, name string) (*packageResponse, error) {
	url := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, name)
	var resp packageResponse
	if err := c.transport.GetJSON(ctx, url, &resp); err != nil {
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
	out := make([]registry.Version, 0, len(resp.Releases))
	for num, files := range resp.Releases {
		if len(files) == 0 {
			out = append(out, registry.Version{Number: num})
			continue
		}
		file := files[0]
		var publishedAt time.Time
		if file.UploadTime != "" {
			publishedAt, _ = time.Parse("2006-01-02T15:04:05", file.UploadTime)
		}
		out = append(out, registry.Version{
			Number:      num,
			PublishedAt: publishedAt,
			IsYanked:    file.Yanked,
		})
	}
	return out, nil
}

func (c *Client) GetMetadata(ctx context.Context, name string) (*registry.Metadata, error) {
	resp, err := c.fetchPackage(ctx, name)
	if err != nil {
		return nil, err
	}
	repoURL := extractRepoURL(resp.Info.ProjectURLs, resp.Info.HomePage)
	return &registry.Metadata{
		Name:        normalizeName(name),
		Description: resp.Info.Summary,
		Homepage:    coalesce(resp.Info.HomePage, resp.Info.ProjectURLs["Homepage"]),
		Repository:  repoURL,
		Licenses:    extractLicense(resp.Info),
		Keywords:    parseKeywords(resp.Info.Keywords),
	}, nil
}

// Search has no official JSON API on pypi.org (the old XML-RPC search was
// retired); callers fall back to an empty, non-error result, as
// spec.md's Search contract allows for ecosystems without upstream search.
func (c *Client) Search(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func extractRepoURL(projectURLs map[string]string, homePage string) string {
	for _, key := range []string{"Repository", "Source", "Source Code", "Code"} {
		if u, ok := projectURLs[key]; ok && isRepoURL(u) {
			return u
		}
	}
	if isRepoURL(homePage) {
		return homePage
	}
	return ""
}

func isRepoURL(u string) bool {
	return strings.Contains(u, "github.com") || strings.Contains(u, "gitlab.com") || strings.Contains(u, "bitbucket.org")
}

func extractLicense(info infoBlock) string {
	if info.LicenseExpression != "" {
		return info.LicenseExpression
	}
	if info.License != "" {
		return info.License
	}
	for _, classifier := range info.Classifiers {
		if strings.HasPrefix(classifier, "License :: ") {
			parts := strings.Split(classifier, " :: ")
			return parts[len(parts)-1]
		}
	}
	return ""
}

func parseKeywords(keywords string) []string {
	if keywords == "" {
		return nil
	}
	if strings.Contains(keywords, ",") {
		parts := strings.Split(keywords, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return strings.Fields(keywords)
}

func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, ".", "-")
	return name
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
