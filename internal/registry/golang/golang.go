// Package golang provides a registry.Client for the Go module proxy.
package golang

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/module"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/registry"
)

const (
	DefaultURL = "https://proxy.golang.org"
	ecosystem  = "go"
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

// encodeForProxy applies the goproxy escaped-path convention: every
// uppercase letter becomes "!" followed by its lowercase form.
// https://go.dev/ref/mod#goproxy-protocol
func encodeForProxy(path string) string {
	var b strings.Builder
	for _, r := range path {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune('!')
			b.WriteRune(r + 32)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type versionInfo struct {
	Version string    `json:"Version"`
	Time    time.Time `json:"Time"`
}

func (c *Client) GetVersions(ctx context.Context, name string) ([]registry.Version, error) {
	encoded := encodeForProxy(name)
	listURL := fmt.Sprintf("%s/%s/@v/list", c.baseURL, encoded)

	body, _, err := c.transport.GetBody(ctx, listURL)
	if err != nil {
		if httpErr, ok := err.(*errs.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &errs.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}

	lines := strings.Fields(strings.TrimSpace(string(body)))
	out := make([]registry.Version, 0, len(lines))
	for _, line := range lines {
		infoURL := fmt.Sprintf("%s/%s/@v/%s.info", c.baseURL, encoded, line)
		var info versionInfo
		if err := c.transport.GetJSON(ctx, infoURL, &info); err == nil {
			out = append(out, registry.Version{Number: info.Version, PublishedAt: info.Time})
		} else {
			out = append(out, registry.Version{Number: line})
		}
	}
	return out, nil
}

// GetMetadata has no rich package metadata in the goproxy protocol; the
// repository URL is derived from the module path's hosting convention,
// same as the teacher's deriveRepoURL.
func (c *Client) GetMetadata(ctx context.Context, name string) (*registry.Metadata, error) {
	encoded := encodeForProxy(name)
	listURL := fmt.Sprintf("%s/%s/@v/list", c.baseURL, encoded)
	_, _, err := c.transport.GetBody(ctx, listURL)
	if err != nil {
		if httpErr, ok := err.(*errs.HTTPError); ok && httpErr.IsNotFound() {
			return nil, &errs.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}
	repoURL := deriveRepoURL(name)
	return &registry.Metadata{Name: name, Homepage: repoURL, Repository: repoURL}, nil
}

func deriveRepoURL(modulePath string) string {
	parts := strings.Split(modulePath, "/")
	if (strings.HasPrefix(modulePath, "github.com/") ||
		strings.HasPrefix(modulePath, "gitlab.com/") ||
		strings.HasPrefix(modulePath, "bitbucket.org/")) && len(parts) >= 3 {
		return "https://" + strings.Join(parts[:3], "/")
	}
	return "https://" + modulePath
}

// popularSeeds is a static list of well-known module paths used to back
// Search, since the goproxy protocol has no search endpoint of its own.
var popularSeeds = []string{
	"github.com/gin-gonic/gin",
	"github.com/gorilla/mux",
	"github.com/spf13/cobra",
	"github.com/spf13/viper",
	"github.com/stretchr/testify",
	"github.com/sirupsen/logrus",
	"go.uber.org/zap",
	"golang.org/x/mod",
	"golang.org/x/sync",
	"golang.org/x/time",
	"google.golang.org/grpc",
	"google.golang.org/protobuf",
	"github.com/golang/protobuf",
	"github.com/pkg/errors",
	"github.com/fsnotify/fsnotify",
	"github.com/prometheus/client_golang",
	"github.com/aws/aws-sdk-go-v2",
	"gorm.io/gorm",
	"github.com/lib/pq",
	"github.com/jmoiron/sqlx",
}

// Search has no upstream equivalent in the goproxy protocol, so it falls
// back to a local-only suggestion list: prefix-matching candidates from
// popularSeeds that are themselves valid module paths per
// golang.org/x/mod's module-path grammar (rejects seeds that couldn't
// possibly resolve, same check the proxy applies before @v/list).
func (c *Client) Search(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for _, seed := range popularSeeds {
		if !strings.HasPrefix(seed, prefix) {
			continue
		}
		if err := module.CheckPath(seed); err != nil {
			continue
		}
		out = append(out, seed)
	}
	return out, nil
}
