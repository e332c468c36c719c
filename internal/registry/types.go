// Package registry defines the capability interface every ecosystem
// registry client implements (spec.md §4.3: GetVersions, GetMetadata,
// Search) plus the shared HTTP transport, backed by internal/httpcache,
// that concrete ecosystem clients use.
package registry

import (
	"context"
	"time"
)

// Version mirrors spec.md §3's VersionInfo: an opaque version string plus
// enough metadata to classify it. Ordering and requirement evaluation live
// in internal/version, not here — RegistryEntry only carries what the
// upstream registry actually reports.
type Version struct {
	Number      string
	PublishedAt time.Time
	IsYanked    bool
	Metadata    map[string]any
}

// Metadata mirrors spec.md §3's RegistryEntry (minus the version list,
// which GetVersions returns separately so completion/hover can request only
// what they need).
type Metadata struct {
	Name        string
	Description string
	Homepage    string
	Repository  string
	Licenses    string
	Keywords    []string
}

// Client is the per-ecosystem registry capability interface (spec.md §4.3).
type Client interface {
	// Ecosystem returns the registered name, e.g. "cargo", "npm".
	Ecosystem() string

	// GetVersions returns every known version. No client sorts the list:
	// cargo, rubygems and golang keep the upstream listing order, while npm
	// and pypi build it from a JSON object, so their order is not defined.
	// Callers needing semantic order sort it (see internal/version.Sort).
	GetVersions(ctx context.Context, name string) ([]Version, error)

	// GetMetadata returns package-level (not version-level) metadata.
	GetMetadata(ctx context.Context, name string) (*Metadata, error)

	// Search returns candidate package names for a prefix, used by
	// completion at package-name positions (spec.md §4.9). Implementations
	// that have no upstream search endpoint return a documented, possibly
	// empty, best-effort result rather than an error.
	Search(ctx context.Context, prefix string) ([]string, error)
}

// Factory builds a Client for a given base URL and shared transport.
type Factory func(baseURL string, transport *Transport) Client
