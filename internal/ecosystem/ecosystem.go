// Package ecosystem maps an open document URI to the Parser + Registry +
// LockfileProvider bundle that handles it (spec.md §4.5).
package ecosystem

import (
	"path/filepath"
	"strings"

	"github.com/deps-lsp/deps-lsp/internal/lockfile"
	"github.com/deps-lsp/deps-lsp/internal/manifest"
	"github.com/deps-lsp/deps-lsp/internal/registry"
	"github.com/deps-lsp/deps-lsp/internal/version"
)

// Ecosystem bundles everything the orchestrator and projectors need for one
// manifest family.
type Ecosystem struct {
	Name       string
	Eco        version.Ecosystem
	Parser     manifest.Parser
	Lockfile   lockfile.Provider
	Registry   registry.Client
	matchesURI func(uri string) bool
}

// MatchesURI reports whether this ecosystem owns a document URI.
func (e *Ecosystem) MatchesURI(uri string) bool {
	return e.matchesURI(uri)
}

var registered []*Ecosystem

// Register adds an ecosystem bundle to the directory. Registration order
// is lookup order; the first match wins (spec.md §4.5).
func Register(e *Ecosystem) {
	registered = append(registered, e)
}

// Lookup returns the ecosystem owning uri, or nil if none matches — the
// document is still stored, but no dependency features activate.
func Lookup(uri string) *Ecosystem {
	for _, e := range registered {
		if e.MatchesURI(uri) {
			return e
		}
	}
	return nil
}

// All returns every registered ecosystem, in registration order.
func All() []*Ecosystem {
	return registered
}

// byFilename builds a matchesURI predicate off the basename of the URI's
// path component, matching the teacher's registry.Register's simple
// keyed-lookup style generalized to a predicate.
func byFilename(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(uri string) bool {
		path := uri
		if idx := strings.Index(uri, "://"); idx >= 0 {
			path = uri[idx+3:]
		}
		return set[filepath.Base(path)]
	}
}
