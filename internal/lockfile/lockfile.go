// Package lockfile parses per-ecosystem lock files into a name→versions
// map, resolving the highest semver version when a name pins more than one
// (spec.md §4.4: the common case of a name appearing as both a direct and
// transitive dependency at different versions).
package lockfile

import (
	"github.com/deps-lsp/deps-lsp/internal/version"
)

// Resolved is the result of parsing a lock file: every name maps to the
// full set of versions pinned for it, never merged with registry state.
type Resolved struct {
	Eco      version.Ecosystem
	versions map[string][]string
}

func newResolved(eco version.Ecosystem) *Resolved {
	return &Resolved{Eco: eco, versions: make(map[string][]string)}
}

func (r *Resolved) add(name, v string) {
	r.versions[name] = append(r.versions[name], v)
}

// Names returns every locked package name, in no particular order.
func (r *Resolved) Names() []string {
	out := make([]string, 0, len(r.versions))
	for name := range r.versions {
		out = append(out, name)
	}
	return out
}

// Has reports whether name has at least one pinned entry, independent of
// whether that entry parses as a valid version (platform-gated Bundler
// entries must still register the name — spec.md §4.4).
func (r *Resolved) Has(name string) bool {
	_, ok := r.versions[name]
	return ok
}

// Resolve returns the highest semver version pinned for name, or "" if
// name has no entries. If none of its entries parse, it returns the first
// raw entry.
func (r *Resolved) Resolve(name string) string {
	vs, ok := r.versions[name]
	if !ok || len(vs) == 0 {
		return ""
	}
	var best *version.Version
	var bestRaw string
	for _, raw := range vs {
		v, err := version.Parse(r.Eco, raw)
		if err != nil {
			continue
		}
		if best == nil || best.LessThan(v) {
			best = v
			bestRaw = raw
		}
	}
	if best == nil {
		// Nothing parsed (e.g. a git-ref pin); fall back to the first raw
		// literal so callers still get the name→something signal.
		return vs[0]
	}
	return bestRaw
}

// Provider locates and parses the lock file that accompanies a manifest
// URI, implementing spec.md §4.4's LockfileProvider capability.
type Provider interface {
	// LockPath returns the sibling lock file path for a manifest path, or
	// "" if this ecosystem has no lock file convention match for it.
	LockPath(manifestPath string) string
	// Parse parses lock file content into a Resolved set.
	Parse(content []byte) (*Resolved, error)
}
