// Package document holds the process-wide Document Store (spec.md §4.6): a
// concurrent URI→DocumentState map with per-entry locking. Readers snapshot
// by cloning the small state struct under a brief read-lock; writers build
// a new struct and swap it in under a brief write-lock. No lock is ever
// held across I/O, following the pattern in the hemanta212-scaf LSP
// reference ("release lock before publishing diagnostics").
package document

import (
	"sync"

	"github.com/deps-lsp/deps-lsp/internal/ecosystem"
	"github.com/deps-lsp/deps-lsp/internal/lockfile"
	"github.com/deps-lsp/deps-lsp/internal/manifest"
	"github.com/deps-lsp/deps-lsp/internal/registry"
)

// VersionState is what the orchestrator learned about one dependency name
// the last time it was fetched successfully.
type VersionState struct {
	Latest   registry.Version   // newest non-prerelease, non-yanked
	Versions []registry.Version // full list in the registry client's order (not sorted), for completion history
}

// State is an immutable snapshot of one document (spec.md §3's
// DocumentState). Callers must treat a returned *State as read-only; the
// store never mutates one in place after handing it out.
type State struct {
	URI          string
	Text         string
	Eco          *ecosystem.Ecosystem // nil if no ecosystem matched the URI
	Parsed       *manifest.Parsed
	CachedLatest map[string]VersionState     // never written from a lock-file read
	ResolvedLock map[string]string           // never written from a registry fetch
	NotFound     map[string]bool             // set only on a confirmed registry 404 / empty version list
	Metadata     map[string]*registry.Metadata // package-level metadata, for Hover (spec.md §4.9); same generation gating as CachedLatest
	Generation   int
}

type entry struct {
	mu    sync.RWMutex
	state *State
}

// Store is the process-wide document map.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) get(uri string) *entry {
	s.mu.RLock()
	e := s.entries[uri]
	s.mu.RUnlock()
	return e
}

// Snapshot returns a shallow copy of the current state for uri, or false
// if the document isn't open.
func (s *Store) Snapshot(uri string) (*State, bool) {
	e := s.get(uri)
	if e == nil {
		return nil, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == nil {
		return nil, false
	}
	clone := *e.state
	return &clone, true
}

// DidOpen stores text, parses it, and returns the new state at generation
// 1, the generation its fetches carry (spec.md §4.6: "spawn fetch task at
// generation 1").
func (s *Store) DidOpen(uri, text string) *State {
	eco := ecosystem.Lookup(uri)
	parsed := parseWith(eco, uri, text)

	st := &State{
		URI:          uri,
		Text:         text,
		Eco:          eco,
		Parsed:       parsed,
		CachedLatest: make(map[string]VersionState),
		ResolvedLock: make(map[string]string),
		NotFound:     make(map[string]bool),
		Metadata:     make(map[string]*registry.Metadata),
		Generation:   1,
	}

	e := &entry{state: st}
	s.mu.Lock()
	s.entries[uri] = e
	s.mu.Unlock()

	return st
}

// DidChange increments the generation, re-parses, and reconciles
// cached_latest (dropping entries for names no longer present) — spec.md
// §4.6.
func (s *Store) DidChange(uri, text string) (*State, bool) {
	e := s.get(uri)
	if e == nil {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, false
	}

	eco := e.state.Eco
	parsed := parseWith(eco, uri, text)

	present := make(map[string]bool, len(parsed.Dependencies))
	for _, d := range parsed.Dependencies {
		present[d.Name] = true
	}

	nextLatest := make(map[string]VersionState, len(e.state.CachedLatest))
	for name, v := range e.state.CachedLatest {
		if present[name] {
			nextLatest[name] = v
		}
	}
	nextNotFound := make(map[string]bool, len(e.state.NotFound))
	for name, v := range e.state.NotFound {
		if present[name] {
			nextNotFound[name] = v
		}
	}
	nextMetadata := make(map[string]*registry.Metadata, len(e.state.Metadata))
	for name, v := range e.state.Metadata {
		if present[name] {
			nextMetadata[name] = v
		}
	}

	next := &State{
		URI:          uri,
		Text:         text,
		Eco:          eco,
		Parsed:       parsed,
		CachedLatest: nextLatest,
		ResolvedLock: e.state.ResolvedLock,
		NotFound:     nextNotFound,
		Metadata:     nextMetadata,
		Generation:   e.state.Generation + 1,
	}
	e.state = next
	return next, true
}

// DidClose drops the entry. Any in-flight fetch observes the missing entry
// on completion (via CommitVersions returning false) and discards its
// result.
func (s *Store) DidClose(uri string) {
	s.mu.Lock()
	delete(s.entries, uri)
	s.mu.Unlock()
}

// CommitVersions writes a fetched version result iff the document's
// generation still equals gen at commit time (spec.md §4.7 step 4,
// testable property 1: generation safety). Returns false if the document
// is gone or its generation moved on, in which case the caller must not
// treat this as an error — it's a cancelled/superseded write.
func (s *Store) CommitVersions(uri string, gen int, name string, vs VersionState) bool {
	e := s.get(uri)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil || e.state.Generation != gen {
		return false
	}
	next := *e.state
	next.CachedLatest = cloneVersionMap(e.state.CachedLatest)
	next.CachedLatest[name] = vs
	if e.state.NotFound[name] {
		next.NotFound = cloneBoolMap(e.state.NotFound)
		delete(next.NotFound, name)
	}
	e.state = &next
	return true
}

// CommitMetadata writes fetched package-level metadata (used by Hover) iff
// the document is still at gen. Independent of CommitVersions: a metadata
// fetch failure never blocks or clears a version result, and vice versa.
func (s *Store) CommitMetadata(uri string, gen int, name string, meta *registry.Metadata) bool {
	e := s.get(uri)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil || e.state.Generation != gen {
		return false
	}
	next := *e.state
	next.Metadata = make(map[string]*registry.Metadata, len(e.state.Metadata))
	for k, v := range e.state.Metadata {
		next.Metadata[k] = v
	}
	next.Metadata[name] = meta
	e.state = &next
	return true
}

// CommitNotFound marks name as a confirmed registry miss (404, or an empty
// version list) iff the document is still at gen. This is distinct from a
// transport/timeout failure, which leaves both CachedLatest and NotFound
// untouched so a lock-file entry can still suppress the unknown diagnostic
// (spec.md §4.7 failure policy, §8 scenario S4).
func (s *Store) CommitNotFound(uri string, gen int, name string) bool {
	e := s.get(uri)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil || e.state.Generation != gen {
		return false
	}
	next := *e.state
	next.NotFound = cloneBoolMap(e.state.NotFound)
	next.NotFound[name] = true
	e.state = &next
	return true
}

// CommitResolvedLock replaces resolved_lock from a lock-file read. This
// path never touches cached_latest (testable property 2: cache
// separation).
func (s *Store) CommitResolvedLock(uri string, resolved *lockfile.Resolved) bool {
	e := s.get(uri)
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return false
	}
	next := *e.state
	locked := make(map[string]string, len(resolved.Names()))
	for _, name := range resolved.Names() {
		locked[name] = resolved.Resolve(name)
	}
	next.ResolvedLock = locked
	e.state = &next
	return true
}

func parseWith(eco *ecosystem.Ecosystem, uri, text string) *manifest.Parsed {
	if eco == nil {
		return &manifest.Parsed{}
	}
	return eco.Parser.Parse(uri, []byte(text))
}

func cloneVersionMap(m map[string]VersionState) map[string]VersionState {
	out := make(map[string]VersionState, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Registry aliases the whole registry.Client interface for this package's
// callers when the orchestrator wires itself to the document store;
// re-exported here purely so downstream packages don't need to import both.
type Registry = registry.Client
