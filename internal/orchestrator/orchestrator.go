// Package orchestrator drives the bounded-concurrency fetch batches that
// refresh a document's cached_latest map (spec.md §4.7, SPEC_FULL.md §4.7).
// It follows the teacher's own hand-rolled bulk-fetch shape in
// internal/core/helpers.go (buffered-channel semaphore + sync.WaitGroup)
// rather than golang.org/x/sync/errgroup, and reuses the teacher's
// per-registry circuit breaker from fetch/circuit_breaker.go, generalized
// from artifact downloads to metadata fetches.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/google/uuid"
	circuit "github.com/rubyist/circuitbreaker"
	"go.uber.org/zap"

	"github.com/deps-lsp/deps-lsp/internal/document"
	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/manifest"
	"github.com/deps-lsp/deps-lsp/internal/registry"
	"github.com/deps-lsp/deps-lsp/internal/version"
)

// Reporter receives progress notifications for a fetch batch, keyed by a
// fresh token per batch (spec.md §4.8/§6 loading_indicator). Implementations
// wire this to protocol $/progress notifications; tests can use a no-op.
type Reporter interface {
	Begin(token string, title string, total int)
	Increment(token string)
	End(token string)
}

type noopReporter struct{}

func (noopReporter) Begin(string, string, int) {}
func (noopReporter) Increment(string)          {}
func (noopReporter) End(string)                {}

// Orchestrator fans a document's dependency names out to registry fetches,
// respecting a global concurrency bound and a per-registry circuit breaker.
type Orchestrator struct {
	store          *document.Store
	maxConcurrent  int
	fetchTimeout   time.Duration
	reporter       Reporter
	logger         *zap.Logger
	newToken       func() string
	breakersMu     sync.RWMutex
	breakers       map[string]*circuit.Breaker
	inFlightMu     sync.Mutex
	inFlight       map[string]bool // "uri\x00name" fingerprint, spec.md testable property 4
}

// New builds an Orchestrator. maxConcurrent and fetchTimeout come from
// internal/config's cache section (spec.md §6). A nil reporter or logger
// installs a no-op.
func New(store *document.Store, maxConcurrent int, fetchTimeout time.Duration, reporter Reporter, logger *zap.Logger) *Orchestrator {
	if reporter == nil {
		reporter = noopReporter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 15
	}
	return &Orchestrator{
		store:         store,
		maxConcurrent: maxConcurrent,
		fetchTimeout:  fetchTimeout,
		reporter:      reporter,
		logger:        logger,
		newToken:      newProgressToken,
		breakers:      make(map[string]*circuit.Breaker),
		inFlight:      make(map[string]bool),
	}
}

// RefreshDocument fetches versions for every dependency name in st that
// isn't already in flight, committing each result at st.Generation. Callers
// spawn this in its own goroutine; RefreshDocument blocks until the whole
// batch finishes or the batch-level timeout (2x fetchTimeout) elapses.
func (o *Orchestrator) RefreshDocument(ctx context.Context, client registry.Client, st *document.State) {
	if st.Eco == nil || len(st.Parsed.Dependencies) == 0 {
		return
	}

	batchCtx, cancel := context.WithTimeout(ctx, 2*o.fetchTimeout)
	defer cancel()

	names := uniqueNames(registryOnly(st.Parsed.Dependencies))
	token := o.newToken()
	o.reporter.Begin(token, "Fetching "+st.Eco.Name+" package versions", len(names))
	defer o.reporter.End(token)

	sem := make(chan struct{}, o.maxConcurrent)
	var wg sync.WaitGroup

	for _, name := range names {
		if !o.claim(st.URI, name) {
			continue
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer o.release(st.URI, name)
			defer o.reporter.Increment(token)

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-batchCtx.Done():
				return
			}

			o.fetchOne(batchCtx, client, st, name)
		}(name)
	}

	wg.Wait()
}

func (o *Orchestrator) fetchOne(batchCtx context.Context, client registry.Client, st *document.State, name string) {
	fetchCtx, cancel := context.WithTimeout(batchCtx, o.fetchTimeout)
	defer cancel()

	breaker := o.breakerFor(client.Ecosystem())
	if !breaker.Ready() {
		o.logger.Debug("circuit open, skipping fetch", zap.String("ecosystem", client.Ecosystem()), zap.String("name", name))
		return
	}

	var versions []registry.Version
	err := breaker.Call(func() error {
		var callErr error
		versions, callErr = client.GetVersions(fetchCtx, name)
		return callErr
	}, 0)
	if err != nil {
		if isNotFound(err) {
			// Registry confirmed no such package: hard unknown, distinct
			// from a soft transport/timeout failure (spec.md §4.7).
			o.store.CommitNotFound(st.URI, st.Generation, name)
			return
		}
		// Transport/timeout failures keep the document's prior cached_latest
		// entry untouched (spec.md §7); nothing to commit.
		o.logger.Debug("fetch failed, keeping cached state", zap.String("name", name), zap.Error(err))
		return
	}

	if len(versions) == 0 {
		// An empty version list is treated as unknown (spec.md §4.7).
		o.store.CommitNotFound(st.URI, st.Generation, name)
		return
	}

	latest, ok := latestStable(st.Eco.Eco, versions)
	if !ok {
		return
	}

	o.store.CommitVersions(st.URI, st.Generation, name, document.VersionState{
		Latest:   latest,
		Versions: versions,
	})

	// Metadata is fetched best-effort alongside versions so Hover (spec.md
	// §4.9) never needs its own network call on the request path. A
	// metadata failure never undoes the version commit above.
	if meta, err := client.GetMetadata(fetchCtx, name); err == nil {
		o.store.CommitMetadata(st.URI, st.Generation, name, meta)
	}
}

func isNotFound(err error) bool {
	var notFound *errs.NotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsNotFound()
	}
	return errors.Is(err, errs.ErrNotFound)
}

func (o *Orchestrator) claim(uri, name string) bool {
	key := uri + "\x00" + name
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	if o.inFlight[key] {
		return false
	}
	o.inFlight[key] = true
	return true
}

// InFlightNames returns the dependency names of uri with a fetch currently
// in progress, so projectors can render the loading indicator (spec.md
// §4.9's loading_indicator fallback).
func (o *Orchestrator) InFlightNames(uri string) map[string]bool {
	prefix := uri + "\x00"
	o.inFlightMu.Lock()
	defer o.inFlightMu.Unlock()
	out := make(map[string]bool, len(o.inFlight))
	for key := range o.inFlight {
		if name, ok := strings.CutPrefix(key, prefix); ok {
			out[name] = true
		}
	}
	return out
}

func (o *Orchestrator) release(uri, name string) {
	key := uri + "\x00" + name
	o.inFlightMu.Lock()
	delete(o.inFlight, key)
	o.inFlightMu.Unlock()
}

func (o *Orchestrator) breakerFor(registryHost string) *circuit.Breaker {
	o.breakersMu.RLock()
	b, ok := o.breakers[registryHost]
	o.breakersMu.RUnlock()
	if ok {
		return b
	}

	o.breakersMu.Lock()
	defer o.breakersMu.Unlock()
	if b, ok := o.breakers[registryHost]; ok {
		return b
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	o.breakers[registryHost] = b
	return b
}

// registryOnly drops git/path/github/sdk-sourced dependencies — spec.md
// §4.7 step 1 scopes the fetch batch to "registry-sourced names"; fetching
// a path or git dependency's name against the registry would both waste a
// request and pollute CachedLatest/NotFound with a name the registry never
// actually serves.
func registryOnly(deps []manifest.Dependency) []manifest.Dependency {
	out := make([]manifest.Dependency, 0, len(deps))
	for _, d := range deps {
		if d.SourceKind == manifest.SourceRegistry {
			out = append(out, d)
		}
	}
	return out
}

func uniqueNames(deps []manifest.Dependency) []string {
	seen := make(map[string]bool, len(deps))
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d.Name)
	}
	return out
}

// latestStable picks the newest non-prerelease, non-yanked version out of a
// raw registry listing, using internal/version's semantic ordering rather
// than the registry's own (sometimes publish-date, sometimes lexical)
// listing order.
func latestStable(eco version.Ecosystem, versions []registry.Version) (registry.Version, bool) {
	parsed := make([]*version.Version, 0, len(versions))
	byRaw := make(map[string]registry.Version, len(versions))
	yanked := make(map[string]bool, len(versions))
	for _, v := range versions {
		pv, err := version.Parse(eco, v.Number)
		if err != nil {
			continue
		}
		parsed = append(parsed, pv)
		byRaw[v.Number] = v
		yanked[v.Number] = v.IsYanked
	}

	best := version.FindLatestStable(parsed, func(raw string) bool { return yanked[raw] })
	if best == nil {
		return registry.Version{}, false
	}
	return byRaw[best.Raw], true
}

// newProgressToken mints a fresh $/progress token per fetch batch.
func newProgressToken() string {
	return uuid.NewString()
}
