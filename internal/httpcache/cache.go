// Package httpcache implements the validated, in-memory HTTP cache
// described in spec.md §4.2: entries are keyed by URL, revalidated via
// ETag/Last-Modified, and evicted in ascending fetched-at order once the
// configured byte bound is exceeded. Revalidation is best-effort: a
// transport error while revalidating returns the stale cached body with a
// soft-error flag rather than failing the caller, so projectors don't throw
// false "unknown" diagnostics on a blip.
package httpcache

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Fetcher performs the actual network request behind the cache. An empty
// etag/lastModified means "unconditional GET".
type Fetcher interface {
	Fetch(ctx context.Context, url, etag, lastModified string) (*Response, error)
}

// Response is what a Fetcher returns for one request.
type Response struct {
	StatusCode   int
	Body         []byte
	ETag         string
	LastModified string
}

const statusNotModified = 304

type entry struct {
	url          string
	body         []byte
	etag         string
	lastModified string
	fetchedAt    time.Time
	size         int64
	heapIndex    int
}

// Cache is a process-global, concurrency-safe HTTP response cache.
type Cache struct {
	fetcher Fetcher

	// RefreshInterval is the soft-freshness window (spec.md §9 Open
	// Question #1): once an entry is older than this, the next Get issues
	// a conditional revalidation instead of serving the cached body
	// untouched. It is not a hard TTL — a 304 response just refreshes
	// fetched_at and keeps serving the same body.
	RefreshInterval time.Duration

	// MaxBytes bounds total cached body size; 0 means unbounded.
	MaxBytes int64

	mu         sync.Mutex
	entries    map[string]*entry
	evictOrder evictHeap
	totalBytes int64
}

// New creates a Cache backed by fetcher.
func New(fetcher Fetcher, refreshInterval time.Duration, maxBytes int64) *Cache {
	return &Cache{
		fetcher:         fetcher,
		RefreshInterval: refreshInterval,
		MaxBytes:        maxBytes,
		entries:         make(map[string]*entry),
	}
}

// Result is returned by Get.
type Result struct {
	Body []byte
	// Stale is true when a revalidation attempt failed and the returned
	// body is the last known-good cached copy, not a fresh one.
	Stale bool
}

// Get returns the body for url, fetching or revalidating as needed.
func (c *Cache) Get(ctx context.Context, url string) (*Result, error) {
	c.mu.Lock()
	e, ok := c.entries[url]
	c.mu.Unlock()

	if !ok {
		resp, err := c.fetcher.Fetch(ctx, url, "", "")
		if err != nil {
			return nil, err
		}
		c.store(url, resp)
		return &Result{Body: resp.Body}, nil
	}

	if c.RefreshInterval > 0 && time.Since(e.fetchedAt) < c.RefreshInterval {
		return &Result{Body: e.body}, nil
	}

	resp, err := c.fetcher.Fetch(ctx, url, e.etag, e.lastModified)
	if err != nil {
		// Best-effort revalidation: serve stale rather than propagate.
		return &Result{Body: e.body, Stale: true}, nil
	}
	if resp.StatusCode == statusNotModified {
		c.touch(url)
		return &Result{Body: e.body}, nil
	}
	c.store(url, resp)
	return &Result{Body: resp.Body}, nil
}

func (c *Cache) store(url string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[url]; ok {
		c.totalBytes -= old.size
		heap.Remove(&c.evictOrder, old.heapIndex)
		delete(c.entries, url)
	}

	e := &entry{
		url:          url,
		body:         resp.Body,
		etag:         resp.ETag,
		lastModified: resp.LastModified,
		fetchedAt:    time.Now(),
		size:         int64(len(resp.Body)),
	}
	c.entries[url] = e
	heap.Push(&c.evictOrder, e)
	c.totalBytes += e.size

	c.evictLocked()
}

func (c *Cache) touch(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return
	}
	e.fetchedAt = time.Now()
	heap.Fix(&c.evictOrder, e.heapIndex)
}

// evictLocked pops entries in ascending fetched-at order until the cache is
// back under MaxBytes. Must be called with c.mu held.
func (c *Cache) evictLocked() {
	if c.MaxBytes <= 0 {
		return
	}
	for c.totalBytes > c.MaxBytes && c.evictOrder.Len() > 0 {
		oldest := heap.Pop(&c.evictOrder).(*entry)
		delete(c.entries, oldest.url)
		c.totalBytes -= oldest.size
	}
}

// Len returns the number of cached entries (used by tests/health checks).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictHeap is a container/heap min-heap ordered by fetchedAt, giving O(log
// N) eviction instead of the naive O(N) sort spec.md §4.2 calls out as the
// thing being replaced.
type evictHeap []*entry

func (h evictHeap) Len() int            { return len(h) }
func (h evictHeap) Less(i, j int) bool  { return h[i].fetchedAt.Before(h[j].fetchedAt) }
func (h evictHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *evictHeap) Push(x any) {
	e := x.(*entry)
	e.heapIndex = len(*h)
	*h = append(*h, e)
}

func (h *evictHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
