// Package coldstart rate-limits cold-start lazy initialization (spec.md
// §4.8/§6 cold_start): a feature request for a URI that never received
// didOpen reads and parses the file and starts a fetch batch, and an editor
// restoring a session may send several such requests for one URI at once,
// so admissions are throttled per URI. One token bucket per URI, via
// golang.org/x/time/rate — adopted fresh since nothing else in the
// dependency graph models this shape of per-key limiter.
package coldstart

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const sweepInterval = 60 * time.Second

type bucket struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Gate is a per-URI token bucket rate limiter with periodic idle sweeping.
type Gate struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	stop    chan struct{}
}

// New builds a Gate allowing burst immediate fetches per URI, refilling at
// ratePerSec thereafter, and starts its sweep goroutine. Call Stop to
// release it.
func New(ratePerSec float64, burst int) *Gate {
	if burst <= 0 {
		burst = 1
	}
	g := &Gate{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(ratePerSec),
		burst:   burst,
		stop:    make(chan struct{}),
	}
	go g.sweepLoop()
	return g
}

// Allow reports whether uri may trigger a fetch batch right now, consuming
// one token if so.
func (g *Gate) Allow(uri string) bool {
	g.mu.Lock()
	b, ok := g.buckets[uri]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(g.rate, g.burst)}
		g.buckets[uri] = b
	}
	b.lastUsed = time.Now()
	limiter := b.limiter
	g.mu.Unlock()

	return limiter.Allow()
}

// Forget drops the bucket for uri immediately, e.g. on document close.
func (g *Gate) Forget(uri string) {
	g.mu.Lock()
	delete(g.buckets, uri)
	g.mu.Unlock()
}

// Stop halts the sweep goroutine.
func (g *Gate) Stop() {
	close(g.stop)
}

func (g *Gate) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.sweep()
		case <-g.stop:
			return
		}
	}
}

func (g *Gate) sweep() {
	cutoff := time.Now().Add(-sweepInterval)
	g.mu.Lock()
	defer g.mu.Unlock()
	for uri, b := range g.buckets {
		if b.lastUsed.Before(cutoff) {
			delete(g.buckets, uri)
		}
	}
}
