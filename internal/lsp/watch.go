package lsp

import (
	"context"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/deps-lsp/deps-lsp/internal/document"
)

// lockWatcher keeps one fsnotify watch per lock file that accompanies an
// open document, so an out-of-band `cargo update` / `npm install` run in a
// terminal refreshes resolved_lock without waiting for the next edit
// (spec.md §4.4: "lock file changes detected via file system watch").
type lockWatcher struct {
	srv *Server
	w   *fsnotify.Watcher

	mu      sync.Mutex
	byPath  map[string]string // lock path -> document URI
	byURI   map[string]string // document URI -> lock path
}

func newLockWatcher(srv *Server) (*lockWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	lw := &lockWatcher{
		srv:    srv,
		w:      w,
		byPath: make(map[string]string),
		byURI:  make(map[string]string),
	}
	go lw.loop()
	return lw, nil
}

// watch registers (or re-registers) st's lock file and performs an initial
// synchronous read, so resolved_lock is populated before the first
// diagnostics publish rather than only after the first fsnotify event.
func (lw *lockWatcher) watch(st *document.State) {
	if st.Eco == nil {
		return
	}
	manifestPath := uriToPath(st.URI)
	lockPath := st.Eco.Lockfile.LockPath(manifestPath)
	if lockPath == "" {
		return
	}

	lw.mu.Lock()
	if prior, ok := lw.byURI[st.URI]; ok && prior != lockPath {
		delete(lw.byURI, st.URI)
		lw.unwatchLocked(prior)
	}
	if _, already := lw.byPath[lockPath]; !already {
		if err := lw.w.Add(lockPath); err != nil {
			lw.srv.logger.Debug("could not watch lock file", zap.String("path", lockPath), zap.Error(err))
		}
	}
	lw.byPath[lockPath] = st.URI
	lw.byURI[st.URI] = lockPath
	lw.mu.Unlock()

	lw.read(lockPath, st.URI)
}

func (lw *lockWatcher) forget(uri string) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lockPath, ok := lw.byURI[uri]
	if !ok {
		return
	}
	delete(lw.byURI, uri)
	lw.unwatchLocked(lockPath)
}

// unwatchLocked drops the watch for lockPath if no other open document
// shares it. Caller holds lw.mu.
func (lw *lockWatcher) unwatchLocked(lockPath string) {
	if lw.byPath[lockPath] == "" {
		return
	}
	for u, p := range lw.byURI {
		if p == lockPath && u != "" {
			return // still in use by another open document
		}
	}
	delete(lw.byPath, lockPath)
	_ = lw.w.Remove(lockPath)
}

func (lw *lockWatcher) loop() {
	for {
		select {
		case ev, ok := <-lw.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			lw.mu.Lock()
			uri, known := lw.byPath[ev.Name]
			lw.mu.Unlock()
			if known {
				lw.read(ev.Name, uri)
			}
		case err, ok := <-lw.w.Errors:
			if !ok {
				return
			}
			lw.srv.logger.Debug("lock file watcher error", zap.Error(err))
		}
	}
}

// read parses lockPath and commits the result to the document at uri,
// republishing diagnostics so an out-of-band lock-file update is reflected
// without requiring an edit.
func (lw *lockWatcher) read(lockPath, uri string) {
	st, ok := lw.srv.store.Snapshot(uri)
	if !ok || st.Eco == nil {
		return
	}
	data, err := os.ReadFile(lockPath)
	if err != nil {
		lw.srv.logger.Debug("lock file read failed", zap.String("path", lockPath), zap.Error(err))
		return
	}
	resolved, err := st.Eco.Lockfile.Parse(data)
	if err != nil {
		lw.srv.logger.Warn("lock file parse failed", zap.String("path", lockPath), zap.Error(err))
		return
	}
	if !lw.srv.store.CommitResolvedLock(uri, resolved) {
		return
	}
	if cur, ok := lw.srv.store.Snapshot(uri); ok {
		lw.srv.publish(context.Background(), cur)
	}
}

func (lw *lockWatcher) close() {
	_ = lw.w.Close()
}
