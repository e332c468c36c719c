// Package lsp wires the Document Store, Fetch Orchestrator, Cold-Start
// Gate, and Feature Projectors to go.lsp.dev/protocol's JSON-RPC dispatch
// (spec.md §6). The Server struct embeds protocol.Server so every LSP
// method this server doesn't care about (workspace symbols, formatting,
// rename, ...) is satisfied by the zero-value embedded interface rather
// than a page of no-op stubs — the same shortcut the hemanta212-scaf
// reference doesn't take (it implements everything it advertises), but a
// small server advertising a handful of capabilities doesn't need to.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/deps-lsp/deps-lsp/internal/config"
	"github.com/deps-lsp/deps-lsp/internal/document"
	"github.com/deps-lsp/deps-lsp/internal/coldstart"
	"github.com/deps-lsp/deps-lsp/internal/ecosystem"
	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/orchestrator"
	"github.com/deps-lsp/deps-lsp/internal/projector"
	"github.com/deps-lsp/deps-lsp/internal/registry"
)

const (
	// maxFileSize is spec.md §5's hard reject bound.
	maxFileSize = 10 * 1024 * 1024
	// warnFileSize is spec.md §5's warning threshold.
	warnFileSize = 1 * 1024 * 1024
)

var registerEcosystemsOnce sync.Once

// Server implements protocol.Server for deps-lsp.
type Server struct {
	protocol.Server

	logger *zap.Logger
	client protocol.Client
	store  *document.Store
	watcher *lockWatcher

	cfgMu sync.RWMutex
	cfg   config.Config

	orch *orchestrator.Orchestrator
	cold *coldstart.Gate

	publishLocks sync.Map // uri -> *sync.Mutex

	mu               sync.Mutex
	shutdownReceived bool
	exitCh           chan struct{}
	exitOnce         sync.Once
}

// NewServer builds a Server bound to client. Heavier setup (registry
// transport, ecosystem registration, the orchestrator, the cold-start
// gate) is deferred to Initialize, since that's the first point the
// negotiated configuration is known.
func NewServer(client protocol.Client, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger: logger,
		client: client,
		store:  document.NewStore(),
		cfg:    config.Default(),
		exitCh: make(chan struct{}),
	}
}

// Done is closed once the exit notification has been handled.
func (s *Server) Done() <-chan struct{} { return s.exitCh }

// ExitCode covers the two LSP-level outcomes from spec.md §6: 0 after a
// clean shutdown/exit sequence, 1 if exit arrived without a prior shutdown
// request. The third documented code, 2 for a transport-level failure, is
// detected one layer up in cmd/deps-lsp, which observes the jsonrpc2
// connection itself rather than LSP lifecycle state.
func (s *Server) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdownReceived {
		return 0
	}
	return 1
}

func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	cfg, problems := config.Parse(marshalOptions(params.InitializationOptions), s.logger)
	for _, p := range problems {
		s.logger.Warn("clamped initialization option", zap.String("detail", p.Error()))
	}
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()

	transport := registry.NewTransport("deps-lsp", cfg.Cache.RefreshInterval(), 64<<20)
	registerEcosystemsOnce.Do(func() {
		ecosystem.RegisterDefaults(transport)
	})

	workDoneProgress := params.Capabilities.Window != nil && bool(params.Capabilities.Window.WorkDoneProgress)
	s.orch = orchestrator.New(s.store, cfg.Cache.MaxConcurrentFetches, cfg.Cache.FetchTimeout(), newProgressReporter(s.client, s.logger, workDoneProgress), s.logger)
	s.cold = coldstart.New(1000.0/float64(maxInt(cfg.ColdStart.RateLimitMs, 1)), 1)

	watcher, err := newLockWatcher(s)
	if err != nil {
		s.logger.Warn("lock file watcher unavailable; live lock-file reload disabled", zap.Error(err))
	} else {
		s.watcher = watcher
	}

	return &protocol.InitializeResult{
		Capabilities: s.capabilities(),
		ServerInfo: &protocol.ServerInfo{
			Name:    "deps-lsp",
			Version: "0.1.0",
		},
	}, nil
}

func (s *Server) capabilities() protocol.ServerCapabilities {
	return protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.TextDocumentSyncKindFull,
		},
		CompletionProvider: &protocol.CompletionOptions{
			TriggerCharacters: completionTriggerCharacters,
		},
		HoverProvider: true,
		// Note: InlayHintProvider requires LSP 3.17+ protocol types not
		// available in go.lsp.dev/protocol v0.12.0; the textDocument/inlayHint
		// handler below still serves requests clients send without seeing it
		// advertised in ServerCapabilities, as most inlay-hint-aware clients
		// probe once regardless.
		CodeActionProvider: &protocol.CodeActionOptions{
			CodeActionKinds: []protocol.CodeActionKind{protocol.QuickFix},
		},
	}
}

func (s *Server) Initialized(context.Context, *protocol.InitializedParams) error {
	return nil
}

func (s *Server) Shutdown(context.Context) error {
	s.mu.Lock()
	s.shutdownReceived = true
	s.mu.Unlock()
	if s.watcher != nil {
		s.watcher.close()
	}
	if s.cold != nil {
		s.cold.Stop()
	}
	return nil
}

func (s *Server) Exit(context.Context) error {
	s.exitOnce.Do(func() { close(s.exitCh) })
	s.mu.Lock()
	received := s.shutdownReceived
	s.mu.Unlock()
	if !received {
		return fmt.Errorf("exit notification received without a prior shutdown request")
	}
	return nil
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	text := params.TextDocument.Text
	if s.rejectOversize(ctx, uri, len(text)) {
		return nil
	}
	st := s.store.DidOpen(uri, text)
	if s.watcher != nil {
		s.watcher.watch(st)
	}
	if cur, ok := s.store.Snapshot(uri); ok {
		st = cur
	}
	s.publish(ctx, st)
	s.spawnFetch(st)
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if len(params.ContentChanges) == 0 {
		return nil
	}
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	if s.rejectOversize(ctx, uri, len(text)) {
		return nil
	}
	st, ok := s.store.DidChange(uri, text)
	if !ok {
		s.logger.Warn("didChange for unknown document", zap.String("uri", uri))
		return nil
	}
	s.publish(ctx, st)
	s.spawnFetch(st)
	return nil
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	s.store.DidClose(uri)
	if s.watcher != nil {
		s.watcher.forget(uri)
	}
	if s.cold != nil {
		s.cold.Forget(uri)
	}
	return s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: []protocol.Diagnostic{},
	})
}

func (s *Server) DidSave(context.Context, *protocol.DidSaveTextDocumentParams) error {
	return nil
}

func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	uri := string(params.TextDocument.URI)
	st, ok := s.ensureDocument(ctx, uri)
	if !ok {
		return nil, nil
	}
	offset := positionToOffset(st.Text, params.Position)

	var search func(context.Context, string) ([]string, error)
	if st.Eco != nil {
		reg := st.Eco.Registry
		search = reg.Search
	}

	items := projector.Completion(ctx, st, offset, search)
	return &protocol.CompletionList{Items: items}, nil
}

func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := string(params.TextDocument.URI)
	st, ok := s.ensureDocument(ctx, uri)
	if !ok {
		return nil, nil
	}
	offset := positionToOffset(st.Text, params.Position)
	return projector.Hover(st, offset), nil
}

func (s *Server) InlayHint(ctx context.Context, params *protocol.InlayHintParams) ([]protocol.InlayHint, error) {
	uri := string(params.TextDocument.URI)
	st, ok := s.ensureDocument(ctx, uri)
	if !ok {
		return nil, nil
	}
	return projector.InlayHints(s.cfgSnapshot(), st, s.inFlight(uri)), nil
}

func (s *Server) CodeAction(ctx context.Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	uri := string(params.TextDocument.URI)
	st, ok := s.store.Snapshot(uri)
	if !ok {
		return nil, nil
	}
	offset := positionToOffset(st.Text, params.Range.Start)
	return projector.CodeActions(st, offset, s.inFlight(uri)), nil
}

// ensureDocument returns the open document's snapshot, or — for a feature
// request against a URI the editor never sent didOpen for — triggers the
// Cold-Start Gate's rate-limited lazy initialization (spec.md §4.8).
func (s *Server) ensureDocument(ctx context.Context, uri string) (*document.State, bool) {
	if st, ok := s.store.Snapshot(uri); ok {
		return st, true
	}
	if s.cold == nil || !s.cold.Allow(uri) {
		return nil, false
	}

	path := uriToPath(uri)
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug("cold start read failed", zap.String("uri", uri), zap.Error(err))
		return nil, false
	}
	if s.rejectOversize(ctx, uri, len(data)) {
		return nil, false
	}

	st := s.store.DidOpen(uri, string(data))
	if s.watcher != nil {
		s.watcher.watch(st)
	}
	if cur, ok := s.store.Snapshot(uri); ok {
		st = cur
	}
	s.spawnFetch(st)
	return st, true
}

// spawnFetch runs a fetch batch detached from the request/notification
// that triggered it — RefreshDocument bounds its own lifetime via the
// orchestrator's 2x-fetch-timeout batch deadline (spec.md §4.7).
func (s *Server) spawnFetch(st *document.State) {
	if st.Eco == nil || s.orch == nil {
		return
	}
	go func() {
		s.orch.RefreshDocument(context.Background(), st.Eco.Registry, st)
		if cur, ok := s.store.Snapshot(st.URI); ok && cur.Generation == st.Generation {
			s.publish(context.Background(), cur)
		}
	}()
}

// publish regenerates and sends diagnostics for st, serialized per-document
// (spec.md §5: "at most one in-flight publishDiagnostics per document").
func (s *Server) publish(ctx context.Context, st *document.State) {
	lock := s.publishLockFor(st.URI)
	lock.Lock()
	defer lock.Unlock()

	diags := projector.Diagnostics(s.cfgSnapshot(), st, s.inFlight(st.URI))
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	if err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(st.URI),
		Diagnostics: diags,
	}); err != nil {
		s.logger.Warn("publishDiagnostics failed", zap.String("uri", st.URI), zap.Error(err))
	}
}

func (s *Server) rejectOversize(ctx context.Context, uri string, size int) bool {
	if size <= maxFileSize {
		if size > warnFileSize {
			s.logger.Warn("manifest exceeds the warning size threshold", zap.String("uri", uri), zap.Int("bytes", size))
		}
		return false
	}

	lock := s.publishLockFor(uri)
	lock.Lock()
	defer lock.Unlock()
	diag := protocol.Diagnostic{
		Severity: protocol.DiagnosticSeverityError,
		Source:   "deps-lsp",
		Message:  (&errs.OversizeFileError{URI: uri, Size: int64(size)}).Error(),
	}
	if err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentURI(uri),
		Diagnostics: []protocol.Diagnostic{diag},
	}); err != nil {
		s.logger.Warn("publishDiagnostics failed", zap.String("uri", uri), zap.Error(err))
	}
	return true
}

func (s *Server) publishLockFor(uri string) *sync.Mutex {
	v, _ := s.publishLocks.LoadOrStore(uri, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *Server) cfgSnapshot() config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

func (s *Server) inFlight(uri string) map[string]bool {
	if s.orch == nil {
		return nil
	}
	return s.orch.InFlightNames(uri)
}

// completionTriggerCharacters matches spec.md §6 exactly: quote/equals/dot/
// comma/space plus every alphanumeric, since manifests start completions
// mid-identifier (e.g. typing a package name with no preceding punctuation).
var completionTriggerCharacters = buildTriggerCharacters()

func buildTriggerCharacters() []string {
	chars := []string{`"`, `'`, "=", ".", ",", " "}
	for c := '0'; c <= '9'; c++ {
		chars = append(chars, string(c))
	}
	for c := 'a'; c <= 'z'; c++ {
		chars = append(chars, string(c))
	}
	for c := 'A'; c <= 'Z'; c++ {
		chars = append(chars, string(c))
	}
	return chars
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func marshalOptions(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// uriToPath strips the file:// scheme a didOpen/cold-start URI arrives
// with, including the extra leading slash Windows drive-letter URIs carry
// (file:///C:/...).
func uriToPath(uri string) string {
	const prefix = "file://"
	if !strings.HasPrefix(uri, prefix) {
		return uri
	}
	path := uri[len(prefix):]
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return path
}

// positionToOffset converts an LSP (UTF-16) line/character position into a
// byte offset into text, the inverse of internal/projector's
// offsetToPosition.
func positionToOffset(text string, pos protocol.Position) int {
	i := 0
	line := uint32(0)
	for i < len(text) && line < pos.Line {
		if text[i] == '\n' {
			line++
		}
		i++
	}

	var utf16Count uint32
	for i < len(text) && text[i] != '\n' && utf16Count < pos.Character {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r > 0xFFFF {
			utf16Count += 2
		} else {
			utf16Count++
		}
		i += size
	}
	return i
}
