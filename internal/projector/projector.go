// Package projector turns a DocumentState snapshot into LSP responses
// (spec.md §4.9). Every function here is pure and does no I/O except
// Completion's package-name search path, which is separately time-boxed by
// its caller — the rest read only what the orchestrator has already
// cached.
package projector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/deps-lsp/deps-lsp/internal/config"
	"github.com/deps-lsp/deps-lsp/internal/document"
	"github.com/deps-lsp/deps-lsp/internal/manifest"
	"github.com/deps-lsp/deps-lsp/internal/purlident"
	"github.com/deps-lsp/deps-lsp/internal/registry"
	"github.com/deps-lsp/deps-lsp/internal/version"
)

// Status classifies one dependency against cached registry/lock state
// (spec.md §4.9's Diagnostics kinds).
type Status string

const (
	StatusUpToDate Status = "up_to_date"
	StatusOutdated Status = "outdated"
	StatusUnknown  Status = "unknown"
	StatusYanked   Status = "yanked"
	StatusLoading  Status = "loading"
)

// VersionDisplayItem unifies completion and code-action formatting
// (spec.md §4.9).
type VersionDisplayItem struct {
	Version  string
	IsLatest bool
	IsYanked bool
	Label    string
}

// Evaluate classifies a single dependency's status from cached state alone.
// The third return value is the resolved lock version (if any); the fourth
// reports whether an otherwise-unknown status must be suppressed because a
// soft transport failure left no signal but the lock file still vouches
// for the name (spec.md §4.7 failure policy / §8 scenario S4).
func Evaluate(eco version.Ecosystem, dep manifest.Dependency, st *document.State, inFlight bool) (status Status, vs *document.VersionState, lockVersion string, suppressed bool) {
	cached, hasCached := st.CachedLatest[dep.Name]
	lockVersion, hasLock := st.ResolvedLock[dep.Name]

	if !hasCached {
		if inFlight {
			return StatusLoading, nil, lockVersion, false
		}
		if st.NotFound[dep.Name] {
			// A confirmed registry miss is unknown regardless of the lock
			// file; the lock only suppresses *soft* failures.
			return StatusUnknown, nil, lockVersion, false
		}
		if hasLock {
			return StatusUnknown, nil, lockVersion, true
		}
		return StatusUnknown, nil, lockVersion, false
	}
	vs = &cached

	if vs.Latest.IsYanked {
		return StatusYanked, vs, lockVersion, false
	}

	req, err := version.ParseRequirement(eco, dep.RequirementText)
	if err != nil {
		return StatusUnknown, vs, lockVersion, false
	}

	latest, err := version.Parse(eco, vs.Latest.Number)
	if err != nil {
		return StatusUnknown, vs, lockVersion, false
	}

	if hasLock {
		lv, err := version.Parse(eco, lockVersion)
		if err == nil && !lv.LessThan(latest) {
			return StatusUpToDate, vs, lockVersion, false
		}
	}

	if req.Satisfies(latest) && !hasLock {
		return StatusUpToDate, vs, lockVersion, false
	}

	return StatusOutdated, vs, lockVersion, false
}

// Diagnostics regenerates every diagnostic for a document from cached state,
// never touching the network (spec.md §4.9).
func Diagnostics(cfg config.Config, st *document.State, inFlight map[string]bool) []protocol.Diagnostic {
	if st.Eco == nil {
		return nil
	}
	var diags []protocol.Diagnostic
	for _, dep := range st.Parsed.Dependencies {
		if dep.SourceKind != manifest.SourceRegistry {
			continue
		}
		status, vs, _, suppressed := Evaluate(st.Eco.Eco, dep, st, inFlight[dep.Name])
		rng := spanToRange(st.Text, dep.VersionSpan)

		switch status {
		case StatusOutdated:
			diags = append(diags, protocol.Diagnostic{
				Range:    rng,
				Severity: severityOf(cfg.Diagnostics.OutdatedSeverity),
				Source:   "deps-lsp",
				Message:  fmt.Sprintf("newer version available: %s", vs.Latest.Number),
			})
		case StatusYanked:
			diags = append(diags, protocol.Diagnostic{
				Range:    rng,
				Severity: severityOf(cfg.Diagnostics.YankedSeverity),
				Source:   "deps-lsp",
				Message:  fmt.Sprintf("%s version is yanked", dep.Name),
			})
		case StatusUnknown:
			if suppressed {
				continue
			}
			diags = append(diags, protocol.Diagnostic{
				Range:    rng,
				Severity: severityOf(cfg.Diagnostics.UnknownSeverity),
				Source:   "deps-lsp",
				Message:  fmt.Sprintf("%s: package not found upstream", dep.Name),
			})
		}
	}
	return diags
}

// InlayHints renders one hint per registry-sourced dependency (spec.md
// §4.9's three-way comparison).
func InlayHints(cfg config.Config, st *document.State, inFlight map[string]bool) []protocol.InlayHint {
	if !cfg.InlayHints.Enabled || st.Eco == nil {
		return nil
	}
	var hints []protocol.InlayHint
	for _, dep := range st.Parsed.Dependencies {
		if dep.SourceKind != manifest.SourceRegistry {
			continue
		}
		status, vs, _, _ := Evaluate(st.Eco.Eco, dep, st, inFlight[dep.Name])

		var label string
		switch status {
		case StatusUpToDate:
			label = cfg.InlayHints.UpToDateText
		case StatusOutdated, StatusYanked:
			label = strings.Replace(cfg.InlayHints.NeedsUpdateText, "{}", vs.Latest.Number, 1)
		case StatusLoading:
			if !cfg.LoadingIndicator.Enabled || !cfg.LoadingIndicator.FallbackToHints {
				continue
			}
			label = cfg.LoadingIndicator.LoadingText
		default:
			continue
		}

		pos := offsetToPosition(st.Text, dep.VersionSpan.End)
		hints = append(hints, protocol.InlayHint{
			Position:    pos,
			Label:       label,
			PaddingLeft: true,
		})
	}
	return hints
}

// Hover answers a hover request for the dependency whose name or version
// span contains offset, or nil if none matches. Metadata comes from
// st.Metadata — already fetched by the orchestrator alongside versions, so
// Hover does no I/O of its own (spec.md §4.9).
func Hover(st *document.State, offset int) *protocol.Hover {
	if st.Eco == nil {
		return nil
	}
	for _, dep := range st.Parsed.Dependencies {
		if !spanContains(dep.NameSpan, offset) && !spanContains(dep.VersionSpan, offset) {
			continue
		}

		metadata := st.Metadata[dep.Name]

		var b strings.Builder
		fmt.Fprintf(&b, "**%s**\n\n", dep.Name)
		if metadata != nil && metadata.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", metadata.Description)
		}
		if lockVersion, ok := st.ResolvedLock[dep.Name]; ok {
			fmt.Fprintf(&b, "resolved: `%s`\n\n", lockVersion)
		}
		if vs, ok := st.CachedLatest[dep.Name]; ok {
			fmt.Fprintf(&b, "latest: `%s`\n\n", vs.Latest.Number)
			if len(vs.Versions) > 0 {
				b.WriteString("recent versions:\n")
				for _, v := range topNonYanked(st.Eco.Eco, vs.Versions, 5) {
					fmt.Fprintf(&b, "- `%s`\n", v.Number)
				}
			}
		}
		if id, err := purlident.New(string(st.Eco.Eco), dep.Name, st.ResolvedLock[dep.Name]); err == nil {
			fmt.Fprintf(&b, "\n`%s`\n", id)
		}

		rng := spanToRange(st.Text, dep.NameSpan)
		return &protocol.Hover{
			Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: b.String()},
			Range:    &rng,
		}
	}
	return nil
}

// Completion answers a completion request at offset. For a package-name
// position it calls search (time-boxed by ctx); for a version position it
// returns cached_latest plus recent history, newest-first (spec.md §4.9).
func Completion(ctx context.Context, st *document.State, offset int, search func(context.Context, string) ([]string, error)) []protocol.CompletionItem {
	if st.Eco == nil {
		return nil
	}
	for _, dep := range st.Parsed.Dependencies {
		if spanContains(dep.VersionSpan, offset) {
			return versionCompletions(dep, st)
		}
		if spanContains(dep.NameSpan, offset) {
			return nameCompletions(ctx, dep.Name, search)
		}
	}
	return nil
}

func nameCompletions(ctx context.Context, prefix string, search func(context.Context, string) ([]string, error)) []protocol.CompletionItem {
	if search == nil {
		return nil
	}
	names, err := search(ctx, prefix)
	if err != nil {
		return nil
	}
	items := make([]protocol.CompletionItem, 0, len(names))
	for _, n := range names {
		items = append(items, protocol.CompletionItem{
			Label: n,
			Kind:  protocol.CompletionItemKindModule,
		})
	}
	return items
}

func versionCompletions(dep manifest.Dependency, st *document.State) []protocol.CompletionItem {
	vs, ok := st.CachedLatest[dep.Name]
	if !ok {
		return nil
	}
	items := DisplayItems(st.Eco.Eco, vs)
	out := make([]protocol.CompletionItem, 0, len(items))
	for i, item := range items {
		insertText := item.Version
		out = append(out, protocol.CompletionItem{
			Label:      item.Label,
			Kind:       protocol.CompletionItemKindConstant,
			InsertText: insertText,
			Preselect:  i == 0,
			SortText:   fmt.Sprintf("%04d", i),
		})
	}
	return out
}

// DisplayItems builds the shared VersionDisplayItem list for completion and
// code actions: latest first, then up to 4 more non-yanked versions from
// history, newest-first by semantic order.
func DisplayItems(eco version.Ecosystem, vs document.VersionState) []VersionDisplayItem {
	ordered := []registry.Version{vs.Latest}
	for _, v := range topNonYanked(eco, vs.Versions, len(vs.Versions)) {
		if len(ordered) < 5 && v.Number != vs.Latest.Number {
			ordered = append(ordered, v)
		}
	}
	items := make([]VersionDisplayItem, 0, len(ordered))
	for i, v := range ordered {
		label := v.Number
		if i == 0 {
			label += " (latest)"
		}
		items = append(items, VersionDisplayItem{
			Version:  v.Number,
			IsLatest: i == 0,
			IsYanked: v.IsYanked,
			Label:    label,
		})
	}
	return items
}

// CodeActions offers "Update <pkg> to <v>" quickfixes for outdated
// dependencies, replacing only the version span and preserving
// surrounding quotes (spec.md §4.9).
func CodeActions(st *document.State, offset int, inFlight map[string]bool) []protocol.CodeAction {
	if st.Eco == nil {
		return nil
	}
	var actions []protocol.CodeAction
	for _, dep := range st.Parsed.Dependencies {
		if !spanContains(dep.VersionSpan, offset) && !spanContains(dep.NameSpan, offset) {
			continue
		}
		status, vs, _, _ := Evaluate(st.Eco.Eco, dep, st, inFlight[dep.Name])
		if status != StatusOutdated && status != StatusYanked {
			continue
		}

		items := DisplayItems(st.Eco.Eco, *vs)
		rng := spanToRange(st.Text, dep.VersionSpan)
		uri := protocol.DocumentURI(st.URI)
		for _, item := range items {
			actions = append(actions, protocol.CodeAction{
				Title: fmt.Sprintf("Update %s to %s", dep.Name, item.Version),
				Kind:  protocol.QuickFix,
				Edit: &protocol.WorkspaceEdit{
					Changes: map[protocol.DocumentURI][]protocol.TextEdit{
						uri: {{Range: rng, NewText: item.Version}},
					},
				},
			})
		}
	}
	return actions
}

// topNonYanked returns up to n non-yanked versions, newest-first by
// semantic order (spec.md §4.9: "sorted by semantic index, not
// lexicographically" — e.g. 0.14.0 must precede 0.8.0). Entries whose
// Number doesn't parse under eco fall back to PublishedAt ordering and
// sort after every parseable entry, since their relative rank is otherwise
// unknowable.
func topNonYanked(eco version.Ecosystem, versions []registry.Version, n int) []registry.Version {
	type ranked struct {
		v      registry.Version
		parsed *version.Version
	}
	filtered := make([]ranked, 0, len(versions))
	for _, v := range versions {
		if v.IsYanked {
			continue
		}
		pv, err := version.Parse(eco, v.Number)
		if err != nil {
			pv = nil
		}
		filtered = append(filtered, ranked{v: v, parsed: pv})
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		switch {
		case a.parsed != nil && b.parsed != nil:
			return a.parsed.Compare(b.parsed) > 0
		case a.parsed != nil:
			return true
		case b.parsed != nil:
			return false
		default:
			return a.v.PublishedAt.After(b.v.PublishedAt)
		}
	})
	if len(filtered) > n {
		filtered = filtered[:n]
	}
	out := make([]registry.Version, len(filtered))
	for i, r := range filtered {
		out[i] = r.v
	}
	return out
}

func severityOf(s config.Severity) protocol.DiagnosticSeverity {
	switch s {
	case config.SeverityError:
		return protocol.DiagnosticSeverityError
	case config.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityHint
	}
}

func spanContains(span manifest.Span, offset int) bool {
	return span.Start != span.End && offset >= span.Start && offset <= span.End
}

func spanToRange(text string, span manifest.Span) protocol.Range {
	return protocol.Range{
		Start: offsetToPosition(text, span.Start),
		End:   offsetToPosition(text, span.End),
	}
}

// offsetToPosition converts a byte offset into the UTF-16-based line/column
// pair LSP uses, as the teacher's document layer does for diagnostics.
func offsetToPosition(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	line := uint32(0)
	lineStart := 0
	for i := 0; i < offset; i++ {
		if text[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	col := utf16Len(text[lineStart:offset])
	return protocol.Position{Line: line, Character: col}
}

func utf16Len(s string) uint32 {
	var n uint32
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}
