package projector

import (
	"strings"
	"testing"
	"time"

	"github.com/deps-lsp/deps-lsp/internal/config"
	"github.com/deps-lsp/deps-lsp/internal/document"
	"github.com/deps-lsp/deps-lsp/internal/ecosystem"
	"github.com/deps-lsp/deps-lsp/internal/manifest"
	"github.com/deps-lsp/deps-lsp/internal/registry"
	"github.com/deps-lsp/deps-lsp/internal/version"
)

func cargoEco() *ecosystem.Ecosystem {
	return &ecosystem.Ecosystem{Name: "cargo", Eco: version.Cargo}
}

func bundlerEco() *ecosystem.Ecosystem {
	return &ecosystem.Ecosystem{Name: "bundler", Eco: version.Bundler}
}

func npmEco() *ecosystem.Ecosystem {
	return &ecosystem.Ecosystem{Name: "npm", Eco: version.NPM}
}

func depAt(name, req string, start, end int) manifest.Dependency {
	return manifest.Dependency{
		Name:            name,
		RequirementText: req,
		VersionSpan:     manifest.Span{Start: start, End: end},
		NameSpan:        manifest.Span{Start: 0, End: len(name)},
		Section:         manifest.SectionRuntime,
		SourceKind:      manifest.SourceRegistry,
	}
}

// S1 — Cargo outdated detection.
func TestScenarioS1OutdatedDiagnosticAndHint(t *testing.T) {
	text := `serde = "1.0.100"`
	dep := depAt("serde", "1.0.100", 8, 17)
	st := &document.State{
		URI:    "file:///Cargo.toml",
		Text:   text,
		Eco:    cargoEco(),
		Parsed: &manifest.Parsed{Dependencies: []manifest.Dependency{dep}},
		CachedLatest: map[string]document.VersionState{
			"serde": {
				Latest: registry.Version{Number: "1.0.210"},
				Versions: []registry.Version{
					{Number: "1.0.210", PublishedAt: time.Now()},
				},
			},
		},
		ResolvedLock: map[string]string{},
	}

	cfg := config.Default()
	diags := Diagnostics(cfg, st, nil)
	if len(diags) != 1 {
		t.Fatalf("len(diags) = %d, want 1", len(diags))
	}
	if diags[0].Message != "newer version available: 1.0.210" {
		t.Errorf("message = %q", diags[0].Message)
	}

	hints := InlayHints(cfg, st, nil)
	if len(hints) != 1 || hints[0].Label != "❌ 1.0.210" {
		t.Errorf("hints = %+v", hints)
	}

	actions := CodeActions(st, 10, nil)
	if len(actions) == 0 || actions[0].Title != "Update serde to 1.0.210" {
		t.Errorf("actions = %+v", actions)
	}
}

// S2 — lock-file up-to-date suppresses the diagnostic and shows ✅.
func TestScenarioS2LockUpToDate(t *testing.T) {
	text := `tokio = "1"`
	dep := depAt("tokio", "1", 8, 11)
	st := &document.State{
		URI:    "file:///Cargo.toml",
		Text:   text,
		Eco:    cargoEco(),
		Parsed: &manifest.Parsed{Dependencies: []manifest.Dependency{dep}},
		CachedLatest: map[string]document.VersionState{
			"tokio": {Latest: registry.Version{Number: "1.40.0"}},
		},
		ResolvedLock: map[string]string{"tokio": "1.40.0"},
	}

	cfg := config.Default()
	if diags := Diagnostics(cfg, st, nil); len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %+v", diags)
	}
	hints := InlayHints(cfg, st, nil)
	if len(hints) != 1 || hints[0].Label != "✅" {
		t.Errorf("hints = %+v", hints)
	}
}

// S4 — transport error suppressed by lock: no unknown diagnostic, hover
// still shows the resolved version.
func TestScenarioS4UnknownSuppressedByLock(t *testing.T) {
	text := `"lodash": "^4.17.0"`
	dep := depAt("lodash", "^4.17.0", 10, 19)
	st := &document.State{
		URI:          "file:///package.json",
		Text:         text,
		Eco:          npmEco(),
		Parsed:       &manifest.Parsed{Dependencies: []manifest.Dependency{dep}},
		CachedLatest: map[string]document.VersionState{}, // registry returned 503: nothing cached
		ResolvedLock: map[string]string{"lodash": "4.17.21"},
	}

	cfg := config.Default()
	if diags := Diagnostics(cfg, st, nil); len(diags) != 0 {
		t.Errorf("expected no diagnostics (lock suppresses unknown), got %+v", diags)
	}

	hover := Hover(st, 2)
	if hover == nil {
		t.Fatal("expected a hover result")
	}
	if !strings.Contains(hover.Contents.Value, "4.17.21") {
		t.Errorf("hover contents missing resolved version: %q", hover.Contents.Value)
	}
}

// S5 — caret zero-major: requirement permits 0.2.5 but not the 0.3.0
// latest, so the hint still shows the update is unavailable under caret
// semantics.
func TestScenarioS5CaretZeroMajor(t *testing.T) {
	text := `foo = "^0.2.0"`
	dep := depAt("foo", "^0.2.0", 7, 14)
	st := &document.State{
		URI:    "file:///Cargo.toml",
		Text:   text,
		Eco:    cargoEco(),
		Parsed: &manifest.Parsed{Dependencies: []manifest.Dependency{dep}},
		CachedLatest: map[string]document.VersionState{
			"foo": {Latest: registry.Version{Number: "0.3.0"}},
		},
		ResolvedLock: map[string]string{},
	}

	cfg := config.Default()
	hints := InlayHints(cfg, st, nil)
	if len(hints) != 1 || hints[0].Label != "❌ 0.3.0" {
		t.Errorf("hints = %+v, want ❌ 0.3.0", hints)
	}
}

// S3 — resolved version for a name pinned at two versions is the highest.
// (Exercised directly against lockfile.Resolved rather than through a
// projector, since this is a Lock Reader property — see
// internal/lockfile's own tests for the full case.)

func TestInFlightRendersLoadingText(t *testing.T) {
	text := `rack = "3.0"`
	dep := depAt("rack", "3.0", 7, 12)
	st := &document.State{
		URI:          "file:///Gemfile",
		Text:         text,
		Eco:          bundlerEco(),
		Parsed:       &manifest.Parsed{Dependencies: []manifest.Dependency{dep}},
		CachedLatest: map[string]document.VersionState{},
		ResolvedLock: map[string]string{},
	}
	cfg := config.Default()
	hints := InlayHints(cfg, st, map[string]bool{"rack": true})
	if len(hints) != 1 || hints[0].Label != "⏳" {
		t.Errorf("hints = %+v, want loading glyph", hints)
	}
}

