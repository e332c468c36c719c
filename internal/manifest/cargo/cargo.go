// Package cargo parses Cargo.toml into manifest.Parsed.
package cargo

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/manifest"
)

type Parser struct{}

var sectionHeaders = map[string]manifest.Section{
	"dependencies":             manifest.SectionRuntime,
	"dev-dependencies":         manifest.SectionDev,
	"build-dependencies":       manifest.SectionBuild,
	"workspace.dependencies":   manifest.SectionWorkspace,
}

type cargoDoc struct {
	Dependencies         map[string]toml.Primitive `toml:"dependencies"`
	DevDependencies      map[string]toml.Primitive `toml:"dev-dependencies"`
	BuildDependencies    map[string]toml.Primitive `toml:"build-dependencies"`
	Workspace            struct {
		Dependencies map[string]toml.Primitive `toml:"dependencies"`
	} `toml:"workspace"`
}

// headerLine matches a TOML table header for one of the dependency
// sections this parser understands, e.g. "[dependencies]" or
// "[workspace.dependencies]".
var headerLine = regexp.MustCompile(`^\[([a-zA-Z0-9_.-]+)\]\s*$`)

// keyLine matches "name = ..." or "name.version = ..." inside a section,
// capturing the byte span of the key itself for name_span recovery (the
// toml decoder discards source positions, so this parser recovers spans
// with its own lexical pass — see SPEC_FULL.md §3a).
var keyLine = regexp.MustCompile(`^([A-Za-z0-9_-]+)(?:\.version)?\s*=\s*(.*)$`)

// versionString matches a simple `"1.2.3"` requirement value; table-form
// dependencies (`{ version = "1", features = [...] }`) have their
// requirement recovered separately by versionInTable.
var versionString = regexp.MustCompile(`^"([^"]*)"`)

var versionInTable = regexp.MustCompile(`version\s*=\s*"([^"]*)"`)

func (Parser) Parse(uri string, text []byte) *manifest.Parsed {
	var doc cargoDoc
	_, err := toml.Decode(string(text), &doc)
	if err != nil {
		return &manifest.Parsed{
			Diagnostics: []*errs.ParseError{{URI: uri, Message: fmt.Sprintf("Cargo.toml: %v", err)}},
		}
	}

	deps := scanDependencySpans(string(text))
	return &manifest.Parsed{Dependencies: deps}
}

func scanDependencySpans(text string) []manifest.Dependency {
	var deps []manifest.Dependency
	var section manifest.Section
	inSection := false

	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(line)
		trimmed := strings.TrimRight(line, "\r\n")

		if m := headerLine.FindStringSubmatch(strings.TrimSpace(trimmed)); m != nil {
			sec, ok := sectionHeaders[m[1]]
			inSection = ok
			section = sec
			continue
		}
		if !inSection {
			continue
		}
		stripped := strings.TrimLeft(trimmed, " \t")
		leadingWS := len(trimmed) - len(stripped)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}
		if strings.HasPrefix(stripped, "[") {
			inSection = false
			continue
		}

		m := keyLine.FindStringSubmatch(stripped)
		if m == nil {
			continue
		}
		name := m[1]
		rest := m[2]
		nameStart := lineStart + leadingWS
		nameEnd := nameStart + len(name)

		var reqText string
		var reqStart, reqEnd int
		if vm := versionString.FindStringSubmatch(rest); vm != nil {
			reqText = vm[1]
			idx := strings.Index(stripped, vm[0])
			reqStart = lineStart + leadingWS + idx + 1 // skip opening quote
			reqEnd = reqStart + len(reqText)
		} else if vm := versionInTable.FindStringSubmatch(rest); vm != nil {
			reqText = vm[1]
			idx := strings.Index(stripped, vm[0]) + strings.Index(vm[0], vm[1])
			reqStart = lineStart + leadingWS + idx
			reqEnd = reqStart + len(reqText)
		} else {
			// path/git dependency table with no version key: still record
			// the name so completion/hover can identify it, as source=path/git.
			reqText = ""
		}

		sourceKind := manifest.SourceRegistry
		if strings.Contains(rest, "path") {
			sourceKind = manifest.SourcePath
		} else if strings.Contains(rest, "git") {
			sourceKind = manifest.SourceGit
		}

		deps = append(deps, manifest.Dependency{
			Name:            name,
			RequirementText: reqText,
			NameSpan:        manifest.Span{Start: nameStart, End: nameEnd},
			VersionSpan:     manifest.Span{Start: reqStart, End: reqEnd},
			Section:         section,
			SourceKind:      sourceKind,
		})
	}

	return deps
}
