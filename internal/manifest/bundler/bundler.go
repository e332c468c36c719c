// Package bundler parses a Gemfile's "gem" calls into manifest.Parsed. No
// registry-grade Ruby parser exists in this repo's dependency graph, so
// this recognizes a constrained DSL subset the way Bundler itself
// permissively parses it (SPEC_FULL.md §3a).
package bundler

import (
	"regexp"
	"strings"

	"github.com/deps-lsp/deps-lsp/internal/manifest"
)

type Parser struct{}

// gemCall matches `gem "name"` optionally followed by `, "requirement"`.
// Symbol-keyed options (`require: false`, `platforms: :mingw`) are ignored.
var gemCall = regexp.MustCompile(`^gem\s+(['"])([^'"]+)['"](?:\s*,\s*(['"])([^'"]*)['"])?`)

var groupStart = regexp.MustCompile(`^group\s+(.+?)\s+do\s*$`)

func (Parser) Parse(uri string, text []byte) *manifest.Parsed {
	content := string(text)
	var deps []manifest.Dependency

	section := manifest.SectionRuntime
	groupDepth := 0

	offset := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		lineStart := offset
		offset += len(line)
		trimmed := strings.TrimRight(line, "\r\n")
		stripped := strings.TrimLeft(trimmed, " \t")
		leadingWS := len(trimmed) - len(stripped)

		if gm := groupStart.FindStringSubmatch(stripped); gm != nil {
			groupDepth++
			section = groupSection(gm[1])
			continue
		}
		if stripped == "end" && groupDepth > 0 {
			groupDepth--
			if groupDepth == 0 {
				section = manifest.SectionRuntime
			}
			continue
		}

		m := gemCall.FindStringSubmatchIndex(stripped)
		if m == nil {
			continue
		}
		name := stripped[m[4]:m[5]]
		nameStart := lineStart + leadingWS + m[4]

		var req string
		var reqStart, reqEnd int
		if m[8] >= 0 {
			req = stripped[m[8]:m[9]]
			reqStart = lineStart + leadingWS + m[8]
			reqEnd = reqStart + len(req)
		}

		deps = append(deps, manifest.Dependency{
			Name:            name,
			RequirementText: req,
			NameSpan:        manifest.Span{Start: nameStart, End: nameStart + len(name)},
			VersionSpan:     manifest.Span{Start: reqStart, End: reqEnd},
			Section:         section,
			SourceKind:      manifest.SourceRegistry,
		})
	}

	return &manifest.Parsed{Dependencies: deps}
}

func groupSection(groupArgs string) manifest.Section {
	if strings.Contains(groupArgs, "development") {
		return manifest.SectionDev
	}
	if strings.Contains(groupArgs, "test") {
		return manifest.SectionDev
	}
	return manifest.OptionalGroup(strings.Trim(groupArgs, ":, "))
}
