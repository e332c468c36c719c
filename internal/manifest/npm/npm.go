// Package npm parses package.json into manifest.Parsed.
package npm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/manifest"
)

type Parser struct{}

type packageJSON struct {
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
}

var sectionKeys = map[string]manifest.Section{
	`"dependencies"`:         manifest.SectionRuntime,
	`"devDependencies"`:      manifest.SectionDev,
	`"optionalDependencies"`: manifest.OptionalGroup("optional"),
	`"peerDependencies"`:     manifest.OptionalGroup("peer"),
}

var keyLine = regexp.MustCompile(`^"((?:[^"\\]|\\.)*)"\s*:\s*"((?:[^"\\]|\\.)*)"\s*,?\s*$`)

var inlinePair = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"\s*:\s*"((?:[^"\\]|\\.)*)"`)

func (Parser) Parse(uri string, text []byte) *manifest.Parsed {
	var doc packageJSON
	if err := json.Unmarshal(text, &doc); err != nil {
		return &manifest.Parsed{
			Diagnostics: []*errs.ParseError{{URI: uri, Message: fmt.Sprintf("package.json: %v", err)}},
		}
	}
	return &manifest.Parsed{Dependencies: scanDependencySpans(string(text))}
}

// scanDependencySpans recovers byte spans for each "name": "requirement"
// pair with a line-oriented scan, since encoding/json discards source
// positions (SPEC_FULL.md §3a).
func scanDependencySpans(text string) []manifest.Dependency {
	var deps []manifest.Dependency
	var section manifest.Section
	inSection := false
	depth := 0

	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(line)
		trimmed := strings.TrimRight(line, "\r\n")
		stripped := strings.TrimLeft(trimmed, " \t")
		leadingWS := len(trimmed) - len(stripped)

		if !inSection {
			for key, sec := range sectionKeys {
				if strings.HasPrefix(stripped, key) && strings.Contains(stripped, "{") {
					open, end := strings.Index(stripped, "{"), strings.Index(stripped, "}")
					if end > open {
						// The whole section sits on this line, e.g. "peerDependencies": {"react": "^18.0.0"}.
						base := lineStart + leadingWS + open
						for _, pm := range inlinePair.FindAllStringSubmatchIndex(stripped[open:end], -1) {
							deps = append(deps, manifest.Dependency{Name: stripped[open+pm[2] : open+pm[3]], RequirementText: stripped[open+pm[4] : open+pm[5]],
								NameSpan: manifest.Span{Start: base + pm[2], End: base + pm[3]}, VersionSpan: manifest.Span{Start: base + pm[4], End: base + pm[5]},
								Section: sec, SourceKind: manifest.SourceRegistry})
						}
						break
					}
					inSection = true
					section = sec
					depth = 1
					break
				}
			}
			continue
		}

		if strings.Contains(stripped, "{") {
			depth++
		}
		if strings.Contains(stripped, "}") {
			depth--
			if depth <= 0 {
				inSection = false
				continue
			}
		}

		m := keyLine.FindStringSubmatch(stripped)
		if m == nil {
			continue
		}
		name, req := m[1], m[2]

		nameQuoteIdx := strings.Index(stripped, `"`+name+`"`)
		nameStart := lineStart + leadingWS + nameQuoteIdx + 1
		nameEnd := nameStart + len(name)

		reqQuoteIdx := strings.LastIndex(stripped, `"`+req+`"`)
		reqStart := lineStart + leadingWS + reqQuoteIdx + 1
		reqEnd := reqStart + len(req)

		deps = append(deps, manifest.Dependency{
			Name:            name,
			RequirementText: req,
			NameSpan:        manifest.Span{Start: nameStart, End: nameEnd},
			VersionSpan:     manifest.Span{Start: reqStart, End: reqEnd},
			Section:         section,
			SourceKind:      manifest.SourceRegistry,
		})
	}

	return deps
}
