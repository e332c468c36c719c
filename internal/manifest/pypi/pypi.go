// Package pypi parses pyproject.toml (PEP 621 and Poetry dialects) into
// manifest.Parsed.
package pypi

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/manifest"
)

type Parser struct{}

type pyprojectDoc struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]toml.Primitive `toml:"dependencies"`
			Group        map[string]struct {
				Dependencies map[string]toml.Primitive `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

var pep508Name = regexp.MustCompile(`^([A-Za-z0-9][-A-Za-z0-9._]*)\s*(\[[^\]]*\])?\s*(.*)$`)

func (Parser) Parse(uri string, text []byte) *manifest.Parsed {
	var doc pyprojectDoc
	if _, err := toml.Decode(string(text), &doc); err != nil {
		return &manifest.Parsed{
			Diagnostics: []*errs.ParseError{{URI: uri, Message: fmt.Sprintf("pyproject.toml: %v", err)}},
		}
	}
	return &manifest.Parsed{Dependencies: scanDependencySpans(string(text))}
}

// PEP 621 arrays hold whole requirement strings ("requests>=2.0"): NameSpan
// covers the name inside the quoted literal and VersionSpan the text after
// the name and any extras (">=2.0"); a bare name gets RequirementText "*"
// and an empty VersionSpan at the end of the literal. Poetry's table form is
// scanned the same way as Cargo.toml key = value pairs.
func scanDependencySpans(text string) []manifest.Dependency {
	var deps []manifest.Dependency
	mode := "" // "", "pep621-deps", "pep621-optional", "poetry-deps"
	var section manifest.Section

	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(line)
		trimmed := strings.TrimRight(line, "\r\n")
		stripped := strings.TrimSpace(trimmed)

		switch {
		case stripped == "dependencies = [":
			mode = "pep621-deps"
			section = manifest.SectionRuntime
			continue
		case strings.HasPrefix(stripped, "[project.optional-dependencies]"):
			mode = ""
			continue
		case strings.HasPrefix(stripped, "[tool.poetry.dependencies]"):
			mode = "poetry-deps"
			section = manifest.SectionRuntime
			continue
		case strings.HasPrefix(stripped, "[tool.poetry.group.") && strings.HasSuffix(stripped, ".dependencies]"):
			name := strings.TrimSuffix(strings.TrimPrefix(stripped, "[tool.poetry.group."), ".dependencies]")
			mode = "poetry-deps"
			section = manifest.OptionalGroup(name)
			continue
		case strings.HasPrefix(stripped, "["):
			mode = ""
			continue
		}

		switch mode {
		case "pep621-deps":
			if stripped == "]" {
				mode = ""
				continue
			}
			parsePEP508Line(stripped, lineStart, len(trimmed)-len(strings.TrimLeft(trimmed, " \t")), section, &deps)
		case "poetry-deps":
			if stripped == "" {
				continue
			}
			parsePoetryKeyLine(stripped, trimmed, lineStart, section, &deps)
		}
	}
	return deps
}

var quotedLiteral = regexp.MustCompile(`"([^"]*)"`)

func parsePEP508Line(stripped string, lineStart, leadingWS int, section manifest.Section, deps *[]manifest.Dependency) {
	m := quotedLiteral.FindStringSubmatchIndex(stripped)
	if m == nil {
		return
	}
	literal := stripped[m[2]:m[3]]
	litStart := lineStart + leadingWS + m[2]

	nm := pep508Name.FindStringSubmatch(literal)
	if nm == nil {
		return
	}
	name := nm[1]
	req := strings.TrimSpace(nm[3])
	verStart := litStart + len(literal) - len(req)
	if req == "" {
		req = "*"
	}

	*deps = append(*deps, manifest.Dependency{
		Name:            name,
		RequirementText: req,
		NameSpan:        manifest.Span{Start: litStart, End: litStart + len(name)},
		VersionSpan:     manifest.Span{Start: verStart, End: litStart + len(literal)},
		Section:         section,
		SourceKind:      manifest.SourceRegistry,
	})
}

var poetryKeyLine = regexp.MustCompile(`^([A-Za-z0-9_.-]+)\s*=\s*(.*)$`)
var poetryVersionString = regexp.MustCompile(`^"([^"]*)"`)
var poetryVersionInTable = regexp.MustCompile(`version\s*=\s*"([^"]*)"`)

func parsePoetryKeyLine(stripped, trimmed string, lineStart int, section manifest.Section, deps *[]manifest.Dependency) {
	m := poetryKeyLine.FindStringSubmatch(stripped)
	if m == nil {
		return
	}
	name, rest := m[1], m[2]
	leadingWS := len(trimmed) - len(strings.TrimLeft(trimmed, " \t"))
	nameStart := lineStart + leadingWS
	nameEnd := nameStart + len(name)

	var reqText string
	var reqStart, reqEnd int
	if vm := poetryVersionString.FindStringSubmatch(rest); vm != nil {
		reqText = vm[1]
		idx := strings.Index(stripped, vm[0])
		reqStart = lineStart + leadingWS + idx + 1
		reqEnd = reqStart + len(reqText)
	} else if vm := poetryVersionInTable.FindStringSubmatch(rest); vm != nil {
		reqText = vm[1]
		idx := strings.Index(stripped, vm[0]) + strings.Index(vm[0], vm[1])
		reqStart = lineStart + leadingWS + idx
		reqEnd = reqStart + len(reqText)
	}
	if name == "python" {
		return // interpreter constraint, not a package dependency
	}

	*deps = append(*deps, manifest.Dependency{
		Name:            name,
		RequirementText: reqText,
		NameSpan:        manifest.Span{Start: nameStart, End: nameEnd},
		VersionSpan:     manifest.Span{Start: reqStart, End: reqEnd},
		Section:         section,
		SourceKind:      manifest.SourceRegistry,
	})
}
