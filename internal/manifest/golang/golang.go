// Package golang parses go.mod into manifest.Parsed using
// golang.org/x/mod/modfile, the one ecosystem here whose parser exposes
// native source positions (SPEC_FULL.md §3a).
package golang

import (
	"fmt"

	"golang.org/x/mod/modfile"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/manifest"
)

type Parser struct{}

func (Parser) Parse(uri string, text []byte) *manifest.Parsed {
	f, err := modfile.Parse(uri, text, nil)
	if err != nil {
		return &manifest.Parsed{
			Diagnostics: []*errs.ParseError{{URI: uri, Message: fmt.Sprintf("go.mod: %v", err)}},
		}
	}

	var deps []manifest.Dependency
	for _, req := range f.Require {
		section := manifest.SectionRuntime
		if req.Indirect {
			// Still parsed so hover/diagnostics can see it, but not
			// actionable for code actions (SPEC_FULL.md §3a).
			section = manifest.OptionalGroup("indirect")
		}

		nameStart, nameEnd := req.Syntax.Start.Byte, req.Syntax.Start.Byte+len(req.Mod.Path)
		// modfile's token spans cover the whole require line; the version
		// token follows the module path and a space.
		versionStart := nameEnd + 1
		versionEnd := versionStart + len(req.Mod.Version)

		deps = append(deps, manifest.Dependency{
			Name:            req.Mod.Path,
			RequirementText: req.Mod.Version,
			NameSpan:        manifest.Span{Start: nameStart, End: nameEnd},
			VersionSpan:     manifest.Span{Start: versionStart, End: versionEnd},
			Section:         section,
			SourceKind:      manifest.SourceRegistry,
		})
	}

	return &manifest.Parsed{Dependencies: deps}
}
