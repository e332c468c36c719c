// Package manifest defines the ecosystem-agnostic dependency data model
// (spec.md §3: Dependency, ParsedManifest) and the per-ecosystem parsers
// that produce it.
package manifest

import "github.com/deps-lsp/deps-lsp/internal/errs"

// Section is where a dependency was declared.
type Section string

const (
	SectionRuntime   Section = "runtime"
	SectionDev       Section = "dev"
	SectionBuild     Section = "build"
	SectionWorkspace Section = "workspace"
)

// OptionalGroup returns the section label for an optional dependency group
// (e.g. npm's peerDependencies, a PyPI extra, a Bundler custom group).
func OptionalGroup(group string) Section {
	return Section("optional<" + group + ">")
}

// SourceKind classifies where a dependency's artifact comes from.
type SourceKind string

const (
	SourceRegistry SourceKind = "registry"
	SourceGit      SourceKind = "git"
	SourcePath     SourceKind = "path"
	SourceGithub   SourceKind = "github"
	SourceSDK      SourceKind = "sdk"
)

// Span is a byte-offset range into the document text.
type Span struct {
	Start, End int
}

// Dependency is one positioned dependency declaration (spec.md §3).
type Dependency struct {
	Name            string
	RequirementText string
	NameSpan        Span
	VersionSpan     Span
	Section         Section
	SourceKind      SourceKind
}

// Parsed is the result of parsing a manifest: an ordered dependency list
// plus non-fatal diagnostics. A manifest that fails to parse entirely
// still yields a Parsed with an empty Dependencies list and one
// *errs.ParseError, so later edits can recover (spec.md §3).
type Parsed struct {
	Dependencies []Dependency
	Diagnostics  []*errs.ParseError
}

// Parser turns raw manifest text into a Parsed document.
type Parser interface {
	Parse(uri string, text []byte) *Parsed
}
