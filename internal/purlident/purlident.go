// Package purlident attaches canonical pkg: identifiers (Package URLs) to
// hover text (diagnostics carry none) for cross-tool correlation, reusing the
// teacher's git-pkgs/purl dependency instead of hand-rolling the pkg:
// grammar (SPEC_FULL.md DOMAIN STACK).
package purlident

import (
	"strings"

	"github.com/git-pkgs/purl"
)

// ecosystemType maps this server's ecosystem names to the purl type
// segment (https://github.com/package-url/purl-spec#known-purl-types).
var ecosystemType = map[string]string{
	"cargo":   "cargo",
	"npm":     "npm",
	"pypi":    "pypi",
	"golang":  "golang",
	"gem":     "gem",
	"bundler": "gem",
}

// New builds a pkg: identifier for name at version (version may be empty).
func New(ecosystem, name, version string) (string, error) {
	typ, ok := ecosystemType[ecosystem]
	if !ok {
		typ = ecosystem
	}

	namespace, localName := splitNamespace(typ, name)

	p := purl.PURL{
		Type:      typ,
		Namespace: namespace,
		Name:      localName,
		Version:   version,
	}
	return p.String(), nil
}

// splitNamespace separates an npm scoped package ("@scope/name") into its
// purl namespace and name components; other ecosystems have no namespace
// segment in this server's usage.
func splitNamespace(typ, name string) (namespace, localName string) {
	if typ != "npm" || !strings.HasPrefix(name, "@") {
		return "", name
	}
	idx := strings.Index(name, "/")
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}
