package lockfile

import (
	"bufio"
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/deps-lsp/deps-lsp/internal/version"
)

type BundlerProvider struct{}

func (BundlerProvider) LockPath(manifestPath string) string {
	if filepath.Base(manifestPath) != "Gemfile" {
		return ""
	}
	return filepath.Join(filepath.Dir(manifestPath), "Gemfile.lock")
}

// specLine matches an indented "name (version)" line under a GEM specs:
// block, e.g. "    rack (3.0.11)" or "    tzinfo-data (1.2023.3-x64-mingw32)".
var specLine = regexp.MustCompile(`^\s{4}([A-Za-z0-9_.-]+)\s+\(([^)]+)\)`)

// Parse scans Gemfile.lock's GEM/specs: section. Each "name (version)" spec
// line registers the name at that version, platform-suffixed versions
// included; the version-less dependency names nested under a spec register
// the bare name, so completion/diagnostics never see a false "unknown" —
// spec.md §4.4. The PLATFORMS section is not read.
func (BundlerProvider) Parse(content []byte) (*Resolved, error) {
	r := newResolved(version.Bundler)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	inSpecs := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "GEM" || trimmed == "  specs:" {
			inSpecs = strings.HasSuffix(trimmed, "specs:")
			continue
		}
		if trimmed == "" || (!strings.HasPrefix(line, "  ") ) {
			inSpecs = false
			continue
		}
		if !inSpecs {
			continue
		}
		if m := specLine.FindStringSubmatch(line); m != nil {
			name, ver := m[1], m[2]
			r.add(name, ver)
		} else if strings.HasPrefix(line, "      ") {
			// transitive dependency line under a spec ("      rake") — no
			// version here, but registers the name as platform/dep-gated.
			dep := strings.TrimSpace(line)
			if dep != "" && !r.Has(dep) {
				r.versions[dep] = nil
			}
		}
	}
	return r, nil
}
