package lockfile

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/version"
)

type GoProvider struct{}

func (GoProvider) LockPath(manifestPath string) string {
	if filepath.Base(manifestPath) != "go.mod" {
		return ""
	}
	return filepath.Join(filepath.Dir(manifestPath), "go.sum")
}

// Parse reads go.sum's flat "module version hash" lines. A module appears
// twice (once for the module zip, once for its go.mod), both with the
// same version, so "last occurrence wins" per spec.md §4.4 reduces to a
// plain map overwrite — no extra dedup logic needed.
func (GoProvider) Parse(content []byte) (*Resolved, error) {
	r := newResolved(version.Go)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name, ver := fields[0], fields[1]
		ver = strings.TrimSuffix(ver, "/go.mod")
		r.versions[name] = []string{ver}
	}
	if err := scanner.Err(); err != nil {
		return nil, &errs.LockParseError{Path: "go.sum", Err: err}
	}
	return r, nil
}
