package lockfile

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/version"
)

type PyPIProvider struct{}

// LockPath prefers uv.lock over poetry.lock when both are present,
// matching uv's precedence over Poetry in a migrated project; callers that
// need the other should stat it directly.
func (PyPIProvider) LockPath(manifestPath string) string {
	if filepath.Base(manifestPath) != "pyproject.toml" {
		return ""
	}
	dir := filepath.Dir(manifestPath)
	uvLock := filepath.Join(dir, "uv.lock")
	if _, err := os.Stat(uvLock); err == nil {
		return uvLock
	}
	return filepath.Join(dir, "poetry.lock")
}

// poetry.lock and uv.lock share the same [[package]] TOML shape.
type pythonLockFile struct {
	Package []struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

func (PyPIProvider) Parse(content []byte) (*Resolved, error) {
	var doc pythonLockFile
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, &errs.LockParseError{Path: "poetry.lock", Err: err}
	}
	r := newResolved(version.PyPI)
	for _, pkg := range doc.Package {
		r.add(pkg.Name, pkg.Version)
	}
	return r, nil
}
