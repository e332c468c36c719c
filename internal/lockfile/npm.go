package lockfile

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/version"
)

type NPMProvider struct{}

func (NPMProvider) LockPath(manifestPath string) string {
	if filepath.Base(manifestPath) != "package.json" {
		return ""
	}
	return filepath.Join(filepath.Dir(manifestPath), "package-lock.json")
}

// npm lockfileVersion 2/3 keys packages by path ("node_modules/foo"); v1
// keys top-level dependencies by bare name. Both are read so older lock
// files still resolve.
type npmLockFile struct {
	Packages     map[string]struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"packages"`
	Dependencies map[string]struct {
		Version string `json:"version"`
	} `json:"dependencies"`
}

func (NPMProvider) Parse(content []byte) (*Resolved, error) {
	var doc npmLockFile
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, &errs.LockParseError{Path: "package-lock.json", Err: err}
	}
	r := newResolved(version.NPM)
	for path, pkg := range doc.Packages {
		if path == "" {
			continue // the root package entry
		}
		name := pkg.Name
		if name == "" {
			name = packageNameFromPath(path)
		}
		if name != "" && pkg.Version != "" {
			r.add(name, pkg.Version)
		}
	}
	for name, dep := range doc.Dependencies {
		if dep.Version != "" {
			r.add(name, dep.Version)
		}
	}
	return r, nil
}

func packageNameFromPath(path string) string {
	const prefix = "node_modules/"
	idx := strings.LastIndex(path, prefix)
	if idx < 0 {
		return ""
	}
	return path[idx+len(prefix):]
}
