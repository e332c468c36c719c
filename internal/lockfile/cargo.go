package lockfile

import (
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/deps-lsp/deps-lsp/internal/errs"
	"github.com/deps-lsp/deps-lsp/internal/version"
)

type CargoProvider struct{}

func (CargoProvider) LockPath(manifestPath string) string {
	if filepath.Base(manifestPath) != "Cargo.toml" {
		return ""
	}
	return filepath.Join(filepath.Dir(manifestPath), "Cargo.lock")
}

type cargoLockFile struct {
	Package []struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

func (CargoProvider) Parse(content []byte) (*Resolved, error) {
	var doc cargoLockFile
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, &errs.LockParseError{Path: "Cargo.lock", Err: err}
	}
	r := newResolved(version.Cargo)
	for _, pkg := range doc.Package {
		r.add(pkg.Name, pkg.Version)
	}
	return r, nil
}
