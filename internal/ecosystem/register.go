package ecosystem

import (
	"github.com/deps-lsp/deps-lsp/internal/lockfile"
	bundlerManifest "github.com/deps-lsp/deps-lsp/internal/manifest/bundler"
	cargoManifest "github.com/deps-lsp/deps-lsp/internal/manifest/cargo"
	golangManifest "github.com/deps-lsp/deps-lsp/internal/manifest/golang"
	npmManifest "github.com/deps-lsp/deps-lsp/internal/manifest/npm"
	pypiManifest "github.com/deps-lsp/deps-lsp/internal/manifest/pypi"
	"github.com/deps-lsp/deps-lsp/internal/registry"
	cargoRegistry "github.com/deps-lsp/deps-lsp/internal/registry/cargo"
	golangRegistry "github.com/deps-lsp/deps-lsp/internal/registry/golang"
	npmRegistry "github.com/deps-lsp/deps-lsp/internal/registry/npm"
	pypiRegistry "github.com/deps-lsp/deps-lsp/internal/registry/pypi"
	rubygemsRegistry "github.com/deps-lsp/deps-lsp/internal/registry/rubygems"
	"github.com/deps-lsp/deps-lsp/internal/version"
)

// RegisterDefaults registers the five ecosystems spec.md §1 names, each
// wired to the shared transport. Call once at server startup.
func RegisterDefaults(transport *registry.Transport) {
	Register(&Ecosystem{
		Name:       "cargo",
		Eco:        version.Cargo,
		Parser:     cargoManifest.Parser{},
		Lockfile:   lockfile.CargoProvider{},
		Registry:   cargoRegistry.New(cargoRegistry.DefaultURL, transport),
		matchesURI: byFilename("Cargo.toml"),
	})
	Register(&Ecosystem{
		Name:       "npm",
		Eco:        version.NPM,
		Parser:     npmManifest.Parser{},
		Lockfile:   lockfile.NPMProvider{},
		Registry:   npmRegistry.New(npmRegistry.DefaultURL, transport),
		matchesURI: byFilename("package.json"),
	})
	Register(&Ecosystem{
		Name:       "pypi",
		Eco:        version.PyPI,
		Parser:     pypiManifest.Parser{},
		Lockfile:   lockfile.PyPIProvider{},
		Registry:   pypiRegistry.New(pypiRegistry.DefaultURL, transport),
		matchesURI: byFilename("pyproject.toml"),
	})
	Register(&Ecosystem{
		Name:       "go",
		Eco:        version.Go,
		Parser:     golangManifest.Parser{},
		Lockfile:   lockfile.GoProvider{},
		Registry:   golangRegistry.New(golangRegistry.DefaultURL, transport),
		matchesURI: byFilename("go.mod"),
	})
	Register(&Ecosystem{
		Name:       "bundler",
		Eco:        version.Bundler,
		Parser:     bundlerManifest.Parser{},
		Lockfile:   lockfile.BundlerProvider{},
		Registry:   rubygemsRegistry.New(rubygemsRegistry.DefaultURL, transport),
		matchesURI: byFilename("Gemfile"),
	})
}
