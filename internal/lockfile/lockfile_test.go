package lockfile

import "testing"

func TestCargoLockHighestVersionWins(t *testing.T) {
	content := []byte(`
[[package]]
name = "rack"
version = "2.2.9"

[[package]]
name = "rack"
version = "3.0.11"
`)
	r, err := CargoProvider{}.Parse(content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := r.Resolve("rack"); got != "3.0.11" {
		t.Errorf("Resolve(rack) = %q, want 3.0.11", got)
	}
}

func TestGoSumLastOccurrenceWins(t *testing.T) {
	content := []byte(`github.com/pkg/errors v0.8.0 h1:aaaa=
github.com/pkg/errors v0.8.0/go.mod h1:bbbb=
github.com/pkg/errors v0.9.1 h1:cccc=
github.com/pkg/errors v0.9.1/go.mod h1:dddd=
`)
	r, err := GoProvider{}.Parse(content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := r.Resolve("github.com/pkg/errors"); got != "v0.9.1" {
		t.Errorf("Resolve = %q, want v0.9.1", got)
	}
}

func TestBundlerLockPlatformGatedEntryRegistersName(t *testing.T) {
	content := []byte(`GEM
  remote: https://rubygems.org/
  specs:
    rack (3.0.11)
    tzinfo-data (1.2023.3)
      tzinfo

PLATFORMS
  x64-mingw32

DEPENDENCIES
  rack
  tzinfo-data
`)
	r, err := BundlerProvider{}.Parse(content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !r.Has("tzinfo") {
		t.Error("expected transitive dependency name tzinfo to be registered")
	}
	if got := r.Resolve("rack"); got != "3.0.11" {
		t.Errorf("Resolve(rack) = %q, want 3.0.11", got)
	}
}

func TestNPMLockPackagesByPath(t *testing.T) {
	content := []byte(`{
  "packages": {
    "": {"name": "root"},
    "node_modules/lodash": {"version": "4.17.21"}
  }
}`)
	r, err := NPMProvider{}.Parse(content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := r.Resolve("lodash"); got != "4.17.21" {
		t.Errorf("Resolve(lodash) = %q, want 4.17.21", got)
	}
}

func TestCargoLockPath(t *testing.T) {
	if got := (CargoProvider{}).LockPath("/proj/Cargo.toml"); got != "/proj/Cargo.lock" {
		t.Errorf("LockPath = %q", got)
	}
	if got := (CargoProvider{}).LockPath("/proj/package.json"); got != "" {
		t.Errorf("LockPath for non-matching manifest = %q, want empty", got)
	}
}
