package purlident

import (
	"strings"
	"testing"
)

func TestNewBuildsPkgIdentifierForKnownEcosystem(t *testing.T) {
	got, err := New("cargo", "serde", "1.0.0")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !strings.HasPrefix(got, "pkg:cargo/serde") {
		t.Errorf("New(cargo, serde, 1.0.0) = %q, want a pkg:cargo/serde... identifier", got)
	}
	if !strings.Contains(got, "1.0.0") {
		t.Errorf("New(cargo, serde, 1.0.0) = %q, want the version embedded", got)
	}
}

func TestNewMapsBundlerToGemType(t *testing.T) {
	got, err := New("bundler", "rack", "3.0.11")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !strings.HasPrefix(got, "pkg:gem/rack") {
		t.Errorf("New(bundler, rack, ...) = %q, want the gem purl type, not bundler", got)
	}
}

func TestNewSplitsNPMScopedNamespace(t *testing.T) {
	got, err := New("npm", "@babel/core", "7.24.0")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !strings.HasPrefix(got, "pkg:npm/") {
		t.Errorf("New(npm, @babel/core, ...) = %q, want a pkg:npm/... identifier", got)
	}
	if !strings.Contains(got, "babel") || !strings.Contains(got, "core") {
		t.Errorf("New(npm, @babel/core, ...) = %q, want both namespace and name present", got)
	}
}

func TestNewWithEmptyVersionStillBuildsIdentifier(t *testing.T) {
	got, err := New("golang", "github.com/spf13/cobra", "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !strings.HasPrefix(got, "pkg:golang/") {
		t.Errorf("New(golang, ..., \"\") = %q, want a pkg:golang/... identifier", got)
	}
}

func TestSplitNamespaceNonNPMIsUnaffected(t *testing.T) {
	ns, name := splitNamespace("cargo", "serde")
	if ns != "" || name != "serde" {
		t.Errorf("splitNamespace(cargo, serde) = (%q, %q), want (\"\", serde)", ns, name)
	}
}

func TestSplitNamespaceUnscopedNPMPackage(t *testing.T) {
	ns, name := splitNamespace("npm", "lodash")
	if ns != "" || name != "lodash" {
		t.Errorf("splitNamespace(npm, lodash) = (%q, %q), want (\"\", lodash)", ns, name)
	}
}
