package golang

import "testing"

const sampleGoMod = `module example.com/demo

go 1.22

require (
	github.com/spf13/cobra v1.8.0
	golang.org/x/mod v0.15.0 // indirect
)
`

func TestParseFindsRequireEntries(t *testing.T) {
	parsed := Parser{}.Parse("file:///go.mod", []byte(sampleGoMod))
	if len(parsed.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", parsed.Diagnostics)
	}
	if len(parsed.Dependencies) != 2 {
		t.Fatalf("len(Dependencies) = %d, want 2", len(parsed.Dependencies))
	}

	byName := map[string]string{}
	bySection := map[string]string{}
	for _, d := range parsed.Dependencies {
		byName[d.Name] = d.RequirementText
		bySection[d.Name] = string(d.Section)
	}
	if byName["github.com/spf13/cobra"] != "v1.8.0" {
		t.Errorf("cobra requirement = %q", byName["github.com/spf13/cobra"])
	}
	if bySection["github.com/spf13/cobra"] != "runtime" {
		t.Errorf("cobra section = %q, want runtime", bySection["github.com/spf13/cobra"])
	}
	if bySection["golang.org/x/mod"] != "optional<indirect>" {
		t.Errorf("x/mod section = %q, want optional<indirect>", bySection["golang.org/x/mod"])
	}
}

func TestSpansPointAtModulePathAndVersion(t *testing.T) {
	parsed := Parser{}.Parse("file:///go.mod", []byte(sampleGoMod))
	for _, d := range parsed.Dependencies {
		if d.Name != "github.com/spf13/cobra" {
			continue
		}
		got := sampleGoMod[d.NameSpan.Start:d.NameSpan.End]
		if got != "github.com/spf13/cobra" {
			t.Errorf("NameSpan covers %q", got)
		}
		got = sampleGoMod[d.VersionSpan.Start:d.VersionSpan.End]
		if got != "v1.8.0" {
			t.Errorf("VersionSpan covers %q, want v1.8.0", got)
		}
	}
}

func TestMalformedGoModYieldsParseError(t *testing.T) {
	parsed := Parser{}.Parse("file:///go.mod", []byte("module demo\n\nrequire (\n\tgithub.com/foo/bar v1.0.0\n"))
	if len(parsed.Diagnostics) == 0 {
		t.Fatal("expected a parse diagnostic for an unterminated require block")
	}
}
