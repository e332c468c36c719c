package npm

import "testing"

const samplePackageJSON = `{
  "name": "demo",
  "dependencies": {
    "lodash": "^4.17.0",
    "express": "4.18.2"
  },
  "devDependencies": {
    "jest": "^29.0.0"
  }
}
`

func TestParseFindsDependenciesAcrossSections(t *testing.T) {
	parsed := Parser{}.Parse("file:///package.json", []byte(samplePackageJSON))
	if len(parsed.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", parsed.Diagnostics)
	}
	if len(parsed.Dependencies) != 3 {
		t.Fatalf("len(Dependencies) = %d, want 3", len(parsed.Dependencies))
	}

	byName := map[string]string{}
	for _, d := range parsed.Dependencies {
		byName[d.Name] = d.RequirementText
	}
	if byName["lodash"] != "^4.17.0" {
		t.Errorf("lodash requirement = %q", byName["lodash"])
	}
	if byName["express"] != "4.18.2" {
		t.Errorf("express requirement = %q", byName["express"])
	}
	if byName["jest"] != "^29.0.0" {
		t.Errorf("jest requirement = %q", byName["jest"])
	}
}

func TestSpansPointAtRequirementText(t *testing.T) {
	parsed := Parser{}.Parse("file:///package.json", []byte(samplePackageJSON))
	for _, d := range parsed.Dependencies {
		if d.Name != "lodash" {
			continue
		}
		got := samplePackageJSON[d.VersionSpan.Start:d.VersionSpan.End]
		if got != "^4.17.0" {
			t.Errorf("VersionSpan covers %q, want ^4.17.0", got)
		}
		got = samplePackageJSON[d.NameSpan.Start:d.NameSpan.End]
		if got != "lodash" {
			t.Errorf("NameSpan covers %q, want lodash", got)
		}
	}
}

func TestMalformedJSONYieldsParseError(t *testing.T) {
	parsed := Parser{}.Parse("file:///package.json", []byte(`{"dependencies": `))
	if len(parsed.Diagnostics) == 0 {
		t.Fatal("expected a parse diagnostic for malformed JSON")
	}
	if parsed.Dependencies != nil {
		t.Errorf("expected empty dependency list on parse failure, got %v", parsed.Dependencies)
	}
}

func TestOptionalAndPeerSectionsAreNotRuntime(t *testing.T) {
	text := `{
  "optionalDependencies": {"fsevents": "^2.0.0"},
  "peerDependencies": {"react": "^18.0.0"}
}
`
	parsed := Parser{}.Parse("file:///package.json", []byte(text))
	if len(parsed.Dependencies) != 2 {
		t.Fatalf("len(Dependencies) = %d, want 2", len(parsed.Dependencies))
	}
	for _, d := range parsed.Dependencies {
		if d.Section == "" || d.Section == "runtime" {
			t.Errorf("dependency %s has section %q, want a non-runtime section", d.Name, d.Section)
		}
	}
}
