package pypi

import "testing"

const samplePEP621 = `[project]
name = "demo"
dependencies = [
  "requests>=2.0",
  "click",
]

[project.optional-dependencies]
test = ["pytest>=7.0"]
`

func TestParsePEP621Dependencies(t *testing.T) {
	parsed := Parser{}.Parse("file:///pyproject.toml", []byte(samplePEP621))
	if len(parsed.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", parsed.Diagnostics)
	}
	if len(parsed.Dependencies) != 2 {
		t.Fatalf("len(Dependencies) = %d, want 2", len(parsed.Dependencies))
	}

	byName := map[string]string{}
	for _, d := range parsed.Dependencies {
		byName[d.Name] = d.RequirementText
	}
	if byName["requests"] != ">=2.0" {
		t.Errorf("requests requirement = %q", byName["requests"])
	}
	if byName["click"] != "*" {
		t.Errorf("click (unconstrained) requirement = %q, want *", byName["click"])
	}
}

const samplePoetry = `[tool.poetry.dependencies]
python = "^3.10"
requests = "^2.31.0"
flask = { version = "^3.0", extras = ["async"] }

[tool.poetry.group.dev.dependencies]
pytest = "^8.0"
`

func TestParsePoetryDependencies(t *testing.T) {
	parsed := Parser{}.Parse("file:///pyproject.toml", []byte(samplePoetry))
	if len(parsed.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", parsed.Diagnostics)
	}

	byName := map[string]string{}
	for _, d := range parsed.Dependencies {
		byName[d.Name] = d.RequirementText
	}
	if _, ok := byName["python"]; ok {
		t.Error("python interpreter constraint should not be treated as a dependency")
	}
	if byName["requests"] != "^2.31.0" {
		t.Errorf("requests requirement = %q", byName["requests"])
	}
	if byName["flask"] != "^3.0" {
		t.Errorf("flask (table form) requirement = %q", byName["flask"])
	}
	if byName["pytest"] != "^8.0" {
		t.Errorf("pytest (dev group) requirement = %q", byName["pytest"])
	}
}

func TestMalformedTOMLYieldsParseError(t *testing.T) {
	parsed := Parser{}.Parse("file:///pyproject.toml", []byte("[project\ndependencies = [\n"))
	if len(parsed.Diagnostics) == 0 {
		t.Fatal("expected a parse diagnostic for malformed TOML")
	}
}
