package ecosystem

import "testing"

func TestRegisterAndLookupMatchesByFilename(t *testing.T) {
	before := len(registered)

	eco := &Ecosystem{
		Name:       "test-eco",
		matchesURI: byFilename("test-manifest.toml"),
	}
	Register(eco)

	if len(registered) != before+1 {
		t.Fatalf("len(registered) = %d, want %d", len(registered), before+1)
	}

	if got := Lookup("file:///home/user/project/test-manifest.toml"); got != eco {
		t.Errorf("Lookup did not find the registered ecosystem by basename")
	}
	if got := Lookup("file:///home/user/project/other-file.toml"); got != nil {
		t.Errorf("Lookup = %v, want nil for a non-matching filename", got)
	}
}

func TestLookupReturnsFirstMatchInRegistrationOrder(t *testing.T) {
	registered = nil

	first := &Ecosystem{Name: "first", matchesURI: byFilename("dup.toml")}
	second := &Ecosystem{Name: "second", matchesURI: byFilename("dup.toml")}
	Register(first)
	Register(second)

	if got := Lookup("file:///dup.toml"); got != first {
		t.Errorf("Lookup = %v, want the first-registered match", got)
	}
}

func TestAllReturnsRegisteredEcosystems(t *testing.T) {
	registered = nil
	eco := &Ecosystem{Name: "solo", matchesURI: byFilename("solo.toml")}
	Register(eco)

	all := All()
	if len(all) != 1 || all[0] != eco {
		t.Errorf("All() = %v, want [%v]", all, eco)
	}
}

func TestByFilenameMatchesOnlyBasename(t *testing.T) {
	match := byFilename("Cargo.toml")
	if !match("file:///a/b/c/Cargo.toml") {
		t.Error("expected match for basename Cargo.toml")
	}
	if match("file:///a/b/c/Cargo.toml.bak") {
		t.Error("expected no match for a differing filename")
	}
	if !match("Cargo.toml") {
		t.Error("expected match for a bare filename with no scheme")
	}
}
