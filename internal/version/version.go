// Package version implements ecosystem-aware version parsing, ordering, and
// requirement-operator evaluation (spec.md §4.1). Ordering is always
// semantic (by parsed tuple), never lexicographic, so "0.14.0" sorts after
// "0.8.0".
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Ecosystem identifies which version grammar and requirement operators to
// apply when parsing a string.
type Ecosystem string

const (
	Cargo    Ecosystem = "cargo"
	NPM      Ecosystem = "npm"
	PyPI     Ecosystem = "pypi"
	Go       Ecosystem = "golang"
	Bundler  Ecosystem = "gem"
)

// Version is a parsed, comparable version. Two Versions compare equal iff
// their normalized semver tuples are equal, regardless of surface spelling
// differences (leading "v", RubyGems dot-separated pre-release segments,
// PEP 440 epoch/post/dev markers).
type Version struct {
	Raw          string
	sv           *semver.Version
	isPrerelease bool
}

// String returns the original, unnormalized version string.
func (v *Version) String() string { return v.Raw }

// IsPrerelease reports whether this version should be excluded from
// "latest stable" consideration.
func (v *Version) IsPrerelease() bool { return v.isPrerelease }

// Compare returns -1, 0, or 1 per semver ordering (numeric ascending,
// prerelease sorts below its corresponding release, identifiers compared
// per semver §11).
func (v *Version) Compare(other *Version) int {
	return v.sv.Compare(other.sv)
}

// LessThan reports whether v sorts strictly before other.
func (v *Version) LessThan(other *Version) bool { return v.Compare(other) < 0 }

// Parse parses raw into a Version using the grammar for the given
// ecosystem. Unparseable strings return an error; callers should treat the
// dependency as unclassifiable rather than crash (spec.md §7 ParseError).
func Parse(eco Ecosystem, raw string) (*Version, error) {
	switch eco {
	case PyPI:
		return parsePEP440(raw)
	case Bundler:
		return parseGem(raw)
	default:
		return parseSemverish(raw)
	}
}

// parseSemverish handles Cargo, npm, and Go module versions, all of which
// are semver or semver-compatible (Go pseudo-versions included) once a
// missing minor/patch component is zero-padded and a leading "v" stripped.
func parseSemverish(raw string) (*Version, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "v")
	if s == "" {
		return nil, fmt.Errorf("version: empty string")
	}
	s = padNumericCore(s)
	sv, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("version: parsing %q: %w", raw, err)
	}
	return &Version{Raw: raw, sv: sv, isPrerelease: sv.Prerelease() != ""}, nil
}

// padNumericCore ensures the dot-delimited numeric core before any
// "-"/"+" suffix has exactly three components, padding missing ones with
// zero (npm permits "1", "1.2"; semver requires "1.0.0", "1.2.0").
func padNumericCore(s string) string {
	core := s
	suffix := ""
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		core = s[:i]
		suffix = s[i:]
	}
	parts := strings.Split(core, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts[:3], ".") + suffix
}

// gemPrereleaseSegment matches a RubyGems version segment that is a pure
// integer; the first segment that does not match marks the start of the
// prerelease portion (e.g. "1.2.3.pre1", "2.0.0.rc.1", "1.0.0.beta").
var gemPrereleaseSegment = regexp.MustCompile(`^\d+$`)

// parseGem handles RubyGems' dot-separated segment format, which has no
// reserved "-" separator the way semver does: every segment is just
// another dot component, and the first non-numeric segment starts the
// prerelease portion.
func parseGem(raw string) (*Version, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("version: empty string")
	}
	segments := strings.Split(s, ".")

	var core []string
	var pre []string
	inPre := false
	for _, seg := range segments {
		if !inPre && !gemPrereleaseSegment.MatchString(seg) {
			inPre = true
		}
		if inPre {
			pre = append(pre, seg)
		} else {
			core = append(core, seg)
		}
	}
	for len(core) < 3 {
		core = append(core, "0")
	}
	normalized := strings.Join(core[:3], ".")
	if len(pre) > 0 {
		normalized += "-" + strings.Join(pre, ".")
	}

	sv, err := semver.NewVersion(normalized)
	if err != nil {
		return nil, fmt.Errorf("version: parsing gem version %q (normalized %q): %w", raw, normalized, err)
	}
	return &Version{Raw: raw, sv: sv, isPrerelease: len(pre) > 0}, nil
}

// pep440Pattern captures the subset of PEP 440 release/pre/post/dev
// segments this server needs to order versions correctly; local version
// labels ("+segment") are dropped since they never affect upstream ordering
// between registry-published releases.
var pep440Pattern = regexp.MustCompile(
	`^\s*(?:(\d+)!)?` + // epoch (ignored for ordering: registries rarely mix epochs for one name)
		`(\d+(?:\.\d+)*)` + // release segments
		`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?(\d*))?` + // pre-release
		`(?:(?:-|[-_.]?post[-_.]?)(\d*))?` + // post-release
		`(?:[-_.]?dev[-_.]?(\d*))?` + // dev-release
		`\s*$`,
)

var pep440PreRank = map[string]int{
	"alpha": 0, "a": 0,
	"beta": 1, "b": 1,
	"c": 2, "rc": 2, "pre": 2, "preview": 2,
}

// parsePEP440 normalizes a PEP 440 specifier into a semver-comparable
// tuple. Dev releases sort before pre-releases, which sort before the
// final release. A post-release gets no prerelease tag and its post number
// is dropped, so it compares equal to its final release (1.0.post1 == 1.0);
// the epoch and release segments past the third are ignored as well.
func parsePEP440(raw string) (*Version, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(s, '+'); i >= 0 {
		s = s[:i] // local version label
	}
	if s == "" || s == "*" {
		return nil, fmt.Errorf("version: empty or wildcard string %q", raw)
	}
	m := pep440Pattern.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("version: %q does not match PEP 440 grammar", raw)
	}
	release, preKind, preNum, postNum, devNum := m[2], m[3], m[4], m[5], m[6]

	relParts := strings.Split(release, ".")
	for len(relParts) < 3 {
		relParts = append(relParts, "0")
	}
	core := strings.Join(relParts[:3], ".")

	isPre := preKind != "" || devNum != ""

	var pre string
	switch {
	case devNum != "":
		n := devNum
		if n == "" {
			n = "0"
		}
		pre = "dev." + n
	case preKind != "":
		rank := pep440PreRank[preKind]
		n := preNum
		if n == "" {
			n = "0"
		}
		pre = fmt.Sprintf("pre%d.%s", rank, n)
	case postNum != "":
		// Semver has no slot for a post-release marker: the post number is
		// dropped and the version keeps no prerelease tag, so it compares
		// equal to the plain final release.
		isPre = false
		pre = ""
	}

	normalized := core
	if pre != "" {
		normalized += "-" + pre
	}

	sv, err := semver.NewVersion(normalized)
	if err != nil {
		return nil, fmt.Errorf("version: parsing PEP440 %q (normalized %q): %w", raw, normalized, err)
	}
	return &Version{Raw: raw, sv: sv, isPrerelease: isPre}, nil
}

// MustParse is Parse but panics on error; used only in tests and static
// fixtures, never on untrusted input from a manifest or registry.
func MustParse(eco Ecosystem, raw string) *Version {
	v, err := Parse(eco, raw)
	if err != nil {
		panic(err)
	}
	return v
}

// FindLatestStable returns the highest version among versions that is
// neither a prerelease nor marked yanked. isYanked receives the raw string
// of each candidate. Returns nil if no valid version exists.
func FindLatestStable(versions []*Version, isYanked func(raw string) bool) *Version {
	var best *Version
	for _, v := range versions {
		if v.IsPrerelease() {
			continue
		}
		if isYanked != nil && isYanked(v.Raw) {
			continue
		}
		if best == nil || v.Compare(best) > 0 {
			best = v
		}
	}
	return best
}

// Sort orders versions ascending by semantic value (stable sort, so equal
// versions keep their input order).
func Sort(versions []*Version) {
	sortStable(versions, func(a, b *Version) bool { return a.LessThan(b) })
}

func sortStable(versions []*Version, less func(a, b *Version) bool) {
	// insertion sort: the lists this server handles are small (a package's
	// published version count, typically under a few hundred) and this
	// keeps the comparator simple and obviously stable.
	for i := 1; i < len(versions); i++ {
		j := i
		for j > 0 && less(versions[j], versions[j-1]) {
			versions[j], versions[j-1] = versions[j-1], versions[j]
			j--
		}
	}
}

// parseUint is a small helper used by requirement parsers below.
func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
