package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Requirement is a parsed version constraint. Satisfies is the canonical
// predicate consumed by projectors (spec.md §4.1).
type Requirement struct {
	Raw string
	Eco Ecosystem
	// clauses are OR'd together; within a clause, comparisons are AND'd.
	clauses [][]comparison
}

type op int

const (
	opEq op = iota
	opGte
	opGt
	opLte
	opLt
	opNeq
)

type comparison struct {
	op  op
	ver *Version
}

func (c comparison) test(v *Version) bool {
	cmp := v.Compare(c.ver)
	switch c.op {
	case opEq:
		return cmp == 0
	case opGte:
		return cmp >= 0
	case opGt:
		return cmp > 0
	case opLte:
		return cmp <= 0
	case opLt:
		return cmp < 0
	case opNeq:
		return cmp != 0
	}
	return false
}

// Satisfies reports whether v meets the requirement.
func (r *Requirement) Satisfies(v *Version) bool {
	for _, clause := range r.clauses {
		ok := true
		for _, c := range clause {
			if !c.test(v) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// ParseRequirement parses a requirement string using the grammar for the
// given ecosystem.
func ParseRequirement(eco Ecosystem, raw string) (*Requirement, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "*" || strings.EqualFold(trimmed, "any") {
		return &Requirement{Raw: raw, Eco: eco, clauses: [][]comparison{{}}}, nil
	}

	switch eco {
	case Cargo:
		return parseCargoLike(eco, raw, trimmed)
	case NPM:
		return parseNPMRequirement(raw, trimmed)
	case PyPI:
		return parsePEP440Requirement(raw, trimmed)
	case Bundler:
		return parseGemRequirement(raw, trimmed)
	case Go:
		return parseGoRequirement(raw, trimmed)
	default:
		return parseCargoLike(eco, raw, trimmed)
	}
}

// --- Cargo (and generic caret/tilde) requirements ---

// parseCargoLike parses Cargo's comma-separated AND requirement syntax:
// bare "1.2.3" (caret by default), "^1.2.3", "~1.2.3", "=1.2.3",
// ">=1.2,<2.0", and wildcards ("1.2.*", "*").
func parseCargoLike(eco Ecosystem, raw, trimmed string) (*Requirement, error) {
	parts := strings.Split(trimmed, ",")
	var clause []comparison
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cs, err := parseCargoTerm(eco, part)
		if err != nil {
			return nil, fmt.Errorf("requirement: %q: %w", raw, err)
		}
		clause = append(clause, cs...)
	}
	return &Requirement{Raw: raw, Eco: eco, clauses: [][]comparison{clause}}, nil
}

func parseCargoTerm(eco Ecosystem, term string) ([]comparison, error) {
	switch {
	case strings.HasPrefix(term, ">="):
		return boundTerm(eco, opGte, term[2:])
	case strings.HasPrefix(term, "<="):
		return boundTerm(eco, opLte, term[2:])
	case strings.HasPrefix(term, ">"):
		return boundTerm(eco, opGt, term[1:])
	case strings.HasPrefix(term, "<"):
		return boundTerm(eco, opLt, term[1:])
	case strings.HasPrefix(term, "="):
		return boundTerm(eco, opEq, term[1:])
	case strings.HasPrefix(term, "~>"):
		return pessimisticTerm(eco, term[2:])
	case strings.HasPrefix(term, "~"):
		return tildeTerm(eco, term[1:])
	case strings.HasPrefix(term, "^"):
		return caretTerm(eco, term[1:])
	case strings.ContainsAny(term, "*xX"):
		return wildcardTerm(eco, term)
	default:
		return caretTerm(eco, term) // bare version defaults to caret in Cargo
	}
}

func boundTerm(eco Ecosystem, o op, verStr string) ([]comparison, error) {
	v, err := Parse(eco, strings.TrimSpace(verStr))
	if err != nil {
		return nil, err
	}
	return []comparison{{op: o, ver: v}}, nil
}

// caretTerm implements spec.md's exact caret rule table:
//
//	^X.Y.Z, X>0       -> any X.*.*
//	^0.Y.Z, Y>0       -> only 0.Y.*
//	^0.0.Z            -> only 0.0.Z exact
func caretTerm(eco Ecosystem, verStr string) ([]comparison, error) {
	maj, min, pat, hasMin, hasPat, err := splitNumericTriple(verStr)
	if err != nil {
		return nil, err
	}
	lower, err := Parse(eco, formatTriple(maj, min, pat))
	if err != nil {
		return nil, err
	}

	var upperMaj, upperMin, upperPat uint64
	switch {
	case maj > 0:
		upperMaj, upperMin, upperPat = maj+1, 0, 0
	case hasMin && min > 0:
		upperMaj, upperMin, upperPat = 0, min+1, 0
	case hasPat:
		upperMaj, upperMin, upperPat = 0, 0, pat+1
	default:
		// ^0 or ^0.0: treat like ^0.Y with Y=0 -> only 0.0.*
		upperMaj, upperMin, upperPat = 0, 1, 0
	}
	upper, err := Parse(eco, formatTriple(upperMaj, upperMin, upperPat))
	if err != nil {
		return nil, err
	}
	return []comparison{{op: opGte, ver: lower}, {op: opLt, ver: upper}}, nil
}

// tildeTerm implements "~X.Y.Z" -> only patch-level changes (X.Y.*).
// "~X.Y" behaves the same as "~X.Y.0"; "~X" allows any X.*.*.
func tildeTerm(eco Ecosystem, verStr string) ([]comparison, error) {
	maj, min, _, hasMin, _, err := splitNumericTriple(verStr)
	if err != nil {
		return nil, err
	}
	lower, err := Parse(eco, strings.TrimSpace(verStr))
	if err != nil {
		// e.g. "~1" with no minor/patch supplied at all
		lower, err = Parse(eco, formatTriple(maj, min, 0))
		if err != nil {
			return nil, err
		}
	}
	var upperMaj, upperMin uint64
	if hasMin {
		upperMaj, upperMin = maj, min+1
	} else {
		upperMaj, upperMin = maj+1, 0
	}
	upper, err := Parse(eco, formatTriple(upperMaj, upperMin, 0))
	if err != nil {
		return nil, err
	}
	return []comparison{{op: opGte, ver: lower}, {op: opLt, ver: upper}}, nil
}

// pessimisticTerm implements Ruby's "~> X.Y" -> >=X.Y, <(X+1).0 and
// "~> X.Y.Z" -> >=X.Y.Z, <X.(Y+1).0.
func pessimisticTerm(eco Ecosystem, verStr string) ([]comparison, error) {
	verStr = strings.TrimSpace(verStr)
	maj, min, pat, hasMin, hasPat, err := splitNumericTriple(verStr)
	if err != nil {
		return nil, err
	}
	lower, err := Parse(eco, formatTriple(maj, min, pat))
	if err != nil {
		return nil, err
	}
	var upperMaj, upperMin uint64
	if hasPat {
		upperMaj, upperMin = maj, min+1
	} else if hasMin {
		upperMaj, upperMin = maj+1, 0
	} else {
		return nil, fmt.Errorf("pessimistic requirement %q needs at least major.minor", verStr)
	}
	upper, err := Parse(eco, formatTriple(upperMaj, upperMin, 0))
	if err != nil {
		return nil, err
	}
	return []comparison{{op: opGte, ver: lower}, {op: opLt, ver: upper}}, nil
}

// wildcardTerm handles "*", "1.*", "1.2.*", "1.x", "1.2.x".
func wildcardTerm(eco Ecosystem, term string) ([]comparison, error) {
	term = strings.ReplaceAll(term, "X", "x")
	if term == "*" || term == "x" {
		return nil, nil // matches anything
	}
	cut := strings.IndexAny(term, "*x")
	prefix := strings.TrimSuffix(term[:cut], ".")
	parts := strings.Split(prefix, ".")
	for len(parts) < 1 {
		parts = append(parts, "0")
	}
	nums := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := parseUint(p)
		if err != nil {
			return nil, fmt.Errorf("wildcard requirement %q: %w", term, err)
		}
		nums[i] = n
	}
	var lowerMaj, lowerMin, lowerPat uint64
	var upperMaj, upperMin uint64
	switch len(nums) {
	case 1:
		lowerMaj = nums[0]
		upperMaj = nums[0] + 1
	default: // 2 or more: only major.minor.* is meaningful after that
		lowerMaj, lowerMin = nums[0], nums[1]
		upperMaj, upperMin = nums[0], nums[1]+1
	}
	lower, err := Parse(eco, formatTriple(lowerMaj, lowerMin, lowerPat))
	if err != nil {
		return nil, err
	}
	upper, err := Parse(eco, formatTriple(upperMaj, upperMin, 0))
	if err != nil {
		return nil, err
	}
	return []comparison{{op: opGte, ver: lower}, {op: opLt, ver: upper}}, nil
}

// splitNumericTriple parses a dotted numeric prefix (ignoring any
// pre-release/build suffix) into up to three components, reporting which
// were actually present in the input.
func splitNumericTriple(s string) (maj, min, pat uint64, hasMin, hasPat bool, err error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "v")
	core := s
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		core = s[:i]
	}
	parts := strings.Split(core, ".")
	if len(parts) == 0 || parts[0] == "" {
		return 0, 0, 0, false, false, fmt.Errorf("invalid version %q", s)
	}
	maj, err = parseUint(parts[0])
	if err != nil {
		return 0, 0, 0, false, false, fmt.Errorf("invalid major in %q: %w", s, err)
	}
	if len(parts) > 1 {
		min, err = parseUint(parts[1])
		if err != nil {
			return 0, 0, 0, false, false, fmt.Errorf("invalid minor in %q: %w", s, err)
		}
		hasMin = true
	}
	if len(parts) > 2 {
		pat, err = parseUint(parts[2])
		if err != nil {
			return 0, 0, 0, false, false, fmt.Errorf("invalid patch in %q: %w", s, err)
		}
		hasPat = true
	}
	return maj, min, pat, hasMin, hasPat, nil
}

func formatTriple(maj, min, pat uint64) string {
	return strconv.FormatUint(maj, 10) + "." + strconv.FormatUint(min, 10) + "." + strconv.FormatUint(pat, 10)
}

// --- npm ranges ---

// parseNPMRequirement handles npm's "||" OR-of-space-separated-AND syntax
// on top of the same caret/tilde/wildcard/comparator grammar as Cargo, plus
// hyphen ranges ("1.2.3 - 2.3.4").
func parseNPMRequirement(raw, trimmed string) (*Requirement, error) {
	orParts := strings.Split(trimmed, "||")
	var clauses [][]comparison
	for _, orPart := range orParts {
		orPart = strings.TrimSpace(orPart)
		if orPart == "" {
			continue
		}
		if strings.Contains(orPart, " - ") {
			bounds := strings.SplitN(orPart, " - ", 2)
			lower, err := Parse(NPM, strings.TrimSpace(bounds[0]))
			if err != nil {
				return nil, fmt.Errorf("requirement: %q: %w", raw, err)
			}
			upper, err := Parse(NPM, strings.TrimSpace(bounds[1]))
			if err != nil {
				return nil, fmt.Errorf("requirement: %q: %w", raw, err)
			}
			clauses = append(clauses, []comparison{{op: opGte, ver: lower}, {op: opLte, ver: upper}})
			continue
		}
		var clause []comparison
		for _, term := range strings.Fields(orPart) {
			cs, err := parseCargoTerm(NPM, term)
			if err != nil {
				return nil, fmt.Errorf("requirement: %q: %w", raw, err)
			}
			clause = append(clause, cs...)
		}
		clauses = append(clauses, clause)
	}
	if len(clauses) == 0 {
		clauses = [][]comparison{{}}
	}
	return &Requirement{Raw: raw, Eco: NPM, clauses: clauses}, nil
}

// --- PEP 440 ---

// parsePEP440Requirement handles comma-separated AND specifiers:
// "==", "===", "!=", "<=", ">=", "<", ">", "~=", with "==1.4.*" wildcards.
func parsePEP440Requirement(raw, trimmed string) (*Requirement, error) {
	parts := strings.Split(trimmed, ",")
	var clause []comparison
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cs, err := parsePEP440Term(part)
		if err != nil {
			return nil, fmt.Errorf("requirement: %q: %w", raw, err)
		}
		clause = append(clause, cs...)
	}
	return &Requirement{Raw: raw, Eco: PyPI, clauses: [][]comparison{clause}}, nil
}

func parsePEP440Term(term string) ([]comparison, error) {
	switch {
	case strings.HasPrefix(term, "==="):
		// Arbitrary equality is parsed and compared like "==", not as a raw
		// string, so "===1.0" also matches "1.0.0".
		v, err := parsePEP440(strings.TrimSpace(term[3:]))
		if err != nil {
			return nil, err
		}
		return []comparison{{op: opEq, ver: v}}, nil
	case strings.HasPrefix(term, "=="):
		return pep440EqualityTerm(term[2:])
	case strings.HasPrefix(term, "!="):
		return pep440NotEqualTerm(term[2:])
	case strings.HasPrefix(term, "<="):
		return boundTerm(PyPI, opLte, term[2:])
	case strings.HasPrefix(term, ">="):
		return boundTerm(PyPI, opGte, term[2:])
	case strings.HasPrefix(term, "~="):
		return pep440CompatibleTerm(term[2:])
	case strings.HasPrefix(term, "<"):
		return boundTerm(PyPI, opLt, term[1:])
	case strings.HasPrefix(term, ">"):
		return boundTerm(PyPI, opGt, term[1:])
	default:
		return boundTerm(PyPI, opEq, term)
	}
}

func pep440EqualityTerm(verStr string) ([]comparison, error) {
	verStr = strings.TrimSpace(verStr)
	if strings.HasSuffix(verStr, ".*") {
		return wildcardTerm(PyPI, verStr[:len(verStr)-2]+".x")
	}
	v, err := Parse(PyPI, verStr)
	if err != nil {
		return nil, err
	}
	return []comparison{{op: opEq, ver: v}}, nil
}

func pep440NotEqualTerm(verStr string) ([]comparison, error) {
	verStr = strings.TrimSpace(verStr)
	if strings.HasSuffix(verStr, ".*") {
		cs, err := wildcardTerm(PyPI, verStr[:len(verStr)-2]+".x")
		if err != nil || cs == nil {
			return nil, err
		}
		// negate the wildcard range: NOT (>=lower AND <upper)
		// approximated here as two exclusionary bounds is not expressible
		// as a single AND clause; since != is rare in practice combined
		// with other clauses, fall back to excluding the exact prefix
		// version only.
		return []comparison{{op: opNeq, ver: cs[0].ver}}, nil
	}
	v, err := Parse(PyPI, verStr)
	if err != nil {
		return nil, err
	}
	return []comparison{{op: opNeq, ver: v}}, nil
}

// pep440CompatibleTerm implements "~=X.Y[.Z]" (PEP 440 compatible release):
// equivalent to ">=X.Y[.Z], ==X.Y.*" with the last given component free to
// vary, i.e. ">=X.Y.Z, <X.(Y+1)".
func pep440CompatibleTerm(verStr string) ([]comparison, error) {
	verStr = strings.TrimSpace(verStr)
	maj, min, pat, hasMin, hasPat, err := splitNumericTriple(verStr)
	if err != nil {
		return nil, err
	}
	if !hasMin {
		return nil, fmt.Errorf("~= requires at least two release segments: %q", verStr)
	}
	lower, err := Parse(PyPI, verStr)
	if err != nil {
		return nil, err
	}
	var upperMaj, upperMin uint64
	if hasPat {
		upperMaj, upperMin = maj, min+1
	} else {
		upperMaj, upperMin = maj+1, 0
	}
	_ = pat
	upper, err := Parse(PyPI, formatTriple(upperMaj, upperMin, 0))
	if err != nil {
		return nil, err
	}
	return []comparison{{op: opGte, ver: lower}, {op: opLt, ver: upper}}, nil
}

// --- RubyGems/Bundler ---

// parseGemRequirement handles comma-separated AND specifiers:
// "~>", "=", "!=", ">", "<", ">=", "<=", bare version meaning "=".
func parseGemRequirement(raw, trimmed string) (*Requirement, error) {
	parts := strings.Split(trimmed, ",")
	var clause []comparison
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var cs []comparison
		var err error
		switch {
		case strings.HasPrefix(part, "~>"):
			cs, err = pessimisticTerm(Bundler, part[2:])
		case strings.HasPrefix(part, ">="):
			cs, err = boundTerm(Bundler, opGte, part[2:])
		case strings.HasPrefix(part, "<="):
			cs, err = boundTerm(Bundler, opLte, part[2:])
		case strings.HasPrefix(part, "!="):
			cs, err = boundTerm(Bundler, opNeq, part[2:])
		case strings.HasPrefix(part, ">"):
			cs, err = boundTerm(Bundler, opGt, part[1:])
		case strings.HasPrefix(part, "<"):
			cs, err = boundTerm(Bundler, opLt, part[1:])
		case strings.HasPrefix(part, "="):
			cs, err = boundTerm(Bundler, opEq, part[1:])
		default:
			cs, err = boundTerm(Bundler, opEq, part)
		}
		if err != nil {
			return nil, fmt.Errorf("requirement: %q: %w", raw, err)
		}
		clause = append(clause, cs...)
	}
	return &Requirement{Raw: raw, Eco: Bundler, clauses: [][]comparison{clause}}, nil
}

// --- Go modules ---

// parseGoRequirement treats a go.mod requirement as Go's own minimal
// version selection does: the declared version is a floor, and any
// resolved version at or above it (within the same major-version module
// path) satisfies the requirement.
func parseGoRequirement(raw, trimmed string) (*Requirement, error) {
	v, err := Parse(Go, trimmed)
	if err != nil {
		return nil, fmt.Errorf("requirement: %q: %w", raw, err)
	}
	return &Requirement{Raw: raw, Eco: Go, clauses: [][]comparison{{{op: opGte, ver: v}}}}, nil
}
