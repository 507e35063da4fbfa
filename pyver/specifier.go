package pyver

import (
	"fmt"
	"strings"
)

// Clause is a single version constraint, e.g. ">=1.2" or "==1.0.*".
type Clause struct {
	// Op is the comparison operator: ==, !=, <, <=, >, >=, ~= or ===.
	Op string

	// Text is the version operand as written, including any ".*" wildcard.
	Text string

	version  Version
	wildcard bool
}

// Specifier is a comma-separated conjunction of version clauses. The zero
// value matches every version.
type Specifier struct {
	clauses []Clause
	raw     string
}

var clauseOps = []string{"===", "==", "!=", "<=", ">=", "~=", "<", ">"}

// ParseSpecifier parses a specifier string such as ">=1.2,<2.0" or
// "==1.4.*". An empty string yields the match-all specifier.
func ParseSpecifier(s string) (Specifier, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "(")
	trimmed = strings.TrimSuffix(trimmed, ")")
	if strings.TrimSpace(trimmed) == "" {
		return Specifier{raw: ""}, nil
	}

	spec := Specifier{raw: strings.TrimSpace(s)}
	for _, part := range strings.Split(trimmed, ",") {
		clause, err := parseClause(strings.TrimSpace(part))
		if err != nil {
			return Specifier{}, err
		}
		spec.clauses = append(spec.clauses, clause)
	}
	return spec, nil
}

// MustParseSpecifier parses a specifier or panics. Use only for tests.
func MustParseSpecifier(s string) Specifier {
	spec, err := ParseSpecifier(s)
	if err != nil {
		panic(err)
	}
	return spec
}

func parseClause(s string) (Clause, error) {
	var op string
	for _, candidate := range clauseOps {
		if strings.HasPrefix(s, candidate) {
			op = candidate
			break
		}
	}
	if op == "" {
		return Clause{}, fmt.Errorf("invalid version clause %q: missing operator", s)
	}

	text := strings.TrimSpace(s[len(op):])
	if text == "" {
		return Clause{}, fmt.Errorf("invalid version clause %q: missing version", s)
	}

	clause := Clause{Op: op, Text: text}
	if op == "===" {
		// Arbitrary equality compares raw strings, no parse required.
		return clause, nil
	}

	operand := text
	if strings.HasSuffix(operand, ".*") {
		if op != "==" && op != "!=" {
			return Clause{}, fmt.Errorf("invalid version clause %q: wildcard requires == or !=", s)
		}
		clause.wildcard = true
		operand = strings.TrimSuffix(operand, ".*")
	}

	v, err := Parse(operand)
	if err != nil {
		return Clause{}, fmt.Errorf("invalid version clause %q: %w", s, err)
	}
	if op == "~=" && len(v.release) < 2 {
		return Clause{}, fmt.Errorf("invalid version clause %q: compatible release requires at least two release segments", s)
	}
	clause.version = v
	return clause, nil
}

// Match reports whether v satisfies every clause of the specifier.
func (s Specifier) Match(v Version) bool {
	for _, clause := range s.clauses {
		if !clause.match(v) {
			return false
		}
	}
	return true
}

// IsEmpty returns true when the specifier has no clauses.
func (s Specifier) IsEmpty() bool {
	return len(s.clauses) == 0
}

// String returns the specifier as written.
func (s Specifier) String() string {
	return s.raw
}

func (c Clause) match(v Version) bool {
	switch c.Op {
	case "===":
		return strings.TrimSpace(v.raw) == c.Text
	case "==":
		if c.wildcard {
			return prefixMatch(v, c.version)
		}
		return equalVersion(v, c.version)
	case "!=":
		if c.wildcard {
			return !prefixMatch(v, c.version)
		}
		return !equalVersion(v, c.version)
	case "<":
		return v.Compare(c.version) < 0
	case "<=":
		return v.Compare(c.version) <= 0
	case ">":
		return v.Compare(c.version) > 0
	case ">=":
		return v.Compare(c.version) >= 0
	case "~=":
		// "~=2.4.1" means ">=2.4.1, ==2.4.*".
		if v.Compare(c.version) < 0 {
			return false
		}
		prefix := c.version
		prefix.release = prefix.release[:len(prefix.release)-1]
		prefix.preL, prefix.preN, prefix.post, prefix.dev = -1, -1, -1, -1
		prefix.local = ""
		return prefixMatch(v, prefix)
	}
	return false
}

// prefixMatch reports whether v's epoch and leading release segments equal
// those of prefix, implementing "==X.Y.*" semantics.
func prefixMatch(v, prefix Version) bool {
	if v.epoch != prefix.epoch {
		return false
	}
	for i, want := range prefix.release {
		got := 0
		if i < len(v.release) {
			got = v.release[i]
		}
		if got != want {
			return false
		}
	}
	return true
}

// equalVersion implements "==" semantics: a clause without a local segment
// matches any local variant of the same version ("==1.0" matches
// "1.0+cpu"); a clause with one requires an exact local match.
func equalVersion(v, want Version) bool {
	if want.local == "" {
		v.local = ""
	}
	return v.Compare(want) == 0
}

// ExactVersion returns the pinned version when the specifier is a single
// "==" clause with no wildcard, and false otherwise.
func (s Specifier) ExactVersion() (Version, bool) {
	if len(s.clauses) != 1 {
		return Version{}, false
	}
	c := s.clauses[0]
	if c.Op != "==" || c.wildcard {
		return Version{}, false
	}
	return c.version, true
}
