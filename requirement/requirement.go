// Package requirement implements parsing and evaluation of package
// requirement strings: a project name, optional capability extras, an
// optional version specifier and an optional environment marker, e.g.
//
//	libA[tls,cli]>=1.2,<2.0; python_version >= "3.8"
//
// Marker expressions are evaluated against an Environment of target facts
// plus the set of capability extras active for the requesting
// distribution.
package requirement

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/wheelhouse-dev/wheelhouse/pyver"
)

// Requirement is a parsed requirement string. Immutable once parsed.
type Requirement struct {
	// Name is the canonicalized project name.
	Name string

	// RawName is the project name as written.
	RawName string

	// Extras lists the requested capability extras, canonicalized and
	// sorted. Empty for a plain requirement.
	Extras []string

	// Specifier is the version constraint; the zero Specifier matches
	// every version.
	Specifier pyver.Specifier

	// Marker is the environment marker, nil when unconditional.
	Marker *Marker

	raw string
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)

// canonicalRuns collapses runs of name separator characters.
var canonicalRuns = regexp.MustCompile(`[-_.]+`)

// CanonicalName normalizes a project name: lowercase with runs of
// "-", "_" and "." collapsed to a single "-". Two names that canonicalize
// equally identify the same project.
func CanonicalName(name string) string {
	return strings.ToLower(canonicalRuns.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// Parse parses a requirement string.
func Parse(s string) (Requirement, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Requirement{}, fmt.Errorf("empty requirement")
	}

	spec := raw
	var markerText string
	if i := strings.Index(raw, ";"); i >= 0 {
		spec = strings.TrimSpace(raw[:i])
		markerText = strings.TrimSpace(raw[i+1:])
	}

	name := namePattern.FindString(spec)
	if name == "" {
		return Requirement{}, fmt.Errorf("invalid requirement %q: missing project name", s)
	}
	rest := strings.TrimSpace(spec[len(name):])

	req := Requirement{
		Name:    CanonicalName(name),
		RawName: name,
		raw:     raw,
	}

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return Requirement{}, fmt.Errorf("invalid requirement %q: unterminated extras", s)
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			req.Extras = append(req.Extras, CanonicalName(extra))
		}
		sort.Strings(req.Extras)
		req.Extras = dedupeSorted(req.Extras)
		rest = strings.TrimSpace(rest[end+1:])
	}

	if rest != "" {
		specifier, err := pyver.ParseSpecifier(rest)
		if err != nil {
			return Requirement{}, fmt.Errorf("invalid requirement %q: %w", s, err)
		}
		req.Specifier = specifier
	}

	if markerText != "" {
		marker, err := ParseMarker(markerText)
		if err != nil {
			return Requirement{}, fmt.Errorf("invalid requirement %q: %w", s, err)
		}
		req.Marker = marker
	}

	return req, nil
}

// MustParse parses a requirement or panics. Use only for constants/tests.
func MustParse(s string) Requirement {
	req, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return req
}

// ParseAll parses a list of requirement strings, preserving order.
func ParseAll(specs []string) ([]Requirement, error) {
	reqs := make([]Requirement, 0, len(specs))
	for _, spec := range specs {
		req, err := Parse(spec)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// String returns the requirement as originally written.
func (r Requirement) String() string {
	return r.raw
}

// Matches reports whether a distribution version satisfies the
// requirement's version constraint.
func (r Requirement) Matches(v pyver.Version) bool {
	return r.Specifier.Match(v)
}

// WithoutMarker returns a copy of the requirement with the marker removed,
// used when a substitute requirement is re-evaluated in a new context.
func (r Requirement) WithoutMarker() Requirement {
	r.Marker = nil
	return r
}

func dedupeSorted(xs []string) []string {
	out := xs[:0]
	for i, x := range xs {
		if i == 0 || xs[i-1] != x {
			out = append(out, x)
		}
	}
	return out
}
