// Package tags models binary-compatibility tags: the interpreter/ABI/
// platform triples encoded in packaged archive filenames, and the ordered
// list of triples an execution target supports.
package tags

import (
	"fmt"
	"strings"
)

// Tag is a single compatibility triple, e.g. {cp311, cp311, manylinux_2_17_x86_64}.
// Components may be compressed tag sets joined by dots ("py2.py3").
type Tag struct {
	Interpreter string
	ABI         string
	Platform    string
}

// String renders the tag in its canonical dash-joined form.
func (t Tag) String() string {
	return t.Interpreter + "-" + t.ABI + "-" + t.Platform
}

// Decompress expands compressed tag sets into their individual triples.
// {py2.py3, none, any} yields {py2, none, any} and {py3, none, any}.
func (t Tag) Decompress() []Tag {
	var out []Tag
	for _, i := range strings.Split(t.Interpreter, ".") {
		for _, a := range strings.Split(t.ABI, ".") {
			for _, p := range strings.Split(t.Platform, ".") {
				out = append(out, Tag{Interpreter: i, ABI: a, Platform: p})
			}
		}
	}
	return out
}

// Intersects reports whether any triple of a matches any triple of b,
// considering compressed tag sets on both sides.
func Intersects(a, b []Tag) bool {
	for _, t1 := range a {
		for _, d1 := range t1.Decompress() {
			for _, t2 := range b {
				for _, d2 := range t2.Decompress() {
					if d1 == d2 {
						return true
					}
				}
			}
		}
	}
	return false
}

// Supported is a target's ordered list of supported tags, most specific
// first. Index 0 is the best possible match.
type Supported []Tag

// BestRank returns the index of the most specific supported tag matching
// any of ts, or ok=false when none match. Lower ranks are better.
func (s Supported) BestRank(ts []Tag) (int, bool) {
	for rank, supported := range s {
		if Intersects([]Tag{supported}, ts) {
			return rank, true
		}
	}
	return 0, false
}

// Contains reports whether s supports any of ts.
func (s Supported) Contains(ts []Tag) bool {
	_, ok := s.BestRank(ts)
	return ok
}

// FormatTags renders a tag list for diagnostics: "cp311-cp311-linux_x86_64, py3-none-any".
func FormatTags(ts []Tag) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ", ")
}

// ParseWheelFilename splits a packaged archive filename into its project
// name, version and compatibility tags. The expected form is
// {name}-{version}(-{build})?-{interpreter}-{abi}-{platform}.whl, with
// runs of illegal characters in the name escaped to underscores.
func ParseWheelFilename(filename string) (name, version string, ts []Tag, err error) {
	stem, ok := strings.CutSuffix(filename, ".whl")
	if !ok {
		return "", "", nil, fmt.Errorf("malformed wheel filename %q: missing .whl suffix", filename)
	}

	parts := strings.Split(stem, "-")
	if len(parts) != 5 && len(parts) != 6 {
		return "", "", nil, fmt.Errorf("malformed wheel filename %q: expected 5 or 6 dash-separated fields, got %d", filename, len(parts))
	}
	for i, part := range parts {
		if part == "" {
			return "", "", nil, fmt.Errorf("malformed wheel filename %q: empty field %d", filename, i+1)
		}
	}

	name = parts[0]
	version = parts[1]
	tag := Tag{
		Interpreter: parts[len(parts)-3],
		ABI:         parts[len(parts)-2],
		Platform:    parts[len(parts)-1],
	}
	return name, version, []Tag{tag}, nil
}

// ParseTag parses a canonical dash-joined tag triple.
func ParseTag(s string) (Tag, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Tag{}, fmt.Errorf("malformed tag %q: expected interpreter-abi-platform", s)
	}
	return Tag{Interpreter: parts[0], ABI: parts[1], Platform: parts[2]}, nil
}
