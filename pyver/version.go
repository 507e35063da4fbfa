// Package pyver implements parsing and ordering of distribution versions
// and version specifiers as used by the packaging ecosystem this engine
// resolves for.
//
// The version grammar is deliberately wider than semver: epochs ("1!2.0"),
// arbitrary-length release segments ("1.0.2.1"), pre-releases ("1.0a1",
// "2.0rc3"), post-releases ("1.0.post2") and development releases
// ("1.0.dev3") all participate in a single total order. Pre-release and
// development versions sort before the final release of the same numeric
// sequence; post-releases sort after it.
package pyver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a validated, ordered distribution version.
type Version struct {
	raw     string
	epoch   int
	release []int
	preL    int // pre-release phase rank: 0=a, 1=b, 2=rc; -1 when absent
	preN    int
	post    int // -1 when absent
	dev     int // -1 when absent
	local   string
}

// versionRegex matches the public version grammar plus the normalizations
// commonly found in the wild (v-prefix, alpha/beta spellings, "-N" posts).
// Captures: epoch, release, pre phase, pre number, post keyword, post
// number, legacy post number, dev keyword, dev number, local segment.
// The keyword groups distinguish an absent segment from a bare one
// ("1.0.post" normalizes to post 0).
var versionRegex = regexp.MustCompile(`(?i)^v?(?:(\d+)!)?(\d+(?:\.\d+)*)(?:[._-]?(a|b|c|rc|alpha|beta|pre|preview)[._-]?(\d*))?(?:[._-]?(post|rev|r)[._-]?(\d*)|-(\d+))?(?:[._-]?(dev)[._-]?(\d*))?(?:\+([a-z0-9]+(?:[._-][a-z0-9]+)*))?$`)

// prePhaseRanks normalizes the spelling variants of each pre-release phase
// onto a comparable rank.
var prePhaseRanks = map[string]int{
	"a": 0, "alpha": 0,
	"b": 1, "beta": 1,
	"c": 2, "pre": 2, "preview": 2, "rc": 2,
}

// Parse creates a validated Version from a string.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	matches := versionRegex.FindStringSubmatch(trimmed)
	if matches == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	v := Version{raw: trimmed, preL: -1, preN: -1, post: -1, dev: -1}

	if matches[1] != "" {
		v.epoch, _ = strconv.Atoi(matches[1])
	}
	for _, part := range strings.Split(matches[2], ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: release segment %q", s, part)
		}
		v.release = append(v.release, n)
	}
	if matches[3] != "" {
		v.preL = prePhaseRanks[strings.ToLower(matches[3])]
		v.preN = 0
		if matches[4] != "" {
			v.preN, _ = strconv.Atoi(matches[4])
		}
	}
	switch {
	case matches[5] != "":
		v.post = 0
		if matches[6] != "" {
			v.post, _ = strconv.Atoi(matches[6])
		}
	case matches[7] != "":
		v.post, _ = strconv.Atoi(matches[7])
	}
	if matches[8] != "" {
		v.dev = 0
		if matches[9] != "" {
			v.dev, _ = strconv.Atoi(matches[9])
		}
	}
	v.local = strings.ToLower(matches[10])

	return v, nil
}

// MustParse creates a Version or panics. Use only for constants/tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as originally written.
func (v Version) String() string {
	return v.raw
}

// IsZero returns true for the zero-value Version.
func (v Version) IsZero() bool {
	return v.raw == ""
}

// Epoch returns the version epoch (0 unless explicitly declared).
func (v Version) Epoch() int {
	return v.epoch
}

// Release returns the numeric release segments.
func (v Version) Release() []int {
	out := make([]int, len(v.release))
	copy(out, v.release)
	return out
}

// IsPrerelease returns true for pre-release and development versions.
func (v Version) IsPrerelease() bool {
	return v.preL >= 0 || v.dev >= 0
}

// Local returns the local version segment, empty when absent.
func (v Version) Local() string {
	return v.local
}

// Compare compares two versions.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
// Ordering: epoch, then release segments (shorter releases compare as if
// zero-padded), then dev < pre < final < post within the same release.
// Local segments break remaining ties, absent sorting first.
func (v Version) Compare(other Version) int {
	if v.epoch != other.epoch {
		return intCompare(v.epoch, other.epoch)
	}
	if c := compareRelease(v.release, other.release); c != 0 {
		return c
	}

	// Pre-release key: a dev-only version ("1.0.dev1") sorts before any
	// pre-release of the same release; a version with no pre, post or dev
	// segments sorts after all pre-releases.
	vPreL, vPreN := v.preKey()
	oPreL, oPreN := other.preKey()
	if vPreL != oPreL {
		return intCompare(vPreL, oPreL)
	}
	if vPreN != oPreN {
		return intCompare(vPreN, oPreN)
	}

	if v.post != other.post {
		return intCompare(v.post, other.post)
	}

	// Dev releases sort before the segment they qualify; absent dev is
	// "after every dev number".
	vDev, oDev := v.dev, other.dev
	if vDev < 0 {
		vDev = int(^uint(0) >> 1)
	}
	if oDev < 0 {
		oDev = int(^uint(0) >> 1)
	}
	if vDev != oDev {
		return intCompare(vDev, oDev)
	}

	return compareLocal(v.local, other.local)
}

// Less returns true if v < other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Equal returns true when the two versions occupy the same point in the
// version order. Distinct spellings of the same version compare equal.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

const maxInt = int(^uint(0) >> 1)

func (v Version) preKey() (int, int) {
	if v.preL >= 0 {
		return v.preL, v.preN
	}
	if v.post < 0 && v.dev >= 0 {
		return -1, 0 // dev-only: before every pre-release
	}
	return maxInt, 0 // final or post: after every pre-release
}

func compareRelease(a, b []int) int {
	for i := 0; i < max(len(a), len(b)); i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			return intCompare(av, bv)
		}
	}
	return 0
}

// compareLocal orders local version segments: absent < present, numeric
// segments before alphanumeric ones, both segment-wise.
func compareLocal(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}
	aParts := splitLocal(a)
	bParts := splitLocal(b)
	for i := 0; i < min(len(aParts), len(bParts)); i++ {
		aNum, aIsNum := tryParseInt(aParts[i])
		bNum, bIsNum := tryParseInt(bParts[i])
		switch {
		case aIsNum && bIsNum:
			if aNum != bNum {
				return intCompare(aNum, bNum)
			}
		case aIsNum:
			return 1 // numeric > alphanumeric per local ordering rules
		case bIsNum:
			return -1
		default:
			if c := strings.Compare(aParts[i], bParts[i]); c != 0 {
				return c
			}
		}
	}
	return intCompare(len(aParts), len(bParts))
}

func splitLocal(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
}

func intCompare(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func tryParseInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// Versions is a sortable slice of Version.
type Versions []Version

func (v Versions) Len() int           { return len(v) }
func (v Versions) Swap(i, j int)      { v[i], v[j] = v[j], v[i] }
func (v Versions) Less(i, j int) bool { return v[i].Less(v[j]) }
