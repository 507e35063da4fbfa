package wheelhouse

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/wheelhouse-dev/wheelhouse/pyver"
	"github.com/wheelhouse-dev/wheelhouse/requirement"
	"github.com/wheelhouse-dev/wheelhouse/tags"
)

// Format describes how a distribution is stored on disk.
type Format int

const (
	// FormatWheel is a packaged archive whose filename encodes
	// compatibility tags.
	FormatWheel Format = iota

	// FormatInstalled is an already-expanded directory with no tag-encoded
	// filename. Installed distributions are always usable on any target
	// but rank below every real tagged match.
	FormatInstalled
)

// String returns the format's manifest spelling.
func (f Format) String() string {
	switch f {
	case FormatWheel:
		return "wheel"
	case FormatInstalled:
		return "installed"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat parses a format name as it appears in metadata documents.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wheel", "":
		return FormatWheel, nil
	case "installed", "directory":
		return FormatInstalled, nil
	default:
		return 0, fmt.Errorf("unknown distribution format %q", s)
	}
}

// Distribution is the immutable metadata of one installable unit: its
// identity, declared transitive requirements and packaging format.
// Distributions are created when metadata is loaded and never mutated.
type Distribution struct {
	// Name is the canonicalized project name.
	Name string

	// Version is the distribution version.
	Version pyver.Version

	// Location is the path of the archive or the installed content root.
	// For wheels the base name encodes the compatibility tags.
	Location string

	// Requires lists the distribution's declared transitive requirements.
	Requires []requirement.Requirement

	// RequiresInterpreter constrains the interpreter versions the
	// distribution supports, e.g. ">=3.8". Empty means unconstrained.
	RequiresInterpreter string

	// Format is the on-disk packaging format.
	Format Format
}

// String renders the distribution as "name version (location)".
func (d Distribution) String() string {
	return fmt.Sprintf("%s %s (%s)", d.Name, d.Version, d.Location)
}

// Filename returns the base name of the distribution's location.
func (d Distribution) Filename() string {
	return filepath.Base(d.Location)
}

// identity keys de-duplication of selected distributions: two entries for
// the same project, version and content root are the same distribution.
func (d Distribution) identity() string {
	return d.Name + "@" + d.Version.String() + "@" + d.Location
}

// FingerprintedDistribution pairs a Distribution with its content
// fingerprint. It is the unit of selection output; equality for
// de-duplication follows the distribution identity, the fingerprint rides
// along for cache keys and verification.
type FingerprintedDistribution struct {
	Distribution

	// Fingerprint is a stable hash of the distribution contents.
	Fingerprint digest.Digest
}

// RankedDistribution is a usable candidate with its ordering key.
// Lower rank means a more specific match to the target; version breaks
// ties with newer preferred.
type RankedDistribution struct {
	Dist FingerprintedDistribution

	// Rank is the index of the candidate's best-matching tag in the
	// target's ordered supported tag list, or WorstRank for candidates
	// with no tag-encoded filename.
	Rank int
}

// WorstRank is the synthetic rank assigned to always-compatible
// distributions (installed directories). Any real tagged match beats it.
const WorstRank = math.MaxInt32

// Better reports whether r orders strictly before other: primary key rank
// ascending, secondary key version descending.
func (r RankedDistribution) Better(other RankedDistribution) bool {
	if r.Rank != other.Rank {
		return r.Rank < other.Rank
	}
	return other.Dist.Version.Less(r.Dist.Version)
}

// Satisfies reports whether the candidate's version falls within the
// requirement's version constraint.
func (r RankedDistribution) Satisfies(req requirement.Requirement) bool {
	return req.Matches(r.Dist.Version)
}

// UnrankedReason classifies why a candidate cannot be used on the target.
type UnrankedReason int

const (
	// ReasonMalformedName: the archive filename does not encode a valid
	// tag triple.
	ReasonMalformedName UnrankedReason = iota

	// ReasonTagMismatch: no encoded tag intersects the target's supported
	// tags.
	ReasonTagMismatch

	// ReasonInterpreterMismatch: tags intersect but the declared
	// interpreter-version constraint excludes the target.
	ReasonInterpreterMismatch
)

// UnrankedDistribution is a candidate rejected for the target, kept only
// to enrich failure diagnostics. It never participates in selection.
type UnrankedDistribution struct {
	Dist   FingerprintedDistribution
	Reason UnrankedReason

	// AttemptedTags holds the parsed tags for ReasonTagMismatch.
	AttemptedTags []tags.Tag

	// RequiresInterpreter holds the excluding constraint for
	// ReasonInterpreterMismatch.
	RequiresInterpreter string

	// ParseErr holds the filename parse failure for ReasonMalformedName.
	ParseErr error
}

// Render produces the single diagnostic sentence for this rejection.
func (u UnrankedDistribution) Render() string {
	switch u.Reason {
	case ReasonMalformedName:
		return fmt.Sprintf("%s is not a valid archive name: %v", u.Dist.Filename(), u.ParseErr)
	case ReasonTagMismatch:
		return fmt.Sprintf("%s has no compatible tag (tried: %s)", u.Dist.Filename(), tags.FormatTags(u.AttemptedTags))
	case ReasonInterpreterMismatch:
		return fmt.Sprintf("%s requires interpreter version %s", u.Dist.Filename(), u.RequiresInterpreter)
	default:
		return fmt.Sprintf("%s is not usable on this target", u.Dist.Filename())
	}
}

// ResolutionResult is one resolution pass's outcome: the ordered
// distinct selection plus the pass's non-fatal notices, such as
// requirements dropped by exclude rules and the transitive dependencies
// those drops strand.
type ResolutionResult struct {
	// Distributions is the selection in first-discovery order.
	Distributions []FingerprintedDistribution

	// Warnings lists the pass's non-fatal notices in emission order.
	Warnings []string
}

// RequirementKey identifies one unit of resolution work: a project name
// together with the requested capability extras. Requirements for the
// same project with different extras are distinct keys.
type RequirementKey struct {
	// Project is the canonical project name.
	Project string

	// Extras is the sorted, comma-joined extras set; empty for a plain
	// requirement.
	Extras string
}

func newRequirementKey(req requirement.Requirement) RequirementKey {
	return RequirementKey{
		Project: req.Name,
		Extras:  strings.Join(req.Extras, ","),
	}
}

// String renders the key as "project[extras]" or "project".
func (k RequirementKey) String() string {
	if k.Extras == "" {
		return k.Project
	}
	return k.Project + "[" + k.Extras + "]"
}

// satisfiedKeys returns every key this key's resolution also satisfies:
// the project paired with each subset of the extras set. Resolving
// (P, {a,b}) satisfies (P, {}), (P, {a}), (P, {b}) and (P, {a,b}).
func (k RequirementKey) satisfiedKeys() []RequirementKey {
	if k.Extras == "" {
		return []RequirementKey{k}
	}
	extras := strings.Split(k.Extras, ",")
	subsets := []string{""}
	for _, extra := range extras {
		grown := make([]string, 0, len(subsets)*2)
		for _, subset := range subsets {
			grown = append(grown, subset)
			if subset == "" {
				grown = append(grown, extra)
			} else {
				grown = append(grown, subset+","+extra)
			}
		}
		subsets = grown
	}
	keys := make([]RequirementKey, 0, len(subsets))
	for _, subset := range subsets {
		keys = append(keys, RequirementKey{Project: k.Project, Extras: subset})
	}
	return keys
}

// InheritancePolicy controls how activated distribution roots combine
// with the host process's ambient module search path.
type InheritancePolicy int

const (
	// PolicyExclusive replaces the ambient search path entirely.
	PolicyExclusive InheritancePolicy = iota

	// PolicyPreferFirst places activated roots ahead of ambient entries.
	PolicyPreferFirst

	// PolicyPreferLast places activated roots after ambient entries.
	PolicyPreferLast
)

// String returns the policy's manifest spelling.
func (p InheritancePolicy) String() string {
	switch p {
	case PolicyExclusive:
		return "exclusive"
	case PolicyPreferFirst:
		return "prefer-first"
	case PolicyPreferLast:
		return "prefer-last"
	default:
		return fmt.Sprintf("InheritancePolicy(%d)", int(p))
	}
}

// ParseInheritancePolicy parses a policy name as it appears in manifests.
func ParseInheritancePolicy(s string) (InheritancePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exclusive", "":
		return PolicyExclusive, nil
	case "prefer-first", "prefer_first":
		return PolicyPreferFirst, nil
	case "prefer-last", "prefer_last":
		return PolicyPreferLast, nil
	default:
		return 0, fmt.Errorf("unknown inheritance policy %q", s)
	}
}
