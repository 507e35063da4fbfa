package wheelhouse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/wheelhouse-dev/wheelhouse/requirement"
	"github.com/wheelhouse-dev/wheelhouse/tags"
)

// TagEvaluation is a target's verdict on a distribution's binary
// compatibility, mirroring the fields diagnostics need.
type TagEvaluation struct {
	// Applies is true when the distribution is usable on the target.
	Applies bool

	// BestRank is the index of the best-matching tag in the target's
	// ordered supported list. Valid only when Applies.
	BestRank int

	// Attempted holds the distribution's parsed tags when Applies is
	// false because none of them matched.
	Attempted []tags.Tag

	// RequiresInterpreter is set when Applies is false because the
	// distribution's interpreter constraint excludes the target.
	RequiresInterpreter string
}

// Target answers the two questions resolution asks of an execution
// target: is a distribution binary-compatible with it (and how specific
// is the match), and does a requirement's environment marker hold on it.
//
// Implementations differ in how much they know about the target:
// CompletePlatform carries the full supported-tag list and marker
// environment; AbstractPlatform is built from an abbreviated platform
// string and may be unable to answer some marker variables.
type Target interface {
	// ID is a stable identifier for the target, used in cache keys.
	ID() string

	// EvaluateTags classifies a distribution against the target. The
	// error return is reserved for malformed archive names; all other
	// incompatibilities are reported through the TagEvaluation.
	EvaluateTags(dist Distribution) (TagEvaluation, error)

	// EvaluateMarker evaluates a requirement's environment marker with
	// the given capability extras active. Requirements without markers
	// always apply. A non-nil error means the target cannot answer the
	// marker at all, not that the marker is false.
	EvaluateMarker(req requirement.Requirement, activeExtras []string) (bool, error)
}

// CompletePlatform is a fully-specified target: an ordered supported-tag
// list (most specific first) plus a complete marker environment.
type CompletePlatform struct {
	id                 string
	supported          tags.Supported
	markerValues       map[string]string
	interpreterVersion *semver.Version
}

// NewCompletePlatform builds a target from its ordered supported tags and
// marker environment. The interpreter version used for requires-interpreter
// checks is taken from the python_full_version marker value, falling back
// to python_version.
func NewCompletePlatform(id string, supported []tags.Tag, markerValues map[string]string) (*CompletePlatform, error) {
	if id == "" {
		return nil, fmt.Errorf("complete platform requires an id")
	}
	if len(supported) == 0 {
		return nil, fmt.Errorf("complete platform %q requires at least one supported tag", id)
	}

	p := &CompletePlatform{
		id:           id,
		supported:    append(tags.Supported(nil), supported...),
		markerValues: make(map[string]string, len(markerValues)),
	}
	for k, v := range markerValues {
		p.markerValues[k] = v
	}

	raw := markerValues["python_full_version"]
	if raw == "" {
		raw = markerValues["python_version"]
	}
	if raw != "" {
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("complete platform %q: invalid interpreter version %q: %w", id, raw, err)
		}
		p.interpreterVersion = v
	}
	return p, nil
}

// ID returns the target identifier.
func (p *CompletePlatform) ID() string {
	return p.id
}

// Supported returns the target's ordered supported tags.
func (p *CompletePlatform) Supported() tags.Supported {
	return p.supported
}

// EvaluateTags implements Target.
func (p *CompletePlatform) EvaluateTags(dist Distribution) (TagEvaluation, error) {
	return evaluateTags(dist, p.supported, p.interpreterVersion)
}

// EvaluateMarker implements Target.
func (p *CompletePlatform) EvaluateMarker(req requirement.Requirement, activeExtras []string) (bool, error) {
	return evaluateMarker(req, activeExtras, p.markerValues)
}

// AbstractPlatform is a target known only by an abbreviated platform
// string of the form "interpreter-abi-platform", e.g.
// "cp311-cp311-manylinux_2_17_x86_64". It can rank candidates but only
// answers the marker variables derivable from the tag; anything else is
// an evaluation error the caller must treat as a configuration problem.
type AbstractPlatform struct {
	id                 string
	supported          tags.Supported
	markerValues       map[string]string
	interpreterVersion *semver.Version
}

// NewAbstractPlatform parses an abbreviated platform string.
func NewAbstractPlatform(spec string) (*AbstractPlatform, error) {
	tag, err := tags.ParseTag(spec)
	if err != nil {
		return nil, fmt.Errorf("abstract platform: %w", err)
	}

	p := &AbstractPlatform{
		id: spec,
		supported: tags.Supported{
			tag,
			{Interpreter: tag.Interpreter, ABI: "none", Platform: "any"},
			{Interpreter: genericInterpreter(tag.Interpreter), ABI: "none", Platform: "any"},
		},
		markerValues: map[string]string{},
	}

	if version, ok := interpreterVersionFromTag(tag.Interpreter); ok {
		p.markerValues["python_version"] = version
		v, err := semver.NewVersion(version)
		if err == nil {
			p.interpreterVersion = v
		}
	}
	if impl, ok := implementationFromTag(tag.Interpreter); ok {
		p.markerValues["implementation_name"] = impl
	}
	return p, nil
}

// ID returns the abbreviated platform string.
func (p *AbstractPlatform) ID() string {
	return p.id
}

// EvaluateTags implements Target.
func (p *AbstractPlatform) EvaluateTags(dist Distribution) (TagEvaluation, error) {
	return evaluateTags(dist, p.supported, p.interpreterVersion)
}

// EvaluateMarker implements Target.
func (p *AbstractPlatform) EvaluateMarker(req requirement.Requirement, activeExtras []string) (bool, error) {
	return evaluateMarker(req, activeExtras, p.markerValues)
}

// evaluateTags is the shared classification: filename parse, ordered tag
// intersection, then the interpreter-version gate. The interpreter gate
// only fires for candidates whose tags matched, so the diagnostic names
// the narrower reason.
func evaluateTags(dist Distribution, supported tags.Supported, interpreter *semver.Version) (TagEvaluation, error) {
	_, _, distTags, err := tags.ParseWheelFilename(dist.Filename())
	if err != nil {
		return TagEvaluation{}, err
	}

	rank, ok := supported.BestRank(distTags)
	if !ok {
		return TagEvaluation{Attempted: distTags}, nil
	}

	if dist.RequiresInterpreter != "" && interpreter != nil {
		ok, err := interpreterMatches(dist.RequiresInterpreter, interpreter)
		// An unparseable constraint excludes the candidate rather than
		// aborting classification; the diagnostic carries the bad text.
		if err != nil || !ok {
			return TagEvaluation{RequiresInterpreter: dist.RequiresInterpreter}, nil
		}
	}

	return TagEvaluation{Applies: true, BestRank: rank}, nil
}

func evaluateMarker(req requirement.Requirement, activeExtras []string, values map[string]string) (bool, error) {
	if req.Marker == nil {
		return true, nil
	}
	return req.Marker.Eval(requirement.Environment{
		Values: values,
		Extras: activeExtras,
	})
}

// interpreterMatches checks a requires-interpreter constraint against the
// target's interpreter version. Interpreter versions are plain
// MAJOR.MINOR.PATCH, so most operators map onto semver constraints; the
// ones semver spells or scopes differently are rewritten first.
func interpreterMatches(constraint string, v *semver.Version) (bool, error) {
	var clauses []string
	for _, part := range strings.Split(constraint, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "==="):
			// Arbitrary equality compares the version exactly as spelled.
			if strings.TrimSpace(strings.TrimPrefix(part, "===")) != v.Original() {
				return false, nil
			}
		case strings.HasPrefix(part, "~="):
			expanded, err := expandCompatibleRelease(strings.TrimSpace(strings.TrimPrefix(part, "~=")))
			if err != nil {
				return false, fmt.Errorf("invalid interpreter constraint %q: %w", constraint, err)
			}
			clauses = append(clauses, expanded)
		case strings.HasPrefix(part, "=="):
			text := strings.TrimSpace(strings.TrimPrefix(part, "=="))
			if prefix, ok := strings.CutSuffix(text, ".*"); ok {
				// Wildcard equality is semver's partial-version match.
				clauses = append(clauses, "="+prefix)
			} else {
				clauses = append(clauses, "="+padRelease(text))
			}
		default:
			clauses = append(clauses, part)
		}
	}
	if len(clauses) == 0 {
		return true, nil
	}

	c, err := semver.NewConstraint(strings.Join(clauses, ", "))
	if err != nil {
		return false, fmt.Errorf("invalid interpreter constraint %q: %w", constraint, err)
	}
	return c.Check(v), nil
}

// expandCompatibleRelease rewrites "~=X.Y" as ">=X.Y, <X+1.0" and
// "~=X.Y.Z" as ">=X.Y.Z, <X.Y+1.0": at least the stated version, equal
// on everything before its final segment. Semver's tilde pins one
// segment deeper ("~3.8" stays below 3.9), so the operator cannot be
// passed through.
func expandCompatibleRelease(text string) (string, error) {
	segments := strings.Split(text, ".")
	if len(segments) < 2 {
		return "", fmt.Errorf("compatible release needs at least two release segments, got %q", text)
	}
	upper := make([]string, len(segments)-1)
	for i := range upper {
		n, err := strconv.Atoi(segments[i])
		if err != nil {
			return "", fmt.Errorf("compatible release segment %q is not a number", segments[i])
		}
		if i == len(upper)-1 {
			n++
		}
		upper[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf(">=%s, <%s.0", text, strings.Join(upper, ".")), nil
}

// padRelease zero-pads a strict equality operand to three segments so
// semver's partial-version wildcarding does not widen it: "==3.11" pins
// 3.11.0, not every 3.11 patch level.
func padRelease(text string) string {
	segments := strings.Split(text, ".")
	for len(segments) < 3 {
		segments = append(segments, "0")
	}
	return strings.Join(segments, ".")
}

// interpreterVersionFromTag derives "3.11" from interpreter tags like
// "cp311" or "py311".
func interpreterVersionFromTag(tag string) (string, bool) {
	digits := strings.TrimLeft(tag, "abcdefghijklmnopqrstuvwxyz")
	if digits == "" {
		return "", false
	}
	if len(digits) == 1 {
		return digits, true
	}
	return digits[:1] + "." + digits[1:], true
}

// genericInterpreter maps an implementation-specific interpreter tag to
// its generic fallback: "cp311" supports "py3" wheels.
func genericInterpreter(tag string) string {
	digits := strings.TrimLeft(tag, "abcdefghijklmnopqrstuvwxyz")
	if digits == "" {
		return "py3"
	}
	return "py" + digits[:1]
}

func implementationFromTag(tag string) (string, bool) {
	switch {
	case strings.HasPrefix(tag, "cp"):
		return "cpython", true
	case strings.HasPrefix(tag, "pp"):
		return "pypy", true
	case strings.HasPrefix(tag, "py"):
		return "", false
	}
	return "", false
}
