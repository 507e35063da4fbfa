package wheelhouse

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	// ErrEmptyPool indicates an environment was built with no candidate
	// distributions at all.
	ErrEmptyPool = errors.New("no candidate distributions")

	// ErrMarkerEnvironment indicates the target could not answer an
	// environment marker, a configuration problem rather than an
	// unsatisfiable requirement.
	ErrMarkerEnvironment = errors.New("cannot evaluate environment marker")
)

// UnresolvedRequirement describes one requirement no candidate satisfied:
// the requirement itself, the distributions that introduced it (empty for
// top-level requirements) and the same-project candidates that were
// present but rejected.
type UnresolvedRequirement struct {
	// Requirement is the unsatisfied requirement.
	Requirement string

	// RequiredBy names the distributions that declared the requirement,
	// in discovery order. Empty for top-level requirements.
	RequiredBy []string

	// Rejected lists the same-project candidates with their rejection
	// reasons: version mismatches against the requirement, incompatible
	// tags, interpreter mismatches, malformed names.
	Rejected []string
}

// ResolutionError is returned after a full resolution pass when one or
// more requirements could not be satisfied and tolerant mode is off. It
// is exhaustive across the whole pass, not just the first failure.
type ResolutionError struct {
	// Unresolved lists every unsatisfied requirement in discovery order.
	Unresolved []UnresolvedRequirement
}

func (e *ResolutionError) Error() string {
	var sb strings.Builder
	if len(e.Unresolved) == 1 {
		sb.WriteString("failed to resolve a requirement:")
	} else {
		fmt.Fprintf(&sb, "failed to resolve %d requirements:", len(e.Unresolved))
	}
	for _, u := range e.Unresolved {
		sb.WriteString("\n  - ")
		sb.WriteString(u.Requirement)
		if len(u.RequiredBy) > 0 {
			sb.WriteString(" (required by ")
			sb.WriteString(strings.Join(u.RequiredBy, ", "))
			sb.WriteString(")")
		}
		if len(u.Rejected) == 0 {
			sb.WriteString("\n      no candidates for this project were available")
			continue
		}
		for _, rejection := range u.Rejected {
			sb.WriteString("\n      ")
			sb.WriteString(rejection)
		}
	}
	return sb.String()
}
