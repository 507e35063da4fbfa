package wheelhouse

import (
	"context"
	"fmt"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/wheelhouse-dev/wheelhouse/requirement"
)

// resolution is the state of one resolution pass. All of it is local to
// the pass; nothing is shared across invocations.
//
// The pass proceeds root selection first, then a recursive transitive
// walk memoized by RequirementKey. Diagnostics accumulate and are only
// examined once the whole pass completes, so the final report is
// exhaustive rather than naming the first problem.
type resolution struct {
	env *Environment
	cfg *DependencyConfiguration

	// resolvedByKey memoizes the walk: entries are never overwritten,
	// first resolution wins. A key's resolution is recorded under every
	// subset of its extras, so (P, {a,b}) also satisfies (P, {a}),
	// (P, {b}) and plain (P, {}).
	resolvedByKey map[RequirementKey]FingerprintedDistribution

	// excludedKeys memoizes keys dropped by exclude rules, so a key
	// required from several places warns once.
	excludedKeys map[RequirementKey]struct{}

	// order is the output sequence: distinct selected distributions in
	// first-discovery order.
	order []FingerprintedDistribution
	seen  map[string]struct{}

	// unresolved collects requirements no candidate satisfied, in
	// discovery order, with every distribution that required them. It is
	// diagnostic state only and never influences control flow.
	unresolved    []*unresolvedEntry
	unresolvedIdx map[string]*unresolvedEntry

	// warnings carry the non-fatal notices of the pass: excluded
	// requirements and stranded transitive dependencies.
	warnings []string
}

type unresolvedEntry struct {
	req        requirement.Requirement
	requiredBy []string
	seenBy     map[string]struct{}
}

func newResolution(env *Environment, cfg *DependencyConfiguration) *resolution {
	return &resolution{
		env:           env,
		cfg:           cfg,
		resolvedByKey: make(map[RequirementKey]FingerprintedDistribution),
		excludedKeys:  make(map[RequirementKey]struct{}),
		seen:          make(map[string]struct{}),
		unresolvedIdx: make(map[string]*unresolvedEntry),
	}
}

// run executes the pass: select roots, walk the transitive closure, then
// either return the ordered distinct selection with its warnings or the
// exhaustive error.
func (r *resolution) run(ctx context.Context, reqs []requirement.Requirement, ignoreUnresolved bool) (*ResolutionResult, error) {
	roots, err := r.selectRoots(ctx, reqs)
	if err != nil {
		return nil, err
	}

	for _, root := range roots {
		if err := r.walk(ctx, root, ""); err != nil {
			return nil, err
		}
	}

	log := slogcontext.FromCtx(ctx)
	for _, warning := range r.warnings {
		log.Warn(warning)
	}

	if len(r.unresolved) > 0 && !ignoreUnresolved {
		return nil, r.buildError()
	}
	return &ResolutionResult{Distributions: r.order, Warnings: r.warnings}, nil
}

// selectRoots groups the top-level requirements by project name in
// first-seen order and picks, per project, the requirement satisfied by
// the best-ranked candidate. Requirements excluded by configuration are
// skipped before marker evaluation; requirements whose marker is false
// are dropped entirely.
func (r *resolution) selectRoots(ctx context.Context, reqs []requirement.Requirement) ([]requirement.Requirement, error) {
	log := slogcontext.FromCtx(ctx)

	grouped := make(map[string][]requirement.Requirement)
	var names []string
	for _, req := range reqs {
		if rules := r.cfg.ExcludedBy(req); len(rules) > 0 {
			r.warnings = append(r.warnings, fmt.Sprintf(
				"requirement %s excluded by configured rule %s", req, rules[0]))
			continue
		}
		applies, err := r.env.target.EvaluateMarker(req, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: requirement %s on target %s: %v",
				ErrMarkerEnvironment, req, r.env.target.ID(), err)
		}
		if !applies {
			log.Debug("dropping requirement: marker does not apply",
				"requirement", req.String())
			continue
		}
		if _, ok := grouped[req.Name]; !ok {
			names = append(names, req.Name)
		}
		grouped[req.Name] = append(grouped[req.Name], req)
	}

	var roots []requirement.Requirement
	for _, name := range names {
		candidates := r.env.ranked[name]
		chosen, ok := bestRootPair(candidates, grouped[name])
		if !ok {
			// No candidate satisfies any requirement for this project.
			// Record every surviving requirement and keep going; failure
			// is only decided at the end of the pass.
			for _, req := range grouped[name] {
				r.addUnresolved(req, "")
			}
			continue
		}
		roots = append(roots, chosen)
	}
	return roots, nil
}

// bestRootPair finds the (candidate, requirement) pair with the best
// candidate. The candidate list is ordered best-first, so the first
// candidate satisfying any requirement wins; among requirements that the
// winning candidate satisfies, declaration order breaks the tie.
func bestRootPair(candidates []RankedDistribution, reqs []requirement.Requirement) (requirement.Requirement, bool) {
	for _, candidate := range candidates {
		for _, req := range reqs {
			if candidate.Satisfies(req) {
				return req, true
			}
		}
	}
	return requirement.Requirement{}, false
}

// walk recursively resolves one requirement. requiredBy names the
// distribution that declared it, empty for roots. Memoization on
// RequirementKey happens before the recursion into dependencies, which
// also guards against requirement cycles.
func (r *resolution) walk(ctx context.Context, req requirement.Requirement, requiredBy string) error {
	key := newRequirementKey(req)
	if _, done := r.resolvedByKey[key]; done {
		return nil
	}
	if _, done := r.excludedKeys[key]; done {
		return nil
	}

	if rules := r.cfg.ExcludedBy(req); len(rules) > 0 {
		r.excludedKeys[key] = struct{}{}
		if requiredBy != "" {
			r.warnings = append(r.warnings, fmt.Sprintf(
				"transitive requirement %s of %s excluded by configured rule %s; the resolved set may be incomplete",
				req, requiredBy, rules[0]))
		}
		return nil
	}

	best, ok := r.bestCandidate(req)
	if !ok {
		r.addUnresolved(req, requiredBy)
		return nil
	}

	for _, satisfied := range key.satisfiedKeys() {
		if _, exists := r.resolvedByKey[satisfied]; !exists {
			r.resolvedByKey[satisfied] = best
		}
	}
	if _, dup := r.seen[best.identity()]; !dup {
		r.seen[best.identity()] = struct{}{}
		r.order = append(r.order, best)
		slogcontext.FromCtx(ctx).Debug("selected distribution",
			"requirement", req.String(),
			"distribution", best.Distribution.String())
	}

	for _, dep := range best.Requires {
		if substitute, err := r.cfg.OverriddenBy(dep, r.env.target); err != nil {
			return fmt.Errorf("%w: override gate for %s: %v", ErrMarkerEnvironment, dep, err)
		} else if substitute != nil {
			slogcontext.FromCtx(ctx).Debug("overriding requirement",
				"declared", dep.String(), "substitute", substitute.String())
			dep = *substitute
		}

		applies, err := r.env.target.EvaluateMarker(dep, req.Extras)
		if err != nil {
			return fmt.Errorf("%w: requirement %s of %s on target %s: %v",
				ErrMarkerEnvironment, dep, best.Distribution, r.env.target.ID(), err)
		}
		if !applies {
			// Dropped silently: a false marker is not an unresolved
			// requirement.
			continue
		}

		if err := r.walk(ctx, dep, best.Distribution.String()); err != nil {
			return err
		}
	}
	return nil
}

// bestCandidate returns the best ranked candidate whose version satisfies
// the requirement. The per-project table is ordered best-first (rank
// ascending, version descending), so the first satisfying entry wins.
func (r *resolution) bestCandidate(req requirement.Requirement) (FingerprintedDistribution, bool) {
	for _, candidate := range r.env.ranked[req.Name] {
		if candidate.Satisfies(req) {
			return candidate.Dist, true
		}
	}
	return FingerprintedDistribution{}, false
}

func (r *resolution) addUnresolved(req requirement.Requirement, requiredBy string) {
	entry, ok := r.unresolvedIdx[req.String()]
	if !ok {
		entry = &unresolvedEntry{req: req, seenBy: make(map[string]struct{})}
		r.unresolvedIdx[req.String()] = entry
		r.unresolved = append(r.unresolved, entry)
	}
	if requiredBy != "" {
		if _, dup := entry.seenBy[requiredBy]; !dup {
			entry.seenBy[requiredBy] = struct{}{}
			entry.requiredBy = append(entry.requiredBy, requiredBy)
		}
	}
}

// buildError renders the exhaustive failure report: every unresolved
// requirement, its requirers, and the same-project candidates that were
// present but rejected, with reasons.
func (r *resolution) buildError() *ResolutionError {
	err := &ResolutionError{}
	for _, entry := range r.unresolved {
		u := UnresolvedRequirement{
			Requirement: entry.req.String(),
			RequiredBy:  append([]string(nil), entry.requiredBy...),
		}
		for _, candidate := range r.env.ranked[entry.req.Name] {
			if !candidate.Satisfies(entry.req) {
				u.Rejected = append(u.Rejected, fmt.Sprintf(
					"%s does not satisfy %s", candidate.Dist.Distribution, entry.req))
			}
		}
		for _, rejected := range r.env.unranked[entry.req.Name] {
			u.Rejected = append(u.Rejected, rejected.Render())
		}
		err.Unresolved = append(err.Unresolved, u)
	}
	return err
}
