package wheelhouse

import (
	"context"
	"slices"
	"sync"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/wheelhouse-dev/wheelhouse/requirement"
)

// Environment owns one candidate pool classified against one target and
// answers resolution queries over it. The candidate tables are built once
// at construction and are read-only afterwards; each resolution call
// works on fresh pass-local state, so an Environment is safe for
// concurrent readers.
type Environment struct {
	target   Target
	manifest *Manifest
	cfg      *DependencyConfiguration

	ignoreUnresolved bool

	// ranked maps project name to its usable candidates, ordered
	// best-first (rank ascending, version descending). unranked keeps the
	// rejected candidates per project for diagnostics.
	ranked   map[string][]RankedDistribution
	unranked map[string][]UnrankedDistribution

	mu          sync.Mutex
	resolved    []Distribution
	warnings    []string
	resolveErr  error
	resolveDone bool
	activated   []Distribution
}

// NewEnvironment classifies every distribution in the pool against the
// target and builds the candidate tables. The manifest supplies the
// top-level requirements and resolution policy; options override it.
func NewEnvironment(pool []FingerprintedDistribution, manifest *Manifest, target Target, opts ...Option) (*Environment, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	cfg, err := newEnvConfig(manifest, opts)
	if err != nil {
		return nil, err
	}

	env := &Environment{
		target:           target,
		manifest:         manifest,
		cfg:              cfg.dependencies,
		ignoreUnresolved: cfg.ignoreUnresolved,
		ranked:           make(map[string][]RankedDistribution),
		unranked:         make(map[string][]UnrankedDistribution),
	}

	for _, dist := range pool {
		ranked, rejected := classify(dist, target)
		if rejected != nil {
			env.unranked[dist.Name] = append(env.unranked[dist.Name], *rejected)
			continue
		}
		env.ranked[dist.Name] = append(env.ranked[dist.Name], ranked)
	}
	for name := range env.ranked {
		slices.SortStableFunc(env.ranked[name], func(a, b RankedDistribution) int {
			if a.Better(b) {
				return -1
			}
			if b.Better(a) {
				return 1
			}
			return 0
		})
	}
	return env, nil
}

// Target returns the environment's compatibility target.
func (e *Environment) Target() Target {
	return e.target
}

// Resolve selects one distribution per requirement of the manifest's
// top-level requirement list, transitively. The result is the ordered,
// de-duplicated selection; the full diagnostic error is returned when any
// requirement is unsatisfiable, unless the manifest tolerates unresolved
// requirements.
//
// Resolution is deterministic: the same pool, requirements, target and
// configuration always produce the same sequence.
func (e *Environment) Resolve(ctx context.Context) ([]Distribution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolveLocked(ctx)
}

// resolveLocked memoizes the manifest resolution: the pass is pure, so
// the first outcome, success or failure, is the only one.
func (e *Environment) resolveLocked(ctx context.Context) ([]Distribution, error) {
	if !e.resolveDone {
		e.resolveDone = true
		result, err := e.ResolveFor(ctx, e.manifest.Requirements, e.cfg)
		if err != nil {
			e.resolveErr = err
		} else {
			e.warnings = result.Warnings
			e.resolved = make([]Distribution, 0, len(result.Distributions))
			for _, fd := range result.Distributions {
				e.resolved = append(e.resolved, fd.Distribution)
			}
		}
	}
	if e.resolveErr != nil {
		return nil, e.resolveErr
	}
	return slices.Clone(e.resolved), nil
}

// ResolveFor runs the same resolution algorithm over an arbitrary
// requirement list and dependency configuration against this
// environment's candidate pool.
func (e *Environment) ResolveFor(ctx context.Context, reqs []requirement.Requirement, cfg *DependencyConfiguration) (*ResolutionResult, error) {
	pass := newResolution(e, cfg)
	return pass.run(ctx, reqs, e.ignoreUnresolved)
}

// Warnings returns the non-fatal notices of the manifest resolution:
// requirements dropped by exclude rules and the transitive dependencies
// those drops strand. Empty until Resolve or Activate has run.
func (e *Environment) Warnings() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.warnings)
}

// Activate resolves the manifest's requirements and exposes each selected
// distribution's content root through the site, honoring the site's
// inheritance policy. Activation is idempotent: the first call caches the
// ordered sequence, later calls return it unchanged and perform no
// further side effects. Roots already present on the site, for example
// from a previously activated environment layered on the same site, are
// skipped.
func (e *Environment) Activate(ctx context.Context, site *Site) ([]Distribution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activated != nil {
		return slices.Clone(e.activated), nil
	}

	dists, err := e.resolveLocked(ctx)
	if err != nil {
		return nil, err
	}

	log := slogcontext.FromCtx(ctx)
	for _, dist := range dists {
		if !site.Insert(dist.Location) {
			log.Debug("content root already on search path, skipping",
				"distribution", dist.String())
		}
	}

	e.activated = dists
	return slices.Clone(e.activated), nil
}

// Site models the host process's module search path: the ambient entries
// it started with plus the content roots activation inserts. A single
// Site can have several environments layered onto it; insertion
// de-duplicates by content root across all of them.
type Site struct {
	policy  InheritancePolicy
	ambient []string
	roots   []string
	present map[string]struct{}

	// onRegister, when set, is invoked once per newly inserted root so
	// the host can run its path-based module-directory registration.
	onRegister func(root string)
}

// NewSite builds a search path with the given inheritance policy and the
// host's ambient entries. Under PolicyExclusive the ambient entries are
// discarded.
func NewSite(policy InheritancePolicy, ambient ...string) *Site {
	s := &Site{
		policy:  policy,
		present: make(map[string]struct{}),
	}
	if policy != PolicyExclusive {
		s.ambient = slices.Clone(ambient)
		for _, entry := range ambient {
			s.present[entry] = struct{}{}
		}
	}
	return s
}

// OnRegister sets the callback invoked for every newly inserted root.
func (s *Site) OnRegister(fn func(root string)) {
	s.onRegister = fn
}

// Insert adds a content root to the search path. It returns false, doing
// nothing, when the root is already present.
func (s *Site) Insert(root string) bool {
	if _, dup := s.present[root]; dup {
		return false
	}
	s.present[root] = struct{}{}
	s.roots = append(s.roots, root)
	if s.onRegister != nil {
		s.onRegister(root)
	}
	return true
}

// Paths returns the effective search path in policy order: inserted
// roots ahead of ambient entries under PolicyPreferFirst, after them
// under PolicyPreferLast, and alone under PolicyExclusive.
func (s *Site) Paths() []string {
	switch s.policy {
	case PolicyPreferLast:
		return append(slices.Clone(s.ambient), s.roots...)
	default:
		return append(slices.Clone(s.roots), s.ambient...)
	}
}
