// Package wheelhouse selects and activates bundled distributions for an
// execution target.
//
// A bundle ships a manifest of top-level requirements together with a
// pool of candidate distributions: pre-built archives whose filenames
// encode binary-compatibility tags, and pre-installed directories that
// are usable anywhere. At run time the engine picks exactly one
// distribution per required project (and per requested capability-extra
// combination) such that it is binary-compatible with the target, its
// own transitive requirements are satisfied, and environment-conditional
// requirements are honored.
//
// # Overview
//
// The package provides four main components:
//
//   - Target: answers whether a distribution applies to an execution
//     target and whether a requirement's environment marker holds there
//   - Environment: classifies a candidate pool against a target and
//     resolves requirement sets over it
//   - Site: the host process's module search path that activation
//     inserts content roots into
//   - EnvironmentCache: write-once memoization of fully-resolved
//     environments, keyed by artifact location, content identity and
//     target
//
// # Quick Start
//
//	pool, err := wheelhouse.LoadPool("bundle/dists")
//	manifest, err := wheelhouse.LoadManifest("bundle/manifest.yaml")
//	target, err := wheelhouse.NewCompletePlatform(id, supportedTags, markerValues)
//
//	env, err := wheelhouse.NewEnvironment(pool, manifest, target)
//	dists, err := env.Resolve(ctx)
//
//	site := wheelhouse.NewSite(manifest.Inheritance, ambientPath...)
//	activated, err := env.Activate(ctx, site)
//
// # Determinism
//
// Given the same pool, manifest, target and configuration, Resolve
// always returns the same ordered sequence and Activate the same search
// path. Failure reports are exhaustive: the engine never fails fast, so
// a failed resolution names every unsatisfied requirement, its
// requirers, and the near-miss candidates with their rejection reasons.
package wheelhouse

import (
	"context"
)

// Mount returns the fully-resolved Environment for a bundle, computing
// it at most once per (location, manifest identity, target) across the
// process when all callers share the cache.
func Mount(ctx context.Context, cache *EnvironmentCache, location string, manifest *Manifest, target Target, opts ...Option) (*Environment, error) {
	key := CacheKey{
		Location:    location,
		Fingerprint: manifest.Fingerprint(),
		Target:      target.ID(),
	}
	return cache.Load(key, func() (*Environment, error) {
		pool, err := LoadPool(location)
		if err != nil {
			return nil, err
		}
		env, err := NewEnvironment(pool, manifest, target, opts...)
		if err != nil {
			return nil, err
		}
		// Resolving up front makes the cached entry immutable work:
		// later callers only read.
		if _, err := env.Resolve(ctx); err != nil {
			return nil, err
		}
		return env, nil
	})
}

// Resolve is the one-shot convenience: build an Environment over the
// pool and resolve the manifest's requirements.
func Resolve(ctx context.Context, pool []FingerprintedDistribution, manifest *Manifest, target Target, opts ...Option) ([]Distribution, error) {
	env, err := NewEnvironment(pool, manifest, target, opts...)
	if err != nil {
		return nil, err
	}
	return env.Resolve(ctx)
}
