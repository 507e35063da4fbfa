package wheelhouse

import (
	"sync"

	"github.com/opencontainers/go-digest"
)

// CacheKey identifies one fully-resolved Environment: the artifact
// location, its content identity and the target it was resolved for.
type CacheKey struct {
	Location    string
	Fingerprint digest.Digest
	Target      string
}

// EnvironmentCache memoizes fully-resolved Environments process-wide.
// Entries are write-once: a key is populated at most once and never
// mutated afterwards, so lookups are safe for concurrent readers. A lost
// insertion race costs a redundant build, never an inconsistent result,
// because builds for the same key are equal.
//
// The cache is an explicit object owned by the process's composition
// root; there is no package-level instance.
type EnvironmentCache struct {
	mu      sync.Mutex
	entries map[CacheKey]*Environment
}

// NewEnvironmentCache creates an empty cache.
func NewEnvironmentCache() *EnvironmentCache {
	return &EnvironmentCache{entries: make(map[CacheKey]*Environment)}
}

// Load returns the Environment for key, invoking build on first use.
// The build runs outside the lock; if two callers race, the first
// completed insertion wins and the loser's result is discarded.
func (c *EnvironmentCache) Load(key CacheKey, build func() (*Environment, error)) (*Environment, error) {
	c.mu.Lock()
	if env, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return env, nil
	}
	c.mu.Unlock()

	env, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing, nil
	}
	c.entries[key] = env
	return env, nil
}

// Len returns the number of cached environments.
func (c *EnvironmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
