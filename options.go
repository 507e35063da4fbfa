package wheelhouse

import (
	"github.com/wheelhouse-dev/wheelhouse/requirement"
)

// Option configures an Environment beyond what its manifest declares.
type Option func(*envConfig) error

// envConfig is the merged view of manifest policy and caller options.
type envConfig struct {
	dependencies     *DependencyConfiguration
	ignoreUnresolved bool
}

func newEnvConfig(manifest *Manifest, opts []Option) (*envConfig, error) {
	cfg := &envConfig{}
	if manifest != nil {
		cfg.ignoreUnresolved = manifest.IgnoreUnresolved
		cfg.dependencies = NewDependencyConfiguration(manifest.Excludes, manifest.Overrides)
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// WithDependencyConfiguration replaces the manifest's exclude and
// override rules entirely.
func WithDependencyConfiguration(cfg *DependencyConfiguration) Option {
	return func(c *envConfig) error {
		c.dependencies = cfg
		return nil
	}
}

// WithExcludes adds deny rules on top of the manifest's.
func WithExcludes(rules ...requirement.Requirement) Option {
	return func(c *envConfig) error {
		if c.dependencies == nil {
			c.dependencies = NewDependencyConfiguration(rules, nil)
			return nil
		}
		c.dependencies.excludes = append(c.dependencies.excludes, rules...)
		return nil
	}
}

// WithOverrides adds substitution rules on top of the manifest's.
func WithOverrides(rules ...OverrideRule) Option {
	return func(c *envConfig) error {
		if c.dependencies == nil {
			c.dependencies = NewDependencyConfiguration(nil, rules)
			return nil
		}
		for _, rule := range rules {
			c.dependencies.overrides[requirement.CanonicalName(rule.Name)] = rule
		}
		return nil
	}
}

// WithIgnoreUnresolved tolerates unsatisfiable requirements: resolution
// returns the distributions it could select instead of failing.
func WithIgnoreUnresolved(ignore bool) Option {
	return func(c *envConfig) error {
		c.ignoreUnresolved = ignore
		return nil
	}
}
