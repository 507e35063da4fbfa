package wheelhouse

import (
	"github.com/wheelhouse-dev/wheelhouse/requirement"
)

// OverrideRule substitutes a declared requirement with a replacement
// before marker evaluation. When is an optional gate evaluated against
// the target; a rule whose gate is false leaves the declared requirement
// untouched.
type OverrideRule struct {
	// Name is the canonical project name the rule applies to.
	Name string

	// Replacement is the requirement resolved in place of the declared
	// one.
	Replacement requirement.Requirement

	// When gates the rule on the target, nil for unconditional.
	When *requirement.Marker
}

// DependencyConfiguration carries the caller's deny and substitution
// rules. The zero value excludes nothing and overrides nothing.
type DependencyConfiguration struct {
	excludes  []requirement.Requirement
	overrides map[string]OverrideRule
}

// NewDependencyConfiguration builds a configuration from exclude
// requirements and override rules.
func NewDependencyConfiguration(excludes []requirement.Requirement, overrides []OverrideRule) *DependencyConfiguration {
	cfg := &DependencyConfiguration{
		excludes:  append([]requirement.Requirement(nil), excludes...),
		overrides: make(map[string]OverrideRule, len(overrides)),
	}
	for _, rule := range overrides {
		cfg.overrides[requirement.CanonicalName(rule.Name)] = rule
	}
	return cfg
}

// ExcludedBy returns the exclude rules denying the requirement, matching
// by canonical project name. Empty means the requirement is allowed.
func (c *DependencyConfiguration) ExcludedBy(req requirement.Requirement) []requirement.Requirement {
	if c == nil {
		return nil
	}
	var rules []requirement.Requirement
	for _, rule := range c.excludes {
		if rule.Name == req.Name {
			rules = append(rules, rule)
		}
	}
	return rules
}

// OverriddenBy returns the substitute for a declared requirement, or nil
// when no rule applies. Marker-gated rules are evaluated against the
// target with no extras context; a gate the target cannot answer
// surfaces as an error.
func (c *DependencyConfiguration) OverriddenBy(req requirement.Requirement, target Target) (*requirement.Requirement, error) {
	if c == nil {
		return nil, nil
	}
	rule, ok := c.overrides[req.Name]
	if !ok {
		return nil, nil
	}
	if rule.When != nil {
		gate := requirement.Requirement{Name: rule.Name, Marker: rule.When}
		applies, err := target.EvaluateMarker(gate, nil)
		if err != nil {
			return nil, err
		}
		if !applies {
			return nil, nil
		}
	}
	replacement := rule.Replacement
	return &replacement, nil
}
