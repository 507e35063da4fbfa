package wheelhouse

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/wheelhouse-dev/wheelhouse/requirement"
)

// Manifest is the bundle's declaration: the flat ordered list of
// top-level requirements, the fingerprints of the distributions shipped
// alongside, and the resolution/activation policy.
type Manifest struct {
	// Requirements are the top-level requirements in declaration order.
	Requirements []requirement.Requirement

	// Fingerprints maps archive names to content fingerprints for every
	// bundled distribution.
	Fingerprints map[string]digest.Digest

	// IgnoreUnresolved tolerates unsatisfiable requirements instead of
	// failing resolution.
	IgnoreUnresolved bool

	// Inheritance controls how activated roots combine with the host's
	// ambient search path.
	Inheritance InheritancePolicy

	// Excludes are deny rules applied during resolution.
	Excludes []requirement.Requirement

	// Overrides are substitution rules applied to declared requirements.
	Overrides []OverrideRule
}

// manifestDoc is the serialized manifest layout.
type manifestDoc struct {
	Requirements     []string          `yaml:"requirements"`
	Fingerprints     map[string]string `yaml:"fingerprints"`
	IgnoreUnresolved bool              `yaml:"ignore_unresolved"`
	Inheritance      string            `yaml:"inherit_path"`
	Excludes         []string          `yaml:"excludes"`
	Overrides        []overrideDoc     `yaml:"overrides"`
}

type overrideDoc struct {
	Name    string `yaml:"name"`
	Replace string `yaml:"replace"`
	When    string `yaml:"when"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return manifest, nil
}

// ParseManifest parses manifest content.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	manifest := &Manifest{IgnoreUnresolved: doc.IgnoreUnresolved}

	reqs, err := requirement.ParseAll(doc.Requirements)
	if err != nil {
		return nil, fmt.Errorf("parse manifest requirements: %w", err)
	}
	manifest.Requirements = reqs

	if len(doc.Fingerprints) > 0 {
		manifest.Fingerprints = make(map[string]digest.Digest, len(doc.Fingerprints))
		for name, raw := range doc.Fingerprints {
			d, err := digest.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("parse manifest fingerprint for %s: %w", name, err)
			}
			manifest.Fingerprints[name] = d
		}
	}

	manifest.Inheritance, err = ParseInheritancePolicy(doc.Inheritance)
	if err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	manifest.Excludes, err = requirement.ParseAll(doc.Excludes)
	if err != nil {
		return nil, fmt.Errorf("parse manifest excludes: %w", err)
	}

	for _, o := range doc.Overrides {
		rule := OverrideRule{Name: requirement.CanonicalName(o.Name)}
		rule.Replacement, err = requirement.Parse(o.Replace)
		if err != nil {
			return nil, fmt.Errorf("parse manifest override for %s: %w", o.Name, err)
		}
		if o.When != "" {
			rule.When, err = requirement.ParseMarker(o.When)
			if err != nil {
				return nil, fmt.Errorf("parse manifest override gate for %s: %w", o.Name, err)
			}
		}
		manifest.Overrides = append(manifest.Overrides, rule)
	}

	return manifest, nil
}

// Fingerprint returns a stable content identity for the manifest itself,
// used in environment cache keys.
func (m *Manifest) Fingerprint() digest.Digest {
	var sb strings.Builder
	for _, req := range m.Requirements {
		sb.WriteString(req.String())
		sb.WriteByte('\n')
	}
	names := make([]string, 0, len(m.Fingerprints))
	for name := range m.Fingerprints {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(m.Fingerprints[name].String())
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "ignore_unresolved=%t\ninherit_path=%s\n", m.IgnoreUnresolved, m.Inheritance)
	return digest.FromString(sb.String())
}
