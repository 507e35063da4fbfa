package wheelhouse

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"

	"github.com/wheelhouse-dev/wheelhouse/pyver"
	"github.com/wheelhouse-dev/wheelhouse/requirement"
)

// distributionDoc is the serialized metadata of one distribution, the
// already-parsed boundary this engine consumes. Archive contents are
// never opened here.
type distributionDoc struct {
	Name                string   `yaml:"name"`
	Version             string   `yaml:"version"`
	Location            string   `yaml:"location"`
	Format              string   `yaml:"format"`
	Requires            []string `yaml:"requires"`
	RequiresInterpreter string   `yaml:"requires_interpreter"`
	Fingerprint         string   `yaml:"fingerprint"`
}

// ParseDistribution parses one distribution metadata document. Relative
// locations are resolved against baseDir. When the document carries no
// fingerprint, a stable one is computed from the metadata bytes.
func ParseDistribution(data []byte, baseDir string) (FingerprintedDistribution, error) {
	var doc distributionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return FingerprintedDistribution{}, fmt.Errorf("parse distribution metadata: %w", err)
	}
	if doc.Name == "" {
		return FingerprintedDistribution{}, fmt.Errorf("distribution metadata missing name")
	}
	if doc.Location == "" {
		return FingerprintedDistribution{}, fmt.Errorf("distribution %s: metadata missing location", doc.Name)
	}

	version, err := pyver.Parse(doc.Version)
	if err != nil {
		return FingerprintedDistribution{}, fmt.Errorf("distribution %s: %w", doc.Name, err)
	}
	format, err := ParseFormat(doc.Format)
	if err != nil {
		return FingerprintedDistribution{}, fmt.Errorf("distribution %s: %w", doc.Name, err)
	}
	requires, err := requirement.ParseAll(doc.Requires)
	if err != nil {
		return FingerprintedDistribution{}, fmt.Errorf("distribution %s: %w", doc.Name, err)
	}

	location := doc.Location
	if baseDir != "" && !filepath.IsAbs(location) {
		location = filepath.Join(baseDir, location)
	}

	fingerprint := digest.FromBytes(data)
	if doc.Fingerprint != "" {
		fingerprint, err = digest.Parse(doc.Fingerprint)
		if err != nil {
			return FingerprintedDistribution{}, fmt.Errorf("distribution %s: %w", doc.Name, err)
		}
	}

	return FingerprintedDistribution{
		Distribution: Distribution{
			Name:                requirement.CanonicalName(doc.Name),
			Version:             version,
			Location:            location,
			Requires:            requires,
			RequiresInterpreter: doc.RequiresInterpreter,
			Format:              format,
		},
		Fingerprint: fingerprint,
	}, nil
}

// LoadPool enumerates the candidate distributions of a metadata
// directory. This is the engine's only I/O: one directory scan, never
// repeated once the candidate tables are built. Files are read in name
// order so the pool, and everything downstream of it, is deterministic.
func LoadPool(dir string) ([]FingerprintedDistribution, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan distribution metadata: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	pool := make([]FingerprintedDistribution, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read distribution metadata %s: %w", path, err)
		}
		dist, err := ParseDistribution(data, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		pool = append(pool, dist)
	}
	return pool, nil
}
