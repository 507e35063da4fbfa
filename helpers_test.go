package wheelhouse

import (
	"fmt"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/require"

	"github.com/wheelhouse-dev/wheelhouse/pyver"
	"github.com/wheelhouse-dev/wheelhouse/requirement"
	"github.com/wheelhouse-dev/wheelhouse/tags"
)

// testPlatform is a fully-specified cp311 linux target. Supported tags
// are ordered most specific first.
func testPlatform(t *testing.T) *CompletePlatform {
	t.Helper()
	p, err := NewCompletePlatform("cp311-linux-x86_64",
		[]tags.Tag{
			{Interpreter: "cp311", ABI: "cp311", Platform: "manylinux_2_17_x86_64"},
			{Interpreter: "cp311", ABI: "abi3", Platform: "manylinux_2_17_x86_64"},
			{Interpreter: "cp311", ABI: "none", Platform: "any"},
			{Interpreter: "py3", ABI: "none", Platform: "any"},
		},
		map[string]string{
			"python_version":      "3.11",
			"python_full_version": "3.11.9",
			"sys_platform":        "linux",
			"os_name":             "posix",
			"platform_machine":    "x86_64",
			"implementation_name": "cpython",
		})
	require.NoError(t, err)
	return p
}

// wheel builds a wheel candidate whose location encodes the given tag.
func wheel(t *testing.T, name, version, tag string, requires ...string) FingerprintedDistribution {
	t.Helper()
	reqs, err := requirement.ParseAll(requires)
	require.NoError(t, err)
	location := fmt.Sprintf("/dists/%s-%s-%s.whl", name, version, tag)
	return FingerprintedDistribution{
		Distribution: Distribution{
			Name:     requirement.CanonicalName(name),
			Version:  pyver.MustParse(version),
			Location: location,
			Requires: reqs,
			Format:   FormatWheel,
		},
		Fingerprint: digest.FromString(location),
	}
}

// installed builds an already-expanded directory candidate.
func installed(t *testing.T, name, version string, requires ...string) FingerprintedDistribution {
	t.Helper()
	reqs, err := requirement.ParseAll(requires)
	require.NoError(t, err)
	location := fmt.Sprintf("/site/%s-%s", name, version)
	return FingerprintedDistribution{
		Distribution: Distribution{
			Name:     requirement.CanonicalName(name),
			Version:  pyver.MustParse(version),
			Location: location,
			Requires: reqs,
			Format:   FormatInstalled,
		},
		Fingerprint: digest.FromString(location),
	}
}

// manifestFor declares top-level requirements with default policy.
func manifestFor(t *testing.T, requires ...string) *Manifest {
	t.Helper()
	reqs, err := requirement.ParseAll(requires)
	require.NoError(t, err)
	return &Manifest{Requirements: reqs}
}

// distNames projects a selection onto its project names, in order.
func distNames(dists []Distribution) []string {
	names := make([]string, 0, len(dists))
	for _, dist := range dists {
		names = append(names, dist.Name)
	}
	return names
}
