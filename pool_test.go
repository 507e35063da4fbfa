package wheelhouse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDistribution(t *testing.T) {
	doc := []byte(`
name: Lib_A
version: "1.2"
location: libA-1.2-py3-none-any.whl
requires:
  - libB>=1.0
  - libC; extra == "cli"
requires_interpreter: ">=3.8"
`)
	dist, err := ParseDistribution(doc, "/bundles/app/dists")
	require.NoError(t, err)

	assert.Equal(t, "lib-a", dist.Name)
	assert.Equal(t, "1.2", dist.Version.String())
	assert.Equal(t, "/bundles/app/dists/libA-1.2-py3-none-any.whl", dist.Location)
	assert.Len(t, dist.Requires, 2)
	assert.Equal(t, ">=3.8", dist.RequiresInterpreter)
	assert.Equal(t, FormatWheel, dist.Format)
	// No declared fingerprint: one is computed from the metadata bytes.
	assert.Equal(t, digest.FromBytes(doc), dist.Fingerprint)
}

func TestParseDistributionExplicitFingerprint(t *testing.T) {
	want := digest.FromString("archive contents")
	doc := []byte(`
name: libA
version: "1.0"
location: /abs/libA-1.0-py3-none-any.whl
format: wheel
fingerprint: ` + want.String() + "\n")

	dist, err := ParseDistribution(doc, "/ignored")
	require.NoError(t, err)
	assert.Equal(t, want, dist.Fingerprint)
	// Absolute locations are kept as is.
	assert.Equal(t, "/abs/libA-1.0-py3-none-any.whl", dist.Location)
}

func TestParseDistributionInstalledFormat(t *testing.T) {
	doc := []byte(`
name: libA
version: "1.0"
location: site/libA
format: installed
`)
	dist, err := ParseDistribution(doc, "/base")
	require.NoError(t, err)
	assert.Equal(t, FormatInstalled, dist.Format)
	assert.Equal(t, "/base/site/libA", dist.Location)
}

func TestParseDistributionErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "name: [\n"},
		{"missing name", "version: \"1.0\"\nlocation: a.whl\n"},
		{"missing location", "name: libA\nversion: \"1.0\"\n"},
		{"bad version", "name: libA\nversion: nope\nlocation: a.whl\n"},
		{"bad format", "name: libA\nversion: \"1.0\"\nlocation: a.whl\nformat: zip\n"},
		{"bad requirement", "name: libA\nversion: \"1.0\"\nlocation: a.whl\nrequires:\n  - '>=1'\n"},
		{"bad fingerprint", "name: libA\nversion: \"1.0\"\nlocation: a.whl\nfingerprint: nope\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDistribution([]byte(tt.doc), "")
			assert.Error(t, err)
		})
	}
}

func TestLoadPool(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	write("b.yaml", "name: libB\nversion: \"1.0\"\nlocation: libB-1.0-py3-none-any.whl\n")
	write("a.yaml", "name: libA\nversion: \"1.0\"\nlocation: libA-1.0-py3-none-any.whl\n")
	write("c.yml", "name: libC\nversion: \"1.0\"\nlocation: libC-1.0-py3-none-any.whl\n")
	write("README.md", "not metadata\n")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	pool, err := LoadPool(dir)
	require.NoError(t, err)
	require.Len(t, pool, 3)
	// Files are read in name order, so the pool order is stable.
	assert.Equal(t, "liba", pool[0].Name)
	assert.Equal(t, "libb", pool[1].Name)
	assert.Equal(t, "libc", pool[2].Name)
	assert.Equal(t, filepath.Join(dir, "libA-1.0-py3-none-any.whl"), pool[0].Location)
}

func TestLoadPoolErrors(t *testing.T) {
	_, err := LoadPool(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: [\n"), 0o644))
	_, err = LoadPool(dir)
	assert.Error(t, err)
}
