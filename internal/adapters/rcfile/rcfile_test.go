package rcfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.remake.sh/remake/internal/adapters/rcfile"
)

func TestLoad_MissingFileYieldsZeroConfig(t *testing.T) {
	cfg, err := rcfile.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &rcfile.Config{}, cfg)
}

func TestLoad_ParsesKnownFields(t *testing.T) {
	tmp := t.TempDir()
	contents := "jobs: 4\nkeep_going: true\nsilent: true\nrulefile: build.mk\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmp, rcfile.FileName), []byte(contents), 0o644))

	cfg, err := rcfile.Load(tmp)
	require.NoError(t, err)
	assert.Equal(t, &rcfile.Config{Jobs: 4, KeepGoing: true, Silent: true, Rulefile: "build.mk"}, cfg)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, rcfile.FileName), []byte("jobs: [this is not an int\n"), 0o644))

	_, err := rcfile.Load(tmp)
	require.Error(t, err)
}
