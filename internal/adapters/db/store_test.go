package db_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go.remake.sh/remake/internal/adapters/db"
	"go.remake.sh/remake/internal/core/domain"
)

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".remake")
	s, err := db.NewStore(path)
	require.NoError(t, err)

	out := domain.NewTarget("out")
	s.RegisterGroup(domain.Targets{out}, domain.Targets{domain.NewTarget("main.c")})
	s.AddDynamicDep(out, domain.NewTarget("config.h"))
	require.NoError(t, s.Save())

	reloaded, err := db.NewStore(path)
	require.NoError(t, err)
	group, ok := reloaded.Group(out)
	require.True(t, ok)
	require.Equal(t, []string{"config.h", "main.c"}, group.SortedDeps().Strings())
}

func TestStore_RegisterGroupMergesExistingDynamicDeps(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".remake")
	s, err := db.NewStore(path)
	require.NoError(t, err)

	out := domain.NewTarget("out")
	s.RegisterGroup(domain.Targets{out}, domain.Targets{domain.NewTarget("a.c")})
	s.AddDynamicDep(out, domain.NewTarget("a.h"))
	s.RegisterGroup(domain.Targets{out}, domain.Targets{domain.NewTarget("b.c")})

	group, ok := s.Group(out)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"a.c", "a.h", "b.c"}, group.SortedDeps().Strings())
}

func TestStore_LoadReaderReturnsFirstLineDeps(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".remake")
	s, err := db.NewStore(path)
	require.NoError(t, err)

	r := strings.NewReader("out : main.c util.c\nother : z.c\n")
	firstDeps, err := s.LoadReader(r)
	require.NoError(t, err)
	require.Equal(t, []string{"main.c", "util.c"}, firstDeps.Strings())

	group, ok := s.Group(domain.NewTarget("other"))
	require.True(t, ok)
	require.Equal(t, []string{"z.c"}, group.SortedDeps().Strings())
}

func TestStore_LoadReaderRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".remake")
	s, err := db.NewStore(path)
	require.NoError(t, err)

	_, err = s.LoadReader(strings.NewReader("out main.c\n"))
	require.Error(t, err)
}
