package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHomeRespectsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ORC_HOME", dir)
	home, err := Home()
	require.NoError(t, err)
	require.Equal(t, dir, home)
}

func TestHomeFallsBackToCWD(t *testing.T) {
	t.Setenv("ORC_HOME", "")
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	t.Chdir(dir)
	t.Cleanup(func() { t.Chdir(cwd) })

	home, err := Home()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, ".orc"), home)
	info, err := os.Stat(home)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
