package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeAppliesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, Initialize())
	require.Equal(t, "default", GetString("search.formatter"))
	require.Equal(t, 20, GetInt("search.limit"))
}

func TestEnvOverridesDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SIFTD_SEARCH_LIMIT", "7")
	require.NoError(t, Initialize())
	require.Equal(t, 7, GetInt("search.limit"))
}

func TestIsKnownKey(t *testing.T) {
	require.True(t, IsKnownKey("search.formatter"))
	require.False(t, IsKnownKey("not.a.real.key"))
}

func TestGetResolvesDottedKeyUnlikeAllSettings(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, Initialize())
	Set("embed.backend", "local")

	require.Equal(t, "local", Get("embed.backend"))

	// AllSettings nests dotted keys; indexing it with the flat dotted
	// string (a past bug in cmd/siftd's "config get") returns nothing.
	require.Nil(t, AllSettings()["embed.backend"])
}

func TestPersistWritesValuesBackAndInitializeRereadsThem(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, Initialize())

	Set("embed.backend", "local")
	Set("search.limit", 42)
	require.NoError(t, Persist())

	path, err := filepath.Abs(filepath.Join(dir, "siftd", "config.toml"))
	require.NoError(t, err)
	require.FileExists(t, path)

	// A fresh Initialize (as a new process would do) picks the
	// persisted values back up.
	require.NoError(t, Initialize())
	require.Equal(t, "local", GetString("embed.backend"))
	require.Equal(t, 42, GetInt("search.limit"))
}
