package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDataDirUsesXDGAndCreatesIt(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	dir, err := DataDir()
	require.NoError(t, err)
	require.Equal(t, "siftd", filepath.Base(dir))
	require.DirExists(t, dir)
}

func TestMainDBAndEmbeddingsDBPathsDiffer(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	db, err := MainDBPath()
	require.NoError(t, err)
	embed, err := EmbeddingsDBPath()
	require.NoError(t, err)
	require.NotEqual(t, db, embed)
	require.Equal(t, "siftd.db", filepath.Base(db))
	require.Equal(t, "embeddings.db", filepath.Base(embed))
}

func TestConfigFilePathUnderConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir, err := ConfigDir()
	require.NoError(t, err)
	path, err := ConfigFilePath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "config.toml"), path)
}

func TestDropInDirCreatesKindSubdir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir, err := DropInDir("queries")
	require.NoError(t, err)
	require.DirExists(t, dir)
	require.Equal(t, "queries", filepath.Base(dir))
}

func TestSessionIDPathIsStablePerWorkspace(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	a1, err := SessionIDPath("/home/user/project-a")
	require.NoError(t, err)
	a2, err := SessionIDPath("/home/user/project-a")
	require.NoError(t, err)
	require.Equal(t, a1, a2, "same workspace path must resolve to the same session-id file")

	b, err := SessionIDPath("/home/user/project-b")
	require.NoError(t, err)
	require.NotEqual(t, a1, b)
}
