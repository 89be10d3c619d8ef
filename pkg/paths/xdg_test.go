package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPantryHomeOverridesEverything(t *testing.T) {
	root := t.TempDir()
	t.Setenv("PANTRY_HOME", root)
	t.Setenv("XDG_CONFIG_HOME", "/elsewhere")

	assert.Equal(t, filepath.Join(root, "config"), ConfigDir())
	assert.Equal(t, filepath.Join(root, "data"), DataDir())
	assert.Equal(t, filepath.Join(root, "state"), StateDir())
	assert.Equal(t, filepath.Join(root, "run", "pantryd.sock"), SocketPath())
	assert.Equal(t, filepath.Join(root, "state", "pantryd.pid"), PidFilePath())
	assert.Equal(t, filepath.Join(root, "state", "logs"), LogDir())

	require.NoError(t, EnsureDirs())
	for _, dir := range []string{ConfigDir(), DataDir(), StateDir(), RuntimeDir(), LogDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestXDGVariables(t *testing.T) {
	t.Setenv("PANTRY_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	assert.Equal(t, "/xdg/config/pantry", ConfigDir())
	assert.Equal(t, "/xdg/data/pantry", DataDir())
	assert.Equal(t, "/run/user/1000/pantry/pantryd.sock", SocketPath())
}
