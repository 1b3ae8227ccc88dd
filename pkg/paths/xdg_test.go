package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGcpdHomeTakesPrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GCPD_HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "/elsewhere")

	assert.Equal(t, filepath.Join(home, "config"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state"), StateDir())
	assert.Equal(t, filepath.Join(home, "cache"), CacheDir())
}

func TestXDGDirs(t *testing.T) {
	t.Setenv("GCPD_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	t.Setenv("XDG_CACHE_HOME", "/xdg/cache")

	assert.Equal(t, "/xdg/config/gcpd", ConfigDir())
	assert.Equal(t, "/xdg/state/gcpd", StateDir())
	assert.Equal(t, "/xdg/state/gcpd/run/release__2.0.pid", PidFilePath("release/2.0"))
	assert.Equal(t, "/xdg/cache/gcpd/mirrors/app", MirrorDir("app"))
}
