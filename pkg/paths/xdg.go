// Package paths provides XDG-compliant path resolution for gcpd.
//
// Resolution order:
// 1. GCPD_HOME (portable root) → $GCPD_HOME/{config,state,cache}
// 2. XDG env vars → $XDG_*_HOME/gcpd
// 3. Platform defaults → ~/.config/gcpd, ~/.local/state/gcpd, ~/.cache/gcpd
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "gcpd"

func resolveHome(kind, xdgVar string, fallback ...string) string {
	if home := os.Getenv("GCPD_HOME"); home != "" {
		return filepath.Join(home, kind)
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
	}
	return ""
}

// ConfigDir returns the gcpd configuration directory.
func ConfigDir() string {
	return resolveHome("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir returns the gcpd state directory, used for pid files and logs.
func StateDir() string {
	return resolveHome("state", "XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the gcpd cache directory, used for mirrors.
func CacheDir() string {
	return resolveHome("cache", "XDG_CACHE_HOME", ".cache")
}

// PidFilePath returns the PID file guarding the instance that serves branch.
func PidFilePath(branch string) string {
	return filepath.Join(StateDir(), "run", sanitize(branch)+".pid")
}

// MirrorDir returns the default mirror location for a repository name.
func MirrorDir(name string) string {
	return filepath.Join(CacheDir(), "mirrors", sanitize(name))
}

// sanitize flattens a branch or repository name into one path element.
func sanitize(name string) string {
	replacer := strings.NewReplacer("/", "__", "\\", "__", ":", "_", " ", "_")
	return replacer.Replace(name)
}
