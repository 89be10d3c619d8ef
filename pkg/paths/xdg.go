// Package paths provides XDG-compliant path resolution for Pantry.
//
// Resolution order:
// 1. PANTRY_HOME (portable root) → $PANTRY_HOME/{config,data,state,run}
// 2. XDG env vars → $XDG_*_HOME/pantry
// 3. Platform defaults → ~/.config/pantry, ~/.local/share/pantry, ~/.local/state/pantry
package paths

import (
	"os"
	"path/filepath"
)

const appName = "pantry"

// base resolves one XDG base directory. sub is the directory under
// PANTRY_HOME, xdgVar the override variable and fallback the path under $HOME.
func base(sub, xdgVar string, fallback ...string) string {
	if home := os.Getenv("PANTRY_HOME"); home != "" {
		return filepath.Join(home, sub)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
}

// ConfigDir returns the directory holding the global pantry.yml.
func ConfigDir() string {
	return base("config", "XDG_CONFIG_HOME", ".config")
}

// DataDir returns the Pantry data directory.
// The default diskv snapshot bucket lives here.
func DataDir() string {
	return base("data", "XDG_DATA_HOME", ".local", "share")
}

// StateDir returns the Pantry state directory.
// Used for the PID file and logs.
func StateDir() string {
	return base("state", "XDG_STATE_HOME", ".local", "state")
}

// RuntimeDir returns the directory for the daemon socket.
// Uses XDG_RUNTIME_DIR when available, falls back to StateDir.
func RuntimeDir() string {
	if home := os.Getenv("PANTRY_HOME"); home != "" {
		return filepath.Join(home, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// LogDir returns the directory the file log sink writes to.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// SocketPath returns the path to the pantry daemon unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "pantryd.sock")
}

// PidFilePath returns the path to the pantry daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "pantryd.pid")
}

// EnsureDirs creates all Pantry directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), DataDir(), StateDir(), RuntimeDir(), LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
