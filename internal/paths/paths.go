// Package paths resolves the on-disk layout described in spec.md §6.1.
// It is deliberately thin: spec.md treats XDG resolution as an external
// collaborator, so this package only implements the handful of path
// joins the rest of the system needs and none of the config-loading
// logic (that lives in internal/config).
package paths

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

const appName = "siftd"

func xdgOr(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, fallback)
}

// DataDir returns $XDG_DATA_HOME/siftd, creating it if necessary.
func DataDir() (string, error) {
	dir := filepath.Join(xdgOr("XDG_DATA_HOME", ".local/share"), appName)
	return dir, os.MkdirAll(dir, 0o755)
}

// ConfigDir returns $XDG_CONFIG_HOME/siftd.
func ConfigDir() (string, error) {
	dir := filepath.Join(xdgOr("XDG_CONFIG_HOME", ".config"), appName)
	return dir, os.MkdirAll(dir, 0o755)
}

// StateDir returns $XDG_STATE_HOME/siftd.
func StateDir() (string, error) {
	dir := filepath.Join(xdgOr("XDG_STATE_HOME", ".local/state"), appName)
	return dir, os.MkdirAll(dir, 0o755)
}

// MainDBPath returns the path to the main relational store.
func MainDBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".db"), nil
}

// EmbeddingsDBPath returns the path to the derived embeddings database.
func EmbeddingsDBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "embeddings.db"), nil
}

// ConfigFilePath returns the path to the optional TOML config file.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DropInDir returns the directory for a drop-in plugin kind
// ("adapters", "formatters", "queries").
func DropInDir(kind string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	full := filepath.Join(dir, kind)
	return full, os.MkdirAll(full, 0o755)
}

// SessionIDPath returns the live-session id pointer file for a workspace
// path: $XDG_STATE_HOME/siftd/sessions/<sha256(workspace_path)[:12]>/session-id.
func SessionIDPath(workspacePath string) (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(workspacePath))
	key := hex.EncodeToString(sum[:])[:12]
	sessionDir := filepath.Join(dir, "sessions", key)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(sessionDir, "session-id"), nil
}
