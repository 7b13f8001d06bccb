// Package fs resolves the directories stagehand keeps its state in.
package fs

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns the directory for durable state such as the
// discard trash. Uses XDG_DATA_HOME if set, otherwise falls back to
// ~/.local/share/stagehand.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "stagehand")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "stagehand")
}

// DefaultCacheDir returns the directory for disposable state such as debug
// logs. Uses XDG_CACHE_HOME if set, otherwise falls back to
// ~/.cache/stagehand.
func DefaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "stagehand")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "stagehand")
}
