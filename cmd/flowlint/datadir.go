// ABOUTME: XDG-based data and config directory resolution for the flowlint CLI.
// ABOUTME: Checks XDG_DATA_HOME / XDG_CONFIG_HOME, falls back to ~/.local/share/flowlint and ~/.config/flowlint.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultDataDir returns the directory holding the run history database.
func defaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// defaultConfigDir returns the directory searched for the user-level config.yaml.
func defaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

func xdgDir(env string, fallback ...string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, "flowlint"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, "flowlint")...), nil
}

// resolveDataDir returns override when set, otherwise the XDG default.
func resolveDataDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return defaultDataDir()
}
