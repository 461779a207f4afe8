package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetDBPath resolves the database path.
// Order of precedence:
// 1) CLI override (e.g. --db-path)
// 2) Environment variable: ERRTRAP_DB_PATH
// 3) config.yaml: db_path
// 4) Default: ~/.config/errtrap/errtrap.db
// The parent directory is created if missing.
func GetDBPath() (string, error) {
	path, _, err := ResolveDBPathDetailed()
	return path, err
}

// ResolveDBPathDetailed returns the resolved DB path along with the source of that decision.
// This is for debugging/reporting; normal code should use GetDBPath.
func ResolveDBPathDetailed() (path string, source string, err error) {
	if override := getDBPathOverride(); override != "" {
		resolved, ensureErr := EnsureDBDir(override)
		return resolved, "cli(--db-path)", ensureErr
	}

	if envPath := os.Getenv("ERRTRAP_DB_PATH"); envPath != "" {
		resolved, ensureErr := EnsureDBDir(envPath)
		return resolved, "env(ERRTRAP_DB_PATH)", ensureErr
	}

	cfg, err := LoadSettings()
	if err != nil {
		return "", "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DBPath != "" {
		resolved, ensureErr := EnsureDBDir(cfg.DBPath)
		return resolved, fmt.Sprintf("config(%s)", settingsSource), ensureErr
	}

	configDir, err := ConfigDir()
	if err != nil {
		return "", "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	resolved, err := EnsureDBDir(filepath.Join(configDir, "errtrap.db"))
	return resolved, "default(~/.config/errtrap/errtrap.db)", err
}

// EnsureDBDir expands a leading "~/" and creates the parent directory.
func EnsureDBDir(dbPath string) (string, error) {
	expanded, err := ExpandHome(dbPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return expanded, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand home: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
