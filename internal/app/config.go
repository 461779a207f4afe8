package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/errtrap/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "errtrap"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# errtrap configuration
# Run: errtrap --help

# Show messages, locations and dumps to clients. Never enable in production.
# Can also be set via ERRTRAP_DIAGNOSTIC or --diagnostic.
diagnostic_mode: false

observer_timeout: 250ms
render_timeout: 500ms

display:
  - name: headers
    options:
      headers:
        Cache-Control: no-store
  - name: json
  - name: html
  - name: dump
  - name: fallback

observers:
  - name: slog
  - name: store

# Optional: override the SQLite database location.
# Can also be set via ERRTRAP_DB_PATH or --db-path.
# db_path: ~/.config/errtrap/errtrap.db
`
