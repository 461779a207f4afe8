package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dotcommander/errtrap/internal/format"
)

// Settings represents configuration loaded from config.yaml.
// Field names match snake_case YAML keys.
type Settings struct {
	DiagnosticMode       Flag                 `yaml:"diagnostic_mode"`
	ObserverTimeout      time.Duration        `yaml:"observer_timeout"`
	RenderTimeout        time.Duration        `yaml:"render_timeout"`
	SummaryPreprocessors []PreprocessorConfig `yaml:"summary_preprocessors"`
	Display              []StageConfig        `yaml:"display"`
	Observers            []ObserverConfig     `yaml:"observers"`
	DedupTTL             time.Duration        `yaml:"dedup_ttl"`
	DBPath               string               `yaml:"db_path"`
}

// PreprocessorConfig is one regex replacement applied to summary lines.
type PreprocessorConfig struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// StageConfig names one display strategy and its options.
type StageConfig struct {
	Name    string       `yaml:"name"`
	Options StageOptions `yaml:"options"`
}

// StageOptions are the per-strategy display options.
type StageOptions struct {
	Headers            map[string]string  `yaml:"headers"`
	IncludeStackTrace  bool               `yaml:"include_stack_trace"`
	IncludeRequestDump bool               `yaml:"include_request_dump"`
	IncludeServerDump  bool               `yaml:"include_server_dump"`
	IncludeSessionKeys format.SessionKeys `yaml:"include_session_keys"`
}

// ObserverConfig names one observer and its options.
type ObserverConfig struct {
	Name    string          `yaml:"name"`
	Options ObserverOptions `yaml:"options"`
}

// ObserverOptions are the per-observer options. Not every field applies to
// every observer.
type ObserverOptions struct {
	DBPath      string `yaml:"db_path"`
	Description bool   `yaml:"description"`
}

const (
	defaultObserverTimeout = 250 * time.Millisecond
	defaultRenderTimeout   = 500 * time.Millisecond
)

// DefaultSettings returns the values used for keys a config file omits.
func DefaultSettings() Settings {
	return Settings{
		ObserverTimeout: defaultObserverTimeout,
		RenderTimeout:   defaultRenderTimeout,
	}
}

// settingsOnce, settings, settingsSource and settingsErr implement the
// sync.Once lazy-load singleton for config. The override pair holds the
// CLI --config and --db-path values.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce   sync.Once
	settings       Settings
	settingsSource string
	settingsErr    error

	overrideMu         sync.RWMutex
	configPathOverride string
	dbPathOverride     string
)

// SetConfigPathOverride sets a process-wide config file path.
// Intended for CLI flag support (e.g. --config).
func SetConfigPathOverride(path string) {
	overrideMu.Lock()
	configPathOverride = path
	overrideMu.Unlock()
}

// SetDBPathOverride sets a process-wide database path override.
// Intended for CLI flag support (e.g. --db-path).
func SetDBPathOverride(path string) {
	overrideMu.Lock()
	dbPathOverride = path
	overrideMu.Unlock()
}

func getConfigPathOverride() string {
	overrideMu.RLock()
	defer overrideMu.RUnlock()
	return configPathOverride
}

func getDBPathOverride() string {
	overrideMu.RLock()
	defer overrideMu.RUnlock()
	return dbPathOverride
}

// ConfigCandidates lists the config files in lookup order (first found wins):
// 1) --config or $ERRTRAP_CONFIG (an explicit path must exist)
// 2) ~/.config/errtrap/config.yaml
// 3) /etc/errtrap/config.yaml
// 4) ./config.yaml
func ConfigCandidates() ([]string, error) {
	var out []string
	if p := getConfigPathOverride(); p != "" {
		out = append(out, p)
	} else if p := os.Getenv("ERRTRAP_CONFIG"); p != "" {
		out = append(out, p)
	}
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return append(out,
		filepath.Join(dir, "config.yaml"),
		filepath.Join(string(os.PathSeparator), "etc", "errtrap", "config.yaml"),
		"config.yaml",
	), nil
}

// LoadSettings loads configuration once using the lookup order of
// ConfigCandidates, then applies ERRTRAP_DIAGNOSTIC. With no file present it
// returns DefaultSettings.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings, settingsSource, settingsErr = loadSettings()
	})
	return settings, settingsErr
}

// Reload discards cached settings so the next LoadSettings reads the files
// again.
func Reload() {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	settingsOnce = sync.Once{}
	settings = Settings{}
	settingsSource = ""
	settingsErr = nil
}

// SettingsSource reports which file LoadSettings used, or "default".
func SettingsSource() (string, error) {
	if _, err := LoadSettings(); err != nil {
		return "", err
	}
	return settingsSource, nil
}

func loadSettings() (Settings, string, error) {
	candidates, err := ConfigCandidates()
	if err != nil {
		return Settings{}, "", err
	}
	explicit := getConfigPathOverride() != "" || os.Getenv("ERRTRAP_CONFIG") != ""

	s, source := DefaultSettings(), "default"
	for i, path := range candidates {
		loaded, err := loadSettingsFile(path)
		if err == nil {
			s, source = loaded, path
			break
		}
		if errors.Is(err, os.ErrNotExist) && !(explicit && i == 0) {
			continue
		}
		return Settings{}, "", fmt.Errorf("load config %s: %w", path, err)
	}

	if v := os.Getenv("ERRTRAP_DIAGNOSTIC"); v != "" {
		on, err := ParseFlag(v)
		if err != nil {
			return Settings{}, "", fmt.Errorf("ERRTRAP_DIAGNOSTIC: %w", err)
		}
		s.DiagnosticMode = Flag(on)
	}
	return s, source, nil
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
