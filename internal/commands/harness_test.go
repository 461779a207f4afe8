package commands

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/errtrap/internal/app"
)

// harness runs the CLI in-process against a temporary HOME, config and
// database.
type harness struct {
	t          *testing.T
	home       string
	configPath string
	dbPath     string
}

func newHarness(t *testing.T, config string) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		t:          t,
		home:       filepath.Join(dir, "home"),
		configPath: filepath.Join(dir, "config.yaml"),
		dbPath:     filepath.Join(dir, "errtrap.db"),
	}
	require.NoError(t, os.MkdirAll(h.home, 0o755))
	require.NoError(t, os.WriteFile(h.configPath, []byte(config), 0o600))

	t.Setenv("HOME", h.home)
	t.Setenv("ERRTRAP_CONFIG", "")
	t.Setenv("ERRTRAP_DIAGNOSTIC", "")
	t.Setenv("ERRTRAP_DB_PATH", "")
	t.Setenv("ERRTRAP_PRETTY_JSON", "0")
	resetApp()
	t.Cleanup(resetApp)
	return h
}

func resetApp() {
	app.Reload()
	app.SetConfigPathOverride("")
	app.SetDBPathOverride("")
}

// run executes errtrap with --config and --db-path set and returns stdout.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	app.Reload()
	root := newRootCmd("test")
	root.SetArgs(append([]string{"--config", h.configPath, "--db-path", h.dbPath}, args...))
	var err error
	out := captureStdout(h.t, func() { err = root.Execute() })
	return out, err
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	original := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = original }()

	done := make(chan []byte, 1)
	go func() {
		b, _ := io.ReadAll(r)
		done <- b
	}()

	fn()

	require.NoError(t, w.Close())
	b := <-done
	require.NoError(t, r.Close())
	return string(b)
}

// mustJSON parses JSON output and returns map[string]any.
func mustJSON(t *testing.T, output string) map[string]any {
	t.Helper()
	output = strings.TrimSpace(output)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &m), "failed to parse JSON: %s", output)
	return m
}

// requireSuccess asserts the JSON envelope has success=true and returns data.
func requireSuccess(t *testing.T, output string) map[string]any {
	t.Helper()
	m := mustJSON(t, output)
	require.Equal(t, true, m["success"], "expected success=true, got: %s", output)
	data, _ := m["data"].(map[string]any)
	return data
}
