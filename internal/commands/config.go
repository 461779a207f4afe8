package commands

import (
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dotcommander/errtrap/internal/app"
	"github.com/dotcommander/errtrap/internal/output"
	"github.com/dotcommander/errtrap/internal/wiring"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and locate configuration",
	}
	cmd.AddCommand(newConfigCheckCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Build the pipeline from config and report its stages",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, s, closeFn, err := buildHandler(cmd, wiring.Deps{Registerer: prometheus.NewRegistry()})
			if err != nil {
				return cmdErr(err)
			}
			defer func() { _ = closeFn() }()

			source, err := app.SettingsSource()
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Source          string   `json:"source"`
				DiagnosticMode  bool     `json:"diagnostic_mode"`
				Display         []string `json:"display"`
				Observers       []string `json:"observers"`
				ObserverTimeout string   `json:"observer_timeout"`
				RenderTimeout   string   `json:"render_timeout"`
				DedupTTL        string   `json:"dedup_ttl"`
			}
			return output.PrintSuccess(resp{
				Source:          source,
				DiagnosticMode:  bool(s.DiagnosticMode),
				Display:         h.Chain().Names(),
				Observers:       h.Registry().Names(),
				ObserverTimeout: s.ObserverTimeout.String(),
				RenderTimeout:   s.RenderTimeout.String(),
				DedupTTL:        s.DedupTTL.String(),
			})
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where settings and the database are resolved from",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := app.SettingsSource()
			if err != nil {
				return cmdErr(err)
			}
			candidates, err := app.ConfigCandidates()
			if err != nil {
				return cmdErr(err)
			}
			dbPath, dbSource, err := app.ResolveDBPathDetailed()
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Config     string   `json:"config"`
				Candidates []string `json:"candidates"`
				DBPath     string   `json:"db_path"`
				DBSource   string   `json:"db_source"`
			}
			return output.PrintSuccess(resp{Config: source, Candidates: candidates, DBPath: dbPath, DBSource: dbSource})
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml to the user config directory if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				return cmdErr(err)
			}
			dir, err := app.ConfigDir()
			if err != nil {
				return cmdErr(err)
			}
			type resp struct {
				Path string `json:"path"`
			}
			return output.PrintSuccess(resp{Path: filepath.Join(dir, "config.yaml")})
		},
	}
}
