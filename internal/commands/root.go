// Package commands implements the errtrap CLI.
package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/errtrap/internal/app"
	"github.com/dotcommander/errtrap/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	err := newRootCmd(version).Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "errtrap",
		Short:         "Fail-safe error display pipeline: render, serve and inspect handled errors",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Wire --config and --db-path into the app-level resolvers.
			if path, err := cmd.Flags().GetString("config"); err == nil && path != "" {
				app.SetConfigPathOverride(path)
			}
			if dbPath, err := cmd.Flags().GetString("db-path"); err == nil && dbPath != "" {
				app.SetDBPathOverride(dbPath)
			}
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "Config file path (default: $ERRTRAP_CONFIG, then the standard lookup)")
	root.PersistentFlags().String("db-path", "", "Override database path")
	root.PersistentFlags().Bool("diagnostic", false, "Force diagnostic mode on (default: config or $ERRTRAP_DIAGNOSTIC)")
	root.Flags().BoolP("version", "v", false, "version for errtrap")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newOccurrencesCmd())
	root.AddCommand(newConfigCmd())
	return root
}
