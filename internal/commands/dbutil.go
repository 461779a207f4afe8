package commands

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dotcommander/errtrap/internal/app"
	"github.com/dotcommander/errtrap/internal/handler"
	"github.com/dotcommander/errtrap/internal/output"
	"github.com/dotcommander/errtrap/internal/store"
	"github.com/dotcommander/errtrap/internal/wiring"
)

// DB is an alias so command code doesn't need to import database/sql.
type DB = sql.DB

// printedError marks an error whose JSON envelope is already on stdout.
type printedError struct {
	err error
}

func (e printedError) Error() string { return "error already printed" }

func (e printedError) Unwrap() error { return e.err }

func openDB() (*DB, func(), error) {
	dbPath, err := app.GetDBPath()
	if err != nil {
		return nil, nil, err
	}

	db, err := store.InitDBWithPath(dbPath)
	if err != nil {
		return nil, nil, err
	}

	return db, func() { _ = db.Close() }, nil
}

func withDB(fn func(db *DB) error) error {
	db, closeDB, err := openDB()
	if err != nil {
		return cmdErr(err)
	}
	defer closeDB()

	if err := fn(db); err != nil {
		return cmdErr(err)
	}
	return nil
}

// cmdErr prints the error envelope, logs, and returns a printedError.
func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	var pe printedError
	if errors.As(err, &pe) {
		return err
	}
	_ = output.PrintError(err)
	slog.Error("command error", "error", err.Error())
	return printedError{err: err}
}

// loadSettings reads the config and applies --diagnostic.
func loadSettings(cmd *cobra.Command) (app.Settings, error) {
	s, err := app.LoadSettings()
	if err != nil {
		return app.Settings{}, err
	}
	if on, _ := cmd.Flags().GetBool("diagnostic"); on {
		s.DiagnosticMode = true
	}
	return s, nil
}

// buildHandler loads settings and wires the pipeline.
func buildHandler(cmd *cobra.Command, deps wiring.Deps) (*handler.Handler, app.Settings, func() error, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, app.Settings{}, nil, err
	}
	h, closeFn, err := wiring.Build(s, deps)
	if err != nil {
		return nil, app.Settings{}, nil, err
	}
	return h, s, closeFn, nil
}
