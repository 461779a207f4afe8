package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/errtrap/internal/models"
	"github.com/dotcommander/errtrap/internal/output"
	"github.com/dotcommander/errtrap/internal/store"
)

func newOccurrencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "occurrences",
		Short: "Inspect stored error occurrences",
	}
	cmd.AddCommand(newOccurrencesListCmd())
	return cmd
}

func newOccurrencesListCmd() *cobra.Command {
	var (
		kind  string
		limit int
		since time.Duration
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored occurrences, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := store.ListOccurrencesParams{Limit: limit}
			if kind != "" {
				k, ok := models.ParseKind(kind)
				if !ok {
					return cmdErr(fmt.Errorf("unknown --kind %q", kind))
				}
				params.Kind = k
			}
			if limit < 0 || limit > store.MaxListLimit {
				return cmdErr(fmt.Errorf("--limit must be between 0 and %d", store.MaxListLimit))
			}
			if since > 0 {
				params.Since = time.Now().Add(-since)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			type resp struct {
				Count       int                 `json:"count"`
				Total       int64               `json:"total"`
				Occurrences []models.Occurrence `json:"occurrences"`
			}
			return withDB(func(db *DB) error {
				items, err := store.ListOccurrences(ctx, db, params)
				if err != nil {
					return err
				}
				total, err := store.CountOccurrences(ctx, db, params.Kind)
				if err != nil {
					return err
				}
				if items == nil {
					items = []models.Occurrence{}
				}
				return output.PrintSuccess(resp{Count: len(items), Total: total, Occurrences: items})
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by kind: runtime|throwable|compile")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max occurrences to return (0 means the maximum)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only occurrences newer than this (e.g. 1h)")
	return cmd
}
