package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dotcommander/errtrap/internal/models"
)

// MaxListLimit caps ListOccurrences.
const MaxListLimit = 1000

// InsertOccurrence stores o. Inserting the same id twice is a no-op.
func InsertOccurrence(ctx context.Context, db *sql.DB, o models.Occurrence) error {
	if o.ID == "" {
		return errors.New("occurrence id is required")
	}
	return RetryWithBackoff(ctx, func() error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO occurrences (
				id, kind, severity, code, message, type_name, file, line,
				method, uri, host, summary, causes, occurred_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			o.ID, string(o.Kind), o.Severity, o.Code, o.Message, o.TypeName, o.File, o.Line,
			o.Method, o.URI, o.Host, o.Summary, o.Causes, o.OccurredAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert occurrence: %w", err)
		}
		return nil
	})
}

// ListOccurrencesParams filters ListOccurrences.
type ListOccurrencesParams struct {
	Kind  models.Kind
	Since time.Time
	Limit int
}

// ListOccurrences returns occurrences newest first.
func ListOccurrences(ctx context.Context, db *sql.DB, p ListOccurrencesParams) ([]models.Occurrence, error) {
	limit := p.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `
		SELECT id, kind, severity, code, message, type_name, file, line,
		       method, uri, host, summary, causes, occurred_at
		FROM occurrences
		WHERE 1 = 1`
	var args []any
	if p.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(p.Kind))
	}
	if !p.Since.IsZero() {
		query += ` AND occurred_at >= ?`
		args = append(args, p.Since.UTC())
	}
	query += ` ORDER BY occurred_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Occurrence
	for rows.Next() {
		var (
			o    models.Occurrence
			kind string
		)
		if err := rows.Scan(
			&o.ID, &kind, &o.Severity, &o.Code, &o.Message, &o.TypeName, &o.File, &o.Line,
			&o.Method, &o.URI, &o.Host, &o.Summary, &o.Causes, &o.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		o.Kind = models.Kind(kind)
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountOccurrences counts stored occurrences, optionally of one kind.
func CountOccurrences(ctx context.Context, db *sql.DB, kind models.Kind) (int64, error) {
	query := `SELECT COUNT(*) FROM occurrences`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	var n int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count occurrences: %w", err)
	}
	return n, nil
}
