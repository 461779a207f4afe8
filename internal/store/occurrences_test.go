package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/errtrap/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDBWithPath(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func occurrence(id string, kind models.Kind, at time.Time) models.Occurrence {
	return models.Occurrence{
		ID:         id,
		Kind:       kind,
		Severity:   "error",
		Message:    "msg " + id,
		File:       "a.go",
		Line:       3,
		URI:        "/x",
		Summary:    "ERR: msg " + id,
		Causes:     1,
		OccurredAt: at,
	}
}

func TestInsertAndListOccurrences(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, InsertOccurrence(ctx, db, occurrence("a", models.KindRuntimeError, base)))
	require.NoError(t, InsertOccurrence(ctx, db, occurrence("b", models.KindCompileError, base.Add(time.Minute))))
	require.NoError(t, InsertOccurrence(ctx, db, occurrence("c", models.KindRuntimeError, base.Add(2*time.Minute))))
	// Duplicate id is ignored.
	require.NoError(t, InsertOccurrence(ctx, db, occurrence("a", models.KindRuntimeError, base)))

	all, err := ListOccurrences(ctx, db, ListOccurrencesParams{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "c", all[0].ID)
	require.Equal(t, "a", all[2].ID)
	require.Equal(t, "a.go", all[2].File)
	require.Equal(t, 3, all[2].Line)
	require.True(t, base.Equal(all[2].OccurredAt))

	runtimeOnly, err := ListOccurrences(ctx, db, ListOccurrencesParams{Kind: models.KindRuntimeError, Limit: 1})
	require.NoError(t, err)
	require.Len(t, runtimeOnly, 1)
	require.Equal(t, "c", runtimeOnly[0].ID)

	n, err := CountOccurrences(ctx, db, "")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	n, err = CountOccurrences(ctx, db, models.KindCompileError)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestInsertOccurrence_RequiresID(t *testing.T) {
	db := openTestDB(t)
	require.Error(t, InsertOccurrence(context.Background(), db, models.Occurrence{}))
}
