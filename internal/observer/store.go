package observer

import (
	"context"
	"database/sql"

	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/models"
	"github.com/dotcommander/errtrap/internal/store"
)

// Store persists each occurrence to the occurrences table.
type Store struct {
	db            *sql.DB
	preprocessors []format.Preprocessor
}

// NewStore returns a Store writing to db.
func NewStore(db *sql.DB, preprocessors ...format.Preprocessor) *Store {
	return &Store{db: db, preprocessors: preprocessors}
}

func (*Store) Name() string { return "store" }

func (s *Store) Notify(ctx context.Context, ec *models.ErrorContext) error {
	summary := format.Summary(ec.Severity(), ec.Message(), s.preprocessors...)
	return store.InsertOccurrence(ctx, s.db, models.NewOccurrence(ec, summary))
}
