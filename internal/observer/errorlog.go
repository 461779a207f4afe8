package observer

import (
	"context"
	"io"
	"sync"

	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/models"
)

// ErrorLog appends one plain "errtrap: PRIORITY: message" line per
// occurrence to a writer, typically the process error log.
type ErrorLog struct {
	mu            sync.Mutex
	w             io.Writer
	preprocessors []format.Preprocessor
}

// NewErrorLog returns an ErrorLog writing to w.
func NewErrorLog(w io.Writer, preprocessors ...format.Preprocessor) *ErrorLog {
	return &ErrorLog{w: w, preprocessors: preprocessors}
}

func (*ErrorLog) Name() string { return "errorlog" }

func (l *ErrorLog) Notify(_ context.Context, ec *models.ErrorContext) error {
	line := "errtrap: " + format.Summary(ec.Severity(), ec.Message(), l.preprocessors...) + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := io.WriteString(l.w, line)
	return err
}
