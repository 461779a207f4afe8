package observer

import (
	"context"
	"log/slog"

	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/models"
)

// Slog writes one structured record per occurrence at the level mapped from
// its severity.
type Slog struct {
	logger        *slog.Logger
	preprocessors []format.Preprocessor
	description   bool
}

// SlogOption configures a Slog observer.
type SlogOption func(*Slog)

// WithDescription attaches the multi-line description as an attribute.
func WithDescription(on bool) SlogOption {
	return func(s *Slog) { s.description = on }
}

// WithPreprocessors sets the summary preprocessors.
func WithPreprocessors(pre ...format.Preprocessor) SlogOption {
	return func(s *Slog) { s.preprocessors = pre }
}

// NewSlog returns a Slog observer. A nil logger means slog.Default().
func NewSlog(logger *slog.Logger, opts ...SlogOption) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Slog{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (*Slog) Name() string { return "slog" }

func (s *Slog) Notify(ctx context.Context, ec *models.ErrorContext) error {
	snap := ec.Snapshot()
	attrs := []slog.Attr{
		slog.String("error_id", ec.ID()),
		slog.String("kind", string(ec.Kind())),
		slog.String("severity", ec.Severity().String()),
	}
	if ec.TypeName() != "" {
		attrs = append(attrs, slog.String("type", ec.TypeName()))
	}
	if ec.Code() != 0 {
		attrs = append(attrs, slog.Int("code", ec.Code()))
	}
	if ec.HasSource() {
		attrs = append(attrs, slog.String("file", ec.Source().File), slog.Int("line", ec.Source().Line))
	}
	if snap.URI != "" {
		attrs = append(attrs, slog.String("uri", snap.URI))
	}
	if snap.Method != "" {
		attrs = append(attrs, slog.String("method", snap.Method))
	}
	if n := len(ec.Causes()); n > 0 {
		attrs = append(attrs, slog.Int("causes", n))
	}
	if s.description {
		attrs = append(attrs, slog.String("description", format.Description(ec, format.DescriptionOptions{IncludeStackTrace: true}, "\n")))
	}

	s.logger.LogAttrs(ctx, ec.Severity().SlogLevel(), format.Summary(ec.Severity(), ec.Message(), s.preprocessors...), attrs...)
	return nil
}
