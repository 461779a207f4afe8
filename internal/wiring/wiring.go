// Package wiring assembles the display chain, the observer registry and the
// handler from loaded settings.
package wiring

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dotcommander/errtrap/internal/app"
	"github.com/dotcommander/errtrap/internal/display"
	"github.com/dotcommander/errtrap/internal/format"
	"github.com/dotcommander/errtrap/internal/handler"
	"github.com/dotcommander/errtrap/internal/observer"
	"github.com/dotcommander/errtrap/internal/store"
	"github.com/dotcommander/errtrap/pkg/dedup"
)

var (
	// ErrUnknownStrategy is returned for a display name with no constructor.
	ErrUnknownStrategy = errors.New("unknown display strategy")
	// ErrUnknownObserver is returned for an observer name with no constructor.
	ErrUnknownObserver = errors.New("unknown observer")
)

// dedupCapacity bounds the keys remembered per observer.
const dedupCapacity = 1024

// Deps are the process resources Build wires into observers. Zero values
// get defaults.
type Deps struct {
	Logger      *slog.Logger          // default slog.Default()
	FaultWriter io.Writer             // default os.Stderr
	ErrorLog    io.Writer             // default os.Stderr
	Registerer  prometheus.Registerer // default prometheus.DefaultRegisterer
	OpenDB      func(path string) (*sql.DB, error)
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.FaultWriter == nil {
		d.FaultWriter = os.Stderr
	}
	if d.ErrorLog == nil {
		d.ErrorLog = os.Stderr
	}
	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.OpenDB == nil {
		d.OpenDB = store.InitDBWithPath
	}
	return d
}

type strategyFactory func(opts display.Options, cfg app.StageOptions) display.Strategy

//nolint:gochecknoglobals // constructor tables are read-only
var strategyFactories = map[string]strategyFactory{
	"headers":  func(_ display.Options, cfg app.StageOptions) display.Strategy { return display.NewHeaders(cfg.Headers) },
	"json":     func(opts display.Options, _ app.StageOptions) display.Strategy { return display.NewJSON(opts) },
	"html":     func(opts display.Options, _ app.StageOptions) display.Strategy { return display.NewHTML(opts) },
	"dump":     func(opts display.Options, _ app.StageOptions) display.Strategy { return display.NewDump(opts) },
	"fallback": func(display.Options, app.StageOptions) display.Strategy { return display.NewFallback() },
}

type observerFactory func(b *builder, cfg app.ObserverConfig) (observer.Observer, error)

//nolint:gochecknoglobals // constructor tables are read-only
var observerFactories = map[string]observerFactory{
	"slog": func(b *builder, cfg app.ObserverConfig) (observer.Observer, error) {
		return observer.NewSlog(b.deps.Logger,
			observer.WithPreprocessors(b.preprocessors...),
			observer.WithDescription(cfg.Options.Description),
		), nil
	},
	"errorlog": func(b *builder, _ app.ObserverConfig) (observer.Observer, error) {
		return observer.NewErrorLog(b.deps.ErrorLog, b.preprocessors...), nil
	},
	"store": func(b *builder, cfg app.ObserverConfig) (observer.Observer, error) {
		db, err := b.openDB(cfg.Options.DBPath)
		if err != nil {
			return nil, err
		}
		return observer.NewStore(db, b.preprocessors...), nil
	},
	"metrics": func(b *builder, _ app.ObserverConfig) (observer.Observer, error) {
		return observer.NewMetrics(b.deps.Registerer)
	},
}

// StrategyNames lists the known display identifiers, sorted.
func StrategyNames() []string { return sortedKeys(strategyFactories) }

// ObserverNames lists the known observer identifiers, sorted.
func ObserverNames() []string { return sortedKeys(observerFactories) }

// DefaultObservers is used when settings name none.
//
//nolint:gochecknoglobals // read-only default
var DefaultObservers = []string{"slog"}

type builder struct {
	deps          Deps
	preprocessors []format.Preprocessor
	closers       []func() error
}

// Build validates s and returns a ready handler plus a function releasing
// the resources it opened. Unknown identifiers, a bad preprocessor pattern
// or a chain without a terminal are reported here, before any error is
// handled.
func Build(s app.Settings, deps Deps) (h *handler.Handler, closeFn func() error, err error) {
	b := &builder{deps: deps.withDefaults()}
	defer func() {
		if err != nil {
			_ = b.close()
		}
	}()

	for i, p := range s.SummaryPreprocessors {
		pre, err := format.NewPreprocessor(p.Pattern, p.Replacement)
		if err != nil {
			return nil, nil, fmt.Errorf("summary_preprocessors[%d]: %w", i, err)
		}
		b.preprocessors = append(b.preprocessors, pre)
	}

	chain, err := BuildChain(s, b.deps.Logger)
	if err != nil {
		return nil, nil, err
	}
	registry, err := b.registry(s)
	if err != nil {
		return nil, nil, err
	}
	return handler.New(registry, chain, handler.WithLogger(b.deps.Logger)), b.close, nil
}

// BuildChain builds only the display chain.
func BuildChain(s app.Settings, logger *slog.Logger) (*display.Chain, error) {
	stages := s.Display
	if len(stages) == 0 {
		for _, name := range display.DefaultOrder {
			stages = append(stages, app.StageConfig{Name: name})
		}
	}

	strategies := make([]display.Strategy, 0, len(stages))
	for i, stage := range stages {
		name := normalize(stage.Name)
		factory, ok := strategyFactories[name]
		if !ok {
			return nil, fmt.Errorf("display[%d]: %w %q (known: %s)", i, ErrUnknownStrategy, stage.Name, strings.Join(StrategyNames(), ", "))
		}
		strategies = append(strategies, factory(display.Options{
			DiagnosticMode:     bool(s.DiagnosticMode),
			IncludeStackTrace:  stage.Options.IncludeStackTrace,
			IncludeRequestDump: stage.Options.IncludeRequestDump,
			IncludeServerDump:  stage.Options.IncludeServerDump,
			IncludeSession:     stage.Options.IncludeSessionKeys,
		}, stage.Options))
	}

	chain, err := display.NewChain(strategies, display.WithRenderTimeout(s.RenderTimeout), display.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("display: %w", err)
	}
	return chain, nil
}

func (b *builder) registry(s app.Settings) (*observer.Registry, error) {
	configs := s.Observers
	if len(configs) == 0 {
		for _, name := range DefaultObservers {
			configs = append(configs, app.ObserverConfig{Name: name})
		}
	}

	var window *dedup.Window
	if s.DedupTTL > 0 {
		window = dedup.New(dedupCapacity, s.DedupTTL)
	}

	registry := observer.NewRegistry(
		observer.WithTimeout(s.ObserverTimeout),
		observer.WithFaultWriter(b.deps.FaultWriter),
	)
	for i, cfg := range configs {
		factory, ok := observerFactories[normalize(cfg.Name)]
		if !ok {
			return nil, fmt.Errorf("observers[%d]: %w %q (known: %s)", i, ErrUnknownObserver, cfg.Name, strings.Join(ObserverNames(), ", "))
		}
		o, err := factory(b, cfg)
		if err != nil {
			return nil, fmt.Errorf("observers[%d] %s: %w", i, cfg.Name, err)
		}
		if window != nil {
			o = observer.NewDedup(o, window)
		}
		registry.Register(o)
	}
	return registry, nil
}

func (b *builder) openDB(path string) (*sql.DB, error) {
	var err error
	if path == "" {
		path, err = app.GetDBPath()
	} else {
		path, err = app.EnsureDBDir(path)
	}
	if err != nil {
		return nil, err
	}
	db, err := b.deps.OpenDB(path)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, db.Close)
	return db, nil
}

func (b *builder) close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	b.closers = nil
	return errors.Join(errs...)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
