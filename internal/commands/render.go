package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dotcommander/errtrap/internal/models"
	"github.com/dotcommander/errtrap/internal/output"
	"github.com/dotcommander/errtrap/internal/wiring"
)

// renderKinds are the raw values render can synthesize.
//
//nolint:gochecknoglobals // read-only lookup table
var renderKinds = []string{"runtime", "engine", "throwable", "compile", "panic"}

// kindFlag validates --kind at parse time.
type kindFlag string

var _ pflag.Value = (*kindFlag)(nil)

func (k *kindFlag) String() string { return string(*k) }

func (*kindFlag) Type() string { return "kind" }

func (k *kindFlag) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "uncaught" {
		v = "throwable"
	}
	if !slices.Contains(renderKinds, v) {
		return fmt.Errorf("want one of %s", strings.Join(renderKinds, "|"))
	}
	*k = kindFlag(v)
	return nil
}

type renderOptions struct {
	kind    kindFlag
	message string
	file    string
	line    int
	code    int
	accept  string
	xhr     bool
	uri     string
	method  string
	causes  []string
}

type renderResult struct {
	Status      int               `json:"status"`
	ContentType string            `json:"content_type"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        string            `json:"body"`
}

func newRenderCmd() *cobra.Command {
	var o renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Run one synthesized error through the configured pipeline and print the response",
		Example: `  errtrap render --kind engine --code 2 --message "Undefined variable" --file a.php --line 10 --diagnostic
  errtrap render --kind throwable --message "save failed" --cause "disk full" --accept application/json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, panics, err := o.raw()
			if err != nil {
				return cmdErr(err)
			}

			h, _, closeFn, err := buildHandler(cmd, wiring.Deps{Registerer: prometheus.NewRegistry()})
			if err != nil {
				return cmdErr(err)
			}
			defer func() { _ = closeFn() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			snap := o.snapshot()

			var resp models.Response
			if panics {
				resp, _ = h.Guard(ctx, snap, func() error { panic(raw) })
			} else {
				resp = h.Handle(ctx, raw, snap)
			}

			return output.PrintSuccess(renderResult{
				Status:      resp.Status,
				ContentType: resp.ContentType,
				Headers:     resp.Headers,
				Body:        string(resp.Body),
			})
		},
	}

	o.kind = "throwable"
	cmd.Flags().Var(&o.kind, "kind", "Raw error to synthesize: "+strings.Join(renderKinds, "|"))
	cmd.Flags().StringVar(&o.message, "message", "something went wrong", "Error message")
	cmd.Flags().StringVar(&o.file, "file", "", "Source file")
	cmd.Flags().IntVar(&o.line, "line", 0, "Source line")
	cmd.Flags().IntVar(&o.code, "code", models.CodeWarning, "Engine error code for --kind runtime|engine")
	cmd.Flags().StringVar(&o.accept, "accept", "", "Accept header of the simulated request")
	cmd.Flags().BoolVar(&o.xhr, "xhr", false, "Mark the simulated request as XMLHttpRequest")
	cmd.Flags().StringVar(&o.uri, "uri", "/", "URI of the simulated request")
	cmd.Flags().StringVar(&o.method, "method", "GET", "Method of the simulated request")
	cmd.Flags().StringArrayVar(&o.causes, "cause", nil, "Cause message, outer to inner (repeatable)")
	return cmd
}

// raw builds the value handed to the handler. panics reports whether it
// should be raised as a panic instead of passed directly.
func (o renderOptions) raw() (raw any, panics bool, err error) {
	cause := causeChain(o.causes)
	switch o.kind {
	case "runtime", "engine":
		return &models.EngineError{Code: o.code, Message: o.message, File: o.file, Line: o.line}, false, nil
	case "throwable":
		return &renderedError{msg: o.message, file: o.file, line: o.line, cause: cause}, false, nil
	case "compile":
		return &models.CompileError{Message: o.message, File: o.file, Line: o.line, Cause: cause}, false, nil
	case "panic":
		return o.message, true, nil
	default:
		return nil, false, fmt.Errorf("unknown --kind %q", string(o.kind))
	}
}

func (o renderOptions) snapshot() models.Snapshot {
	headers := map[string]string{}
	if o.accept != "" {
		headers["Accept"] = o.accept
	}
	if o.xhr {
		headers["X-Requested-With"] = "XMLHttpRequest"
	}
	return models.Snapshot{
		Method:  strings.ToUpper(o.method),
		URI:     o.uri,
		Host:    "localhost",
		Headers: headers,
		Server:  map[string]string{"protocol": "cli"},
	}
}

// renderedError is an error that knows its location and wraps a cause.
type renderedError struct {
	msg   string
	file  string
	line  int
	cause error
}

func (e *renderedError) Error() string { return e.msg }

func (e *renderedError) Unwrap() error { return e.cause }

func (e *renderedError) Location() (string, int) { return e.file, e.line }

func causeChain(messages []string) error {
	var err error
	for i := len(messages) - 1; i >= 0; i-- {
		err = &renderedError{msg: messages[i], cause: err}
	}
	return err
}
