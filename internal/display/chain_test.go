package display

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/errtrap/internal/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubStrategy is a configurable Strategy for chain tests.
type stubStrategy struct {
	name     string
	handles  bool
	canPanic bool
	render   func(ec *models.ErrorContext, resp models.Response, next Next) (models.Response, error)
	calls    atomic.Int32
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) CanHandle(*models.ErrorContext) bool {
	if s.canPanic {
		panic("can handle exploded")
	}
	return s.handles
}

func (s *stubStrategy) Render(ec *models.ErrorContext, resp models.Response, next Next) (models.Response, error) {
	s.calls.Add(1)
	return s.render(ec, resp, next)
}

func body(text string) func(*models.ErrorContext, models.Response, Next) (models.Response, error) {
	return func(_ *models.ErrorContext, resp models.Response, _ Next) (models.Response, error) {
		resp.Status = 418
		resp.Body = []byte(text)
		return resp, nil
	}
}

func failing(err error) func(*models.ErrorContext, models.Response, Next) (models.Response, error) {
	return func(_ *models.ErrorContext, resp models.Response, _ Next) (models.Response, error) {
		return resp, err
	}
}

func panicking(v any) func(*models.ErrorContext, models.Response, Next) (models.Response, error) {
	return func(*models.ErrorContext, models.Response, Next) (models.Response, error) {
		panic(v)
	}
}

func testContext(snap models.Snapshot) *models.ErrorContext {
	return models.NewErrorContext(models.Params{
		Kind:     models.KindUncaughtThrowable,
		Severity: models.SeverityError,
		Message:  "disk full",
		Snapshot: snap,
	})
}

func TestNewChain_Validation(t *testing.T) {
	_, err := NewChain(nil)
	require.ErrorIs(t, err, ErrEmptyChain)

	_, err = NewChain([]Strategy{NewJSON(Options{})})
	require.ErrorIs(t, err, ErrNoTerminal)

	_, err = NewChain([]Strategy{NewFallback(), NewJSON(Options{})})
	require.ErrorIs(t, err, ErrNoTerminal)

	_, err = NewChain([]Strategy{nil, NewFallback()})
	require.Error(t, err)

	c, err := NewChain([]Strategy{NewDump(Options{}), NewFallback()})
	require.NoError(t, err)
	require.Equal(t, []string{"dump", "fallback"}, c.Names())
	require.Equal(t, "fallback", c.Terminal().Name())
}

func TestChain_FirstApplicableWins(t *testing.T) {
	first := &stubStrategy{name: "first", handles: false, render: body("first")}
	second := &stubStrategy{name: "second", handles: true, render: body("second")}
	third := &stubStrategy{name: "third", handles: true, render: body("third")}

	c, err := NewChain([]Strategy{first, second, third, NewFallback()}, WithLogger(quietLogger()))
	require.NoError(t, err)

	resp := c.Execute(testContext(models.Snapshot{}), models.Response{})
	require.Equal(t, "second", string(resp.Body))
	require.Equal(t, int32(0), first.calls.Load())
	require.Equal(t, int32(0), third.calls.Load())
}

func TestChain_AllButTerminalFail(t *testing.T) {
	strategies := []Strategy{
		&stubStrategy{name: "err", handles: true, render: failing(errors.New("broken"))},
		&stubStrategy{name: "panic", handles: true, render: panicking("kaboom")},
		&stubStrategy{name: "panic-error", handles: true, render: panicking(errors.New("kaboom"))},
		&stubStrategy{name: "bad-predicate", canPanic: true, render: body("never")},
		NewFallback(),
	}
	c, err := NewChain(strategies, WithLogger(quietLogger()))
	require.NoError(t, err)

	resp := c.Execute(testContext(models.Snapshot{}), models.Response{})
	require.Equal(t, GenericMessage, string(resp.Body))
	require.Equal(t, 500, resp.Status)
	require.Equal(t, FallbackContentType, resp.ContentType)
}

func TestChain_DecoratorDefersToNext(t *testing.T) {
	c, err := NewChain([]Strategy{
		NewHeaders(map[string]string{"Cache-Control": "no-store"}),
		&stubStrategy{name: "body", handles: true, render: body("rendered")},
		NewFallback(),
	}, WithLogger(quietLogger()))
	require.NoError(t, err)

	ec := testContext(models.Snapshot{})
	resp := c.Execute(ec, models.Response{})
	require.Equal(t, "rendered", string(resp.Body))
	require.Equal(t, "no-store", resp.Headers["Cache-Control"])
	require.Equal(t, ec.ID(), resp.Headers[ErrorIDHeader])
}

func TestChain_HeadersSurviveFallback(t *testing.T) {
	c, err := NewChain([]Strategy{
		NewHeaders(map[string]string{"Cache-Control": "no-store"}),
		&stubStrategy{name: "broken", handles: true, render: failing(errors.New("x"))},
		NewFallback(),
	}, WithLogger(quietLogger()))
	require.NoError(t, err)

	resp := c.Execute(testContext(models.Snapshot{}), models.Response{})
	require.Equal(t, GenericMessage, string(resp.Body))
	require.Equal(t, "no-store", resp.Headers["Cache-Control"])
}

func TestChain_FailureAfterNextKeepsDownstreamResponse(t *testing.T) {
	wrapper := &stubStrategy{name: "wrapper", handles: true, render: func(_ *models.ErrorContext, resp models.Response, next Next) (models.Response, error) {
		_ = next(resp)
		return resp, errors.New("wrapper failed after deferring")
	}}
	inner := &stubStrategy{name: "inner", handles: true, render: body("inner")}

	c, err := NewChain([]Strategy{wrapper, inner, NewFallback()}, WithLogger(quietLogger()))
	require.NoError(t, err)

	resp := c.Execute(testContext(models.Snapshot{}), models.Response{})
	require.Equal(t, "inner", string(resp.Body))
	require.Equal(t, int32(1), inner.calls.Load())
}

func slowFailing(d time.Duration) func(*models.ErrorContext, models.Response, Next) (models.Response, error) {
	return func(_ *models.ErrorContext, resp models.Response, _ Next) (models.Response, error) {
		time.Sleep(d)
		return resp, errors.New("slow and broken")
	}
}

func TestChain_DecoratorTimeoutExcludesDownstreamTime(t *testing.T) {
	first := &stubStrategy{name: "first", handles: true, render: slowFailing(60 * time.Millisecond)}
	second := &stubStrategy{name: "second", handles: true, render: slowFailing(60 * time.Millisecond)}
	c, err := NewChain([]Strategy{
		NewHeaders(map[string]string{"Cache-Control": "no-store"}),
		first,
		second,
		NewFallback(),
	}, WithRenderTimeout(100*time.Millisecond), WithLogger(quietLogger()))
	require.NoError(t, err)

	ec := testContext(models.Snapshot{})
	resp := c.Execute(ec, models.Response{})
	require.Equal(t, GenericMessage, string(resp.Body))
	assert.Equal(t, "no-store", resp.Headers["Cache-Control"])
	assert.Equal(t, ec.ID(), resp.Headers[ErrorIDHeader])
	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(1), second.calls.Load())
}

func TestChain_DecoratorTimingOutAfterNextKeepsDownstreamResponse(t *testing.T) {
	wrapper := &stubStrategy{name: "wrapper", handles: true, render: func(_ *models.ErrorContext, resp models.Response, next Next) (models.Response, error) {
		out := next(resp)
		time.Sleep(200 * time.Millisecond)
		return out, nil
	}}
	inner := &stubStrategy{name: "inner", handles: true, render: body("inner")}
	c, err := NewChain([]Strategy{wrapper, inner, NewFallback()}, WithRenderTimeout(20*time.Millisecond), WithLogger(quietLogger()))
	require.NoError(t, err)

	resp := c.Execute(testContext(models.Snapshot{}), models.Response{})
	require.Equal(t, "inner", string(resp.Body))
	require.Equal(t, int32(1), inner.calls.Load())
}

func TestChain_AbandonedDecoratorCannotWalkLater(t *testing.T) {
	nextCalled := make(chan models.Response, 1)
	wrapper := &stubStrategy{name: "wrapper", handles: true, render: func(_ *models.ErrorContext, resp models.Response, next Next) (models.Response, error) {
		time.Sleep(80 * time.Millisecond)
		out := next(resp)
		nextCalled <- out
		return out, nil
	}}
	inner := &stubStrategy{name: "inner", handles: true, render: body("inner")}
	c, err := NewChain([]Strategy{wrapper, inner, NewFallback()}, WithRenderTimeout(20*time.Millisecond), WithLogger(quietLogger()))
	require.NoError(t, err)

	resp := c.Execute(testContext(models.Snapshot{}), models.Response{})
	require.Equal(t, "inner", string(resp.Body))

	late := <-nextCalled
	assert.Empty(t, late.Body)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestChain_RenderTimeoutSkipsSlowStrategy(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	slow := &stubStrategy{name: "slow", handles: true, render: func(_ *models.ErrorContext, resp models.Response, _ Next) (models.Response, error) {
		<-release
		return resp, nil
	}}
	c, err := NewChain([]Strategy{slow, NewFallback()}, WithRenderTimeout(20*time.Millisecond), WithLogger(quietLogger()))
	require.NoError(t, err)

	start := time.Now()
	resp := c.Execute(testContext(models.Snapshot{}), models.Response{})
	require.Equal(t, GenericMessage, string(resp.Body))
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestChain_MisplacedTerminalEndsWalk(t *testing.T) {
	after := &stubStrategy{name: "after", handles: true, render: body("after")}
	c, err := NewChain([]Strategy{NewFallback(), after, NewFallback()})
	require.NoError(t, err)

	resp := c.Execute(testContext(models.Snapshot{}), models.Response{})
	require.Equal(t, GenericMessage, string(resp.Body))
	require.Equal(t, int32(0), after.calls.Load())
}

// brokenTerminal violates the Terminal contract.
type brokenTerminal struct{ Fallback }

func (brokenTerminal) Render(_ *models.ErrorContext, resp models.Response, _ Next) (models.Response, error) {
	return resp, errors.New("terminal broke")
}

func TestChain_ExhaustedPanics(t *testing.T) {
	c, err := NewChain([]Strategy{&brokenTerminal{}}, WithLogger(quietLogger()))
	require.NoError(t, err)

	require.PanicsWithError(t, errChainExhausted.Error(), func() {
		c.Execute(testContext(models.Snapshot{}), models.Response{})
	})
}

func TestDefault_NonDiagnosticPlainRequestFallsBack(t *testing.T) {
	c, err := Default(Options{}, nil, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.Equal(t, DefaultOrder, c.Names())

	resp := c.Execute(testContext(models.Snapshot{Method: "GET", URI: "/"}), models.Response{})
	require.Equal(t, "An error occurred", string(resp.Body))
	require.Equal(t, 500, resp.Status)
}

func TestDefault_DiagnosticDumpIncludesSource(t *testing.T) {
	c, err := Default(Options{DiagnosticMode: true}, nil, WithLogger(quietLogger()))
	require.NoError(t, err)

	ec := models.NewErrorContext(models.Params{
		Kind:    models.KindRuntimeError,
		Message: "undefined variable",
		Source:  &models.Source{File: "a.php", Line: 10},
	})
	resp := c.Execute(ec, models.Response{})
	out := string(resp.Body)
	assert.Equal(t, FallbackContentType, resp.ContentType)
	assert.True(t, strings.Contains(out, "a.php"), out)
	assert.True(t, strings.Contains(out, "10"), out)
}
