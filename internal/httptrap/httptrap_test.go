package httptrap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/errtrap/internal/display"
	"github.com/dotcommander/errtrap/internal/handler"
	"github.com/dotcommander/errtrap/internal/models"
	"github.com/dotcommander/errtrap/internal/observer"
)

type captured struct {
	mu  sync.Mutex
	ecs []*models.ErrorContext
}

func (*captured) Name() string { return "captured" }

func (c *captured) Notify(_ context.Context, ec *models.ErrorContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ecs = append(c.ecs, ec)
	return nil
}

func newTestHandler(t *testing.T, opts display.Options, observers ...observer.Observer) *handler.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chain, err := display.Default(opts, nil, display.WithLogger(logger))
	require.NoError(t, err)
	reg := observer.NewRegistry(observer.WithFaultWriter(io.Discard))
	for _, o := range observers {
		reg.Register(o)
	}
	return handler.New(reg, chain, handler.WithLogger(logger))
}

func TestCapture(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://shop.test/cart?id=3", nil)
	r.Header.Set("Accept", "text/html")
	r.Header.Add("X-Forwarded-For", "10.0.0.1")
	r.Header.Add("X-Forwarded-For", "10.0.0.2")
	r.Header.Set("Authorization", "Bearer secret")

	snap := Capture(r, map[string]any{"user": "ann"})
	assert.Equal(t, http.MethodPost, snap.Method)
	assert.Equal(t, "/cart?id=3", snap.URI)
	assert.Equal(t, "shop.test", snap.Host)
	assert.Equal(t, "text/html", snap.Header("accept"))
	assert.Equal(t, "10.0.0.1, 10.0.0.2", snap.Header("X-Forwarded-For"))
	assert.Equal(t, redacted, snap.Header("Authorization"))
	assert.Equal(t, "ann", snap.Session["user"])
	assert.Equal(t, "HTTP/1.1", snap.Server["protocol"])
	assert.Equal(t, "http", snap.Server["scheme"])

	assert.Empty(t, Capture(nil, nil).Method)
}

func TestCapture_URIForms(t *testing.T) {
	origin := httptest.NewRequest(http.MethodGet, "/files/a%2Fb?x=1", nil)
	assert.Equal(t, "/files/a%2Fb?x=1", Capture(origin, nil).URI)

	absolute := httptest.NewRequest(http.MethodGet, "https://shop.test/files?x=1", nil)
	assert.Equal(t, "/files?x=1", Capture(absolute, nil).URI)
	assert.Equal(t, "https", Capture(absolute, nil).Server["scheme"])

	built := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: "/built", RawQuery: "q=2"}}
	assert.Equal(t, "/built?q=2", Capture(built, nil).URI)
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, models.Response{
		ContentType: "text/plain",
		Headers:     map[string]string{"X-Error-Id": "abc"},
		Body:        []byte("An error occurred"),
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "abc", rec.Header().Get("X-Error-Id"))
	assert.Equal(t, "An error occurred", rec.Body.String())
}

func TestMiddleware_RecoversPanic(t *testing.T) {
	obs := &captured{}
	h := newTestHandler(t, display.Options{}, obs)

	mw := Middleware(h, WithSession(func(*http.Request) map[string]any { return map[string]any{"cart": 2} }))
	srv := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("handler blew up") }))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.Header.Set("Accept", "application/json")
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, display.JSONContentType, rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(display.ErrorIDHeader))

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, display.GenericMessage, body["error"]["message"])

	require.Len(t, obs.ecs, 1)
	ec := obs.ecs[0]
	assert.Equal(t, "handler blew up", ec.Message())
	assert.Equal(t, "/checkout", ec.Snapshot().URI)
	assert.EqualValues(t, 2, ec.Snapshot().Session["cart"])
	require.True(t, ec.HasSource())
	assert.True(t, strings.HasSuffix(ec.Source().File, "httptrap_test.go"), ec.Source().File)
}

func TestMiddleware_SkipsWriteWhenClientGone(t *testing.T) {
	obs := &captured{}
	h := newTestHandler(t, display.Options{}, obs)
	srv := Middleware(h)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("late") }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	assert.Empty(t, rec.Body.String())
	assert.Len(t, obs.ecs, 1, "observers still run")
}

func TestMiddleware_SkipsWriteAfterPartialResponse(t *testing.T) {
	h := newTestHandler(t, display.Options{})
	srv := Middleware(h)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		panic("mid-stream")
	}))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestMiddleware_RepanicsAbort(t *testing.T) {
	h := newTestHandler(t, display.Options{})
	srv := Middleware(h)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) }))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRouter(t *testing.T) {
	obs := &captured{}
	h := newTestHandler(t, display.Options{DiagnosticMode: true}, obs)
	srv := httptest.NewServer(NewRouter(h, prometheus.NewRegistry()))
	t.Cleanup(srv.Close)

	get := func(path string) (*http.Response, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var buf bytes.Buffer
		_, err = io.Copy(&buf, resp.Body)
		require.NoError(t, err)
		return resp, buf.String()
	}

	resp, body := get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, body = get("/panic")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "assignment to entry in nil map")

	resp, body = get("/error")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "no space left on device")

	_, body = get("/compile")
	assert.Contains(t, body, "compile_error")

	_, body = get("/engine")
	assert.Contains(t, body, "index.php")

	resp, _ = get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, obs.ecs, 4)
	assert.Equal(t, models.SeverityCritical, obs.ecs[0].Severity())
	assert.Equal(t, models.KindUncaughtThrowable, obs.ecs[1].Kind())
	assert.Equal(t, models.KindCompileError, obs.ecs[2].Kind())
	assert.Equal(t, models.SeverityWarning, obs.ecs[3].Severity())
}
