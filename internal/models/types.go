package models

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes recoverable runtime conditions from uncaught failures
// and compile-time failures. Compile errors are assumed to happen in a more
// degraded process state than the other two.
type Kind string

// Kind constants.
const (
	KindRuntimeError      Kind = "runtime_error"
	KindUncaughtThrowable Kind = "uncaught_throwable"
	KindCompileError      Kind = "compile_error"
)

// ParseKind accepts the canonical kind strings plus the short CLI aliases.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindRuntimeError), "runtime":
		return KindRuntimeError, true
	case string(KindUncaughtThrowable), "throwable", "uncaught":
		return KindUncaughtThrowable, true
	case string(KindCompileError), "compile":
		return KindCompileError, true
	default:
		return KindRuntimeError, false
	}
}

// Source is the file/line an error originated from.
type Source struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

func (s Source) String() string {
	if s.Line <= 0 {
		return s.File
	}
	return s.File + ":" + strconv.Itoa(s.Line)
}

// Frame is one resolved call site of a captured stack.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Params carries everything needed to build an ErrorContext.
// ID and OccurredAt are generated when left empty.
type Params struct {
	ID         string
	OccurredAt time.Time
	Kind       Kind
	Severity   Severity
	Code       int
	Message    string
	TypeName   string
	Source     *Source
	Stack      []Frame
	Causes     []*ErrorContext
	Truncated  bool
	Snapshot   Snapshot
}

// ErrorContext is the normalized, immutable view of one error occurrence.
// All state is reachable only through getters; slices and maps are copied
// on the way in and on the way out.
type ErrorContext struct {
	id         string
	occurredAt time.Time
	kind       Kind
	severity   Severity
	code       int
	message    string
	typeName   string
	source     Source
	hasSource  bool
	stack      []Frame
	causes     []ErrorContext
	truncated  bool
	snapshot   Snapshot
}

// NewErrorContext builds an ErrorContext from p. Causes are flattened into an
// outer-to-inner list; a cause's own causes are not carried over.
func NewErrorContext(p Params) *ErrorContext {
	ec := &ErrorContext{
		id:         p.ID,
		occurredAt: p.OccurredAt,
		kind:       p.Kind,
		severity:   p.Severity.Normalize(),
		code:       p.Code,
		message:    p.Message,
		typeName:   p.TypeName,
		stack:      slices.Clone(p.Stack),
		truncated:  p.Truncated,
		snapshot:   p.Snapshot.Clone(),
	}
	if ec.id == "" {
		ec.id = uuid.NewString()
	}
	if ec.occurredAt.IsZero() {
		ec.occurredAt = time.Now().UTC()
	}
	if ec.kind == "" {
		ec.kind = KindRuntimeError
	}
	if p.Source != nil {
		ec.source = *p.Source
		ec.hasSource = true
	}
	for _, c := range p.Causes {
		if c == nil {
			continue
		}
		cause := *c
		cause.causes = nil
		cause.truncated = false
		cause.snapshot = Snapshot{}
		cause.stack = slices.Clone(c.stack)
		ec.causes = append(ec.causes, cause)
	}
	return ec
}

func (ec *ErrorContext) ID() string            { return ec.id }
func (ec *ErrorContext) OccurredAt() time.Time { return ec.occurredAt }
func (ec *ErrorContext) Kind() Kind            { return ec.kind }
func (ec *ErrorContext) Severity() Severity    { return ec.severity }
func (ec *ErrorContext) Code() int             { return ec.code }
func (ec *ErrorContext) Message() string       { return ec.message }
func (ec *ErrorContext) TypeName() string      { return ec.typeName }
func (ec *ErrorContext) HasSource() bool       { return ec.hasSource }
func (ec *ErrorContext) Source() Source        { return ec.source }
func (ec *ErrorContext) CausesTruncated() bool { return ec.truncated }
func (ec *ErrorContext) Stack() []Frame        { return slices.Clone(ec.stack) }

// Causes returns the cause chain outer to inner. Each element is a pointer
// to a fresh copy.
func (ec *ErrorContext) Causes() []*ErrorContext {
	if len(ec.causes) == 0 {
		return nil
	}
	out := make([]*ErrorContext, len(ec.causes))
	for i := range ec.causes {
		c := ec.causes[i]
		c.stack = slices.Clone(c.stack)
		out[i] = &c
	}
	return out
}

// Snapshot returns a deep copy of the captured request metadata.
func (ec *ErrorContext) Snapshot() Snapshot { return ec.snapshot.Clone() }

// Fingerprint identifies "the same error" across occurrences.
func (ec *ErrorContext) Fingerprint() string {
	return strings.Join([]string{
		string(ec.kind),
		ec.typeName,
		ec.message,
		ec.source.String(),
	}, "|")
}

// Snapshot is the request metadata captured at the boundary before the core
// runs. It is never the live request object.
type Snapshot struct {
	Method     string            `json:"method,omitempty"`
	URI        string            `json:"uri,omitempty"`
	Host       string            `json:"host,omitempty"`
	RemoteAddr string            `json:"remote_addr,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Session    map[string]any    `json:"session,omitempty"`
	Server     map[string]string `json:"server,omitempty"`
}

// Clone returns a deep copy. Nested map[string]any session values are
// cloned recursively.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Headers = maps.Clone(s.Headers)
	out.Server = maps.Clone(s.Server)
	out.Session = cloneAnyMap(s.Session, 0)
	return out
}

// Header looks up a header case-insensitively.
func (s Snapshot) Header(name string) string {
	if v, ok := s.Headers[name]; ok {
		return v
	}
	for k, v := range s.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Accepts reports whether the Accept header lists mediaType. Parameters
// (";q=0.9") are ignored and wildcards are not expanded.
func (s Snapshot) Accepts(mediaType string) bool {
	for _, part := range strings.Split(s.Header("Accept"), ",") {
		mt, _, _ := strings.Cut(part, ";")
		if strings.EqualFold(strings.TrimSpace(mt), mediaType) {
			return true
		}
	}
	return false
}

// Field is an ordered key/value pair.
type Field struct {
	Key   string
	Value string
}

// Fields returns the non-empty request line values in a fixed order.
func (s Snapshot) Fields() []Field {
	var out []Field
	for _, f := range []Field{
		{"host", s.Host},
		{"uri", s.URI},
		{"method", s.Method},
		{"remote_addr", s.RemoteAddr},
	} {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// maxCloneDepth bounds recursion on self-referencing session maps. Deeper
// levels are shared rather than copied.
const maxCloneDepth = 32

func cloneAnyMap(in map[string]any, depth int) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if mv, ok := v.(map[string]any); ok && depth < maxCloneDepth {
			out[k] = cloneAnyMap(mv, depth+1)
			continue
		}
		out[k] = v
	}
	return out
}

// Response is the rendered outcome handed back to the transport.
type Response struct {
	Status      int               `json:"status"`
	ContentType string            `json:"content_type,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        []byte            `json:"-"`
}

// Empty reports whether no strategy has produced a body or status yet.
func (r Response) Empty() bool {
	return r.Status == 0 && len(r.Body) == 0
}

// WithHeader returns a copy of r with the header set.
func (r Response) WithHeader(name, value string) Response {
	h := maps.Clone(r.Headers)
	if h == nil {
		h = make(map[string]string, 1)
	}
	h[name] = value
	r.Headers = h
	return r
}
