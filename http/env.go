package http

import (
	"io"

	"github.com/indigo-web/ember/http/proto"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// Executor is a handle to the worker pool the server offloads response composition to.
// Handlers may use it for their own background work.
type Executor interface {
	Go(task func()) error
}

// Env is the request context. It's populated by the parser, then passed through the
// ingress filters, the handler and the egress filters, in this exact order. Only one
// of them touches the Env at any moment.
type Env struct {
	RemoteAddr string
	ServerName string
	ServerAddr string
	ServerPort string
	ScriptName string

	Method     string
	RequestURI string
	Path       string
	Query      string
	Params     string
	Fragment   string
	// Protocol is the raw version token, as it was received
	Protocol string
	Proto    proto.Proto

	Headers       EnvHeaders
	ContentType   string
	ContentLength int64
	// Body is nil until the request body is fully read
	Body io.ReadSeeker

	// Head is set for HEAD requests, which are otherwise served as GET
	Head        bool
	URIEncoding string
	URLScheme   string

	Multithread  bool
	Multiprocess bool
	RunOnce      bool
	// Executor is nil unless the server runs in multithreaded mode
	Executor Executor

	Log *zap.Logger

	// Values is an extension slot for filter-defined metadata
	Values map[string]any
}

// Clone copies the connection-wide fields into a brand-new Env, leaving all the
// request-specific ones empty.
func (e *Env) Clone() *Env {
	return &Env{
		RemoteAddr:    e.RemoteAddr,
		ServerName:    e.ServerName,
		ServerAddr:    e.ServerAddr,
		ServerPort:    e.ServerPort,
		ScriptName:    e.ScriptName,
		Headers:       NewEnvHeaders(e.Headers.Len()),
		ContentLength: -1,
		URLScheme:     e.URLScheme,
		Multithread:   e.Multithread,
		Multiprocess:  e.Multiprocess,
		RunOnce:       e.RunOnce,
		Executor:      e.Executor,
		Log:           e.Log,
	}
}

// Header returns the value of the request header by its wire name, e.g. "User-Agent"
func (e *Env) Header(name string) string {
	return e.Headers.Value(EnvKey(name))
}

// Set stores the value in the extension slot
func (e *Env) Set(key string, value any) {
	if e.Values == nil {
		e.Values = make(map[string]any)
	}

	e.Values[key] = value
}

// Value returns the value from the extension slot, nil if none
func (e *Env) Value(key string) any {
	return e.Values[key]
}

// DecodeJSON reads the whole request body and unmarshalls it into the v. The body is
// rewound afterward, so it can be read again.
func (e *Env) DecodeJSON(v any) error {
	if e.Body == nil {
		return io.ErrUnexpectedEOF
	}

	defer func() {
		_, _ = e.Body.Seek(0, io.SeekStart)
	}()

	return json.NewDecoder(e.Body).Decode(v)
}
