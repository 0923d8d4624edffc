package filter

import (
	"github.com/dchest/uniuri"
	"github.com/indigo-web/ember/http"
	"go.uber.org/zap"
)

// RequestIDKey is the key the request id is stored by in http.Env values
const RequestIDKey = "request_id"

const (
	defaultRequestIDHeader = "X-Request-ID"
	defaultRequestIDLength = 16
	maxRequestIDLength     = 128
)

// RequestID assigns every request an id. The id received from the client is reused, if it
// looks sane. The id is stored in the env values, attached to the request logger and
// echoed back in the response headers.
type RequestID struct {
	header string
	length int
}

func NewRequestID() *RequestID {
	return &RequestID{
		header: defaultRequestIDHeader,
		length: defaultRequestIDLength,
	}
}

// Header replaces the header name the id is received and sent in
func (r *RequestID) Header(name string) *RequestID {
	r.header = name
	return r
}

// Length sets the length of generated ids
func (r *RequestID) Length(n int) *RequestID {
	r.length = n
	return r
}

func (r *RequestID) ProcessIngress(env *http.Env) (*http.Response, error) {
	id := env.Header(r.header)
	if len(id) == 0 || len(id) > maxRequestIDLength {
		id = uniuri.NewLen(r.length)
	}

	env.Set(RequestIDKey, id)
	if env.Log != nil {
		env.Log = env.Log.With(zap.String(RequestIDKey, id))
	}

	return nil, nil
}

func (r *RequestID) ProcessEgress(env *http.Env, resp *http.Response) (*http.Response, error) {
	if resp == nil {
		return nil, nil
	}

	if id, ok := env.Value(RequestIDKey).(string); ok && !resp.Has(r.header) {
		resp.Header(r.header, id)
	}

	return resp, nil
}
