package http

import (
	"strconv"

	"github.com/indigo-web/ember/http/mime"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
)

type Header struct {
	Name, Value string
}

// Response is what handlers and filters produce: a status token (e.g. "200 OK"), ordered
// headers (duplicates are allowed) and a body producer.
type Response struct {
	Status  string
	Headers []Header
	Body    Body
}

// why 7? Server, Date, Content-Type, Content-Length and Transfer-Encoding are almost
// always there, leaving a couple of seats for custom ones.
const preallocRespHeaders = 7

// NewResponse returns a response with the code's status line and an empty body
func NewResponse(code status.Code) *Response {
	return &Response{
		Status:  status.Line(code),
		Headers: make([]Header, 0, preallocRespHeaders),
		Body:    Empty(),
	}
}

// Respond is a shortcut for a response with a plain-text body and known length
func Respond(code status.Code, body string) *Response {
	return NewResponse(code).
		Header("Content-Type", mime.PlainUTF8).
		String(body)
}

// JSON marshals the model and returns a response with it as a body
func JSON(code status.Code, model any) (*Response, error) {
	data, err := json.ConfigCompatibleWithStandardLibrary.Marshal(model)
	if err != nil {
		return nil, err
	}

	return NewResponse(code).
		Header("Content-Type", mime.JSON).
		Bytes(data), nil
}

// Header appends a new header. Already existing headers with the same name are kept
func (r *Response) Header(name, value string) *Response {
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
	return r
}

// Get returns the value of the first header with a matching name (case-insensitive)
func (r *Response) Get(name string) (string, bool) {
	for _, header := range r.Headers {
		if strcomp.EqualFold(header.Name, name) {
			return header.Value, true
		}
	}

	return "", false
}

// Has indicates, whether there's at least one header with the name (case-insensitive)
func (r *Response) Has(name string) bool {
	_, found := r.Get(name)
	return found
}

// Del removes all the headers with a matching name (case-insensitive)
func (r *Response) Del(name string) *Response {
	headers := r.Headers[:0]
	for _, header := range r.Headers {
		if !strcomp.EqualFold(header.Name, name) {
			headers = append(headers, header)
		}
	}

	r.Headers = headers
	return r
}

// WithBody replaces the body producer. The caller is responsible for Content-Length
func (r *Response) WithBody(body Body) *Response {
	r.Body = body
	return r
}

// String sets the body and the matching Content-Length
func (r *Response) String(body string) *Response {
	return r.Bytes(uf.S2B(body))
}

// Bytes sets the body WITHOUT COPYING and the matching Content-Length
func (r *Response) Bytes(body []byte) *Response {
	r.Del("Content-Length")
	r.Header("Content-Length", strconv.Itoa(len(body)))
	r.Body = Chunks(body)
	return r
}
