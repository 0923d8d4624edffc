package http1

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/internal/timer"
	"github.com/indigo-web/utils/strcomp"
)

// Framed is a response ready to be transmitted: the serialized head, the body producer
// and how the body must be framed. KeepAlive is the decision on whether the connection
// may be reused after the response, made once the response is known.
type Framed struct {
	Head      []byte
	Body      http.Body
	Chunked   bool
	KeepAlive bool
}

// Compose runs the request through ingress filters, the handler and egress filters, then
// validates the result and prepares it for transmission. Any failure, including panics,
// is returned as *status.ApplicationError.
func (p *Protocol) Compose(env *http.Env) (framed *Framed, err error) {
	defer func() {
		if r := recover(); r != nil {
			framed, err = nil, recovered(r)
		}
	}()

	resp, err := p.respond(env)
	if err != nil {
		if resp != nil {
			http.CloseBody(resp.Body)
		}

		return nil, applicationError(err)
	}

	if err = validate(resp); err != nil {
		if resp != nil {
			http.CloseBody(resp.Body)
		}

		return nil, err
	}

	return p.frame(env, resp), nil
}

func (p *Protocol) respond(env *http.Env) (*http.Response, error) {
	var (
		resp *http.Response
		err  error
	)

	for _, filter := range p.ingress {
		if resp, err = filter.ProcessIngress(env); err != nil || resp != nil {
			break
		}
	}

	if err != nil {
		return nil, err
	}

	if resp != nil && !p.egressOnShortCircuit {
		return resp, nil
	}

	if resp == nil {
		if resp, err = p.handler(env); err != nil {
			return resp, err
		}
	}

	for _, filter := range p.egress {
		if resp, err = filter.ProcessEgress(env, resp); err != nil {
			return resp, err
		}
	}

	return resp, nil
}

// recovered turns the recovered panic value into an application error carrying the stack
func recovered(r any) error {
	return &status.ApplicationError{
		Err:   fmt.Errorf("panic: %v", r),
		Stack: debug.Stack(),
	}
}

func applicationError(err error) error {
	var appErr *status.ApplicationError
	if errors.As(err, &appErr) {
		return err
	}

	return &status.ApplicationError{Err: err}
}

func validate(resp *http.Response) error {
	if resp == nil {
		return status.Violation("no response")
	}

	if len(resp.Status) == 0 || strings.ContainsAny(resp.Status, "\r\n") {
		return status.Violation("bad status %q", resp.Status)
	}

	for _, header := range resp.Headers {
		switch {
		case len(header.Name) == 0 || !isToken([]byte(header.Name)):
			return status.Violation("bad header name %q", header.Name)
		case strings.ContainsAny(header.Value, "\r\n"):
			return status.Violation("bad value of the header %s", header.Name)
		case strcomp.EqualFold(header.Name, "Transfer-Encoding"),
			strcomp.EqualFold(header.Name, "Connection"):
			return status.Violation("%s header is managed by the server", header.Name)
		}
	}

	return nil
}

func (p *Protocol) frame(env *http.Env, resp *http.Response) *Framed {
	if len(p.serverToken) > 0 && !resp.Has("Server") {
		resp.Header("Server", p.serverToken)
	}

	if !resp.Has("Date") {
		resp.Header("Date", timer.Date())
	}

	sized := resp.Has("Content-Length")
	chunked := !sized && env.Proto == proto.HTTP11
	if chunked {
		resp.Header("Transfer-Encoding", "chunked")
	}

	body := resp.Body
	if body == nil {
		body = http.Empty()
	}

	if env.Head {
		// headers stay exactly as they'd be for GET
		http.CloseBody(body)
		body, chunked = http.Empty(), false
	}

	keepAlive := p.keepAlive(env)
	if !sized && !chunked && !env.Head {
		// the body is delimited by the connection close only
		keepAlive = false
	}

	switch {
	case keepAlive && env.Proto != proto.HTTP11:
		resp.Header("Connection", "keep-alive")
	case !keepAlive && env.Proto == proto.HTTP11:
		resp.Header("Connection", "close")
	}

	return &Framed{
		Head:      appendHead(make([]byte, 0, 256), env.Protocol, resp),
		Body:      body,
		Chunked:   chunked,
		KeepAlive: keepAlive,
	}
}

// keepAlive decides whether the connection may serve one more request after the current
// one completes.
func (p *Protocol) keepAlive(env *http.Env) bool {
	if !p.pipeline || env == nil {
		return false
	}

	connection := env.Headers.Value("HTTP_CONNECTION")

	if env.Proto == proto.HTTP11 {
		return !strcomp.EqualFold(connection, "close")
	}

	if env.ContentLength < 0 && env.Method != method.GET {
		// HEAD requests are turned into GET ones already
		return false
	}

	return strcomp.EqualFold(connection, "keep-alive")
}

func appendHead(buff []byte, protocol string, resp *http.Response) []byte {
	buff = append(buff, protocol...)
	buff = append(buff, ' ')
	buff = append(buff, resp.Status...)
	buff = append(buff, crlf...)

	for _, header := range resp.Headers {
		buff = append(buff, header.Name...)
		buff = append(buff, ": "...)
		buff = append(buff, header.Value...)
		buff = append(buff, crlf...)
	}

	return append(buff, crlf...)
}
