package http1

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/internal/executor"
	"github.com/indigo-web/ember/internal/tcp"
	"go.uber.org/zap"
)

type State uint8

const (
	AwaitingHeaders State = iota
	ParsingHeaders
	AwaitingBody
	Dispatching
	WritingHeaders
	WritingBody
	Finishing
	Idle
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingHeaders:
		return "AwaitingHeaders"
	case ParsingHeaders:
		return "ParsingHeaders"
	case AwaitingBody:
		return "AwaitingBody"
	case Dispatching:
		return "Dispatching"
	case WritingHeaders:
		return "WritingHeaders"
	case WritingBody:
		return "WritingBody"
	case Finishing:
		return "Finishing"
	case Idle:
		return "Idle"
	case Closed:
		return "Closed"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

const (
	internalErrorBody = "The server encountered an unrecoverable error.\r\n"
	tooLargeBody      = "Request entity too large.\r\n"
	defaultProtocol   = "HTTP/1.1"
)

var (
	internalErrorResponse = " 500 Internal Server Error\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: " + strconv.Itoa(len(internalErrorBody)) + "\r\n" +
		"\r\n" + internalErrorBody
	tooLargeResponse = " 413 Request Entity Too Large\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: " + strconv.Itoa(len(tooLargeBody)) + "\r\n" +
		"Connection: close\r\n" +
		"\r\n" + tooLargeBody
)

// Conn drives a single connection through the request-response cycle. Requests are
// strictly sequential: the next header block isn't even read until the previous response
// is completely flushed.
type Conn struct {
	protocol *Protocol
	client   tcp.Client
	template *http.Env
	env      *http.Env
	finished bool
	state    State
	log      *zap.Logger
}

func newConn(p *Protocol, client tcp.Client) *Conn {
	log := p.connLogger(client.Remote())
	template := p.template.Clone()
	template.Log = log
	if remote := client.Remote(); remote != nil {
		template.RemoteAddr = remote.String()
	}

	return &Conn{
		protocol: p,
		client:   client,
		template: template,
		log:      log,
	}
}

func (c *Conn) State() State {
	return c.state
}

// Serve runs the connection until it's closed. Cancelling the context closes the transport,
// which interrupts any pending read or write.
func (c *Conn) Serve(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.client.Close()
	})
	defer stop()
	defer func() {
		if r := recover(); r != nil {
			c.logApplicationError(recovered(r))
			c.env = nil
			c.close()
		}
	}()

	for c.serveRequest() {
	}
}

// serveRequest returns whether the connection may serve the next request
func (c *Conn) serveRequest() bool {
	c.state = AwaitingHeaders
	c.client.SetPhaseTimeout(c.protocol.headerTimeout)

	block, err := c.client.ReadUntil(headersEnd)
	if err != nil {
		if errors.Is(err, tcp.ErrBufferOverflow) {
			err = status.ErrHeaderFieldsTooLarge
		}

		return c.drop(err)
	}

	c.state = ParsingHeaders
	c.env = c.template.Clone()
	if err = ParseHead(block, c.env, c.protocol.charset); err != nil {
		return c.drop(err)
	}

	c.state = AwaitingBody
	c.client.SetPhaseTimeout(c.protocol.bodyTimeout)
	if err = readBody(c.client, c.env); err != nil {
		if errors.Is(err, status.ErrPayloadTooLarge) {
			c.reject(tooLargeResponse)
		}

		return c.drop(err)
	}

	c.client.SetPhaseTimeout(0)
	c.state = Dispatching

	framed, err := c.compose(c.env)
	if err != nil {
		c.logApplicationError(err)
		return c.fail()
	}

	c.state = WritingHeaders
	if err = c.client.Write(framed.Head); err != nil {
		closeQuietly(framed.Body)
		return c.drop(err)
	}

	c.state = WritingBody
	if err = writeBody(c.client, framed); err != nil {
		var appErr *status.ApplicationError
		if errors.As(err, &appErr) {
			c.logApplicationError(err)
		}

		return c.drop(err)
	}

	return c.finish(framed.KeepAlive)
}

func (c *Conn) compose(env *http.Env) (*Framed, error) {
	if c.protocol.executor == nil {
		return c.protocol.Compose(env)
	}

	// the env belongs exclusively to the worker until the future resolves
	return executor.Submit(c.protocol.executor, func() (*Framed, error) {
		return c.protocol.Compose(env)
	}).Wait()
}

// fail responds with the fixed 500 response and finishes the request as usual. The
// fixed response always carries a body, which a HEAD client doesn't expect, so after
// a HEAD request the connection is closed.
func (c *Conn) fail() bool {
	c.state = WritingHeaders

	if err := c.client.Write(c.fixed(internalErrorResponse)); err != nil {
		return c.drop(err)
	}

	return c.finish(c.protocol.keepAlive(c.env) && !c.env.Head)
}

// reject writes the fixed response right away. The connection is going to be closed
// anyway, so errors are of no interest.
func (c *Conn) reject(response string) {
	c.state = WritingHeaders
	_ = c.client.Write(c.fixed(response))
	_ = c.client.Flush()
}

func (c *Conn) fixed(response string) []byte {
	protocol := defaultProtocol
	if c.env != nil && len(c.env.Protocol) > 0 {
		protocol = c.env.Protocol
	}

	return append([]byte(protocol), response...)
}

// finish completes the current request. Buffered response data is flushed first, so
// finishing strictly follows the transmission of the whole response.
func (c *Conn) finish(keepAlive bool) bool {
	if c.finished {
		panic("BUG: attempt to finish an already finished request")
	}

	c.finished = true
	c.state = Finishing

	if c.client.Writing() {
		if err := c.client.Flush(); err != nil {
			c.finished = false
			return c.drop(err)
		}
	}

	return c.finalize(keepAlive)
}

func (c *Conn) finalize(keepAlive bool) bool {
	c.finished = false
	keepAlive = keepAlive && c.env != nil && !c.client.Closed()
	c.env = nil

	if !keepAlive {
		c.close()
		return false
	}

	c.state = Idle
	return true
}

// drop closes the connection without any response. Always returns false
func (c *Conn) drop(err error) bool {
	switch {
	case errors.Is(err, io.EOF):
	case status.IsMalformed(err):
		c.log.Debug("malformed request", zap.Stringer("state", c.state), zap.Error(err))
	default:
		c.log.Debug("dropping connection", zap.Stringer("state", c.state), zap.Error(err))
	}

	c.env = nil
	c.close()

	return false
}

func (c *Conn) close() {
	c.state = Closed
	_ = c.client.Close()
}

func (c *Conn) logApplicationError(err error) {
	fields := []zap.Field{zap.Error(err)}
	if c.env != nil {
		fields = append(fields, zap.String("method", c.env.Method), zap.String("uri", c.env.RequestURI))
	}

	var appErr *status.ApplicationError
	if errors.As(err, &appErr) && len(appErr.Stack) > 0 {
		fields = append(fields, zap.ByteString("stack", appErr.Stack))
	}

	c.log.Error("unhandled application error", fields...)
}
