package http1

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/ember/config"
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/internal/executor"
	"github.com/indigo-web/ember/internal/tcp"
	"github.com/indigo-web/ember/internal/uridecode"
	"go.uber.org/zap"
)

// Protocol is everything connections share: the application, its filters and the
// settings. It's immutable once built, so it's safe to use it from any goroutine.
type Protocol struct {
	handler              http.Handler
	ingress              []http.Ingress
	egress               []http.Egress
	charset              uridecode.Charset
	pipeline             bool
	egressOnShortCircuit bool
	serverToken          string
	headerTimeout        time.Duration
	bodyTimeout          time.Duration
	executor             *executor.Pool
	template             *http.Env
	log                  *zap.Logger
}

// New builds the protocol. The pool may be nil, then responses are composed on the
// connection's own goroutine.
func New(
	cfg *config.Config,
	handler http.Handler,
	ingress []http.Ingress,
	egress []http.Egress,
	pool *executor.Pool,
	log *zap.Logger,
) (*Protocol, error) {
	charset, err := uridecode.Lookup(cfg.Protocol.Encoding)
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = zap.NewNop()
	}

	p := &Protocol{
		handler:              handler,
		ingress:              ingress,
		egress:               egress,
		charset:              charset,
		pipeline:             cfg.Protocol.Pipeline,
		egressOnShortCircuit: cfg.Protocol.EgressOnShortCircuit,
		serverToken:          cfg.Server.Token,
		headerTimeout:        cfg.NET.HeaderTimeout,
		bodyTimeout:          cfg.NET.BodyTimeout,
		executor:             pool,
		log:                  log,
		template:             newTemplate(cfg, pool),
	}

	return p, nil
}

func newTemplate(cfg *config.Config, pool *executor.Pool) *http.Env {
	name := cfg.Server.Name
	if len(name) == 0 {
		name = cfg.Server.Addr
	}

	if len(name) == 0 {
		name = "localhost"
	}

	template := &http.Env{
		ServerName:    name,
		ServerAddr:    cfg.Server.Addr,
		ServerPort:    strconv.Itoa(int(cfg.Server.Port)),
		Headers:       http.NewEnvHeaders(10),
		ContentLength: -1,
		URLScheme:     "http",
		Multiprocess:  cfg.Server.Multiprocess,
	}

	if pool != nil {
		// assign only a non-nil pool, otherwise the interface value wouldn't be nil
		template.Multithread = true
		template.Executor = pool
	}

	return template
}

// Accept serves the connection until it's closed, either by the peer, by the protocol
// or due to context cancellation. Blocks the calling goroutine.
func (p *Protocol) Accept(ctx context.Context, client tcp.Client) {
	newConn(p, client).Serve(ctx)
}

func (p *Protocol) connLogger(remote net.Addr) *zap.Logger {
	fields := []zap.Field{zap.String("conn", uniuri.NewLen(8))}
	if remote != nil {
		fields = append(fields, zap.Stringer("remote", remote))
	}

	return p.log.With(fields...)
}
