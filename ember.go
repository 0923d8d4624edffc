package ember

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/indigo-web/ember/config"
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/internal/executor"
	"github.com/indigo-web/ember/internal/protocol/http1"
	"github.com/indigo-web/ember/internal/server/tcp"
	transport "github.com/indigo-web/ember/internal/tcp"
	"go.uber.org/zap"
)

type hooks struct {
	OnStart, OnStop func()
}

type stopMode uint8

const (
	stopImmediately stopMode = iota + 1
	stopGracefully
)

// App is the server: it listens, accepts connections and serves them with the handler
type App struct {
	cfg     *config.Config
	log     *zap.Logger
	ingress []http.Ingress
	egress  []http.Egress
	hooks   hooks
	addr    atomic.Pointer[net.Addr]
	stopCh  chan stopMode
}

// New returns a new App instance listening at the address, e.g. "localhost:8080" or ":80".
// Port 0 means any free port, use Addr to find out which one was picked.
func New(addr string) *App {
	cfg := config.Default()

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		panic("ember: bad address: " + err.Error())
	}

	portNum, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		panic("ember: bad port: " + port)
	}

	cfg.Server.Addr, cfg.Server.Port = host, uint16(portNum)

	return &App{
		cfg:    cfg,
		stopCh: make(chan stopMode, 1),
	}
}

// Tune replaces the default config. The address passed to New overrides the one
// in the config.
func (a *App) Tune(cfg *config.Config) *App {
	cfg.Server.Addr, cfg.Server.Port = a.cfg.Server.Addr, a.cfg.Server.Port
	a.cfg = cfg
	return a
}

// Logger replaces the logger built from the config
func (a *App) Logger(log *zap.Logger) *App {
	a.log = log
	return a
}

// Ingress appends filters running before the handler
func (a *App) Ingress(filters ...http.Ingress) *App {
	a.ingress = append(a.ingress, filters...)
	return a
}

// Egress appends filters running after the handler
func (a *App) Egress(filters ...http.Egress) *App {
	a.egress = append(a.egress, filters...)
	return a
}

// NotifyOnStart calls the callback at the moment, when the server is started. It's guaranteed
// that the listener is bound by then
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback at the moment, when the server is down. It's guaranteed,
// that at the moment as the callback is called, the server isn't able to accept any new connections
// and all the clients are already disconnected
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Addr returns the address the server is bound to. Nil until the server is started
func (a *App) Addr() net.Addr {
	if addr := a.addr.Load(); addr != nil {
		return *addr
	}

	return nil
}

// Serve runs the server until it's stopped. Blocks the calling goroutine
func (a *App) Serve(handler http.Handler) error {
	if handler == nil {
		return errors.New("ember: no handler")
	}

	log := a.log
	if log == nil {
		var err error
		if log, err = a.cfg.NewLogger(); err != nil {
			return err
		}

		defer func() {
			_ = log.Sync()
		}()
	}

	var pool *executor.Pool
	if workers := a.cfg.Executor.Workers; workers > 0 {
		var err error
		if pool, err = executor.New(workers, a.cfg.Executor.QueueSize, log); err != nil {
			return err
		}

		defer pool.Release()
	}

	protocol, err := http1.New(a.cfg, handler, a.ingress, a.egress, pool, log)
	if err != nil {
		return err
	}

	server, err := tcp.Bind(net.JoinHostPort(a.cfg.Server.Addr, strconv.Itoa(int(a.cfg.Server.Port))))
	if err != nil {
		return err
	}

	return a.run(server, protocol, log)
}

func (a *App) run(server *tcp.Server, protocol *http1.Protocol, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	netCfg := a.cfg.NET
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(netCfg.AcceptLoopInterruptPeriod, func(conn net.Conn) {
			client := transport.NewClient(
				conn, netCfg.ReadTimeout, make([]byte, netCfg.ReadBufferSize),
				netCfg.WriteBufferSize, netCfg.MaxBufferSize,
			)
			protocol.Accept(ctx, client)
		})
	}()

	addr := server.Addr()
	a.addr.Store(&addr)
	log.Info("listening", zap.Stringer("addr", addr))
	callIfNotNil(a.hooks.OnStart)

	var err error
	select {
	case err = <-errCh:
		// the accept loop died by itself
		cancel()
	case mode := <-a.stopCh:
		server.Stop()
		err = <-errCh
		if mode == stopImmediately {
			cancel()
		}
	}

	server.Wait()
	a.addr.Store(nil)
	log.Info("stopped", zap.Error(err))
	callIfNotNil(a.hooks.OnStop)

	return err
}

// GracefulStop stops accepting new connections, but keeps serving old ones until they're
// closed by the peers.
//
// NOTE: the call isn't blocking. So by that, after the method returned, the server
// will be still working
func (a *App) GracefulStop() {
	a.requestStop(stopGracefully)
}

// Stop stops the whole application, closing all the connections.
//
// NOTE: the call isn't blocking. So by that, after the method returned, the server
// will still be working
func (a *App) Stop() {
	a.requestStop(stopImmediately)
}

func (a *App) requestStop(mode stopMode) {
	select {
	case a.stopCh <- mode:
	default:
		// stop is already requested
	}
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}
