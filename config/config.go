package config

import (
	"time"
)

type (
	Server struct {
		// Name is the SERVER_NAME exposed to the application. Defaults to the host part
		// of the listening address, if any.
		Name string `test:"nullable"`
		// Addr is the host the server listens at. Empty value means all interfaces.
		Addr string `test:"nullable"`
		Port uint16
		// Token is the value of the Server header, injected into every response that
		// doesn't have one.
		Token string
		// Multiprocess must be set if more than one process serves the same application.
		// It's reported to the application only.
		Multiprocess bool `test:"nullable"`
	}

	Protocol struct {
		// Encoding is the charset request URIs are expected to be in. Whenever decoding
		// fails, ISO-8859-1 is used as the fallback.
		Encoding string
		// Pipeline enables connection reuse. When disabled, every connection is closed
		// right after the first response.
		Pipeline bool
		// EgressOnShortCircuit controls whether responses produced by ingress filters
		// still pass through the egress ones.
		EgressOnShortCircuit bool
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// socket
		ReadBufferSize int
		// WriteBufferSize is the amount of response data collected before it's written
		// to the socket.
		WriteBufferSize int
		// MaxBufferSize limits both the header block and the request body, as both are
		// kept in memory as a whole. Bodies exceeding it are rejected with 413.
		MaxBufferSize int
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, it'll be closed.
		ReadTimeout time.Duration
		// HeaderTimeout limits the whole header block receiving, starting with the first
		// read. Protects against slowly dripping headers.
		HeaderTimeout time.Duration
		// BodyTimeout does the same for the request body.
		BodyTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often will the Accept() call be interrupted
		// in order to check whether it's time to stop. Defaults to 5 seconds.
		AcceptLoopInterruptPeriod time.Duration
	}

	Executor struct {
		// Workers is the size of the pool response composition is offloaded to. Zero
		// means responses are composed on the connection's own goroutine.
		Workers int `test:"nullable"`
		// QueueSize limits the number of compositions waiting for a free worker. Beyond
		// it, requests are answered with 500. Zero means no limit.
		QueueSize int `test:"nullable"`
	}

	Log struct {
		// Level is one of debug, info, warn, error.
		Level string
	}
)

// Config holds all the settings of the server.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because most likely this will result in ambiguous errors.
type Config struct {
	Server   Server
	Protocol Protocol
	NET      NET
	Executor Executor
	Log      Log
}

// Default returns default config. Those are initially well-balanced, however maximal defaults
// are pretty permitting.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:  8080,
			Token: "ember",
		},
		Protocol: Protocol{
			Encoding:             "utf-8",
			Pipeline:             true,
			EgressOnShortCircuit: true,
		},
		NET: NET{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			// bodies are kept in memory as a whole, so be careful raising it
			MaxBufferSize:             100 * 1024 * 1024,
			ReadTimeout:               90 * time.Second,
			HeaderTimeout:             10 * time.Second,
			BodyTimeout:               60 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
		},
		Log: Log{
			Level: "info",
		},
	}
}
