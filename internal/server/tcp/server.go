package tcp

import (
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-web/ember/internal/timer"
)

type listener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// Server is the accept loop. Every accepted connection is handed to the callback in its
// own goroutine and closed once the callback returns.
type Server struct {
	l    listener
	wg   sync.WaitGroup
	stop atomic.Bool
}

func NewServer(l listener) *Server {
	return &Server{l: l}
}

// Bind starts listening at the address, e.g. "localhost:8080". Port 0 picks a free one
func Bind(addr string) (*Server, error) {
	tcpaddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	l, err := net.ListenTCP("tcp", tcpaddr)
	if err != nil {
		return nil, err
	}

	return NewServer(l), nil
}

func (s *Server) Addr() net.Addr {
	return s.l.Addr()
}

// Start accepts connections until stopped. The blocking Accept call is interrupted every
// interruptPeriod to check whether it's time to stop. Returns nil if the loop was stopped
// by Stop.
func (s *Server) Start(interruptPeriod time.Duration, onConn func(conn net.Conn)) error {
	defer s.Close()

	for !s.stop.Load() {
		err := s.l.SetDeadline(timer.Now().Add(interruptPeriod))
		if err != nil {
			return err
		}

		conn, err := s.l.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}

			if s.stop.Load() {
				// the listener was closed by Stop
				return nil
			}

			return err
		}

		s.wg.Add(1)
		go func(conn net.Conn) {
			defer s.wg.Done()
			onConn(conn)
			_ = conn.Close()
		}(conn)
	}

	return nil
}

// Stop stops accepting new connections. Already accepted ones aren't affected
func (s *Server) Stop() {
	s.stop.Store(true)
	s.Close()
}

// Close closes the listener
func (s *Server) Close() {
	_ = s.l.Close()
}

// Wait blocks until all the accepted connections are done
func (s *Server) Wait() {
	s.wg.Wait()
}
