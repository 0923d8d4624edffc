package tcp

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/indigo-web/ember/internal/timer"
)

// Client is the transport a single connection is served over. Reads suspend the calling
// goroutine until enough data arrives; writes are buffered until Flush, and Writing
// reports whether any of them are still pending.
type Client interface {
	ReadUntil(delim []byte) ([]byte, error)
	ReadBytes(n int) ([]byte, error)
	Write([]byte) error
	Flush() error
	Writing() bool
	Closed() bool
	Close() error
	MaxBufferSize() int
	Remote() net.Addr
	// SetPhaseTimeout starts a new read phase. Once the first piece of data of the phase
	// arrives, all the following reads must complete within the timeout. Zero removes
	// the limit
	SetPhaseTimeout(time.Duration)
}

type client struct {
	*Stream
	conn      net.Conn
	readBuff  []byte
	writeBuff []byte
	timeout   time.Duration
	phase     time.Duration
	deadline  time.Time
	closed    atomic.Bool
}

// NewClient wraps the connection. The timeout limits every single read, readBuff is
// the buffer reads from the socket are made into and writeBuffSize is the amount of
// response data collected before it gets flushed implicitly.
func NewClient(conn net.Conn, timeout time.Duration, readBuff []byte, writeBuffSize, maxBufferSize int) Client {
	c := &client{
		conn:      conn,
		readBuff:  readBuff,
		writeBuff: make([]byte, 0, writeBuffSize),
		timeout:   timeout,
	}
	c.Stream = NewStream(c.read, maxBufferSize)

	return c
}

func (c *client) read() ([]byte, error) {
	deadline := timer.Now().Add(c.timeout)
	if !c.deadline.IsZero() && c.deadline.Before(deadline) {
		deadline = c.deadline
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	n, err := c.conn.Read(c.readBuff)
	if n > 0 {
		if c.phase > 0 && c.deadline.IsZero() {
			c.deadline = timer.Now().Add(c.phase)
		}

		// the error, if any, will be returned again by the next read
		return c.readBuff[:n], nil
	}

	if err != nil {
		c.closed.Store(true)
	}

	return nil, err
}

func (c *client) Write(b []byte) error {
	if len(c.writeBuff)+len(b) <= cap(c.writeBuff) {
		c.writeBuff = append(c.writeBuff, b...)
		return nil
	}

	if err := c.Flush(); err != nil {
		return err
	}

	if len(b) < cap(c.writeBuff) {
		c.writeBuff = append(c.writeBuff, b...)
		return nil
	}

	return c.send(b)
}

func (c *client) Flush() error {
	if len(c.writeBuff) == 0 {
		return nil
	}

	err := c.send(c.writeBuff)
	c.writeBuff = c.writeBuff[:0]

	return err
}

func (c *client) send(b []byte) error {
	if _, err := c.conn.Write(b); err != nil {
		c.closed.Store(true)
		return err
	}

	return nil
}

func (c *client) Writing() bool {
	return len(c.writeBuff) > 0
}

func (c *client) Closed() bool {
	return c.closed.Load()
}

func (c *client) SetPhaseTimeout(timeout time.Duration) {
	c.phase = timeout
	c.deadline = time.Time{}
}

func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

// Close may be called concurrently with other methods
func (c *client) Close() error {
	c.closed.Store(true)
	return c.conn.Close()
}
