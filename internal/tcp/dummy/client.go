package dummy

import (
	"io"
	"net"
	"time"

	"github.com/indigo-web/ember/internal/tcp"
)

// Client is a scripted in-memory transport. Every read returns the next piece of the
// data it was initialised with, and io.EOF once all of them are consumed. Everything
// written is accumulated in Written.
type Client struct {
	*tcp.Stream
	data    [][]byte
	pointer int
	pending []byte
	// Written contains only flushed data
	Written []byte
	// Flushes has the length of Written at the moment of each Flush call
	Flushes []int
	// Reads has the length of Written at the moment of each ReadUntil call
	Reads []int
	// Phases records every phase timeout set
	Phases []time.Duration
	closed bool
	remote net.Addr
}

func NewClient(data ...[]byte) *Client {
	c := &Client{
		data:   data,
		remote: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000},
	}
	c.Stream = tcp.NewStream(c.next, 1<<20)

	return c
}

// WithMaxBufferSize replaces the buffer limit. Must be called before any read
func (c *Client) WithMaxBufferSize(n int) *Client {
	c.Stream = tcp.NewStream(c.next, n)
	return c
}

func (c *Client) next() ([]byte, error) {
	if c.closed || c.pointer >= len(c.data) {
		return nil, io.EOF
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *Client) ReadUntil(delim []byte) ([]byte, error) {
	c.Reads = append(c.Reads, len(c.Written))
	return c.Stream.ReadUntil(delim)
}

func (c *Client) Write(b []byte) error {
	if c.closed {
		return io.ErrClosedPipe
	}

	c.pending = append(c.pending, b...)
	return nil
}

func (c *Client) Flush() error {
	c.Written = append(c.Written, c.pending...)
	c.pending = c.pending[:0]
	c.Flushes = append(c.Flushes, len(c.Written))

	return nil
}

func (c *Client) Writing() bool {
	return len(c.pending) > 0
}

func (c *Client) Closed() bool {
	return c.closed
}

func (c *Client) Close() error {
	c.closed = true
	return nil
}

func (c *Client) Remote() net.Addr {
	return c.remote
}

func (c *Client) SetPhaseTimeout(timeout time.Duration) {
	c.Phases = append(c.Phases, timeout)
}

// NopClient returns a client with nothing to read
func NopClient() *Client {
	return NewClient()
}

// Consumed returns how many of the scripted pieces were handed out already
func (c *Client) Consumed() int {
	return c.pointer
}
