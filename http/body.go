package http

import (
	"io"

	"github.com/indigo-web/utils/uf"
)

// Body is a finite, non-restartable producer of the response body. Next returns io.EOF
// once there's nothing left. Returned slices stay valid until the following call only.
// If the implementation is also an io.Closer, it is closed once the body is done with,
// even if it wasn't consumed completely.
type Body interface {
	Next() ([]byte, error)
}

type chunksBody struct {
	chunks [][]byte
}

// Chunks returns a body producing the passed chunks in their order
func Chunks(chunks ...[]byte) Body {
	return &chunksBody{chunks: chunks}
}

// String returns a body producing each passed string as a separate chunk
func String(chunks ...string) Body {
	b := &chunksBody{chunks: make([][]byte, len(chunks))}
	for i, chunk := range chunks {
		b.chunks[i] = uf.S2B(chunk)
	}

	return b
}

// Empty returns a body with no chunks
func Empty() Body {
	return new(chunksBody)
}

func (c *chunksBody) Next() ([]byte, error) {
	if len(c.chunks) == 0 {
		return nil, io.EOF
	}

	chunk := c.chunks[0]
	c.chunks = c.chunks[1:]

	return chunk, nil
}

type readerBody struct {
	r    io.Reader
	buff []byte
}

// FromReader returns a body, streaming the reader in pieces of at most buffSize bytes.
// If the reader is an io.Closer, it'll be closed together with the body.
func FromReader(r io.Reader, buffSize int) Body {
	if buffSize <= 0 {
		buffSize = 4096
	}

	return &readerBody{
		r:    r,
		buff: make([]byte, buffSize),
	}
}

func (r *readerBody) Next() ([]byte, error) {
	for {
		n, err := r.r.Read(r.buff)
		if n > 0 {
			return r.buff[:n], nil
		}

		if err != nil {
			return nil, err
		}
	}
}

func (r *readerBody) Close() error {
	if closer, ok := r.r.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// CloseBody closes the body if it's closable. Errors are suppressed: at this point
// nobody can do anything meaningful with them.
func CloseBody(body Body) {
	if closer, ok := body.(io.Closer); ok {
		_ = closer.Close()
	}
}

// ReadAll drains the body, closing it afterward
func ReadAll(body Body) ([]byte, error) {
	defer CloseBody(body)

	var data []byte

	for {
		chunk, err := body.Next()
		data = append(data, chunk...)

		switch err {
		case nil:
		case io.EOF:
			return data, nil
		default:
			return data, err
		}
	}
}
