package tcp

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func pieces(data ...string) Source {
	return func() ([]byte, error) {
		if len(data) == 0 {
			return nil, io.EOF
		}

		piece := data[0]
		data = data[1:]

		return []byte(piece), nil
	}
}

func TestStream_ReadUntil(t *testing.T) {
	t.Run("single piece with leftovers", func(t *testing.T) {
		stream := NewStream(pieces("GET / HTTP/1.1\r\n\r\nrest"), 1024)
		data, err := stream.ReadUntil([]byte("\r\n\r\n"))
		require.NoError(t, err)
		require.Equal(t, "GET / HTTP/1.1\r\n\r\n", string(data))

		rest, err := stream.ReadBytes(4)
		require.NoError(t, err)
		require.Equal(t, "rest", string(rest))
	})

	t.Run("delimiter split between pieces", func(t *testing.T) {
		stream := NewStream(pieces("hello\r", "\n", "\r\nworld\r\n"), 1024)
		data, err := stream.ReadUntil([]byte("\r\n\r\n"))
		require.NoError(t, err)
		require.Equal(t, "hello\r\n\r\n", string(data))

		data, err = stream.ReadUntil([]byte("\r\n"))
		require.NoError(t, err)
		require.Equal(t, "world\r\n", string(data))
	})

	t.Run("returned data is not overwritten", func(t *testing.T) {
		buff := []byte("first\nsecond\n")
		stream := NewStream(func() ([]byte, error) {
			return buff, nil
		}, 1024)

		first, err := stream.ReadUntil([]byte("\n"))
		require.NoError(t, err)
		second, err := stream.ReadUntil([]byte("\n"))
		require.NoError(t, err)
		require.Equal(t, "first\n", string(first))
		require.Equal(t, "second\n", string(second))
	})

	t.Run("overflow", func(t *testing.T) {
		stream := NewStream(pieces("aaaaaaaa", "aaaaaaaa", "\n"), 10)
		_, err := stream.ReadUntil([]byte("\n"))
		require.ErrorIs(t, err, ErrBufferOverflow)
	})

	t.Run("eof", func(t *testing.T) {
		stream := NewStream(pieces("no delimiter"), 1024)
		_, err := stream.ReadUntil([]byte("\n"))
		require.ErrorIs(t, err, io.EOF)
	})
}

func TestStream_ReadBytes(t *testing.T) {
	t.Run("across pieces", func(t *testing.T) {
		stream := NewStream(pieces("Hel", "lo, wor", "ld!tail"), 1024)
		data, err := stream.ReadBytes(13)
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", string(data))

		tail, err := stream.ReadUntil([]byte("l"))
		require.NoError(t, err)
		require.Equal(t, "tail", string(tail))
	})

	t.Run("over the limit", func(t *testing.T) {
		stream := NewStream(pieces("whatever"), 4)
		_, err := stream.ReadBytes(5)
		require.ErrorIs(t, err, ErrBufferOverflow)
	})

	t.Run("negative", func(t *testing.T) {
		stream := NewStream(pieces("whatever"), 4)
		_, err := stream.ReadBytes(-1)
		require.ErrorIs(t, err, ErrBufferOverflow)
	})
}

func TestClient(t *testing.T) {
	server, peer := net.Pipe()
	client := NewClient(server, time.Second, make([]byte, 16), 8, 1024)

	go func() {
		_, _ = peer.Write([]byte("ping\r\n"))
	}()

	data, err := client.ReadUntil([]byte("\r\n"))
	require.NoError(t, err)
	require.Equal(t, "ping\r\n", string(data))

	require.NoError(t, client.Write([]byte("pong")))
	require.True(t, client.Writing())

	received := make(chan []byte)
	go func() {
		buff := make([]byte, 16)
		n, _ := peer.Read(buff)
		received <- buff[:n]
	}()

	require.NoError(t, client.Flush())
	require.False(t, client.Writing())
	require.Equal(t, "pong", string(<-received))

	t.Run("phase timeout", func(t *testing.T) {
		client.SetPhaseTimeout(50 * time.Millisecond)
		go func() {
			// the phase starts with the first data, so the rest never arrives in time
			_, _ = peer.Write([]byte("par"))
		}()

		start := time.Now()
		_, err := client.ReadUntil([]byte("\r\n"))
		require.Error(t, err)
		require.Less(t, time.Since(start), 900*time.Millisecond)
		require.True(t, client.Closed())
	})

	require.NoError(t, peer.Close())
}
