package http1

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	stdhttp "net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/ember/config"
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/internal/executor"
	"github.com/indigo-web/ember/internal/tcp"
	"github.com/indigo-web/ember/internal/tcp/dummy"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func echoHandler(env *http.Env) (*http.Response, error) {
	if env.Path == "/panic" {
		panic("requested panic")
	}

	body, err := io.ReadAll(env.Body)
	if err != nil {
		return nil, err
	}

	return http.Respond(status.OK, env.Method+" "+env.Path+" "+string(body)), nil
}

func serve(p *Protocol, client *dummy.Client) *dummy.Client {
	p.Accept(context.Background(), client)
	return client
}

type response struct {
	*stdhttp.Response
	Body string
}

func readResponses(t *testing.T, data []byte, methods ...string) []response {
	t.Helper()
	reader := bufio.NewReader(bytes.NewReader(data))
	var responses []response

	for _, method := range methods {
		req, err := stdhttp.NewRequest(method, "/", nil)
		require.NoError(t, err)
		resp, err := stdhttp.ReadResponse(reader, req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		responses = append(responses, response{Response: resp, Body: string(body)})
	}

	_, err := reader.ReadByte()
	require.ErrorIs(t, err, io.EOF, "unexpected trailing data")

	return responses
}

func TestConn(t *testing.T) {
	t.Run("single request", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := serve(p, dummy.NewClient([]byte("GET /hello HTTP/1.1\r\nHost: localhost\r\n\r\n")))

		resps := readResponses(t, client.Written, "GET")
		require.Equal(t, 200, resps[0].StatusCode)
		require.Equal(t, "GET /hello ", resps[0].Body)
		require.True(t, client.Closed(), "connection must be closed once the peer is gone")
	})

	t.Run("pipelining", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := serve(p, dummy.NewClient(
			[]byte("GET /first HTTP/1.1\r\n\r\nPOST /second HTTP/1.1\r\nContent-Length: 4\r\n\r\nbo"),
			[]byte("dyGET /third HTTP/1.1\r\n\r\n"),
		))

		resps := readResponses(t, client.Written, "GET", "POST", "GET")
		require.Equal(t, "GET /first ", resps[0].Body)
		require.Equal(t, "POST /second body", resps[1].Body)
		require.Equal(t, "GET /third ", resps[2].Body)

		// the next header block is never read before the previous response is flushed
		require.Len(t, client.Flushes, 3)
		require.Len(t, client.Reads, 4)
		require.Zero(t, client.Reads[0])
		for i, flushed := range client.Flushes {
			require.Equal(t, flushed, client.Reads[i+1])
		}
	})

	t.Run("100-continue", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := serve(p, dummy.NewClient(
			[]byte("POST /upload HTTP/1.1\r\nExpect: 100-continue\r\nContent-Length: 5\r\n\r\n"),
			[]byte("hello"),
		))

		require.True(t, bytes.HasPrefix(client.Written, continueLine))
		resps := readResponses(t, client.Written[len(continueLine):], "POST")
		require.Equal(t, "POST /upload hello", resps[0].Body)
	})

	t.Run("chunked request", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := serve(p, dummy.NewClient([]byte(
			"POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n" +
				"GET /next HTTP/1.1\r\n\r\n",
		)))

		resps := readResponses(t, client.Written, "POST", "GET")
		require.Equal(t, "POST / hello", resps[0].Body)
		require.Equal(t, "GET /next ", resps[1].Body)
	})

	t.Run("HEAD", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := serve(p, dummy.NewClient([]byte("HEAD /x HTTP/1.1\r\n\r\nGET /x HTTP/1.1\r\n\r\n")))

		resps := readResponses(t, client.Written, "HEAD", "GET")
		require.Empty(t, resps[0].Body)
		require.Equal(t, "GET /x ", resps[1].Body)
		require.Equal(t, resps[1].Header.Get("Content-Length"), resps[0].Header.Get("Content-Length"))
	})

	t.Run("HTTP/1.0", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		request := []byte("GET / HTTP/1.0\r\n\r\n")
		client := serve(p, dummy.NewClient(request, request))

		require.Len(t, readResponses(t, client.Written, "GET"), 1)
		require.True(t, client.Closed())
		require.Len(t, client.Reads, 1)
	})

	t.Run("HTTP/1.0 keep-alive", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		request := []byte("GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n")
		client := serve(p, dummy.NewClient(request, request))

		resps := readResponses(t, client.Written, "GET", "GET")
		require.Equal(t, "keep-alive", resps[0].Header.Get("Connection"))
	})

	t.Run("connection close", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		request := []byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
		client := serve(p, dummy.NewClient(request, request))

		resps := readResponses(t, client.Written, "GET")
		require.Equal(t, "close", resps[0].Header.Get("Connection"))
		require.True(t, client.Closed())
	})

	t.Run("pipeline disabled", func(t *testing.T) {
		cfg := config.Default()
		cfg.Protocol.Pipeline = false
		p := newProtocol(t, cfg, echoHandler)
		client := serve(p, dummy.NewClient([]byte("GET / HTTP/1.1\r\n\r\nGET / HTTP/1.1\r\n\r\n")))

		require.Len(t, readResponses(t, client.Written, "GET"), 1)
		require.True(t, client.Closed())
	})
}

func TestConn_Errors(t *testing.T) {
	const fixed500 = "HTTP/1.1 500 Internal Server Error\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 48\r\n" +
		"\r\n" +
		"The server encountered an unrecoverable error.\r\n"

	t.Run("handler panic", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := serve(p, dummy.NewClient([]byte("GET /panic HTTP/1.1\r\n\r\nGET /after HTTP/1.1\r\n\r\n")))

		require.True(t, bytes.HasPrefix(client.Written, []byte(fixed500)))
		resps := readResponses(t, client.Written, "GET", "GET")
		require.Equal(t, 500, resps[0].StatusCode)
		require.Equal(t, int64(48), resps[0].ContentLength)
		require.Equal(t, "GET /after ", resps[1].Body)
	})

	t.Run("handler error with connection close", func(t *testing.T) {
		p := newProtocol(t, nil, func(*http.Env) (*http.Response, error) {
			return nil, errors.New("something went wrong")
		})
		request := []byte("GET / HTTP/1.1\r\nConnection: close\r\n\r\n")
		client := serve(p, dummy.NewClient(request, request))

		require.Equal(t, fixed500, string(client.Written))
		require.True(t, client.Closed())
	})

	t.Run("500 uses the request protocol", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := serve(p, dummy.NewClient([]byte("GET /panic HTTP/1.0\r\n\r\n")))

		require.Equal(t, "HTTP/1.0"+strings.TrimPrefix(fixed500, "HTTP/1.1"), string(client.Written))
	})

	t.Run("payload too large", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := dummy.NewClient(
			[]byte("POST / HTTP/1.1\r\nContent-Length: 100\r\n\r\n"),
			[]byte(strings.Repeat("a", 100)),
		).WithMaxBufferSize(64)
		serve(p, client)

		require.Equal(t, "HTTP/1.1 413 Request Entity Too Large\r\n"+
			"Content-Type: text/plain\r\n"+
			"Content-Length: 27\r\n"+
			"Connection: close\r\n"+
			"\r\n"+
			"Request entity too large.\r\n", string(client.Written))
		require.Equal(t, 1, client.Consumed(), "body must not be read")
		require.True(t, client.Closed())
	})

	t.Run("malformed request", func(t *testing.T) {
		for _, raw := range []string{
			"GET /\r\n\r\n",
			"GET / HTTP/1.1\r\n continuation\r\n\r\n",
			"POST / HTTP/1.1\r\nContent-Length: nope\r\n\r\n",
			"POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nxyz\r\n",
		} {
			p := newProtocol(t, nil, echoHandler)
			client := serve(p, dummy.NewClient([]byte(raw)))
			require.Empty(t, client.Written, raw)
			require.True(t, client.Closed(), raw)
		}
	})

	t.Run("too large headers", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := dummy.NewClient([]byte("GET / HTTP/1.1\r\nX-Long: " + strings.Repeat("a", 100) + "\r\n\r\n")).
			WithMaxBufferSize(64)
		serve(p, client)

		require.Empty(t, client.Written)
		require.True(t, client.Closed())
	})

	t.Run("producer failure", func(t *testing.T) {
		tracker := &closeTracker{Body: &failingBody{}}
		p := newProtocol(t, nil, func(*http.Env) (*http.Response, error) {
			return http.NewResponse(status.OK).WithBody(tracker), nil
		})
		request := []byte("GET / HTTP/1.1\r\n\r\n")
		client := serve(p, dummy.NewClient(request, request))

		require.Equal(t, 1, tracker.closed)
		require.True(t, client.Closed())
		require.Len(t, client.Reads, 1, "connection must not be reused")
	})

	t.Run("producer panic", func(t *testing.T) {
		tracker := &closeTracker{Body: panickingBody{}}
		p := newProtocol(t, nil, func(*http.Env) (*http.Response, error) {
			return http.NewResponse(status.OK).WithBody(tracker), nil
		})
		request := []byte("GET / HTTP/1.1\r\n\r\n")
		client := dummy.NewClient(request, request)

		require.NotPanics(t, func() {
			serve(p, client)
		})
		require.Equal(t, 1, tracker.closed)
		require.True(t, client.Closed())
		require.Len(t, client.Reads, 1, "connection must not be reused")
	})

	t.Run("closer panic", func(t *testing.T) {
		p := newProtocol(t, nil, func(*http.Env) (*http.Response, error) {
			return http.NewResponse(status.OK).WithBody(panickingCloser{Body: http.String("hello")}), nil
		})
		request := []byte("GET / HTTP/1.1\r\n\r\n")
		client := dummy.NewClient(request, request)

		require.NotPanics(t, func() {
			serve(p, client)
		})
		require.True(t, client.Closed())
		require.Len(t, client.Reads, 1)
	})

	t.Run("chunk size overflowing the limit", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := dummy.NewClient([]byte(
			"POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\nfffffffffffffffd\r\n",
		))

		require.NotPanics(t, func() {
			serve(p, client)
		})
		require.True(t, strings.HasPrefix(string(client.Written), "HTTP/1.1 413 "))
		require.True(t, client.Closed())
	})

	t.Run("HEAD failure closes the connection", func(t *testing.T) {
		p := newProtocol(t, nil, echoHandler)
		client := serve(p, dummy.NewClient([]byte("HEAD /panic HTTP/1.1\r\n\r\nGET /after HTTP/1.1\r\n\r\n")))

		require.Equal(t, fixed500, string(client.Written))
		require.True(t, client.Closed())
		require.Len(t, client.Reads, 1, "connection must not be reused")
	})
}

type panickingBody struct{}

func (panickingBody) Next() ([]byte, error) {
	panic("producer exploded")
}

type panickingCloser struct {
	http.Body
}

func (panickingCloser) Close() error {
	panic("closer exploded")
}

type failingBody struct {
	calls int
}

func (f *failingBody) Next() ([]byte, error) {
	f.calls++
	if f.calls == 1 {
		return []byte("partial"), nil
	}

	return nil, errors.New("producer failed")
}

func decodeChunked(t *testing.T, data []byte) []byte {
	parser := chunkedbody.NewParser(chunkedbody.DefaultSettings())
	var body []byte

	for len(data) > 0 {
		chunk, extra, err := parser.Parse(data, false)
		if err != nil {
			require.EqualError(t, err, io.EOF.Error())
			break
		}

		body = append(body, chunk...)
		data = extra
	}

	return body
}

func TestConn_ChunkedResponse(t *testing.T) {
	for _, chunks := range [][]string{
		{},
		{"Hello, world!"},
		{"Hello", ", ", "", "world", "!", strings.Repeat("abcdefgh", 1000)},
	} {
		t.Run(strconv.Itoa(len(chunks))+" chunks", func(t *testing.T) {
			var tracker *closeTracker
			p := newProtocol(t, nil, func(*http.Env) (*http.Response, error) {
				tracker = &closeTracker{Body: http.String(chunks...)}
				return http.NewResponse(status.OK).WithBody(tracker), nil
			})
			client := serve(p, dummy.NewClient([]byte("GET / HTTP/1.1\r\n\r\n")))

			head, body, found := bytes.Cut(client.Written, headersEnd)
			require.True(t, found)
			require.Contains(t, string(head), "\r\nTransfer-Encoding: chunked")
			require.True(t, bytes.HasSuffix(body, lastChunk))
			require.Equal(t, 1, bytes.Count(body, lastChunk), "empty chunks must be skipped")
			require.Equal(t, strings.Join(chunks, ""), string(decodeChunked(t, body)))
			require.Equal(t, 1, tracker.closed)

			if len(chunks) == 0 {
				require.Equal(t, "0\r\n\r\n", string(body))
			}

			resps := readResponses(t, client.Written, "GET")
			require.Equal(t, strings.Join(chunks, ""), resps[0].Body)
		})
	}

	t.Run("HEAD writes no terminating chunk", func(t *testing.T) {
		p := newProtocol(t, nil, func(*http.Env) (*http.Response, error) {
			return http.NewResponse(status.OK).WithBody(http.String("a", "b")), nil
		})
		client := serve(p, dummy.NewClient([]byte("HEAD / HTTP/1.1\r\n\r\n")))

		_, body, found := bytes.Cut(client.Written, headersEnd)
		require.True(t, found)
		require.Empty(t, body)
	})
}

func TestConn_Executor(t *testing.T) {
	pool, err := executor.New(2, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	p, err := New(config.Default(), func(env *http.Env) (*http.Response, error) {
		require.True(t, env.Multithread)
		require.NotNil(t, env.Executor)
		return echoHandler(env)
	}, nil, nil, pool, zaptest.NewLogger(t))
	require.NoError(t, err)

	client := serve(p, dummy.NewClient([]byte(
		"GET /one HTTP/1.1\r\n\r\nGET /panic HTTP/1.1\r\n\r\nGET /two HTTP/1.1\r\n\r\n",
	)))

	resps := readResponses(t, client.Written, "GET", "GET", "GET")
	require.Equal(t, "GET /one ", resps[0].Body)
	require.Equal(t, 500, resps[1].StatusCode)
	require.Equal(t, "GET /two ", resps[2].Body)
}

func TestConn_Finish(t *testing.T) {
	t.Run("flushes pending data", func(t *testing.T) {
		client := dummy.NopClient()
		conn := newConn(newProtocol(t, nil, echoHandler), client)
		conn.env = newRequestEnv("GET", "HTTP/1.1")

		require.NoError(t, client.Write([]byte("pending")))
		require.True(t, conn.finish(true))
		require.Equal(t, "pending", string(client.Written))
		require.Equal(t, Idle, conn.State())
		require.Nil(t, conn.env)
	})

	t.Run("closes without env", func(t *testing.T) {
		client := dummy.NopClient()
		conn := newConn(newProtocol(t, nil, echoHandler), client)

		require.False(t, conn.finish(true))
		require.True(t, client.Closed())
		require.Equal(t, Closed, conn.State())
	})

	t.Run("twice", func(t *testing.T) {
		conn := newConn(newProtocol(t, nil, echoHandler), dummy.NopClient())
		conn.finished = true

		require.Panics(t, func() {
			conn.finish(true)
		})
	})
}

func TestConn_Cancellation(t *testing.T) {
	server, peer := net.Pipe()
	defer peer.Close()

	client := tcp.NewClient(server, time.Minute, make([]byte, 64), 64, 1024)
	p := newProtocol(t, nil, echoHandler)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		p.Accept(ctx, client)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "connection wasn't closed on cancellation")
	}

	require.True(t, client.Closed())
}

func TestState(t *testing.T) {
	require.Equal(t, "AwaitingHeaders", AwaitingHeaders.String())
	require.Equal(t, "WritingBody", WritingBody.String())
	require.Equal(t, "Closed", Closed.String())
	require.Equal(t, "State(42)", State(42).String())
}
