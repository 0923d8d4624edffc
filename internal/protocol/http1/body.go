package http1

import (
	"bytes"
	"errors"
	"strings"

	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/internal/hexconv"
	"github.com/indigo-web/ember/internal/tcp"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

var continueLine = []byte("HTTP/1.1 100 Continue\r\n\r\n")

// readBody acquires the whole request body and exposes it as env.Body. Requests with
// neither Content-Length nor chunked Transfer-Encoding have an empty body.
func readBody(client tcp.Client, env *http.Env) error {
	chunked := env.ContentLength < 0 && isChunked(env.Headers.Value("HTTP_TRANSFER_ENCODING"))

	if env.ContentLength > int64(client.MaxBufferSize()) {
		return status.ErrPayloadTooLarge
	}

	if strcomp.EqualFold(env.Headers.Value("HTTP_EXPECT"), "100-continue") {
		if err := sendContinue(client); err != nil {
			return err
		}
	}

	var (
		body []byte
		err  error
	)

	switch {
	case env.ContentLength > 0:
		body, err = client.ReadBytes(int(env.ContentLength))
	case chunked:
		body, err = readChunked(client, env)
	}

	if err != nil {
		return err
	}

	env.Body = bytes.NewReader(body)
	return nil
}

func sendContinue(client tcp.Client) error {
	if err := client.Write(continueLine); err != nil {
		return err
	}

	return client.Flush()
}

// isChunked reports whether chunked is the final transfer coding
func isChunked(transferEncoding string) bool {
	if i := strings.LastIndexByte(transferEncoding, ','); i != -1 {
		transferEncoding = transferEncoding[i+1:]
	}

	return strcomp.EqualFold(strings.TrimSpace(transferEncoding), "chunked")
}

func readChunked(client tcp.Client, env *http.Env) ([]byte, error) {
	var body []byte
	limit := uint64(client.MaxBufferSize())

	for {
		line, err := client.ReadUntil(crlf)
		if err != nil {
			return nil, chunkedReadErr(err)
		}

		sizeToken, _, _ := bytes.Cut(bytes.TrimSuffix(line, crlf), []byte(";"))
		size, ok := hexconv.Parse(bytes.TrimSpace(sizeToken))
		if !ok {
			return nil, malformed(status.ErrBadChunk)
		}

		if size == 0 {
			return body, readTrailers(client, env, int(limit)-len(body))
		}

		// len(body) never exceeds the limit, so the subtraction can't wrap
		if size > limit-uint64(len(body)) {
			return nil, status.ErrPayloadTooLarge
		}

		chunk, err := client.ReadBytes(int(size) + len(crlf))
		if err != nil {
			return nil, chunkedReadErr(err)
		}

		if !bytes.HasSuffix(chunk, crlf) {
			return nil, malformed(status.ErrBadChunk)
		}

		body = append(body, chunk[:size]...)
	}
}

// readTrailers consumes trailer fields up to the empty line closing the chunked body,
// merging them into the headers. The trailer section shares the buffer limit with the
// body, so at most budget bytes of it are accepted.
func readTrailers(client tcp.Client, env *http.Env, budget int) error {
	for {
		line, err := client.ReadUntil(crlf)
		if err != nil {
			return chunkedReadErr(err)
		}

		line = bytes.TrimSuffix(line, crlf)
		if len(line) == 0 {
			return nil
		}

		if budget -= len(line) + len(crlf); budget < 0 {
			return status.ErrHeaderFieldsTooLarge
		}

		name, value, found := bytes.Cut(line, []byte(":"))
		if !found || len(name) == 0 || !isToken(name) {
			return malformed(status.ErrBadHeader)
		}

		if forbiddenTrailer(uf.B2S(name)) {
			continue
		}

		env.Headers.Set(http.EnvKey(string(name)), string(bytes.Trim(value, " \t")))
	}
}

var forbiddenTrailers = []string{
	"Content-Length", "Transfer-Encoding", "Host", "Content-Type", "Trailer", "Connection",
}

func forbiddenTrailer(name string) bool {
	for _, forbidden := range forbiddenTrailers {
		if strcomp.EqualFold(name, forbidden) {
			return true
		}
	}

	return false
}

func chunkedReadErr(err error) error {
	if errors.Is(err, tcp.ErrBufferOverflow) {
		return malformed(status.ErrBadChunk)
	}

	return err
}
