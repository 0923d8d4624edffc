package http1

import (
	"io"
	"strconv"

	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/internal/tcp"
)

var lastChunk = []byte("0\r\n\r\n")

// writeBody pulls the body chunk by chunk and writes each one as soon as it's produced.
// The producer is closed in any case, its own closing errors are ignored. Producer errors
// are returned as is, and the connection must not be reused after them, as the framing is
// already broken. Panics of the producer are returned as *status.ApplicationError.
func writeBody(client tcp.Client, framed *Framed) (err error) {
	body := framed.Body
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
			closeQuietly(body)
		}
	}()

	chunkHead := make([]byte, 0, 18)

	for {
		chunk, err := body.Next()
		if len(chunk) > 0 {
			if framed.Chunked {
				chunkHead = strconv.AppendUint(chunkHead[:0], uint64(len(chunk)), 16)
				chunkHead = append(chunkHead, crlf...)

				if werr := writeAll(client, chunkHead, chunk, crlf); werr != nil {
					http.CloseBody(body)
					return werr
				}
			} else if werr := client.Write(chunk); werr != nil {
				http.CloseBody(body)
				return werr
			}
		}

		switch err {
		case nil:
		case io.EOF:
			http.CloseBody(body)
			if framed.Chunked {
				return client.Write(lastChunk)
			}

			return nil
		default:
			http.CloseBody(body)
			return err
		}
	}
}

// closeQuietly closes the body, swallowing even a panic
func closeQuietly(body http.Body) {
	defer func() {
		_ = recover()
	}()

	http.CloseBody(body)
}

func writeAll(client tcp.Client, pieces ...[]byte) error {
	for _, piece := range pieces {
		if err := client.Write(piece); err != nil {
			return err
		}
	}

	return nil
}
