package filter

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/codec"
	"github.com/indigo-web/ember/http/mime"
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/internal/codecutil"
)

// Compress encodes response bodies with the first of the codecs the client accepts.
// Compressed bodies are streamed, so their length isn't known in advance, therefore only
// HTTP/1.1 responses, which can be chunked, are compressed.
type Compress struct {
	cache   *codecutil.Cache
	minSize int
}

// NewCompress uses gzip if no codecs are passed. The order of codecs is the order of
// preference.
func NewCompress(codecs ...codec.Codec) *Compress {
	if len(codecs) == 0 {
		codecs = []codec.Codec{codec.NewGZIP()}
	}

	return &Compress{
		cache:   codecutil.NewCache(codecs),
		minSize: 256,
	}
}

// MinSize disables compression of responses with known length lower than n
func (c *Compress) MinSize(n int) *Compress {
	c.minSize = n
	return c
}

func (c *Compress) ProcessEgress(env *http.Env, resp *http.Response) (*http.Response, error) {
	if resp == nil || !c.applicable(env, resp) {
		return resp, nil
	}

	token := c.cache.Negotiate(env.Header("Accept-Encoding"))
	if len(token) == 0 {
		return resp, nil
	}

	inst, release := c.cache.Get(token)
	resp.Del("Content-Length")
	resp.Header("Content-Encoding", token)
	resp.Header("Vary", "Accept-Encoding")
	resp.Body = newCompressedBody(resp.Body, inst, release)

	return resp, nil
}

func (c *Compress) applicable(env *http.Env, resp *http.Response) bool {
	if env.Proto != proto.HTTP11 || resp.Has("Content-Encoding") || !compressibleStatus(resp.Status) {
		return false
	}

	if contentType, _ := resp.Get("Content-Type"); mime.Compressed(contentType) {
		return false
	}

	if length, found := resp.Get("Content-Length"); found {
		n, err := strconv.Atoi(length)
		if err != nil || n < c.minSize {
			return false
		}
	}

	return true
}

// compressibleStatus filters out informational responses, 204 and 304, which have no body
func compressibleStatus(status string) bool {
	return len(status) >= 3 && status[0] != '1' &&
		!strings.HasPrefix(status, "204") && !strings.HasPrefix(status, "304")
}

type compressedBody struct {
	src     http.Body
	inst    codec.Instance
	release func()
	buff    bytes.Buffer
	out     []byte
	done    bool
}

func newCompressedBody(src http.Body, inst codec.Instance, release func()) *compressedBody {
	if src == nil {
		src = http.Empty()
	}

	b := &compressedBody{
		src:     src,
		inst:    inst,
		release: release,
	}
	inst.ResetCompressor(&b.buff)

	return b
}

func (c *compressedBody) Next() ([]byte, error) {
	for {
		if c.buff.Len() > 0 {
			c.out = append(c.out[:0], c.buff.Bytes()...)
			c.buff.Reset()
			return c.out, nil
		}

		if c.done {
			return nil, io.EOF
		}

		chunk, err := c.src.Next()
		if len(chunk) > 0 {
			if _, werr := c.inst.Write(chunk); werr != nil {
				return nil, werr
			}
		}

		switch err {
		case nil:
		case io.EOF:
			c.done = true
			if err = c.inst.Close(); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}
}

func (c *compressedBody) Close() error {
	http.CloseBody(c.src)
	if c.inst != nil {
		c.inst.ResetCompressor(io.Discard)
		c.release()
		c.inst = nil
	}

	return nil
}
