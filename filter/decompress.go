package filter

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/codec"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/internal/codecutil"
)

var (
	contentEncodingKey = http.EnvKey("Content-Encoding")
	contentLengthKey   = http.EnvKey("Content-Length")
)

// Decompress decodes request bodies sent with a Content-Encoding. The decoded body replaces
// the original one, so the handler never sees the coding. Unknown codings are rejected
// with 415 Unsupported Media Type, advertising the known ones.
type Decompress struct {
	cache *codecutil.Cache
	limit int64
}

// NewDecompress accepts gzip if no codecs are passed. Decoded bodies longer than the limit
// are rejected with 413 Request Entity Too Large
func NewDecompress(limit int64, codecs ...codec.Codec) *Decompress {
	if len(codecs) == 0 {
		codecs = []codec.Codec{codec.NewGZIP()}
	}

	return &Decompress{
		cache: codecutil.NewCache(codecs),
		limit: limit,
	}
}

func (d *Decompress) ProcessIngress(env *http.Env) (*http.Response, error) {
	coding := strings.TrimSpace(env.Headers.Value(contentEncodingKey))
	if len(coding) == 0 || coding == "identity" || env.Body == nil {
		return nil, nil
	}

	inst, release := d.cache.Get(coding)
	if inst == nil {
		return http.Respond(status.UnsupportedMediaType, status.Text(status.UnsupportedMediaType)).
			Header("Accept-Encoding", d.cache.AcceptEncoding()), nil
	}

	defer release()

	if err := inst.ResetDecompressor(env.Body); err != nil {
		return http.Respond(status.BadRequest, "malformed "+coding+" body"), nil
	}

	data, err := io.ReadAll(io.LimitReader(inst, d.limit+1))
	if err != nil {
		return http.Respond(status.BadRequest, "malformed "+coding+" body"), nil
	}

	if int64(len(data)) > d.limit {
		return http.Respond(status.RequestEntityTooLarge, status.Text(status.RequestEntityTooLarge)), nil
	}

	env.Body = bytes.NewReader(data)
	env.ContentLength = int64(len(data))
	env.Headers.Set(contentLengthKey, strconv.Itoa(len(data)))
	env.Headers.Delete(contentEncodingKey)

	return nil, nil
}
