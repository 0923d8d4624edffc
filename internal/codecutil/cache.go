package codecutil

import (
	"strconv"
	"strings"
	"sync"

	"github.com/indigo-web/ember/http/codec"
	"github.com/indigo-web/utils/strcomp"
)

// Cache pools instances of the codecs. Instances are created lazily, on first demand.
// Unlike instances themselves, the cache is safe for concurrent use.
type Cache struct {
	accept string
	codecs []codec.Codec
	pools  []sync.Pool
}

func NewCache(codecs []codec.Codec) *Cache {
	c := &Cache{
		accept: AcceptEncoding(codecs),
		codecs: codecs,
		pools:  make([]sync.Pool, len(codecs)),
	}

	for i, cd := range codecs {
		c.pools[i].New = func() any {
			return cd.New()
		}
	}

	return c
}

func (c *Cache) find(token string) int {
	for i, entry := range c.codecs {
		if strcomp.EqualFold(entry.Token(), token) {
			return i
		}
	}

	return -1
}

// Get returns an instance of the codec by its token and a function returning it back
// into the cache. Nil if there's no such codec
func (c *Cache) Get(token string) (codec.Instance, func()) {
	idx := c.find(token)
	if idx == -1 {
		return nil, nil
	}

	inst := c.pools[idx].Get().(codec.Instance)
	return inst, func() {
		c.pools[idx].Put(inst)
	}
}

// Negotiate picks the first codec in the cache's order, acceptable according to the
// Accept-Encoding value. Returns an empty string if none is
func (c *Cache) Negotiate(acceptEncoding string) string {
	for _, cd := range c.codecs {
		if Acceptable(acceptEncoding, cd.Token()) {
			return cd.Token()
		}
	}

	return ""
}

func (c *Cache) AcceptEncoding() string {
	return c.accept
}

func AcceptEncoding(codecs []codec.Codec) string {
	if len(codecs) == 0 {
		return "identity"
	}

	var b strings.Builder

	b.WriteString(codecs[0].Token())
	for _, c := range codecs[1:] {
		b.WriteString(", ")
		b.WriteString(c.Token())
	}

	return b.String()
}

// Acceptable reports whether the coding is allowed by the Accept-Encoding value. An explicit
// entry takes precedence over the wildcard. Zero quality means the coding is rejected.
func Acceptable(acceptEncoding, coding string) bool {
	wildcard := false

	for _, token := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(token, ";")
		name = strings.TrimSpace(name)

		switch {
		case strcomp.EqualFold(name, coding):
			return quality(params) > 0
		case name == "*":
			wildcard = quality(params) > 0
		}
	}

	return wildcard
}

func quality(params string) float64 {
	for _, param := range strings.Split(params, ";") {
		q, found := strings.CutPrefix(strings.TrimSpace(param), "q=")
		if !found {
			continue
		}

		value, err := strconv.ParseFloat(q, 64)
		if err != nil {
			return 0
		}

		return value
	}

	return 1
}
