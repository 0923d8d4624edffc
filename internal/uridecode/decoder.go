package uridecode

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/indigo-web/ember/internal/hexconv"
	"github.com/indigo-web/utils/uf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// Decode normalizes the URI by translating escaped characters into their true form.
// Invalid or incomplete escape sequences are kept as is.
func Decode(src, buff []byte) []byte {
	for i := bytes.IndexByte(src, '%'); i != -1; i = bytes.IndexByte(src, '%') {
		if i+2 >= len(src) || !hexconv.Is(src[i+1]) || !hexconv.Is(src[i+2]) {
			buff = append(buff, src[:i+1]...)
			src = src[i+1:]
			continue
		}

		buff = append(buff, src[:i]...)
		buff = append(buff, hexconv.Halfbyte[src[i+1]]<<4|hexconv.Halfbyte[src[i+2]])
		src = src[i+3:]
	}

	if len(buff) == 0 {
		return src
	}

	return append(buff, src...)
}

// Fallback is the charset used whenever the configured one fails. Every byte sequence
// is a valid ISO-8859-1 text, so it never fails itself.
const Fallback = "iso-8859-1"

const utf8Name = "utf-8"

// Charset converts raw URI bytes into text.
type Charset struct {
	name    string
	encoder encoding.Encoding
}

// Lookup resolves the charset by any of its WHATWG labels, e.g. "utf8", "latin1", "cp1251"
func Lookup(label string) (Charset, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return Charset{}, err
	}

	name, err := htmlindex.Name(enc)
	if err != nil {
		name = strings.ToLower(label)
	}

	return Charset{name: name, encoder: enc}, nil
}

// UTF8 is the default charset
func UTF8() Charset {
	return Charset{name: utf8Name}
}

func (c Charset) Name() string {
	if len(c.name) == 0 {
		return utf8Name
	}

	return c.name
}

// DecodeAll converts all the values with the charset. If any of them can't be decoded,
// all of them are decoded with the Fallback charset instead. Returns the name of the
// charset actually used.
func (c Charset) DecodeAll(values ...[]byte) ([]string, string) {
	result := make([]string, len(values))

	for i, value := range values {
		text, ok := c.decode(value)
		if !ok {
			return decodeLatin1(values), Fallback
		}

		result[i] = text
	}

	return result, c.Name()
}

func (c Charset) decode(value []byte) (string, bool) {
	if c.encoder == nil || c.Name() == utf8Name {
		if !utf8.Valid(value) {
			return "", false
		}

		return string(value), true
	}

	decoded, err := c.encoder.NewDecoder().Bytes(value)
	if err != nil || bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", false
	}

	return uf.B2S(decoded), true
}

func decodeLatin1(values [][]byte) []string {
	result := make([]string, len(values))
	decoder := charmap.ISO8859_1.NewDecoder()

	for i, value := range values {
		decoded, err := decoder.Bytes(value)
		if err != nil {
			// unreachable in practice, but keep the raw bytes rather than failing
			result[i] = string(value)
			continue
		}

		result[i] = uf.B2S(decoded)
	}

	return result
}
