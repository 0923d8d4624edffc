package http1

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/proto"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/internal/uridecode"
)

var (
	crlf        = []byte("\r\n")
	headersEnd  = []byte("\r\n\r\n")
	schemeDelim = []byte("://")
)

// malformed marks the cause as belonging to the malformed-request class, so both
// errors.Is(err, status.ErrMalformedRequest) and errors.Is(err, cause) hold.
func malformed(cause error) error {
	return fmt.Errorf("%w: %w", status.ErrMalformedRequest, cause)
}

// ParseHead fills the env from the header block, which is everything up to and including
// the empty line. The request body is not touched.
func ParseHead(block []byte, env *http.Env, charset uridecode.Charset) error {
	block = bytes.TrimSuffix(block, headersEnd)

	line, headers, _ := bytes.Cut(block, crlf)
	host, err := parseRequestLine(line, env, charset)
	if err != nil {
		return err
	}

	if err = parseHeaders(headers, env); err != nil {
		return err
	}

	if len(host) > 0 {
		env.Headers.Set("HTTP_HOST", host)
	}

	return nil
}

// parseRequestLine returns the host of absolute-form targets. It must be applied after
// the headers, overriding the Host header.
func parseRequestLine(line []byte, env *http.Env, charset uridecode.Charset) (host string, err error) {
	tokens := bytes.Fields(line)
	if len(tokens) != 3 {
		return "", malformed(status.ErrBadRequestLine)
	}

	verb, target, version := tokens[0], tokens[1], tokens[2]
	if !proto.Valid(version) {
		return "", malformed(status.ErrBadRequestLine)
	}

	env.Method = string(verb)
	env.RequestURI = string(target)
	env.Protocol = string(version)
	env.Proto = proto.FromBytes(version)

	if env.Method == method.HEAD {
		env.Method = method.GET
		env.Head = true
	}

	rest, fragment, _ := bytes.Cut(target, []byte("#"))
	rest, query, _ := bytes.Cut(rest, []byte("?"))
	path, params, _ := bytes.Cut(rest, []byte(";"))

	if scheme, remainder, found := bytes.Cut(path, schemeDelim); found {
		env.URLScheme = string(scheme)
		hostname, absPath, _ := bytes.Cut(remainder, []byte("/"))
		host = string(hostname)
		path = append([]byte("/"), absPath...)
	}

	decoded, usedCharset := charset.DecodeAll(
		uridecode.Decode(path, make([]byte, 0, len(path))), params, query, fragment,
	)
	env.Path, env.Params, env.Query, env.Fragment = decoded[0], decoded[1], decoded[2], decoded[3]
	env.URIEncoding = usedCharset

	return host, nil
}

func parseHeaders(data []byte, env *http.Env) error {
	var current string

	for len(data) > 0 {
		var line []byte
		line, data, _ = bytes.Cut(data, crlf)

		if len(line) == 0 {
			break
		}

		if line[0] == ' ' || line[0] == '\t' {
			if len(current) == 0 {
				return malformed(status.ErrOrphanContinuation)
			}

			env.Headers.Extend(current, string(bytes.TrimLeft(line, " \t")))
			continue
		}

		name, value, found := bytes.Cut(line, []byte(":"))
		if !found || len(name) == 0 || !isToken(name) {
			return malformed(status.ErrBadHeader)
		}

		current = http.EnvKey(string(name))
		env.Headers.Set(current, string(bytes.Trim(value, " \t")))
	}

	return deriveEntityFields(env)
}

// deriveEntityFields lifts CONTENT_TYPE and CONTENT_LENGTH from the headers into the
// dedicated env fields. Continuation lines could have extended them, therefore it's done
// only once all the headers are in place.
func deriveEntityFields(env *http.Env) error {
	env.ContentType = env.Headers.Value("CONTENT_TYPE")
	env.ContentLength = -1

	raw, found := env.Headers.Get("CONTENT_LENGTH")
	if !found {
		return nil
	}

	length, err := parseContentLength(raw)
	if err != nil {
		return err
	}

	env.ContentLength = length
	return nil
}

func parseContentLength(raw string) (int64, error) {
	if len(raw) == 0 {
		return 0, malformed(status.ErrBadContentLength)
	}

	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, malformed(status.ErrBadContentLength)
		}
	}

	length, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, malformed(status.ErrBadContentLength)
	}

	return length, nil
}

// isToken reports whether the name consists only of the RFC 7230 tchar characters
func isToken(name []byte) bool {
	for _, c := range name {
		if !tchar[c] {
			return false
		}
	}

	return true
}

var tchar = func() (table [256]bool) {
	for c := '0'; c <= '9'; c++ {
		table[c] = true
	}

	for c := 'a'; c <= 'z'; c++ {
		table[c] = true
		table[c-'a'+'A'] = true
	}

	for _, c := range "!#$%&'*+-.^_`|~" {
		table[c] = true
	}

	return table
}()
