package method

// Methods are kept as their wire tokens. The Env carries the method as received, so
// extension methods pass through untouched.
const (
	GET     = "GET"
	HEAD    = "HEAD"
	POST    = "POST"
	PUT     = "PUT"
	DELETE  = "DELETE"
	CONNECT = "CONNECT"
	OPTIONS = "OPTIONS"
	TRACE   = "TRACE"
	PATCH   = "PATCH"
)

// List contains all the methods defined by RFC 9110 and RFC 5789.
var List = []string{GET, HEAD, POST, PUT, DELETE, CONNECT, OPTIONS, TRACE, PATCH}

// Known reports whether the token is one of List
func Known(token string) bool {
	for _, m := range List {
		if m == token {
			return true
		}
	}

	return false
}
