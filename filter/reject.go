package filter

import (
	"strings"

	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/status"
)

// Reject short-circuits requests matching the predicate with a plain-text response
func Reject(predicate func(env *http.Env) bool, code status.Code, message string) http.Ingress {
	return http.IngressFunc(func(env *http.Env) (*http.Response, error) {
		if !predicate(env) {
			return nil, nil
		}

		return http.Respond(code, message), nil
	})
}

// Methods rejects requests with methods other than the allowed ones with 405 Method Not Allowed.
// HEAD requests are allowed whenever GET is.
func Methods(allowed ...string) http.Ingress {
	allow := strings.Join(allowed, ", ")

	return http.IngressFunc(func(env *http.Env) (*http.Response, error) {
		for _, method := range allowed {
			if env.Method == method {
				return nil, nil
			}
		}

		return http.Respond(status.MethodNotAllowed, status.Text(status.MethodNotAllowed)).
			Header("Allow", allow), nil
	})
}
