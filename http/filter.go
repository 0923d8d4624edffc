package http

// Handler is the application. It must never touch the connection directly: in
// multithreaded mode it runs on a worker, while the response is written elsewhere.
type Handler func(env *Env) (*Response, error)

// Ingress filters run in the declared order before the handler and may mutate the env.
// Returning a non-nil response short-circuits: neither the rest of the ingress filters
// nor the handler are called.
type Ingress interface {
	ProcessIngress(env *Env) (*Response, error)
}

type IngressFunc func(env *Env) (*Response, error)

func (i IngressFunc) ProcessIngress(env *Env) (*Response, error) {
	return i(env)
}

// Egress filters run in the declared order after the handler. Each one may replace the
// response or any of its parts.
type Egress interface {
	ProcessEgress(env *Env, resp *Response) (*Response, error)
}

type EgressFunc func(env *Env, resp *Response) (*Response, error)

func (e EgressFunc) ProcessEgress(env *Env, resp *Response) (*Response, error) {
	return e(env, resp)
}
