package mock

import (
	"context"
	"net/netip"
	"slices"
	"sync"

	"github.com/mountainsensing/msfetch/core"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

// Methods recorded for the calls that are not plain requests.
const (
	MethodPing      core.Method = "PING"
	MethodPostBlind core.Method = "POST-NON"
)

type Call struct {
	Method  core.Method
	Addr    netip.Addr
	Path    string
	Format  message.MediaType
	Payload []byte
}

// Handler produces the answer to one call.
type Handler func(ctx context.Context, call Call) (core.Response, error)

// Reply answers with code and payload.
func Reply(code codes.Code, payload []byte) Handler {
	return func(ctx context.Context, call Call) (core.Response, error) {
		return core.Response{Code: code, Payload: payload}, nil
	}
}

// Fail makes the round-trip fail with err.
func Fail(err error) Handler {
	return func(ctx context.Context, call Call) (core.Response, error) {
		return core.Response{}, err
	}
}

// Timeout blocks until ctx is done, like a node that never answers.
func Timeout() Handler {
	return func(ctx context.Context, call Call) (core.Response, error) {
		<-ctx.Done()
		return core.Response{}, ctx.Err()
	}
}

type routeKey struct {
	addr   netip.Addr
	method core.Method
	path   string
}

type route struct {
	handlers []Handler
	next     int
}

// Transport is a scripted core.Transport. Each (method, path) pair, optionally
// bound to one node, answers with its handlers in order, and keeps repeating
// the last one. Calls nothing was scripted for get a 4.04.
type Transport struct {
	mu     sync.Mutex
	routes map[routeKey]*route
	calls  []Call
	closed bool
}

func NewTransport() *Transport {
	return &Transport{routes: make(map[routeKey]*route)}
}

// On scripts method on path for every node.
func (t *Transport) On(method core.Method, path string, handlers ...Handler) *Transport {
	return t.OnNode(netip.Addr{}, method, path, handlers...)
}

// OnNode scripts method on path for the node at addr only. It takes
// precedence over On.
func (t *Transport) OnNode(addr netip.Addr, method core.Method, path string, handlers ...Handler) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[routeKey{addr, method, path}] = &route{handlers: handlers}
	return t
}

func (t *Transport) handler(call Call) Handler {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, call)
	r, ok := t.routes[routeKey{call.Addr, call.Method, call.Path}]
	if !ok {
		r, ok = t.routes[routeKey{netip.Addr{}, call.Method, call.Path}]
	}
	if !ok || len(r.handlers) == 0 {
		return Reply(codes.NotFound, nil)
	}
	h := r.handlers[min(r.next, len(r.handlers)-1)]
	r.next++
	return h
}

func (t *Transport) do(ctx context.Context, call Call) (core.Response, error) {
	return t.handler(call)(ctx, call)
}

func (t *Transport) Get(ctx context.Context, addr netip.Addr, path string) (core.Response, error) {
	return t.do(ctx, Call{Method: core.MethodGet, Addr: addr, Path: path})
}

func (t *Transport) Post(ctx context.Context, addr netip.Addr, path string, format message.MediaType, payload []byte) (core.Response, error) {
	return t.do(ctx, Call{Method: core.MethodPost, Addr: addr, Path: path, Format: format, Payload: slices.Clone(payload)})
}

func (t *Transport) Delete(ctx context.Context, addr netip.Addr, path string) (core.Response, error) {
	return t.do(ctx, Call{Method: core.MethodDelete, Addr: addr, Path: path})
}

func (t *Transport) PostBlind(ctx context.Context, addr netip.Addr, path string, payload []byte) error {
	_, err := t.do(ctx, Call{Method: MethodPostBlind, Addr: addr, Path: path, Payload: slices.Clone(payload)})
	return err
}

func (t *Transport) Ping(ctx context.Context, addr netip.Addr) error {
	_, err := t.do(ctx, Call{Method: MethodPing, Addr: addr})
	return err
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Calls returns every call made so far, in order.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.calls)
}

// CallsTo returns the calls made with method, in order.
func (t *Transport) CallsTo(method core.Method) []Call {
	var out []Call
	for _, c := range t.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

var _ core.Transport = (*Transport)(nil)
