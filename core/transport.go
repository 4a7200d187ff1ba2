package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/options"
	"github.com/plgd-dev/go-coap/v3/pkg/runner/periodic"
	"github.com/plgd-dev/go-coap/v3/udp"
	"github.com/plgd-dev/go-coap/v3/udp/client"
)

type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodDelete Method = "DELETE"
)

type Response struct {
	Code    codes.Code
	Payload []byte
}

func (r Response) IsSuccess() bool {
	return codeClass(r.Code) == 2
}

// Transport performs requests against node resources. Every call is one
// round-trip bounded by the transport's timeout.
type Transport interface {
	Get(ctx context.Context, addr netip.Addr, path string) (Response, error)
	Post(ctx context.Context, addr netip.Addr, path string, format message.MediaType, payload []byte) (Response, error)
	Delete(ctx context.Context, addr netip.Addr, path string) (Response, error)
	// PostBlind sends a non-confirmable POST and does not wait for an answer.
	PostBlind(ctx context.Context, addr netip.Addr, path string, payload []byte) error
	Ping(ctx context.Context, addr netip.Addr) error
	Close() error
}

// expect turns a response into its payload, or into a *ResponseError when
// the node did not answer with success.
func expect(method Method, path string, resp Response, err error, msg string) ([]byte, error) {
	if err != nil {
		return nil, fmt.Errorf("%s: %s %s: %w", msg, method, path, err)
	}
	if !resp.IsSuccess() {
		return nil, &ResponseError{Method: method, Path: path, Code: resp.Code, Msg: msg}
	}
	return resp.Payload, nil
}

// CoapTransport talks CoAP over UDP, keeping one connection per node.
type CoapTransport struct {
	port    uint16
	timeout time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	conns  map[netip.Addr]*client.Conn
	runner periodic.Func
	stop   chan struct{}
	closed bool
}

func NewCoapTransport(port int, timeout time.Duration, log *slog.Logger) *CoapTransport {
	return &CoapTransport{
		port:    uint16(port),
		timeout: timeout,
		log:     log,
		conns:   make(map[netip.Addr]*client.Conn),
		stop:    make(chan struct{}),
	}
}

func (t *CoapTransport) conn(addr netip.Addr) (*client.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTransportClosed
	}
	if c, ok := t.conns[addr]; ok {
		if c.Context().Err() == nil {
			return c, nil
		}
		delete(t.conns, addr)
	}
	// every connection shares one expiry ticker, stopped by Close
	if t.runner == nil {
		t.runner = periodic.New(t.stop, time.Second)
	}
	target := netip.AddrPortFrom(addr, t.port).String()
	c, err := udp.Dial(target,
		options.WithPeriodicRunner(t.runner),
		options.WithErrors(func(err error) {
			t.log.Debug("coap connection error", "target", target, "error", err)
		}))
	if err != nil {
		return nil, err
	}
	t.log.Debug("connected", "target", target)
	t.conns[addr] = c
	return c, nil
}

// drop forgets c so the next round-trip to addr dials afresh.
func (t *CoapTransport) drop(addr netip.Addr, c *client.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.conns[addr]; ok && cur == c {
		_ = c.Close()
		delete(t.conns, addr)
	}
}

func (t *CoapTransport) do(ctx context.Context, addr netip.Addr, fn func(ctx context.Context, c *client.Conn) (Response, error)) (Response, error) {
	c, err := t.conn(addr)
	if err != nil {
		return Response{}, err
	}
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	resp, err := fn(reqCtx, c)
	// only a request that ran out of time on a live connection keeps it
	if err != nil && (c.Context().Err() != nil || reqCtx.Err() == nil) {
		t.log.Debug("dropping connection", "addr", addr, "error", err)
		t.drop(addr, c)
	}
	return resp, err
}

func readResponse(code codes.Code, body func() ([]byte, error)) (Response, error) {
	payload, err := body()
	if err != nil {
		return Response{Code: code}, fmt.Errorf("failed to read response body: %w", err)
	}
	return Response{Code: code, Payload: payload}, nil
}

func (t *CoapTransport) Get(ctx context.Context, addr netip.Addr, path string) (Response, error) {
	return t.do(ctx, addr, func(ctx context.Context, c *client.Conn) (Response, error) {
		resp, err := c.Get(ctx, path)
		if err != nil {
			return Response{}, err
		}
		return readResponse(resp.Code(), resp.ReadBody)
	})
}

func (t *CoapTransport) Post(ctx context.Context, addr netip.Addr, path string, format message.MediaType, payload []byte) (Response, error) {
	return t.do(ctx, addr, func(ctx context.Context, c *client.Conn) (Response, error) {
		resp, err := c.Post(ctx, path, format, bytes.NewReader(payload))
		if err != nil {
			return Response{}, err
		}
		return readResponse(resp.Code(), resp.ReadBody)
	})
}

func (t *CoapTransport) Delete(ctx context.Context, addr netip.Addr, path string) (Response, error) {
	return t.do(ctx, addr, func(ctx context.Context, c *client.Conn) (Response, error) {
		resp, err := c.Delete(ctx, path)
		if err != nil {
			return Response{}, err
		}
		return readResponse(resp.Code(), resp.ReadBody)
	})
}

func (t *CoapTransport) PostBlind(ctx context.Context, addr netip.Addr, path string, payload []byte) error {
	_, err := t.do(ctx, addr, func(ctx context.Context, c *client.Conn) (Response, error) {
		req, err := c.NewPostRequest(ctx, path, message.AppOctets, bytes.NewReader(payload))
		if err != nil {
			return Response{}, err
		}
		defer c.ReleaseMessage(req)
		req.SetType(message.NonConfirmable)
		return Response{}, c.WriteMessage(req)
	})
	return err
}

func (t *CoapTransport) Ping(ctx context.Context, addr netip.Addr) error {
	_, err := t.do(ctx, addr, func(ctx context.Context, c *client.Conn) (Response, error) {
		return Response{}, c.Ping(ctx)
	})
	return err
}

func (t *CoapTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	var errs []error
	for addr, c := range t.conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", addr, err))
		}
		delete(t.conns, addr)
	}
	close(t.stop)
	return errors.Join(errs...)
}
