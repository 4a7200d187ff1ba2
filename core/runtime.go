package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mountainsensing/msfetch/state"
)

// Runtime holds everything a node command needs for one invocation.
type Runtime struct {
	Config    state.Config
	Log       *slog.Logger
	Resolver  *state.Resolver
	Networks  *state.Networks
	Transport Transport

	lock      *InstanceLock
	debug     *http.Server
	closers   []io.Closer
	logCloser io.Closer
}

type runtimeOptions struct {
	log       *slog.Logger
	transport Transport
	lookup    state.LookupFunc
	debugAddr string
}

type RuntimeOption func(*runtimeOptions)

// WithLogger uses log instead of building one from the config.
func WithLogger(log *slog.Logger) RuntimeOption {
	return func(o *runtimeOptions) {
		o.log = log
	}
}

func WithTransport(t Transport) RuntimeOption {
	return func(o *runtimeOptions) {
		o.transport = t
	}
}

func WithLookup(lookup state.LookupFunc) RuntimeOption {
	return func(o *runtimeOptions) {
		o.lookup = lookup
	}
}

// WithDebugAddr serves expvar and /debug/metrics on addr for the lifetime of
// the runtime.
func WithDebugAddr(addr string) RuntimeOption {
	return func(o *runtimeOptions) {
		o.debugAddr = addr
	}
}

// NewRuntime sets up logging, the override table, the resolver, the
// transport and the instance lock. An empty LockPath disables the lock.
func NewRuntime(cfg state.Config, opts ...RuntimeOption) (*Runtime, error) {
	o := runtimeOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Runtime{Config: cfg}
	if o.log != nil {
		r.Log = o.log
	} else {
		consoleLevel, err := state.ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return nil, err
		}
		fileLevel, err := state.ParseLevel(cfg.FileLevel)
		if err != nil {
			return nil, err
		}
		log, closer, err := NewLogger(LogOptions{
			ConsoleLevel: consoleLevel,
			FilePath:     cfg.LogFile,
			FileLevel:    fileLevel,
		})
		if err != nil {
			return nil, err
		}
		r.Log = log
		r.logCloser = closer
	}

	if cfg.LockPath != "" {
		lock, err := AcquireLock(cfg.LockPath)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.lock = lock
	}

	overrides := state.NewOverrideTable()
	for _, path := range cfg.Hosts {
		if err := overrides.LoadFile(path); err != nil {
			r.Log.Warn("ignoring host overrides", "source", path, "error", err)
			continue
		}
	}
	r.Log.Debug("loaded host overrides", "entries", overrides.Len())

	if len(cfg.Resolvers) != 0 {
		state.SetResolvers(cfg.Resolvers)
	}
	r.Resolver = state.NewResolver(overrides, o.lookup, state.WithResolverLogger(r.Log))
	r.Networks = state.NewNetworks(cfg.Networks)

	if o.transport != nil {
		r.Transport = o.transport
	} else {
		r.Transport = NewCoapTransport(cfg.Port, cfg.Timeout, r.Log)
	}

	if o.debugAddr != "" {
		if err := r.serveDebug(o.debugAddr); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}

func (r *Runtime) serveDebug(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	r.debug = &http.Server{Handler: http.DefaultServeMux, ReadHeaderTimeout: 5 * time.Second}
	r.Log.Info("serving metrics", "addr", l.Addr().String())
	go func() {
		if err := r.debug.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.Log.Error("metrics server stopped", "error", err)
		}
	}()
	return nil
}

// Executor returns an executor configured from the runtime.
func (r *Runtime) Executor() *Executor {
	return &Executor{
		Resolver: r.Resolver,
		Networks: r.Networks,
		Retries:  r.Config.Retries,
		Log:      r.Log,
	}
}

// Run processes tokens with action, then finishes it if it produces a
// result. Failures of individual nodes are only reported in the summary.
func (r *Runtime) Run(ctx context.Context, tokens []string, action NodeAction) (Summary, error) {
	start := time.Now()
	summary := r.Executor().Run(ctx, tokens, action)
	if f, ok := action.(Finisher); ok {
		if err := f.Finish(ctx); err != nil {
			return summary, err
		}
	}
	r.Log.Info("run complete",
		"nodes", len(summary.Results),
		"done", summary.Count(NodeDone),
		"failed", summary.Count(NodeFailed)+summary.Count(NodeAbandoned),
		"unresolved", summary.Count(NodeUnresolved),
		"round_trips", summary.RoundTrips(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	if ctx.Err() != nil {
		return summary, context.Cause(ctx)
	}
	return summary, nil
}

// Defer registers c to be closed with the runtime, before the transport.
func (r *Runtime) Defer(c io.Closer) {
	r.closers = append(r.closers, c)
}

// Close releases everything the runtime holds. It is safe to call on a
// partially built runtime.
func (r *Runtime) Close() error {
	var errs []error
	if r.debug != nil {
		errs = append(errs, r.debug.Close())
		r.debug = nil
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	r.closers = nil
	if r.Transport != nil {
		errs = append(errs, r.Transport.Close())
		r.Transport = nil
	}
	if r.lock != nil {
		errs = append(errs, r.lock.Release())
		r.lock = nil
	}
	if r.logCloser != nil {
		errs = append(errs, r.logCloser.Close())
		r.logCloser = nil
	}
	return errors.Join(errs...)
}
