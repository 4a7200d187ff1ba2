package core

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
)

var ErrShutdown = errors.New("received shutdown signal")

// SignalContext returns a context that is cancelled with ErrShutdown on
// SIGINT or SIGTERM. stop must be called to release the signal handler.
func SignalContext(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancelCause(parent)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case _ = <-c:
			cancel(ErrShutdown)
		case <-ctx.Done():
			return
		}
	}()
	return ctx, func() {
		signal.Stop(c)
		cancel(context.Canceled)
	}
}

// Start runs action over tokens until done or interrupted, then closes rt
// along with the action if it holds resources.
func Start(ctx context.Context, rt *Runtime, tokens []string, action NodeAction) error {
	ctx, stop := SignalContext(ctx)
	defer stop()
	if c, ok := action.(interface{ Close() error }); ok {
		rt.Defer(c)
	}
	rt.Log.Debug("starting run", "nodes", len(tokens), "timeout", rt.Config.Timeout, "retries", rt.Config.Retries)
	_, err := rt.Run(ctx, tokens, action)
	return errors.Join(err, rt.Close())
}
