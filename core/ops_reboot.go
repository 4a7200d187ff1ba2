package core

import (
	"context"
	"errors"
	"strings"

	"github.com/mountainsensing/msfetch/state"
)

// GetReboot logs the reboot counter of each node.
type GetReboot struct {
	singlePass
	Transport Transport
}

func (a *GetReboot) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	path := resourcePath(ResourceReboot)
	resp, err := a.Transport.Get(ctx, node.Addr, path)
	payload, err := expect(MethodGet, path, resp, err, "failed to get reboot count")
	if err != nil {
		return Classify(err)
	}
	NodeLogger(ctx).Info("got reboot count", "count", strings.TrimSpace(string(payload)))
	return Success()
}

// ForceReboot makes each node reboot. The node resets before it can answer,
// so the request is sent non-confirmable and nothing is waited for.
type ForceReboot struct {
	singlePass
	Transport Transport
}

func (a *ForceReboot) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	ctx, cancel := context.WithTimeout(ctx, state.BlindTimeout)
	defer cancel()
	err := a.Transport.PostBlind(ctx, node.Addr, resourcePath(ResourceReboot), nil)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return Classify(err)
	}
	NodeLogger(ctx).Info("reboot requested")
	return Success()
}
