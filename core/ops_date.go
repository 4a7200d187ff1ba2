package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mountainsensing/msfetch/protocol"
	"github.com/mountainsensing/msfetch/state"
	"github.com/plgd-dev/go-coap/v3/message"
)

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// GetDate logs the clock of each node and how far it is from ours.
type GetDate struct {
	singlePass
	Transport Transport
	Now       func() time.Time
}

func (a *GetDate) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	path := resourcePath(ResourceDate)
	resp, err := a.Transport.Get(ctx, node.Addr, path)
	payload, err := expect(MethodGet, path, resp, err, "failed to get date")
	if err != nil {
		return Classify(err)
	}
	epoch, err := parseInt(payload)
	if err != nil {
		return Retryable(fmt.Errorf("invalid date %q: %w", payload, err))
	}
	drift := epoch - clock(a.Now).now().Unix()
	NodeLogger(ctx).Info("got date", "epoch", protocol.FormatEpoch(epoch), "drift", fmt.Sprintf("%+ds", drift))
	return Success()
}

// SetDate sets the clock of each node, to ours or to Epoch if given.
type SetDate struct {
	singlePass
	Transport Transport
	Epoch     *int64
	Now       func() time.Time
}

func (a *SetDate) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	epoch := clock(a.Now).now().Unix()
	if a.Epoch != nil {
		epoch = *a.Epoch
	}
	path := resourcePath(ResourceDate)
	resp, err := a.Transport.Post(ctx, node.Addr, path, message.TextPlain, []byte(strconv.FormatInt(epoch, 10)))
	if _, err = expect(MethodPost, path, resp, err, "failed to set time"); err != nil {
		return Classify(err)
	}
	NodeLogger(ctx).Info("epoch set", "epoch", protocol.FormatEpoch(epoch))
	return Success()
}

// GetUptime logs how long each node has been running.
type GetUptime struct {
	singlePass
	Transport Transport
	Now       func() time.Time
}

func (a *GetUptime) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	path := resourcePath(ResourceUptime)
	resp, err := a.Transport.Get(ctx, node.Addr, path)
	payload, err := expect(MethodGet, path, resp, err, "failed to get uptime")
	if err != nil {
		return Classify(err)
	}
	seconds, err := parseInt(payload)
	if err != nil {
		return Retryable(fmt.Errorf("invalid uptime %q: %w", payload, err))
	}
	uptime := time.Duration(seconds) * time.Second
	now := clock(a.Now).now()
	boot := now.Add(-uptime)
	NodeLogger(ctx).Info("got uptime",
		"uptime", uptime.String(),
		"boot", protocol.FormatDate(boot),
		"booted", humanize.RelTime(boot, now, "ago", "from now"))
	return Success()
}
