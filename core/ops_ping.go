package core

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/digineo/go-ping"
	"github.com/mountainsensing/msfetch/state"
)

// Ping sends a CoAP ping to each node and logs the round-trip time.
type Ping struct {
	singlePass
	Transport Transport
}

func (a *Ping) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	start := time.Now()
	if err := a.Transport.Ping(ctx, node.Addr); err != nil {
		return Retryable(fmt.Errorf("no response: %w", err))
	}
	NodeLogger(ctx).Info("node is up", "rtt", time.Since(start).Round(time.Millisecond))
	return Success()
}

// ICMPPing checks each node with an ICMP echo instead, for when the CoAP
// server on the node is suspected to be down.
type ICMPPing struct {
	singlePass
	Timeout time.Duration
	pinger  *ping.Pinger
}

func NewICMPPing(timeout time.Duration) (*ICMPPing, error) {
	pinger, err := ping.New("0.0.0.0", "::")
	if err != nil {
		return nil, fmt.Errorf("failed to start pinger: %w", err)
	}
	return &ICMPPing{Timeout: timeout, pinger: pinger}, nil
}

func (a *ICMPPing) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	addr := &net.IPAddr{IP: net.IP(node.Addr.AsSlice()), Zone: node.Addr.Zone()}
	rtt, err := a.pinger.PingAttempts(addr, a.Timeout, 1)
	if err != nil {
		return Retryable(fmt.Errorf("no echo reply: %w", err))
	}
	NodeLogger(ctx).Info("node is up", "rtt", rtt.Round(time.Microsecond))
	return Success()
}

func (a *ICMPPing) Close() error {
	a.pinger.Close()
	return nil
}
