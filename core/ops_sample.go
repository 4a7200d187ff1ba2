package core

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"

	"github.com/mountainsensing/msfetch/perf"
	"github.com/mountainsensing/msfetch/protocol"
	"github.com/mountainsensing/msfetch/state"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

// LatestSample asks a node for its most recent sample.
const LatestSample = 0

var errNoMoreSamples = fmt.Errorf("no more samples available (%w)", ErrExhausted)

func samplePath(id uint32) string {
	if id == LatestSample {
		return resourcePath(ResourceSample)
	}
	return resourcePath(ResourceSample, strconv.FormatUint(uint64(id), 10))
}

func getSample(ctx context.Context, t Transport, addr netip.Addr, id uint32) (*protocol.Message, error) {
	path := samplePath(id)
	NodeLogger(ctx).Debug("attempting to get sample", "path", path)
	resp, err := t.Get(ctx, addr, path)
	payload, err := expect(MethodGet, path, resp, err, "unable to get sample")
	if err != nil {
		return nil, err
	}
	return protocol.SampleSchema.Decode(payload)
}

func deleteSample(ctx context.Context, t Transport, addr netip.Addr, id uint32) error {
	path := samplePath(id)
	NodeLogger(ctx).Debug("attempting to delete sample", "path", path)
	resp, err := t.Delete(ctx, addr, path)
	_, err = expect(MethodDelete, path, resp, err, "failed to delete sample")
	return err
}

// GetSample logs a sample of each node.
type GetSample struct {
	singlePass
	Transport Transport
	ID        uint32
}

func (a *GetSample) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	sample, err := getSample(ctx, a.Transport, node.Addr, a.ID)
	if err != nil {
		return Classify(err)
	}
	return Classify(logFormatted(ctx, "got sample:", sample, protocol.FormatSample))
}

// DeleteSample deletes a sample from each node.
type DeleteSample struct {
	singlePass
	Transport Transport
	ID        uint32
}

func (a *DeleteSample) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	if err := deleteSample(ctx, a.Transport, node.Addr, a.ID); err != nil {
		return Classify(err)
	}
	NodeLogger(ctx).Info("deleted sample", "path", samplePath(a.ID))
	return Success()
}

// GrabSample moves samples off each node: every sample is fetched, handed
// to the sinks and then deleted from the node. With All set the node is
// drained until it reports there are no samples left.
type GrabSample struct {
	Transport Transport
	ID        uint32
	All       bool
	Sinks     []SampleSink

	reachedEnd bool
	Grabbed    int
}

func (a *GrabSample) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	log := NodeLogger(ctx)
	a.reachedEnd = true

	sample, err := getSample(ctx, a.Transport, node.Addr, a.ID)
	if err != nil {
		var respErr *ResponseError
		if errors.As(err, &respErr) && respErr.Code == codes.NotFound {
			return Terminal(errNoMoreSamples)
		}
		return Classify(err)
	}
	a.reachedEnd = false

	id := sample.Uint32(protocol.SampleID)
	log.Info("got sample", "id", id)

	for _, sink := range a.Sinks {
		location, err := sink.Save(node, sample)
		if err != nil {
			return Retryable(fmt.Errorf("failed to save sample %d: %w", id, err))
		}
		log.Info("saved sample", "id", id, "to", location)
	}
	perf.SamplesSaved.Add(1)

	if err := deleteSample(ctx, a.Transport, node.Addr, id); err != nil {
		return Classify(err)
	}
	log.Info("sample deleted from node", "id", id)
	a.Grabbed++
	return Success()
}

func (a *GrabSample) NeedsMorePasses() bool {
	return a.All && !a.reachedEnd
}
