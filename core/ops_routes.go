package core

import (
	"context"
	"fmt"
	"os"

	"github.com/mountainsensing/msfetch/state"
)

// GetRoutes asks each node for its parent, neighbours and routing table and
// optionally writes the combined topology as a DOT graph.
type GetRoutes struct {
	singlePass
	Transport Transport
	Topology  *Topology
	GraphPath string
}

func (a *GetRoutes) Perform(ctx context.Context, node state.NodeAddress) Outcome {
	a.Topology.RegisterShortID(node)

	path := resourcePath(ResourceRoutes)
	resp, err := a.Transport.Get(ctx, node.Addr, path)
	payload, err := expect(MethodGet, path, resp, err, "failed to get routes")
	if err != nil {
		return Classify(err)
	}
	info, err := ParseRouteInfo(string(payload))
	if err != nil {
		return Retryable(err)
	}
	NodeLogger(ctx).Info("got route info", "parent", info.Parent, "neighbours", info.Neighbours, "routes", info.Routes)
	a.Topology.Record(node, info)
	return Success()
}

// Finish writes the graph, if one was asked for.
func (a *GetRoutes) Finish(ctx context.Context) error {
	if a.GraphPath == "" {
		return nil
	}
	f, err := os.Create(a.GraphPath)
	if err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	defer f.Close()
	if err := a.Topology.Render().WriteDOT(f); err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}
	return f.Close()
}
