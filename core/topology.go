package core

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"slices"
	"strings"

	"github.com/mountainsensing/msfetch/state"
)

type Route struct {
	Dest string
	Via  string
}

// RouteInfo is what one node reports about its place in the mesh. Peers are
// named by short id.
type RouteInfo struct {
	Parent     string
	Neighbours []string
	Routes     []Route
}

// AddNeighbour adds id to the neighbours, once.
func (i *RouteInfo) AddNeighbour(id string) {
	if !slices.Contains(i.Neighbours, id) {
		i.Neighbours = append(i.Neighbours, id)
	}
}

// SetRoute records the next hop for dest. A repeated dest keeps its position.
func (i *RouteInfo) SetRoute(dest, via string) {
	for idx := range i.Routes {
		if i.Routes[idx].Dest == dest {
			i.Routes[idx].Via = via
			return
		}
	}
	i.Routes = append(i.Routes, Route{Dest: dest, Via: via})
}

var ErrEmptyRoutes = errors.New("empty routes response")

// ParseRouteInfo parses the body of the routes resource: the parent on the
// first line, then one line per neighbour or per "dest@via" route.
func ParseRouteInfo(text string) (RouteInfo, error) {
	var info RouteInfo
	if strings.TrimSpace(text) == "" {
		return info, ErrEmptyRoutes
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	info.Parent = strings.TrimSpace(lines[0])
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if dest, via, ok := strings.Cut(line, "@"); ok {
			if dest == "" || via == "" {
				return info, fmt.Errorf("malformed route %q", line)
			}
			info.SetRoute(dest, via)
			continue
		}
		info.AddNeighbour(line)
	}
	return info, nil
}

// Topology collects the route reports of a run and turns them into a graph.
// Nodes only know each other by short id, so every node we talk to is
// registered to map its short id back to a full address.
type Topology struct {
	width    int
	log      *slog.Logger
	shortIDs map[string]state.NodeAddress
	nodes    map[netip.Addr]state.NodeAddress
	infos    map[netip.Addr]RouteInfo
	order    []netip.Addr
}

func NewTopology(width int, log *slog.Logger) *Topology {
	if log == nil {
		log = slog.Default()
	}
	return &Topology{
		width:    width,
		log:      log,
		shortIDs: make(map[string]state.NodeAddress),
		nodes:    make(map[netip.Addr]state.NodeAddress),
		infos:    make(map[netip.Addr]RouteInfo),
	}
}

// RegisterShortID remembers which address node's short id stands for. If a
// different address already owns the short id, the first one is kept and
// false is returned. A hostname learnt for an address is never forgotten.
func (t *Topology) RegisterShortID(node state.NodeAddress) bool {
	id := node.ShortID(t.width)
	known, ok := t.shortIDs[id]
	switch {
	case !ok:
		t.shortIDs[id] = node
	case !known.Equal(node):
		t.log.Warn("nodes share a short id, they will be treated as the same node in the graph",
			"id", id, "node", node.String(), "kept", known.String())
		return false
	case node.HasHostname() && !known.HasHostname():
		t.shortIDs[id] = node
	}
	return true
}

// Record stores the latest report of node.
func (t *Topology) Record(node state.NodeAddress, info RouteInfo) {
	key := node.Key()
	if _, ok := t.infos[key]; !ok {
		t.order = append(t.order, key)
	}
	t.nodes[key] = node
	t.infos[key] = info
}

func (t *Topology) Len() int {
	return len(t.order)
}

// Label is the best name for a short id: the hostname or full address of the
// node it was registered by, or the short id itself.
func (t *Topology) Label(shortID string) string {
	if node, ok := t.shortIDs[strings.ToLower(shortID)]; ok {
		return node.Label()
	}
	return shortID
}

// Render builds the graph of every recorded report. Parents and next hops
// are routes, the remaining neighbours plain edges.
func (t *Topology) Render() *Graph {
	g := NewGraph("routes")
	for _, key := range t.order {
		node := t.nodes[key]
		info := t.infos[key]
		self := node.Label()

		if info.Parent != "" {
			g.AddRoute(self, t.Label(info.Parent))
		}
		for _, n := range info.Neighbours {
			g.AddNeighbour(self, t.Label(n))
		}
		for _, r := range info.Routes {
			g.AddRoute(self, t.Label(r.Via))
		}
	}
	return g
}
