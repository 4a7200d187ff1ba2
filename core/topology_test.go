package core

import (
	"bytes"
	"log/slog"
	"net/netip"
	"strings"
	"testing"

	"github.com/mountainsensing/msfetch/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRouteInfo(t *testing.T) {
	info, err := ParseRouteInfo("0001\r\n0002\n0003@0002\n\n  0004  \n0003@0004\n0002\n")
	require.NoError(t, err)

	assert.Equal(t, "0001", info.Parent)
	assert.Equal(t, []string{"0002", "0004"}, info.Neighbours)
	assert.Equal(t, []Route{{Dest: "0003", Via: "0004"}}, info.Routes)
}

func TestParseRouteInfo_Errors(t *testing.T) {
	_, err := ParseRouteInfo(" \n")
	assert.ErrorIs(t, err, ErrEmptyRoutes)

	_, err = ParseRouteInfo("0001\n0003@\n")
	assert.Error(t, err)
}

func node(addr, hostname string) state.NodeAddress {
	return state.NewNodeAddress(netip.MustParseAddr(addr), hostname)
}

func TestTopology_ShortIDCollisionKeepsFirst(t *testing.T) {
	var buf bytes.Buffer
	topo := NewTopology(4, slog.New(slog.NewTextHandler(&buf, nil)))
	assert.True(t, topo.RegisterShortID(node("2001:db8::1:abcd", "first")))
	assert.True(t, topo.RegisterShortID(node("2001:db8::1:abcd", "")))
	assert.Empty(t, buf.String())

	assert.False(t, topo.RegisterShortID(node("2001:db8::2:abcd", "second")))
	assert.Equal(t, "first", topo.Label("abcd"))

	logged := buf.String()
	assert.Contains(t, logged, "level=WARN")
	assert.Contains(t, logged, "nodes share a short id")
	assert.Contains(t, logged, "id=abcd")
	assert.Contains(t, logged, "kept=first/2001:db8::1:abcd")
}

func TestTopology_LaterHostnameIsKept(t *testing.T) {
	topo := NewTopology(4, discardLogger())
	assert.True(t, topo.RegisterShortID(node("2001:db8::1:abcd", "")))
	assert.Equal(t, "2001:db8::1:abcd", topo.Label("abcd"))

	assert.True(t, topo.RegisterShortID(node("2001:db8::1:abcd", "sensor1")))
	assert.Equal(t, "sensor1", topo.Label("abcd"))
}

func TestTopology_Label(t *testing.T) {
	topo := NewTopology(4, discardLogger())
	topo.RegisterShortID(node("2001:db8::1", "sensor1"))
	topo.RegisterShortID(node("2001:db8::2", ""))
	topo.RegisterShortID(node("2001:db8::abcd", "gateway"))

	assert.Equal(t, "sensor1", topo.Label("0001"))
	assert.Equal(t, "2001:db8::2", topo.Label("0002"))
	assert.Equal(t, "gateway", topo.Label("ABCD"))
	assert.Equal(t, "beef", topo.Label("beef"))
}

func TestTopology_RecordKeepsLatest(t *testing.T) {
	topo := NewTopology(4, discardLogger())
	a := node("2001:db8::1", "")
	topo.Record(a, RouteInfo{Parent: "0001"})
	topo.Record(node("2001:db8::1", "renamed"), RouteInfo{Parent: "0002"})
	assert.Equal(t, 1, topo.Len())

	edges := topo.Render().Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, Edge{A: "0002", B: "renamed", Style: StyleRoute}, edges[0])
}

func TestTopology_Render(t *testing.T) {
	topo := NewTopology(4, discardLogger())
	gw := node("2001:db8::aaaa", "gateway")
	s1 := node("2001:db8::1111", "sensor1")
	s2 := node("2001:db8::2222", "")
	for _, n := range []state.NodeAddress{gw, s1, s2} {
		topo.RegisterShortID(n)
	}

	topo.Record(s1, RouteInfo{
		Parent:     "aaaa",
		Neighbours: []string{"aaaa", "2222", "9999"},
		Routes:     []Route{{Dest: "3333", Via: "2222"}},
	})
	topo.Record(s2, RouteInfo{
		Parent:     "1111",
		Neighbours: []string{"1111"},
	})

	var sb strings.Builder
	require.NoError(t, topo.Render().WriteDOT(&sb))
	want := strings.Join([]string{
		"strict graph routes {",
		"\t\"gateway\" -- \"sensor1\" [color=\"red\"];",
		"\t\"2001:db8::2222\" -- \"sensor1\" [color=\"red\"];",
		"\t\"9999\" -- \"sensor1\";",
		"}",
		"",
	}, "\n")
	assert.Equal(t, want, sb.String())
}
