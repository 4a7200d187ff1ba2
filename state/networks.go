package state

import (
	"net/netip"

	"github.com/gaissmai/bart"
)

// NetworkCfg names a deployment by the prefix its nodes live in.
type NetworkCfg struct {
	Name   string       `yaml:"name"`
	Prefix netip.Prefix `yaml:"prefix"`
}

// Networks maps node addresses to deployment names by longest prefix match.
type Networks struct {
	table bart.Table[string]
	count int
}

func NewNetworks(cfgs []NetworkCfg) *Networks {
	n := &Networks{}
	for _, cfg := range cfgs {
		n.Add(cfg.Prefix, cfg.Name)
	}
	return n
}

func (n *Networks) Add(prefix netip.Prefix, name string) {
	n.table.Insert(prefix.Masked(), name)
	n.count++
}

// Name returns the deployment the address belongs to.
func (n *Networks) Name(addr netip.Addr) (string, bool) {
	if n == nil || n.count == 0 {
		return "", false
	}
	return n.table.Lookup(addr)
}
