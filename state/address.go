package state

import (
	"encoding/hex"
	"net/netip"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// NodeAddress is a resolved sensor node. Two NodeAddress values with the same
// Addr are the same node, whatever their hostnames.
type NodeAddress struct {
	Addr     netip.Addr
	Hostname string
}

func NewNodeAddress(addr netip.Addr, hostname string) NodeAddress {
	return NodeAddress{Addr: addr.Unmap(), Hostname: hostname}
}

// Key is the identity of the node, use it for map keys.
func (n NodeAddress) Key() netip.Addr {
	return n.Addr
}

func (n NodeAddress) Equal(o NodeAddress) bool {
	return n.Addr == o.Addr
}

func (n NodeAddress) HasHostname() bool {
	return n.Hostname != ""
}

func (n NodeAddress) String() string {
	if n.HasHostname() {
		return n.Hostname + "/" + n.Addr.String()
	}
	return n.Addr.String()
}

// Label is the best name we have for the node without doing a reverse lookup.
func (n NodeAddress) Label() string {
	if n.HasHostname() {
		return n.Hostname
	}
	return n.Addr.String()
}

// ShortID returns the last width hex digits of the full 128-bit address, the
// form node firmware uses to refer to its peers. IPv4 addresses use their
// mapped form.
func (n NodeAddress) ShortID(width int) string {
	b := n.Addr.As16()
	s := hex.EncodeToString(b[:])
	if width <= 0 || width >= len(s) {
		return s
	}
	return s[len(s)-width:]
}

// IsAddress reports whether s is a literal IPv4 or IPv6 address.
func IsAddress(s string) bool {
	_, err := netip.ParseAddr(s)
	return err == nil
}

var localTLDs = []string{"local", "localdomain", "localhost"}

// IsHostName reports whether s is a syntactically valid hostname. Single label
// names such as "steve" are accepted, as are names under a local or ICANN TLD.
func IsHostName(s string) bool {
	if s == "" || len(s) > 253 || IsAddress(s) {
		return false
	}
	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return false
	}
	labels := strings.Split(ascii, ".")
	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return false
		}
	}
	if len(labels) == 1 {
		return true
	}
	tld := labels[len(labels)-1]
	for _, local := range localTLDs {
		if tld == local {
			return true
		}
	}
	_, icann := publicsuffix.PublicSuffix(tld)
	return icann
}

// IsValid reports whether s can be given to a Resolver.
func IsValid(s string) bool {
	return IsAddress(s) || IsHostName(s)
}
