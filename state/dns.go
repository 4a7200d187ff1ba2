package state

import (
	"context"
	"net"
	"net/netip"
	"time"
)

// SetResolvers configures the global default resolver
func SetResolvers(resolvers []string) {
	if len(resolvers) != 0 {
		net.DefaultResolver = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				d := net.Dialer{Timeout: time.Second * 10}
				var lastErr error
				for _, r := range resolvers {
					conn, err := d.DialContext(ctx, network, r)
					if err == nil {
						return conn, nil
					}
					lastErr = err
				}
				return nil, lastErr
			},
		}
	}
}

// ResolveName resolves a hostname to a list of IP addresses
func ResolveName(ctx context.Context, host string) ([]netip.Addr, error) {
	ips, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	var addrs []netip.Addr
	for _, ipStr := range ips {
		if addr, err := netip.ParseAddr(ipStr); err == nil {
			addrs = append(addrs, addr.Unmap())
		}
	}
	return addrs, nil
}
