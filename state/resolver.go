package state

import (
	"context"
	"log/slog"
	"net/netip"

	"github.com/jellydator/ttlcache/v3"
)

// LookupFunc resolves a hostname through the system resolver.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

type resolution struct {
	node NodeAddress
	err  error
}

// Resolver turns node tokens into NodeAddress values. Literal addresses never
// cause a lookup, overrides win over the system resolver, and each token is
// resolved at most once.
type Resolver struct {
	overrides *OverrideTable
	lookup    LookupFunc
	memo      *ttlcache.Cache[string, resolution]
	log       *slog.Logger
}

type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used to report lookups.
func WithResolverLogger(log *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.log = log
	}
}

func NewResolver(overrides *OverrideTable, lookup LookupFunc, opts ...ResolverOption) *Resolver {
	if overrides == nil {
		overrides = NewOverrideTable()
	}
	if lookup == nil {
		lookup = ResolveName
	}
	r := &Resolver{
		overrides: overrides,
		lookup:    lookup,
		memo: ttlcache.New[string, resolution](
			ttlcache.WithDisableTouchOnHit[string, resolution](),
		),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Overrides() *OverrideTable {
	return r.overrides
}

// Resolve returns the address of the node named by token. Errors are
// *InvalidHostError or *UnresolvableHostError.
func (r *Resolver) Resolve(ctx context.Context, token string) (NodeAddress, error) {
	if item := r.memo.Get(token); item != nil {
		res := item.Value()
		return res.node, res.err
	}
	node, err := r.resolve(ctx, token)
	if ctx.Err() == nil {
		r.memo.Set(token, resolution{node: node, err: err}, ttlcache.DefaultTTL)
	}
	return node, err
}

func (r *Resolver) resolve(ctx context.Context, token string) (NodeAddress, error) {
	if addr, err := netip.ParseAddr(token); err == nil {
		return NewNodeAddress(addr, ""), nil
	}
	if !IsHostName(token) {
		return NodeAddress{}, &InvalidHostError{Host: token}
	}
	if addr, ok := r.overrides.Lookup(token); ok {
		r.log.Debug("using override", "host", token, "addr", addr)
		return NewNodeAddress(addr, token), nil
	}
	addrs, err := r.lookup(ctx, token)
	if err != nil {
		return NodeAddress{}, &UnresolvableHostError{Host: token, Err: err}
	}
	addr, ok := preferIPv6(addrs)
	if !ok {
		return NodeAddress{}, &UnresolvableHostError{Host: token}
	}
	r.log.Debug("resolved", "host", token, "addr", addr)
	return NewNodeAddress(addr, token), nil
}

// preferIPv6 picks the first IPv6 answer, or the first answer if there is
// none.
func preferIPv6(addrs []netip.Addr) (netip.Addr, bool) {
	for _, a := range addrs {
		if a.Unmap().Is6() {
			return a, true
		}
	}
	for _, a := range addrs {
		if a.IsValid() {
			return a, true
		}
	}
	return netip.Addr{}, false
}

// ResolveAll resolves every token in order. Tokens that fail are reported in
// errs, keyed by token, and left out of nodes.
func (r *Resolver) ResolveAll(ctx context.Context, tokens []string) (nodes []NodeAddress, errs map[string]error) {
	errs = make(map[string]error)
	for _, token := range tokens {
		node, err := r.Resolve(ctx, token)
		if err != nil {
			errs[token] = err
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, errs
}
