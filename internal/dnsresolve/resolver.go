// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package dnsresolve implements the "DNS-like" collaborator (spec.md §6):
// `IpAddr::lookup(host) -> List<IpAddr>` and
// `IpAddr::reverse_lookup(ip) -> List<Str>`. These two builtins are declared
// in internal/policy/headers but deliberately absent from
// internal/policy/literals' pure Methods registry, since resolution is
// network I/O; they are served through the same eval.External boundary
// used for metadata/RPC collaborators instead.
package dnsresolve

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"

	"github.com/holomush/armour/internal/policy/eval"
	"github.com/holomush/armour/internal/policy/literals"
)

// Resolver answers IpAddr::lookup/reverse_lookup by querying a DNS server
// and forwards every other qualified call to Next (spec.md §6
// "may be synchronous or async; errors yield None" — this package chooses
// synchronous, since a blocking A/PTR query is the idiomatic miekg/dns
// usage and the evaluator already awaits External.Call).
type Resolver struct {
	// Server is a "host:port" DNS server address, e.g. "8.8.8.8:53".
	Server  string
	Timeout time.Duration
	Next    eval.External
}

// New builds a Resolver querying server, falling back to next for any call
// name it doesn't own.
func New(server string, next eval.External) *Resolver {
	return &Resolver{Server: server, Timeout: 5 * time.Second, Next: next}
}

func (r *Resolver) Call(ctx context.Context, qualifiedName string, args []literals.Literal) (literals.Literal, error) {
	switch qualifiedName {
	case "IpAddr::lookup":
		if len(args) != 1 {
			return nil, fmt.Errorf("dnsresolve: lookup wants 1 argument, got %d", len(args))
		}
		host, ok := args[0].(literals.Str)
		if !ok {
			return nil, fmt.Errorf("dnsresolve: lookup wants Str, got %T", args[0])
		}
		return r.lookup(ctx, string(host))

	case "IpAddr::reverse_lookup":
		if len(args) != 1 {
			return nil, fmt.Errorf("dnsresolve: reverse_lookup wants 1 argument, got %d", len(args))
		}
		ip, ok := args[0].(literals.IPAddr)
		if !ok {
			return nil, fmt.Errorf("dnsresolve: reverse_lookup wants IpAddr, got %T", args[0])
		}
		return r.reverseLookup(ctx, ip)
	}

	if r.Next == nil {
		return nil, fmt.Errorf("dnsresolve: no collaborator for %q", qualifiedName)
	}
	return r.Next.Call(ctx, qualifiedName, args)
}

// lookup resolves host's A records. Per spec.md §6 "errors yield None"
// (modeled here as an empty List rather than failing the whole
// evaluation, since the declared return is List<IpAddr>, not an Option).
func (r *Resolver) lookup(ctx context.Context, host string) (literals.Literal, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)

	in, err := r.exchange(ctx, m)
	if err != nil {
		return literals.List{Elem: literals.IPAddr{}.Type()}, nil
	}

	items := make([]literals.Literal, 0, len(in.Answer))
	for _, rr := range in.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		addr, err := literals.NewIPAddr(a.A.String())
		if err != nil {
			continue
		}
		items = append(items, addr)
	}
	return literals.List{Elem: literals.IPAddr{}.Type(), Items: items}, nil
}

// reverseLookup resolves ip's PTR records.
func (r *Resolver) reverseLookup(ctx context.Context, ip literals.IPAddr) (literals.Literal, error) {
	arpa, err := dns.ReverseAddr(ip.IP.String())
	if err != nil {
		return literals.List{Elem: literals.Str("").Type()}, nil
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)

	in, err := r.exchange(ctx, m)
	if err != nil {
		return literals.List{Elem: literals.Str("").Type()}, nil
	}

	items := make([]literals.Literal, 0, len(in.Answer))
	for _, rr := range in.Answer {
		ptr, ok := rr.(*dns.PTR)
		if !ok {
			continue
		}
		items = append(items, literals.Str(ptr.Ptr))
	}
	return literals.List{Elem: literals.Str("").Type(), Items: items}, nil
}

func (r *Resolver) exchange(ctx context.Context, m *dns.Msg) (*dns.Msg, error) {
	c := &dns.Client{Timeout: r.Timeout}
	in, _, err := c.ExchangeContext(ctx, m, r.Server)
	if err != nil {
		return nil, fmt.Errorf("dnsresolve: exchange: %w", err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("dnsresolve: rcode %s", dns.RcodeToString[in.Rcode])
	}
	return in, nil
}
