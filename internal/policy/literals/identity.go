// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package literals

import (
	"fmt"
	"net"
	"strings"

	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/types"
)

// Label is a `::`-delimited path value (spec.md §3 "Label"), stored as its
// parsed segments so Label::parts and pattern matching never re-split.
type Label struct {
	Parts []string
}

func (Label) litNode()        {}
func (Label) Type() types.Typ { return types.Label }
func (l Label) String() string { return strings.Join(l.Parts, "::") }

// NewLabel splits s on "::" into a Label.
func NewLabel(s string) Label {
	if s == "" {
		return Label{}
	}
	return Label{Parts: strings.Split(s, "::")}
}

// MatchWith matches l against a parsed label pattern, returning the named
// captures bound by `*name`/`**name` wildcards (spec.md §3 "Label pattern").
// Bare `*`/`**` wildcards consume segments without binding.
func (l Label) MatchWith(pat *ast.LabelPattern) (map[string]Label, bool) {
	caps := map[string]Label{}
	ok := matchLabelSegs(pat.Segs, l.Parts, caps)
	if !ok {
		return nil, false
	}
	return caps, true
}

func matchLabelSegs(segs []ast.LabelSeg, parts []string, caps map[string]Label) bool {
	if len(segs) == 0 {
		return len(parts) == 0
	}
	seg := segs[0]
	switch seg.Kind {
	case ast.LabelLiteralSeg:
		if len(parts) == 0 || parts[0] != seg.Literal {
			return false
		}
		return matchLabelSegs(segs[1:], parts[1:], caps)
	case ast.LabelWildcardOne:
		if len(parts) == 0 {
			return false
		}
		if seg.Name != "" {
			caps[seg.Name] = Label{Parts: []string{parts[0]}}
		}
		return matchLabelSegs(segs[1:], parts[1:], caps)
	case ast.LabelWildcardMany:
		// Greedy-first: try consuming as much as possible, backtracking to
		// satisfy the remaining pattern (spec.md §3's `**` is unbounded-span).
		for n := len(parts); n >= 0; n-- {
			trial := map[string]Label{}
			for k, v := range caps {
				trial[k] = v
			}
			if matchLabelSegs(segs[1:], parts[n:], trial) {
				if seg.Name != "" {
					trial[seg.Name] = Label{Parts: append([]string{}, parts[:n]...)}
				}
				for k, v := range trial {
					caps[k] = v
				}
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IPAddr wraps a v4 address (spec.md §6 "IpAddr::octets" implies a 4-octet
// decomposition; the DSL does not expose a v6 variant).
type IPAddr struct {
	IP net.IP
}

func (IPAddr) litNode()         {}
func (IPAddr) Type() types.Typ  { return types.IPAddr }
func (a IPAddr) String() string { return a.IP.String() }

// NewIPAddr parses s as a v4 address.
func NewIPAddr(s string) (IPAddr, error) {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return IPAddr{}, fmt.Errorf("invalid IPv4 address %q", s)
	}
	return IPAddr{IP: ip.To4()}, nil
}

// Localhost returns 127.0.0.1.
func Localhost() IPAddr { return IPAddr{IP: net.IPv4(127, 0, 0, 1)} }

// Octets returns the four address bytes as i64 values (spec.md
// "IpAddr::octets").
func (a IPAddr) Octets() [4]I64 {
	o := a.IP.To4()
	return [4]I64{I64(o[0]), I64(o[1]), I64(o[2]), I64(o[3])}
}

// ID is a workload identity: hostnames, IP addresses, an optional port, and
// labels (spec.md §3 "ID"). Membership-testing methods (has_host, etc.) and
// the add_* builders treat each field as a set: duplicates are not added
// twice (spec.md §6 "ID::add_label is idempotent").
type ID struct {
	Hosts  []string
	IPs    []IPAddr
	Port   *int64
	Labels []Label
}

func (ID) litNode()        {}
func (ID) Type() types.Typ { return types.ID }
func (id ID) String() string {
	var b strings.Builder
	b.WriteString("ID{hosts=[")
	b.WriteString(strings.Join(id.Hosts, ","))
	b.WriteString("]}")
	return b.String()
}

// DefaultID returns the zero-value ID (spec.md "ID::default").
func DefaultID() ID { return ID{} }

func (id ID) clone() ID {
	c := ID{
		Hosts:  append([]string{}, id.Hosts...),
		IPs:    append([]IPAddr{}, id.IPs...),
		Labels: append([]Label{}, id.Labels...),
	}
	if id.Port != nil {
		p := *id.Port
		c.Port = &p
	}
	return c
}

func (id ID) AddHost(h string) ID {
	if id.HasHost(h) {
		return id
	}
	c := id.clone()
	c.Hosts = append(c.Hosts, h)
	return c
}

func (id ID) AddIP(ip IPAddr) ID {
	if id.HasIP(ip) {
		return id
	}
	c := id.clone()
	c.IPs = append(c.IPs, ip)
	return c
}

func (id ID) AddLabel(l Label) ID {
	if id.HasLabel(l) {
		return id
	}
	c := id.clone()
	c.Labels = append(c.Labels, l)
	return c
}

func (id ID) SetPort(p int64) ID {
	c := id.clone()
	c.Port = &p
	return c
}

func (id ID) HasHost(h string) bool {
	for _, x := range id.Hosts {
		if x == h {
			return true
		}
	}
	return false
}

func (id ID) HasIP(ip IPAddr) bool {
	for _, x := range id.IPs {
		if x.IP.Equal(ip.IP) {
			return true
		}
	}
	return false
}

func (id ID) HasLabel(l Label) bool {
	for _, x := range id.Labels {
		if x.String() == l.String() {
			return true
		}
	}
	return false
}

// Connection is a TCP connection's endpoints and ordinal number (spec.md §3
// "Connection").
type Connection struct {
	From, To ID
	Number   int64
}

func (Connection) litNode()        {}
func (Connection) Type() types.Typ { return types.Connection }
func (c Connection) String() string {
	return fmt.Sprintf("Connection{%s -> %s, #%d}", c.From, c.To, c.Number)
}

// DefaultConnection returns the zero-value Connection (spec.md
// "Connection::default").
func DefaultConnection() Connection { return Connection{} }
