// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package literals

import (
	"fmt"
	"strings"

	"github.com/holomush/armour/internal/policy/types"
)

// HeaderMultimap is an insertion-ordered multimap (spec.md §6 "HttpRequest
// headers preserve insertion order per key" — HTTP allows repeated header
// names and order is observable to `header_pairs`). Go's map has no
// ordering guarantee, so order is tracked separately in pairs.
type HeaderMultimap struct {
	pairs [][2]string
}

// Add appends a key/value pair, keeping any existing values for key.
func (m HeaderMultimap) Add(key, value string) HeaderMultimap {
	return HeaderMultimap{pairs: append(append([][2]string{}, m.pairs...), [2]string{key, value})}
}

// Set replaces every existing value for key with a single new value,
// inserted at the position of the first existing occurrence (or appended).
func (m HeaderMultimap) Set(key, value string) HeaderMultimap {
	out := make([][2]string, 0, len(m.pairs)+1)
	replaced := false
	for _, p := range m.pairs {
		if p[0] == key {
			if !replaced {
				out = append(out, [2]string{key, value})
				replaced = true
			}
			continue
		}
		out = append(out, p)
	}
	if !replaced {
		out = append(out, [2]string{key, value})
	}
	return HeaderMultimap{pairs: out}
}

// First returns the first value bound to key (spec.md "header" builtin).
func (m HeaderMultimap) First(key string) (string, bool) {
	for _, p := range m.pairs {
		if p[0] == key {
			return p[1], true
		}
	}
	return "", false
}

// Unique returns the value bound to key only if key occurs exactly once
// (spec.md "unique_header" builtin).
func (m HeaderMultimap) Unique(key string) (string, bool) {
	val, count := "", 0
	for _, p := range m.pairs {
		if p[0] == key {
			val = p[1]
			count++
		}
	}
	if count != 1 {
		return "", false
	}
	return val, true
}

// Pairs returns every key/value pair in insertion order.
func (m HeaderMultimap) Pairs() [][2]string { return m.pairs }

// Names returns each distinct key in order of first occurrence.
func (m HeaderMultimap) Names() []string {
	seen := map[string]bool{}
	var names []string
	for _, p := range m.pairs {
		if !seen[p[0]] {
			seen[p[0]] = true
			names = append(names, p[0])
		}
	}
	return names
}

// HTTPRequest is an HTTP request value (spec.md §3 "HttpRequest").
type HTTPRequest struct {
	Method  string
	Pth     string
	Qry     string
	Vers    string
	Conn    Connection
	Headers HeaderMultimap
}

func (HTTPRequest) litNode()        {}
func (HTTPRequest) Type() types.Typ { return types.HTTPRequest }
func (r HTTPRequest) String() string {
	return fmt.Sprintf("%s %s", r.Method, r.Pth)
}

// NewHTTPRequest builds a request for the given method and path (spec.md
// "HttpRequest::GET/POST/...").
func NewHTTPRequest(method, path string) HTTPRequest {
	return HTTPRequest{Method: method, Pth: path, Vers: "HTTP/1.1"}
}

func (r HTTPRequest) ConnectionVal() Connection  { return r.Conn }
func (r HTTPRequest) From() ID                   { return r.Conn.From }
func (r HTTPRequest) To() ID                     { return r.Conn.To }
func (r HTTPRequest) FromTo() (ID, ID)           { return r.Conn.From, r.Conn.To }
func (r HTTPRequest) Path() string                { return r.Pth }
func (r HTTPRequest) Query() string                { return r.Qry }
func (r HTTPRequest) Version() string              { return r.Vers }

// Route splits Path on "/", dropping empty leading/trailing segments
// (spec.md "HttpRequest::route").
func (r HTTPRequest) Route() []string {
	var segs []string
	for _, s := range strings.Split(r.Pth, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// QueryPairs parses Query as "&"-separated "k=v" pairs.
func (r HTTPRequest) QueryPairs() [][2]string {
	var out [][2]string
	if r.Qry == "" {
		return out
	}
	for _, kv := range strings.Split(r.Qry, "&") {
		k, v, _ := strings.Cut(kv, "=")
		out = append(out, [2]string{k, v})
	}
	return out
}

func (r HTTPRequest) SetPath(p string) HTTPRequest  { c := r; c.Pth = p; return c }
func (r HTTPRequest) SetQuery(q string) HTTPRequest { c := r; c.Qry = q; return c }
func (r HTTPRequest) Header(key string) (string, bool)       { return r.Headers.First(key) }
func (r HTTPRequest) UniqueHeader(key string) (string, bool) { return r.Headers.Unique(key) }
func (r HTTPRequest) SetHeader(key, val string) HTTPRequest {
	c := r
	c.Headers = r.Headers.Set(key, val)
	return c
}
func (r HTTPRequest) HeaderPairs() [][2]string { return r.Headers.Pairs() }
func (r HTTPRequest) HeaderNames() []string    { return r.Headers.Names() }
func (r HTTPRequest) SetConnection(c Connection) HTTPRequest {
	out := r
	out.Conn = c
	return out
}
func (r HTTPRequest) SetFrom(id ID) HTTPRequest { c := r; c.Conn = c.Conn.setFrom(id); return c }
func (r HTTPRequest) SetTo(id ID) HTTPRequest   { c := r; c.Conn = c.Conn.setTo(id); return c }

func (c Connection) setFrom(id ID) Connection { c.From = id; return c }
func (c Connection) setTo(id ID) Connection   { c.To = id; return c }

// HTTPResponse is an HTTP response value (spec.md §3 "HttpResponse").
type HTTPResponse struct {
	StatusCode int64
	Vers       string
	Rsn        *string
	Conn       Connection
	Headers    HeaderMultimap
}

func (HTTPResponse) litNode()        {}
func (HTTPResponse) Type() types.Typ { return types.HTTPResponse }
func (r HTTPResponse) String() string { return fmt.Sprintf("HTTP %d", r.StatusCode) }

// NewHTTPResponse builds a response with the given status code (spec.md
// "HttpResponse::new").
func NewHTTPResponse(status int64) HTTPResponse {
	return HTTPResponse{StatusCode: status, Vers: "HTTP/1.1"}
}

func (r HTTPResponse) ConnectionVal() Connection { return r.Conn }
func (r HTTPResponse) Status() int64             { return r.StatusCode }
func (r HTTPResponse) Version() string           { return r.Vers }
func (r HTTPResponse) Reason() *string           { return r.Rsn }
func (r HTTPResponse) Header(key string) (string, bool)       { return r.Headers.First(key) }
func (r HTTPResponse) UniqueHeader(key string) (string, bool) { return r.Headers.Unique(key) }
func (r HTTPResponse) SetReason(s string) HTTPResponse {
	c := r
	c.Rsn = &s
	return c
}
func (r HTTPResponse) SetHeader(key, val string) HTTPResponse {
	c := r
	c.Headers = r.Headers.Set(key, val)
	return c
}
func (r HTTPResponse) HeaderPairs() [][2]string { return r.Headers.Pairs() }
func (r HTTPResponse) HeaderNames() []string    { return r.Headers.Names() }
func (r HTTPResponse) SetConnection(c Connection) HTTPResponse {
	out := r
	out.Conn = c
	return out
}
func (r HTTPResponse) SetFrom(id ID) HTTPResponse { c := r; c.Conn = c.Conn.setFrom(id); return c }
func (r HTTPResponse) SetTo(id ID) HTTPResponse   { c := r; c.Conn = c.Conn.setTo(id); return c }
