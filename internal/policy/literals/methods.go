// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package literals

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Method is a builtin's executable body: the arguments have already been
// type-checked against headers.Table when the call was lowered
// (internal/policy/corelang), so Method only needs to assert Go types and
// compute a result.
type Method func(args []Literal) (Literal, error)

// Methods is the builtin execution registry, keyed by the same qualified
// name (`T::m`) headers.Table uses for signatures (spec.md §9 "dispatch by
// (name, []TypeTag)"). internal/policy/corelang resolves a call's signature
// via headers.Table while lowering; internal/policy/eval looks the call's
// name up here to run it. Not every name in headers.Table has an entry.
var Methods = buildMethods()

func buildMethods() map[string]Method {
	m := map[string]Method{}

	// str::*
	m["str::len"] = func(a []Literal) (Literal, error) { return I64(len(a[0].(Str))), nil }
	m["str::to_lowercase"] = func(a []Literal) (Literal, error) { return Str(strings.ToLower(string(a[0].(Str)))), nil }
	m["str::to_uppercase"] = func(a []Literal) (Literal, error) { return Str(strings.ToUpper(string(a[0].(Str)))), nil }
	m["str::trim_start"] = func(a []Literal) (Literal, error) { return Str(strings.TrimLeft(string(a[0].(Str)), " \t\r\n")), nil }
	m["str::trim_end"] = func(a []Literal) (Literal, error) { return Str(strings.TrimRight(string(a[0].(Str)), " \t\r\n")), nil }
	m["str::as_bytes"] = func(a []Literal) (Literal, error) { return Data([]byte(a[0].(Str))), nil }
	m["str::from_utf8"] = func(a []Literal) (Literal, error) {
		d := a[0].(Data)
		// str::from_utf8 returns None on invalid UTF-8 rather than erroring
		// (spec.md §6 "from_utf8 is fallible, encoded as Option<Str>").
		if !utf8.Valid(d) {
			return None(strTypElem), nil
		}
		return Some(Str(string(d))), nil
	}
	m["str::to_base64"] = func(a []Literal) (Literal, error) {
		return Str(base64.StdEncoding.EncodeToString([]byte(a[0].(Str)))), nil
	}
	m["str::starts_with"] = func(a []Literal) (Literal, error) {
		return Bool(strings.HasPrefix(string(a[0].(Str)), string(a[1].(Str)))), nil
	}
	m["str::ends_with"] = func(a []Literal) (Literal, error) {
		return Bool(strings.HasSuffix(string(a[0].(Str)), string(a[1].(Str)))), nil
	}
	m["str::contains"] = func(a []Literal) (Literal, error) {
		return Bool(strings.Contains(string(a[0].(Str)), string(a[1].(Str)))), nil
	}
	m["str::is_match"] = func(a []Literal) (Literal, error) {
		rx := a[1].(Regex)
		_, ok := rx.Compile.Match(string(a[0].(Str)))
		return Bool(ok), nil
	}

	// data::*
	m["data::to_base64"] = func(a []Literal) (Literal, error) {
		return Str(base64.StdEncoding.EncodeToString([]byte(a[0].(Data)))), nil
	}
	m["data::len"] = func(a []Literal) (Literal, error) { return I64(len(a[0].(Data))), nil }

	// i64::*
	m["i64::abs"] = func(a []Literal) (Literal, error) {
		v := int64(a[0].(I64))
		if v < 0 {
			v = -v
		}
		return I64(v), nil
	}
	m["i64::to_str"] = func(a []Literal) (Literal, error) { return Str(a[0].(I64).String()), nil }
	m["i64::pow"] = func(a []Literal) (Literal, error) {
		base, exp := int64(a[0].(I64)), int64(a[1].(I64))
		if exp < 0 {
			return nil, fmt.Errorf("i64::pow: negative exponent %d", exp)
		}
		r := int64(1)
		for i := int64(0); i < exp; i++ {
			r *= base
		}
		return I64(r), nil
	}
	m["i64::min"] = func(a []Literal) (Literal, error) {
		x, y := int64(a[0].(I64)), int64(a[1].(I64))
		if x < y {
			return I64(x), nil
		}
		return I64(y), nil
	}
	m["i64::max"] = func(a []Literal) (Literal, error) {
		x, y := int64(a[0].(I64)), int64(a[1].(I64))
		if x > y {
			return I64(x), nil
		}
		return I64(y), nil
	}

	// Regex::*
	m["Regex::is_match"] = func(a []Literal) (Literal, error) {
		rx := a[0].(Regex)
		_, ok := rx.Compile.Match(string(a[1].(Str)))
		return Bool(ok), nil
	}

	// option::*
	m["option::is_none"] = func(a []Literal) (Literal, error) { return Bool(!a[0].(Option).IsSome()), nil }
	m["option::is_some"] = func(a []Literal) (Literal, error) { return Bool(a[0].(Option).IsSome()), nil }

	// list::*
	m["list::len"] = func(a []Literal) (Literal, error) { return I64(len(a[0].(List).Items)), nil }
	m["list::is_subset"] = func(a []Literal) (Literal, error) {
		sub, sup := a[0].(List), a[1].(List)
		for _, x := range sub.Items {
			if !listContains(sup, x) {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	}
	m["list::is_disjoint"] = func(a []Literal) (Literal, error) {
		l1, l2 := a[0].(List), a[1].(List)
		for _, x := range l1.Items {
			if listContains(l2, x) {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	}
	m["list::difference"] = func(a []Literal) (Literal, error) {
		l1, l2 := a[0].(List), a[1].(List)
		out := List{Elem: l1.Elem}
		for _, x := range l1.Items {
			if !listContains(l2, x) {
				out.Items = append(out.Items, x)
			}
		}
		return out, nil
	}
	m["list::intersection"] = func(a []Literal) (Literal, error) {
		l1, l2 := a[0].(List), a[1].(List)
		out := List{Elem: l1.Elem}
		for _, x := range l1.Items {
			if listContains(l2, x) {
				out.Items = append(out.Items, x)
			}
		}
		return out, nil
	}

	// HttpRequest::*
	for _, method := range []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS", "CONNECT", "PATCH", "TRACE"} {
		method := method
		m["HttpRequest::"+method] = func(a []Literal) (Literal, error) {
			return NewHTTPRequest(method, string(a[0].(Str))), nil
		}
	}
	m["HttpRequest::connection"] = func(a []Literal) (Literal, error) { return a[0].(HTTPRequest).ConnectionVal(), nil }
	m["HttpRequest::from"] = func(a []Literal) (Literal, error) { return a[0].(HTTPRequest).From(), nil }
	m["HttpRequest::to"] = func(a []Literal) (Literal, error) { return a[0].(HTTPRequest).To(), nil }
	m["HttpRequest::from_to"] = func(a []Literal) (Literal, error) {
		from, to := a[0].(HTTPRequest).FromTo()
		return Tuple{Items: []Literal{from, to}}, nil
	}
	m["HttpRequest::method"] = func(a []Literal) (Literal, error) { return Str(a[0].(HTTPRequest).Method), nil }
	m["HttpRequest::version"] = func(a []Literal) (Literal, error) { return Str(a[0].(HTTPRequest).Version()), nil }
	m["HttpRequest::path"] = func(a []Literal) (Literal, error) { return Str(a[0].(HTTPRequest).Path()), nil }
	m["HttpRequest::route"] = func(a []Literal) (Literal, error) {
		segs := a[0].(HTTPRequest).Route()
		items := make([]Literal, len(segs))
		for i, s := range segs {
			items[i] = Str(s)
		}
		return List{Elem: strTypElem, Items: items}, nil
	}
	m["HttpRequest::query"] = func(a []Literal) (Literal, error) { return Str(a[0].(HTTPRequest).Query()), nil }
	m["HttpRequest::query_pairs"] = func(a []Literal) (Literal, error) {
		return pairsToList(a[0].(HTTPRequest).QueryPairs()), nil
	}
	m["HttpRequest::header_pairs"] = func(a []Literal) (Literal, error) {
		return pairsToList(a[0].(HTTPRequest).HeaderPairs()), nil
	}
	m["HttpRequest::headers"] = func(a []Literal) (Literal, error) {
		return namesToList(a[0].(HTTPRequest).HeaderNames()), nil
	}
	m["HttpRequest::set_path"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPRequest).SetPath(string(a[1].(Str))), nil
	}
	m["HttpRequest::set_query"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPRequest).SetQuery(string(a[1].(Str))), nil
	}
	m["HttpRequest::header"] = func(a []Literal) (Literal, error) {
		v, ok := a[0].(HTTPRequest).Header(string(a[1].(Str)))
		return optStr(v, ok), nil
	}
	m["HttpRequest::unique_header"] = func(a []Literal) (Literal, error) {
		v, ok := a[0].(HTTPRequest).UniqueHeader(string(a[1].(Str)))
		return optStr(v, ok), nil
	}
	m["HttpRequest::set_header"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPRequest).SetHeader(string(a[1].(Str)), string(a[2].(Str))), nil
	}
	m["HttpRequest::set_connection"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPRequest).SetConnection(a[1].(Connection)), nil
	}
	m["HttpRequest::set_from"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPRequest).SetFrom(a[1].(ID)), nil
	}
	m["HttpRequest::set_to"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPRequest).SetTo(a[1].(ID)), nil
	}

	// HttpResponse::*
	m["HttpResponse::new"] = func(a []Literal) (Literal, error) { return NewHTTPResponse(int64(a[0].(I64))), nil }
	m["HttpResponse::connection"] = func(a []Literal) (Literal, error) { return a[0].(HTTPResponse).ConnectionVal(), nil }
	m["HttpResponse::status"] = func(a []Literal) (Literal, error) { return I64(a[0].(HTTPResponse).Status()), nil }
	m["HttpResponse::version"] = func(a []Literal) (Literal, error) { return Str(a[0].(HTTPResponse).Version()), nil }
	m["HttpResponse::reason"] = func(a []Literal) (Literal, error) {
		r := a[0].(HTTPResponse).Reason()
		if r == nil {
			return None(strTypElem), nil
		}
		return Some(Str(*r)), nil
	}
	m["HttpResponse::header"] = func(a []Literal) (Literal, error) {
		v, ok := a[0].(HTTPResponse).Header(string(a[1].(Str)))
		return optStr(v, ok), nil
	}
	m["HttpResponse::unique_header"] = func(a []Literal) (Literal, error) {
		v, ok := a[0].(HTTPResponse).UniqueHeader(string(a[1].(Str)))
		return optStr(v, ok), nil
	}
	m["HttpResponse::set_reason"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPResponse).SetReason(string(a[1].(Str))), nil
	}
	m["HttpResponse::set_header"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPResponse).SetHeader(string(a[1].(Str)), string(a[2].(Str))), nil
	}
	m["HttpResponse::headers"] = func(a []Literal) (Literal, error) {
		return namesToList(a[0].(HTTPResponse).HeaderNames()), nil
	}
	m["HttpResponse::header_pairs"] = func(a []Literal) (Literal, error) {
		return pairsToList(a[0].(HTTPResponse).HeaderPairs()), nil
	}
	m["HttpResponse::set_connection"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPResponse).SetConnection(a[1].(Connection)), nil
	}
	m["HttpResponse::set_from"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPResponse).SetFrom(a[1].(ID)), nil
	}
	m["HttpResponse::set_to"] = func(a []Literal) (Literal, error) {
		return a[0].(HTTPResponse).SetTo(a[1].(ID)), nil
	}

	// ID::*
	m["ID::default"] = func(a []Literal) (Literal, error) { return DefaultID(), nil }
	m["ID::labels"] = func(a []Literal) (Literal, error) {
		id := a[0].(ID)
		items := make([]Literal, len(id.Labels))
		for i, l := range id.Labels {
			items[i] = l
		}
		return List{Elem: labelTypElem, Items: items}, nil
	}
	m["ID::hosts"] = func(a []Literal) (Literal, error) { return namesToList(a[0].(ID).Hosts), nil }
	m["ID::ips"] = func(a []Literal) (Literal, error) {
		id := a[0].(ID)
		items := make([]Literal, len(id.IPs))
		for i, ip := range id.IPs {
			items[i] = ip
		}
		return List{Elem: ipTypElem, Items: items}, nil
	}
	m["ID::port"] = func(a []Literal) (Literal, error) {
		p := a[0].(ID).Port
		if p == nil {
			return None(i64TypElem), nil
		}
		return Some(I64(*p)), nil
	}
	m["ID::add_label"] = func(a []Literal) (Literal, error) { return a[0].(ID).AddLabel(a[1].(Label)), nil }
	m["ID::add_host"] = func(a []Literal) (Literal, error) { return a[0].(ID).AddHost(string(a[1].(Str))), nil }
	m["ID::add_ip"] = func(a []Literal) (Literal, error) { return a[0].(ID).AddIP(a[1].(IPAddr)), nil }
	m["ID::set_port"] = func(a []Literal) (Literal, error) { return a[0].(ID).SetPort(int64(a[1].(I64))), nil }
	m["ID::has_label"] = func(a []Literal) (Literal, error) { return Bool(a[0].(ID).HasLabel(a[1].(Label))), nil }
	m["ID::has_host"] = func(a []Literal) (Literal, error) { return Bool(a[0].(ID).HasHost(string(a[1].(Str)))), nil }
	m["ID::has_ip"] = func(a []Literal) (Literal, error) { return Bool(a[0].(ID).HasIP(a[1].(IPAddr))), nil }

	// Connection::*
	m["Connection::default"] = func(a []Literal) (Literal, error) { return DefaultConnection(), nil }
	m["Connection::new"] = func(a []Literal) (Literal, error) {
		return Connection{From: a[0].(ID), To: a[1].(ID), Number: int64(a[2].(I64))}, nil
	}
	m["Connection::from_to"] = func(a []Literal) (Literal, error) {
		c := a[0].(Connection)
		return Tuple{Items: []Literal{c.From, c.To}}, nil
	}
	m["Connection::from"] = func(a []Literal) (Literal, error) { return a[0].(Connection).From, nil }
	m["Connection::to"] = func(a []Literal) (Literal, error) { return a[0].(Connection).To, nil }
	m["Connection::number"] = func(a []Literal) (Literal, error) { return I64(a[0].(Connection).Number), nil }
	m["Connection::set_from"] = func(a []Literal) (Literal, error) { return a[0].(Connection).setFrom(a[1].(ID)), nil }
	m["Connection::set_to"] = func(a []Literal) (Literal, error) { return a[0].(Connection).setTo(a[1].(ID)), nil }
	m["Connection::set_number"] = func(a []Literal) (Literal, error) {
		c := a[0].(Connection)
		c.Number = int64(a[1].(I64))
		return c, nil
	}

	// Label::*
	m["Label::new"] = func(a []Literal) (Literal, error) { return NewLabel(string(a[0].(Str))), nil }
	m["Label::parts"] = func(a []Literal) (Literal, error) { return namesToList(a[0].(Label).Parts), nil }

	// IpAddr::*
	m["IpAddr::localhost"] = func(a []Literal) (Literal, error) { return Localhost(), nil }
	m["IpAddr::from"] = func(a []Literal) (Literal, error) { return NewIPAddr(string(a[0].(Str))) }
	m["IpAddr::octets"] = func(a []Literal) (Literal, error) {
		o := a[0].(IPAddr).Octets()
		return List{Elem: i64TypElem, Items: []Literal{o[0], o[1], o[2], o[3]}}, nil
	}

	return m
}

func listContains(l List, x Literal) bool {
	for _, y := range l.Items {
		if x.String() == y.String() && x.Type().Equal(y.Type()) {
			return true
		}
	}
	return false
}

func optStr(v string, ok bool) Option {
	if !ok {
		return None(strTypElem)
	}
	return Some(Str(v))
}

func pairsToList(pairs [][2]string) List {
	items := make([]Literal, len(pairs))
	for i, p := range pairs {
		items[i] = Tuple{Items: []Literal{Str(p[0]), Str(p[1])}}
	}
	return List{Elem: strPairTypElem, Items: items}
}

func namesToList(names []string) List {
	items := make([]Literal, len(names))
	for i, n := range names {
		items[i] = Str(n)
	}
	return List{Elem: strTypElem, Items: items}
}
