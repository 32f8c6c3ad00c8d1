// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package headers

import "github.com/holomush/armour/internal/policy/types"

// NewBuiltins returns a Table pre-populated with the canonical builtin
// catalog (spec.md §6) and the data-plane/control-plane policy entry
// points (§4.D, §6). User functions are added to the same Table during
// lowering (spec.md §4.D).
//
// Several list/option signatures below use types.Return in an argument or
// result position. types.Typ.Unifies already treats Return as a wildcard
// that matches anything (spec.md §4.C); reusing that mechanism here is how
// this monomorphic type system expresses the element-generic builtins
// (`list::len`, `option::Some`, ...) without introducing real polymorphism,
// which spec.md's Non-goals exclude.
func NewBuiltins() *Table {
	t := New()
	for _, b := range builtinCatalog() {
		for _, sig := range b.sigs {
			t.Add(b.name, sig)
		}
	}
	return t
}

type builtinEntry struct {
	name string
	sigs []types.Signature
}

func sig(args []types.Typ, ret types.Typ) types.Signature {
	return types.Signature{Args: args, Ret: ret}
}

func args(ts ...types.Typ) []types.Typ { return ts }

func builtinCatalog() []builtinEntry {
	anyList := types.List(types.Return)
	strPair := types.Tuple(types.Str, types.Str)
	idPair := types.Tuple(types.ID, types.ID)

	return []builtinEntry{
		// str::*
		{"str::len", []types.Signature{sig(args(types.Str), types.I64)}},
		{"str::to_lowercase", []types.Signature{sig(args(types.Str), types.Str)}},
		{"str::to_uppercase", []types.Signature{sig(args(types.Str), types.Str)}},
		{"str::trim_start", []types.Signature{sig(args(types.Str), types.Str)}},
		{"str::trim_end", []types.Signature{sig(args(types.Str), types.Str)}},
		{"str::as_bytes", []types.Signature{sig(args(types.Str), types.Data)}},
		{"str::from_utf8", []types.Signature{sig(args(types.Data), types.Option(types.Str))}},
		{"str::to_base64", []types.Signature{sig(args(types.Str), types.Str)}},
		{"str::starts_with", []types.Signature{sig(args(types.Str, types.Str), types.Bool)}},
		{"str::ends_with", []types.Signature{sig(args(types.Str, types.Str), types.Bool)}},
		{"str::contains", []types.Signature{sig(args(types.Str, types.Str), types.Bool)}},
		{"str::is_match", []types.Signature{sig(args(types.Str, types.Regex), types.Bool)}},

		// data::*
		{"data::to_base64", []types.Signature{sig(args(types.Data), types.Str)}},
		{"data::len", []types.Signature{sig(args(types.Data), types.I64)}},

		// i64::*
		{"i64::abs", []types.Signature{sig(args(types.I64), types.I64)}},
		{"i64::to_str", []types.Signature{sig(args(types.I64), types.Str)}},
		{"i64::pow", []types.Signature{sig(args(types.I64, types.I64), types.I64)}},
		{"i64::min", []types.Signature{sig(args(types.I64, types.I64), types.I64)}},
		{"i64::max", []types.Signature{sig(args(types.I64, types.I64), types.I64)}},

		// list::* (element-generic via the Return wildcard, see doc comment)
		{"list::len", []types.Signature{sig(args(anyList), types.I64)}},
		{"list::reduce", []types.Signature{sig(args(anyList), types.Return)}},
		{"list::is_subset", []types.Signature{sig(args(anyList, anyList), types.Bool)}},
		{"list::is_disjoint", []types.Signature{sig(args(anyList, anyList), types.Bool)}},
		{"list::difference", []types.Signature{sig(args(anyList, anyList), anyList)}},
		{"list::intersection", []types.Signature{sig(args(anyList, anyList), anyList)}},

		// option::*
		{"option::Some", []types.Signature{sig(args(types.Return), types.Option(types.Return))}},
		{"option::is_none", []types.Signature{sig(args(types.Option(types.Return)), types.Bool)}},
		{"option::is_some", []types.Signature{sig(args(types.Option(types.Return)), types.Bool)}},

		// Regex::*
		{"Regex::is_match", []types.Signature{sig(args(types.Regex, types.Str), types.Bool)}},

		// HttpRequest::*
		{"HttpRequest::GET", []types.Signature{sig(args(types.Str), types.HTTPRequest)}},
		{"HttpRequest::POST", []types.Signature{sig(args(types.Str), types.HTTPRequest)}},
		{"HttpRequest::PUT", []types.Signature{sig(args(types.Str), types.HTTPRequest)}},
		{"HttpRequest::DELETE", []types.Signature{sig(args(types.Str), types.HTTPRequest)}},
		{"HttpRequest::HEAD", []types.Signature{sig(args(types.Str), types.HTTPRequest)}},
		{"HttpRequest::OPTIONS", []types.Signature{sig(args(types.Str), types.HTTPRequest)}},
		{"HttpRequest::CONNECT", []types.Signature{sig(args(types.Str), types.HTTPRequest)}},
		{"HttpRequest::PATCH", []types.Signature{sig(args(types.Str), types.HTTPRequest)}},
		{"HttpRequest::TRACE", []types.Signature{sig(args(types.Str), types.HTTPRequest)}},
		{"HttpRequest::connection", []types.Signature{sig(args(types.HTTPRequest), types.Connection)}},
		{"HttpRequest::from", []types.Signature{sig(args(types.HTTPRequest), types.ID)}},
		{"HttpRequest::to", []types.Signature{sig(args(types.HTTPRequest), types.ID)}},
		{"HttpRequest::from_to", []types.Signature{sig(args(types.HTTPRequest), idPair)}},
		{"HttpRequest::method", []types.Signature{sig(args(types.HTTPRequest), types.Str)}},
		{"HttpRequest::version", []types.Signature{sig(args(types.HTTPRequest), types.Str)}},
		{"HttpRequest::path", []types.Signature{sig(args(types.HTTPRequest), types.Str)}},
		{"HttpRequest::route", []types.Signature{sig(args(types.HTTPRequest), types.List(types.Str))}},
		{"HttpRequest::query", []types.Signature{sig(args(types.HTTPRequest), types.Str)}},
		{"HttpRequest::query_pairs", []types.Signature{sig(args(types.HTTPRequest), types.List(strPair))}},
		{"HttpRequest::header_pairs", []types.Signature{sig(args(types.HTTPRequest), types.List(strPair))}},
		{"HttpRequest::headers", []types.Signature{sig(args(types.HTTPRequest), types.List(types.Str))}},
		{"HttpRequest::set_path", []types.Signature{sig(args(types.HTTPRequest, types.Str), types.HTTPRequest)}},
		{"HttpRequest::set_query", []types.Signature{sig(args(types.HTTPRequest, types.Str), types.HTTPRequest)}},
		{"HttpRequest::header", []types.Signature{sig(args(types.HTTPRequest, types.Str), types.Option(types.Str))}},
		{"HttpRequest::unique_header", []types.Signature{sig(args(types.HTTPRequest, types.Str), types.Option(types.Str))}},
		{"HttpRequest::set_header", []types.Signature{sig(args(types.HTTPRequest, types.Str, types.Str), types.HTTPRequest)}},
		{"HttpRequest::set_connection", []types.Signature{sig(args(types.HTTPRequest, types.Connection), types.HTTPRequest)}},
		{"HttpRequest::set_from", []types.Signature{sig(args(types.HTTPRequest, types.ID), types.HTTPRequest)}},
		{"HttpRequest::set_to", []types.Signature{sig(args(types.HTTPRequest, types.ID), types.HTTPRequest)}},

		// HttpResponse::*
		{"HttpResponse::new", []types.Signature{sig(args(types.I64), types.HTTPResponse)}},
		{"HttpResponse::connection", []types.Signature{sig(args(types.HTTPResponse), types.Connection)}},
		{"HttpResponse::status", []types.Signature{sig(args(types.HTTPResponse), types.I64)}},
		{"HttpResponse::version", []types.Signature{sig(args(types.HTTPResponse), types.Str)}},
		{"HttpResponse::reason", []types.Signature{sig(args(types.HTTPResponse), types.Option(types.Str))}},
		{"HttpResponse::header", []types.Signature{sig(args(types.HTTPResponse, types.Str), types.Option(types.Str))}},
		{"HttpResponse::unique_header", []types.Signature{sig(args(types.HTTPResponse, types.Str), types.Option(types.Str))}},
		{"HttpResponse::set_reason", []types.Signature{sig(args(types.HTTPResponse, types.Str), types.HTTPResponse)}},
		{"HttpResponse::set_header", []types.Signature{sig(args(types.HTTPResponse, types.Str, types.Str), types.HTTPResponse)}},
		{"HttpResponse::headers", []types.Signature{sig(args(types.HTTPResponse), types.List(types.Str))}},
		{"HttpResponse::header_pairs", []types.Signature{sig(args(types.HTTPResponse), types.List(strPair))}},
		{"HttpResponse::set_connection", []types.Signature{sig(args(types.HTTPResponse, types.Connection), types.HTTPResponse)}},
		{"HttpResponse::set_from", []types.Signature{sig(args(types.HTTPResponse, types.ID), types.HTTPResponse)}},
		{"HttpResponse::set_to", []types.Signature{sig(args(types.HTTPResponse, types.ID), types.HTTPResponse)}},

		// ID::*
		{"ID::default", []types.Signature{sig(args(), types.ID)}},
		{"ID::labels", []types.Signature{sig(args(types.ID), types.List(types.Label))}},
		{"ID::hosts", []types.Signature{sig(args(types.ID), types.List(types.Str))}},
		{"ID::ips", []types.Signature{sig(args(types.ID), types.List(types.IPAddr))}},
		{"ID::port", []types.Signature{sig(args(types.ID), types.Option(types.I64))}},
		{"ID::add_label", []types.Signature{sig(args(types.ID, types.Label), types.ID)}},
		{"ID::add_host", []types.Signature{sig(args(types.ID, types.Str), types.ID)}},
		{"ID::add_ip", []types.Signature{sig(args(types.ID, types.IPAddr), types.ID)}},
		{"ID::set_port", []types.Signature{sig(args(types.ID, types.I64), types.ID)}},
		{"ID::has_label", []types.Signature{sig(args(types.ID, types.Label), types.Bool)}},
		{"ID::has_host", []types.Signature{sig(args(types.ID, types.Str), types.Bool)}},
		{"ID::has_ip", []types.Signature{sig(args(types.ID, types.IPAddr), types.Bool)}},

		// Connection::*
		{"Connection::default", []types.Signature{sig(args(), types.Connection)}},
		{"Connection::new", []types.Signature{sig(args(types.ID, types.ID, types.I64), types.Connection)}},
		{"Connection::from_to", []types.Signature{sig(args(types.Connection), idPair)}},
		{"Connection::from", []types.Signature{sig(args(types.Connection), types.ID)}},
		{"Connection::to", []types.Signature{sig(args(types.Connection), types.ID)}},
		{"Connection::number", []types.Signature{sig(args(types.Connection), types.I64)}},
		{"Connection::set_from", []types.Signature{sig(args(types.Connection, types.ID), types.Connection)}},
		{"Connection::set_to", []types.Signature{sig(args(types.Connection, types.ID), types.Connection)}},
		{"Connection::set_number", []types.Signature{sig(args(types.Connection, types.I64), types.Connection)}},

		// Label::*
		{"Label::new", []types.Signature{sig(args(types.Str), types.Label)}},
		{"Label::parts", []types.Signature{sig(args(types.Label), types.List(types.Str))}},
		{"Label::captures", []types.Signature{sig(args(types.Label, types.Label), types.Option(types.List(types.Str)))}},
		{"Label::is_match", []types.Signature{sig(args(types.Label, types.Label), types.Bool)}},

		// IpAddr::*
		{"IpAddr::localhost", []types.Signature{sig(args(), types.IPAddr)}},
		{"IpAddr::from", []types.Signature{sig(args(types.Str), types.IPAddr)}},
		{"IpAddr::octets", []types.Signature{sig(args(types.IPAddr), types.List(types.I64))}},
		{"IpAddr::lookup", []types.Signature{sig(args(types.Str), types.List(types.IPAddr))}},
		{"IpAddr::reverse_lookup", []types.Signature{sig(args(types.IPAddr), types.List(types.Str))}},

		// Data-plane entry points (spec.md §6) — the specializer rejects
		// entry points whose signature deviates from these.
		{"allow_rest_request", []types.Signature{sig(args(types.ID, types.ID, types.HTTPRequest, types.Data), types.Bool)}},
		{"allow_rest_response", []types.Signature{sig(args(types.ID, types.ID, types.HTTPResponse, types.Data), types.Bool)}},
		{"allow_tcp_connection", []types.Signature{sig(args(types.ID, types.ID, types.Connection), types.Bool)}},
		{"on_tcp_disconnect", []types.Signature{sig(args(types.ID, types.ID, types.Connection, types.I64, types.I64), types.Bool)}},

		// Control-plane additions (spec.md §4.D).
		{"ControlPlane::onboard", []types.Signature{sig(args(types.ID), types.Bool)}},
		{"ControlPlane::newID", []types.Signature{sig(args(types.Str), types.ID)}},
		{"ControlPlane::onboarded", []types.Signature{sig(args(types.ID), types.Bool)}},
		{"compile_ingress", []types.Signature{sig(args(types.ID), types.Bool)}},
		{"compile_egress", []types.Signature{sig(args(types.ID), types.Bool)}},
		{"allow_egress", []types.Signature{sig(args(), types.Bool)}},
		{"allow_ingress", []types.Signature{sig(args(), types.Bool)}},
		{"deny_egress", []types.Signature{sig(args(), types.Bool)}},
		{"deny_ingress", []types.Signature{sig(args(), types.Bool)}},
	}
}
