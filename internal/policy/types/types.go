// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package types defines the monomorphic type terms used by the policy
// language pipeline: primitive types, the parameterized List/Tuple/Option
// family, and the distinguished Return type used for early-exit branches.
package types

import (
	"fmt"
	"strings"
)

// Kind identifies the shape of a Typ without its type parameters.
type Kind int

// Kind constants enumerate every primitive and structural type the policy
// language supports.
const (
	KBool Kind = iota
	KI64
	KF64
	KStr
	KData
	KUnit
	KRegex
	KHttpRequest
	KHttpResponse
	KID
	KConnection
	KIpAddr
	KLabel
	KList
	KTuple
	KOption
	KReturn
)

var kindNames = [...]string{
	"Bool", "I64", "F64", "Str", "Data", "Unit", "Regex",
	"HttpRequest", "HttpResponse", "ID", "Connection", "IpAddr", "Label",
	"List", "Tuple", "Option", "Return",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Typ is a type term. Simple (non-parameterized) kinds leave Elem/Elems nil.
// List and Option carry a single Elem; Tuple carries Elems.
type Typ struct {
	Kind  Kind
	Elem  *Typ  // List<Elem>, Option<Elem>
	Elems []Typ // Tuple<Elems...>
}

// Simple constructors for the primitive kinds.
var (
	Bool         = Typ{Kind: KBool}
	I64          = Typ{Kind: KI64}
	F64          = Typ{Kind: KF64}
	Str          = Typ{Kind: KStr}
	Data         = Typ{Kind: KData}
	Unit         = Typ{Kind: KUnit}
	Regex        = Typ{Kind: KRegex}
	HTTPRequest  = Typ{Kind: KHttpRequest}
	HTTPResponse = Typ{Kind: KHttpResponse}
	ID           = Typ{Kind: KID}
	Connection   = Typ{Kind: KConnection}
	IPAddr       = Typ{Kind: KIpAddr}
	Label        = Typ{Kind: KLabel}
	Return       = Typ{Kind: KReturn}
)

// List constructs List<elem>.
func List(elem Typ) Typ { return Typ{Kind: KList, Elem: &elem} }

// Option constructs Option<elem> as a kind of its own (KOption); it is not
// represented as a 0/1-element tuple.
func Option(elem Typ) Typ { return Typ{Kind: KOption, Elem: &elem} }

// Tuple constructs Tuple<elems...>.
func Tuple(elems ...Typ) Typ { return Typ{Kind: KTuple, Elems: elems} }

// IsReturn reports whether t is the distinguished Return junction type,
// which unifies with anything (spec.md §4.C, §9 "Return as a type").
func (t Typ) IsReturn() bool { return t.Kind == KReturn }

// String renders a Typ in DSL surface syntax.
func (t Typ) String() string {
	switch t.Kind {
	case KList:
		return "List<" + t.Elem.String() + ">"
	case KOption:
		return "Option<" + t.Elem.String() + ">"
	case KTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return t.Kind.String()
	}
}

// Equal reports strict structural equality (no Return wildcarding).
func (t Typ) Equal(u Typ) bool {
	if t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case KList, KOption:
		return t.Elem.Equal(*u.Elem)
	case KTuple:
		if len(t.Elems) != len(u.Elems) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].Equal(u.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Unifies reports whether t and u are type-compatible per spec.md §4.C:
// Return unifies with anything; List/Option/Tuple unify structurally;
// everything else requires nominal equality.
func (t Typ) Unifies(u Typ) bool {
	if t.IsReturn() || u.IsReturn() {
		return true
	}
	if t.Kind != u.Kind {
		return false
	}
	switch t.Kind {
	case KList, KOption:
		return t.Elem.Unifies(*u.Elem)
	case KTuple:
		if len(t.Elems) != len(u.Elems) {
			return false
		}
		for i := range t.Elems {
			if !t.Elems[i].Unifies(u.Elems[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Pick computes a single representative type for two unifying branches,
// preferring the non-Return side (spec.md §4.C "pick/unify").
func Pick(t, u Typ) (Typ, bool) {
	if !t.Unifies(u) {
		return Typ{}, false
	}
	if t.IsReturn() {
		return u, true
	}
	return t, true
}

// Located pairs a Typ with an optional source location, used when reporting
// type-mismatch errors with both actual and expected lists (spec.md §7).
type Located struct {
	Typ Typ
	Loc *Loc
}

// Loc is a source location: optional file, 1-based line and column.
type Loc struct {
	File   string
	Line   int
	Column int
}

func (l Loc) String() string {
	if l.File != "" {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Signature is a function's argument and return types.
type Signature struct {
	Args []Typ
	Ret  Typ
}

func (s Signature) String() string {
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, ", ") + ") -> " + s.Ret.String()
}

// Equal reports whether two signatures declare the same arg/ret types.
func (s Signature) Equal(o Signature) bool {
	if len(s.Args) != len(o.Args) {
		return false
	}
	for i := range s.Args {
		if !s.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return s.Ret.Equal(o.Ret)
}

// TypeCheck implements spec.md §4.C's type_check(context, actual, expected):
// succeeds iff the lists have equal length and each pair unifies. On
// mismatch it returns the index of the first failing pair.
func TypeCheck(actual, expected []Typ) (ok bool, mismatchIndex int) {
	if len(actual) != len(expected) {
		return false, -1
	}
	for i := range actual {
		if !actual[i].Unifies(expected[i]) {
			return false, i
		}
	}
	return true, -1
}
