// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package literals

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/holomush/armour/internal/policy/types"
)

// List is a homogeneous runtime list value.
type List struct {
	Elem  types.Typ
	Items []Literal
}

func (List) litNode()        {}
func (l List) Type() types.Typ { return types.List(l.Elem) }
func (l List) String() string {
	parts := make([]string, len(l.Items))
	for i, it := range l.Items {
		parts[i] = it.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Tuple is a fixed-arity heterogeneous runtime value.
type Tuple struct {
	Items []Literal
}

func (Tuple) litNode() {}
func (t Tuple) Type() types.Typ {
	elems := make([]types.Typ, len(t.Items))
	for i, it := range t.Items {
		elems[i] = it.Type()
	}
	return types.Tuple(elems...)
}
func (t Tuple) String() string {
	parts := make([]string, len(t.Items))
	for i, it := range t.Items {
		parts[i] = it.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ProjectTuple implements tuple-index projection (`x.0` lowers to a Call
// named "0"): if name parses as a non-negative integer and args is a single
// Tuple with a matching element, it returns that element's value. ok is
// false for any other call shape, letting the caller fall through to its
// normal function/builtin/external dispatch.
func ProjectTuple(name string, args []Literal) (value Literal, ok bool, err error) {
	if len(args) != 1 {
		return nil, false, nil
	}
	idx, convErr := strconv.Atoi(name)
	if convErr != nil || idx < 0 {
		return nil, false, nil
	}
	t, isTuple := args[0].(Tuple)
	if !isTuple {
		return nil, false, nil
	}
	if idx >= len(t.Items) {
		return nil, true, fmt.Errorf("tuple index %d out of range for tuple of length %d", idx, len(t.Items))
	}
	return t.Items[idx], true, nil
}

// Option is Tuple<[x]>/Tuple<[]> encoded as a dedicated runtime type
// (spec.md §4.F "option construction is Tuple<[x]>, none is Tuple<[]>"):
// Elem carries the element type even when Value is nil (None) so an empty
// option still type-checks against its declared Option<T>.
type Option struct {
	Elem  types.Typ
	Value Literal // nil means None
}

func (Option) litNode()          {}
func (o Option) Type() types.Typ { return types.Option(o.Elem) }
func (o Option) String() string {
	if o.Value == nil {
		return "None"
	}
	return "Some(" + o.Value.String() + ")"
}

// Some builds a present Option value.
func Some(v Literal) Option { return Option{Elem: v.Type(), Value: v} }

// None builds an absent Option value of the given element type.
func None(elem types.Typ) Option { return Option{Elem: elem} }

// IsSome reports whether o carries a value.
func (o Option) IsSome() bool { return o.Value != nil }
