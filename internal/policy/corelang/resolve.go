// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package corelang

import (
	"fmt"

	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/types"
)

// simpleTypeNames maps every non-parameterized surface type name to its
// types.Typ (spec.md §4.C).
var simpleTypeNames = map[string]types.Typ{
	"Bool":         types.Bool,
	"I64":          types.I64,
	"F64":          types.F64,
	"Str":          types.Str,
	"Data":         types.Data,
	"Unit":         types.Unit,
	"Regex":        types.Regex,
	"HttpRequest":  types.HTTPRequest,
	"HttpResponse": types.HTTPResponse,
	"ID":           types.ID,
	"Connection":   types.Connection,
	"IpAddr":       types.IPAddr,
	"Label":        types.Label,
}

// ResolveType converts a surface TypeExpr into a types.Typ.
func ResolveType(te ast.TypeExpr) (types.Typ, error) {
	switch te.Name {
	case "Tuple":
		elems := make([]types.Typ, len(te.Args))
		for i, a := range te.Args {
			t, err := ResolveType(a)
			if err != nil {
				return types.Typ{}, err
			}
			elems[i] = t
		}
		return types.Tuple(elems...), nil
	case "List":
		if len(te.Args) != 1 {
			return types.Typ{}, fmt.Errorf("List requires exactly one type argument at %s", te.Loc)
		}
		elem, err := ResolveType(te.Args[0])
		if err != nil {
			return types.Typ{}, err
		}
		return types.List(elem), nil
	case "Option":
		if len(te.Args) != 1 {
			return types.Typ{}, fmt.Errorf("Option requires exactly one type argument at %s", te.Loc)
		}
		elem, err := ResolveType(te.Args[0])
		if err != nil {
			return types.Typ{}, err
		}
		return types.Option(elem), nil
	default:
		if t, ok := simpleTypeNames[te.Name]; ok {
			return t, nil
		}
		return types.Typ{}, fmt.Errorf("unknown type %q at %s", te.Name, te.Loc)
	}
}
