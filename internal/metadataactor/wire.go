// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package metadataactor implements the "Metadata call" collaborator
// (spec.md §6): `(Ingress|Egress, method, args) -> Literal`, served by an
// out-of-process plugin binary rather than the evaluator process itself.
//
// internal/plugin/goplugin hosts binary plugins over go-plugin's gRPC
// transport, dispensing a protoc-generated pluginv1.PluginClient stub from
// internal/proto/holomush/plugin/v1. That generated package does not exist
// in this tree (only its _test.go files reference it), so it cannot be
// adapted by a straight rename pass. This package instead uses go-plugin's
// net/rpc transport: a plugin.Plugin whose Server/Client sides exchange a
// small hand-written Value envelope over net/rpc, which needs no protoc
// step at all. The host lifecycle (launch, handshake, dispense, kill) is
// still grounded on internal/plugin/goplugin/host.go.
package metadataactor

import (
	"fmt"

	"github.com/holomush/armour/internal/policy/literals"
	"github.com/holomush/armour/internal/policy/types"
)

// Value is the net/rpc wire representation of a literals.Literal. gob (used
// by net/rpc) cannot encode an unregistered interface value, so calls cross
// the plugin boundary as Value rather than literals.Literal directly.
//
// Metadata calls carry request/response metadata (headers, host names,
// counts, flags) rather than the full literal algebra, so Value covers the
// scalar kinds plus homogeneous lists of them; IPAddr, Regex, Label and
// nested Option/Tuple are out of scope for this collaborator and return an
// error if encountered, rather than being silently coerced.
type Value struct {
	Kind string // "unit" | "bool" | "i64" | "f64" | "str" | "data" | "list"
	B    bool
	I    int64
	F    float64
	S    string
	D    []byte
	List []Value
	Elem string // element Kind, for an empty list
}

// toValue converts a literal argument into its wire form.
func toValue(l literals.Literal) (Value, error) {
	switch v := l.(type) {
	case literals.UnitT:
		return Value{Kind: "unit"}, nil
	case literals.Bool:
		return Value{Kind: "bool", B: bool(v)}, nil
	case literals.I64:
		return Value{Kind: "i64", I: int64(v)}, nil
	case literals.F64:
		return Value{Kind: "f64", F: float64(v)}, nil
	case literals.Str:
		return Value{Kind: "str", S: string(v)}, nil
	case literals.Data:
		return Value{Kind: "data", D: append([]byte(nil), v...)}, nil
	case literals.List:
		elemKind, err := kindOf(v.Elem)
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, len(v.Items))
		for _, it := range v.Items {
			wv, err := toValue(it)
			if err != nil {
				return Value{}, err
			}
			items = append(items, wv)
		}
		return Value{Kind: "list", Elem: elemKind, List: items}, nil
	default:
		return Value{}, fmt.Errorf("metadataactor: %T has no wire representation", l)
	}
}

// fromValue converts a wire value back into a literal.
func fromValue(v Value) (literals.Literal, error) {
	switch v.Kind {
	case "unit":
		return literals.UnitVal, nil
	case "bool":
		return literals.Bool(v.B), nil
	case "i64":
		return literals.I64(v.I), nil
	case "f64":
		return literals.F64(v.F), nil
	case "str":
		return literals.Str(v.S), nil
	case "data":
		return literals.Data(append([]byte(nil), v.D...)), nil
	case "list":
		elemTyp, err := typOf(v.Elem)
		if err != nil {
			return nil, err
		}
		items := make([]literals.Literal, 0, len(v.List))
		for _, wv := range v.List {
			it, err := fromValue(wv)
			if err != nil {
				return nil, err
			}
			items = append(items, it)
		}
		return literals.List{Elem: elemTyp, Items: items}, nil
	default:
		return nil, fmt.Errorf("metadataactor: unknown wire kind %q", v.Kind)
	}
}

func kindOf(t types.Typ) (string, error) {
	switch t.Kind {
	case types.KUnit:
		return "unit", nil
	case types.KBool:
		return "bool", nil
	case types.KI64:
		return "i64", nil
	case types.KF64:
		return "f64", nil
	case types.KStr:
		return "str", nil
	case types.KData:
		return "data", nil
	default:
		return "", fmt.Errorf("metadataactor: type %v has no wire representation", t)
	}
}

func typOf(kind string) (types.Typ, error) {
	switch kind {
	case "unit":
		return types.Unit, nil
	case "bool":
		return types.Bool, nil
	case "i64":
		return types.I64, nil
	case "f64":
		return types.F64, nil
	case "str":
		return types.Str, nil
	case "data":
		return types.Data, nil
	default:
		return types.Typ{}, fmt.Errorf("metadataactor: unknown element kind %q", kind)
	}
}
