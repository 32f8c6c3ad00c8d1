// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package rpcclient

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/holomush/armour/internal/policy/literals"
)

// toProtoValue converts a literal argument into a *structpb.Value, the
// generic "any JSON-shaped value" protobuf message already compiled into
// this module (no service-specific .proto/generated code required).
func toProtoValue(l literals.Literal) (*structpb.Value, error) {
	switch v := l.(type) {
	case literals.Bool:
		return structpb.NewBoolValue(bool(v)), nil
	case literals.I64:
		return structpb.NewNumberValue(float64(v)), nil
	case literals.F64:
		return structpb.NewNumberValue(float64(v)), nil
	case literals.Str:
		return structpb.NewStringValue(string(v)), nil
	case literals.Data:
		return structpb.NewStringValue(string(v)), nil
	case literals.UnitT:
		return structpb.NewNullValue(), nil
	case literals.List:
		items := make([]interface{}, 0, len(v.Items))
		for _, it := range v.Items {
			pv, err := toProtoValue(it)
			if err != nil {
				return nil, err
			}
			items = append(items, pv.AsInterface())
		}
		lv, err := structpb.NewList(items)
		if err != nil {
			return nil, fmt.Errorf("rpcclient: encoding list: %w", err)
		}
		return structpb.NewListValue(lv), nil
	default:
		return nil, fmt.Errorf("rpcclient: %T has no wire representation", l)
	}
}

// fromProtoValue decodes a *structpb.Value response into a literal. structpb
// erases the Int64/Float64 and byte-string distinctions its Go counterparts
// carry, so every number decodes as F64 and every string as Str. Nothing on
// the way back converts them to the declared return type: internal/policy/eval
// passes an External result on unchanged, so a service declared to return I64
// or Data yields an F64 or Str.
func fromProtoValue(v *structpb.Value) (literals.Literal, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return literals.UnitVal, nil
	case *structpb.Value_BoolValue:
		return literals.Bool(k.BoolValue), nil
	case *structpb.Value_NumberValue:
		return literals.F64(k.NumberValue), nil
	case *structpb.Value_StringValue:
		return literals.Str(k.StringValue), nil
	case *structpb.Value_ListValue:
		items := make([]literals.Literal, 0, len(k.ListValue.GetValues()))
		elem := literals.Str("").Type()
		for i, pv := range k.ListValue.GetValues() {
			it, err := fromProtoValue(pv)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				elem = it.Type()
			}
			items = append(items, it)
		}
		return literals.List{Elem: elem, Items: items}, nil
	default:
		return nil, fmt.Errorf("rpcclient: unsupported response value kind %T", k)
	}
}
