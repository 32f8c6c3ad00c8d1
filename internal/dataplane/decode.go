// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package dataplane

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/literals"
	"github.com/holomush/armour/internal/policy/types"
)

// decodeArgs decodes a JSON array into literals.Literal values matching
// fn's declared parameter types, in order. Mirrors cmd/armour's
// --args-json decoder for the CLI's eval subcommand.
func decodeArgs(fn *corelang.FnDef, raw []json.RawMessage) ([]literals.Literal, error) {
	if len(raw) != len(fn.Params) {
		return nil, fmt.Errorf("function %s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(raw))
	}

	out := make([]literals.Literal, len(raw))
	for i, p := range fn.Params {
		t, err := corelang.ResolveType(p.Typ)
		if err != nil {
			return nil, err
		}
		lit, err := decodeLiteral(t, raw[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, p.Name, err)
		}
		out[i] = lit
	}
	return out, nil
}

func decodeLiteral(t types.Typ, raw json.RawMessage) (literals.Literal, error) {
	switch t.Kind {
	case types.KBool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return literals.Bool(v), nil
	case types.KI64:
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return literals.I64(v), nil
	case types.KF64:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return literals.F64(v), nil
	case types.KStr:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return literals.Str(v), nil
	case types.KData:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		b, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("Data argument must be hex-encoded: %w", err)
		}
		return literals.Data(b), nil
	case types.KUnit:
		return literals.UnitVal, nil
	default:
		return nil, fmt.Errorf("unsupported argument type %s over the wire", t)
	}
}
