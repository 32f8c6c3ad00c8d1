// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/eval"
	"github.com/holomush/armour/internal/policy/literals"
	"github.com/holomush/armour/internal/policy/types"
)

func newEvalCmd() *cobra.Command {
	var function string
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "eval <policy-file>",
		Short: "Evaluate a function in a policy file against JSON-encoded arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			lp, err := loadPolicy(path)
			if err != nil {
				return err
			}

			fn, ok := lp.Funcs[function]
			if !ok {
				return fmt.Errorf("no such function %q in %s", function, path)
			}

			argVals, err := decodeArgs(fn, argsJSON)
			if err != nil {
				return fmt.Errorf("decoding --args-json: %w", err)
			}

			env := &eval.Env{Funcs: lp.Funcs, External: noExternal{}}
			result, err := eval.CallFunction(context.Background(), env, function, argVals)
			if err != nil {
				return fmt.Errorf("evaluation error: %w", err)
			}

			cmd.Println(result.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&function, "function", "", "function name to evaluate (required)")
	cmd.Flags().StringVar(&argsJSON, "args-json", "[]", "JSON array of argument values, in declaration order")
	cmd.MarkFlagRequired("function")

	return cmd
}

// decodeArgs decodes a JSON array into literals.Literal values matching
// fn's declared parameter types, in order.
func decodeArgs(fn *corelang.FnDef, argsJSON string) ([]literals.Literal, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(argsJSON), &raw); err != nil {
		return nil, err
	}
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
		return nil, fmt.Errorf("unsupported argument type %s on the command line; only scalar types can be passed via --args-json", t)
	}
}

// noExternal rejects every external call. The CLI's eval/specialize
// subcommands operate on pure policy functions; calls into mesh identity,
// DNS, or RPC collaborators are only available from the running sidecar
// (see serve.go's External chain).
type noExternal struct{}

func (noExternal) Call(_ context.Context, qualifiedName string, _ []literals.Literal) (literals.Literal, error) {
	return nil, fmt.Errorf("external call to %q unavailable outside the running sidecar", qualifiedName)
}
