// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package main

import (
	"fmt"
	"os"

	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/headers"
	"github.com/holomush/armour/internal/policy/types"
)

// loadedPolicy is the result of running a policy source file through the
// full front end: parse, header collection, and type-directed lowering.
type loadedPolicy struct {
	Policy    *ast.Policy
	Funcs     map[string]*corelang.FnDef
	Headers   *headers.Table
	Externals map[string]types.Typ
}

// loadPolicy reads, parses, builds the header table, and type-directed
// lowers the policy source at path. Lex+parse happens inside ast.Parse;
// typechecking happens as a byproduct of corelang.LowerPolicy assigning a
// types.Typ to every expression it lowers.
func loadPolicy(path string) (*loadedPolicy, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	policy, err := ast.Parse(path, string(src))
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	table, externals, err := corelang.BuildHeaders(policy)
	if err != nil {
		return nil, fmt.Errorf("header error: %w", err)
	}

	funcs, err := corelang.LowerPolicy(policy)
	if err != nil {
		return nil, fmt.Errorf("typecheck error: %w", err)
	}

	return &loadedPolicy{Policy: policy, Funcs: funcs, Headers: table, Externals: externals}, nil
}
