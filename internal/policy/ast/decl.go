// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package ast

import "github.com/holomush/armour/internal/policy/types"

// Param is one `name: Type` function parameter.
type Param struct {
	Name string
	Typ  TypeExpr
}

// FnDecl is `fn name(params) -> ret { body }` (spec.md §3, §4.D).
type FnDecl struct {
	Name   string
	Params []Param
	Ret    *TypeExpr // nil means inferred Unit
	Body   Block
	Loc    types.Loc
}

// ExternalHead is one `fn h(tys_or_underscore) [-> T]` header inside an
// `external` block: a name plus argument types (nil Types means the
// underscore wildcard `_`, matching any argument list) and an optional
// return type (spec.md §4.B).
type ExternalHead struct {
	Name  string
	Types []TypeExpr // nil when declared as `_`
	Ret   *TypeExpr
	Loc   types.Loc
}

// ExternalDecl is `external Name @ "url" { fn h(tys_or_underscore) [-> T] ... }`
// (spec.md §4.B): a named collaborator reached by URL, exposing one or more
// call headers with no bodies, dispatched at call time to the RPC or
// metadata-actor collaborator per §4.G's call dispatch rules.
type ExternalDecl struct {
	Name    string
	URL     string
	Headers []ExternalHead
	Loc     types.Loc
}

// Decl is any top-level declaration.
type Decl interface{ declNode() }

func (FnDecl) declNode()       {}
func (ExternalDecl) declNode() {}

// Policy is a parsed source file: an ordered sequence of top-level
// declarations (spec.md §3 "Policy = Vec<Decl>").
type Policy struct {
	Decls []Decl
}
