// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package corelang is the locally-nameless core the evaluator and
// specializer operate on (spec.md §4.E). Lowering from internal/policy/ast
// replaces each closure-bound variable occurrence with a De Bruijn index
// (BVar) so substitution during evaluation/specialization never needs
// alpha-renaming.
package corelang

import (
	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/literals"
	"github.com/holomush/armour/internal/policy/types"
)

// BlockKind distinguishes the three uses of a BlockExpr (spec.md §4.E).
type BlockKind int

const (
	BlockList BlockKind = iota
	BlockTuple
	BlockSeq
)

// Expr is a core-language term. Unlike the surface ast.Expr, variable
// binders inside Closure are anonymous: a bound occurrence is a BVar
// counting outward through enclosing Closures, not a name.
type Expr interface {
	Type() types.Typ
	exprNode()
}

// Var is a free (unbound) variable occurrence — only ever appears transiently
// during lowering/abs; a fully-lowered core term has no free Vars except
// top-level function parameters, which are immediately abs'd into BVars.
type Var struct {
	Name string
	Typ  types.Typ
}

// BVar is a bound variable: Index counts Closures enclosing this occurrence,
// 0 being the nearest.
type BVar struct {
	Name  string
	Index int
	Typ   types.Typ
}

// Lit wraps a runtime value as a term.
type Lit struct {
	Value literals.Literal
}

// Return marks an early-exit sub-expression (spec.md §4.E "return").
type Return struct {
	Expr Expr
	Typ  types.Typ
}

// Prefix is a unary operator application ("-" or "!").
type Prefix struct {
	Op   string
	Expr Expr
	Typ  types.Typ
}

// Infix is a binary operator application.
type Infix struct {
	Op          string
	Left, Right Expr
	Typ         types.Typ
}

// Block groups a List/Tuple construction or a sequenced Block of statements.
type Block struct {
	Kind  BlockKind
	Elems []Expr
	Typ   types.Typ
}

// Let binds E1's value (destructured into Names, len>1 meaning tuple
// destructuring) as BVar 0 within E2.
type Let struct {
	Names []string
	E1    Expr
	E2    Expr
	Typ   types.Typ
}

// Iter runs Op (all/any/filter/filter_map/map/foreach/fold) over E1,
// binding Names (len>1 for tuple element destructuring) as BVar 0..n-1
// within the per-element Body closure, with an optional Acc seed for fold.
type Iter struct {
	Op    ast.IterOp
	Names []string
	E1    Expr
	Body  Expr
	Acc   Expr // nil when Op has no accumulator
	Typ   types.Typ
}

// Closure introduces one De Bruijn binding level around Body.
type Closure struct {
	Param string
	Body  Expr
}

// If is a conditional; Alt is nil for a bodyless else.
type If struct {
	Cond Expr
	Then Expr
	Alt  Expr
	Typ  types.Typ
}

// IfMatchArm pairs a scrutinee with the pattern it's tested against. Regex
// patterns are precompiled during lowering (spec.md §4.F "Regex is
// precompiled at parse time"); Compiled is nil for label patterns.
type IfMatchArm struct {
	Scrutinee Expr
	Pattern   *ast.Pattern
	Compiled  *literals.CompiledPattern
}

// IfMatch is `if e1 matches p1 [and e2 matches p2 ...] { then } [else { alt }]`.
// Names are every capture bound across all arms, available as BVar 0..n-1
// within Then (spec.md §4.E "IfMatchExpr").
type IfMatch struct {
	Names []string
	Arms  []IfMatchArm
	Then  Expr
	Alt   Expr
	Typ   types.Typ
}

// IfSomeMatch is `if let Some(x) = e { then } [else { alt }]`: x is bound as
// BVar 0 within Then.
type IfSomeMatch struct {
	Expr Expr
	Then Expr
	Alt  Expr
	Typ  types.Typ
}

// Call is a function/builtin invocation. IsAsync marks a fire-and-forget
// external call whose result is discarded (spec.md §4.E "is_async tagging").
type Call struct {
	Function string
	Args     []Expr
	IsAsync  bool
	Typ      types.Typ
}

func (Var) exprNode()         {}
func (BVar) exprNode()        {}
func (Lit) exprNode()         {}
func (Return) exprNode()      {}
func (Prefix) exprNode()      {}
func (Infix) exprNode()       {}
func (Block) exprNode()       {}
func (Let) exprNode()         {}
func (Iter) exprNode()        {}
func (Closure) exprNode()     {}
func (If) exprNode()          {}
func (IfMatch) exprNode()     {}
func (IfSomeMatch) exprNode() {}
func (Call) exprNode()        {}

func (v Var) Type() types.Typ         { return v.Typ }
func (v BVar) Type() types.Typ        { return v.Typ }
func (l Lit) Type() types.Typ         { return l.Value.Type() }
func (r Return) Type() types.Typ      { return r.Typ }
func (p Prefix) Type() types.Typ      { return p.Typ }
func (i Infix) Type() types.Typ       { return i.Typ }
func (b Block) Type() types.Typ       { return b.Typ }
func (l Let) Type() types.Typ         { return l.Typ }
func (i Iter) Type() types.Typ        { return i.Typ }
func (c Closure) Type() types.Typ     { return c.Body.Type() }
func (i If) Type() types.Typ          { return i.Typ }
func (m IfMatch) Type() types.Typ     { return m.Typ }
func (m IfSomeMatch) Type() types.Typ { return m.Typ }
func (c Call) Type() types.Typ        { return c.Typ }

// FnDef is a lowered top-level function: Body has one Closure level per
// parameter, outermost first, so Body's innermost BVar 0 refers to the last
// parameter.
type FnDef struct {
	Name   string
	Params []ast.Param
	Ret    types.Typ
	Body   Expr
	// Calls records every named function/builtin this body invokes, used
	// for call-graph construction (cycle detection, dead-code elimination
	// per spec.md §4.E/§4.H).
	Calls map[string]bool
}
