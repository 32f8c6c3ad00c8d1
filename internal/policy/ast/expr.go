// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package ast defines the surface syntax of the policy DSL (spec.md §3,
// §4.B): located expressions, statements, patterns, and declarations, plus
// the Pratt-precedence parser that produces them from a token stream.
package ast

import "github.com/holomush/armour/internal/policy/types"

// LocExpr pairs an Expr with the source location it started at
// (spec.md §3 "LocExpr = (Loc, Expr)").
type LocExpr struct {
	Loc  types.Loc
	Expr Expr
}

// Expr is any surface expression node.
type Expr interface{ exprNode() }

// Ident is a bare variable reference.
type Ident struct{ Name string }

// IntLit, FloatLit, BoolLit, StringLit, ByteStringLit, and LabelLit are the
// surface literal forms (spec.md §3).
type (
	IntLit        struct{ Value int64 }
	FloatLit      struct{ Value float64 }
	BoolLit       struct{ Value bool }
	StringLit     struct{ Value string }
	ByteStringLit struct{ Value []byte }
	LabelLit      struct{ Value string }
)

// ListExpr is a literal list `[e1, e2, ...]`.
type ListExpr struct{ Elems []LocExpr }

// TupleExpr is a literal tuple `(e1, e2, ...)`.
type TupleExpr struct{ Elems []LocExpr }

// PrefixExpr is `-e` or `!e`.
type PrefixExpr struct {
	Op string
	E  LocExpr
}

// InfixExpr is any binary operator application, including `.` (member),
// `::` (module-qualified call target before rewriting), `in`, and the
// arithmetic/comparison/boolean/string family.
type InfixExpr struct {
	Op          string
	Left, Right LocExpr
}

// IfExpr is `if cond { then } [else { else }]`.
type IfExpr struct {
	Cond LocExpr
	Then Block
	Else *Block
}

// IfMatchExpr is `if e matches pat [and e2 matches pat2 ...] { then } [else { else }]`.
// Multiple scrutinee/pattern pairs are ANDed together (spec.md §4.E: "if
// *any* scrutinee yields a non-match, take the else branch").
type IfMatchExpr struct {
	Scrutinees []MatchArm
	Then       Block
	Else       *Block
}

// MatchArm pairs a scrutinee expression with the pattern it is matched
// against.
type MatchArm struct {
	Scrutinee LocExpr
	Pattern   *Pattern
}

// IfLetSomeExpr is `if let Some(x) = e { then } [else { else }]`.
type IfLetSomeExpr struct {
	Var  string
	E    LocExpr
	Then Block
	Else *Block
}

// IterOp identifies which of the seven iteration forms an IterExpr uses.
type IterOp int

// IterOp constants, one per surface keyword.
const (
	IterAll IterOp = iota
	IterAny
	IterFilter
	IterFilterMap
	IterMap
	IterForeach
	IterFold
)

func (op IterOp) String() string {
	switch op {
	case IterAll:
		return "all"
	case IterAny:
		return "any"
	case IterFilter:
		return "filter"
	case IterFilterMap:
		return "filter_map"
	case IterMap:
		return "map"
	case IterForeach:
		return "foreach"
	case IterFold:
		return "fold"
	default:
		return "iter"
	}
}

// IterExpr is `op idents in e { body } [where acc = e0]`.
type IterExpr struct {
	Op     IterOp
	Idents []string
	List   LocExpr
	Body   Block
	Acc    *AccClause // non-nil only for IterFold
}

// AccClause is the `where acc = e0` trailer on a fold expression.
type AccClause struct {
	Name string
	Init LocExpr
}

// CallExpr is a function call after dot-chain and tuple-index rewriting
// (spec.md §4.B: `x.m(args)` -> `.::m(x, args)` -> `m` resolved against the
// static type of arg 0; `x.0` -> `0(x)`).
type CallExpr struct {
	Name string
	Args []LocExpr
}

func (Ident) exprNode()         {}
func (IntLit) exprNode()        {}
func (FloatLit) exprNode()      {}
func (BoolLit) exprNode()       {}
func (StringLit) exprNode()     {}
func (ByteStringLit) exprNode() {}
func (LabelLit) exprNode()      {}
func (ListExpr) exprNode()      {}
func (TupleExpr) exprNode()     {}
func (PrefixExpr) exprNode()    {}
func (InfixExpr) exprNode()     {}
func (IfExpr) exprNode()        {}
func (IfMatchExpr) exprNode()   {}
func (IfLetSomeExpr) exprNode() {}
func (IterExpr) exprNode()      {}
func (CallExpr) exprNode()      {}

// Stmt is any surface statement node.
type Stmt interface{ stmtNode() }

// LetStmt is `let pat = e;` where pat is one identifier, or
// `let (x, y, _) = e;` destructuring a tuple.
type LetStmt struct {
	Names []string // "_" marks a discarded component
	E     LocExpr
}

// ReturnStmt is `return e`.
type ReturnStmt struct{ E LocExpr }

// ExprStmt is an expression used as a statement, with its optional `async`
// modifier and optional trailing semicolon (spec.md §3).
type ExprStmt struct {
	E     LocExpr
	Async bool
	Semi  bool
}

func (LetStmt) stmtNode()    {}
func (ReturnStmt) stmtNode() {}
func (ExprStmt) stmtNode()   {}

// Block is a brace-delimited sequence of statements; if the final statement
// is a semicolon-less ExprStmt, its value is the block's value.
type Block struct {
	Stmts []Stmt
	Loc   types.Loc
}

// TypeExpr is the surface syntax for a type annotation.
type TypeExpr struct {
	Name  string // "Bool", "I64", "List", "Tuple", "Option", ...
	Args  []TypeExpr
	Loc   types.Loc
}
