// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package corelang

// abs replaces free occurrences of variable name with BVar at nesting depth
// i, recursing through one more Closure level (i+1) whenever it descends
// into a Closure body (grounded on
// original_source/src/armour-lang/src/expressions.rs `Expr::abs`).
func abs(e Expr, i int, name string) Expr {
	switch n := e.(type) {
	case Var:
		if n.Name == name {
			return BVar{Name: n.Name, Index: i, Typ: n.Typ}
		}
		return n
	case BVar, Lit:
		return e
	case Return:
		return Return{Expr: abs(n.Expr, i, name), Typ: n.Typ}
	case Prefix:
		return Prefix{Op: n.Op, Expr: abs(n.Expr, i, name), Typ: n.Typ}
	case Infix:
		return Infix{Op: n.Op, Left: abs(n.Left, i, name), Right: abs(n.Right, i, name), Typ: n.Typ}
	case Block:
		out := make([]Expr, len(n.Elems))
		for j, el := range n.Elems {
			out[j] = abs(el, i, name)
		}
		return Block{Kind: n.Kind, Elems: out, Typ: n.Typ}
	case Let:
		return Let{Names: n.Names, E1: abs(n.E1, i, name), E2: abs(n.E2, i, name), Typ: n.Typ}
	case Iter:
		var acc Expr
		if n.Acc != nil {
			acc = abs(n.Acc, i, name)
		}
		return Iter{Op: n.Op, Names: n.Names, E1: abs(n.E1, i, name), Body: abs(n.Body, i, name), Acc: acc, Typ: n.Typ}
	case Closure:
		return Closure{Param: n.Param, Body: abs(n.Body, i+1, name)}
	case If:
		var alt Expr
		if n.Alt != nil {
			alt = abs(n.Alt, i, name)
		}
		return If{Cond: abs(n.Cond, i, name), Then: abs(n.Then, i, name), Alt: alt, Typ: n.Typ}
	case IfMatch:
		arms := make([]IfMatchArm, len(n.Arms))
		for j, a := range n.Arms {
			arms[j] = IfMatchArm{Scrutinee: abs(a.Scrutinee, i, name), Pattern: a.Pattern, Compiled: a.Compiled}
		}
		var alt Expr
		if n.Alt != nil {
			alt = abs(n.Alt, i, name)
		}
		return IfMatch{Names: n.Names, Arms: arms, Then: abs(n.Then, i, name), Alt: alt, Typ: n.Typ}
	case IfSomeMatch:
		var alt Expr
		if n.Alt != nil {
			alt = abs(n.Alt, i, name)
		}
		return IfSomeMatch{Expr: abs(n.Expr, i, name), Then: abs(n.Then, i, name), Alt: alt, Typ: n.Typ}
	case Call:
		out := make([]Expr, len(n.Args))
		for j, a := range n.Args {
			out[j] = abs(a, i, name)
		}
		return Call{Function: n.Function, Args: out, IsAsync: n.IsAsync, Typ: n.Typ}
	default:
		return e
	}
}

// abstractParam wraps body in a Closure binding param, abs-ing every free
// occurrence of param's name at depth 0 first.
func abstractParam(body Expr, param string) Expr {
	return Closure{Param: param, Body: abs(body, 0, param)}
}

// shift increments every BVar index >= d by amount (grounded on `Expr::shift`
// in the original implementation); used by subst when substituting a term
// under additional binders than the one it was captured at.
func shift(e Expr, amount, d int) Expr {
	if amount == 0 {
		return e
	}
	switch n := e.(type) {
	case Var, Lit:
		return e
	case BVar:
		if n.Index >= d {
			return BVar{Name: n.Name, Index: n.Index + amount, Typ: n.Typ}
		}
		return n
	case Return:
		return Return{Expr: shift(n.Expr, amount, d), Typ: n.Typ}
	case Prefix:
		return Prefix{Op: n.Op, Expr: shift(n.Expr, amount, d), Typ: n.Typ}
	case Infix:
		return Infix{Op: n.Op, Left: shift(n.Left, amount, d), Right: shift(n.Right, amount, d), Typ: n.Typ}
	case Block:
		out := make([]Expr, len(n.Elems))
		for j, el := range n.Elems {
			out[j] = shift(el, amount, d)
		}
		return Block{Kind: n.Kind, Elems: out, Typ: n.Typ}
	case Let:
		return Let{Names: n.Names, E1: shift(n.E1, amount, d), E2: shift(n.E2, amount, d), Typ: n.Typ}
	case Iter:
		var acc Expr
		if n.Acc != nil {
			acc = shift(n.Acc, amount, d)
		}
		return Iter{Op: n.Op, Names: n.Names, E1: shift(n.E1, amount, d), Body: shift(n.Body, amount, d), Acc: acc, Typ: n.Typ}
	case Closure:
		return Closure{Param: n.Param, Body: shift(n.Body, amount, d+1)}
	case If:
		var alt Expr
		if n.Alt != nil {
			alt = shift(n.Alt, amount, d)
		}
		return If{Cond: shift(n.Cond, amount, d), Then: shift(n.Then, amount, d), Alt: alt, Typ: n.Typ}
	case IfMatch:
		arms := make([]IfMatchArm, len(n.Arms))
		for j, a := range n.Arms {
			arms[j] = IfMatchArm{Scrutinee: shift(a.Scrutinee, amount, d), Pattern: a.Pattern, Compiled: a.Compiled}
		}
		var alt Expr
		if n.Alt != nil {
			alt = shift(n.Alt, amount, d)
		}
		return IfMatch{Names: n.Names, Arms: arms, Then: shift(n.Then, amount, d), Alt: alt, Typ: n.Typ}
	case IfSomeMatch:
		var alt Expr
		if n.Alt != nil {
			alt = shift(n.Alt, amount, d)
		}
		return IfSomeMatch{Expr: shift(n.Expr, amount, d), Then: shift(n.Then, amount, d), Alt: alt, Typ: n.Typ}
	case Call:
		out := make([]Expr, len(n.Args))
		for j, a := range n.Args {
			out[j] = shift(a, amount, d)
		}
		return Call{Function: n.Function, Args: out, IsAsync: n.IsAsync, Typ: n.Typ}
	default:
		return e
	}
}

// Subst replaces BVar i with u throughout e, shifting u and decrementing
// deeper indices as it crosses binders (grounded on `Expr::subst`). This is
// the operation both Call-application in eval and inlining in specialize
// perform to beta-reduce a Closure.
func Subst(e Expr, i int, u Expr) Expr {
	switch n := e.(type) {
	case Var, Lit:
		return e
	case BVar:
		switch {
		case n.Index < i:
			return n
		case n.Index == i:
			return shift(u, i, 0)
		default:
			return BVar{Name: n.Name, Index: n.Index - 1, Typ: n.Typ}
		}
	case Return:
		return Return{Expr: Subst(n.Expr, i, u), Typ: n.Typ}
	case Prefix:
		return Prefix{Op: n.Op, Expr: Subst(n.Expr, i, u), Typ: n.Typ}
	case Infix:
		return Infix{Op: n.Op, Left: Subst(n.Left, i, u), Right: Subst(n.Right, i, u), Typ: n.Typ}
	case Block:
		out := make([]Expr, len(n.Elems))
		for j, el := range n.Elems {
			out[j] = Subst(el, i, u)
		}
		return Block{Kind: n.Kind, Elems: out, Typ: n.Typ}
	case Let:
		return Let{Names: n.Names, E1: Subst(n.E1, i, u), E2: Subst(n.E2, i, u), Typ: n.Typ}
	case Iter:
		var acc Expr
		if n.Acc != nil {
			acc = Subst(n.Acc, i, u)
		}
		return Iter{Op: n.Op, Names: n.Names, E1: Subst(n.E1, i, u), Body: Subst(n.Body, i, u), Acc: acc, Typ: n.Typ}
	case Closure:
		return Closure{Param: n.Param, Body: Subst(n.Body, i+1, u)}
	case If:
		var alt Expr
		if n.Alt != nil {
			alt = Subst(n.Alt, i, u)
		}
		return If{Cond: Subst(n.Cond, i, u), Then: Subst(n.Then, i, u), Alt: alt, Typ: n.Typ}
	case IfMatch:
		arms := make([]IfMatchArm, len(n.Arms))
		for j, a := range n.Arms {
			arms[j] = IfMatchArm{Scrutinee: Subst(a.Scrutinee, i, u), Pattern: a.Pattern, Compiled: a.Compiled}
		}
		var alt Expr
		if n.Alt != nil {
			alt = Subst(n.Alt, i, u)
		}
		return IfMatch{Names: n.Names, Arms: arms, Then: Subst(n.Then, i, u), Alt: alt, Typ: n.Typ}
	case IfSomeMatch:
		var alt Expr
		if n.Alt != nil {
			alt = Subst(n.Alt, i, u)
		}
		return IfSomeMatch{Expr: Subst(n.Expr, i, u), Then: Subst(n.Then, i, u), Alt: alt, Typ: n.Typ}
	case Call:
		out := make([]Expr, len(n.Args))
		for j, a := range n.Args {
			out[j] = Subst(a, i, u)
		}
		return Call{Function: n.Function, Args: out, IsAsync: n.IsAsync, Typ: n.Typ}
	default:
		return e
	}
}

// Apply beta-reduces a Closure applied to argument u, substituting u for
// BVar 0 in the body (grounded on `Expr::apply`).
func Apply(c Closure, u Expr) Expr {
	return Subst(c.Body, 0, u)
}
