// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package specialize implements partial evaluation of a lowered policy
// against symbolic data-plane arguments (spec.md §4.H): constant folding,
// ring simplifications (Bool Or/And, I64/F64 Plus/Multiply), syntactic
// equality collapse, branch elimination, safe inlining of known
// user-defined calls, and call-graph-reachability dead-code elimination.
// Every rewrite preserves the term's meaning for EVERY possible value of
// its still-symbolic (non-literal) sub-expressions; only an expression
// that was already known to be a constant for every remaining free
// variable is folded away.
package specialize

import (
	"context"
	"fmt"

	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/eval"
	"github.com/holomush/armour/internal/policy/literals"
)

// Error is a specialization failure: a genuine runtime error exposed early
// (e.g. divide-by-zero on constant operands) rather than deferred to the
// data plane.
type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Funcs resolves a user function by name during inlining; normally
// corelang.LowerPolicy's output map.
type Funcs map[string]*corelang.FnDef

// PEval partially evaluates e, returning the simplified term and whether
// that term is now a closed constant (no remaining free/bound variables —
// "is_const" in the original implementation). A constant result's Expr is
// a Lit, or a Return wrapping a Lit when the term ends in `return`: the
// marker is kept here and removed only where pevalCall inlines a call.
func PEval(ctx context.Context, funcs Funcs, e corelang.Expr) (bool, corelang.Expr, error) {
	switch n := e.(type) {
	case corelang.Var, corelang.BVar:
		return false, e, nil
	case corelang.Lit:
		return true, e, nil

	case corelang.Closure:
		isConst, body, err := PEval(ctx, funcs, n.Body)
		if err != nil {
			return false, nil, err
		}
		if isConst && !isFree(body, 0) {
			// body no longer mentions its own parameter: the whole Closure
			// collapses to that constant.
			return true, body, nil
		}
		return false, corelang.Closure{Param: n.Param, Body: body}, nil

	case corelang.Return:
		isConst, inner, err := PEval(ctx, funcs, n.Expr)
		if err != nil {
			return false, nil, err
		}
		return isConst, corelang.Return{Expr: inner, Typ: n.Typ}, nil

	case corelang.Prefix:
		isConst, inner, err := PEval(ctx, funcs, n.Expr)
		if err != nil {
			return false, nil, err
		}
		if r, ok := inner.(corelang.Return); ok {
			return isConst, r, nil
		}
		if isConst {
			lit, ok := inner.(corelang.Lit)
			if !ok {
				return false, nil, errf("peval prefix: constant branch is not a literal")
			}
			v, err := eval.ApplyPrefix(n.Op, lit.Value)
			if err != nil {
				return false, nil, errf("peval prefix: %s", err)
			}
			return true, corelang.Lit{Value: v}, nil
		}
		return false, corelang.Prefix{Op: n.Op, Expr: inner, Typ: n.Typ}, nil

	case corelang.Infix:
		return pevalInfix(ctx, funcs, n)

	case corelang.Block:
		return pevalBlock(ctx, funcs, n)

	case corelang.Let:
		isConstE1, e1, err := PEval(ctx, funcs, n.E1)
		if err != nil {
			return false, nil, err
		}
		if r, ok := e1.(corelang.Return); ok {
			return isConstE1, r, nil
		}
		if isConstE1 {
			lit, ok := e1.(corelang.Lit)
			if ok {
				inlined := substNames(n.E2, n.Names, lit.Value)
				return PEval(ctx, funcs, inlined)
			}
		}
		_, e2, err := PEval(ctx, funcs, n.E2)
		if err != nil {
			return false, nil, err
		}
		return false, corelang.Let{Names: n.Names, E1: e1, E2: e2, Typ: n.Typ}, nil

	case corelang.If:
		return pevalIf(ctx, funcs, n)

	case corelang.IfSomeMatch:
		return pevalIfSomeMatch(ctx, funcs, n)

	case corelang.IfMatch:
		// Matching against a runtime value this package cannot fabricate
		// (regex/label input typically comes from the data-plane request);
		// simplify both arms but leave the match itself symbolic.
		_, then, err := PEval(ctx, funcs, n.Then)
		if err != nil {
			return false, nil, err
		}
		var alt corelang.Expr
		if n.Alt != nil {
			_, alt, err = PEval(ctx, funcs, n.Alt)
			if err != nil {
				return false, nil, err
			}
		}
		arms := make([]corelang.IfMatchArm, len(n.Arms))
		for i, a := range n.Arms {
			_, scr, err := PEval(ctx, funcs, a.Scrutinee)
			if err != nil {
				return false, nil, err
			}
			arms[i] = corelang.IfMatchArm{Scrutinee: scr, Pattern: a.Pattern, Compiled: a.Compiled}
		}
		return false, corelang.IfMatch{Names: n.Names, Arms: arms, Then: then, Alt: alt, Typ: n.Typ}, nil

	case corelang.Iter:
		return pevalIter(ctx, funcs, n)

	case corelang.Call:
		return pevalCall(ctx, funcs, n)
	}
	return false, nil, errf("unsupported core expression %T in peval", e)
}

// isFree reports whether a BVar at De Bruijn index i occurs free in e
// (grounded on the original's `Expr::is_free`), used to detect that a
// Closure's parameter is now unused after simplification.
func isFree(e corelang.Expr, i int) bool {
	switch n := e.(type) {
	case corelang.BVar:
		return n.Index == i
	case corelang.Var, corelang.Lit:
		return false
	case corelang.Return:
		return isFree(n.Expr, i)
	case corelang.Prefix:
		return isFree(n.Expr, i)
	case corelang.Infix:
		return isFree(n.Left, i) || isFree(n.Right, i)
	case corelang.Block:
		for _, el := range n.Elems {
			if isFree(el, i) {
				return true
			}
		}
		return false
	case corelang.Let:
		return isFree(n.E1, i) || isFree(n.E2, i)
	case corelang.Iter:
		if n.Acc != nil && isFree(n.Acc, i) {
			return true
		}
		return isFree(n.E1, i) || isFree(n.Body, i)
	case corelang.Closure:
		return isFree(n.Body, i+1)
	case corelang.If:
		if n.Alt != nil && isFree(n.Alt, i) {
			return true
		}
		return isFree(n.Cond, i) || isFree(n.Then, i)
	case corelang.IfMatch:
		for _, a := range n.Arms {
			if isFree(a.Scrutinee, i) {
				return true
			}
		}
		if n.Alt != nil && isFree(n.Alt, i) {
			return true
		}
		return isFree(n.Then, i)
	case corelang.IfSomeMatch:
		if n.Alt != nil && isFree(n.Alt, i) {
			return true
		}
		return isFree(n.Expr, i) || isFree(n.Then, i)
	case corelang.Call:
		for _, a := range n.Args {
			if isFree(a, i) {
				return true
			}
		}
		return false
	}
	return true // conservative: treat anything unrecognized as possibly-free
}

// substNames mirrors corelang's evalLet binder-substitution, but with a
// corelang.Lit (not a runtime literal.Literal) since specialize substitutes
// partially-evaluated sub-terms, which may still be symbolic for nested
// tuple components in principle; here E1 is already known fully constant so
// substitution reduces to the same tuple-destructure-then-Subst scheme.
func substNames(body corelang.Expr, names []string, value literals.Literal) corelang.Expr {
	var comps []literals.Literal
	if len(names) == 1 {
		comps = []literals.Literal{value}
	} else if t, ok := value.(literals.Tuple); ok {
		comps = t.Items
	} else {
		comps = []literals.Literal{value}
	}
	cur := body
	for i := 0; i < len(names); i++ {
		c, ok := cur.(corelang.Closure)
		if !ok {
			break
		}
		var v literals.Literal
		if i < len(comps) {
			v = comps[i]
		}
		cur = corelang.Subst(c.Body, 0, corelang.Lit{Value: v})
	}
	return cur
}

func pevalInfix(ctx context.Context, funcs Funcs, n corelang.Infix) (bool, corelang.Expr, error) {
	isConst1, e1, err := PEval(ctx, funcs, n.Left)
	if err != nil {
		return false, nil, err
	}
	isConst2, e2, err := PEval(ctx, funcs, n.Right)
	if err != nil {
		return false, nil, err
	}
	if r, ok := e1.(corelang.Return); ok {
		return isConst1, r, nil
	}
	if r, ok := e2.(corelang.Return); ok {
		return isConst2, r, nil
	}

	if isConst1 && isConst2 {
		l1, ok1 := e1.(corelang.Lit)
		l2, ok2 := e2.(corelang.Lit)
		if !ok1 || !ok2 {
			return false, nil, errf("peval infix: constant branch is not a literal")
		}
		v, err := eval.ApplyInfix(n.Op, l1.Value, l2.Value)
		if err != nil {
			return false, nil, errf("peval infix: %s", err)
		}
		return true, corelang.Lit{Value: v}, nil
	}

	return simplify(n.Op, isConst1, e1, isConst2, e2)
}

// simplify applies the ring/absorbing-element/syntactic-equality
// simplifications when at least one operand is still symbolic (spec.md
// §4.H "ring simplification", grounded on the original's
// ring_simplification! macro and simplify function).
func simplify(op string, isConst1 bool, e1 corelang.Expr, isConst2 bool, e2 corelang.Expr) (bool, corelang.Expr, error) {
	// Divide-by-zero on a known-constant divisor is a hard specialization
	// error (spec.md §4.H), not deferred to the data plane.
	if (op == "/" || op == "%") && isConst2 {
		if l2, ok := e2.(corelang.Lit); ok {
			if eval.LiteralsEqual(l2.Value, zeroFor(l2.Value)) {
				return false, nil, errf("peval: division by zero")
			}
		}
	}
	// Syntactic equality: `e == e` / `e != e` for two identical sub-terms
	// (textually identical after simplification) folds without needing
	// either side to be a known constant.
	if op == "==" && exprEqual(e1, e2) {
		return isConst1 && isConst2, corelang.Lit{Value: literals.Bool(true)}, nil
	}
	if op == "!=" && exprEqual(e1, e2) {
		return isConst1 && isConst2, corelang.Lit{Value: literals.Bool(false)}, nil
	}

	if ok, isConst, result := ringSimplify(op, isConst1, e1, isConst2, e2); ok {
		return isConst, result, nil
	}
	return false, corelang.Infix{Op: op, Left: e1, Right: e2}, nil
}

// exprEqual reports syntactic (structural) equality between two
// already-simplified terms, used for the `e == e` collapse. Only literal
// and variable leaves are compared deeply; anything else must already have
// reduced to a Lit/BVar to match, matching the original's derived
// PartialEq comparison on the simplified term.
func exprEqual(a, b corelang.Expr) bool {
	switch x := a.(type) {
	case corelang.Lit:
		y, ok := b.(corelang.Lit)
		return ok && eval.LiteralsEqual(x.Value, y.Value)
	case corelang.BVar:
		y, ok := b.(corelang.BVar)
		return ok && x.Index == y.Index
	case corelang.Var:
		y, ok := b.(corelang.Var)
		return ok && x.Name == y.Name
	default:
		return false
	}
}

func pevalBlock(ctx context.Context, funcs Funcs, n corelang.Block) (bool, corelang.Expr, error) {
	if len(n.Elems) == 0 {
		switch n.Kind {
		case corelang.BlockList:
			return true, corelang.Lit{Value: literals.List{}}, nil
		default:
			return true, corelang.Lit{Value: literals.UnitVal}, nil
		}
	}
	if n.Kind != corelang.BlockSeq {
		allConst := true
		items := make([]literals.Literal, len(n.Elems))
		elems := make([]corelang.Expr, len(n.Elems))
		for i, el := range n.Elems {
			isConst, simplified, err := PEval(ctx, funcs, el)
			if err != nil {
				return false, nil, err
			}
			elems[i] = simplified
			if !isConst {
				allConst = false
				continue
			}
			lit, ok := simplified.(corelang.Lit)
			if !ok {
				allConst = false
				continue
			}
			items[i] = lit.Value
		}
		if allConst {
			if n.Kind == corelang.BlockList {
				return true, corelang.Lit{Value: literals.List{Elem: *n.Typ.Elem, Items: items}}, nil
			}
			return true, corelang.Lit{Value: literals.Tuple{Items: items}}, nil
		}
		return false, corelang.Block{Kind: n.Kind, Elems: elems, Typ: n.Typ}, nil
	}

	// BlockSeq: fold the first statement; if it's a Return, the whole block
	// is that Return (unreachable-after-return was already rejected by
	// lowering). A constant non-return first statement with more statements
	// following is dropped (its value is discarded) and the rest continues.
	head := n.Elems[0]
	rest := n.Elems[1:]
	isConst, simplifiedHead, err := PEval(ctx, funcs, head)
	if err != nil {
		return false, nil, err
	}
	if r, ok := simplifiedHead.(corelang.Return); ok {
		return isConst, r, nil
	}
	if len(rest) == 0 {
		return isConst, simplifiedHead, nil
	}
	if isConst {
		return pevalBlock(ctx, funcs, corelang.Block{Kind: corelang.BlockSeq, Elems: rest, Typ: n.Typ})
	}
	_, restExpr, err := pevalBlock(ctx, funcs, corelang.Block{Kind: corelang.BlockSeq, Elems: rest, Typ: n.Typ})
	if err != nil {
		return false, nil, err
	}
	return false, corelang.Block{Kind: corelang.BlockSeq, Elems: []corelang.Expr{simplifiedHead, restExpr}, Typ: n.Typ}, nil
}

func pevalIf(ctx context.Context, funcs Funcs, n corelang.If) (bool, corelang.Expr, error) {
	isConstCond, cond, err := PEval(ctx, funcs, n.Cond)
	if err != nil {
		return false, nil, err
	}
	if r, ok := cond.(corelang.Return); ok {
		return isConstCond, r, nil
	}
	if isConstCond {
		lit, ok := cond.(corelang.Lit)
		if !ok {
			return false, nil, errf("peval if: constant condition is not a literal")
		}
		b, ok := lit.Value.(literals.Bool)
		if !ok {
			return false, nil, errf("peval if: condition did not reduce to Bool")
		}
		if bool(b) {
			return PEval(ctx, funcs, n.Then)
		}
		if n.Alt == nil {
			return true, corelang.Lit{Value: literals.UnitVal}, nil
		}
		return PEval(ctx, funcs, n.Alt)
	}
	_, then, err := PEval(ctx, funcs, n.Then)
	if err != nil {
		return false, nil, err
	}
	var alt corelang.Expr
	if n.Alt != nil {
		_, alt, err = PEval(ctx, funcs, n.Alt)
		if err != nil {
			return false, nil, err
		}
	}
	return false, corelang.If{Cond: cond, Then: then, Alt: alt, Typ: n.Typ}, nil
}

func pevalIfSomeMatch(ctx context.Context, funcs Funcs, n corelang.IfSomeMatch) (bool, corelang.Expr, error) {
	isConstExpr, e, err := PEval(ctx, funcs, n.Expr)
	if err != nil {
		return false, nil, err
	}
	if r, ok := e.(corelang.Return); ok {
		return isConstExpr, r, nil
	}
	if isConstExpr {
		lit, ok := e.(corelang.Lit)
		if !ok {
			return false, nil, errf("peval if-let: constant scrutinee is not a literal")
		}
		opt, ok := lit.Value.(literals.Option)
		if !ok {
			return false, nil, errf("peval if-let: scrutinee did not reduce to Option")
		}
		if opt.IsSome() {
			c, ok := n.Then.(corelang.Closure)
			if !ok {
				return false, nil, errf("peval if-let: Then is not a Closure")
			}
			inlined := corelang.Subst(c.Body, 0, corelang.Lit{Value: opt.Value})
			return PEval(ctx, funcs, inlined)
		}
		if n.Alt == nil {
			return true, corelang.Lit{Value: literals.UnitVal}, nil
		}
		return PEval(ctx, funcs, n.Alt)
	}
	_, then, err := PEval(ctx, funcs, n.Then)
	if err != nil {
		return false, nil, err
	}
	var alt corelang.Expr
	if n.Alt != nil {
		_, alt, err = PEval(ctx, funcs, n.Alt)
		if err != nil {
			return false, nil, err
		}
	}
	return false, corelang.IfSomeMatch{Expr: e, Then: then, Alt: alt, Typ: n.Typ}, nil
}

func pevalIter(ctx context.Context, funcs Funcs, n corelang.Iter) (bool, corelang.Expr, error) {
	_, listExpr, err := PEval(ctx, funcs, n.E1)
	if err != nil {
		return false, nil, err
	}
	_, body, err := PEval(ctx, funcs, n.Body)
	if err != nil {
		return false, nil, err
	}
	var acc corelang.Expr
	if n.Acc != nil {
		_, acc, err = PEval(ctx, funcs, n.Acc)
		if err != nil {
			return false, nil, err
		}
	}
	return false, corelang.Iter{Op: n.Op, Names: n.Names, E1: listExpr, Body: body, Acc: acc, Typ: n.Typ}, nil
}

// pevalCall simplifies arguments, then — only when every argument reduced
// to a known constant and the target is a known user function with no
// further unresolved dependencies — inlines the call by substituting
// arguments into the callee's body via corelang.Apply, exactly the "safe
// inlining of known calls" step of spec.md §4.H. Builtin calls with
// constant arguments are executed immediately through literals.Methods.
func pevalCall(ctx context.Context, funcs Funcs, n corelang.Call) (bool, corelang.Expr, error) {
	allConst := true
	args := make([]corelang.Expr, len(n.Args))
	values := make([]literals.Literal, len(n.Args))
	for i, a := range n.Args {
		isConst, simplified, err := PEval(ctx, funcs, a)
		if err != nil {
			return false, nil, err
		}
		args[i] = simplified
		if r, ok := simplified.(corelang.Return); ok {
			return isConst, r, nil
		}
		if !isConst {
			allConst = false
			continue
		}
		lit, ok := simplified.(corelang.Lit)
		if !ok {
			allConst = false
			continue
		}
		values[i] = lit.Value
	}

	if !allConst {
		return false, corelang.Call{Function: n.Function, Args: args, IsAsync: n.IsAsync, Typ: n.Typ}, nil
	}

	if n.Function == "option::Some" && len(values) == 1 {
		return true, corelang.Lit{Value: literals.Some(values[0])}, nil
	}

	// Tuple-index projection (`x.0`), same special case as eval.evalCall.
	if v, ok, err := literals.ProjectTuple(n.Function, values); ok {
		if err != nil {
			return false, nil, errf("peval call %q: %s", n.Function, err)
		}
		return true, corelang.Lit{Value: v}, nil
	}

	if fn, ok := funcs[n.Function]; ok {
		body := fn.Body
		for _, v := range values {
			c, ok := body.(corelang.Closure)
			if !ok {
				return false, corelang.Call{Function: n.Function, Args: args, IsAsync: n.IsAsync, Typ: n.Typ}, nil
			}
			body = corelang.Apply(c, corelang.Lit{Value: v})
		}
		isConst, res, err := PEval(ctx, funcs, body)
		if err != nil {
			return false, nil, err
		}
		if !isConst {
			return false, corelang.Call{Function: n.Function, Args: args, IsAsync: n.IsAsync, Typ: n.Typ}, nil
		}
		// The call is the callee's function boundary: its Return marker
		// yields the call's value instead of returning from the caller.
		if r, ok := res.(corelang.Return); ok {
			res = r.Expr
		}
		return true, res, nil
	}

	if method, ok := literals.Methods[n.Function]; ok && !n.IsAsync {
		v, err := method(values)
		if err != nil {
			// A builtin that fails on these constants is a genuine error,
			// surfaced at specialization time rather than deferred.
			return false, nil, errf("peval call %q: %s", n.Function, err)
		}
		return true, corelang.Lit{Value: v}, nil
	}

	// External/async calls cannot be folded at specialization time: their
	// result depends on a collaborator this package never invokes.
	return false, corelang.Call{Function: n.Function, Args: args, IsAsync: n.IsAsync, Typ: n.Typ}, nil
}
