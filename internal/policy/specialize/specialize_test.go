// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package specialize

import (
	"context"
	"testing"

	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/literals"
)

func mustLower(t *testing.T, src string) Funcs {
	t.Helper()
	p, err := ast.Parse("test.policy", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fns, err := corelang.LowerPolicy(p)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return Funcs(fns)
}

func TestPEval_ConstantFold(t *testing.T) {
	funcs := mustLower(t, `fn add(x: I64, y: I64) -> I64 { return x + y; }`)
	body := funcs["add"].Body
	c1 := body.(corelang.Closure)
	inner := corelang.Subst(c1.Body, 0, corelang.Lit{Value: literals.I64(2)})
	c2 := inner.(corelang.Closure)
	inner2 := corelang.Subst(c2.Body, 0, corelang.Lit{Value: literals.I64(3)})

	isConst, result, err := PEval(context.Background(), funcs, inner2)
	if err != nil {
		t.Fatalf("peval: %v", err)
	}
	if !isConst {
		t.Fatalf("expected fully-reduced constant, got %#v", result)
	}
	// The body is `return x + y;`, so the folded constant keeps its Return marker.
	lit := result.(corelang.Return).Expr.(corelang.Lit)
	if lit.Value.(literals.I64) != 5 {
		t.Fatalf("got %v, want 5", lit.Value)
	}
}

func TestPEval_RingSimplifyAddZero(t *testing.T) {
	// `x + 0` should simplify to the symbolic `x` without needing x's value.
	e := corelang.Infix{
		Op:   "+",
		Left: corelang.BVar{Name: "x", Index: 0, Typ: literals.I64(0).Type()},
		Right: corelang.Lit{Value: literals.I64(0)},
		Typ:  literals.I64(0).Type(),
	}
	isConst, result, err := PEval(context.Background(), Funcs{}, e)
	if err != nil {
		t.Fatalf("peval: %v", err)
	}
	if isConst {
		t.Fatalf("expected symbolic result, got constant %#v", result)
	}
	bv, ok := result.(corelang.BVar)
	if !ok || bv.Index != 0 {
		t.Fatalf("got %#v, want bare BVar(0)", result)
	}
}

func TestPEval_RingSimplifyMulZero(t *testing.T) {
	e := corelang.Infix{
		Op:    "*",
		Left:  corelang.BVar{Name: "x", Index: 0, Typ: literals.I64(0).Type()},
		Right: corelang.Lit{Value: literals.I64(0)},
		Typ:   literals.I64(0).Type(),
	}
	isConst, result, err := PEval(context.Background(), Funcs{}, e)
	if err != nil {
		t.Fatalf("peval: %v", err)
	}
	if !isConst {
		t.Fatalf("expected constant 0, got %#v", result)
	}
	if result.(corelang.Lit).Value.(literals.I64) != 0 {
		t.Fatalf("got %#v, want 0", result)
	}
}

func TestPEval_BoolOrTrueShortCircuits(t *testing.T) {
	e := corelang.Infix{
		Op:    "||",
		Left:  corelang.Lit{Value: literals.Bool(true)},
		Right: corelang.BVar{Name: "x", Index: 0, Typ: literals.Bool(false).Type()},
		Typ:   literals.Bool(false).Type(),
	}
	isConst, result, err := PEval(context.Background(), Funcs{}, e)
	if err != nil {
		t.Fatalf("peval: %v", err)
	}
	if !isConst || !bool(result.(corelang.Lit).Value.(literals.Bool)) {
		t.Fatalf("got %#v, want constant true", result)
	}
}

func TestPEval_DivisionByZeroIsHardError(t *testing.T) {
	e := corelang.Infix{
		Op:    "/",
		Left:  corelang.BVar{Name: "x", Index: 0, Typ: literals.I64(0).Type()},
		Right: corelang.Lit{Value: literals.I64(0)},
		Typ:   literals.I64(0).Type(),
	}
	_, _, err := PEval(context.Background(), Funcs{}, e)
	if err == nil {
		t.Fatal("expected division-by-zero specialization error")
	}
}

func TestPEval_InlinesKnownCall(t *testing.T) {
	funcs := mustLower(t, `
fn twice(x: I64) -> I64 { return x * 2; }
fn six() -> I64 { return twice(3); }
`)
	body := funcs["six"].Body
	isConst, result, err := PEval(context.Background(), funcs, body)
	if err != nil {
		t.Fatalf("peval: %v", err)
	}
	if !isConst {
		t.Fatalf("expected constant, got %#v", result)
	}
	// six's own `return` keeps its marker; twice's marker is consumed at the
	// inlined call, so exactly one Return wraps the constant.
	lit := result.(corelang.Return).Expr.(corelang.Lit)
	if lit.Value.(literals.I64) != 6 {
		t.Fatalf("got %v, want 6", lit.Value)
	}
}

func TestPEval_IfCollapsesOnConstantCondition(t *testing.T) {
	funcs := mustLower(t, `
fn pick(x: I64, y: I64) -> I64 {
	if true {
		return x;
	} else {
		return y;
	}
}
`)
	body := funcs["pick"].Body
	isConst, result, err := PEval(context.Background(), funcs, body)
	if err != nil {
		t.Fatalf("peval: %v", err)
	}
	if isConst {
		t.Fatalf("expected still-symbolic result (depends on param x), got %#v", result)
	}
	if _, ok := result.(corelang.Closure); !ok {
		t.Fatalf("got %#v, want remaining Closure wrapping BVar", result)
	}
}

func TestPEval_SyntacticEqualityFold(t *testing.T) {
	e := corelang.Infix{
		Op:    "==",
		Left:  corelang.BVar{Name: "x", Index: 0, Typ: literals.I64(0).Type()},
		Right: corelang.BVar{Name: "x", Index: 0, Typ: literals.I64(0).Type()},
		Typ:   literals.Bool(false).Type(),
	}
	isConst, result, err := PEval(context.Background(), Funcs{}, e)
	if err != nil {
		t.Fatalf("peval: %v", err)
	}
	if isConst {
		t.Fatalf("folded to true, but operand value is still unknown: %#v", result)
	}
	if !bool(result.(corelang.Lit).Value.(literals.Bool)) {
		t.Fatalf("got %#v, want constant true", result)
	}
}
