// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package eval

import (
	"context"
	"testing"

	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/literals"
)

func mustEnv(t *testing.T, src string) *Env {
	t.Helper()
	p, err := ast.Parse("test.policy", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fns, err := corelang.LowerPolicy(p)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return &Env{Funcs: fns}
}

func TestEval_AddFunction(t *testing.T) {
	env := mustEnv(t, `fn add(x: I64, y: I64) -> I64 { return x + y; }`)
	v, err := CallFunction(context.Background(), env, "add", []literals.Literal{literals.I64(2), literals.I64(3)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if v.(literals.I64) != 5 {
		t.Fatalf("got %v, want 5", v)
	}
}

func TestEval_IfBranches(t *testing.T) {
	env := mustEnv(t, `
fn max(x: I64, y: I64) -> I64 {
	if x > y {
		return x;
	} else {
		return y;
	}
}
`)
	v, err := CallFunction(context.Background(), env, "max", []literals.Literal{literals.I64(2), literals.I64(9)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if v.(literals.I64) != 9 {
		t.Fatalf("got %v, want 9", v)
	}
}

func TestEval_DivisionByZero(t *testing.T) {
	env := mustEnv(t, `fn div(x: I64, y: I64) -> I64 { return x / y; }`)
	_, err := CallFunction(context.Background(), env, "div", []literals.Literal{literals.I64(1), literals.I64(0)})
	if err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestEval_MutualRecursion(t *testing.T) {
	env := mustEnv(t, `
fn is_even(n: I64) -> Bool {
	if n == 0 {
		return true;
	} else {
		return is_odd(n - 1);
	}
}
fn is_odd(n: I64) -> Bool {
	if n == 0 {
		return false;
	} else {
		return is_even(n - 1);
	}
}
`)
	v, err := CallFunction(context.Background(), env, "is_even", []literals.Literal{literals.I64(10)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if bool(v.(literals.Bool)) != true {
		t.Fatalf("got %v, want true", v)
	}
}

func TestEval_LetDestructure(t *testing.T) {
	env := mustEnv(t, `
fn swap_sum(t: (I64, I64)) -> I64 {
	let (a, b) = t;
	return b + a;
}
`)
	v, err := CallFunction(context.Background(), env, "swap_sum", []literals.Literal{
		literals.Tuple{Items: []literals.Literal{literals.I64(4), literals.I64(10)}},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if v.(literals.I64) != 14 {
		t.Fatalf("got %v, want 14", v)
	}
}

func TestEval_IterMap(t *testing.T) {
	env := mustEnv(t, `
fn doubled(xs: List<I64>) -> List<I64> {
	return map x in xs { x * 2 };
}
`)
	v, err := CallFunction(context.Background(), env, "doubled", []literals.Literal{
		literals.List{Elem: literals.I64(0).Type(), Items: []literals.Literal{literals.I64(1), literals.I64(2), literals.I64(3)}},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	list := v.(literals.List)
	if len(list.Items) != 3 || list.Items[0].(literals.I64) != 2 || list.Items[2].(literals.I64) != 6 {
		t.Fatalf("got %v", list)
	}
}

func TestEval_IterFold(t *testing.T) {
	env := mustEnv(t, `
fn total(xs: List<I64>) -> I64 {
	return fold x in xs { acc + x } where acc = 0;
}
`)
	v, err := CallFunction(context.Background(), env, "total", []literals.Literal{
		literals.List{Elem: literals.I64(0).Type(), Items: []literals.Literal{literals.I64(1), literals.I64(2), literals.I64(3)}},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if v.(literals.I64) != 6 {
		t.Fatalf("got %v, want 6", v)
	}
}

func TestEval_ReturnInsideIterationShortCircuits(t *testing.T) {
	env := mustEnv(t, `
fn first_negative(xs: List<I64>) -> Bool {
	all x in xs {
		if x < 0 {
			return false;
		} else {
			true
		}
	}
}
`)
	v, err := CallFunction(context.Background(), env, "first_negative", []literals.Literal{
		literals.List{Elem: literals.I64(0).Type(), Items: []literals.Literal{literals.I64(1), literals.I64(-2), literals.I64(3)}},
	})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if bool(v.(literals.Bool)) != false {
		t.Fatalf("got %v, want false (return inside the iteration body should short-circuit, not error)", v)
	}
}

func TestEval_IfSomeMatch(t *testing.T) {
	env := mustEnv(t, `
fn unwrap_or(o: Option<I64>, d: I64) -> I64 {
	if let Some(x) = o {
		return x;
	} else {
		return d;
	}
}
`)
	v, err := CallFunction(context.Background(), env, "unwrap_or", []literals.Literal{literals.None(literals.I64(0).Type()), literals.I64(7)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if v.(literals.I64) != 7 {
		t.Fatalf("got %v, want 7", v)
	}

	v2, err := CallFunction(context.Background(), env, "unwrap_or", []literals.Literal{literals.Some(literals.I64(42)), literals.I64(7)})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if v2.(literals.I64) != 42 {
		t.Fatalf("got %v, want 42", v2)
	}
}

func TestEval_BuiltinDispatch(t *testing.T) {
	env := mustEnv(t, `
fn upper(s: Str) -> Str {
	return s.to_uppercase();
}
`)
	v, err := CallFunction(context.Background(), env, "upper", []literals.Literal{literals.Str("hi")})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if v.(literals.Str) != "HI" {
		t.Fatalf("got %v, want HI", v)
	}
}
