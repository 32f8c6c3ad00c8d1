// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package specialize

import (
	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/eval"
	"github.com/holomush/armour/internal/policy/literals"
)

// ringRule is one algebraic identity/absorbing-element pair for a single
// operator, ported from the original's `ring_simplification!` macro (one
// macro invocation per ring: (Bool,Or,And), (Bool,And,Or), (Int,Plus,
// Multiply), (Float,Plus,Multiply)) as data instead of a macro, since Go has
// none. identity is the operand value for which `x op identity == x`;
// hasAbsorb/absorb hold the value for which `x op absorb == absorb`
// regardless of x, when the operator has one (I64/F64 `+` has no absorbing
// element; `-` is handled separately since it isn't commutative).
type ringRule struct {
	op        string
	identity  literals.Literal
	hasAbsorb bool
	absorb    literals.Literal
}

var ringRules = []ringRule{
	{op: "||", identity: literals.Bool(false), hasAbsorb: true, absorb: literals.Bool(true)},
	{op: "&&", identity: literals.Bool(true), hasAbsorb: true, absorb: literals.Bool(false)},
	{op: "+", identity: literals.I64(0)},
	{op: "+", identity: literals.F64(0)},
	{op: "*", identity: literals.I64(1), hasAbsorb: true, absorb: literals.I64(0)},
	{op: "*", identity: literals.F64(1), hasAbsorb: true, absorb: literals.F64(0)},
}

// ringSimplify applies the matching ringRule's identity/absorbing-element
// law, trying whichever operand is a known constant, when at least one
// operand is still symbolic (spec.md §4.H, §3.3). `-` gets its own
// right-identity-only rule (`x - 0 = x`) since subtraction isn't
// commutative and has no absorbing element.
func ringSimplify(op string, isConst1 bool, e1 corelang.Expr, isConst2 bool, e2 corelang.Expr) (matched, isConst bool, result corelang.Expr) {
	lit1, hasLit1 := asLit(isConst1, e1)
	lit2, hasLit2 := asLit(isConst2, e2)

	if op == "-" {
		if hasLit2 && eval.LiteralsEqual(lit2, zeroFor(lit2)) {
			return true, isConst1, e1
		}
		return false, false, nil
	}

	for _, r := range ringRules {
		if r.op != op {
			continue
		}
		if hasLit1 {
			if sameKind(lit1, r.identity) && eval.LiteralsEqual(lit1, r.identity) {
				return true, isConst2, e2
			}
			if r.hasAbsorb && sameKind(lit1, r.absorb) && eval.LiteralsEqual(lit1, r.absorb) {
				return true, true, corelang.Lit{Value: r.absorb}
			}
		}
		if hasLit2 {
			if sameKind(lit2, r.identity) && eval.LiteralsEqual(lit2, r.identity) {
				return true, isConst1, e1
			}
			if r.hasAbsorb && sameKind(lit2, r.absorb) && eval.LiteralsEqual(lit2, r.absorb) {
				return true, true, corelang.Lit{Value: r.absorb}
			}
		}
	}
	return false, false, nil
}

func sameKind(a, b literals.Literal) bool { return a.Type().Kind == b.Type().Kind }

func zeroFor(l literals.Literal) literals.Literal {
	switch l.(type) {
	case literals.F64:
		return literals.F64(0)
	default:
		return literals.I64(0)
	}
}

func asLit(isConst bool, e corelang.Expr) (literals.Literal, bool) {
	if !isConst {
		return nil, false
	}
	l, ok := e.(corelang.Lit)
	if !ok {
		return nil, false
	}
	return l.Value, true
}
