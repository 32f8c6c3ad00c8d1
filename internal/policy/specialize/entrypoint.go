// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package specialize

import (
	"context"

	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/headers"
	"github.com/holomush/armour/internal/policy/literals"
	"github.com/holomush/armour/internal/policy/types"
)

// Bind selects which of an entry point's two leading ID parameters
// (spec.md §4.H: every data-plane entry point begins `from: ID, to: ID`)
// the caller's concrete identity is known for. The other one is derived
// from the surviving connection/request parameter via an accessor call.
type Bind int

const (
	// BindFrom specializes for a known sender (egress): `from` becomes the
	// given identity, `to` is read off the wire at the data plane.
	BindFrom Bind = iota
	// BindTo specializes for a known receiver (ingress): `to` becomes the
	// given identity, `from` is read off the wire at the data plane.
	BindTo
)

// entryShape describes one of the four signatures the specializer accepts
// (spec.md §6 "allow_rest_request", "allow_rest_response",
// "allow_tcp_connection", "on_tcp_disconnect"): every one begins with the
// two ID parameters bound here, and accessor names the type (HttpRequest,
// HttpResponse, or Connection) whose `::from`/`::to` method recovers the
// identity this specialization didn't bind.
type entryShape struct {
	args     []types.Typ
	ret      types.Typ
	accessor string
}

var entryShapes = map[string]entryShape{
	"allow_rest_request":   {args: []types.Typ{types.ID, types.ID, types.HTTPRequest, types.Data}, ret: types.Bool, accessor: "HttpRequest"},
	"allow_rest_response":  {args: []types.Typ{types.ID, types.ID, types.HTTPResponse, types.Data}, ret: types.Bool, accessor: "HttpResponse"},
	"allow_tcp_connection": {args: []types.Typ{types.ID, types.ID, types.Connection}, ret: types.Bool, accessor: "Connection"},
	"on_tcp_disconnect":    {args: []types.Typ{types.ID, types.ID, types.Connection, types.I64, types.I64}, ret: types.Bool, accessor: "Connection"},
}

// checkHeader validates that name is one of the four entry points allowed
// in entryShapes and that the compiled function's actual signature matches
// it exactly, rejecting any deviation (grounded on `check_header` in
// armour-control/src/specialize.rs).
func checkHeader(funcs Funcs, name string) (entryShape, *corelang.FnDef, error) {
	shape, ok := entryShapes[name]
	if !ok {
		return entryShape{}, nil, errf("%q is not a specializable entry point (must be one of allow_rest_request, allow_rest_response, allow_tcp_connection, on_tcp_disconnect)", name)
	}
	fn, ok := funcs[name]
	if !ok {
		return entryShape{}, nil, errf("undefined entry point %q", name)
	}
	if len(fn.Params) != len(shape.args) {
		return entryShape{}, nil, errf("%q has %d parameters, expected %d", name, len(fn.Params), len(shape.args))
	}
	for i, p := range fn.Params {
		t, err := corelang.ResolveType(p.Typ)
		if err != nil {
			return entryShape{}, nil, err
		}
		if !t.Equal(shape.args[i]) {
			return entryShape{}, nil, errf("%q parameter %d: expected %s, got %s", name, i, shape.args[i], t)
		}
	}
	if !fn.Ret.Equal(shape.ret) {
		return entryShape{}, nil, errf("%q must return %s, got %s", name, shape.ret, fn.Ret)
	}
	return shape, fn, nil
}

// sentinelAccessor is a placeholder free Var substituted for the identity
// parameter that isn't being bound to a literal. It stands in for "whatever
// the surviving first parameter turns out to be" until replaceSentinel
// rewrites it into a real accessor call at the correct De Bruijn depth;
// Subst/shift never touch a Var, so it survives unscathed through however
// many binders separate its occurrence from the point it was introduced.
const sentinelAccessor = "\x00armour-specialize-accessor\x00"

// Specialize implements the §4.H specializer: given a lowered program, one
// of its four data-plane entry points, and a concrete identity, it produces
// a residual program where entryPoint's two ID parameters are gone — the
// bound one folded away as a constant, the other rewritten to read the
// identity off the surviving request/connection parameter — and every
// declaration no longer reachable from entryPoint is dropped.
//
// Grounded on armour-control/src/specialize.rs's check_header/
// propagate_subst/compile_helper/compile_egress_ingress; compile_egress
// binds "from" (Bind = BindFrom), compile_ingress binds "to" (Bind = BindTo).
func Specialize(ctx context.Context, funcs Funcs, hdrs *headers.Table, entryPoint string, bind Bind, id literals.Literal) (Funcs, *headers.Table, error) {
	shape, fn, err := checkHeader(funcs, entryPoint)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := id.(literals.ID); !ok {
		return nil, nil, errf("specialize %q: identity must be an ID, got %T", entryPoint, id)
	}

	fromClosure, ok := fn.Body.(corelang.Closure)
	if !ok {
		return nil, nil, errf("internal error: %q body is missing its `from` parameter", entryPoint)
	}

	var afterFrom corelang.Expr
	var accessorDir string
	switch bind {
	case BindFrom:
		afterFrom = corelang.Apply(fromClosure, corelang.Lit{Value: id})
		accessorDir = "to"
	case BindTo:
		afterFrom = corelang.Apply(fromClosure, corelang.Var{Name: sentinelAccessor, Typ: types.ID})
		accessorDir = "from"
	default:
		return nil, nil, errf("specialize %q: unknown bind %v", entryPoint, bind)
	}

	toClosure, ok := afterFrom.(corelang.Closure)
	if !ok {
		return nil, nil, errf("internal error: %q body is missing its `to` parameter", entryPoint)
	}

	var afterTo corelang.Expr
	switch bind {
	case BindFrom:
		afterTo = corelang.Apply(toClosure, corelang.Var{Name: sentinelAccessor, Typ: types.ID})
	case BindTo:
		afterTo = corelang.Apply(toClosure, corelang.Lit{Value: id})
	}

	accessorName := shape.accessor + "::" + accessorDir
	paramTyp := shape.args[2] // the surviving first parameter's type (HttpRequest/HttpResponse/Connection)
	residual := replaceSentinel(afterTo, 0, sentinelAccessor, accessorName, paramTyp)

	survivingParams, flatBody := peelClosures(residual, len(shape.args)-2)
	_, pevaled, err := PEval(ctx, funcs, flatBody)
	if err != nil {
		return nil, nil, err
	}
	newBody := wrapClosures(survivingParams, pevaled)

	calls := map[string]bool{}
	collectCalls(newBody, calls)

	newParams := append([]ast.Param(nil), fn.Params[2:]...)
	newFn := &corelang.FnDef{
		Name:   entryPoint,
		Params: newParams,
		Ret:    fn.Ret,
		Body:   newBody,
		Calls:  calls,
	}

	newFuncs := reachableFuncs(funcs, newFn)

	newArgs := append([]types.Typ(nil), shape.args[2:]...)
	var newHdrs *headers.Table
	if hdrs != nil {
		newHdrs = hdrs.Clone()
		newHdrs.Replace(entryPoint, types.Signature{Args: newArgs, Ret: shape.ret})
	}

	return newFuncs, newHdrs, nil
}

// peelClosures strips exactly n Closure wrappers off e by plain structural
// unwrapping (no Subst/shift), returning the stripped parameter names in
// order and the exposed body. Because no substitution happens, every BVar
// still inside body keeps the exact index it always had — peeling a
// Closure wrapper around a term never changes how far any reference inside
// it has to count to reach its own binder.
func peelClosures(e corelang.Expr, n int) ([]string, corelang.Expr) {
	params := make([]string, 0, n)
	cur := e
	for i := 0; i < n; i++ {
		c, ok := cur.(corelang.Closure)
		if !ok {
			break
		}
		params = append(params, c.Param)
		cur = c.Body
	}
	return params, cur
}

// wrapClosures is peelClosures's inverse: it re-wraps body in one Closure
// per name, outermost first, restoring a function of exactly len(params)
// parameters regardless of whether body still references all of them
// (spec.md §4.H scenario S6: an unreferenced trailing parameter still
// appears in the residual signature).
func wrapClosures(params []string, body corelang.Expr) corelang.Expr {
	cur := body
	for i := len(params) - 1; i >= 0; i-- {
		cur = corelang.Closure{Param: params[i], Body: cur}
	}
	return cur
}

// replaceSentinel walks e exactly like corelang's shift/Subst (incrementing
// d through every Closure it descends into) and rewrites every occurrence
// of the sentinel free variable into a call to accessor applied to the
// variable bound by e's outermost Closure (index d-1) — i.e. e's own
// outermost remaining parameter once the sentinel's introducer is peeled
// away. A plain Subst can't express this: it would have to reference a
// variable bound more deeply than the one it's replacing, which no
// substitution-at-a-fixed-depth can do. Routing the replacement through a
// free Var first (which Subst/shift never touch, at any depth) and doing
// the indexing here, once, after every binder the original program put
// between the two parameters is already in place, sidesteps that.
func replaceSentinel(e corelang.Expr, d int, sentinel, accessor string, paramTyp types.Typ) corelang.Expr {
	switch n := e.(type) {
	case corelang.Var:
		if n.Name == sentinel {
			return corelang.Call{
				Function: accessor,
				Args:     []corelang.Expr{corelang.BVar{Name: accessor, Index: d - 1, Typ: paramTyp}},
				Typ:      n.Typ,
			}
		}
		return n
	case corelang.BVar, corelang.Lit:
		return e
	case corelang.Return:
		return corelang.Return{Expr: replaceSentinel(n.Expr, d, sentinel, accessor, paramTyp), Typ: n.Typ}
	case corelang.Prefix:
		return corelang.Prefix{Op: n.Op, Expr: replaceSentinel(n.Expr, d, sentinel, accessor, paramTyp), Typ: n.Typ}
	case corelang.Infix:
		return corelang.Infix{Op: n.Op, Left: replaceSentinel(n.Left, d, sentinel, accessor, paramTyp), Right: replaceSentinel(n.Right, d, sentinel, accessor, paramTyp), Typ: n.Typ}
	case corelang.Block:
		out := make([]corelang.Expr, len(n.Elems))
		for i, el := range n.Elems {
			out[i] = replaceSentinel(el, d, sentinel, accessor, paramTyp)
		}
		return corelang.Block{Kind: n.Kind, Elems: out, Typ: n.Typ}
	case corelang.Let:
		return corelang.Let{Names: n.Names, E1: replaceSentinel(n.E1, d, sentinel, accessor, paramTyp), E2: replaceSentinel(n.E2, d, sentinel, accessor, paramTyp), Typ: n.Typ}
	case corelang.Iter:
		var acc corelang.Expr
		if n.Acc != nil {
			acc = replaceSentinel(n.Acc, d, sentinel, accessor, paramTyp)
		}
		return corelang.Iter{Op: n.Op, Names: n.Names, E1: replaceSentinel(n.E1, d, sentinel, accessor, paramTyp), Body: replaceSentinel(n.Body, d, sentinel, accessor, paramTyp), Acc: acc, Typ: n.Typ}
	case corelang.Closure:
		return corelang.Closure{Param: n.Param, Body: replaceSentinel(n.Body, d+1, sentinel, accessor, paramTyp)}
	case corelang.If:
		var alt corelang.Expr
		if n.Alt != nil {
			alt = replaceSentinel(n.Alt, d, sentinel, accessor, paramTyp)
		}
		return corelang.If{Cond: replaceSentinel(n.Cond, d, sentinel, accessor, paramTyp), Then: replaceSentinel(n.Then, d, sentinel, accessor, paramTyp), Alt: alt, Typ: n.Typ}
	case corelang.IfMatch:
		arms := make([]corelang.IfMatchArm, len(n.Arms))
		for i, a := range n.Arms {
			arms[i] = corelang.IfMatchArm{Scrutinee: replaceSentinel(a.Scrutinee, d, sentinel, accessor, paramTyp), Pattern: a.Pattern, Compiled: a.Compiled}
		}
		var alt corelang.Expr
		if n.Alt != nil {
			alt = replaceSentinel(n.Alt, d, sentinel, accessor, paramTyp)
		}
		return corelang.IfMatch{Names: n.Names, Arms: arms, Then: replaceSentinel(n.Then, d, sentinel, accessor, paramTyp), Alt: alt, Typ: n.Typ}
	case corelang.IfSomeMatch:
		var alt corelang.Expr
		if n.Alt != nil {
			alt = replaceSentinel(n.Alt, d, sentinel, accessor, paramTyp)
		}
		return corelang.IfSomeMatch{Expr: replaceSentinel(n.Expr, d, sentinel, accessor, paramTyp), Then: replaceSentinel(n.Then, d, sentinel, accessor, paramTyp), Alt: alt, Typ: n.Typ}
	case corelang.Call:
		out := make([]corelang.Expr, len(n.Args))
		for i, a := range n.Args {
			out[i] = replaceSentinel(a, d, sentinel, accessor, paramTyp)
		}
		return corelang.Call{Function: n.Function, Args: out, IsAsync: n.IsAsync, Typ: n.Typ}
	default:
		return e
	}
}

// collectCalls records every function/builtin name e invokes into out, used
// to rebuild the entry point's call-graph edge after its body changes shape
// (spec.md §4.H "dead-code-eliminate unreachable declarations").
func collectCalls(e corelang.Expr, out map[string]bool) {
	switch n := e.(type) {
	case corelang.Var, corelang.BVar, corelang.Lit:
	case corelang.Return:
		collectCalls(n.Expr, out)
	case corelang.Prefix:
		collectCalls(n.Expr, out)
	case corelang.Infix:
		collectCalls(n.Left, out)
		collectCalls(n.Right, out)
	case corelang.Block:
		for _, el := range n.Elems {
			collectCalls(el, out)
		}
	case corelang.Let:
		collectCalls(n.E1, out)
		collectCalls(n.E2, out)
	case corelang.Iter:
		collectCalls(n.E1, out)
		collectCalls(n.Body, out)
		if n.Acc != nil {
			collectCalls(n.Acc, out)
		}
	case corelang.Closure:
		collectCalls(n.Body, out)
	case corelang.If:
		collectCalls(n.Cond, out)
		collectCalls(n.Then, out)
		if n.Alt != nil {
			collectCalls(n.Alt, out)
		}
	case corelang.IfMatch:
		for _, a := range n.Arms {
			collectCalls(a.Scrutinee, out)
		}
		collectCalls(n.Then, out)
		if n.Alt != nil {
			collectCalls(n.Alt, out)
		}
	case corelang.IfSomeMatch:
		collectCalls(n.Expr, out)
		collectCalls(n.Then, out)
		if n.Alt != nil {
			collectCalls(n.Alt, out)
		}
	case corelang.Call:
		out[n.Function] = true
		for _, a := range n.Args {
			collectCalls(a, out)
		}
	}
}

// reachableFuncs rebuilds the program's function table rooted at newEntry,
// following each retained FnDef's recorded Calls edges over the ORIGINAL
// funcs (every helper's body is unchanged by specialization — only the
// entry point's is) and dropping anything never reached (spec.md §4.H,
// grounded on `deadcode_elim` in the original implementation).
func reachableFuncs(funcs Funcs, newEntry *corelang.FnDef) Funcs {
	out := Funcs{newEntry.Name: newEntry}
	visited := map[string]bool{newEntry.Name: true}

	var walk func(name string)
	walk = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		fn, ok := funcs[name]
		if !ok {
			return
		}
		out[name] = fn
		for callee := range fn.Calls {
			walk(callee)
		}
	}
	for callee := range newEntry.Calls {
		walk(callee)
	}
	return out
}
