// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package corelang

import (
	"fmt"
	"strconv"

	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/headers"
	"github.com/holomush/armour/internal/policy/literals"
	"github.com/holomush/armour/internal/policy/types"
)

// scope is the lowering-time variable environment (spec.md §4.E "Context").
// It is immutable: every binder creates a new scope rather than mutating
// the caller's, since the surface AST's block/let/iter nesting must map
// onto lowering's recursive-descent exactly once.
type scope struct {
	vars     map[string]types.Typ
	asyncTag bool
}

func newScope() scope { return scope{vars: map[string]types.Typ{}} }

func (s scope) withVar(name string, t types.Typ) scope {
	vars := make(map[string]types.Typ, len(s.vars)+1)
	for k, v := range s.vars {
		vars[k] = v
	}
	vars[name] = t
	return scope{vars: vars, asyncTag: s.asyncTag}
}

func (s scope) withAsync(tag bool) scope {
	return scope{vars: s.vars, asyncTag: s.asyncTag || tag}
}

// lowerState is the shared, function-scoped lowering context (spec.md
// §4.E): the symbol table used to resolve calls, the set of qualified
// external names whose argument types are unconstrained (`fn h(_)`), the
// call-graph edges accumulated for the function currently being lowered,
// and the function's inferred/declared return type (first `return` sets
// it; every later `return` must unify with it — spec.md §4.E "return-type
// unification").
type lowerState struct {
	headers     *headers.Table
	externals   map[string]types.Typ
	calls       map[string]bool
	retType     *types.Typ
	retTypeKnow bool
}

func newLowerState(h *headers.Table, externals map[string]types.Typ) *lowerState {
	return &lowerState{headers: h, externals: externals, calls: map[string]bool{}}
}

// Error is a lowering failure with its source location.
type Error struct {
	Loc types.Loc
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Loc, e.Msg) }

func errAt(loc types.Loc, format string, args ...any) error {
	return &Error{Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

// BuildHeaders constructs the symbol table for a policy: builtins, plus
// every top-level fn's signature (so mutually-recursive calls resolve
// regardless of declaration order), plus external declarations. Heads
// declared with a fixed argument-type list (`fn h(Str, I64)`) are added to
// the returned Table like any user function; heads declared with `_`
// (unconstrained arity/argument types) are returned separately in the
// second map, keyed by `Name::method`, since headers.Table has no
// wildcard-arity representation (spec.md §4.D: "external functions can be
// declared so that they accept any argument").
func BuildHeaders(policy *ast.Policy) (*headers.Table, map[string]types.Typ, error) {
	h := headers.NewBuiltins()
	externals := map[string]types.Typ{}

	for _, d := range policy.Decls {
		switch decl := d.(type) {
		case *ast.FnDecl:
			args := make([]types.Typ, len(decl.Params))
			for i, p := range decl.Params {
				t, err := ResolveType(p.Typ)
				if err != nil {
					return nil, nil, err
				}
				args[i] = t
			}
			ret := types.Unit
			if decl.Ret != nil {
				t, err := ResolveType(*decl.Ret)
				if err != nil {
					return nil, nil, err
				}
				ret = t
			}
			h.Add(decl.Name, types.Signature{Args: args, Ret: ret})
		case *ast.ExternalDecl:
			for _, head := range decl.Headers {
				qname := decl.Name + "::" + head.Name
				ret := types.Unit
				if head.Ret != nil {
					t, err := ResolveType(*head.Ret)
					if err != nil {
						return nil, nil, err
					}
					ret = t
				}
				if head.Types == nil {
					externals[qname] = ret
					continue
				}
				args := make([]types.Typ, len(head.Types))
				for i, te := range head.Types {
					t, err := ResolveType(te)
					if err != nil {
						return nil, nil, err
					}
					args[i] = t
				}
				h.Add(qname, types.Signature{Args: args, Ret: ret})
			}
		}
	}
	return h, externals, nil
}

// LowerPolicy lowers every fn declaration in policy to a corelang.FnDef,
// keyed by name.
func LowerPolicy(policy *ast.Policy) (map[string]*FnDef, error) {
	h, externals, err := BuildHeaders(policy)
	if err != nil {
		return nil, err
	}
	out := map[string]*FnDef{}
	for _, d := range policy.Decls {
		fd, ok := d.(*ast.FnDecl)
		if !ok {
			continue
		}
		lowered, err := lowerFnDecl(fd, h, externals)
		if err != nil {
			return nil, err
		}
		out[fd.Name] = lowered
	}
	return out, nil
}

func lowerFnDecl(fd *ast.FnDecl, h *headers.Table, externals map[string]types.Typ) (*FnDef, error) {
	ls := newLowerState(h, externals)
	sc := newScope()
	for _, p := range fd.Params {
		t, err := ResolveType(p.Typ)
		if err != nil {
			return nil, err
		}
		sc = sc.withVar(p.Name, t)
	}
	if fd.Ret != nil {
		t, err := ResolveType(*fd.Ret)
		if err != nil {
			return nil, err
		}
		ls.retType = &t
		ls.retTypeKnow = true
	}
	body, _, err := lowerBlock(fd.Body, sc, ls)
	if err != nil {
		return nil, err
	}
	// Curry one Closure level per parameter, outermost first, so Apply can
	// beta-reduce arguments left to right (spec.md §4.E, grounded on
	// `let_expr`'s closure-wrapping scheme).
	for i := len(fd.Params) - 1; i >= 0; i-- {
		body = abstractParam(body, fd.Params[i].Name)
	}
	return &FnDef{Name: fd.Name, Params: fd.Params, Ret: ls.effectiveRet(), Body: body, Calls: ls.calls}, nil
}

func (ls *lowerState) effectiveRet() types.Typ {
	if ls.retType != nil {
		return *ls.retType
	}
	return types.Unit
}

// lowerBlock lowers a statement sequence (spec.md §4.E `from_block_stmt`):
// a trailing `return e` terminates the block and wraps its value in Return;
// a `let` statement's remaining statements become its De Bruijn-bound
// continuation; any other non-final statement must end in `;` and is
// sequenced with the rest in a BlockSeq Block.
func lowerBlock(b ast.Block, sc scope, ls *lowerState) (Expr, types.Typ, error) {
	return lowerStmts(b.Stmts, sc, ls, b.Loc)
}

func lowerStmts(stmts []ast.Stmt, sc scope, ls *lowerState, blockLoc types.Loc) (Expr, types.Typ, error) {
	if len(stmts) == 0 {
		return Block{Kind: BlockSeq, Typ: types.Unit}, types.Unit, nil
	}
	stmt, rest := stmts[0], stmts[1:]

	switch s := stmt.(type) {
	case ast.ReturnStmt:
		if len(rest) != 0 {
			return nil, types.Typ{}, errAt(blockLoc, "unreachable code after return")
		}
		e, typ, err := lowerExpr(s.E, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		if ls.retType != nil {
			if !typ.Unifies(*ls.retType) {
				return nil, types.Typ{}, errAt(blockLoc, "return type %s does not match expected %s", typ, *ls.retType)
			}
		} else {
			ls.retType = &typ
		}
		return Block{Kind: BlockSeq, Elems: []Expr{Return{Expr: e, Typ: types.Return}}, Typ: types.Return}, types.Return, nil

	case ast.LetStmt:
		e1, _, err := lowerExpr(s.E, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		t1 := e1.Type()
		if len(s.Names) == 1 && s.Names[0] == "_" {
			rest2, typ2, err := lowerStmts(rest, sc, ls, blockLoc)
			if err != nil {
				return nil, types.Typ{}, err
			}
			return Block{Kind: BlockSeq, Elems: []Expr{e1, rest2}, Typ: typ2}, typ2, nil
		}
		nsc := sc
		if len(s.Names) == 1 {
			nsc = sc.withVar(s.Names[0], t1)
		} else {
			elemTypes := t1.Elems
			if len(elemTypes) != len(s.Names) {
				return nil, types.Typ{}, errAt(blockLoc, "let destructures %d names but value has %d components", len(s.Names), len(elemTypes))
			}
			for i, n := range s.Names {
				if n == "_" {
					continue
				}
				nsc = nsc.withVar(n, elemTypes[i])
			}
		}
		rest2, typ2, err := lowerStmts(rest, nsc, ls, blockLoc)
		if err != nil {
			return nil, types.Typ{}, err
		}
		return Let{Names: s.Names, E1: e1, E2: wrapBinders(s.Names, rest2), Typ: typ2}, typ2, nil

	case ast.ExprStmt:
		inner := sc
		if s.Async {
			inner = sc.withAsync(true)
		}
		e1, typ1, err := lowerExpr(s.E, inner, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		if len(rest) == 0 {
			if s.Semi {
				return e1, types.Unit, nil
			}
			return e1, typ1, nil
		}
		if !s.Semi {
			return nil, types.Typ{}, errAt(blockLoc, "missing semicolon after non-final expression")
		}
		rest2, typ2, err := lowerStmts(rest, sc, ls, blockLoc)
		if err != nil {
			return nil, types.Typ{}, err
		}
		return Block{Kind: BlockSeq, Elems: []Expr{e1, rest2}, Typ: typ2}, typ2, nil
	}
	return nil, types.Typ{}, errAt(blockLoc, "unsupported statement form")
}

// wrapBinders nests one Closure per name (innermost = last name), abs-ing
// each name's free occurrences in body as it wraps (spec.md §4.E
// `let_expr`/`closure_expr`).
func wrapBinders(names []string, body Expr) Expr {
	c := body
	for i := len(names) - 1; i >= 0; i-- {
		c = Closure{Param: names[i], Body: abs(c, 0, names[i])}
	}
	return c
}

func lowerExpr(le ast.LocExpr, sc scope, ls *lowerState) (Expr, types.Typ, error) {
	loc := le.Loc
	switch n := le.Expr.(type) {
	case ast.Ident:
		t, ok := sc.vars[n.Name]
		if !ok {
			return nil, types.Typ{}, errAt(loc, "undeclared variable %q", n.Name)
		}
		return Var{Name: n.Name, Typ: t}, t, nil

	case ast.IntLit:
		return Lit{Value: literals.I64(n.Value)}, types.I64, nil
	case ast.FloatLit:
		return Lit{Value: literals.F64(n.Value)}, types.F64, nil
	case ast.BoolLit:
		return Lit{Value: literals.Bool(n.Value)}, types.Bool, nil
	case ast.StringLit:
		return Lit{Value: literals.Str(n.Value)}, types.Str, nil
	case ast.ByteStringLit:
		return Lit{Value: literals.Data(n.Value)}, types.Data, nil
	case ast.LabelLit:
		return Lit{Value: literals.NewLabel(n.Value)}, types.Label, nil

	case ast.ListExpr:
		elems := make([]Expr, len(n.Elems))
		elemTyp := types.Return
		for i, el := range n.Elems {
			e, t, err := lowerExpr(el, sc, ls)
			if err != nil {
				return nil, types.Typ{}, err
			}
			picked, ok := types.Pick(elemTyp, t)
			if !ok {
				return nil, types.Typ{}, errAt(el.Loc, "list element type %s does not unify with preceding elements (%s)", t, elemTyp)
			}
			elemTyp = picked
			elems[i] = e
		}
		return Block{Kind: BlockList, Elems: elems, Typ: types.List(elemTyp)}, types.List(elemTyp), nil

	case ast.TupleExpr:
		elems := make([]Expr, len(n.Elems))
		elemTypes := make([]types.Typ, len(n.Elems))
		for i, el := range n.Elems {
			e, t, err := lowerExpr(el, sc, ls)
			if err != nil {
				return nil, types.Typ{}, err
			}
			elems[i] = e
			elemTypes[i] = t
		}
		typ := types.Tuple(elemTypes...)
		return Block{Kind: BlockTuple, Elems: elems, Typ: typ}, typ, nil

	case ast.PrefixExpr:
		e, t, err := lowerExpr(n.E, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		ret, err := prefixType(n.Op, t, n.E.Loc)
		if err != nil {
			return nil, types.Typ{}, err
		}
		return Prefix{Op: n.Op, Expr: e, Typ: ret}, ret, nil

	case ast.InfixExpr:
		e1, t1, err := lowerExpr(n.Left, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		e2, t2, err := lowerExpr(n.Right, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		ret, err := infixType(n.Op, t1, t2, loc)
		if err != nil {
			return nil, types.Typ{}, err
		}
		return Infix{Op: n.Op, Left: e1, Right: e2, Typ: ret}, ret, nil

	case ast.IfExpr:
		cond, ctyp, err := lowerExpr(n.Cond, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		if !ctyp.Unifies(types.Bool) {
			return nil, types.Typ{}, errAt(n.Cond.Loc, "if condition must be Bool, got %s", ctyp)
		}
		then, thenTyp, err := lowerBlock(n.Then, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		if n.Else == nil {
			if !thenTyp.Unifies(types.Unit) {
				return nil, types.Typ{}, errAt(loc, "if without else must have Unit body, got %s", thenTyp)
			}
			return If{Cond: cond, Then: then, Typ: types.Unit}, types.Unit, nil
		}
		alt, altTyp, err := lowerBlock(*n.Else, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		picked, ok := types.Pick(thenTyp, altTyp)
		if !ok {
			return nil, types.Typ{}, errAt(loc, "if branches diverge: %s vs %s", thenTyp, altTyp)
		}
		return If{Cond: cond, Then: then, Alt: alt, Typ: picked}, picked, nil

	case ast.IfLetSomeExpr:
		e, etyp, err := lowerExpr(n.E, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		if etyp.Kind != types.KOption {
			return nil, types.Typ{}, errAt(n.E.Loc, "expecting Option type in if-let, got %s", etyp)
		}
		elemTyp := *etyp.Elem
		innerSc := sc.withVar(n.Var, elemTyp)
		then, thenTyp, err := lowerBlock(n.Then, innerSc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		thenWrapped := Closure{Param: n.Var, Body: abs(then, 0, n.Var)}
		if n.Else == nil {
			if !thenTyp.Unifies(types.Unit) {
				return nil, types.Typ{}, errAt(loc, "if-let without else must have Unit body, got %s", thenTyp)
			}
			return IfSomeMatch{Expr: e, Then: thenWrapped, Typ: types.Unit}, types.Unit, nil
		}
		alt, altTyp, err := lowerBlock(*n.Else, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		picked, ok := types.Pick(thenTyp, altTyp)
		if !ok {
			return nil, types.Typ{}, errAt(loc, "if-let branches diverge: %s vs %s", thenTyp, altTyp)
		}
		return IfSomeMatch{Expr: e, Then: thenWrapped, Alt: alt, Typ: picked}, picked, nil

	case ast.IfMatchExpr:
		return lowerIfMatch(n, sc, ls, loc)

	case ast.IterExpr:
		return lowerIter(n, sc, ls, loc)

	case ast.CallExpr:
		return lowerCall(n, sc, ls, loc)
	}
	return nil, types.Typ{}, errAt(loc, "unsupported expression form %T", le.Expr)
}

func prefixType(op string, t types.Typ, loc types.Loc) (types.Typ, error) {
	switch op {
	case "!":
		if !t.Unifies(types.Bool) {
			return types.Typ{}, errAt(loc, "'!' requires Bool, got %s", t)
		}
		return types.Bool, nil
	case "-":
		if t.Equal(types.I64) {
			return types.I64, nil
		}
		if t.Equal(types.F64) {
			return types.F64, nil
		}
		return types.Typ{}, errAt(loc, "unary '-' requires I64 or F64, got %s", t)
	}
	return types.Typ{}, errAt(loc, "unknown prefix operator %q", op)
}

func infixType(op string, t1, t2 types.Typ, loc types.Loc) (types.Typ, error) {
	bothNumeric := func(want types.Typ) error {
		if !t1.Equal(want) || !t2.Equal(want) {
			return errAt(loc, "operator %q requires %s, %s, got %s, %s", op, want, want, t1, t2)
		}
		return nil
	}
	switch op {
	case "&&", "||":
		if !t1.Unifies(types.Bool) || !t2.Unifies(types.Bool) {
			return types.Typ{}, errAt(loc, "operator %q requires Bool operands, got %s, %s", op, t1, t2)
		}
		return types.Bool, nil
	case "==", "!=":
		if !t1.Unifies(t2) {
			return types.Typ{}, errAt(loc, "operator %q requires matching operand types, got %s, %s", op, t1, t2)
		}
		return types.Bool, nil
	case "<", "<=", ">", ">=":
		if bothNumeric(types.I64) == nil || bothNumeric(types.F64) == nil {
			return types.Bool, nil
		}
		return types.Typ{}, errAt(loc, "operator %q requires I64,I64 or F64,F64, got %s, %s", op, t1, t2)
	case "+", "-", "*", "/", "%":
		if bothNumeric(types.I64) == nil {
			return types.I64, nil
		}
		if bothNumeric(types.F64) == nil {
			return types.F64, nil
		}
		return types.Typ{}, errAt(loc, "operator %q requires I64,I64 or F64,F64, got %s, %s", op, t1, t2)
	case "++":
		if bothNumeric(types.Str) != nil {
			return types.Typ{}, errAt(loc, "operator '++' requires Str, Str, got %s, %s", t1, t2)
		}
		return types.Str, nil
	case "@":
		if t1.Kind != types.KList || !t1.Unifies(t2) {
			return types.Typ{}, errAt(loc, "operator '@' requires two lists of the same element type, got %s, %s", t1, t2)
		}
		return t1, nil
	case "in":
		if t2.Kind != types.KList || !t2.Elem.Unifies(t1) {
			return types.Typ{}, errAt(loc, "operator 'in' requires elem, List<elem>, got %s, %s", t1, t2)
		}
		return types.Bool, nil
	}
	return types.Typ{}, errAt(loc, "unknown infix operator %q", op)
}

func lowerIfMatch(n ast.IfMatchExpr, sc scope, ls *lowerState, loc types.Loc) (Expr, types.Typ, error) {
	arms := make([]IfMatchArm, len(n.Scrutinees))
	captureTypes := map[string]types.Typ{}
	var order []string

	for i, m := range n.Scrutinees {
		se, styp, err := lowerExpr(m.Scrutinee, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		arm := IfMatchArm{Scrutinee: se, Pattern: m.Pattern}
		switch m.Pattern.Kind {
		case ast.PatternRegex:
			if !styp.Equal(types.Str) {
				return nil, types.Typ{}, errAt(m.Scrutinee.Loc, "regex-pattern scrutinee must be Str, got %s", styp)
			}
			cp, err := literals.CompilePattern(m.Pattern.Regex)
			if err != nil {
				return nil, types.Typ{}, errAt(m.Scrutinee.Loc, "%s", err)
			}
			arm.Compiled = cp
			for name, bt := range cp.BinderNames() {
				if _, dup := captureTypes[name]; dup {
					return nil, types.Typ{}, errAt(loc, "repeated capture variable %q in if-matches", name)
				}
				captureTypes[name] = binderTyp(bt)
				order = append(order, name)
			}
		case ast.PatternLabel:
			if !styp.Equal(types.Label) {
				return nil, types.Typ{}, errAt(m.Scrutinee.Loc, "label-pattern scrutinee must be Label, got %s", styp)
			}
			for _, seg := range m.Pattern.Label.Segs {
				if seg.Name == "" {
					continue
				}
				if _, dup := captureTypes[seg.Name]; dup {
					return nil, types.Typ{}, errAt(loc, "repeated capture variable %q in if-matches", seg.Name)
				}
				segTyp := types.Str
				if seg.Kind == ast.LabelWildcardMany {
					segTyp = types.List(types.Str)
				}
				captureTypes[seg.Name] = segTyp
				order = append(order, seg.Name)
			}
		}
		arms[i] = arm
	}

	innerSc := sc
	for _, name := range order {
		innerSc = innerSc.withVar(name, captureTypes[name])
	}
	then, thenTyp, err := lowerBlock(n.Then, innerSc, ls)
	if err != nil {
		return nil, types.Typ{}, err
	}
	thenWrapped := wrapBinders(order, then)

	if n.Else == nil {
		if !thenTyp.Unifies(types.Unit) {
			return nil, types.Typ{}, errAt(loc, "if-matches without else must have Unit body, got %s", thenTyp)
		}
		return IfMatch{Names: order, Arms: arms, Then: thenWrapped, Typ: types.Unit}, types.Unit, nil
	}
	alt, altTyp, err := lowerBlock(*n.Else, sc, ls)
	if err != nil {
		return nil, types.Typ{}, err
	}
	picked, ok := types.Pick(thenTyp, altTyp)
	if !ok {
		return nil, types.Typ{}, errAt(loc, "if-matches branches diverge: %s vs %s", thenTyp, altTyp)
	}
	return IfMatch{Names: order, Arms: arms, Then: thenWrapped, Alt: alt, Typ: picked}, picked, nil
}

func binderTyp(bt ast.BinderType) types.Typ {
	switch bt {
	case ast.BinderI64:
		return types.I64
	case ast.BinderBase64:
		return types.Data
	default:
		return types.Str
	}
}

func lowerIter(n ast.IterExpr, sc scope, ls *lowerState, loc types.Loc) (Expr, types.Typ, error) {
	listExpr, listTyp, err := lowerExpr(n.List, sc, ls)
	if err != nil {
		return nil, types.Typ{}, err
	}
	if listTyp.Kind != types.KList {
		return nil, types.Typ{}, errAt(n.List.Loc, "%s requires a List operand, got %s", n.Op, listTyp)
	}
	elemTyp := *listTyp.Elem

	bodySc := sc
	var names []string
	if len(n.Idents) == 1 {
		names = []string{n.Idents[0]}
		bodySc = bodySc.withVar(n.Idents[0], elemTyp)
	} else {
		if elemTyp.Kind != types.KTuple || len(elemTyp.Elems) != len(n.Idents) {
			return nil, types.Typ{}, errAt(loc, "%s destructures %d names but list element type is %s", n.Op, len(n.Idents), elemTyp)
		}
		names = append(names, n.Idents...)
		for i, name := range n.Idents {
			bodySc = bodySc.withVar(name, elemTyp.Elems[i])
		}
	}

	if n.Op == ast.IterFold && n.Acc == nil {
		return nil, types.Typ{}, errAt(loc, "fold requires a `where acc = ...` clause")
	}
	var accExpr Expr
	var accTyp types.Typ
	if n.Acc != nil {
		ae, at, err := lowerExpr(n.Acc.Init, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		accExpr, accTyp = ae, at
		bodySc = bodySc.withVar(n.Acc.Name, accTyp)
		names = append(names, n.Acc.Name)
	}

	body, bodyTyp, err := lowerBlock(n.Body, bodySc, ls)
	if err != nil {
		return nil, types.Typ{}, err
	}

	switch n.Op {
	case ast.IterFilterMap:
		if bodyTyp.Kind != types.KOption {
			return nil, types.Typ{}, errAt(loc, "filter_map body must be Option<T>, got %s", bodyTyp)
		}
	case ast.IterMap, ast.IterForeach, ast.IterFold:
		// any body type permitted
	default:
		if !bodyTyp.Unifies(types.Bool) {
			return nil, types.Typ{}, errAt(loc, "%s body must be Bool, got %s", n.Op, bodyTyp)
		}
	}

	bodyWrapped := wrapBinders(names, body)

	var resultTyp types.Typ
	switch n.Op {
	case ast.IterAll, ast.IterAny:
		resultTyp = types.Bool
	case ast.IterFilter:
		resultTyp = listTyp
	case ast.IterFilterMap:
		resultTyp = types.List(*bodyTyp.Elem)
	case ast.IterMap:
		resultTyp = types.List(bodyTyp)
	case ast.IterForeach:
		resultTyp = types.Unit
	case ast.IterFold:
		resultTyp = accTyp
	}

	return Iter{Op: n.Op, Names: names, E1: listExpr, Body: bodyWrapped, Acc: accExpr, Typ: resultTyp}, resultTyp, nil
}

func lowerCall(n ast.CallExpr, sc scope, ls *lowerState, loc types.Loc) (Expr, types.Typ, error) {
	args := make([]Expr, len(n.Args))
	argTypes := make([]types.Typ, len(n.Args))
	for i, a := range n.Args {
		e, t, err := lowerExpr(a, sc, ls)
		if err != nil {
			return nil, types.Typ{}, err
		}
		args[i] = e
		argTypes[i] = t
	}

	// option::Some is the one builtin whose return type depends on the
	// argument's inferred type rather than a fixed signature (spec.md §4.E,
	// grounded on the original's special-cased "option::Some" arm).
	if n.Name == "option::Some" && len(args) == 1 {
		ls.calls[n.Name] = true
		return Call{Function: n.Name, Args: args, Typ: types.Option(argTypes[0])}, types.Option(argTypes[0]), nil
	}

	// Candidate names to resolve, in order: the bare name (plain function
	// calls, and already-qualified names like "HttpRequest::GET" produced
	// by `::`-call syntax), then the dot-call-sugar qualification `T::m`
	// where T is the static type of the receiver (arg 0) — the parser
	// leaves `x.m(args)` as CallExpr{Name:"m", Args:[x, args...]} unqualified,
	// so lowering must requalify it exactly as the original's `.::m` ->
	// `T::m` rewrite does (spec.md §4.B, §4.D).
	candidates := []string{n.Name}
	if len(argTypes) > 0 {
		candidates = append(candidates, headers.QualifiedMethod(argTypes[0], n.Name))
	}

	for _, cand := range candidates {
		if sig, err := ls.headers.Resolve(cand, argTypes); err == nil {
			ret := adjustBuiltinReturn(cand, argTypes, sig.Ret)
			ls.calls[cand] = true
			isAsync := ret.Equal(types.Unit) && sc.asyncTag
			return Call{Function: cand, Args: args, IsAsync: isAsync, Typ: ret}, ret, nil
		}
		if ret, ok := ls.externals[cand]; ok {
			ls.calls[cand] = true
			isAsync := ret.Equal(types.Unit) && sc.asyncTag
			return Call{Function: cand, Args: args, IsAsync: isAsync, Typ: ret}, ret, nil
		}
	}
	// Tuple-index call: `x.0` rewrites to CallExpr{"0", [x]} (spec.md §4.B).
	if idx, convErr := strconv.Atoi(n.Name); convErr == nil && len(argTypes) == 1 && argTypes[0].Kind == types.KTuple {
		elems := argTypes[0].Elems
		if idx < 0 || idx >= len(elems) {
			return nil, types.Typ{}, errAt(loc, "tuple index %d out of range for %s", idx, argTypes[0])
		}
		return Call{Function: n.Name, Args: args, Typ: elems[idx]}, elems[idx], nil
	}
	return nil, types.Typ{}, errAt(loc, "undeclared function %q", n.Name)
}

// adjustBuiltinReturn special-cases the handful of builtins whose return
// type isn't a fixed Signature.Ret but derives from an argument's concrete
// type (spec.md §6, grounded on the original's post-lookup match on
// function name: list::reduce/difference/intersection).
func adjustBuiltinReturn(name string, argTypes []types.Typ, declared types.Typ) types.Typ {
	switch name {
	case "list::reduce":
		if len(argTypes) > 0 && argTypes[0].Kind == types.KList {
			return types.Option(*argTypes[0].Elem)
		}
	case "list::difference", "list::intersection":
		if len(argTypes) > 0 {
			return argTypes[0]
		}
	}
	return declared
}
