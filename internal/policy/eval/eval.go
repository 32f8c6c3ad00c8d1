// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package eval implements the single-threaded reduction relation over
// internal/policy/corelang terms (spec.md §4.G): a small-step-to-value
// interpreter dispatching Call nodes to user-defined functions, the
// literals.Methods builtin registry, or an external collaborator, with
// depth-limited recursion matching the teacher's evalCondition nesting
// guard (internal/access/policy/dsl/evaluator.go).
package eval

import (
	"context"
	"fmt"

	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/literals"
	"github.com/holomush/armour/internal/policy/types"
)

// MaxNestingDepth bounds recursive reduction to guard against runaway
// user-function recursion (grounded on the teacher's MaxNestingDepth /
// depthExceeded pattern in internal/access/policy/dsl).
const MaxNestingDepth = 256

// Error is a reduction failure: division by zero, an external call that
// failed, recursion past MaxNestingDepth, or an unresolvable call target.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// External dispatches a call to a named collaborator outside the policy
// (spec.md §4.B "external" declarations): the RPC client for a declared
// `external Name @ "url"`, or the metadata actor for ingress/egress
// lookups. Implementations live in internal/rpcclient and
// internal/metadataactor; this interface keeps eval decoupled from both
// so it can be tested with a fake.
type External interface {
	Call(ctx context.Context, qualifiedName string, args []literals.Literal) (literals.Literal, error)
}

// Env is the evaluation environment: the program's lowered functions,
// looked up by name for user-function calls, and the external dispatcher
// for calls literals.Methods doesn't recognize.
type Env struct {
	Funcs    map[string]*corelang.FnDef
	External External
}

// result carries a Return short-circuit without panic/recover: once
// returned is true, every caller up the Block/Let/If chain stops
// evaluating further siblings and propagates the value unchanged.
type result struct {
	value    literals.Literal
	returned bool
}

// Eval reduces e to a runtime value under env. e may still carry enclosing
// Closures (e.g. a FnDef.Body called directly); pass a fully-applied
// top-level expression for a one-shot evaluation, or use evalCall's
// Subst-as-you-go path for invoking a named function with arguments.
// depth is the current reduction-nesting level (each nested sub-expression
// and each call adds one); pass 0 at a fresh top-level call.
func Eval(ctx context.Context, env *Env, e corelang.Expr, depth int) (literals.Literal, error) {
	r, err := eval(ctx, env, e, depth)
	if err != nil {
		return nil, err
	}
	return r.value, nil
}

// CallFunction invokes the named top-level function with args, beta-reducing
// one Closure per argument before evaluating the body (spec.md §4.G "calling
// a user function applies its curried Closure chain"). This is the entry
// point callers (the CLI's `eval`/`check` subcommands, the gRPC data-plane
// handler) use to run a policy's decision function.
func CallFunction(ctx context.Context, env *Env, name string, args []literals.Literal) (literals.Literal, error) {
	fn, ok := env.Funcs[name]
	if !ok {
		return nil, errf("no such function %q", name)
	}
	body := fn.Body
	for _, a := range args {
		c, ok := body.(corelang.Closure)
		if !ok {
			return nil, errf("too many arguments calling %q", name)
		}
		body = corelang.Subst(c.Body, 0, corelang.Lit{Value: a})
	}
	if _, ok := body.(corelang.Closure); ok {
		return nil, errf("too few arguments calling %q", name)
	}
	return Eval(ctx, env, body, 0)
}

func eval(ctx context.Context, env *Env, e corelang.Expr, depth int) (result, error) {
	if depth > MaxNestingDepth {
		return result{}, errf("recursion exceeds max nesting depth %d", MaxNestingDepth)
	}

	switch n := e.(type) {
	case corelang.Lit:
		return result{value: n.Value}, nil

	case corelang.Var:
		return result{}, errf("internal error: free variable %q reached evaluation", n.Name)
	case corelang.BVar:
		return result{}, errf("internal error: unresolved bound variable %q (index %d) reached evaluation", n.Name, n.Index)
	case corelang.Closure:
		return result{}, errf("internal error: unapplied closure reached evaluation")

	case corelang.Return:
		r, err := eval(ctx, env, n.Expr, depth)
		if err != nil {
			return result{}, err
		}
		return result{value: r.value, returned: true}, nil

	case corelang.Prefix:
		return evalPrefix(ctx, env, n, depth)
	case corelang.Infix:
		return evalInfix(ctx, env, n, depth)

	case corelang.Block:
		return evalBlock(ctx, env, n, depth)
	case corelang.Let:
		return evalLet(ctx, env, n, depth)
	case corelang.Iter:
		return evalIter(ctx, env, n, depth)
	case corelang.If:
		return evalIf(ctx, env, n, depth)
	case corelang.IfSomeMatch:
		return evalIfSomeMatch(ctx, env, n, depth)
	case corelang.IfMatch:
		return evalIfMatch(ctx, env, n, depth)
	case corelang.Call:
		return evalCall(ctx, env, n, depth)
	}
	return result{}, errf("unsupported core expression %T", e)
}

func evalPrefix(ctx context.Context, env *Env, n corelang.Prefix, depth int) (result, error) {
	r, err := eval(ctx, env, n.Expr, depth+1)
	if err != nil || r.returned {
		return r, err
	}
	v, err := ApplyPrefix(n.Op, r.value)
	if err != nil {
		return result{}, err
	}
	return result{value: v}, nil
}

// ApplyPrefix reduces a unary operator over a runtime literal. Exported so
// internal/policy/specialize can fold constant prefix expressions using the
// exact same operator semantics as full evaluation.
func ApplyPrefix(op string, v literals.Literal) (literals.Literal, error) {
	switch op {
	case "!":
		b, ok := v.(literals.Bool)
		if !ok {
			return nil, errf("'!' requires Bool, got %T", v)
		}
		return literals.Bool(!bool(b)), nil
	case "-":
		switch n := v.(type) {
		case literals.I64:
			return -n, nil
		case literals.F64:
			return -n, nil
		default:
			return nil, errf("unary '-' requires I64 or F64, got %T", v)
		}
	}
	return nil, errf("unknown prefix operator %q", op)
}

func evalInfix(ctx context.Context, env *Env, n corelang.Infix, depth int) (result, error) {
	// Short-circuit And/Or (spec.md §4.G "&&/|| short-circuit").
	if n.Op == "&&" || n.Op == "||" {
		lr, err := eval(ctx, env, n.Left, depth+1)
		if err != nil || lr.returned {
			return lr, err
		}
		lb, ok := lr.value.(literals.Bool)
		if !ok {
			return result{}, errf("operator %q requires Bool operands, got %T", n.Op, lr.value)
		}
		if n.Op == "&&" && !bool(lb) {
			return result{value: literals.Bool(false)}, nil
		}
		if n.Op == "||" && bool(lb) {
			return result{value: literals.Bool(true)}, nil
		}
		return eval(ctx, env, n.Right, depth+1)
	}

	lr, err := eval(ctx, env, n.Left, depth+1)
	if err != nil || lr.returned {
		return lr, err
	}
	rr, err := eval(ctx, env, n.Right, depth+1)
	if err != nil || rr.returned {
		return rr, err
	}
	v, err := ApplyInfix(n.Op, lr.value, rr.value)
	if err != nil {
		return result{}, err
	}
	return result{value: v}, nil
}

// ApplyInfix reduces a binary operator over two runtime literals, including
// short-circuit-free equality/list/string operators. Exported for reuse by
// internal/policy/specialize's constant folding.
func ApplyInfix(op string, l, r literals.Literal) (literals.Literal, error) {
	switch op {
	case "==":
		return literals.Bool(LiteralsEqual(l, r)), nil
	case "!=":
		return literals.Bool(!LiteralsEqual(l, r)), nil
	case "++":
		ls, lok := l.(literals.Str)
		rs, rok := r.(literals.Str)
		if !lok || !rok {
			return nil, errf("'++' requires two Strs, got %T, %T", l, r)
		}
		return literals.Str(string(ls) + string(rs)), nil
	case "@":
		ll, lok := l.(literals.List)
		rl, rok := r.(literals.List)
		if !lok || !rok {
			return nil, errf("'@' requires two Lists, got %T, %T", l, r)
		}
		items := make([]literals.Literal, 0, len(ll.Items)+len(rl.Items))
		items = append(items, ll.Items...)
		items = append(items, rl.Items...)
		return literals.List{Elem: ll.Elem, Items: items}, nil
	case "in":
		rl, ok := r.(literals.List)
		if !ok {
			return nil, errf("'in' requires a List on the right, got %T", r)
		}
		for _, it := range rl.Items {
			if LiteralsEqual(l, it) {
				return literals.Bool(true), nil
			}
		}
		return literals.Bool(false), nil
	}

	switch li := l.(type) {
	case literals.I64:
		ri, ok := r.(literals.I64)
		if !ok {
			return nil, errf("operator %q requires I64, I64, got %T, %T", op, l, r)
		}
		switch op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "/":
			if ri == 0 {
				return nil, errf("division by zero")
			}
			return li / ri, nil
		case "%":
			if ri == 0 {
				return nil, errf("division by zero")
			}
			return li % ri, nil
		case "<":
			return literals.Bool(li < ri), nil
		case "<=":
			return literals.Bool(li <= ri), nil
		case ">":
			return literals.Bool(li > ri), nil
		case ">=":
			return literals.Bool(li >= ri), nil
		}
	case literals.F64:
		rf, ok := r.(literals.F64)
		if !ok {
			return nil, errf("operator %q requires F64, F64, got %T, %T", op, l, r)
		}
		switch op {
		case "+":
			return li + rf, nil
		case "-":
			return li - rf, nil
		case "*":
			return li * rf, nil
		case "/":
			if rf == 0 {
				return nil, errf("division by zero")
			}
			return li / rf, nil
		case "<":
			return literals.Bool(li < rf), nil
		case "<=":
			return literals.Bool(li <= rf), nil
		case ">":
			return literals.Bool(li > rf), nil
		case ">=":
			return literals.Bool(li >= rf), nil
		}
	}
	return nil, errf("unsupported operator %q for operand types %T, %T", op, l, r)
}

// LiteralsEqual reports structural equality between two runtime literals by
// comparing their kinds and String renderings, which is exact for every
// scalar/collection literal kind this language produces (spec.md §4.F
// values are all structurally comparable).
func LiteralsEqual(a, b literals.Literal) bool {
	if a.Type().Kind != b.Type().Kind {
		return false
	}
	return a.String() == b.String()
}

func evalBlock(ctx context.Context, env *Env, n corelang.Block, depth int) (result, error) {
	switch n.Kind {
	case corelang.BlockList:
		elem := types.Return
		items := make([]literals.Literal, len(n.Elems))
		for i, el := range n.Elems {
			r, err := eval(ctx, env, el, depth+1)
			if err != nil {
				return result{}, err
			}
			if r.returned {
				return r, nil
			}
			items[i] = r.value
			if i == 0 {
				elem = r.value.Type()
			}
		}
		return result{value: literals.List{Elem: elem, Items: items}}, nil
	case corelang.BlockTuple:
		items := make([]literals.Literal, len(n.Elems))
		for i, el := range n.Elems {
			r, err := eval(ctx, env, el, depth+1)
			if err != nil {
				return result{}, err
			}
			if r.returned {
				return r, nil
			}
			items[i] = r.value
		}
		return result{value: literals.Tuple{Items: items}}, nil
	default: // BlockSeq
		var last result
		for _, el := range n.Elems {
			r, err := eval(ctx, env, el, depth+1)
			if err != nil {
				return result{}, err
			}
			if r.returned {
				return r, nil
			}
			last = r
		}
		return last, nil
	}
}

func evalLet(ctx context.Context, env *Env, n corelang.Let, depth int) (result, error) {
	r, err := eval(ctx, env, n.E1, depth+1)
	if err != nil || r.returned {
		return r, err
	}
	body := bindNames(n.E2, n.Names, r.value)
	return eval(ctx, env, body, depth+1)
}

// bindNames substitutes a (possibly tuple-destructured) value into a
// binder chain built by corelang's wrapBinders: one Closure per name,
// outermost first, each carrying the corresponding tuple component (or
// the whole value when there is exactly one name).
func bindNames(body corelang.Expr, names []string, value literals.Literal) corelang.Expr {
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

func evalIf(ctx context.Context, env *Env, n corelang.If, depth int) (result, error) {
	cr, err := eval(ctx, env, n.Cond, depth+1)
	if err != nil || cr.returned {
		return cr, err
	}
	b, ok := cr.value.(literals.Bool)
	if !ok {
		return result{}, errf("if condition must reduce to Bool, got %T", cr.value)
	}
	if bool(b) {
		return eval(ctx, env, n.Then, depth+1)
	}
	if n.Alt == nil {
		return result{value: literals.UnitVal}, nil
	}
	return eval(ctx, env, n.Alt, depth+1)
}

func evalIfSomeMatch(ctx context.Context, env *Env, n corelang.IfSomeMatch, depth int) (result, error) {
	r, err := eval(ctx, env, n.Expr, depth+1)
	if err != nil || r.returned {
		return r, err
	}
	opt, ok := r.value.(literals.Option)
	if !ok {
		return result{}, errf("if-let Some requires an Option value, got %T", r.value)
	}
	if !opt.IsSome() {
		if n.Alt == nil {
			return result{value: literals.UnitVal}, nil
		}
		return eval(ctx, env, n.Alt, depth+1)
	}
	c, ok := n.Then.(corelang.Closure)
	if !ok {
		return result{}, errf("internal error: IfSomeMatch.Then is not a Closure")
	}
	body := corelang.Subst(c.Body, 0, corelang.Lit{Value: opt.Value})
	return eval(ctx, env, body, depth+1)
}

func evalIfMatch(ctx context.Context, env *Env, n corelang.IfMatch, depth int) (result, error) {
	captures := map[string]literals.Literal{}
	matched := true
	var order []string

	for _, arm := range n.Arms {
		r, err := eval(ctx, env, arm.Scrutinee, depth+1)
		if err != nil {
			return result{}, err
		}
		if r.returned {
			return r, nil
		}
		switch arm.Pattern.Kind {
		case ast.PatternRegex:
			s, ok := r.value.(literals.Str)
			if !ok {
				return result{}, errf("regex-pattern scrutinee must be Str, got %T", r.value)
			}
			binds, ok := arm.Compiled.Match(string(s))
			if !ok {
				matched = false
				continue
			}
			for name, bt := range arm.Compiled.BinderNames() {
				_ = bt
				captures[name] = binds[name]
				order = append(order, name)
			}
		case ast.PatternLabel:
			lbl, ok := r.value.(literals.Label)
			if !ok {
				return result{}, errf("label-pattern scrutinee must be Label, got %T", r.value)
			}
			binds, ok := lbl.MatchWith(arm.Pattern.Label)
			if !ok {
				matched = false
				continue
			}
			for name, v := range binds {
				captures[name] = v
				order = append(order, name)
			}
		}
		if !matched {
			break
		}
	}

	if !matched {
		if n.Alt == nil {
			return result{value: literals.UnitVal}, nil
		}
		return eval(ctx, env, n.Alt, depth+1)
	}

	body := n.Then
	for i := 0; i < len(n.Names); i++ {
		c, ok := body.(corelang.Closure)
		if !ok {
			break
		}
		body = corelang.Subst(c.Body, 0, corelang.Lit{Value: captures[n.Names[i]]})
	}
	_ = order
	return eval(ctx, env, body, depth+1)
}

func evalIter(ctx context.Context, env *Env, n corelang.Iter, depth int) (result, error) {
	lr, err := eval(ctx, env, n.E1, depth+1)
	if err != nil || lr.returned {
		return lr, err
	}
	list, ok := lr.value.(literals.List)
	if !ok {
		return result{}, errf("%v requires a List operand, got %T", n.Op, lr.value)
	}

	// applyBody evaluates one iteration step. A return inside the body
	// short-circuits the whole iteration: the caller must check r.returned
	// and, if set, stop iterating and propagate r as evalIter's own result
	// rather than folding r.value into the next step.
	applyBody := func(elem literals.Literal, acc *literals.Literal) (result, error) {
		var comps []literals.Literal
		if t, ok := elem.(literals.Tuple); ok && len(n.Names) > 1 && (acc == nil || len(n.Names) == len(t.Items)+1) {
			comps = append(comps, t.Items...)
		} else {
			comps = append(comps, elem)
		}
		if acc != nil {
			comps = append(comps, *acc)
		}
		body := n.Body
		for i := 0; i < len(comps); i++ {
			c, ok := body.(corelang.Closure)
			if !ok {
				break
			}
			body = corelang.Subst(c.Body, 0, corelang.Lit{Value: comps[i]})
		}
		return eval(ctx, env, body, depth+1)
	}

	switch n.Op {
	case ast.IterAll:
		for _, it := range list.Items {
			r, err := applyBody(it, nil)
			if err != nil || r.returned {
				return r, err
			}
			b, ok := r.value.(literals.Bool)
			if !ok {
				return result{}, errf("all body must be Bool")
			}
			if !bool(b) {
				return result{value: literals.Bool(false)}, nil
			}
		}
		return result{value: literals.Bool(true)}, nil
	case ast.IterAny:
		for _, it := range list.Items {
			r, err := applyBody(it, nil)
			if err != nil || r.returned {
				return r, err
			}
			b, ok := r.value.(literals.Bool)
			if !ok {
				return result{}, errf("any body must be Bool")
			}
			if bool(b) {
				return result{value: literals.Bool(true)}, nil
			}
		}
		return result{value: literals.Bool(false)}, nil
	case ast.IterFilter:
		out := make([]literals.Literal, 0, len(list.Items))
		for _, it := range list.Items {
			r, err := applyBody(it, nil)
			if err != nil || r.returned {
				return r, err
			}
			b, ok := r.value.(literals.Bool)
			if !ok {
				return result{}, errf("filter body must be Bool")
			}
			if bool(b) {
				out = append(out, it)
			}
		}
		return result{value: literals.List{Elem: list.Elem, Items: out}}, nil
	case ast.IterFilterMap:
		var elemTyp = list.Elem
		out := make([]literals.Literal, 0, len(list.Items))
		for _, it := range list.Items {
			r, err := applyBody(it, nil)
			if err != nil || r.returned {
				return r, err
			}
			opt, ok := r.value.(literals.Option)
			if !ok {
				return result{}, errf("filter_map body must be Option<T>")
			}
			if opt.IsSome() {
				elemTyp = opt.Elem
				out = append(out, opt.Value)
			}
		}
		return result{value: literals.List{Elem: elemTyp, Items: out}}, nil
	case ast.IterMap:
		out := make([]literals.Literal, len(list.Items))
		var elemTyp types.Typ
		for i, it := range list.Items {
			r, err := applyBody(it, nil)
			if err != nil || r.returned {
				return r, err
			}
			out[i] = r.value
			elemTyp = r.value.Type()
		}
		return result{value: literals.List{Elem: elemTyp, Items: out}}, nil
	case ast.IterForeach:
		for _, it := range list.Items {
			r, err := applyBody(it, nil)
			if err != nil || r.returned {
				return r, err
			}
		}
		return result{value: literals.UnitVal}, nil
	case ast.IterFold:
		accR, err := eval(ctx, env, n.Acc, depth+1)
		if err != nil || accR.returned {
			return accR, err
		}
		acc := accR.value
		for _, it := range list.Items {
			r, err := applyBody(it, &acc)
			if err != nil || r.returned {
				return r, err
			}
			acc = r.value
		}
		return result{value: acc}, nil
	}
	return result{}, errf("unsupported iteration operator %v", n.Op)
}

func evalCall(ctx context.Context, env *Env, n corelang.Call, depth int) (result, error) {
	args := make([]literals.Literal, len(n.Args))
	for i, a := range n.Args {
		r, err := eval(ctx, env, a, depth+1)
		if err != nil {
			return result{}, err
		}
		if r.returned {
			return r, nil
		}
		args[i] = r.value
	}

	// option::Some wraps its single argument directly (mirrors corelang's
	// lowering special case).
	if n.Function == "option::Some" && len(args) == 1 {
		return result{value: literals.Some(args[0])}, nil
	}

	// Tuple-index projection: `x.0` lowers to Call{Function:"0", Args:[x]}
	// (corelang.lowerCall's tuple-index special case); there is no
	// user-defined function or builtin named after a bare integer.
	if v, ok, err := literals.ProjectTuple(n.Function, args); ok {
		if err != nil {
			return result{}, err
		}
		return result{value: v}, nil
	}

	if fn, ok := env.Funcs[n.Function]; ok {
		body := fn.Body
		for _, a := range args {
			c, ok := body.(corelang.Closure)
			if !ok {
				return result{}, errf("internal error: arity mismatch applying %q", n.Function)
			}
			body = corelang.Subst(c.Body, 0, corelang.Lit{Value: a})
		}
		return eval(ctx, env, body, depth+1)
	}

	if method, ok := literals.Methods[n.Function]; ok {
		v, err := method(args)
		if err != nil {
			return result{}, err
		}
		if n.IsAsync {
			// Fire-and-forget: the call already ran synchronously above
			// (spec.md §4.G treats async as discarding the result, not
			// deferring the call); its value is dropped.
			return result{value: literals.UnitVal}, nil
		}
		return result{value: v}, nil
	}

	if env.External != nil {
		v, err := env.External.Call(ctx, n.Function, args)
		if err != nil {
			if n.IsAsync {
				return result{value: literals.UnitVal}, nil
			}
			return result{}, err
		}
		if n.IsAsync {
			return result{value: literals.UnitVal}, nil
		}
		return result{value: v}, nil
	}

	return result{}, errf("no user function, builtin, or external collaborator registered for %q", n.Function)
}
