// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package ast_test

import (
	"testing"

	"github.com/holomush/armour/internal/policy/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_S1_TypeCheckFn(t *testing.T) {
	pol, err := ast.Parse("", `fn f(x: i64) -> i64 { x + 1 }`)
	require.NoError(t, err)
	require.Len(t, pol.Decls, 1)
	fn, ok := pol.Decls[0].(*ast.FnDecl)
	require.True(t, ok)
	assert.Equal(t, "f", fn.Name)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "x", fn.Params[0].Name)
	assert.Equal(t, "i64", fn.Params[0].Typ.Name)
	require.NotNil(t, fn.Ret)
	assert.Equal(t, "i64", fn.Ret.Name)
	require.Len(t, fn.Body.Stmts, 1)
	stmt, ok := fn.Body.Stmts[0].(ast.ExprStmt)
	require.True(t, ok)
	infix, ok := stmt.E.Expr.(ast.InfixExpr)
	require.True(t, ok)
	assert.Equal(t, "+", infix.Op)
}

func TestParse_S2_RegexBind(t *testing.T) {
	src := `fn g(s: Str) -> Option<i64> { if s matches "x=" [n as i64] { return Some(n) } else { return None } }`
	pol, err := ast.Parse("", src)
	require.NoError(t, err)
	fn := pol.Decls[0].(*ast.FnDecl)
	require.Len(t, fn.Body.Stmts, 1)
	ifm, ok := fn.Body.Stmts[0].(ast.ExprStmt).E.Expr.(ast.IfMatchExpr)
	require.True(t, ok)
	require.Len(t, ifm.Scrutinees, 1)
	pat := ifm.Scrutinees[0].Pattern
	require.Equal(t, ast.PatternRegex, pat.Kind)
	require.Len(t, pat.Regex.Alts, 1)
	terms := pat.Regex.Alts[0].Terms
	require.Len(t, terms, 2)
	assert.Equal(t, ast.RegexLiteral, terms[0].Kind)
	assert.Equal(t, "x=", terms[0].Literal)
	assert.Equal(t, ast.RegexBinder, terms[1].Kind)
	assert.Equal(t, "n", terms[1].Binder.Name)
	assert.Equal(t, ast.BinderI64, terms[1].Binder.Typ)
}

func TestParse_S3_LabelMatch(t *testing.T) {
	src := `fn h(id: ID) -> Bool { id matches 'app::*::db' }`
	pol, err := ast.Parse("", src)
	require.NoError(t, err)
	fn := pol.Decls[0].(*ast.FnDecl)
	require.Len(t, fn.Body.Stmts, 1)
	expr := fn.Body.Stmts[0].(ast.ExprStmt).E.Expr
	_ = expr
}

func TestParse_S4_ShortCircuit(t *testing.T) {
	pol, err := ast.Parse("", `fn k() -> Bool { true || (1/0 == 0) }`)
	require.NoError(t, err)
	fn := pol.Decls[0].(*ast.FnDecl)
	infix, ok := fn.Body.Stmts[0].(ast.ExprStmt).E.Expr.(ast.InfixExpr)
	require.True(t, ok)
	assert.Equal(t, "||", infix.Op)
}

func TestParse_S5_Fold(t *testing.T) {
	pol, err := ast.Parse("", `fn m() -> i64 { fold x in [1, 2, 3, 4] { acc + x } where acc = 0 }`)
	require.NoError(t, err)
	fn := pol.Decls[0].(*ast.FnDecl)
	iter, ok := fn.Body.Stmts[0].(ast.ExprStmt).E.Expr.(ast.IterExpr)
	require.True(t, ok)
	assert.Equal(t, ast.IterFold, iter.Op)
	require.NotNil(t, iter.Acc)
	assert.Equal(t, "acc", iter.Acc.Name)
}

func TestParse_ExternalDecl(t *testing.T) {
	pol, err := ast.Parse("", `external notify @ "http://collab.local" { fn send(Str) -> Unit; fn ping(_) -> Bool; }`)
	require.NoError(t, err)
	ext, ok := pol.Decls[0].(*ast.ExternalDecl)
	require.True(t, ok)
	assert.Equal(t, "notify", ext.Name)
	assert.Equal(t, "http://collab.local", ext.URL)
	require.Len(t, ext.Headers, 2)
	assert.Equal(t, "send", ext.Headers[0].Name)
	require.Len(t, ext.Headers[0].Types, 1)
	assert.Equal(t, "Str", ext.Headers[0].Types[0].Name)
	assert.Equal(t, "ping", ext.Headers[1].Name)
	assert.Nil(t, ext.Headers[1].Types)
}

func TestParse_DotChainRewrite(t *testing.T) {
	pol, err := ast.Parse("", `fn m(req: HttpRequest) -> Str { req.method() }`)
	require.NoError(t, err)
	fn := pol.Decls[0].(*ast.FnDecl)
	call, ok := fn.Body.Stmts[0].(ast.ExprStmt).E.Expr.(ast.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "method", call.Name)
	require.Len(t, call.Args, 1)
	_, ok = call.Args[0].Expr.(ast.Ident)
	require.True(t, ok)
}

func TestParse_TupleIndexRewrite(t *testing.T) {
	pol, err := ast.Parse("", `fn m(t: (i64, i64)) -> i64 { t.0 }`)
	require.NoError(t, err)
	fn := pol.Decls[0].(*ast.FnDecl)
	call, ok := fn.Body.Stmts[0].(ast.ExprStmt).E.Expr.(ast.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "0", call.Name)
}

func TestParse_PrettyPrintRoundTripsSyntactically(t *testing.T) {
	pol, err := ast.Parse("", `fn f(x: i64) -> i64 { x + 1 }`)
	require.NoError(t, err)
	printed := pol.String()
	reparsed, err := ast.Parse("", printed)
	require.NoError(t, err)
	assert.Equal(t, printed, reparsed.String())
}
