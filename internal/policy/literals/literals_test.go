// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package literals_test

import (
	"testing"

	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/literals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePattern_NamedBinders(t *testing.T) {
	rx := &ast.RegexPattern{
		Alts: []ast.RegexSeq{{Terms: []ast.RegexTerm{
			{Kind: ast.RegexLiteral, Literal: "n="},
			{Kind: ast.RegexBinder, Binder: &ast.RegexBinder{Name: "n", Typ: ast.BinderI64}},
		}}},
	}
	cp, err := literals.CompilePattern(rx)
	require.NoError(t, err)

	caps, ok := cp.Match("n=42")
	require.True(t, ok)
	assert.Equal(t, literals.I64(42), caps["n"])

	_, ok = cp.Match("n=xy")
	assert.False(t, ok)
}

func TestCompilePattern_CaseInsensitive(t *testing.T) {
	rx := &ast.RegexPattern{
		CaseInsensitive: true,
		Alts: []ast.RegexSeq{{Terms: []ast.RegexTerm{
			{Kind: ast.RegexLiteral, Literal: "GET"},
		}}},
	}
	cp, err := literals.CompilePattern(rx)
	require.NoError(t, err)
	_, ok := cp.Match("get")
	assert.True(t, ok)
}

func TestOption_SomeNone(t *testing.T) {
	some := literals.Some(literals.I64(7))
	assert.True(t, some.IsSome())
	assert.Equal(t, "Some(7)", some.String())

	none := literals.None(some.Elem)
	assert.False(t, none.IsSome())
	assert.Equal(t, "None", none.String())
}

func TestLabel_MatchWith_NamedWildcards(t *testing.T) {
	l := literals.NewLabel("svc::payments::east")
	pat := &ast.LabelPattern{Segs: []ast.LabelSeg{
		{Kind: ast.LabelLiteralSeg, Literal: "svc"},
		{Kind: ast.LabelWildcardOne, Name: "team"},
		{Kind: ast.LabelWildcardOne, Name: "region"},
	}}
	caps, ok := l.MatchWith(pat)
	require.True(t, ok)
	assert.Equal(t, "payments", caps["team"].String())
	assert.Equal(t, "east", caps["region"].String())
}

func TestLabel_MatchWith_MultiWildcard(t *testing.T) {
	l := literals.NewLabel("svc::payments::east::primary")
	pat := &ast.LabelPattern{Segs: []ast.LabelSeg{
		{Kind: ast.LabelLiteralSeg, Literal: "svc"},
		{Kind: ast.LabelWildcardMany, Name: "rest"},
	}}
	caps, ok := l.MatchWith(pat)
	require.True(t, ok)
	assert.Equal(t, "payments::east::primary", caps["rest"].String())
}

func TestID_AddHostIsIdempotent(t *testing.T) {
	id := literals.DefaultID().AddHost("a").AddHost("a").AddHost("b")
	assert.Equal(t, []string{"a", "b"}, id.Hosts)
}

func TestHeaderMultimap_PreservesInsertionOrderAndDuplicates(t *testing.T) {
	var hm literals.HeaderMultimap
	hm = hm.Add("X-Trace", "1").Add("X-Trace", "2").Add("Content-Type", "json")

	pairs := hm.Pairs()
	require.Len(t, pairs, 3)
	assert.Equal(t, [2]string{"X-Trace", "1"}, pairs[0])
	assert.Equal(t, [2]string{"X-Trace", "2"}, pairs[1])

	first, ok := hm.First("X-Trace")
	require.True(t, ok)
	assert.Equal(t, "1", first)

	_, ok = hm.Unique("X-Trace")
	assert.False(t, ok, "X-Trace occurs twice so unique_header must report absent")

	unique, ok := hm.Unique("Content-Type")
	require.True(t, ok)
	assert.Equal(t, "json", unique)
}

func TestHeaderMultimap_SetReplacesAllOccurrences(t *testing.T) {
	var hm literals.HeaderMultimap
	hm = hm.Add("X-A", "1").Add("X-A", "2").Add("X-B", "3")
	hm = hm.Set("X-A", "new")

	assert.Equal(t, [][2]string{{"X-A", "new"}, {"X-B", "3"}}, hm.Pairs())
}

func TestMethods_StrBuiltins(t *testing.T) {
	upper, err := literals.Methods["str::to_uppercase"]([]literals.Literal{literals.Str("abc")})
	require.NoError(t, err)
	assert.Equal(t, literals.Str("ABC"), upper)

	starts, err := literals.Methods["str::starts_with"]([]literals.Literal{literals.Str("hello"), literals.Str("he")})
	require.NoError(t, err)
	assert.Equal(t, literals.Bool(true), starts)
}

func TestMethods_ListSetOps(t *testing.T) {
	l1 := literals.List{Items: []literals.Literal{literals.I64(1), literals.I64(2), literals.I64(3)}}
	l2 := literals.List{Items: []literals.Literal{literals.I64(2), literals.I64(3)}}

	diff, err := literals.Methods["list::difference"]([]literals.Literal{l1, l2})
	require.NoError(t, err)
	assert.Equal(t, []literals.Literal{literals.I64(1)}, diff.(literals.List).Items)

	subset, err := literals.Methods["list::is_subset"]([]literals.Literal{l2, l1})
	require.NoError(t, err)
	assert.Equal(t, literals.Bool(true), subset)
}

func TestMethods_HTTPRequestRoundTrip(t *testing.T) {
	req := literals.NewHTTPRequest("GET", "/v1/orders/42")
	req = req.SetHeader("X-Trace", "abc")

	route, err := literals.Methods["HttpRequest::route"]([]literals.Literal{req})
	require.NoError(t, err)
	items := route.(literals.List).Items
	require.Len(t, items, 3)
	assert.Equal(t, literals.Str("v1"), items[0])
	assert.Equal(t, literals.Str("42"), items[2])

	hdr, err := literals.Methods["HttpRequest::header"]([]literals.Literal{req, literals.Str("X-Trace")})
	require.NoError(t, err)
	assert.True(t, hdr.(literals.Option).IsSome())
}

func TestMethods_IDBuilders(t *testing.T) {
	id, err := literals.Methods["ID::add_host"]([]literals.Literal{literals.DefaultID(), literals.Str("svc.local")})
	require.NoError(t, err)
	has, err := literals.Methods["ID::has_host"]([]literals.Literal{id, literals.Str("svc.local")})
	require.NoError(t, err)
	assert.Equal(t, literals.Bool(true), has)
}

func TestMethods_IPAddrOctets(t *testing.T) {
	ip, err := literals.NewIPAddr("10.0.0.1")
	require.NoError(t, err)
	octs, err := literals.Methods["IpAddr::octets"]([]literals.Literal{ip})
	require.NoError(t, err)
	assert.Equal(t, []literals.Literal{literals.I64(10), literals.I64(0), literals.I64(0), literals.I64(1)}, octs.(literals.List).Items)
}
