// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package headers_test

import (
	"testing"

	"github.com/holomush/armour/internal/policy/headers"
	"github.com/holomush/armour/internal/policy/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuiltins_ResolvesByArgTypes(t *testing.T) {
	t0 := headers.NewBuiltins()

	sig, err := t0.Resolve("str::len", []types.Typ{types.Str})
	require.NoError(t, err)
	assert.True(t, sig.Ret.Equal(types.I64))

	sig, err = t0.Resolve("i64::pow", []types.Typ{types.I64, types.I64})
	require.NoError(t, err)
	assert.True(t, sig.Ret.Equal(types.I64))
}

func TestNewBuiltins_ListBuiltinsAcceptAnyElement(t *testing.T) {
	t0 := headers.NewBuiltins()

	sig, err := t0.Resolve("list::len", []types.Typ{types.List(types.I64)})
	require.NoError(t, err)
	assert.True(t, sig.Ret.Equal(types.I64))

	sig, err = t0.Resolve("list::len", []types.Typ{types.List(types.Str)})
	require.NoError(t, err)
	assert.True(t, sig.Ret.Equal(types.I64))
}

func TestResolve_UndeclaredFunction(t *testing.T) {
	t0 := headers.NewBuiltins()
	_, err := t0.Resolve("str::reverse", []types.Typ{types.Str})
	require.Error(t, err)
}

func TestResolve_NoMatchingOverload(t *testing.T) {
	t0 := headers.NewBuiltins()
	_, err := t0.Resolve("str::len", []types.Typ{types.I64})
	require.Error(t, err)
}

func TestAdd_UserFunctionSignature(t *testing.T) {
	t0 := headers.New()
	t0.Add("f", types.Signature{Args: []types.Typ{types.I64}, Ret: types.I64})
	require.True(t, t0.Has("f"))
	sig, err := t0.Resolve("f", []types.Typ{types.I64})
	require.NoError(t, err)
	assert.True(t, sig.Ret.Equal(types.I64))
}

func TestAdd_IdempotentOnIdenticalSignature(t *testing.T) {
	t0 := headers.New()
	sig := types.Signature{Args: []types.Typ{types.I64}, Ret: types.I64}
	t0.Add("f", sig)
	t0.Add("f", sig)
	sigs, _ := t0.Signatures("f")
	assert.Len(t, sigs, 1)
}

func TestQualifiedMethod_DotChainRewrite(t *testing.T) {
	assert.Equal(t, "str::len", headers.QualifiedMethod(types.Str, "len"))
	assert.Equal(t, "HttpRequest::method", headers.QualifiedMethod(types.HTTPRequest, "method"))
	assert.Equal(t, "list::len", headers.QualifiedMethod(types.List(types.I64), "len"))
}

func TestDataPlaneEntryPoints_HaveCanonicalSignatures(t *testing.T) {
	t0 := headers.NewBuiltins()
	sig, err := t0.Resolve("allow_rest_request", []types.Typ{types.ID, types.ID, types.HTTPRequest, types.Data})
	require.NoError(t, err)
	assert.True(t, sig.Ret.Equal(types.Bool))
}
