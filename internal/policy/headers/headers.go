// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package headers implements the policy language's symbol table (spec.md
// §4.D): a name -> signature-set mapping covering the builtin catalog
// (§6) and user-declared functions side by side, with deterministic
// monomorphic overload resolution for method-call sugar.
package headers

import (
	"fmt"

	"github.com/holomush/armour/internal/policy/types"
)

// Table maps a function name to its signature set. Builtins are
// pre-registered by NewBuiltins; user functions are added during lowering
// (spec.md §4.D "two namespaces live side-by-side").
//
// Signatures are stored as a list per name, so one name can carry several
// signatures and Resolve picks the one whose arguments unify (SPEC_FULL.md
// §3.2). The builtin catalog registers a single signature per name: per-type
// variants get their own qualified names (`str::len`, `list::len`), and
// lowering chooses among them when it rewrites `x.m(args)` to `T::m`.
type Table struct {
	sigs map[string][]types.Signature
}

// New creates an empty Table.
func New() *Table { return &Table{sigs: make(map[string][]types.Signature)} }

// Add registers one more signature for name. Re-declaring the exact same
// signature is idempotent; declaring a same-named user function twice with
// a different signature is the caller's responsibility to reject
// (DuplicateFunction, spec.md §7).
func (t *Table) Add(name string, sig types.Signature) {
	for _, existing := range t.sigs[name] {
		if existing.Equal(sig) {
			return
		}
	}
	t.sigs[name] = append(t.sigs[name], sig)
}

// Clone returns a Table carrying the same signatures as t, safe to mutate
// independently. The specializer clones the program's table before
// installing an entry point's reduced post-specialization signature
// (spec.md §4.H) so the caller's original table is untouched.
func (t *Table) Clone() *Table {
	out := New()
	for name, sigs := range t.sigs {
		out.sigs[name] = append([]types.Signature(nil), sigs...)
	}
	return out
}

// Replace overwrites every signature registered under name with exactly
// sig. Used to install an entry point's new signature after specialization
// drops its two leading ID parameters (spec.md §4.H, grounded on
// `compile_helper` in the original implementation).
func (t *Table) Replace(name string, sig types.Signature) {
	t.sigs[name] = []types.Signature{sig}
}

// Signatures returns every signature registered under name.
func (t *Table) Signatures(name string) ([]types.Signature, bool) {
	sigs, ok := t.sigs[name]
	return sigs, ok
}

// Has reports whether any signature is registered under name.
func (t *Table) Has(name string) bool {
	_, ok := t.sigs[name]
	return ok
}

// Resolve picks the signature registered under name whose argument list
// unifies with argTypes (spec.md §4.D "overload resolution is monomorphic
// per call site and deterministic"). Candidates are tried in registration
// order and the first unifying match wins, so builtin registration order
// in NewBuiltins is part of this package's observable behavior.
func (t *Table) Resolve(name string, argTypes []types.Typ) (types.Signature, error) {
	sigs, ok := t.sigs[name]
	if !ok {
		return types.Signature{}, fmt.Errorf("undeclared function %q", name)
	}
	for _, sig := range sigs {
		if ok, _ := types.TypeCheck(argTypes, sig.Args); ok {
			return sig, nil
		}
	}
	return types.Signature{}, fmt.Errorf("no overload of %q accepts argument types %v", name, argTypes)
}

// QualifiedMethod builds the `T::m` builtin name for method-call sugar
// `x.m(args)`, where T is the static type of x (spec.md §4.D, §4.E
// "`.::m` becomes `T::m` where T is the static type of arg 0").
func QualifiedMethod(recv types.Typ, method string) string {
	return typeNamespace(recv) + "::" + method
}

func typeNamespace(t types.Typ) string {
	switch t.Kind {
	case types.KStr:
		return "str"
	case types.KData:
		return "data"
	case types.KI64:
		return "i64"
	case types.KF64:
		return "f64"
	case types.KList:
		return "list"
	case types.KOption:
		return "option"
	case types.KRegex:
		return "Regex"
	case types.KHttpRequest:
		return "HttpRequest"
	case types.KHttpResponse:
		return "HttpResponse"
	case types.KID:
		return "ID"
	case types.KConnection:
		return "Connection"
	case types.KLabel:
		return "Label"
	case types.KIpAddr:
		return "IpAddr"
	default:
		return t.Kind.String()
	}
}
