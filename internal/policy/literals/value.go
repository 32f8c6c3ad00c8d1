// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package literals implements the runtime value model the evaluator
// reduces to (spec.md §4.F, §6): primitives, HTTP request/response,
// identity/connection/label values, lists, tuples, unit, and the option
// encoding, plus the builtin method registry each type exposes.
package literals

import (
	"fmt"

	"github.com/holomush/armour/internal/policy/types"
)

// Literal is any runtime value the evaluator can produce or consume.
type Literal interface {
	// Type returns the static type this value inhabits.
	Type() types.Typ
	// String renders the value for diagnostics and pretty-printing.
	String() string
	litNode()
}

// Bool, I64, F64, Str, and Data are the scalar/byte-vector primitives.
type (
	Bool  bool
	I64   int64
	F64   float64
	Str   string
	Data  []byte
	UnitT struct{}
)

// UnitVal is the single Unit value.
var UnitVal = UnitT{}

func (Bool) litNode()  {}
func (I64) litNode()   {}
func (F64) litNode()   {}
func (Str) litNode()   {}
func (Data) litNode()  {}
func (UnitT) litNode() {}

func (Bool) Type() types.Typ  { return types.Bool }
func (I64) Type() types.Typ   { return types.I64 }
func (F64) Type() types.Typ   { return types.F64 }
func (Str) Type() types.Typ   { return types.Str }
func (Data) Type() types.Typ  { return types.Data }
func (UnitT) Type() types.Typ { return types.Unit }

func (b Bool) String() string  { return fmt.Sprintf("%t", bool(b)) }
func (i I64) String() string   { return fmt.Sprintf("%d", int64(i)) }
func (f F64) String() string   { return fmt.Sprintf("%g", float64(f)) }
func (s Str) String() string   { return string(s) }
func (d Data) String() string  { return fmt.Sprintf("%x", []byte(d)) }
func (UnitT) String() string   { return "()" }

// Regex is a precompiled regex-pattern value (spec.md §4.F "Regex is
// precompiled at parse time"). Compilation happens in
// internal/policy/corelang when lowering a `matches` pattern; this type
// only carries the compiled form and its capture schema for runtime use.
type Regex struct {
	Source  string
	Compile *CompiledPattern
}

func (Regex) litNode()        {}
func (Regex) Type() types.Typ { return types.Regex }
func (r Regex) String() string { return r.Source }
