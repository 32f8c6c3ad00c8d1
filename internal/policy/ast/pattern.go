// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package ast

import "github.com/holomush/armour/internal/policy/types"

// PatternKind distinguishes the two pattern families `matches` accepts
// (spec.md §3 "Patterns").
type PatternKind int

// PatternKind constants.
const (
	PatternRegex PatternKind = iota
	PatternLabel
)

// Pattern is the AST for one `matches` right-hand side: either a regex
// pattern compiled from the sub-grammar below, or a label pattern.
type Pattern struct {
	Kind  PatternKind
	Loc   types.Loc
	Regex *RegexPattern // set when Kind == PatternRegex
	Label *LabelPattern // set when Kind == PatternLabel
}

// BinderType is the typed capture annotation `[x as T]` may carry.
type BinderType int

// BinderType constants: the three capture conversions spec.md §4.A names.
const (
	BinderStr BinderType = iota
	BinderI64
	BinderBase64
)

// RegexPattern is an alternation of concatenations, matching spec.md §3's
// regex pattern grammar: `.` any, literal strings, character classes,
// alternation `|`, concatenation, postfix `?`/`*`/`+`, case-insensitive `!`
// and ignore-whitespace `%` modifiers, and named typed binders `[x]`,
// `[x as i64]`, `[x as base64]`.
type RegexPattern struct {
	Alts           []RegexSeq
	CaseInsensitive bool // `!` modifier
	IgnoreWhitespace bool // `%` modifier
}

// RegexSeq is one concatenation branch of an alternation.
type RegexSeq struct {
	Terms []RegexTerm
}

// RegexTermKind distinguishes the atoms a regex pattern term can be.
type RegexTermKind int

// RegexTermKind constants.
const (
	RegexAny RegexTermKind = iota // `.`
	RegexLiteral
	RegexClass // `:alpha:`, `:digit:`, ...
	RegexGroup // parenthesized sub-alternation, for postfix application
	RegexBinder
)

// RegexTerm is one atom of a RegexSeq, with an optional postfix repetition
// (`?`, `*`, `+`; absent means exactly-once).
type RegexTerm struct {
	Kind    RegexTermKind
	Literal string      // RegexLiteral
	Class   string      // RegexClass: "alpha", "alnum", "digit", "hex_digit", "s", "base64"
	Group   *RegexPattern // RegexGroup
	Binder  *RegexBinder  // RegexBinder
	Postfix byte        // 0, '?', '*', or '+'
}

// RegexBinder is a named, optionally typed capture `[x]` / `[x as i64]` /
// `[x as base64]` (spec.md §3, §4.A).
type RegexBinder struct {
	Name string
	Typ  BinderType
}

// LabelSegKind distinguishes the three segment forms of a label pattern.
type LabelSegKind int

// LabelSegKind constants.
const (
	LabelLiteralSeg LabelSegKind = iota
	LabelWildcardOne                 // `*` or `*name`
	LabelWildcardMany                // `**` or `**name`
)

// LabelSeg is one `::`-delimited segment of a label pattern (spec.md §3
// "Label pattern ... with `*` single-segment and `**` multi-segment
// wildcards yielding named captures"). A wildcard segment with a non-empty
// Name produces a capture binding of type Str (single segment) or
// List<Str> (multi segment, per LabelPattern.MatchWith semantics).
type LabelSeg struct {
	Kind    LabelSegKind
	Literal string // LabelLiteralSeg
	Name    string // capture name for a named wildcard segment, else ""
}

// LabelPattern is a dotted/`::`-delimited hierarchical label pattern.
type LabelPattern struct {
	Segs []LabelSeg
}
