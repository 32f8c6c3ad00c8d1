// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package literals

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/holomush/armour/internal/policy/ast"
)

// CompiledPattern is a regex pattern (spec.md §3, §4.A) compiled to a Go
// regexp with named capture groups, plus the declared type of each named
// binder so Match can convert captures per the `as` annotation (spec.md
// §4.G "IfMatch": "i64 parse, base64 decode, or raw string").
type CompiledPattern struct {
	re      *regexp.Regexp
	binders map[string]ast.BinderType
}

// regexClasses maps the DSL's named character classes to Go regexp
// character-class bodies (spec.md §3).
var regexClasses = map[string]string{
	"alpha":     "A-Za-z",
	"alnum":     "A-Za-z0-9",
	"digit":     "0-9",
	"hex_digit": "0-9A-Fa-f",
	"s":         `\s`,
	"base64":    "A-Za-z0-9+/=",
}

// binderBody is the sub-pattern a typed named binder matches before
// conversion (spec.md leaves the exact charset of a binder unspecified
// beyond its `as` conversion; these are the narrowest patterns that admit
// every value the conversion itself can accept).
func binderBody(typ ast.BinderType) string {
	switch typ {
	case ast.BinderI64:
		return `-?[0-9]+`
	case ast.BinderBase64:
		return `[A-Za-z0-9+/=]+`
	default:
		return `.+?`
	}
}

// CompilePattern translates a parsed RegexPattern into a Go regexp with one
// named group per binder.
func CompilePattern(rx *ast.RegexPattern) (*CompiledPattern, error) {
	var b strings.Builder
	binders := map[string]ast.BinderType{}
	if err := writeRegexPattern(&b, rx, binders); err != nil {
		return nil, err
	}
	// IgnoreWhitespace has no Go-regexp-flag equivalent (RE2 has no `x`
	// mode) and needs none here: writeRegexPattern never emits whitespace
	// of its own between terms, so the modifier is already satisfied by
	// construction.
	pat := b.String()
	if rx.CaseInsensitive {
		pat = "(?i)" + pat
	}
	re, err := regexp.Compile("^(?:" + pat + ")$")
	if err != nil {
		return nil, fmt.Errorf("malformed regex pattern: %w", err)
	}
	return &CompiledPattern{re: re, binders: binders}, nil
}

func writeRegexPattern(b *strings.Builder, rx *ast.RegexPattern, binders map[string]ast.BinderType) error {
	b.WriteString("(?:")
	for i, seq := range rx.Alts {
		if i > 0 {
			b.WriteString("|")
		}
		for _, term := range seq.Terms {
			if err := writeRegexTerm(b, term, binders); err != nil {
				return err
			}
		}
	}
	b.WriteString(")")
	return nil
}

func writeRegexTerm(b *strings.Builder, t ast.RegexTerm, binders map[string]ast.BinderType) error {
	switch t.Kind {
	case ast.RegexAny:
		b.WriteString(".")
	case ast.RegexLiteral:
		b.WriteString(regexp.QuoteMeta(t.Literal))
	case ast.RegexClass:
		cls, ok := regexClasses[t.Class]
		if !ok {
			return fmt.Errorf("unknown character class %q", t.Class)
		}
		b.WriteString("[" + cls + "]")
	case ast.RegexGroup:
		if err := writeRegexPattern(b, t.Group, binders); err != nil {
			return err
		}
	case ast.RegexBinder:
		if _, dup := binders[t.Binder.Name]; dup {
			return fmt.Errorf("repeated capture name %q", t.Binder.Name)
		}
		binders[t.Binder.Name] = t.Binder.Typ
		b.WriteString("(?P<" + t.Binder.Name + ">" + binderBody(t.Binder.Typ) + ")")
	}
	if t.Postfix != 0 {
		b.WriteByte(t.Postfix)
	}
	return nil
}

// Match attempts to match s in full, returning a named-capture map
// converted per each binder's declared type, or (nil, false) on no match.
func (c *CompiledPattern) Match(s string) (map[string]Literal, bool) {
	m := c.re.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	names := c.re.SubexpNames()
	caps := make(map[string]Literal, len(c.binders))
	for i, name := range names {
		if name == "" {
			continue
		}
		typ, ok := c.binders[name]
		if !ok {
			continue
		}
		lit, err := convertCapture(typ, m[i])
		if err != nil {
			return nil, false
		}
		caps[name] = lit
	}
	return caps, true
}

// BinderNames returns each declared capture name with its binder type, as a
// map (so in no particular order); used to reject duplicate capture names
// across sibling patterns
// (spec.md §4.E).
func (c *CompiledPattern) BinderNames() map[string]ast.BinderType { return c.binders }

func convertCapture(typ ast.BinderType, raw string) (Literal, error) {
	switch typ {
	case ast.BinderI64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return I64(v), nil
	case ast.BinderBase64:
		v, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, err
		}
		return Data(v), nil
	default:
		return Str(raw), nil
	}
}
