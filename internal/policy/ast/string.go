// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders a Policy back to surface syntax (spec.md §8 property 1,
// the parse-print round trip; recovered detail SPEC_FULL.md §3.1).
func (p *Policy) String() string {
	var b strings.Builder
	for i, d := range p.Decls {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(declString(d))
	}
	return b.String()
}

func declString(d Decl) string {
	switch d := d.(type) {
	case *FnDecl:
		var b strings.Builder
		b.WriteString("fn ")
		b.WriteString(d.Name)
		b.WriteString(paramsString(d.Params))
		if d.Ret != nil {
			b.WriteString(" -> ")
			b.WriteString(d.Ret.String())
		}
		b.WriteString(" ")
		b.WriteString(blockString(d.Body))
		return b.String()
	case *ExternalDecl:
		var b strings.Builder
		b.WriteString("external ")
		b.WriteString(d.Name)
		b.WriteString(" @ ")
		b.WriteString(strconv.Quote(d.URL))
		b.WriteString(" { ")
		for i, h := range d.Headers {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(externalHeadString(h))
		}
		b.WriteString(" }")
		return b.String()
	default:
		return fmt.Sprintf("<unknown decl %T>", d)
	}
}

func externalHeadString(h ExternalHead) string {
	var b strings.Builder
	b.WriteString("fn ")
	b.WriteString(h.Name)
	b.WriteString("(")
	if h.Types == nil {
		b.WriteString("_")
	} else {
		parts := make([]string, len(h.Types))
		for i, t := range h.Types {
			parts[i] = t.String()
		}
		b.WriteString(strings.Join(parts, ", "))
	}
	b.WriteString(")")
	if h.Ret != nil {
		b.WriteString(" -> ")
		b.WriteString(h.Ret.String())
	}
	b.WriteString(";")
	return b.String()
}

func paramsString(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + ": " + p.Typ.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// String renders a TypeExpr back to surface syntax.
func (t TypeExpr) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	if t.Name == "Tuple" {
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return t.Name + "<" + strings.Join(parts, ", ") + ">"
}

func blockString(b Block) string {
	var sb strings.Builder
	sb.WriteString("{ ")
	for i, s := range b.Stmts {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(stmtString(s))
	}
	sb.WriteString(" }")
	return sb.String()
}

func stmtString(s Stmt) string {
	switch s := s.(type) {
	case LetStmt:
		name := s.Names[0]
		if len(s.Names) > 1 {
			name = "(" + strings.Join(s.Names, ", ") + ")"
		}
		return "let " + name + " = " + exprString(s.E) + ";"
	case ReturnStmt:
		return "return " + exprString(s.E) + ";"
	case ExprStmt:
		prefix := ""
		if s.Async {
			prefix = "async "
		}
		suffix := ""
		if s.Semi {
			suffix = ";"
		}
		return prefix + exprString(s.E) + suffix
	default:
		return fmt.Sprintf("<unknown stmt %T>", s)
	}
}

func exprString(e LocExpr) string { return exprNodeString(e.Expr) }

func exprNodeString(e Expr) string {
	switch e := e.(type) {
	case Ident:
		return e.Name
	case IntLit:
		return strconv.FormatInt(e.Value, 10)
	case FloatLit:
		return strconv.FormatFloat(e.Value, 'g', -1, 64)
	case BoolLit:
		return strconv.FormatBool(e.Value)
	case StringLit:
		return strconv.Quote(e.Value)
	case ByteStringLit:
		return "b" + strconv.Quote(string(e.Value))
	case LabelLit:
		return "'" + e.Value + "'"
	case ListExpr:
		parts := make([]string, len(e.Elems))
		for i, el := range e.Elems {
			parts[i] = exprString(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TupleExpr:
		parts := make([]string, len(e.Elems))
		for i, el := range e.Elems {
			parts[i] = exprString(el)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case PrefixExpr:
		return e.Op + exprString(e.E)
	case InfixExpr:
		return exprString(e.Left) + " " + e.Op + " " + exprString(e.Right)
	case IfExpr:
		s := "if " + exprString(e.Cond) + " " + blockString(e.Then)
		if e.Else != nil {
			s += " else " + blockString(*e.Else)
		}
		return s
	case IfMatchExpr:
		parts := make([]string, len(e.Scrutinees))
		for i, arm := range e.Scrutinees {
			parts[i] = exprString(arm.Scrutinee) + " matches " + patternString(arm.Pattern)
		}
		s := "if " + strings.Join(parts, " and ") + " " + blockString(e.Then)
		if e.Else != nil {
			s += " else " + blockString(*e.Else)
		}
		return s
	case IfLetSomeExpr:
		s := "if let Some(" + e.Var + ") = " + exprString(e.E) + " " + blockString(e.Then)
		if e.Else != nil {
			s += " else " + blockString(*e.Else)
		}
		return s
	case IterExpr:
		s := e.Op.String() + " " + strings.Join(e.Idents, ", ") + " in " + exprString(e.List) + " " + blockString(e.Body)
		if e.Acc != nil {
			s += " where " + e.Acc.Name + " = " + exprString(e.Acc.Init)
		}
		return s
	case CallExpr:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = exprString(a)
		}
		return e.Name + "(" + strings.Join(parts, ", ") + ")"
	case matchesExpr:
		return exprString(e.Scrutinee) + " matches " + patternString(e.Pattern)
	default:
		return fmt.Sprintf("<unknown expr %T>", e)
	}
}

func patternString(pat *Pattern) string {
	if pat == nil {
		return ""
	}
	if pat.Kind == PatternLabel {
		parts := make([]string, len(pat.Label.Segs))
		for i, seg := range pat.Label.Segs {
			switch seg.Kind {
			case LabelWildcardOne:
				parts[i] = "*" + seg.Name
			case LabelWildcardMany:
				parts[i] = "**" + seg.Name
			default:
				parts[i] = seg.Literal
			}
		}
		return "'" + strings.Join(parts, "::") + "'"
	}
	return regexPatternString(pat.Regex)
}

func regexPatternString(rx *RegexPattern) string {
	altParts := make([]string, len(rx.Alts))
	for i, seq := range rx.Alts {
		termParts := make([]string, len(seq.Terms))
		for j, t := range seq.Terms {
			termParts[j] = regexTermString(t)
		}
		altParts[i] = strings.Join(termParts, " ")
	}
	s := strings.Join(altParts, " | ")
	if rx.CaseInsensitive {
		s = "!" + s
	}
	if rx.IgnoreWhitespace {
		s = "%" + s
	}
	return s
}

func regexTermString(t RegexTerm) string {
	var s string
	switch t.Kind {
	case RegexAny:
		s = "."
	case RegexLiteral:
		s = strconv.Quote(t.Literal)
	case RegexClass:
		s = ":" + t.Class + ":"
	case RegexGroup:
		s = "(" + regexPatternString(t.Group) + ")"
	case RegexBinder:
		if t.Binder.Typ == BinderStr {
			s = "[" + t.Binder.Name + "]"
		} else {
			typName := map[BinderType]string{BinderI64: "i64", BinderBase64: "base64"}[t.Binder.Typ]
			s = "[" + t.Binder.Name + " as " + typName + "]"
		}
	}
	if t.Postfix != 0 {
		s += string(t.Postfix)
	}
	return s
}
