// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package ast

import (
	"fmt"
	"strings"

	"github.com/holomush/armour/internal/policy/lexer"
)

// parsePattern parses a `matches` right-hand side: either a label literal
// (parsed as a LabelPattern by splitting on `::`) or a regex pattern built
// from the inline token sequence that follows (spec.md §3 "Patterns").
func (p *Parser) parsePattern() (*Pattern, error) {
	loc := p.curLoc()
	if p.at(lexer.LabelLit) {
		tok := p.advance()
		return &Pattern{Kind: PatternLabel, Loc: loc, Label: parseLabelPatternText(tok.Text)}, nil
	}

	caseInsensitive, ignoreWhitespace := false, false
loop:
	for {
		switch {
		case p.at(lexer.Bang):
			caseInsensitive = true
			p.advance()
		case p.at(lexer.Percent):
			ignoreWhitespace = true
			p.advance()
		default:
			break loop
		}
	}
	rx, err := p.parseRegexAlt()
	if err != nil {
		return nil, err
	}
	rx.CaseInsensitive = caseInsensitive
	rx.IgnoreWhitespace = ignoreWhitespace
	return &Pattern{Kind: PatternRegex, Loc: loc, Regex: rx}, nil
}

func (p *Parser) parseRegexAlt() (*RegexPattern, error) {
	first, err := p.parseRegexSeq()
	if err != nil {
		return nil, err
	}
	alts := []RegexSeq{*first}
	for p.at(lexer.Pipe) {
		p.advance()
		seq, err := p.parseRegexSeq()
		if err != nil {
			return nil, err
		}
		alts = append(alts, *seq)
	}
	return &RegexPattern{Alts: alts}, nil
}

func (p *Parser) parseRegexSeq() (*RegexSeq, error) {
	var terms []RegexTerm
	for p.isRegexTermStart() {
		t, err := p.parseRegexTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, *t)
	}
	if len(terms) == 0 {
		return nil, &Error{Loc: p.curLoc(), Msg: "expected at least one regex pattern term"}
	}
	return &RegexSeq{Terms: terms}, nil
}

func (p *Parser) isRegexTermStart() bool {
	switch p.cur().Kind {
	case lexer.Dot, lexer.StringLit, lexer.ClassLit, lexer.LParen, lexer.LBracket:
		return true
	default:
		return false
	}
}

func (p *Parser) parseRegexTerm() (*RegexTerm, error) {
	var term RegexTerm
	switch p.cur().Kind {
	case lexer.Dot:
		p.advance()
		term = RegexTerm{Kind: RegexAny}
	case lexer.StringLit:
		tok := p.advance()
		term = RegexTerm{Kind: RegexLiteral, Literal: tok.Text}
	case lexer.ClassLit:
		tok := p.advance()
		term = RegexTerm{Kind: RegexClass, Class: tok.Text}
	case lexer.LParen:
		p.advance()
		grp, err := p.parseRegexAlt()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		term = RegexTerm{Kind: RegexGroup, Group: grp}
	case lexer.LBracket:
		p.advance()
		name, err := p.expect(lexer.Ident)
		if err != nil {
			return nil, err
		}
		binder := RegexBinder{Name: name.Text, Typ: BinderStr}
		if p.at(lexer.KwAs) {
			p.advance()
			tyTok, err := p.expect(lexer.Ident)
			if err != nil {
				return nil, err
			}
			switch tyTok.Text {
			case "str":
				binder.Typ = BinderStr
			case "i64":
				binder.Typ = BinderI64
			case "base64":
				binder.Typ = BinderBase64
			default:
				return nil, &Error{Loc: tyTok.Loc, Msg: fmt.Sprintf("unknown binder type %q", tyTok.Text)}
			}
		}
		if _, err := p.expect(lexer.RBracket); err != nil {
			return nil, err
		}
		term = RegexTerm{Kind: RegexBinder, Binder: &binder}
	default:
		return nil, &Error{Loc: p.curLoc(), Msg: "expected regex pattern term"}
	}
	switch p.cur().Kind {
	case lexer.Question:
		term.Postfix = '?'
		p.advance()
	case lexer.Star:
		term.Postfix = '*'
		p.advance()
	case lexer.Plus:
		term.Postfix = '+'
		p.advance()
	}
	return &term, nil
}

// parseLabelPatternText splits a label literal's text on `::` into
// segments, recognizing `*`/`*name` (single-segment wildcard, optionally
// named) and `**`/`**name` (multi-segment wildcard, optionally named);
// anything else is a literal segment (spec.md §3 "Label pattern").
func parseLabelPatternText(text string) *LabelPattern {
	parts := strings.Split(text, "::")
	segs := make([]LabelSeg, len(parts))
	for i, part := range parts {
		switch {
		case strings.HasPrefix(part, "**"):
			segs[i] = LabelSeg{Kind: LabelWildcardMany, Name: part[2:]}
		case strings.HasPrefix(part, "*"):
			segs[i] = LabelSeg{Kind: LabelWildcardOne, Name: part[1:]}
		default:
			segs[i] = LabelSeg{Kind: LabelLiteralSeg, Literal: part}
		}
	}
	return &LabelPattern{Segs: segs}
}
