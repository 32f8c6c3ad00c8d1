// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package ast

import (
	"fmt"
	"strconv"

	"github.com/holomush/armour/internal/policy/lexer"
	"github.com/holomush/armour/internal/policy/types"
)

// Error is a parse failure naming the offending token and location
// (spec.md §7 "syntax" error class).
type Error struct {
	Loc types.Loc
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Loc, e.Msg) }

// Parser consumes a token slice produced by the lexer and builds a Policy.
type Parser struct {
	toks []lexer.Token
	pos  int
	file string
}

// Parse tokenizes and parses src in one step.
func Parse(file, src string) (*Policy, error) {
	toks, err := lexer.New(file, src).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(toks, file).ParsePolicy()
}

// NewParser builds a Parser over an already-tokenized source.
func NewParser(toks []lexer.Token, file string) *Parser {
	return &Parser{toks: toks, file: file}
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) curLoc() types.Loc { return p.cur().Loc }

func (p *Parser) at(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() lexer.Token {
	tok := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	if !p.at(k) {
		return lexer.Token{}, &Error{Loc: p.curLoc(), Msg: fmt.Sprintf("expected %s, found %s %q", k, p.cur().Kind, p.cur().Text)}
	}
	return p.advance(), nil
}

// ParsePolicy parses a whole source file: zero or more fn/external
// declarations.
func (p *Parser) ParsePolicy() (*Policy, error) {
	var decls []Decl
	for !p.at(lexer.EOF) {
		d, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	return &Policy{Decls: decls}, nil
}

func (p *Parser) parseDecl() (Decl, error) {
	switch {
	case p.at(lexer.KwFn):
		return p.parseFnDecl()
	case p.at(lexer.KwExternal):
		return p.parseExternalDecl()
	default:
		return nil, &Error{Loc: p.curLoc(), Msg: fmt.Sprintf("expected 'fn' or 'external', found %s", p.cur().Kind)}
	}
}

func (p *Parser) parseParams() ([]Param, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var params []Param
	for !p.at(lexer.RParen) {
		name, err := p.expect(lexer.Ident)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		ty, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		params = append(params, Param{Name: name.Text, Typ: ty})
		if p.at(lexer.Comma) {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseFnDecl() (*FnDecl, error) {
	loc := p.curLoc()
	p.advance() // fn
	name, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	var ret *TypeExpr
	if p.at(lexer.Arrow) {
		p.advance()
		ty, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		ret = &ty
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &FnDecl{Name: name.Text, Params: params, Ret: ret, Body: *body, Loc: loc}, nil
}

// parseExternalDecl parses `external Name @ "url" { fn h(tys_or_underscore)
// [-> T] ... }` (spec.md §4.B).
func (p *Parser) parseExternalDecl() (*ExternalDecl, error) {
	loc := p.curLoc()
	p.advance() // external
	name, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.At); err != nil {
		return nil, err
	}
	url, err := p.expect(lexer.StringLit)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var heads []ExternalHead
	for !p.at(lexer.RBrace) {
		h, err := p.parseExternalHead()
		if err != nil {
			return nil, err
		}
		heads = append(heads, *h)
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return &ExternalDecl{Name: name.Text, URL: url.Text, Headers: heads, Loc: loc}, nil
}

func (p *Parser) parseExternalHead() (*ExternalHead, error) {
	loc := p.curLoc()
	if _, err := p.expect(lexer.KwFn); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var tys []TypeExpr
	if p.at(lexer.Ident) && p.cur().Text == "_" {
		p.advance()
	} else {
		tys = []TypeExpr{}
		for !p.at(lexer.RParen) {
			ty, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			tys = append(tys, ty)
			if p.at(lexer.Comma) {
				p.advance()
			} else {
				break
			}
		}
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	var ret *TypeExpr
	if p.at(lexer.Arrow) {
		p.advance()
		ty, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		ret = &ty
	}
	if p.at(lexer.Semi) {
		p.advance()
	}
	return &ExternalHead{Name: name.Text, Types: tys, Ret: ret, Loc: loc}, nil
}

func (p *Parser) parseTypeExpr() (TypeExpr, error) {
	loc := p.curLoc()
	if p.at(lexer.LParen) {
		p.advance()
		var args []TypeExpr
		for !p.at(lexer.RParen) {
			a, err := p.parseTypeExpr()
			if err != nil {
				return TypeExpr{}, err
			}
			args = append(args, a)
			if p.at(lexer.Comma) {
				p.advance()
			} else {
				break
			}
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return TypeExpr{}, err
		}
		return TypeExpr{Name: "Tuple", Args: args, Loc: loc}, nil
	}
	name, err := p.expect(lexer.Ident)
	if err != nil {
		return TypeExpr{}, err
	}
	te := TypeExpr{Name: name.Text, Loc: loc}
	if p.at(lexer.Lt) {
		p.advance()
		for {
			a, err := p.parseTypeExpr()
			if err != nil {
				return TypeExpr{}, err
			}
			te.Args = append(te.Args, a)
			if p.at(lexer.Comma) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(lexer.Gt); err != nil {
			return TypeExpr{}, err
		}
	}
	return te, nil
}

func (p *Parser) parseBlock() (*Block, error) {
	loc := p.curLoc()
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for !p.at(lexer.RBrace) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return &Block{Stmts: stmts, Loc: loc}, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	switch {
	case p.at(lexer.KwLet):
		return p.parseLetStmt()
	case p.at(lexer.KwReturn):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.at(lexer.Semi) {
			p.advance()
		}
		return ReturnStmt{E: e}, nil
	default:
		async := false
		if p.at(lexer.KwAsync) {
			async = true
			p.advance()
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		semi := false
		if p.at(lexer.Semi) {
			semi = true
			p.advance()
		}
		return ExprStmt{E: e, Async: async, Semi: semi}, nil
	}
}

func (p *Parser) parseLetStmt() (Stmt, error) {
	p.advance() // let
	var names []string
	if p.at(lexer.LParen) {
		p.advance()
		for !p.at(lexer.RParen) {
			if p.at(lexer.Ident) {
				names = append(names, p.advance().Text)
			} else {
				return nil, &Error{Loc: p.curLoc(), Msg: "expected identifier or '_' in destructuring let"}
			}
			if p.at(lexer.Comma) {
				p.advance()
			} else {
				break
			}
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
	} else {
		name, err := p.expect(lexer.Ident)
		if err != nil {
			return nil, err
		}
		names = []string{name.Text}
	}
	if _, err := p.expect(lexer.Assign); err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.Semi) {
		p.advance()
	}
	return LetStmt{Names: names, E: e}, nil
}

// Binary operator precedence levels, low to high, per spec.md §4.B:
// "Or < And < Equals/NotEq < Lt/Le/Gt/Ge < In < Plus/Minus/Concat/ConcatStr
// < Mul/Div/Rem". Dot, call, and `::` bind tighter still and are parsed as
// postfix operations on primaries rather than through this table.
var precedence = map[lexer.Kind]int{
	lexer.Or:       1,
	lexer.And:      2,
	lexer.Eq:       3,
	lexer.Ne:       3,
	lexer.Lt:       4,
	lexer.Le:       4,
	lexer.Gt:       4,
	lexer.Ge:       4,
	lexer.KwIn:     5,
	lexer.Plus:     6,
	lexer.Minus:    6,
	lexer.PlusPlus: 6,
	lexer.At:       6,
	lexer.Star:     7,
	lexer.Slash:    7,
	lexer.Percent:  7,
}

// leftAssoc operators associate left-to-right; every other table entry is
// right-associative (spec.md §4.B: "right-associative except + - * / % and
// in").
var leftAssoc = map[lexer.Kind]bool{
	lexer.Plus: true, lexer.Minus: true, lexer.Star: true, lexer.Slash: true,
	lexer.Percent: true, lexer.KwIn: true,
}

func opText(k lexer.Kind) string {
	switch k {
	case lexer.Or:
		return "||"
	case lexer.And:
		return "&&"
	case lexer.Eq:
		return "=="
	case lexer.Ne:
		return "!="
	case lexer.Lt:
		return "<"
	case lexer.Le:
		return "<="
	case lexer.Gt:
		return ">"
	case lexer.Ge:
		return ">="
	case lexer.KwIn:
		return "in"
	case lexer.Plus:
		return "+"
	case lexer.Minus:
		return "-"
	case lexer.PlusPlus:
		return "++"
	case lexer.At:
		return "@"
	case lexer.Star:
		return "*"
	case lexer.Slash:
		return "/"
	case lexer.Percent:
		return "%"
	default:
		return ""
	}
}

// parseExpr parses any expression, including the block-level forms
// (if/if-matches/if-let-Some/iter) that can only appear as a whole
// statement's expression, then falls through to the binary-operator
// precedence climb.
func (p *Parser) parseExpr() (LocExpr, error) {
	switch p.cur().Kind {
	case lexer.KwIf:
		return p.parseIf()
	default:
		if op, ok := iterOpFor(p.cur().Kind); ok {
			return p.parseIter(op)
		}
	}
	return p.parseBinary(0)
}

func iterOpFor(k lexer.Kind) (IterOp, bool) {
	switch k {
	case lexer.KwAll:
		return IterAll, true
	case lexer.KwAny:
		return IterAny, true
	case lexer.KwFilter:
		return IterFilter, true
	case lexer.KwFilterMap:
		return IterFilterMap, true
	case lexer.KwMap:
		return IterMap, true
	case lexer.KwForeach:
		return IterForeach, true
	case lexer.KwFold:
		return IterFold, true
	default:
		return 0, false
	}
}

func (p *Parser) parseBinary(minPrec int) (LocExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return LocExpr{}, err
	}
	for {
		prec, ok := precedence[p.cur().Kind]
		if !ok || prec < minPrec {
			return left, nil
		}
		opKind := p.cur().Kind
		opLoc := p.curLoc()
		p.advance()
		nextMin := prec + 1
		if leftAssoc[opKind] {
			nextMin = prec + 1
		} else {
			nextMin = prec
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return LocExpr{}, err
		}
		left = LocExpr{Loc: opLoc, Expr: InfixExpr{Op: opText(opKind), Left: left, Right: right}}
	}
}

func (p *Parser) parseUnary() (LocExpr, error) {
	if p.at(lexer.Minus) || p.at(lexer.Bang) {
		loc := p.curLoc()
		op := "-"
		if p.at(lexer.Bang) {
			op = "!"
		}
		p.advance()
		e, err := p.parseUnary()
		if err != nil {
			return LocExpr{}, err
		}
		return LocExpr{Loc: loc, Expr: PrefixExpr{Op: op, E: e}}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles the tightest-binding forms: call application,
// dot-chain member/method sugar, and `matches` pattern-matching, all of
// which attach to a primary left-to-right (spec.md §4.B: "Dot < Call <
// `::`", and dot-chain rewriting `x.m(args)` -> `m(x, args)`,
// `x.0` -> tuple-index call "0").
func (p *Parser) parsePostfix() (LocExpr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return LocExpr{}, err
	}
	for {
		switch {
		case p.at(lexer.Dot):
			dotLoc := p.curLoc()
			p.advance()
			if p.at(lexer.IntLit) {
				idx := p.advance()
				e = LocExpr{Loc: dotLoc, Expr: CallExpr{Name: idx.Text, Args: []LocExpr{e}}}
				continue
			}
			name, err := p.expect(lexer.Ident)
			if err != nil {
				return LocExpr{}, err
			}
			args := []LocExpr{e}
			if p.at(lexer.LParen) {
				callArgs, err := p.parseCallArgs()
				if err != nil {
					return LocExpr{}, err
				}
				args = append(args, callArgs...)
			}
			e = LocExpr{Loc: dotLoc, Expr: CallExpr{Name: name.Text, Args: args}}
		case p.at(lexer.KwMatches):
			matchLoc := p.curLoc()
			p.advance()
			pat, err := p.parsePattern()
			if err != nil {
				return LocExpr{}, err
			}
			e = LocExpr{Loc: matchLoc, Expr: matchesExpr{Scrutinee: e, Pattern: pat}}
		default:
			return e, nil
		}
	}
}

// matchesExpr is the intermediate node parsePostfix produces for
// `scrutinee matches pat`. parseIf turns a condition of this form, and each
// one joined to it with `and`, into the arms of an IfMatchExpr; anywhere
// else the node stays in the tree as it is.
type matchesExpr struct {
	Scrutinee LocExpr
	Pattern   *Pattern
}

func (matchesExpr) exprNode() {}

func (p *Parser) parseCallArgs() ([]LocExpr, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var args []LocExpr
	for !p.at(lexer.RParen) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.at(lexer.Comma) {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (LocExpr, error) {
	loc := p.curLoc()
	switch p.cur().Kind {
	case lexer.IntLit:
		tok := p.advance()
		v, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return LocExpr{}, &Error{Loc: loc, Msg: "malformed integer literal"}
		}
		return LocExpr{Loc: loc, Expr: IntLit{Value: v}}, nil
	case lexer.FloatLit:
		tok := p.advance()
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return LocExpr{}, &Error{Loc: loc, Msg: "malformed float literal"}
		}
		return LocExpr{Loc: loc, Expr: FloatLit{Value: v}}, nil
	case lexer.BoolLit:
		tok := p.advance()
		return LocExpr{Loc: loc, Expr: BoolLit{Value: tok.Text == "true"}}, nil
	case lexer.StringLit:
		tok := p.advance()
		return LocExpr{Loc: loc, Expr: StringLit{Value: tok.Text}}, nil
	case lexer.ByteStringLit:
		tok := p.advance()
		return LocExpr{Loc: loc, Expr: ByteStringLit{Value: []byte(tok.Text)}}, nil
	case lexer.LabelLit:
		tok := p.advance()
		return LocExpr{Loc: loc, Expr: LabelLit{Value: tok.Text}}, nil
	case lexer.KwSome:
		p.advance()
		args, err := p.parseCallArgs()
		if err != nil {
			return LocExpr{}, err
		}
		return LocExpr{Loc: loc, Expr: CallExpr{Name: "option::Some", Args: args}}, nil
	case lexer.LBracket:
		return p.parseListExpr(loc)
	case lexer.LParen:
		return p.parseParenExpr(loc)
	case lexer.KwIf:
		return p.parseIf()
	case lexer.Ident:
		tok := p.advance()
		if p.at(lexer.ColonColon) {
			p.advance()
			method, err := p.expect(lexer.Ident)
			if err != nil {
				return LocExpr{}, err
			}
			qualified := tok.Text + "::" + method.Text
			if p.at(lexer.LParen) {
				args, err := p.parseCallArgs()
				if err != nil {
					return LocExpr{}, err
				}
				return LocExpr{Loc: loc, Expr: CallExpr{Name: qualified, Args: args}}, nil
			}
			return LocExpr{Loc: loc, Expr: Ident{Name: qualified}}, nil
		}
		if p.at(lexer.LParen) {
			args, err := p.parseCallArgs()
			if err != nil {
				return LocExpr{}, err
			}
			return LocExpr{Loc: loc, Expr: CallExpr{Name: tok.Text, Args: args}}, nil
		}
		return LocExpr{Loc: loc, Expr: Ident{Name: tok.Text}}, nil
	default:
		if op, ok := iterOpFor(p.cur().Kind); ok {
			return p.parseIter(op)
		}
		return LocExpr{}, &Error{Loc: loc, Msg: fmt.Sprintf("unexpected token %s %q", p.cur().Kind, p.cur().Text)}
	}
}

func (p *Parser) parseListExpr(loc types.Loc) (LocExpr, error) {
	p.advance() // [
	var elems []LocExpr
	for !p.at(lexer.RBracket) {
		e, err := p.parseExpr()
		if err != nil {
			return LocExpr{}, err
		}
		elems = append(elems, e)
		if p.at(lexer.Comma) {
			p.advance()
		} else {
			break
		}
	}
	if _, err := p.expect(lexer.RBracket); err != nil {
		return LocExpr{}, err
	}
	return LocExpr{Loc: loc, Expr: ListExpr{Elems: elems}}, nil
}

// parseParenExpr handles `(e)` grouping and `(e1, e2, ...)` tuples; a
// single element with no trailing comma is just a grouped expression.
func (p *Parser) parseParenExpr(loc types.Loc) (LocExpr, error) {
	p.advance() // (
	if p.at(lexer.RParen) {
		p.advance()
		return LocExpr{Loc: loc, Expr: TupleExpr{}}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return LocExpr{}, err
	}
	if !p.at(lexer.Comma) {
		if _, err := p.expect(lexer.RParen); err != nil {
			return LocExpr{}, err
		}
		return first, nil
	}
	elems := []LocExpr{first}
	for p.at(lexer.Comma) {
		p.advance()
		if p.at(lexer.RParen) {
			break
		}
		e, err := p.parseExpr()
		if err != nil {
			return LocExpr{}, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return LocExpr{}, err
	}
	return LocExpr{Loc: loc, Expr: TupleExpr{Elems: elems}}, nil
}

// parseIf parses `if cond {then} [else {else}]`, `if e matches pat [and e2
// matches pat2 ...] {then} [else {else}]`, and `if let Some(x) = e {then}
// [else {else}]` (spec.md §3, §4.E).
func (p *Parser) parseIf() (LocExpr, error) {
	loc := p.curLoc()
	p.advance() // if

	if p.at(lexer.KwLet) {
		p.advance()
		if _, err := p.expect(lexer.KwSome); err != nil {
			return LocExpr{}, err
		}
		if _, err := p.expect(lexer.LParen); err != nil {
			return LocExpr{}, err
		}
		name, err := p.expect(lexer.Ident)
		if err != nil {
			return LocExpr{}, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return LocExpr{}, err
		}
		if _, err := p.expect(lexer.Assign); err != nil {
			return LocExpr{}, err
		}
		scrutinee, err := p.parseBinary(0)
		if err != nil {
			return LocExpr{}, err
		}
		then, err := p.parseBlock()
		if err != nil {
			return LocExpr{}, err
		}
		els, err := p.parseOptElse()
		if err != nil {
			return LocExpr{}, err
		}
		return LocExpr{Loc: loc, Expr: IfLetSomeExpr{Var: name.Text, E: scrutinee, Then: *then, Else: els}}, nil
	}

	cond, err := p.parseBinary(0)
	if err != nil {
		return LocExpr{}, err
	}
	if me, ok := cond.Expr.(matchesExpr); ok {
		arms := []MatchArm{{Scrutinee: me.Scrutinee, Pattern: me.Pattern}}
		for p.at(lexer.KwAnd) {
			p.advance()
			next, err := p.parseBinary(0)
			if err != nil {
				return LocExpr{}, err
			}
			nme, ok := next.Expr.(matchesExpr)
			if !ok {
				return LocExpr{}, &Error{Loc: next.Loc, Msg: "expected 'scrutinee matches pattern' after 'and'"}
			}
			arms = append(arms, MatchArm{Scrutinee: nme.Scrutinee, Pattern: nme.Pattern})
		}
		then, err := p.parseBlock()
		if err != nil {
			return LocExpr{}, err
		}
		els, err := p.parseOptElse()
		if err != nil {
			return LocExpr{}, err
		}
		return LocExpr{Loc: loc, Expr: IfMatchExpr{Scrutinees: arms, Then: *then, Else: els}}, nil
	}

	then, err := p.parseBlock()
	if err != nil {
		return LocExpr{}, err
	}
	els, err := p.parseOptElse()
	if err != nil {
		return LocExpr{}, err
	}
	return LocExpr{Loc: loc, Expr: IfExpr{Cond: cond, Then: *then, Else: els}}, nil
}

func (p *Parser) parseOptElse() (*Block, error) {
	if !p.at(lexer.KwElse) {
		return nil, nil
	}
	p.advance()
	b, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return b, nil
}

// parseIter parses `op idents in list { body } [where acc = init]`
// (spec.md §3).
func (p *Parser) parseIter(op IterOp) (LocExpr, error) {
	loc := p.curLoc()
	p.advance() // keyword
	var idents []string
	for {
		name, err := p.expect(lexer.Ident)
		if err != nil {
			return LocExpr{}, err
		}
		idents = append(idents, name.Text)
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.KwIn); err != nil {
		return LocExpr{}, err
	}
	list, err := p.parseBinary(0)
	if err != nil {
		return LocExpr{}, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return LocExpr{}, err
	}
	var acc *AccClause
	if op == IterFold && p.at(lexer.KwWhere) {
		p.advance()
		accName, err := p.expect(lexer.Ident)
		if err != nil {
			return LocExpr{}, err
		}
		if _, err := p.expect(lexer.Assign); err != nil {
			return LocExpr{}, err
		}
		init, err := p.parseExpr()
		if err != nil {
			return LocExpr{}, err
		}
		acc = &AccClause{Name: accName.Text, Init: init}
	}
	return LocExpr{Loc: loc, Expr: IterExpr{Op: op, Idents: idents, List: list, Body: *body, Acc: acc}}, nil
}
