// Copyright 2024 The iopc Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/fold"
	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/token"
)

// constOperators is the set of operator lexemes the constant folder
// understands, mirrored from fold's contract (spec.md section 4.2).
var constOperators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"&": true, "|": true, "^": true, "~": true,
	"(": true, ")": true, "<<": true, ">>": true, "**": true,
}

// parseDefaultValue parses a field or enum-value's `= <expr>` right-hand
// side: a string/char/bool literal directly, a double literal directly,
// otherwise a constant expression folded by package fold until the
// enclosing terminator punctuation (spec.md section 4.5 "Field parsing
// specifics"). localEnumValues resolves bare identifiers to already-
// computed sibling enum values within the enum currently being parsed,
// taking priority over p.enums' compilation-wide table so that a
// sibling shadows a same-named value registered elsewhere (spec.md
// section 4.2 "Enum-value identifiers fed as numbers use the enum
// value's signed integer"); it is nil for a struct/union/class/typedef
// field default, which has no sibling scope of its own and resolves
// solely against p.enums.
func (p *Parser) parseDefaultValue(terms []string, localEnumValues map[string]int64) (ast.Value, error) {
	t, err := p.buf.Peek(0)
	if err != nil {
		return ast.Value{}, err
	}
	switch t.Kind {
	case token.StringLit:
		p.buf.Drop(1)
		return ast.Value{Kind: ast.VString, Str: t.StrVal}, nil
	case token.CharLit:
		p.buf.Drop(1)
		return ast.Value{Kind: ast.VInt, I64: t.IntVal, Signed: true}, nil
	case token.DoubleLit:
		p.buf.Drop(1)
		return ast.Value{Kind: ast.VDouble, F64: t.DoubleVal}, nil
	case token.BoolLit:
		p.buf.Drop(1)
		s := "false"
		if t.BoolVal {
			s = "true"
		}
		return ast.Value{Kind: ast.VIdent, Str: s}, nil
	default:
		return p.parseConstExprUntilAny(terms, localEnumValues)
	}
}

// parseConstExprUntilAny feeds the constant folder tokens from the
// window until it reaches, at paren depth 0, a Punct token whose
// lexeme is one of terms -- used directly by enum-value parsing, where
// a default may be terminated by either "," (another value follows) or
// "}" (it is the last one).
func (p *Parser) parseConstExprUntilAny(terms []string, localEnumValues map[string]int64) (ast.Value, error) {
	f := fold.New()
	depth := 0
	fed := false

	isTerm := func(lexeme string) bool {
		for _, t := range terms {
			if t == lexeme {
				return true
			}
		}
		return false
	}

	for {
		t, err := p.buf.Peek(0)
		if err != nil {
			return ast.Value{}, err
		}
		if t.Kind == token.EOF {
			return ast.Value{}, ioperr.NewIllFormedExpression(t.Loc, "unterminated constant expression")
		}
		if depth == 0 && t.Kind == token.Punct && isTerm(t.Lexeme) {
			break
		}

		p.buf.Drop(1)
		f.SetLoc(t.Loc)
		switch t.Kind {
		case token.IntLit:
			if err := f.FeedNumber(t.IntVal, t.IntSigned); err != nil {
				return ast.Value{}, err
			}
		case token.CharLit:
			if err := f.FeedNumber(t.IntVal, true); err != nil {
				return ast.Value{}, err
			}
		case token.Ident:
			v, ok := localEnumValues[t.Lexeme]
			if !ok {
				if ev, ok2 := p.enums.Get(t.Lexeme); ok2 {
					v, ok = ev.Value, true
				}
			}
			if !ok {
				return ast.Value{}, ioperr.NewUnresolvedType(t.Loc, t.Lexeme)
			}
			if err := f.FeedNumber(v, true); err != nil {
				return ast.Value{}, err
			}
		case token.Punct:
			if !constOperators[t.Lexeme] {
				return ast.Value{}, ioperr.NewIllFormedExpression(t.Loc, "unexpected token `%s` in constant expression", t.Lexeme)
			}
			if t.Lexeme == "(" {
				depth++
			}
			if t.Lexeme == ")" {
				depth--
			}
			if err := f.FeedOperator(t.Lexeme); err != nil {
				return ast.Value{}, err
			}
		default:
			return ast.Value{}, ioperr.NewIllFormedExpression(t.Loc, "unexpected token in constant expression")
		}
		fed = true
	}

	if !fed {
		loc, _ := p.buf.Peek(0)
		return ast.Value{}, ioperr.NewIllFormedExpression(loc.Loc, "empty constant expression")
	}
	v, signed, err := f.GetResult()
	if err != nil {
		return ast.Value{}, err
	}
	return ast.Value{Kind: ast.VInt, I64: v, Signed: signed}, nil
}
