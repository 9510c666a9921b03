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

package token

import "github.com/intersec-oss/iopc/ioperr"

// Buffer is the restartable token-buffer window described in spec.md
// section 4.1: a small deque of tokens pulled lazily from a Lexer, so
// the parser can peek arbitrarily far ahead without the lexer ever
// being touched directly. EOF is sticky: requesting past end of input
// repeatedly returns the same EOF token.
type Buffer struct {
	lex  *Lexer
	toks []Token
}

// NewBuffer wraps lex in a Buffer.
func NewBuffer(lex *Lexer) *Buffer {
	return &Buffer{lex: lex}
}

// fill ensures tokens up to and including index i exist in the buffer.
func (b *Buffer) fill(i int) error {
	for len(b.toks) <= i {
		if n := len(b.toks); n > 0 && b.toks[n-1].Kind == EOF {
			b.toks = append(b.toks, b.toks[n-1])
			continue
		}
		tok, err := b.lex.Next()
		if err != nil {
			return err
		}
		b.toks = append(b.toks, tok)
	}
	return nil
}

// Peek returns the token at lookahead index i (0 is the next token to
// be consumed) without consuming anything.
func (b *Buffer) Peek(i int) (Token, error) {
	if err := b.fill(i); err != nil {
		return Token{}, err
	}
	return b.toks[i], nil
}

// Drop removes the first n tokens from the front of the buffer,
// shifting the rest down.
func (b *Buffer) Drop(n int) {
	if n > len(b.toks) {
		n = len(b.toks)
	}
	b.toks = append([]Token{}, b.toks[n:]...)
}

// Check reports whether the next token has kind k, without consuming
// it. The parser never consumes a token without having peeked it
// first; Check/Want/Skip/Eat are how it does so.
func (b *Buffer) Check(k Kind) (bool, error) {
	t, err := b.Peek(0)
	if err != nil {
		return false, err
	}
	return t.Kind == k, nil
}

// CheckKeyword reports whether the next token is an identifier whose
// lexeme equals kw.
func (b *Buffer) CheckKeyword(kw string) (bool, error) {
	t, err := b.Peek(0)
	if err != nil {
		return false, err
	}
	return t.Kind == Ident && t.Lexeme == kw, nil
}

// CheckPunct reports whether the next token is punctuation matching s.
func (b *Buffer) CheckPunct(s string) (bool, error) {
	t, err := b.Peek(0)
	if err != nil {
		return false, err
	}
	return t.Kind == Punct && t.Lexeme == s, nil
}

// Want consumes and returns the next token if it has kind k;
// otherwise it returns UnexpectedToken and leaves the buffer
// untouched.
func (b *Buffer) Want(k Kind) (Token, error) {
	t, err := b.Peek(0)
	if err != nil {
		return Token{}, err
	}
	if t.Kind != k {
		return Token{}, ioperr.NewUnexpectedToken(t.Loc, kindName(k), t.String())
	}
	b.Drop(1)
	return t, nil
}

// WantPunct consumes and returns the next token if it is punctuation
// matching s.
func (b *Buffer) WantPunct(s string) (Token, error) {
	t, err := b.Peek(0)
	if err != nil {
		return Token{}, err
	}
	if t.Kind != Punct || t.Lexeme != s {
		return Token{}, ioperr.NewUnexpectedToken(t.Loc, "`"+s+"`", t.String())
	}
	b.Drop(1)
	return t, nil
}

// EatKeyword consumes the next token if it is the identifier kw;
// otherwise it returns UnexpectedToken.
func (b *Buffer) EatKeyword(kw string) (Token, error) {
	t, err := b.Peek(0)
	if err != nil {
		return Token{}, err
	}
	if t.Kind != Ident || t.Lexeme != kw {
		return Token{}, ioperr.NewUnexpectedToken(t.Loc, "`"+kw+"`", t.String())
	}
	b.Drop(1)
	return t, nil
}

// Skip consumes the next token if it has kind k, returning whether it
// did so. Unlike Want, a mismatch is not an error.
func (b *Buffer) Skip(k Kind) (bool, error) {
	ok, err := b.Check(k)
	if err != nil || !ok {
		return false, err
	}
	b.Drop(1)
	return true, nil
}

// SkipPunct consumes the next token if it is punctuation matching s.
func (b *Buffer) SkipPunct(s string) (bool, error) {
	ok, err := b.CheckPunct(s)
	if err != nil || !ok {
		return false, err
	}
	b.Drop(1)
	return true, nil
}

// Eat unconditionally consumes and returns the next token. Callers
// must have already Checked it.
func (b *Buffer) Eat() (Token, error) {
	t, err := b.Peek(0)
	if err != nil {
		return Token{}, err
	}
	b.Drop(1)
	return t, nil
}

// PushMode/PopMode forward to the underlying lexer, used by the
// parser around attribute argument lists. Because tokens already
// buffered were lexed under the prior mode, callers must only switch
// modes at a point where the buffer is empty of un-lexed lookahead for
// the region affected -- in practice, right after consuming the
// opening '(' of an attribute argument list.
func (b *Buffer) PushMode(m Mode) { b.lex.PushMode(m) }
func (b *Buffer) PopMode()        { b.lex.PopMode() }

func kindName(k Kind) string {
	switch k {
	case Ident:
		return "identifier"
	case IntLit:
		return "integer literal"
	case DoubleLit:
		return "double literal"
	case StringLit:
		return "string literal"
	case CharLit:
		return "char literal"
	case BoolLit:
		return "boolean literal"
	case DoxComment:
		return "doxygen comment"
	case AttrStart:
		return "`@`"
	case GenericAttrID:
		return "generic attribute name"
	case EOF:
		return "end of file"
	default:
		return "token"
	}
}
