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

// Package token implements the IOP lexer and its restartable token
// buffer, spec.md section 4.1. The lexer turns source text into a flat
// stream of Tokens; the Buffer gives the parser 1-token (or deeper)
// lookahead without the parser ever touching raw input.
package token

import "github.com/intersec-oss/iopc/ioperr"

// Kind discriminates the token variants named in spec.md section 4.1.
type Kind int

const (
	Invalid Kind = iota
	EOF

	Ident         // bare identifier
	GenericAttrID // "ns:name", only produced in attribute mode
	IntLit
	DoubleLit
	StringLit
	CharLit
	BoolLit
	DoxComment // a /** ... */ or /*! ... */ block, raw text in Lexeme
	AttrStart  // '@'

	Punct // punctuation / operators; exact text in Lexeme
)

// Token is one lexical unit: its kind, source span, literal text, and
// (for literals) a pre-parsed value.
type Token struct {
	Kind Kind
	Loc  ioperr.Loc

	// Lexeme is the raw source text: the identifier spelling, the
	// punctuation string ("<<", ";", ...), or the doxygen comment's
	// full raw text (markers included) for DoxComment.
	Lexeme string

	IntVal    int64
	IntSigned bool
	DoubleVal float64
	StrVal    string
	BoolVal   bool
}

// String renders a token for diagnostics, e.g. in UnexpectedToken
// messages.
func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of file"
	case Ident, Punct, GenericAttrID:
		return "`" + t.Lexeme + "`"
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
	default:
		return "token"
	}
}
