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

import "testing"

func allTokens(t *testing.T, src string) []Token {
	t.Helper()
	lex := New("t.iop", []byte(src))
	var out []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			t.Fatalf("lex error: %v", err)
		}
		out = append(out, tok)
		if tok.Kind == EOF {
			return out
		}
	}
}

func TestLexIdentifiersAndPunct(t *testing.T) {
	toks := allTokens(t, "struct S { int a; };")
	want := []string{"struct", "S", "{", "int", "a", ";", "}", ";"}
	var i int
	for _, tok := range toks {
		if tok.Kind == EOF {
			break
		}
		if tok.Lexeme != want[i] {
			t.Fatalf("token %d: got %q, want %q", i, tok.Lexeme, want[i])
		}
		i++
	}
	if i != len(want) {
		t.Fatalf("got %d tokens, want %d", i, len(want))
	}
}

func TestLexIntegerBases(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"42", 42},
		{"0x2A", 42},
		{"052", 42},
		{"0b101010", 42},
		{"1K", 1024},
		{"2M", 2 * 1024 * 1024},
		{"1h", 3600},
		{"2m", 120},
	}
	for _, c := range cases {
		toks := allTokens(t, c.src)
		if toks[0].Kind != IntLit {
			t.Fatalf("%s: got kind %v, want IntLit", c.src, toks[0].Kind)
		}
		if toks[0].IntVal != c.want {
			t.Errorf("%s: got %d, want %d", c.src, toks[0].IntVal, c.want)
		}
	}
}

func TestLexDoubleLiteral(t *testing.T) {
	toks := allTokens(t, "3.14 1.5e10")
	if toks[0].Kind != DoubleLit || toks[0].DoubleVal != 3.14 {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Kind != DoubleLit || toks[1].DoubleVal != 1.5e10 {
		t.Fatalf("got %+v", toks[1])
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks := allTokens(t, `"a\nb\x41é"`)
	if toks[0].Kind != StringLit {
		t.Fatalf("got kind %v", toks[0].Kind)
	}
	want := "a\nbAé"
	if toks[0].StrVal != want {
		t.Fatalf("got %q, want %q", toks[0].StrVal, want)
	}
}

func TestLexCharLiteral(t *testing.T) {
	toks := allTokens(t, `c'\n' c'x'`)
	if toks[0].Kind != CharLit || toks[0].IntVal != '\n' {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[1].Kind != CharLit || toks[1].IntVal != 'x' {
		t.Fatalf("got %+v", toks[1])
	}
}

func TestLexDoxygenComment(t *testing.T) {
	toks := allTokens(t, "/** \\brief hi */ struct S {};")
	if toks[0].Kind != DoxComment {
		t.Fatalf("got kind %v, want DoxComment", toks[0].Kind)
	}
}

func TestLexMultiCharOperators(t *testing.T) {
	toks := allTokens(t, "1 << 3 ** 2 >> 1")
	var ops []string
	for _, tok := range toks {
		if tok.Kind == Punct {
			ops = append(ops, tok.Lexeme)
		}
	}
	want := []string{"<<", "**", ">>"}
	if len(ops) != len(want) {
		t.Fatalf("got ops %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("got ops %v, want %v", ops, want)
		}
	}
}

func TestLexGenericAttributeName(t *testing.T) {
	lex := New("t.iop", []byte("foo:bar"))
	lex.PushMode(ModeAttribute)
	tok, err := lex.Next()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if tok.Kind != GenericAttrID || tok.Lexeme != "foo:bar" {
		t.Fatalf("got %+v", tok)
	}
}

func TestLexUnterminatedStringIsLexicalError(t *testing.T) {
	lex := New("t.iop", []byte(`"abc`))
	_, err := lex.Next()
	if err == nil {
		t.Fatal("expected error")
	}
}
