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
	"encoding/json"

	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/token"
)

// jsonParser re-parses a `\example` doxygen chunk's raw text against the
// JSON-object subset of constant-value syntax (spec.md section 4.4 and
// section 9 "Doxygen example re-parsing"): objects, arrays, strings,
// numbers, booleans and null, tokenized by the same lexer/buffer the
// rest of the parser uses. It re-serializes the result into canonical
// JSON text, stored verbatim in the owning ast.DoxBlock.Example field.
type jsonParser struct {
	buf *token.Buffer
}

// parseValue parses one JSON value and renders it back to canonical
// JSON text.
func (jp *jsonParser) parseValue() (string, error) {
	v, err := jp.parseAny()
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseAny parses one JSON value into a generic Go value suitable for
// json.Marshal.
func (jp *jsonParser) parseAny() (interface{}, error) {
	t, err := jp.buf.Peek(0)
	if err != nil {
		return nil, err
	}

	switch t.Kind {
	case token.StringLit:
		jp.buf.Drop(1)
		return t.StrVal, nil
	case token.IntLit:
		jp.buf.Drop(1)
		if t.IntSigned {
			return t.IntVal, nil
		}
		return uint64(t.IntVal), nil
	case token.DoubleLit:
		jp.buf.Drop(1)
		return t.DoubleVal, nil
	case token.BoolLit:
		jp.buf.Drop(1)
		return t.BoolVal, nil
	case token.Ident:
		switch t.Lexeme {
		case "null":
			jp.buf.Drop(1)
			return nil, nil
		case "true", "false":
			jp.buf.Drop(1)
			return t.Lexeme == "true", nil
		}
		return nil, ioperr.NewIllFormedExpression(t.Loc, "unexpected identifier %q in example JSON", t.Lexeme)
	case token.Punct:
		switch t.Lexeme {
		case "{":
			return jp.parseObject()
		case "[":
			return jp.parseArray()
		case "-":
			jp.buf.Drop(1)
			num, err := jp.buf.Want(token.IntLit)
			if err == nil {
				return -num.IntVal, nil
			}
			d, derr := jp.buf.Want(token.DoubleLit)
			if derr != nil {
				return nil, derr
			}
			return -d.DoubleVal, nil
		}
	}
	return nil, ioperr.NewIllFormedExpression(t.Loc, "unexpected token %s in example JSON", t.String())
}

// parseObject parses `"{" [ STRING ":" value { "," STRING ":" value } ] "}"`.
func (jp *jsonParser) parseObject() (interface{}, error) {
	if _, err := jp.buf.WantPunct("{"); err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	closed, err := jp.buf.SkipPunct("}")
	if err != nil {
		return nil, err
	}
	if closed {
		return out, nil
	}
	for {
		keyTok, err := jp.buf.Want(token.StringLit)
		if err != nil {
			return nil, err
		}
		if _, err := jp.buf.WantPunct(":"); err != nil {
			return nil, err
		}
		v, err := jp.parseAny()
		if err != nil {
			return nil, err
		}
		out[keyTok.StrVal] = v

		more, err := jp.buf.SkipPunct(",")
		if err != nil {
			return nil, err
		}
		if more {
			continue
		}
		if _, err := jp.buf.WantPunct("}"); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// parseArray parses `"[" [ value { "," value } ] "]"`.
func (jp *jsonParser) parseArray() (interface{}, error) {
	if _, err := jp.buf.WantPunct("["); err != nil {
		return nil, err
	}
	out := []interface{}{}
	closed, err := jp.buf.SkipPunct("]")
	if err != nil {
		return nil, err
	}
	if closed {
		return out, nil
	}
	for {
		v, err := jp.parseAny()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		more, err := jp.buf.SkipPunct(",")
		if err != nil {
			return nil, err
		}
		if more {
			continue
		}
		if _, err := jp.buf.WantPunct("]"); err != nil {
			return nil, err
		}
		return out, nil
	}
}
