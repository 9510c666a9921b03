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
	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/token"
)

// builtinKinds maps a builtin type keyword to its ast.FieldKind, the
// naming convention reproduced from original_source/iopc's lexer
// keyword table.
var builtinKinds = map[string]ast.FieldKind{
	"bool":   ast.KindBool,
	"byte":   ast.KindI8,
	"ubyte":  ast.KindU8,
	"short":  ast.KindI16,
	"ushort": ast.KindU16,
	"int":    ast.KindI32,
	"uint":   ast.KindU32,
	"long":   ast.KindI64,
	"ulong":  ast.KindU64,
	"double": ast.KindDouble,
	"string": ast.KindString,
	"bytes":  ast.KindBytes,
	"xml":    ast.KindXML,
	"void":   ast.KindVoid,
}

// parsedType is the result of parseTypeRef: either a builtin kind, or
// a pending cross-type reference requiring resolution (spec.md section
// 4.7 pass 1).
type parsedType struct {
	Kind ast.FieldKind
	Ref  *ast.TypeRef // non-nil when Kind == ast.KindStruct (struct/union/enum, pending)
}

// parseTypeRef parses a field or typedef's type: a builtin keyword, a
// bare UPPER_IDENT (same-package reference), or a dotted lowercase path
// ending in UPPER_IDENT (spec.md section 4.5 "Qualified type
// references"). A dotted reference triggers an immediate recursive
// resolve via p.resolver so that the referenced package is loaded (and,
// if unseen, parsed) before this file's parse continues.
func (p *Parser) parseTypeRef() (parsedType, error) {
	t, err := p.buf.Peek(0)
	if err != nil {
		return parsedType{}, err
	}
	if t.Kind != token.Ident {
		return parsedType{}, ioperr.NewUnexpectedToken(t.Loc, "type name", t.String())
	}

	if kind, ok := builtinKinds[t.Lexeme]; ok {
		p.buf.Drop(1)
		return parsedType{Kind: kind}, nil
	}

	if isUpperInitial(t.Lexeme) {
		p.buf.Drop(1)
		ref := &ast.TypeRef{Name: t.Lexeme, Loc: t.Loc}
		return parsedType{Kind: ast.KindStruct, Ref: ref}, nil
	}

	if !isLowerInitial(t.Lexeme) {
		return parsedType{}, ioperr.NewUnexpectedToken(t.Loc, "type name", t.String())
	}

	path, loc, err := p.parseDottedLowerPath()
	if err != nil {
		return parsedType{}, err
	}
	if _, err := p.buf.WantPunct("."); err != nil {
		return parsedType{}, err
	}
	name, err := p.buf.Want(token.Ident)
	if err != nil {
		return parsedType{}, err
	}
	if !isUpperInitial(name.Lexeme) {
		return parsedType{}, ioperr.NewInvalidIdentifier(name.Loc, name.Lexeme, "qualified type name must start uppercase")
	}

	if p.resolver != nil {
		if _, err := p.resolver.Resolve(path, loc); err != nil {
			return parsedType{}, err
		}
	}
	p.pkg.Deps[path.String()] = true

	ref := &ast.TypeRef{PkgPath: path, Name: name.Lexeme, Loc: name.Loc}
	return parsedType{Kind: ast.KindStruct, Ref: ref}, nil
}

// parseTypeName parses a bare or dotted type reference used where only
// a name is wanted, not a full field type (class parents, RPC payload
// references, module interface references).
func (p *Parser) parseTypeName() (*ast.TypeRef, error) {
	pt, err := p.parseTypeRef()
	if err != nil {
		return nil, err
	}
	if pt.Ref == nil {
		return nil, ioperr.NewUnexpectedToken(ioperr.Loc{}, "type name", "builtin type")
	}
	return pt.Ref, nil
}
