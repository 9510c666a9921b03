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
	"fmt"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/attrreg"
	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/token"
)

// parseAttribute parses one `@name` or `@name(arg, ...)` or
// `@ns:name(...)` application. The lexer is switched to attribute mode
// around the argument list so that generic-attribute colon-qualified
// names tokenize correctly (spec.md section 4.1 "Lexer states").
func (p *Parser) parseAttribute() (*ast.Attribute, error) {
	start, err := p.buf.Want(token.AttrStart)
	if err != nil {
		return nil, err
	}

	p.buf.PushMode(token.ModeAttribute)
	nameTok, err := p.buf.Peek(0)
	if err != nil {
		p.buf.PopMode()
		return nil, err
	}
	var name string
	switch nameTok.Kind {
	case token.GenericAttrID, token.Ident:
		p.buf.Drop(1)
		name = nameTok.Lexeme
	default:
		p.buf.PopMode()
		return nil, ioperr.NewUnexpectedToken(nameTok.Loc, "attribute name", nameTok.String())
	}

	attr := &ast.Attribute{Loc: start.Loc, Name: name}
	// desc is looked up eagerly (rather than left to applyAttrs, which
	// runs once the owning declaration/field is known) purely to learn
	// each positional argument's expected ArgKind below; an unknown
	// name is still reported properly, against the owner, by applyAttrs.
	desc, _ := p.attrs.Lookup(baseAttrName(name))

	hasParen, err := p.buf.CheckPunct("(")
	if err != nil {
		p.buf.PopMode()
		return nil, err
	}
	if hasParen {
		p.buf.Drop(1)
		i := 0
		for {
			closed, err := p.buf.SkipPunct(")")
			if err != nil {
				p.buf.PopMode()
				return nil, err
			}
			if closed {
				break
			}
			v, err := p.parseAttrArg(argKindFor(desc, i))
			if err != nil {
				p.buf.PopMode()
				return nil, err
			}
			attr.Args = append(attr.Args, v)
			i++
			if _, err := p.buf.SkipPunct(","); err != nil {
				p.buf.PopMode()
				return nil, err
			}
		}
	}
	p.buf.PopMode()
	return attr, nil
}

// argKindFor returns the ArgKind expected for the i-th positional
// argument of d, mirroring iopc-parser.c's IOPC_ATTR_REPEATED_MONO_ARG
// handling: a FlagMulti descriptor declaring exactly one ArgDesc (e.g.
// @pattern, @allow) repeats that same kind for every argument rather
// than running out of positions. An unknown descriptor, or a position
// beyond a non-repeating descriptor's declared argument count, falls
// back to ArgIdent -- the permissive case that takes the token as-is
// without attempting enum-value resolution, so an attribute this table
// cannot account for still parses rather than erroring here (applyAttrs
// reports the real problem once the owner is known).
func argKindFor(d *attrreg.Descriptor, i int) attrreg.ArgKind {
	if d == nil || len(d.Args) == 0 {
		return attrreg.ArgIdent
	}
	if d.Flags&attrreg.FlagMulti != 0 && len(d.Args) == 1 {
		return d.Args[0].Kind
	}
	if i < len(d.Args) {
		return d.Args[i].Kind
	}
	return attrreg.ArgIdent
}

// numericArgKind reports whether kind expects an integer constant,
// i.e. one that may be spelled as an enum-value identifier and folded
// to its signed integer (spec.md section 4.2), as opposed to ArgIdent/
// ArgString/ArgJSON arguments, which keep an identifier token as a
// plain name instead of resolving it.
func numericArgKind(kind attrreg.ArgKind) bool {
	switch kind {
	case attrreg.ArgInt, attrreg.ArgDouble, attrreg.ArgEnumValue:
		return true
	default:
		return false
	}
}

// parseAttrArg parses one attribute-argument token into a tagged
// ast.Value: int/double/string literals directly, or an identifier --
// resolved against the compilation-wide enum table to VEnumValue when
// kind expects a number (spec.md section 4.2 "Enum-value identifiers
// fed as numbers use the enum value's signed integer"; section 3
// "Attribute instance": "each argument is a tagged union over
// integer/double/string/identifier/enum-value"), otherwise kept as a
// plain VIdent name (e.g. @ctype's type name, @allow's field name).
func (p *Parser) parseAttrArg(kind attrreg.ArgKind) (ast.Value, error) {
	t, err := p.buf.Peek(0)
	if err != nil {
		return ast.Value{}, err
	}
	switch t.Kind {
	case token.IntLit:
		p.buf.Drop(1)
		return ast.Value{Kind: ast.VInt, I64: t.IntVal, Signed: t.IntSigned}, nil
	case token.DoubleLit:
		p.buf.Drop(1)
		return ast.Value{Kind: ast.VDouble, F64: t.DoubleVal}, nil
	case token.StringLit:
		p.buf.Drop(1)
		return ast.Value{Kind: ast.VString, Str: t.StrVal}, nil
	case token.BoolLit:
		p.buf.Drop(1)
		s := "false"
		if t.BoolVal {
			s = "true"
		}
		return ast.Value{Kind: ast.VIdent, Str: s}, nil
	case token.Ident, token.GenericAttrID:
		p.buf.Drop(1)
		if numericArgKind(kind) {
			ev, ok := p.enums.Get(t.Lexeme)
			if !ok {
				return ast.Value{}, ioperr.NewUnresolvedType(t.Loc, t.Lexeme)
			}
			return ast.Value{Kind: ast.VEnumValue, I64: ev.Value, Signed: true, EnumValue: ev}, nil
		}
		return ast.Value{Kind: ast.VIdent, Str: t.Lexeme}, nil
	default:
		return ast.Value{}, ioperr.NewUnexpectedToken(t.Loc, "attribute argument", t.String())
	}
}

// attrOwner tracks how many times each descriptor has already been
// applied to one declaration or field, for the FlagMulti repetition
// check (spec.md section 4.3).
type attrOwner map[attrreg.ID]int

// applyAttrs validates every attribute in attrs against ctx (completed
// per-attribute by the caller with the owner's target/field-kind/repeat
// facts), returning the first error encountered, and sets each
// attribute's Descriptor field on success.
func (p *Parser) applyAttrs(attrs []*ast.Attribute, ctx attrreg.CheckContext) error {
	seen := attrOwner{}
	for _, a := range attrs {
		d, ok := p.attrs.Lookup(baseAttrName(a.Name))
		if !ok {
			return ioperr.NewAttributeError(a.Loc, a.Name, "is not a registered attribute")
		}
		a.Descriptor = d
		c := ctx
		c.PriorOnOwner = seen[d.ID]
		if d.ID == attrreg.Allow {
			c.SeenDisallow = attrSeen(attrs, attrreg.Disallow, p.attrs)
		}
		if d.ID == attrreg.Disallow {
			c.SeenAllow = attrSeen(attrs, attrreg.Allow, p.attrs)
		}
		if err := p.attrs.CheckApplication(a, d, c); err != nil {
			return err
		}
		seen[d.ID]++
	}
	return nil
}

// baseAttrName strips a generic attribute's "ns:" qualifier so registry
// lookup always resolves to either a concrete descriptor or the shared
// Generic descriptor -- the generic descriptor is itself registered
// under the bare name "generic", so a qualified name is looked up by
// checking for a colon and falling back to "generic".
func baseAttrName(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return "generic"
		}
	}
	return name
}

// attrSeen reports whether attrs contains an application of the
// descriptor named id.
func attrSeen(attrs []*ast.Attribute, id attrreg.ID, reg *attrreg.Registry) bool {
	want, ok := reg.ByID(id)
	if !ok {
		return false
	}
	for _, a := range attrs {
		if d, ok := a.Descriptor.(*attrreg.Descriptor); ok && d == want {
			return true
		}
	}
	return false
}

// nowarnCategories returns the set of avoid-keyword categories
// suppressed by `@nowarn("category")` applications in attrs.
func nowarnCategories(attrs []*ast.Attribute) map[string]bool {
	out := map[string]bool{}
	for _, a := range attrs {
		if a.Name != "nowarn" {
			continue
		}
		for _, v := range a.Args {
			if v.Kind == ast.VString {
				out[v.Str] = true
			}
		}
	}
	return out
}

// checkAvoidKeyword appends a warning to p.Warnings if name is in
// avoidKeywords and not suppressed, per spec.md section 4.5.
func (p *Parser) checkAvoidKeyword(loc ioperr.Loc, name string, attrs []*ast.Attribute) {
	if p.cfg.SuppressWarnings || !avoidKeywords[name] {
		return
	}
	if nowarnCategories(attrs)[name] {
		return
	}
	p.Warnings = append(p.Warnings, fmt.Sprintf("%s: %q is a discouraged identifier", loc, name))
}
