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
	"github.com/intersec-oss/iopc/internal/trace"
	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/token"
)

// parseTopDecl parses one `top_decl` per spec.md section 4.5's grammar
// skeleton: a run of leading attributes/doxygen, then one of struct,
// union, class, snmpObj, snmpTbl, enum, interface, snmpIface, module,
// or typedef.
func (p *Parser) parseTopDecl() error {
	pd, err := p.readLeading()
	if err != nil {
		return err
	}

	kw, err := p.buf.Want(token.Ident)
	if err != nil {
		return err
	}

	switch kw.Lexeme {
	case "struct":
		return p.parseComposite(ast.SKStruct, pd)
	case "union":
		return p.parseComposite(ast.SKUnion, pd)
	case "class":
		return p.parseComposite(ast.SKClass, pd)
	case "snmpObj":
		return p.parseComposite(ast.SKSNMPObject, pd)
	case "snmpTbl":
		return p.parseComposite(ast.SKSNMPTable, pd)
	case "enum":
		return p.parseEnum(pd)
	case "interface":
		return p.parseInterface(pd, false)
	case "snmpIface":
		return p.parseInterface(pd, true)
	case "module":
		return p.parseModule(pd)
	case "typedef":
		return p.parseTypedef(pd)
	default:
		return ioperr.NewUnexpectedToken(kw.Loc, "a top-level declaration keyword", kw.String())
	}
}

// parseComposite parses `decl = UPPER_IDENT [ class_spec ] "{" { field_stmt ";" } "}" ";"`
// shared by struct/union/class/snmpObj/snmpTbl, per spec.md section 4.5.
func (p *Parser) parseComposite(kind ast.StructKind, pd *pendingDoc) error {
	nameTok, err := p.buf.Want(token.Ident)
	if err != nil {
		return err
	}
	if !isUpperInitial(nameTok.Lexeme) {
		return ioperr.NewInvalidIdentifier(nameTok.Loc, nameTok.Lexeme, "composite name must start uppercase")
	}
	if err := checkName(nameTok.Loc, nameTok.Lexeme); err != nil {
		return err
	}
	p.checkAvoidKeyword(nameTok.Loc, nameTok.Lexeme, pd.attrs)

	defer trace.Scope("parsing %s %s", kind, nameTok.Lexeme)()

	c := &ast.Composite{Kind: kind, Name: nameTok.Lexeme, Loc: nameTok.Loc, Pkg: p.pkg}

	isClassLike := kind == ast.SKClass || kind == ast.SKSNMPObject || kind == ast.SKSNMPTable
	if isClassLike {
		hasColon, err := p.buf.CheckPunct(":")
		if err != nil {
			return err
		}
		if hasColon {
			id, parent, err := p.parseClassSpec()
			if err != nil {
				return err
			}
			c.ClassID = &id
			c.ParentRef = parent
		}
		if c.ParentRef == nil {
			switch {
			case kind == ast.SKSNMPObject && nameTok.Lexeme == "Intersec":
				c.IsSNMPRoot = true
			case kind == ast.SKSNMPObject, kind == ast.SKSNMPTable:
				return ioperr.NewInheritanceError(nameTok.Loc, "SNMP object/table %q must declare a parent", nameTok.Lexeme)
			}
		}
		if c.ClassID != nil {
			if err := p.checkClassID(nameTok.Loc, *c.ClassID, kind != ast.SKClass); err != nil {
				return err
			}
		}
	}

	if _, err := p.buf.WantPunct("{"); err != nil {
		return err
	}
	if err := p.parseFieldList(c); err != nil {
		return err
	}
	if _, err := p.buf.WantPunct(";"); err != nil {
		return err
	}

	if err := p.readTrailing(pd); err != nil {
		return err
	}
	c.Dox, err = p.classify(pd)
	if err != nil {
		return err
	}
	c.Attrs = pd.attrs

	if kind == ast.SKUnion && len(c.Fields) == 0 {
		return ioperr.NewConstraintError(nameTok.Loc, "union %q must declare at least one field", nameTok.Lexeme)
	}
	if kind == ast.SKSNMPTable {
		hasIndex := false
		for _, f := range c.Fields {
			if f.SNMPInTable {
				hasIndex = true
				break
			}
		}
		if !hasIndex {
			return ioperr.NewConstraintError(nameTok.Loc, "SNMP table %q must declare a field with @snmpIndex", nameTok.Lexeme)
		}
	}

	if err := p.applyAttrs(c.Attrs, attrreg.CheckContext{Target: attrreg.TargetMaskOf(kind)}); err != nil {
		return err
	}

	switch kind {
	case ast.SKStruct:
		p.pkg.Structs = append(p.pkg.Structs, c)
	case ast.SKUnion:
		p.pkg.Unions = append(p.pkg.Unions, c)
	case ast.SKClass:
		p.pkg.Classes = append(p.pkg.Classes, c)
	case ast.SKSNMPObject:
		p.pkg.SNMPObjects = append(p.pkg.SNMPObjects, c)
	case ast.SKSNMPTable:
		p.pkg.SNMPTables = append(p.pkg.SNMPTables, c)
	}
	return nil
}

// parseClassSpec parses `":" INT [ ":" type_ref ]`.
func (p *Parser) parseClassSpec() (int, *ast.TypeRef, error) {
	if _, err := p.buf.WantPunct(":"); err != nil {
		return 0, nil, err
	}
	idTok, err := p.buf.Want(token.IntLit)
	if err != nil {
		return 0, nil, err
	}
	hasParent, err := p.buf.CheckPunct(":")
	if err != nil {
		return 0, nil, err
	}
	var parent *ast.TypeRef
	if hasParent {
		p.buf.Drop(1)
		parent, err = p.parseTypeName()
		if err != nil {
			return 0, nil, err
		}
	}
	return int(idTok.IntVal), parent, nil
}

// checkClassID validates a class/SNMP id against the configured range
// for the main package, or the wider dependency-package range
// otherwise, per spec.md section 4.5 "Class / SNMP id parsing".
func (p *Parser) checkClassID(loc ioperr.Loc, id int, isSNMP bool) error {
	if id < 0 || id > 0xFFFF {
		return ioperr.NewInvalidClassId(loc, id, "out of the 16-bit range")
	}
	if p.pkg.Main {
		if id < int(p.cfg.ClassIDMin) || id > int(p.cfg.ClassIDMax) {
			return ioperr.NewInvalidClassId(loc, id, fmt.Sprintf("out of configured range [%d..%d]", p.cfg.ClassIDMin, p.cfg.ClassIDMax))
		}
		return nil
	}
	if isSNMP && id == 0 {
		return ioperr.NewInvalidClassId(loc, id, "SNMP object/table id must be at least 1")
	}
	return nil
}

// checkTag validates a field/RPC tag against spec.md section 3's
// `1..0x7FFF` range, 0x8000 reserved.
func checkTag(loc ioperr.Loc, tag int) error {
	if tag < 1 || tag > 0x7FFF {
		return ioperr.NewInvalidTag(loc, tag, "must be in [1..0x7FFF]")
	}
	return nil
}

// parseFieldList parses `{ field_stmt ";" }` up to (not including) the
// closing "}", appending to c.Fields/StaticFields and validating tag
// and name uniqueness and attribute applications as it goes.
func (p *Parser) parseFieldList(c *ast.Composite) error {
	nextTag := 1
	seenTags := map[int]bool{}
	seenNames := map[string]bool{}

	for {
		closed, err := p.buf.CheckPunct("}")
		if err != nil {
			return err
		}
		if closed {
			p.buf.Drop(1)
			return nil
		}

		f, err := p.parseField(c, &nextTag, ";")
		if err != nil {
			return err
		}

		if !f.Static {
			if seenTags[f.Tag] {
				return ioperr.NewInvalidTag(f.Loc, f.Tag, "is already used in this composite")
			}
			seenTags[f.Tag] = true
		}
		if seenNames[f.Name] {
			return ioperr.NewInvalidIdentifier(f.Loc, f.Name, "is already declared in this composite")
		}
		seenNames[f.Name] = true

		f.Owner = c
		if f.Static {
			c.StaticFields = append(c.StaticFields, f)
		} else {
			c.Fields = append(c.Fields, f)
		}
	}
}

// parseField parses one `field_stmt`:
//
//	[ INT ":" ] [ "static" ] type_ref [ "&" ] LOWER_IDENT [ "?" | "[" "]" ] [ "=" defval ] term
//
// per spec.md section 4.5 "Field parsing specifics". term is the
// punctuation that ends the field: ";" for an ordinary composite field
// list, "," for an anonymous RPC-argument payload (where fields are
// comma-separated with no trailing semicolon, and the caller -- not
// this function -- consumes the terminator).
func (p *Parser) parseField(c *ast.Composite, nextTag *int, term string) (*ast.Field, error) {
	pd, err := p.readLeading()
	if err != nil {
		return nil, err
	}

	var explicitTag *int
	if isInt, err := p.buf.Check(token.IntLit); err != nil {
		return nil, err
	} else if isInt {
		if isColon, err := p.peekAheadPunct(1, ":"); err != nil {
			return nil, err
		} else if isColon {
			t, _ := p.buf.Eat()
			p.buf.Drop(1) // ':'
			v := int(t.IntVal)
			explicitTag = &v
		}
	}

	static, err := p.buf.CheckKeyword("static")
	if err != nil {
		return nil, err
	}
	if static {
		p.buf.Drop(1)
	}

	pt, err := p.parseTypeRef()
	if err != nil {
		return nil, err
	}

	reference, err := p.buf.SkipPunct("&")
	if err != nil {
		return nil, err
	}

	nameTok, err := p.buf.Want(token.Ident)
	if err != nil {
		return nil, err
	}
	if !isLowerInitial(nameTok.Lexeme) {
		return nil, ioperr.NewInvalidIdentifier(nameTok.Loc, nameTok.Lexeme, "field name must start lowercase")
	}
	if err := checkName(nameTok.Loc, nameTok.Lexeme); err != nil {
		return nil, err
	}
	p.checkAvoidKeyword(nameTok.Loc, nameTok.Lexeme, pd.attrs)

	repeat := ast.Required
	if isOpt, err := p.buf.SkipPunct("?"); err != nil {
		return nil, err
	} else if isOpt {
		repeat = ast.Optional
	} else if isLBracket, err := p.buf.CheckPunct("["); err != nil {
		return nil, err
	} else if isLBracket {
		p.buf.Drop(1)
		if _, err := p.buf.WantPunct("]"); err != nil {
			return nil, err
		}
		repeat = ast.Repeated
	}

	f := &ast.Field{
		Name:      nameTok.Lexeme,
		Loc:       nameTok.Loc,
		Kind:      pt.Kind,
		TypeRef:   pt.Ref,
		Reference: reference,
		Static:    static,
		Repeat:    repeat,
	}

	hasDefault, err := p.buf.SkipPunct("=")
	if err != nil {
		return nil, err
	}
	if hasDefault {
		terms := []string{term}
		if term == "," {
			terms = []string{",", ")"}
		}
		v, err := p.parseDefaultValue(terms, nil)
		if err != nil {
			return nil, err
		}
		f.HasDefault = true
		f.Default = v
		if f.Repeat == ast.Required {
			f.Repeat = ast.RequiredDefault
		}
	}

	if term == ";" {
		if _, err := p.buf.WantPunct(";"); err != nil {
			return nil, err
		}
	}
	if err := p.readTrailing(pd); err != nil {
		return nil, err
	}
	f.Dox, err = p.classify(pd)
	if err != nil {
		return nil, err
	}
	f.Attrs = pd.attrs

	if f.Static && f.Repeat == ast.Optional {
		return nil, ioperr.NewConstraintError(f.Loc, "field %q may not be both optional and static", f.Name)
	}
	if f.Reference && f.Repeat != ast.Required && f.Repeat != ast.RequiredDefault {
		return nil, ioperr.NewConstraintError(f.Loc, "field %q: `&` is only valid on a required field", f.Name)
	}
	if f.Reference && f.Kind != ast.KindStruct {
		return nil, ioperr.NewConstraintError(f.Loc, "field %q: `&` is only valid on struct/union fields", f.Name)
	}
	if f.Kind == ast.KindVoid && f.Repeat == ast.Repeated {
		return nil, ioperr.NewConstraintError(f.Loc, "field %q: `void` may not be repeated", f.Name)
	}

	for _, a := range f.Attrs {
		if a.Name == "snmpIndex" {
			f.SNMPInTable = c.Kind == ast.SKSNMPTable
		}
		if a.Name == "snmpParam" {
			f.SNMPFromParam = true
		}
	}

	if !f.Static {
		if explicitTag != nil {
			if err := checkTag(f.Loc, *explicitTag); err != nil {
				return nil, err
			}
			f.Tag = *explicitTag
			*nextTag = f.Tag + 1
		} else {
			f.Tag = *nextTag
			*nextTag++
		}
	}

	fieldKind := attrreg.FieldKindMaskOf(f.Kind, false, false)
	if f.Kind == ast.KindStruct {
		// Struct, union or enum is not known before resolution; the
		// resolver re-runs the field-kind check with the resolved kind.
		fieldKind = attrreg.FStruct | attrreg.FUnion | attrreg.FEnum
	}
	ctx := attrreg.CheckContext{
		IsField:     true,
		FieldKind:   fieldKind,
		Repeat:      attrreg.RepeatMaskOf(f.Repeat),
		InSNMPTable: c.Kind == ast.SKSNMPTable,
	}
	if err := p.applyAttrs(f.Attrs, ctx); err != nil {
		return nil, err
	}

	return f, nil
}

// peekAheadPunct reports whether the token at lookahead index i is
// punctuation matching s.
func (p *Parser) peekAheadPunct(i int, s string) (bool, error) {
	t, err := p.buf.Peek(i)
	if err != nil {
		return false, err
	}
	return t.Kind == token.Punct && t.Lexeme == s, nil
}

// parseTypedef parses `"typedef" type_ref IDENT ";"`, reusing the Field
// shape with IsTypedef set (spec.md section 3 "Typedef").
func (p *Parser) parseTypedef(pd *pendingDoc) error {
	pt, err := p.parseTypeRef()
	if err != nil {
		return err
	}
	nameTok, err := p.buf.Want(token.Ident)
	if err != nil {
		return err
	}
	if !isUpperInitial(nameTok.Lexeme) {
		return ioperr.NewInvalidIdentifier(nameTok.Loc, nameTok.Lexeme, "typedef name must start uppercase")
	}
	if err := checkName(nameTok.Loc, nameTok.Lexeme); err != nil {
		return err
	}
	if _, err := p.buf.WantPunct(";"); err != nil {
		return err
	}
	if err := p.readTrailing(pd); err != nil {
		return err
	}
	dox, err := p.classify(pd)
	if err != nil {
		return err
	}

	f := &ast.Field{
		Name:      nameTok.Lexeme,
		Loc:       nameTok.Loc,
		Kind:      pt.Kind,
		TypeRef:   pt.Ref,
		IsTypedef: true,
		Attrs:     pd.attrs,
		Dox:       dox,
	}
	p.pkg.Typedefs = append(p.pkg.Typedefs, f)
	return nil
}

// parseEnum parses `"enum" UPPER_IDENT "{" [ enum_value { "," enum_value } [","] ] "}" ";"`,
// threading a local forward-reference map through parseConstExprUntilAny so that
// a later value's default may refer to an earlier sibling by name, and
// registering each value into p.enums as it is parsed so that any later
// file in the compilation -- not just this enum's own later siblings --
// can refer to it too (spec.md section 4.2 "Enum-value identifiers fed
// as numbers use the enum value's signed integer").
func (p *Parser) parseEnum(pd *pendingDoc) error {
	nameTok, err := p.buf.Want(token.Ident)
	if err != nil {
		return err
	}
	if !isUpperInitial(nameTok.Lexeme) {
		return ioperr.NewInvalidIdentifier(nameTok.Loc, nameTok.Lexeme, "enum name must start uppercase")
	}
	if err := checkName(nameTok.Loc, nameTok.Lexeme); err != nil {
		return err
	}

	defer trace.Scope("parsing enum %s", nameTok.Lexeme)()

	e := &ast.Enum{Name: nameTok.Lexeme, Loc: nameTok.Loc, Pkg: p.pkg}

	if _, err := p.buf.WantPunct("{"); err != nil {
		return err
	}

	localValues := map[string]int64{}
	next := int64(0)
	seenNames := map[string]bool{}

	for {
		closed, err := p.buf.CheckPunct("}")
		if err != nil {
			return err
		}
		if closed {
			p.buf.Drop(1)
			break
		}

		v, err := p.parseEnumValue(e, &next, localValues)
		if err != nil {
			return err
		}
		if seenNames[v.Name] {
			return ioperr.NewInvalidIdentifier(v.Loc, v.Name, "is already declared in this enum")
		}
		seenNames[v.Name] = true
		localValues[v.Name] = v.Value
		p.enums.Register(v)
		e.Values = append(e.Values, v)

		more, err := p.buf.SkipPunct(",")
		if err != nil {
			return err
		}
		if !more {
			if _, err := p.buf.WantPunct("}"); err != nil {
				return err
			}
			break
		}
	}

	if _, err := p.buf.WantPunct(";"); err != nil {
		return err
	}
	if err := p.readTrailing(pd); err != nil {
		return err
	}
	e.Dox, err = p.classify(pd)
	if err != nil {
		return err
	}
	e.Attrs = pd.attrs

	if err := p.applyAttrs(e.Attrs, attrreg.CheckContext{Target: attrreg.TEnum}); err != nil {
		return err
	}

	p.pkg.Enums = append(p.pkg.Enums, e)
	return nil
}

// parseEnumValue parses one `UPPER_SNAKE_IDENT [ "=" constexpr ]`,
// auto-incrementing from the previous value (or 0 for the first) when
// no explicit value is given.
func (p *Parser) parseEnumValue(owner *ast.Enum, next *int64, localValues map[string]int64) (*ast.EnumValue, error) {
	pd, err := p.readLeading()
	if err != nil {
		return nil, err
	}

	nameTok, err := p.buf.Want(token.Ident)
	if err != nil {
		return nil, err
	}
	if !isUpperSnake(nameTok.Lexeme) {
		return nil, ioperr.NewInvalidIdentifier(nameTok.Loc, nameTok.Lexeme, "enum value must be UPPER_SNAKE_CASE")
	}

	v := &ast.EnumValue{Name: nameTok.Lexeme, Loc: nameTok.Loc, Owner: owner, Attrs: pd.attrs}

	hasValue, err := p.buf.SkipPunct("=")
	if err != nil {
		return nil, err
	}
	if hasValue {
		val, err := p.parseConstExprUntilAny([]string{",", "}"}, localValues)
		if err != nil {
			return nil, err
		}
		v.Value = val.I64
	} else {
		v.Value = *next
	}
	*next = v.Value + 1

	if err := p.applyAttrs(v.Attrs, attrreg.CheckContext{}); err != nil {
		return nil, err
	}
	return v, nil
}

// parseInterface parses `("interface"|"snmpIface") UPPER_IDENT "{" { rpc_stmt } "}" ";"`.
// SNMP interfaces additionally require a parent clause and restrict RPC
// shape per spec.md section 4.5 "RPC parsing".
func (p *Parser) parseInterface(pd *pendingDoc, isSNMP bool) error {
	nameTok, err := p.buf.Want(token.Ident)
	if err != nil {
		return err
	}
	if !isUpperInitial(nameTok.Lexeme) {
		return ioperr.NewInvalidIdentifier(nameTok.Loc, nameTok.Lexeme, "interface name must start uppercase")
	}
	if err := checkName(nameTok.Loc, nameTok.Lexeme); err != nil {
		return err
	}

	defer trace.Scope("parsing interface %s", nameTok.Lexeme)()

	iface := &ast.Interface{Name: nameTok.Lexeme, Loc: nameTok.Loc, Pkg: p.pkg, IsSNMP: isSNMP}

	if isSNMP {
		if _, err := p.buf.WantPunct(":"); err != nil {
			return err
		}
		parent, err := p.parseTypeName()
		if err != nil {
			return err
		}
		iface.ParentRef = parent
	}

	if _, err := p.buf.WantPunct("{"); err != nil {
		return err
	}

	nextTag := 1
	seenNames := map[string]bool{}
	seenTags := map[int]bool{}
	for {
		closed, err := p.buf.CheckPunct("}")
		if err != nil {
			return err
		}
		if closed {
			p.buf.Drop(1)
			break
		}
		rpc, err := p.parseRPC(iface, &nextTag, isSNMP)
		if err != nil {
			return err
		}
		if seenNames[rpc.Name] {
			return ioperr.NewInvalidIdentifier(rpc.Loc, rpc.Name, "is already declared in this interface")
		}
		seenNames[rpc.Name] = true
		if seenTags[rpc.Tag] {
			return ioperr.NewInvalidTag(rpc.Loc, rpc.Tag, "is already used in this interface")
		}
		seenTags[rpc.Tag] = true
		rpc.Owner = iface
		iface.RPCs = append(iface.RPCs, rpc)
	}

	if _, err := p.buf.WantPunct(";"); err != nil {
		return err
	}
	if err := p.readTrailing(pd); err != nil {
		return err
	}
	iface.Dox, err = p.classify(pd)
	if err != nil {
		return err
	}
	iface.Attrs = pd.attrs

	target := attrreg.TInterface
	if isSNMP {
		target = attrreg.TSNMPIface
	}
	if err := p.applyAttrs(iface.Attrs, attrreg.CheckContext{Target: target}); err != nil {
		return err
	}

	if isSNMP {
		p.pkg.SNMPInterfaces = append(p.pkg.SNMPInterfaces, iface)
	} else {
		p.pkg.Interfaces = append(p.pkg.Interfaces, iface)
	}
	return nil
}

// parseRPC parses one RPC: `LOWER_IDENT [":" INT] ["in" payload] ["out" payload] ["throw" payload] ";"`.
func (p *Parser) parseRPC(iface *ast.Interface, nextTag *int, isSNMP bool) (*ast.RPC, error) {
	pd, err := p.readLeading()
	if err != nil {
		return nil, err
	}

	nameTok, err := p.buf.Want(token.Ident)
	if err != nil {
		return nil, err
	}
	if !isLowerInitial(nameTok.Lexeme) {
		return nil, ioperr.NewInvalidIdentifier(nameTok.Loc, nameTok.Lexeme, "RPC name must start lowercase")
	}
	if err := checkName(nameTok.Loc, nameTok.Lexeme); err != nil {
		return nil, err
	}

	rpc := &ast.RPC{Name: nameTok.Lexeme, Loc: nameTok.Loc}

	explicitTag := -1
	hasTag, err := p.buf.SkipPunct(":")
	if err != nil {
		return nil, err
	}
	if hasTag {
		tagTok, err := p.buf.Want(token.IntLit)
		if err != nil {
			return nil, err
		}
		explicitTag = int(tagTok.IntVal)
		if err := checkTag(tagTok.Loc, explicitTag); err != nil {
			return nil, err
		}
	}
	if explicitTag >= 0 {
		rpc.Tag = explicitTag
		*nextTag = explicitTag + 1
	} else {
		rpc.Tag = *nextTag
		*nextTag++
	}

	hasIn, err := p.buf.CheckKeyword("in")
	if err != nil {
		return nil, err
	}
	if hasIn {
		p.buf.Drop(1)
		payload, _, err := p.parsePayload(rpc.Name+"Args", false, false)
		if err != nil {
			return nil, err
		}
		rpc.Args = payload
	}

	hasOut, err := p.buf.CheckKeyword("out")
	if err != nil {
		return nil, err
	}
	if hasOut {
		if isSNMP {
			return nil, ioperr.NewConstraintError(nameTok.Loc, "SNMP interface RPC %q may not declare an `out` clause", rpc.Name)
		}
		p.buf.Drop(1)
		payload, async, err := p.parsePayload(rpc.Name+"Res", true, true)
		if err != nil {
			return nil, err
		}
		rpc.Result = payload
		rpc.Async = async
	}

	hasThrow, err := p.buf.CheckKeyword("throw")
	if err != nil {
		return nil, err
	}
	if hasThrow {
		if isSNMP {
			return nil, ioperr.NewConstraintError(nameTok.Loc, "SNMP interface RPC %q may not declare a `throw` clause", rpc.Name)
		}
		p.buf.Drop(1)
		payload, _, err := p.parsePayload(rpc.Name+"Exn", true, false)
		if err != nil {
			return nil, err
		}
		rpc.Exn = payload
	}

	if isSNMP && rpc.Args != nil && rpc.Args.Anon == nil {
		return nil, ioperr.NewConstraintError(nameTok.Loc, "SNMP interface RPC %q argument must be an anonymous struct", rpc.Name)
	}

	if _, err := p.buf.WantPunct(";"); err != nil {
		return nil, err
	}
	if err := p.readTrailing(pd); err != nil {
		return nil, err
	}
	rpc.Dox, err = p.classify(pd)
	if err != nil {
		return nil, err
	}
	rpc.Attrs = pd.attrs

	if err := p.applyAttrs(rpc.Attrs, attrreg.CheckContext{Target: attrreg.TRPC}); err != nil {
		return nil, err
	}

	return rpc, nil
}

// parsePayload parses one RPC clause's payload: an anonymous inline
// struct `"(" field_stmt* ")"`, a bare type reference, `"void"`, or (if
// allowNull) the literal `"null"` marking the RPC async -- per spec.md
// section 4.5 "RPC parsing". anonName is the synthetic struct name used
// when the payload is an anonymous field list (e.g. "fArgs" for RPC
// `f`'s `in` clause).
func (p *Parser) parsePayload(anonName string, allowVoid, allowNull bool) (*ast.RPCPayload, bool, error) {
	t, err := p.buf.Peek(0)
	if err != nil {
		return nil, false, err
	}

	if t.Kind == token.Ident && t.Lexeme == "null" {
		if !allowNull {
			return nil, false, ioperr.NewConstraintError(t.Loc, "`null` is not valid here")
		}
		p.buf.Drop(1)
		return nil, true, nil
	}
	if t.Kind == token.Ident && t.Lexeme == "void" {
		if !allowVoid {
			return nil, false, ioperr.NewConstraintError(t.Loc, "`void` is not valid here")
		}
		p.buf.Drop(1)
		return &ast.RPCPayload{Void: true, Loc: t.Loc}, false, nil
	}
	if t.Kind == token.Punct && t.Lexeme == "(" {
		p.buf.Drop(1)
		anon := &ast.Composite{Kind: ast.SKStruct, Name: anonName, Loc: t.Loc, Pkg: p.pkg}
		nextTag := 1
		for {
			closed, err := p.buf.CheckPunct(")")
			if err != nil {
				return nil, false, err
			}
			if closed {
				p.buf.Drop(1)
				break
			}
			f, err := p.parseField(anon, &nextTag, ",")
			if err != nil {
				return nil, false, err
			}
			f.Owner = anon
			anon.Fields = append(anon.Fields, f)
			if _, err := p.buf.SkipPunct(","); err != nil {
				return nil, false, err
			}
		}
		return &ast.RPCPayload{Anon: anon, Loc: t.Loc}, false, nil
	}

	ref, err := p.parseTypeName()
	if err != nil {
		return nil, false, err
	}
	return &ast.RPCPayload{Ref: ref, Loc: t.Loc}, false, nil
}

// parseModule parses `"module" UPPER_IDENT "{" { module_field } "}" ";"`.
func (p *Parser) parseModule(pd *pendingDoc) error {
	nameTok, err := p.buf.Want(token.Ident)
	if err != nil {
		return err
	}
	if !isUpperInitial(nameTok.Lexeme) {
		return ioperr.NewInvalidIdentifier(nameTok.Loc, nameTok.Lexeme, "module name must start uppercase")
	}
	if err := checkName(nameTok.Loc, nameTok.Lexeme); err != nil {
		return err
	}

	defer trace.Scope("parsing module %s", nameTok.Lexeme)()

	mod := &ast.Module{Name: nameTok.Lexeme, Loc: nameTok.Loc, Pkg: p.pkg}

	if _, err := p.buf.WantPunct("{"); err != nil {
		return err
	}

	nextTag := 1
	seenNames := map[string]bool{}
	seenTags := map[int]bool{}
	for {
		closed, err := p.buf.CheckPunct("}")
		if err != nil {
			return err
		}
		if closed {
			p.buf.Drop(1)
			break
		}
		mf, err := p.parseModuleField(&nextTag)
		if err != nil {
			return err
		}
		if seenNames[mf.Name] {
			return ioperr.NewInvalidIdentifier(mf.Loc, mf.Name, "is already declared in this module")
		}
		seenNames[mf.Name] = true
		if seenTags[mf.Tag] {
			return ioperr.NewInvalidTag(mf.Loc, mf.Tag, "is already used in this module")
		}
		seenTags[mf.Tag] = true
		mod.Fields = append(mod.Fields, mf)
	}

	if _, err := p.buf.WantPunct(";"); err != nil {
		return err
	}
	if err := p.readTrailing(pd); err != nil {
		return err
	}
	mod.Dox, err = p.classify(pd)
	if err != nil {
		return err
	}
	mod.Attrs = pd.attrs

	p.pkg.Modules = append(p.pkg.Modules, mod)
	return nil
}

// parseModuleField parses `type_ref LOWER_IDENT [":" INT] ";"`, a
// tag-to-interface binding inside a module.
func (p *Parser) parseModuleField(nextTag *int) (*ast.ModuleField, error) {
	ref, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}

	nameTok, err := p.buf.Want(token.Ident)
	if err != nil {
		return nil, err
	}
	if !isLowerInitial(nameTok.Lexeme) {
		return nil, ioperr.NewInvalidIdentifier(nameTok.Loc, nameTok.Lexeme, "module field name must start lowercase")
	}
	if err := checkName(nameTok.Loc, nameTok.Lexeme); err != nil {
		return nil, err
	}

	mf := &ast.ModuleField{Name: nameTok.Lexeme, Loc: nameTok.Loc, IfaceRef: ref}

	hasTag, err := p.buf.SkipPunct(":")
	if err != nil {
		return nil, err
	}
	if hasTag {
		tagTok, err := p.buf.Want(token.IntLit)
		if err != nil {
			return nil, err
		}
		mf.Tag = int(tagTok.IntVal)
		if err := checkTag(tagTok.Loc, mf.Tag); err != nil {
			return nil, err
		}
		*nextTag = mf.Tag + 1
	} else {
		mf.Tag = *nextTag
		*nextTag++
	}

	if _, err := p.buf.WantPunct(";"); err != nil {
		return nil, err
	}
	return mf, nil
}
