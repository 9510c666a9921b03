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

package schemabuild

import (
	"strings"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/attrreg"
	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/resolver"
)

// builtins maps the builtin type keywords that package parser's
// types.go accepts in a type_ref to the same FieldKind, plus the
// explicit-width spellings int8 through uint64.
var builtins = map[string]ast.FieldKind{
	"int8": ast.KindI8, "uint8": ast.KindU8, "byte": ast.KindI8, "ubyte": ast.KindU8,
	"int16": ast.KindI16, "uint16": ast.KindU16, "short": ast.KindI16, "ushort": ast.KindU16,
	"int32": ast.KindI32, "uint32": ast.KindU32, "int": ast.KindI32, "uint": ast.KindU32,
	"int64": ast.KindI64, "uint64": ast.KindU64, "long": ast.KindI64, "ulong": ast.KindU64,
	"bool": ast.KindBool, "double": ast.KindDouble,
	"string": ast.KindString, "bytes": ast.KindBytes, "xml": ast.KindXML,
	"void": ast.KindVoid,
}

// Builder constructs AST nodes from the value shape of this package
// directly into an Arena, then hands the result to package resolver --
// the same two passes package loader's file-based path feeds (spec.md
// section 4.8 "The builder produces AST nodes in exactly the shape
// Pass-1 and Pass-2 of section 4.7 expect, then invokes the resolver").
type Builder struct {
	arena *Arena
	attrs *attrreg.Registry
	table TypeTable

	// env is the live registry a built package is linked against: every
	// package already loaded or built, keyed by dotted name, plus the
	// package under construction itself (so a self-reference resolves).
	env map[string]*ast.Package
}

// NewBuilder returns a Builder that allocates into arena, resolves
// TTypeID type references through table (nil is valid: a build with no
// such references never consults it), and links name references
// against env -- typically the same registry a prior loader.Registry or
// Builder call produced.
func NewBuilder(arena *Arena, attrs *attrreg.Registry, table TypeTable, env map[string]*ast.Package) *Builder {
	if env == nil {
		env = map[string]*ast.Package{}
	}
	return &Builder{arena: arena, attrs: attrs, table: table, env: env}
}

// Build constructs pkg's AST into b's arena, registers it into b's
// environment under its dotted name, and resolves the whole environment
// (spec.md section 4.8: "On success it returns the runtime schema
// descriptor; on failure it returns an error with a diagnostic
// string"). A failed build leaves the environment exactly as it was
// before the call: the half-built package is never registered.
func (b *Builder) Build(pkg Package) (*resolver.Result, *ast.Package, error) {
	out := &ast.Package{
		Path: ast.PackagePath(strings.Split(pkg.Name, ".")),
		Main: true,
		Deps: map[string]bool{},
	}

	scratch := map[string]*ast.Package{out.Path.String(): out}
	for name, p := range b.env {
		scratch[name] = p
	}

	for _, d := range pkg.Elems {
		if err := b.buildDecl(out, d); err != nil {
			return nil, nil, err
		}
	}

	res, err := resolver.Resolve(b.attrs, scratch)
	if err != nil {
		return nil, nil, err
	}

	b.env[out.Path.String()] = out
	return res, out, nil
}

func (b *Builder) buildDecl(pkg *ast.Package, d Decl) error {
	switch d.Kind {
	case DStruct:
		return b.buildComposite(pkg, ast.SKStruct, d, &pkg.Structs)
	case DUnion:
		return b.buildComposite(pkg, ast.SKUnion, d, &pkg.Unions)
	case DClass:
		return b.buildComposite(pkg, ast.SKClass, d, &pkg.Classes)
	case DSNMPObject:
		return b.buildComposite(pkg, ast.SKSNMPObject, d, &pkg.SNMPObjects)
	case DSNMPTable:
		return b.buildComposite(pkg, ast.SKSNMPTable, d, &pkg.SNMPTables)
	case DEnum:
		return b.buildEnum(pkg, d)
	case DInterface:
		return b.buildInterface(pkg, d, false)
	case DSNMPInterface:
		return b.buildInterface(pkg, d, true)
	case DModule:
		return b.buildModule(pkg, d)
	default:
		return ioperr.NewConstraintError(ioperr.Loc{}, "unknown declaration kind for %q", d.Name)
	}
}

func (b *Builder) buildComposite(pkg *ast.Package, kind ast.StructKind, d Decl, into *[]*ast.Composite) error {
	c := b.arena.composite(kind, d.Name, pkg)
	c.ClassID = d.ClassID
	c.IsSNMPRoot = d.Name == "Intersec" && (kind == ast.SKSNMPObject || kind == ast.SKSNMPTable)

	if d.Parent != nil {
		ref, err := b.typeRef(*d.Parent)
		if err != nil {
			return err
		}
		c.ParentRef = ref
	}

	nextTag := 1
	for _, fd := range d.Fields {
		f, err := b.buildField(fd, &nextTag)
		if err != nil {
			return err
		}
		f.Owner = c
		if f.Static {
			c.StaticFields = append(c.StaticFields, f)
		} else {
			c.Fields = append(c.Fields, f)
		}
	}

	*into = append(*into, c)
	return nil
}

// buildField converts one value-shape Field into an ast.Field, auto-
// assigning its tag from nextTag when the caller left HasTag false --
// the same rule package parser's parseFieldList applies, so a package
// expressed as a value and the same package expressed as source
// produce identical tags.
func (b *Builder) buildField(fd Field, nextTag *int) (*ast.Field, error) {
	f := b.arena.field()
	f.Name = fd.Name
	f.Static = fd.Static
	f.Reference = fd.Reference

	if fd.HasTag {
		f.Tag = fd.Tag
		*nextTag = fd.Tag + 1
	} else {
		f.Tag = *nextTag
		*nextTag++
	}

	switch {
	case fd.Type.Kind == TArray:
		f.Repeat = ast.Repeated
		if err := b.applyType(f, *fd.Type.Elem); err != nil {
			return nil, err
		}
	case fd.Optional:
		f.Repeat = ast.Optional
		if err := b.applyType(f, fd.Type); err != nil {
			return nil, err
		}
	default:
		f.Repeat = ast.Required
		if err := b.applyType(f, fd.Type); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// applyType sets f's Kind and, for a named or type-id reference, its
// pending TypeRef -- left unresolved for the resolver's pass 1 to link,
// exactly as a parsed field's reference is.
func (b *Builder) applyType(f *ast.Field, t Type) error {
	switch t.Kind {
	case TBuiltin:
		kind, ok := builtins[t.Builtin]
		if !ok {
			return ioperr.NewConstraintError(ioperr.Loc{}, "field %q: unknown builtin type %q", f.Name, t.Builtin)
		}
		f.Kind = kind
	case TName:
		f.Kind = ast.KindStruct
		ref, err := b.typeRef(t)
		if err != nil {
			return err
		}
		f.TypeRef = ref
	case TTypeID:
		f.Kind = ast.KindStruct
		ref, err := b.typeIDRef(t.TypeID)
		if err != nil {
			return err
		}
		f.TypeRef = ref
	default:
		return ioperr.NewConstraintError(ioperr.Loc{}, "field %q: array type may not itself be an array", f.Name)
	}
	return nil
}

// typeRef builds a pending ast.TypeRef from a TName value, splitting a
// dotted PkgPath the same way a qualified source reference does.
func (b *Builder) typeRef(t Type) (*ast.TypeRef, error) {
	return &ast.TypeRef{PkgPath: ast.PackagePath(t.PkgPath), Name: t.Name}, nil
}

// typeIDRef resolves id through the Builder's TypeTable immediately --
// unlike a name reference, an opaque id has no textual form for the
// resolver to look up later, so it must be turned into a (package,
// name) pair here.
func (b *Builder) typeIDRef(id int) (*ast.TypeRef, error) {
	if b.table == nil {
		return nil, ioperr.NewUnresolvedType(ioperr.Loc{}, "<no type table configured>")
	}
	pkgPath, name, ok := b.table.Resolve(id)
	if !ok {
		return nil, ioperr.NewUnresolvedType(ioperr.Loc{}, "<type id>")
	}
	return &ast.TypeRef{PkgPath: ast.PackagePath(pkgPath), Name: name}, nil
}

func (b *Builder) buildEnum(pkg *ast.Package, d Decl) error {
	e := b.arena.enum(d.Name, pkg)
	for _, vd := range d.Values {
		v := b.arena.value()
		v.Name = vd.Name
		v.Value = vd.Value
		v.Owner = e
		e.Values = append(e.Values, v)
	}
	pkg.Enums = append(pkg.Enums, e)
	return nil
}

func (b *Builder) buildInterface(pkg *ast.Package, d Decl, isSNMP bool) error {
	i := b.arena.iface(d.Name, pkg, isSNMP)
	if d.SNMPIfaceParent != nil {
		ref, err := b.typeRef(*d.SNMPIfaceParent)
		if err != nil {
			return err
		}
		i.ParentRef = ref
	}
	i.Oid = d.Oid

	nextTag := 1
	for _, rd := range d.RPCs {
		r, err := b.buildRPC(i, rd, &nextTag)
		if err != nil {
			return err
		}
		i.RPCs = append(i.RPCs, r)
	}

	if isSNMP {
		pkg.SNMPInterfaces = append(pkg.SNMPInterfaces, i)
	} else {
		pkg.Interfaces = append(pkg.Interfaces, i)
	}
	return nil
}

func (b *Builder) buildRPC(owner *ast.Interface, rd RPC, nextTag *int) (*ast.RPC, error) {
	r := b.arena.rpc()
	r.Name = rd.Name
	r.Owner = owner

	if rd.HasTag {
		r.Tag = rd.Tag
		*nextTag = rd.Tag + 1
	} else {
		r.Tag = *nextTag
		*nextTag++
	}

	var err error
	if r.Args, err = b.buildPayload(rd.ArgsRef, rd.ArgsAnon, false, owner.Pkg); err != nil {
		return nil, err
	}
	if r.Result, err = b.buildPayload(rd.ResultRef, rd.ResultAnon, rd.ResultVoid, owner.Pkg); err != nil {
		return nil, err
	}
	if r.Exn, err = b.buildPayload(rd.ExnRef, rd.ExnAnon, false, owner.Pkg); err != nil {
		return nil, err
	}
	r.Async = rd.ResultVoid
	return r, nil
}

// buildPayload builds one of an RPC's three payload clauses: a named
// reference, an inline field list turned into an anonymous struct, a
// bare void, or -- when ref is nil, anon is nil and void is false --
// the clause's absence (a nil *ast.RPCPayload).
func (b *Builder) buildPayload(ref *Type, anon []Field, void bool, pkg *ast.Package) (*ast.RPCPayload, error) {
	switch {
	case ref != nil:
		tr, err := b.typeRef(*ref)
		if err != nil {
			return nil, err
		}
		return &ast.RPCPayload{Ref: tr}, nil
	case anon != nil:
		c := b.arena.composite(ast.SKStruct, "", pkg)
		c.Local = true
		nextTag := 1
		for _, fd := range anon {
			f, err := b.buildField(fd, &nextTag)
			if err != nil {
				return nil, err
			}
			f.Owner = c
			c.Fields = append(c.Fields, f)
		}
		return &ast.RPCPayload{Anon: c}, nil
	case void:
		return &ast.RPCPayload{Void: true}, nil
	default:
		return nil, nil
	}
}

func (b *Builder) buildModule(pkg *ast.Package, d Decl) error {
	m := b.arena.module(d.Name, pkg)
	nextTag := 1
	for _, mfd := range d.ModuleFields {
		mf := b.arena.moduleField()
		mf.Name = mfd.Name
		ref, err := b.typeRef(mfd.Iface)
		if err != nil {
			return err
		}
		mf.IfaceRef = ref

		if mfd.HasTag {
			mf.Tag = mfd.Tag
			nextTag = mfd.Tag + 1
		} else {
			mf.Tag = nextTag
			nextTag++
		}
		m.Fields = append(m.Fields, mf)
	}
	pkg.Modules = append(pkg.Modules, m)
	return nil
}
