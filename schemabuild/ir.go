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

// Package schemabuild implements the reflective schema builder of
// spec.md section 4.8: a second entry point into the same two-pass
// resolver (package resolver), fed an IOP value description of a
// package instead of source text. It is the schema-of-schemas half of
// the compiler -- everything package parser derives from a token
// stream, this package derives from the Package/Decl/Field value shape
// below, then hands the result to the same Pass-1/Pass-2 the file-based
// path uses.
package schemabuild

// TypeKind discriminates the four shapes a Type value may take:
// a builtin keyword, a (possibly dotted) type name resolved against
// the live environment, an array of another Type, or an opaque id
// resolved through a caller-supplied TypeTable.
type TypeKind int

const (
	TBuiltin TypeKind = iota
	TName
	TArray
	TTypeID
)

// Type is the value-shape counterpart of a field's type_ref, spec.md
// section 4.8: "a Type variant over builtins, a typename string, an
// array-of-type, and an opaque type-id".
type Type struct {
	Kind TypeKind

	// Builtin is one of the lexer's builtin type keywords (bool, byte,
	// short, int, long, double, string, bytes, xml, void, and their
	// unsigned counterparts), valid when Kind == TBuiltin.
	Builtin string

	// PkgPath/Name name a cross- or same-package struct/union/enum,
	// valid when Kind == TName. PkgPath is nil for a same-package
	// reference.
	PkgPath []string
	Name    string

	// Elem is the element type of an array, valid when Kind == TArray.
	// IOP has no nested arrays; Elem is never itself a TArray.
	Elem *Type

	// TypeID is an opaque identifier resolved through the Builder's
	// TypeTable, valid when Kind == TTypeID.
	TypeID int
}

// Field is the value-shape counterpart of ast.Field, spec.md section
// 4.8: "Field { name, tag?, type, optional?, isReference, ... }".
type Field struct {
	Name     string
	Tag      int // ignored unless HasTag
	HasTag   bool
	Type     Type
	Optional bool
	Static   bool
	Reference bool
}

// EnumValue is one member of an Enum declaration's value list.
type EnumValue struct {
	Name     string
	Value    int64
	HasValue bool
}

// DeclKind discriminates the declaration variants a Package's Elems may
// hold, mirroring ast.StructKind plus the non-composite declaration
// forms.
type DeclKind int

const (
	DStruct DeclKind = iota
	DUnion
	DClass
	DSNMPObject
	DSNMPTable
	DEnum
	DInterface
	DSNMPInterface
	DModule
)

// RPC is the value-shape counterpart of ast.RPC: a name, an optional
// explicit tag, and up to three payload clauses. A payload clause is
// either a named reference (Ref non-empty), an inline field list
// (Anon non-nil, possibly empty), or omitted entirely (both nil/empty
// and Void false).
type RPC struct {
	Name   string
	Tag    int
	HasTag bool

	ArgsRef, ResultRef, ExnRef *Type
	ArgsAnon, ResultAnon, ExnAnon []Field
	ResultVoid                    bool
}

// ModuleField is the value-shape counterpart of ast.ModuleField.
type ModuleField struct {
	Name   string
	Tag    int
	HasTag bool
	Iface  Type
}

// Decl is one top-level declaration inside a Package, tagged by Kind;
// only the fields relevant to that Kind are populated.
type Decl struct {
	Kind DeclKind
	Name string

	// ClassID/Parent apply to DClass, DSNMPObject, DSNMPTable.
	ClassID *int
	Parent  *Type

	Fields       []Field // DStruct, DUnion, DClass, DSNMPObject, DSNMPTable
	Values       []EnumValue // DEnum

	// SNMPIfaceParent/Oid apply to DSNMPInterface.
	SNMPIfaceParent *Type
	Oid             string

	RPCs []RPC // DInterface, DSNMPInterface

	ModuleFields []ModuleField // DModule
}

// Package is the value-shape counterpart of ast.Package: a dotted name
// plus a flat list of declarations, spec.md section 4.8 "Package {
// name, elems: [Struct|Union|Enum|...] }".
type Package struct {
	Name  string // dotted, e.g. "intersec.snmp.core"
	Elems []Decl
}

// TypeTable is the caller-supplied bidirectional mapping of spec.md
// section 4.8: it resolves an opaque type_id to the package path and
// name of a struct/union/enum already registered in the live
// environment or produced by a previous Builder.Build call.
type TypeTable interface {
	Resolve(id int) (pkgPath []string, name string, ok bool)
}
