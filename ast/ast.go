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

// Package ast defines the IOP compiler's data model: the directed graph
// of strongly typed nodes described in spec.md section 3. The parser
// (package parser) and the reflective schema builder (package
// schemabuild) both produce trees of these nodes; the resolver
// (package resolver) links and validates them in place.
package ast

import "github.com/intersec-oss/iopc/ioperr"

// Loc is re-exported from ioperr so that callers of this package do not
// need to import ioperr just to read a node's source location.
type Loc = ioperr.Loc

// Dottable is implemented by anything with a dotted-segment name:
// packages, and the lowercase segments of a qualified type reference.
type Dottable interface {
	Segments() []string
}

// PackagePath is an ordered sequence of lowercase identifiers, e.g.
// {"intersec", "snmp", "core"} for package intersec.snmp.core.
type PackagePath []string

// Segments implements Dottable.
func (p PackagePath) Segments() []string { return p }

// String renders the path dot-joined.
func (p PackagePath) String() string {
	out := ""
	for i, s := range p {
		if i > 0 {
			out += "."
		}
		out += s
	}
	return out
}

// Package is the top-level compilation unit of spec.md section 3.
type Package struct {
	Path PackagePath
	Loc  Loc

	// SourceFile is the path the package was parsed from; BaseDir is
	// its containing directory, used to resolve relative imports.
	SourceFile string
	BaseDir    string

	// Main is true for the package directly being compiled, as
	// opposed to a package parsed only to satisfy an import.
	Main bool

	Structs    []*Composite
	Unions     []*Composite
	Classes    []*Composite
	Typedefs   []*Field
	Enums      []*Enum
	Interfaces []*Interface
	Modules    []*Module

	SNMPObjects    []*Composite
	SNMPTables     []*Composite
	SNMPInterfaces []*Interface

	// Deps is the weak set of packages this package was discovered to
	// depend on, keyed by dotted name. Populated incrementally by the
	// parser as qualified type references are encountered, then
	// completed by the loader once parsing finishes (spec.md 4.6:
	// "every other package in the registry becomes a weak dependency
	// of the new one").
	Deps map[string]bool

	Dox *DoxBlock
}

// Segments implements Dottable.
func (p *Package) Segments() []string { return p.Path }

// AllComposites returns every struct/union/class/SNMP-object/SNMP-table
// owned by the package, in declaration order within each collection.
func (p *Package) AllComposites() []*Composite {
	out := make([]*Composite, 0, len(p.Structs)+len(p.Unions)+len(p.Classes)+len(p.SNMPObjects)+len(p.SNMPTables))
	out = append(out, p.Structs...)
	out = append(out, p.Unions...)
	out = append(out, p.Classes...)
	out = append(out, p.SNMPObjects...)
	out = append(out, p.SNMPTables...)
	return out
}

// StructKind discriminates the five composite variants that share the
// Composite shape (spec.md section 3).
type StructKind int

const (
	// SKStruct is a plain struct.
	SKStruct StructKind = iota
	// SKUnion is a union: exactly one field set at a time, at least
	// one field declared.
	SKUnion
	// SKClass is a class: has an id, an optional parent, may be
	// abstract or local.
	SKClass
	// SKSNMPObject is an SNMP object: like a class but id-ranges and
	// root-chain rules differ.
	SKSNMPObject
	// SKSNMPTable is an SNMP table: like SKSNMPObject but must carry
	// at least one @snmpIndex field.
	SKSNMPTable
)

func (k StructKind) String() string {
	switch k {
	case SKStruct:
		return "struct"
	case SKUnion:
		return "union"
	case SKClass:
		return "class"
	case SKSNMPObject:
		return "snmpObj"
	case SKSNMPTable:
		return "snmpTbl"
	default:
		return "?"
	}
}

// TypeRef names a cross-type reference before (and, once resolved,
// after) linking. Per spec.md section 9 "Cyclic graphs", unresolved
// references are stored as a (package-name, type-name) pair; once
// resolved they hold a direct pointer into the owning package's node.
type TypeRef struct {
	// PkgPath is nil for a same-package (bare uppercase identifier)
	// reference; otherwise the dotted package path that prefixed the
	// dotted type name.
	PkgPath PackagePath
	Name    string
	Loc     Loc

	// Resolved is set by the resolver to *Composite or *Enum.
	Resolved interface{}
}

// Composite is the shared shape of struct, union, class, SNMP-object
// and SNMP-table declarations.
type Composite struct {
	Kind StructKind
	Name string
	Loc  Loc

	Pkg *Package

	Abstract bool
	Local    bool // only meaningful for SKClass

	// ClassID, ParentRef and IsSNMPRoot apply to SKClass, SKSNMPObject
	// and SKSNMPTable.
	ClassID    *int
	ParentRef  *TypeRef
	IsSNMPRoot bool

	// Oid applies only to SNMP objects/tables.
	Oid string

	Fields       []*Field
	StaticFields []*Field // class-level constants; classes only

	Attrs []*Attribute
	Dox   *DoxBlock
}

// FieldKind is the wire type of a field, matching spec.md's list:
// signed/unsigned 8/16/32/64-bit int, bool, double, string, bytes,
// XML-string, void, enum, struct-or-union reference.
type FieldKind int

const (
	KindInvalid FieldKind = iota
	KindI8
	KindU8
	KindI16
	KindU16
	KindI32
	KindU32
	KindI64
	KindU64
	KindBool
	KindDouble
	KindString
	KindBytes
	KindXML
	KindVoid
	KindEnum
	// KindStruct covers both struct and union references; the
	// resolver disambiguates union vs struct vs enum by inspecting
	// Field.TypeRef.Resolved's Composite.Kind / whether it resolved to an
	// *Enum instead (spec.md 4.7 pass 1: "If the resolved target is
	// an enum, reclassify the kind from STRUCT to ENUM").
	KindStruct
)

func (k FieldKind) IsInt() bool {
	switch k {
	case KindI8, KindU8, KindI16, KindU16, KindI32, KindU32, KindI64, KindU64:
		return true
	}
	return false
}

func (k FieldKind) IsUnsigned() bool {
	switch k {
	case KindU8, KindU16, KindU32, KindU64:
		return true
	}
	return false
}

// RepeatKind is a field's cardinality: required, optional, repeated, or
// required-with-default-value.
type RepeatKind int

const (
	Required RepeatKind = iota
	Optional
	Repeated
	RequiredDefault
)

func (r RepeatKind) String() string {
	switch r {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Repeated:
		return "repeated"
	case RequiredDefault:
		return "required(default)"
	default:
		return "?"
	}
}

// ValueKind discriminates the tagged union a default value or
// attribute argument may hold.
type ValueKind int

const (
	VInvalid ValueKind = iota
	VInt
	VDouble
	VString
	VIdent
	VEnumValue
	VJSON
)

// Value is the tagged union over integer/double/string/identifier/
// enum-value used for field default values and attribute arguments
// (spec.md section 3 "Attribute instance").
type Value struct {
	Kind ValueKind

	I64    int64
	Signed bool // false means the I64 bit pattern should be read as uint64
	F64    float64
	Str    string // also used for VJSON (pre-serialized canonical JSON)

	// EnumValue is set when Kind == VEnumValue, resolved during
	// folding of an enum-value identifier used as a constant operand.
	EnumValue *EnumValue
}

// Field is both a composite member and, via IsTypedef, a standalone
// typedef (spec.md section 3: "Typedef -- reuses the Field shape with
// a dedicated flag").
type Field struct {
	Name string
	Loc  Loc

	Tag    int
	Kind   FieldKind
	Repeat RepeatKind

	Reference bool
	Static    bool
	IsTypedef bool

	// TypeRef is the pending/resolved target for KindEnum and
	// KindStruct fields (and for typedefs of such kinds).
	TypeRef *TypeRef

	HasDefault bool
	Default    Value

	Attrs []*Attribute
	Dox   *DoxBlock

	SNMPInTable     bool
	SNMPFromParam   bool

	// Owner is the composite (or nil for a package-level typedef)
	// this field belongs to, set once it is appended.
	Owner *Composite
}

// Enum is spec.md's Enum node.
type Enum struct {
	Name string
	Loc  Loc
	Pkg  *Package

	Values []*EnumValue
	Attrs  []*Attribute
	Dox    *DoxBlock

	// Prefix is the identifier prefix applied to each value's
	// canonical name: explicit via @prefix, or derived by the
	// resolver's pass 2 from the camelCase type name (spec.md 4.7).
	Prefix string
}

// EnumValue is one member of an Enum.
type EnumValue struct {
	Name  string
	Loc   Loc
	Value int64
	Attrs []*Attribute

	// Aliases holds pre-prefix forms kept reachable for migration
	// (spec.md section 9 "Ambiguous enum identifiers").
	Aliases []string

	Owner *Enum
}

// Interface is spec.md's Interface / SNMP-interface node (the SNMP
// variant additionally sets Parent/Oid/IsSNMP).
type Interface struct {
	Name string
	Loc  Loc
	Pkg  *Package

	IsSNMP    bool
	ParentRef *TypeRef // SNMP: mandatory; plain interfaces: unused
	Oid       string

	RPCs  []*RPC
	Attrs []*Attribute
	Dox   *DoxBlock
}

// RPC is spec.md's RPC (function) node.
type RPC struct {
	Name string
	Loc  Loc

	Tag   int
	Async bool

	Args   *RPCPayload
	Result *RPCPayload
	Exn    *RPCPayload

	Attrs []*Attribute
	Dox   *DoxBlock

	Owner *Interface
}

// RPCPayload is one of an RPC's three optional clauses: either an
// anonymous inline struct (Anon != nil) or a reference to a named
// struct (Ref != nil). Void is true for an explicit `void` clause.
type RPCPayload struct {
	Anon *Composite
	Ref  *TypeRef
	Void bool
	Loc  Loc
}

// Module is a named collection of interface fields (spec.md section 3).
type Module struct {
	Name   string
	Loc    Loc
	Pkg    *Package
	Fields []*ModuleField
	Attrs  []*Attribute
	Dox    *DoxBlock
}

// ModuleField binds a tag to an interface reference within a Module.
type ModuleField struct {
	Name      string
	Tag       int
	Loc       Loc
	IfaceRef  *TypeRef
}

// Attribute is one `@name(args...)` application, spec.md section 3
// "Attribute instance".
type Attribute struct {
	Loc  Loc
	Name string // bare name, or "namespace:localname" for generics

	// Descriptor is set by the parser for registered attributes and
	// left nil only transiently until attrreg lookup completes.
	Descriptor interface{} // *attrreg.Descriptor; interface{} avoids an import cycle

	Args []Value
}
