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

// Package attrreg is the attribute registry of spec.md section 4.3: a
// static, process-wide table of annotation descriptors restricting
// which declarations and field shapes each `@attribute` may decorate.
// The concrete attribute set below is grounded on the real Intersec
// IOP compiler's attribute table (original_source/iopc/iopc-parser.c).
package attrreg

import (
	"strings"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/ioperr"
)

// ID identifies a registered attribute. A small fixed range is
// reserved for user-defined "generic" attributes, all sharing the
// Generic descriptor and disambiguated by their qualified name.
type ID int

const (
	CType ID = iota
	NoWarn
	Prefix
	Strict
	Min
	Max
	MinLength
	MaxLength
	Length
	MinOccurs
	MaxOccurs
	CData
	NonEmpty
	NonZero
	Pattern
	Private
	Alias
	NoReorder
	Allow
	Disallow
	Generic
	Deprecated
	SNMPParamsFrom
	SNMPParam
	SNMPIndex
	TSNoCollection
)

// TargetMask is a bitset over declaration kinds an attribute may
// decorate.
type TargetMask uint32

const (
	TStruct TargetMask = 1 << iota
	TUnion
	TClass
	TEnum
	TInterface
	TRPC
	TSNMPIface
	TSNMPObj
	TSNMPTbl
	TAll = TStruct | TUnion | TClass | TEnum | TInterface | TRPC | TSNMPIface | TSNMPObj | TSNMPTbl
)

// FieldKindMask is a bitset over ast.FieldKind categories an
// attribute may decorate.
type FieldKindMask uint32

const (
	FInt FieldKindMask = 1 << iota
	FBool
	FDouble
	FString
	FData
	FXML
	FStruct
	FUnion
	FEnum
	FAll = FInt | FBool | FDouble | FString | FData | FXML | FStruct | FUnion | FEnum
)

// RepeatMask is a bitset over ast.RepeatKind values an attribute may
// decorate.
type RepeatMask uint32

const (
	RRequired RepeatMask = 1 << iota
	ROptional
	RRepeated
	RDefval
	RAll = RRequired | ROptional | RRepeated | RDefval
)

// Flags are descriptor-level toggles (spec.md section 3 "Attribute
// descriptor").
type Flags uint32

const (
	FlagDecl       Flags = 1 << iota // may decorate a declaration
	FlagField                        // may decorate a field
	FlagMulti                        // may be repeated on one owner
	FlagConstraint                   // participates in runtime constraint checking
	FlagFieldAll   = FlagField
)

// ArgKind is the token type one attribute argument descriptor accepts.
type ArgKind int

const (
	ArgInt ArgKind = iota
	ArgDouble
	ArgString
	ArgIdent
	ArgBool
	ArgEnumValue
	ArgJSON
)

// ArgDesc names and types one positional attribute argument.
type ArgDesc struct {
	Name string
	Kind ArgKind
}

// Descriptor is the static, process-wide description of one
// attribute: its id, name, applicability masks, flags, and argument
// shape.
type Descriptor struct {
	ID         ID
	Name       string
	Targets    TargetMask
	FieldKinds FieldKindMask
	Repeats    RepeatMask
	Flags      Flags
	Args       []ArgDesc
}

// Registry is the populated, process-wide attribute table. Per
// spec.md section 9 "Global registry", callers obtain one via
// Initialize and keep it for the lifetime of a compilation context;
// nothing here is package-level mutable state, unlike the original C
// implementation's process-wide globals.
type Registry struct {
	byName map[string]*Descriptor
	byID   map[ID]*Descriptor
}

func add(r *Registry, id ID, name string, targets TargetMask, kinds FieldKindMask, repeats RepeatMask, flags Flags, args ...ArgDesc) *Descriptor {
	d := &Descriptor{ID: id, Name: name, Targets: targets, FieldKinds: kinds, Repeats: repeats, Flags: flags, Args: args}
	r.byName[name] = d
	r.byID[id] = d
	return d
}

// Initialize populates a fresh Registry from the static table,
// equivalent to the original compiler's module-init routine but
// allocated per compilation context rather than once per process, so
// that disjoint registries (spec.md section 5) never share state.
func Initialize() *Registry {
	r := &Registry{byName: map[string]*Descriptor{}, byID: map[ID]*Descriptor{}}

	add(r, CType, "ctype", TStruct|TUnion|TEnum, 0, 0, FlagDecl|FlagMulti, ArgDesc{"name", ArgIdent})
	add(r, NoWarn, "nowarn", TAll, FAll, RAll, FlagFieldAll|FlagDecl|FlagMulti, ArgDesc{"category", ArgString})
	add(r, Prefix, "prefix", TEnum, 0, 0, FlagDecl, ArgDesc{"prefix", ArgIdent})
	add(r, Strict, "strict", TEnum, 0, 0, FlagDecl|FlagConstraint)
	add(r, Min, "min", 0, FInt|FDouble, RAll, FlagFieldAll|FlagConstraint, ArgDesc{"value", ArgDouble})
	add(r, Max, "max", 0, FInt|FDouble, RAll, FlagFieldAll|FlagConstraint, ArgDesc{"value", ArgDouble})
	add(r, MinLength, "minLength", 0, FString|FData|FXML, RAll, FlagFieldAll|FlagConstraint, ArgDesc{"value", ArgInt})
	add(r, MaxLength, "maxLength", 0, FString|FData|FXML, RAll, FlagFieldAll|FlagConstraint, ArgDesc{"value", ArgInt})
	add(r, Length, "length", 0, FString|FData|FXML, RAll, FlagFieldAll|FlagConstraint, ArgDesc{"value", ArgInt})
	add(r, MinOccurs, "minOccurs", 0, FAll, RRepeated, FlagFieldAll|FlagConstraint, ArgDesc{"value", ArgInt})
	add(r, MaxOccurs, "maxOccurs", 0, FAll, RRepeated, FlagFieldAll|FlagConstraint, ArgDesc{"value", ArgInt})
	add(r, CData, "cdata", 0, FXML, RAll, FlagFieldAll)
	add(r, NonEmpty, "nonEmpty", 0, FString|FData|FXML, RAll, FlagFieldAll|FlagConstraint)
	add(r, NonZero, "nonZero", 0, FInt|FDouble, RAll, FlagFieldAll|FlagConstraint)
	add(r, Pattern, "pattern", 0, FString|FXML, RAll, FlagFieldAll|FlagConstraint|FlagMulti, ArgDesc{"regex", ArgString})
	add(r, Private, "private", TClass|TStruct|TUnion, FAll, RAll, FlagFieldAll|FlagDecl)
	add(r, Alias, "alias", 0, FAll, RAll, FlagFieldAll, ArgDesc{"name", ArgIdent})
	add(r, NoReorder, "noReorder", TStruct|TUnion|TClass, 0, 0, FlagDecl)
	add(r, Allow, "allow", 0, FUnion|FEnum, RAll, FlagFieldAll|FlagMulti, ArgDesc{"name", ArgIdent})
	add(r, Disallow, "disallow", 0, FUnion|FEnum, RAll, FlagFieldAll|FlagMulti, ArgDesc{"name", ArgIdent})
	add(r, Generic, "generic", TAll, FAll, RAll, FlagFieldAll|FlagDecl|FlagMulti, ArgDesc{"value", ArgJSON})
	add(r, Deprecated, "deprecated", TAll, FAll, RAll, FlagFieldAll|FlagDecl)
	add(r, SNMPParamsFrom, "snmpParamsFrom", TSNMPObj|TSNMPTbl, 0, 0, FlagDecl, ArgDesc{"object", ArgIdent})
	add(r, SNMPParam, "snmpParam", 0, FAll, RAll, FlagFieldAll)
	add(r, SNMPIndex, "snmpIndex", 0, FAll, RAll, FlagFieldAll|FlagConstraint)
	add(r, TSNoCollection, "typescriptNoCollection", 0, FAll, RRepeated, FlagFieldAll)

	return r
}

// Lookup finds a registered descriptor by bare name. It does no
// mapping of its own: a generic (namespace-qualified) attribute name is
// only found when the caller first reduces it to "generic", the name
// the single Generic descriptor is registered under.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// ByID looks up a descriptor by its numeric id.
func (r *Registry) ByID(id ID) (*Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// CheckContext carries the facts about an attribute's owner that
// CheckApplication needs but that a bare *ast.Attribute does not
// record: the kind of declaration or field it decorates, whether it
// is a field (vs. a declaration), how many times the same descriptor
// has already been applied to this owner, and owner-specific facts
// needed by per-attribute postconditions.
type CheckContext struct {
	Target     TargetMask
	IsField     bool
	FieldKind   FieldKindMask
	Repeat      RepeatMask
	PriorOnOwner int // number of prior applications of this same descriptor on this owner

	// InSNMPTable is set when the field being checked belongs to an
	// SNMP table, required for @snmpIndex (spec.md section 4.3).
	InSNMPTable bool

	// UnionOrEnumNames is the set of field names (for
	// a union) or value names (for an enum) that @allow/@disallow
	// arguments must be drawn from.
	UnionOrEnumNames map[string]bool

	// SeenAllow/SeenDisallow record whether the owning field already
	// carries the other of the @allow/@disallow pair, which are
	// mutually exclusive.
	SeenAllow, SeenDisallow bool
}

// CheckApplication validates one attribute application against its
// descriptor, in the order spec.md section 4.3 specifies: target mask,
// field-kind mask, repeat mask, repetition, then per-attribute
// postconditions.
func (r *Registry) CheckApplication(attr *ast.Attribute, d *Descriptor, ctx CheckContext) error {
	if ctx.IsField {
		if d.Flags&FlagField == 0 {
			return ioperr.NewAttributeError(attr.Loc, d.Name, "does not apply to fields")
		}
		if d.FieldKinds != 0 && d.FieldKinds&ctx.FieldKind == 0 {
			return ioperr.NewAttributeError(attr.Loc, d.Name, "does not apply to this field kind")
		}
		if d.Repeats != 0 && d.Repeats&ctx.Repeat == 0 {
			return ioperr.NewAttributeError(attr.Loc, d.Name, "does not apply to fields with this repeat kind")
		}
	} else {
		if d.Flags&FlagDecl == 0 {
			return ioperr.NewAttributeError(attr.Loc, d.Name, "does not apply to this declaration")
		}
		if d.Targets != 0 && d.Targets&ctx.Target == 0 {
			return ioperr.NewAttributeError(attr.Loc, d.Name, "does not apply to this declaration kind")
		}
	}

	if ctx.PriorOnOwner > 0 && d.Flags&FlagMulti == 0 {
		return ioperr.NewAttributeError(attr.Loc, d.Name, "may not be repeated on the same owner")
	}

	return r.checkPostcondition(attr, d, ctx)
}

// checkPostcondition implements the per-attribute rules spec.md
// section 4.3 calls out by name, grounded on iopc-parser.c's checks
// for the same attributes.
func (r *Registry) checkPostcondition(attr *ast.Attribute, d *Descriptor, ctx CheckContext) error {
	switch d.ID {
	case CType:
		for _, a := range attr.Args {
			if !strings.HasSuffix(a.Str, "__t") {
				return ioperr.NewAttributeError(attr.Loc, d.Name, "argument %q must end with `__t`", a.Str)
			}
		}
	case SNMPIndex:
		if !ctx.InSNMPTable {
			return ioperr.NewAttributeError(attr.Loc, d.Name, "only valid on a field of an SNMP table")
		}
	case Allow, Disallow:
		if ctx.SeenAllow || ctx.SeenDisallow {
			return ioperr.NewAttributeError(attr.Loc, d.Name, "@allow and @disallow are mutually exclusive on the same field")
		}
		for _, a := range attr.Args {
			if ctx.UnionOrEnumNames != nil && !ctx.UnionOrEnumNames[a.Str] {
				return ioperr.NewAttributeError(attr.Loc, d.Name, "%q is not a member of the referenced union/enum", a.Str)
			}
		}
	case Min, Max, MinLength, MaxLength, Length:
		for _, a := range attr.Args {
			if (a.Kind == ast.VInt || a.Kind == ast.VEnumValue) && a.I64 == 0 {
				return ioperr.NewAttributeError(attr.Loc, d.Name, "zero is not a valid argument")
			}
			if a.Kind == ast.VDouble && a.F64 == 0 {
				return ioperr.NewAttributeError(attr.Loc, d.Name, "zero is not a valid argument")
			}
		}
	}
	return nil
}

// FieldKindMaskOf maps an ast.FieldKind to the bit the registry checks
// against, collapsing struct/union/enum to their attribute-relevant
// categories. Callers pass the resolved kind where available
// (post-resolution STRUCT-vs-UNION-vs-ENUM reclassification, spec.md
// section 4.7). Pre-resolution a struct/union/enum reference maps to
// FStruct; the parser widens that to FStruct|FUnion|FEnum for such a
// field and leaves the kind-specific check to the resolver's recheck.
func FieldKindMaskOf(k ast.FieldKind, isUnion, isEnum bool) FieldKindMask {
	switch {
	case isEnum:
		return FEnum
	case isUnion:
		return FUnion
	case k == ast.KindStruct:
		return FStruct
	case k == ast.KindBool:
		return FBool
	case k == ast.KindDouble:
		return FDouble
	case k == ast.KindString:
		return FString
	case k == ast.KindBytes:
		return FData
	case k == ast.KindXML:
		return FXML
	case k.IsInt():
		return FInt
	default:
		return 0
	}
}

// RepeatMaskOf maps an ast.RepeatKind to its registry bit.
func RepeatMaskOf(r ast.RepeatKind) RepeatMask {
	switch r {
	case ast.Required:
		return RRequired
	case ast.Optional:
		return ROptional
	case ast.Repeated:
		return RRepeated
	case ast.RequiredDefault:
		return RDefval
	default:
		return 0
	}
}

// TargetMaskOf maps an ast.StructKind to its registry bit.
func TargetMaskOf(k ast.StructKind) TargetMask {
	switch k {
	case ast.SKStruct:
		return TStruct
	case ast.SKUnion:
		return TUnion
	case ast.SKClass:
		return TClass
	case ast.SKSNMPObject:
		return TSNMPObj
	case ast.SKSNMPTable:
		return TSNMPTbl
	default:
		return 0
	}
}
