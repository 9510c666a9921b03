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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/attrreg"
	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/iopcfg"
	"github.com/intersec-oss/iopc/token"
)

// parseSrc parses src as file.iop under cfg, with no resolver, for
// tests that never touch a qualified cross-package type reference.
// Callers that don't care about the package path may omit the leading
// `package ...;` statement; one naming "test" is supplied for them.
func parseSrc(t *testing.T, src string, cfg iopcfg.Options) (*ast.Package, error) {
	t.Helper()
	if !strings.HasPrefix(strings.TrimSpace(src), "package ") {
		src = "package test;\n" + src
	}
	lex := token.New("file.iop", []byte(src))
	buf := token.NewBuffer(lex)
	p := New(buf, attrreg.Initialize(), nil, cfg, NewEnumTable())
	pkg := &ast.Package{SourceFile: "file.iop", BaseDir: ".", Main: true}
	return p.ParseFile(pkg)
}

func mustParse(t *testing.T, src string) *ast.Package {
	t.Helper()
	pkg, err := parseSrc(t, src, iopcfg.Default())
	if err != nil {
		t.Fatalf("ParseFile(%q): unexpected error: %v", src, err)
	}
	return pkg
}

var ignoreFieldMeta = cmpopts.IgnoreFields(ast.Field{}, "Loc", "Owner", "Attrs", "Dox", "TypeRef", "Static", "Reference", "IsTypedef", "HasDefault", "Default", "SNMPInTable", "SNMPFromParam")

// Scenario 1: minimal struct.
func TestMinimalStruct(t *testing.T) {
	pkg := mustParse(t, "package pkg;\nstruct S { int a; string b; };\n")

	if got, want := pkg.Path.String(), "pkg"; got != want {
		t.Fatalf("package path = %q, want %q", got, want)
	}
	if len(pkg.Structs) != 1 {
		t.Fatalf("got %d structs, want 1", len(pkg.Structs))
	}
	s := pkg.Structs[0]
	if s.Name != "S" {
		t.Fatalf("struct name = %q, want S", s.Name)
	}
	want := []*ast.Field{
		{Name: "a", Kind: ast.KindI32, Tag: 1, Repeat: ast.Required},
		{Name: "b", Kind: ast.KindString, Tag: 2, Repeat: ast.Required},
	}
	if diff := cmp.Diff(want, s.Fields, ignoreFieldMeta); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

// Scenario 2: auto + explicit tags.
func TestAutoAndExplicitTags(t *testing.T) {
	pkg := mustParse(t, "package pkg;\nstruct T { 5: int a; int b; 10: int c; int d; };\n")

	s := pkg.Structs[0]
	wantTags := map[string]int{"a": 5, "b": 6, "c": 10, "d": 11}
	if len(s.Fields) != len(wantTags) {
		t.Fatalf("got %d fields, want %d", len(s.Fields), len(wantTags))
	}
	for _, f := range s.Fields {
		if want, ok := wantTags[f.Name]; !ok || f.Tag != want {
			t.Errorf("field %q: tag = %d, want %d", f.Name, f.Tag, wantTags[f.Name])
		}
	}
}

// Scenario 3: class hierarchy with IDs, and a duplicate-id sibling.
func TestClassHierarchyIDs(t *testing.T) {
	pkg := mustParse(t, "package p;\nclass A : 1 { int x; };\nclass B : 2 : A { int y; };\n")

	if len(pkg.Classes) != 2 {
		t.Fatalf("got %d classes, want 2", len(pkg.Classes))
	}
	b := pkg.Classes[1]
	if b.Name != "B" || b.ClassID == nil || *b.ClassID != 2 {
		t.Fatalf("class B: got %+v", b)
	}
	if b.ParentRef == nil || b.ParentRef.Name != "A" {
		t.Fatalf("class B parent ref = %+v, want A", b.ParentRef)
	}
	// Duplicate class ids across siblings are a resolver-pass concern
	// (root-hierarchy uniqueness spans the whole package graph, not a
	// single file); the parser only validates the per-declaration
	// class-id range, so C : 2 : A parses here without error.
}

// Scenario 4: enum default via the constant folder, with forward
// reference to a sibling enum value.
func TestEnumDefaultViaFolder(t *testing.T) {
	pkg := mustParse(t, "enum E { V0 = 1 << 3, V1, V2 = V0 + V1 };\n")

	if len(pkg.Enums) != 1 {
		t.Fatalf("got %d enums, want 1", len(pkg.Enums))
	}
	e := pkg.Enums[0]
	want := map[string]int64{"V0": 8, "V1": 9, "V2": 17}
	if len(e.Values) != len(want) {
		t.Fatalf("got %d values, want %d", len(e.Values), len(want))
	}
	for _, v := range e.Values {
		if got, ok := want[v.Name]; !ok || v.Value != got {
			t.Errorf("enum value %q = %d, want %d", v.Name, v.Value, want[v.Name])
		}
	}
}

// A struct field default may reference an enum value declared earlier
// in the same file, not just a sibling within the enum that value
// belongs to (spec.md section 3 "Package registry": the process-wide
// enum-value identifier mapping; section 4.2).
func TestFieldDefaultReferencesEarlierEnumValue(t *testing.T) {
	pkg := mustParse(t, "enum Color { RED, GREEN, BLUE };\nstruct S { int a = BLUE; };\n")

	f := pkg.Structs[0].Fields[0]
	if !f.HasDefault || f.Default.Kind != ast.VInt || f.Default.I64 != 2 {
		t.Fatalf("field default = %+v, want VInt 2 (BLUE)", f.Default)
	}
}

// An attribute's integer argument may likewise reference an enum value
// by name, resolved to its signed integer and tagged VEnumValue (spec.md
// section 3 "Attribute instance": "each argument is a tagged union over
// integer/double/string/identifier/enum-value").
func TestAttributeArgReferencesEnumValue(t *testing.T) {
	pkg := mustParse(t, "enum Limit { ZERO, ONE, TWO };\nstruct S { @min(TWO) int a; };\n")

	a := pkg.Structs[0].Fields[0].Attrs[0]
	if len(a.Args) != 1 {
		t.Fatalf("got %d args, want 1", len(a.Args))
	}
	v := a.Args[0]
	if v.Kind != ast.VEnumValue || v.I64 != 2 {
		t.Fatalf("arg = %+v, want VEnumValue 2 (TWO)", v)
	}
}

// An attribute argument referencing an unknown identifier where an
// integer is expected is still rejected, just as a plain unresolved
// type name would be.
func TestAttributeArgUnknownEnumIdentifierIsRejected(t *testing.T) {
	_, err := parseSrc(t, "struct S { @min(NOT_A_VALUE) int a; };\n", iopcfg.Default())
	if err == nil {
		t.Fatal("expected an error for an unresolved @min argument identifier")
	}
}

// @ctype's name argument is ArgIdent, not numeric, so an identifier
// there is kept as a plain name even though it is never registered as
// an enum value -- confirming argKindFor doesn't force enum resolution
// on identifier-typed arguments.
func TestCtypeArgumentIsNotEnumResolved(t *testing.T) {
	pkg := mustParse(t, "@ctype(my_struct__t) struct S { int a; };\n")

	a := pkg.Structs[0].Attrs[0]
	if len(a.Args) != 1 || a.Args[0].Kind != ast.VIdent || a.Args[0].Str != "my_struct__t" {
		t.Fatalf("got args %+v, want one VIdent arg %q", a.Args, "my_struct__t")
	}
}

// Scenario 5: attribute misuse -- @minLength does not apply to int.
func TestAttributeMisuseMinLengthOnInt(t *testing.T) {
	_, err := parseSrc(t, "struct S { @minLength(3) int a; };\n", iopcfg.Default())
	if err == nil {
		t.Fatal("expected an AttributeError, got nil")
	}
	attrErr, ok := err.(*ioperr.AttributeError)
	if !ok {
		t.Fatalf("expected *ioperr.AttributeError, got %T: %v", err, err)
	}
	if attrErr.Attr != "minLength" {
		t.Fatalf("attribute = %q, want minLength", attrErr.Attr)
	}
}

// Scenario 6: anonymous RPC payload synthesizes a struct named after
// the RPC plus "Args"; the "out void" clause leaves Result non-nil but
// with Void set, and the RPC is not async.
func TestAnonymousRPCPayload(t *testing.T) {
	pkg := mustParse(t, "interface I { f in (int a, string b) out void; };\n")

	if len(pkg.Interfaces) != 1 {
		t.Fatalf("got %d interfaces, want 1", len(pkg.Interfaces))
	}
	iface := pkg.Interfaces[0]
	if len(iface.RPCs) != 1 {
		t.Fatalf("got %d RPCs, want 1", len(iface.RPCs))
	}
	rpc := iface.RPCs[0]
	if rpc.Name != "f" {
		t.Fatalf("rpc name = %q, want f", rpc.Name)
	}
	if rpc.Async {
		t.Fatal("rpc must not be async")
	}
	if rpc.Args == nil || rpc.Args.Anon == nil {
		t.Fatalf("rpc.Args = %+v, want an anonymous struct", rpc.Args)
	}
	if rpc.Args.Anon.Name != "fArgs" {
		t.Fatalf("anonymous arg struct name = %q, want fArgs", rpc.Args.Anon.Name)
	}
	gotNames := map[string]bool{}
	for _, f := range rpc.Args.Anon.Fields {
		gotNames[f.Name] = true
	}
	if !gotNames["a"] || !gotNames["b"] || len(gotNames) != 2 {
		t.Fatalf("anonymous arg fields = %v, want {a, b}", gotNames)
	}
	if rpc.Result == nil || !rpc.Result.Void {
		t.Fatalf("rpc.Result = %+v, want Void", rpc.Result)
	}
	if rpc.Exn != nil {
		t.Fatalf("rpc.Exn = %+v, want nil (no throw clause -> no fExn)", rpc.Exn)
	}
}

// Boundary: tag 0 and tag 0x8000 are both rejected.
func TestTagBoundaries(t *testing.T) {
	for _, src := range []string{
		"struct S { 0: int a; };\n",
		"struct S { 32768: int a; };\n", // 0x8000
	} {
		if _, err := parseSrc(t, src, iopcfg.Default()); err == nil {
			t.Errorf("%q: expected InvalidTag, got nil", src)
		} else if _, ok := err.(*ioperr.InvalidTag); !ok {
			t.Errorf("%q: expected *ioperr.InvalidTag, got %T: %v", src, err, err)
		}
	}
}

// Boundary: class id at class_id_max is accepted; max+1 is rejected.
func TestClassIDRangeBoundary(t *testing.T) {
	cfg := iopcfg.Default().WithClassIDRange(0, 10)

	if _, err := parseSrc(t, "class A : 10 { int x; };\n", cfg); err != nil {
		t.Fatalf("class id == max: unexpected error: %v", err)
	}
	if _, err := parseSrc(t, "class A : 11 { int x; };\n", cfg); err == nil {
		t.Fatal("class id == max+1: expected InvalidClassId, got nil")
	} else if _, ok := err.(*ioperr.InvalidClassId); !ok {
		t.Fatalf("class id == max+1: expected *ioperr.InvalidClassId, got %T: %v", err, err)
	}
}

// Boundary: a union with zero fields is rejected.
func TestEmptyUnionRejected(t *testing.T) {
	_, err := parseSrc(t, "union U { };\n", iopcfg.Default())
	if err == nil {
		t.Fatal("expected ConstraintError, got nil")
	}
	if _, ok := err.(*ioperr.ConstraintError); !ok {
		t.Fatalf("expected *ioperr.ConstraintError, got %T: %v", err, err)
	}
}

// Boundary: a required void RPC argument is rejected.
func TestRequiredVoidRPCArgRejected(t *testing.T) {
	_, err := parseSrc(t, "interface I { f in void; };\n", iopcfg.Default())
	if err == nil {
		t.Fatal("expected an error rejecting `in void`, got nil")
	}
	if _, ok := err.(*ioperr.ConstraintError); !ok {
		t.Fatalf("expected *ioperr.ConstraintError, got %T: %v", err, err)
	}
}

// `out null` marks the RPC async and must parse successfully.
func TestOutNullMarksAsync(t *testing.T) {
	pkg := mustParse(t, "interface I { f out null; };\n")
	rpc := pkg.Interfaces[0].RPCs[0]
	if !rpc.Async {
		t.Fatal("rpc.Async = false, want true for `out null`")
	}
	if rpc.Result != nil {
		t.Fatalf("rpc.Result = %+v, want nil for `out null`", rpc.Result)
	}
}

// Reserved C/C++/Java keywords are always rejected as identifiers.
func TestReservedKeywordRejected(t *testing.T) {
	_, err := parseSrc(t, "struct S { int class; };\n", iopcfg.Default())
	if err == nil {
		t.Fatal("expected InvalidIdentifier, got nil")
	}
	if _, ok := err.(*ioperr.InvalidIdentifier); !ok {
		t.Fatalf("expected *ioperr.InvalidIdentifier, got %T: %v", err, err)
	}
}

// An SNMP interface RPC argument must be an anonymous struct, not a
// bare type reference, and may declare neither `out` nor `throw`.
func TestSNMPInterfaceRPCShape(t *testing.T) {
	src := "snmpObj Intersec { };\n" +
		"snmpIface J : Intersec { g in (int a); };\n"
	pkg := mustParse(t, src)
	if len(pkg.SNMPInterfaces) != 1 {
		t.Fatalf("got %d snmp interfaces, want 1", len(pkg.SNMPInterfaces))
	}

	badSrc := "snmpObj Intersec { };\n" +
		"snmpIface J : Intersec { g in S; };\n" +
		"struct S { int a; };\n"
	if _, err := parseSrc(t, badSrc, iopcfg.Default()); err == nil {
		t.Fatal("expected a ConstraintError for a non-anonymous SNMP RPC argument, got nil")
	}

	outSrc := "snmpObj Intersec { };\n" +
		"snmpIface J : Intersec { g in (int a) out void; };\n"
	if _, err := parseSrc(t, outSrc, iopcfg.Default()); err == nil {
		t.Fatal("expected a ConstraintError for an SNMP RPC with an `out` clause, got nil")
	}
}

// A snmpObj named "Intersec" with no declared parent is the SNMP root;
// any other unparented snmpObj/snmpTbl is an InheritanceError.
func TestSNMPRootHeuristic(t *testing.T) {
	pkg := mustParse(t, "snmpObj Intersec { };\n")
	if len(pkg.SNMPObjects) != 1 || !pkg.SNMPObjects[0].IsSNMPRoot {
		t.Fatalf("Intersec snmpObj: IsSNMPRoot = %v, want true", pkg.SNMPObjects[0].IsSNMPRoot)
	}

	_, err := parseSrc(t, "snmpObj Other { };\n", iopcfg.Default())
	if err == nil {
		t.Fatal("expected an InheritanceError for an unparented non-root snmpObj, got nil")
	}
	if _, ok := err.(*ioperr.InheritanceError); !ok {
		t.Fatalf("expected *ioperr.InheritanceError, got %T: %v", err, err)
	}
}

// An SNMP table must declare at least one field carrying @snmpIndex.
func TestSNMPTableRequiresIndex(t *testing.T) {
	_, err := parseSrc(t, "snmpObj Intersec { };\nsnmpTbl Tbl : 1 : Intersec { int a; };\n", iopcfg.Default())
	if err == nil {
		t.Fatal("expected a ConstraintError for an SNMP table with no @snmpIndex field, got nil")
	}
	if _, ok := err.(*ioperr.ConstraintError); !ok {
		t.Fatalf("expected *ioperr.ConstraintError, got %T: %v", err, err)
	}

	pkg := mustParse(t, "snmpObj Intersec { };\nsnmpTbl Tbl : 1 : Intersec { @snmpIndex int a; };\n")
	if len(pkg.SNMPTables) != 1 {
		t.Fatalf("got %d snmp tables, want 1", len(pkg.SNMPTables))
	}
}

// A typedef carries through as a Field with IsTypedef set.
func TestTypedef(t *testing.T) {
	pkg := mustParse(t, "typedef int MyInt;\n")
	if len(pkg.Typedefs) != 1 {
		t.Fatalf("got %d typedefs, want 1", len(pkg.Typedefs))
	}
	td := pkg.Typedefs[0]
	if td.Name != "MyInt" || !td.IsTypedef || td.Kind != ast.KindI32 {
		t.Fatalf("typedef = %+v", td)
	}
}

// A module binds interfaces to tags, rejecting duplicate names/tags.
func TestModuleFields(t *testing.T) {
	pkg := mustParse(t, "interface I { f; };\nmodule M { I i: 1; I j; };\n")
	if len(pkg.Modules) != 1 {
		t.Fatalf("got %d modules, want 1", len(pkg.Modules))
	}
	m := pkg.Modules[0]
	if len(m.Fields) != 2 {
		t.Fatalf("got %d module fields, want 2", len(m.Fields))
	}
	if m.Fields[0].Tag != 1 || m.Fields[1].Tag != 2 {
		t.Fatalf("module field tags = %d, %d, want 1, 2", m.Fields[0].Tag, m.Fields[1].Tag)
	}
}
