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
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/attrreg"
)

func intTag(n int) int { return n }

// fieldNames renders a composite's field names one per line, for the
// unified-diff assertions below.
func fieldNames(c *ast.Composite) string {
	var sb strings.Builder
	for _, f := range c.Fields {
		sb.WriteString(f.Name)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// generateUnifiedDiff renders a got/want line diff for a test failure
// message.
func generateUnifiedDiff(got, want string) (string, error) {
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(got),
		B:        difflib.SplitLines(want),
		FromFile: "got",
		ToFile:   "want",
		Context:  3,
		Eol:      "\n",
	}
	return difflib.GetUnifiedDiffString(d)
}

func TestBuildMinimalStruct(t *testing.T) {
	pkg := Package{
		Name: "pkg",
		Elems: []Decl{
			{
				Kind: DStruct,
				Name: "S",
				Fields: []Field{
					{Name: "a", Type: Type{Kind: TBuiltin, Builtin: "int"}},
					{Name: "b", Type: Type{Kind: TBuiltin, Builtin: "string"}},
				},
			},
		},
	}

	b := NewBuilder(NewArena(), attrreg.Initialize(), nil, nil)
	_, out, err := b.Build(pkg)
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}

	if len(out.Structs) != 1 || out.Structs[0].Name != "S" {
		t.Fatalf("expected one struct S, got %+v", out.Structs)
	}
	s := out.Structs[0]
	if len(s.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(s.Fields))
	}
	if s.Fields[0].Name != "a" || s.Fields[0].Tag != 1 || s.Fields[0].Kind != ast.KindI32 {
		t.Fatalf("field a = %+v, want {a, tag=1, I32}", s.Fields[0])
	}
	if s.Fields[1].Name != "b" || s.Fields[1].Tag != 2 || s.Fields[1].Kind != ast.KindString {
		t.Fatalf("field b = %+v, want {b, tag=2, STRING}", s.Fields[1])
	}
}

func TestBuildHonorsExplicitTags(t *testing.T) {
	pkg := Package{
		Name: "pkg",
		Elems: []Decl{
			{
				Kind: DStruct,
				Name: "T",
				Fields: []Field{
					{Name: "a", Tag: 5, HasTag: true, Type: Type{Kind: TBuiltin, Builtin: "int"}},
					{Name: "b", Type: Type{Kind: TBuiltin, Builtin: "int"}},
					{Name: "c", Tag: 10, HasTag: true, Type: Type{Kind: TBuiltin, Builtin: "int"}},
					{Name: "d", Type: Type{Kind: TBuiltin, Builtin: "int"}},
				},
			},
		},
	}

	b := NewBuilder(NewArena(), attrreg.Initialize(), nil, nil)
	_, out, err := b.Build(pkg)
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}

	want := map[string]int{"a": 5, "b": 6, "c": 10, "d": 11}
	for _, f := range out.Structs[0].Fields {
		if f.Tag != want[f.Name] {
			t.Errorf("field %s tag = %d, want %d", f.Name, f.Tag, want[f.Name])
		}
	}
}

func TestBuildLinksNamedTypeReferenceAgainstLiveEnvironment(t *testing.T) {
	arena := NewArena()
	attrs := attrreg.Initialize()

	dep := Package{
		Name: "dep",
		Elems: []Decl{
			{Kind: DStruct, Name: "D", Fields: []Field{
				{Name: "y", Type: Type{Kind: TBuiltin, Builtin: "int"}},
			}},
		},
	}
	depBuilder := NewBuilder(arena, attrs, nil, nil)
	_, depOut, err := depBuilder.Build(dep)
	if err != nil {
		t.Fatalf("Build(dep): unexpected error: %v", err)
	}

	env := map[string]*ast.Package{"dep": depOut}
	main := Package{
		Name: "main",
		Elems: []Decl{
			{Kind: DStruct, Name: "M", Fields: []Field{
				{Name: "x", Type: Type{Kind: TName, PkgPath: []string{"dep"}, Name: "D"}},
			}},
		},
	}
	mainBuilder := NewBuilder(arena, attrs, nil, env)
	_, mainOut, err := mainBuilder.Build(main)
	if err != nil {
		t.Fatalf("Build(main): unexpected error: %v", err)
	}

	ref := mainOut.Structs[0].Fields[0].TypeRef
	if ref == nil || ref.Resolved == nil {
		t.Fatal("expected M.x's type reference to resolve against the live environment")
	}
	d, ok := ref.Resolved.(*ast.Composite)
	if !ok || d.Name != "D" {
		t.Fatalf("resolved to %+v, want struct D", ref.Resolved)
	}
}

// fakeTypeTable resolves every id to the same fixed (pkgPath, name).
type fakeTypeTable struct {
	pkgPath []string
	name    string
}

func (f fakeTypeTable) Resolve(id int) ([]string, string, bool) {
	if id != 42 {
		return nil, "", false
	}
	return f.pkgPath, f.name, true
}

func TestBuildResolvesOpaqueTypeIDThroughTypeTable(t *testing.T) {
	arena := NewArena()
	attrs := attrreg.Initialize()

	dep := Package{
		Name: "dep",
		Elems: []Decl{
			{Kind: DEnum, Name: "E", Values: []EnumValue{{Name: "X"}, {Name: "Y"}}},
		},
	}
	depBuilder := NewBuilder(arena, attrs, nil, nil)
	_, depOut, err := depBuilder.Build(dep)
	if err != nil {
		t.Fatalf("Build(dep): unexpected error: %v", err)
	}

	table := fakeTypeTable{pkgPath: []string{"dep"}, name: "E"}
	env := map[string]*ast.Package{"dep": depOut}
	main := Package{
		Name: "main",
		Elems: []Decl{
			{Kind: DStruct, Name: "M", Fields: []Field{
				{Name: "e", Type: Type{Kind: TTypeID, TypeID: 42}},
			}},
		},
	}
	mainBuilder := NewBuilder(arena, attrs, table, env)
	_, mainOut, err := mainBuilder.Build(main)
	if err != nil {
		t.Fatalf("Build(main): unexpected error: %v", err)
	}

	f := mainOut.Structs[0].Fields[0]
	if f.Kind != ast.KindEnum {
		t.Fatalf("field kind = %v, want KindEnum after resolution", f.Kind)
	}
}

func TestBuildFieldOrderMatchesExpectedShape(t *testing.T) {
	pkg := Package{
		Name: "pkg",
		Elems: []Decl{
			{Kind: DStruct, Name: "S", Fields: []Field{
				{Name: "a", Type: Type{Kind: TBuiltin, Builtin: "int"}},
				{Name: "b", Type: Type{Kind: TBuiltin, Builtin: "string"}},
			}},
		},
	}
	b := NewBuilder(NewArena(), attrreg.Initialize(), nil, nil)
	_, out, err := b.Build(pkg)
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}

	got := fieldNames(out.Structs[0])
	want := "a\nb\n"
	if diff := pretty.Compare(got, want); diff != "" {
		unified, _ := generateUnifiedDiff(got, want)
		t.Errorf("unexpected field order (-got +want):\n%s\n%s", diff, unified)
	}
}

func TestBuildClassHierarchyRejectsDuplicateID(t *testing.T) {
	pkg := Package{
		Name: "p",
		Elems: []Decl{
			{Kind: DClass, Name: "A", ClassID: func() *int { v := intTag(1); return &v }()},
			{
				Kind:    DClass,
				Name:    "B",
				ClassID: func() *int { v := intTag(1); return &v }(),
				Parent:  &Type{Kind: TName, Name: "A"},
			},
		},
	}

	b := NewBuilder(NewArena(), attrreg.Initialize(), nil, nil)
	if _, _, err := b.Build(pkg); err == nil {
		t.Fatal("expected a duplicate class id within one root hierarchy to be rejected")
	}
}

func TestBuildArrayField(t *testing.T) {
	pkg := Package{
		Name: "pkg",
		Elems: []Decl{
			{Kind: DStruct, Name: "S", Fields: []Field{
				{Name: "a", Type: Type{Kind: TArray, Elem: &Type{Kind: TBuiltin, Builtin: "int"}}},
			}},
		},
	}

	b := NewBuilder(NewArena(), attrreg.Initialize(), nil, nil)
	_, out, err := b.Build(pkg)
	if err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}
	f := out.Structs[0].Fields[0]
	if f.Repeat != ast.Repeated || f.Kind != ast.KindI32 {
		t.Fatalf("field a = %+v, want repeated I32", f)
	}
}

func TestArenaReleaseDropsReferences(t *testing.T) {
	a := NewArena()
	b := NewBuilder(a, attrreg.Initialize(), nil, nil)
	pkg := Package{Name: "p", Elems: []Decl{
		{Kind: DStruct, Name: "S", Fields: []Field{
			{Name: "a", Type: Type{Kind: TBuiltin, Builtin: "int"}},
		}},
	}}
	if _, _, err := b.Build(pkg); err != nil {
		t.Fatalf("Build: unexpected error: %v", err)
	}

	a.Release()
	if len(a.composites) != 0 || len(a.fields) != 0 {
		t.Fatal("expected Release to drop the arena's own slices")
	}
}
