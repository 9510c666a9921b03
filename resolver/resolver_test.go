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

package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kr/pretty"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/attrreg"
	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/iopcfg"
	"github.com/intersec-oss/iopc/loader"
)

// load parses every file in overrides (keyed by dotted package name)
// rooted at main and returns the full registry, ready for Resolve.
func load(t *testing.T, main string, overrides map[string]string) (*loader.Registry, *ast.Package) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.iop")
	if err := os.WriteFile(path, []byte(overrides[main]), 0o644); err != nil {
		t.Fatal(err)
	}
	delete(overrides, main)

	cfg := iopcfg.Default().WithSourceOverrides(overrides)
	r := loader.New(cfg, attrreg.Initialize())
	pkg, err := r.LoadMain(path)
	if err != nil {
		t.Fatalf("LoadMain: unexpected error: %v", err)
	}
	return r, pkg
}

func TestResolveLinksCrossPackageStructField(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\nstruct M { b.dep.D x; };\n",
		"b.dep":  "package b.dep;\nstruct D { int y; };\n",
	})

	res, err := Resolve(attrreg.Initialize(), r.Packages())
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	_ = res

	m := r.Packages()["a.main"].Structs[0]
	ref := m.Fields[0].TypeRef
	if ref.Resolved == nil {
		t.Fatal("expected M.x's type reference to resolve")
	}
	d, ok := ref.Resolved.(*ast.Composite)
	if !ok || d.Name != "D" {
		t.Fatalf("resolved to %+v, want struct D", ref.Resolved)
	}
}

func TestResolveReclassifiesStructFieldAsEnum(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\nenum Color { RED, GREEN, BLUE };\nstruct M { Color c; };\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}

	f := r.Packages()["a.main"].Structs[0].Fields[0]
	if f.Kind != ast.KindEnum {
		t.Fatalf("field kind = %v, want KindEnum after reclassification", f.Kind)
	}
}

func TestResolveRejectsDuplicateClassIDInRootHierarchy(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"class A : 1 { int x; };\n" +
			"class B : 1 : A { int y; };\n",
	})

	_, err := Resolve(attrreg.Initialize(), r.Packages())
	if err == nil {
		t.Fatal("expected a duplicate class id to be rejected")
	}
	if _, ok := err.(*ioperr.SemanticError); !ok {
		t.Fatalf("expected *ioperr.SemanticError, got %T: %v", err, err)
	}
}

func TestResolveAcceptsDisjointClassIDsInRootHierarchy(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"class A : 1 { int x; };\n" +
			"class B : 2 : A { int y; };\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
}

func TestResolveRejectsClassParentCycle(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"class A : 1 : B { int x; };\n" +
			"class B : 2 : A { int y; };\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err == nil {
		t.Fatal("expected a parent cycle to be rejected")
	}
}

func TestResolveValidatesRPCPayloadMustBeStructOrUnion(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"enum E { X, Y };\n" +
			"interface Foo { bar in E; };\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err == nil {
		t.Fatal("expected an enum-valued RPC payload reference to be rejected")
	}
}

func TestResolveRoutesDoxParamToArgField(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"interface Foo {\n" +
			"  /** \\param in login the user's login.\n" +
			"   *  \\param in password the user's password. */\n" +
			"  auth in (string login, string password) out bool;\n" +
			"};\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}

	rpc := r.Packages()["a.main"].Interfaces[0].RPCs[0]
	login := rpc.Args.Anon.Fields[0]
	if login.Dox == nil || login.Dox.Details != "the user's login." {
		t.Fatalf("login.Dox = %+v, want Details %q", login.Dox, "the user's login.")
	}
	password := rpc.Args.Anon.Fields[1]
	if password.Dox == nil || password.Dox.Details != "the user's password." {
		t.Fatalf("password.Dox = %+v, want Details %q", password.Dox, "the user's password.")
	}
}

func TestResolveRejectsDoxParamUnknownArgName(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"interface Foo {\n" +
			"  /** \\param in bogus not an argument. */\n" +
			"  auth in (string login) out bool;\n" +
			"};\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err == nil {
		t.Fatal("expected an unknown \\param argument name to be rejected")
	}
}

func TestResolveValidatesModuleInterfaceReference(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"struct S { int x; };\n" +
			"module M { S iface : 1; };\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err == nil {
		t.Fatal("expected a non-interface module field reference to be rejected")
	}
}

func TestResolveReordersFieldsRequiredOptionalRepeated(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"struct S { int a[]; string b?; bool c; };\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}

	s := r.Packages()["a.main"].Structs[0]
	var names []string
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	want := []string{"c", "b", "a"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("field order:\n%s\nwant:\n%s", pretty.Sprint(names), pretty.Sprint(want))
		}
	}
}

func TestResolveHonorsNoReorder(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"@noReorder\nstruct S { int a[]; string b?; bool c; };\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}

	s := r.Packages()["a.main"].Structs[0]
	var names []string
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	want := []string{"a", "b", "c"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("field order = %v, want %v (declaration order preserved)", names, want)
		}
	}
}

func TestResolvePropagatesPrivateToSubclass(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"@private\nclass A : 1 { int x; };\n" +
			"class B : 2 : A { int y; };\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}

	pkg := r.Packages()["a.main"]
	var b *ast.Composite
	for _, c := range pkg.Classes {
		if c.Name == "B" {
			b = c
		}
	}
	if b == nil {
		t.Fatal("class B not found")
	}
	if !attrApplied(b.Attrs, attrreg.Private) {
		t.Error("expected @private to propagate to subclass B")
	}
	if !attrApplied(b.Fields[0].Attrs, attrreg.Private) {
		t.Error("expected @private to propagate to subclass B's own field y")
	}
}

func TestResolveDerivesDefaultEnumPrefix(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\nenum HttpMethod { GET, POST };\n",
	})

	res, err := Resolve(attrreg.Initialize(), r.Packages())
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}

	e := r.Packages()["a.main"].Enums[0]
	if e.Prefix != "HTTP_METHOD" {
		t.Fatalf("prefix = %q, want HTTP_METHOD", e.Prefix)
	}
	if e.Values[0].Name != "HTTP_METHOD_GET" {
		t.Fatalf("value name = %q, want HTTP_METHOD_GET", e.Values[0].Name)
	}
	if got := e.Values[0].Aliases; len(got) != 1 || got[0] != "GET" {
		t.Fatalf("aliases = %v, want [GET]", got)
	}
	if _, ok := res.Identifiers["HTTP_METHOD_GET"]; !ok {
		t.Error("expected the canonical identifier to be registered")
	}
	if _, ok := res.Identifiers["GET"]; !ok {
		t.Error("expected the pre-prefix alias to be registered")
	}
}

func TestResolveExplicitPrefixOverridesDefault(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n@prefix(HM)\nenum HttpMethod { GET, POST };\n",
	})

	if _, err := Resolve(attrreg.Initialize(), r.Packages()); err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}

	e := r.Packages()["a.main"].Enums[0]
	if e.Prefix != "HM" {
		t.Fatalf("prefix = %q, want HM", e.Prefix)
	}
	if e.Values[0].Name != "HM_GET" {
		t.Fatalf("value name = %q, want HM_GET", e.Values[0].Name)
	}
}

func TestResolveTracksAmbiguousIdentifiers(t *testing.T) {
	r, _ := load(t, "a.main", map[string]string{
		"a.main": "package a.main;\n" +
			"enum A { X };\nenum B { X };\n",
	})

	res, err := Resolve(attrreg.Initialize(), r.Packages())
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if !res.Ambiguous["X"] {
		t.Error("expected the bare alias X, shared by two enums, to be marked ambiguous")
	}
}
