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

package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/intersec-oss/iopc/attrreg"
	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/iopcfg"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMainAndQualifiedDependency(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a/main.iop", "package a.main;\nstruct M { b.dep.D x; };\n")
	writeFile(t, dir, "b/dep.iop", "package b.dep;\nstruct D { int y; };\n")

	cfg := iopcfg.Default().WithIncludeDirs(dir)
	r := New(cfg, attrreg.Initialize())

	pkg, err := r.LoadMain(filepath.Join(dir, "a/main.iop"))
	if err != nil {
		t.Fatalf("LoadMain: unexpected error: %v", err)
	}
	if pkg.Path.String() != "a.main" {
		t.Fatalf("main package path = %q, want a.main", pkg.Path.String())
	}

	dep, ok := r.Packages()["b.dep"]
	if !ok {
		t.Fatal("b.dep was not registered as a side effect of resolving the qualified reference")
	}
	if len(dep.Structs) != 1 || dep.Structs[0].Name != "D" {
		t.Fatalf("b.dep.D not parsed correctly: %+v", dep.Structs)
	}

	if !pkg.Deps["b.dep"] {
		t.Error("a.main should carry b.dep as a dependency")
	}
}

func TestResolveUnresolvedImport(t *testing.T) {
	dir := t.TempDir()
	cfg := iopcfg.Default().WithIncludeDirs(dir)
	r := New(cfg, attrreg.Initialize())

	_, err := r.Resolve([]string{"nowhere", "pkg"}, ioperr.Loc{})
	if err == nil {
		t.Fatal("expected UnresolvedImport, got nil")
	}
	if _, ok := err.(*ioperr.UnresolvedImport); !ok {
		t.Fatalf("expected *ioperr.UnresolvedImport, got %T: %v", err, err)
	}
}

func TestSourceOverridesTakePriorityOverDisk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "over/ridden.iop", "package over.ridden;\nstruct FromDisk { int a; };\n")

	cfg := iopcfg.Default().
		WithIncludeDirs(dir).
		WithSourceOverrides(map[string]string{
			"over.ridden": "package over.ridden;\nstruct FromOverride { int a; };\n",
		})
	r := New(cfg, attrreg.Initialize())

	pkg, err := r.Resolve([]string{"over", "ridden"}, ioperr.Loc{})
	if err != nil {
		t.Fatalf("Resolve: unexpected error: %v", err)
	}
	if len(pkg.Structs) != 1 || pkg.Structs[0].Name != "FromOverride" {
		t.Fatalf("expected the override's struct FromOverride, got %+v", pkg.Structs)
	}
}

func TestWeakDependencyWiringAcrossIndependentPackages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x/one.iop", "package x.one;\nstruct One { int a; };\n")
	writeFile(t, dir, "x/two.iop", "package x.two;\nstruct Two { int a; };\n")

	cfg := iopcfg.Default().WithIncludeDirs(dir)
	r := New(cfg, attrreg.Initialize())

	one, err := r.Resolve([]string{"x", "one"}, ioperr.Loc{})
	if err != nil {
		t.Fatalf("resolving x.one: %v", err)
	}
	two, err := r.Resolve([]string{"x", "two"}, ioperr.Loc{})
	if err != nil {
		t.Fatalf("resolving x.two: %v", err)
	}

	if !two.Deps["x.one"] {
		t.Error("x.two should carry x.one as a weak dependency, wired when x.two finished parsing")
	}
	if one.Deps["x.two"] {
		t.Error("x.one should not carry x.two as a weak dependency: wiring is one-directional, onto the package that finishes parsing later")
	}
}
