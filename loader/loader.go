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

// Package loader locates dependency packages by dotted name and
// maintains the process-wide package registry of spec.md section 4.6:
// given "p1.p2.p3" it tries, in order, the caller's in-memory source
// overrides, the current working directory ("."), and each configured
// include directory, under the filename convention "p1/p2/p3.iop".
// The main file's own directory is not searched unless it is the
// working directory or one of the include directories.
package loader

import (
	"os"
	"path/filepath"

	log "github.com/golang/glog"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/attrreg"
	"github.com/intersec-oss/iopc/iopcfg"
	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/parser"
	"github.com/intersec-oss/iopc/token"
)

// Registry is the process-wide (per-compilation, per spec.md section 5
// "disjoint registries") map of dotted package name to parsed
// package. It implements parser.PackageResolver, closing the
// parser -> loader dependency with an injected interface rather than
// an import cycle.
type Registry struct {
	cfg   iopcfg.Options
	attrs *attrreg.Registry
	enums *parser.EnumTable

	byName map[string]*ast.Package
}

// New creates an empty Registry for one compilation context. It owns a
// single parser.EnumTable, shared by every file the Registry parses
// (the main file and every recursively-resolved dependency), so that a
// constant expression anywhere in the compilation can refer to an
// enum value declared in any other file already parsed, per spec.md
// section 3's process-wide enum-value identifier mapping.
func New(cfg iopcfg.Options, attrs *attrreg.Registry) *Registry {
	return &Registry{cfg: cfg, attrs: attrs, enums: parser.NewEnumTable(), byName: map[string]*ast.Package{}}
}

// Packages returns every package currently in the registry, the main
// package included once it has been loaded.
func (r *Registry) Packages() map[string]*ast.Package {
	return r.byName
}

// LoadMain parses path as the main package (spec.md section 6
// "compile_file"): the file named by path, with pkg.Main set, inserted
// into the registry under the dotted name its own `package` statement
// declares.
func (r *Registry) LoadMain(path string) (*ast.Package, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, ioperr.NewUnresolvedImport(ioperr.Loc{File: path}, path)
	}
	pkg, err := r.parse(path, filepath.Dir(path), src, true)
	if err != nil {
		return nil, err
	}
	r.byName[pkg.Path.String()] = pkg
	r.wireWeakDeps(pkg.Path.String(), pkg)
	return pkg, nil
}

// Resolve implements parser.PackageResolver: it returns the
// already-registered package for path if present, otherwise locates
// and parses its source file as a dependency. The registry entry for
// path is created *before* the recursive parse runs (spec.md section
// 4.6 "Parsed packages are inserted into the registry immediately")
// so that a package cycle (A imports B, B imports A) terminates on the
// second Resolve call instead of recursing forever; the stub's fields
// are filled in in place once the parse completes, so every caller
// that captured the stub pointer observes the final package.
func (r *Registry) Resolve(path ast.PackagePath, loc ioperr.Loc) (*ast.Package, error) {
	name := path.String()
	if pkg, ok := r.byName[name]; ok {
		return pkg, nil
	}

	file, baseDir, src, err := r.locate(path)
	if err != nil {
		return nil, ioperr.NewUnresolvedImport(loc, name)
	}
	log.V(1).Infof("loader: resolved %s -> %s", name, file)

	stub := &ast.Package{Path: path, SourceFile: file, BaseDir: baseDir, Deps: map[string]bool{}}
	r.byName[name] = stub

	pkg, err := r.parse(file, baseDir, src, false)
	if err != nil {
		delete(r.byName, name)
		return nil, err
	}
	*stub = *pkg
	r.wireWeakDeps(name, stub)
	return stub, nil
}

// locate implements the three-tier search order of spec.md section
// 4.6: the in-memory override map, the working directory ".", then
// each include directory in declaration order. The main file's own
// directory is not a search root of its own.
func (r *Registry) locate(path ast.PackagePath) (file, baseDir string, src []byte, err error) {
	name := path.String()
	if text, ok := r.cfg.SourceOverrides[name]; ok {
		return name + ".iop", ".", []byte(text), nil
	}

	rel := filepath.Join(path...) + ".iop"
	dirs := append([]string{"."}, r.cfg.IncludeDirs...)
	for _, dir := range dirs {
		full := filepath.Join(dir, rel)
		b, err := os.ReadFile(full)
		if err == nil {
			return full, dir, b, nil
		}
	}
	return "", "", nil, os.ErrNotExist
}

// parse runs one file through the recursive-descent parser, without
// touching the registry.
func (r *Registry) parse(file, baseDir string, src []byte, main bool) (*ast.Package, error) {
	pkg := &ast.Package{SourceFile: file, BaseDir: baseDir, Main: main}
	lex := token.New(file, src)
	buf := token.NewBuffer(lex)
	p := parser.New(buf, r.attrs, r, r.cfg, r.enums)
	return p.ParseFile(pkg)
}

// wireWeakDeps makes every other package already in the registry a
// weak dependency of pkg, per spec.md section 4.6 "When a package
// finishes parsing, every other package in the registry becomes a
// weak dependency of the new one." The relation is one-directional:
// packages registered earlier do not gain pkg as a dependency.
func (r *Registry) wireWeakDeps(name string, pkg *ast.Package) {
	for other := range r.byName {
		if other == name {
			continue
		}
		pkg.Deps[other] = true
	}
}
