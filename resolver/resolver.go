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

// Package resolver implements the two-pass semantic analysis of
// spec.md section 4.7: once the package loader has produced the full
// registry reachable from a main package, pass 1 links cross-type
// references and validates the invariants of section 3, and pass 2
// derives field order, propagates attributes and folds enum prefixes.
package resolver

import (
	"sort"

	"github.com/derekparker/trie"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/attrreg"
	"github.com/intersec-oss/iopc/internal/trace"
	"github.com/intersec-oss/iopc/ioperr"
)

// Resolver holds the state threaded through both passes: the registry
// of every package reachable from the compilation (supplied by package
// loader), the attribute table used to re-check deferred field-kind
// applications, and the bookkeeping pass 2 builds up for enum-value
// identifier resolution.
type Resolver struct {
	attrs *attrreg.Registry
	pkgs  map[string]*ast.Package

	identifiers map[string]*ast.EnumValue
	ambiguous   map[string]bool
	names       *trie.Trie
}

// Result is everything Resolve hands back to a successful caller
// beyond the mutated AST itself: the enum-value identifier table the
// constant folder consults for cross-reference migration (spec.md
// section 9 "Ambiguous enum identifiers"), and the set of identifiers
// that resolve to more than one value.
type Result struct {
	Identifiers map[string]*ast.EnumValue
	Ambiguous   map[string]bool

	names *trie.Trie
}

// LookupPrefix returns every registered enum-value identifier sharing
// prefix, canonical and migrated-alias forms alike. Downstream emitters
// use this to audit the Ambiguous set before committing to one spelling.
func (res *Result) LookupPrefix(prefix string) []string {
	if res.names == nil {
		return nil
	}
	return res.names.PrefixSearch(prefix)
}

// Resolve runs pass 1 then pass 2 over every package in pkgs (keyed by
// dotted name, as produced by loader.Registry.Packages). Failure in
// either pass aborts before the other runs and is returned as a
// *ioperr.SemanticError collecting every diagnostic from that pass.
func Resolve(attrs *attrreg.Registry, pkgs map[string]*ast.Package) (*Result, error) {
	r := &Resolver{
		attrs:       attrs,
		pkgs:        pkgs,
		identifiers: map[string]*ast.EnumValue{},
		ambiguous:   map[string]bool{},
		names:       trie.New(),
	}

	defer trace.Scope("resolving %d packages", len(pkgs))()

	if err := r.pass1(); err != nil {
		return nil, err
	}
	if err := r.pass2(); err != nil {
		return nil, err
	}
	return &Result{Identifiers: r.identifiers, Ambiguous: r.ambiguous, names: r.names}, nil
}

// sortedPkgNames returns the registry's keys in lexical order, so that
// diagnostics and the derived identifier table do not depend on Go's
// randomized map iteration order.
func (r *Resolver) sortedPkgNames() []string {
	names := make([]string, 0, len(r.pkgs))
	for name := range r.pkgs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupByName finds a struct/union/class/SNMP-object/SNMP-table,
// enum, or interface declared directly in pkg by its bare name.
func lookupByName(pkg *ast.Package, name string) (interface{}, bool) {
	for _, c := range pkg.AllComposites() {
		if c.Name == name {
			return c, true
		}
	}
	for _, e := range pkg.Enums {
		if e.Name == name {
			return e, true
		}
	}
	for _, i := range pkg.Interfaces {
		if i.Name == name {
			return i, true
		}
	}
	for _, i := range pkg.SNMPInterfaces {
		if i.Name == name {
			return i, true
		}
	}
	return nil, false
}

// resolveTypeRef links ref to the node it names, searching owner's own
// package for a bare reference or the registry entry named by
// ref.PkgPath for a qualified one. Idempotent: a ref already carrying a
// Resolved value from an earlier pass 1 walk (e.g. a class parent
// visited while checking a descendant) is returned unchanged.
func (r *Resolver) resolveTypeRef(owner *ast.Package, ref *ast.TypeRef) (interface{}, error) {
	if ref.Resolved != nil {
		return ref.Resolved, nil
	}

	target := owner
	if len(ref.PkgPath) > 0 {
		name := ref.PkgPath.String()
		p, ok := r.pkgs[name]
		if !ok {
			return nil, ioperr.NewUnresolvedImport(ref.Loc, name)
		}
		target = p
	}

	v, ok := lookupByName(target, ref.Name)
	if !ok {
		return nil, ioperr.NewUnresolvedType(ref.Loc, ref.Name)
	}
	ref.Resolved = v
	return v, nil
}

// allInterfaces returns pkg's plain and SNMP interfaces together.
func allInterfaces(pkg *ast.Package) []*ast.Interface {
	out := make([]*ast.Interface, 0, len(pkg.Interfaces)+len(pkg.SNMPInterfaces))
	out = append(out, pkg.Interfaces...)
	out = append(out, pkg.SNMPInterfaces...)
	return out
}

// classLike returns every composite in pkg that may carry a class id
// and a parent reference: classes and SNMP objects/tables.
func classLike(pkg *ast.Package) []*ast.Composite {
	out := make([]*ast.Composite, 0, len(pkg.Classes)+len(pkg.SNMPObjects)+len(pkg.SNMPTables))
	out = append(out, pkg.Classes...)
	out = append(out, pkg.SNMPObjects...)
	out = append(out, pkg.SNMPTables...)
	return out
}

// attrApplied reports whether attrs carries an application of the
// descriptor id, mirroring package parser's attrSeen but operating
// after parsing, when Attribute.Descriptor is already populated.
func attrApplied(attrs []*ast.Attribute, id attrreg.ID) bool {
	for _, a := range attrs {
		if d, ok := a.Descriptor.(*attrreg.Descriptor); ok && d.ID == id {
			return true
		}
	}
	return false
}
