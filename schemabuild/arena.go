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

import "github.com/intersec-oss/iopc/ast"

// Arena is the caller-supplied scratch allocator a Builder call uses
// for every transient AST node it constructs (spec.md section 4.8
// "Memory discipline"). A Go program has no manual allocator, so Arena
// plays the role the original compiler's arena does by a different
// mechanism: it is the only thing holding a strong reference to the
// nodes it hands out while a Build call is in flight. Once the caller
// is done with the returned package (has copied out whatever runtime
// descriptor it needed, or decided to discard a failed build), Release
// drops the arena's own slices, and the nodes become collectible in the
// same O(1) the original release is -- dropping a reference rather
// than walking a free list.
type Arena struct {
	composites []*ast.Composite
	fields     []*ast.Field
	enums      []*ast.Enum
	values     []*ast.EnumValue
	ifaces     []*ast.Interface
	rpcs       []*ast.RPC
	modules    []*ast.Module
	modFields  []*ast.ModuleField
}

// NewArena returns an empty Arena, ready for one Builder.Build call.
func NewArena() *Arena { return &Arena{} }

// Release drops the arena's references to every node it allocated.
// Nodes reachable from the registry (because Build succeeded and the
// caller kept the returned package) survive; everything else is now
// unreferenced and collectible.
func (a *Arena) Release() {
	*a = Arena{}
}

func (a *Arena) composite(kind ast.StructKind, name string, pkg *ast.Package) *ast.Composite {
	c := &ast.Composite{Kind: kind, Name: name, Pkg: pkg}
	a.composites = append(a.composites, c)
	return c
}

func (a *Arena) field() *ast.Field {
	f := &ast.Field{}
	a.fields = append(a.fields, f)
	return f
}

func (a *Arena) enum(name string, pkg *ast.Package) *ast.Enum {
	e := &ast.Enum{Name: name, Pkg: pkg}
	a.enums = append(a.enums, e)
	return e
}

func (a *Arena) value() *ast.EnumValue {
	v := &ast.EnumValue{}
	a.values = append(a.values, v)
	return v
}

func (a *Arena) iface(name string, pkg *ast.Package, isSNMP bool) *ast.Interface {
	i := &ast.Interface{Name: name, Pkg: pkg, IsSNMP: isSNMP}
	a.ifaces = append(a.ifaces, i)
	return i
}

func (a *Arena) rpc() *ast.RPC {
	r := &ast.RPC{}
	a.rpcs = append(a.rpcs, r)
	return r
}

func (a *Arena) module(name string, pkg *ast.Package) *ast.Module {
	m := &ast.Module{Name: name, Pkg: pkg}
	a.modules = append(a.modules, m)
	return m
}

func (a *Arena) moduleField() *ast.ModuleField {
	mf := &ast.ModuleField{}
	a.modFields = append(a.modFields, mf)
	return mf
}
