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

import "github.com/intersec-oss/iopc/ast"

// EnumTable is the process-wide, per-compilation table of enum-value
// identifiers, populated incrementally as each enum value is parsed
// and consulted by every later constant expression -- a field default,
// an enum value's own `= <expr>`, or an attribute argument -- in any
// file of the compilation (spec.md section 3 "Package registry":
// "Mapping from enum-value identifier ... to its Enum-value node";
// section 4.2: "Enum-value identifiers fed as numbers use the enum
// value's signed integer", stated without restriction to the enclosing
// enum). It mirrors the original compiler's single process-wide
// `_G.enums` map (iopc-parser.c's parse_constant_integer, called
// identically from field-default, enum-value and attribute-argument
// parsing).
//
// EnumTable keys on each value's bare declared name. This differs from
// the resolver's post-resolution Identifiers map (resolver/pass2.go),
// which keys on the fully prefix-derived canonical/alias identifiers
// and can only be built once every package's @prefix attributes and
// default-prefix derivation have run: at parse time no package beyond
// the one being read has necessarily finished, so prefixing is not yet
// knowable. A bare-name collision between two unrelated enums is
// deliberately not an error here -- without prefix information there
// is no way to tell a genuine collision from two enums that happen to
// reuse a value name -- so the first registration wins; the resolver's
// own pass 2 table remains the authority for ambiguity diagnostics once
// prefixing is known.
//
// All methods are nil-safe so a Parser built without one (e.g. a unit
// test that never references an enum value) behaves as if every lookup
// misses.
type EnumTable struct {
	values map[string]*ast.EnumValue
}

// NewEnumTable returns an empty, ready-to-share table.
func NewEnumTable() *EnumTable {
	return &EnumTable{values: map[string]*ast.EnumValue{}}
}

// Get looks up name, returning the enum value it was first registered
// under.
func (t *EnumTable) Get(name string) (*ast.EnumValue, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[name]
	return v, ok
}

// Register records v under its declared name the first time that name
// is seen; a later registration of the same name is a no-op rather
// than an error (see the type doc comment).
func (t *EnumTable) Register(v *ast.EnumValue) {
	if t == nil || v == nil {
		return
	}
	if _, ok := t.values[v.Name]; ok {
		return
	}
	t.values[v.Name] = v
}
