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

package attrreg

import (
	"testing"

	"github.com/intersec-oss/iopc/ast"
)

func TestInitializeRegistersKnownAttributes(t *testing.T) {
	r := Initialize()
	for _, name := range []string{
		"ctype", "nowarn", "prefix", "strict", "min", "max", "minLength",
		"maxLength", "length", "minOccurs", "maxOccurs", "cdata", "nonEmpty",
		"nonZero", "pattern", "private", "alias", "noReorder", "allow",
		"disallow", "generic", "deprecated", "snmpParamsFrom", "snmpParam",
		"snmpIndex", "typescriptNoCollection",
	} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("missing attribute %q", name)
		}
	}
}

func TestMinLengthRejectsIntField(t *testing.T) {
	// @minLength does not apply to int (spec.md scenario 5).
	r := Initialize()
	d, ok := r.Lookup("minLength")
	if !ok {
		t.Fatal("minLength not registered")
	}
	attr := &ast.Attribute{Name: "minLength", Args: []ast.Value{{Kind: ast.VInt, I64: 3}}}
	ctx := CheckContext{IsField: true, FieldKind: FieldKindMaskOf(ast.KindI32, false, false), Repeat: RRequired}
	if err := r.CheckApplication(attr, d, ctx); err == nil {
		t.Fatal("expected AttributeError for minLength on an int field")
	}
}

func TestMinRejectsZero(t *testing.T) {
	r := Initialize()
	d, _ := r.Lookup("min")
	attr := &ast.Attribute{Name: "min", Args: []ast.Value{{Kind: ast.VInt, I64: 0}}}
	ctx := CheckContext{IsField: true, FieldKind: FInt, Repeat: RRequired}
	if err := r.CheckApplication(attr, d, ctx); err == nil {
		t.Fatal("expected AttributeError for min(0)")
	}
}

func TestCTypeRequiresDoubleUnderscoreTSuffix(t *testing.T) {
	r := Initialize()
	d, _ := r.Lookup("ctype")
	attr := &ast.Attribute{Name: "ctype", Args: []ast.Value{{Kind: ast.VIdent, Str: "my_type"}}}
	ctx := CheckContext{Target: TStruct}
	if err := r.CheckApplication(attr, d, ctx); err == nil {
		t.Fatal("expected AttributeError for ctype without __t suffix")
	}
	attr.Args[0].Str = "my_type__t"
	if err := r.CheckApplication(attr, d, ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSNMPIndexRequiresTableMembership(t *testing.T) {
	r := Initialize()
	d, _ := r.Lookup("snmpIndex")
	attr := &ast.Attribute{Name: "snmpIndex"}
	ctx := CheckContext{IsField: true, FieldKind: FInt, Repeat: RRequired, InSNMPTable: false}
	if err := r.CheckApplication(attr, d, ctx); err == nil {
		t.Fatal("expected AttributeError outside an SNMP table")
	}
	ctx.InSNMPTable = true
	if err := r.CheckApplication(attr, d, ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNonMultiAttributeRejectsRepetition(t *testing.T) {
	r := Initialize()
	d, _ := r.Lookup("prefix")
	attr := &ast.Attribute{Name: "prefix", Args: []ast.Value{{Kind: ast.VIdent, Str: "P"}}}
	ctx := CheckContext{Target: TEnum, PriorOnOwner: 1}
	if err := r.CheckApplication(attr, d, ctx); err == nil {
		t.Fatal("expected AttributeError for repeated @prefix")
	}
}
