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
	"fmt"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/attrreg"
	"github.com/intersec-oss/iopc/ioperr"
)

// pass1 links every cross-type reference reachable from the registry
// and validates the invariants of spec.md section 4.7 pass 1.
func (r *Resolver) pass1() error {
	var errs ioperr.List

	for _, name := range r.sortedPkgNames() {
		pkg := r.pkgs[name]

		for _, c := range pkg.AllComposites() {
			for _, f := range c.Fields {
				errs = errs.Append(r.resolveField(pkg, f))
			}
			for _, f := range c.StaticFields {
				errs = errs.Append(r.resolveField(pkg, f))
			}
		}

		for _, f := range pkg.Typedefs {
			errs = errs.Append(r.resolveField(pkg, f))
		}

		for _, iface := range allInterfaces(pkg) {
			for _, rpc := range iface.RPCs {
				errs = append(errs, r.resolveRPCPayload(pkg, rpc.Args)...)
				errs = append(errs, r.resolveRPCPayload(pkg, rpc.Result)...)
				errs = append(errs, r.resolveRPCPayload(pkg, rpc.Exn)...)
				errs = append(errs, r.routeRPCDoxParams(rpc)...)
			}
		}

		for _, mod := range pkg.Modules {
			for _, mf := range mod.Fields {
				errs = errs.Append(r.resolveModuleField(pkg, mf))
			}
		}
	}

	for _, name := range r.sortedPkgNames() {
		pkg := r.pkgs[name]
		for _, c := range classLike(pkg) {
			errs = errs.Append(r.resolveParent(pkg, c))
		}
	}

	errs = append(errs, r.checkClassIDUniqueness()...)
	errs = append(errs, r.checkSNMPRoots()...)

	return ioperr.NewSemanticError(errs)
}

// resolveField links f's pending struct/enum reference, if any, and
// re-runs the attribute checks the parser deferred for the
// STRUCT-or-ENUM-ambiguous case now that the real target kind is known
// (spec.md section 4.7 "Re-run the attribute type checks with now-known
// target kinds"). A field of a builtin kind, or a typedef/field with no
// TypeRef, is a no-op.
func (r *Resolver) resolveField(owner *ast.Package, f *ast.Field) error {
	if f.Kind != ast.KindStruct || f.TypeRef == nil {
		return nil
	}

	target, err := r.resolveTypeRef(owner, f.TypeRef)
	if err != nil {
		return err
	}

	isUnion, isEnum := false, false
	switch t := target.(type) {
	case *ast.Composite:
		isUnion = t.Kind == ast.SKUnion
	case *ast.Enum:
		isEnum = true
		f.Kind = ast.KindEnum
	default:
		return ioperr.NewUnresolvedType(f.TypeRef.Loc, f.TypeRef.Name)
	}

	return r.recheckFieldAttrs(f, target, isUnion, isEnum)
}

// recheckFieldAttrs replays attrreg.CheckApplication for every one of
// f's already-parsed attributes, this time with the resolved field kind
// and, for @allow/@disallow, the referenced union/enum's member names
// (unavailable to the parser, since it runs before any cross-type
// reference resolves).
func (r *Resolver) recheckFieldAttrs(f *ast.Field, target interface{}, isUnion, isEnum bool) error {
	names := unionOrEnumNames(target)
	seen := map[attrreg.ID]int{}

	for _, a := range f.Attrs {
		d, ok := a.Descriptor.(*attrreg.Descriptor)
		if !ok {
			continue
		}
		ctx := attrreg.CheckContext{
			IsField:          true,
			FieldKind:        attrreg.FieldKindMaskOf(f.Kind, isUnion, isEnum),
			Repeat:           attrreg.RepeatMaskOf(f.Repeat),
			InSNMPTable:      f.SNMPInTable,
			PriorOnOwner:     seen[d.ID],
			UnionOrEnumNames: names,
		}
		if d.ID == attrreg.Allow {
			ctx.SeenDisallow = attrApplied(f.Attrs, attrreg.Disallow)
		}
		if d.ID == attrreg.Disallow {
			ctx.SeenAllow = attrApplied(f.Attrs, attrreg.Allow)
		}
		if err := r.attrs.CheckApplication(a, d, ctx); err != nil {
			return err
		}
		seen[d.ID]++
	}
	return nil
}

// unionOrEnumNames collects the member names @allow/@disallow arguments
// must be drawn from: field names for a union, value names for an enum.
func unionOrEnumNames(target interface{}) map[string]bool {
	names := map[string]bool{}
	switch t := target.(type) {
	case *ast.Composite:
		for _, f := range t.Fields {
			names[f.Name] = true
		}
	case *ast.Enum:
		for _, v := range t.Values {
			names[v.Name] = true
		}
	}
	return names
}

// resolveRPCPayload links every field of an anonymous payload struct,
// or the single reference of a named one, returning every error
// encountered rather than stopping at the first (an RPC's three
// payloads are independent, so one bad reference should not hide
// errors in the others).
func (r *Resolver) resolveRPCPayload(pkg *ast.Package, payload *ast.RPCPayload) ioperr.List {
	if payload == nil {
		return nil
	}
	var errs ioperr.List
	if payload.Anon != nil {
		for _, f := range payload.Anon.Fields {
			errs = errs.Append(r.resolveField(pkg, f))
		}
		return errs
	}
	if payload.Ref != nil {
		errs = errs.Append(r.resolveRPCPayloadRef(pkg, payload.Ref))
	}
	return errs
}

// routeRPCDoxParams appends each \param chunk's paragraph text to the
// Details of the named field inside rpc's arg/res/exn payload, per
// spec.md section 4.4 "Routing to AST": "the resolver locates the
// corresponding field inside the RPC's arg/res/exn struct ... and
// appends the chunk's paragraphs to that field's details comment."
// Run in pass 1, after resolveRPCPayload has linked every reference
// payload to its target struct, so payloadFields below can see a named
// payload's real field list rather than only an anonymous one's.
func (r *Resolver) routeRPCDoxParams(rpc *ast.RPC) ioperr.List {
	if rpc.Dox == nil || len(rpc.Dox.Params) == 0 {
		return nil
	}

	byDir := map[ast.DoxDirection]*ast.RPCPayload{
		ast.DoxIn:    rpc.Args,
		ast.DoxOut:   rpc.Result,
		ast.DoxThrow: rpc.Exn,
	}

	var errs ioperr.List
	for _, p := range rpc.Dox.Params {
		payload := byDir[p.Direction]
		fields := payloadFields(payload)

		if len(p.Names) == 0 {
			// No argument name given: a single-direction payload with
			// exactly one field is addressed directly, as documented
			// for anonymous single-field payloads ("the whole struct,
			// if anonymous = single direction").
			if len(fields) == 1 {
				appendFieldDox(fields[0], p.Text)
			}
			continue
		}
		for _, name := range p.Names {
			f := fieldByName(fields, name)
			if f == nil {
				errs = errs.Append(ioperr.NewDoxygenError(rpc.Loc,
					"\\param %s: %q is not an argument of RPC %q", p.Direction, name, rpc.Name))
				continue
			}
			appendFieldDox(f, p.Text)
		}
	}
	return errs
}

// payloadFields returns the field list backing an RPC payload: the
// anonymous struct's own fields, or the resolved named struct/union's
// fields. Returns nil for an absent or void payload.
func payloadFields(payload *ast.RPCPayload) []*ast.Field {
	if payload == nil {
		return nil
	}
	if payload.Anon != nil {
		return payload.Anon.Fields
	}
	if payload.Ref != nil && payload.Ref.Resolved != nil {
		if c, ok := payload.Ref.Resolved.(*ast.Composite); ok {
			return c.Fields
		}
	}
	return nil
}

// appendFieldDox appends text to f's Details, allocating f.Dox first if
// the field carried no doc comment of its own.
func appendFieldDox(f *ast.Field, text string) {
	if f.Dox == nil {
		f.Dox = &ast.DoxBlock{}
	}
	f.Dox.AppendDetails(text)
}

// fieldByName returns the field named name in fields, or nil.
func fieldByName(fields []*ast.Field, name string) *ast.Field {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// resolveRPCPayloadRef links a non-anonymous RPC payload's type
// reference and verifies it names a struct or union, per spec.md
// section 4.7 "verify non-anonymous payloads resolve to structs/unions".
func (r *Resolver) resolveRPCPayloadRef(pkg *ast.Package, ref *ast.TypeRef) error {
	target, err := r.resolveTypeRef(pkg, ref)
	if err != nil {
		return err
	}
	c, ok := target.(*ast.Composite)
	if !ok || (c.Kind != ast.SKStruct && c.Kind != ast.SKUnion) {
		return ioperr.NewConstraintError(ref.Loc, "RPC payload %q must reference a struct or union", ref.Name)
	}
	return nil
}

// resolveModuleField links a module field's interface reference, per
// spec.md section 4.7 "For each module, verify interface references
// resolve."
func (r *Resolver) resolveModuleField(pkg *ast.Package, mf *ast.ModuleField) error {
	target, err := r.resolveTypeRef(pkg, mf.IfaceRef)
	if err != nil {
		return err
	}
	if _, ok := target.(*ast.Interface); !ok {
		return ioperr.NewConstraintError(mf.IfaceRef.Loc, "module field %q must reference an interface", mf.Name)
	}
	return nil
}

// resolveParent links c's parent reference (if any), verifies it is a
// class (for a class) or SNMP object (for an SNMP object/table), and
// walks the chain above it looking for a cycle.
func (r *Resolver) resolveParent(pkg *ast.Package, c *ast.Composite) error {
	if c.ParentRef == nil {
		return nil
	}

	target, err := r.resolveTypeRef(pkg, c.ParentRef)
	if err != nil {
		return err
	}
	parent, ok := target.(*ast.Composite)
	if !ok {
		return ioperr.NewInheritanceError(c.ParentRef.Loc, fmt.Sprintf("%s %q: parent %q is not a class or SNMP object", c.Kind, c.Name, c.ParentRef.Name))
	}

	wantKind := ast.SKClass
	if c.Kind == ast.SKSNMPObject || c.Kind == ast.SKSNMPTable {
		wantKind = ast.SKSNMPObject
	}
	if parent.Kind != wantKind {
		return ioperr.NewInheritanceError(c.ParentRef.Loc, fmt.Sprintf("%s %q: parent %q is a %s, not a %s", c.Kind, c.Name, parent.Name, parent.Kind, wantKind))
	}

	seen := map[*ast.Composite]bool{c: true}
	for cur := parent; cur != nil; {
		if seen[cur] {
			return ioperr.NewInheritanceError(c.Loc, fmt.Sprintf("%s %q: parent chain contains a cycle at %q", c.Kind, c.Name, cur.Name))
		}
		seen[cur] = true
		if cur.ParentRef == nil {
			break
		}
		next, err := r.resolveTypeRef(cur.Pkg, cur.ParentRef)
		if err != nil {
			return err
		}
		nextComposite, ok := next.(*ast.Composite)
		if !ok {
			break
		}
		cur = nextComposite
	}
	return nil
}

// rootOf walks c's already-resolved parent chain to its ultimate
// ancestor.
func rootOf(c *ast.Composite) *ast.Composite {
	cur := c
	for cur.ParentRef != nil {
		parent, ok := cur.ParentRef.Resolved.(*ast.Composite)
		if !ok {
			break
		}
		cur = parent
	}
	return cur
}

// checkClassIDUniqueness groups every class/SNMP object/table declared
// in a main package by its root ancestor (which may live in a
// dependency package) and rejects a duplicate id within one group, per
// spec.md section 3 "all classes in one root hierarchy share disjoint
// class IDs ... when declared in the main package being compiled".
func (r *Resolver) checkClassIDUniqueness() ioperr.List {
	var errs ioperr.List
	groups := map[*ast.Composite][]*ast.Composite{}

	for _, name := range r.sortedPkgNames() {
		pkg := r.pkgs[name]
		if !pkg.Main {
			continue
		}
		for _, c := range classLike(pkg) {
			root := rootOf(c)
			groups[root] = append(groups[root], c)
		}
	}

	for _, members := range groups {
		seen := map[int]*ast.Composite{}
		for _, c := range members {
			if c.ClassID == nil {
				continue
			}
			if prev, ok := seen[*c.ClassID]; ok {
				errs = errs.Append(ioperr.NewInvalidClassId(c.Loc, *c.ClassID, fmt.Sprintf("duplicates %s within this root hierarchy", prev.Name)))
				continue
			}
			seen[*c.ClassID] = c
		}
	}
	return errs
}

// checkSNMPRoots verifies that every non-root SNMP object/table's
// parent chain reaches a composite with IsSNMPRoot set, per spec.md
// section 4.7 "verify the chain ends at the root (name Intersec)".
func (r *Resolver) checkSNMPRoots() ioperr.List {
	var errs ioperr.List

	for _, name := range r.sortedPkgNames() {
		pkg := r.pkgs[name]
		for _, c := range append(append([]*ast.Composite{}, pkg.SNMPObjects...), pkg.SNMPTables...) {
			if c.IsSNMPRoot {
				continue
			}
			reached := false
			seen := map[*ast.Composite]bool{}
			for cur := c; cur != nil; {
				if seen[cur] {
					break
				}
				seen[cur] = true
				if cur.IsSNMPRoot {
					reached = true
					break
				}
				if cur.ParentRef == nil {
					break
				}
				parent, ok := cur.ParentRef.Resolved.(*ast.Composite)
				if !ok {
					break
				}
				cur = parent
			}
			if !reached {
				errs = errs.Append(ioperr.NewInheritanceError(c.Loc, fmt.Sprintf("%s %q: SNMP parent chain does not reach the root \"Intersec\"", c.Kind, c.Name)))
			}
		}
	}
	return errs
}
