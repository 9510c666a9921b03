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
	"sort"
	"strings"
	"unicode"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/attrreg"
	"github.com/intersec-oss/iopc/ioperr"
)

// pass2 derives field order, propagates @private, and folds enum-value
// prefixes, per spec.md section 4.7 pass 2.
func (r *Resolver) pass2() error {
	var errs ioperr.List

	for _, name := range r.sortedPkgNames() {
		pkg := r.pkgs[name]
		for _, c := range pkg.AllComposites() {
			reorderFields(c)
		}
	}

	for _, name := range r.sortedPkgNames() {
		pkg := r.pkgs[name]
		for _, c := range pkg.Classes {
			if c.ParentRef == nil {
				r.propagatePrivate(c)
			}
		}
	}

	for _, name := range r.sortedPkgNames() {
		pkg := r.pkgs[name]
		for _, e := range pkg.Enums {
			errs = errs.Append(r.derivePrefix(e))
		}
	}

	return ioperr.NewSemanticError(errs)
}

// reorderFields implements spec.md section 4.7 "unless @noReorder is
// present, reorder a composite's fields: required first, then
// optional, then repeated, each group keeping its declaration order."
// A stable sort preserves declaration order within a group.
func reorderFields(c *ast.Composite) {
	if attrApplied(c.Attrs, attrreg.NoReorder) {
		return
	}
	rank := func(f *ast.Field) int {
		switch f.Repeat {
		case ast.Required, ast.RequiredDefault:
			return 0
		case ast.Optional:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(c.Fields, func(i, j int) bool {
		return rank(c.Fields[i]) < rank(c.Fields[j])
	})
}

// propagatePrivate walks a class hierarchy rooted at c (c itself having
// no parent) and, whenever a class carries @private, applies the same
// visibility to every field it declares and recurses into every class
// that names it as a parent, per spec.md section 4.7 "@private on a
// class propagates to its own fields and to every subclass". Fields a
// subclass declares itself are governed by its own @private, not the
// ancestor's; the propagation only ever adds visibility restriction
// going down the tree, never removes one a subclass set explicitly.
func (r *Resolver) propagatePrivate(c *ast.Composite) {
	private := attrApplied(c.Attrs, attrreg.Private)
	r.applyPrivateTo(c, private)

	for _, name := range r.sortedPkgNames() {
		pkg := r.pkgs[name]
		for _, child := range pkg.Classes {
			if child.ParentRef == nil {
				continue
			}
			if parent, ok := child.ParentRef.Resolved.(*ast.Composite); ok && parent == c {
				if private {
					markPrivate(child)
				}
				r.propagatePrivate(child)
			}
		}
	}
}

// applyPrivateTo marks every one of c's own fields private when private
// is true. It never clears an existing @private the field already
// carries.
func (r *Resolver) applyPrivateTo(c *ast.Composite, private bool) {
	if !private {
		return
	}
	markPrivate(c)
}

// markPrivate adds a synthetic @private attribute to c and to each of
// its fields that does not already carry one, so that downstream
// consumers (the schema builder, emitters) only ever need to check a
// field's own Attrs.
func markPrivate(c *ast.Composite) {
	if !attrApplied(c.Attrs, attrreg.Private) {
		c.Attrs = append(c.Attrs, syntheticPrivate(c.Loc))
	}
	for _, f := range c.Fields {
		if !attrApplied(f.Attrs, attrreg.Private) {
			f.Attrs = append(f.Attrs, syntheticPrivate(f.Loc))
		}
	}
}

// syntheticPrivate builds the @private attribute node pass 2 injects.
// It carries the registry's @private descriptor so that attrApplied
// recognises it further down the class tree; it is never passed
// through CheckApplication.
func syntheticPrivate(loc ioperr.Loc) *ast.Attribute {
	d, _ := attrreg.Initialize().ByID(attrreg.Private)
	return &ast.Attribute{Loc: loc, Name: "private", Descriptor: d}
}

// derivePrefix computes e's canonical value-identifier prefix -- an
// explicit @prefix argument if present, otherwise the default derived
// from e's own camelCase name -- rewrites every value's Name to the
// prefixed canonical form, and records the pre-prefix spelling as an
// alias, registering both forms in the resolver's ambiguous-identifier
// table (spec.md section 9 "Ambiguous enum identifiers").
func (r *Resolver) derivePrefix(e *ast.Enum) error {
	prefix := explicitPrefix(e.Attrs)
	if prefix == "" {
		prefix = defaultPrefix(e.Name)
	}
	e.Prefix = prefix

	for _, v := range e.Values {
		original := v.Name
		canonical := prefix + "_" + original
		if strings.HasPrefix(original, prefix+"_") {
			canonical = original
		} else {
			v.Aliases = append(v.Aliases, original)
		}
		v.Name = canonical

		r.register(canonical, v)
		for _, alias := range v.Aliases {
			r.register(alias, v)
		}
	}
	return nil
}

// explicitPrefix returns the argument of a @prefix attribute, or "" if
// none is present.
func explicitPrefix(attrs []*ast.Attribute) string {
	for _, a := range attrs {
		d, ok := a.Descriptor.(*attrreg.Descriptor)
		if !ok || d.ID != attrreg.Prefix {
			continue
		}
		if len(a.Args) > 0 {
			return a.Args[0].Str
		}
	}
	return ""
}

// defaultPrefix derives the upper-snake-case prefix from a camelCase
// or PascalCase enum name, splitting at case transitions: "HttpMethod"
// becomes "HTTP_METHOD".
func defaultPrefix(name string) string {
	var out strings.Builder
	runes := []rune(name)
	for i, c := range runes {
		if i > 0 && unicode.IsUpper(c) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
				out.WriteByte('_')
			}
		}
		out.WriteRune(unicode.ToUpper(c))
	}
	return out.String()
}

// register records name as resolving to v in the resolver's identifier
// table, marking name ambiguous the moment a second, distinct value
// claims it.
func (r *Resolver) register(name string, v *ast.EnumValue) {
	if prev, ok := r.identifiers[name]; ok && prev != v {
		r.ambiguous[name] = true
		return
	}
	r.identifiers[name] = v
	r.names.Add(name, nil)
}
