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

// Package ioperr defines the taxonomy of errors produced by the IOP
// compiler core, as described in spec.md section 7. Every error kind
// is its own exported type carrying a source Loc, so that callers can
// type-switch on the failure without parsing message text.
package ioperr

import (
	"fmt"
	"strings"
)

// Loc is a source location span: a file path plus a line/column range.
// Every AST node and every error produced while building it carries one.
type Loc struct {
	File    string
	LineMin int
	LineMax int
	ColMin  int
	ColMax  int
}

func (l Loc) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	if l.LineMin == l.LineMax {
		return fmt.Sprintf("%s:%d:%d-%d", l.File, l.LineMin, l.ColMin, l.ColMax)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", l.File, l.LineMin, l.ColMin, l.LineMax, l.ColMax)
}

// List aggregates multiple errors, mirroring the teacher's util.Errors:
// a []error that is itself an error. Used wherever a pass collects
// several diagnostics before aborting, such as the resolver's two
// passes over a package registry.
type List []error

// Error implements the error interface.
func (l List) Error() string {
	return ToString(l)
}

// Append returns l with err appended, unless err is nil.
func (l List) Append(err error) List {
	if err == nil {
		return l
	}
	return append(l, err)
}

// ToString renders a slice of errors as a semicolon-joined string, skipping
// nils.
func ToString(errs []error) string {
	var parts []string
	for _, e := range errs {
		if e == nil {
			continue
		}
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// located is embedded by every concrete error kind so that it carries a
// Loc and formats it into Error() consistently: "<file>:<line>:<col>: <msg>".
type located struct {
	Loc Loc
}

func (l located) prefix() string {
	return l.Loc.String() + ": "
}

// LexicalError reports an invalid or unterminated token: a bad escape
// sequence, unterminated string/comment, or malformed numeric literal.
type LexicalError struct {
	located
	Msg string
}

func (e *LexicalError) Error() string { return e.prefix() + e.Msg }

// NewLexicalError constructs a LexicalError at loc with message msg.
func NewLexicalError(loc Loc, msg string, args ...interface{}) *LexicalError {
	return &LexicalError{located{loc}, fmt.Sprintf(msg, args...)}
}

// UnexpectedToken reports that the parser's `want` primitive was not
// satisfied: it expected one token kind/lexeme and found another.
type UnexpectedToken struct {
	located
	Want string
	Got  string
}

func (e *UnexpectedToken) Error() string {
	return e.prefix() + fmt.Sprintf("expected %s, got %s", e.Want, e.Got)
}

// NewUnexpectedToken constructs an UnexpectedToken error.
func NewUnexpectedToken(loc Loc, want, got string) *UnexpectedToken {
	return &UnexpectedToken{located{loc}, want, got}
}

// InvalidIdentifier reports a reserved keyword, an underscore-containing
// name, a wrong-case name, or an empty name where an identifier was
// required. The message begins with the offending identifier, per
// spec.md section 6 "Diagnostics".
type InvalidIdentifier struct {
	located
	Name   string
	Reason string
}

func (e *InvalidIdentifier) Error() string {
	if e.Name == "" {
		return e.prefix() + "empty name"
	}
	return e.prefix() + fmt.Sprintf("%s %s", e.Name, e.Reason)
}

// NewInvalidIdentifier constructs an InvalidIdentifier error.
func NewInvalidIdentifier(loc Loc, name, reason string) *InvalidIdentifier {
	return &InvalidIdentifier{located{loc}, name, reason}
}

// InvalidTag reports a field or RPC tag out of [1..0x7FFF], or a tag
// duplicated within one composite.
type InvalidTag struct {
	located
	Tag    int
	Reason string
}

func (e *InvalidTag) Error() string {
	return e.prefix() + fmt.Sprintf("tag %d %s", e.Tag, e.Reason)
}

// NewInvalidTag constructs an InvalidTag error.
func NewInvalidTag(loc Loc, tag int, reason string) *InvalidTag {
	return &InvalidTag{located{loc}, tag, reason}
}

// InvalidClassId reports a class or SNMP id out of the configured
// range, a duplicate id within a root hierarchy, or a cycle.
type InvalidClassId struct {
	located
	ID     int
	Reason string
}

func (e *InvalidClassId) Error() string {
	return e.prefix() + fmt.Sprintf("class id %d %s", e.ID, e.Reason)
}

// NewInvalidClassId constructs an InvalidClassId error.
func NewInvalidClassId(loc Loc, id int, reason string) *InvalidClassId {
	return &InvalidClassId{located{loc}, id, reason}
}

// UnresolvedImport reports that the package loader could not locate a
// source file for a dotted package name.
type UnresolvedImport struct {
	located
	Package string
}

func (e *UnresolvedImport) Error() string {
	return e.prefix() + fmt.Sprintf("cannot locate package %q", e.Package)
}

// NewUnresolvedImport constructs an UnresolvedImport error.
func NewUnresolvedImport(loc Loc, pkg string) *UnresolvedImport {
	return &UnresolvedImport{located{loc}, pkg}
}

// UnresolvedType reports that a type name was not found in the package
// registry during resolution.
type UnresolvedType struct {
	located
	Ref string
}

func (e *UnresolvedType) Error() string {
	return e.prefix() + fmt.Sprintf("unresolved type %q", e.Ref)
}

// NewUnresolvedType constructs an UnresolvedType error.
func NewUnresolvedType(loc Loc, ref string) *UnresolvedType {
	return &UnresolvedType{located{loc}, ref}
}

// ArithmeticError reports overflow, division-by-zero, modulo-by-zero,
// or INT64_MIN / -1 from the constant folder.
type ArithmeticError struct {
	located
	Msg string
}

func (e *ArithmeticError) Error() string { return e.prefix() + e.Msg }

// NewArithmeticError constructs an ArithmeticError.
func NewArithmeticError(loc Loc, msg string, args ...interface{}) *ArithmeticError {
	return &ArithmeticError{located{loc}, fmt.Sprintf(msg, args...)}
}

// IllFormedExpression reports mismatched parentheses or a missing
// operand in a constant expression.
type IllFormedExpression struct {
	located
	Msg string
}

func (e *IllFormedExpression) Error() string { return e.prefix() + e.Msg }

// NewIllFormedExpression constructs an IllFormedExpression.
func NewIllFormedExpression(loc Loc, msg string, args ...interface{}) *IllFormedExpression {
	return &IllFormedExpression{located{loc}, fmt.Sprintf(msg, args...)}
}

// AttributeError reports an attribute applied to the wrong declaration
// target or field kind/repeat, a non-repeatable attribute repeated, a
// wrong argument count/type, or a violated per-attribute postcondition.
type AttributeError struct {
	located
	Attr string
	Msg  string
}

func (e *AttributeError) Error() string {
	return e.prefix() + fmt.Sprintf("@%s: %s", e.Attr, e.Msg)
}

// NewAttributeError constructs an AttributeError.
func NewAttributeError(loc Loc, attr, msg string, args ...interface{}) *AttributeError {
	return &AttributeError{located{loc}, attr, fmt.Sprintf(msg, args...)}
}

// InheritanceError reports multiple parents, a missing SNMP root, or a
// parent of the wrong declaration kind.
type InheritanceError struct {
	located
	Msg string
}

func (e *InheritanceError) Error() string { return e.prefix() + e.Msg }

// NewInheritanceError constructs an InheritanceError.
func NewInheritanceError(loc Loc, msg string, args ...interface{}) *InheritanceError {
	return &InheritanceError{located{loc}, fmt.Sprintf(msg, args...)}
}

// ConstraintError reports a violated structural invariant: empty union,
// SNMP table missing an index field, required-void RPC argument,
// repeated void, optional-static field, reference on a non-struct
// field, and so on.
type ConstraintError struct {
	located
	Msg string
}

func (e *ConstraintError) Error() string { return e.prefix() + e.Msg }

// NewConstraintError constructs a ConstraintError.
func NewConstraintError(loc Loc, msg string, args ...interface{}) *ConstraintError {
	return &ConstraintError{located{loc}, fmt.Sprintf(msg, args...)}
}

// DoxygenError reports an unknown or missing \param direction, an
// unknown argument name in an RPC doc comment, a duplicate direction
// argument, or malformed \example JSON.
type DoxygenError struct {
	located
	Msg string
}

func (e *DoxygenError) Error() string { return e.prefix() + e.Msg }

// NewDoxygenError constructs a DoxygenError.
func NewDoxygenError(loc Loc, msg string, args ...interface{}) *DoxygenError {
	return &DoxygenError{located{loc}, fmt.Sprintf(msg, args...)}
}

// SemanticError wraps a List of errors produced by one resolver pass,
// matching spec.md section 4.7 "Failure in either pass is a
// SemanticError with location" -- the location reported is that of the
// first element.
type SemanticError struct {
	Errs List
}

func (e *SemanticError) Error() string {
	if len(e.Errs) == 0 {
		return "semantic error"
	}
	return e.Errs[0].Error()
}

// NewSemanticError wraps errs as a SemanticError. Returns nil if errs
// is empty, so callers can write `if err := NewSemanticError(errs); err != nil`.
func NewSemanticError(errs List) error {
	if len(errs) == 0 {
		return nil
	}
	return &SemanticError{errs}
}
