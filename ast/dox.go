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

package ast

// DoxDirection is the direction of a \param entry inside an RPC doc
// comment (spec.md section 3 "Doxygen comment block").
type DoxDirection int

const (
	DoxNone DoxDirection = iota
	DoxIn
	DoxOut
	DoxThrow
)

func (d DoxDirection) String() string {
	switch d {
	case DoxIn:
		return "in"
	case DoxOut:
		return "out"
	case DoxThrow:
		return "throw"
	default:
		return ""
	}
}

// DoxBlock is the ordered list of typed entries attached to one AST
// node, built by package dox and routed here by the parser/resolver.
type DoxBlock struct {
	Brief   string
	Details string
	Warning string
	Example string // re-serialized canonical JSON, once re-parsed

	Params []*DoxParam
}

// DoxParam is one \param entry: a direction plus the paragraph text
// that the resolver appends to each named field's Details.
type DoxParam struct {
	Direction DoxDirection
	Names     []string
	Text      string
}

// AppendDetails appends text to b's Details, separated by a blank line
// if Details is already non-empty -- this is how multiple \param
// entries naming the same field, or repeated untagged chunks, merge
// (spec.md section 4.4 "Merge rules").
func (b *DoxBlock) AppendDetails(text string) {
	if text == "" {
		return
	}
	if b.Details != "" {
		b.Details += "\n\n"
	}
	b.Details += text
}
