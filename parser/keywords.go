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

import (
	"strings"

	"github.com/intersec-oss/iopc/ioperr"
)

// reservedKeywords is the deduplicated union of C, C++, and Java
// keywords, reproduced from original_source/iopc/iopc-parser.c's
// reserved-word table (spec.md section 9 open question: "treat the set
// as deduplicated; preserve the textual content as documented"). A
// field or type name matching one of these is always rejected.
var reservedKeywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true,
	"else": true, "enum": true, "extern": true, "float": true, "for": true,
	"goto": true, "if": true, "int": true, "long": true, "register": true,
	"return": true, "short": true, "signed": true, "sizeof": true,
	"static": true, "struct": true, "switch": true, "typedef": true,
	"union": true, "unsigned": true, "void": true, "volatile": true,
	"while": true,
	// C++ additions.
	"asm": true, "catch": true, "class": true, "const_cast": true,
	"delete": true, "dynamic_cast": true, "explicit": true, "export": true,
	"friend": true, "inline": true, "mutable": true, "namespace": true,
	"new": true, "operator": true, "private": true, "protected": true,
	"public": true, "reinterpret_cast": true, "static_cast": true,
	"template": true, "this": true, "throw": true, "try": true,
	"typeid": true, "typename": true, "using": true, "virtual": true,
	"wchar_t": true,
	// Java additions.
	"abstract": true, "assert": true, "boolean": true, "byte": true,
	"extends": true, "final": true, "finally": true, "implements": true,
	"import": true, "instanceof": true, "interface": true, "native": true,
	"package": true, "strictfp": true, "synchronized": true,
	"throws": true, "transient": true,
}

// avoidKeywords is emitted as a warning, not an error, unless the
// field carries `@nowarn("keyword")`: a small set of identifiers legal
// in IOP but likely to cause friction in generated C/C++/Java code.
var avoidKeywords = map[string]bool{
	"class": true, "new": true, "delete": true, "explicit": true,
}

// checkName validates a field or type identifier per spec.md section
// 4.5 "Reserved-word check": it must be non-empty, contain no
// underscore, and not collide with reservedKeywords.
func checkName(loc ioperr.Loc, name string) error {
	if name == "" {
		return ioperr.NewInvalidIdentifier(loc, name, "name must not be empty")
	}
	if strings.Contains(name, "_") {
		return ioperr.NewInvalidIdentifier(loc, name, "must not contain `_`")
	}
	if reservedKeywords[name] {
		return ioperr.NewInvalidIdentifier(loc, name, "is a reserved keyword")
	}
	return nil
}

// isUpperInitial reports whether s begins with an uppercase ASCII
// letter, the casing spec.md section 3 requires of composite/enum/
// interface/module names.
func isUpperInitial(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

// isLowerInitial reports whether s begins with a lowercase ASCII
// letter, the casing spec.md section 3 requires of field names and
// package-path segments.
func isLowerInitial(s string) bool {
	return s != "" && s[0] >= 'a' && s[0] <= 'z'
}

// isUpperSnake reports whether s is composed only of uppercase
// letters, digits, and underscores, the casing spec.md section 3
// requires of enum-value names.
func isUpperSnake(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}
