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

// Package trace provides indentation-aware verbose tracing shared by
// the lexer, parser, loader and resolver. It is a thin wrapper around
// glog.V so that tracing is free when disabled and never competes with
// the caller-facing diagnostics of spec.md section 6, which are always
// explicit return values or log-buffer appends rather than stdout/stderr
// writes.
package trace

import (
	"strings"

	"github.com/golang/glog"
)

// Level is the glog verbosity level at which compiler tracing is
// emitted. Pass -v=2 (or above) to a binary linking this package to
// see it.
const Level = glog.Level(2)

var indent string

// Printf logs a verbose, indentation-prefixed trace line. It costs
// nothing when V(Level) is disabled, since glog.V returns a Verbose
// value whose Infof short-circuits internally.
func Printf(format string, args ...interface{}) {
	glog.V(Level).Infof(indent+format, args...)
}

// Push increases the indentation level, used when entering a nested
// parse/resolve scope (e.g. a field list, an attribute argument list).
func Push() {
	indent += "  "
}

// Pop decreases the indentation level.
func Pop() {
	indent = strings.TrimPrefix(indent, "  ")
}

// Scope calls Push, returns a function that calls Pop, for use as:
//
//	defer trace.Scope("parsing struct %s", name)()
func Scope(format string, args ...interface{}) func() {
	Printf(format, args...)
	Push()
	return Pop
}
