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

// Package parser implements the recursive-descent parser of spec.md
// section 4.5: it turns IOP source text into an *ast.Package, invoking
// the attribute registry (package attrreg) to validate annotations as
// they are attached, and package dox to build doxygen comment blocks.
//
// It never imports package loader -- the package loader instead
// implements the PackageResolver interface declared here and is
// injected into the parser, so qualified type references can trigger a
// recursive parse of a dependency file without an import cycle.
package parser

import (
	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/attrreg"
	"github.com/intersec-oss/iopc/dox"
	"github.com/intersec-oss/iopc/internal/trace"
	"github.com/intersec-oss/iopc/iopcfg"
	"github.com/intersec-oss/iopc/ioperr"
	"github.com/intersec-oss/iopc/token"
)

// PackageResolver locates and, if necessary, recursively parses a
// dependency package. Implemented by package loader.
type PackageResolver interface {
	Resolve(path ast.PackagePath, loc ioperr.Loc) (*ast.Package, error)
}

// Parser holds the state of one file's parse: the token buffer, the
// attribute registry, the package being built, the resolver used for
// qualified type references, and the shared enum-identifier table
// (spec.md section 3 "Package registry": the process-wide mapping from
// enum-value identifier to its Enum-value node) used to fold enum
// values referenced from any file of the current compilation, not only
// the enum currently being parsed.
type Parser struct {
	buf      *token.Buffer
	attrs    *attrreg.Registry
	resolver PackageResolver
	cfg      iopcfg.Options
	enums    *EnumTable

	pkg *ast.Package

	// Warnings accumulates non-fatal avoid-keyword diagnostics (spec.md
	// section 4.5 "a second set ... emits a warning unless suppressed").
	Warnings []string
}

// New creates a Parser over src (already wrapped in a token.Buffer),
// ready to parse one file into pkg, which the caller has already
// partially initialized with SourceFile/BaseDir/Main. enums is the
// compilation-wide enum-identifier table (one per loader.Registry,
// shared across every file it parses, including recursively-loaded
// dependencies); a nil enums is accepted for callers that only ever
// parse enum-free input (e.g. isolated unit tests), since every method
// on *EnumTable is nil-safe.
func New(buf *token.Buffer, attrs *attrreg.Registry, resolver PackageResolver, cfg iopcfg.Options, enums *EnumTable) *Parser {
	return &Parser{buf: buf, attrs: attrs, resolver: resolver, cfg: cfg, enums: enums}
}

// ParseFile drives a full file parse: package_stmt then a sequence of
// top_decl, per spec.md section 4.5's grammar skeleton. pkg must carry
// SourceFile, BaseDir and Main already set by the caller (the loader).
func (p *Parser) ParseFile(pkg *ast.Package) (*ast.Package, error) {
	p.pkg = pkg
	pkg.Deps = map[string]bool{}

	defer trace.Scope("parsing file %s", pkg.SourceFile)()

	if err := p.parsePackageStmt(); err != nil {
		return nil, err
	}

	for {
		eof, err := p.buf.Check(token.EOF)
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}
		if err := p.parseTopDecl(); err != nil {
			return nil, err
		}
	}

	return pkg, nil
}

// parsePackageStmt parses `"package" dotted_ident ";"`.
func (p *Parser) parsePackageStmt() error {
	if _, err := p.buf.EatKeyword("package"); err != nil {
		return err
	}
	path, loc, err := p.parseDottedLowerPath()
	if err != nil {
		return err
	}
	p.pkg.Path = path
	p.pkg.Loc = loc
	_, err = p.buf.WantPunct(";")
	return err
}

// parseDottedLowerPath parses a dot-joined sequence of lowercase
// identifiers, e.g. "intersec.snmp.core".
func (p *Parser) parseDottedLowerPath() (ast.PackagePath, ioperr.Loc, error) {
	first, err := p.buf.Want(token.Ident)
	if err != nil {
		return nil, ioperr.Loc{}, err
	}
	if !isLowerInitial(first.Lexeme) {
		return nil, ioperr.Loc{}, ioperr.NewInvalidIdentifier(first.Loc, first.Lexeme, "package path segments must start lowercase")
	}
	path := ast.PackagePath{first.Lexeme}
	loc := first.Loc
	for {
		isDot, err := p.buf.CheckPunct(".")
		if err != nil {
			return nil, ioperr.Loc{}, err
		}
		if !isDot {
			break
		}
		// Only consume the '.' if it is followed by another lowercase
		// segment, not the UPPER_IDENT of a qualified type reference.
		next, err := p.buf.Peek(1)
		if err != nil {
			return nil, ioperr.Loc{}, err
		}
		if next.Kind != token.Ident || !isLowerInitial(next.Lexeme) {
			break
		}
		p.buf.Drop(1) // '.'
		seg, err := p.buf.Want(token.Ident)
		if err != nil {
			return nil, ioperr.Loc{}, err
		}
		path = append(path, seg.Lexeme)
	}
	return path, loc, nil
}

// pendingDoc accumulates attributes and doxygen chunks read ahead of a
// declaration, top-level or nested.
type pendingDoc struct {
	attrs  []*ast.Attribute
	chunks []*dox.Chunk
}

// readLeading collects any run of doxygen comments and `@attr(...)`
// applications immediately preceding a declaration.
func (p *Parser) readLeading() (*pendingDoc, error) {
	pd := &pendingDoc{}
	for {
		isDox, err := p.buf.Check(token.DoxComment)
		if err != nil {
			return nil, err
		}
		if isDox {
			t, _ := p.buf.Eat()
			pd.chunks = append(pd.chunks, dox.Split(t.Lexeme, t.Loc)...)
			continue
		}
		isAttr, err := p.buf.Check(token.AttrStart)
		if err != nil {
			return nil, err
		}
		if isAttr {
			attr, err := p.parseAttribute()
			if err != nil {
				return nil, err
			}
			pd.attrs = append(pd.attrs, attr)
			continue
		}
		break
	}
	return pd, nil
}

// readTrailing collects a single back-comment immediately following a
// declaration/field, reclassifying it as front via package dox (spec.md
// section 4.4 "Back-comments encountered while reading front-comments").
func (p *Parser) readTrailing(pd *pendingDoc) error {
	isDox, err := p.buf.Check(token.DoxComment)
	if err != nil {
		return err
	}
	if !isDox {
		return nil
	}
	t, _ := p.buf.Eat()
	back := dox.Split(t.Lexeme, t.Loc)
	pd.chunks = append(pd.chunks, dox.ReclassifyBackAsFront(back, t.Loc)...)
	return nil
}

// classify merges and classifies pd's chunks into an ast.DoxBlock,
// wiring p.parseExampleJSON in as the \example re-parser.
func (p *Parser) classify(pd *pendingDoc) (*ast.DoxBlock, error) {
	if len(pd.chunks) == 0 {
		return nil, nil
	}
	return dox.Classify(dox.Merge(pd.chunks), p.parseExampleJSON)
}

// parseExampleJSON re-invokes the parser, in JSON-object mode, on an
// \example chunk's content, per spec.md section 4.4 and section 9
// "Doxygen example re-parsing": a fresh lexer/buffer over the chunk's
// text, restricted to the JSON-object subset of constant-value syntax.
func (p *Parser) parseExampleJSON(raw string, loc ioperr.Loc) (string, error) {
	lex := token.New(loc.File, []byte(raw))
	buf := token.NewBuffer(lex)
	jp := &jsonParser{buf: buf}
	v, err := jp.parseValue()
	if err != nil {
		return "", err
	}
	return v, nil
}
