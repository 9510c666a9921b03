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

// Package dox implements the doxygen chunk pipeline of spec.md
// section 4.4: splitting a raw /** ... */ or /*! ... */ comment block
// into typed chunks, merging adjacent untagged/unknown-keyword chunks,
// and classifying the result into an ast.DoxBlock.
package dox

import (
	"strings"

	"github.com/intersec-oss/iopc/ast"
	"github.com/intersec-oss/iopc/ioperr"
)

// Position says whether a comment block precedes (Front) or follows
// (Back) the declaration it documents.
type Position int

const (
	Front Position = iota
	Back
)

// Chunk is one fragment of a doxygen block: an optional keyword
// (brief/details/warning/example/param/...), for param an optional
// direction and parameter-name list, and the paragraph text collected
// so far.
type Chunk struct {
	Keyword    string
	Direction  ast.DoxDirection
	ParamNames []string
	Paragraphs []string
	Loc        ioperr.Loc
	firstLine  int
	lastLine   int
}

// knownKeywords are the doxygen keywords the pipeline understands by
// name; anything else is an "unknown keyword" per spec.md section 4.4
// and forces a merge into the previous chunk so that in-paragraph
// markup like `\ref foo` is preserved literally.
var knownKeywords = map[string]bool{
	"brief": true, "details": true, "warning": true, "example": true, "param": true,
}

// Split lexes raw (a DoxComment token's full text, markers included)
// into a flat list of unmerged chunks: every line starting with `\` or
// `@` followed by a keyword starts a new chunk; everything else is
// paragraph text appended to the current chunk.
func Split(raw string, loc ioperr.Loc) []*Chunk {
	body := stripMarkers(raw)
	lines := strings.Split(body, "\n")

	var chunks []*Chunk
	cur := &Chunk{Loc: loc, firstLine: loc.LineMin, lastLine: loc.LineMin}
	chunks = append(chunks, cur)

	for i, line := range lines {
		lineNo := loc.LineMin + i
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if kw, rest, ok := parseKeywordLine(trimmed); ok {
			cur = &Chunk{Keyword: kw, Loc: loc, firstLine: lineNo, lastLine: lineNo}
			if kw == "param" {
				dir, names, remainder := parseParamHeader(rest)
				cur.Direction = dir
				cur.ParamNames = names
				rest = remainder
			}
			if rest != "" {
				cur.Paragraphs = append(cur.Paragraphs, rest)
			}
			chunks = append(chunks, cur)
			continue
		}
		if trimmed == "" {
			// Record a paragraph break as a sentinel blank entry
			// (collapsing consecutive blanks) so Classify can split
			// an untagged chunk's first paragraph off as the brief
			// and treat the rest as details, javadoc-autobrief style.
			if n := len(cur.Paragraphs); n > 0 && cur.Paragraphs[n-1] != "" {
				cur.Paragraphs = append(cur.Paragraphs, "")
			}
			cur.lastLine = lineNo
			continue
		}
		cur.Paragraphs = append(cur.Paragraphs, trimmed)
		cur.lastLine = lineNo
	}

	// Drop a synthetic empty leading chunk if nothing was collected
	// into it before the first real one.
	if len(chunks) > 1 && chunks[0].Keyword == "" && len(chunks[0].Paragraphs) == 0 {
		chunks = chunks[1:]
	}
	return chunks
}

func stripMarkers(raw string) string {
	s := strings.TrimPrefix(raw, "/**")
	s = strings.TrimPrefix(s, "/*!")
	s = strings.TrimSuffix(s, "*/")
	return s
}

func parseKeywordLine(line string) (kw, rest string, ok bool) {
	if line == "" {
		return "", "", false
	}
	if line[0] != '\\' && line[0] != '@' {
		return "", "", false
	}
	rest = line[1:]
	i := 0
	for i < len(rest) && (isAlnum(rest[i])) {
		i++
	}
	if i == 0 {
		return "", "", false
	}
	kw = rest[:i]
	rest = strings.TrimSpace(rest[i:])
	return kw, rest, true
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// parseParamHeader reads the direction (in/out/throw) and following
// identifier list off a `\param` chunk's first line, e.g.
// "in foo, bar some text" -> (DoxIn, [foo, bar], "some text").
func parseParamHeader(rest string) (ast.DoxDirection, []string, string) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ast.DoxNone, nil, ""
	}
	var dir ast.DoxDirection
	switch fields[0] {
	case "in":
		dir = ast.DoxIn
	case "out":
		dir = ast.DoxOut
	case "throw":
		dir = ast.DoxThrow
	default:
		return ast.DoxNone, nil, rest
	}
	consumed := len(fields[0])
	if len(fields) < 2 || !isIdentLike(strings.TrimSuffix(fields[1], ",")) {
		return dir, nil, strings.TrimSpace(rest[min(consumed, len(rest)):])
	}

	// A \param directive names one identifier, or several joined by
	// commas (e.g. "in foo, bar text..."); only consecutive
	// comma-terminated tokens continue the name list, so the first
	// following word without a trailing comma ends it.
	var names []string
	i := 1
	for i < len(fields) {
		tok := fields[i]
		trailingComma := strings.HasSuffix(tok, ",")
		name := strings.TrimSuffix(tok, ",")
		if !isIdentLike(name) {
			break
		}
		names = append(names, name)
		consumed += 1 + len(tok)
		i++
		if !trailingComma {
			break
		}
	}
	remainder := strings.TrimSpace(rest[min(consumed, len(rest)):])
	return dir, names, remainder
}

func isIdentLike(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(isAlnum(c) || c == '_') {
			return false
		}
	}
	return s != ""
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Merge applies spec.md section 4.4's merge rules to a freshly Split
// chunk list: untagged chunks within one blank line of the previous
// chunk merge into it, and any chunk with an unknown keyword forces a
// merge so markup sequences are preserved literally.
func Merge(chunks []*Chunk) []*Chunk {
	if len(chunks) == 0 {
		return chunks
	}
	out := []*Chunk{chunks[0]}
	for _, c := range chunks[1:] {
		last := out[len(out)-1]
		forceMerge := c.Keyword != "" && !knownKeywords[c.Keyword]
		plainContinuation := c.Keyword == "" && c.firstLine-last.lastLine <= 2
		if forceMerge || plainContinuation {
			if c.Keyword != "" {
				last.Paragraphs = append(last.Paragraphs, "\\"+c.Keyword)
			}
			last.Paragraphs = append(last.Paragraphs, c.Paragraphs...)
			last.lastLine = c.lastLine
			continue
		}
		out = append(out, c)
	}
	return out
}

// ExampleParser re-parses an \example chunk's content as the JSON
// subset of the IOP grammar and returns its canonical serialization,
// per spec.md section 4.4 and section 9 "Doxygen example re-parsing".
// Implemented by package parser; passed in here to avoid an import
// cycle (parser depends on dox to build comments, not the reverse).
type ExampleParser func(raw string, loc ioperr.Loc) (string, error)

// Classify turns a merged chunk list into an ast.DoxBlock. Untagged
// chunks become `brief` if none exists yet, otherwise they are folded
// into `details`, per spec.md section 4.4 "Routing to AST". Position
// distinguishes front from back comments only for the synthetic-chunk
// reclassification handled by the caller (package parser) before
// Classify is invoked; Classify itself treats both uniformly.
func Classify(chunks []*Chunk, parseExample ExampleParser) (*ast.DoxBlock, error) {
	block := &ast.DoxBlock{}
	for _, c := range chunks {
		text := strings.Join(trimTrailingBlanks(c.Paragraphs), "\n")
		switch c.Keyword {
		case "":
			brief, details := splitBriefFromDetails(c.Paragraphs)
			if block.Brief == "" {
				block.Brief = brief
			} else {
				block.AppendDetails(brief)
			}
			if details != "" {
				block.AppendDetails(details)
			}
		case "brief":
			block.Brief = text
		case "details":
			block.AppendDetails(text)
		case "warning":
			block.Warning = text
		case "example":
			if parseExample == nil {
				block.Example = text
				continue
			}
			canon, err := parseExample(text, c.Loc)
			if err != nil {
				return nil, ioperr.NewDoxygenError(c.Loc, "malformed \\example JSON: %v", err)
			}
			block.Example = canon
		case "param":
			if c.Direction == ast.DoxNone {
				return nil, ioperr.NewDoxygenError(c.Loc, "\\param requires a direction (in, out, throw)")
			}
			block.Params = append(block.Params, &ast.DoxParam{
				Direction: c.Direction,
				Names:     c.ParamNames,
				Text:      text,
			})
		default:
			// Unknown keywords are always force-merged by Merge
			// before reaching here; defensive fallback just in case.
			block.AppendDetails("\\" + c.Keyword + " " + text)
		}
	}
	return block, nil
}

// splitBriefFromDetails implements javadoc-autobrief splitting: the
// paragraph text up to the first blank-line sentinel is the brief, and
// any non-blank paragraphs after it are joined as the details.
func splitBriefFromDetails(paragraphs []string) (brief, details string) {
	blankIdx := -1
	for i, p := range paragraphs {
		if p == "" {
			blankIdx = i
			break
		}
	}
	if blankIdx == -1 {
		return strings.Join(paragraphs, "\n"), ""
	}
	brief = strings.Join(paragraphs[:blankIdx], "\n")
	details = strings.Join(trimTrailingBlanks(paragraphs[blankIdx+1:]), "\n")
	return brief, details
}

// trimTrailingBlanks drops sentinel blank entries left dangling at the
// end of a paragraph list by a trailing blank comment line.
func trimTrailingBlanks(paragraphs []string) []string {
	end := len(paragraphs)
	for end > 0 && paragraphs[end-1] == "" {
		end--
	}
	return paragraphs[:end]
}

// ReclassifyBackAsFront converts a Back-position chunk list that was
// encountered while the parser expected front-comments into a front
// block whose first synthetic chunk is the literal marker "<", per
// spec.md section 4.4 "Back-comments encountered while reading
// front-comments are re-classified as front-comments with a synthetic
// first chunk `<`".
func ReclassifyBackAsFront(chunks []*Chunk, loc ioperr.Loc) []*Chunk {
	synthetic := &Chunk{Paragraphs: []string{"<"}, Loc: loc}
	return append([]*Chunk{synthetic}, chunks...)
}
