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

// Package fold implements the streaming constant-expression evaluator
// of spec.md section 4.2: the parser feeds it numbers and operators as
// it consumes the token window for a field default value or enum
// value, then asks it for the result.
package fold

import (
	"math"

	"github.com/intersec-oss/iopc/ioperr"
)

// operand is a 64-bit integer tagged with the signedness it was fed
// or computed with.
type operand struct {
	v      int64
	signed bool
}

// opEntry is one entry on the operator stack: either a real operator
// or a '(' marker.
type opEntry struct {
	op    string
	unary bool
}

// Folder is a streaming, precedence-climbing expression evaluator
// over 64-bit integers. One Folder instance handles one expression at
// a time; GetResult reinitializes it for the next (spec.md section
// 4.2 "Reset").
type Folder struct {
	operands []operand
	ops      []opEntry
	loc      ioperr.Loc

	// expectOperand is true when the next token fed must be a number,
	// an opening paren, or a unary -/~.
	expectOperand bool
}

// New creates an empty Folder.
func New() *Folder {
	f := &Folder{}
	f.reset()
	return f
}

func (f *Folder) reset() {
	f.operands = f.operands[:0]
	f.ops = f.ops[:0]
	f.expectOperand = true
}

// SetLoc attaches the location used for any error produced by the next
// Feed* call; the parser updates it as it advances through the token
// window.
func (f *Folder) SetLoc(loc ioperr.Loc) { f.loc = loc }

// FeedNumber feeds one integer operand into the expression, such as a
// field's integer token or an already-resolved enum value's signed
// integer (spec.md section 4.2: "Enum-value identifiers fed as
// numbers use the enum value's signed integer").
func (f *Folder) FeedNumber(v int64, signed bool) error {
	if !f.expectOperand {
		return ioperr.NewIllFormedExpression(f.loc, "unexpected operand, expected an operator")
	}
	f.operands = append(f.operands, operand{v, signed})
	f.expectOperand = false
	return nil
}

// precedence returns the binding power of a binary operator; higher
// binds tighter. Per spec.md section 4.2, exponentiation binds
// tightest (and is right-associative), then multiplicative, then
// additive, then shifts, then bitwise and/xor/or.
func precedence(op string) int {
	switch op {
	case "**":
		return 6
	case "*", "/", "%":
		return 5
	case "+", "-":
		return 4
	case "<<", ">>":
		return 3
	case "&":
		return 2
	case "^":
		return 1
	case "|":
		return 0
	}
	return -1
}

func rightAssoc(op string) bool { return op == "**" }

// FeedOperator feeds one operator or parenthesis token: one of
// + - * / % & | ^ ~ ( ) << >> **.
func (f *Folder) FeedOperator(op string) error {
	switch op {
	case "(":
		if !f.expectOperand {
			return ioperr.NewIllFormedExpression(f.loc, "unexpected `(`")
		}
		f.ops = append(f.ops, opEntry{op: "("})
		return nil
	case ")":
		for {
			if len(f.ops) == 0 {
				return ioperr.NewIllFormedExpression(f.loc, "mismatched parentheses")
			}
			top := f.ops[len(f.ops)-1]
			f.ops = f.ops[:len(f.ops)-1]
			if top.op == "(" {
				break
			}
			if err := f.apply(top); err != nil {
				return err
			}
		}
		f.expectOperand = false
		return nil
	case "-", "~":
		if f.expectOperand {
			// Unary minus / bitwise-not: binds tighter than any
			// binary operator and stays right-associative by
			// virtue of always being popped before a following
			// binary op of any precedence (handled in apply via a
			// synthetic high precedence).
			f.ops = append(f.ops, opEntry{op: op, unary: true})
			return nil
		}
		fallthrough
	default:
		if f.expectOperand {
			return ioperr.NewIllFormedExpression(f.loc, "missing operand before `%s`", op)
		}
		if precedence(op) < 0 {
			return ioperr.NewIllFormedExpression(f.loc, "unknown operator `%s`", op)
		}
		for len(f.ops) > 0 {
			top := f.ops[len(f.ops)-1]
			if top.op == "(" {
				break
			}
			topPrec := unaryPrecedence(top)
			if topPrec > precedence(op) || (topPrec == precedence(op) && !rightAssoc(op)) {
				f.ops = f.ops[:len(f.ops)-1]
				if err := f.apply(top); err != nil {
					return err
				}
				continue
			}
			break
		}
		f.ops = append(f.ops, opEntry{op: op})
		f.expectOperand = true
		return nil
	}
}

func unaryPrecedence(e opEntry) int {
	if e.unary {
		return 100
	}
	return precedence(e.op)
}

// apply pops the operand(s) an entry needs, computes the result, and
// pushes it back.
func (f *Folder) apply(e opEntry) error {
	if e.unary {
		if len(f.operands) < 1 {
			return ioperr.NewIllFormedExpression(f.loc, "missing operand for unary `%s`", e.op)
		}
		a := f.operands[len(f.operands)-1]
		f.operands = f.operands[:len(f.operands)-1]
		var r operand
		switch e.op {
		case "-":
			if a.v == math.MinInt64 {
				return ioperr.NewArithmeticError(f.loc, "overflow negating INT64_MIN")
			}
			r = operand{-a.v, true}
		case "~":
			r = operand{^a.v, a.signed}
		}
		f.operands = append(f.operands, r)
		return nil
	}

	if len(f.operands) < 2 {
		return ioperr.NewIllFormedExpression(f.loc, "missing operand for `%s`", e.op)
	}
	b := f.operands[len(f.operands)-1]
	a := f.operands[len(f.operands)-2]
	f.operands = f.operands[:len(f.operands)-2]

	r, err := evalBinary(e.op, a, b, f.loc)
	if err != nil {
		return err
	}
	f.operands = append(f.operands, r)
	return nil
}

// evalBinary computes a `op` b in 64-bit, detecting the overflow and
// division conditions spec.md section 4.2 names explicitly.
func evalBinary(op string, a, b operand, loc ioperr.Loc) (operand, error) {
	// Signedness is the disjunction of operand signednesses (spec.md
	// section 4.2): either operand signed makes the result signed.
	signed := a.signed || b.signed

	switch op {
	case "+":
		return operand{a.v + b.v, signed}, nil
	case "-":
		return operand{a.v - b.v, signed}, nil
	case "*":
		return operand{a.v * b.v, signed}, nil
	case "/":
		if b.v == 0 {
			return operand{}, ioperr.NewArithmeticError(loc, "division by zero")
		}
		if a.v == math.MinInt64 && b.v == -1 {
			return operand{}, ioperr.NewArithmeticError(loc, "INT64_MIN / -1 overflows")
		}
		return operand{a.v / b.v, signed}, nil
	case "%":
		if b.v == 0 {
			return operand{}, ioperr.NewArithmeticError(loc, "modulo by zero")
		}
		if a.v == math.MinInt64 && b.v == -1 {
			return operand{0, signed}, nil
		}
		return operand{a.v % b.v, signed}, nil
	case "&":
		return operand{a.v & b.v, signed}, nil
	case "|":
		return operand{a.v | b.v, signed}, nil
	case "^":
		return operand{a.v ^ b.v, signed}, nil
	case "<<":
		if b.v < 0 || b.v >= 64 {
			return operand{}, ioperr.NewArithmeticError(loc, "shift amount %d out of range", b.v)
		}
		return operand{a.v << uint(b.v), signed}, nil
	case ">>":
		if b.v < 0 || b.v >= 64 {
			return operand{}, ioperr.NewArithmeticError(loc, "shift amount %d out of range", b.v)
		}
		return operand{a.v >> uint(b.v), signed}, nil
	case "**":
		return evalPow(a, b, loc)
	default:
		return operand{}, ioperr.NewIllFormedExpression(loc, "unknown operator `%s`", op)
	}
}

// evalPow computes a**b. (-1)**N yields +-1 without overflow, per
// spec.md section 4.2, handled as a special case below rather than by
// the general overflow-checked multiplication loop.
func evalPow(a, b operand, loc ioperr.Loc) (operand, error) {
	if b.v < 0 {
		return operand{}, ioperr.NewArithmeticError(loc, "negative exponent %d", b.v)
	}
	if a.v == -1 {
		if b.v%2 == 0 {
			return operand{1, true}, nil
		}
		return operand{-1, true}, nil
	}
	if a.v == 0 {
		if b.v == 0 {
			return operand{1, a.signed || b.signed}, nil
		}
		return operand{0, a.signed || b.signed}, nil
	}
	if a.v == 1 {
		return operand{1, a.signed || b.signed}, nil
	}

	result := int64(1)
	for i := int64(0); i < b.v; i++ {
		next := result * a.v
		if a.v != 0 && next/a.v != result {
			return operand{}, ioperr.NewArithmeticError(loc, "exponentiation overflow")
		}
		result = next
	}
	return operand{result, a.signed || b.signed}, nil
}

// GetResult returns the folded value and whether it is signed, then
// resets the Folder for the next expression.
func (f *Folder) GetResult() (int64, bool, error) {
	for len(f.ops) > 0 {
		top := f.ops[len(f.ops)-1]
		f.ops = f.ops[:len(f.ops)-1]
		if top.op == "(" {
			f.reset()
			return 0, false, ioperr.NewIllFormedExpression(f.loc, "mismatched parentheses")
		}
		if err := f.apply(top); err != nil {
			f.reset()
			return 0, false, err
		}
	}
	if len(f.operands) != 1 {
		f.reset()
		return 0, false, ioperr.NewIllFormedExpression(f.loc, "incomplete expression")
	}
	r := f.operands[0]
	f.reset()
	return r.v, r.signed, nil
}
