// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"regexp"
	"strings"
)

// Node is a requisite expression tree. The set of implementations is closed:
// Atom, And, Or and Empty. Consumers switch over all four.
type Node interface {
	// String renders the node in canonical, fully parenthesized form.
	String() string

	node()
}

// Atom is a leaf naming a single course, e.g. "CS 2110".
type Atom struct {
	Code string
}

// And requires every operand. It always has at least two operands.
type And struct {
	Operands []Node
}

// Or requires any one operand. It always has at least two operands.
type Or struct {
	Operands []Node
}

// Empty means no requirement. It is produced only for an empty input string.
type Empty struct{}

func (Atom) node()  {}
func (And) node()   {}
func (Or) node()    {}
func (Empty) node() {}

func (a Atom) String() string { return a.Code }
func (a And) String() string  { return joinOperands(a.Operands, " AND ") }
func (o Or) String() string   { return joinOperands(o.Operands, " OR ") }
func (Empty) String() string  { return "" }

func joinOperands(operands []Node, sep string) string {
	parts := make([]string, len(operands))
	for i, op := range operands {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

var courseCodeRe = regexp.MustCompile(`^[A-Z]{2,6} [0-9]{4}$`)

// IsCourseCode reports whether s is a well-formed course identifier:
// two to six uppercase letters, one space, four digits.
func IsCourseCode(s string) bool {
	return courseCodeRe.MatchString(s)
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case Atom:
		y, ok := b.(Atom)
		return ok && x.Code == y.Code
	case And:
		y, ok := b.(And)
		return ok && equalOperands(x.Operands, y.Operands)
	case Or:
		y, ok := b.(Or)
		return ok && equalOperands(x.Operands, y.Operands)
	case Empty:
		_, ok := b.(Empty)
		return ok
	default:
		panic(fmt.Sprintf("types: unknown node %T", a))
	}
}

func equalOperands(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Atoms returns the course codes referenced by n in order of appearance.
// Repeated codes are kept.
func Atoms(n Node) []string {
	var codes []string
	var walk func(Node)
	walk = func(n Node) {
		switch x := n.(type) {
		case Atom:
			codes = append(codes, x.Code)
		case And:
			for _, op := range x.Operands {
				walk(op)
			}
		case Or:
			for _, op := range x.Operands {
				walk(op)
			}
		case Empty:
		default:
			panic(fmt.Sprintf("types: unknown node %T", n))
		}
	}
	walk(n)
	return codes
}

// Depth returns the nesting depth of n. Empty has depth 0 and an Atom depth 1.
func Depth(n Node) int {
	switch x := n.(type) {
	case Atom:
		return 1
	case And:
		return 1 + maxDepth(x.Operands)
	case Or:
		return 1 + maxDepth(x.Operands)
	case Empty:
		return 0
	default:
		panic(fmt.Sprintf("types: unknown node %T", n))
	}
}

func maxDepth(operands []Node) int {
	d := 0
	for _, op := range operands {
		d = max(d, Depth(op))
	}
	return d
}

// Satisfied evaluates n against a set of completed courses. done reports
// whether a course code has been completed. Empty is always satisfied.
func Satisfied(n Node, done func(code string) bool) bool {
	switch x := n.(type) {
	case Atom:
		return done(x.Code)
	case And:
		for _, op := range x.Operands {
			if !Satisfied(op, done) {
				return false
			}
		}
		return true
	case Or:
		for _, op := range x.Operands {
			if Satisfied(op, done) {
				return true
			}
		}
		return false
	case Empty:
		return true
	default:
		panic(fmt.Sprintf("types: unknown node %T", n))
	}
}

// ExprKind tags an ExprDoc.
type ExprKind string

const (
	ExprAtom  ExprKind = "ATOM"
	ExprAnd   ExprKind = "AND"
	ExprOr    ExprKind = "OR"
	ExprEmpty ExprKind = "EMPTY"
)

// ExprDoc is the serialized form of a Node used in YAML and JSON files
// and in the store. Atoms carry Code; AND and OR carry Exprs.
type ExprDoc struct {
	Type  ExprKind  `json:"type" yaml:"type"`
	Code  string    `json:"code,omitempty" yaml:"code,omitempty"`
	Exprs []ExprDoc `json:"exprs,omitempty" yaml:"exprs,omitempty"`
}

// ToDoc converts a Node to its document form.
func ToDoc(n Node) ExprDoc {
	switch x := n.(type) {
	case Atom:
		return ExprDoc{Type: ExprAtom, Code: x.Code}
	case And:
		return ExprDoc{Type: ExprAnd, Exprs: toDocs(x.Operands)}
	case Or:
		return ExprDoc{Type: ExprOr, Exprs: toDocs(x.Operands)}
	case Empty:
		return ExprDoc{Type: ExprEmpty}
	default:
		panic(fmt.Sprintf("types: unknown node %T", n))
	}
}

func toDocs(operands []Node) []ExprDoc {
	docs := make([]ExprDoc, len(operands))
	for i, op := range operands {
		docs[i] = ToDoc(op)
	}
	return docs
}

// FromDoc converts a document back to a Node, checking the tree invariants:
// AND and OR need at least two operands, atoms must be valid course codes,
// and EMPTY may only appear at the root.
func FromDoc(d ExprDoc) (Node, error) {
	if d.Type == ExprEmpty {
		if d.Code != "" || len(d.Exprs) > 0 {
			return nil, fmt.Errorf("EMPTY node must not carry code or operands")
		}
		return Empty{}, nil
	}
	return fromDoc(d)
}

func fromDoc(d ExprDoc) (Node, error) {
	switch d.Type {
	case ExprAtom:
		if !IsCourseCode(d.Code) {
			return nil, fmt.Errorf("invalid course code %q", d.Code)
		}
		if len(d.Exprs) > 0 {
			return nil, fmt.Errorf("ATOM %s must not carry operands", d.Code)
		}
		return Atom{Code: d.Code}, nil
	case ExprAnd, ExprOr:
		if len(d.Exprs) < 2 {
			return nil, fmt.Errorf("%s node has %d operand(s), need at least 2", d.Type, len(d.Exprs))
		}
		operands := make([]Node, len(d.Exprs))
		for i, sub := range d.Exprs {
			op, err := fromDoc(sub)
			if err != nil {
				return nil, fmt.Errorf("%s operand %d: %w", d.Type, i, err)
			}
			operands[i] = op
		}
		if d.Type == ExprAnd {
			return And{Operands: operands}, nil
		}
		return Or{Operands: operands}, nil
	case ExprEmpty:
		return nil, fmt.Errorf("EMPTY node is only allowed at the root")
	default:
		return nil, fmt.Errorf("unknown node type %q", d.Type)
	}
}
