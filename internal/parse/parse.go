// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse turns requisite boolean expressions into types.Node trees.
//
// The grammar admits no whitespace beyond the single spaces shown:
//
//	Course  := [A-Z]{2,6} " " [0-9]{4}
//	Expr    := AndExpr | OrExpr | Course
//	AndExpr := "(" Expr (" AND " Expr)+ ")"
//	OrExpr  := "(" Expr (" OR " Expr)+ ")"
//
// Every AND or OR group has its own parentheses and at least two operands,
// so "(CS 2110)" is rejected. A bare top-level list such as
// "CS 2110 AND CS 2800" is accepted by retrying once with outer parentheses.
package parse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/coursereq/pkg/types"
)

// DefaultMaxDepth bounds the number of nested parenthesized groups.
const DefaultMaxDepth = 64

const (
	andSep = " AND "
	orSep  = " OR "
)

// Parser parses requisite expressions. The zero value is ready to use.
type Parser struct {
	// MaxDepth bounds group nesting. Zero or negative uses DefaultMaxDepth.
	MaxDepth int
}

// Parse parses raw with a zero Parser.
func Parse(raw string) (types.Node, error) {
	return Parser{}.Parse(raw)
}

// Parse returns the tree for raw. The empty string yields types.Empty.
// When raw fails to parse as is, it is retried once wrapped in parentheses;
// if that fails too the result is a *MalformedExpressionError.
func (p Parser) Parse(raw string) (types.Node, error) {
	if raw == "" {
		return types.Empty{}, nil
	}

	n, direct := p.parse(raw)
	if direct == nil {
		return n, nil
	}

	n, wrapped := p.parse("(" + raw + ")")
	if wrapped == nil {
		return n, nil
	}
	wrapped.Pos = min(max(wrapped.Pos-1, 0), len(raw))

	return nil, &MalformedExpressionError{Raw: raw, Direct: direct, Wrapped: wrapped}
}

func (p Parser) parse(src string) (types.Node, *SyntaxError) {
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	s := &scanner{src: src, maxDepth: maxDepth}

	n, err := s.expr()
	if err != nil {
		return nil, err
	}
	if s.pos != len(s.src) {
		return nil, s.errorf("unexpected %s after expression", s.found())
	}
	return n, nil
}

// scanner is a recursive-descent parser over one input string.
type scanner struct {
	src      string
	pos      int
	depth    int
	maxDepth int
}

// expr parses Expr. A group is chosen on "(", a course code otherwise.
func (s *scanner) expr() (types.Node, *SyntaxError) {
	if s.pos < len(s.src) && s.src[s.pos] == '(' {
		return s.group()
	}
	return s.course()
}

// group parses AndExpr or OrExpr. Both start with "(" Expr, so the first
// operand is parsed once and the separator that follows picks the operator.
func (s *scanner) group() (types.Node, *SyntaxError) {
	if s.depth >= s.maxDepth {
		err := s.errorf("nesting deeper than %d groups", s.maxDepth)
		err.cause = ErrNestingTooDeep
		return nil, err
	}
	s.depth++
	defer func() { s.depth-- }()

	s.pos++ // "("

	first, err := s.expr()
	if err != nil {
		return nil, err
	}

	var sep string
	switch {
	case s.accept(andSep):
		sep = andSep
	case s.accept(orSep):
		sep = orSep
	case s.at(")"):
		return nil, s.errorf("group needs at least two operands joined by AND or OR")
	default:
		return nil, s.errorf("expected %q or %q, found %s", andSep, orSep, s.found())
	}

	operands := []types.Node{first}
	for {
		op, err := s.expr()
		if err != nil {
			return nil, err
		}
		operands = append(operands, op)
		if !s.accept(sep) {
			break
		}
	}

	if !s.accept(")") {
		if other := otherSep(sep); s.at(other) {
			return nil, s.errorf("cannot mix %q and %q in one group", strings.TrimSpace(sep), strings.TrimSpace(other))
		}
		return nil, s.errorf("expected %q or \")\", found %s", sep, s.found())
	}

	if sep == andSep {
		return types.And{Operands: operands}, nil
	}
	return types.Or{Operands: operands}, nil
}

// course parses Course.
func (s *scanner) course() (types.Node, *SyntaxError) {
	start := s.pos
	i := start
	for i < len(s.src) && i-start < 6 && isUpper(s.src[i]) {
		i++
	}
	if i-start >= 2 && i+5 <= len(s.src) && s.src[i] == ' ' && allDigits(s.src[i+1:i+5]) {
		s.pos = i + 5
		return types.Atom{Code: s.src[start:s.pos]}, nil
	}

	if start < len(s.src) && isAlnum(s.src[start]) {
		err := s.errorf("invalid course code %q", s.token())
		err.cause = ErrInvalidAtom
		return nil, err
	}
	return nil, s.errorf("expected course code or \"(\", found %s", s.found())
}

func (s *scanner) at(lit string) bool {
	return strings.HasPrefix(s.src[s.pos:], lit)
}

func (s *scanner) accept(lit string) bool {
	if !s.at(lit) {
		return false
	}
	s.pos += len(lit)
	return true
}

// token returns the course-like text at pos, up to the next parenthesis
// or operator.
func (s *scanner) token() string {
	rest := s.src[s.pos:]
	if i := strings.IndexAny(rest, "()"); i >= 0 {
		rest = rest[:i]
	}
	for _, sep := range []string{andSep, orSep} {
		if i := strings.Index(rest, sep); i >= 0 {
			rest = rest[:i]
		}
	}
	return rest
}

func (s *scanner) found() string {
	if s.pos >= len(s.src) {
		return "end of input"
	}
	rest := s.src[s.pos:]
	if len(rest) > 16 {
		rest = rest[:16] + "..."
	}
	return fmt.Sprintf("%q", rest)
}

func (s *scanner) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: s.pos, Reason: fmt.Sprintf(format, args...)}
}

func otherSep(sep string) string {
	if sep == andSep {
		return orSep
	}
	return andSep
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool {
	return isUpper(c) || isDigit(c) || (c >= 'a' && c <= 'z')
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// Outcome is the result of parsing one side of a requisite pair.
type Outcome struct {
	Node types.Node
	Err  error
}

// Requisites holds the independently parsed prerequisite and corequisite
// expressions of one course.
type Requisites struct {
	Prerequisites Outcome
	Corequisites  Outcome
}

// Err joins the failures of both sides, or returns nil.
func (r Requisites) Err() error {
	return errors.Join(r.Prerequisites.Err, r.Corequisites.Err)
}

// ParsePair parses both expressions with a zero Parser.
func ParsePair(prereqRaw, coreqRaw string) Requisites {
	return Parser{}.ParsePair(prereqRaw, coreqRaw)
}

// ParsePair parses the prerequisite and corequisite strings. Both are always
// attempted; a failure on one side does not affect the other.
func (p Parser) ParsePair(prereqRaw, coreqRaw string) Requisites {
	var r Requisites
	r.Prerequisites.Node, r.Prerequisites.Err = p.Parse(prereqRaw)
	r.Corequisites.Node, r.Corequisites.Err = p.Parse(coreqRaw)
	return r
}
