// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"errors"
	"fmt"
)

// Sentinel errors for requisite expression parsing.
var (
	ErrMalformedExpression = errors.New("malformed requisite expression")
	ErrInvalidAtom         = errors.New("invalid course code")
	ErrNestingTooDeep      = errors.New("expression nested too deeply")
)

// SyntaxError describes where a single parse attempt stopped.
type SyntaxError struct {
	// Pos is the byte offset into the raw input.
	Pos int

	// Reason says what the parser expected or rejected.
	Reason string

	cause error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Pos, e.Reason)
}

func (e *SyntaxError) Unwrap() error {
	return e.cause
}

// MalformedExpressionError is returned when raw does not match the grammar,
// either as given or wrapped in one pair of parentheses.
type MalformedExpressionError struct {
	// Raw is the input exactly as passed to Parse.
	Raw string

	// Direct is the failure of the attempt on Raw itself.
	Direct *SyntaxError

	// Wrapped is the failure of the retry on "(" + Raw + ")". Its Pos is
	// mapped back onto Raw.
	Wrapped *SyntaxError
}

func (e *MalformedExpressionError) Error() string {
	return fmt.Sprintf("%v %q: %v", ErrMalformedExpression, e.Raw, e.Direct)
}

// Pos is the offset at which the direct attempt failed.
func (e *MalformedExpressionError) Pos() int {
	return e.Direct.Pos
}

// Reason is why the direct attempt failed.
func (e *MalformedExpressionError) Reason() string {
	return e.Direct.Reason
}

func (e *MalformedExpressionError) Unwrap() []error {
	errs := []error{ErrMalformedExpression}
	if e.Direct != nil {
		errs = append(errs, e.Direct)
	}
	if e.Wrapped != nil {
		errs = append(errs, e.Wrapped)
	}
	return errs
}
