// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Course is one catalog entry with its free-text description.
type Course struct {
	// Code is the course identifier, e.g. "CS 3110".
	Code string `json:"code" yaml:"code"`

	// Title is the human-readable course name.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Description is the catalog text that mentions requisites.
	Description string `json:"description" yaml:"description"`
}

// Catalog is the input file for a batch extraction run.
type Catalog struct {
	Courses []Course `json:"courses" yaml:"courses"`
}

// RawRequisites is what the external text-transformation service returns for
// one course description: two unparsed boolean expression strings.
type RawRequisites struct {
	Prerequisites string `json:"prerequisites" yaml:"prerequisites"`
	Corequisites  string `json:"corequisites" yaml:"corequisites"`
}

// RequisiteKind distinguishes prerequisites from corequisites.
type RequisiteKind string

const (
	KindPrerequisite RequisiteKind = "prerequisite"
	KindCorequisite  RequisiteKind = "corequisite"
)

// RequisiteField is one parsed side of a course's requisites. Exactly one of
// Expr and Error is set.
type RequisiteField struct {
	// Raw is the expression string as received, after trimming.
	Raw string `json:"raw" yaml:"raw"`

	// Expr is the parsed tree.
	Expr *ExprDoc `json:"expr,omitempty" yaml:"expr,omitempty"`

	// Error is the parse failure message when Raw is malformed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the field could not be parsed.
func (f RequisiteField) Failed() bool {
	return f.Error != ""
}

// CourseRequisites is the result file written for one course.
type CourseRequisites struct {
	Course string `json:"course" yaml:"course"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`

	// SourceHash identifies the description the result was computed from.
	SourceHash string `json:"source_hash" yaml:"source_hash"`

	Prerequisites RequisiteField `json:"prerequisites" yaml:"prerequisites"`
	Corequisites  RequisiteField `json:"corequisites" yaml:"corequisites"`
}

// Malformed reports whether either side failed to parse.
func (r CourseRequisites) Malformed() bool {
	return r.Prerequisites.Failed() || r.Corequisites.Failed()
}

// Field returns the side of r selected by kind.
func (r CourseRequisites) Field(kind RequisiteKind) RequisiteField {
	if kind == KindCorequisite {
		return r.Corequisites
	}
	return r.Prerequisites
}

// CourseFileName maps a course code to its result file name,
// e.g. "CS 3110" becomes "CS_3110.yaml".
func CourseFileName(code string) string {
	return strings.ReplaceAll(code, " ", "_") + ".yaml"
}
