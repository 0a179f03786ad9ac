// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/coursereq/pkg/types"
)

// ErrCourseNotFound is returned for a course that has never been ingested.
var ErrCourseNotFound = errors.New("course not found")

// Field is one stored side of a course's requisites. Node is nil when the
// expression was malformed; Error then holds the parse failure.
type Field struct {
	Raw   string
	Node  types.Node
	Error string
}

// CourseRequisites is a course's stored requisites.
type CourseRequisites struct {
	Course        string
	Title         string
	SourceHash    string
	Prerequisites Field
	Corequisites  Field
}

// Requisites returns the stored requisites of code.
func (s *Store) Requisites(ctx context.Context, code string) (CourseRequisites, error) {
	r := CourseRequisites{Course: code}
	var title, hash sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT title, source_hash FROM courses WHERE code = ?`, code,
	).Scan(&title, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return CourseRequisites{}, fmt.Errorf("%w: %s", ErrCourseNotFound, code)
	}
	if err != nil {
		return CourseRequisites{}, fmt.Errorf("querying course %s: %w", code, err)
	}
	r.Title = title.String
	r.SourceHash = hash.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, raw, expr_json, error FROM requisites WHERE course = ?`, code)
	if err != nil {
		return CourseRequisites{}, fmt.Errorf("querying requisites of %s: %w", code, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind     string
			f        Field
			exprJSON sql.NullString
			errText  sql.NullString
		)
		if err := rows.Scan(&kind, &f.Raw, &exprJSON, &errText); err != nil {
			return CourseRequisites{}, fmt.Errorf("scanning requisite: %w", err)
		}
		f.Error = errText.String
		if exprJSON.Valid {
			var doc types.ExprDoc
			if err := json.Unmarshal([]byte(exprJSON.String), &doc); err != nil {
				return CourseRequisites{}, fmt.Errorf("decoding %s tree of %s: %w", kind, code, err)
			}
			n, err := types.FromDoc(doc)
			if err != nil {
				return CourseRequisites{}, fmt.Errorf("%s tree of %s: %w", kind, code, err)
			}
			f.Node = n
		}

		switch types.RequisiteKind(kind) {
		case types.KindPrerequisite:
			r.Prerequisites = f
		case types.KindCorequisite:
			r.Corequisites = f
		}
	}
	if err := rows.Err(); err != nil {
		return CourseRequisites{}, err
	}
	return r, nil
}

// Dependents lists the courses whose requisite expression mentions atom,
// sorted by code. An empty kind matches both prerequisites and corequisites.
func (s *Store) Dependents(ctx context.Context, atom string, kind types.RequisiteKind) ([]string, error) {
	query := `SELECT DISTINCT course FROM requisite_atoms WHERE atom = ?`
	args := []any{atom}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY course`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying dependents of %s: %w", atom, err)
	}
	defer rows.Close()

	var courses []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning dependent: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// FieldCheck is the evaluation of one side of a course's requisites.
type FieldCheck struct {
	Satisfied bool     `json:"satisfied" yaml:"satisfied"`
	Missing   []string `json:"missing,omitempty" yaml:"missing,omitempty"`

	// Error is set when the stored expression is malformed and could not
	// be evaluated.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CheckResult is the evaluation of a course's requisites against a set of
// completed courses.
type CheckResult struct {
	Course        string     `json:"course" yaml:"course"`
	Prerequisites FieldCheck `json:"prerequisites" yaml:"prerequisites"`
	Corequisites  FieldCheck `json:"corequisites" yaml:"corequisites"`
}

// Eligible reports whether both sides are satisfied.
func (c CheckResult) Eligible() bool {
	return c.Prerequisites.Satisfied && c.Corequisites.Satisfied
}

// Check evaluates the stored requisites of code against completed.
func (s *Store) Check(ctx context.Context, code string, completed []string) (CheckResult, error) {
	r, err := s.Requisites(ctx, code)
	if err != nil {
		return CheckResult{}, err
	}

	done := make(map[string]bool, len(completed))
	for _, c := range completed {
		done[strings.TrimSpace(c)] = true
	}

	return CheckResult{
		Course:        code,
		Prerequisites: checkField(r.Prerequisites, done),
		Corequisites:  checkField(r.Corequisites, done),
	}, nil
}

func checkField(f Field, done map[string]bool) FieldCheck {
	if f.Node == nil {
		if f.Error == "" {
			return FieldCheck{Satisfied: true}
		}
		return FieldCheck{Error: f.Error}
	}

	fc := FieldCheck{Satisfied: types.Satisfied(f.Node, func(code string) bool { return done[code] })}
	if !fc.Satisfied {
		listed := make(map[string]bool)
		for _, code := range types.Atoms(f.Node) {
			if !done[code] && !listed[code] {
				listed[code] = true
				fc.Missing = append(fc.Missing, code)
			}
		}
	}
	return fc
}

// Run is one recorded ingest.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Ingested   int
	Updated    int
	Skipped    int
	Failed     int
}

// LastRun returns the most recent ingest run, or false if none exists.
func (s *Store) LastRun(ctx context.Context) (Run, bool, error) {
	var (
		run               Run
		started, finished string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, ingested, updated, skipped, failed
		 FROM ingest_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&run.ID, &started, &finished, &run.Ingested, &run.Updated, &run.Skipped, &run.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("querying last run: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return run, true, nil
}
