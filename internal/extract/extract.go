// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns course descriptions into parsed requisite trees.
// A Backend supplies the raw prerequisite and corequisite expressions for a
// description; this package parses them and writes one result file per course.
package extract

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/coursereq/internal/parse"
	"github.com/pdiddy/coursereq/pkg/types"
)

// Backend is the external text-transformation service. Given a course it
// returns the raw boolean expression strings for its requisites. Tests
// supply a fake.
type Backend interface {
	Requisites(ctx context.Context, course types.Course) (types.RawRequisites, error)
}

// ErrNoResponse means the backend has no answer for a course. It is not
// retried.
var ErrNoResponse = errors.New("no response for course")

// BatchSummary holds counts from a batch extraction run.
type BatchSummary struct {
	Extracted int
	Skipped   int
	Malformed int
	Failed    int
}

// Total returns the number of courses processed.
func (s BatchSummary) Total() int {
	return s.Extracted + s.Skipped + s.Malformed + s.Failed
}

// HasFailures reports whether any course could not be processed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// LoadCatalog reads a YAML catalog of course descriptions.
func LoadCatalog(path string) (types.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Catalog{}, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var catalog types.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return types.Catalog{}, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return catalog, nil
}

// ExtractAll processes every course in the catalog at cfg.CatalogPath and
// writes results to cfg.OutDir. Courses whose result is current are skipped
// unless cfg.Force is set. A failing course is reported on w and counted;
// it never stops the batch. Malformed expressions are written with their
// error recorded and counted separately.
func ExtractAll(ctx context.Context, backend Backend, cfg types.ExtractionConfig, w io.Writer) (BatchSummary, error) {
	catalog, err := LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return BatchSummary{}, err
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating output directory: %w", err)
	}

	var summary BatchSummary
	seen := make(map[string]bool, len(catalog.Courses))

	for _, course := range catalog.Courses {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		code := strings.TrimSpace(course.Code)
		switch {
		case code == "":
			fmt.Fprintf(w, "failed  (no code): course has no code\n")
			summary.Failed++
			continue
		case seen[code]:
			fmt.Fprintf(w, "failed  %s: duplicate course code\n", code)
			summary.Failed++
			continue
		}
		seen[code] = true
		course.Code = code

		outPath := filepath.Join(cfg.OutDir, types.CourseFileName(code))

		if !cfg.Force && upToDate(outPath, sourceHash(course.Description)) {
			fmt.Fprintf(w, "skipped %s\n", code)
			summary.Skipped++
			continue
		}

		result, err := ExtractCourse(ctx, backend, course, cfg)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", code, err)
			summary.Failed++
			continue
		}

		if err := writeResult(outPath, result); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", code, err)
			summary.Failed++
			continue
		}

		if result.Malformed() {
			fmt.Fprintf(w, "malformed %s: %s\n", code, fieldErrors(result))
			summary.Malformed++
			continue
		}

		fmt.Fprintf(w, "extracted %s\n", code)
		summary.Extracted++
	}

	fmt.Fprintf(w, "\nextracted: %d, malformed: %d, skipped: %d, failed: %d\n",
		summary.Extracted, summary.Malformed, summary.Skipped, summary.Failed)

	return summary, nil
}

// ExtractCourse asks the backend for one course's raw requisite strings and
// parses both. Parse failures are recorded in the result, not returned;
// the error is for backend failures only.
func ExtractCourse(ctx context.Context, backend Backend, course types.Course, cfg types.ExtractionConfig) (types.CourseRequisites, error) {
	maxRetries := cfg.Service.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	raw, err := callWithRetry(ctx, backend, course, maxRetries)
	if err != nil {
		return types.CourseRequisites{}, err
	}

	prereq := strings.TrimSpace(raw.Prerequisites)
	coreq := strings.TrimSpace(raw.Corequisites)

	p := parse.Parser{MaxDepth: cfg.Parse.MaxDepth}
	parsed := p.ParsePair(prereq, coreq)

	return types.CourseRequisites{
		Course:        course.Code,
		Title:         course.Title,
		SourceHash:    sourceHash(course.Description),
		Prerequisites: toField(prereq, parsed.Prerequisites),
		Corequisites:  toField(coreq, parsed.Corequisites),
	}, nil
}

func toField(raw string, out parse.Outcome) types.RequisiteField {
	f := types.RequisiteField{Raw: raw}
	if out.Err != nil {
		f.Error = out.Err.Error()
		return f
	}
	doc := types.ToDoc(out.Node)
	f.Expr = &doc
	return f
}

func fieldErrors(r types.CourseRequisites) string {
	var parts []string
	if r.Prerequisites.Failed() {
		parts = append(parts, "prerequisites: "+r.Prerequisites.Error)
	}
	if r.Corequisites.Failed() {
		parts = append(parts, "corequisites: "+r.Corequisites.Error)
	}
	return strings.Join(parts, "; ")
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the backend with exponential backoff.
func callWithRetry(ctx context.Context, backend Backend, course types.Course, maxRetries int) (types.RawRequisites, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return types.RawRequisites{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := backend.Requisites(ctx, course)
		if err == nil {
			return raw, nil
		}
		if errors.Is(err, ErrNoResponse) {
			return types.RawRequisites{}, err
		}
		lastErr = err
	}
	return types.RawRequisites{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// sourceHash identifies a description: the first 12 hex characters of its
// SHA-256.
func sourceHash(description string) string {
	sum := sha256.Sum256([]byte(description))
	return fmt.Sprintf("%x", sum)[:12]
}

// upToDate reports whether outPath holds a clean result for the same
// description hash.
func upToDate(outPath, hash string) bool {
	existing, err := ReadResult(outPath)
	if err != nil {
		return false
	}
	return existing.SourceHash == hash && !existing.Malformed()
}

// ReadResult loads a result file written by ExtractAll.
func ReadResult(path string) (types.CourseRequisites, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.CourseRequisites{}, err
	}
	var r types.CourseRequisites
	if err := yaml.Unmarshal(data, &r); err != nil {
		return types.CourseRequisites{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return r, nil
}

// writeResult marshals a result to a YAML file.
func writeResult(path string, result types.CourseRequisites) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
