// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/coursereq/pkg/types"
)

// Result converts a stored field back to its result-file form.
func (f Field) Result() types.RequisiteField {
	out := types.RequisiteField{Raw: f.Raw, Error: f.Error}
	if f.Node != nil {
		doc := types.ToDoc(f.Node)
		out.Expr = &doc
	}
	return out
}

// Result converts stored requisites back to their result-file form.
func (r CourseRequisites) Result() types.CourseRequisites {
	return types.CourseRequisites{
		Course:        r.Course,
		Title:         r.Title,
		SourceHash:    r.SourceHash,
		Prerequisites: r.Prerequisites.Result(),
		Corequisites:  r.Corequisites.Result(),
	}
}

// Courses lists every stored course code, sorted.
func (s *Store) Courses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code FROM courses ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ExportYAML writes every stored course to <dir>/export.yaml and returns
// the path.
func (s *Store) ExportYAML(ctx context.Context) (string, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return s.writeExport("export.yaml", data)
}

// ExportJSON writes every stored course to <dir>/export.json and returns
// the path.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return s.writeExport("export.json", data)
}

func (s *Store) exportEntries(ctx context.Context) ([]types.CourseRequisites, error) {
	codes, err := s.Courses(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	entries := make([]types.CourseRequisites, 0, len(codes))
	for _, code := range codes {
		r, err := s.Requisites(ctx, code)
		if err != nil {
			return nil, err
		}
		entries = append(entries, r.Result())
	}
	return entries, nil
}

func (s *Store) writeExport(name string, data []byte) (string, error) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
