// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/coursereq/internal/parse"
	"github.com/pdiddy/coursereq/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(types.StoreConfig{Dir: filepath.Join(dir, "index")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	results := filepath.Join(dir, "requisites")
	require.NoError(t, os.MkdirAll(results, 0o755))
	return s, results
}

func field(t *testing.T, raw string) types.RequisiteField {
	t.Helper()
	f := types.RequisiteField{Raw: raw}
	n, err := parse.Parse(raw)
	if err != nil {
		f.Error = err.Error()
		return f
	}
	doc := types.ToDoc(n)
	f.Expr = &doc
	return f
}

func writeResult(t *testing.T, dir, course, prereq, coreq string) string {
	t.Helper()
	r := types.CourseRequisites{
		Course:        course,
		SourceHash:    "abc123def456",
		Prerequisites: field(t, prereq),
		Corequisites:  field(t, coreq),
	}
	data, err := yaml.Marshal(r)
	require.NoError(t, err)
	path := filepath.Join(dir, types.CourseFileName(course))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func ingest(t *testing.T, s *Store, dir string) IngestSummary {
	t.Helper()
	var out bytes.Buffer
	summary, err := s.Ingest(context.Background(), dir, &out)
	require.NoError(t, err, out.String())
	return summary
}

// --- Ingest ---

func TestIngest(t *testing.T) {
	s, dir := testStore(t)
	writeResult(t, dir, "CS 3110", "(CS 2110 OR CS 2112)", "CS 2800")
	writeResult(t, dir, "CS 4820", "(CS 3110 AND CS 2800)", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	summary := ingest(t, s, dir)
	assert.Equal(t, 2, summary.Ingested)
	assert.Equal(t, 2, summary.Total())
	assert.NotEmpty(t, summary.RunID)

	run, ok, err := s.LastRun(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary.RunID, run.ID)
	assert.Equal(t, 2, run.Ingested)
	assert.False(t, run.StartedAt.IsZero())
}

func TestIngest_IncrementalUpdate(t *testing.T) {
	s, dir := testStore(t)
	path := writeResult(t, dir, "CS 3110", "CS 2110", "")

	assert.Equal(t, 1, ingest(t, s, dir).Ingested)
	assert.Equal(t, 1, ingest(t, s, dir).Skipped)

	writeResult(t, dir, "CS 3110", "(CS 2110 AND CS 2800)", "")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	summary := ingest(t, s, dir)
	assert.Equal(t, 1, summary.Updated)

	r, err := s.Requisites(context.Background(), "CS 3110")
	require.NoError(t, err)
	assert.Equal(t, "(CS 2110 AND CS 2800)", r.Prerequisites.Node.String())

	deps, err := s.Dependents(context.Background(), "CS 2800", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"CS 3110"}, deps)
}

func TestIngest_IsolatesBadFiles(t *testing.T) {
	s, dir := testStore(t)
	writeResult(t, dir, "CS 3110", "CS 2110", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("course: [unclosed"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nocode.yaml"), []byte("source_hash: x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unary.yaml"), []byte(`course: CS 9999
prerequisites:
  raw: "(CS 2110)"
  expr:
    type: AND
    exprs:
      - type: ATOM
        code: CS 2110
`), 0o644))

	var out bytes.Buffer
	summary, err := s.Ingest(context.Background(), dir, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Ingested)
	assert.Equal(t, 3, summary.Failed)
	assert.Contains(t, out.String(), "failed  unary.yaml")

	_, err = s.Requisites(context.Background(), "CS 9999")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestIngest_MissingDirectory(t *testing.T) {
	s, dir := testStore(t)
	_, err := s.Ingest(context.Background(), filepath.Join(dir, "nope"), &bytes.Buffer{})
	assert.Error(t, err)
}

// --- queries ---

func TestRequisites(t *testing.T) {
	s, dir := testStore(t)
	writeResult(t, dir, "CS 3110", "((CS 2110 OR CS 2112) AND CS 2800)", "")
	writeResult(t, dir, "FDSC 4000", "CHEM 1560 AND OR", "FDSC 4170")
	ingest(t, s, dir)

	r, err := s.Requisites(context.Background(), "CS 3110")
	require.NoError(t, err)
	assert.Equal(t, "abc123def456", r.SourceHash)
	want, err := parse.Parse("((CS 2110 OR CS 2112) AND CS 2800)")
	require.NoError(t, err)
	assert.True(t, types.Equal(want, r.Prerequisites.Node))
	assert.Equal(t, types.Empty{}, r.Corequisites.Node)

	bad, err := s.Requisites(context.Background(), "FDSC 4000")
	require.NoError(t, err)
	assert.Nil(t, bad.Prerequisites.Node)
	assert.Contains(t, bad.Prerequisites.Error, "malformed")
	assert.Equal(t, types.Atom{Code: "FDSC 4170"}, bad.Corequisites.Node)

	_, err = s.Requisites(context.Background(), "CS 9999")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestDependents(t *testing.T) {
	s, dir := testStore(t)
	writeResult(t, dir, "CS 3110", "(CS 2110 OR CS 2112)", "CS 2800")
	writeResult(t, dir, "CS 4820", "(CS 3110 AND CS 2800)", "")
	writeResult(t, dir, "CS 3410", "(CS 2110 OR CS 2112)", "")
	ingest(t, s, dir)

	tests := []struct {
		atom string
		kind types.RequisiteKind
		want []string
	}{
		{"CS 2800", "", []string{"CS 3110", "CS 4820"}},
		{"CS 2800", types.KindPrerequisite, []string{"CS 4820"}},
		{"CS 2800", types.KindCorequisite, []string{"CS 3110"}},
		{"CS 2110", "", []string{"CS 3110", "CS 3410"}},
		{"MATH 1920", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.atom+"/"+string(tt.kind), func(t *testing.T) {
			got, err := s.Dependents(context.Background(), tt.atom, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck(t *testing.T) {
	s, dir := testStore(t)
	writeResult(t, dir, "CS 4820", "((CS 2110 OR CS 2112) AND CS 2800 AND CS 3110)", "")
	writeResult(t, dir, "CS 3110", "(CS 2110 OR CS 2112)", "CS 2800")
	writeResult(t, dir, "FDSC 4000", "(CHEM 1560)", "")
	ingest(t, s, dir)

	t.Run("eligible", func(t *testing.T) {
		got, err := s.Check(context.Background(), "CS 4820", []string{"CS 2112", "CS 2800", "CS 3110"})
		require.NoError(t, err)
		assert.True(t, got.Eligible())
		assert.Empty(t, got.Prerequisites.Missing)
	})

	t.Run("missing courses listed once", func(t *testing.T) {
		got, err := s.Check(context.Background(), "CS 4820", []string{"CS 2800"})
		require.NoError(t, err)
		assert.False(t, got.Prerequisites.Satisfied)
		assert.True(t, got.Corequisites.Satisfied)
		assert.Equal(t, []string{"CS 2110", "CS 2112", "CS 3110"}, got.Prerequisites.Missing)
	})

	t.Run("corequisite outstanding", func(t *testing.T) {
		got, err := s.Check(context.Background(), "CS 3110", []string{" CS 2110 "})
		require.NoError(t, err)
		assert.True(t, got.Prerequisites.Satisfied)
		assert.False(t, got.Corequisites.Satisfied)
		assert.Equal(t, []string{"CS 2800"}, got.Corequisites.Missing)
		assert.False(t, got.Eligible())
	})

	t.Run("malformed expression reports error", func(t *testing.T) {
		got, err := s.Check(context.Background(), "FDSC 4000", []string{"CHEM 1560"})
		require.NoError(t, err)
		assert.False(t, got.Prerequisites.Satisfied)
		assert.NotEmpty(t, got.Prerequisites.Error)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := s.Check(context.Background(), "CS 9999", nil)
		assert.ErrorIs(t, err, ErrCourseNotFound)
	})
}

func TestLastRun_Empty(t *testing.T) {
	s, _ := testStore(t)
	_, ok, err := s.LastRun(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExport(t *testing.T) {
	s, dir := testStore(t)
	writeResult(t, dir, "CS 4820", "(CS 3110 AND CS 2800)", "")
	writeResult(t, dir, "CS 3110", "(CS 2110 OR CS 2112)", "CS 2800 AND")
	ingest(t, s, dir)

	codes, err := s.Courses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CS 3110", "CS 4820"}, codes)

	path, err := s.ExportJSON(context.Background())
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var fromJSON []types.CourseRequisites
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	require.Len(t, fromJSON, 2)
	assert.Equal(t, "CS 3110", fromJSON[0].Course)
	assert.Equal(t, types.ExprOr, fromJSON[0].Prerequisites.Expr.Type)
	assert.True(t, fromJSON[0].Corequisites.Failed())

	path, err = s.ExportYAML(context.Background())
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	var fromYAML []types.CourseRequisites
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, fromJSON, fromYAML)
}
