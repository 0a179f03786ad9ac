// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store indexes parsed course requisites in SQLite so they can be
// looked up by course, by referenced course, and checked against a set of
// completed courses.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/coursereq/pkg/types"
)

const dbFile = "coursereq.db"

// Store manages the requisite SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// Open opens or creates the database at cfg.Dir/coursereq.db and creates
// the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			code TEXT PRIMARY KEY,
			title TEXT,
			source_hash TEXT,
			file_mod_time TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS requisites (
			course TEXT NOT NULL REFERENCES courses(code) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			raw TEXT NOT NULL,
			expr_json TEXT,
			error TEXT,
			PRIMARY KEY (course, kind)
		)`,
		`CREATE TABLE IF NOT EXISTS requisite_atoms (
			course TEXT NOT NULL REFERENCES courses(code) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			position INTEGER NOT NULL,
			atom TEXT NOT NULL,
			PRIMARY KEY (course, kind, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_requisite_atoms_atom ON requisite_atoms(atom)`,
		`CREATE TABLE IF NOT EXISTS ingest_runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			ingested INTEGER NOT NULL DEFAULT 0,
			updated INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from one ingest run.
type IngestSummary struct {
	RunID    string
	Ingested int
	Updated  int
	Skipped  int
	Failed   int
}

// Total returns the number of result files processed.
func (s IngestSummary) Total() int {
	return s.Ingested + s.Updated + s.Skipped + s.Failed
}

// Ingest loads every result file in resultsDir. Files unchanged since the
// last ingest are skipped. Each course is written in its own transaction,
// so one bad file does not affect the others.
func (s *Store) Ingest(ctx context.Context, resultsDir string, w io.Writer) (IngestSummary, error) {
	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading results directory %s: %w", resultsDir, err)
	}

	summary := IngestSummary{RunID: uuid.NewString()}
	started := time.Now().UTC()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		name := entry.Name()
		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		result, err := loadResult(filepath.Join(resultsDir, name))
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM courses WHERE code = ?`, result.Course,
		).Scan(&storedModTime)
		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", result.Course)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		if err := s.ingestCourse(ctx, result, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", result.Course, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s\n", result.Course)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "ingested %s\n", result.Course)
			summary.Ingested++
		}
	}

	fmt.Fprintf(w, "\ningested: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Ingested, summary.Updated, summary.Skipped, summary.Failed)

	if err := s.recordRun(ctx, summary, started); err != nil {
		return summary, err
	}
	return summary, nil
}

// loadResult reads a result file and checks that every stored tree is valid.
func loadResult(path string) (types.CourseRequisites, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.CourseRequisites{}, err
	}
	var r types.CourseRequisites
	if err := yaml.Unmarshal(data, &r); err != nil {
		return types.CourseRequisites{}, fmt.Errorf("parse error: %w", err)
	}
	if r.Course == "" {
		return types.CourseRequisites{}, fmt.Errorf("result has no course code")
	}
	for _, kind := range []types.RequisiteKind{types.KindPrerequisite, types.KindCorequisite} {
		f := r.Field(kind)
		if f.Expr == nil {
			continue
		}
		if _, err := types.FromDoc(*f.Expr); err != nil {
			return types.CourseRequisites{}, fmt.Errorf("%s tree: %w", kind, err)
		}
	}
	return r, nil
}

func (s *Store) ingestCourse(ctx context.Context, r types.CourseRequisites, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO courses (code, title, source_hash, file_mod_time) VALUES (?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
			title=excluded.title, source_hash=excluded.source_hash, file_mod_time=excluded.file_mod_time`,
		r.Course, r.Title, r.SourceHash, modTime,
	)
	if err != nil {
		return fmt.Errorf("upserting course: %w", err)
	}

	for _, table := range []string{"requisites", "requisite_atoms"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE course = ?`, r.Course); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, kind := range []types.RequisiteKind{types.KindPrerequisite, types.KindCorequisite} {
		if err := insertField(ctx, tx, r.Course, kind, r.Field(kind)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertField(ctx context.Context, tx *sql.Tx, course string, kind types.RequisiteKind, f types.RequisiteField) error {
	var exprJSON sql.NullString
	var atoms []string
	if f.Expr != nil {
		data, err := json.Marshal(f.Expr)
		if err != nil {
			return fmt.Errorf("marshaling %s tree: %w", kind, err)
		}
		exprJSON = sql.NullString{String: string(data), Valid: true}

		n, err := types.FromDoc(*f.Expr)
		if err != nil {
			return fmt.Errorf("%s tree: %w", kind, err)
		}
		atoms = types.Atoms(n)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO requisites (course, kind, raw, expr_json, error) VALUES (?, ?, ?, ?, ?)`,
		course, string(kind), f.Raw, exprJSON, sql.NullString{String: f.Error, Valid: f.Error != ""},
	)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", kind, err)
	}

	for i, atom := range atoms {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO requisite_atoms (course, kind, position, atom) VALUES (?, ?, ?, ?)`,
			course, string(kind), i, atom,
		)
		if err != nil {
			return fmt.Errorf("inserting %s atom %s: %w", kind, atom, err)
		}
	}
	return nil
}

func (s *Store) recordRun(ctx context.Context, summary IngestSummary, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, started_at, finished_at, ingested, updated, skipped, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, started.Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano),
		summary.Ingested, summary.Updated, summary.Skipped, summary.Failed,
	)
	if err != nil {
		return fmt.Errorf("recording ingest run: %w", err)
	}
	return nil
}
