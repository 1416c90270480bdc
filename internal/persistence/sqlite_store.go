// Package persistence stores the run history in a local sqlite database.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/seligo/sentiment-pulse/internal/errdefs"
	"github.com/seligo/sentiment-pulse/internal/jobs"
)

const defaultListLimit = 50

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore records terminal job runs and serves them back newest
// first. It implements jobs.HistorySink.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errdefs.New(errdefs.Validation, "db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errdefs.Wrap(err, errdefs.Persistence, "create db directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.Persistence, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "set WAL mode")
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "set busy timeout")
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "create schema_migrations")
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "read migrations")
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return errdefs.Wrap(err, errdefs.Persistence, "check migration "+entry.Name())
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return errdefs.Wrap(err, errdefs.Persistence, "read migration "+entry.Name())
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return errdefs.Wrap(err, errdefs.Persistence, "apply migration "+entry.Name())
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return errdefs.Wrap(err, errdefs.Persistence, "record migration "+entry.Name())
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename
// (e.g. "001_job_runs.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// RecordRun upserts one terminal run.
func (s *SQLiteStore) RecordRun(ctx context.Context, rec jobs.RunRecord) error {
	if rec.ID == "" {
		return errdefs.New(errdefs.Validation, "run id is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO job_runs (id, job, status, started_at, finished_at, error, records)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			job=excluded.job,
			status=excluded.status,
			started_at=excluded.started_at,
			finished_at=excluded.finished_at,
			error=excluded.error,
			records=excluded.records`,
		rec.ID,
		rec.Job,
		string(rec.Status),
		rec.StartedAt.UTC(),
		rec.FinishedAt.UTC(),
		rec.Error,
		rec.Records,
	)
	if err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "record run")
	}
	return nil
}

// ListRuns returns runs newest first. job filters by job name when
// non-empty; limit falls back to a default when not positive.
func (s *SQLiteStore) ListRuns(ctx context.Context, job string, limit int) ([]jobs.RunRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, job, status, started_at, finished_at, error, records
		 FROM job_runs`
	args := make([]any, 0, 2)
	if job != "" {
		query += ` WHERE job = ?`
		args = append(args, job)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.Persistence, "list runs")
	}
	defer rows.Close()

	ret := make([]jobs.RunRecord, 0)
	for rows.Next() {
		var rec jobs.RunRecord
		var status string
		if err := rows.Scan(
			&rec.ID,
			&rec.Job,
			&status,
			&rec.StartedAt,
			&rec.FinishedAt,
			&rec.Error,
			&rec.Records,
		); err != nil {
			return nil, errdefs.Wrap(err, errdefs.Persistence, "scan run")
		}
		rec.Status = jobs.Status(status)
		ret = append(ret, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errdefs.Wrap(err, errdefs.Persistence, "iterate runs")
	}
	return ret, nil
}

var _ jobs.HistorySink = (*SQLiteStore)(nil)
