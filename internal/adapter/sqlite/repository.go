package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cwygoda/get/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    remote_id    INTEGER NOT NULL,
    idx          TEXT NOT NULL,
    source       TEXT NOT NULL,
    documents    INTEGER NOT NULL DEFAULT 0,
    status       TEXT NOT NULL DEFAULT 'pending',
    error        TEXT,
    submitted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);

CREATE TABLE IF NOT EXISTS watermarks (
    source     TEXT PRIMARY KEY,
    ts         INTEGER NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Repository implements domain.JobRepository and domain.WatermarkStore
// using SQLite.
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository, initializing the schema if needed.
func New(dbPath string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// feeds are ingested by several workers; serialise writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create records a submitted batch.
func (r *Repository) Create(ctx context.Context, h domain.JobHandle, source string, documents int) (*domain.Job, error) {
	now := time.Now()
	submitted := h.SubmittedAt
	if submitted.IsZero() {
		submitted = now
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (remote_id, idx, source, documents, status, submitted_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Index, source, documents, domain.StatusPending, submitted, now,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &domain.Job{
		ID:          id,
		RemoteID:    h.ID,
		Index:       h.Index,
		Source:      source,
		Documents:   documents,
		Status:      domain.StatusPending,
		SubmittedAt: submitted,
		UpdatedAt:   now,
	}, nil
}

const jobColumns = `id, remote_id, idx, source, documents, status, COALESCE(error, ''), submitted_at, updated_at`

// Get retrieves a job by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id,
	)
	return scanJob(row)
}

// FindPending returns unsettled jobs up to limit, oldest first.
func (r *Repository) FindPending(ctx context.Context, limit int) ([]domain.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY submitted_at ASC LIMIT ?`,
		domain.StatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Settle moves a pending job to a terminal status. Settled jobs are left
// untouched.
func (r *Repository) Settle(ctx context.Context, id int64, status domain.JobStatus, reason string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = NULLIF(?, ''), updated_at = ?
		 WHERE id = ? AND status = ?`,
		status, reason, time.Now(), id, domain.StatusPending,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// RecoverStale abandons jobs of index a crashed run left pending. Jobs of
// other indexes may belong to a live run and are left alone.
func (r *Repository) RecoverStale(ctx context.Context, index string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error = 'abandoned after crash', updated_at = ?
		 WHERE status = ? AND idx = ?`,
		domain.StatusAbandoned, time.Now(), domain.StatusPending, index,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Watermark returns the stored revision for source, 0 when unknown.
func (r *Repository) Watermark(ctx context.Context, source string) (int64, error) {
	var ts int64
	err := r.db.QueryRowContext(ctx,
		`SELECT ts FROM watermarks WHERE source = ?`, source,
	).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return ts, err
}

// SetWatermark stores the revision for source.
func (r *Repository) SetWatermark(ctx context.Context, source string, ts int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watermarks (source, ts, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(source) DO UPDATE SET ts = excluded.ts, updated_at = excluded.updated_at`,
		source, ts, time.Now(),
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.Job, error) {
	var job domain.Job
	var status string
	err := row.Scan(&job.ID, &job.RemoteID, &job.Index, &job.Source, &job.Documents,
		&status, &job.Error, &job.SubmittedAt, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}
